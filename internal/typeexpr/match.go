package typeexpr

import (
	"fmt"
	"strings"
)

// moduleAliases maps conventional import aliases to their module roots.
var moduleAliases = map[string]string{
	"pd": "pandas",
	"np": "numpy",
}

// Mismatch explains why a value does not conform to a declared type.
type Mismatch struct {
	Path     string
	Expected string
	Got      string
}

func (m *Mismatch) Error() string {
	if m.Path == "" {
		return fmt.Sprintf("expected %s, got %s", m.Expected, m.Got)
	}
	return fmt.Sprintf("%s: expected %s, got %s", m.Path, m.Expected, m.Got)
}

// Check parses expr and matches v against it.
func Check(expr string, v Value) error {
	t, err := Parse(expr)
	if err != nil {
		return err
	}
	return t.Match(v)
}

// Match reports nil when v conforms to t, otherwise a *Mismatch naming the
// first offending element. Containers are checked on the kernel's sample.
func (t *Type) Match(v Value) error {
	return t.match(v, "")
}

func (t *Type) match(v Value, path string) error {
	fail := func() error {
		return &Mismatch{Path: path, Expected: t.String(), Got: describe(v)}
	}

	switch t.Op {
	case OpAny:
		return nil
	case OpNone:
		if v.Kind != KindNone {
			return fail()
		}
		return nil
	case OpPrimitive:
		if !primitiveAccepts(t.Name, v.Kind) {
			return fail()
		}
		return nil
	case OpClass:
		if !classMatches(t.Name, v) {
			return fail()
		}
		return nil
	case OpUnion:
		for _, member := range t.Args {
			if member.match(v, path) == nil {
				return nil
			}
		}
		return fail()
	case OpList:
		if v.Kind != KindList {
			return fail()
		}
		return t.matchItems(v.Items, path)
	case OpSet:
		if v.Kind != KindSet {
			return fail()
		}
		return t.matchItems(v.Items, path)
	case OpFrozenSet:
		if v.Kind != KindFrozenSet {
			return fail()
		}
		return t.matchItems(v.Items, path)
	case OpDict:
		if v.Kind != KindDict {
			return fail()
		}
		if t.Bare {
			return nil
		}
		for i := range v.Keys {
			if err := t.Args[0].match(v.Keys[i], fmt.Sprintf("%s<key %d>", path, i)); err != nil {
				return err
			}
			if i < len(v.Values) {
				if err := t.Args[1].match(v.Values[i], fmt.Sprintf("%s<value %d>", path, i)); err != nil {
					return err
				}
			}
		}
		return nil
	case OpTuple:
		if v.Kind != KindTuple {
			return fail()
		}
		return t.matchTuple(v, path, fail)
	}
	return fail()
}

func (t *Type) matchItems(items []Value, path string) error {
	if t.Bare {
		return nil
	}
	for i, item := range items {
		if err := t.Args[0].match(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Type) matchTuple(v Value, path string, fail func() error) error {
	switch {
	case t.Bare:
		return nil
	case t.Variadic:
		return (&Type{Op: OpList, Args: t.Args}).matchItems(v.Items, path)
	case len(t.Args) != v.Len:
		return fail()
	}
	for i, item := range v.Items {
		if i >= len(t.Args) {
			break
		}
		if err := t.Args[i].match(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// primitiveAccepts applies python's numeric tower: bool is an int and an
// int is acceptable where a float is declared.
func primitiveAccepts(name string, kind Kind) bool {
	switch name {
	case "str":
		return kind == KindStr
	case "bytes":
		return kind == KindBytes
	case "bool":
		return kind == KindBool
	case "int":
		return kind == KindInt || kind == KindBool
	case "float":
		return kind == KindFloat || kind == KindInt || kind == KindBool
	}
	return false
}

// classMatches compares a declared dotted class name against the value's MRO
// by class name and, when the declaration has a module, by module root.
func classMatches(declared string, v Value) bool {
	module, name := splitDotted(declared)
	if root, ok := moduleAliases[module]; ok {
		module = root
	}

	mro := v.MRO
	if len(mro) == 0 && v.Class != "" {
		mro = []string{v.Class}
	}
	for _, entry := range mro {
		entryModule, entryName := splitDotted(entry)
		if entryName != name {
			continue
		}
		if module == "" || module == rootOf(entryModule) {
			return true
		}
	}
	return false
}

// splitDotted returns the root module and final name of a dotted path.
func splitDotted(s string) (string, string) {
	idx := strings.LastIndexByte(s, '.')
	if idx < 0 {
		return "", s
	}
	return rootOf(s[:idx]), s[idx+1:]
}

func rootOf(module string) string {
	if idx := strings.IndexByte(module, '.'); idx >= 0 {
		return module[:idx]
	}
	return module
}

func describe(v Value) string {
	switch v.Kind {
	case KindList, KindTuple, KindSet, KindFrozenSet, KindDict:
		return fmt.Sprintf("%s of length %d", v.TypeName(), v.Len)
	}
	return v.TypeName()
}
