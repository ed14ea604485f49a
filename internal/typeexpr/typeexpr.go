// Package typeexpr parses the data-type strings a plan declares for its
// variables and checks kernel value descriptions against them.
//
// The grammar is closed:
//
//	type    = primary { ( "|" | "or" ) primary }
//	primary = NAME [ "[" args "]" ] | "None"
//	        | NAME "of" type                 list, set, frozenset, tuple
//	        | NAME ( "of" | "from" | "mapping" ) type "to" type    dict
//	        | "(" type { "," type } ")" [ "pairs" | "tuples" | ... ]
//	args    = type { "," type } | type "," "..." | "(" ")"
//
// Recognised names are the primitives str, int, float, bool, bytes, None,
// object and Any, the containers list, dict, tuple, set and frozenset (plus
// their typing capitalisations), Optional and Union. Any other dotted name
// refers to a class.
//
// The plain-word forms read the way plans describe data: "list of int",
// "dict of string to list of floats", "(int, string) pairs". Plural and
// long names ("strings", "integers", "dictionary") are aliases. A
// parenthesised tuple followed by a plural noun is a list of such tuples,
// except directly after "of" where the container already supplies the list.
package typeexpr

import (
	"fmt"
	"strings"
)

// Op identifies the shape of a parsed type.
type Op int

const (
	OpAny Op = iota
	OpNone
	OpPrimitive
	OpList
	OpSet
	OpFrozenSet
	OpDict
	OpTuple
	OpUnion
	OpClass
)

// Type is a node of a parsed type expression.
type Type struct {
	Op Op
	// Name is the primitive or class name.
	Name string
	// Args holds element types: one for list and set, key and value for
	// dict, the members of a union or fixed tuple.
	Args []*Type
	// Variadic marks tuple[T, ...].
	Variadic bool
	// Bare marks a container written without parameters.
	Bare bool

	// plural marks the list built from "(A, B) pairs".
	plural bool
}

var containers = map[string]Op{
	"list": OpList, "List": OpList,
	"set": OpSet, "Set": OpSet,
	"frozenset": OpFrozenSet, "FrozenSet": OpFrozenSet,
	"dict": OpDict, "Dict": OpDict,
	"tuple": OpTuple, "Tuple": OpTuple,
}

var primitives = map[string]bool{
	"str": true, "int": true, "float": true, "bool": true, "bytes": true,
}

// wordAliases maps the plain-word spellings onto grammar names.
var wordAliases = map[string]string{
	"string": "str", "strings": "str", "strs": "str", "text": "str",
	"integer": "int", "integers": "int", "ints": "int",
	"floats": "float", "number": "float", "numbers": "float",
	"boolean": "bool", "booleans": "bool", "bools": "bool",
	"lists": "list", "sets": "set", "tuples": "tuple",
	"dicts": "dict", "dictionary": "dict", "dictionaries": "dict", "mapping": "dict",
}

// pluralTuples follow a parenthesised tuple: "(int, str) pairs".
var pluralTuples = map[string]bool{
	"pairs": true, "tuples": true, "triples": true, "triplets": true,
}

// String renders t in canonical lower-case form.
func (t *Type) String() string {
	switch t.Op {
	case OpAny:
		return t.Name
	case OpNone:
		return "None"
	case OpPrimitive, OpClass:
		return t.Name
	case OpUnion:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return strings.Join(parts, " | ")
	}

	name := map[Op]string{OpList: "list", OpSet: "set", OpFrozenSet: "frozenset", OpDict: "dict", OpTuple: "tuple"}[t.Op]
	if t.Bare {
		return name
	}
	if t.Op == OpTuple && len(t.Args) == 0 {
		return "tuple[()]"
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	if t.Variadic {
		parts = append(parts, "...")
	}
	return name + "[" + strings.Join(parts, ", ") + "]"
}

// Parse parses a declared data type.
func Parse(expr string) (*Type, error) {
	p := &parser{toks: lex(expr), src: expr}
	t, err := p.union()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q", tok.text)
	}
	t.plural = false
	return t, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokName
	tokLBrack
	tokRBrack
	tokLParen
	tokRParen
	tokComma
	tokPipe
	tokEllipsis
	tokInvalid
)

type token struct {
	kind tokKind
	text string
}

func lex(s string) []token {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '[':
			toks = append(toks, token{tokLBrack, "["})
			i++
		case c == ']':
			toks = append(toks, token{tokRBrack, "]"})
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '|':
			toks = append(toks, token{tokPipe, "|"})
			i++
		case strings.HasPrefix(s[i:], "..."):
			toks = append(toks, token{tokEllipsis, "..."})
			i += 3
		case isNameByte(c) && !(c == '.' || (c >= '0' && c <= '9')):
			j := i
			for j < len(s) && isNameByte(s[j]) {
				j++
			}
			toks = append(toks, token{tokName, s[i:j]})
			i = j
		default:
			toks = append(toks, token{tokInvalid, string(c)})
			i++
		}
	}
	return append(toks, token{kind: tokEOF})
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("invalid type %q: %s", p.src, fmt.Sprintf(format, args...))
}

// word reports whether the next token is the bare word w.
func (p *parser) word(w string) bool {
	tok := p.peek()
	return tok.kind == tokName && tok.text == w
}

func (p *parser) isUnionSep() bool {
	return p.peek().kind == tokPipe || p.word("or")
}

func (p *parser) expect(kind tokKind, text string) error {
	if tok := p.next(); tok.kind != kind {
		if tok.kind == tokEOF {
			return p.errorf("expected %q, got end of input", text)
		}
		return p.errorf("expected %q, got %q", text, tok.text)
	}
	return nil
}

func (p *parser) union() (*Type, error) {
	first, err := p.primary()
	if err != nil {
		return nil, err
	}
	if !p.isUnionSep() {
		return first, nil
	}
	members := []*Type{first}
	for p.isUnionSep() {
		p.next()
		t, err := p.primary()
		if err != nil {
			return nil, err
		}
		members = append(members, t)
	}
	return &Type{Op: OpUnion, Args: members}, nil
}

func (p *parser) primary() (*Type, error) {
	if p.peek().kind == tokLParen {
		return p.parenTuple()
	}
	tok := p.next()
	if tok.kind != tokName {
		if tok.kind == tokEOF {
			return nil, p.errorf("unexpected end of input")
		}
		return nil, p.errorf("unexpected %q", tok.text)
	}

	name := strings.TrimPrefix(tok.text, "typing.")
	if alias, ok := wordAliases[name]; ok {
		name = alias
	}
	hasArgs := p.peek().kind == tokLBrack

	switch {
	case name == "None" || name == "NoneType":
		return &Type{Op: OpNone}, p.noArgs(hasArgs, name)
	case name == "Any" || name == "object":
		return &Type{Op: OpAny, Name: name}, p.noArgs(hasArgs, name)
	case primitives[name]:
		return &Type{Op: OpPrimitive, Name: name}, p.noArgs(hasArgs, name)
	case name == "Optional":
		args, err := p.args(1, 1)
		if err != nil {
			return nil, err
		}
		return &Type{Op: OpUnion, Args: []*Type{args[0], {Op: OpNone}}}, nil
	case name == "Union":
		args, err := p.args(1, -1)
		if err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return args[0], nil
		}
		return &Type{Op: OpUnion, Args: args}, nil
	}

	if op, ok := containers[name]; ok {
		if plain, ok, err := p.plainContainer(op); ok || err != nil {
			return plain, err
		}
		if !hasArgs {
			return &Type{Op: op, Bare: true}, nil
		}
		switch op {
		case OpTuple:
			return p.tupleArgs()
		case OpDict:
			args, err := p.args(2, 2)
			if err != nil {
				return nil, err
			}
			return &Type{Op: OpDict, Args: args}, nil
		default:
			args, err := p.args(1, 1)
			if err != nil {
				return nil, err
			}
			return &Type{Op: op, Args: args}, nil
		}
	}

	if hasArgs {
		return nil, p.errorf("%s does not take parameters", name)
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return nil, p.errorf("malformed name %q", name)
	}
	return &Type{Op: OpClass, Name: name}, nil
}

func (p *parser) noArgs(hasArgs bool, name string) error {
	if hasArgs {
		return p.errorf("%s does not take parameters", name)
	}
	return nil
}

// args parses "[T, ...]" with between min and max members; max < 0 is unbounded.
func (p *parser) args(min, max int) ([]*Type, error) {
	if err := p.expect(tokLBrack, "["); err != nil {
		return nil, err
	}
	var out []*Type
	for {
		t, err := p.union()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
		if p.peek().kind == tokRBrack {
			break
		}
	}
	if err := p.expect(tokRBrack, "]"); err != nil {
		return nil, err
	}
	if len(out) < min || (max >= 0 && len(out) > max) {
		return nil, p.errorf("wrong number of type parameters (%d)", len(out))
	}
	return out, nil
}

func (p *parser) tupleArgs() (*Type, error) {
	if err := p.expect(tokLBrack, "["); err != nil {
		return nil, err
	}
	if p.peek().kind == tokLParen {
		p.next()
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		if err := p.expect(tokRBrack, "]"); err != nil {
			return nil, err
		}
		return &Type{Op: OpTuple, Args: []*Type{}}, nil
	}

	t := &Type{Op: OpTuple}
	for {
		if p.peek().kind == tokEllipsis {
			if len(t.Args) != 1 || t.Variadic {
				return nil, p.errorf("'...' is only allowed as tuple[T, ...]")
			}
			p.next()
			t.Variadic = true
		} else {
			if t.Variadic {
				return nil, p.errorf("'...' must be the last tuple parameter")
			}
			elem, err := p.union()
			if err != nil {
				return nil, err
			}
			t.Args = append(t.Args, elem)
		}
		if p.peek().kind != tokComma {
			break
		}
		p.next()
		if p.peek().kind == tokRBrack {
			break
		}
	}
	if err := p.expect(tokRBrack, "]"); err != nil {
		return nil, err
	}
	return t, nil
}

// plainContainer parses the words after a container name: "of T" for
// sequences and sets, "of K to V" for dicts. ok is false when no such
// form follows.
func (p *parser) plainContainer(op Op) (*Type, bool, error) {
	if op == OpDict {
		if !p.word("of") && !p.word("from") && !p.word("mapping") {
			return nil, false, nil
		}
		p.next()
		key, err := p.element()
		if err != nil {
			return nil, true, err
		}
		if !p.word("to") {
			return nil, true, p.errorf("expected \"to\" in dict description")
		}
		p.next()
		val, err := p.element()
		if err != nil {
			return nil, true, err
		}
		return &Type{Op: OpDict, Args: []*Type{key, val}}, true, nil
	}

	if !p.word("of") {
		return nil, false, nil
	}
	p.next()
	elem, err := p.element()
	if err != nil {
		return nil, true, err
	}
	if op == OpTuple {
		return &Type{Op: OpTuple, Args: []*Type{elem}, Variadic: true}, true, nil
	}
	return &Type{Op: op, Args: []*Type{elem}}, true, nil
}

// element parses a container member. "(A, B) pairs" here names the member
// tuple itself, not a list of them.
func (p *parser) element() (*Type, error) {
	t, err := p.union()
	if err != nil {
		return nil, err
	}
	if t.plural {
		return t.Args[0], nil
	}
	return t, nil
}

// parenTuple parses "(A, B)" and an optional plural noun after it.
func (p *parser) parenTuple() (*Type, error) {
	p.next()
	t := &Type{Op: OpTuple}
	for p.peek().kind != tokRParen {
		elem, err := p.union()
		if err != nil {
			return nil, err
		}
		t.Args = append(t.Args, elem)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	if len(t.Args) == 0 {
		t.Args = []*Type{}
	}
	if tok := p.peek(); tok.kind == tokName && pluralTuples[tok.text] {
		p.next()
		return &Type{Op: OpList, Args: []*Type{t}, plural: true}, nil
	}
	return t, nil
}
