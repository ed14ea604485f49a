package typeexpr

// Kind is the structural category the python kernel assigns to a value.
type Kind string

const (
	KindNone      Kind = "none"
	KindBool      Kind = "bool"
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindStr       Kind = "str"
	KindBytes     Kind = "bytes"
	KindList      Kind = "list"
	KindTuple     Kind = "tuple"
	KindDict      Kind = "dict"
	KindSet       Kind = "set"
	KindFrozenSet Kind = "frozenset"
	KindObject    Kind = "object"
)

// Value is the kernel's structural description of a live value. Containers
// carry a bounded sample of their elements; Truncated marks a partial sample.
type Value struct {
	Kind      Kind     `json:"kind"`
	Class     string   `json:"class"`
	MRO       []string `json:"mro,omitempty"`
	Len       int      `json:"len,omitempty"`
	Items     []Value  `json:"items,omitempty"`
	Keys      []Value  `json:"keys,omitempty"`
	Values    []Value  `json:"values,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
}

// TypeName returns the bare class name, as python's type(v).__name__ would.
func (v Value) TypeName() string {
	name := v.Class
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	if name == "" {
		return string(v.Kind)
	}
	return name
}
