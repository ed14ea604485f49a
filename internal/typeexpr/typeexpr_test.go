package typeexpr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"int", "int"},
		{"  str ", "str"},
		{"list", "list"},
		{"List[int]", "list[int]"},
		{"typing.List[int]", "list[int]"},
		{"list[tuple[int, str]]", "list[tuple[int, str]]"},
		{"dict[str, list[int]]", "dict[str, list[int]]"},
		{"Dict[str,int]", "dict[str, int]"},
		{"tuple[int, ...]", "tuple[int, ...]"},
		{"tuple[()]", "tuple[()]"},
		{"Tuple[int, str,]", "tuple[int, str]"},
		{"set[str]", "set[str]"},
		{"FrozenSet[int]", "frozenset[int]"},
		{"Optional[int]", "int | None"},
		{"Union[int, str]", "int | str"},
		{"Union[int]", "int"},
		{"int | None", "int | None"},
		{"pandas.DataFrame", "pandas.DataFrame"},
		{"pd.DataFrame", "pd.DataFrame"},
		{"Any", "Any"},
		{"object", "object"},
		{"None", "None"},
		{"list of int", "list[int]"},
		{"list of ints", "list[int]"},
		{"List of strings", "list[str]"},
		{"set of integers", "set[int]"},
		{"tuple of floats", "tuple[float, ...]"},
		{"dict of string to list of int", "dict[str, list[int]]"},
		{"dictionary mapping str to float", "dict[str, float]"},
		{"(int, string)", "tuple[int, str]"},
		{"(int, string) pairs", "list[tuple[int, str]]"},
		{"list of (int, string) pairs", "list[tuple[int, str]]"},
		{"dict of str to (int, int) pairs", "dict[str, tuple[int, int]]"},
		{"int or None", "int | None"},
		{"list[(int, str)]", "list[tuple[int, str]]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			typ, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, typ.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"list[",
		"list[int",
		"dict[str]",
		"int[str]",
		"tuple[..., int]",
		"tuple[int, ..., str]",
		"Optional",
		"Optional[int, str]",
		"list of",
		"dict of str",
		"dict of str to",
		"(int, str",
		"int]",
		"1int",
		"numpy..ndarray",
		"list[int] | ",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestCheckPlainWords(t *testing.T) {
	err := Check("list of int", prim(KindStr))
	var mismatch *Mismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "list[int]", mismatch.Expected)

	assert.NoError(t, Check("list of ints", list(prim(KindInt), prim(KindInt))))
	assert.Error(t, Check("list of ints", list(prim(KindInt), prim(KindStr))))
}

func prim(kind Kind) Value {
	return Value{Kind: kind, Class: string(kind)}
}

func list(items ...Value) Value {
	return Value{Kind: KindList, Class: "list", Len: len(items), Items: items}
}

func tuple(items ...Value) Value {
	return Value{Kind: KindTuple, Class: "tuple", Len: len(items), Items: items}
}

func TestCheck(t *testing.T) {
	dataFrame := Value{
		Kind:  KindObject,
		Class: "pandas.core.frame.DataFrame",
		MRO:   []string{"pandas.core.frame.DataFrame", "pandas.core.generic.NDFrame", "builtins.object"},
	}
	ndarray := Value{Kind: KindObject, Class: "numpy.ndarray", MRO: []string{"numpy.ndarray", "builtins.object"}}
	dict := Value{
		Kind: KindDict, Class: "dict", Len: 2,
		Keys:   []Value{prim(KindStr), prim(KindStr)},
		Values: []Value{list(prim(KindInt)), list()},
	}

	tests := []struct {
		name  string
		expr  string
		value Value
		ok    bool
	}{
		{"int", "int", prim(KindInt), true},
		{"bool is int", "int", prim(KindBool), true},
		{"int is float", "float", prim(KindInt), true},
		{"float is not int", "int", prim(KindFloat), false},
		{"str is not bytes", "bytes", prim(KindStr), false},
		{"none", "None", prim(KindNone), true},
		{"optional none", "Optional[str]", prim(KindNone), true},
		{"optional str", "str | None", prim(KindStr), true},
		{"union miss", "Union[int, str]", prim(KindFloat), false},
		{"list of int", "list[int]", list(prim(KindInt), prim(KindInt)), true},
		{"empty list", "list[int]", list(), true},
		{"list element mismatch", "list[int]", list(prim(KindInt), prim(KindStr)), false},
		{"tuple is not list", "list[int]", tuple(prim(KindInt)), false},
		{"bare list", "list", list(prim(KindStr)), true},
		{"list of pairs", "list[tuple[int, str]]", list(tuple(prim(KindInt), prim(KindStr))), true},
		{"pair arity", "list[tuple[int, str]]", list(tuple(prim(KindInt))), false},
		{"variadic tuple", "tuple[int, ...]", tuple(prim(KindInt), prim(KindBool)), true},
		{"empty tuple", "tuple[()]", tuple(), true},
		{"empty tuple mismatch", "tuple[()]", tuple(prim(KindInt)), false},
		{"dict", "dict[str, list[int]]", dict, true},
		{"dict value mismatch", "dict[str, list[str]]", Value{Kind: KindDict, Class: "dict", Len: 1, Keys: []Value{prim(KindStr)}, Values: []Value{list(prim(KindInt))}}, false},
		{"set", "set[int]", Value{Kind: KindSet, Class: "set", Len: 1, Items: []Value{prim(KindInt)}}, true},
		{"frozenset is not set", "set[int]", Value{Kind: KindFrozenSet, Class: "frozenset"}, false},
		{"pandas", "pandas.DataFrame", dataFrame, true},
		{"pd alias", "pd.DataFrame", dataFrame, true},
		{"bare class", "DataFrame", dataFrame, true},
		{"wrong module", "polars.DataFrame", dataFrame, false},
		{"np alias", "np.ndarray", ndarray, true},
		{"numpy", "numpy.ndarray", ndarray, true},
		{"class vs primitive", "pandas.DataFrame", list(), false},
		{"any", "Any", ndarray, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.expr, tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMismatchPath(t *testing.T) {
	err := Check("list[int]", list(prim(KindInt), prim(KindStr)))
	require.Error(t, err)

	var mm *Mismatch
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "[1]", mm.Path)
	assert.Equal(t, "int", mm.Expected)
	assert.Equal(t, "str", mm.Got)
	assert.Equal(t, "[1]: expected int, got str", err.Error())
}

func TestMismatchTopLevel(t *testing.T) {
	err := Check("list[int]", Value{Kind: KindDict, Class: "dict", Len: 3})
	require.Error(t, err)
	assert.Equal(t, "expected list[int], got dict of length 3", err.Error())
}
