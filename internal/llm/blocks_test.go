package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBlocks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Block
	}{
		{
			name:    "empty",
			content: "",
			want:    nil,
		},
		{
			name:    "text only",
			content: "I think we are done.",
			want:    []Block{{ID: 0, Type: BlockText, Text: "I think we are done."}},
		},
		{
			name:    "python between text",
			content: "Let me check.\n```python\nprint(1)\n```\nDone.",
			want: []Block{
				{ID: 0, Type: BlockText, Text: "Let me check.\n"},
				{ID: 1, Type: BlockPython, Text: "\nprint(1)\n"},
				{ID: 2, Type: BlockText, Text: "\nDone."},
			},
		},
		{
			name:    "bash and python",
			content: "```bash\nls -la\n```\n```python\nx = 1\n```",
			want: []Block{
				{ID: 0, Type: BlockBash, Text: "\nls -la\n"},
				{ID: 1, Type: BlockText, Text: "\n"},
				{ID: 2, Type: BlockPython, Text: "\nx = 1\n"},
			},
		},
		{
			name:    "unknown language is text",
			content: "```json\n{\"a\": 1}\n```",
			want:    []Block{{ID: 0, Type: BlockText, Text: "\n{\"a\": 1}\n"}},
		},
		{
			name:    "unclosed fence runs to end",
			content: "```python\nprint('x')",
			want:    []Block{{ID: 0, Type: BlockPython, Text: "\nprint('x')"}},
		},
		{
			name:    "fence without newline",
			content: "```",
			want:    []Block{{ID: 0, Type: BlockText, Text: ""}},
		},
		{
			name:    "language tag with spaces",
			content: "```  python \nx = 2\n```",
			want:    []Block{{ID: 0, Type: BlockPython, Text: "\nx = 2\n"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBlocks(tt.content))
		})
	}
}

func TestCodeBlocks(t *testing.T) {
	blocks := ParseBlocks("a\n```python\nx = 1\n```\nb\n```bash\necho hi\n```")
	code := CodeBlocks(blocks)

	if assert.Len(t, code, 2) {
		assert.Equal(t, BlockPython, code[0].Type)
		assert.Equal(t, BlockBash, code[1].Type)
		assert.Equal(t, 1, code[0].ID)
		assert.Equal(t, 3, code[1].ID)
	}
}
