package llm

import "strings"

// BlockType classifies a segment of a model reply.
type BlockType string

const (
	BlockText   BlockType = "text"
	BlockPython BlockType = "python"
	BlockBash   BlockType = "bash"
)

// Block is one ordered segment of a reply. Code blocks carry their body
// without the fence markers; everything else is text.
type Block struct {
	ID   int       `json:"block_id"`
	Type BlockType `json:"block_type"`
	Text string    `json:"block_text"`
}

// IsCode reports whether the block should be executed.
func (b Block) IsCode() bool {
	return b.Type == BlockPython || b.Type == BlockBash
}

const fence = "```"

// ParseBlocks splits content into ordered text and code blocks. Only the
// fence markers and the language tag line are removed; bodies are kept
// verbatim, including the newline that ends the tag line. A fence without
// a closing marker runs to the end of content. Fences tagged with anything
// other than python or bash become text blocks.
func ParseBlocks(content string) []Block {
	var blocks []Block
	add := func(t BlockType, text string) {
		blocks = append(blocks, Block{ID: len(blocks), Type: t, Text: text})
	}

	idx := 0
	for {
		rel := strings.Index(content[idx:], fence)
		if rel == -1 {
			if tail := content[idx:]; tail != "" {
				add(BlockText, tail)
			}
			return blocks
		}
		start := idx + rel

		if start > idx {
			add(BlockText, content[idx:start])
		}

		langEnd := start + len(fence)
		if nl := strings.IndexByte(content[langEnd:], '\n'); nl != -1 {
			langEnd += nl
		}

		blockType := BlockText
		switch strings.TrimSpace(content[start+len(fence) : langEnd]) {
		case "python":
			blockType = BlockPython
		case "bash":
			blockType = BlockBash
		}

		var body string
		if end := strings.Index(content[langEnd:], fence); end == -1 {
			body = content[langEnd:]
			idx = len(content)
		} else {
			body = content[langEnd : langEnd+end]
			idx = langEnd + end + len(fence)
		}
		add(blockType, body)
	}
}

// CodeBlocks returns only the executable blocks of blocks.
func CodeBlocks(blocks []Block) []Block {
	var code []Block
	for _, b := range blocks {
		if b.IsCode() {
			code = append(code, b)
		}
	}
	return code
}
