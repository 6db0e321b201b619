package lines

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolFor(t *testing.T) {
	cases := map[int]Tool{
		0:  ToolBrush,
		1:  ToolPencil,
		2:  ToolBallpoint,
		3:  ToolMarker,
		4:  ToolFineliner,
		5:  ToolHighlighter,
		6:  ToolEraser,
		7:  ToolMechPencil,
		8:  ToolEraseArea,
		9:  ToolCalligraphy,
		12: ToolBrush,
		13: ToolMechPencil,
		14: ToolPencil,
		15: ToolBallpoint,
		16: ToolMarker,
		17: ToolFineliner,
		18: ToolHighlighter,
		19: ToolEraser,
		21: ToolCalligraphy,
		10: ToolUnknown,
		20: ToolUnknown,
		99: ToolUnknown,
		-1: ToolUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToolFor(code), "code %d", code)
	}
}

func TestParseTool(t *testing.T) {
	tool, ok := ParseTool(" Highlighter ")
	assert.True(t, ok)
	assert.Equal(t, ToolHighlighter, tool)

	tool, ok = ParseTool("4")
	assert.True(t, ok)
	assert.Equal(t, ToolFineliner, tool)

	_, ok = ParseTool("crayon")
	assert.False(t, ok)

	assert.Equal(t, "mech_pencil", ToolMechPencil.String())
	assert.Equal(t, "unknown", Tool(99).String())
	assert.False(t, ToolUnknown.Known())
}
