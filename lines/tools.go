package lines

import (
	"strconv"
	"strings"

	"github.com/juruen/rmapi/encoding/rm"
)

// Tool is the logical pen type of a stroke.
type Tool int

// Normalised tool identifiers. The values match the firmware 2.x codes.
const (
	ToolUnknown     Tool = -1
	ToolEraser      Tool = 6
	ToolEraseArea   Tool = 8
	ToolBrush       Tool = 12
	ToolMechPencil  Tool = 13
	ToolPencil      Tool = 14
	ToolBallpoint   Tool = 15
	ToolMarker      Tool = 16
	ToolFineliner   Tool = 17
	ToolHighlighter Tool = 18
	ToolCalligraphy Tool = 21
)

// toolCodes maps both firmware numbering schemes onto the logical tools.
var toolCodes = map[rm.BrushType]Tool{
	rm.Brush:       ToolBrush,
	rm.TiltPencil:  ToolPencil,
	rm.BallPoint:   ToolBallpoint,
	rm.Marker:      ToolMarker,
	rm.Fineliner:   ToolFineliner,
	rm.Highlighter: ToolHighlighter,
	rm.Eraser:      ToolEraser,
	rm.SharpPencil: ToolMechPencil,
	rm.EraseArea:   ToolEraseArea,
	9:              ToolCalligraphy,

	rm.BrushV5:       ToolBrush,
	rm.SharpPencilV5: ToolMechPencil,
	rm.TiltPencilV5:  ToolPencil,
	rm.BallPointV5:   ToolBallpoint,
	rm.MarkerV5:      ToolMarker,
	rm.FinelinerV5:   ToolFineliner,
	rm.HighlighterV5: ToolHighlighter,
	19:               ToolEraser,
	21:               ToolCalligraphy,
}

var toolNames = map[Tool]string{
	ToolBrush:       "brush",
	ToolMechPencil:  "mech_pencil",
	ToolPencil:      "pencil",
	ToolBallpoint:   "ballpoint",
	ToolMarker:      "marker",
	ToolFineliner:   "fineliner",
	ToolHighlighter: "highlighter",
	ToolEraser:      "eraser",
	ToolEraseArea:   "erase_area",
	ToolCalligraphy: "calligraphy",
}

// ToolFor normalises a raw pen code. Unmapped codes give ToolUnknown.
func ToolFor(code int) Tool {
	if code < 0 {
		return ToolUnknown
	}
	if t, ok := toolCodes[rm.BrushType(code)]; ok {
		return t
	}
	return ToolUnknown
}

// Known reports whether t is one of the logical tools.
func (t Tool) Known() bool {
	_, ok := toolNames[t]
	return ok
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseTool accepts a tool name ("fineliner") or a raw code ("17", "4").
func ParseTool(s string) (Tool, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range toolNames {
		if name == s {
			return t, true
		}
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return ToolUnknown, false
	}
	t := ToolFor(code)
	return t, t != ToolUnknown
}
