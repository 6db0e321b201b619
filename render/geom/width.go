package geom

import (
	"math"

	"github.com/ddvk/rmrender/lines"
)

// Width rule constants.
const (
	pencilWidthFactor     = 0.55
	mechPencilWidthFactor = 1 / 1.5
	veryDynamicWidthShare = 0.7

	// HighlighterWidth is the fixed stroke width of the highlighter.
	HighlighterWidth = 30.0
)

// AuxKind tells how Sample.Value is to be read.
type AuxKind int

const (
	AuxNone     AuxKind = iota
	AuxTexture          // Value is a pencil texture index
	AuxPressure         // Value is the pressure rounded to two decimals
)

// Sample is the effective width of one segment plus the auxiliary value the
// pen needs. Consecutive segments with equal samples share one sub-path.
type Sample struct {
	Width float64
	Aux   AuxKind
	Value float64
}

// WidthFunc maps a segment to its effective width.
type WidthFunc func(lines.Segment) Sample

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Flat always returns w.
func Flat(w float64) WidthFunc {
	return func(lines.Segment) Sample { return Sample{Width: w} }
}

// Dynamic uses the recorded width as is.
func Dynamic(s lines.Segment) Sample {
	return Sample{Width: s.Width}
}

// SemiDynamic rounds the recorded width to a whole unit.
func SemiDynamic(s lines.Segment) Sample {
	return Sample{Width: math.RoundToEven(s.Width)}
}

// VeryDynamic blends width and pressure 70/30. Older firmware rendered
// ballpoints this way.
func VeryDynamic(s lines.Segment) Sample {
	w := s.Width*veryDynamicWidthShare + s.Width*(1-veryDynamicWidthShare)*s.Pressure
	return Sample{Width: round2(w)}
}

// Pencil scales the width and picks a texture from the pressure.
func Pencil(s lines.Segment) Sample {
	return Sample{Width: round2(s.Width * pencilWidthFactor), Aux: AuxTexture, Value: float64(TextureIndex(s.Pressure))}
}

// MechPencil is Pencil with the mechanical pencil's narrower scale.
func MechPencil(s lines.Segment) Sample {
	return Sample{Width: round2(s.Width * mechPencilWidthFactor), Aux: AuxTexture, Value: float64(TextureIndex(s.Pressure))}
}

// FlatPencil is Pencil without texture; the pressure is kept instead.
func FlatPencil(s lines.Segment) Sample {
	return Sample{Width: round2(s.Width * pencilWidthFactor), Aux: AuxPressure, Value: round2(s.Pressure)}
}

// FlatMechPencil is MechPencil without texture.
func FlatMechPencil(s lines.Segment) Sample {
	return Sample{Width: round2(s.Width * mechPencilWidthFactor), Aux: AuxPressure, Value: round2(s.Pressure)}
}

// WidthFor picks the width rule of a tool. Textured pencil rules are only
// used when pencilResolution is positive.
func WidthFor(tool lines.Tool, baseWidth, pencilResolution float64) WidthFunc {
	switch tool {
	case lines.ToolPencil:
		if pencilResolution > 0 {
			return Pencil
		}
		return FlatPencil
	case lines.ToolMechPencil:
		if pencilResolution > 0 {
			return MechPencil
		}
		return FlatMechPencil
	case lines.ToolBallpoint:
		return SemiDynamic
	case lines.ToolHighlighter:
		return Flat(HighlighterWidth)
	case lines.ToolFineliner, lines.ToolEraser:
		return Flat(baseWidth)
	default:
		return Dynamic
	}
}
