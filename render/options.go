package render

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render/palette"
	"github.com/pkg/errors"
)

// Rendering defaults
const (
	defaultPencilResolution = 0.4 // texture pixel size in page units
	defaultThicknessScale   = 1.0
	autoEraserWidth         = 2.0 // pencil strokes wider than this need accurate erasing

	fuzzyWidthFactor   = 1.15 // pencil edge underlay is this much wider
	fuzzyTextureFactor = 0.7  // and uses a sparser texture level
)

// EraserMode controls how eraser strokes affect earlier ink of a layer.
type EraserMode int

const (
	// EraserQuick paints erasers as white ink.
	EraserQuick EraserMode = iota
	// EraserIgnore drops eraser strokes.
	EraserIgnore
	// EraserAccurate clips earlier ink with the erased region.
	EraserAccurate
	// EraserAuto ignores erasers unless the layer has ink that needs
	// accurate erasing to look right.
	EraserAuto
)

var eraserModeNames = map[EraserMode]string{
	EraserQuick:    "quick",
	EraserIgnore:   "ignore",
	EraserAccurate: "accurate",
	EraserAuto:     "auto",
}

func (m EraserMode) String() string {
	if s, ok := eraserModeNames[m]; ok {
		return s
	}
	return "EraserMode(" + strconv.Itoa(int(m)) + ")"
}

// ParseEraserMode parses a mode name. Unknown names select EraserAuto.
func ParseEraserMode(s string) EraserMode {
	for m, name := range eraserModeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return m
		}
	}
	return EraserAuto
}

// ProgressFunc receives the number of strokes processed so far and the
// total. The total leaves out the strokes of excluded layers, so current
// reaches total when the render completes. A non-nil return aborts the
// render with that error.
type ProgressFunc func(current, total int) error

// ErrCancelled is returned by progress callbacks to cancel a render.
var ErrCancelled = errors.New("render cancelled")

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// LayerSet selects layers by 1-based index or by name. An entry of the form
// "<index>/highlights" or "<name>/highlights" selects only the highlights
// of a layer.
type LayerSet struct {
	indices map[int]bool
	names   map[string]bool
}

// AddIndex adds a 1-based layer index.
func (s *LayerSet) AddIndex(i int) {
	if s.indices == nil {
		s.indices = map[int]bool{}
	}
	s.indices[i] = true
}

// AddName adds a layer name.
func (s *LayerSet) AddName(name string) {
	if s.names == nil {
		s.names = map[string]bool{}
	}
	s.names[name] = true
}

// Len is the number of entries.
func (s LayerSet) Len() int {
	return len(s.indices) + len(s.names)
}

// Has reports whether the whole layer is selected.
func (s LayerSet) Has(index int, name string) bool {
	return s.indices[index] || s.names[name]
}

// HasHighlights reports whether the layer's highlights are selected.
func (s LayerSet) HasHighlights(index int, name string) bool {
	return s.Has(index, name) ||
		s.names[strconv.Itoa(index)+"/highlights"] ||
		s.names[name+"/highlights"]
}

// ParseExcludeLayers parses a comma separated list of JSON values: numbers
// are layer indices, strings are layer names, e.g. `1, "Notes", "2/highlights"`.
func ParseExcludeLayers(s string) (LayerSet, error) {
	var set LayerSet
	var values []interface{}
	if err := json.Unmarshal([]byte("["+s+"]"), &values); err != nil {
		return set, errors.Wrapf(err, "invalid layer list %q", s)
	}
	for _, v := range values {
		switch v := v.(type) {
		case float64:
			if v != math.Trunc(v) {
				return set, errors.Errorf("invalid layer index %v", v)
			}
			set.AddIndex(int(v))
		case string:
			set.AddName(v)
		default:
			return set, errors.Errorf("invalid layer reference %v", v)
		}
	}
	return set, nil
}

// ToolSet is a set of normalised tools.
type ToolSet map[lines.Tool]bool

// ParseTools parses a comma separated list of tool names or codes.
func ParseTools(s string) (ToolSet, error) {
	set := ToolSet{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tool, ok := lines.ParseTool(part)
		if !ok {
			return nil, errors.Errorf("unknown tool %q", part)
		}
		set[tool] = true
	}
	return set, nil
}

// Options configures a render.
type Options struct {
	// Palette resolves colour codes (default: palette.Default())
	Palette *palette.Palette
	// PencilResolution > 0 draws textured pencils with texture pixels of this
	// size, 0 draws them in a pressure keyed gray, < 0 in flat black (default: 0.4)
	PencilResolution float64
	// ThicknessScale multiplies every stroke width (default: 1)
	ThicknessScale float64
	// Simplify is the simplification tolerance for fineliner and ballpoint
	// strokes, 0 disables it (default: 0)
	Simplify float64
	// Smoothen draws fineliner and ballpoint strokes as cubic curves
	Smoothen bool
	// EraserMode selects eraser handling (default: EraserIgnore)
	EraserMode EraserMode
	// ExcludeLayers are not rendered
	ExcludeLayers LayerSet
	// ExcludeTools are not rendered
	ExcludeTools ToolSet
	// IncludeBaseLayer draws the template or the original PDF page
	// underneath the ink (default: true)
	IncludeBaseLayer bool
	// Progress is called once before the first stroke and after every stroke
	Progress ProgressFunc
}

// DefaultOptions returns the preview defaults.
func DefaultOptions() Options {
	return Options{
		Palette:          palette.Default(),
		PencilResolution: defaultPencilResolution,
		ThicknessScale:   defaultThicknessScale,
		EraserMode:       EraserIgnore,
		IncludeBaseLayer: true,
	}
}

// DefaultPreviewOptions is DefaultOptions.
func DefaultPreviewOptions() Options {
	return DefaultOptions()
}

// DefaultExportOptions returns the defaults for PDF export: highlighter
// colours are made translucent since PDF output has no darken blend.
func DefaultExportOptions() Options {
	opts := DefaultOptions()
	opts.Palette = opts.Palette.OpacityBased()
	return opts
}

func (o Options) palette() *palette.Palette {
	if o.Palette == nil {
		return palette.Default()
	}
	return o.Palette
}

func (o Options) thickness() float64 {
	if o.ThicknessScale <= 0 {
		return defaultThicknessScale
	}
	return o.ThicknessScale
}
