// Package lines decodes reMarkable "lines" ink files (.rm, versions 3 and 5)
// into layers of strokes.
package lines

// Page geometry of the reMarkable 1 and 2 screens.
const (
	Width  = 1404 // page width in device units
	Height = 1872 // page height in device units

	WidthMM  = 154.5 // physical page width in millimetres
	HeightMM = 206.0 // physical page height in millimetres
)

// Segment is one sampled point of a stroke.
type Segment struct {
	X         float64
	Y         float64
	Speed     float64
	Direction float64
	Width     float64
	Pressure  float64
}

// Stroke is one continuous pen gesture.
type Stroke struct {
	// Pen is the raw tool code as stored in the file.
	Pen int
	// Tool is Pen normalised across firmware numbering schemes.
	Tool     Tool
	Color    int
	Width    float64
	Unknown1 uint32
	// Unknown2 is only present in version 5 files; version 3 strokes carry 0.
	Unknown2 uint32
	Segments []Segment
}

// MaxSegmentWidth returns the widest per-sample width of the stroke.
func (s *Stroke) MaxSegmentWidth() float64 {
	max := 0.0
	for _, seg := range s.Segments {
		if seg.Width > max {
			max = seg.Width
		}
	}
	return max
}

// Rect is an axis aligned rectangle in page units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Highlight is a text highlight made on an EPUB or PDF page.
type Highlight struct {
	Color int
	Rects []Rect
	Text  string
}

// Layer is a named drawing plane. Later layers are drawn on top.
type Layer struct {
	Name       string
	Strokes    []Stroke
	Highlights []Highlight
}

// BackgroundKind tells what sits underneath the ink of a page.
type BackgroundKind int

const (
	BackgroundNone BackgroundKind = iota
	BackgroundTemplate
	BackgroundPDF
)

// Background references the template or base document page of a Page.
type Background struct {
	Kind BackgroundKind
	// Template is the template name for BackgroundTemplate.
	Template string
	// Document and PageIndex identify the base page for BackgroundPDF.
	Document  string
	PageIndex int
}

// BlankTemplate is the template name the tablet uses for plain pages.
const BlankTemplate = "Blank"

// Page is the unit of rendering.
type Page struct {
	Number     int
	Version    int
	Layers     []Layer
	Background Background
}

// StrokeCount returns the number of strokes over all layers.
func (p *Page) StrokeCount() int {
	n := 0
	for _, l := range p.Layers {
		n += len(l.Strokes)
	}
	return n
}
