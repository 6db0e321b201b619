// Package scene is the drawable output of the renderer: an owned tree of
// groups, paths, rectangles and images in page units (1404x1872).
package scene

import (
	"image"
	"image/color"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render/geom"
)

// Node is an element of the scene tree.
type Node interface {
	node()
}

// Blend is the compositing mode of a primitive.
type Blend int

const (
	BlendNormal Blend = iota
	// BlendDarken keeps the darker of source and backdrop per channel.
	BlendDarken
)

// Clip restricts a group to the page minus the union of Outlines.
type Clip struct {
	Outlines [][]geom.Point
}

// Visible reports whether p survives the clip.
func (c *Clip) Visible(p geom.Point) bool {
	if p.X < 0 || p.Y < 0 || p.X > lines.Width || p.Y > lines.Height {
		return false
	}
	for _, poly := range c.Outlines {
		if geom.Contains(poly, p) {
			return false
		}
	}
	return true
}

// Group is an ordered list of children, optionally clipped.
type Group struct {
	Name     string
	Clip     *Clip
	Children []Node
}

func (*Group) node() {}

// Add appends children to the group.
func (g *Group) Add(n ...Node) {
	g.Children = append(g.Children, n...)
}

// SegmentKind is the kind of a path segment.
type SegmentKind int

const (
	LineTo SegmentKind = iota
	CubicTo
)

// Segment is a line or cubic Bezier segment. C1 and C2 are only set for
// cubics.
type Segment struct {
	Kind   SegmentKind
	C1, C2 geom.Point
	To     geom.Point
}

// Texture is a pencil grain pattern.
type Texture struct {
	// Level indexes geom.Textures().
	Level int
	// Scale is the size of a texture pixel in page units.
	Scale float64
}

// Pen describes how a path is stroked. Caps and joins are always round.
type Pen struct {
	Color   color.NRGBA
	Width   float64
	Texture *Texture
}

// Path is a stroked open path.
type Path struct {
	// Tool is the tool of the stroke the path was drawn from.
	Tool     lines.Tool
	Start    geom.Point
	Segments []Segment
	Pen      Pen
	Blend    Blend
}

func (*Path) node() {}

// Points returns the start point and every segment end point.
func (p *Path) Points() []geom.Point {
	pts := make([]geom.Point, 0, len(p.Segments)+1)
	pts = append(pts, p.Start)
	for _, s := range p.Segments {
		pts = append(pts, s.To)
	}
	return pts
}

// Rect is a filled rectangle without outline.
type Rect struct {
	X, Y, Width, Height float64
	Fill                color.NRGBA
	Blend               Blend
	// Text is the highlighted text, shown as a tooltip by viewers.
	Text string
}

func (*Rect) node() {}

// Image places a raster image with its top left corner at X, Y, scaled
// uniformly by Scale.
type Image struct {
	Image image.Image
	X, Y  float64
	Scale float64
}

func (*Image) node() {}

// Page is a full page scene: the background beneath the ink, both clipped
// to Width x Height.
type Page struct {
	Width, Height float64
	Background    *Image
	Ink           *Group
}

// NewPage wraps ink into a page sized scene without background.
func NewPage(ink *Group) *Page {
	return &Page{Width: lines.Width, Height: lines.Height, Ink: ink}
}
