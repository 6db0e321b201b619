package pdf

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render/scene"
	"github.com/unidoc/unipdf/v3/contentstream"
	"github.com/unidoc/unipdf/v3/core"
)

const pointsPerMM = 72 / 25.4

// Page size in points.
var (
	PageWidth  = lines.WidthMM * pointsPerMM
	PageHeight = lines.HeightMM * pointsPerMM
)

// unit is the size of a page unit in points.
const unit = lines.WidthMM * pointsPerMM / lines.Width

// content is a painted page: its content stream and the resources it
// refers to.
type content struct {
	stream string
	// alpha of every graphics state, by resource name
	states   map[core.PdfObjectName]float64
	images   map[core.PdfObjectName]image.Image
	patterns map[core.PdfObjectName]pencil
}

// pencil is a tiling pattern of pencil speckles.
type pencil struct {
	color color.NRGBA
	level int
	// scale is the size of a speckle in page units
	scale float64
}

// painter turns a page scene into content stream operators. The stream
// works in page units with y pointing down.
type painter struct {
	cc       *contentstream.ContentCreator
	states   map[core.PdfObjectName]float64
	images   map[core.PdfObjectName]image.Image
	patterns map[core.PdfObjectName]pencil
	pencils  map[pencil]core.PdfObjectName
	current  float64
}

func paint(page *scene.Page) *content {
	p := &painter{
		cc:       contentstream.NewContentCreator(),
		states:   map[core.PdfObjectName]float64{},
		images:   map[core.PdfObjectName]image.Image{},
		patterns: map[core.PdfObjectName]pencil{},
		pencils:  map[pencil]core.PdfObjectName{},
		current:  1,
	}
	p.cc.Add_q()
	p.cc.Add_cm(unit, 0, 0, -unit, 0, PageHeight)
	p.roundPen()
	if page.Background != nil {
		p.image(page.Background)
	}
	if page.Ink != nil {
		p.group(page.Ink)
	}
	p.cc.Add_Q()
	return &content{stream: p.cc.String(), states: p.states, images: p.images, patterns: p.patterns}
}

func (p *painter) roundPen() {
	p.cc.AddOperand(contentstream.ContentStreamOperation{Operand: "J", Params: []core.PdfObject{core.MakeInteger(1)}})
	p.cc.AddOperand(contentstream.ContentStreamOperation{Operand: "j", Params: []core.PdfObject{core.MakeInteger(1)}})
}

func (p *painter) group(g *scene.Group) {
	if g.Clip != nil {
		p.cc.Add_q()
		saved := p.current
		p.clip(g.Clip)
		defer func() {
			p.cc.Add_Q()
			p.current = saved
		}()
	}
	for _, child := range g.Children {
		switch n := child.(type) {
		case *scene.Group:
			p.group(n)
		case *scene.Path:
			p.path(n)
		case *scene.Rect:
			p.rect(n)
		case *scene.Image:
			p.image(n)
		}
	}
}

// clip intersects one even-odd clip per outline. Each clip is the page with
// the outline cut out, so the intersection is the page minus the union of
// outlines.
func (p *painter) clip(c *scene.Clip) {
	for _, poly := range c.Outlines {
		if len(poly) < 3 {
			continue
		}
		p.cc.Add_re(0, 0, lines.Width, lines.Height)
		p.cc.Add_m(poly[0].X, poly[0].Y)
		for _, q := range poly[1:] {
			p.cc.Add_l(q.X, q.Y)
		}
		p.cc.Add_h()
		p.cc.Add_W_starred()
		p.cc.Add_n()
	}
}

// alpha selects a graphics state for the opacity a.
func (p *painter) alpha(a float64) {
	if a == p.current {
		return
	}
	name := core.PdfObjectName(fmt.Sprintf("GS%d", int(math.Round(a*255))))
	p.states[name] = a
	p.cc.Add_gs(name)
	p.current = a
}

func (p *painter) path(path *scene.Path) {
	if len(path.Segments) == 0 {
		return
	}
	c := path.Pen.Color
	if t := path.Pen.Texture; t != nil && t.Scale > 0 {
		// the tile carries the ink alpha
		p.alpha(1)
		p.cc.Add_CS("Pattern")
		p.cc.Add_SCN_pattern(p.pencil(pencil{color: c, level: t.Level, scale: t.Scale}))
	} else {
		p.alpha(float64(c.A) / 0xff)
		p.cc.Add_RG(float64(c.R)/0xff, float64(c.G)/0xff, float64(c.B)/0xff)
	}
	p.cc.Add_w(path.Pen.Width)

	p.cc.Add_m(path.Start.X, path.Start.Y)
	for _, s := range path.Segments {
		if s.Kind == scene.CubicTo {
			p.cc.Add_c(s.C1.X, s.C1.Y, s.C2.X, s.C2.Y, s.To.X, s.To.Y)
			continue
		}
		p.cc.Add_l(s.To.X, s.To.Y)
	}
	p.cc.Add_S()
}

// pencil names the tiling pattern for k.
func (p *painter) pencil(k pencil) core.PdfObjectName {
	if name, ok := p.pencils[k]; ok {
		return name
	}
	name := core.PdfObjectName(fmt.Sprintf("P%d", len(p.pencils)))
	p.pencils[k] = name
	p.patterns[name] = k
	return name
}

func (p *painter) rect(r *scene.Rect) {
	c := r.Fill
	p.alpha(float64(c.A) / 0xff)
	p.cc.Add_rg(float64(c.R)/0xff, float64(c.G)/0xff, float64(c.B)/0xff)
	p.cc.Add_re(r.X, r.Y, r.Width, r.Height)
	p.cc.Add_f()
}

func (p *painter) image(img *scene.Image) {
	name := core.PdfObjectName(fmt.Sprintf("Im%d", len(p.images)))
	p.images[name] = img.Image

	s := img.Scale
	if s == 0 {
		s = 1
	}
	b := img.Image.Bounds()
	w, h := float64(b.Dx())*s, float64(b.Dy())*s

	p.alpha(1)
	p.cc.Add_q()
	p.cc.Add_cm(w, 0, 0, -h, img.X, img.Y+h)
	p.cc.Add_Do(name)
	p.cc.Add_Q()
}
