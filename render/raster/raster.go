// Package raster paints page scenes into images for preview.
package raster

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/ddvk/rmrender/render/geom"
	"github.com/ddvk/rmrender/render/scene"
	"github.com/gogpu/gg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"
)

// Raster defaults
const (
	defaultScale       = 1.0
	defaultConcurrency = 4
)

// Options configures rasterisation.
type Options struct {
	// Scale is the number of pixels per page unit (default: 1)
	Scale float64
	// Paper is painted under everything (default: white)
	Paper color.Color
	// Concurrency bounds RenderPages (default: 4)
	Concurrency int64
}

// DefaultOptions returns full resolution on white paper.
func DefaultOptions() Options {
	return Options{
		Scale:       defaultScale,
		Paper:       color.White,
		Concurrency: defaultConcurrency,
	}
}

// Render paints a page scene.
func Render(page *scene.Page, opts Options) (*image.RGBA, error) {
	if opts.Scale <= 0 {
		opts.Scale = defaultScale
	}
	w := int(math.Ceil(page.Width * opts.Scale))
	h := int(math.Ceil(page.Height * opts.Scale))

	p := &painter{scale: opts.Scale, width: w, height: h, tiles: map[tileKey]*gg.ImageBuf{}}
	dc := p.newContext()
	defer dc.Close()

	if opts.Paper != nil {
		r, g, b, a := opts.Paper.RGBA()
		dc.SetRGBA(float64(r)/0xffff, float64(g)/0xffff, float64(b)/0xffff, float64(a)/0xffff)
		dc.DrawRectangle(0, 0, float64(w), float64(h))
		if err := dc.Fill(); err != nil {
			return nil, errors.Wrap(err, "can't paint paper")
		}
	}
	if page.Background != nil {
		p.image(dc, page.Background)
	}
	if page.Ink != nil {
		if err := p.group(dc, page.Ink); err != nil {
			return nil, err
		}
	}
	return snapshot(dc)
}

// RenderPNG paints a page scene and encodes it as PNG.
func RenderPNG(w io.Writer, page *scene.Page, opts Options) error {
	img, err := Render(page, opts)
	if err != nil {
		return err
	}
	return errors.Wrap(png.Encode(w, img), "can't encode png")
}

// RenderPages paints several pages concurrently. Results keep the order of
// pages. The first error wins.
func RenderPages(ctx context.Context, pages []*scene.Page, opts Options) ([]*image.RGBA, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	result := make([]*image.RGBA, len(pages))
	errs := make([]error, len(pages))

	sem := semaphore.NewWeighted(opts.Concurrency)
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		go func(i int, page *scene.Page) {
			defer sem.Release(1)
			log.Debugf("rasterising page %d", i+1)
			result[i], errs[i] = Render(page, opts)
		}(i, page)
	}
	if err := sem.Acquire(context.Background(), opts.Concurrency); err != nil {
		return nil, err
	}

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", i+1)
		}
	}
	return result, nil
}

type painter struct {
	scale         float64
	width, height int
	tiles         map[tileKey]*gg.ImageBuf
}

type tileKey struct {
	color color.NRGBA
	level int
}

func (p *painter) newContext() *gg.Context {
	dc := gg.NewContext(p.width, p.height)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	return dc
}

func (p *painter) pt(q geom.Point) (float64, float64) {
	return q.X * p.scale, q.Y * p.scale
}

// group paints children in order. Runs of darken primitives share one
// multiply layer, which leaves overlapping highlighter ink of one colour
// unchanged like a darken blend would.
func (p *painter) group(dc *gg.Context, g *scene.Group) error {
	if g.Clip != nil {
		return p.clipped(dc, g)
	}

	darken := false
	setDarken := func(on bool) {
		if on == darken {
			return
		}
		if on {
			dc.PushLayer(gg.BlendMultiply, 1)
		} else {
			dc.PopLayer()
		}
		darken = on
	}
	defer setDarken(false)

	for _, child := range g.Children {
		switch n := child.(type) {
		case *scene.Group:
			setDarken(false)
			if err := p.group(dc, n); err != nil {
				return err
			}
		case *scene.Path:
			setDarken(n.Blend == scene.BlendDarken)
			if err := p.path(dc, n); err != nil {
				return err
			}
		case *scene.Rect:
			setDarken(n.Blend == scene.BlendDarken)
			if err := p.rect(dc, n); err != nil {
				return err
			}
		case *scene.Image:
			setDarken(false)
			p.image(dc, n)
		}
	}
	return nil
}

// clipped paints the group on a side canvas and composites it through the
// inverse of the erased area.
func (p *painter) clipped(dc *gg.Context, g *scene.Group) error {
	side := p.newContext()
	defer side.Close()
	if err := p.group(side, &scene.Group{Children: g.Children}); err != nil {
		return err
	}

	keep, err := p.keepMask(g.Clip)
	if err != nil {
		return err
	}
	src, err := snapshot(side)
	if err != nil {
		return err
	}
	out := image.NewRGBA(src.Bounds())
	draw.DrawMask(out, out.Bounds(), src, image.Point{}, keep, image.Point{}, draw.Src)

	dc.DrawImage(gg.ImageBufFromImage(out), 0, 0)
	return nil
}

// keepMask is opaque where the clip keeps ink.
func (p *painter) keepMask(c *scene.Clip) (*image.Alpha, error) {
	mc := gg.NewContext(p.width, p.height)
	defer mc.Close()
	mc.SetFillRule(gg.FillRuleNonZero)
	mc.SetRGBA(1, 1, 1, 1)
	for _, poly := range c.Outlines {
		if len(poly) < 3 {
			continue
		}
		mc.MoveTo(p.pt(poly[0]))
		for _, q := range poly[1:] {
			mc.LineTo(p.pt(q))
		}
		mc.ClosePath()
	}
	if err := mc.Fill(); err != nil {
		return nil, errors.Wrap(err, "can't rasterise eraser")
	}

	erased, err := snapshot(mc)
	if err != nil {
		return nil, err
	}
	b := erased.Bounds()
	keep := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := erased.Pix[erased.PixOffset(x, y)+3]
			keep.SetAlpha(x, y, color.Alpha{A: 0xff - a})
		}
	}
	return keep, nil
}

func (p *painter) path(dc *gg.Context, path *scene.Path) error {
	if len(path.Segments) == 0 {
		return nil
	}
	c := path.Pen.Color
	if t := path.Pen.Texture; t != nil && t.Scale > 0 {
		dc.SetStrokePattern(p.pencil(dc, c, t))
	} else {
		dc.SetRGBA(float64(c.R)/0xff, float64(c.G)/0xff, float64(c.B)/0xff, float64(c.A)/0xff)
	}
	dc.SetLineWidth(path.Pen.Width * p.scale)

	dc.MoveTo(p.pt(path.Start))
	for _, s := range path.Segments {
		x, y := p.pt(s.To)
		switch s.Kind {
		case scene.CubicTo:
			c1x, c1y := p.pt(s.C1)
			c2x, c2y := p.pt(s.C2)
			dc.CubicTo(c1x, c1y, c2x, c2y, x, y)
		default:
			dc.LineTo(x, y)
		}
	}
	return errors.Wrap(dc.Stroke(), "can't stroke path")
}

// pencil tiles the speckle texture of t in colour c across the canvas, one
// texture pixel per t.Scale page units.
func (p *painter) pencil(dc *gg.Context, c color.NRGBA, t *scene.Texture) gg.Pattern {
	key := tileKey{color: c, level: t.Level}
	buf, ok := p.tiles[key]
	if !ok {
		buf = gg.ImageBufFromImage(geom.Textures().Tile(t.Level, c))
		p.tiles[key] = buf
	}
	pat := dc.CreateImagePattern(buf, 0, 0, 0, 0)
	if img, ok := pat.(*gg.ImagePattern); ok {
		img.SetScale(t.Scale*p.scale, t.Scale*p.scale)
	}
	return pat
}

func (p *painter) rect(dc *gg.Context, r *scene.Rect) error {
	c := r.Fill
	dc.SetRGBA(float64(c.R)/0xff, float64(c.G)/0xff, float64(c.B)/0xff, float64(c.A)/0xff)
	dc.DrawRectangle(r.X*p.scale, r.Y*p.scale, r.Width*p.scale, r.Height*p.scale)
	return errors.Wrap(dc.Fill(), "can't fill rectangle")
}

func (p *painter) image(dc *gg.Context, img *scene.Image) {
	b := img.Image.Bounds()
	s := img.Scale
	if s == 0 {
		s = 1
	}
	dc.DrawImageEx(gg.ImageBufFromImage(img.Image), gg.DrawImageOptions{
		X:         img.X * p.scale,
		Y:         img.Y * p.scale,
		DstWidth:  float64(b.Dx()) * s * p.scale,
		DstHeight: float64(b.Dy()) * s * p.scale,
		Opacity:   1,
		BlendMode: gg.BlendNormal,
	})
}

func snapshot(dc *gg.Context) (*image.RGBA, error) {
	if err := dc.FlushGPU(); err != nil {
		return nil, errors.Wrap(err, "can't flush canvas")
	}
	return toRGBA(dc.Image()), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
