// Package render turns decoded pages into vector scenes.
//
// Render composes the ink of one page, layer by layer and stroke by stroke,
// applying the rules of each tool. Assembler adds the page background.
// Output backends live in the raster and pdf subpackages.
package render

import (
	"image/color"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render/geom"
	"github.com/ddvk/rmrender/render/palette"
	"github.com/ddvk/rmrender/render/scene"
	log "github.com/sirupsen/logrus"
)

// ErrorColor is used for ink whose tool or colour is unknown.
var ErrorColor = color.NRGBA{R: 0xff, A: 0xff}

var white = color.NRGBA{0xff, 0xff, 0xff, 0xff}

// Render composes the strokes of page into a scene. The returned group has,
// per rendered layer, the layer's highlight rectangles followed by the
// layer's stroke group. Layers without strokes still get an empty group.
//
// The only error returned is the one of opts.Progress.
func Render(page *lines.Page, opts Options) (*scene.Group, error) {
	r := &renderer{
		opts:      opts,
		pal:       opts.palette(),
		thickness: opts.thickness(),
	}
	root := &scene.Group{Name: "page"}

	for i, layer := range page.Layers {
		if !opts.ExcludeLayers.Has(i+1, layer.Name) {
			r.total += len(layer.Strokes)
		}
	}
	if err := r.progress(); err != nil {
		return nil, err
	}

	for i := range page.Layers {
		layer := &page.Layers[i]
		index := i + 1
		if opts.ExcludeLayers.Has(index, layer.Name) {
			continue
		}
		if len(layer.Highlights) > 0 && !opts.ExcludeLayers.HasHighlights(index, layer.Name) {
			root.Add(r.highlights(layer.Highlights)...)
		}
		group, err := r.layer(layer)
		if err != nil {
			return nil, err
		}
		root.Add(group)
	}
	return root, nil
}

type renderer struct {
	opts      Options
	pal       *palette.Palette
	thickness float64

	done, total int
}

func (r *renderer) progress() error {
	if r.opts.Progress == nil {
		return nil
	}
	return r.opts.Progress(r.done, r.total)
}

func (r *renderer) highlights(hs []lines.Highlight) []scene.Node {
	var out []scene.Node
	for _, h := range hs {
		fill, ok := r.pal.Highlight(h.Color)
		if !ok {
			log.Warnf("highlight colour %d not defined", h.Color)
			fill = ErrorColor
		}
		for _, rect := range h.Rects {
			out = append(out, &scene.Rect{
				X:      rect.X,
				Y:      rect.Y,
				Width:  rect.Width,
				Height: rect.Height,
				Fill:   fill,
				Blend:  scene.BlendDarken,
				Text:   h.Text,
			})
		}
	}
	return out
}

// layerState is the accumulator of the per-layer fold over strokes.
type layerState struct {
	mode EraserMode
	// upgraded is set once an auto mode layer has met ink that needs
	// accurate erasing.
	upgraded bool
	// current receives new ink. Accurate erasers push it down into a
	// clipped child and start a fresh one.
	current *scene.Group
}

func (s *layerState) eraserMode() EraserMode {
	if s.mode != EraserAuto {
		return s.mode
	}
	if s.upgraded {
		return EraserAccurate
	}
	return EraserIgnore
}

func (r *renderer) layer(layer *lines.Layer) (*scene.Group, error) {
	st := &layerState{mode: r.opts.EraserMode, current: &scene.Group{}}

	for i := range layer.Strokes {
		stroke := &layer.Strokes[i]
		if !r.opts.ExcludeTools[stroke.Tool] {
			r.stroke(st, stroke)
		}
		r.done++
		if err := r.progress(); err != nil {
			return nil, err
		}
	}

	st.current.Name = layer.Name
	return st.current, nil
}

func (r *renderer) stroke(st *layerState, s *lines.Stroke) {
	tool := s.Tool

	var ink color.NRGBA
	if tool == lines.ToolEraser {
		ink = white
	} else {
		c, ok := r.pal.ColorFor(tool, s.Color)
		if !ok {
			log.Warnf("tool %s (pen %d) colour %d not defined, drawing in red", tool, s.Pen, s.Color)
			c = ErrorColor
		}
		ink = c
	}

	if st.mode == EraserAuto && !st.upgraded {
		switch tool {
		case lines.ToolBrush, lines.ToolMarker:
			st.upgraded = true
		case lines.ToolPencil:
			st.upgraded = s.MaxSegmentWidth() > autoEraserWidth
		}
	}

	switch {
	case tool == lines.ToolEraseArea:
		// The tablet's own renderer does not apply erase-area strokes.
	case tool == lines.ToolEraser && st.eraserMode() == EraserIgnore:
	case tool == lines.ToolEraser && st.eraserMode() == EraserAccurate:
		r.erase(st, s)
	case (r.opts.Simplify > 0 || r.opts.Smoothen) &&
		(tool == lines.ToolFineliner || tool == lines.ToolBallpoint):
		if p := r.smoothPath(s, ink); p != nil {
			st.current.Add(p)
		}
	default:
		st.current.Add(r.standardPaths(s, ink)...)
	}
}

func points(s *lines.Stroke) []geom.Point {
	pts := make([]geom.Point, len(s.Segments))
	for i, seg := range s.Segments {
		pts[i] = geom.Point{X: seg.X, Y: seg.Y}
	}
	return pts
}

func (r *renderer) erase(st *layerState, s *lines.Stroke) {
	outlines := geom.EraserOutlines(points(s), s.Width)
	if len(outlines) == 0 || len(st.current.Children) == 0 {
		return
	}
	clipped := &scene.Group{
		Clip:     &scene.Clip{Outlines: outlines},
		Children: st.current.Children,
	}
	st.current = &scene.Group{Children: []scene.Node{clipped}}
}

// smoothPath draws a stroke at its base width through its (simplified)
// points, optionally as a cubic spline.
func (r *renderer) smoothPath(s *lines.Stroke, ink color.NRGBA) *scene.Path {
	pts := points(s)
	if r.opts.Simplify > 0 {
		pts = geom.Simplify(pts, r.opts.Simplify)
	}
	if len(pts) < 2 {
		return nil
	}

	path := &scene.Path{
		Tool:  s.Tool,
		Start: pts[0],
		Pen:   scene.Pen{Color: ink, Width: r.thickness * s.Width},
	}
	if r.opts.Smoothen && len(pts) > 2 {
		for _, c := range geom.Smooth(pts) {
			path.Segments = append(path.Segments, scene.Segment{Kind: scene.CubicTo, C1: c.C1, C2: c.C2, To: c.To})
		}
		return path
	}
	for _, p := range pts[1:] {
		path.Segments = append(path.Segments, scene.Segment{Kind: scene.LineTo, To: p})
	}
	return path
}

// standardPaths splits a stroke into runs of segments with the same width
// sample and emits one path per run. Each run starts where the previous
// one ended.
func (r *renderer) standardPaths(s *lines.Stroke, ink color.NRGBA) []scene.Node {
	widthOf := geom.WidthFor(s.Tool, s.Width, r.opts.PencilResolution)
	blend := scene.BlendNormal
	if s.Tool == lines.ToolHighlighter {
		blend = scene.BlendDarken
	}

	var out []scene.Node
	start := geom.Point{X: s.Segments[0].X, Y: s.Segments[0].Y}
	rest := s.Segments[1:]
	for len(rest) > 0 {
		sample := widthOf(rest[0])
		n := 1
		for n < len(rest) && widthOf(rest[n]) == sample {
			n++
		}

		segs := make([]scene.Segment, n)
		for i, seg := range rest[:n] {
			segs[i] = scene.Segment{Kind: scene.LineTo, To: geom.Point{X: seg.X, Y: seg.Y}}
		}
		rest = rest[n:]

		width := r.thickness * sample.Width
		if sample.Aux == geom.AuxTexture && s.Tool == lines.ToolPencil && sample.Value > 0 {
			out = append(out, &scene.Path{
				Tool:     s.Tool,
				Start:    start,
				Segments: segs,
				Pen: scene.Pen{
					Color:   ink,
					Width:   width * fuzzyWidthFactor,
					Texture: &scene.Texture{Level: int(sample.Value * fuzzyTextureFactor), Scale: r.opts.PencilResolution},
				},
			})
		}

		out = append(out, &scene.Path{
			Tool:     s.Tool,
			Start:    start,
			Segments: segs,
			Pen:      r.pen(ink, width, sample),
			Blend:    blend,
		})
		start = segs[len(segs)-1].To
	}
	return out
}

func (r *renderer) pen(ink color.NRGBA, width float64, sample geom.Sample) scene.Pen {
	pen := scene.Pen{Color: ink, Width: width}
	switch sample.Aux {
	case geom.AuxTexture:
		pen.Texture = &scene.Texture{Level: int(sample.Value), Scale: r.opts.PencilResolution}
	case geom.AuxPressure:
		if r.opts.PencilResolution == 0 {
			pen.Color = pressureGray(sample.Value)
		} else if black, ok := r.pal.Get(palette.Black); ok {
			pen.Color = black
		}
	}
	return pen
}

// pressureGray is the gray of a pencil drawn without texture: the pressure
// scaled to 0..255 on every channel, whatever the ink colour.
func pressureGray(pressure float64) color.NRGBA {
	if pressure < 0 {
		pressure = 0
	} else if pressure > 1 {
		pressure = 1
	}
	v := uint8(pressure * 0xff)
	return color.NRGBA{R: v, G: v, B: v, A: 0xff}
}
