package render

import (
	"image/color"
	"testing"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render/geom"
	"github.com/ddvk/rmrender/render/palette"
	"github.com/ddvk/rmrender/render/scene"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(x, y, width, pressure float64) lines.Segment {
	return lines.Segment{X: x, Y: y, Width: width, Pressure: pressure}
}

func stroke(tool lines.Tool, colour int, width float64, segs ...lines.Segment) lines.Stroke {
	return lines.Stroke{Pen: int(tool), Tool: tool, Color: colour, Width: width, Segments: segs}
}

func hline(tool lines.Tool, y float64) lines.Stroke {
	return stroke(tool, 0, 2, seg(100, y, 2, 0.5), seg(200, y, 2, 0.5), seg(300, y, 2, 0.5))
}

func page(layers ...lines.Layer) *lines.Page {
	for i := range layers {
		if layers[i].Name == "" {
			layers[i].Name = "Layer " + string(rune('1'+i))
		}
	}
	return &lines.Page{Number: 1, Version: 5, Layers: layers}
}

func layerGroups(root *scene.Group) []*scene.Group {
	var out []*scene.Group
	for _, c := range root.Children {
		if g, ok := c.(*scene.Group); ok {
			out = append(out, g)
		}
	}
	return out
}

func black(t *testing.T) color.NRGBA {
	t.Helper()
	c, ok := palette.Default().Get(palette.Black)
	require.True(t, ok)
	return c
}

func TestRenderSingleFineliner(t *testing.T) {
	p := page(lines.Layer{Strokes: []lines.Stroke{
		stroke(lines.ToolFineliner, 0, 2, seg(10, 20, 2, 0.3), seg(30, 40, 2, 0.6), seg(50, 45, 2, 0.9)),
	}})

	for _, scale := range []float64{1, 1.5} {
		opts := DefaultOptions()
		opts.ThicknessScale = scale
		root, err := Render(p, opts)
		require.NoError(t, err)

		groups := layerGroups(root)
		require.Len(t, groups, 1)
		assert.Equal(t, "Layer 1", groups[0].Name)
		require.Len(t, groups[0].Children, 1)

		path, ok := groups[0].Children[0].(*scene.Path)
		require.True(t, ok)
		assert.Equal(t, []geom.Point{{X: 10, Y: 20}, {X: 30, Y: 40}, {X: 50, Y: 45}}, path.Points())
		for _, s := range path.Segments {
			assert.Equal(t, scene.LineTo, s.Kind)
		}
		assert.Equal(t, black(t), path.Pen.Color)
		assert.Equal(t, 2*scale, path.Pen.Width)
		assert.Nil(t, path.Pen.Texture)
		assert.Equal(t, scene.BlendNormal, path.Blend)
		assert.Equal(t, 1, scene.Count(root, scene.IsPath))
	}
}

func TestRenderUnknownToolIsRed(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	unknown := stroke(lines.ToolFor(99), 0, 2, seg(0, 0, 2, 1), seg(10, 10, 2, 1))
	unknown.Pen = 99
	p := page(lines.Layer{Strokes: []lines.Stroke{unknown, hline(lines.ToolFineliner, 50), unknown}})

	root, err := Render(p, DefaultOptions())
	require.NoError(t, err)

	paths := scene.Paths(root)
	require.Len(t, paths, 3)
	assert.Equal(t, ErrorColor, paths[0].Pen.Color)
	assert.Equal(t, black(t), paths[1].Pen.Color)
	assert.Equal(t, ErrorColor, paths[2].Pen.Color)

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestRenderUnknownColour(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	s := hline(lines.ToolBallpoint, 10)
	s.Color = 42
	root, err := Render(page(lines.Layer{Strokes: []lines.Stroke{s}}), DefaultOptions())
	require.NoError(t, err)

	paths := scene.Paths(root)
	require.NotEmpty(t, paths)
	assert.Equal(t, ErrorColor, paths[0].Pen.Color)
	assert.Len(t, hook.AllEntries(), 1)
}

// visible reports whether p is drawn by path once the clips of its
// enclosing groups are applied.
func visible(root *scene.Group, path *scene.Path, p geom.Point) bool {
	result := false
	scene.Walk(root, func(n scene.Node, clips []*scene.Clip) bool {
		if n != scene.Node(path) {
			return true
		}
		result = true
		for _, c := range clips {
			if !c.Visible(p) {
				result = false
			}
		}
		return true
	})
	return result
}

func eraserPage() *lines.Page {
	eraser := stroke(lines.ToolEraser, 0, 40, seg(200, 400, 40, 1), seg(200, 600, 40, 1))
	return page(lines.Layer{Strokes: []lines.Stroke{
		hline(lines.ToolFineliner, 500),
		eraser,
		hline(lines.ToolFineliner, 500),
	}})
}

func TestAccurateEraserOnlyAffectsEarlierInk(t *testing.T) {
	opts := DefaultOptions()
	opts.EraserMode = EraserAccurate

	root, err := Render(eraserPage(), opts)
	require.NoError(t, err)

	paths := scene.Paths(root)
	require.Len(t, paths, 2)
	a, b := paths[0], paths[1]

	erased := geom.Point{X: 200, Y: 500}
	kept := geom.Point{X: 120, Y: 500}

	assert.False(t, visible(root, a, erased), "ink before the eraser is erased")
	assert.True(t, visible(root, a, kept), "ink before the eraser survives outside the erased area")
	assert.True(t, visible(root, b, erased), "ink after the eraser is untouched")

	groups := layerGroups(root)
	require.Len(t, groups, 1)
	assert.Nil(t, groups[0].Clip)
}

func TestEraserModes(t *testing.T) {
	t.Run("ignore", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EraserMode = EraserIgnore
		root, err := Render(eraserPage(), opts)
		require.NoError(t, err)
		assert.Len(t, scene.Paths(root), 2)
		assert.Equal(t, 2, scene.Count(root, scene.IsGroup))
	})

	t.Run("quick", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EraserMode = EraserQuick
		root, err := Render(eraserPage(), opts)
		require.NoError(t, err)
		paths := scene.Paths(root)
		require.Len(t, paths, 3)
		assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0xff}, paths[1].Pen.Color)
		assert.Equal(t, lines.ToolEraser, paths[1].Tool)
		assert.Equal(t, 40.0, paths[1].Pen.Width)
	})

	t.Run("auto without heavy ink ignores", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EraserMode = EraserAuto
		root, err := Render(eraserPage(), opts)
		require.NoError(t, err)
		assert.Equal(t, 2, scene.Count(root, scene.IsGroup))
	})

	t.Run("auto with a marker erases", func(t *testing.T) {
		p := eraserPage()
		p.Layers[0].Strokes[0] = hline(lines.ToolMarker, 500)
		opts := DefaultOptions()
		opts.EraserMode = EraserAuto
		root, err := Render(p, opts)
		require.NoError(t, err)
		paths := scene.Paths(root)
		require.Len(t, paths, 2)
		assert.False(t, visible(root, paths[0], geom.Point{X: 200, Y: 500}))
	})

	t.Run("auto with a thin pencil ignores", func(t *testing.T) {
		p := eraserPage()
		p.Layers[0].Strokes[0] = hline(lines.ToolPencil, 500)
		opts := DefaultOptions()
		opts.EraserMode = EraserAuto
		root, err := Render(p, opts)
		require.NoError(t, err)
		assert.Zero(t, scene.Count(root, func(n scene.Node) bool {
			g, ok := n.(*scene.Group)
			return ok && g.Clip != nil
		}))
	})

	t.Run("auto pencil width threshold", func(t *testing.T) {
		clips := func(width float64) int {
			p := eraserPage()
			p.Layers[0].Strokes[0] = stroke(lines.ToolPencil, 0, 2,
				seg(100, 500, 2, 0.5), seg(200, 500, width, 0.5), seg(300, 500, 2, 0.5))
			opts := DefaultOptions()
			opts.EraserMode = EraserAuto
			root, err := Render(p, opts)
			require.NoError(t, err)
			return scene.Count(root, func(n scene.Node) bool {
				g, ok := n.(*scene.Group)
				return ok && g.Clip != nil
			})
		}
		assert.Equal(t, 1, clips(2.01), "wider than 2 erases accurately")
		assert.Zero(t, clips(2.0), "exactly 2 is ignored")
	})

	t.Run("auto resets per layer", func(t *testing.T) {
		p := eraserPage()
		p.Layers[0].Strokes[0] = hline(lines.ToolBrush, 500)
		second := eraserPage().Layers[0]
		second.Name = "Layer 2"
		p.Layers = append(p.Layers, second)

		opts := DefaultOptions()
		opts.EraserMode = EraserAuto
		root, err := Render(p, opts)
		require.NoError(t, err)

		groups := layerGroups(root)
		require.Len(t, groups, 2)
		clipped := func(g *scene.Group) int {
			return scene.Count(g, func(n scene.Node) bool {
				g, ok := n.(*scene.Group)
				return ok && g.Clip != nil
			})
		}
		assert.Equal(t, 1, clipped(groups[0]))
		assert.Equal(t, 0, clipped(groups[1]))
	})
}

func TestEraseAreaIsIgnored(t *testing.T) {
	opts := DefaultOptions()
	opts.EraserMode = EraserAccurate
	area := stroke(lines.ToolEraseArea, 0, 2, seg(0, 0, 2, 1), seg(500, 0, 2, 1), seg(500, 800, 2, 1))
	root, err := Render(page(lines.Layer{Strokes: []lines.Stroke{hline(lines.ToolFineliner, 10), area}}), opts)
	require.NoError(t, err)
	assert.Len(t, scene.Paths(root), 1)
	assert.Equal(t, 2, scene.Count(root, scene.IsGroup))
}

func highlighterPage() *lines.Page {
	return page(
		lines.Layer{Strokes: []lines.Stroke{
			hline(lines.ToolFineliner, 10),
			stroke(lines.ToolHighlighter, 3, 15, seg(0, 100, 15, 1), seg(300, 100, 15, 1)),
			hline(lines.ToolBrush, 20),
		}},
		lines.Layer{
			Strokes: []lines.Stroke{stroke(lines.ToolHighlighter, 1, 15, seg(0, 200, 15, 1), seg(300, 200, 15, 1))},
			Highlights: []lines.Highlight{{Color: 4, Text: "hello", Rects: []lines.Rect{
				{X: 1, Y: 2, Width: 3, Height: 4}, {X: 5, Y: 6, Width: 7, Height: 8},
			}}},
		},
	)
}

func TestHighlighter(t *testing.T) {
	root, err := Render(highlighterPage(), DefaultOptions())
	require.NoError(t, err)

	var hl []*scene.Path
	for _, p := range scene.Paths(root) {
		if p.Tool == lines.ToolHighlighter {
			hl = append(hl, p)
		}
	}
	require.Len(t, hl, 2)
	yellow, _ := palette.Default().Get(palette.Yellow)
	assert.Equal(t, yellow, hl[0].Pen.Color)
	assert.Equal(t, geom.HighlighterWidth, hl[0].Pen.Width)
	assert.Equal(t, scene.BlendDarken, hl[0].Blend)

	// highlights come before the stroke group of their layer
	require.Len(t, root.Children, 4)
	rect, ok := root.Children[1].(*scene.Rect)
	require.True(t, ok)
	green, _ := palette.Default().Get(palette.Green)
	assert.Equal(t, &scene.Rect{X: 1, Y: 2, Width: 3, Height: 4, Fill: green, Blend: scene.BlendDarken, Text: "hello"}, rect)
	assert.IsType(t, &scene.Rect{}, root.Children[2])
	assert.IsType(t, &scene.Group{}, root.Children[3])
}

func withoutTool(paths []*scene.Path, tool lines.Tool) []*scene.Path {
	var out []*scene.Path
	for _, p := range paths {
		if p.Tool != tool {
			out = append(out, p)
		}
	}
	return out
}

func TestExcludeTools(t *testing.T) {
	all, err := Render(highlighterPage(), DefaultOptions())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.ExcludeTools = ToolSet{lines.ToolHighlighter: true}
	filtered, err := Render(highlighterPage(), opts)
	require.NoError(t, err)

	assert.Empty(t, scene.Count(filtered, func(n scene.Node) bool {
		p, ok := n.(*scene.Path)
		return ok && p.Tool == lines.ToolHighlighter
	}))
	assert.Equal(t, withoutTool(scene.Paths(all), lines.ToolHighlighter), scene.Paths(filtered))
	assert.Equal(t, scene.Count(all, scene.IsGroup), scene.Count(filtered, scene.IsGroup))
}

func TestExcludeLayers(t *testing.T) {
	all, err := Render(highlighterPage(), DefaultOptions())
	require.NoError(t, err)
	allGroups := layerGroups(all)
	require.Len(t, allGroups, 2)

	for _, spec := range []string{`2`, `"Layer 2"`} {
		set, err := ParseExcludeLayers(spec)
		require.NoError(t, err)
		opts := DefaultOptions()
		opts.ExcludeLayers = set

		root, err := Render(highlighterPage(), opts)
		require.NoError(t, err)
		groups := layerGroups(root)
		require.Len(t, groups, 1, spec)
		assert.Equal(t, allGroups[0], groups[0])
		assert.Zero(t, scene.Count(root, scene.IsRect), "highlights go with their layer")
	}

	set, err := ParseExcludeLayers(`"2/highlights"`)
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.ExcludeLayers = set
	root, err := Render(highlighterPage(), opts)
	require.NoError(t, err)
	assert.Len(t, layerGroups(root), 2)
	assert.Zero(t, scene.Count(root, scene.IsRect))
}

func TestProgressTotalSkipsExcludedLayers(t *testing.T) {
	p := highlighterPage()
	set, err := ParseExcludeLayers(`2`)
	require.NoError(t, err)

	var totals []int
	last := 0
	opts := DefaultOptions()
	opts.ExcludeLayers = set
	opts.Progress = func(current, total int) error {
		totals = append(totals, total)
		last = current
		return nil
	}
	_, err = Render(p, opts)
	require.NoError(t, err)

	want := len(p.Layers[0].Strokes)
	require.NotEmpty(t, totals)
	for _, total := range totals {
		assert.Equal(t, want, total)
	}
	assert.Equal(t, want, last, "progress completes at the reported total")
	assert.Less(t, want, p.StrokeCount())
}

func TestEmptyLayerKeepsItsGroup(t *testing.T) {
	root, err := Render(page(lines.Layer{}, lines.Layer{Strokes: []lines.Stroke{hline(lines.ToolFineliner, 5)}}), DefaultOptions())
	require.NoError(t, err)
	groups := layerGroups(root)
	require.Len(t, groups, 2)
	assert.Empty(t, groups[0].Children)
	assert.Len(t, groups[1].Children, 1)
}

func TestProgress(t *testing.T) {
	p := highlighterPage()
	total := p.StrokeCount()

	type call struct{ current, total int }
	var calls []call
	opts := DefaultOptions()
	opts.ExcludeTools = ToolSet{lines.ToolBrush: true}
	opts.Progress = func(current, total int) error {
		calls = append(calls, call{current, total})
		return nil
	}
	_, err := Render(p, opts)
	require.NoError(t, err)

	require.Len(t, calls, total+1)
	assert.Equal(t, call{0, total}, calls[0])
	assert.Equal(t, call{total, total}, calls[total])

	opts.Progress = func(current, _ int) error {
		if current == 2 {
			return ErrCancelled
		}
		return nil
	}
	root, err := Render(p, opts)
	assert.Nil(t, root)
	assert.True(t, IsCancelled(err))
	assert.True(t, IsCancelled(errors.Wrap(err, "export")))
}

func TestPencilModes(t *testing.T) {
	pencil := stroke(lines.ToolPencil, 0, 2, seg(0, 0, 4, 0.5), seg(10, 0, 4, 0.5), seg(20, 0, 4, 0.5))
	p := page(lines.Layer{Strokes: []lines.Stroke{pencil}})

	t.Run("textured", func(t *testing.T) {
		opts := DefaultOptions()
		root, err := Render(p, opts)
		require.NoError(t, err)
		paths := scene.Paths(root)
		require.Len(t, paths, 2)

		fuzzy, main := paths[0], paths[1]
		require.NotNil(t, main.Pen.Texture)
		assert.Equal(t, 7, main.Pen.Texture.Level)
		assert.Equal(t, 0.4, main.Pen.Texture.Scale)
		assert.InDelta(t, 2.2, main.Pen.Width, 1e-9)

		require.NotNil(t, fuzzy.Pen.Texture)
		assert.Equal(t, 4, fuzzy.Pen.Texture.Level)
		assert.InDelta(t, 2.2*1.15, fuzzy.Pen.Width, 1e-9)
		assert.Equal(t, main.Points(), fuzzy.Points())
	})

	t.Run("gray", func(t *testing.T) {
		opts := DefaultOptions()
		opts.PencilResolution = 0
		root, err := Render(p, opts)
		require.NoError(t, err)
		paths := scene.Paths(root)
		require.Len(t, paths, 1)
		assert.Nil(t, paths[0].Pen.Texture)
		assert.Equal(t, color.NRGBA{127, 127, 127, 255}, paths[0].Pen.Color)
	})

	t.Run("gray ignores the ink colour", func(t *testing.T) {
		blue := stroke(lines.ToolPencil, 6, 2, seg(0, 0, 4, 0.5), seg(10, 0, 4, 0.5), seg(20, 0, 4, 0.8))
		opts := DefaultOptions()
		opts.PencilResolution = 0
		root, err := Render(page(lines.Layer{Strokes: []lines.Stroke{blue}}), opts)
		require.NoError(t, err)
		paths := scene.Paths(root)
		require.Len(t, paths, 2)
		assert.Equal(t, color.NRGBA{127, 127, 127, 255}, paths[0].Pen.Color)
		assert.Equal(t, color.NRGBA{204, 204, 204, 255}, paths[1].Pen.Color)
	})

	t.Run("flat", func(t *testing.T) {
		opts := DefaultOptions()
		opts.PencilResolution = -1
		root, err := Render(p, opts)
		require.NoError(t, err)
		paths := scene.Paths(root)
		require.Len(t, paths, 1)
		assert.Equal(t, black(t), paths[0].Pen.Color)
	})
}

func TestStandardPathSplitsRunsByWidth(t *testing.T) {
	brush := stroke(lines.ToolBrush, 0, 2,
		seg(0, 0, 2, 1), seg(10, 0, 2, 1), seg(20, 0, 3, 1), seg(30, 0, 3, 1), seg(40, 0, 2, 1))
	root, err := Render(page(lines.Layer{Strokes: []lines.Stroke{brush}}), DefaultOptions())
	require.NoError(t, err)

	paths := scene.Paths(root)
	require.Len(t, paths, 3)
	assert.Equal(t, []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, paths[0].Points())
	assert.Equal(t, []geom.Point{{X: 10, Y: 0}, {X: 20, Y: 0}, {X: 30, Y: 0}}, paths[1].Points())
	assert.Equal(t, []geom.Point{{X: 30, Y: 0}, {X: 40, Y: 0}}, paths[2].Points())
	assert.Equal(t, []float64{2, 3, 2}, []float64{paths[0].Pen.Width, paths[1].Pen.Width, paths[2].Pen.Width})
}

func TestSingleSegmentStrokeDrawsNothing(t *testing.T) {
	dot := stroke(lines.ToolBrush, 0, 2, seg(5, 5, 2, 1))
	root, err := Render(page(lines.Layer{Strokes: []lines.Stroke{dot}}), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, scene.Paths(root))
}

func TestSimplifyAndSmoothen(t *testing.T) {
	wavy := stroke(lines.ToolBallpoint, 0, 3,
		seg(0, 0, 3, 1), seg(10, 20, 3, 1), seg(20, 0, 3, 1), seg(30, 20, 3, 1))

	opts := DefaultOptions()
	opts.Smoothen = true
	root, err := Render(page(lines.Layer{Strokes: []lines.Stroke{wavy}}), opts)
	require.NoError(t, err)
	paths := scene.Paths(root)
	require.Len(t, paths, 1)
	require.Len(t, paths[0].Segments, 3)
	for _, s := range paths[0].Segments {
		assert.Equal(t, scene.CubicTo, s.Kind)
	}
	assert.Equal(t, []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 20}, {X: 20, Y: 0}, {X: 30, Y: 20}}, paths[0].Points())
	assert.Equal(t, 3.0, paths[0].Pen.Width)

	straight := stroke(lines.ToolFineliner, 0, 2,
		seg(0, 0, 2, 1), seg(10, 10.1, 2, 1), seg(20, 20, 2, 1), seg(30, 30, 2, 1))
	opts.Simplify = 1
	root, err = Render(page(lines.Layer{Strokes: []lines.Stroke{straight}}), opts)
	require.NoError(t, err)
	paths = scene.Paths(root)
	require.Len(t, paths, 1)
	assert.Equal(t, []scene.Segment{{Kind: scene.LineTo, To: geom.Point{X: 30, Y: 30}}}, paths[0].Segments)

	// other tools ignore simplification
	straight.Tool = lines.ToolMarker
	root, err = Render(page(lines.Layer{Strokes: []lines.Stroke{straight}}), opts)
	require.NoError(t, err)
	assert.Len(t, scene.Paths(root)[0].Segments, 3)
}
