package lines

import (
	"os"
	"path"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource map[string][]byte

func (m memSource) key(dir, name, ext string) string {
	return path.Join(dir, name+"."+ext)
}

func (m memSource) Retrieve(dir, name, ext string) ([]byte, error) {
	data, ok := m[m.key(dir, name, ext)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (m memSource) Exists(dir, name, ext string) bool {
	_, ok := m[m.key(dir, name, ext)]
	return ok
}

func TestLoadMissingInk(t *testing.T) {
	page := Load(memSource{}, "doc", "p1", 3)
	assert.Equal(t, 3, page.Number)
	assert.Empty(t, page.Layers)
	assert.Equal(t, 0, page.StrokeCount())
}

func TestLoadDegradesBadInk(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	src := memSource{
		"doc/bad.rm": []byte("garbage"),
		"doc/v6.rm":  encodeLines(t, 6, nil),
	}

	page := Load(src, "doc", "bad", 0)
	assert.Empty(t, page.Layers)
	page = Load(src, "doc", "v6", 1)
	assert.Empty(t, page.Layers)

	require.Len(t, hook.AllEntries(), 2)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, e.Level)
	}
	assert.Contains(t, hook.AllEntries()[0].Message, "malformed")
	assert.Contains(t, hook.AllEntries()[1].Message, "unsupported version 6")
}

func TestLoadSidecars(t *testing.T) {
	src := memSource{
		"doc/p1.rm":              encodeLines(t, 5, sampleLayers()),
		"doc/p1-metadata.json":   []byte(`{"layers":[{"name":"Sketch"},{"name":"Notes"},{"name":""}]}`),
		"doc.highlights/p1.json": []byte(`{"highlights":[[{"rects":[{"x":1,"y":2,"width":3,"height":4}],"text":"hello"}],[],[{"color":4,"rects":[],"text":"x"}]]}`),
	}

	page := Load(src, "doc", "p1", 0)
	require.Len(t, page.Layers, 3)
	assert.Equal(t, "Sketch", page.Layers[0].Name)
	assert.Equal(t, "Notes", page.Layers[1].Name)
	assert.Equal(t, "Layer 3", page.Layers[2].Name)

	require.Len(t, page.Layers[0].Highlights, 1)
	h := page.Layers[0].Highlights[0]
	assert.Equal(t, 1, h.Color)
	assert.Equal(t, "hello", h.Text)
	assert.Equal(t, []Rect{{X: 1, Y: 2, Width: 3, Height: 4}}, h.Rects)
	assert.Empty(t, page.Layers[1].Highlights)
	assert.Equal(t, 4, page.Layers[2].Highlights[0].Color)
}

func TestLoadLayerNameMismatch(t *testing.T) {
	src := memSource{
		"doc/p1.rm":            encodeLines(t, 5, sampleLayers()),
		"doc/p1-metadata.json": []byte(`{"layers":[{"name":"Only one"}]}`),
	}
	page := Load(src, "doc", "p1", 0)
	require.Len(t, page.Layers, 3)
	for i, l := range page.Layers {
		assert.Equal(t, []string{"Layer 1", "Layer 2", "Layer 3"}[i], l.Name)
	}
}

func TestParseHighlightsInvalid(t *testing.T) {
	_, err := ParseHighlights([]byte(`{"highlights": 3}`))
	assert.Error(t, err)
}
