// Package pdf exports rendered pages as a vector PDF.
package pdf

import (
	"image"
	"io"
	"os"
	"sort"

	"github.com/ddvk/rmrender/render/geom"
	"github.com/ddvk/rmrender/render/scene"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/contentstream"
	"github.com/unidoc/unipdf/v3/core"
	"github.com/unidoc/unipdf/v3/model"
)

// LicenseEnv names the environment variable holding the PDF library key.
const LicenseEnv = "UNIDOC_LICENSE_API_KEY"

// SetLicense loads the metered license key from the environment.
func SetLicense() error {
	key := os.Getenv(LicenseEnv)
	if key == "" {
		return errors.Errorf("%s is not set", LicenseEnv)
	}
	return errors.Wrap(license.SetMeteredKey(key), "can't set license")
}

// Writer collects pages of a PDF.
type Writer struct {
	w         model.PdfWriter
	landscape bool
	pages     int
}

// NewWriter starts an empty document. Landscape pages are rotated by 90
// degrees for viewing.
func NewWriter(landscape bool) *Writer {
	return &Writer{w: model.NewPdfWriter(), landscape: landscape}
}

// Pages returns the number of pages added so far.
func (w *Writer) Pages() int {
	return w.pages
}

// AddPage paints a page scene as the next page.
func (w *Writer) AddPage(page *scene.Page) error {
	c := paint(page)

	p := model.NewPdfPage()
	p.MediaBox = &model.PdfRectangle{Llx: 0, Lly: 0, Urx: PageWidth, Ury: PageHeight}
	if w.landscape {
		rotate := int64(90)
		p.Rotate = &rotate
	}

	for _, name := range sortedNames(c.states) {
		a := c.states[name]
		gs := core.MakeDict()
		gs.Set("CA", core.MakeFloat(a))
		gs.Set("ca", core.MakeFloat(a))
		if err := p.AddExtGState(name, gs); err != nil {
			return errors.Wrapf(err, "graphics state %s", name)
		}
	}
	for name, img := range c.images {
		ximg, err := xobject(img)
		if err != nil {
			return errors.Wrapf(err, "image %s", name)
		}
		if err := p.AddImageResource(name, ximg); err != nil {
			return errors.Wrapf(err, "image %s", name)
		}
	}
	for name, k := range c.patterns {
		pat, err := tilingPattern(k)
		if err != nil {
			return errors.Wrapf(err, "pattern %s", name)
		}
		if err := p.Resources.SetPatternByName(name, pat); err != nil {
			return errors.Wrapf(err, "pattern %s", name)
		}
	}

	if err := p.SetContentStreams([]string{c.stream}, core.NewFlateEncoder()); err != nil {
		return errors.Wrap(err, "can't set content")
	}
	if err := w.w.AddPage(p); err != nil {
		return errors.Wrap(err, "can't add page")
	}
	w.pages++
	log.Debugf("pdf: page %d, %d bytes of content", w.pages, len(c.stream))
	return nil
}

// Write serialises the document.
func (w *Writer) Write(out io.Writer) error {
	return errors.Wrap(w.w.Write(out), "can't write pdf")
}

func xobject(img image.Image) (*model.XObjectImage, error) {
	pimg, err := model.ImageHandling.NewImageFromGoImage(img)
	if err != nil {
		return nil, err
	}
	return model.NewXObjectImageFromImage(pimg, nil, core.NewFlateEncoder())
}

// tilingPattern repeats the speckle tile of k across the page. Pattern space
// maps onto the default page space, so the matrix repeats the page unit and
// y flip of the content stream.
func tilingPattern(k pencil) (*core.PdfObjectStream, error) {
	tile := geom.Textures().Tile(k.level, k.color)
	size := float64(tile.Rect.Dx())
	ximg, err := xobject(tile)
	if err != nil {
		return nil, err
	}

	cc := contentstream.NewContentCreator()
	cc.Add_q()
	cc.Add_cm(size, 0, 0, -size, 0, size)
	cc.Add_Do("T0")
	cc.Add_Q()
	pat, err := core.MakeStream(cc.Bytes(), core.NewFlateEncoder())
	if err != nil {
		return nil, err
	}

	xobjects := core.MakeDict()
	xobjects.Set("T0", ximg.ToPdfObject())
	resources := core.MakeDict()
	resources.Set("XObject", xobjects)

	s := unit * k.scale
	pat.Set("Type", core.MakeName("Pattern"))
	pat.Set("PatternType", core.MakeInteger(1))
	pat.Set("PaintType", core.MakeInteger(1))
	pat.Set("TilingType", core.MakeInteger(1))
	pat.Set("BBox", core.MakeArrayFromFloats([]float64{0, 0, size, size}))
	pat.Set("XStep", core.MakeFloat(size))
	pat.Set("YStep", core.MakeFloat(size))
	pat.Set("Resources", resources)
	pat.Set("Matrix", core.MakeArrayFromFloats([]float64{s, 0, 0, -s, 0, PageHeight}))
	return pat, nil
}

func sortedNames(m map[core.PdfObjectName]float64) []core.PdfObjectName {
	names := make([]core.PdfObjectName, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
