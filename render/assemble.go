package render

import (
	"context"
	"image"
	"sync"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render/background"
	"github.com/ddvk/rmrender/render/scene"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// BaseLayerScale is the oversampling of rasterised PDF pages.
const BaseLayerScale = 2

// TemplateSource returns the raw bytes of a template image.
type TemplateSource interface {
	Template(name string) ([]byte, error)
}

// PdfRasterizer renders a page of a document's original PDF, fitted into
// the page and oversampled by scale.
type PdfRasterizer interface {
	RasterizePage(ctx context.Context, document string, index int, scale float64) (image.Image, error)
}

// Assembler adds backgrounds to rendered ink. Nil collaborators disable
// the corresponding background.
type Assembler struct {
	Templates TemplateSource
	PDF       PdfRasterizer
	// Cache holds decoded templates; it is created on first use if nil.
	Cache *background.Cache

	once sync.Once
}

// Background fetches the background of page. It may block on I/O and is
// safe to call from several goroutines. Failures are logged and give no
// background.
func (a *Assembler) Background(ctx context.Context, page *lines.Page, opts Options) *scene.Image {
	if !opts.IncludeBaseLayer {
		return nil
	}
	bg := page.Background
	switch {
	case bg.Kind == lines.BackgroundTemplate && bg.Template != "" && bg.Template != lines.BlankTemplate:
		img, err := a.template(bg.Template)
		if err != nil {
			log.Warnf("page %d: template %q: %v", page.Number, bg.Template, err)
			return nil
		}
		return &scene.Image{Image: img, Scale: 1}
	case bg.Kind == lines.BackgroundPDF && a.PDF != nil:
		img, err := a.PDF.RasterizePage(ctx, bg.Document, bg.PageIndex, BaseLayerScale)
		if err != nil {
			log.Warnf("page %d: base page %d: %v", page.Number, bg.PageIndex, err)
			return nil
		}
		return &scene.Image{Image: img, Scale: 1.0 / BaseLayerScale}
	}
	return nil
}

func (a *Assembler) template(name string) (image.Image, error) {
	if a.Templates == nil {
		return nil, errors.New("no template source")
	}
	a.once.Do(func() {
		if a.Cache == nil {
			a.Cache = background.NewCache()
		}
	})
	return a.Cache.Get(name, func() (image.Image, error) {
		data, err := a.Templates.Template(name)
		if err != nil {
			return nil, err
		}
		return background.DecodeTemplate(data, lines.Width, lines.Height)
	})
}

// Assemble puts ink on top of its background in a page sized scene.
func (a *Assembler) Assemble(ctx context.Context, page *lines.Page, ink *scene.Group, opts Options) *scene.Page {
	full := scene.NewPage(ink)
	full.Background = a.Background(ctx, page, opts)
	return full
}

// RenderPage renders and assembles page.
func (a *Assembler) RenderPage(ctx context.Context, page *lines.Page, opts Options) (*scene.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ink, err := Render(page, opts)
	if err != nil {
		return nil, err
	}
	return a.Assemble(ctx, page, ink, opts), nil
}
