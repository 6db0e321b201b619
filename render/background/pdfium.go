package background

import (
	"context"
	"image"
	"math"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

const instanceTimeout = 30 * time.Second

// DocumentSource returns the bytes of the original PDF of a document.
type DocumentSource interface {
	BaseDocument(id string) ([]byte, error)
}

// PdfiumRasterizer rasterises pages of base documents with the WebAssembly
// build of pdfium. A single pdfium instance is shared and used by one
// caller at a time.
type PdfiumRasterizer struct {
	// Width and Height are the page box the PDF page is fitted into.
	Width, Height float64

	docs DocumentSource
	pool pdfium.Pool

	mu       sync.Mutex
	instance pdfium.Pdfium
}

// NewPdfiumRasterizer starts a pdfium pool.
func NewPdfiumRasterizer(docs DocumentSource, width, height float64) (*PdfiumRasterizer, error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialise pdfium")
	}
	instance, err := pool.GetInstance(instanceTimeout)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to get pdfium instance")
	}
	return &PdfiumRasterizer{
		Width:    width,
		Height:   height,
		docs:     docs,
		pool:     pool,
		instance: instance,
	}, nil
}

// Close releases the pdfium pool.
func (r *PdfiumRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance != nil {
		r.instance.Close()
		r.instance = nil
	}
	return r.pool.Close()
}

// RasterizePage renders page index of document, fitted into the page box
// and oversampled by scale. Landscape pages are turned to portrait.
func (r *PdfiumRasterizer) RasterizePage(ctx context.Context, document string, index int, scale float64) (image.Image, error) {
	data, err := r.docs.BaseDocument(document)
	if err != nil {
		return nil, errors.Wrapf(err, "no base document for %s", document)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return nil, errors.New("rasterizer is closed")
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open PDF document")
	}
	defer r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	page := requests.Page{ByIndex: &requests.PageByIndex{Document: doc.Document, Index: index}}
	width, err := r.instance.FPDF_GetPageWidthF(&requests.FPDF_GetPageWidthF{Page: page})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page width")
	}
	height, err := r.instance.FPDF_GetPageHeightF(&requests.FPDF_GetPageHeightF{Page: page})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page height")
	}

	w, h := float64(width.PageWidth), float64(height.PageHeight)
	landscape := w > h
	ratio := FitRatio(w, h, r.Width, r.Height) * scale

	rendered, err := r.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Page:   page,
		Width:  int(math.Round(w * ratio)),
		Height: int(math.Round(h * ratio)),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to render page")
	}
	defer rendered.Cleanup()

	// The pixel buffer belongs to pdfium until Cleanup, so keep a copy.
	src := rendered.Result.Image
	img := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	if landscape {
		return RotateCounterClockwise(img), nil
	}
	return img, nil
}

// FitRatio is the largest scale that fits a w x h page into the box,
// turning landscape pages to portrait first.
func FitRatio(w, h, boxWidth, boxHeight float64) float64 {
	if w > h {
		w, h = h, w
	}
	return math.Min(boxWidth/w, boxHeight/h)
}

// RotateCounterClockwise turns img a quarter turn to the left.
func RotateCounterClockwise(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetRGBA(y-b.Min.Y, b.Max.X-1-x, img.RGBAAt(x, y))
		}
	}
	return out
}
