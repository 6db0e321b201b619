package pdf

import (
	"context"
	"io"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render"
	"github.com/ddvk/rmrender/render/scene"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Options configures an export.
type Options struct {
	// Render options of every page (default: render.DefaultExportOptions())
	Render render.Options
	// Landscape rotates pages for viewing
	Landscape bool
	// Concurrency bounds the pages rendered at once (default: 4)
	Concurrency int
	// Progress is called with (0, pages) and after every page written.
	// Returning an error aborts the export.
	Progress render.ProgressFunc
}

// DefaultOptions renders with the opacity based palette.
func DefaultOptions() Options {
	return Options{
		Render:      render.DefaultExportOptions(),
		Concurrency: defaultConcurrency,
	}
}

// Export renders pages and writes them to w as one PDF. Pages render in
// parallel and are written in order. Nothing is written if the export is
// cancelled or fails.
func Export(ctx context.Context, w io.Writer, pages []*lines.Page, asm *render.Assembler, opts Options) error {
	if len(pages) == 0 {
		return errors.New("no pages to export")
	}
	if asm == nil {
		asm = &render.Assembler{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	progress := func(current int) error {
		if opts.Progress == nil {
			return nil
		}
		return opts.Progress(current, len(pages))
	}
	if err := progress(0); err != nil {
		return err
	}

	scenes := make([]*scene.Page, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, page := range pages {
		g.Go(func() error {
			ro := opts.Render
			ro.Progress = func(int, int) error {
				if gctx.Err() != nil {
					return render.ErrCancelled
				}
				return nil
			}
			s, err := asm.RenderPage(gctx, page, ro)
			if err != nil {
				return errors.Wrapf(err, "page %d", page.Number)
			}
			scenes[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	out := NewWriter(opts.Landscape)
	for i, s := range scenes {
		if err := out.AddPage(s); err != nil {
			return errors.Wrapf(err, "page %d", pages[i].Number)
		}
		if err := progress(i + 1); err != nil {
			return err
		}
	}
	log.Infof("exporting %d pages", out.Pages())
	return out.Write(w)
}
