package main

import (
	"os"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render"
	"github.com/ddvk/rmrender/render/background"
	"github.com/ddvk/rmrender/render/palette"
	"github.com/ddvk/rmrender/render/pdf"
	"github.com/ddvk/rmrender/source"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// renderFlags are shared by render and export.
func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "pages",
			Usage: `page ranges, e.g. "1,3:5,end" or "marked" (default: all)`,
		},
		&cli.StringFlag{
			Name:  "templates",
			Usage: "folder with templates.json and the template images",
		},
		&cli.StringFlag{
			Name:  "eraser-mode",
			Usage: "quick, ignore, accurate or auto",
			Value: "ignore",
		},
		&cli.FloatFlag{
			Name:  "pencil-resolution",
			Usage: "texture pixel size of pencils, 0 for gray, negative for flat black",
			Value: 0.4,
		},
		&cli.FloatFlag{
			Name:  "thickness",
			Usage: "stroke width multiplier",
			Value: 1,
		},
		&cli.FloatFlag{
			Name:  "simplify",
			Usage: "simplification tolerance of fineliner and ballpoint strokes",
		},
		&cli.BoolFlag{
			Name:  "smoothen",
			Usage: "draw fineliner and ballpoint strokes as curves",
		},
		&cli.StringFlag{
			Name:  "exclude-layers",
			Usage: `layers to skip, e.g. '1, "Sketch", "2/highlights"'`,
		},
		&cli.StringFlag{
			Name:  "exclude-tools",
			Usage: "comma separated tools to skip, e.g. highlighter,eraser",
		},
		&cli.BoolFlag{
			Name:  "no-base-layer",
			Usage: "skip templates and original PDF pages",
		},
		&cli.StringFlag{
			Name:  "presets",
			Usage: "JSON file with palette presets",
		},
		&cli.StringFlag{
			Name:  "palette",
			Usage: "palette preset name",
			Value: palette.DefaultPreset,
		},
	}
}

// renderOptions applies the flags to base.
func renderOptions(cmd *cli.Command, base render.Options) (render.Options, error) {
	opts := base
	opts.EraserMode = render.ParseEraserMode(cmd.String("eraser-mode"))
	opts.PencilResolution = cmd.Float("pencil-resolution")
	opts.ThicknessScale = cmd.Float("thickness")
	opts.Simplify = cmd.Float("simplify")
	opts.Smoothen = cmd.Bool("smoothen")
	opts.IncludeBaseLayer = !cmd.Bool("no-base-layer")

	layers, err := render.ParseExcludeLayers(cmd.String("exclude-layers"))
	if err != nil {
		return opts, errors.Wrap(err, "invalid --exclude-layers")
	}
	opts.ExcludeLayers = layers

	tools, err := render.ParseTools(cmd.String("exclude-tools"))
	if err != nil {
		return opts, errors.Wrap(err, "invalid --exclude-tools")
	}
	opts.ExcludeTools = tools

	if cmd.String("presets") != "" || cmd.String("palette") != palette.DefaultPreset {
		pal, err := loadPalette(cmd.String("presets"), cmd.String("palette"))
		if err != nil {
			return opts, err
		}
		opts.Palette = pal
	}
	return opts, nil
}

func loadPalette(presetsFile, name string) (*palette.Palette, error) {
	if presetsFile == "" {
		log.Warnf("no presets file, using the default palette instead of %q", name)
		return palette.Default(), nil
	}
	f, err := os.Open(presetsFile)
	if err != nil {
		return nil, errors.Wrap(err, "can't open presets")
	}
	defer f.Close()
	presets, err := palette.LoadPresets(f)
	if err != nil {
		return nil, err
	}
	return presets.Get(name), nil
}

// job is an opened document ready to render.
type job struct {
	files source.Files
	doc   *source.Document
	asm   *render.Assembler
	pdf   *background.PdfiumRasterizer
}

func openJob(filename string, cmd *cli.Command, opts render.Options) (*job, error) {
	files, doc, err := source.Open(filename)
	if err != nil {
		return nil, err
	}
	j := &job{files: files, doc: doc, asm: &render.Assembler{Cache: background.NewCache()}}
	if t := cmd.String("templates"); t != "" {
		j.asm.Templates = &source.Dir{TemplatesRoot: t}
	}
	if opts.IncludeBaseLayer && doc.PDFBased() {
		j.pdf, err = background.NewPdfiumRasterizer(files, lines.Width, lines.Height)
		if err != nil {
			log.Warnf("rendering without original pages: %v", err)
		} else {
			j.asm.PDF = j.pdf
		}
	}
	return j, nil
}

func (j *job) pages(spec string) ([]*lines.Page, error) {
	var marked []int
	if j.doc.PDFBased() {
		marked = j.doc.MarkedPages(j.files)
	}
	indices, err := pdf.SelectPages(spec, j.doc.PageCount(), marked)
	if err != nil {
		return nil, err
	}
	return j.doc.Pages(j.files, indices)
}

func (j *job) Close() {
	if j.pdf != nil {
		if err := j.pdf.Close(); err != nil {
			log.Warnf("closing pdfium: %v", err)
		}
	}
}
