package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render"
	"github.com/ddvk/rmrender/render/pdf"
	"github.com/ddvk/rmrender/render/raster"
	"github.com/ddvk/rmrender/render/scene"
	"github.com/juruen/rmapi/encoding/rm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func inputFile(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() < 1 {
		return "", errors.New("no file specified")
	}
	return cmd.Args().First(), nil
}

func renderCommand() *cli.Command {
	flags := append(renderFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "output folder (default: next to the input)",
		},
		&cli.FloatFlag{
			Name:  "scale",
			Usage: "pixels per tablet pixel",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "pages rendered at once",
			Value: 4,
		},
	)
	return &cli.Command{
		Name:      "render",
		Usage:     "render pages to PNG",
		ArgsUsage: "<file.rm|file.rmdoc|file.zip|doc.content>",
		Flags:     flags,
		Action:    renderPNG,
	}
}

func renderPNG(ctx context.Context, cmd *cli.Command) error {
	filename, err := inputFile(cmd)
	if err != nil {
		return err
	}
	opts, err := renderOptions(cmd, render.DefaultPreviewOptions())
	if err != nil {
		return err
	}
	j, err := openJob(filename, cmd, opts)
	if err != nil {
		return err
	}
	defer j.Close()

	pages, err := j.pages(cmd.String("pages"))
	if err != nil {
		return err
	}

	scenes := make([]*scene.Page, len(pages))
	for i, p := range pages {
		scenes[i], err = j.asm.RenderPage(ctx, p, opts)
		if err != nil {
			return errors.Wrapf(err, "page %d", p.Number)
		}
	}

	ropts := raster.DefaultOptions()
	ropts.Scale = cmd.Float("scale")
	ropts.Concurrency = int64(cmd.Int("jobs"))
	images, err := raster.RenderPages(ctx, scenes, ropts)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		out = filepath.Dir(filename)
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	for i, img := range images {
		name := filepath.Join(out, fmt.Sprintf("%s_page_%d.png", base, pages[i].Number))
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "can't create output")
		}
		err = png.Encode(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "writing %s", name)
		}
		log.Infof("saved page %d to %s", pages[i].Number, name)
	}
	return nil
}

func exportCommand() *cli.Command {
	flags := append(renderFlags(),
		&cli.StringFlag{
			Name:     "out",
			Aliases:  []string{"o"},
			Usage:    "output PDF",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "orientation",
			Usage: "auto, portrait or landscape",
			Value: "auto",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "pages rendered at once",
			Value: 4,
		},
	)
	return &cli.Command{
		Name:      "export",
		Usage:     "export pages to PDF",
		ArgsUsage: "<file.rm|file.rmdoc|file.zip|doc.content>",
		Flags:     flags,
		Action:    exportPDF,
	}
}

func exportPDF(ctx context.Context, cmd *cli.Command) error {
	filename, err := inputFile(cmd)
	if err != nil {
		return err
	}
	ropts, err := renderOptions(cmd, render.DefaultExportOptions())
	if err != nil {
		return err
	}
	ropts.Palette = ropts.Palette.OpacityBased()

	if err := pdf.SetLicense(); err != nil {
		log.Warnf("pdf: %v", err)
	}

	j, err := openJob(filename, cmd, ropts)
	if err != nil {
		return err
	}
	defer j.Close()

	pages, err := j.pages(cmd.String("pages"))
	if err != nil {
		return err
	}

	opts := pdf.DefaultOptions()
	opts.Render = ropts
	opts.Concurrency = int(cmd.Int("jobs"))
	switch cmd.String("orientation") {
	case "landscape":
		opts.Landscape = true
	case "portrait":
	default:
		opts.Landscape = j.doc.Landscape()
	}
	opts.Progress = func(current, total int) error {
		log.Debugf("exported %d/%d pages", current, total)
		return nil
	}

	out := cmd.String("out")
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "can't create output")
	}
	err = pdf.Export(ctx, f, pages, j.asm, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return err
	}
	log.Infof("exported %d pages to %s", len(pages), out)
	return nil
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "print the decoded strokes of a page as JSON",
		ArgsUsage: "<file.rm>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "pretty print JSON",
			},
			&cli.BoolFlag{
				Name:  "compare",
				Usage: "cross-check stroke counts with the rmapi decoder (v3 and v5 files)",
			},
		},
		Action: dump,
	}
}

type dumpPage struct {
	Version int         `json:"version"`
	Layers  []dumpLayer `json:"layers"`
}

type dumpLayer struct {
	Name    string       `json:"name"`
	Strokes []dumpStroke `json:"strokes"`
}

type dumpStroke struct {
	Tool     string      `json:"tool"`
	Pen      int         `json:"pen"`
	Color    int         `json:"color"`
	Width    float64     `json:"width"`
	Segments [][]float64 `json:"segments"`
}

func dump(_ context.Context, cmd *cli.Command) error {
	filename, err := inputFile(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "can't read file")
	}
	version, layers, err := lines.Decode(data)
	if err != nil {
		return errors.Wrap(err, "can't decode page")
	}
	lines.NameLayers(layers, nil)

	page := dumpPage{Version: version, Layers: make([]dumpLayer, len(layers))}
	strokes, points := 0, 0
	for i, l := range layers {
		dl := dumpLayer{Name: l.Name, Strokes: make([]dumpStroke, 0, len(l.Strokes))}
		for _, s := range l.Strokes {
			ds := dumpStroke{Tool: s.Tool.String(), Pen: s.Pen, Color: s.Color, Width: s.Width}
			for _, seg := range s.Segments {
				ds.Segments = append(ds.Segments, []float64{seg.X, seg.Y, seg.Speed, seg.Direction, seg.Width, seg.Pressure})
			}
			dl.Strokes = append(dl.Strokes, ds)
			points += len(s.Segments)
		}
		strokes += len(l.Strokes)
		page.Layers[i] = dl
	}

	var js []byte
	if cmd.Bool("pretty") {
		js, err = json.MarshalIndent(page, "", "  ")
	} else {
		js, err = json.Marshal(page)
	}
	if err != nil {
		return errors.Wrap(err, "can't marshal JSON")
	}
	fmt.Println(string(js))
	fmt.Fprintf(os.Stderr, "Decoded %d layers, %d strokes, %d points\n", len(layers), strokes, points)

	if cmd.Bool("compare") {
		compare(data, layers)
	}
	return nil
}

// compare decodes data with the rmapi decoder and logs stroke count
// mismatches.
func compare(data []byte, layers []lines.Layer) {
	other := rm.New()
	if err := other.UnmarshalBinary(data); err != nil {
		log.Warnf("rmapi decoder: %v", err)
		return
	}
	if len(other.Layers) != len(layers) {
		log.Warnf("rmapi decoder: %d layers, want %d", len(other.Layers), len(layers))
		return
	}
	for i, l := range other.Layers {
		if len(l.Lines) != len(layers[i].Strokes) {
			log.Warnf("layer %d: rmapi decoder has %d strokes, want %d", i+1, len(l.Lines), len(layers[i].Strokes))
		}
	}
	log.Infof("rmapi decoder agrees on %d layers", len(layers))
}
