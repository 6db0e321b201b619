package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ddvk/rmrender/lines"
	"github.com/ddvk/rmrender/render"
	"github.com/ddvk/rmrender/render/background"
	"github.com/ddvk/rmrender/render/pdf"
	"github.com/ddvk/rmrender/render/raster"
	"github.com/ddvk/rmrender/render/scene"
	"github.com/ddvk/rmrender/source"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPort = "8082"
	maxFileSize = 100 * 1024 * 1024 // 100MB
)

type Server struct {
	port      string
	templates *source.Dir
	cache     *background.Cache
}

func NewServer() *Server {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	s := &Server{
		port:  port,
		cache: background.NewCache(),
	}
	if dir := os.Getenv("TEMPLATES_DIR"); dir != "" {
		s.templates = &source.Dir{TemplatesRoot: dir}
	}
	return s
}

// upload is a document posted to one of the endpoints.
type upload struct {
	name  string
	files source.Files
	doc   *source.Document
	// page is set for a single uploaded .rm file
	page *lines.Page
}

func (s *Server) readUpload(r *http.Request) (*upload, error) {
	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		return nil, errors.Wrap(err, "error parsing form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.Wrap(err, "error getting file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(err, "error reading file")
	}

	u := &upload{name: strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))}
	if strings.EqualFold(filepath.Ext(header.Filename), ".rm") {
		version, layers, err := lines.Decode(data)
		if err != nil {
			return nil, errors.Wrap(err, "error decoding page")
		}
		lines.NameLayers(layers, nil)
		u.page = &lines.Page{Number: 1, Version: version, Layers: layers}
		return u, nil
	}

	a, err := source.OpenArchive(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "error loading rmdoc")
	}
	doc, err := a.Document()
	if err != nil {
		return nil, errors.Wrap(err, "error loading rmdoc")
	}
	u.files, u.doc = a, doc
	return u, nil
}

func (u *upload) pages(spec string) ([]*lines.Page, error) {
	if u.page != nil {
		return []*lines.Page{u.page}, nil
	}
	indices, err := pdf.SelectPages(spec, u.doc.PageCount(), u.doc.MarkedPages(u.files))
	if err != nil {
		return nil, err
	}
	return u.doc.Pages(u.files, indices)
}

// renderOptions reads the render settings of a request.
func renderOptions(r *http.Request, opts render.Options) (render.Options, error) {
	if v := r.FormValue("eraser_mode"); v != "" {
		opts.EraserMode = render.ParseEraserMode(v)
	}
	if v := r.FormValue("pencil_resolution"); v != "" {
		res, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.Wrap(err, "invalid pencil_resolution")
		}
		opts.PencilResolution = res
	}
	if v := r.FormValue("exclude_layers"); v != "" {
		set, err := render.ParseExcludeLayers(v)
		if err != nil {
			return opts, errors.Wrap(err, "invalid exclude_layers")
		}
		opts.ExcludeLayers = set
	}
	if v := r.FormValue("exclude_tools"); v != "" {
		set, err := render.ParseTools(v)
		if err != nil {
			return opts, errors.Wrap(err, "invalid exclude_tools")
		}
		opts.ExcludeTools = set
	}
	if r.FormValue("base_layer") == "false" {
		opts.IncludeBaseLayer = false
	}
	return opts, nil
}

// assembler returns the background sources for u. The returned func
// releases them.
func (s *Server) assembler(u *upload, opts render.Options) (*render.Assembler, func()) {
	asm := &render.Assembler{Cache: s.cache}
	if s.templates != nil {
		asm.Templates = s.templates
	}
	if u.doc == nil || !u.doc.PDFBased() || !opts.IncludeBaseLayer {
		return asm, func() {}
	}
	rast, err := background.NewPdfiumRasterizer(u.files, lines.Width, lines.Height)
	if err != nil {
		log.Warnf("rendering %s without original pages: %v", u.name, err)
		return asm, func() {}
	}
	asm.PDF = rast
	return asm, func() {
		if err := rast.Close(); err != nil {
			log.Warnf("closing pdfium: %v", err)
		}
	}
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, err := s.readUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := renderOptions(r, render.DefaultPreviewOptions())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pages, err := u.pages(r.FormValue("pages"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	asm, release := s.assembler(u, opts)
	defer release()

	ctx := r.Context()
	scenes := make([]*scene.Page, len(pages))
	for i, p := range pages {
		scenes[i], err = asm.RenderPage(ctx, p, opts)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error rendering page %d: %v", p.Number, err), http.StatusInternalServerError)
			return
		}
	}

	ropts := raster.DefaultOptions()
	if v := r.FormValue("scale"); v != "" {
		if scale, err := strconv.ParseFloat(v, 64); err == nil && scale > 0 {
			ropts.Scale = scale
		}
	}
	images, err := raster.RenderPages(ctx, scenes, ropts)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error rendering: %v", err), http.StatusInternalServerError)
		return
	}

	zipBuffer := new(bytes.Buffer)
	zipWriter := zip.NewWriter(zipBuffer)
	for i, img := range images {
		entry, err := zipWriter.Create(fmt.Sprintf("page_%d.png", pages[i].Number))
		if err != nil {
			http.Error(w, fmt.Sprintf("Error creating zip: %v", err), http.StatusInternalServerError)
			return
		}
		if err := png.Encode(entry, img); err != nil {
			http.Error(w, fmt.Sprintf("Error encoding page %d: %v", pages[i].Number, err), http.StatusInternalServerError)
			return
		}
	}
	if err := zipWriter.Close(); err != nil {
		http.Error(w, fmt.Sprintf("Error creating zip: %v", err), http.StatusInternalServerError)
		return
	}
	log.Infof("rendered %d pages of %s", len(images), u.name)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_pages.zip", u.name))
	w.Write(zipBuffer.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, err := s.readUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ropts, err := renderOptions(r, render.DefaultExportOptions())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pages, err := u.pages(r.FormValue("pages"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	asm, release := s.assembler(u, ropts)
	defer release()

	opts := pdf.DefaultOptions()
	opts.Render = ropts
	if u.doc != nil {
		opts.Landscape = u.doc.Landscape()
	}

	buf := new(bytes.Buffer)
	if err := pdf.Export(r.Context(), buf, pages, asm, opts); err != nil {
		http.Error(w, fmt.Sprintf("Error exporting: %v", err), http.StatusInternalServerError)
		return
	}
	log.Infof("exported %d pages of %s", len(pages), u.name)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", u.name))
	w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) Start() error {
	if err := pdf.SetLicense(); err != nil {
		log.Warnf("pdf export: %v", err)
	}
	log.Infof("Server starting on port %s", s.port)
	return http.ListenAndServe(":"+s.port, s.routes())
}

func main() {
	server := NewServer()
	if err := server.Start(); err != nil {
		log.Fatal(err)
	}
}
