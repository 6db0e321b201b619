package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Dir is a local copy of the tablet's document folder, with templates in
// a separate folder.
type Dir struct {
	Root          string
	TemplatesRoot string

	once      sync.Once
	templates map[string]templateFiles
	err       error
}

type templateFiles struct {
	png, svg string
}

type templateIndex struct {
	Templates []struct {
		Name     string `json:"name"`
		Filename string `json:"filename"`
	} `json:"templates"`
}

func (d *Dir) path(dir, name, ext string) string {
	file := name
	if ext != "" {
		file += "." + ext
	}
	return filepath.Join(d.Root, dir, file)
}

// Retrieve reads dir/name.ext.
func (d *Dir) Retrieve(dir, name, ext string) ([]byte, error) {
	data, err := os.ReadFile(d.path(dir, name, ext))
	return data, errors.Wrap(err, "can't read")
}

// Exists reports whether dir/name.ext is a regular file.
func (d *Dir) Exists(dir, name, ext string) bool {
	fi, err := os.Stat(d.path(dir, name, ext))
	return err == nil && fi.Mode().IsRegular()
}

// BaseDocument reads the original PDF of document id.
func (d *Dir) BaseDocument(id string) ([]byte, error) {
	return d.Retrieve("", id, "pdf")
}

// Documents lists the ids of the documents in the folder.
func (d *Dir) Documents() ([]string, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, errors.Wrap(err, "can't list documents")
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".content" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".content"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Template reads a template image. Templates are looked up by file name
// through templates.json; raster versions are preferred.
func (d *Dir) Template(name string) ([]byte, error) {
	d.once.Do(d.loadTemplates)
	if d.err != nil {
		return nil, d.err
	}
	t, ok := d.templates[name]
	if !ok {
		return nil, errors.Errorf("unknown template %q", name)
	}
	file := t.png
	switch {
	case file == "" && t.svg != "":
		return nil, errors.Errorf("template %q is only available as %s", name, t.svg)
	case file == "":
		return nil, errors.Errorf("template %q has no image", name)
	}
	data, err := os.ReadFile(filepath.Join(d.TemplatesRoot, file))
	return data, errors.Wrapf(err, "template %q", name)
}

func (d *Dir) loadTemplates() {
	if d.TemplatesRoot == "" {
		d.err = errors.New("no templates folder")
		return
	}
	data, err := os.ReadFile(filepath.Join(d.TemplatesRoot, "templates.json"))
	if err != nil {
		d.err = errors.Wrap(err, "can't read template index")
		return
	}
	var idx templateIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		d.err = errors.Wrap(err, "can't parse template index")
		return
	}

	d.templates = map[string]templateFiles{}
	for _, t := range idx.Templates {
		var f templateFiles
		base := filepath.Join(d.TemplatesRoot, t.Filename)
		if isFile(base + ".png") {
			f.png = t.Filename + ".png"
		}
		if isFile(base + ".svg") {
			f.svg = t.Filename + ".svg"
		}
		// the display name is not used for lookup
		d.templates[t.Filename] = f
	}
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}
