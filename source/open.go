package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ddvk/rmrender/lines"
	"github.com/pkg/errors"
)

// Files is a document store: ink and metadata files plus the original
// PDFs of annotated documents.
type Files interface {
	lines.Source
	BaseDocument(id string) ([]byte, error)
}

// Open opens filename, which is a .zip or .rmdoc archive, the .content
// file of a document in a backup folder, or a single .rm page.
func Open(filename string) (Files, *Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".zip", ".rmdoc":
		a, err := ReadArchive(filename)
		if err != nil {
			return nil, nil, err
		}
		doc, err := a.Document()
		if err != nil {
			return nil, nil, err
		}
		return a, doc, nil
	case ".content":
		d := &Dir{Root: filepath.Dir(filename)}
		doc, err := ReadDocument(d, strings.TrimSuffix(filepath.Base(filename), ext))
		if err != nil {
			return nil, nil, err
		}
		return d, doc, nil
	case ".rm":
		if _, err := os.Stat(filename); err != nil {
			return nil, nil, errors.Wrap(err, "can't open page")
		}
		d := &Dir{Root: filepath.Dir(filename)}
		doc := &Document{
			FileType:    Notebook,
			Orientation: "portrait",
			PageIDs:     []string{strings.TrimSuffix(filepath.Base(filename), ext)},
			BasePages:   []int{-1},
		}
		return d, doc, nil
	}
	return nil, nil, errors.Errorf("unsupported file %s", filename)
}
