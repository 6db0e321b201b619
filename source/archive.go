package source

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Archive is a document downloaded as .zip or .rmdoc, held in memory.
type Archive struct {
	id    string
	files map[string][]byte
}

// ReadArchive opens the archive at filename.
func ReadArchive(filename string) (*Archive, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "can't open archive")
	}
	return OpenArchive(bytes.NewReader(data), int64(len(data)))
}

// OpenArchive reads every entry of the archive. The document id is taken
// from its .content entry.
func OpenArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "can't open as zip")
	}

	a := &Archive{files: map[string][]byte{}}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(f.Name)
		data, err := readEntry(f)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %s", name)
		}
		a.files[name] = data
		if a.id == "" && path.Dir(name) == "." && path.Ext(name) == ".content" {
			a.id = strings.TrimSuffix(name, ".content")
		}
	}
	if a.id == "" {
		return nil, errors.New("no .content file found in archive")
	}
	log.Debugf("archive %s: %d entries", a.id, len(a.files))
	return a, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ID returns the id of the archived document.
func (a *Archive) ID() string {
	return a.id
}

func (a *Archive) name(dir, name, ext string) string {
	file := name
	if ext != "" {
		file += "." + ext
	}
	return path.Join(dir, file)
}

// Retrieve returns the entry dir/name.ext.
func (a *Archive) Retrieve(dir, name, ext string) ([]byte, error) {
	n := a.name(dir, name, ext)
	data, ok := a.files[n]
	if !ok {
		return nil, errors.Errorf("%s: not in archive", n)
	}
	return data, nil
}

// Exists reports whether the archive has the entry dir/name.ext.
func (a *Archive) Exists(dir, name, ext string) bool {
	_, ok := a.files[a.name(dir, name, ext)]
	return ok
}

// BaseDocument returns the original PDF of the archived document.
func (a *Archive) BaseDocument(id string) ([]byte, error) {
	return a.Retrieve("", id, "pdf")
}

// Document reads the page structure of the archived document.
func (a *Archive) Document() (*Document, error) {
	return ReadDocument(a, a.id)
}
