package lines

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Source gives access to the raw files of a document. Names are resolved as
// dir/name.ext relative to the source root.
type Source interface {
	Retrieve(dir, name, ext string) ([]byte, error)
	Exists(dir, name, ext string) bool
}

type layerMetadata struct {
	Layers []struct {
		Name string `json:"name"`
	} `json:"layers"`
}

type highlightFile struct {
	Highlights [][]struct {
		Color *int   `json:"color"`
		Rects []Rect `json:"rects"`
		Text  string `json:"text"`
	} `json:"highlights"`
}

// Load builds the page pageID of document docID.
//
// A missing or undecodable .rm file yields a page without layers: never
// opened pages have no ink file on the tablet. Layer names come from the
// <page>-metadata.json sidecar and highlights from <doc>.highlights/<page>.json.
func Load(src Source, docID, pageID string, number int) *Page {
	page := &Page{Number: number, Version: 5}

	data, err := src.Retrieve(docID, pageID, "rm")
	if err != nil {
		log.Debugf("page %s/%s: no ink: %v", docID, pageID, err)
	} else {
		version, layers, err := Decode(data)
		switch {
		case IsUnsupportedVersion(err):
			log.Warnf("page %s/%s: %v, rendering without ink", docID, pageID, err)
		case err != nil:
			log.Warnf("page %s/%s: malformed ink file: %v", docID, pageID, err)
		default:
			page.Version = version
			page.Layers = layers
		}
	}

	names, err := loadLayerNames(src, docID, pageID)
	if err != nil {
		log.Warnf("page %s/%s: %v", docID, pageID, err)
	}
	NameLayers(page.Layers, names)

	highlights, err := loadHighlights(src, docID, pageID)
	if err != nil {
		log.Warnf("page %s/%s: %v", docID, pageID, err)
	}
	for i := range page.Layers {
		if i < len(highlights) {
			page.Layers[i].Highlights = highlights[i]
		}
	}

	return page
}

// NameLayers assigns names to layers. When the number of names does not
// match the number of layers every layer gets the default "Layer N".
func NameLayers(layers []Layer, names []string) {
	useNames := len(names) == len(layers)
	for i := range layers {
		if useNames && names[i] != "" {
			layers[i].Name = names[i]
		} else {
			layers[i].Name = fmt.Sprintf("Layer %d", i+1)
		}
	}
}

func loadLayerNames(src Source, docID, pageID string) ([]string, error) {
	if !src.Exists(docID, pageID+"-metadata", "json") {
		return nil, nil
	}
	data, err := src.Retrieve(docID, pageID+"-metadata", "json")
	if err != nil {
		return nil, errors.Wrap(err, "reading layer metadata")
	}
	return ParseLayerNames(data)
}

// ParseLayerNames reads the layer names of a <page>-metadata.json sidecar.
func ParseLayerNames(data []byte) ([]string, error) {
	var meta layerMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, "parsing layer metadata")
	}
	names := make([]string, len(meta.Layers))
	for i, l := range meta.Layers {
		names[i] = l.Name
	}
	return names, nil
}

func loadHighlights(src Source, docID, pageID string) ([][]Highlight, error) {
	dir := docID + ".highlights"
	if !src.Exists(dir, pageID, "json") {
		return nil, nil
	}
	data, err := src.Retrieve(dir, pageID, "json")
	if err != nil {
		return nil, errors.Wrap(err, "reading highlights")
	}
	return ParseHighlights(data)
}

// ParseHighlights reads a highlights sidecar. The outer list is indexed by
// layer. Highlights without a colour use code 1, the legacy yellow.
func ParseHighlights(data []byte) ([][]Highlight, error) {
	var f highlightFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing highlights")
	}
	out := make([][]Highlight, len(f.Highlights))
	for i, layer := range f.Highlights {
		for _, h := range layer {
			color := 1
			if h.Color != nil {
				color = *h.Color
			}
			out[i] = append(out[i], Highlight{Color: color, Rects: h.Rects, Text: h.Text})
		}
	}
	return out, nil
}
