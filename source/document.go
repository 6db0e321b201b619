// Package source reads reMarkable documents from a backup folder or from a
// downloaded archive.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/ddvk/rmrender/lines"
	"github.com/juruen/rmapi/archive"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// File types of a document.
const (
	Notebook = "notebook"
	PDF      = "pdf"
	EPUB     = "epub"
)

// Document is the page structure of a document.
type Document struct {
	ID          string
	FileType    string
	Orientation string
	PageIDs     []string
	// BasePages maps each page to a page of the original PDF; -1 marks
	// pages inserted on the tablet.
	BasePages []int
	// Templates has the background template of each notebook page.
	Templates []string
}

// Landscape reports whether the document is read in landscape.
func (d *Document) Landscape() bool {
	return d.Orientation == "landscape"
}

// PDFBased reports whether the document annotates an original PDF.
func (d *Document) PDFBased() bool {
	return d.FileType == PDF
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.PageIDs)
}

// Page loads page i.
func (d *Document) Page(src lines.Source, i int) (*lines.Page, error) {
	if i < 0 || i >= len(d.PageIDs) {
		return nil, errors.Errorf("page %d outside range, max: %d", i+1, len(d.PageIDs))
	}
	page := lines.Load(src, d.ID, d.PageIDs[i], i+1)

	switch {
	case d.PDFBased():
		if i < len(d.BasePages) && d.BasePages[i] >= 0 {
			page.Background = lines.Background{Kind: lines.BackgroundPDF, Document: d.ID, PageIndex: d.BasePages[i]}
		}
	case i < len(d.Templates) && d.Templates[i] != "":
		page.Background = lines.Background{Kind: lines.BackgroundTemplate, Template: d.Templates[i]}
	}
	return page, nil
}

// Pages loads the pages at the given indices.
func (d *Document) Pages(src lines.Source, indices []int) ([]*lines.Page, error) {
	pages := make([]*lines.Page, 0, len(indices))
	for _, i := range indices {
		p, err := d.Page(src, i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// MarkedPages lists the pages that have an ink file.
func (d *Document) MarkedPages(src lines.Source) []int {
	var out []int
	for i, id := range d.PageIDs {
		if src.Exists(d.ID, id, "rm") {
			out = append(out, i)
		}
	}
	return out
}

// Indices returns every page index.
func (d *Document) Indices() []int {
	return identity(len(d.PageIDs))
}

type legacyContent struct {
	archive.Content
	RedirectionPageMap []int `json:"redirectionPageMap"`
}

type cPagesContent struct {
	FileType    string `json:"fileType"`
	Orientation string `json:"orientation"`
	CPages      struct {
		Pages []struct {
			ID      string `json:"id"`
			Deleted *struct {
				Value int `json:"value"`
			} `json:"deleted"`
			Redir *struct {
				Value int `json:"value"`
			} `json:"redir"`
			Template *struct {
				Value string `json:"value"`
			} `json:"template"`
		} `json:"pages"`
	} `json:"cPages"`
}

// ParseContent reads a .content file. Both the page list of older
// firmware and the cPages list of newer firmware are understood.
func ParseContent(id string, data []byte) (*Document, error) {
	doc := &Document{ID: id}

	var legacy legacyContent
	err := json.Unmarshal(data, &legacy)
	if err == nil && len(legacy.Pages) > 0 {
		doc.FileType = legacy.FileType
		doc.Orientation = legacy.Orientation
		doc.PageIDs = legacy.Pages
		doc.BasePages = legacy.RedirectionPageMap
		if len(doc.BasePages) != len(doc.PageIDs) {
			doc.BasePages = identity(len(doc.PageIDs))
		}
		doc.normalize()
		return doc, nil
	}
	if err != nil {
		log.Debugf("%s.content: not in the legacy layout: %v", id, err)
	}

	var c cPagesContent
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "parsing %s.content", id)
	}
	doc.FileType = c.FileType
	doc.Orientation = c.Orientation
	for _, p := range c.CPages.Pages {
		if p.Deleted != nil && p.Deleted.Value != 0 {
			continue
		}
		doc.PageIDs = append(doc.PageIDs, p.ID)
		base := -1
		if p.Redir != nil {
			base = p.Redir.Value
		}
		doc.BasePages = append(doc.BasePages, base)
		tmpl := ""
		if p.Template != nil {
			tmpl = p.Template.Value
		}
		doc.Templates = append(doc.Templates, tmpl)
	}
	// the oldest notebooks name pages by their index
	if len(doc.PageIDs) == 0 && legacy.PageCount > 0 {
		for i := 0; i < legacy.PageCount; i++ {
			doc.PageIDs = append(doc.PageIDs, strconv.Itoa(i))
		}
		doc.BasePages = identity(legacy.PageCount)
	}
	doc.normalize()
	return doc, nil
}

func (d *Document) normalize() {
	if d.FileType == "" {
		d.FileType = Notebook
	}
	if d.Orientation == "" {
		d.Orientation = "portrait"
	}
}

// ParsePagedata reads the template names of a .pagedata file, one per page.
func ParsePagedata(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

// ReadDocument reads the page structure of document id.
func ReadDocument(src lines.Source, id string) (*Document, error) {
	data, err := src.Retrieve("", id, "content")
	if err != nil {
		return nil, errors.Wrapf(err, "document %s", id)
	}
	doc, err := ParseContent(id, data)
	if err != nil {
		return nil, err
	}
	if src.Exists("", id, "pagedata") {
		pd, err := src.Retrieve("", id, "pagedata")
		if err != nil {
			return nil, errors.Wrapf(err, "document %s", id)
		}
		templates := ParsePagedata(pd)
		// newer firmware keeps templates in the cPages list
		for i := range templates {
			if i < len(doc.Templates) && doc.Templates[i] != "" {
				templates[i] = doc.Templates[i]
			}
		}
		if len(templates) >= len(doc.Templates) {
			doc.Templates = templates
		}
	}
	return doc, nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
