// Package extraction locates the latest distribution amount inside a fetched
// fund page. Each site layout is handled by its own Strategy; the Pipeline
// tries them in order and the first plausible amount wins.
package extraction

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Document is a fetched page shared by every strategy of one extraction.
// The DOM is parsed at most once, on first use.
type Document struct {
	raw string

	once   sync.Once
	dom    *goquery.Document
	domErr error
}

// NewDocument wraps raw page text
func NewDocument(raw string) *Document {
	return &Document{raw: raw}
}

// Raw returns the page text as fetched
func (d *Document) Raw() string {
	return d.raw
}

// DOM returns the parsed HTML tree
func (d *Document) DOM() (*goquery.Document, error) {
	d.once.Do(func() {
		d.dom, d.domErr = goquery.NewDocumentFromReader(strings.NewReader(d.raw))
	})
	return d.dom, d.domErr
}
