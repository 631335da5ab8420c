// Package htmldoc implements document.Document on top of goquery.
package htmldoc

import (
	"bytes"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/document"
	"github.com/agentstation/versync/pkg/errors"
)

const (
	linkSelector   = "a[href]"
	statusSelector = "p"
	linkedSelector = "a[href], link[href], img[src]"
)

// Document is a parsed HTML page.
type Document struct {
	doc            *goquery.Document
	regionSelector string
}

var _ document.Document = (*Document)(nil)

// Option configures a Document.
type Option func(*Document)

// WithRegionSelector overrides the CSS selector that identifies regions.
func WithRegionSelector(selector string) Option {
	return func(d *Document) {
		if selector != "" {
			d.regionSelector = selector
		}
	}
}

// Parse reads an HTML page.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.WrapParse("html", "", err)
	}

	d := &Document{
		doc:            doc,
		regionSelector: constants.DefaultRegionSelector,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(bytes.NewBufferString(s), opts...)
}

// Regions implements document.Document.
func (d *Document) Regions() []document.Region {
	sel := d.doc.Find(d.regionSelector)
	regions := make([]document.Region, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		regions = append(regions, region{sel: s})
	})
	return regions
}

// Linked implements document.Document.
func (d *Document) Linked() []document.Element {
	return elements(d.doc.Find(linkedSelector))
}

// Render implements document.Document.
func (d *Document) Render(w io.Writer) error {
	for _, n := range d.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return errors.WrapIO("write", "html", err)
		}
	}
	return nil
}

// HTML renders the page to a string.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type region struct {
	sel *goquery.Selection
}

func (r region) Links() []document.Element {
	return elements(r.sel.Find(linkSelector))
}

func (r region) StatusCarriers() []document.Element {
	return elements(r.sel.Find(statusSelector))
}

func elements(sel *goquery.Selection) []document.Element {
	els := make([]document.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		els = append(els, element{sel: s})
	})
	return els
}

type element struct {
	sel *goquery.Selection
}

func (e element) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e element) SetAttr(name, value string) {
	if current, ok := e.sel.Attr(name); ok && current == value {
		return
	}
	e.sel.SetAttr(name, value)
}

func (e element) Text() string {
	return e.sel.Text()
}

func (e element) SetText(text string) {
	if e.sel.Text() == text {
		return
	}
	e.sel.SetText(text)
}
