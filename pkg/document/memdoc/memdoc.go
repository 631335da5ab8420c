// Package memdoc is an in-memory document.Document. Every write that changes
// a value is counted, so tests can assert that a pass touched nothing.
package memdoc

import (
	"fmt"
	"io"

	"github.com/agentstation/versync/pkg/document"
)

// Element is a node with attributes and text.
type Element struct {
	Name    string
	Attrs   map[string]string
	Content string

	// Writes counts mutations that changed a value.
	Writes int
}

var _ document.Element = (*Element)(nil)

// Link returns an anchor with the given href.
func Link(href string) *Element {
	return &Element{Name: "a", Attrs: map[string]string{"href": href}}
}

// Paragraph returns a paragraph holding text.
func Paragraph(text string) *Element {
	return &Element{Name: "p", Content: text}
}

// Image returns an img with the given src.
func Image(src string) *Element {
	return &Element{Name: "img", Attrs: map[string]string{"src": src}}
}

// Tag implements document.Element.
func (e *Element) Tag() string { return e.Name }

// Attr implements document.Element.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// SetAttr implements document.Element.
func (e *Element) SetAttr(name, value string) {
	if current, ok := e.Attrs[name]; ok && current == value {
		return
	}
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
	e.Writes++
}

// Text implements document.Element.
func (e *Element) Text() string { return e.Content }

// SetText implements document.Element.
func (e *Element) SetText(text string) {
	if e.Content == text {
		return
	}
	e.Content = text
	e.Writes++
}

// Region groups links and status paragraphs.
type Region struct {
	LinkElements   []*Element
	StatusElements []*Element
}

var _ document.Region = (*Region)(nil)

// NewRegion sorts children into links and paragraphs by tag.
func NewRegion(children ...*Element) *Region {
	r := &Region{}
	for _, c := range children {
		switch c.Name {
		case "a":
			if _, ok := c.Attrs["href"]; ok {
				r.LinkElements = append(r.LinkElements, c)
			}
		case "p":
			r.StatusElements = append(r.StatusElements, c)
		}
	}
	return r
}

// Links implements document.Region.
func (r *Region) Links() []document.Element {
	out := make([]document.Element, len(r.LinkElements))
	for i, e := range r.LinkElements {
		out[i] = e
	}
	return out
}

// StatusCarriers implements document.Region.
func (r *Region) StatusCarriers() []document.Element {
	out := make([]document.Element, len(r.StatusElements))
	for i, e := range r.StatusElements {
		out[i] = e
	}
	return out
}

// Writes sums the mutation counters of every element in the region.
func (r *Region) Writes() int {
	n := 0
	for _, e := range r.LinkElements {
		n += e.Writes
	}
	for _, e := range r.StatusElements {
		n += e.Writes
	}
	return n
}

// Hrefs returns the current href of every link.
func (r *Region) Hrefs() []string {
	out := make([]string, len(r.LinkElements))
	for i, e := range r.LinkElements {
		out[i] = e.Attrs["href"]
	}
	return out
}

// Document is a list of regions plus free-standing elements outside any region.
type Document struct {
	RegionList []*Region
	Loose      []*Element
}

var _ document.Document = (*Document)(nil)

// New builds a document from regions.
func New(regions ...*Region) *Document {
	return &Document{RegionList: regions}
}

// Regions implements document.Document.
func (d *Document) Regions() []document.Region {
	out := make([]document.Region, len(d.RegionList))
	for i, r := range d.RegionList {
		out[i] = r
	}
	return out
}

// Linked implements document.Document.
func (d *Document) Linked() []document.Element {
	var out []document.Element
	add := func(e *Element) {
		if _, ok := e.Attrs[document.URLAttr(e)]; ok {
			out = append(out, e)
		}
	}
	for _, r := range d.RegionList {
		for _, e := range r.LinkElements {
			add(e)
		}
	}
	for _, e := range d.Loose {
		add(e)
	}
	return out
}

// Render writes one line per element, for debugging.
func (d *Document) Render(w io.Writer) error {
	for i, r := range d.RegionList {
		for _, e := range r.LinkElements {
			if _, err := fmt.Fprintf(w, "region %d: <a href=%q>\n", i, e.Attrs["href"]); err != nil {
				return err
			}
		}
		for _, e := range r.StatusElements {
			if _, err := fmt.Fprintf(w, "region %d: <p>%s</p>\n", i, e.Content); err != nil {
				return err
			}
		}
	}
	return nil
}

// Writes sums the mutation counters of the whole document.
func (d *Document) Writes() int {
	n := 0
	for _, r := range d.RegionList {
		n += r.Writes()
	}
	for _, e := range d.Loose {
		n += e.Writes
	}
	return n
}
