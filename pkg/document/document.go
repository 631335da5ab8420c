// Package document defines the slice of a rendered page that reconciliation
// touches: regions, the links and status paragraphs inside them, and the
// attributes and text of those elements.
//
// Implementations live in subpackages: htmldoc parses real HTML, memdoc is a
// plain in-memory tree used by tests and embedders that already hold a DOM.
package document

import "io"

// Element is a single node whose attributes and text can be read and written.
type Element interface {
	// Tag returns the lower-case element name ("a", "p", "img").
	Tag() string
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)
	// SetAttr sets an attribute. Setting the current value must not mutate.
	SetAttr(name, value string)
	// Text returns the concatenated text content.
	Text() string
	// SetText replaces the element's children with a single text node.
	SetText(text string)
}

// Region is a self-contained subtree presenting one resource.
type Region interface {
	// Links returns every anchor carrying an href, in document order.
	Links() []Element
	// StatusCarriers returns the paragraph-like elements that may hold a status line.
	StatusCarriers() []Element
}

// Document is a whole page.
type Document interface {
	// Regions re-queries the page for candidate regions.
	Regions() []Region
	// Linked returns every element carrying a URL attribute (a[href], link[href], img[src]).
	Linked() []Element
	// Render writes the page back out.
	Render(w io.Writer) error
}

// URLAttr returns the attribute holding el's URL: "src" for images, "href" otherwise.
func URLAttr(el Element) string {
	if el.Tag() == "img" {
		return "src"
	}
	return "href"
}

// Href returns the href of el, or "" when it has none.
func Href(el Element) string {
	href, _ := el.Attr("href")
	return href
}
