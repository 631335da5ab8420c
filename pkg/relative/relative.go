// Package relative rewrites root-relative links into absolute URLs so a page
// fragment keeps working once it is served from another host.
package relative

import (
	"strings"

	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/document"
)

// Change records one rewritten attribute.
type Change struct {
	Tag    string `json:"tag" yaml:"tag"`
	Attr   string `json:"attr" yaml:"attr"`
	Before string `json:"before" yaml:"before"`
	After  string `json:"after" yaml:"after"`
}

// IsRootRelative reports whether value starts with a single slash.
// Protocol-relative values ("//host/path") are left alone.
func IsRootRelative(value string) bool {
	return strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "//")
}

// Normalize prefixes every root-relative a[href], link[href] and img[src] in
// doc with origin. An empty origin falls back to constants.DefaultOrigin; a
// trailing slash on origin is dropped.
func Normalize(doc document.Document, origin string) []Change {
	if doc == nil {
		return nil
	}
	if origin == "" {
		origin = constants.DefaultOrigin
	}
	origin = strings.TrimRight(origin, "/")

	var changes []Change
	for _, el := range doc.Linked() {
		attr := document.URLAttr(el)
		value, ok := el.Attr(attr)
		if !ok || !IsRootRelative(value) {
			continue
		}
		abs := origin + value
		el.SetAttr(attr, abs)
		changes = append(changes, Change{Tag: el.Tag(), Attr: attr, Before: value, After: abs})
	}
	return changes
}
