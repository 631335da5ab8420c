// Package reference parses Door43 URLs into structured version references.
//
// Three URL shapes carry a version:
//
//	https://git.door43.org/{owner}/{resource}/releases/download/{version}/{file}
//	https://git.door43.org/{owner}/{resource}/releases/tag/{version}
//	https://preview.door43.org/u/{owner}/{resource}/{version}/
//
// Extract tries them in that order and returns the first match.
package reference

import (
	"fmt"
	"regexp"
	"strings"
)

// Shape identifies how a URL encodes its version.
type Shape int

const (
	// ShapeDownload is a release asset download link.
	ShapeDownload Shape = iota
	// ShapeReleaseTag is a release page link.
	ShapeReleaseTag
	// ShapePreview is a rendered preview link.
	ShapePreview
)

var shapeNames = map[Shape]string{
	ShapeDownload:   "download",
	ShapeReleaseTag: "releases",
	ShapePreview:    "preview",
}

// String returns the shape name.
func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseShape parses a shape name as produced by String.
func ParseShape(name string) (Shape, error) {
	for shape, n := range shapeNames {
		if strings.EqualFold(n, name) {
			return shape, nil
		}
	}
	return 0, fmt.Errorf("unknown url shape %q", name)
}

// Shapes returns every shape in match priority order.
func Shapes() []Shape {
	return []Shape{ShapeDownload, ShapeReleaseTag, ShapePreview}
}

// Reference is the (owner, resource, version, shape) tuple parsed from one URL.
type Reference struct {
	Owner    string `json:"owner" yaml:"owner"`
	Resource string `json:"resource" yaml:"resource"`
	Version  string `json:"version" yaml:"version"`
	Shape    Shape  `json:"shape" yaml:"shape"`
}

// String implements fmt.Stringer.
func (r Reference) String() string {
	return fmt.Sprintf("%s/%s@%s (%s)", r.Owner, r.Resource, r.Version, r.Shape)
}

// URL builds the canonical URL of the given shape for this reference.
// Download URLs point at the PDF asset named {resource}_{version}.pdf.
func (r Reference) URL(shape Shape) string {
	switch shape {
	case ShapeDownload:
		return fmt.Sprintf("https://%s/%s/%s/releases/download/%s/%s_%s.pdf",
			gitHost, r.Owner, r.Resource, r.Version, r.Resource, r.Version)
	case ShapeReleaseTag:
		return fmt.Sprintf("https://%s/%s/%s/releases/tag/%s", gitHost, r.Owner, r.Resource, r.Version)
	case ShapePreview:
		return fmt.Sprintf("https://%s/u/%s/%s/%s/", previewHost, r.Owner, r.Resource, r.Version)
	}
	return ""
}

const (
	gitHost     = `git.door43.org`
	previewHost = `preview.door43.org`
)

// matcher pairs a shape with its compiled pattern. Go regexps keep no scan
// position between calls, so sharing them across goroutines is safe.
type matcher struct {
	shape   Shape
	pattern *regexp.Regexp
}

var matchers = []matcher{
	{ShapeDownload, regexp.MustCompile(`https://git\.door43\.org/([^/]+)/([^/]+)/releases/download/([^/]+)/`)},
	{ShapeReleaseTag, regexp.MustCompile(`https://git\.door43\.org/([^/]+)/([^/]+)/releases/tag/([^/]+)`)},
	{ShapePreview, regexp.MustCompile(`https://preview\.door43\.org/u/([^/]+)/([^/]+)/([^/]+)/?`)},
}

// Extract parses url into a Reference. The second result is false when no
// shape matches.
func Extract(url string) (Reference, bool) {
	for _, m := range matchers {
		groups := m.pattern.FindStringSubmatch(url)
		if groups == nil {
			continue
		}
		return Reference{
			Owner:    groups[1],
			Resource: groups[2],
			Version:  groups[3],
			Shape:    m.shape,
		}, true
	}
	return Reference{}, false
}

// ExtractAll parses every url, dropping the ones that match no shape.
func ExtractAll(urls []string) []Reference {
	refs := make([]Reference, 0, len(urls))
	for _, u := range urls {
		if ref, ok := Extract(u); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}
