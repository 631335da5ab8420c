// Package locator finds the regions of a document that reference a resource.
package locator

import (
	"strings"

	"github.com/agentstation/versync/pkg/document"
	"github.com/agentstation/versync/pkg/reference"
)

// Match pairs a region with the version its first qualifying link carries.
type Match struct {
	Region    document.Region
	Index     int // position of Region in the slice passed to Locate
	Version   string
	Reference reference.Reference
}

// Locate returns one Match per region holding a link to resource.
//
// A link qualifies when its href contains resource and parses into a
// Reference whose Resource equals resource exactly. The first qualifying link
// of a region wins.
func Locate(resource string, regions []document.Region) []Match {
	if resource == "" {
		return nil
	}

	var matches []Match
	for i, region := range regions {
		if region == nil {
			continue
		}
		if ref, ok := firstReference(resource, region); ok {
			matches = append(matches, Match{
				Region:    region,
				Index:     i,
				Version:   ref.Version,
				Reference: ref,
			})
		}
	}
	return matches
}

func firstReference(resource string, region document.Region) (reference.Reference, bool) {
	for _, link := range region.Links() {
		href := document.Href(link)
		if !strings.Contains(href, resource) {
			continue
		}
		ref, ok := reference.Extract(href)
		if ok && ref.Resource == resource {
			return ref, true
		}
	}
	return reference.Reference{}, false
}

// Versions returns the distinct versions referenced across matches, in order
// of first appearance.
func Versions(matches []Match) []string {
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m.Version] {
			seen[m.Version] = true
			out = append(out, m.Version)
		}
	}
	return out
}
