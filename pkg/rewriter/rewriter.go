// Package rewriter moves every reference to a resource inside a region from
// one version to another.
package rewriter

import (
	"strings"

	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/document"
	"github.com/agentstation/versync/pkg/reference"
)

// Kind says what a Change touched.
type Kind string

const (
	// KindLink is an href rewrite.
	KindLink Kind = "link"
	// KindStatus is a status text rewrite.
	KindStatus Kind = "status"
)

// Change records one mutation.
type Change struct {
	Kind   Kind            `json:"kind" yaml:"kind"`
	Shape  reference.Shape `json:"shape,omitempty" yaml:"shape,omitempty"`
	Before string          `json:"before" yaml:"before"`
	After  string          `json:"after" yaml:"after"`
}

// Result collects the changes made to one region.
type Result struct {
	Changes []Change `json:"changes" yaml:"changes"`
}

// Links counts href rewrites.
func (r Result) Links() int { return r.count(KindLink) }

// Statuses counts status text rewrites.
func (r Result) Statuses() int { return r.count(KindStatus) }

// Changed reports whether anything was rewritten.
func (r Result) Changed() bool { return len(r.Changes) > 0 }

func (r Result) count(kind Kind) int {
	n := 0
	for _, c := range r.Changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Rewrite moves the links of resource inside region from oldVersion to
// newVersion, then rewrites every version token of the region's status lines.
//
// Links are scoped with a plain substring test on the href, so a resource
// whose name is contained in another resource's name also touches the longer
// one's links when both share a region. Rewriting to the same version is a
// no-op.
func Rewrite(region document.Region, resource, oldVersion, newVersion string) Result {
	var result Result
	if region == nil || resource == "" || oldVersion == "" || oldVersion == newVersion {
		return result
	}

	for _, link := range region.Links() {
		href := document.Href(link)
		if !strings.Contains(href, resource) || !strings.Contains(href, oldVersion) {
			continue
		}
		rewritten, shape, ok := rewriteHref(href, oldVersion, newVersion)
		if !ok || rewritten == href {
			continue
		}
		link.SetAttr("href", rewritten)
		result.Changes = append(result.Changes, Change{Kind: KindLink, Shape: shape, Before: href, After: rewritten})
	}

	for _, carrier := range region.StatusCarriers() {
		text := carrier.Text()
		if !strings.Contains(text, constants.StatusMarker) {
			continue
		}
		rewritten := reference.ReplaceVersions(text, newVersion)
		if rewritten == text {
			continue
		}
		carrier.SetText(rewritten)
		result.Changes = append(result.Changes, Change{Kind: KindStatus, Before: text, After: rewritten})
	}

	return result
}

// rewriteHref applies the substitution rule for href's shape. An href can be
// both a download and a tag link only in pathological cases; both rules then
// apply, in that order.
func rewriteHref(href, oldVersion, newVersion string) (string, reference.Shape, bool) {
	out := href
	var shape reference.Shape
	matched := false

	if strings.Contains(out, constants.GitHost) && strings.Contains(out, constants.DownloadSegment) {
		out = strings.Replace(out,
			constants.DownloadSegment+oldVersion+"/",
			constants.DownloadSegment+newVersion+"/", 1)
		out = strings.Replace(out, "_"+oldVersion+".pdf", "_"+newVersion+".pdf", 1)
		shape, matched = reference.ShapeDownload, true
	}

	if strings.Contains(out, constants.GitHost) && strings.Contains(out, constants.TagSegment) {
		out = strings.Replace(out,
			constants.TagSegment+oldVersion,
			constants.TagSegment+newVersion, 1)
		if !matched {
			shape, matched = reference.ShapeReleaseTag, true
		}
	}

	if strings.Contains(out, constants.PreviewHost) {
		segment := "/" + oldVersion + "/"
		switch {
		case strings.Contains(out, segment):
			out = strings.Replace(out, segment, "/"+newVersion+"/", 1)
		case strings.HasSuffix(out, "/"+oldVersion):
			out = strings.TrimSuffix(out, oldVersion) + newVersion
		}
		if !matched {
			shape, matched = reference.ShapePreview, true
		}
	}

	return out, shape, matched
}
