package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/versync/pkg/document"
	"github.com/agentstation/versync/pkg/document/memdoc"
	"github.com/agentstation/versync/pkg/reference"
)

func regions(rs ...*memdoc.Region) []document.Region {
	return memdoc.New(rs...).Regions()
}

func TestLocate(t *testing.T) {
	notes := memdoc.NewRegion(
		memdoc.Link("https://unfoldingword.org/tn/"),
		memdoc.Link("https://git.door43.org/unfoldingWord/translationNotes/releases/tag/v80"),
		memdoc.Link("https://git.door43.org/unfoldingWord/translationNotes/releases/download/v79/tn_v79.pdf"),
	)
	deprecated := memdoc.NewRegion(
		memdoc.Link("https://git.door43.org/unfoldingWord/translationNotesDeprecated/releases/tag/v3"),
	)
	unrelated := memdoc.NewRegion(
		memdoc.Link("https://example.com/translationNotes"),
	)
	empty := memdoc.NewRegion(memdoc.Paragraph("Status: v1"))

	all := regions(notes, deprecated, unrelated, empty)

	t.Run("first qualifying link wins", func(t *testing.T) {
		matches := Locate("translationNotes", all)
		require.Len(t, matches, 1)
		assert.Equal(t, 0, matches[0].Index)
		assert.Equal(t, "v80", matches[0].Version)
		assert.Equal(t, reference.ShapeReleaseTag, matches[0].Reference.Shape)
		assert.Same(t, notes, matches[0].Region)
	})

	t.Run("substring resource is not confused with longer name", func(t *testing.T) {
		matches := Locate("translationNotesDeprecated", all)
		require.Len(t, matches, 1)
		assert.Equal(t, 1, matches[0].Index)
		assert.Equal(t, "v3", matches[0].Version)
	})

	t.Run("no regions reference resource", func(t *testing.T) {
		assert.Empty(t, Locate("en_ult", all))
	})

	t.Run("empty resource", func(t *testing.T) {
		assert.Empty(t, Locate("", all))
	})

	t.Run("nil region is skipped", func(t *testing.T) {
		matches := Locate("translationNotes", []document.Region{nil, notes})
		require.Len(t, matches, 1)
		assert.Equal(t, 1, matches[0].Index)
	})
}

func TestLocateHrefMustContainResource(t *testing.T) {
	// A preview link whose owner segment happens to hold the resource name
	// still needs the exact resource segment to qualify.
	region := memdoc.NewRegion(
		memdoc.Link("https://preview.door43.org/u/en_tn/en_tq/v5/"),
	)
	assert.Empty(t, Locate("en_tn", regions(region)))
	matches := Locate("en_tq", regions(region))
	require.Len(t, matches, 1)
	assert.Equal(t, "v5", matches[0].Version)
}

func TestVersions(t *testing.T) {
	matches := []Match{{Version: "v1"}, {Version: "v2"}, {Version: "v1"}}
	assert.Equal(t, []string{"v1", "v2"}, Versions(matches))
	assert.Empty(t, Versions(nil))
}
