package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agentstation/versync/internal/server/response"
	"github.com/agentstation/versync/pkg/registry"
)

// LookupResponse is the payload of a successful lookup.
type LookupResponse struct {
	Versions registry.VersionMap `json:"versions"`
	Missing  []string            `json:"missing"`
}

// HandleLookup handles GET /api/v1/lookup.
// @Summary Look up registry versions
// @Description Query the catalog for the latest version of each resource
// @Tags registry
// @Produce json
// @Param repo query string true "Resource names (comma-separated or repeated)"
// @Param each query boolean false "Query one resource at a time"
// @Success 200 {object} response.Response{data=LookupResponse}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 502 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/lookup [get].
func (h *Handlers) HandleLookup(w http.ResponseWriter, r *http.Request) {
	resources := splitList(r.URL.Query()["repo"])
	if len(resources) == 0 {
		response.BadRequest(w, "At least one repo is required", "Use ?repo=en_tn,en_ult")
		return
	}

	var versions registry.VersionMap
	if each, _ := strconv.ParseBool(r.URL.Query().Get("each")); each {
		versions = h.client.LookupEach(r.Context(), resources)
	} else {
		var err error
		versions, err = h.client.Lookup(r.Context(), resources)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
	}

	missing := []string{}
	for _, name := range resources {
		if !versions.Has(name) {
			missing = append(missing, name)
		}
	}
	response.OK(w, LookupResponse{Versions: versions, Missing: missing})
}

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
