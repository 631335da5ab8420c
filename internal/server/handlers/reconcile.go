package handlers

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"github.com/agentstation/versync"
	"github.com/agentstation/versync/internal/server/response"
	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/manifest"
)

// ChangesHeader carries the number of rewritten elements on HTML responses.
const ChangesHeader = "X-Versync-Changes"

// ReconcileRequest is the JSON form of a reconcile call.
type ReconcileRequest struct {
	HTML string `json:"html"`
	// Resources maps resource names to baseline versions, in order.
	Resources json.RawMessage `json:"resources"`
}

// ReconcileResponse is the JSON form of a reconcile answer.
type ReconcileResponse struct {
	HTML   string          `json:"html"`
	Report *versync.Report `json:"report"`
}

// HandleReconcile handles POST /api/v1/reconcile.
// @Summary Reconcile a page
// @Description Rewrite resource links to registry versions. An HTML body takes
// @Description baselines from repeated resource=name=version query parameters and
// @Description returns HTML; a JSON body {html, resources} returns the envelope.
// @Tags reconcile
// @Accept html,json
// @Produce html,json
// @Param resource query string false "Baseline as name=version (repeatable)"
// @Success 200 {object} response.Response{data=ReconcileResponse}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 413 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/reconcile [post].
func (h *Handlers) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		h.reconcileJSON(w, r)
		return
	}
	h.reconcileHTML(w, r)
}

func (h *Handlers) reconcileHTML(w http.ResponseWriter, r *http.Request) {
	req, err := manifest.ParsePairs(r.URL.Query()["resource"])
	if err != nil {
		h.fail(w, err)
		return
	}

	var out bytes.Buffer
	report, err := h.client.ReconcileHTML(r.Context(), r.Body, &out, req)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(ChangesHeader, strconv.Itoa(len(report.Changes)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Bytes()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write reconciled document")
	}
}

func (h *Handlers) reconcileJSON(w http.ResponseWriter, r *http.Request) {
	var body ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.fail(w, errors.WrapParse("json", "", err))
		return
	}
	if len(body.Resources) == 0 {
		h.fail(w, errors.NewValidationError("resources", nil, "resources are required"))
		return
	}

	req, err := manifest.Parse(body.Resources)
	if err != nil {
		h.fail(w, err)
		return
	}

	var out bytes.Buffer
	report, err := h.client.ReconcileHTML(r.Context(), bytes.NewBufferString(body.HTML), &out, req)
	if err != nil {
		h.fail(w, err)
		return
	}

	response.OK(w, ReconcileResponse{HTML: out.String(), Report: report})
}

// fail answers with the envelope matching err, mapping oversized bodies to 413.
func (h *Handlers) fail(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.RequestTooLarge(w, tooLarge.Limit)
		return
	}
	h.logger.Debug().Err(err).Msg("Reconcile request rejected")
	response.ErrorFromType(w, err)
}
