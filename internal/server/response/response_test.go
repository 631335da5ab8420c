package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentstation/versync/pkg/errors"
)

// TestSuccess tests the Success helper function.
func TestSuccess(t *testing.T) {
	resp := Success(map[string]string{"en_tn": "v86"})

	if resp.Data == nil {
		t.Error("expected Data to be set")
	}
	if resp.Error != nil {
		t.Error("expected Error to be nil")
	}
}

// TestFail tests the Fail helper function.
func TestFail(t *testing.T) {
	resp := Fail("TEST_ERROR", "Test error message", "Additional details")

	if resp.Data != nil {
		t.Error("expected Data to be nil")
	}
	if resp.Error == nil {
		t.Fatal("expected Error to be set")
	}
	if resp.Error.Code != "TEST_ERROR" {
		t.Errorf("expected Code=TEST_ERROR, got %s", resp.Error.Code)
	}
	if resp.Error.Details != "Additional details" {
		t.Errorf("expected Details=Additional details, got %s", resp.Error.Details)
	}
}

// TestJSON tests the JSON helper function.
func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]string{"en_tn": "v86"})

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", ct)
	}

	var decoded struct {
		Data  map[string]string `json:"data"`
		Error *Error            `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.Data["en_tn"] != "v86" {
		t.Errorf("expected data.en_tn=v86, got %v", decoded.Data)
	}
	if decoded.Error != nil {
		t.Errorf("expected null error, got %+v", decoded.Error)
	}
}

// TestErrorFromType tests the mapping of typed errors to status codes.
func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedType string
	}{
		{
			name:         "validation",
			err:          errors.NewValidationError("resource", "", "resource name must not be empty"),
			expectedCode: http.StatusBadRequest,
			expectedType: "BAD_REQUEST",
		},
		{
			name:         "wrapped validation",
			err:          fmt.Errorf("decode: %w", errors.NewValidationError("request", nil, "empty")),
			expectedCode: http.StatusBadRequest,
			expectedType: "BAD_REQUEST",
		},
		{
			name:         "parse",
			err:          errors.WrapParse("json", "", fmt.Errorf("unexpected EOF")),
			expectedCode: http.StatusBadRequest,
			expectedType: "BAD_REQUEST",
		},
		{
			name:         "not found",
			err:          &errors.NotFoundError{Resource: "resource", ID: "en_xx"},
			expectedCode: http.StatusNotFound,
			expectedType: "NOT_FOUND",
		},
		{
			name:         "registry rate limited",
			err:          &errors.APIError{Registry: "door43", StatusCode: 429, Message: "slow down"},
			expectedCode: http.StatusTooManyRequests,
			expectedType: "RATE_LIMITED",
		},
		{
			name:         "registry failure",
			err:          &errors.APIError{Registry: "door43", StatusCode: 500, Message: "boom"},
			expectedCode: http.StatusBadGateway,
			expectedType: "REGISTRY_ERROR",
		},
		{
			name:         "unknown",
			err:          errors.New("boom"),
			expectedCode: http.StatusInternalServerError,
			expectedType: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromType(w, tt.err)

			if w.Code != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, w.Code)
			}
			var resp Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error == nil || resp.Error.Code != tt.expectedType {
				t.Errorf("expected error code %s, got %+v", tt.expectedType, resp.Error)
			}
		})
	}
}

// TestRequestTooLarge tests the size message.
func TestRequestTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	RequestTooLarge(w, 10<<20)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", w.Code)
	}
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Details != "Documents are limited to 10 MiB" {
		t.Errorf("unexpected details %q", resp.Error.Details)
	}
}

func TestFormatBytes(t *testing.T) {
	for n, want := range map[int64]string{
		512:     "512 bytes",
		2048:    "2 KiB",
		3 << 20: "3 MiB",
		1500:    "1500 bytes",
	} {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
