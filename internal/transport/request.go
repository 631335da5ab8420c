package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/logging"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// DecodeResponse decodes a JSON response into the target structure. Any
// non-2xx status becomes an *errors.APIError tagged with registry.
func DecodeResponse(resp *http.Response, registry string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := string(body)
		if len(message) > maxErrorBody {
			message = message[:maxErrorBody]
		}
		apiErr := errors.NewAPIError(registry, resp.StatusCode, message)
		if resp.Request != nil && resp.Request.URL != nil {
			apiErr.Endpoint = resp.Request.URL.String()
		}
		return apiErr
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}
