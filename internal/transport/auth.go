package transport

import (
	"net/http"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, secret string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// TokenAuth implements Gitea style "Authorization: token <secret>" authentication.
type TokenAuth struct{}

// Apply implements the Authenticator interface for TokenAuth.
func (a *TokenAuth) Apply(req *http.Request, secret string) {
	req.Header.Set("Authorization", "token "+secret)
}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, secret string) {
	req.Header.Set("Authorization", "Bearer "+secret)
}

// QueryAuth implements secret as query parameter authentication.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, secret string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, secret)
	req.URL.RawQuery = query.Encode()
}

// AuthenticatorFor maps a scheme name from configuration to an Authenticator.
// Unknown or empty schemes fall back to token auth, which is what Door43 expects.
func AuthenticatorFor(scheme string) Authenticator {
	switch scheme {
	case "none":
		return &NoAuth{}
	case "bearer":
		return &BearerAuth{}
	case "query":
		return &QueryAuth{Param: "access_token"}
	default:
		return &TokenAuth{}
	}
}
