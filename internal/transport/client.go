// Package transport wraps net/http for registry calls: authentication,
// default headers and JSON decoding with typed errors.
package transport

import (
	"context"
	"net/http"

	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Doer is the part of *http.Client the transport needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides HTTP client functionality with authentication.
type Client struct {
	http   Doer
	auth   Authenticator
	secret string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithSecret sets the credential handed to the authenticator.
func WithSecret(secret string) Option {
	return func(c *Client) {
		c.secret = secret
	}
}

// New creates a new transport client with the specified authenticator.
func New(auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http: &http.Client{Timeout: DefaultHTTPTimeout},
		auth: auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs an HTTP request with authentication applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.secret != "" {
		c.auth.Apply(req, c.secret)
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+url, err)
	}
	return c.Do(req)
}
