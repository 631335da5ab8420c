// Package handlers provides HTTP request handlers for the versync API.
//
// Handlers are organized by domain:
//
//   - reconcile.go: document reconciliation
//   - lookup.go: direct registry queries
//   - health.go: liveness
//
// All handlers validate input, call the versync client, and answer with
// the response envelope (or raw HTML for the HTML reconcile form).
package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/versync"
	"github.com/agentstation/versync/pkg/constants"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	client    versync.Client
	logger    *zerolog.Logger
	maxBody   int64
	version   string
	startTime time.Time
}

// New creates a new Handlers instance. A maxBody of zero uses
// constants.MaxDocumentBytes.
func New(client versync.Client, logger *zerolog.Logger, version string, maxBody int64) *Handlers {
	if maxBody <= 0 {
		maxBody = constants.MaxDocumentBytes
	}
	return &Handlers{
		client:    client,
		logger:    logger,
		maxBody:   maxBody,
		version:   version,
		startTime: time.Now(),
	}
}
