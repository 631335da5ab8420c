// Package constants provides shared constants used throughout the versync codebase.
// This includes registry defaults, timeouts, file permissions, and the markers the
// rewriter looks for in rendered pages.
package constants

import "time"

// Registry defaults
const (
	// DefaultCatalogEndpoint is the Door43 catalog search API
	DefaultCatalogEndpoint = "https://git.door43.org/api/v1/catalog/search"

	// DefaultOwner is the organization all resources are looked up under
	DefaultOwner = "unfoldingWord"

	// RegistryName labels registry errors and metrics
	RegistryName = "door43"
)

// Document defaults
const (
	// DefaultOrigin is prepended to site-relative links
	DefaultOrigin = "https://unfoldingword.org"

	// DefaultRegionSelector matches the toggle blocks that present one resource each
	DefaultRegionSelector = ".wp-block-obb-toggle-block"

	// StatusMarker identifies free-text status carriers
	StatusMarker = "Status:"
)

// Door43 URL fragments
const (
	GitHost     = "git.door43.org"
	PreviewHost = "preview.door43.org"

	DownloadSegment = "/releases/download/"
	TagSegment      = "/releases/tag/"
)

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the registry
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultPacingInterval is the gap between per-resource lookups in paced mode
	DefaultPacingInterval = 200 * time.Millisecond

	// ShutdownTimeout bounds graceful server shutdown
	ShutdownTimeout = 5 * time.Second

	// ReadHeaderTimeout bounds how long the server waits for request headers
	ReadHeaderTimeout = 10 * time.Second
)

// Limit constants
const (
	// DefaultMaxConcurrent is the number of in-flight per-resource lookups
	DefaultMaxConcurrent = 1

	// MaxDocumentBytes caps request bodies accepted by the HTTP server
	MaxDocumentBytes = 10 << 20
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)
