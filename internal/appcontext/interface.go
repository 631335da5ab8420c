// Package appcontext provides the application context interface shared by
// the versync commands, so command packages depend on an interface rather
// than on cmd/versync/app.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/versync"
)

// Interface defines what commands need from the application.
// The App struct from cmd/versync/app implements it; tests use Mock.
type Interface interface {
	// Client returns the configured versync client, creating it lazily.
	Client() (versync.Client, error)

	// ClientWithOptions creates a new client from the configuration plus
	// opts, which take precedence. Use it when a command needs extra wiring
	// such as metrics.
	ClientWithOptions(opts ...versync.Option) (versync.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
