// Package core is the orchestration layer.  It composes endpoints and
// capabilities into complete operational modes and provides a builder
// that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  endpoint  →  session  →  capability  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point between the
// parsed configuration and a running mode.
package core

import "context"

// Mode represents a complete operational mode of mininet (connect or
// listen, over TCP or UDP).  Each mode owns its full lifecycle from
// endpoint start to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
