// Package capability defines what happens over an established
// connection.  Each Capability encapsulates a single behaviour
// (relay stdin/stdout, echo data back) and operates on a Session
// rather than a raw endpoint, which keeps capabilities testable
// and decoupled from socket details.
package capability

import (
	"context"

	"mininet/internal/session"
)

// Capability handles a single connection according to a specific
// behaviour.  Implementations include relaying stdin/stdout (Relay)
// and reflecting data to the peer (Echo).
type Capability interface {
	// Handle runs the capability against the given session.
	// It blocks until the connection is done or the context is
	// cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}
