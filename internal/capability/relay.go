package capability

import (
	"context"

	"mininet/internal/session"
	"mininet/util"
)

// Relay copies data bidirectionally between the connection and the
// session's stdin/stdout, the default interactive / pipe mode.
type Relay struct{}

// Handle shuttles bytes between the connection and the local I/O pair
// until one side closes or the context is cancelled.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	sess.Logger.Verbose("relaying %s", sess.Peer)
	return util.BidirectionalCopy(ctx, sess.Conn, sess.Stdin, sess.Stdout)
}
