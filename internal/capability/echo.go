package capability

import (
	"context"
	"io"

	ncerr "mininet/internal/errors"
	"mininet/internal/session"
	"mininet/util"
)

// Echo sends everything it receives straight back to the peer.
type Echo struct {
	// BufSize is the receive buffer size; 0 means util.DefaultBufSize.
	BufSize int
}

// Handle reflects data until the peer closes or the context is
// cancelled.  Cancellation closes the connection to unblock the
// pending receive.
func (e *Echo) Handle(ctx context.Context, sess *session.Session) error {
	stop := context.AfterFunc(ctx, func() { sess.Conn.Close() }) //nolint:errcheck
	defer stop()

	buf, release := util.Buf(e.BufSize)
	defer release()

	var total int64
	for {
		n, err := sess.Conn.Recv(buf)
		if n > 0 {
			if _, werr := sess.Conn.Send(buf[:n]); werr != nil {
				return werr
			}
			total += int64(n)
		}
		if err != nil {
			if err == io.EOF || ncerr.Is(err, ncerr.ErrClosed) || ncerr.Is(err, ncerr.ErrConnClosed) {
				sess.Logger.Verbose("echoed %d bytes to %s", total, sess.Peer)
				return nil
			}
			return err
		}
	}
}
