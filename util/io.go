package util

import (
	"context"
	"errors"
	"io"

	ncerr "mininet/internal/errors"
)

// DefaultBufSize is the standard buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// Duplex is a connected, bidirectional byte channel such as a stream
// client or one accepted connection of a stream server.
type Duplex interface {
	Send(p []byte) (int, error)
	Recv(p []byte) (int, error)
	Close() error
}

// HalfCloser is implemented by duplexes that can shut down their
// sending side while still receiving.
type HalfCloser interface {
	CloseWrite() error
}

// BidirectionalCopy shuffles data between a connection and an arbitrary
// reader/writer pair (typically stdin/stdout) until the peer closes,
// either side fails, or the context is cancelled.
//
// The reader side is not waited for: a blocked read on stdin cannot be
// interrupted, so it finishes on its own once the connection is closed.
func BidirectionalCopy(ctx context.Context, conn Duplex, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	recvDone := make(chan struct{})

	// network → writer
	go func() {
		defer close(recvDone)
		errCh <- drain(conn, w)
		cancel()
	}()

	// reader → network
	go func() {
		_, err := io.Copy(WriterFunc(conn.Send), r)
		// Half-close so the remote knows we're done sending, but keep
		// receiving until it finishes too.
		if hc, ok := conn.(HalfCloser); ok && err == nil {
			hc.CloseWrite() //nolint:errcheck
		}
		errCh <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() //nolint:errcheck // unblock the pending receive
	<-recvDone

	for {
		select {
		case err := <-errCh:
			if !isHarmless(err) {
				return err
			}
		default:
			return nil
		}
	}
}

// drain copies everything received on conn into w until orderly close.
func drain(conn Duplex, w io.Writer) error {
	bp := GetBuf()
	defer PutBuf(bp)
	buf := *bp

	for {
		n, err := conn.Recv(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// WriterFunc adapts a send function to io.Writer.
type WriterFunc func(p []byte) (int, error)

func (f WriterFunc) Write(p []byte) (int, error) { return f(p) }

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, ncerr.ErrClosed) ||
		errors.Is(err, ncerr.ErrConnClosed)
}
