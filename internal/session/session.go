// Package session represents a single connection lifecycle, binding a
// connected endpoint to local I/O and a logger.
//
// Sessions decouple capabilities from concrete I/O sources: a
// capability doesn't need to know whether it's reading from os.Stdin
// or a test buffer, it just uses the session's Reader/Writer.
package session

import (
	"io"

	"github.com/google/uuid"

	"mininet/util"
)

// Session encapsulates the runtime context for a single connection.
type Session struct {
	ID     string
	Conn   util.Duplex
	Peer   string // remote address, for logging
	Stdin  io.Reader
	Stdout io.Writer
	Logger *util.Logger
}

// New creates a Session bound to the given connection and I/O pair.
// The session logger tags every line with a short session ID.
func New(conn util.Duplex, peer string, stdin io.Reader, stdout io.Writer, logger *util.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		Conn:   conn,
		Peer:   peer,
		Stdin:  stdin,
		Stdout: stdout,
		Logger: logger.With("[session " + id[:8] + "]"),
	}
}
