// Package endpoint provides the four socket endpoints of mininet:
// StreamServer, StreamClient, DatagramServer and DatagramClient.
//
// Every endpoint follows the same lifecycle:
//
//	Uninitialized  →  Started  →  Closed
//
// An endpoint is created empty (NewStreamServer, …) and started later
// with Start, or created and started in one step (ListenStream,
// DialStream, ListenDatagram, DialDatagram).  Start runs the process-wide
// network initializer before the first handle is created.  A failed
// Start releases whatever it opened and leaves the endpoint
// Uninitialized, so the caller may try again.  Close (Stop on the stream
// server) is terminal and idempotent.
//
// I/O is synchronous and blocking unless SetBlocking(false) was called,
// in which case an operation that cannot complete at once fails with
// errors.ErrWouldBlock.  Endpoints guard their own bookkeeping but do not
// serialize I/O: callers sharing one handle across goroutines must
// synchronize on their own.
//
// The same holds for StreamServer connection indices.  CloseConn and
// Stop release a connection's handle without waiting for Recv or Send
// calls already in flight on that index, and the operating system may
// hand the same handle number to the next Accept.  Callers must not
// close an index while another goroutine is still using it.  Only Stop
// and Close are meant to wake goroutines blocked in Accept or Recv.
// With WithSlotReuse a closed index itself is recycled, so an index
// kept past CloseConn may later name a different peer.
//
// Stream receives follow io.Reader conventions: a peer's orderly close
// is reported as (0, io.EOF), never as a failure.
package endpoint
