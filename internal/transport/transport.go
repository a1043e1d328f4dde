// Package transport is the capability layer between the public endpoints
// and the host network stack.  Every socket operation the endpoints need
// (create, bind, listen, accept, connect, send, receive, blocking mode,
// close) goes through the [Transport] interface; the concrete backend is
// chosen at build time (x/sys/unix on Unix-like systems, x/sys/windows
// on Windows).
package transport

import "fmt"

// Handle is an opaque OS-assigned reference to an open socket.
type Handle uintptr

// InvalidHandle never refers to an open socket.
const InvalidHandle = ^Handle(0)

// Kind selects the socket family an endpoint opens.
type Kind int

const (
	Stream   Kind = iota // connection-oriented, reliable, ordered (TCP)
	Datagram             // connectionless, best-effort (UDP)
)

func (k Kind) String() string {
	switch k {
	case Stream:
		return "stream"
	case Datagram:
		return "datagram"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Transport performs raw socket operations on handles.  Implementations
// must report would-block conditions as errors.ErrWouldBlock and must
// not retain the byte slices passed to them.
type Transport interface {
	// Socket creates a new IPv4 socket of the given kind.
	Socket(kind Kind) (Handle, error)

	// Bind assigns a local address to h.
	Bind(h Handle, a Addr) error

	// Listen marks a bound stream socket as passive.
	Listen(h Handle, backlog int) error

	// Accept takes the next pending connection off a listening socket.
	Accept(h Handle) (Handle, Addr, error)

	// Connect associates a stream socket with a remote peer.
	Connect(h Handle, a Addr) error

	// Send writes p to a connected socket and returns the number of
	// bytes accepted by the OS, which may be less than len(p).
	Send(h Handle, p []byte) (int, error)

	// Recv reads into p from a connected socket.  A return of (0, nil)
	// with len(p) > 0 means the peer performed an orderly shutdown.
	Recv(h Handle, p []byte) (int, error)

	// SendTo sends one datagram to the given address.
	SendTo(h Handle, p []byte, to Addr) (int, error)

	// RecvFrom receives one datagram and reports its source.
	RecvFrom(h Handle, p []byte) (int, Addr, error)

	// SetBlocking switches h between blocking and non-blocking mode.
	SetBlocking(h Handle, blocking bool) error

	// LocalAddr returns the address h is bound to.
	LocalAddr(h Handle) (Addr, error)

	// CloseWrite shuts down the sending side of a stream socket.
	CloseWrite(h Handle) error

	// Close shuts h down in both directions, waking any blocked caller
	// where the platform allows, and releases it.
	Close(h Handle) error
}

// Native returns the backend for the host platform.
func Native() Transport { return native }
