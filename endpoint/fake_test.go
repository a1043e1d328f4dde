package endpoint

import (
	"fmt"
	"sync"

	"mininet/internal/transport"
)

// fakeTransport is an in-memory Transport.  Accept always succeeds at
// once with a fresh handle, Recv reports end-of-stream and RecvFrom
// returns a canned datagram.
type fakeTransport struct {
	mu      sync.Mutex
	next    transport.Handle
	open    map[transport.Handle]bool
	sockets int
	closes  int

	socketErr  error
	bindErr    error
	listenErr  error
	connectErr error

	sendChunk int // cap per Send call; 0 means no cap
	sent      []byte
	sentTo    []transport.Addr
	from      transport.Addr
	datagram  []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{next: 3, open: map[transport.Handle]bool{}}
}

func (f *fakeTransport) alloc() transport.Handle {
	h := f.next
	f.next++
	f.open[h] = true
	return h
}

// openHandles returns how many handles are currently open.
func (f *fakeTransport) openHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ok := range f.open {
		if ok {
			n++
		}
	}
	return n
}

func (f *fakeTransport) Socket(transport.Kind) (transport.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.socketErr != nil {
		return transport.InvalidHandle, f.socketErr
	}
	f.sockets++
	return f.alloc(), nil
}

func (f *fakeTransport) Bind(transport.Handle, transport.Addr) error { return f.bindErr }
func (f *fakeTransport) Listen(transport.Handle, int) error          { return f.listenErr }

func (f *fakeTransport) Accept(transport.Handle) (transport.Handle, transport.Addr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.alloc()
	return h, loopbackAddr(40000 + uint16(h)), nil
}

func (f *fakeTransport) Connect(transport.Handle, transport.Addr) error { return f.connectErr }

func (f *fakeTransport) Send(_ transport.Handle, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(p)
	if f.sendChunk > 0 && n > f.sendChunk {
		n = f.sendChunk
	}
	f.sent = append(f.sent, p[:n]...)
	return n, nil
}

func (f *fakeTransport) Recv(transport.Handle, []byte) (int, error) { return 0, nil }

func (f *fakeTransport) SendTo(_ transport.Handle, p []byte, to transport.Addr) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTo = append(f.sentTo, to)
	return len(p), nil
}

func (f *fakeTransport) RecvFrom(_ transport.Handle, p []byte) (int, transport.Addr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copy(p, f.datagram), f.from, nil
}

func (f *fakeTransport) SetBlocking(transport.Handle, bool) error { return nil }

func (f *fakeTransport) LocalAddr(transport.Handle) (transport.Addr, error) {
	return loopbackAddr(5555), nil
}

func (f *fakeTransport) CloseWrite(transport.Handle) error { return nil }

func (f *fakeTransport) Close(h transport.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open[h] {
		return fmt.Errorf("handle %d: bad file descriptor", h)
	}
	f.open[h] = false
	f.closes++
	return nil
}

// fakeOpts wires an endpoint to tr with a no-op initializer.
func fakeOpts(tr *fakeTransport, extra ...Option) []Option {
	return append([]Option{WithTransport(tr), withInit(func() error { return nil })}, extra...)
}

// loopbackAddr returns 127.0.0.1 on port.
func loopbackAddr(port uint16) transport.Addr {
	return transport.Addr{IP: [4]byte{127, 0, 0, 1}, Port: port}
}
