package endpoint

import (
	"io"

	"github.com/eapache/queue"

	ncerr "mininet/internal/errors"
	"mininet/internal/transport"
)

// slot is one accepted connection owned by a StreamServer.
type slot struct {
	h    transport.Handle
	peer Addr
	open bool
}

// StreamServer owns a listening stream socket and every connection it
// accepts.  Connections are addressed by the index Accept returned.
type StreamServer struct {
	base

	local Addr
	slots []slot
	free  *queue.Queue // indices of closed slots; nil unless WithSlotReuse
}

// NewStreamServer returns an unstarted server.
func NewStreamServer(opts ...Option) *StreamServer {
	s := &StreamServer{}
	s.setup("stream-server", opts)
	if s.opts.reuse {
		s.free = queue.New()
	}
	return s
}

// ListenStream creates a server listening on every interface at port.
// Port 0 picks an ephemeral port; see LocalAddr.
func ListenStream(port uint16, opts ...Option) (*StreamServer, error) {
	s := NewStreamServer(opts...)
	if err := s.Start(port); err != nil {
		return nil, err
	}
	return s, nil
}

// Start binds to 0.0.0.0:port and begins listening.
func (s *StreamServer) Start(port uint16) error {
	h, err := s.begin(transport.Stream)
	if err != nil {
		return err
	}

	bindAddr := transport.Any(port)
	if err := s.opts.tr.Bind(h, bindAddr); err != nil {
		return s.fail(ncerr.Wrap("bind", bindAddr.String(), err))
	}
	if err := s.opts.tr.Listen(h, s.opts.backlog); err != nil {
		return s.fail(ncerr.Wrap("listen", bindAddr.String(), err))
	}
	local, err := s.opts.tr.LocalAddr(h)
	if err != nil {
		return s.fail(ncerr.Wrap("getsockname", bindAddr.String(), err))
	}

	s.mu.Lock()
	s.local = local
	s.mu.Unlock()
	if err := s.commit(); err != nil {
		return err
	}

	s.log.Verbose("listening on %s (backlog %d)", local, s.opts.backlog)
	return nil
}

// Accept waits for the next connection and returns its index.  In
// non-blocking mode it fails with ErrWouldBlock when none is pending.
//
// Indices count up from 0 in accept order.  With WithSlotReuse the
// indices of closed connections are handed out again first.
func (s *StreamServer) Accept() (int, error) {
	ln, err := s.live()
	if err != nil {
		return -1, err
	}

	h, peer, err := s.opts.tr.Accept(ln)
	if err != nil {
		return -1, s.fault("accept", s.addrString(), err)
	}

	s.mu.Lock()
	if s.state != Started {
		s.mu.Unlock()
		s.opts.tr.Close(h) //nolint:errcheck
		return -1, ncerr.ErrClosed
	}
	idx := s.store(slot{h: h, peer: peer, open: true})
	s.mu.Unlock()

	s.opts.met.ConnectionOpened()
	s.log.Verbose("conn=%d accepted from %s", idx, peer)
	return idx, nil
}

// store places c in a free slot or appends it.  The caller holds s.mu.
func (s *StreamServer) store(c slot) int {
	if s.free != nil && s.free.Length() > 0 {
		idx := s.free.Remove().(int)
		s.slots[idx] = c
		return idx
	}
	s.slots = append(s.slots, c)
	return len(s.slots) - 1
}

// conn resolves index to an open connection handle.
func (s *StreamServer) conn(index int) (transport.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connLocked(index)
}

func (s *StreamServer) connLocked(index int) (transport.Handle, error) {
	if _, err := s.liveLocked(); err != nil {
		return transport.InvalidHandle, err
	}
	if index < 0 || index >= len(s.slots) {
		return transport.InvalidHandle, ncerr.ErrInvalidIndex
	}
	if !s.slots[index].open {
		return transport.InvalidHandle, ncerr.ErrConnClosed
	}
	return s.slots[index].h, nil
}

// Recv reads up to len(p) bytes from connection index.  It returns
// (0, io.EOF) once the peer has closed its side.
func (s *StreamServer) Recv(index int, p []byte) (int, error) {
	h, err := s.conn(index)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := recvStream(s.opts.tr, h, p)
	if err != nil {
		if err == io.EOF {
			if s.State() == Closed {
				return 0, ncerr.ErrClosed
			}
			s.log.Debug("conn=%d peer closed", index)
			return 0, err
		}
		return 0, s.fault("recv", s.peerString(index), err)
	}
	s.opts.met.BytesReceived(int64(n))
	return n, nil
}

// Send writes all of p to connection index.
func (s *StreamServer) Send(index int, p []byte) (int, error) {
	h, err := s.conn(index)
	if err != nil {
		return 0, err
	}
	n, err := sendAll(s.opts.tr, h, p)
	s.opts.met.BytesSent(int64(n))
	if err != nil {
		return n, s.fault("send", s.peerString(index), err)
	}
	return n, nil
}

// SendString writes str to connection index.
func (s *StreamServer) SendString(index int, str string) (int, error) {
	return s.Send(index, []byte(str))
}

// CloseWrite shuts down the sending side of connection index.  The peer
// sees end-of-stream; receiving continues to work.
func (s *StreamServer) CloseWrite(index int) error {
	h, err := s.conn(index)
	if err != nil {
		return err
	}
	if err := s.opts.tr.CloseWrite(h); err != nil {
		return s.fault("shutdown", s.peerString(index), err)
	}
	return nil
}

// CloseConn closes connection index.  Later operations on the index fail
// with ErrConnClosed until the slot is reused.
func (s *StreamServer) CloseConn(index int) error {
	s.mu.Lock()
	h, err := s.connLocked(index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.slots[index].open = false
	s.slots[index].h = transport.InvalidHandle
	if s.free != nil {
		s.free.Add(index)
	}
	s.mu.Unlock()

	s.opts.met.ConnectionClosed()
	s.log.Verbose("conn=%d closed", index)
	return s.release(h)
}

// Peer returns the remote address of connection index.
func (s *StreamServer) Peer(index int) (Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.connLocked(index); err != nil {
		return Addr{}, err
	}
	return s.slots[index].peer, nil
}

// Len returns the number of connection slots, open or closed.  Every
// index below Len has been assigned by Accept.
func (s *StreamServer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Active returns the number of open connections.
func (s *StreamServer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.slots {
		if c.open {
			n++
		}
	}
	return n
}

// SetBlocking switches the listening socket between blocking and
// non-blocking accept.
func (s *StreamServer) SetBlocking(blocking bool) error {
	h, err := s.live()
	if err != nil {
		return err
	}
	return s.setBlocking(h, blocking)
}

// SetConnBlocking switches connection index between blocking and
// non-blocking I/O.
func (s *StreamServer) SetConnBlocking(index int, blocking bool) error {
	h, err := s.conn(index)
	if err != nil {
		return err
	}
	return s.setBlocking(h, blocking)
}

// LocalAddr returns the address the server is bound to.
func (s *StreamServer) LocalAddr() (Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.liveLocked(); err != nil {
		return Addr{}, err
	}
	return s.local, nil
}

// Stop closes the listening socket and every open connection.  It is
// safe to call more than once.
func (s *StreamServer) Stop() error {
	s.mu.Lock()
	ln, prev := s.shut()
	if prev == Closed {
		s.mu.Unlock()
		return nil
	}
	var open []transport.Handle
	for i := range s.slots {
		if s.slots[i].open {
			open = append(open, s.slots[i].h)
			s.slots[i].open = false
			s.slots[i].h = transport.InvalidHandle
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, h := range open {
		s.opts.met.ConnectionClosed()
		errs = append(errs, s.release(h))
	}
	errs = append(errs, s.release(ln))

	if prev == Started {
		s.log.Verbose("stopped (%d connections closed)", len(open))
	}
	return ncerr.Join(errs...)
}

// Close is Stop; it lets a StreamServer satisfy io.Closer.
func (s *StreamServer) Close() error { return s.Stop() }

func (s *StreamServer) addrString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local.String()
}

func (s *StreamServer) peerString(index int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.slots) {
		return ""
	}
	return s.slots[index].peer.String()
}
