package endpoint

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	ncerr "mininet/internal/errors"
	"mininet/internal/metrics"
	"mininet/internal/transport"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Uninitialized, "uninitialized"},
		{Started, "started"},
		{Closed, "closed"},
		{State(9), "state(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

// TestStreamServer_Lifecycle walks the state machine and checks the
// error returned in each state.
func TestStreamServer_Lifecycle(t *testing.T) {
	tr := newFakeTransport()
	s := NewStreamServer(fakeOpts(tr)...)

	if s.State() != Uninitialized {
		t.Fatalf("new server state = %v", s.State())
	}
	if _, err := s.Accept(); !ncerr.Is(err, ncerr.ErrNotStarted) {
		t.Errorf("Accept before Start = %v, want ErrNotStarted", err)
	}

	if err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(0); !ncerr.Is(err, ncerr.ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}
	if s.State() != Closed {
		t.Errorf("state after Stop = %v", s.State())
	}
	if _, err := s.Accept(); !ncerr.Is(err, ncerr.ErrClosed) {
		t.Errorf("Accept after Stop = %v, want ErrClosed", err)
	}
	if err := s.Start(0); !ncerr.Is(err, ncerr.ErrClosed) {
		t.Errorf("Start after Stop = %v, want ErrClosed", err)
	}
	if tr.closes != 1 {
		t.Errorf("listener closed %d times, want 1", tr.closes)
	}
}

// TestClose_BeforeStart checks that closing an unstarted endpoint is
// terminal and touches no handle.
func TestClose_BeforeStart(t *testing.T) {
	tr := newFakeTransport()
	c := NewStreamClient(fakeOpts(tr)...)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Start("127.0.0.1", 80); !ncerr.Is(err, ncerr.ErrClosed) {
		t.Errorf("Start after Close = %v, want ErrClosed", err)
	}
	if tr.sockets != 0 || tr.closes != 0 {
		t.Errorf("sockets=%d closes=%d, want 0/0", tr.sockets, tr.closes)
	}
}

// TestStart_FailureReleasesHandle verifies a failed Start closes the
// handle it created and leaves the endpoint Uninitialized.
func TestStart_FailureReleasesHandle(t *testing.T) {
	boom := fmt.Errorf("boom")

	tests := []struct {
		name   string
		setup  func(*fakeTransport)
		start  func(*fakeTransport) (State, error)
		wantOp string
	}{
		{
			name:  "stream server bind",
			setup: func(f *fakeTransport) { f.bindErr = boom },
			start: func(f *fakeTransport) (State, error) {
				s := NewStreamServer(fakeOpts(f)...)
				err := s.Start(8080)
				return s.State(), err
			},
			wantOp: "bind",
		},
		{
			name:  "stream server listen",
			setup: func(f *fakeTransport) { f.listenErr = boom },
			start: func(f *fakeTransport) (State, error) {
				s := NewStreamServer(fakeOpts(f)...)
				err := s.Start(8080)
				return s.State(), err
			},
			wantOp: "listen",
		},
		{
			name:  "stream client connect",
			setup: func(f *fakeTransport) { f.connectErr = boom },
			start: func(f *fakeTransport) (State, error) {
				c := NewStreamClient(fakeOpts(f)...)
				err := c.Start("127.0.0.1", 9000)
				return c.State(), err
			},
			wantOp: "connect",
		},
		{
			name:  "datagram server bind",
			setup: func(f *fakeTransport) { f.bindErr = boom },
			start: func(f *fakeTransport) (State, error) {
				s := NewDatagramServer(fakeOpts(f)...)
				err := s.Start(9000)
				return s.State(), err
			},
			wantOp: "bind",
		},
		{
			name:  "datagram client bind",
			setup: func(f *fakeTransport) { f.bindErr = boom },
			start: func(f *fakeTransport) (State, error) {
				c := NewDatagramClient(fakeOpts(f)...)
				err := c.Start("127.0.0.1", 9000)
				return c.State(), err
			},
			wantOp: "bind",
		},
		{
			name:  "stream client socket",
			setup: func(f *fakeTransport) { f.socketErr = boom },
			start: func(f *fakeTransport) (State, error) {
				c := NewStreamClient(fakeOpts(f)...)
				err := c.Start("127.0.0.1", 9000)
				return c.State(), err
			},
			wantOp: "socket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTransport()
			tt.setup(tr)

			state, err := tt.start(tr)
			if err == nil {
				t.Fatal("expected error")
			}
			var ne *ncerr.NetworkError
			if !ncerr.As(err, &ne) || ne.Op != tt.wantOp {
				t.Errorf("err = %v, want NetworkError op %q", err, tt.wantOp)
			}
			if !ncerr.Is(err, boom) {
				t.Errorf("err = %v should wrap the backend error", err)
			}
			if state != Uninitialized {
				t.Errorf("state = %v, want uninitialized", state)
			}
			if n := tr.openHandles(); n != 0 {
				t.Errorf("%d handles left open", n)
			}
		})
	}
}

// TestStart_MalformedAddress verifies clients reject anything but an
// IPv4 literal and release the handle they opened.
func TestStart_MalformedAddress(t *testing.T) {
	for _, addr := range []string{"", "localhost", "256.0.0.1", "::1", "1.2.3"} {
		t.Run(addr, func(t *testing.T) {
			tr := newFakeTransport()

			sc := NewStreamClient(fakeOpts(tr)...)
			if err := sc.Start(addr, 80); !ncerr.Is(err, ncerr.ErrInvalidAddress) {
				t.Errorf("stream client: err = %v, want ErrInvalidAddress", err)
			}
			dc := NewDatagramClient(fakeOpts(tr)...)
			if err := dc.Start(addr, 80); !ncerr.Is(err, ncerr.ErrInvalidAddress) {
				t.Errorf("datagram client: err = %v, want ErrInvalidAddress", err)
			}
			if n := tr.openHandles(); n != 0 {
				t.Errorf("%d handles left open", n)
			}
		})
	}
}

// TestStart_RetryAfterFailure verifies an endpoint can be started again
// once the cause of a failed Start is gone.
func TestStart_RetryAfterFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.connectErr = fmt.Errorf("connection refused")
	c := NewStreamClient(fakeOpts(tr)...)

	if err := c.Start("127.0.0.1", 9000); err == nil {
		t.Fatal("expected connect error")
	}
	tr.connectErr = nil
	if err := c.Start("127.0.0.1", 9000); err != nil {
		t.Fatalf("retry Start: %v", err)
	}
	if c.State() != Started {
		t.Errorf("state = %v, want started", c.State())
	}
}

// TestStart_InitializerRunsOnce constructs and starts several endpoints
// and checks the shared setup routine ran exactly once.
func TestStart_InitializerRunsOnce(t *testing.T) {
	tr := newFakeTransport()
	calls := 0
	ini := transport.NewInitializer(func() error {
		calls++
		return nil
	})
	opts := []Option{WithTransport(tr), withInit(ini.Do)}

	for i := 0; i < 3; i++ {
		if _, err := ListenStream(0, opts...); err != nil {
			t.Fatal(err)
		}
		if _, err := DialStream("127.0.0.1", 9000, opts...); err != nil {
			t.Fatal(err)
		}
		if _, err := ListenDatagram(0, opts...); err != nil {
			t.Fatal(err)
		}
		if _, err := DialDatagram("127.0.0.1", 9000, opts...); err != nil {
			t.Fatal(err)
		}
	}

	if calls != 1 || ini.Runs() != 1 {
		t.Errorf("setup ran %d times (Runs=%d), want 1", calls, ini.Runs())
	}
}

// TestStart_InitializerError verifies a failed network setup is returned
// before any handle is created.
func TestStart_InitializerError(t *testing.T) {
	tr := newFakeTransport()
	boom := fmt.Errorf("WSAStartup: boom")
	s := NewDatagramServer(WithTransport(tr), withInit(func() error { return boom }))

	err := s.Start(0)
	if !ncerr.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped setup error", err)
	}
	if tr.sockets != 0 {
		t.Errorf("created %d sockets after failed setup", tr.sockets)
	}
	if s.State() != Uninitialized {
		t.Errorf("state = %v", s.State())
	}
}

// TestStreamServer_AcceptIndices verifies the Nth accepted connection
// gets index N-1.
func TestStreamServer_AcceptIndices(t *testing.T) {
	tr := newFakeTransport()
	s, err := ListenStream(0, fakeOpts(tr)...)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	for want := 0; want < 5; want++ {
		got, err := s.Accept()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("accept #%d returned index %d", want+1, got)
		}
		// Closing earlier connections must not disturb numbering.
		if want == 2 {
			if err := s.CloseConn(1); err != nil {
				t.Fatal(err)
			}
		}
	}
	if s.Len() != 5 {
		t.Errorf("Len = %d, want 5", s.Len())
	}
	if s.Active() != 4 {
		t.Errorf("Active = %d, want 4", s.Active())
	}
}

// TestStreamServer_IndexErrors covers never-assigned and closed slots.
func TestStreamServer_IndexErrors(t *testing.T) {
	tr := newFakeTransport()
	s, err := ListenStream(0, fakeOpts(tr)...)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	buf := make([]byte, 8)
	for _, idx := range []int{-1, 0, 3} {
		if _, err := s.Recv(idx, buf); !ncerr.Is(err, ncerr.ErrInvalidIndex) {
			t.Errorf("Recv(%d) = %v, want ErrInvalidIndex", idx, err)
		}
	}

	idx, err := s.Accept()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CloseConn(idx); err != nil {
		t.Fatal(err)
	}

	checks := map[string]error{}
	_, checks["Recv"] = s.Recv(idx, buf)
	_, checks["Send"] = s.SendString(idx, "x")
	_, checks["Peer"] = s.Peer(idx)
	checks["CloseConn"] = s.CloseConn(idx)
	checks["CloseWrite"] = s.CloseWrite(idx)
	checks["SetConnBlocking"] = s.SetConnBlocking(idx, false)
	for op, err := range checks {
		if !ncerr.Is(err, ncerr.ErrConnClosed) {
			t.Errorf("%s on closed slot = %v, want ErrConnClosed", op, err)
		}
	}
}

// TestStreamServer_SlotReuse verifies closed slots are reused oldest
// first when enabled, and never otherwise.
func TestStreamServer_SlotReuse(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		after []int // indices returned by Accept after closing 1 then 0
	}{
		{"default", nil, []int{3, 4, 5}},
		{"reuse", []Option{WithSlotReuse()}, []int{1, 0, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTransport()
			s, err := ListenStream(0, fakeOpts(tr, tt.opts...)...)
			if err != nil {
				t.Fatal(err)
			}
			defer s.Stop()

			for i := 0; i < 3; i++ {
				if _, err := s.Accept(); err != nil {
					t.Fatal(err)
				}
			}
			s.CloseConn(1) //nolint:errcheck
			s.CloseConn(0) //nolint:errcheck

			for _, want := range tt.after {
				got, err := s.Accept()
				if err != nil {
					t.Fatal(err)
				}
				if got != want {
					t.Errorf("Accept = %d, want %d", got, want)
				}
			}
		})
	}
}

// TestStreamServer_ClosedIndexReused verifies a closed index fails with
// ErrConnClosed until Accept recycles it, after which it names the new
// peer rather than the old one.
func TestStreamServer_ClosedIndexReused(t *testing.T) {
	tr := newFakeTransport()
	s, err := ListenStream(0, fakeOpts(tr, WithSlotReuse())...)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	idx, err := s.Accept()
	if err != nil {
		t.Fatal(err)
	}
	old, err := s.Peer(idx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CloseConn(idx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Send(idx, []byte("x")); !ncerr.Is(err, ncerr.ErrConnClosed) {
		t.Fatalf("Send on closed index = %v, want ErrConnClosed", err)
	}

	again, err := s.Accept()
	if err != nil {
		t.Fatal(err)
	}
	if again != idx {
		t.Fatalf("Accept = %d, want recycled index %d", again, idx)
	}
	peer, err := s.Peer(again)
	if err != nil {
		t.Fatal(err)
	}
	if peer == old {
		t.Errorf("recycled index still reports old peer %v", old)
	}
	if n := tr.openHandles(); n != 2 {
		t.Errorf("open handles = %d, want 2 (listener + new connection)", n)
	}
}

// TestStreamServer_StopClosesConnections verifies Stop releases the
// listener and every open connection exactly once.
func TestStreamServer_StopClosesConnections(t *testing.T) {
	tr := newFakeTransport()
	m := metrics.New()
	s, err := ListenStream(0, fakeOpts(tr, WithMetrics(m))...)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Accept(); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CloseConn(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if n := tr.openHandles(); n != 0 {
		t.Errorf("%d handles left open", n)
	}
	if tr.closes != 4 {
		t.Errorf("closes = %d, want 4 (3 connections + listener)", tr.closes)
	}
	if m.TotalConnections() != 3 || m.ActiveConnections() != 0 {
		t.Errorf("metrics total=%d active=%d", m.TotalConnections(), m.ActiveConnections())
	}
	if m.LiveEndpoints() != 0 {
		t.Errorf("live endpoints = %d after Stop", m.LiveEndpoints())
	}
	if _, err := s.Recv(0, make([]byte, 1)); !ncerr.Is(err, ncerr.ErrClosed) {
		t.Errorf("Recv after Stop = %v, want ErrClosed", err)
	}
}

// TestStreamClient_SendLoopsOnShortWrites verifies Send delivers the
// whole buffer when the backend accepts only a few bytes per call.
func TestStreamClient_SendLoopsOnShortWrites(t *testing.T) {
	tr := newFakeTransport()
	tr.sendChunk = 3
	c, err := DialStream("127.0.0.1", 9000, fakeOpts(tr)...)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	payload := []byte("0123456789")
	n, err := c.Send(payload)
	if err != nil || n != len(payload) {
		t.Fatalf("Send = %d, %v", n, err)
	}
	if !bytes.Equal(tr.sent, payload) {
		t.Errorf("backend got %q", tr.sent)
	}
}

// TestStreamClient_Recv covers the zero-length buffer and the
// end-of-stream conventions.
func TestStreamClient_Recv(t *testing.T) {
	tr := newFakeTransport()
	c, err := DialStream("127.0.0.1", 9000, fakeOpts(tr)...)
	if err != nil {
		t.Fatal(err)
	}

	if n, err := c.Recv(nil); n != 0 || err != nil {
		t.Errorf("Recv(nil) = %d, %v, want 0, nil", n, err)
	}
	if n, err := c.Recv(make([]byte, 4)); n != 0 || err != io.EOF {
		t.Errorf("Recv at end of stream = %d, %v, want 0, EOF", n, err)
	}

	c.Close()
	if _, err := c.Recv(make([]byte, 4)); !ncerr.Is(err, ncerr.ErrClosed) {
		t.Errorf("Recv after Close = %v, want ErrClosed", err)
	}
	if _, err := c.SendString("x"); !ncerr.Is(err, ncerr.ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if tr.closes != 1 {
		t.Errorf("closes = %d, want 1", tr.closes)
	}
}

// TestDatagramClient_TargetNotOverwritten verifies receiving from a
// different peer never redirects later sends.
func TestDatagramClient_TargetNotOverwritten(t *testing.T) {
	tr := newFakeTransport()
	tr.from = loopbackAddr(7777)
	tr.datagram = []byte("hi")

	c, err := DialDatagram("10.0.0.1", 9, fakeOpts(tr)...)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok := c.LastSender(); ok {
		t.Error("LastSender set before any receive")
	}

	buf := make([]byte, 16)
	n, err := c.Recv(buf)
	if err != nil || string(buf[:n]) != "hi" {
		t.Fatalf("Recv = %q, %v", buf[:n], err)
	}

	if from, ok := c.LastSender(); !ok || from != tr.from {
		t.Errorf("LastSender = %v, %v; want %v", from, ok, tr.from)
	}
	want := Addr{IP: [4]byte{10, 0, 0, 1}, Port: 9}
	if c.Target() != want {
		t.Errorf("Target = %v, want %v", c.Target(), want)
	}

	if _, err := c.SendString("reply"); err != nil {
		t.Fatal(err)
	}
	if got := tr.sentTo[len(tr.sentTo)-1]; got != want {
		t.Errorf("send went to %v, want %v", got, want)
	}
}

// TestDatagramServer_Metrics verifies datagrams and bytes are counted.
func TestDatagramServer_Metrics(t *testing.T) {
	tr := newFakeTransport()
	tr.from = loopbackAddr(6000)
	tr.datagram = []byte("abcd")
	m := metrics.New()

	s, err := ListenDatagram(0, fakeOpts(tr, WithMetrics(m))...)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	n, from, err := s.Recv(make([]byte, 16))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Send(from, []byte("ok")); err != nil {
		t.Fatal(err)
	}

	if n != 4 || m.DatagramsIn() != 1 || m.DatagramsOut() != 1 {
		t.Errorf("n=%d in=%d out=%d", n, m.DatagramsIn(), m.DatagramsOut())
	}
	if m.TotalBytesIn() != 4 || m.TotalBytesOut() != 2 {
		t.Errorf("bytes in=%d out=%d", m.TotalBytesIn(), m.TotalBytesOut())
	}
}

// TestEndpoint_ErrorMetrics verifies failures are counted under the
// operation that failed and endpoints are only counted once started.
func TestEndpoint_ErrorMetrics(t *testing.T) {
	tr := newFakeTransport()
	tr.connectErr = fmt.Errorf("refused")
	m := metrics.New()

	c := NewStreamClient(fakeOpts(tr, WithMetrics(m))...)
	if err := c.Start("127.0.0.1", 9000); err == nil {
		t.Fatal("expected connect error")
	}
	if err := c.Start("not-an-ip", 9000); err == nil {
		t.Fatal("expected address error")
	}

	if m.ErrorsFor("connect") != 1 || m.ErrorsFor("address") != 1 {
		t.Errorf("connect=%d address=%d", m.ErrorsFor("connect"), m.ErrorsFor("address"))
	}
	if m.LiveEndpoints() != 0 {
		t.Errorf("live endpoints = %d, want 0", m.LiveEndpoints())
	}

	tr.connectErr = nil
	if err := c.Start("127.0.0.1", 9000); err != nil {
		t.Fatal(err)
	}
	if m.LiveEndpoints() != 1 {
		t.Errorf("live endpoints = %d after Start", m.LiveEndpoints())
	}
	c.Close() //nolint:errcheck
	c.Close() //nolint:errcheck
	if m.LiveEndpoints() != 0 {
		t.Errorf("live endpoints = %d after Close", m.LiveEndpoints())
	}
}

// TestEndpoint_IDs verifies every endpoint gets a distinct identifier.
func TestEndpoint_IDs(t *testing.T) {
	a, b := NewStreamServer(), NewStreamServer()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("IDs %q and %q should be distinct and non-empty", a.ID(), b.ID())
	}
}
