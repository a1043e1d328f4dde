//go:build unix

package transport

import (
	"os/signal"

	"golang.org/x/sys/unix"

	ncerr "mininet/internal/errors"
)

var native Transport = unixTransport{} //nolint:gochecknoglobals

// startup keeps a write to a peer that has closed its read side from
// killing the process; the write returns EPIPE instead.
func startup() error {
	signal.Ignore(unix.SIGPIPE)
	return nil
}

// unixTransport drives BSD sockets through golang.org/x/sys/unix.
type unixTransport struct{}

func (unixTransport) Socket(kind Kind) (Handle, error) {
	typ := unix.SOCK_STREAM
	if kind == Datagram {
		typ = unix.SOCK_DGRAM
	}
	fd, err := unix.Socket(unix.AF_INET, typ, 0)
	if err != nil {
		return InvalidHandle, err
	}
	unix.CloseOnExec(fd)
	if kind == Stream {
		// Let a restarted server rebind while old connections sit in TIME_WAIT.
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}
	return Handle(fd), nil
}

func (unixTransport) Bind(h Handle, a Addr) error {
	return unix.Bind(int(h), toSockaddr(a))
}

func (unixTransport) Listen(h Handle, backlog int) error {
	return unix.Listen(int(h), backlog)
}

func (unixTransport) Accept(h Handle) (Handle, Addr, error) {
	for {
		nfd, sa, err := unix.Accept(int(h))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return InvalidHandle, Addr{}, mapErrno(err)
		}
		unix.CloseOnExec(nfd)
		return Handle(nfd), fromSockaddr(sa), nil
	}
}

func (unixTransport) Connect(h Handle, a Addr) error {
	err := unix.Connect(int(h), toSockaddr(a))
	if err == unix.EINTR {
		// The handshake continues in the kernel; wait for it to settle.
		return awaitConnect(int(h))
	}
	return mapErrno(err)
}

func (unixTransport) Send(h Handle, p []byte) (int, error) {
	for {
		n, err := unix.Write(int(h), p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, mapErrno(err)
		}
		return n, nil
	}
}

func (unixTransport) Recv(h Handle, p []byte) (int, error) {
	for {
		n, err := unix.Read(int(h), p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, mapErrno(err)
		}
		return n, nil
	}
}

func (unixTransport) SendTo(h Handle, p []byte, to Addr) (int, error) {
	for {
		err := unix.Sendto(int(h), p, 0, toSockaddr(to))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, mapErrno(err)
		}
		return len(p), nil
	}
}

func (unixTransport) RecvFrom(h Handle, p []byte) (int, Addr, error) {
	for {
		n, sa, err := unix.Recvfrom(int(h), p, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, Addr{}, mapErrno(err)
		}
		return n, fromSockaddr(sa), nil
	}
}

func (unixTransport) SetBlocking(h Handle, blocking bool) error {
	return unix.SetNonblock(int(h), !blocking)
}

func (unixTransport) LocalAddr(h Handle) (Addr, error) {
	sa, err := unix.Getsockname(int(h))
	if err != nil {
		return Addr{}, err
	}
	return fromSockaddr(sa), nil
}

func (unixTransport) CloseWrite(h Handle) error {
	return unix.Shutdown(int(h), unix.SHUT_WR)
}

func (unixTransport) Close(h Handle) error {
	// shutdown wakes threads blocked in accept/recv on this handle; it
	// fails harmlessly (ENOTCONN) on sockets that were never connected.
	_ = unix.Shutdown(int(h), unix.SHUT_RDWR)
	return unix.Close(int(h))
}

// ── helpers ──────────────────────────────────────────────────────────

func awaitConnect(fd int) error {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		break
	}
	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if soErr != 0 {
		return unix.Errno(soErr)
	}
	return nil
}

func mapErrno(err error) error {
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return ncerr.ErrWouldBlock
	}
	return err
}

func toSockaddr(a Addr) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: int(a.Port), Addr: a.IP}
}

func fromSockaddr(sa unix.Sockaddr) Addr {
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return Addr{IP: in4.Addr, Port: uint16(in4.Port)}
	}
	return Addr{}
}
