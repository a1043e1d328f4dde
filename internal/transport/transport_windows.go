//go:build windows

package transport

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	ncerr "mininet/internal/errors"
)

var native Transport = winsockTransport{} //nolint:gochecknoglobals

// fionbio is the ioctlsocket command that toggles non-blocking mode.
const fionbio = 0x8004667e

// x/sys/windows leaves Accept unimplemented and has no ioctlsocket
// wrapper.  Its Recvfrom drops the sender on WSAEMSGSIZE.  All three
// are loaded from ws2_32 directly.
var (
	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procAccept      = modws2_32.NewProc("accept")
	procIoctlsocket = modws2_32.NewProc("ioctlsocket")
	procRecvfrom    = modws2_32.NewProc("recvfrom")
)

// startup registers the process with Winsock 2.2.
func startup() error {
	var data windows.WSAData
	if err := windows.WSAStartup(uint32(0x0202), &data); err != nil {
		return fmt.Errorf("WSAStartup: %w", err)
	}
	return nil
}

// winsockTransport drives Winsock through golang.org/x/sys/windows.
type winsockTransport struct{}

func (winsockTransport) Socket(kind Kind) (Handle, error) {
	typ, proto := windows.SOCK_STREAM, windows.IPPROTO_TCP
	if kind == Datagram {
		typ, proto = windows.SOCK_DGRAM, windows.IPPROTO_UDP
	}
	s, err := windows.Socket(windows.AF_INET, typ, proto)
	if err != nil {
		return InvalidHandle, err
	}
	if kind == Datagram {
		// Without this an ICMP port-unreachable for an earlier sendto
		// fails the next recvfrom with WSAECONNRESET.
		var off, ret uint32
		err := windows.WSAIoctl(s, windows.SIO_UDP_CONNRESET,
			(*byte)(unsafe.Pointer(&off)), uint32(unsafe.Sizeof(off)), nil, 0, &ret, nil, 0)
		if err != nil {
			windows.Closesocket(s) //nolint:errcheck
			return InvalidHandle, fmt.Errorf("SIO_UDP_CONNRESET: %w", err)
		}
	}
	return Handle(s), nil
}

func (winsockTransport) Bind(h Handle, a Addr) error {
	return windows.Bind(windows.Handle(h), toSockaddr(a))
}

func (winsockTransport) Listen(h Handle, backlog int) error {
	return windows.Listen(windows.Handle(h), backlog)
}

func (winsockTransport) Accept(h Handle) (Handle, Addr, error) {
	var rsa windows.RawSockaddrAny
	l := int32(unsafe.Sizeof(rsa))
	r1, _, e1 := procAccept.Call(uintptr(h),
		uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&l)))
	s := windows.Handle(r1)
	if s == windows.InvalidHandle {
		return InvalidHandle, Addr{}, mapErrno(e1)
	}
	sa, err := rsa.Sockaddr()
	if err != nil {
		windows.Closesocket(s) //nolint:errcheck
		return InvalidHandle, Addr{}, err
	}
	return Handle(s), fromSockaddr(sa), nil
}

func (winsockTransport) Connect(h Handle, a Addr) error {
	return mapErrno(windows.Connect(windows.Handle(h), toSockaddr(a)))
}

func (winsockTransport) Send(h Handle, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: &p[0]}
	var sent uint32
	if err := windows.WSASend(windows.Handle(h), &buf, 1, &sent, 0, nil, nil); err != nil {
		return 0, mapErrno(err)
	}
	return int(sent), nil
}

func (winsockTransport) Recv(h Handle, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: &p[0]}
	var got, flags uint32
	if err := windows.WSARecv(windows.Handle(h), &buf, 1, &got, &flags, nil, nil); err != nil {
		return 0, mapErrno(err)
	}
	return int(got), nil
}

func (winsockTransport) SendTo(h Handle, p []byte, to Addr) (int, error) {
	if err := windows.Sendto(windows.Handle(h), p, 0, toSockaddr(to)); err != nil {
		return 0, mapErrno(err)
	}
	return len(p), nil
}

func (winsockTransport) RecvFrom(h Handle, p []byte) (int, Addr, error) {
	var rsa windows.RawSockaddrAny
	l := int32(unsafe.Sizeof(rsa))
	var buf *byte
	if len(p) > 0 {
		buf = &p[0]
	}
	r1, _, e1 := procRecvfrom.Call(uintptr(h),
		uintptr(unsafe.Pointer(buf)), uintptr(len(p)), 0,
		uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&l)))
	n := int(int32(r1))
	if n < 0 {
		if e1 != windows.WSAEMSGSIZE {
			return 0, Addr{}, mapErrno(e1)
		}
		// Truncated: p is full and the rest of the datagram is gone,
		// matching recvfrom(2) on unix.
		n = len(p)
	}
	sa, err := rsa.Sockaddr()
	if err != nil {
		return 0, Addr{}, err
	}
	return n, fromSockaddr(sa), nil
}

func (winsockTransport) SetBlocking(h Handle, blocking bool) error {
	var mode uint32
	if !blocking {
		mode = 1
	}
	r1, _, e1 := procIoctlsocket.Call(uintptr(h), uintptr(fionbio), uintptr(unsafe.Pointer(&mode)))
	if r1 != 0 {
		return e1
	}
	return nil
}

func (winsockTransport) LocalAddr(h Handle) (Addr, error) {
	sa, err := windows.Getsockname(windows.Handle(h))
	if err != nil {
		return Addr{}, err
	}
	return fromSockaddr(sa), nil
}

func (winsockTransport) CloseWrite(h Handle) error {
	return windows.Shutdown(windows.Handle(h), windows.SHUT_WR)
}

func (winsockTransport) Close(h Handle) error {
	_ = windows.Shutdown(windows.Handle(h), windows.SHUT_RDWR)
	return windows.Closesocket(windows.Handle(h))
}

// ── helpers ──────────────────────────────────────────────────────────

func mapErrno(err error) error {
	if err == windows.WSAEWOULDBLOCK {
		return ncerr.ErrWouldBlock
	}
	return err
}

func toSockaddr(a Addr) *windows.SockaddrInet4 {
	return &windows.SockaddrInet4{Port: int(a.Port), Addr: a.IP}
}

func fromSockaddr(sa windows.Sockaddr) Addr {
	if in4, ok := sa.(*windows.SockaddrInet4); ok {
		return Addr{IP: in4.Addr, Port: uint16(in4.Port)}
	}
	return Addr{}
}
