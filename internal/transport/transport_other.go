//go:build !unix && !windows

package transport

import ncerr "mininet/internal/errors"

var native Transport = unsupportedTransport{} //nolint:gochecknoglobals

func startup() error { return ncerr.ErrNotSupported }

// unsupportedTransport fails every call on platforms without BSD sockets.
type unsupportedTransport struct{}

func (unsupportedTransport) Socket(Kind) (Handle, error) {
	return InvalidHandle, ncerr.ErrNotSupported
}
func (unsupportedTransport) Bind(Handle, Addr) error { return ncerr.ErrNotSupported }
func (unsupportedTransport) Listen(Handle, int) error { return ncerr.ErrNotSupported }
func (unsupportedTransport) Accept(Handle) (Handle, Addr, error) {
	return InvalidHandle, Addr{}, ncerr.ErrNotSupported
}
func (unsupportedTransport) Connect(Handle, Addr) error { return ncerr.ErrNotSupported }
func (unsupportedTransport) Send(Handle, []byte) (int, error) {
	return 0, ncerr.ErrNotSupported
}
func (unsupportedTransport) Recv(Handle, []byte) (int, error) {
	return 0, ncerr.ErrNotSupported
}
func (unsupportedTransport) SendTo(Handle, []byte, Addr) (int, error) {
	return 0, ncerr.ErrNotSupported
}
func (unsupportedTransport) RecvFrom(Handle, []byte) (int, Addr, error) {
	return 0, Addr{}, ncerr.ErrNotSupported
}
func (unsupportedTransport) SetBlocking(Handle, bool) error { return ncerr.ErrNotSupported }
func (unsupportedTransport) LocalAddr(Handle) (Addr, error) {
	return Addr{}, ncerr.ErrNotSupported
}
func (unsupportedTransport) CloseWrite(Handle) error { return ncerr.ErrNotSupported }
func (unsupportedTransport) Close(Handle) error      { return ncerr.ErrNotSupported }
