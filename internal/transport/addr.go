package transport

import (
	"net/netip"

	ncerr "mininet/internal/errors"
)

// Addr is a fixed-size IPv4 socket address record.
type Addr struct {
	IP   [4]byte
	Port uint16
}

// Any returns the wildcard address (0.0.0.0) on port.
func Any(port uint16) Addr {
	return Addr{Port: port}
}

// ParseAddr parses a dotted-decimal IPv4 literal.  Host names, IPv6
// literals and IPv4-mapped IPv6 forms are rejected with ErrInvalidAddress.
func ParseAddr(ip string, port uint16) (Addr, error) {
	a, err := netip.ParseAddr(ip)
	if err != nil || !a.Is4() {
		return Addr{}, &ncerr.NetworkError{Op: "address", Addr: ip, Err: ncerr.ErrInvalidAddress}
	}
	return Addr{IP: a.As4(), Port: port}, nil
}

// String formats the address as "a.b.c.d:port".
func (a Addr) String() string {
	return netip.AddrPortFrom(netip.AddrFrom4(a.IP), a.Port).String()
}
