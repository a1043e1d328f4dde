package endpoint

import "mininet/internal/transport"

// Addr is an IPv4 address and port.
type Addr = transport.Addr

// ParseAddr parses a dotted-decimal IPv4 literal.  Host names are not
// resolved.
func ParseAddr(ip string, port uint16) (Addr, error) {
	return transport.ParseAddr(ip, port)
}
