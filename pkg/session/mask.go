package session

import (
	"net"
	"net/netip"
)

// MaskAddr strips the port from a remote address and, when mask is true,
// hides the host part: IPv4 is reduced to its /16 network and IPv6 to its
// /48 network. Unparseable input is returned as "unknown" when
// masking and unchanged otherwise.
func MaskAddr(remote string, mask bool) string {
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}
	if !mask {
		return host
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return "unknown"
	}
	addr = addr.Unmap()

	if addr.Is4() {
		b := addr.As4()
		return netip.AddrFrom4([4]byte{b[0], b[1], 0, 0}).String() + "/16"
	}

	prefix, err := addr.WithZone("").Prefix(48)
	if err != nil {
		return "unknown"
	}
	return prefix.String()
}
