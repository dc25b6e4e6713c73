// Package iprange matches dotted-quad IPv4 addresses against address/prefix ranges.
package iprange

import (
	"encoding/binary"
	"net/netip"
	"strconv"
	"strings"
)

// Matcher reports whether ip falls inside cidr
type Matcher func(ip, cidr string) bool

// InRange reports whether ip is inside cidr. cidr is "address[/prefix]" and
// the prefix defaults to 32. Anything malformed yields false.
func InRange(ip, cidr string) bool {
	addr, prefix, ok := strings.Cut(cidr, "/")
	bits := 32
	if ok {
		n, err := strconv.Atoi(prefix)
		if err != nil || n < 0 || n > 32 {
			return false
		}
		bits = n
	}

	ipInt, ok := toUint32(ip)
	if !ok {
		return false
	}
	rangeInt, ok := toUint32(addr)
	if !ok {
		return false
	}

	mask := ^uint32((uint64(1) << (32 - bits)) - 1)
	return ipInt&mask == rangeInt&mask
}

// toUint32 accepts exactly four decimal octets in [0,255] without leading
// zeros or a trailing dot.
func toUint32(s string) (uint32, bool) {
	if s == "" || strings.HasSuffix(s, ".") {
		return 0, false
	}
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is4() {
		return 0, false
	}
	b := a.As4()
	return binary.BigEndian.Uint32(b[:]), true
}
