package dispatcher

import (
	"fmt"
	"net/netip"
	"strings"
)

// Pseudonymise masks the host part of an IP address: the last IPv4 octet, or
// everything after the first three IPv6 groups. Non-IP identifiers pass through.
func Pseudonymise(client string) string {
	addr, err := netip.ParseAddr(client)
	if err != nil {
		return client
	}

	if addr.Is4() || addr.Is4In6() {
		a := addr.Unmap().As4()
		return fmt.Sprintf("%d.%d.%d.x", a[0], a[1], a[2])
	}

	groups := strings.Split(addr.StringExpanded(), ":")
	return strings.Join(groups[:3], ":") + "::x"
}
