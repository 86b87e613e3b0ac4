package util

import (
	"fmt"
	"net"

	utilnet "k8s.io/utils/net"
)

// IP families as used in OVN match expressions
const (
	IPv4 = "ip4"
	IPv6 = "ip6"
)

// IPFamily returns "ip4" or "ip6" for an IP address or CIDR, "" if it is
// neither
func IPFamily(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		var err error
		if ip, _, err = net.ParseCIDR(addr); err != nil {
			return ""
		}
	}
	if utilnet.IsIPv6(ip) {
		return IPv6
	}
	return IPv4
}

// IPVersion returns 4 or 6 for an IP address or CIDR, 0 if it is neither
func IPVersion(addr string) int {
	switch IPFamily(addr) {
	case IPv4:
		return 4
	case IPv6:
		return 6
	}
	return 0
}

// SplitByFamily splits the addresses into IPv4 and IPv6 ones, dropping
// the invalid ones
func SplitByFamily(addrs []string) (v4, v6 []string) {
	for _, addr := range addrs {
		switch IPFamily(addr) {
		case IPv4:
			v4 = append(v4, addr)
		case IPv6:
			v6 = append(v6, addr)
		}
	}
	return v4, v6
}

// IPWithPrefixLen returns ip in CIDR notation with the prefix length of
// cidr, e.g. 10.0.0.1/24 for 10.0.0.1 in 10.0.0.0/24
func IPWithPrefixLen(ip, cidr string) (string, error) {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return "", fmt.Errorf("invalid IP address %q", ip)
	}
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	if !ipNet.Contains(parsedIP) {
		return "", fmt.Errorf("IP address %s is not in %s", ip, cidr)
	}
	ones, _ := ipNet.Mask.Size()
	return fmt.Sprintf("%s/%d", parsedIP, ones), nil
}
