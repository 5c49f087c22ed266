package util

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is the set of proxy addresses whose forwarded headers we
// believe. A nil value trusts no proxy at all.
type TrustedProxies struct {
	ranges []*net.IPNet
}

// NewTrustedProxies builds the allowlist from CIDR blocks or single IPs.
// Blank entries are skipped; an empty list yields nil.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	var ranges []*net.IPNet
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		block, err := parseProxyEntry(entry)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, block)
	}
	if len(ranges) == 0 {
		return nil, nil
	}
	return &TrustedProxies{ranges: ranges}, nil
}

func parseProxyEntry(entry string) (*net.IPNet, error) {
	if strings.Contains(entry, "/") {
		_, block, err := net.ParseCIDR(entry)
		return block, err
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil, &net.ParseError{Type: "IP address", Text: entry}
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Contains reports whether ip falls in any trusted range.
func (t *TrustedProxies) Contains(ip net.IP) bool {
	if t == nil || ip == nil {
		return false
	}
	for _, block := range t.ranges {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resolves the real caller address for a request. X-Forwarded-For
// and X-Real-IP are honored only when the direct peer is a trusted proxy;
// otherwise the socket address wins. In a forwarded chain the result is the
// rightmost hop that is not itself a trusted proxy.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	peer := hostIP(r.RemoteAddr)
	if peer == nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	if !trusted.Contains(peer) {
		return peer.String()
	}

	if chain := forwardedChain(r.Header.Get("X-Forwarded-For"), peer); len(chain) > 0 {
		for i := len(chain) - 1; i >= 0; i-- {
			if !trusted.Contains(chain[i]) {
				return chain[i].String()
			}
		}
		// Every hop trusted: take the origin end of the chain.
		return chain[0].String()
	}

	if real := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); real != nil {
		return real.String()
	}
	return peer.String()
}

// forwardedChain parses an X-Forwarded-For value and appends the direct peer
// so the whole hop sequence can be walked right to left. Unparseable hops are
// dropped; an empty header yields nil.
func forwardedChain(header string, peer net.IP) []net.IP {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	var chain []net.IP
	for _, hop := range strings.Split(header, ",") {
		if ip := net.ParseIP(strings.TrimSpace(hop)); ip != nil {
			chain = append(chain, ip)
		}
	}
	if len(chain) == 0 {
		return nil
	}
	return append(chain, peer)
}

func hostIP(addr string) net.IP {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
