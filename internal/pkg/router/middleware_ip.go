package router

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// singleIPHeaders are set by the edge proxy to the one client address it saw.
var singleIPHeaders = []string{"True-Client-IP", "X-Real-IP"}

// ParseTrustedProxies reads addresses and CIDR ranges of proxies whose
// forwarding headers may be believed. Blank entries are skipped.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}

		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("router: trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}

		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("router: trusted proxy %q: %w", e, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// middlewareIP rewrites RemoteAddr to the client address so the rate limiter
// and request logs key on the caller rather than the proxy. Forwarding headers
// are ignored unless the connection comes from a trusted proxy.
func middlewareIP(trusted []netip.Prefix) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if addr, ok := clientAddr(r, trusted); ok {
				r.RemoteAddr = addr.String()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return netip.Addr{}, false
	}
	if !isTrusted(peer, trusted) {
		return peer, true
	}

	for _, h := range singleIPHeaders {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(h))); err == nil {
			return addr.Unmap(), true
		}
	}

	if addr, ok := forwardedFor(r.Header.Values("X-Forwarded-For"), trusted); ok {
		return addr, true
	}

	return peer, true
}

// forwardedFor walks the hop list from the nearest proxy outwards and returns
// the first address that is not a trusted proxy.
func forwardedFor(values []string, trusted []netip.Prefix) (netip.Addr, bool) {
	var hops []string
	for _, v := range values {
		hops = append(hops, strings.Split(v, ",")...)
	}

	var last netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		addr = addr.Unmap()
		if !isTrusted(addr, trusted) {
			return addr, true
		}
		last = addr
	}

	return last, last.IsValid()
}

func peerAddr(remote string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
