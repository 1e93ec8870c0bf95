// Package clientip resolves the caller address of an HTTP request from an
// ordered list of extraction strategies. The first strategy that yields a
// valid IP address wins; values that do not parse as an address are skipped
// so the next strategy runs.
//
// Header strategies trust whatever the client (or the proxy in front of it)
// sent. Deployments that are not behind a proxy that overwrites these headers
// should configure a resolver with RemoteAddr only.
package clientip

import (
	"net/http"
	"net/netip"
	"strings"
)

// Unknown is returned when no strategy produced an address.
const Unknown = "unknown"

const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
)

// Strategy extracts a candidate address from r, or "" when it has none.
type Strategy func(r *http.Request) string

// Parse returns the canonical text form of an IP address, accepting an
// optional port and IPv6 brackets. It returns "" for anything else.
func Parse(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if addr, err := netip.ParseAddr(value); err == nil {
		return addr.Unmap().String()
	}
	if ap, err := netip.ParseAddrPort(value); err == nil {
		return ap.Addr().Unmap().String()
	}
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		if addr, err := netip.ParseAddr(value[1 : len(value)-1]); err == nil {
			return addr.Unmap().String()
		}
	}
	return ""
}

// Header returns a strategy reading a single-valued header.
func Header(name string) Strategy {
	return func(r *http.Request) string {
		return Parse(r.Header.Get(name))
	}
}

// ForwardedFor returns a strategy reading the first entry of a
// comma-separated forwarding header such as X-Forwarded-For.
func ForwardedFor(name string) Strategy {
	return func(r *http.Request) string {
		value := r.Header.Get(name)
		if value == "" {
			return ""
		}
		first, _, _ := strings.Cut(value, ",")
		return Parse(first)
	}
}

// RemoteAddr returns the socket peer address without its port.
func RemoteAddr() Strategy {
	return func(r *http.Request) string {
		return Parse(r.RemoteAddr)
	}
}

// Resolver applies strategies in order.
type Resolver struct {
	strategies []Strategy
}

// New builds a resolver from explicit strategies.
func New(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Default is CF-Connecting-IP, X-Forwarded-For (first hop), X-Real-IP,
// then the socket address.
func Default() *Resolver {
	return FromHeaders([]string{HeaderCFConnectingIP, HeaderXForwardedFor, HeaderXRealIP})
}

// FromHeaders builds a resolver that consults headers in the given order and
// falls back to the socket address. X-Forwarded-For style headers are split
// on commas.
func FromHeaders(headers []string) *Resolver {
	strategies := make([]Strategy, 0, len(headers)+1)
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if strings.EqualFold(h, HeaderXForwardedFor) || strings.EqualFold(h, "Forwarded-For") {
			strategies = append(strategies, ForwardedFor(h))
			continue
		}
		strategies = append(strategies, Header(h))
	}
	strategies = append(strategies, RemoteAddr())
	return New(strategies...)
}

// Resolve returns the first strategy result that is a valid address, or
// Unknown.
func (res *Resolver) Resolve(r *http.Request) string {
	if res == nil || r == nil {
		return Unknown
	}
	for _, strategy := range res.strategies {
		if ip := Parse(strategy(r)); ip != "" {
			return ip
		}
	}
	return Unknown
}
