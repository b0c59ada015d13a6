package router

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
)

type clientIPKey struct{}

// ClientIP returns the client address resolved for the request, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// trustedProxies parses app.server.http.trusted_proxies. Entries are single
// addresses or CIDR prefixes; invalid entries are skipped with a warning.
func trustedProxies(cfg config.Config) []netip.Prefix {
	if cfg == nil {
		return nil
	}

	return lo.FilterMap(cfg.GetArray("app.server.http.trusted_proxies"), func(raw string, _ int) (netip.Prefix, bool) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return netip.Prefix{}, false
		}
		if p, err := netip.ParsePrefix(raw); err == nil {
			return p.Masked(), true
		}
		if a, err := netip.ParseAddr(raw); err == nil {
			a = a.Unmap()
			return netip.PrefixFrom(a, a.BitLen()), true
		}
		slog.Warn("ignoring invalid trusted proxy", "value", raw)
		return netip.Prefix{}, false
	})
}

// middlewareIP stores the client address in the request context. The
// connection's RemoteAddr is left untouched.
func middlewareIP(trusted []netip.Prefix) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := realIP(r, trusted); ip != "" {
				r = r.WithContext(context.WithValue(r.Context(), clientIPKey{}, ip))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// realIP resolves the client address. Forwarding headers are honoured only
// when the direct peer is a trusted proxy; X-Forwarded-For is walked from the
// right and the first untrusted hop wins.
func realIP(r *http.Request, trusted []netip.Prefix) string {
	peer, ok := parseAddr(hostOnly(r.RemoteAddr))
	if !ok {
		return ""
	}
	if !isTrusted(peer, trusted) {
		return peer.String()
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, ok := parseAddr(strings.TrimSpace(hops[i]))
			if !ok {
				break
			}
			if !isTrusted(hop, trusted) {
				return hop.String()
			}
		}
	}

	if xrip, ok := parseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ok {
		return xrip.String()
	}

	return peer.String()
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func parseAddr(s string) (netip.Addr, bool) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

func isTrusted(a netip.Addr, trusted []netip.Prefix) bool {
	return lo.ContainsBy(trusted, func(p netip.Prefix) bool { return p.Contains(a) })
}
