package ratelimit

import (
	"net"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// forwardedHeaders is the prioritized list of proxy headers consulted
// before falling back to the direct peer address, grounded in the
// teacher's RateLimitMiddleware.extractClientIP, generalized to a
// priority list and restricted to valid dotted-quad IPv4 per the
// client-identity rule.
var forwardedHeaders = []string{"X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP", "True-Client-IP"}

// HeaderSource abstracts the subset of an HTTP request the controller
// needs to resolve client identity, decoupling this package from any
// particular web framework (gin, net/http, ...).
type HeaderSource interface {
	Header(name string) string
	RemoteAddr() string
}

// ClientIP resolves the first valid IPv4 address from the prioritized
// forwarded-for headers, falling back to the direct peer address.
func ClientIP(src HeaderSource) string {
	for _, h := range forwardedHeaders {
		v := src.Header(h)
		if v == "" {
			continue
		}
		for _, candidate := range strings.Split(v, ",") {
			if ip := firstIPv4(candidate); ip != "" {
				return ip
			}
		}
	}
	return firstIPv4(stripPort(src.RemoteAddr()))
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func firstIPv4(s string) string {
	s = strings.TrimSpace(s)
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ""
}

// hasBearerToken reports whether an Authorization header carries a
// syntactically well-formed JWT bearer token. The token is parsed
// without signature verification: §6's auth/admin classification only
// needs to distinguish "presented a token" from "anonymous" so the
// right limit profile and reputation bucket are picked; authenticating
// the token against a signing key is the out-of-scope auth
// collaborator's job (§1 Non-goals).
func hasBearerToken(authHeader string) bool {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	if raw == "" {
		return false
	}
	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	return err == nil
}
