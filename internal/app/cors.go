package app

import "strings"

// extractOriginHost strips the scheme and port from an Origin header value.
func extractOriginHost(origin string) string {
	host := strings.TrimSpace(origin)
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}
	return strings.ToLower(host)
}

// matchOriginPattern matches a host against an allowed-origin pattern.
// "*.example.com" matches any subdomain plus the apex; everything else is an
// exact match.
func matchOriginPattern(pattern, host string) bool {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "" || host == "" {
		return false
	}
	if p == "*" {
		return true
	}
	if strings.HasPrefix(p, "*.") {
		suffix := p[1:] // ".example.com"
		return strings.HasSuffix(host, suffix) || host == p[2:]
	}
	return host == p
}
