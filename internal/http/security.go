package http

import (
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// securityMetrics tracks security-related events.
type securityMetrics struct {
	rateLimitHits      int64
	suspiciousRequests int64
}

// defaultTrustedProxies covers loopback and the private ranges, the usual
// homes of a reverse proxy in front of this service.
var defaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// ipResolver resolves the real client IP. Forwarding headers are only
// honored when the direct peer is a trusted proxy; otherwise a client
// could spoof its way past the per-IP rate limit.
type ipResolver struct {
	trusted []*net.IPNet
}

// newIPResolver parses the given CIDRs, falling back to the private-range
// defaults when none are given. Config validation rejects malformed CIDRs
// before they get here; anything unparsable is skipped.
func newIPResolver(cidrs []string) *ipResolver {
	if len(cidrs) == 0 {
		cidrs = defaultTrustedProxies
	}
	res := &ipResolver{}
	for _, cidr := range cidrs {
		if _, network, err := net.ParseCIDR(strings.TrimSpace(cidr)); err == nil {
			res.trusted = append(res.trusted, network)
		}
	}
	return res
}

func (res *ipResolver) isTrustedProxy(ip net.IP) bool {
	for _, network := range res.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP extracts the real client IP, validating forwarded headers.
func (res *ipResolver) clientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		return directIP
	}

	if res.isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
		}
	}

	return directIP
}

// Probes that have no business against a JSON API: path traversal, secret
// files, and injection payloads. Served paths are all short /api routes, so
// anything matching these is a scanner.
var suspiciousPatterns = []string{
	"../", "..\\",
	".env", ".git", ".ssh", "etc/passwd",
	"union select", "<script", "javascript:", "eval(",
}

// Known attack tooling. Plain HTTP clients (curl, wget) are legitimate
// callers of an API and are deliberately not listed.
var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "wpscan",
}

// detectSuspiciousRequest analyzes request patterns for potential threats.
func detectSuspiciousRequest(r *http.Request, metrics *securityMetrics) bool {
	suspicious := false

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			suspicious = true
			break
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			suspicious = true
			break
		}
	}

	switch r.Method {
	case "TRACE", "TRACK", "CONNECT":
		suspicious = true
	}

	if len(r.URL.String()) > 2048 {
		suspicious = true
	}

	// A forwarding chain this deep is header stuffing, not routing.
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		suspicious = true
	}

	if suspicious && metrics != nil {
		atomic.AddInt64(&metrics.suspiciousRequests, 1)
	}

	return suspicious
}
