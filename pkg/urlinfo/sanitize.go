package urlinfo

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	urlExtractRe = regexp.MustCompile(`(?i)(https?://[^\s<>"')\]]+)`)
	schemeRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+\-.]*://`)
)

// Sanitize extracts a best-effort single URL from arbitrary input.
// Leading '@' runs are stripped, the first http(s) token wins over
// surrounding prose, and wrapper characters <>[]() are trimmed from
// both ends. An empty result means the input had no usable URL and
// must be rejected by the caller.
func Sanitize(text string) string {
	v := strings.TrimSpace(text)
	if strings.HasPrefix(v, "@") {
		v = strings.TrimSpace(strings.TrimLeft(v, "@"))
	}
	if m := urlExtractRe.FindString(v); m != "" {
		v = m
	}
	return strings.Trim(v, "<>[]()")
}

// EnsureScheme prepends http:// when the string has no scheme prefix.
func EnsureScheme(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || schemeRe.MatchString(u) {
		return u
	}
	return "http://" + u
}

// NormalizeURL prepares a URL for exact-list equality: trim whitespace
// and a single trailing slash.
func NormalizeURL(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

// NormalizeHost lowercases a host and strips one leading "www." prefix.
func NormalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(h, "www.")
}

// Host parses the hostname out of a URL, ensuring a scheme first so
// bare domains parse. Returns "" when the URL has no parseable host.
func Host(u string) string {
	parsed, err := url.Parse(EnsureScheme(u))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// SLD returns the second-level domain label of a host ("example" in
// "www.example.com"). A host without dots is its own SLD.
func SLD(host string) string {
	if host == "" {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return parts[0]
}

// TLD returns the final label of a host, or "" for an empty host.
func TLD(host string) string {
	if host == "" {
		return ""
	}
	parts := strings.Split(host, ".")
	return parts[len(parts)-1]
}

// HostMatches reports whether host equals known or is a subdomain of
// it. Both sides are normalized before comparison.
func HostMatches(host, known string) bool {
	base := NormalizeHost(host)
	k := NormalizeHost(known)
	if base == "" || k == "" {
		return false
	}
	return base == k || strings.HasSuffix(base, "."+k)
}
