// Package guard validates target URLs before any network traffic happens.
// It rejects non-HTTP(S) schemes and IP-literal hosts inside private,
// loopback, or link-local ranges to reduce SSRF exposure.
package guard

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// blockedNets lists RFC1918 and friends. Hostnames that are not IP literals
// are NOT resolved: a name pointing at a private address passes the guard.
var blockedNets = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// ValidationError describes a URL that failed validation. The message is
// safe to show to end users as-is.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validate parses rawURL and checks scheme, host presence, and private-range
// IP literals. It returns the parsed URL on success.
func Validate(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &ValidationError{
			URL:    rawURL,
			Reason: "please enter a valid http(s) URL (e.g., https://example.com/page)",
		}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &ValidationError{
			URL:    rawURL,
			Reason: fmt.Sprintf("unsupported URL scheme %q: only http and https are allowed", parsed.Scheme),
		}
	}

	if IsPrivateHost(parsed.Hostname()) {
		return nil, &ValidationError{
			URL:    rawURL,
			Reason: "private/loopback addresses are not allowed",
		}
	}

	return parsed, nil
}

// IsPrivateHost reports whether hostname is an IP literal inside one of the
// blocked ranges. Non-literal hostnames always return false.
func IsPrivateHost(hostname string) bool {
	// Bracketed IPv6 literals arrive unbracketed from url.Hostname(), but
	// accept either form.
	hostname = strings.Trim(hostname, "[]")
	addr, err := netip.ParseAddr(hostname)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range blockedNets {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
