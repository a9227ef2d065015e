package fetcher

import (
	"math/rand"
)

const (
	desktopUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0 Safari/537.36"
	windowsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0 Safari/537.36"
	mobileUserAgent = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0 Mobile Safari/537.36"
)

// userAgentPool feeds the browser-like profile. A random pick per fetch
// keeps repeated requests from carrying one fingerprint.
var userAgentPool = []string{
	desktopUserAgent,
	windowsUserAgent,
}

// Profile is a header strategy for a static fetch. Strategies escalate
// from plain to increasingly browser-like.
type Profile struct {
	Name      string
	UserAgent string
	// Headers are set verbatim on the request.
	Headers map[string]string
	// SendReferer adds a same-origin Referer pointing at the site root.
	SendReferer bool
	// WarmUp issues a GET to the site root first so session cookies
	// exist before the real fetch.
	WarmUp bool
}

// ResolveUserAgent returns the profile's UA, picking randomly from the
// pool when none is pinned.
func (p Profile) ResolveUserAgent() string {
	if p.UserAgent != "" {
		return p.UserAgent
	}
	return userAgentPool[rand.Intn(len(userAgentPool))] //#nosec G404 -- UA rotation, not crypto
}

// browseryHeaders resemble what a real browser sends on a top-level
// navigation. Accept-Encoding is pinned to identity so the byte cap
// applies to the bytes actually decoded.
func browseryHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-GB,en;q=0.9",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"DNT":                       "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Upgrade-Insecure-Requests": "1",
		"Accept-Encoding":           "identity",
	}
}

// PlainProfile is the first strategy: a desktop UA and nothing else.
func PlainProfile() Profile {
	return Profile{
		Name:      "plain",
		UserAgent: desktopUserAgent,
	}
}

// BrowserProfile is the escalated strategy: full browser headers, rotated
// UA, same-origin Referer, and optionally a warm-up request.
func BrowserProfile(warmUp bool) Profile {
	return Profile{
		Name:        "browser",
		Headers:     browseryHeaders(),
		SendReferer: true,
		WarmUp:      warmUp,
	}
}

// MobileProfile mimics a phone browser. Some origins serve lighter,
// less-guarded pages to mobile clients.
func MobileProfile() Profile {
	h := browseryHeaders()
	h["Sec-Ch-Ua-Mobile"] = "?1"
	return Profile{
		Name:        "mobile",
		UserAgent:   mobileUserAgent,
		Headers:     h,
		SendReferer: true,
	}
}
