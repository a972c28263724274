// Package useragent turns a User-Agent header into the short client label
// recorded on activity entries ("Chrome on Mac OS X").
package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownClient = "Unknown Client"

// ParseUserAgent returns "<browser> on <os>", or "Unknown Client" for an empty header.
func ParseUserAgent(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return unknownClient
	}
	ua := useragent.New(header)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "Bot " + fallback(name, "Unknown")
	}

	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	return fallback(browser, "Unknown Browser") + " on " + fallback(os, "Unknown OS")
}

func fallback(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}
