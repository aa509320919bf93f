package common

import (
	"net/url"
	"strings"
)

// IsValidURL accepts absolute http(s) URLs only.
func IsValidURL(rawurl string) bool {
	parsed, err := url.ParseRequestURI(rawurl)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && len(parsed.Host) > 0
}

// HostnameOf returns the host[:port] part of an endpoint URL, or an empty
// string when the URL cannot be parsed.
func HostnameOf(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return parsed.Host
}
