// Package validate checks source URLs before any network call is made.
package validate

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/grafana/regexp"
)

// xtreamBaseRe matches scheme://host:port with nothing after the port.
var xtreamBaseRe = regexp.MustCompile(`^(https?://)([a-zA-Z0-9.-]+)(:\d+)$`)

// IsValidXtreamBaseURL reports whether s is an Xtream panel origin of the form
// http(s)://host:port. Paths, queries and trailing slashes are rejected.
func IsValidXtreamBaseURL(s string) bool {
	m := xtreamBaseRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	port, err := strconv.Atoi(strings.TrimPrefix(m[3], ":"))
	return err == nil && port > 0 && port <= 65535
}

// IsValidPlaylistURL reports whether s is an absolute http(s) URL with a host.
// Path and query are optional.
func IsValidPlaylistURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
