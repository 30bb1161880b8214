package xtream

import (
	"net"
	"net/url"
	"strings"

	"github.com/voyagen/runtv/internal/normalize"
)

// StreamBaseURL derives the media origin from server_info. Panels often stream
// from a different host or port than the API, so the API base URL is only
// used when server_info carries no url. The port is kept even when it is the
// scheme's default. A port already in the url is replaced by the advertised
// one, or kept when none is advertised.
func StreamBaseURL(serverInfo normalize.Record, apiBaseURL string) string {
	host := serverInfo.Str("url")
	if host == "" {
		return strings.TrimRight(apiBaseURL, "/")
	}
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.TrimRight(host, "/")
	var urlPort string
	if h, p, err := net.SplitHostPort(host); err == nil {
		host, urlPort = h, p
	}

	proto := strings.ToLower(serverInfo.Str("server_protocol"))
	if proto == "" {
		proto = "http"
	}
	port := serverInfo.Str("port")
	if proto == "https" {
		if hp := serverInfo.Str("https_port"); hp != "" {
			port = hp
		}
	}
	if port == "" {
		port = urlPort
	}
	if port == "" {
		return proto + "://" + host
	}
	return proto + "://" + net.JoinHostPort(host, port)
}

// StreamURLs builds credentialed stream URLs against one media origin.
type StreamURLs struct {
	Base     string
	Username string
	Password string
}

// Live returns {base}/live/{user}/{pass}/{id}.{ext}, ext defaulting to ts.
func (s StreamURLs) Live(id, ext string) string {
	if ext == "" {
		ext = "ts"
	}
	return s.build("live", id, ext)
}

// Movie returns {base}/movie/{user}/{pass}/{id}.{ext}, ext defaulting to mp4.
func (s StreamURLs) Movie(id, ext string) string {
	if ext == "" {
		ext = "mp4"
	}
	return s.build("movie", id, ext)
}

func (s StreamURLs) build(kind, id, ext string) string {
	return strings.TrimRight(s.Base, "/") + "/" + kind + "/" +
		url.PathEscape(s.Username) + "/" + url.PathEscape(s.Password) + "/" +
		url.PathEscape(id) + "." + url.PathEscape(ext)
}
