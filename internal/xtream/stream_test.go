package xtream

import (
	"testing"

	"github.com/voyagen/runtv/internal/normalize"
)

func TestStreamBaseURL(t *testing.T) {
	tests := []struct {
		name string
		si   normalize.Record
		want string
	}{
		{"http default port kept", normalize.Record{"server_protocol": "http", "url": "stream.example.com", "port": "80"}, "http://stream.example.com:80"},
		{"protocol defaults to http", normalize.Record{"url": "s.example.com", "port": "8000"}, "http://s.example.com:8000"},
		{"https port", normalize.Record{"server_protocol": "https", "url": "s.example.com", "port": "80", "https_port": "443"}, "https://s.example.com:443"},
		{"no port", normalize.Record{"url": "s.example.com"}, "http://s.example.com"},
		{"scheme in url stripped", normalize.Record{"url": "http://s.example.com/", "port": "81"}, "http://s.example.com:81"},
		{"url port replaced by advertised port", normalize.Record{"url": "s.example.com:8080", "port": "80"}, "http://s.example.com:80"},
		{"url port kept without advertised port", normalize.Record{"url": "http://s.example.com:8080/"}, "http://s.example.com:8080"},
		{"https url port replaced", normalize.Record{"server_protocol": "https", "url": "s.example.com:8080", "https_port": "443"}, "https://s.example.com:443"},
		{"falls back to api base", normalize.Record{}, "http://api.example.com:8080"},
		{"nil server_info", nil, "http://api.example.com:8080"},
	}
	for _, tt := range tests {
		if got := StreamBaseURL(tt.si, "http://api.example.com:8080/"); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStreamURLs(t *testing.T) {
	s := StreamURLs{Base: "http://stream.example.com:80", Username: "u", Password: "p/w"}
	if got := s.Live("11", ""); got != "http://stream.example.com:80/live/u/p%2Fw/11.ts" {
		t.Errorf("Live = %q", got)
	}
	if got := s.Movie("7", ""); got != "http://stream.example.com:80/movie/u/p%2Fw/7.mp4" {
		t.Errorf("Movie = %q", got)
	}
	if got := s.Movie("7", "mkv"); got != "http://stream.example.com:80/movie/u/p%2Fw/7.mkv" {
		t.Errorf("Movie mkv = %q", got)
	}
}
