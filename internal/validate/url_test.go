package validate

import "testing"

func TestIsValidXtreamBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://example.com:8080", true},
		{"https://panel.example.org:443", true},
		{"http://10.0.0.1:80", true},
		{"http://example.com/path", false},
		{"http://example.com:8080/", false},
		{"http://example.com:8080/player_api.php", false},
		{"http://example.com:8080?x=1", false},
		{"http://example.com", false},
		{"ftp://example.com:21", false},
		{"example.com:8080", false},
		{"http://example.com:0", false},
		{"http://example.com:70000", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidXtreamBaseURL(tt.in); got != tt.want {
			t.Errorf("IsValidXtreamBaseURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsValidPlaylistURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://x/list.m3u", true},
		{"https://provider.tv/get.php?username=u&password=p&type=m3u_plus", true},
		{"http://example.com:8080", true},
		{"ftp://example.com/list.m3u", false},
		{"/local/list.m3u", false},
		{"http://", false},
		{"http://exa mple.com/list.m3u", false},
		{"not a url", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidPlaylistURL(tt.in); got != tt.want {
			t.Errorf("IsValidPlaylistURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
