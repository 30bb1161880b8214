package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want CategoryKind
		ok   bool
	}{
		{"live", KindLive, true},
		{"movie", KindMovie, true},
		{"vod", KindMovie, true},
		{"series", KindSeries, true},
		{"radio", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKind(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCategoryName(t *testing.T) {
	d := NewIPTVData(SourceTypeM3U, "http://x/list.m3u")
	d.Categories.Set(KindLive, []Category{{ID: "news", Name: "News", Kind: KindLive}})

	if got := d.CategoryName(KindLive, "news"); got != "News" {
		t.Errorf("known id = %q", got)
	}
	if got := d.CategoryName(KindLive, "gone"); got != "uncategorized_live" {
		t.Errorf("unknown id = %q", got)
	}
	// Sets are independent per kind.
	if got := d.CategoryName(KindMovie, "news"); got != UncategorizedID(KindMovie) {
		t.Errorf("other kind = %q", got)
	}
}

func TestNewIPTVData_EncodesEmptyLists(t *testing.T) {
	b, err := json.Marshal(NewIPTVData(SourceTypeXtream, "http://h:80"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"liveChannels":[]`, `"movies":[]`, `"series":[]`, `"live":[]`, `"accountInfo":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in %s", want, s)
		}
	}
}

func TestSource_OriginAndPassword(t *testing.T) {
	x := &Source{SourceType: SourceTypeXtream, BaseURL: "http://h:8080", Password: "pw"}
	m := &Source{SourceType: SourceTypeM3U, PlaylistURL: "http://h/list.m3u"}
	if x.Origin() != "http://h:8080" || m.Origin() != "http://h/list.m3u" {
		t.Errorf("origins = %q, %q", x.Origin(), m.Origin())
	}
	b, _ := json.Marshal(x)
	if strings.Contains(string(b), "pw") {
		t.Errorf("password leaked: %s", b)
	}
	if SourceType("stalker").Valid() || !SourceTypeM3U.Valid() {
		t.Error("Valid mismatch")
	}
}
