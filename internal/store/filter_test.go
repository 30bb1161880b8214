package store

import (
	"fmt"
	"testing"

	"github.com/voyagen/runtv/internal/models"
)

func snapshotWithChannels(n int) *models.IPTVData {
	d := models.NewIPTVData(models.SourceTypeM3U, "http://x/list.m3u")
	for i := 0; i < n; i++ {
		cat := "news"
		if i%2 == 1 {
			cat = "sport"
		}
		d.LiveChannels = append(d.LiveChannels, models.Channel{ID: fmt.Sprint(i), Name: fmt.Sprintf("Channel %d", i), CategoryID: cat})
	}
	return d
}

func TestFilterChannels(t *testing.T) {
	d := snapshotWithChannels(10)
	tests := []struct {
		name      string
		f         ContentFilter
		wantLen   int
		wantTotal int
		wantFirst string
	}{
		{"all", ContentFilter{}, 10, 10, "0"},
		{"category", ContentFilter{CategoryID: "sport"}, 5, 5, "1"},
		{"search case-insensitive", ContentFilter{Search: "CHANNEL 3"}, 1, 1, "3"},
		{"limit and offset", ContentFilter{Limit: 3, Offset: 4}, 3, 10, "4"},
		{"offset past end", ContentFilter{Offset: 20}, 0, 10, ""},
		{"category and page", ContentFilter{CategoryID: "news", Limit: 2, Offset: 1}, 2, 5, "2"},
	}
	for _, tt := range tests {
		got, total := FilterChannels(d, tt.f)
		if len(got) != tt.wantLen || total != tt.wantTotal {
			t.Errorf("%s: len=%d total=%d, want %d/%d", tt.name, len(got), total, tt.wantLen, tt.wantTotal)
			continue
		}
		if tt.wantFirst != "" && got[0].ID != tt.wantFirst {
			t.Errorf("%s: first = %s, want %s", tt.name, got[0].ID, tt.wantFirst)
		}
	}
}

func TestContentFilterLimits(t *testing.T) {
	if f := (ContentFilter{Limit: 1000}).normalized(); f.Limit != MaxLimit {
		t.Errorf("limit = %d, want %d", f.Limit, MaxLimit)
	}
	if f := (ContentFilter{Offset: -3}).normalized(); f.Limit != DefaultLimit || f.Offset != 0 {
		t.Errorf("filter = %+v", f)
	}
}

func TestFilterHash(t *testing.T) {
	a := FilterHash(models.KindLive, ContentFilter{Search: "News"})
	b := FilterHash(models.KindLive, ContentFilter{Search: " news ", Limit: DefaultLimit})
	c := FilterHash(models.KindMovie, ContentFilter{Search: "news"})
	if a != b {
		t.Error("equivalent filters hash differently")
	}
	if a == c {
		t.Error("different kinds hash the same")
	}
}
