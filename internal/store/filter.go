package store

import (
	"strings"

	"github.com/voyagen/runtv/internal/models"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ContentFilter selects items from a snapshot for listing.
type ContentFilter struct {
	CategoryID string // exact match, empty = all
	Search     string // case-insensitive substring match on name
	Limit      int    // default 50, max 200
	Offset     int
}

func (f ContentFilter) normalized() ContentFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
	return f
}

func (f ContentFilter) match(name, categoryID string) bool {
	if f.CategoryID != "" && f.CategoryID != categoryID {
		return false
	}
	return f.Search == "" || strings.Contains(strings.ToLower(name), f.Search)
}

// page returns the filtered window of items and the total match count
// (before limit/offset).
func page[T any](items []T, f ContentFilter, key func(T) (name, categoryID string)) ([]T, int) {
	f = f.normalized()
	out := make([]T, 0)
	total := 0
	for _, it := range items {
		name, cat := key(it)
		if !f.match(name, cat) {
			continue
		}
		if total >= f.Offset && len(out) < f.Limit {
			out = append(out, it)
		}
		total++
	}
	return out, total
}

// FilterChannels lists live channels of a snapshot.
func FilterChannels(d *models.IPTVData, f ContentFilter) ([]models.Channel, int) {
	return page(d.LiveChannels, f, func(c models.Channel) (string, string) { return c.Name, c.CategoryID })
}

// FilterMovies lists movies of a snapshot.
func FilterMovies(d *models.IPTVData, f ContentFilter) ([]models.Movie, int) {
	return page(d.Movies, f, func(m models.Movie) (string, string) { return m.Name, m.CategoryID })
}

// FilterSeries lists series of a snapshot.
func FilterSeries(d *models.IPTVData, f ContentFilter) ([]models.Series, int) {
	return page(d.Series, f, func(s models.Series) (string, string) { return s.Name, s.CategoryID })
}
