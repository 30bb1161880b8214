package models

// Category groups content of a single kind (e.g. group-title from M3U, or an
// Xtream category).
type Category struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Kind CategoryKind `json:"kind"`
}

// Categories holds the three independent per-kind category sets.
type Categories struct {
	Live   []Category `json:"live"`
	Movie  []Category `json:"movie"`
	Series []Category `json:"series"`
}

// For returns the category set of kind.
func (c Categories) For(kind CategoryKind) []Category {
	switch kind {
	case KindLive:
		return c.Live
	case KindMovie:
		return c.Movie
	case KindSeries:
		return c.Series
	}
	return nil
}

// Set replaces the category set of kind.
func (c *Categories) Set(kind CategoryKind, cats []Category) {
	switch kind {
	case KindLive:
		c.Live = cats
	case KindMovie:
		c.Movie = cats
	case KindSeries:
		c.Series = cats
	}
}

// Lookup finds a category by id within kind's set.
func (c Categories) Lookup(kind CategoryKind, id string) (Category, bool) {
	for _, cat := range c.For(kind) {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}
