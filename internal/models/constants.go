package models

// SourceType tags the provenance of a snapshot. A snapshot never mixes types.
type SourceType string

const (
	SourceTypeXtream SourceType = "xtream"
	SourceTypeM3U    SourceType = "m3u"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	return t == SourceTypeXtream || t == SourceTypeM3U
}

// CategoryKind is the content kind a category belongs to.
type CategoryKind string

const (
	KindLive   CategoryKind = "live"
	KindMovie  CategoryKind = "movie"
	KindSeries CategoryKind = "series"
)

// Kinds lists every content kind in canonical order.
var Kinds = []CategoryKind{KindLive, KindMovie, KindSeries}

// ParseKind returns the kind named by s, accepting "vod" as an alias for movie.
func ParseKind(s string) (CategoryKind, bool) {
	switch s {
	case "live":
		return KindLive, true
	case "movie", "vod":
		return KindMovie, true
	case "series":
		return KindSeries, true
	}
	return "", false
}

// UncategorizedName is the display name of the synthetic fallback category.
const UncategorizedName = "Uncategorized"

// UncategorizedID is the sentinel category id used when content references a
// category missing from its kind's set.
func UncategorizedID(kind CategoryKind) string {
	return "uncategorized_" + string(kind)
}
