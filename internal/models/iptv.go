package models

// IPTVData is the normalized snapshot of one source. Both ingestion paths
// produce it; a new fetch always builds a new value.
type IPTVData struct {
	LiveChannels  []Channel    `json:"liveChannels"`
	Movies        []Movie      `json:"movies"`
	Series        []Series     `json:"series"`
	Categories    Categories   `json:"categories"`
	AccountInfo   *AccountInfo `json:"accountInfo"`
	SourceType    SourceType   `json:"sourceType"`
	DataSourceURL string       `json:"dataSourceUrl"`
}

// NewIPTVData returns a snapshot with empty (non-nil) collections so that it
// encodes as [] rather than null.
func NewIPTVData(t SourceType, origin string) *IPTVData {
	return &IPTVData{
		LiveChannels:  []Channel{},
		Movies:        []Movie{},
		Series:        []Series{},
		Categories:    Categories{Live: []Category{}, Movie: []Category{}, Series: []Category{}},
		SourceType:    t,
		DataSourceURL: origin,
	}
}

// CategoryName resolves a content item's category reference. Ids missing from
// the kind's set resolve to the uncategorized sentinel id.
func (d *IPTVData) CategoryName(kind CategoryKind, id string) string {
	if cat, ok := d.Categories.Lookup(kind, id); ok {
		return cat.Name
	}
	return UncategorizedID(kind)
}

// Counts returns the number of live channels, movies and series.
func (d *IPTVData) Counts() (live, movies, series int) {
	return len(d.LiveChannels), len(d.Movies), len(d.Series)
}
