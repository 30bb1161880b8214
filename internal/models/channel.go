package models

// Channel is a live stream entry.
type Channel struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	LogoURL       *string `json:"logoUrl,omitempty"`
	CategoryID    string  `json:"categoryId"`
	StreamURL     string  `json:"streamUrl"`
	EPGNowPlaying *string `json:"epgNowPlaying,omitempty"`
	EPGChannelID  string  `json:"epgChannelId,omitempty"`
	AddedAt       *string `json:"addedAt,omitempty"`
	// TVArchive marks catch-up availability; TVArchiveDays is its depth.
	TVArchive     bool `json:"tvArchive,omitempty"`
	TVArchiveDays *int `json:"tvArchiveDays,omitempty"`
}

// Movie is a video-on-demand entry.
type Movie struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	CoverImageURL      *string  `json:"coverImageUrl,omitempty"`
	CategoryID         string   `json:"categoryId"`
	StreamURL          string   `json:"streamUrl"`
	Rating             *float64 `json:"rating,omitempty"`
	Plot               string   `json:"plot,omitempty"`
	Cast               string   `json:"cast,omitempty"`
	Director           string   `json:"director,omitempty"`
	Genre              string   `json:"genre,omitempty"`
	Duration           string   `json:"duration,omitempty"`
	AddedAt            *string  `json:"addedAt,omitempty"`
	ContainerExtension string   `json:"containerExtension,omitempty"`
}

// Series is a show. Episodes are not loaded with the snapshot.
type Series struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	CoverImageURL  *string  `json:"coverImageUrl,omitempty"`
	CategoryID     string   `json:"categoryId"`
	Plot           string   `json:"plot,omitempty"`
	Cast           string   `json:"cast,omitempty"`
	Director       string   `json:"director,omitempty"`
	Genre          string   `json:"genre,omitempty"`
	ReleaseDate    string   `json:"releaseDate,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	SeasonsCount   *int     `json:"seasonsCount,omitempty"`
	LastModifiedAt *string  `json:"lastModifiedAt,omitempty"`
	BackdropURLs   []string `json:"backdropUrls,omitempty"`
	TrailerID      string   `json:"youtubeTrailer,omitempty"`
}
