package models

import "time"

// Source is a registered IPTV source plus the credentials needed to refresh it.
type Source struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	SourceType  SourceType `json:"sourceType"`
	BaseURL     string     `json:"baseUrl,omitempty"`
	Username    string     `json:"username,omitempty"`
	Password    string     `json:"-"`
	PlaylistURL string     `json:"playlistUrl,omitempty"`
	Enabled     bool       `json:"enabled"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Origin is the URL a snapshot of this source is attributed to.
func (s *Source) Origin() string {
	if s.SourceType == SourceTypeXtream {
		return s.BaseURL
	}
	return s.PlaylistURL
}
