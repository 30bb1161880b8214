package models

// AccountInfo describes an Xtream subscription. M3U sources have none.
type AccountInfo struct {
	Username             string   `json:"username"`
	Status               string   `json:"status"`
	ExpiryDate           *string  `json:"expiryDate,omitempty"`
	IsTrial              bool     `json:"isTrial"`
	ActiveConnections    int      `json:"activeConnections"`
	MaxConnections       int      `json:"maxConnections"`
	CreatedAt            *string  `json:"createdAt,omitempty"`
	AllowedOutputFormats []string `json:"allowedOutputFormats,omitempty"`
}
