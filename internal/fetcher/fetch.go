package fetcher

import (
	"bytes"
	"context"
	"fmt"

	"github.com/voyagen/runtv/internal/models"
)

// M3UFetcher downloads and parses playlists through a shared Client.
type M3UFetcher struct {
	client *Client
	// OnParsed, when set, observes every successful parse (used for metrics).
	OnParsed func(pl *Playlist)
}

// NewM3UFetcher returns a fetcher that issues requests through c.
func NewM3UFetcher(c *Client) *M3UFetcher {
	return &M3UFetcher{client: c}
}

// Fetch issues one GET for the playlist and parses it into a snapshot.
// A non-2xx status is an unexpected response; so is a body that fails to scan.
func (f *M3UFetcher) Fetch(ctx context.Context, playlistURL string) (*models.IPTVData, error) {
	resp, err := f.client.Get(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, NewError(ErrUnexpectedResponse, "", fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	pl, err := ParseM3U(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, NewError(ErrUnexpectedResponse, "", err)
	}
	if f.OnParsed != nil {
		f.OnParsed(pl)
	}
	return BuildIPTVData(playlistURL, pl), nil
}
