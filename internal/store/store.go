package store

import (
	"context"
	"errors"

	"github.com/voyagen/runtv/internal/models"
)

// ErrNotFound is returned when a source or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Store defines persistence for sources and their snapshots.
type Store interface {
	// CreateOrGetSource registers a source, or returns the id of the existing
	// source with the same type, origin and username (updating its password).
	CreateOrGetSource(ctx context.Context, src *models.Source) (int64, error)

	// ListSources returns all sources. Callers that need credentials use
	// GetSourceByID; cached listings carry no passwords.
	ListSources(ctx context.Context) ([]models.Source, error)
	// GetSourceByID returns a single source by id, credentials included.
	GetSourceByID(ctx context.Context, sourceID int64) (*models.Source, error)
	// UpdateSource updates mutable fields of a source.
	UpdateSource(ctx context.Context, sourceID int64, fields SourceUpdate) error
	// DeleteSource deletes a source and its snapshot.
	DeleteSource(ctx context.Context, sourceID int64) error

	// SaveSnapshot replaces the source's snapshot wholesale and sets
	// last_updated, atomically.
	SaveSnapshot(ctx context.Context, sourceID int64, data *models.IPTVData) error
	// GetSnapshot returns the source's current snapshot.
	GetSnapshot(ctx context.Context, sourceID int64) (*models.IPTVData, error)

	Close() error
}

// SourceUpdate holds mutable fields for PATCH /sources/{id}.
// Pointer fields: nil = don't change, non-nil = set.
type SourceUpdate struct {
	Name    *string
	Enabled *bool
}

// sameIdentity reports whether two sources point at the same account.
func sameIdentity(a, b *models.Source) bool {
	return a.SourceType == b.SourceType &&
		a.BaseURL == b.BaseURL &&
		a.Username == b.Username &&
		a.PlaylistURL == b.PlaylistURL
}
