package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/voyagen/runtv/internal/models"
)

const (
	sourcesBucket   = "sources"
	snapshotsBucket = "snapshots"
)

// Bolt implements Store on an embedded BoltDB file. It is the default when no
// DATABASE_URL is configured.
type Bolt struct {
	db  *bbolt.DB
	now func() time.Time
}

// OpenBolt opens (or creates) the database at path and its buckets.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt.Open: %w", err)
	}
	b, err := NewBolt(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewBolt wraps an open database, creating the required buckets.
func NewBolt(db *bbolt.DB) (*Bolt, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{sourcesBucket, snapshotsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Bolt{db: db, now: time.Now}, nil
}

// Close closes the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// sourceDTO is the stored form of a source; unlike the API form it keeps the
// password.
type sourceDTO struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	SourceType  string     `json:"source_type"`
	BaseURL     string     `json:"base_url"`
	Username    string     `json:"username"`
	Password    string     `json:"password"`
	PlaylistURL string     `json:"playlist_url"`
	Enabled     bool       `json:"enabled"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toDTO(s *models.Source) sourceDTO {
	d := sourceDTO{
		ID:          s.ID,
		Name:        s.Name,
		SourceType:  string(s.SourceType),
		BaseURL:     s.BaseURL,
		Username:    s.Username,
		Password:    s.Password,
		PlaylistURL: s.PlaylistURL,
		Enabled:     s.Enabled,
		LastUpdated: s.LastUpdated,
	}
	if s.CreatedAt != nil {
		d.CreatedAt = *s.CreatedAt
	}
	return d
}

func (d sourceDTO) source() models.Source {
	created := d.CreatedAt
	return models.Source{
		ID:          d.ID,
		Name:        d.Name,
		SourceType:  models.SourceType(d.SourceType),
		BaseURL:     d.BaseURL,
		Username:    d.Username,
		Password:    d.Password,
		PlaylistURL: d.PlaylistURL,
		Enabled:     d.Enabled,
		LastUpdated: d.LastUpdated,
		CreatedAt:   &created,
	}
}

func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func getSource(bucket *bbolt.Bucket, id int64) (*models.Source, error) {
	v := bucket.Get(idKey(id))
	if v == nil {
		return nil, ErrNotFound
	}
	var d sourceDTO
	if err := json.Unmarshal(v, &d); err != nil {
		return nil, err
	}
	s := d.source()
	return &s, nil
}

func putSource(bucket *bbolt.Bucket, s *models.Source) error {
	data, err := json.Marshal(toDTO(s))
	if err != nil {
		return err
	}
	return bucket.Put(idKey(s.ID), data)
}

// CreateOrGetSource creates a source if not exists, returns id.
func (b *Bolt) CreateOrGetSource(ctx context.Context, src *models.Source) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var id int64
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sourcesBucket))
		var existing *models.Source
		err := bucket.ForEach(func(k, v []byte) error {
			var d sourceDTO
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			if s := d.source(); existing == nil && sameIdentity(&s, src) {
				existing = &s
			}
			return nil
		})
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Password = src.Password
			id = existing.ID
			return putSource(bucket, existing)
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		now := b.now().UTC()
		s := *src
		s.ID = int64(seq)
		s.Enabled = true
		s.CreatedAt = &now
		s.LastUpdated = nil
		id = s.ID
		return putSource(bucket, &s)
	})
	if err != nil {
		return 0, fmt.Errorf("CreateOrGetSource: %w", err)
	}
	return id, nil
}

// ListSources returns all sources ordered by id.
func (b *Bolt) ListSources(ctx context.Context) ([]models.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sources := make([]models.Source, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sourcesBucket)).ForEach(func(k, v []byte) error {
			var d sourceDTO
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			sources = append(sources, d.source())
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ListSources: %w", err)
	}
	return sources, nil
}

// GetSourceByID returns a single source by id.
func (b *Bolt) GetSourceByID(ctx context.Context, sourceID int64) (*models.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var src *models.Source
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		src, err = getSource(tx.Bucket([]byte(sourcesBucket)), sourceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// UpdateSource updates the non-nil fields of a source.
func (b *Bolt) UpdateSource(ctx context.Context, sourceID int64, fields SourceUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sourcesBucket))
		src, err := getSource(bucket, sourceID)
		if err != nil {
			return err
		}
		if fields.Name != nil {
			src.Name = *fields.Name
		}
		if fields.Enabled != nil {
			src.Enabled = *fields.Enabled
		}
		return putSource(bucket, src)
	})
}

// DeleteSource deletes a source and its snapshot.
func (b *Bolt) DeleteSource(ctx context.Context, sourceID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sourcesBucket))
		key := idKey(sourceID)
		if bucket.Get(key) == nil {
			return ErrNotFound
		}
		if err := bucket.Delete(key); err != nil {
			return err
		}
		return tx.Bucket([]byte(snapshotsBucket)).Delete(key)
	})
}

// SaveSnapshot replaces the snapshot and bumps last_updated in one transaction.
func (b *Bolt) SaveSnapshot(ctx context.Context, sourceID int64, data *models.IPTVData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		sources := tx.Bucket([]byte(sourcesBucket))
		src, err := getSource(sources, sourceID)
		if err != nil {
			return err
		}
		now := b.now().UTC()
		src.LastUpdated = &now
		if err := putSource(sources, src); err != nil {
			return err
		}
		return tx.Bucket([]byte(snapshotsBucket)).Put(idKey(sourceID), raw)
	})
}

// GetSnapshot returns the stored snapshot of a source.
func (b *Bolt) GetSnapshot(ctx context.Context, sourceID int64) (*models.IPTVData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data models.IPTVData
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(snapshotsBucket)).Get(idKey(sourceID))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &data)
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}
