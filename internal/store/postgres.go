package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagen/runtv/internal/models"
)

// Postgres implements Store using PostgreSQL. Snapshots are kept as JSONB,
// one row per source.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

const sourceColumns = `id, name, source_type, base_url, username, password, playlist_url, enabled, last_updated, created_at`

func scanSource(row pgx.Row) (*models.Source, error) {
	var (
		s         models.Source
		st        string
		createdAt time.Time
	)
	err := row.Scan(&s.ID, &s.Name, &st, &s.BaseURL, &s.Username, &s.Password,
		&s.PlaylistURL, &s.Enabled, &s.LastUpdated, &createdAt)
	if err != nil {
		return nil, err
	}
	s.SourceType = models.SourceType(st)
	s.CreatedAt = &createdAt
	return &s, nil
}

// CreateOrGetSource creates a source if not exists, returns id.
func (p *Postgres) CreateOrGetSource(ctx context.Context, src *models.Source) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO sources (name, source_type, base_url, username, password, playlist_url, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, true)
		 ON CONFLICT (source_type, base_url, username, playlist_url) DO UPDATE SET password = EXCLUDED.password
		 RETURNING id`,
		src.Name, string(src.SourceType), src.BaseURL, src.Username, src.Password, src.PlaylistURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateOrGetSource: %w", err)
	}
	return id, nil
}

// ListSources returns all sources ordered by id.
func (p *Postgres) ListSources(ctx context.Context) ([]models.Source, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListSources: %w", err)
	}
	defer rows.Close()
	sources := make([]models.Source, 0)
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSources scan: %w", err)
		}
		sources = append(sources, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSources: %w", err)
	}
	return sources, nil
}

// GetSourceByID returns a single source by id.
func (p *Postgres) GetSourceByID(ctx context.Context, sourceID int64) (*models.Source, error) {
	s, err := scanSource(p.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, sourceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetSourceByID: %w", err)
	}
	return s, nil
}

// UpdateSource updates the non-nil fields of a source.
func (p *Postgres) UpdateSource(ctx context.Context, sourceID int64, fields SourceUpdate) error {
	var (
		sets []string
		args []any
	)
	if fields.Name != nil {
		args = append(args, *fields.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if fields.Enabled != nil {
		args = append(args, *fields.Enabled)
		sets = append(sets, fmt.Sprintf("enabled = $%d", len(args)))
	}
	if len(sets) == 0 {
		_, err := p.GetSourceByID(ctx, sourceID)
		return err
	}
	args = append(args, sourceID)
	tag, err := p.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE sources SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...,
	)
	if err != nil {
		return fmt.Errorf("UpdateSource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSource deletes a source; its snapshot goes with it (ON DELETE CASCADE).
func (p *Postgres) DeleteSource(ctx context.Context, sourceID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("DeleteSource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSnapshot replaces the snapshot and bumps last_updated in one transaction.
func (p *Postgres) SaveSnapshot(ctx context.Context, sourceID int64, data *models.IPTVData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	live, movies, series := data.Counts()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE sources SET last_updated = NOW() WHERE id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("update last_updated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO snapshots (source_id, data, live_count, movie_count, series_count, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (source_id) DO UPDATE SET
		   data = EXCLUDED.data, live_count = EXCLUDED.live_count,
		   movie_count = EXCLUDED.movie_count, series_count = EXCLUDED.series_count,
		   fetched_at = EXCLUDED.fetched_at`,
		sourceID, raw, live, movies, series,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot of a source.
func (p *Postgres) GetSnapshot(ctx context.Context, sourceID int64) (*models.IPTVData, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM snapshots WHERE source_id = $1`, sourceID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetSnapshot: %w", err)
	}
	var data models.IPTVData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &data, nil
}
