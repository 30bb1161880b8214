package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/voyagen/runtv/internal/models"
	"github.com/voyagen/runtv/internal/store"
)

// Ingest loads a submission and, when it succeeds, registers the source and
// stores its snapshot. A failed load touches nothing in the store. err is
// only set for persistence failures; load failures are reported in res.
// sourceName is optional; if empty, the origin's host is used.
func Ingest(ctx context.Context, s store.Store, l *Loader, sourceName string, in Input) (sourceID int64, res Result, err error) {
	res = l.Load(ctx, in)
	if !res.Success {
		return 0, res, nil
	}
	// Both stores persist the snapshot as JSON. Check it encodes before the
	// source row exists, so a bad snapshot leaves nothing behind.
	if _, err := json.Marshal(res.Data); err != nil {
		return 0, res, fmt.Errorf("encode snapshot: %w", err)
	}

	in = cleanInput(in)
	src := &models.Source{
		Name:       sourceName,
		SourceType: models.SourceType(in.SourceType),
		Enabled:    true,
	}
	if src.SourceType == models.SourceTypeXtream {
		src.BaseURL, src.Username, src.Password = in.BaseURL, in.Username, in.Password
	} else {
		src.PlaylistURL = in.PlaylistURL
	}
	if src.Name == "" {
		src.Name = defaultName(src)
	}

	sourceID, err = s.CreateOrGetSource(ctx, src)
	if err != nil {
		return 0, res, fmt.Errorf("CreateOrGetSource: %w", err)
	}
	if err := s.SaveSnapshot(ctx, sourceID, res.Data); err != nil {
		// A source without any snapshot is never left behind.
		if _, gerr := s.GetSnapshot(ctx, sourceID); errors.Is(gerr, store.ErrNotFound) {
			if derr := s.DeleteSource(ctx, sourceID); derr != nil {
				log.Printf("ingest[%s]: rollback source %d: %v", src.Name, sourceID, derr)
			}
		}
		return 0, res, fmt.Errorf("SaveSnapshot: %w", err)
	}
	return sourceID, res, nil
}

// Refresh reloads a stored source with its saved credentials and replaces its
// snapshot wholesale on success. The previous snapshot survives a failure.
func Refresh(ctx context.Context, s store.Store, l *Loader, sourceID int64) (Result, error) {
	src, err := s.GetSourceByID(ctx, sourceID)
	if err != nil {
		return Result{}, fmt.Errorf("GetSourceByID: %w", err)
	}
	res := l.Load(ctx, InputFromSource(src))
	if !res.Success {
		return res, nil
	}
	if err := s.SaveSnapshot(ctx, sourceID, res.Data); err != nil {
		return res, fmt.Errorf("SaveSnapshot: %w", err)
	}
	return res, nil
}

func defaultName(src *models.Source) string {
	if u, err := url.Parse(src.Origin()); err == nil && u.Hostname() != "" {
		if src.Username != "" {
			return src.Username + "@" + u.Hostname()
		}
		return u.Hostname()
	}
	return string(src.SourceType)
}
