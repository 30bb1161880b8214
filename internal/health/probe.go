// Package health checks whether a source's host answers at all.
package health

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voyagen/runtv/internal/fetcher"
	"github.com/voyagen/runtv/internal/metrics"
	"github.com/voyagen/runtv/internal/models"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

type Status string

const (
	StatusOnline      Status = "Online"
	StatusMaintenance Status = "Maintenance"
	StatusOffline     Status = "Offline"
	StatusError       Status = "Error"
)

// Result is the outcome of probing one URL.
type Result struct {
	URL        string    `json:"url"`
	Status     Status    `json:"status"`
	StatusCode int       `json:"statusCode,omitempty"`
	LatencyMs  int64     `json:"latencyMs"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// Prober issues HEAD requests through a fetcher.Client configured with the
// probe timeout. It is independent of ingestion.
type Prober struct {
	client *fetcher.Client
}

// NewProber returns a Prober using c.
func NewProber(c *fetcher.Client) *Prober {
	return &Prober{client: c}
}

// Probe sends one HEAD to target and classifies the answer: 200 is Online,
// 503 Maintenance, any other status or a timeout Offline, and a malformed URL
// or any other transport failure Error.
func (p *Prober) Probe(ctx context.Context, target string) Result {
	res := Result{URL: target, CheckedAt: time.Now().UTC()}
	defer func() { metrics.RecordProbe(string(res.Status)) }()

	if !probeable(target) {
		res.Status = StatusError
		return res
	}
	start := time.Now()
	resp, err := p.client.Head(ctx, target)
	res.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		if errors.Is(err, fetcher.ErrTimeout) {
			res.Status = StatusOffline
		} else {
			res.Status = StatusError
		}
		return res
	}
	res.StatusCode = resp.StatusCode
	switch resp.StatusCode {
	case http.StatusOK:
		res.Status = StatusOnline
	case http.StatusServiceUnavailable:
		res.Status = StatusMaintenance
	default:
		res.Status = StatusOffline
	}
	return res
}

func probeable(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// TargetFor derives the probe URL of a snapshot from its dataSourceUrl,
// assuming http when the scheme is missing.
func TargetFor(d *models.IPTVData) string {
	target := strings.TrimSpace(d.DataSourceURL)
	if target == "" {
		return ""
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	return target
}
