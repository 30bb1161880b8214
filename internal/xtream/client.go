// Package xtream speaks the Xtream Codes player_api.php protocol.
package xtream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/voyagen/runtv/internal/fetcher"
	"github.com/voyagen/runtv/internal/models"
	"github.com/voyagen/runtv/internal/normalize"
)

// maxCategoryFanOut bounds concurrent category requests per ingestion.
const maxCategoryFanOut = 3

// Credentials identify an account on a panel. BaseURL is scheme://host:port.
type Credentials struct {
	BaseURL  string
	Username string
	Password string
}

// CoreResponse is the authenticated core dump.
type CoreResponse struct {
	UserInfo   normalize.Record
	ServerInfo normalize.Record
	Raw        normalize.Record
}

// Client issues player_api.php requests through a shared fetcher.Client. It
// keeps no state between calls and never retries.
type Client struct {
	http *fetcher.Client
}

// New returns a Client that sends requests through c.
func New(c *fetcher.Client) *Client {
	return &Client{http: c}
}

var categoryActions = map[models.CategoryKind]string{
	models.KindLive:   "get_live_categories",
	models.KindMovie:  "get_vod_categories",
	models.KindSeries: "get_series_categories",
}

var contentActions = map[models.CategoryKind]string{
	models.KindLive:   "get_live_streams",
	models.KindMovie:  "get_vod_streams",
	models.KindSeries: "get_series",
}

// Load authenticates, fetches everything for a snapshot and normalizes it.
// Any failed call fails the whole load.
func (c *Client) Load(ctx context.Context, creds Credentials) (*models.IPTVData, error) {
	p, err := c.Fetch(ctx, creds)
	if err != nil {
		return nil, err
	}
	urls := StreamURLs{
		Base:     StreamBaseURL(p.ServerInfo, creds.BaseURL),
		Username: creds.Username,
		Password: creds.Password,
	}
	return normalize.Xtream(p, urls), nil
}

// Fetch runs the core request, the per-kind content fallbacks the core dump
// needs, then the three category requests.
func (c *Client) Fetch(ctx context.Context, creds Credentials) (*normalize.Payload, error) {
	core, err := c.FetchCore(ctx, creds)
	if err != nil {
		return nil, err
	}
	p := &normalize.Payload{
		UserInfo:   core.UserInfo,
		ServerInfo: core.ServerInfo,
		Core:       core.Raw,
		Lists:      map[models.CategoryKind][]normalize.Record{},
		Origin:     creds.BaseURL,
	}
	for _, kind := range models.Kinds {
		if core.Raw.Has(normalize.ListKeys(kind)...) {
			continue
		}
		recs, err := c.FetchContent(ctx, creds, kind)
		if err != nil {
			return nil, err
		}
		p.Lists[kind] = recs
	}

	cats := make([][]normalize.Record, len(models.Kinds))
	pl := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(maxCategoryFanOut)
	for i, kind := range models.Kinds {
		pl.Go(func(ctx context.Context) error {
			recs, err := c.FetchCategories(ctx, creds, kind)
			if err != nil {
				return err
			}
			cats[i] = recs
			return nil
		})
	}
	if err := pl.Wait(); err != nil {
		return nil, err
	}
	p.Categories = make(map[models.CategoryKind][]normalize.Record, len(models.Kinds))
	for i, kind := range models.Kinds {
		p.Categories[kind] = cats[i]
	}
	return p, nil
}

// FetchCore authenticates and returns the core user/server/content dump.
// An empty array body or user_info.auth other than 1 is an authentication
// failure carrying the server's message when it sent one.
func (c *Client) FetchCore(ctx context.Context, creds Credentials) (*CoreResponse, error) {
	v, err := c.call(ctx, creds, "")
	if err != nil {
		return nil, err
	}
	var raw normalize.Record
	switch t := v.(type) {
	case map[string]any:
		raw = normalize.Record(t)
	case []any:
		if len(t) == 0 {
			return nil, fetcher.NewError(fetcher.ErrAuthenticationFailed, "", errors.New("empty response"))
		}
		return nil, fetcher.NewError(fetcher.ErrUnexpectedResponse, "", errors.New("core response is an array"))
	case nil:
		return nil, fetcher.NewError(fetcher.ErrUnexpectedResponse, "", errors.New("empty body"))
	default:
		return nil, fetcher.NewError(fetcher.ErrUnexpectedResponse, "", fmt.Errorf("core response is %T", v))
	}

	ui, ok := recordAt(raw, "user_info")
	if !ok {
		return nil, fetcher.NewError(fetcher.ErrAuthenticationFailed, "", errors.New("no user_info"))
	}
	if auth := ui.Str("auth"); auth != "1" {
		return nil, fetcher.NewError(fetcher.ErrAuthenticationFailed, ui.Str("message"), fmt.Errorf("auth=%q", auth))
	}
	si, _ := recordAt(raw, "server_info")
	return &CoreResponse{UserInfo: ui, ServerInfo: si, Raw: raw}, nil
}

// FetchCategories returns the raw categories of kind. A missing or empty
// result is zero categories.
func (c *Client) FetchCategories(ctx context.Context, creds Credentials, kind models.CategoryKind) ([]normalize.Record, error) {
	action, ok := categoryActions[kind]
	if !ok {
		return nil, fmt.Errorf("unknown category kind %q", kind)
	}
	return c.list(ctx, creds, action)
}

// FetchContent returns the raw content list of kind from its dedicated
// endpoint (get_live_streams, get_vod_streams, get_series).
func (c *Client) FetchContent(ctx context.Context, creds Credentials, kind models.CategoryKind) ([]normalize.Record, error) {
	action, ok := contentActions[kind]
	if !ok {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
	return c.list(ctx, creds, action)
}

func (c *Client) list(ctx context.Context, creds Credentials, action string) ([]normalize.Record, error) {
	v, err := c.call(ctx, creds, action)
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case nil, []any, map[string]any:
		return normalize.ToRecords(v), nil
	case string:
		// Some panels answer "" or "null" as a JSON string for an empty list.
		return nil, nil
	}
	return nil, fetcher.NewError(fetcher.ErrUnexpectedResponse, "", fmt.Errorf("%s: unexpected %T", action, v))
}

// call issues one player_api.php request and decodes the JSON body.
func (c *Client) call(ctx context.Context, creds Credentials, action string) (any, error) {
	endpoint, err := apiURL(creds, action)
	if err != nil {
		return nil, fetcher.NewError(fetcher.ErrInvalidURL, "", err)
	}
	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(resp)
	}
	v, err := decodeJSON(resp.Body)
	if err != nil {
		what := action
		if what == "" {
			what = "core"
		}
		log.Printf("xtream: %s: undecodable body (%d bytes): %v", what, len(resp.Body), err)
		return nil, fetcher.NewError(fetcher.ErrUnexpectedResponse, "", fmt.Errorf("%s: %w", what, err))
	}
	return v, nil
}

func apiURL(creds Credentials, action string) (string, error) {
	base, err := url.Parse(strings.TrimRight(creds.BaseURL, "/"))
	if err != nil {
		return "", err
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base url %q has no scheme or host", creds.BaseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/player_api.php"
	q := url.Values{}
	q.Set("username", creds.Username)
	q.Set("password", creds.Password)
	if action != "" {
		q.Set("action", action)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// statusError classifies a non-2xx answer. A JSON user_info.message or a
// 401/403 means the panel rejected the credentials.
func statusError(resp *fetcher.Response) error {
	cause := fmt.Errorf("HTTP %d", resp.StatusCode)
	if v, err := decodeJSON(resp.Body); err == nil {
		if m, ok := v.(map[string]any); ok {
			if ui, ok := recordAt(normalize.Record(m), "user_info"); ok {
				if msg := ui.Str("message"); msg != "" {
					return fetcher.NewError(fetcher.ErrAuthenticationFailed, msg, cause)
				}
			}
		}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fetcher.NewError(fetcher.ErrAuthenticationFailed, "", cause)
	}
	return fetcher.NewError(fetcher.ErrUnexpectedResponse, "", cause)
}

func decodeJSON(body []byte) (any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func recordAt(r normalize.Record, key string) (normalize.Record, bool) {
	v, ok := r.Get(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return normalize.Record(m), true
}
