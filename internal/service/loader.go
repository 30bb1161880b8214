package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/voyagen/runtv/internal/fetcher"
	"github.com/voyagen/runtv/internal/metrics"
	"github.com/voyagen/runtv/internal/models"
	"github.com/voyagen/runtv/internal/validate"
	"github.com/voyagen/runtv/internal/xtream"
)

// Input is one source submission as entered by the user.
type Input struct {
	SourceType  string `json:"sourceType"`
	BaseURL     string `json:"baseUrl,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	PlaylistURL string `json:"playlistUrl,omitempty"`
}

// InputFromSource rebuilds the submission a stored source was created from.
func InputFromSource(src *models.Source) Input {
	return Input{
		SourceType:  string(src.SourceType),
		BaseURL:     src.BaseURL,
		Username:    src.Username,
		Password:    src.Password,
		PlaylistURL: src.PlaylistURL,
	}
}

// Result is the load envelope: Data on success, otherwise Error and/or
// ValidationErrors. Err keeps the classified cause for callers that map it to
// a status code.
type Result struct {
	Success          bool              `json:"success"`
	Data             *models.IPTVData  `json:"data,omitempty"`
	Error            string            `json:"error,omitempty"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
	Err              error             `json:"-"`
}

// State is a submission's position in Idle → Validating → Fetching →
// Success | Failed.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateFetching
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateFetching:
		return "fetching"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrValidation marks a Result that failed before any network call.
var ErrValidation = errors.New("validation failed")

// XtreamLoader fetches and normalizes one Xtream account.
type XtreamLoader interface {
	Load(ctx context.Context, creds xtream.Credentials) (*models.IPTVData, error)
}

// PlaylistFetcher fetches and parses one M3U playlist.
type PlaylistFetcher interface {
	Fetch(ctx context.Context, playlistURL string) (*models.IPTVData, error)
}

// Loader validates a submission and dispatches it to the matching fetcher.
// It holds no per-submission state; every call to Load starts from Idle.
type Loader struct {
	Xtream   XtreamLoader
	Playlist PlaylistFetcher
	// OnTransition, when set, observes every state change of a submission.
	OnTransition func(from, to State)
}

// NewLoader wires a Loader onto one shared HTTP client.
func NewLoader(c *fetcher.Client) *Loader {
	m3u := fetcher.NewM3UFetcher(c)
	m3u.OnParsed = func(pl *fetcher.Playlist) { metrics.RecordM3USkipped(pl.Skipped) }
	return &Loader{Xtream: xtream.New(c), Playlist: m3u}
}

// Load runs one submission. It never panics and never returns partial data:
// the Result holds either a complete snapshot or an error.
func (l *Loader) Load(ctx context.Context, in Input) Result {
	state := StateIdle
	move := func(to State) {
		if l.OnTransition != nil {
			l.OnTransition(state, to)
		}
		state = to
	}

	move(StateValidating)
	in = cleanInput(in)
	if errs := Validate(in); len(errs) > 0 {
		move(StateFailed)
		return Result{ValidationErrors: errs, Err: ErrValidation}
	}

	move(StateFetching)
	start := time.Now()
	var (
		data *models.IPTVData
		err  error
	)
	switch models.SourceType(in.SourceType) {
	case models.SourceTypeXtream:
		data, err = l.Xtream.Load(ctx, xtream.Credentials{BaseURL: in.BaseURL, Username: in.Username, Password: in.Password})
	case models.SourceTypeM3U:
		data, err = l.Playlist.Fetch(ctx, in.PlaylistURL)
	}
	if err == nil && data == nil {
		err = fetcher.NewError(fetcher.ErrUnexpectedResponse, "", errors.New("no data"))
	}
	metrics.RecordIngest(in.SourceType, outcome(err), time.Since(start))
	if err != nil {
		move(StateFailed)
		log.Printf("load[%s]: %v", in.SourceType, err)
		return Result{Error: UserMessage(err), Err: err}
	}
	move(StateSuccess)
	return Result{Success: true, Data: data}
}

func cleanInput(in Input) Input {
	in.SourceType = strings.ToLower(strings.TrimSpace(in.SourceType))
	in.BaseURL = strings.TrimSpace(in.BaseURL)
	in.Username = strings.TrimSpace(in.Username)
	in.PlaylistURL = strings.TrimSpace(in.PlaylistURL)
	return in
}

// Validate checks a submission's fields without any I/O. The returned map is
// keyed by field name; it is empty when the input is acceptable.
func Validate(in Input) map[string]string {
	errs := map[string]string{}
	switch models.SourceType(in.SourceType) {
	case "":
		errs["sourceType"] = "Source type is required."
	case models.SourceTypeM3U:
		switch {
		case in.PlaylistURL == "":
			errs["playlistUrl"] = "M3U URL is required."
		case !validate.IsValidPlaylistURL(in.PlaylistURL):
			errs["playlistUrl"] = "Invalid M3U URL format."
		}
	case models.SourceTypeXtream:
		switch {
		case in.BaseURL == "":
			errs["baseUrl"] = "Xtream API URL is required."
		case !validate.IsValidXtreamBaseURL(in.BaseURL):
			errs["baseUrl"] = "Invalid Xtream API URL format. Expected http://hostname:port"
		}
		if in.Username == "" {
			errs["username"] = "Username is required."
		}
		if in.Password == "" {
			errs["password"] = "Password is required."
		}
	default:
		errs["sourceType"] = "Invalid source type selected."
	}
	return errs
}

// UserMessage turns a classified fetch error into text fit for the user.
// Decoding details stay in the logs.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, fetcher.ErrAuthenticationFailed):
		if msg := fetcher.AuthMessage(err); msg != "" {
			return msg
		}
		return "Authentication failed. Check your username and password."
	case errors.Is(err, fetcher.ErrTimeout):
		return "The server took too long to respond. Please try again later."
	case errors.Is(err, fetcher.ErrNetwork):
		return "Could not connect to the server. Check the URL and your network connection."
	case errors.Is(err, fetcher.ErrInvalidURL):
		return "The source URL is not valid."
	case errors.Is(err, fetcher.ErrCanceled):
		return "The request was canceled."
	default:
		return "Failed to load content from the source. The server returned an unexpected response."
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, fetcher.ErrAuthenticationFailed):
		return "auth_failed"
	case errors.Is(err, fetcher.ErrTimeout):
		return "timeout"
	case errors.Is(err, fetcher.ErrNetwork):
		return "network_error"
	case errors.Is(err, fetcher.ErrCanceled):
		return "canceled"
	default:
		return "unexpected_response"
	}
}
