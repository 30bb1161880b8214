package fetcher

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/grafana/regexp"

	"github.com/voyagen/runtv/internal/models"
)

// reAttr matches key="value" pairs; the value may contain \" escapes.
var reAttr = regexp.MustCompile(`([A-Za-z0-9_:.-]+)="((?:[^"\\]|\\.)*)"`)

// Entry is one parsed #EXTINF record.
type Entry struct {
	Name     string
	Title    string
	URL      string
	TvgID    string
	TvgName  string
	Logo     string
	Group    string
	Duration string
	Kind     models.CategoryKind
	Attrs    map[string]string
}

// Playlist is the result of parsing an M3U document. Skipped counts records
// dropped as malformed.
type Playlist struct {
	Entries []Entry
	Skipped int
}

// maxLineSize bounds a single playlist line. Some providers emit very long
// EXTINF lines; anything past this is dropped with its record.
const maxLineSize = 1024 * 1024

// ParseM3U reads an M3U playlist from r. A record is an #EXTINF line followed
// by the next non-comment line holding the stream URI. Malformed records are
// skipped and counted; they never fail the parse. Only read errors do.
func ParseM3U(r io.Reader) (*Playlist, error) {
	pl := &Playlist{}
	br := bufio.NewReaderSize(r, 64*1024)

	var extinf, extgrp string
	// broken marks a pending record whose EXTINF line was over-long.
	pending, broken := false, false

	first := true
	for {
		raw, tooLong, err := readLine(br, maxLineSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read playlist: %w", err)
		}
		line := string(raw)
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		if tooLong {
			switch {
			case strings.HasPrefix(upper, "#EXTINF"):
				if pending {
					pl.Skipped++
				}
				extinf, extgrp, pending, broken = "", "", true, true
			case strings.HasPrefix(trimmed, "#"):
				// Other directives carry nothing we keep.
			case pending:
				pl.Skipped++
				pending, broken = false, false
			}
			continue
		}

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(upper, "#EXTINF"):
			if pending {
				// Previous EXTINF never got a URI.
				pl.Skipped++
			}
			extinf, extgrp, pending, broken = trimmed, "", true, false
		case strings.HasPrefix(upper, "#EXTGRP:"):
			extgrp = strings.TrimSpace(trimmed[len("#EXTGRP:"):])
		case strings.HasPrefix(trimmed, "#"):
			// #EXTM3U, #EXTVLCOPT and friends.
			continue
		default:
			if !pending {
				continue
			}
			pending = false
			if broken {
				pl.Skipped++
				continue
			}
			e, err := parseEXTINF(extinf)
			if err != nil {
				pl.Skipped++
				continue
			}
			if e.Group == "" {
				e.Group = extgrp
			}
			e.URL = trimmed
			e.Kind = Classify(e.Group)
			pl.Entries = append(pl.Entries, e)
		}
	}
	if pending {
		pl.Skipped++
	}
	return pl, nil
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed in full; only its head is returned and tooLong is set.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, rerr := br.ReadSlice('\n')
		if room := limit + 2 - len(line); len(chunk) > room {
			chunk, tooLong = chunk[:room], true
		}
		line = append(line, chunk...)
		if rerr == bufio.ErrBufferFull {
			continue
		}
		if rerr != nil && (rerr != io.EOF || (len(line) == 0 && !tooLong)) {
			return nil, false, rerr
		}
		line = bytes.TrimRight(line, "\r\n")
		return line, tooLong || len(line) > limit, nil
	}
}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

var (
	errNoTitleComma = &parseError{msg: "EXTINF has no title separator"}
	errNoName       = &parseError{msg: "no name from EXTINF"}
)

// parseEXTINF splits "#EXTINF:<duration> <attrs>,<title>". The title starts
// after the first comma outside a quoted attribute value.
func parseEXTINF(line string) (Entry, error) {
	body := line[len("#EXTINF"):]
	body = strings.TrimPrefix(body, ":")

	cut := -1
	inQuote := false
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				cut = i
			}
		}
		if cut >= 0 {
			break
		}
	}
	if cut < 0 {
		return Entry{}, errNoTitleComma
	}
	head, title := body[:cut], strings.TrimSpace(body[cut+1:])

	e := Entry{Title: title, Attrs: map[string]string{}}
	if f := strings.Fields(head); len(f) > 0 && !strings.Contains(f[0], "=") {
		e.Duration = f[0]
	}
	for _, m := range reAttr.FindAllStringSubmatch(head, -1) {
		e.Attrs[strings.ToLower(m[1])] = strings.TrimSpace(unescapeAttr(m[2]))
	}
	e.TvgID = e.Attrs["tvg-id"]
	e.TvgName = e.Attrs["tvg-name"]
	e.Logo = e.Attrs["tvg-logo"]
	e.Group = e.Attrs["group-title"]

	e.Name = e.TvgName
	if e.Name == "" {
		e.Name = title
	}
	if e.Name == "" {
		return Entry{}, errNoName
	}
	return e, nil
}

func unescapeAttr(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}

// Classify derives a content kind from a group title. This is a keyword
// heuristic and is wrong for providers that name groups differently:
// "movie" or "vod" means movie, then "series" means series, else live.
func Classify(group string) models.CategoryKind {
	g := strings.ToLower(group)
	switch {
	case strings.Contains(g, "movie"), strings.Contains(g, "vod"):
		return models.KindMovie
	case strings.Contains(g, "series"):
		return models.KindSeries
	default:
		return models.KindLive
	}
}

// m3uNamespace seeds deterministic ids so that parsing the same playlist twice
// yields identical snapshots.
var m3uNamespace = uuid.MustParse("6f1c4a52-8a5e-4d59-9f2b-3b1f0f6a7c11")

// BuildIPTVData converts a parsed playlist into a snapshot. Categories are
// synthesized from group titles per kind; entries without a group land in the
// kind's uncategorized category.
func BuildIPTVData(playlistURL string, pl *Playlist) *models.IPTVData {
	data := models.NewIPTVData(models.SourceTypeM3U, playlistURL)
	catIDs := map[models.CategoryKind]map[string]string{}
	ids := map[string]int{}

	categoryFor := func(kind models.CategoryKind, group string) string {
		byName, ok := catIDs[kind]
		if !ok {
			byName = map[string]string{}
			catIDs[kind] = byName
		}
		if id, ok := byName[group]; ok {
			return id
		}
		cat := models.Category{Kind: kind}
		if group == "" {
			cat.ID, cat.Name = models.UncategorizedID(kind), models.UncategorizedName
		} else {
			cat.ID = uuid.NewSHA1(m3uNamespace, []byte(string(kind)+"\x00"+group)).String()
			cat.Name = group
		}
		byName[group] = cat.ID
		data.Categories.Set(kind, append(data.Categories.For(kind), cat))
		return cat.ID
	}
	entityID := func(e Entry) string {
		id := uuid.NewSHA1(m3uNamespace, []byte(string(e.Kind)+"\x00"+e.URL+"\x00"+e.Name)).String()
		n := ids[id]
		ids[id] = n + 1
		if n > 0 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		return id
	}

	for _, e := range pl.Entries {
		catID := categoryFor(e.Kind, e.Group)
		logo := optional(e.Logo)
		switch e.Kind {
		case models.KindMovie:
			data.Movies = append(data.Movies, models.Movie{
				ID:            entityID(e),
				Name:          e.Name,
				CoverImageURL: logo,
				CategoryID:    catID,
				StreamURL:     e.URL,
			})
		case models.KindSeries:
			data.Series = append(data.Series, models.Series{
				ID:            entityID(e),
				Name:          e.Name,
				CoverImageURL: logo,
				CategoryID:    catID,
			})
		default:
			data.LiveChannels = append(data.LiveChannels, models.Channel{
				ID:           entityID(e),
				Name:         e.Name,
				LogoURL:      logo,
				CategoryID:   catID,
				StreamURL:    e.URL,
				EPGChannelID: e.TvgID,
			})
		}
	}
	if pl.Skipped > 0 {
		log.Printf("m3u: skipped %d malformed record(s) in %s", pl.Skipped, redact(playlistURL))
	}
	return data
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
