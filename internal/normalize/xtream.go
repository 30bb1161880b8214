package normalize

import "github.com/voyagen/runtv/internal/models"

// Payload is everything fetched from one Xtream panel for one snapshot.
type Payload struct {
	UserInfo   Record
	ServerInfo Record
	// Core is the whole core dump; content lists are read from it unless
	// Lists holds an entry for the kind.
	Core       Record
	Lists      map[models.CategoryKind][]Record
	Categories map[models.CategoryKind][]Record
	// Origin is the API base URL the user entered.
	Origin string
}

// StreamURLs builds playable URLs for content ids. ext may be empty.
type StreamURLs interface {
	Live(id, ext string) string
	Movie(id, ext string) string
}

// Xtream builds a snapshot from p. It is pure: the same payload always yields
// an identical snapshot. Items without an id are skipped; for duplicate ids
// the first occurrence wins.
func Xtream(p *Payload, urls StreamURLs) *models.IPTVData {
	data := models.NewIPTVData(models.SourceTypeXtream, p.Origin)
	data.AccountInfo = Account(p.UserInfo)
	for _, kind := range models.Kinds {
		data.Categories.Set(kind, Categories(kind, p.Categories[kind]))
	}
	res := newResolver(data)

	seen := map[string]bool{}
	for _, r := range contentList(p, models.KindLive) {
		id := r.field(FieldContentID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ch := models.Channel{
			ID:           id,
			Name:         r.field(FieldName),
			LogoURL:      optional(r.field(FieldLogo)),
			CategoryID:   res.resolve(models.KindLive, r.field(FieldCategoryID)),
			StreamURL:    urls.Live(id, r.field(FieldExtension)),
			EPGChannelID: r.field(FieldEPGChannelID),
			AddedAt:      r.fieldEpoch(FieldAdded),
			TVArchive:    r.field(FieldTVArchive) == "1",
		}
		if ch.TVArchive {
			if days, ok := r.Int(Keys[FieldTVArchiveDays]...); ok && days > 0 {
				ch.TVArchiveDays = &days
			}
		}
		data.LiveChannels = append(data.LiveChannels, ch)
	}

	seen = map[string]bool{}
	for _, r := range contentList(p, models.KindMovie) {
		id := r.field(FieldContentID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ext := r.field(FieldExtension)
		if ext == "" {
			ext = "mp4"
		}
		data.Movies = append(data.Movies, models.Movie{
			ID:                 id,
			Name:               r.field(FieldName),
			CoverImageURL:      optional(r.field(FieldCover)),
			CategoryID:         res.resolve(models.KindMovie, r.field(FieldCategoryID)),
			StreamURL:          urls.Movie(id, ext),
			Rating:             r.fieldFloat(FieldRating),
			Plot:               r.field(FieldPlot),
			Cast:               r.field(FieldCast),
			Director:           r.field(FieldDirector),
			Genre:              r.field(FieldGenre),
			Duration:           r.field(FieldDuration),
			AddedAt:            r.fieldEpoch(FieldAdded),
			ContainerExtension: ext,
		})
	}

	seen = map[string]bool{}
	for _, r := range contentList(p, models.KindSeries) {
		id := r.field(FieldSeriesID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		s := models.Series{
			ID:             id,
			Name:           r.field(FieldName),
			CoverImageURL:  optional(r.field(FieldCover)),
			CategoryID:     res.resolve(models.KindSeries, r.field(FieldCategoryID)),
			Plot:           r.field(FieldPlot),
			Cast:           r.field(FieldCast),
			Director:       r.field(FieldDirector),
			Genre:          r.field(FieldGenre),
			ReleaseDate:    r.field(FieldReleaseDate),
			Rating:         r.fieldFloat(FieldRating),
			LastModifiedAt: r.fieldEpoch(FieldLastModified),
		}
		if n, ok := r.Len(Keys[FieldSeasons][0]); ok {
			s.SeasonsCount = &n
		}
		s.BackdropURLs = r.Strings(Keys[FieldBackdrop][0])
		if s.BackdropURLs == nil {
			if one := r.field(FieldBackdrop); one != "" {
				s.BackdropURLs = []string{one}
			}
		}
		s.TrailerID = r.field(FieldTrailer)
		data.Series = append(data.Series, s)
	}
	return data
}

// Account maps user_info onto AccountInfo. A nil record yields nil.
func Account(ui Record) *models.AccountInfo {
	if ui == nil {
		return nil
	}
	a := &models.AccountInfo{
		Username:             ui.field(FieldUsername),
		Status:               ui.field(FieldStatus),
		ExpiryDate:           ui.fieldEpoch(FieldExpiry),
		IsTrial:              ui.field(FieldTrial) == "1",
		CreatedAt:            ui.fieldEpoch(FieldCreated),
		AllowedOutputFormats: ui.Strings(Keys[FieldOutputFormats][0]),
	}
	a.ActiveConnections, _ = ui.Int(Keys[FieldActiveCons]...)
	a.MaxConnections, _ = ui.Int(Keys[FieldMaxCons]...)
	return a
}

// Categories maps raw category records of one kind. Records without an id are
// dropped; duplicate ids keep the first.
func Categories(kind models.CategoryKind, recs []Record) []models.Category {
	out := make([]models.Category, 0, len(recs))
	seen := map[string]bool{}
	for _, r := range recs {
		id := r.field(FieldCategoryID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		name := r.field(FieldCategoryName)
		if name == "" {
			name = id
		}
		out = append(out, models.Category{ID: id, Name: name, Kind: kind})
	}
	return out
}

func contentList(p *Payload, kind models.CategoryKind) []Record {
	if recs, ok := p.Lists[kind]; ok {
		return recs
	}
	recs, _ := p.Core.List(ListKeys(kind)...)
	return recs
}

// resolver rewrites category references missing from their kind's set to the
// uncategorized sentinel, adding the synthetic category on first use.
type resolver struct {
	data  *models.IPTVData
	known map[models.CategoryKind]map[string]bool
}

func newResolver(data *models.IPTVData) *resolver {
	r := &resolver{data: data, known: map[models.CategoryKind]map[string]bool{}}
	for _, kind := range models.Kinds {
		set := map[string]bool{}
		for _, c := range data.Categories.For(kind) {
			set[c.ID] = true
		}
		r.known[kind] = set
	}
	return r
}

func (r *resolver) resolve(kind models.CategoryKind, id string) string {
	if id != "" && r.known[kind][id] {
		return id
	}
	sentinel := models.UncategorizedID(kind)
	if !r.known[kind][sentinel] {
		r.known[kind][sentinel] = true
		r.data.Categories.Set(kind, append(r.data.Categories.For(kind), models.Category{
			ID: sentinel, Name: models.UncategorizedName, Kind: kind,
		}))
	}
	return sentinel
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
