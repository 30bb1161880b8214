package normalize

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/voyagen/runtv/internal/models"
)

type fakeURLs struct{}

func (fakeURLs) Live(id, ext string) string {
	if ext == "" {
		ext = "ts"
	}
	return "http://s/live/u/p/" + id + "." + ext
}

func (fakeURLs) Movie(id, ext string) string { return "http://s/movie/u/p/" + id + "." + ext }

func decode(t *testing.T, s string) Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return r
}

func records(t *testing.T, s string) []Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ToRecords(v)
}

const coreDump = `{
  "user_info": {"username":"u","auth":1,"status":"Active","exp_date":"1893456000","is_trial":"0",
                "active_cons":"1","max_connections":"2","created_at":"0","allowed_output_formats":["m3u8","ts"]},
  "server_info": {"server_protocol":"http","url":"stream.example.com","port":"80"},
  "available_channels": [
    {"stream_id":101,"name":"News HD","stream_icon":"http://img/n.png","category_id":"1","epg_channel_id":"news.hd"},
    {"stream_id":"102","name":"Sport","category_id":"99"},
    {"stream_id":101,"name":"Duplicate"},
    {"name":"No id"}
  ],
  "movie_data": {
    "20": {"vod_id":"20","name":"Second","cover_big":"http://img/2.jpg","category_id":"5","rating":"7.1","container_extension":"mkv","episode_run_time":"95"},
    "3":  {"stream_id":3,"name":"First","stream_icon":"http://img/1.jpg","cover":"http://img/x.jpg","rating_5based":4.5,"added":"1700000000","info":{"duration":"01:40:00"}}
  },
  "series_info": [
    {"series_id":7,"name":"Show","cover":"http://img/s.jpg","release_date":"2020-01-01","last_modified":"abc","seasons":[{},{}],"category_id":"8"}
  ]
}`

func payload(t *testing.T) *Payload {
	core := decode(t, coreDump)
	ui, _ := core.Get("user_info")
	si, _ := core.Get("server_info")
	return &Payload{
		UserInfo:   Record(ui.(map[string]any)),
		ServerInfo: Record(si.(map[string]any)),
		Core:       core,
		Categories: map[models.CategoryKind][]Record{
			models.KindLive:   records(t, `[{"category_id":"1","category_name":"News"},{"category_id":"1","category_name":"Dup"},{"category_name":"no id"}]`),
			models.KindMovie:  records(t, `[{"category_id":5,"category_name":"Drama"}]`),
			models.KindSeries: nil,
		},
		Origin: "http://example.com:8080",
	}
}

func TestXtream_Account(t *testing.T) {
	data := Xtream(payload(t), fakeURLs{})
	a := data.AccountInfo
	if a == nil {
		t.Fatal("accountInfo is nil")
	}
	if a.Status != "Active" || a.Username != "u" {
		t.Errorf("status/username = %q/%q", a.Status, a.Username)
	}
	if a.MaxConnections != 2 || a.ActiveConnections != 1 {
		t.Errorf("connections = %d/%d", a.ActiveConnections, a.MaxConnections)
	}
	if a.IsTrial {
		t.Error("isTrial should be false for \"0\"")
	}
	if a.ExpiryDate == nil || *a.ExpiryDate != "2030-01-01T00:00:00Z" {
		t.Errorf("expiryDate = %v", a.ExpiryDate)
	}
	if a.CreatedAt != nil {
		t.Errorf("createdAt = %q, want omitted for 0", *a.CreatedAt)
	}
	if !reflect.DeepEqual(a.AllowedOutputFormats, []string{"m3u8", "ts"}) {
		t.Errorf("formats = %v", a.AllowedOutputFormats)
	}
}

func TestAccount_IsTrial(t *testing.T) {
	for in, want := range map[string]bool{`"1"`: true, `"0"`: false, `1`: true, `""`: false} {
		a := Account(decode(t, `{"is_trial":`+in+`}`))
		if a.IsTrial != want {
			t.Errorf("is_trial %s: got %v, want %v", in, a.IsTrial, want)
		}
	}
}

func TestXtream_LiveChannels(t *testing.T) {
	data := Xtream(payload(t), fakeURLs{})
	if len(data.LiveChannels) != 2 {
		t.Fatalf("live = %d, want 2 (duplicate and id-less dropped)", len(data.LiveChannels))
	}
	news := data.LiveChannels[0]
	if news.ID != "101" || news.Name != "News HD" || news.CategoryID != "1" || news.EPGChannelID != "news.hd" {
		t.Errorf("news = %+v", news)
	}
	if news.LogoURL == nil || *news.LogoURL != "http://img/n.png" {
		t.Errorf("logo = %v", news.LogoURL)
	}
	if news.StreamURL != "http://s/live/u/p/101.ts" {
		t.Errorf("streamUrl = %q", news.StreamURL)
	}
	sport := data.LiveChannels[1]
	if sport.CategoryID != "uncategorized_live" {
		t.Errorf("unknown category = %q, want uncategorized_live", sport.CategoryID)
	}
	if sport.LogoURL != nil {
		t.Errorf("logo = %q, want nil", *sport.LogoURL)
	}
	if got := data.CategoryName(models.KindLive, news.CategoryID); got != "News" {
		t.Errorf("category name = %q", got)
	}
	if len(data.Categories.Live) != 2 {
		t.Errorf("live categories = %+v", data.Categories.Live)
	}
}

func TestXtream_MoviesFallbackKeys(t *testing.T) {
	data := Xtream(payload(t), fakeURLs{})
	if len(data.Movies) != 2 {
		t.Fatalf("movies = %d", len(data.Movies))
	}
	first, second := data.Movies[0], data.Movies[1]
	if first.ID != "3" || second.ID != "20" {
		t.Fatalf("order = %s,%s; want numeric key order", first.ID, second.ID)
	}
	if *first.CoverImageURL != "http://img/1.jpg" || *second.CoverImageURL != "http://img/2.jpg" {
		t.Errorf("covers = %q %q", *first.CoverImageURL, *second.CoverImageURL)
	}
	if *first.Rating != 4.5 || *second.Rating != 7.1 {
		t.Errorf("ratings = %v %v", *first.Rating, *second.Rating)
	}
	if first.Duration != "01:40:00" || second.Duration != "95" {
		t.Errorf("durations = %q %q", first.Duration, second.Duration)
	}
	if first.StreamURL != "http://s/movie/u/p/3.mp4" || second.StreamURL != "http://s/movie/u/p/20.mkv" {
		t.Errorf("stream urls = %q %q", first.StreamURL, second.StreamURL)
	}
	if first.AddedAt == nil || *first.AddedAt != "2023-11-14T22:13:20Z" {
		t.Errorf("addedAt = %v", first.AddedAt)
	}
	if second.CategoryID != "5" || first.CategoryID != "uncategorized_movie" {
		t.Errorf("categories = %q %q", first.CategoryID, second.CategoryID)
	}
}

func TestXtream_Series(t *testing.T) {
	data := Xtream(payload(t), fakeURLs{})
	if len(data.Series) != 1 {
		t.Fatalf("series = %d", len(data.Series))
	}
	s := data.Series[0]
	if s.ID != "7" || s.ReleaseDate != "2020-01-01" || *s.CoverImageURL != "http://img/s.jpg" {
		t.Errorf("series = %+v", s)
	}
	if s.SeasonsCount == nil || *s.SeasonsCount != 2 {
		t.Errorf("seasonsCount = %v", s.SeasonsCount)
	}
	if s.LastModifiedAt != nil {
		t.Errorf("lastModified = %q, want omitted for non-numeric", *s.LastModifiedAt)
	}
	if s.CategoryID != "uncategorized_series" {
		t.Errorf("category = %q", s.CategoryID)
	}
	if _, ok := data.Categories.Lookup(models.KindSeries, "uncategorized_series"); !ok {
		t.Error("synthetic series category missing")
	}
}

func TestXtream_ListsOverrideCore(t *testing.T) {
	p := payload(t)
	p.Lists = map[models.CategoryKind][]Record{
		models.KindLive: records(t, `[{"stream_id":1,"name":"From endpoint","category_id":"1"}]`),
	}
	data := Xtream(p, fakeURLs{})
	if len(data.LiveChannels) != 1 || data.LiveChannels[0].Name != "From endpoint" {
		t.Errorf("live = %+v", data.LiveChannels)
	}
	if len(data.Movies) != 2 {
		t.Errorf("movies should still come from core, got %d", len(data.Movies))
	}
}

func TestXtream_Idempotent(t *testing.T) {
	p := payload(t)
	a := Xtream(p, fakeURLs{})
	b := Xtream(p, fakeURLs{})
	if !reflect.DeepEqual(a, b) {
		t.Error("two normalizations of the same payload differ")
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Error("encoded snapshots differ")
	}
}

func TestXtream_EmptyPayload(t *testing.T) {
	data := Xtream(&Payload{Core: Record{}}, fakeURLs{})
	if data.LiveChannels == nil || data.Movies == nil || data.Series == nil {
		t.Fatal("collections must be empty, not nil")
	}
	if data.AccountInfo != nil {
		t.Error("accountInfo should be nil without user_info")
	}
	if data.SourceType != models.SourceTypeXtream {
		t.Errorf("sourceType = %q", data.SourceType)
	}
}

func TestRecordEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"t":"1893456000"}`, "2030-01-01T00:00:00Z"},
		{`{"t":1893456000}`, "2030-01-01T00:00:00Z"},
		{`{"t":"0"}`, ""},
		{`{"t":"-5"}`, ""},
		{`{"t":"soon"}`, ""},
		{`{"t":"NaN"}`, ""},
		{`{"t":"Infinity"}`, ""},
		{`{"t":null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		got := decode(t, tt.in).Epoch("t")
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("%s: got %q, want omitted", tt.in, *got)
		case tt.want != "" && (got == nil || *got != tt.want):
			t.Errorf("%s: got %v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeysTable(t *testing.T) {
	// Order matters: the first key wins.
	want := map[Field][]string{
		FieldContentID:  {"stream_id", "vod_id"},
		FieldSeriesID:   {"series_id"},
		FieldCover:      {"stream_icon", "cover_big", "cover"},
		FieldRating:     {"rating_5based", "rating"},
		FieldCategoryID: {"category_id"},
		FieldLogo:       {"stream_icon"},
		FieldMovieList:  {"vod_info", "movie_data"},
		FieldSeriesList: {"series_info", "series_data"},
	}
	for f, keys := range want {
		if !reflect.DeepEqual(Keys[f], keys) {
			t.Errorf("Keys[%s] = %v, want %v", f, Keys[f], keys)
		}
	}
	r := decode(t, `{"vod_id":"9","stream_id":"4"}`)
	if got := r.field(FieldContentID); got != "4" {
		t.Errorf("content id = %q, want stream_id first", got)
	}
}

func TestXtream_NonFiniteNumbersOmitted(t *testing.T) {
	p := &Payload{
		Core: decode(t, `{
			"vod_info": [
				{"stream_id":1,"name":"A","rating":"NaN"},
				{"stream_id":2,"name":"B","rating_5based":"Inf","rating":"6.5"},
				{"stream_id":3,"name":"C","rating":"-Infinity","added":"1e400"}
			],
			"series_info": [{"series_id":9,"name":"S","rating":"+Inf"}]
		}`),
		UserInfo: decode(t, `{"active_cons":"NaN","max_connections":"1e300"}`),
	}
	data := Xtream(p, fakeURLs{})
	if len(data.Movies) != 3 {
		t.Fatalf("movies = %d", len(data.Movies))
	}
	if data.Movies[0].Rating != nil || data.Movies[2].Rating != nil {
		t.Errorf("non-finite ratings kept: %v, %v", data.Movies[0].Rating, data.Movies[2].Rating)
	}
	if r := data.Movies[1].Rating; r == nil || *r != 6.5 {
		t.Errorf("fallback rating = %v, want 6.5", r)
	}
	if data.Movies[2].AddedAt != nil {
		t.Errorf("addedAt = %q, want omitted", *data.Movies[2].AddedAt)
	}
	if data.Series[0].Rating != nil {
		t.Error("non-finite series rating kept")
	}
	if a := data.AccountInfo; a.ActiveConnections != 0 || a.MaxConnections != 0 {
		t.Errorf("connections = %d/%d", a.ActiveConnections, a.MaxConnections)
	}
	if _, err := json.Marshal(data); err != nil {
		t.Fatalf("snapshot does not encode: %v", err)
	}
}

func TestXtream_CatchUpAndSeriesExtras(t *testing.T) {
	p := &Payload{Core: decode(t, `{
		"available_channels": [
			{"stream_id":1,"name":"Archive","tv_archive":1,"tv_archive_duration":"7","added":"1700000000"},
			{"stream_id":2,"name":"Plain","tv_archive":"0","tv_archive_duration":"7"}
		],
		"series_info": [
			{"series_id":5,"name":"Many","backdrop_path":["http://img/a.jpg","http://img/b.jpg"],"youtube_trailer":"abc123"},
			{"series_id":6,"name":"One","backdrop_path":"http://img/c.jpg"}
		]
	}`)}
	data := Xtream(p, fakeURLs{})

	archive, plain := data.LiveChannels[0], data.LiveChannels[1]
	if !archive.TVArchive || archive.TVArchiveDays == nil || *archive.TVArchiveDays != 7 {
		t.Errorf("archive channel = %+v", archive)
	}
	if archive.AddedAt == nil || *archive.AddedAt != "2023-11-14T22:13:20Z" {
		t.Errorf("addedAt = %v", archive.AddedAt)
	}
	if plain.TVArchive || plain.TVArchiveDays != nil {
		t.Errorf("plain channel = %+v", plain)
	}

	many, one := data.Series[0], data.Series[1]
	if !reflect.DeepEqual(many.BackdropURLs, []string{"http://img/a.jpg", "http://img/b.jpg"}) || many.TrailerID != "abc123" {
		t.Errorf("series extras = %+v", many)
	}
	if !reflect.DeepEqual(one.BackdropURLs, []string{"http://img/c.jpg"}) {
		t.Errorf("single backdrop = %v", one.BackdropURLs)
	}
}
