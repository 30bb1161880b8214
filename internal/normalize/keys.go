package normalize

import "github.com/voyagen/runtv/internal/models"

// Field names a canonical value that is looked up through an ordered key list.
type Field string

const (
	FieldContentID     Field = "content_id"
	FieldSeriesID      Field = "series_id"
	FieldName          Field = "name"
	FieldLogo          Field = "logo"
	FieldCover         Field = "cover"
	FieldRating        Field = "rating"
	FieldCategoryID    Field = "category_id"
	FieldCategoryName  Field = "category_name"
	FieldExtension     Field = "container_extension"
	FieldEPGChannelID  Field = "epg_channel_id"
	FieldAdded         Field = "added"
	FieldLastModified  Field = "last_modified"
	FieldDuration      Field = "duration"
	FieldReleaseDate   Field = "release_date"
	FieldPlot          Field = "plot"
	FieldCast          Field = "cast"
	FieldDirector      Field = "director"
	FieldGenre         Field = "genre"
	FieldSeasons       Field = "seasons"
	FieldLiveList      Field = "live_list"
	FieldMovieList     Field = "movie_list"
	FieldSeriesList    Field = "series_list"
	FieldUsername      Field = "username"
	FieldStatus        Field = "status"
	FieldExpiry        Field = "exp_date"
	FieldCreated       Field = "created_at"
	FieldTrial         Field = "is_trial"
	FieldActiveCons    Field = "active_cons"
	FieldMaxCons       Field = "max_connections"
	FieldOutputFormats Field = "allowed_output_formats"
	FieldTVArchive     Field = "tv_archive"
	FieldTVArchiveDays Field = "tv_archive_duration"
	FieldBackdrop      Field = "backdrop_path"
	FieldTrailer       Field = "youtube_trailer"
)

// Keys is the field-mapping table. Each field is read from the first key in
// its list that holds a usable value.
var Keys = map[Field][]string{
	FieldContentID:     {"stream_id", "vod_id"},
	FieldSeriesID:      {"series_id"},
	FieldName:          {"name", "title"},
	FieldLogo:          {"stream_icon"},
	FieldCover:         {"stream_icon", "cover_big", "cover"},
	FieldRating:        {"rating_5based", "rating"},
	FieldCategoryID:    {"category_id"},
	FieldCategoryName:  {"category_name"},
	FieldExtension:     {"container_extension"},
	FieldEPGChannelID:  {"epg_channel_id"},
	FieldAdded:         {"added"},
	FieldLastModified:  {"last_modified"},
	FieldDuration:      {"info.duration", "episode_run_time", "duration"},
	FieldReleaseDate:   {"releaseDate", "release_date"},
	FieldPlot:          {"plot"},
	FieldCast:          {"cast"},
	FieldDirector:      {"director"},
	FieldGenre:         {"genre"},
	FieldSeasons:       {"seasons"},
	FieldLiveList:      {"available_channels"},
	FieldMovieList:     {"vod_info", "movie_data"},
	FieldSeriesList:    {"series_info", "series_data"},
	FieldUsername:      {"username"},
	FieldStatus:        {"status"},
	FieldExpiry:        {"exp_date"},
	FieldCreated:       {"created_at"},
	FieldTrial:         {"is_trial"},
	FieldActiveCons:    {"active_cons"},
	FieldMaxCons:       {"max_connections"},
	FieldOutputFormats: {"allowed_output_formats"},
	FieldTVArchive:     {"tv_archive"},
	FieldTVArchiveDays: {"tv_archive_duration"},
	FieldBackdrop:      {"backdrop_path"},
	FieldTrailer:       {"youtube_trailer"},
}

// ListKeys returns the core-dump keys that may hold kind's content list.
func ListKeys(kind models.CategoryKind) []string {
	switch kind {
	case models.KindLive:
		return Keys[FieldLiveList]
	case models.KindMovie:
		return Keys[FieldMovieList]
	case models.KindSeries:
		return Keys[FieldSeriesList]
	}
	return nil
}

func (r Record) field(f Field) string        { return r.Str(Keys[f]...) }
func (r Record) fieldFloat(f Field) *float64 { return r.Float(Keys[f]...) }
func (r Record) fieldEpoch(f Field) *string  { return r.Epoch(Keys[f]...) }
