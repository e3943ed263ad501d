package domain

// TrackSource identifies the external catalog a track was resolved from.
type TrackSource string

const (
	SourceMusicBrainz TrackSource = "musicbrainz"
	SourceDeezer      TrackSource = "deezer"
	SourceITunes      TrackSource = "itunes"
)

// Track is a single search result returned to the journal layer.
// Title is always non-empty; Artist and Album may be blank when the
// catalog did not credit them. ExternalID is unique only within one
// provider's result set.
type Track struct {
	Title      string      `json:"title"`
	Artist     string      `json:"artist"`
	Album      string      `json:"album"`
	CoverURL   string      `json:"coverUrl,omitempty"`
	Source     TrackSource `json:"source"`
	ExternalID string      `json:"externalId"`
}

// SearchResponse is the inbound API envelope consumed by the CRUD layer.
type SearchResponse struct {
	Query string  `json:"query"`
	Items []Track `json:"items"`
}

// RecordingPayload carries the structured MusicBrainz data needed to
// populate the persistent metadata cache. Optional fields are empty
// strings when the catalog omitted them.
type RecordingPayload struct {
	RecordingID  string
	Title        string
	ArtistID     string
	ArtistName   string
	ReleaseID    string
	ReleaseTitle string
	ReleaseDate  string
	CoverURL     string
}
