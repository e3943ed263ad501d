package domain

// Persistent metadata cache entities, keyed by MusicBrainz-issued string
// ids (MBIDs, at most 36 chars). Rows are written once on first sighting
// and never updated or deleted; stale names and cover art are accepted in
// exchange for never overwriting data with a partial provider response.

type CachedArtist struct {
	ID   string
	Name string
}

type CachedRelease struct {
	ID          string
	Title       string
	ReleaseDate string
	CoverArtURL string
}

type CachedRecording struct {
	ID           string
	Title        string
	ArtistID     string
	ArtistName   string
	ReleaseID    string
	ReleaseTitle string
	CoverURL     string
}
