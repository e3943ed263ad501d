package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
	"github.com/cybersmurf/mimm-music-search/internal/metrics"
)

// Store persists MusicBrainz metadata sightings in SQLite. Rows are
// write-once: an artist, release, or recording id already present keeps
// its first-seen values and later sightings are ignored.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the metadata database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("metadata db path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure metadata dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS mb_artists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS mb_releases (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			release_date TEXT,
			cover_art_url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS mb_recordings (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist_id TEXT,
			artist_name TEXT NOT NULL,
			release_id TEXT,
			release_title TEXT NOT NULL,
			cover_url TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// SaveRecordings stores the metadata carried by a primary-catalog search
// result set. All inserts happen in one transaction and only ids not yet
// present are written.
func (s *Store) SaveRecordings(ctx context.Context, payloads []domain.RecordingPayload) error {
	if len(payloads) == 0 {
		return nil
	}

	artists := make(map[string]domain.CachedArtist)
	releases := make(map[string]domain.CachedRelease)
	recordings := make(map[string]domain.CachedRecording)
	for _, payload := range payloads {
		if payload.ArtistID != "" {
			if _, ok := artists[payload.ArtistID]; !ok {
				artists[payload.ArtistID] = domain.CachedArtist{
					ID:   payload.ArtistID,
					Name: payload.ArtistName,
				}
			}
		}
		if payload.ReleaseID != "" {
			if _, ok := releases[payload.ReleaseID]; !ok {
				releases[payload.ReleaseID] = domain.CachedRelease{
					ID:          payload.ReleaseID,
					Title:       payload.ReleaseTitle,
					ReleaseDate: payload.ReleaseDate,
					CoverArtURL: payload.CoverURL,
				}
			}
		}
		if payload.RecordingID != "" {
			if _, ok := recordings[payload.RecordingID]; !ok {
				recordings[payload.RecordingID] = domain.CachedRecording{
					ID:           payload.RecordingID,
					Title:        payload.Title,
					ArtistID:     payload.ArtistID,
					ArtistName:   payload.ArtistName,
					ReleaseID:    payload.ReleaseID,
					ReleaseTitle: payload.ReleaseTitle,
					CoverURL:     payload.CoverURL,
				}
			}
		}
	}
	if len(artists) == 0 && len(releases) == 0 && len(recordings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	missingArtists, err := missingIDs(ctx, tx, "mb_artists", keysOf(artists))
	if err != nil {
		return err
	}
	for _, id := range missingArtists {
		artist := artists[id]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mb_artists (id, name) VALUES (?, ?)`,
			artist.ID, artist.Name,
		); err != nil {
			return fmt.Errorf("insert artist %s: %w", artist.ID, err)
		}
	}

	missingReleases, err := missingIDs(ctx, tx, "mb_releases", keysOf(releases))
	if err != nil {
		return err
	}
	for _, id := range missingReleases {
		release := releases[id]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mb_releases (id, title, release_date, cover_art_url) VALUES (?, ?, ?, ?)`,
			release.ID, release.Title, nullableString(release.ReleaseDate), nullableString(release.CoverArtURL),
		); err != nil {
			return fmt.Errorf("insert release %s: %w", release.ID, err)
		}
	}

	missingRecordings, err := missingIDs(ctx, tx, "mb_recordings", keysOf(recordings))
	if err != nil {
		return err
	}
	for _, id := range missingRecordings {
		recording := recordings[id]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mb_recordings (id, title, artist_id, artist_name, release_id, release_title, cover_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			recording.ID, recording.Title,
			nullableString(recording.ArtistID), recording.ArtistName,
			nullableString(recording.ReleaseID), recording.ReleaseTitle,
			nullableString(recording.CoverURL),
		); err != nil {
			return fmt.Errorf("insert recording %s: %w", recording.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata tx: %w", err)
	}

	metrics.MetadataRowsInserted.WithLabelValues("artist").Add(float64(len(missingArtists)))
	metrics.MetadataRowsInserted.WithLabelValues("release").Add(float64(len(missingReleases)))
	metrics.MetadataRowsInserted.WithLabelValues("recording").Add(float64(len(missingRecordings)))
	return nil
}

// Artist looks up a cached artist by MusicBrainz id.
func (s *Store) Artist(ctx context.Context, id string) (domain.CachedArtist, bool, error) {
	var artist domain.CachedArtist
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM mb_artists WHERE id = ?`, id,
	).Scan(&artist.ID, &artist.Name)
	if err == sql.ErrNoRows {
		return domain.CachedArtist{}, false, nil
	}
	if err != nil {
		return domain.CachedArtist{}, false, fmt.Errorf("query artist %s: %w", id, err)
	}
	return artist, true, nil
}

// Release looks up a cached release by MusicBrainz id.
func (s *Store) Release(ctx context.Context, id string) (domain.CachedRelease, bool, error) {
	var (
		release     domain.CachedRelease
		releaseDate sql.NullString
		coverArtURL sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, release_date, cover_art_url FROM mb_releases WHERE id = ?`, id,
	).Scan(&release.ID, &release.Title, &releaseDate, &coverArtURL)
	if err == sql.ErrNoRows {
		return domain.CachedRelease{}, false, nil
	}
	if err != nil {
		return domain.CachedRelease{}, false, fmt.Errorf("query release %s: %w", id, err)
	}
	release.ReleaseDate = releaseDate.String
	release.CoverArtURL = coverArtURL.String
	return release, true, nil
}

// Recording looks up a cached recording by MusicBrainz id.
func (s *Store) Recording(ctx context.Context, id string) (domain.CachedRecording, bool, error) {
	var (
		recording    domain.CachedRecording
		artistID     sql.NullString
		releaseID    sql.NullString
		coverURL     sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, artist_id, artist_name, release_id, release_title, cover_url
		 FROM mb_recordings WHERE id = ?`, id,
	).Scan(&recording.ID, &recording.Title, &artistID, &recording.ArtistName,
		&releaseID, &recording.ReleaseTitle, &coverURL)
	if err == sql.ErrNoRows {
		return domain.CachedRecording{}, false, nil
	}
	if err != nil {
		return domain.CachedRecording{}, false, fmt.Errorf("query recording %s: %w", id, err)
	}
	recording.ArtistID = artistID.String
	recording.ReleaseID = releaseID.String
	recording.CoverURL = coverURL.String
	return recording, true, nil
}

func missingIDs(ctx context.Context, tx *sql.Tx, table string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM "+table+" WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("query existing %s: %w", table, err)
	}
	defer rows.Close()

	existing := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan existing %s: %w", table, err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing %s: %w", table, err)
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
