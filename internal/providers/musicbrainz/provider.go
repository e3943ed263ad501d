package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
)

const (
	defaultEndpoint        = "https://musicbrainz.org/ws/2"
	defaultCoverArtBaseURL = "https://coverartarchive.org"
	defaultUserAgent       = "MIMM/2.0 (+https://github.com/cybersmurf/MIMM-2.0)"

	unknownArtist = "Unknown artist"
	unknownAlbum  = "Unknown album"
)

type Config struct {
	Endpoint        string
	CoverArtBaseURL string
	UserAgent       string
	Client          *http.Client
	Throttle        *Throttle
}

// Client is the primary catalog: the MusicBrainz recording search API.
// Besides plain tracks it yields the structured payloads the persistent
// metadata cache is built from.
type Client struct {
	client          *http.Client
	endpoint        string
	coverArtBaseURL string
	userAgent       string
	throttle        *Throttle
}

type recordingResponse struct {
	Recordings []recordingItem `json:"recordings"`
}

type recordingItem struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	ArtistCredit []artistCreditItem `json:"artist-credit"`
	Releases     []releaseItem      `json:"releases"`
}

type artistCreditItem struct {
	Name   string      `json:"name"`
	Artist *artistItem `json:"artist"`
}

type artistItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type releaseItem struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Date         string           `json:"date"`
	CoverArchive coverArchiveItem `json:"cover-art-archive"`
}

type coverArchiveItem struct {
	Front bool `json:"front"`
}

func NewClient(cfg Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	coverArtBaseURL := strings.TrimSpace(cfg.CoverArtBaseURL)
	if coverArtBaseURL == "" {
		coverArtBaseURL = defaultCoverArtBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		client:          client,
		endpoint:        strings.TrimRight(endpoint, "/"),
		coverArtBaseURL: strings.TrimRight(coverArtBaseURL, "/"),
		userAgent:       userAgent,
		throttle:        cfg.Throttle,
	}
}

func (c *Client) Source() domain.TrackSource {
	return domain.SourceMusicBrainz
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	tracks, _, err := c.SearchWithMetadata(ctx, query, limit)
	return tracks, err
}

func (c *Client) SearchWithMetadata(ctx context.Context, query string, limit int) ([]domain.Track, []domain.RecordingPayload, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, nil, err
	}

	params := url.Values{
		"query": {strings.TrimSpace(query)},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(limit)},
	}
	reqURL := c.endpoint + "/recording?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, nil, fmt.Errorf("musicbrainz HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, nil, err
	}

	var response recordingResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, nil, fmt.Errorf("musicbrainz payload: %w", err)
	}

	tracks := make([]domain.Track, 0, len(response.Recordings))
	payloads := make([]domain.RecordingPayload, 0, len(response.Recordings))
	for _, recording := range response.Recordings {
		track, cachePayload, ok := c.mapRecording(recording)
		if !ok {
			continue
		}
		tracks = append(tracks, track)
		payloads = append(payloads, cachePayload)
	}
	return tracks, payloads, nil
}

func (c *Client) mapRecording(recording recordingItem) (domain.Track, domain.RecordingPayload, bool) {
	id := strings.TrimSpace(recording.ID)
	title := strings.TrimSpace(recording.Title)
	if id == "" || title == "" {
		return domain.Track{}, domain.RecordingPayload{}, false
	}

	artistName := unknownArtist
	artistID := ""
	if len(recording.ArtistCredit) > 0 {
		credit := recording.ArtistCredit[0]
		if name := strings.TrimSpace(credit.Name); name != "" {
			artistName = name
		} else if credit.Artist != nil && strings.TrimSpace(credit.Artist.Name) != "" {
			artistName = strings.TrimSpace(credit.Artist.Name)
		}
		if credit.Artist != nil {
			artistID = strings.TrimSpace(credit.Artist.ID)
		}
	}

	albumTitle := unknownAlbum
	releaseID := ""
	releaseDate := ""
	coverURL := ""
	if len(recording.Releases) > 0 {
		release := recording.Releases[0]
		if title := strings.TrimSpace(release.Title); title != "" {
			albumTitle = title
		}
		releaseID = strings.TrimSpace(release.ID)
		releaseDate = strings.TrimSpace(release.Date)
		if release.CoverArchive.Front && releaseID != "" {
			coverURL = c.coverArtBaseURL + "/release/" + releaseID + "/front-250"
		}
	}

	track := domain.Track{
		Title:      title,
		Artist:     artistName,
		Album:      albumTitle,
		CoverURL:   coverURL,
		Source:     domain.SourceMusicBrainz,
		ExternalID: id,
	}
	payload := domain.RecordingPayload{
		RecordingID:  id,
		Title:        title,
		ArtistID:     artistID,
		ArtistName:   artistName,
		ReleaseID:    releaseID,
		ReleaseTitle: albumTitle,
		ReleaseDate:  releaseDate,
		CoverURL:     coverURL,
	}
	return track, payload, true
}
