package itunes

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

const defaultEndpoint = "https://itunes.apple.com"

type Config struct {
	Endpoint string
	Client   *http.Client
}

// Client queries the iTunes Search API, the last resort in the fallback
// chain.
type Client struct {
	client   *http.Client
	endpoint string
}

type searchResponse struct {
	Results []resultItem `json:"results"`
}

type resultItem struct {
	TrackID        int64  `json:"trackId"`
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	ArtworkURL100  string `json:"artworkUrl100"`
	TrackViewURL   string `json:"trackViewUrl"`
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
	return &Client{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

func (c *Client) Source() domain.TrackSource {
	return domain.SourceITunes
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	params := url.Values{
		"term":   {strings.TrimSpace(query)},
		"media":  {"music"},
		"entity": {"song"},
		"limit":  {strconv.Itoa(limit)},
	}
	reqURL := c.endpoint + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("itunes HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, err
	}

	var response searchResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("itunes payload: %w", err)
	}

	tracks := make([]domain.Track, 0, len(response.Results))
	for _, item := range response.Results {
		title := strings.TrimSpace(item.TrackName)
		if title == "" {
			continue
		}
		tracks = append(tracks, domain.Track{
			Title:      title,
			Artist:     strings.TrimSpace(item.ArtistName),
			Album:      strings.TrimSpace(item.CollectionName),
			CoverURL:   strings.TrimSpace(item.ArtworkURL100),
			Source:     domain.SourceITunes,
			ExternalID: externalID(item),
		})
	}
	return tracks, nil
}

func externalID(item resultItem) string {
	if item.TrackID != 0 {
		return strconv.FormatInt(item.TrackID, 10)
	}
	if view := strings.TrimSpace(item.TrackViewURL); view != "" {
		return view
	}
	return strings.TrimSpace(item.TrackName)
}
