package deezer

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

const defaultEndpoint = "https://api.deezer.com"

type Config struct {
	Endpoint string
	Client   *http.Client
}

// Client queries the public Deezer search API. It is the first fallback
// when the primary catalog returns nothing.
type Client struct {
	client   *http.Client
	endpoint string
}

type searchResponse struct {
	Data []trackItem `json:"data"`
}

type trackItem struct {
	ID     int64      `json:"id"`
	Title  string     `json:"title"`
	Artist artistItem `json:"artist"`
	Album  albumItem  `json:"album"`
}

type artistItem struct {
	Name string `json:"name"`
}

type albumItem struct {
	Title       string `json:"title"`
	CoverMedium string `json:"cover_medium"`
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
	return domain.SourceDeezer
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	params := url.Values{
		"q":     {strings.TrimSpace(query)},
		"limit": {strconv.Itoa(limit)},
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
		return nil, fmt.Errorf("deezer HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, err
	}

	var response searchResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("deezer payload: %w", err)
	}

	tracks := make([]domain.Track, 0, len(response.Data))
	for _, item := range response.Data {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		tracks = append(tracks, domain.Track{
			Title:      title,
			Artist:     strings.TrimSpace(item.Artist.Name),
			Album:      strings.TrimSpace(item.Album.Title),
			CoverURL:   strings.TrimSpace(item.Album.CoverMedium),
			Source:     domain.SourceDeezer,
			ExternalID: strconv.FormatInt(item.ID, 10),
		})
	}
	return tracks, nil
}
