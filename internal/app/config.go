package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr               string
	RequestTimeout         time.Duration
	LogLevel               string
	LogFormat              string
	UserAgent              string
	MusicBrainzEndpoint    string
	MusicBrainzMinInterval time.Duration
	CoverArtBaseURL        string
	DeezerEndpoint         string
	ITunesEndpoint         string
	RedisURL               string
	MetadataDBPath         string
	CacheDisabled          bool
	OTLPEndpoint           string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout:         time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:              strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:              getEnv("SEARCH_USER_AGENT", "MIMM/2.0 (+https://github.com/cybersmurf/MIMM-2.0)"),
		MusicBrainzEndpoint:    getEnv("MUSICBRAINZ_ENDPOINT", "https://musicbrainz.org/ws/2"),
		MusicBrainzMinInterval: time.Duration(getEnvInt("MUSICBRAINZ_MIN_INTERVAL_MS", 1100)) * time.Millisecond,
		CoverArtBaseURL:        getEnv("COVERART_BASE_URL", "https://coverartarchive.org"),
		DeezerEndpoint:         getEnv("DEEZER_ENDPOINT", "https://api.deezer.com"),
		ITunesEndpoint:         getEnv("ITUNES_ENDPOINT", "https://itunes.apple.com"),
		RedisURL:               getEnv("REDIS_URL", ""),
		MetadataDBPath:         getEnv("METADATA_DB_PATH", "data/metadata.db"),
		CacheDisabled:          getEnvBool("SEARCH_CACHE_DISABLED", false),
		OTLPEndpoint:           getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
