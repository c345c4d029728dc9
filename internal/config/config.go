package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Remote datasets.
	TribesCSVURL    string
	PolygonsURL     string
	LinesURL        string
	PolygonNameAttr string
	LineNameAttr    string
	FetchTimeout    time.Duration
	DegradedStart   bool

	// Map rendering.
	CoincidenceTolerance float64
	BasemapURL           string
	BasemapName          string
	BasemapAttribution   string
	BasemapOpacity       float64
	MapCenterLat         float64
	MapCenterLon         float64
	MapZoom              int
	SelectedZoom         int

	// Selection event stream.
	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaSelectionTopic string

	// Remote payload cache.
	RedisURL        string
	PayloadCacheTTL time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("PAYLOAD_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	tolerance, err := parseFloat("COINCIDENCE_TOLERANCE", 0.0001)
	if err != nil {
		return nil, err
	}
	opacity, err := parseFloat("BASEMAP_OPACITY", 0.8)
	if err != nil {
		return nil, err
	}
	centerLat, err := parseFloat("MAP_CENTER_LAT", 23.97565)
	if err != nil {
		return nil, err
	}
	centerLon, err := parseFloat("MAP_CENTER_LON", 120.9738819)
	if err != nil {
		return nil, err
	}
	zoom, err := parseInt("MAP_ZOOM", 7)
	if err != nil {
		return nil, err
	}
	selectedZoom, err := parseInt("SELECTED_ZOOM", 15)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TribesCSVURL:    sharedcfg.EnvOrDefault("TRIBES_CSV_URL", "https://github.com/8048-kh/test02/raw/refs/heads/main/T_Result1.csv"),
		PolygonsURL:     sharedcfg.EnvOrDefault("TRIBE_SHP_URL", "https://github.com/8048-kh/test02/raw/refs/heads/main/tribe.shp"),
		LinesURL:        sharedcfg.EnvOrDefault("FLOW_GEOJSON_URL", "https://github.com/8048-kh/test02/raw/refs/heads/main/flow_line_4326.geojson"),
		PolygonNameAttr: sharedcfg.EnvOrDefault("POLYGON_NAME_ATTR", "tribe name"),
		LineNameAttr:    sharedcfg.EnvOrDefault("LINE_NAME_ATTR", "goal_tribe"),
		FetchTimeout:    fetchTimeout,
		DegradedStart:   os.Getenv("DEGRADED_START") == "true",

		CoincidenceTolerance: tolerance,
		BasemapURL:           sharedcfg.EnvOrDefault("BASEMAP_URL", "http://gis.sinica.edu.tw/tileserver/file-exists.php?img=JM50K_1916-jpg-{z}-{x}-{y}"),
		BasemapName:          sharedcfg.EnvOrDefault("BASEMAP_NAME", "「1916-日治原住民地地形圖-1:50,000」"),
		BasemapAttribution:   sharedcfg.EnvOrDefault("BASEMAP_ATTRIBUTION", "台灣百年歷史地圖 (中研院)"),
		BasemapOpacity:       opacity,
		MapCenterLat:         centerLat,
		MapCenterLon:         centerLon,
		MapZoom:              zoom,
		SelectedZoom:         selectedZoom,

		KafkaEnabled:        os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:        sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSelectionTopic: sharedcfg.EnvOrDefault("KAFKA_SELECTION_TOPIC", "tribe-selections"),

		RedisURL:        os.Getenv("REDIS_URL"),
		PayloadCacheTTL: cacheTTL,
	}

	if cfg.TribesCSVURL == "" {
		return nil, errors.New("TRIBES_CSV_URL is required")
	}
	if cfg.CoincidenceTolerance <= 0 {
		return nil, errors.New("COINCIDENCE_TOLERANCE must be positive")
	}
	if cfg.BasemapOpacity < 0 || cfg.BasemapOpacity > 1 {
		return nil, errors.New("BASEMAP_OPACITY must be between 0 and 1")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSelectionTopic == "" {
		return nil, errors.New("KAFKA_SELECTION_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}
