package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/google/uuid"
)

// Feed transports.
const (
	FeedSSE       = "sse"
	FeedWebSocket = "websocket"
	FeedKafka     = "kafka"
)

// Snapshot database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Bulk snapshot source. SnapshotDSN takes precedence over SnapshotURL.
	SnapshotURL     string
	SnapshotTimeout time.Duration
	SnapshotDriver  string
	SnapshotDSN     string

	// Live feed.
	FeedTransport  string
	FeedURL        string
	KafkaBrokers   []string
	KafkaFeedTopic string
	KafkaGroupID   string

	// KafkaFeedFromStart replays the feed topic from its first offset instead
	// of only delivering messages published after the session joins.
	KafkaFeedFromStart bool

	// KafkaChartTopic enables publishing chart rebuilds when set.
	KafkaChartTopic string

	// Danger field simulation.
	FieldWidth         float64
	FieldHeight        float64
	FieldCharge        float64
	FieldPadding       float64
	FieldTickInterval  time.Duration
	FieldEnterDuration time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	snapshotTimeout, err := parsePositiveDuration("SNAPSHOT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	tickInterval, err := parsePositiveDuration("FIELD_TICK_INTERVAL", "16ms")
	if err != nil {
		return nil, err
	}
	enterDuration, err := parsePositiveDuration("FIELD_ENTER_DURATION", "500ms")
	if err != nil {
		return nil, err
	}

	width, err := parseFloat("FIELD_WIDTH", "800")
	if err != nil {
		return nil, err
	}
	height, err := parseFloat("FIELD_HEIGHT", "600")
	if err != nil {
		return nil, err
	}
	charge, err := parseFloat("FIELD_CHARGE", "-5")
	if err != nil {
		return nil, err
	}
	padding, err := parseFloat("FIELD_PADDING", "4")
	if err != nil {
		return nil, err
	}

	fromStart, err := strconv.ParseBool(sharedcfg.EnvOrDefault("KAFKA_FEED_FROM_START", "false"))
	if err != nil {
		return nil, errors.New("invalid KAFKA_FEED_FROM_START")
	}

	groupID := os.Getenv("KAFKA_GROUP_ID")
	if groupID == "" {
		// Each dashboard session needs every message, so sessions never share a group.
		groupID = "neo-stream-" + uuid.NewString()
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SnapshotURL:     sharedcfg.EnvOrDefault("SNAPSHOT_URL", "http://localhost:8000"),
		SnapshotTimeout: snapshotTimeout,
		SnapshotDriver:  sharedcfg.EnvOrDefault("SNAPSHOT_DRIVER", DriverSQLite),
		SnapshotDSN:     os.Getenv("SNAPSHOT_DSN"),

		FeedTransport:   sharedcfg.EnvOrDefault("FEED_TRANSPORT", FeedSSE),
		FeedURL:         sharedcfg.EnvOrDefault("FEED_URL", "http://localhost:8000/stream/neos"),
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFeedTopic:  sharedcfg.EnvOrDefault("KAFKA_FEED_TOPIC", "neo-approaches"),
		KafkaGroupID:    groupID,
		KafkaChartTopic: os.Getenv("KAFKA_CHART_TOPIC"),

		KafkaFeedFromStart: fromStart,

		FieldWidth:         width,
		FieldHeight:        height,
		FieldCharge:        charge,
		FieldPadding:       padding,
		FieldTickInterval:  tickInterval,
		FieldEnterDuration: enterDuration,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.FeedTransport {
	case FeedSSE, FeedWebSocket:
		if cfg.FeedURL == "" {
			return errors.New("FEED_URL is required")
		}
	case FeedKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaFeedTopic == "" {
			return errors.New("KAFKA_FEED_TOPIC is required")
		}
	default:
		return fmt.Errorf("invalid FEED_TRANSPORT %q: want sse, websocket or kafka", cfg.FeedTransport)
	}

	switch cfg.SnapshotDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid SNAPSHOT_DRIVER %q: want sqlite or postgres", cfg.SnapshotDriver)
	}
	if cfg.SnapshotDSN == "" && cfg.SnapshotURL == "" {
		return errors.New("SNAPSHOT_URL or SNAPSHOT_DSN is required")
	}

	if cfg.KafkaChartTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_CHART_TOPIC is set but KAFKA_BROKERS is empty")
	}
	if cfg.FieldWidth <= 0 || cfg.FieldHeight <= 0 {
		return errors.New("FIELD_WIDTH and FIELD_HEIGHT must be positive")
	}
	if cfg.FieldPadding < 2 {
		return errors.New("FIELD_PADDING must be at least 2")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}
