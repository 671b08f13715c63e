package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Event and storage backend names accepted in configuration.
const (
	EventsBackendNone     = "none"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendPubSub   = "pubsub"

	StorageBackendMinio = "minio"
	StorageBackendGCS   = "gcs"
)

// ErrMissingDatabaseURL is returned when DATABASE_URL is not set.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")

type Config struct {
	ServerPort     int
	LogLevel       string
	CORSOrigins    []string
	RequestTimeout time.Duration
	Database       DatabaseConfig
	Events         EventsConfig
	RabbitMQ       RabbitMQConfig
	PubSub         PubSubConfig
	Storage        StorageConfig
	Minio          MinioConfig
	GCS            GCSConfig
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// EventsConfig selects the broker used to announce submitted runs.
type EventsConfig struct {
	Backend string
	Channel string
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// StorageConfig selects the object store used for leaderboard snapshots.
type StorageConfig struct {
	Backend string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	ProjectID       string
	Bucket          string
	CredentialsFile string
}

// LoadConfig reads configuration from the environment, loading a .env file first when one
// exists. It fails when DATABASE_URL is missing or a setting cannot be parsed.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	p := &parser{}

	dbConfig := DatabaseConfig{
		URL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime: p.duration("DB_CONN_MAX_IDLE_TIME", 2*time.Minute),
		PingTimeout:     p.duration("DB_PING_TIMEOUT", 5*time.Second),
	}

	cfg := Config{
		ServerPort:     p.int("SERVER_PORT", 8000),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
		RequestTimeout: p.duration("REQUEST_TIMEOUT", 15*time.Second),
		Database:       dbConfig,
		Events: EventsConfig{
			Backend: strings.ToLower(getEnv("EVENTS_BACKEND", EventsBackendNone)),
			Channel: getEnv("EVENTS_CHANNEL", "game-runs"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    p.bool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: p.bool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   p.int("RABBITMQ_PREFETCH", 10),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendMinio)),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "planetevo"),
			UseSSL:    p.bool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			Bucket:          getEnv("GCS_BUCKET", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.Database.URL == "" {
		return Config{}, ErrMissingDatabaseURL
	}

	switch cfg.Events.Backend {
	case EventsBackendNone, EventsBackendRabbitMQ, EventsBackendPubSub:
	default:
		return Config{}, fmt.Errorf("unsupported EVENTS_BACKEND %q", cfg.Events.Backend)
	}
	switch cfg.Storage.Backend {
	case StorageBackendMinio, StorageBackendGCS:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// parser keeps the first parse failure so LoadConfig can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw)
		return defaultValue
	}
	return value
}

func (p *parser) bool(key string, defaultValue bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw)
		return defaultValue
	}
	return value
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw)
		return defaultValue
	}
	return value
}

func (p *parser) fail(key, raw string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid value %q for %s", raw, key)
	}
}
