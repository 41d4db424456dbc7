package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Ticket sources for media uploads.
const (
	TicketSourceAPI         = "api"
	TicketSourceObjectStore = "objectstore"
)

// Config captures the full runtime configuration for the moments services.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	API     APIConfig
	Drops   DropsConfig
	Compass CompassConfig
	Kafka   KafkaConfig
	Storage StorageConfig
	Tracing TracingConfig
	Upload  UploadConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"moments-gateway"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type APIConfig struct {
	BaseURL string        `env:"MOMENTS_API_URL" envDefault:"https://moments.poap.tech"`
	APIKey  string        `env:"MOMENTS_API_KEY"`
	Timeout time.Duration `env:"MOMENTS_API_TIMEOUT" envDefault:"30s"`
}

type DropsConfig struct {
	BaseURL string        `env:"DROPS_API_URL" envDefault:"https://api.poap.tech"`
	APIKey  string        `env:"DROPS_API_KEY"`
	Timeout time.Duration `env:"DROPS_API_TIMEOUT" envDefault:"30s"`
}

type CompassConfig struct {
	Endpoint string        `env:"COMPASS_URL" envDefault:"https://public.compass.poap.tech/v1/graphql"`
	APIKey   string        `env:"COMPASS_API_KEY"`
	Timeout  time.Duration `env:"COMPASS_TIMEOUT" envDefault:"15s"`
}

type KafkaConfig struct {
	Enabled          bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	MomentsTopic     string        `env:"KAFKA_MOMENTS_TOPIC" envDefault:"moments.events"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	PublishTimeout   time.Duration `env:"KAFKA_PUBLISH_TIMEOUT" envDefault:"5s"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"10ms"`
}

type StorageConfig struct {
	Provider      string        `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint      string        `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region        string        `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket        string        `env:"STORAGE_BUCKET" envDefault:"moments-media"`
	AccessKey     string        `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey     string        `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL        bool          `env:"STORAGE_USE_SSL" envDefault:"false"`
	KeyPrefix     string        `env:"STORAGE_KEY_PREFIX" envDefault:"moments"`
	PresignExpiry time.Duration `env:"STORAGE_PRESIGN_EXPIRY" envDefault:"15m"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=moments"`
}

type UploadConfig struct {
	TicketSource      string `env:"MEDIA_TICKET_SOURCE" envDefault:"api"`
	MaxSizeBytes      int64  `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"104857600"`
	MultipartMemBytes int64  `env:"UPLOAD_MULTIPART_MEM_BYTES" envDefault:"33554432"`
	MaxMediaItems     int    `env:"UPLOAD_MAX_MEDIA_ITEMS" envDefault:"10"`
}

// Load reads an optional .env file, then parses environment variables into Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Upload.TicketSource {
	case TicketSourceAPI, TicketSourceObjectStore:
	default:
		return fmt.Errorf("unsupported MEDIA_TICKET_SOURCE: %q", c.Upload.TicketSource)
	}
	if c.Upload.MaxMediaItems < 0 {
		return fmt.Errorf("UPLOAD_MAX_MEDIA_ITEMS must not be negative")
	}
	return nil
}
