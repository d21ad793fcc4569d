package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP struct {
		Port            string        `env:"PORT" envDefault:"8080"`
		JWTSecret       string        `env:"JWT_SECRET,required"`
		ImportRateLimit int           `env:"IMPORT_RATE_LIMIT" envDefault:"10"`
		ImportRateEvery time.Duration `env:"IMPORT_RATE_WINDOW" envDefault:"1m"`
	}

	GRPCHealthAddr string `env:"GRPC_HEALTH_ADDR" envDefault:":50051"`

	Storage struct {
		StreamingDir  string `env:"STREAMING_PLAYLISTS_DIR" envDefault:"./storage/streaming-playlists/hls"`
		ImportDir     string `env:"IMPORT_DIR" envDefault:"./storage/imports"`
		TmpDir        string `env:"TMP_DIR" envDefault:""`
		PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	}

	Minio struct {
		Enabled   bool   `env:"MINIO_ENABLED" envDefault:"false"`
		Endpoint  string `env:"MINIO_ENDPOINT"`
		AccessKey string `env:"MINIO_ACCESS_KEY"`
		SecretKey string `env:"MINIO_SECRET_KEY"`
		Bucket    string `env:"MINIO_BUCKET" envDefault:"videos"`
		UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
		BaseURL   string `env:"MINIO_BASE_URL"`
	}

	PostgresDSN string `env:"POSTGRES_DSN,required"`

	Redis struct {
		Addr     string `env:"REDIS_HOST" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
		Topic   string   `env:"KAFKA_TRANSCODED_TOPIC" envDefault:"video-transcoded"`
		GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"hls-artifacts"`
	}

	RabbitMQ struct {
		URL   string `env:"RMQ_HOST"`
		Queue string `env:"RMQ_NOTIFY_QUEUE" envDefault:"notify.q"`
	}

	HLS struct {
		MutationTimeout     time.Duration `env:"HLS_MUTATION_TIMEOUT" envDefault:"5m"`
		HashConcurrency     int           `env:"HLS_HASH_CONCURRENCY" envDefault:"2"`
		ImportTimeout       time.Duration `env:"HLS_IMPORT_TIMEOUT" envDefault:"10m"`
		ImportBudgetKB      int64         `env:"HLS_IMPORT_BUDGET_KB" envDefault:"2097152"`
		DownloadConcurrency int           `env:"HLS_IMPORT_CONCURRENCY" envDefault:"4"`
		FFProbePath         string        `env:"FFPROBE_PATH" envDefault:"ffprobe"`
	}
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.AccessKey == "" || c.Minio.SecretKey == "" || c.Minio.Bucket == "") {
		return fmt.Errorf("MinIO environment variables are not set")
	}
	if c.HLS.ImportBudgetKB <= 0 {
		return fmt.Errorf("HLS_IMPORT_BUDGET_KB must be positive")
	}
	if c.HLS.ImportTimeout <= 0 || c.HLS.MutationTimeout <= 0 {
		return fmt.Errorf("HLS timeouts must be positive")
	}
	return nil
}
