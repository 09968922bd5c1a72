package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host     string `envconfig:"BACKEND_HOST" default:"0.0.0.0"`
	Port     int    `envconfig:"BACKEND_PORT" default:"8000" validate:"min=1,max=65535"`
	UseHTTPS bool   `envconfig:"USE_HTTPS" default:"false"`
	SSLKey   string `envconfig:"SSL_KEYFILE"`
	SSLCert  string `envconfig:"SSL_CERTFILE"`

	APIKey     string   `envconfig:"BOT_BACKEND_API_KEY" validate:"required"`
	BotToken   string   `envconfig:"BOT_TOKEN" validate:"required"`
	AdminIDs   AdminIDs `envconfig:"BOT_ADMIN_IDS"`
	BackendURL string   `envconfig:"BACKEND_URL" default:"http://127.0.0.1:8000/api/v1" validate:"required,url"`

	MongoURL  string   `envconfig:"MONGODB_URL" validate:"required"`
	SeedFile  string   `envconfig:"SEED_CATEGORIES_FILE"`
	CORSAllow []string `envconfig:"CORS_ORIGINS"`
	RateLimit int      `envconfig:"RATE_LIMIT" default:"1000" validate:"min=0"`

	MediaBackend   string `envconfig:"MEDIA_BACKEND" default:"s3" validate:"oneof=s3 minio"`
	MediaFolder    string `envconfig:"MEDIA_FOLDER" default:"focus_gallery" validate:"required"`
	MediaPublicURL string `envconfig:"MEDIA_PUBLIC_URL"`
	BucketName     string `envconfig:"BUCKET_NAME"`
	AWSRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey    string `envconfig:"S3_SECRET_KEY"`
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"focus-gallery"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	RedisURL      string `envconfig:"REDIS_URL"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"300s" validate:"gt=0"`
	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"60s"`
	TempDir            string        `envconfig:"TEMP_DIR"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
}

// AdminIDs is a comma separated list of Telegram user ids.
type AdminIDs []int64

func (a *AdminIDs) Decode(value string) error {
	ids := AdminIDs{}
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid admin id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	*a = ids
	return nil
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		// a missing .env is fine, real environment variables still apply
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate("LogLevel", "LogFormat"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ValidateServer checks the settings the API server needs.
func (c *Config) ValidateServer() error {
	if err := c.validate("Port", "APIKey", "MongoURL", "RateLimit", "MediaBackend", "MediaFolder"); err != nil {
		return err
	}
	if c.UseHTTPS && (c.SSLKey == "" || c.SSLCert == "") {
		return errors.New("USE_HTTPS requires SSL_KEYFILE and SSL_CERTFILE")
	}
	switch c.MediaBackend {
	case "s3":
		if c.BucketName == "" {
			return errors.New("MEDIA_BACKEND=s3 requires BUCKET_NAME")
		}
	case "minio":
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			return errors.New("MEDIA_BACKEND=minio requires MINIO_ENDPOINT and MINIO_BUCKET")
		}
	}
	return nil
}

// ValidateBot checks the settings the chat bot needs.
func (c *Config) ValidateBot() error {
	return c.validate("APIKey", "BotToken", "BackendURL", "SessionIdleTimeout")
}

func (c *Config) validate(fields ...string) error {
	if err := validator.New().StructPartial(c, fields...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
