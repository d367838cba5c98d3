package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Nothing here is required. Missing credentials, buckets and tables are
// reported per request as configuration errors and by GET /health.
// -----------------------------------------------------------------------------

type Config struct {
	App       AppConfig
	Server    ServerConfig
	AWS       AWSConfig
	Storage   StorageConfig
	Audit     AuditConfig
	Providers ProvidersConfig
	CORS      CORSConfig
	Log       LogConfig
}

type AppConfig struct {
	Name          string `envconfig:"APP_NAME" default:"fiddeen"`
	OrderIDPrefix string `envconfig:"ORDER_ID_PREFIX" default:"FD"`
}

type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Mode string `envconfig:"GIN_MODE" default:"release"`
}

type AWSConfig struct {
	Region          string `envconfig:"AWS_REGION"`
	AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
}

type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"s3"`
	Bucket  string `envconfig:"S3_BUCKET"`
	Dir     string `envconfig:"STORAGE_DIR" default:"renders-local"`
}

type AuditConfig struct {
	Backend string `envconfig:"AUDIT_BACKEND" default:"dynamodb"`
	Table   string `envconfig:"AUDIT_TABLE" default:"fiddeen_renders"`
	DSN     string `envconfig:"AUDIT_DSN" default:"fiddeen_audit.db"`
}

// ProvidersConfig holds provider selection and credentials. Each key may be
// given inline or as the name of an SSM parameter holding it.
type ProvidersConfig struct {
	Primary   string        `envconfig:"PRIMARY_PROVIDER" default:"stability"`
	Secondary string        `envconfig:"SECONDARY_PROVIDER"`
	Timeout   time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"90s"`

	StabilityKey      string `envconfig:"STABILITY_API_KEY"`
	StabilityKeyParam string `envconfig:"STABILITY_API_KEY_PARAM"`
	StabilityModel    string `envconfig:"STABILITY_MODEL" default:"sd3.5-large"`
	StabilityCFGScale int    `envconfig:"STABILITY_CFG_SCALE" default:"7"`

	OpenAIKey      string `envconfig:"OPENAI_API_KEY"`
	OpenAIKeyParam string `envconfig:"OPENAI_API_KEY_PARAM"`
	OpenAIModel    string `envconfig:"OPENAI_IMAGE_MODEL" default:"gpt-image-1"`

	GeminiKey      string `envconfig:"GEMINI_API_KEY"`
	GeminiKeyParam string `envconfig:"GEMINI_API_KEY_PARAM"`
	ImagenModel    string `envconfig:"IMAGEN_MODEL" default:"imagen-4.0-generate-001"`
}

type CORSConfig struct {
	AllowOrigins []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,OPTIONS"`
	AllowHeaders []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept"`
	MaxAge       time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		App:     AppConfig{Name: "fiddeen", OrderIDPrefix: "FD"},
		Server:  ServerConfig{Port: "8889", Mode: "test"},
		AWS:     AWSConfig{Region: "us-east-1"},
		Storage: StorageConfig{Backend: "s3", Bucket: "test-bucket"},
		Audit:   AuditConfig{Backend: "dynamodb", Table: "test_renders"},
		Providers: ProvidersConfig{
			Primary:           "stability",
			Timeout:           5 * time.Second,
			StabilityModel:    "sd3.5-large",
			StabilityCFGScale: 7,
			OpenAIModel:       "gpt-image-1",
			ImagenModel:       "imagen-4.0-generate-001",
		},
		Log: LogConfig{Level: "error", Format: "json"},
	}
}
