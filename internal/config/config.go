package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	S3          S3Config
	Log         LogConfig
	CORS        CORSConfig
	Queue       QueueConfig
	Extractor   ExtractorConfig
	Transformer TransformerConfig
	Engine      EngineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for document payload storage.
type S3Config struct {
	Region            string `mapstructure:"region"`
	Bucket            string `mapstructure:"bucket"`
	Endpoint          string `mapstructure:"endpoint"`
	AccessKey         string `mapstructure:"access_key"`
	SecretKey         string `mapstructure:"secret_key"`
	MaxFileSizeMB     int64  `mapstructure:"max_file_size_mb"`
	PresignExpirySecs int64  `mapstructure:"presign_expiry_secs"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueueConfig holds job queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	Concurrency      int `mapstructure:"concurrency"`
}

// ExtractorConfig holds settings for the remote extraction endpoint.
type ExtractorConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// TransformerConfig holds settings for the remote transformation endpoint.
type TransformerConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// EngineConfig holds transformation engine settings.
type EngineConfig struct {
	// EmptySentinels are dependency values treated as "no data"; a field
	// whose inputs are all sentinels skips its remote call.
	EmptySentinels      []string `mapstructure:"empty_sentinels"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
}

// Load reads configuration from environment variables with the FORMOS_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORMOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "formos")
	v.SetDefault("db.password", "formos_secret")
	v.SetDefault("db.name", "formos_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "formos-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry_secs", 900)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.concurrency", 4)

	// Extraction/transformation endpoint defaults
	v.SetDefault("extractor.endpoint", "http://localhost:9090/api/extract")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.timeout_secs", 300)
	v.SetDefault("transformer.endpoint", "http://localhost:9090/api/transform")
	v.SetDefault("transformer.api_key", "")
	v.SetDefault("transformer.timeout_secs", 120)

	// Engine defaults
	v.SetDefault("engine.empty_sentinels", "-,hyphen,")
	v.SetDefault("engine.confidence_threshold", 0.5)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                 "FORMOS_SERVER_PORT",
		"server.read_timeout":         "FORMOS_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "FORMOS_SERVER_WRITE_TIMEOUT",
		"server.environment":          "FORMOS_SERVER_ENVIRONMENT",
		"db.host":                     "FORMOS_DB_HOST",
		"db.port":                     "FORMOS_DB_PORT",
		"db.user":                     "FORMOS_DB_USER",
		"db.password":                 "FORMOS_DB_PASSWORD",
		"db.name":                     "FORMOS_DB_NAME",
		"db.sslmode":                  "FORMOS_DB_SSLMODE",
		"db.max_open":                 "FORMOS_DB_MAX_OPEN",
		"db.max_idle":                 "FORMOS_DB_MAX_IDLE",
		"s3.region":                   "FORMOS_S3_REGION",
		"s3.bucket":                   "FORMOS_S3_BUCKET",
		"s3.endpoint":                 "FORMOS_S3_ENDPOINT",
		"s3.access_key":               "FORMOS_S3_ACCESS_KEY",
		"s3.secret_key":               "FORMOS_S3_SECRET_KEY",
		"s3.max_file_size_mb":         "FORMOS_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry_secs":      "FORMOS_S3_PRESIGN_EXPIRY_SECS",
		"log.level":                   "FORMOS_LOG_LEVEL",
		"log.format":                  "FORMOS_LOG_FORMAT",
		"cors.allowed_origins":        "FORMOS_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":    "FORMOS_QUEUE_POLL_INTERVAL_SECS",
		"queue.concurrency":           "FORMOS_QUEUE_CONCURRENCY",
		"extractor.endpoint":          "FORMOS_EXTRACTOR_ENDPOINT",
		"extractor.api_key":           "FORMOS_EXTRACTOR_API_KEY",
		"extractor.timeout_secs":      "FORMOS_EXTRACTOR_TIMEOUT_SECS",
		"transformer.endpoint":        "FORMOS_TRANSFORMER_ENDPOINT",
		"transformer.api_key":         "FORMOS_TRANSFORMER_API_KEY",
		"transformer.timeout_secs":    "FORMOS_TRANSFORMER_TIMEOUT_SECS",
		"engine.empty_sentinels":      "FORMOS_ENGINE_EMPTY_SENTINELS",
		"engine.confidence_threshold": "FORMOS_ENGINE_CONFIDENCE_THRESHOLD",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if FORMOS_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FORMOS_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:            v.GetString("s3.region"),
		Bucket:            v.GetString("s3.bucket"),
		Endpoint:          v.GetString("s3.endpoint"),
		AccessKey:         v.GetString("s3.access_key"),
		SecretKey:         v.GetString("s3.secret_key"),
		MaxFileSizeMB:     v.GetInt64("s3.max_file_size_mb"),
		PresignExpirySecs: v.GetInt64("s3.presign_expiry_secs"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitCommaList(v.GetString("cors.allowed_origins")),
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}
	cfg.Extractor = ExtractorConfig{
		Endpoint:    v.GetString("extractor.endpoint"),
		APIKey:      v.GetString("extractor.api_key"),
		TimeoutSecs: v.GetInt("extractor.timeout_secs"),
	}
	cfg.Transformer = TransformerConfig{
		Endpoint:    v.GetString("transformer.endpoint"),
		APIKey:      v.GetString("transformer.api_key"),
		TimeoutSecs: v.GetInt("transformer.timeout_secs"),
	}
	cfg.Engine = EngineConfig{
		EmptySentinels:      splitSentinelList(v.GetString("engine.empty_sentinels")),
		ConfidenceThreshold: v.GetFloat64("engine.confidence_threshold"),
	}

	return cfg, nil
}

// splitCommaList splits a comma-separated string, dropping empty entries.
func splitCommaList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// splitSentinelList splits the sentinel config. Unlike splitCommaList, empty
// entries are kept: the empty string is itself a valid sentinel.
func splitSentinelList(s string) []string {
	return strings.Split(s, ",")
}
