package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/completion-engine/internal/data/db"
	"github.com/yungbote/completion-engine/internal/observability"
	"github.com/yungbote/completion-engine/internal/platform/envutil"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

const (
	IssuerLocal = "local"
	IssuerNoop  = "noop"
)

type RecomputeConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	MaxInsertAttempts int           `yaml:"max_insert_attempts"`
	Timeout           time.Duration `yaml:"timeout"`
}

type CertificateConfig struct {
	Issuer  string        `yaml:"issuer"`
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Config is read from an optional YAML file (CONFIG_PATH) and then from the
// environment, which always wins. Secrets are only read from the environment.
type Config struct {
	Port            string            `yaml:"port"`
	LogMode         string            `yaml:"log_mode"`
	Environment     string            `yaml:"environment"`
	CORSOrigins     []string          `yaml:"cors_origins"`
	ShutdownTimeout time.Duration     `yaml:"shutdown_timeout"`
	MetricsInterval time.Duration     `yaml:"metrics_interval"`
	DB              db.Config         `yaml:"db"`
	Redis           RedisConfig       `yaml:"redis"`
	Recompute       RecomputeConfig   `yaml:"recompute"`
	Certificates    CertificateConfig `yaml:"certificates"`
	Otel            OtelConfig        `yaml:"otel"`

	JWTSecretKey string `yaml:"-"`
	JWTIssuer    string `yaml:"jwt_issuer"`
}

func defaultConfig() Config {
	return Config{
		Port:            "8080",
		LogMode:         "development",
		Environment:     "local",
		ShutdownTimeout: 15 * time.Second,
		MetricsInterval: 15 * time.Second,
		DB: db.Config{
			Driver: db.DriverPostgres,
			Postgres: db.PostgresConfig{
				Host: "localhost",
				Port: 5432,
				User: "postgres",
				Name: "completion_engine",
			},
			SQLitePath: "completion-engine.db",
		},
		Redis: RedisConfig{Channel: "progress-events"},
		Recompute: RecomputeConfig{
			MaxAttempts:       5,
			MaxInsertAttempts: 3,
			Timeout:           30 * time.Second,
		},
		Certificates: CertificateConfig{
			Issuer:  IssuerLocal,
			Workers: 4,
			Timeout: 10 * time.Second,
		},
		Otel: OtelConfig{ServiceName: "completion-engine", SampleRatio: 1},
	}
}

// LoadConfig layers defaults, the optional YAML file at CONFIG_PATH and the
// environment, in that order. A dotenv file (ENV_FILE, default .env) only fills
// variables that are not already set.
func LoadConfig(log *logger.Logger) (Config, error) {
	envFile := envutil.String("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	} else if err == nil && log != nil {
		log.Info("Loaded env file", "path", envFile)
	}

	cfg := defaultConfig()
	if path := envutil.String("CONFIG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Environment = envutil.String("ENVIRONMENT", cfg.Environment)
	cfg.CORSOrigins = envutil.List("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.ShutdownTimeout = envutil.Duration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.MetricsInterval = envutil.Duration("METRICS_INTERVAL", cfg.MetricsInterval)

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.DB.Postgres.Host)
	cfg.DB.Postgres.Port = envutil.Int("POSTGRES_PORT", cfg.DB.Postgres.Port)
	cfg.DB.Postgres.User = envutil.String("POSTGRES_USER", cfg.DB.Postgres.User)
	cfg.DB.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Postgres.Password)
	cfg.DB.Postgres.Name = envutil.String("POSTGRES_NAME", cfg.DB.Postgres.Name)
	cfg.DB.Postgres.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.Postgres.SSLMode)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)
	cfg.DB.MaxOpen = envutil.Int("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpen)

	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.JWTIssuer = envutil.String("JWT_ISSUER", cfg.JWTIssuer)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Recompute.MaxAttempts = envutil.Int("RECOMPUTE_MAX_ATTEMPTS", cfg.Recompute.MaxAttempts)
	cfg.Recompute.Timeout = envutil.Duration("RECOMPUTE_TIMEOUT", cfg.Recompute.Timeout)

	cfg.Certificates.Issuer = envutil.String("CERTIFICATE_ISSUER", cfg.Certificates.Issuer)
	cfg.Certificates.Workers = envutil.Int("CERTIFICATE_WORKERS", cfg.Certificates.Workers)
	cfg.Certificates.Timeout = envutil.Duration("CERTIFICATE_TIMEOUT", cfg.Certificates.Timeout)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.Otel.SampleRatio)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch strings.ToLower(c.Certificates.Issuer) {
	case IssuerLocal, IssuerNoop:
	default:
		return fmt.Errorf("unsupported CERTIFICATE_ISSUER %q", c.Certificates.Issuer)
	}
	if c.Recompute.MaxAttempts <= 0 {
		return fmt.Errorf("RECOMPUTE_MAX_ATTEMPTS must be > 0")
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0,1]")
	}
	return nil
}

func (c Config) OtelSettings() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Environment,
		Endpoint:    c.Otel.Endpoint,
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}
