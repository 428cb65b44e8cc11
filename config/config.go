package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override the yaml file,
// e.g. FIELDBOOK_BACKEND_BASE_URL.
const EnvPrefix = "FIELDBOOK"

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logger    LoggerConfig    `yaml:"logger"`
	Cache     CacheConfig     `yaml:"cache"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"rate_limit"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
	GinMode string `yaml:"gin_mode" envconfig:"gin_mode"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

// BackendConfig points at the booking REST API and its push channel.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"base_url"`
	SocketURL      string `yaml:"socket_url" envconfig:"socket_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"timeout_seconds"`
	TimeZone       string `yaml:"time_zone" envconfig:"time_zone"`
}

func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Location resolves TimeZone, falling back to the process local zone.
func (b BackendConfig) Location() (*time.Location, error) {
	if b.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", b.TimeZone, err)
	}
	return loc, nil
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	BookingTopic string   `yaml:"booking_topic" envconfig:"booking_topic"`
	GroupID      string   `yaml:"group_id" envconfig:"group_id"`
	PublishRetry int      `yaml:"publish_retry" envconfig:"publish_retry"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CacheConfig struct {
	BranchesTTLSeconds int `yaml:"branches_ttl_seconds" envconfig:"branches_ttl_seconds"`
	SnapshotTTLSeconds int `yaml:"snapshot_ttl_seconds" envconfig:"snapshot_ttl_seconds"`
}

type WorkerConfig struct {
	// RefreshSchedule is a cron spec for re-requesting the default availability room.
	RefreshSchedule string `yaml:"refresh_schedule" envconfig:"refresh_schedule"`
}

type RateLimitConfig struct {
	// Rate uses the limiter formatted notation, e.g. "120-M".
	Rate string `yaml:"rate"`
}

func LoadConfig(path string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url is required")
	}

	return &cfg, nil
}
