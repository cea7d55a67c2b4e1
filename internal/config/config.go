// Package config loads qrhunt settings from defaults, an optional qrhunt.yaml,
// a .env file, QRHUNT_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. QRHUNT_WORKER_TIMEOUT.
const EnvPrefix = "QRHUNT"

// Worker execution modes.
const (
	WorkerModeGoroutine = "goroutine"
	WorkerModeProcess   = "process"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// WorkerConfig controls the isolated detection worker.
type WorkerConfig struct {
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"` // hard wait for a result
	Reclaim time.Duration `mapstructure:"reclaim"` // wait for the worker to exit after its result
}

// HuntConfig holds game rules.
type HuntConfig struct {
	ClaimLimit int64 `mapstructure:"claim_limit"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RenderConfig controls where annotated artefacts are written.
type RenderConfig struct {
	Dir string `mapstructure:"dir"`
}

// NotifyConfig lists shoutrrr service URLs that receive user messages.
type NotifyConfig struct {
	URLs    []string      `mapstructure:"urls"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MQTTConfig enables publishing user messages to an MQTT broker.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// VerifyConfig controls the human-verification challenge.
type VerifyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Config is the complete application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Hunt    HuntConfig    `mapstructure:"hunt"`
	Storage StorageConfig `mapstructure:"storage"`
	Render  RenderConfig  `mapstructure:"render"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Verify  VerifyConfig  `mapstructure:"verify"`
}

// SetDefaults registers every key with its default value. Registering all keys
// is what lets viper resolve them from the environment during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("worker.mode", WorkerModeGoroutine)
	v.SetDefault("worker.timeout", 30*time.Second)
	v.SetDefault("worker.reclaim", 30*time.Second)

	v.SetDefault("hunt.claim_limit", 100)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "qrhunt.db")

	v.SetDefault("render.dir", os.TempDir())

	v.SetDefault("notify.urls", []string{})
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "qrhunt/messages")
	v.SetDefault("mqtt.client_id", "qrhunt")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("metrics.listen", "")

	v.SetDefault("verify.ttl", 5*time.Minute)
}

// New returns a viper instance wired for qrhunt: defaults, env binding and
// the optional qrhunt.yaml search path.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("qrhunt")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/qrhunt")
	return v
}

// Load reads the .env file and config file when present, then unmarshals and
// validates the result. A missing .env or config file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Worker.Mode = strings.ToLower(strings.TrimSpace(c.Worker.Mode))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Render.Dir == "" {
		c.Render.Dir = os.TempDir()
	}

	urls := c.Notify.URLs[:0]
	for _, u := range c.Notify.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	c.Notify.URLs = urls
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error

	switch c.Worker.Mode {
	case WorkerModeGoroutine, WorkerModeProcess:
	default:
		errs = append(errs, fmt.Errorf("worker.mode must be %q or %q, got %q", WorkerModeGoroutine, WorkerModeProcess, c.Worker.Mode))
	}
	if c.Worker.Timeout <= 0 {
		errs = append(errs, errors.New("worker.timeout must be > 0"))
	}
	if c.Worker.Reclaim <= 0 {
		errs = append(errs, errors.New("worker.reclaim must be > 0"))
	}
	if c.Hunt.ClaimLimit < 1 {
		errs = append(errs, errors.New("hunt.claim_limit must be >= 1"))
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverMySQL:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if c.Verify.TTL <= 0 {
		errs = append(errs, errors.New("verify.ttl must be > 0"))
	}
	if c.MQTT.Broker != "" && strings.TrimSpace(c.MQTT.Topic) == "" {
		errs = append(errs, errors.New("mqtt.topic is required when mqtt.broker is set"))
	}

	return errors.Join(errs...)
}
