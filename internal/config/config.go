package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ARBREC_DATABASE_URL
const EnvPrefix = "ARBREC"

// Config holds all configuration for the recorder
type Config struct {
	Database DatabaseConfig
	Recorder RecorderConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL            string // used verbatim when set
	Host           string
	Port           int
	Name           string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration
	MaxOpenConns   int
	MaxIdleConns   int
}

// RecorderConfig holds defaults for the record command
type RecorderConfig struct {
	MinROIThreshold decimal.Decimal
	DefaultInput    decimal.Decimal
	DefaultType     string
	DefaultMode     string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// MetricsConfig holds Pushgateway settings; an empty URL disables pushing
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// Load reads configuration from defaults, an optional config file, an
// optional .env file and the environment, in increasing precedence.
// cfgFile overrides the config file search when non-empty.
func Load(cfgFile string) (*Config, error) {
	// Existing environment wins over .env; a missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)

	v.SetDefault("recorder.min_roi_threshold", "0.3")
	v.SetDefault("recorder.default_input", "1000")
	v.SetDefault("recorder.default_type", "Triangle")
	v.SetDefault("recorder.default_mode", "Complete")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "arbrec")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("arbrec")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.arbrec")

		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	connectTimeout, err := time.ParseDuration(v.GetString("database.connect_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid database.connect_timeout: %w", err)
	}
	minROI, err := decimal.NewFromString(v.GetString("recorder.min_roi_threshold"))
	if err != nil {
		return nil, fmt.Errorf("invalid recorder.min_roi_threshold: %w", err)
	}
	defaultInput, err := decimal.NewFromString(v.GetString("recorder.default_input"))
	if err != nil {
		return nil, fmt.Errorf("invalid recorder.default_input: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:            v.GetString("database.url"),
			Host:           v.GetString("database.host"),
			Port:           v.GetInt("database.port"),
			Name:           v.GetString("database.name"),
			User:           v.GetString("database.user"),
			Password:       v.GetString("database.password"),
			SSLMode:        v.GetString("database.sslmode"),
			ConnectTimeout: connectTimeout,
			MaxOpenConns:   v.GetInt("database.max_open_conns"),
			MaxIdleConns:   v.GetInt("database.max_idle_conns"),
		},
		Recorder: RecorderConfig{
			MinROIThreshold: minROI,
			DefaultInput:    defaultInput,
			DefaultType:     v.GetString("recorder.default_type"),
			DefaultMode:     v.GetString("recorder.default_mode"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: v.GetString("metrics.pushgateway_url"),
			Job:            v.GetString("metrics.job"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var problems []string

	if err := c.Database.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Recorder.MinROIThreshold.IsNegative() {
		problems = append(problems, "recorder.min_roi_threshold must not be negative")
	}
	if !c.Recorder.DefaultInput.IsPositive() {
		problems = append(problems, "recorder.default_input must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Validate checks that a DSN can be built
func (d *DatabaseConfig) Validate() error {
	if d.ConnectTimeout <= 0 {
		return fmt.Errorf("database.connect_timeout must be positive")
	}
	if d.URL != "" {
		return nil
	}

	var missing []string
	if d.Host == "" {
		missing = append(missing, "host")
	}
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.User == "" {
		missing = append(missing, "user")
	}
	if d.Port <= 0 || d.Port > 65535 {
		missing = append(missing, "port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("database %s must be set when database.url is empty", strings.Join(missing, ", "))
	}
	return nil
}

// DSN returns a lib/pq connection string
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}

	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		secs := int(d.ConnectTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Redacted returns the DSN with any password masked, for logging
func (d *DatabaseConfig) Redacted() string {
	u, err := url.Parse(d.DSN())
	if err != nil || u.User == nil {
		return d.DSN()
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
