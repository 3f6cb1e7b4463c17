package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iksnae/dealerchat/internal"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "DEALERCHAT"
	appDirName     = ".dealerchat"
	configFileName = "config"
)

// Config is the client configuration
type Config struct {
	// Server is the backend base URL; queries go to <Server>/query
	Server      string        `mapstructure:"server" yaml:"server"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	// Storage is the SQLite file holding the saved sessions
	Storage  string                    `mapstructure:"storage" yaml:"storage"`
	LogLevel string                    `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string                    `mapstructure:"log_file" yaml:"log_file"`
	Defaults internal.BusinessDefaults `mapstructure:"defaults" yaml:"defaults"`

	// Source is the config file that was read, empty when none was found
	Source string `mapstructure:"-" yaml:"-"`
}

// AppDir returns the per-user directory for config, sessions and logs
func AppDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, appDirName)
}

// DefaultConfigPath returns the config file used when --config is not given
func DefaultConfigPath() string {
	return filepath.Join(AppDir(), configFileName+".yaml")
}

func setDefaults(v *viper.Viper) {
	dir := AppDir()
	v.SetDefault("server", "http://localhost:8000")
	v.SetDefault("dial_timeout", 5*time.Second)
	v.SetDefault("storage", filepath.Join(dir, "sessions.db"))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", filepath.Join(dir, "dealerchat.log"))

	d := internal.DefaultBusinessDefaults()
	v.SetDefault("defaults.dealership", d.Dealership)
	v.SetDefault("defaults.service_type", d.ServiceType)
	v.SetDefault("defaults.vehicle", d.Vehicle)
	v.SetDefault("defaults.confirmation_id", d.ConfirmationID)
	v.SetDefault("defaults.date", d.Date)
	v.SetDefault("defaults.time", d.Time)
	v.SetDefault("defaults.notes", d.Notes)
	v.SetDefault("defaults.address_label", d.AddressLabel)
	v.SetDefault("defaults.phone", d.Phone)
	v.SetDefault("defaults.hours", d.Hours)
}

// Load reads configuration from configPath, or from the default location
// when configPath is empty. A missing default file is not an error. Every key
// can be overridden from the environment, e.g. DEALERCHAT_SERVER or
// DEALERCHAT_DEFAULTS_VEHICLE.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(AppDir())
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.Source); cfg.Source != "" && err != nil {
		cfg.Source = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", c.Server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL %q: scheme must be http or https", c.Server)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server URL %q: missing host", c.Server)
	}

	if c.Storage == "" {
		return errors.New("storage path is required")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("invalid dial_timeout: %s", c.DialTimeout)
	}

	if _, err := internal.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// QueryURL returns the streaming endpoint
func (c *Config) QueryURL() string {
	return strings.TrimRight(c.Server, "/") + "/query"
}
