package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// WalletConfig points at the wallet provider.
type WalletConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	DetectTimeout  time.Duration `mapstructure:"detect_timeout"`
}

// TransferConfig holds submission behaviour.
type TransferConfig struct {
	// HaltOnPrecheck stops a submission when the recipient is invalid or no
	// provider is present, instead of warning and carrying on.
	HaltOnPrecheck bool `mapstructure:"halt_on_precheck"`
	LookalikeCheck bool `mapstructure:"lookalike_check"`
}

// DatabaseConfig holds sqlite settings. An empty path disables the journal.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds log15 settings. An empty path discards logs.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ToastDuration time.Duration `mapstructure:"toast_duration"`
	HistoryLimit  int           `mapstructure:"history_limit"`
}

// MetricsConfig holds the optional prometheus listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// New returns a viper instance with defaults, config file lookup and env
// overrides (prefix ETHSEND_) set up, without reading anything yet.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("wallet.rpc_url", "http://127.0.0.1:1248")
	v.SetDefault("wallet.poll_interval", "2s")
	v.SetDefault("wallet.confirm_timeout", "5m")
	v.SetDefault("wallet.detect_timeout", "3s")
	v.SetDefault("transfer.halt_on_precheck", true)
	v.SetDefault("transfer.lookalike_check", true)
	v.SetDefault("database.path", filepath.Join(dataDir(), "ethsend.db"))
	v.SetDefault("log.path", filepath.Join(dataDir(), "ethsend.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("ui.toast_duration", "3s")
	v.SetDefault("ui.history_limit", 20)
	v.SetDefault("metrics.addr", "")

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("ETHSEND_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("ETHSEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadFrom reads the config file if present and decodes v.
func LoadFrom(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// DefaultPath is where Save writes when no path is given: ETHSEND_CONFIG,
// else config.toml in the user config directory.
func DefaultPath() string {
	if path := os.Getenv("ETHSEND_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(configDir(), "config.toml")
}

// Save writes cfg as toml to path (DefaultPath when empty), creating the
// directory if needed.
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("wallet.rpc_url", cfg.Wallet.RPCURL)
	v.Set("wallet.poll_interval", cfg.Wallet.PollInterval.String())
	v.Set("wallet.confirm_timeout", cfg.Wallet.ConfirmTimeout.String())
	v.Set("wallet.detect_timeout", cfg.Wallet.DetectTimeout.String())
	v.Set("transfer.halt_on_precheck", cfg.Transfer.HaltOnPrecheck)
	v.Set("transfer.lookalike_check", cfg.Transfer.LookalikeCheck)
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("ui.toast_duration", cfg.UI.ToastDuration.String())
	v.Set("ui.history_limit", cfg.UI.HistoryLimit)
	v.Set("metrics.addr", cfg.Metrics.Addr)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ethsend")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "ethsend")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "ethsend")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "ethsend")
}
