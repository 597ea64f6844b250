package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const envPrefix = "DEBRIDIFY"

var (
	instance   atomic.Pointer[Config]
	mu         sync.Mutex
	configPath string
)

var knownDebrids = []string{"realdebrid", "torbox", "alldebrid"}

type Debrid struct {
	Name      string `mapstructure:"name" json:"name,omitempty"`
	APIKey    string `mapstructure:"api_key" json:"api_key,omitempty"`
	Host      string `mapstructure:"host" json:"host,omitempty"`             // overrides the provider base URL
	RateLimit string `mapstructure:"rate_limit" json:"rate_limit,omitempty"` // 250/minute or 5/second
	Proxy     string `mapstructure:"proxy" json:"proxy,omitempty"`
}

type Auth struct {
	Username     string `mapstructure:"username" json:"username,omitempty"`
	PasswordHash string `mapstructure:"password_hash" json:"password_hash,omitempty"` // bcrypt
}

type Config struct {
	// server
	BindAddress string `mapstructure:"bind_address" json:"bind_address,omitempty"`
	URLBase     string `mapstructure:"url_base" json:"url_base,omitempty"`
	Port        string `mapstructure:"port" json:"port,omitempty"`

	LogLevel        string   `mapstructure:"log_level" json:"log_level,omitempty"`
	DefaultProvider string   `mapstructure:"default_provider" json:"default_provider,omitempty"`
	Debrids         []Debrid `mapstructure:"debrids" json:"debrids,omitempty"`

	DownloadFolder       string `mapstructure:"download_folder" json:"download_folder,omitempty"`
	RefreshInterval      string `mapstructure:"refresh_interval" json:"refresh_interval,omitempty"`
	HistoryPruneSchedule string `mapstructure:"history_prune_schedule" json:"history_prune_schedule,omitempty"`
	HistoryRetention     string `mapstructure:"history_retention" json:"history_retention,omitempty"`

	SessionSecret string `mapstructure:"session_secret" json:"session_secret,omitempty"`
	Auth          *Auth  `mapstructure:"auth" json:"auth,omitempty"`

	Path string `mapstructure:"-" json:"-"` // directory holding config.json, logs and state
}

func (c *Config) JsonFile() string {
	return filepath.Join(c.Path, "config.json")
}

func (c *Config) CredentialsFile() string {
	return filepath.Join(c.Path, "credentials.json")
}

func (c *Config) HistoryFile() string {
	return filepath.Join(c.Path, "history.db")
}

func (c *Config) LogFile() string {
	return filepath.Join(c.Path, "logs", "debridify.log")
}

// Debrid returns the entry configured for the named provider, if any.
func (c *Config) Debrid(name string) (Debrid, bool) {
	for _, d := range c.Debrids {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}

	return Debrid{}, false
}

// DebridOrDefault returns the configured entry or a bare one carrying only the name.
// Providers work without configuration; the API key may come from the credential store.
func (c *Config) DebridOrDefault(name string) Debrid {
	if d, ok := c.Debrid(name); ok {
		if d.Name == "" {
			d.Name = name
		}
		d.Name = strings.ToLower(d.Name)
		return d
	}

	return Debrid{Name: name}
}

func (c *Config) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}

	return d
}

func (c *Config) GetHistoryRetention() time.Duration {
	d, err := time.ParseDuration(c.HistoryRetention)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}

	return d
}

func (c *Config) NeedsAuth() bool {
	return c.Auth != nil && c.Auth.Username != "" && c.Auth.PasswordHash != ""
}

func (c *Config) Validate() error {
	var errs []error

	for _, key := range []struct{ name, value string }{
		{"refresh_interval", c.RefreshInterval},
		{"history_retention", c.HistoryRetention},
	} {
		if key.value == "" {
			continue
		}
		if d, err := time.ParseDuration(key.value); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s %q", key.name, key.value))
		}
	}

	if c.HistoryPruneSchedule != "" {
		if _, err := cron.ParseStandard(c.HistoryPruneSchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid history_prune_schedule %q: %w", c.HistoryPruneSchedule, err))
		}
	}

	if c.DefaultProvider != "" && !isKnownDebrid(c.DefaultProvider) {
		errs = append(errs, fmt.Errorf("unknown default_provider %q", c.DefaultProvider))
	}

	seen := make(map[string]struct{}, len(c.Debrids))
	for _, d := range c.Debrids {
		name := strings.ToLower(d.Name)
		if !isKnownDebrid(name) {
			errs = append(errs, fmt.Errorf("unknown debrid %q", d.Name))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("debrid %q configured twice", d.Name))
		}
		seen[name] = struct{}{}
	}

	return errors.Join(errs...)
}

func isKnownDebrid(name string) bool {
	for _, known := range knownDebrids {
		if strings.EqualFold(known, name) {
			return true
		}
	}

	return false
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("bind_address", "")
	v.SetDefault("url_base", "")
	v.SetDefault("port", "8383")
	v.SetDefault("log_level", "info")
	v.SetDefault("default_provider", "")
	v.SetDefault("download_folder", "downloads")
	v.SetDefault("refresh_interval", "30s")
	v.SetDefault("history_prune_schedule", "0 4 * * *")
	v.SetDefault("history_retention", "720h")
	v.SetDefault("session_secret", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads <dir>/config.json. A missing file is not an error; defaults and
// DEBRIDIFY_* environment variables still apply.
func Load(dir string) (*Config, error) {
	v := newViper()

	if dir != "" {
		file := filepath.Join(dir, "config.json")
		if _, err := os.Stat(file); err == nil {
			v.SetConfigFile(file)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Path = dir

	for i := range cfg.Debrids {
		cfg.Debrids[i].Name = strings.ToLower(strings.TrimSpace(cfg.Debrids[i].Name))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func SetConfigPath(path string) {
	mu.Lock()
	defer mu.Unlock()

	configPath = path
	instance.Store(nil)
}

// Get returns the process-wide config, loading it on first use. A config that
// fails to load is reported on stderr and replaced by defaults.
func Get() *Config {
	if cfg := instance.Load(); cfg != nil {
		return cfg
	}

	mu.Lock()
	defer mu.Unlock()

	if cfg := instance.Load(); cfg != nil {
		return cfg
	}

	cfg, err := Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v, using defaults\n", err)
		if cfg, err = Load(""); err != nil {
			cfg = &Config{Port: "8383", LogLevel: "info", DownloadFolder: "downloads"}
		}
		cfg.Path = configPath
	}

	instance.Store(cfg)
	return cfg
}

func Reload() {
	instance.Store(nil)
}
