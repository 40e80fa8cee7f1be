package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const EnvPrefix = "INSIGHTS_"

type StoreConfig struct {
	Driver        string        `koanf:"driver"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	TTL           time.Duration `koanf:"ttl"`
}

type Config struct {
	Port           string        `koanf:"port"`
	LogLevel       string        `koanf:"log_level"`
	HTTPTimeout    time.Duration `koanf:"http_timeout"`
	Currency       string        `koanf:"currency"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	ImportHosts    []string      `koanf:"import_hosts"`
	Store          StoreConfig   `koanf:"store"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":             "8080",
		"log_level":        "info",
		"http_timeout":     "15s",
		"currency":         "KZT",
		"max_upload_bytes": int64(10 << 20),
		"cors_origins":     []string{"*"},
		"import_hosts":     []string{},
		"store.driver":     "memory",
		"store.redis_addr": "127.0.0.1:6379",
		"store.redis_db":   0,
		"store.ttl":        "24h",
	}
}

// listKeys are read from env as comma separated lists.
var listKeys = map[string]struct{}{"cors_origins": {}, "import_hosts": {}}

// Load layers defaults, an optional YAML file, INSIGHTS_* environment
// variables and explicitly set flags, in that order. A double underscore in
// an env name separates nested keys: INSIGHTS_STORE__DRIVER -> store.driver.
// An empty import_hosts disables URL imports.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
		if _, ok := listKeys[key]; ok {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	return nil
}

// Level maps log_level onto slog; unknown values mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("port", "", "HTTP listen port")
	fs.String("log-level", "", "debug|info|warn|error")
	fs.String("currency", "", "Default currency shown on money cards")
	fs.String("store.driver", "", "Dataset store: memory|redis")
	fs.String("store.redis_addr", "", "Redis address for the redis store")
	fs.StringSlice("import-hosts", nil, "Hosts URL imports may fetch from (.example.com matches subdomains)")
}
