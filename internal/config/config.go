// Package config loads gallery settings from defaults, an optional config
// file, .env files and GALLERY_* environment variables, in increasing order
// of precedence. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pbaille/gallery/internal/store"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GALLERY"

// Config holds the runtime settings.
type Config struct {
	Backend string `mapstructure:"backend"`
	DBPath  string `mapstructure:"db_path"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`

	PostgresDSN string `mapstructure:"postgres_dsn"`

	Addr string `mapstructure:"addr"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	DemoImages    int `mapstructure:"demo_images"`
	ImportWorkers int `mapstructure:"import_workers"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// DefaultDBPath is ~/.gallery/gallery.db, or a relative path when the home
// directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".gallery", "gallery.db")
	}
	return filepath.Join(home, ".gallery", "gallery.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", store.BackendSQLite)
	v.SetDefault("db_path", DefaultDBPath())
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "gallery:")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("demo_images", 0)
	v.SetDefault("import_workers", 4)
}

// Load reads the configuration. configFile may be empty, in which case
// .gallery.yaml is searched in the home and working directories.
func Load(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".gallery")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit file must exist
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the backend selection and numeric bounds.
func (c *Config) Validate() error {
	switch c.Backend {
	case store.BackendSQLite:
		if c.DBPath == "" {
			return errors.New("db_path is required for the sqlite backend")
		}
	case store.BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("redis_addr is required for the redis backend")
		}
	case store.BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres_dsn is required for the postgres backend")
		}
	case store.BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.DemoImages < 0 {
		return fmt.Errorf("demo_images must not be negative, got %d", c.DemoImages)
	}
	if c.ImportWorkers < 1 {
		return fmt.Errorf("import_workers must be at least 1, got %d", c.ImportWorkers)
	}
	return nil
}

// StoreOptions maps the configuration onto store.Open options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.Backend,
		Path:          c.DBPath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisPrefix,
		PostgresDSN:   c.PostgresDSN,
	}
}

// loadEnvFiles loads .env then .env.local. Existing variables win.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}
