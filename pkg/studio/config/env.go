package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envSettings lists the variables WithEnv understands. Unset variables
// leave the corresponding setting untouched.
type envSettings struct {
	Port        string `env:"PORT" env-description:"HTTP listen port"`
	Environment string `env:"ENVIRONMENT" env-description:"development, production or testing"`
	LogLevel    string `env:"LOG_LEVEL" env-description:"debug, info, warn or error"`
	LogFormat   string `env:"LOG_FORMAT" env-description:"text or json"`

	ProjectID string   `env:"STUDIO_PROJECT_ID" env-description:"content lake project id"`
	Dataset   string   `env:"STUDIO_DATASET" env-description:"dataset name"`
	Title     string   `env:"STUDIO_TITLE" env-description:"studio title"`
	Plugins   []string `env:"STUDIO_PLUGINS" env-separator:"," env-description:"enabled plugins"`

	DatabaseURL string `env:"DATABASE_URL" env-description:"postgres URL or 'memory'"`
	DBSchema    string `env:"DATABASE_SCHEMA" env-description:"postgres search_path"`
	AutoMigrate string `env:"DATABASE_AUTO_MIGRATE" env-description:"apply migrations on start"`

	StorageURL    string `env:"STORAGE_URL" env-description:"memory://, file:///path or s3://bucket"`
	PublicBaseURL string `env:"STORAGE_PUBLIC_URL" env-description:"base URL assets are served from"`
	KeyGenerator  string `env:"ASSET_KEY_GENERATOR" env-description:"cdn or sharded"`
	MaxAssetSize  string `env:"ASSET_MAX_SIZE" env-description:"upload limit in bytes"`

	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`

	EventLogging string `env:"EVENT_LOGGING" env-description:"log document and asset events"`
	NATSURL      string `env:"NATS_URL" env-description:"publish events to this NATS server"`
}

// WithEnv applies settings from environment variables.
//
// DATABASE_URL selects postgres when it carries a postgres:// or
// postgresql:// scheme and memory when empty or "memory". STORAGE_URL
// replaces the default storage backend:
//
//	memory://                 in-process storage
//	file:///var/lib/studio    filesystem storage
//	s3://bucket?region=..&endpoint=..&path_style=true
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envSettings
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		return env.apply(c)
	}
}

// EnvUsage describes the variables WithEnv reads.
func EnvUsage() (string, error) {
	return cleanenv.GetDescription(&envSettings{}, nil)
}

func (e envSettings) apply(c *ServerConfig) error {
	setString(&c.Port, e.Port)
	setString(&c.Environment, e.Environment)
	setString(&c.LogLevel, e.LogLevel)
	setString(&c.LogFormat, e.LogFormat)
	setString(&c.ProjectID, e.ProjectID)
	setString(&c.Dataset, e.Dataset)
	setString(&c.Title, e.Title)
	setString(&c.DBSchema, e.DBSchema)
	setString(&c.KeyGenerator, e.KeyGenerator)
	setString(&c.NATSURL, e.NATSURL)
	if e.Plugins != nil {
		c.Plugins = nonEmpty(e.Plugins)
	}

	if err := setBool(&c.AutoMigrate, "DATABASE_AUTO_MIGRATE", e.AutoMigrate); err != nil {
		return err
	}
	if err := setBool(&c.EnableEventLogging, "EVENT_LOGGING", e.EventLogging); err != nil {
		return err
	}
	if e.MaxAssetSize != "" {
		n, err := strconv.ParseInt(e.MaxAssetSize, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer for ASSET_MAX_SIZE: %w", err)
		}
		c.MaxAssetSize = n
	}

	if err := e.applyDatabase(c); err != nil {
		return err
	}
	return e.applyStorage(c)
}

func (e envSettings) applyDatabase(c *ServerConfig) error {
	switch {
	case e.DatabaseURL == "":
	case e.DatabaseURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(e.DatabaseURL, "postgres://"), strings.HasPrefix(e.DatabaseURL, "postgresql://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = e.DatabaseURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL scheme (use 'memory' or 'postgres://...')")
	}
	return nil
}

func (e envSettings) applyStorage(c *ServerConfig) error {
	if e.StorageURL == "" {
		if e.PublicBaseURL != "" {
			if b := findStorageBackend(c.StorageBackends, c.DefaultStorageBackend); b != nil {
				setPublicBaseURL(b, e.PublicBaseURL)
			}
		}
		return nil
	}

	u, err := url.Parse(e.StorageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	var backend StorageBackendConfig
	switch u.Scheme {
	case "memory":
		backend = StorageBackendConfig{Name: "memory", Type: "memory", Config: map[string]any{}}
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		backend = StorageBackendConfig{Name: "fs", Type: "fs", Config: map[string]any{"base_dir": path}}
	case "s3":
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		backend = e.s3Backend(u)
	default:
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", e.StorageURL)
	}
	if e.PublicBaseURL != "" {
		setPublicBaseURL(&backend, e.PublicBaseURL)
	}

	c.StorageBackends = []StorageBackendConfig{backend}
	c.DefaultStorageBackend = backend.Name
	return nil
}

func (e envSettings) s3Backend(u *url.URL) StorageBackendConfig {
	q := u.Query()
	cfg := map[string]any{
		"bucket": u.Host,
		"region": "us-east-1",
	}
	if e.AWSRegion != "" {
		cfg["region"] = e.AWSRegion
	}
	if region := q.Get("region"); region != "" {
		cfg["region"] = region
	}
	if endpoint := q.Get("endpoint"); endpoint != "" {
		cfg["endpoint"] = endpoint
	}
	if pathStyle, err := strconv.ParseBool(q.Get("path_style")); err == nil {
		cfg["use_path_style"] = pathStyle
	}
	if e.AWSAccessKeyID != "" {
		cfg["access_key_id"] = e.AWSAccessKeyID
	}
	if e.AWSSecretAccessKey != "" {
		cfg["secret_access_key"] = e.AWSSecretAccessKey
	}
	return StorageBackendConfig{Name: "s3", Type: "s3", Config: cfg}
}

func setPublicBaseURL(b *StorageBackendConfig, base string) {
	if b.Config == nil {
		b.Config = map[string]any{}
	}
	switch b.Type {
	case "memory":
		b.Config["base_url"] = base
	case "fs":
		b.Config["url_prefix"] = base
	case "s3":
		b.Config["public_base_url"] = base
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, name, raw string) error {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %w", name, err)
	}
	*dst = v
	return nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
