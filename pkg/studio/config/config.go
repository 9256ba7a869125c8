// Package config assembles a studio.Service from environment variables,
// a YAML file and functional options.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/assetkey"
	"github.com/tendant/content-studio/pkg/studio/events"
	memoryrepo "github.com/tendant/content-studio/pkg/studio/repo/memory"
	repopg "github.com/tendant/content-studio/pkg/studio/repo/postgres"
	fsstorage "github.com/tendant/content-studio/pkg/studio/storage/fs"
	memorystorage "github.com/tendant/content-studio/pkg/studio/storage/memory"
	s3storage "github.com/tendant/content-studio/pkg/studio/storage/s3"
)

// ServerConfig represents server-level configuration for a studio deployment.
type ServerConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	// Studio
	Name      string   `yaml:"name"`
	Title     string   `yaml:"title"`
	ProjectID string   `yaml:"project_id"`
	Dataset   string   `yaml:"dataset"`
	Plugins   []string `yaml:"plugins"`

	// Database
	DatabaseURL  string `yaml:"database_url"`
	DatabaseType string `yaml:"database_type"` // "memory" | "postgres"
	DBSchema     string `yaml:"db_schema"`
	AutoMigrate  bool   `yaml:"auto_migrate"`

	// Storage
	DefaultStorageBackend string                 `yaml:"default_storage_backend"`
	StorageBackends       []StorageBackendConfig `yaml:"storage_backends"`
	KeyGenerator          string                 `yaml:"key_generator"` // "cdn" | "sharded"
	MaxAssetSize          int64                  `yaml:"max_asset_size"`

	// Events
	EnableEventLogging bool   `yaml:"enable_event_logging"`
	NATSURL            string `yaml:"nats_url"`
}

// StorageBackendConfig represents configuration for a storage backend.
type StorageBackendConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"` // "memory" | "fs" | "s3"
	Config map[string]any `yaml:"config"`
}

// Option configures a ServerConfig.
type Option func(*ServerConfig) error

// Load builds a ServerConfig by applying options on top of the defaults and
// validating the result.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadServerConfig loads configuration from the process environment.
func LoadServerConfig() (*ServerConfig, error) {
	return Load(WithEnv())
}

func defaults() *ServerConfig {
	return &ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		LogLevel:              "info",
		LogFormat:             "text",
		Name:                  studio.DefaultName,
		Title:                 studio.DefaultTitle,
		ProjectID:             studio.DefaultProjectID,
		Dataset:               studio.DefaultDataset,
		Plugins:               []string{string(studio.PluginStructure), string(studio.PluginVision)},
		DatabaseType:          "memory",
		AutoMigrate:           true,
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{Name: "memory", Type: "memory", Config: map[string]any{}},
		},
		KeyGenerator:       "cdn",
		MaxAssetSize:       studio.DefaultMaxAssetSize,
		EnableEventLogging: true,
	}
}

// Validate checks that the configuration is internally consistent.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.ProjectID == "" {
		return errors.New("project_id is required")
	}
	if c.Dataset == "" {
		return errors.New("dataset is required")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got: %s", c.LogFormat)
	}
	for _, p := range c.Plugins {
		switch studio.PluginName(strings.TrimSpace(p)) {
		case studio.PluginStructure, studio.PluginVision, "":
		default:
			return fmt.Errorf("unknown plugin: %s", p)
		}
	}

	switch c.DatabaseType {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for postgres")
		}
	default:
		return fmt.Errorf("database_type must be 'memory' or 'postgres', got: %s", c.DatabaseType)
	}

	switch c.KeyGenerator {
	case "cdn", "sharded":
	default:
		return fmt.Errorf("key_generator must be 'cdn' or 'sharded', got: %s", c.KeyGenerator)
	}
	if c.MaxAssetSize <= 0 {
		return errors.New("max_asset_size must be positive")
	}

	if len(c.StorageBackends) == 0 {
		return errors.New("at least one storage backend must be configured")
	}
	names := make(map[string]bool, len(c.StorageBackends))
	for _, b := range c.StorageBackends {
		if b.Name == "" {
			return errors.New("storage backend name is required")
		}
		if names[b.Name] {
			return fmt.Errorf("duplicate storage backend: %s", b.Name)
		}
		names[b.Name] = true
		switch b.Type {
		case "memory", "fs", "s3":
		default:
			return fmt.Errorf("storage backend %s has unsupported type: %s", b.Name, b.Type)
		}
		if b.Type == "s3" && getString(b.Config, "bucket", "") == "" {
			return fmt.Errorf("storage backend %s requires a bucket", b.Name)
		}
	}
	if !names[c.DefaultStorageBackend] {
		return fmt.Errorf("default storage backend %q is not configured", c.DefaultStorageBackend)
	}
	return nil
}

// StudioConfig returns the studio definition described by this configuration.
func (c *ServerConfig) StudioConfig() studio.Config {
	var plugins []studio.Plugin
	for _, p := range c.Plugins {
		switch studio.PluginName(strings.TrimSpace(p)) {
		case studio.PluginStructure:
			plugins = append(plugins, studio.StructureTool())
		case studio.PluginVision:
			plugins = append(plugins, studio.VisionTool())
		}
	}
	return studio.DefineConfig(studio.Config{
		Name:      c.Name,
		Title:     c.Title,
		ProjectID: c.ProjectID,
		Dataset:   c.Dataset,
		Plugins:   plugins,
	})
}

// Logger returns a slog.Logger honouring LogLevel and LogFormat.
func (c *ServerConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}

// BuildService wires a studio.Service from the configuration. The returned
// cleanup function releases the database pool and event connections.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (studio.Service, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	repo, closeRepo, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	sink, closeSink, err := c.BuildEventSink(logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if closeSink != nil {
		closers = append(closers, closeSink)
	}

	studioCfg := c.StudioConfig()
	opts := []studio.Option{
		studio.WithStudioConfig(studioCfg),
		studio.WithRepository(repo),
		studio.WithEventSink(sink),
		studio.WithLogger(logger),
		studio.WithMaxAssetSize(c.MaxAssetSize),
		studio.WithKeyGenerator(c.buildKeyGenerator()),
	}
	for _, backendCfg := range c.StorageBackends {
		store, err := c.buildStorageBackend(ctx, backendCfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("storage backend %s: %w", backendCfg.Name, err)
		}
		opts = append(opts, studio.WithBlobStore(backendCfg.Name, store))
	}
	opts = append(opts, studio.WithDefaultBlobStore(c.DefaultStorageBackend))

	svc, err := studio.New(opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func (c *ServerConfig) buildKeyGenerator() assetkey.Generator {
	if c.KeyGenerator == "sharded" {
		return assetkey.NewShardedGenerator()
	}
	return assetkey.NewCDNGenerator(c.ProjectID, c.Dataset)
}

// buildRepository creates a Repository based on the configuration.
func (c *ServerConfig) buildRepository(ctx context.Context) (studio.Repository, func(), error) {
	switch c.DatabaseType {
	case "memory":
		return memoryrepo.New(), nil, nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		if schema := c.DBSchema; schema != "" {
			cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
				_, err := conn.Exec(ctx, "SELECT set_config('search_path', $1, false)", schema)
				return err
			}
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database ping failed: %w", err)
		}
		if c.AutoMigrate {
			if err := repopg.Migrate(pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return repopg.NewWithPool(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// BuildEventSink combines the configured event sinks. The returned close
// function may be nil.
func (c *ServerConfig) BuildEventSink(logger *slog.Logger) (studio.EventSink, func(), error) {
	var sinks events.Multi
	if c.EnableEventLogging {
		sinks = append(sinks, studio.NewLoggingEventSink(logger))
	}
	var closer func()
	if c.NATSURL != "" {
		ns, err := events.NewNATSSink(c.NATSURL, c.Dataset)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to nats: %w", err)
		}
		sinks = append(sinks, ns)
		closer = func() {
			if err := ns.Close(); err != nil {
				logger.Warn("failed to drain nats connection", "err", err)
			}
		}
	}
	switch len(sinks) {
	case 0:
		return studio.NewNoopEventSink(), closer, nil
	case 1:
		return sinks[0], closer, nil
	}
	return sinks, closer, nil
}

// FileMount is a filesystem backend directory served over HTTP at Path.
type FileMount struct {
	Backend string
	Dir     string
	Path    string
}

// FileMounts lists the filesystem backends whose url_prefix names a path
// the server has to answer, one mount per distinct path. Backends without a
// prefix hand out no URLs and are left out, as are prefixes with no path,
// which the API routes would shadow.
func (c *ServerConfig) FileMounts() ([]FileMount, error) {
	var mounts []FileMount
	seen := make(map[string]bool)
	for _, b := range c.StorageBackends {
		if b.Type != "fs" {
			continue
		}
		prefix := getString(b.Config, "url_prefix", "")
		if prefix == "" {
			continue
		}
		u, err := url.Parse(prefix)
		if err != nil {
			return nil, fmt.Errorf("storage backend %s: invalid url_prefix %q: %w", b.Name, prefix, err)
		}
		path := "/" + strings.Trim(u.Path, "/")
		if path == "/" || seen[path] {
			continue
		}
		seen[path] = true
		mounts = append(mounts, FileMount{
			Backend: b.Name,
			Dir:     getString(b.Config, "base_dir", "./data/storage"),
			Path:    path,
		})
	}
	return mounts, nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration.
func (c *ServerConfig) buildStorageBackend(ctx context.Context, config StorageBackendConfig) (studio.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(getString(config.Config, "base_url", "")), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/storage"),
			URLPrefix: getString(config.Config, "url_prefix", ""),
		})

	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			PresignDuration:        getInt(config.Config, "presign_duration", 3600),
			PublicBaseURL:          getString(config.Config, "public_base_url", ""),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]any, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]any, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
	}
	return defaultValue
}

// getInt accepts the numeric types YAML decoding and options produce.
func getInt(config map[string]any, key string, defaultValue int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

func upsertStorageBackend(backends []StorageBackendConfig, backend StorageBackendConfig) []StorageBackendConfig {
	for i := range backends {
		if backends[i].Name == backend.Name {
			backends[i] = backend
			return backends
		}
	}
	return append(backends, backend)
}

func findStorageBackend(backends []StorageBackendConfig, name string) *StorageBackendConfig {
	for i := range backends {
		if backends[i].Name == name {
			return &backends[i]
		}
	}
	return nil
}
