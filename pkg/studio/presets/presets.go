// Package presets builds ready-to-use studio services for common setups.
package presets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/config"
	memoryrepo "github.com/tendant/content-studio/pkg/studio/repo/memory"
	fsstorage "github.com/tendant/content-studio/pkg/studio/storage/fs"
	memorystorage "github.com/tendant/content-studio/pkg/studio/storage/memory"
)

// NewDevelopment creates a service for local development: an in-memory
// repository, filesystem assets under ./dev-data and event logging.
//
// The cleanup function removes the storage directory.
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (studio.Service, func(), error) {
	cfg := &devConfig{
		storageDir: "./dev-data",
		urlPrefix:  "http://localhost:8080/files",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	fsBackend, err := fsstorage.New(fsstorage.Config{
		BaseDir:   cfg.storageDir,
		URLPrefix: cfg.urlPrefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := studio.New(
		studio.WithRepository(memoryrepo.New()),
		studio.WithBlobStore("fs", fsBackend),
		studio.WithEventSink(studio.NewLoggingEventSink(cfg.logger)),
		studio.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		os.RemoveAll(fsBackend.BaseDir())
	}
	return svc, cleanup, nil
}

// NewTesting creates an isolated in-memory service for a test. With
// WithTestFixtures it is seeded with a small set of sample documents.
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t, presets.WithTestFixtures())
//	}
func NewTesting(t testing.TB, opts ...TestingOption) studio.Service {
	t.Helper()
	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	options := []studio.Option{
		studio.WithRepository(memoryrepo.New()),
		studio.WithBlobStore("memory", memorystorage.New("http://cdn.test")),
	}
	if cfg.config != nil {
		options = append(options, studio.WithStudioConfig(*cfg.config))
	}
	svc, err := studio.New(options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	if cfg.fixtures {
		if _, err := SeedFixtures(context.Background(), svc); err != nil {
			t.Fatalf("failed to seed fixtures: %v", err)
		}
	}
	return svc
}

// NewProduction creates a service from the environment and refuses
// in-memory storage for documents or assets. See config.WithEnv for the
// variables it reads.
func NewProduction(ctx context.Context, logger *slog.Logger, opts ...config.Option) (studio.Service, func(), error) {
	cfg, err := config.Load(append([]config.Option{config.WithEnv(), config.WithEnvironment("production")}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	if err := checkProduction(cfg); err != nil {
		return nil, nil, err
	}
	return cfg.BuildService(ctx, logger)
}

func checkProduction(cfg *config.ServerConfig) error {
	if cfg.DatabaseType != "postgres" {
		return fmt.Errorf("production preset requires DATABASE_URL=postgres://... (memory not allowed in production)")
	}
	for _, b := range cfg.StorageBackends {
		if b.Name == cfg.DefaultStorageBackend && b.Type == "memory" {
			return fmt.Errorf("production preset requires persistent storage (s3 or fs, not memory)")
		}
	}
	return nil
}

type devConfig struct {
	storageDir string
	urlPrefix  string
	logger     *slog.Logger
}

type testConfig struct {
	fixtures bool
	config   *studio.Config
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the development storage directory
func WithDevStorage(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.storageDir = dir
	}
}

// WithDevURLPrefix sets the URL prefix asset URLs are built from
func WithDevURLPrefix(prefix string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.urlPrefix = prefix
	}
}

// WithDevLogger sets the logger for the service and its event log
func WithDevLogger(logger *slog.Logger) DevelopmentOption {
	return func(cfg *devConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestFixtures seeds the sample documents from SeedFixtures
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}

// WithTestStudioConfig replaces the studio configuration, for example to
// disable plugins
func WithTestStudioConfig(c studio.Config) TestingOption {
	return func(cfg *testConfig) {
		cfg.config = &c
	}
}
