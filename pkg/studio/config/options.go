package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithConfigFile reads settings from a YAML, JSON, TOML or .env file.
// Keys missing from the file keep their current values.
func WithConfigFile(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return fmt.Errorf("config file path cannot be empty")
		}
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}
}

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithLogging sets the log level and output format.
func WithLogging(level, format string) Option {
	return func(c *ServerConfig) error {
		if level != "" {
			c.LogLevel = level
		}
		if format != "" {
			c.LogFormat = format
		}
		return nil
	}
}

// WithProject binds the studio to a project and dataset.
func WithProject(projectID, dataset string) Option {
	return func(c *ServerConfig) error {
		if projectID == "" || dataset == "" {
			return fmt.Errorf("project id and dataset are required")
		}
		c.ProjectID = projectID
		c.Dataset = dataset
		return nil
	}
}

// WithPlugins replaces the enabled plugin list. No arguments disables all plugins.
func WithPlugins(names ...string) Option {
	return func(c *ServerConfig) error {
		c.Plugins = append([]string{}, names...)
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate toggles applying migrations when the service is built.
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithDefaultStorage sets the default storage backend name
func WithDefaultStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("default storage backend name cannot be empty")
		}
		c.DefaultStorageBackend = name
		return nil
	}
}

// WithMemoryStorage adds a memory storage backend. baseURL may be empty.
// If name is empty, defaults to "memory"
func WithMemoryStorage(name, baseURL string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "memory"
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name:   name,
			Type:   "memory",
			Config: map[string]any{"base_url": baseURL},
		})
		return nil
	}
}

// WithFilesystemStorage adds a filesystem storage backend
// If name is empty, defaults to "fs"
func WithFilesystemStorage(name, baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "fs"
		}
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: name,
			Type: "fs",
			Config: map[string]any{
				"base_dir":   baseDir,
				"url_prefix": urlPrefix,
			},
		})
		return nil
	}
}

// WithS3Storage adds an S3 storage backend
// If name is empty, defaults to "s3"
func WithS3Storage(name, bucket, region string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: name,
			Type: "s3",
			Config: map[string]any{
				"bucket": bucket,
				"region": region,
			},
		})
		return nil
	}
}

// WithS3Credentials sets static credentials for an S3 backend
func WithS3Credentials(name, accessKeyID, secretAccessKey string) Option {
	return withS3Setting(name, func(cfg map[string]any) error {
		cfg["access_key_id"] = accessKeyID
		cfg["secret_access_key"] = secretAccessKey
		return nil
	})
}

// WithS3Endpoint points an S3 backend at an S3-compatible service such as MinIO
func WithS3Endpoint(name, endpoint string, usePathStyle bool) Option {
	return withS3Setting(name, func(cfg map[string]any) error {
		cfg["endpoint"] = endpoint
		cfg["use_path_style"] = usePathStyle
		return nil
	})
}

// WithS3PresignDuration sets how long presigned URLs stay valid
func WithS3PresignDuration(name string, d time.Duration) Option {
	return withS3Setting(name, func(cfg map[string]any) error {
		if d < time.Second {
			return fmt.Errorf("presign duration must be at least one second")
		}
		cfg["presign_duration"] = int(d / time.Second)
		return nil
	})
}

// WithS3PublicBaseURL serves asset URLs from a CDN instead of presigned URLs
func WithS3PublicBaseURL(name, baseURL string) Option {
	return withS3Setting(name, func(cfg map[string]any) error {
		cfg["public_base_url"] = baseURL
		return nil
	})
}

func withS3Setting(name string, set func(map[string]any) error) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		b := findStorageBackend(c.StorageBackends, name)
		if b == nil || b.Type != "s3" {
			return fmt.Errorf("S3 backend %q not found, add it with WithS3Storage first", name)
		}
		if b.Config == nil {
			b.Config = map[string]any{}
		}
		return set(b.Config)
	}
}

// WithKeyGenerator selects the asset object key layout: "cdn" or "sharded".
func WithKeyGenerator(name string) Option {
	return func(c *ServerConfig) error {
		c.KeyGenerator = name
		return nil
	}
}

// WithMaxAssetSize sets the upload size limit in bytes.
func WithMaxAssetSize(n int64) Option {
	return func(c *ServerConfig) error {
		c.MaxAssetSize = n
		return nil
	}
}

// WithEventLogging enables or disables logging of document and asset events
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithNATS publishes document and asset events to a NATS server.
func WithNATS(url string) Option {
	return func(c *ServerConfig) error {
		c.NATSURL = url
		return nil
	}
}
