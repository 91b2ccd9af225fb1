package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/streamhive/content-core/pkg/contentcore"
	repomem "github.com/streamhive/content-core/pkg/contentcore/repo/memory"
	repopg "github.com/streamhive/content-core/pkg/contentcore/repo/postgres"
	fsstorage "github.com/streamhive/content-core/pkg/contentcore/storage/fs"
	memorystorage "github.com/streamhive/content-core/pkg/contentcore/storage/memory"
	s3storage "github.com/streamhive/content-core/pkg/contentcore/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top
// of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		DBSchema:     "content",
		StorageType:  "memory",
	}
}

// ServerConfig represents server configuration for the content service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration. Memory keeps everything in-process; the
	// identity store then needs seeding through the built service's
	// dependencies.
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string

	// Storage configuration for thumbnail assets.
	StorageType string // "memory", "fs", "s3"

	// Filesystem storage
	FSBaseDir   string
	FSURLPrefix string

	// S3 storage
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
	S3UsePathStyle    bool
	S3PresignDuration int
	S3CreateBucket    bool
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	switch c.StorageType {
	case "memory":
	case "fs":
		if c.FSBaseDir == "" {
			return errors.New("fs base dir is required when using fs storage")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
	return nil
}

// BuildService creates a Service instance from the server configuration.
func (c *ServerConfig) BuildService(logger zerolog.Logger) (contentcore.Service, error) {
	repo, identity, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildStorageBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	return contentcore.New(
		contentcore.WithRepository(repo),
		contentcore.WithIdentityStore(identity),
		contentcore.WithBlobStore(store),
		contentcore.WithLogger(logger),
	)
}

func (c *ServerConfig) buildRepository() (contentcore.Repository, contentcore.IdentityStore, error) {
	switch c.DatabaseType {
	case "memory":
		return repomem.New(), repomem.NewIdentityStore(), nil
	case "postgres":
		pool, err := newPool(c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		return repopg.NewWithPool(pool), repopg.NewIdentityStore(pool), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func newPool(databaseURL, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
		return err
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres and optionally sets
// search_path for the session. It fails if the schema (when provided)
// does not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := newPool(databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (c *ServerConfig) buildStorageBackend() (contentcore.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.FSBaseDir,
			URLPrefix: c.FSURLPrefix,
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3Region,
			Bucket:                 c.S3Bucket,
			AccessKeyID:            c.S3AccessKeyID,
			SecretAccessKey:        c.S3SecretAccessKey,
			Endpoint:               c.S3Endpoint,
			UsePathStyle:           c.S3UsePathStyle,
			PresignDuration:        c.S3PresignDuration,
			CreateBucketIfNotExist: c.S3CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}
