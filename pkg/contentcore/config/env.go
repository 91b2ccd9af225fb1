package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WithEnv applies environment variable overrides using the provided
// prefix.
//
// Server:
//
//	PORT - server port (default: "8080")
//	ENVIRONMENT - runtime environment (default: "development")
//
// Database:
//
//	DATABASE_URL - connection string. A "postgresql://" or "postgres://"
//	               prefix selects postgres; empty or "memory" selects
//	               the in-memory database.
//	DB_SCHEMA - postgres schema (default: "content")
//
// Storage:
//
//	STORAGE_URL - one of:
//	              "memory://" - in-memory storage (default)
//	              "file:///path/to/data" - filesystem storage
//	              "s3://bucket?region=us-east-1" - S3 storage
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}
		if v, ok := lookupEnv(prefix, "DB_SCHEMA"); ok && v != "" {
			c.DBSchema = v
		}

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		return applyStorageEnv(prefix, c)
	}
}

func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")

	if !hasURL || dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}
	return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
}

func applyStorageEnv(prefix string, c *ServerConfig) error {
	storageURL, hasURL := lookupEnv(prefix, "STORAGE_URL")

	if !hasURL || storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.StorageType = "memory"
		return nil
	}

	if strings.HasPrefix(storageURL, "file://") {
		path := strings.TrimPrefix(storageURL, "file://")
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.StorageType = "fs"
		c.FSBaseDir = path
		return nil
	}

	if strings.HasPrefix(storageURL, "s3://") {
		return applyS3Storage(storageURL, c)
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

// applyS3Storage configures S3 storage from a URL of the form
// s3://bucket?region=us-east-1&endpoint=http://localhost:9000
func applyS3Storage(url string, c *ServerConfig) error {
	rest := strings.TrimPrefix(url, "s3://")
	bucket, query, _ := strings.Cut(rest, "?")
	if bucket == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	c.StorageType = "s3"
	c.S3Bucket = bucket
	c.S3Region = "us-east-1"

	for _, pair := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}
		switch key {
		case "region":
			c.S3Region = value
		case "endpoint":
			c.S3Endpoint = value
		case "path_style":
			if b, err := strconv.ParseBool(value); err == nil {
				c.S3UsePathStyle = b
			}
		case "create_bucket":
			if b, err := strconv.ParseBool(value); err == nil {
				c.S3CreateBucket = b
			}
		}
	}

	if accessKey, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && accessKey != "" {
		c.S3AccessKeyID = accessKey
	}
	if secretKey, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && secretKey != "" {
		c.S3SecretAccessKey = secretKey
	}
	if region, ok := os.LookupEnv("AWS_REGION"); ok && region != "" {
		c.S3Region = region
	}
	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}
