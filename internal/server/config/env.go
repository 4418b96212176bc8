package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "GOPHSYNC_"

// loadDotEnv loads path into the process environment. Variables already set
// win over the file. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays GOPHSYNC_* variables onto c.
func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(name string, dst *int64) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("GRPC_ADDR", &c.GRPCAddr)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("SECRET_KEY", &c.SecretKey)
	duration("ACCESS_TOKEN_VALIDITY", &c.AccessTokenValidity)
	str("S3_ROOT_USER", &c.S3RootUser)
	str("S3_ROOT_PASSWORD", &c.S3RootPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	str("REDIS_ADDR", &c.RedisAddr)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_BACKEND", &c.LogBackend)

	concurrency := int64(c.ValidationConcurrency)
	integer("VALIDATION_CONCURRENCY", &concurrency)
	c.ValidationConcurrency = int(concurrency)
	integer("MAX_ITEM_CONTENT_BYTES", &c.MaxItemContentBytes)
	duration("SYNC_CONFLICT_LEEWAY", &c.SyncConflictLeeway)
	integer("TRANSFER_LIMIT_BYTES", &c.TransferLimitBytes)

	return errors.Join(errs...)
}

func osLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}
