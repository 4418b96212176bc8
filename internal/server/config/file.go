package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophsync/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration, read from JSON or
// YAML. Durations accept "1m30s" or integer nanoseconds. Absent keys keep
// the value of the previous layer.
type FileConfig struct {
	GRPCAddr            string          `json:"grpc_addr" yaml:"grpc_addr"`
	HTTPAddr            string          `json:"http_addr" yaml:"http_addr"`
	DatabaseDSN         string          `json:"database_dsn" yaml:"database_dsn"`
	SecretKey           string          `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidity *timex.Duration `json:"access_token_validity" yaml:"access_token_validity"`

	S3RootUser     string `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`

	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`

	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogBackend string `json:"log_backend" yaml:"log_backend"`

	ValidationConcurrency *int            `json:"validation_concurrency" yaml:"validation_concurrency"`
	MaxItemContentBytes   *int64          `json:"max_item_content_bytes" yaml:"max_item_content_bytes"`
	SyncConflictLeeway    *timex.Duration `json:"sync_conflict_leeway" yaml:"sync_conflict_leeway"`
	TransferLimitBytes    *int64          `json:"transfer_limit_bytes" yaml:"transfer_limit_bytes"`
}

// loadFile overlays the file at path onto c. The format follows the
// extension: .yaml and .yml are YAML, anything else is JSON.
func loadFile(c *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(c)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.GRPCAddr, fc.GRPCAddr)
	set(&c.HTTPAddr, fc.HTTPAddr)
	set(&c.DatabaseDSN, fc.DatabaseDSN)
	set(&c.SecretKey, fc.SecretKey)
	set(&c.S3RootUser, fc.S3RootUser)
	set(&c.S3RootPassword, fc.S3RootPassword)
	set(&c.S3Bucket, fc.S3Bucket)
	set(&c.S3Region, fc.S3Region)
	set(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	set(&c.RedisAddr, fc.RedisAddr)
	set(&c.LogLevel, fc.LogLevel)
	set(&c.LogBackend, fc.LogBackend)

	if fc.AccessTokenValidity != nil {
		c.AccessTokenValidity = fc.AccessTokenValidity.Duration
	}
	if fc.ValidationConcurrency != nil {
		c.ValidationConcurrency = *fc.ValidationConcurrency
	}
	if fc.MaxItemContentBytes != nil {
		c.MaxItemContentBytes = *fc.MaxItemContentBytes
	}
	if fc.SyncConflictLeeway != nil {
		c.SyncConflictLeeway = fc.SyncConflictLeeway.Duration
	}
	if fc.TransferLimitBytes != nil {
		c.TransferLimitBytes = *fc.TransferLimitBytes
	}
}
