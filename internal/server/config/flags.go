package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Loader owns the command-line layer. Flags are registered with the
// defaults as their documented values, but only flags the user actually set
// override the lower layers.
type Loader struct {
	fs *pflag.FlagSet

	configFile string
	envFile    string
	values     Config
}

// NewLoader registers the server flags on fs.
//
// Supported flags:
//
//	-c, --config string            JSON or YAML config file
//	    --env-file string          dotenv file (default ".env")
//	-a, --grpc-addr string         gRPC bind address
//	    --http-addr string         admin HTTP bind address
//	-d, --dsn string               PostgreSQL DSN
//	-s, --secret string            JWT HMAC secret key
//	    --token-validity duration  lifetime of issued tokens
//	-u, --s3-user string           S3 root user
//	-p, --s3-password string       S3 root password
//	-b, --s3-bucket string         S3 bucket name
//	-g, --s3-region string         S3 region
//	-e, --s3-endpoint string       S3 base endpoint
//	    --redis-addr string        asynq redis address
//	    --log-level string         debug, info, warn or error
//	    --log-backend string       slog or zerolog
//	    --validation-concurrency   parallel item validations per request
//	    --max-item-bytes int       per-item payload cap
//	    --sync-leeway duration     tolerated timestamp drift
//	    --transfer-limit int       default bundle size in bytes
func NewLoader(fs *pflag.FlagSet) *Loader {
	l := &Loader{fs: fs}
	d := &Config{}
	d.LoadDefaults()
	v := &l.values

	fs.StringVarP(&l.configFile, "config", "c", "", "JSON or YAML config file")
	fs.StringVar(&l.envFile, "env-file", ".env", "dotenv file")

	fs.StringVarP(&v.GRPCAddr, "grpc-addr", "a", d.GRPCAddr, "gRPC bind address")
	fs.StringVar(&v.HTTPAddr, "http-addr", d.HTTPAddr, "admin HTTP bind address")
	fs.StringVarP(&v.DatabaseDSN, "dsn", "d", d.DatabaseDSN, "database DSN")
	fs.StringVarP(&v.SecretKey, "secret", "s", d.SecretKey, "secret key")
	fs.DurationVar(&v.AccessTokenValidity, "token-validity", d.AccessTokenValidity, "lifetime of issued access tokens")

	fs.StringVarP(&v.S3RootUser, "s3-user", "u", d.S3RootUser, "S3 root user")
	fs.StringVarP(&v.S3RootPassword, "s3-password", "p", d.S3RootPassword, "S3 root password")
	fs.StringVarP(&v.S3Bucket, "s3-bucket", "b", d.S3Bucket, "S3 bucket")
	fs.StringVarP(&v.S3Region, "s3-region", "g", d.S3Region, "S3 region")
	fs.StringVarP(&v.S3BaseEndpoint, "s3-endpoint", "e", d.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&v.RedisAddr, "redis-addr", d.RedisAddr, "redis address for domain events, empty disables them")
	fs.StringVar(&v.LogLevel, "log-level", d.LogLevel, "log level")
	fs.StringVar(&v.LogBackend, "log-backend", d.LogBackend, "log backend (slog or zerolog)")

	fs.IntVar(&v.ValidationConcurrency, "validation-concurrency", d.ValidationConcurrency, "items validated in parallel per request")
	fs.Int64Var(&v.MaxItemContentBytes, "max-item-bytes", d.MaxItemContentBytes, "max content bytes per item, 0 disables the check")
	fs.DurationVar(&v.SyncConflictLeeway, "sync-leeway", d.SyncConflictLeeway, "tolerated updated_at_timestamp drift")
	fs.Int64Var(&v.TransferLimitBytes, "transfer-limit", d.TransferLimitBytes, "default transfer bundle size in bytes")

	return l
}

// Load builds the Config. Call it after the flag set has been parsed.
func (l *Loader) Load() (*Config, error) {
	return l.load(osLookup)
}

func (l *Loader) load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadDotEnv(l.envFile); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	configFile := l.configFile
	if configFile == "" {
		configFile, _ = lookup(EnvPrefix + "CONFIG")
	}
	if err := loadFile(cfg, configFile); err != nil {
		return nil, err
	}

	l.applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (l *Loader) applyFlags(cfg *Config) {
	v := &l.values
	setters := map[string]func(){
		"grpc-addr":              func() { cfg.GRPCAddr = v.GRPCAddr },
		"http-addr":              func() { cfg.HTTPAddr = v.HTTPAddr },
		"dsn":                    func() { cfg.DatabaseDSN = v.DatabaseDSN },
		"secret":                 func() { cfg.SecretKey = v.SecretKey },
		"token-validity":         func() { cfg.AccessTokenValidity = v.AccessTokenValidity },
		"s3-user":                func() { cfg.S3RootUser = v.S3RootUser },
		"s3-password":            func() { cfg.S3RootPassword = v.S3RootPassword },
		"s3-bucket":              func() { cfg.S3Bucket = v.S3Bucket },
		"s3-region":              func() { cfg.S3Region = v.S3Region },
		"s3-endpoint":            func() { cfg.S3BaseEndpoint = v.S3BaseEndpoint },
		"redis-addr":             func() { cfg.RedisAddr = v.RedisAddr },
		"log-level":              func() { cfg.LogLevel = v.LogLevel },
		"log-backend":            func() { cfg.LogBackend = v.LogBackend },
		"validation-concurrency": func() { cfg.ValidationConcurrency = v.ValidationConcurrency },
		"max-item-bytes":         func() { cfg.MaxItemContentBytes = v.MaxItemContentBytes },
		"sync-leeway":            func() { cfg.SyncConflictLeeway = v.SyncConflictLeeway },
		"transfer-limit":         func() { cfg.TransferLimitBytes = v.TransferLimitBytes },
	}
	l.fs.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if set, ok := setters[f.Name]; ok {
			set()
		}
	})
}
