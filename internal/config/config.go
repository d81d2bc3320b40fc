// Package config loads the service options. Sources, lowest priority
// first: built-in defaults, an optional JSON file (-c or CONFIG), command
// line flags, a .env file in the working directory, the environment.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// S3Options selects the S3 artifact store. It is used when Bucket is set.
type S3Options struct {
	Bucket          string `json:"bucket" env:"BUCKET"`
	Endpoint        string `json:"endpoint" env:"ENDPOINT"`
	Region          string `json:"region" env:"REGION"`
	AccessKeyID     string `json:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"-" env:"SECRET_ACCESS_KEY"`
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address" env:"SERVER_ADDRESS"`

	// ResultHostname is the public base URL encoded into every code.
	ResultHostname string `json:"base_url" env:"BASE_URL"`

	// DatabaseDSN selects the PostgreSQL store.
	DatabaseDSN string `json:"database_dsn" env:"DATABASE_DSN"`

	// SQLitePath selects the SQLite store.
	SQLitePath string `json:"sqlite_path" env:"SQLITE_PATH"`

	// FilePath selects the JSON lines file store.
	FilePath string `json:"file_storage_path" env:"FILE_STORAGE_PATH"`

	// RedisAddr enables the read-through record cache.
	RedisAddr string        `json:"redis_addr" env:"REDIS_ADDR"`
	RedisTTL  time.Duration `json:"-" env:"REDIS_TTL"`

	// ArtifactDir is where images go when no bucket is configured.
	ArtifactDir string    `json:"artifact_dir" env:"ARTIFACT_DIR"`
	S3          S3Options `json:"s3" envPrefix:"S3_"`

	// TimeZone is the canonical zone all expirations are compared in.
	TimeZone string `json:"time_zone" env:"TIME_ZONE"`

	// InputTimeZone is the zone clients write expirations in. Empty means TimeZone.
	InputTimeZone string `json:"input_time_zone" env:"INPUT_TIME_ZONE"`

	StoreTimeout time.Duration `json:"-" env:"STORE_TIMEOUT"`

	// TrustedSubnet is the CIDR allowed to call the internal API.
	TrustedSubnet string `json:"trusted_subnet" env:"TRUSTED_SUBNET"`

	// GRPCPort enables the gRPC server when non-zero.
	GRPCPort int `json:"grpc_port" env:"GRPC_PORT"`

	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// EnablePprof indicates whether to enable pprof for performance profiling.
	EnablePprof bool `json:"enable_pprof" env:"ENABLE_PPROF"`

	// EnableHTTPS indicates whether to enable https.
	EnableHTTPS bool `json:"enable_https" env:"ENABLE_HTTPS"`

	// Config is the path of the JSON config file.
	Config string `json:"-" env:"CONFIG"`
}

func defaults() *Options {
	return &Options{
		Port:           "localhost:8080",
		ResultHostname: "http://localhost:8080",
		RedisTTL:       10 * time.Minute,
		ArtifactDir:    "generated_codes",
		TimeZone:       "Asia/Kolkata",
		StoreTimeout:   3 * time.Second,
		LogLevel:       "info",
	}
}

func newFlagSet(opts *Options) *flag.FlagSet {
	fset := flag.NewFlagSet("qrserver", flag.ContinueOnError)
	fset.StringVar(&opts.Config, "c", opts.Config, "path to JSON config file")
	fset.StringVar(&opts.Config, "config", opts.Config, "path to JSON config file")
	fset.StringVar(&opts.Port, "a", opts.Port, "run on ip:port server")
	fset.StringVar(&opts.ResultHostname, "b", opts.ResultHostname, "result base url")
	fset.StringVar(&opts.DatabaseDSN, "d", opts.DatabaseDSN, "postgres dsn")
	fset.StringVar(&opts.SQLitePath, "q", opts.SQLitePath, "path to sqlite database")
	fset.StringVar(&opts.FilePath, "f", opts.FilePath, "path to storage file")
	fset.StringVar(&opts.RedisAddr, "r", opts.RedisAddr, "redis address for the record cache")
	fset.StringVar(&opts.ArtifactDir, "o", opts.ArtifactDir, "directory for generated images")
	fset.StringVar(&opts.TimeZone, "z", opts.TimeZone, "canonical time zone")
	fset.StringVar(&opts.TrustedSubnet, "t", opts.TrustedSubnet, "trusted subnet CIDR")
	fset.IntVar(&opts.GRPCPort, "g", opts.GRPCPort, "gRPC port, 0 disables")
	fset.StringVar(&opts.LogLevel, "l", opts.LogLevel, "log level")
	fset.BoolVar(&opts.EnablePprof, "p", opts.EnablePprof, "enable pprof")
	fset.BoolVar(&opts.EnableHTTPS, "s", opts.EnableHTTPS, "enable https")
	return fset
}

// configPath finds -c/-config in args before the real parse, so the file
// can supply the flag defaults.
func configPath(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || (name != "c" && name != "config") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("CONFIG")
}

func readFile(path string, opts *Options) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(b, opts); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Load builds Options from args (without the program name) and the environment.
func Load(args []string) (*Options, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	opts := defaults()
	if path := configPath(args); path != "" {
		if err := readFile(path, opts); err != nil {
			return nil, err
		}
		opts.Config = path
	}

	if err := newFlagSet(opts).Parse(args); err != nil {
		return nil, err
	}

	if err := env.Parse(opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return opts, nil
}

// Parse loads Options from the process arguments and environment.
func Parse() (*Options, error) {
	return Load(os.Args[1:])
}
