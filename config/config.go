// Package config loads the core's process-wide configuration: where the
// PublicParams artifact lives, where the local proof store persists, and
// logging verbosity, from flags, environment variables, and defaults — the
// same layering the reference system's command configs use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultDatadir       = ".grapevine"
	defaultPublicParams  = "public_params.json"
	defaultProofStore    = "proofs"
	defaultLogLevel      = "info"
	defaultLogOutput     = "stdout"
	defaultMaxConcurrent = 4
)

// Config is the core's process-wide configuration.
type Config struct {
	Datadir       string `mapstructure:"datadir"`
	PublicParams  string `mapstructure:"publicParams"`
	ProofStoreDir string `mapstructure:"proofStore"`
	Log           LogConfig
	MaxConcurrent int `mapstructure:"maxConcurrent"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from flags, environment variables (prefixed
// GRAPEVINE_), and built-in defaults, in that order of precedence.
func Load() (*Config, error) {
	v := viper.New()

	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("datadir", defaultDatadirPath)
	v.SetDefault("publicParams", filepath.Join(defaultDatadirPath, defaultPublicParams))
	v.SetDefault("proofStore", filepath.Join(defaultDatadirPath, defaultProofStore))
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("maxConcurrent", defaultMaxConcurrent)

	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for public parameters and the proof store")
	flag.String("publicParams", "", "path to the PublicParams artifact (defaults under datadir)")
	flag.String("proofStore", "", "directory holding serialized FoldedProof files (defaults under datadir)")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.Int("maxConcurrent", defaultMaxConcurrent, "maximum number of FoldedProof chains reconciled concurrently")

	flag.CommandLine.SortFlags = false
	if !flag.Parsed() {
		flag.Parse()
	}

	v.SetEnvPrefix("GRAPEVINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.PublicParams == "" {
		cfg.PublicParams = filepath.Join(cfg.Datadir, defaultPublicParams)
	}
	if cfg.ProofStoreDir == "" {
		cfg.ProofStoreDir = filepath.Join(cfg.Datadir, defaultProofStore)
	}
	return cfg, validate(cfg)
}

func validate(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("config: invalid log level %q", cfg.Log.Level)
	}
	if cfg.MaxConcurrent < 1 {
		return fmt.Errorf("config: maxConcurrent must be at least 1")
	}
	return nil
}
