package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Record source kinds.
const (
	SourceMultiChain = "multichain"
	SourceLevelDB    = "leveldb"
	SourcePostgres   = "postgres"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	RecordSource       string        `mapstructure:"RECORD_SOURCE"`
	MultiChainURL      string        `mapstructure:"MULTICHAIN_URL"`
	MultiChainUser     string        `mapstructure:"MULTICHAIN_USER"`
	MultiChainPassword string        `mapstructure:"MULTICHAIN_PASSWORD"`
	MultiChainChain    string        `mapstructure:"MULTICHAIN_CHAIN"`
	MultiChainTimeout  time.Duration `mapstructure:"MULTICHAIN_TIMEOUT"`
	LevelDBPath        string        `mapstructure:"LEVELDB_PATH"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	PatientStream      string        `mapstructure:"PATIENT_STREAM"`
	RuleSetFile        string        `mapstructure:"RULESET_FILE"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV", "RECORD_SOURCE",
	"MULTICHAIN_URL", "MULTICHAIN_USER", "MULTICHAIN_PASSWORD", "MULTICHAIN_CHAIN", "MULTICHAIN_TIMEOUT",
	"LEVELDB_PATH", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"PATIENT_STREAM", "RULESET_FILE", "CORS_ORIGINS", "BODY_LIMIT",
	"REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("RECORD_SOURCE", SourceLevelDB)
	v.SetDefault("MULTICHAIN_URL", "http://127.0.0.1:8570")
	v.SetDefault("MULTICHAIN_TIMEOUT", "10s")
	v.SetDefault("LEVELDB_PATH", "data/records")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("PATIENT_STREAM", "users")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// A comma separated env value arrives as a single element.
	if origins := v.GetString("CORS_ORIGINS"); len(cfg.CORSOrigins) <= 1 && origins != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.RecordSource = strings.ToLower(strings.TrimSpace(cfg.RecordSource))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the selected record source is fully configured.
func (c *Config) Validate() error {
	switch c.RecordSource {
	case SourceMultiChain:
		if c.MultiChainURL == "" {
			return fmt.Errorf("MULTICHAIN_URL is required when RECORD_SOURCE is %q", SourceMultiChain)
		}
	case SourceLevelDB:
		if c.LevelDBPath == "" {
			return fmt.Errorf("LEVELDB_PATH is required when RECORD_SOURCE is %q", SourceLevelDB)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when RECORD_SOURCE is %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("RECORD_SOURCE must be %q, %q or %q, got %q",
			SourceMultiChain, SourceLevelDB, SourcePostgres, c.RecordSource)
	}
	if strings.TrimSpace(c.PatientStream) == "" {
		return fmt.Errorf("PATIENT_STREAM must not be empty")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
