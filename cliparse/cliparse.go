package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/osmelmr/validvote-server/auth"
)

type Config struct {
	Port             int
	DatabaseURL      string
	DatabaseType     string
	JWTSecret        string
	TokenTTL         time.Duration
	ValidatorTimeout time.Duration
	LedgerCacheSize  int
	AllowedOrigins   []string
}

// ParseFlags reads flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("validvote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Access token signing secret (prefer env)")

	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 0, "Access token lifetime")
	fs.DurationVar(&cfg.ValidatorTimeout, "validator-timeout", 0, "Timeout for external eligibility checks")
	fs.IntVar(&cfg.LedgerCacheSize, "ledger-cache", 0, "Ledger read cache size (entries)")
	origins := fs.String("cors", "", "Comma-separated allowed CORS origins (empty allows any)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 8000 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	var err error
	if cfg.TokenTTL, err = durationOrEnv(cfg.TokenTTL, "TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ValidatorTimeout, err = durationOrEnv(cfg.ValidatorTimeout, "VALIDATOR_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.LedgerCacheSize == 0 {
		if sizeStr := os.Getenv("LEDGER_CACHE_SIZE"); sizeStr != "" {
			size, err := strconv.Atoi(sizeStr)
			if err != nil || size <= 0 {
				return Config{}, errors.New("invalid LEDGER_CACHE_SIZE env variable")
			}
			cfg.LedgerCacheSize = size
		} else {
			cfg.LedgerCacheSize = 1024
		}
	}

	if *origins == "" {
		*origins = os.Getenv("CORS_ORIGINS")
	}
	for _, o := range strings.Split(*origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}
	if len(cfg.JWTSecret) < auth.MinSecretLength {
		return Config{}, auth.ErrWeakSecret
	}

	return cfg, nil
}

func durationOrEnv(flagValue time.Duration, env string, fallback time.Duration) (time.Duration, error) {
	if flagValue > 0 {
		return flagValue, nil
	}
	s := os.Getenv(env)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + env + " env variable")
	}
	return d, nil
}
