// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 8000)
  - DatabaseURL: connection string (required)
  - DatabaseType: sqlite (default) or postgres
  - JWTSecret: access token signing key, at least 32 bytes (required)
  - TokenTTL: access token lifetime (default: 24h)
  - ValidatorTimeout: bound on external eligibility calls (default: 5s)
  - LedgerCacheSize: entries kept in the ledger read cache (default: 1024)
  - AllowedOrigins: CORS origins; empty reflects any origin

# Environment Variables

Flags fall back to environment variables:

	PORT              → -p
	DATABASE_URL      → -d
	DATABASE_TYPE     → -t
	JWT_SECRET        → -jwt-secret
	TOKEN_TTL         → -token-ttl
	VALIDATOR_TIMEOUT → -validator-timeout
	LEDGER_CACHE_SIZE → -ledger-cache
	CORS_ORIGINS      → -cors

CLI flags take precedence over environment variables. main loads a .env
file into the environment before parsing; variables already set win.
*/
package cliparse
