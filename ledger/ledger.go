// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/models"
)

const sequenceName = "block"

var (
	ErrDuplicateEntry = errors.New("ledger entry with this payload hash already exists")
	ErrNotFound       = errors.New("ledger transaction not found")
	ErrInvalidPayload = errors.New("payload must be a JSON object")
)

// Store is the append-only ledger. It has no update or delete path: an
// entry, once committed, is returned unchanged forever, which is also what
// makes caching reads safe.
type Store struct {
	db    *db.DB
	cache *lru.Cache[string, models.LedgerTx]
	now   func() time.Time
}

// NewStore creates a ledger store with an LRU read cache of cacheSize entries
func NewStore(d *db.DB, cacheSize int) (*Store, error) {
	cache, err := lru.New[string, models.LedgerTx](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger cache: %w", err)
	}
	return &Store{db: d, cache: cache, now: time.Now}, nil
}

// HashPayload returns the hex SHA-256 of the compacted JSON payload
func HashPayload(payload []byte) (string, error) {
	compact, err := compactObject(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(compact)
	return hex.EncodeToString(sum[:]), nil
}

func compactObject(payload []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidPayload
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return buf.Bytes(), nil
}

// Publish appends a transaction. The block number comes from the global
// sequence row, incremented in the same database transaction as the insert,
// so a rejected insert also gives its number back.
func (s *Store) Publish(ctx context.Context, payload json.RawMessage, payloadHash string) (models.LedgerTx, error) {
	compact, err := compactObject(payload)
	if err != nil {
		return models.LedgerTx{}, err
	}

	payloadHash = strings.TrimSpace(payloadHash)
	if payloadHash == "" {
		sum := sha256.Sum256(compact)
		payloadHash = hex.EncodeToString(sum[:])
	}

	entry := models.LedgerTx{
		TxID:        uuid.NewString(),
		PayloadHash: payloadHash,
		Payload:     json.RawMessage(compact),
		CreatedAt:   s.now().UTC(),
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE ledger_sequence SET value = value + 1
			WHERE name = $1
			RETURNING value
		`, sequenceName).Scan(&entry.BlockNumber)
		if err != nil {
			return fmt.Errorf("failed to advance ledger sequence: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_tx (tx_id, payload_hash, payload, block_number, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, entry.TxID, entry.PayloadHash, string(entry.Payload), entry.BlockNumber, entry.CreatedAt)
		if db.IsUniqueViolation(err) {
			return ErrDuplicateEntry
		}
		if err != nil {
			return fmt.Errorf("failed to insert ledger transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.LedgerTx{}, err
	}

	s.cache.Add(entry.TxID, entry)
	return entry, nil
}

const selectTx = `SELECT tx_id, payload_hash, payload, block_number, created_at FROM ledger_tx`

type scanner interface {
	Scan(dest ...any) error
}

func scanTx(row scanner) (models.LedgerTx, error) {
	var entry models.LedgerTx
	var payload string
	if err := row.Scan(&entry.TxID, &entry.PayloadHash, &payload, &entry.BlockNumber, &entry.CreatedAt); err != nil {
		return models.LedgerTx{}, err
	}
	entry.Payload = json.RawMessage(payload)
	return entry, nil
}

func (s *Store) queryOne(ctx context.Context, q db.Querier, where string, args ...any) (models.LedgerTx, error) {
	entry, err := scanTx(q.QueryRowContext(ctx, selectTx+" WHERE "+where, args...))
	if err == sql.ErrNoRows {
		return models.LedgerTx{}, ErrNotFound
	}
	if err != nil {
		return models.LedgerTx{}, fmt.Errorf("failed to query ledger: %w", err)
	}
	s.cache.Add(entry.TxID, entry)
	return entry, nil
}

// Get returns the transaction with the given ID
func (s *Store) Get(ctx context.Context, txID string) (models.LedgerTx, error) {
	if entry, ok := s.cache.Get(txID); ok {
		return entry, nil
	}
	return s.queryOne(ctx, s.db, "tx_id = $1", txID)
}

// GetByHash returns the transaction with the given payload hash
func (s *Store) GetByHash(ctx context.Context, payloadHash string) (models.LedgerTx, error) {
	return s.queryOne(ctx, s.db, "payload_hash = $1", payloadHash)
}

// Match returns the transaction only if txID and payloadHash both resolve to
// it. q lets callers read inside their own transaction.
func (s *Store) Match(ctx context.Context, q db.Querier, txID, payloadHash string) (models.LedgerTx, error) {
	if entry, ok := s.cache.Get(txID); ok {
		if entry.PayloadHash != payloadHash {
			return models.LedgerTx{}, ErrNotFound
		}
		return entry, nil
	}
	return s.queryOne(ctx, q, "tx_id = $1 AND payload_hash = $2", txID, payloadHash)
}

// GetMany returns the transactions found among txIDs, keyed by ID.
// Missing IDs are simply absent from the result.
func (s *Store) GetMany(ctx context.Context, txIDs []string) (map[string]models.LedgerTx, error) {
	found := make(map[string]models.LedgerTx, len(txIDs))
	var missing []string
	for _, id := range txIDs {
		if entry, ok := s.cache.Get(id); ok {
			found[id] = entry
		} else {
			missing = append(missing, id)
		}
	}

	// Keep IN lists bounded
	const batch = 200
	for start := 0; start < len(missing); start += batch {
		end := min(start+batch, len(missing))
		chunk := missing[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}

		rows, err := s.db.QueryContext(ctx, selectTx+" WHERE tx_id IN ("+strings.Join(placeholders, ", ")+")", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query ledger: %w", err)
		}
		for rows.Next() {
			entry, err := scanTx(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
			}
			s.cache.Add(entry.TxID, entry)
			found[entry.TxID] = entry
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
	}

	return found, nil
}

// Height returns the number of the most recently published block
func (s *Store) Height(ctx context.Context) (int64, error) {
	var height int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM ledger_sequence WHERE name = $1`, sequenceName).Scan(&height)
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger height: %w", err)
	}
	return height, nil
}
