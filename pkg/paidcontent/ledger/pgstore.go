package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists the registry as a single JSONB document row in Postgres.
// The one-row layout deliberately keeps the whole-document rewrite semantics
// of the file store: every Save replaces the entire registry in one
// statement, so the Registry's mutex remains the only serialization needed.
type PGStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPGStore connects to Postgres and ensures the registry table exists.
func NewPGStore(ctx context.Context, databaseURL, schema string) (*PGStore, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is required")
	}
	if schema == "" {
		schema = "paidcontent"
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &PGStore{pool: pool, schema: schema}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.registry (
			id INT PRIMARY KEY CHECK (id = 1),
			version INT NOT NULL,
			items JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.schema),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring registry schema: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	var items []byte
	query := fmt.Sprintf(`SELECT items FROM %s.registry WHERE id = 1`, s.schema)
	err := s.pool.QueryRow(ctx, query).Scan(&items)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading registry row: %w", err)
	}

	records := map[string]json.RawMessage{}
	if err := json.Unmarshal(items, &records); err != nil {
		return nil, fmt.Errorf("decoding registry document: %w", err)
	}
	return records, nil
}

func (s *PGStore) Save(ctx context.Context, records map[string]json.RawMessage) error {
	doc, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding registry document: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s.registry (id, version, items, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET version = $1, items = $2, updated_at = now()`, s.schema)
	if _, err := s.pool.Exec(ctx, query, registryVersion, doc); err != nil {
		return fmt.Errorf("saving registry row: %w", err)
	}
	return nil
}
