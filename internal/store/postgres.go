package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// Postgres is a Store backed by a single jsonb document per collection key.
// Update maps to a transaction that takes row locks on the named keys, so
// overlapping Update calls serialize per key exactly like Memory.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects, verifies the connection, and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS collections (
			key        TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure collections table: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Get decodes the document under key into v.
func (p *Postgres) Get(ctx context.Context, key string, v any) error {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM collections WHERE key = $1`, key).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, v)
}

// Update opens a transaction, row-locks every key (inserting empty documents
// first so the locks exist), runs fn, and commits the staged writes.
func (p *Postgres) Update(ctx context.Context, keys []string, fn func(tx Tx) error) error {
	dbtx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	for _, key := range keys {
		if _, err := dbtx.ExecContext(ctx,
			`INSERT INTO collections (key, doc) VALUES ($1, 'null'::jsonb) ON CONFLICT (key) DO NOTHING`, key); err != nil {
			return err
		}
	}

	rows, err := dbtx.QueryContext(ctx,
		`SELECT key, doc FROM collections WHERE key = ANY($1::text[]) ORDER BY key FOR UPDATE`,
		pq.Array(keys))
	if err != nil {
		return err
	}
	docs := make(map[string][]byte, len(keys))
	for rows.Next() {
		var key string
		var doc []byte
		if err := rows.Scan(&key, &doc); err != nil {
			rows.Close()
			return err
		}
		docs[key] = doc
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx := &pgTx{docs: docs, staged: make(map[string][]byte)}
	for _, key := range keys {
		tx.allowedKeys = append(tx.allowedKeys, key)
	}
	if err := fn(tx); err != nil {
		return err
	}

	for key, doc := range tx.staged {
		if _, err := dbtx.ExecContext(ctx,
			`UPDATE collections SET doc = $2, updated_at = now() WHERE key = $1`, key, doc); err != nil {
			return err
		}
	}
	return dbtx.Commit()
}

// Close implements Store.
func (p *Postgres) Close() error { return p.db.Close() }

type pgTx struct {
	allowedKeys []string
	docs        map[string][]byte
	staged      map[string][]byte
}

func (t *pgTx) allowed(key string) bool {
	for _, k := range t.allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (t *pgTx) Get(key string, v any) error {
	if !t.allowed(key) {
		return fmt.Errorf("store: key %q not part of this transaction", key)
	}
	doc, ok := t.staged[key]
	if !ok {
		doc = t.docs[key]
	}
	if len(doc) == 0 || string(doc) == "null" {
		return nil
	}
	return json.Unmarshal(doc, v)
}

func (t *pgTx) Put(key string, v any) error {
	if !t.allowed(key) {
		return fmt.Errorf("store: key %q not part of this transaction", key)
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.staged[key] = doc
	return nil
}
