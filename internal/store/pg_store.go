package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The snapshot table is a plain key/blob store: one row per record kind.
const (
	keyProducts = "products"
	keyKits     = "kits"
	keySales    = "sales"
)

const createSnapshotTable = `
CREATE TABLE IF NOT EXISTS salesdesk_snapshots (
    key  text PRIMARY KEY,
    data jsonb NOT NULL
)`

const upsertSnapshotKey = `
INSERT INTO salesdesk_snapshots (key, data) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data`

const selectSnapshotKey = `SELECT data FROM salesdesk_snapshots WHERE key = $1`

// PgStore implements SnapshotStore using PostgreSQL as the blob store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a Postgres-backed snapshot store, creating the snapshot
// table if it does not exist yet.
func NewPgStore(ctx context.Context, dbp *pgxpool.Pool) (*PgStore, error) {
	if _, err := dbp.Exec(ctx, createSnapshotTable); err != nil {
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return &PgStore{db: dbp}, nil
}

// Load reads the three snapshot records. Returns nil when nothing has been
// saved yet.
func (p *PgStore) Load(ctx context.Context) (*Snapshot, error) {
	var snapshot Snapshot
	found := false

	for key, target := range map[string]any{
		keyProducts: &snapshot.Products,
		keyKits:     &snapshot.Kits,
		keySales:    &snapshot.Sales,
	} {
		var data []byte
		err := p.db.QueryRow(ctx, selectSnapshotKey, key).Scan(&data)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("failed to load snapshot record %q: %w", key, err)
		}
		if err := json.Unmarshal(data, target); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot record %q: %w", key, err)
		}
		found = true
	}

	if !found {
		return nil, nil
	}
	return &snapshot, nil
}

// Save writes the three snapshot records in one transaction, so a reader can
// never observe products from one save and kits from another.
func (p *PgStore) Save(ctx context.Context, snapshot *Snapshot) error {
	records := []struct {
		key   string
		value any
	}{
		{keyProducts, snapshot.Products},
		{keyKits, snapshot.Kits},
		{keySales, snapshot.Sales},
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, record := range records {
		data, err := json.Marshal(record.value)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot record %q: %w", record.key, err)
		}
		if _, err := tx.Exec(ctx, upsertSnapshotKey, record.key, data); err != nil {
			return fmt.Errorf("failed to save snapshot record %q: %w", record.key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}
	return nil
}
