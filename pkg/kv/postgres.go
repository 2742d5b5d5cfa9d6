package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgChannel carries change signals for every slot; the payload names the key.
const pgChannel = "feedbackhub_slot_changed"

type pgSignal struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Postgres stores slots in the kv_slots table and signals writes with NOTIFY.
type Postgres struct {
	pool   *pgxpool.Pool
	origin string
	logger *zap.Logger
}

// NewPostgres creates a postgres-backed Store. The kv_slots table comes from the embedded migrations.
func NewPostgres(pool *pgxpool.Pool, origin string, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, origin: origin, logger: logger}
}

// Origin implements Watcher.
func (p *Postgres) Origin() string { return p.origin }

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv_slots WHERE key = $1`
	var v []byte
	err := p.pool.QueryRow(ctx, q, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select slot: %w", err)
	}
	return v, nil
}

// Set implements Store. The upsert and the NOTIFY commit together.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	payload, err := json.Marshal(pgSignal{Key: key, Origin: p.origin})
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `INSERT INTO kv_slots (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := tx.Exec(ctx, upsert, key, value); err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, pgChannel, string(payload)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Watch implements Watcher. It holds one pooled connection for LISTEN until cancelled.
func (p *Postgres) Watch(ctx context.Context, key string, fn ChangeHandler) (func(), error) {
	listenCtx, cancel := context.WithCancel(ctx)
	conn, err := p.pool.Acquire(listenCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(listenCtx, "LISTEN "+pgChannel); err != nil {
		conn.Release()
		cancel()
		return nil, fmt.Errorf("listen: %w", err)
	}
	go func() {
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					p.logger.Warn("slot listener stopped", zap.Error(err))
				}
				return
			}
			var sig pgSignal
			if err := json.Unmarshal([]byte(n.Payload), &sig); err != nil || sig.Key != key {
				continue
			}
			fn(sig.Origin)
		}
	}()
	return cancel, nil
}
