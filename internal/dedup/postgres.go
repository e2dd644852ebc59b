package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-job-digest/internal/models"
)

const (
	pgTimeout = 15 * time.Second

	// arbitrary application key for pg_try_advisory_lock
	pgLockKey int64 = 0x104_d16e57

	pgSchema = `
		CREATE TABLE IF NOT EXISTS seen_job_keys (
			position   INTEGER PRIMARY KEY,
			job_key    TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
)

// PostgresStore keeps seen keys in a Postgres table so several machines can
// share one history. WriteKeys replaces the table inside one transaction.
type PostgresStore struct {
	db   *pgxpool.Pool
	lock *pgxpool.Conn
}

// ConnectPostgres opens the pool and creates the table when missing.
func ConnectPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = time.Hour

	//poolers in transaction mode (Supabase, PgBouncer) can't use prepared statements
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create seen_job_keys: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.lock != nil {
		p.lock.Release()
		p.lock = nil
	}
	if p.db != nil {
		p.db.Close()
	}
}

// Lock takes a session advisory lock on a dedicated connection that is held
// until Unlock.
func (p *PostgresStore) Lock() error {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock connection: %w", err)
	}
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", pgLockKey).Scan(&ok); err != nil {
		conn.Release()
		return fmt.Errorf("advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return fmt.Errorf("%w: postgres advisory lock %d", ErrLocked, pgLockKey)
	}
	p.lock = conn
	return nil
}

func (p *PostgresStore) Unlock() error {
	if p.lock == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	_, err := p.lock.Exec(ctx, "SELECT pg_advisory_unlock($1)", pgLockKey)
	p.lock.Release()
	p.lock = nil
	return err
}

func (p *PostgresStore) ReadKeys() ([]models.DedupKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	rows, err := p.db.Query(ctx, "SELECT job_key FROM seen_job_keys ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: query seen_job_keys: %v", ErrStoreCorrupt, err)
	}
	raw, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: scan seen_job_keys: %v", ErrStoreCorrupt, err)
	}
	keys := make([]models.DedupKey, len(raw))
	for i, k := range raw {
		if err := validKey(k); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrStoreCorrupt, i+1, err)
		}
		keys[i] = models.DedupKey(k)
	}
	return keys, nil
}

// WriteKeys rewrites the table so that it holds exactly keys, in order.
func (p *PostgresStore) WriteKeys(keys []models.DedupKey) error {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM seen_job_keys"); err != nil {
		return fmt.Errorf("clear seen_job_keys: %w", err)
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"seen_job_keys"},
		[]string{"position", "job_key"},
		pgx.CopyFromSlice(len(keys), func(i int) ([]any, error) {
			return []any{i + 1, string(keys[i])}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy seen_job_keys: %w", err)
	}
	if int(n) != len(keys) {
		return errors.New("copy seen_job_keys: short write")
	}
	return tx.Commit(ctx)
}
