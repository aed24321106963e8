package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// epoch marks "no lock" in the locked_until column.
var epoch = time.Unix(0, 0).UTC()

// PGStore is a PostgreSQL-backed Store shared by every instance pointing at
// the same database. Keys are stored as HashClient digests.
type PGStore struct {
	pool pgxQuerier
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPGStore constructs a PGStore over pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// NewPGStoreWithQuerier constructs a PGStore over any pgx querier.
func NewPGStoreWithQuerier(q pgxQuerier) *PGStore {
	return &PGStore{pool: q}
}

// HashClient returns a stable hash for a client identifier so raw addresses
// are not stored.
func HashClient(id string) string {
	h := sha256.Sum256([]byte(id))
	return hex.EncodeToString(h[:])
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, key string) (Record, bool, error) {
	const q = `SELECT failure_count, locked_until, version FROM auth_attempts WHERE client_id=$1`
	var (
		rec    Record
		locked time.Time
	)
	err := s.pool.QueryRow(ctx, q, HashClient(key)).Scan(&rec.FailureCount, &locked, &rec.Version)
	switch {
	case err == nil:
		if locked.After(epoch) {
			rec.LockedUntil = locked
		}
		return rec, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return Record{}, false, nil
	default:
		return Record{}, false, err
	}
}

// CompareAndSwap implements Store.
func (s *PGStore) CompareAndSwap(ctx context.Context, key string, old Record, existed bool, next Record) (bool, error) {
	key = HashClient(key)
	locked := epoch
	if !next.LockedUntil.IsZero() {
		locked = next.LockedUntil
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	if existed {
		const upd = `
UPDATE auth_attempts
SET failure_count=$2, locked_until=$3, version=version+1, updated_at=now()
WHERE client_id=$1 AND version=$4`
		tag, err = s.pool.Exec(ctx, upd, key, next.FailureCount, locked, old.Version)
	} else {
		const ins = `
INSERT INTO auth_attempts (client_id, failure_count, locked_until, version, updated_at)
VALUES ($1,$2,$3,1,now())
ON CONFLICT (client_id) DO NOTHING`
		tag, err = s.pool.Exec(ctx, ins, key, next.FailureCount, locked)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Reset implements Store.
func (s *PGStore) Reset(ctx context.Context, key string) error {
	const q = `
UPDATE auth_attempts
SET failure_count=0, locked_until='epoch', version=version+1, updated_at=now()
WHERE client_id=$1`
	_, err := s.pool.Exec(ctx, q, HashClient(key))
	return err
}

var _ Store = (*PGStore)(nil)
