package pgstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/profile"
)

var _ decision.ProfileStore = (*Store)(nil)

const (
	lookupQuery = `SELECT variation_id FROM user_profiles WHERE user_id = $1 AND experiment_id = $2`
	saveQuery   = `INSERT INTO user_profiles (user_id, experiment_id, variation_id)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, experiment_id)
DO UPDATE SET variation_id = EXCLUDED.variation_id, updated_at = now()`
	removeQuery    = `DELETE FROM user_profiles WHERE user_id = $1 AND experiment_id = $2`
	removeAllQuery = `DELETE FROM user_profiles WHERE user_id = $1`
	profileQuery   = `SELECT experiment_id, variation_id FROM user_profiles WHERE user_id = $1`
)

// DB is the subset of pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store keeps one row per user and experiment.
type Store struct {
	db DB
}

// New stores profiles through db. Run Migrate first.
func New(db DB) *Store {
	return &Store{db: db}
}

// NewFromConfig connects, applies migrations when AutoMigrate is set and
// returns the store with its pool.
func NewFromConfig(ctx context.Context, cfg Config, log *slog.Logger) (*Store, *pgxpool.Pool, error) {
	if log == nil {
		log = logger.Discard()
	}
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool, cfg.MigrationsTable, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return New(pool), pool, nil
}

// Lookup returns the stored variation id of userID in experimentID.
func (s *Store) Lookup(ctx context.Context, userID, experimentID string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(ctx, lookupQuery, userID, experimentID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Join(profile.ErrLookupFailed, err)
	}
	return v, true, nil
}

// Save upserts the variation id.
func (s *Store) Save(ctx context.Context, userID, experimentID, variationID string) error {
	if err := profile.ValidateKey(userID, experimentID); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, saveQuery, userID, experimentID, variationID); err != nil {
		return errors.Join(profile.ErrSaveFailed, err)
	}
	return nil
}

// Remove deletes one experiment record of userID.
func (s *Store) Remove(ctx context.Context, userID, experimentID string) error {
	var err error
	if experimentID == "" {
		_, err = s.db.Exec(ctx, removeAllQuery, userID)
	} else {
		_, err = s.db.Exec(ctx, removeQuery, userID, experimentID)
	}
	if err != nil {
		return errors.Join(profile.ErrRemoveFailed, err)
	}
	return nil
}

// Profile returns every record stored for the user.
func (s *Store) Profile(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.Query(ctx, profileQuery, userID)
	if err != nil {
		return nil, errors.Join(profile.ErrLookupFailed, err)
	}
	records := make(map[string]string)
	var experimentID, variationID string
	_, err = pgx.ForEachRow(rows, []any{&experimentID, &variationID}, func() error {
		records[experimentID] = variationID
		return nil
	})
	if err != nil {
		return nil, errors.Join(profile.ErrLookupFailed, err)
	}
	return records, nil
}
