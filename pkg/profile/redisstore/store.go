package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/profile"
)

var _ decision.ProfileStore = (*Store)(nil)

// Store keeps one hash per user: field experiment id, value variation id.
type Store struct {
	db     redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix namespaces the user hashes.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires a profile after ttl without saves.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New stores profiles as one hash per user.
func New(db redis.UniversalClient, opts ...Option) *Store {
	s := &Store{db: db, prefix: "flagkit:profile:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig connects using cfg and applies its key prefix and TTL.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(client, WithKeyPrefix(cfg.KeyPrefix), WithTTL(cfg.TTL)), nil
}

func (s *Store) key(userID string) string {
	return s.prefix + userID
}

// Lookup returns the stored variation id of userID in experimentID.
func (s *Store) Lookup(ctx context.Context, userID, experimentID string) (string, bool, error) {
	v, err := s.db.HGet(ctx, s.key(userID), experimentID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Join(profile.ErrLookupFailed, err)
	}
	return v, true, nil
}

// Save sets the hash field and refreshes the key TTL.
func (s *Store) Save(ctx context.Context, userID, experimentID, variationID string) error {
	if err := profile.ValidateKey(userID, experimentID); err != nil {
		return err
	}
	key := s.key(userID)
	_, err := s.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, experimentID, variationID)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Join(profile.ErrSaveFailed, err)
	}
	return nil
}

// Remove deletes one hash field.
func (s *Store) Remove(ctx context.Context, userID, experimentID string) error {
	var err error
	if experimentID == "" {
		err = s.db.Del(ctx, s.key(userID)).Err()
	} else {
		err = s.db.HDel(ctx, s.key(userID), experimentID).Err()
	}
	if err != nil {
		return errors.Join(profile.ErrRemoveFailed, err)
	}
	return nil
}

// Profile returns every record stored for the user.
func (s *Store) Profile(ctx context.Context, userID string) (map[string]string, error) {
	records, err := s.db.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, errors.Join(profile.ErrLookupFailed, err)
	}
	return records, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.db.Close()
}
