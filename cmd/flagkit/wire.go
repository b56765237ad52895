package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/flagkit/pkg/bandit"
	"github.com/dmitrymomot/flagkit/pkg/cache"
	"github.com/dmitrymomot/flagkit/pkg/client"
	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/dispatch"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/profile"
	"github.com/dmitrymomot/flagkit/pkg/profile/mongostore"
	"github.com/dmitrymomot/flagkit/pkg/profile/pgstore"
	"github.com/dmitrymomot/flagkit/pkg/profile/redisstore"
)

// Profile store kinds accepted by FLAGKIT_PROFILE_STORE.
const (
	storeMemory   = "memory"
	storeRedis    = "redis"
	storePostgres = "postgres"
	storeMongo    = "mongo"
	storeNone     = "none"
)

// Event sinks accepted by FLAGKIT_EVENT_SINKS.
const (
	sinkLog        = "log"
	sinkHTTP       = "http"
	sinkS3         = "s3"
	sinkOpenSearch = "opensearch"
)

var (
	errUnknownStore = errors.New("unknown profile store")
	errUnknownSink  = errors.New("unknown event sink")
)

// stack collects what the client depends on while it is being built.
type stack struct {
	opts    []client.Option
	closers []func(context.Context) error
	checks  []func(context.Context) error
}

func (s *stack) onClose(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

// abort releases what was opened so far in reverse order.
func (s *stack) abort(ctx context.Context) {
	for _, fn := range slices.Backward(s.closers) {
		_ = fn(ctx)
	}
}

// newClient builds a client from the datafile and the environment. The
// returned checks test external dependencies for readiness. Closing the
// client flushes pending events and releases every connection.
func (a *app) newClient(ctx context.Context, reg prometheus.Registerer) (*client.Client, []func(context.Context) error, error) {
	data, err := a.readDatafile()
	if err != nil {
		return nil, nil, err
	}

	s := &stack{}
	if err := a.wireProfileStore(ctx, s); err != nil {
		s.abort(ctx)
		return nil, nil, err
	}
	if err := a.wireDispatcher(ctx, s); err != nil {
		s.abort(ctx)
		return nil, nil, err
	}
	if err := a.wireBandit(s); err != nil {
		s.abort(ctx)
		return nil, nil, err
	}

	opts := append(a.cfg.Options(),
		client.WithLogger(a.log),
		client.WithRegisterer(reg),
	)
	opts = append(opts, s.opts...)
	for _, fn := range s.closers {
		opts = append(opts, client.WithCloser(fn))
	}

	c, err := client.NewFromDatafile(data, opts...)
	if err != nil {
		s.abort(ctx)
		return nil, nil, err
	}
	a.log.InfoContext(ctx, "client ready",
		logger.Revision(c.Config().Revision()),
		slog.String("profile_store", a.cfg.ProfileStore),
		slog.Any("event_sinks", a.cfg.EventSinks),
		slog.Bool("bandit", a.cfg.BanditEnabled),
	)
	return c, s.checks, nil
}

func (a *app) wireProfileStore(ctx context.Context, s *stack) error {
	switch a.cfg.ProfileStore {
	case storeNone:
		return nil

	case storeMemory, "":
		var opts []cache.Option
		if a.cfg.ProfileCacheTTL > 0 {
			opts = append(opts, cache.WithTTL(a.cfg.ProfileCacheTTL))
		}
		s.opts = append(s.opts, client.WithProfileStore(profile.NewMemory(a.cfg.ProfileCacheSize, opts...)))
		return nil

	case storeRedis:
		var cfg redisstore.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		db, err := redisstore.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		store := redisstore.New(db, redisstore.WithKeyPrefix(cfg.KeyPrefix), redisstore.WithTTL(cfg.TTL))
		s.opts = append(s.opts, client.WithProfileStore(store))
		s.checks = append(s.checks, redisstore.Healthcheck(db))
		s.onClose(func(context.Context) error { return store.Close() })
		return nil

	case storePostgres:
		var cfg pgstore.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		store, pool, err := pgstore.NewFromConfig(ctx, cfg, a.log)
		if err != nil {
			return err
		}
		s.opts = append(s.opts, client.WithProfileStore(store))
		s.checks = append(s.checks, pgstore.Healthcheck(pool))
		s.onClose(func(context.Context) error {
			pool.Close()
			return nil
		})
		return nil

	case storeMongo:
		var cfg mongostore.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		store, mc, err := mongostore.NewFromConfig(ctx, cfg)
		if err != nil {
			return err
		}
		s.opts = append(s.opts, client.WithProfileStore(store))
		s.checks = append(s.checks, mongostore.Healthcheck(mc))
		s.onClose(mc.Disconnect)
		return nil

	default:
		return fmt.Errorf("%w: %q", errUnknownStore, a.cfg.ProfileStore)
	}
}

func (a *app) wireDispatcher(ctx context.Context, s *stack) error {
	var sinks dispatch.Multi
	for _, name := range a.cfg.EventSinks {
		d, err := a.newSink(ctx, s, name)
		if err != nil {
			return err
		}
		sinks = append(sinks, d)
	}

	var d dispatch.Dispatcher
	switch len(sinks) {
	case 0:
		d = dispatch.LogDispatcher{Logger: a.log, Level: slog.LevelDebug}
	case 1:
		d = sinks[0]
	default:
		d = sinks
	}

	if a.cfg.BatchEvents {
		var cfg dispatch.BatchConfig
		if err := config.Load(&cfg); err != nil {
			return err
		}
		b := dispatch.NewBatcher(d, cfg,
			dispatch.WithBatchLogger(a.log),
			dispatch.WithFlushErrorHandler(func(err error) {
				a.log.Error("event batch delivery failed", logger.Error(err))
			}),
		)
		s.onClose(b.Close)
		d = b
	}
	s.opts = append(s.opts, client.WithDispatcher(d))
	return nil
}

func (a *app) newSink(ctx context.Context, s *stack, name string) (dispatch.Dispatcher, error) {
	switch name {
	case sinkLog:
		return dispatch.LogDispatcher{Logger: a.log, Level: slog.LevelInfo}, nil

	case sinkHTTP:
		var cfg dispatch.HTTPConfig
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return dispatch.NewHTTPFromConfig(cfg, dispatch.WithLogger(a.log)), nil

	case sinkS3:
		var cfg dispatch.S3Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		archiver, err := dispatch.NewS3Archiver(ctx, cfg, dispatch.WithS3Logger(a.log))
		if err != nil {
			return nil, err
		}
		return archiver, nil

	case sinkOpenSearch:
		var cfg dispatch.OpenSearchConfig
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		osc, err := dispatch.NewOpenSearchClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.checks = append(s.checks, dispatch.OpenSearchHealthcheck(osc))
		return dispatch.NewOpenSearchIndexer(osc, cfg.Index, a.log), nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownSink, name)
	}
}

func (a *app) wireBandit(s *stack) error {
	if !a.cfg.BanditEnabled {
		return nil
	}
	var cfg bandit.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	bc, err := bandit.NewClient(cfg.Endpoint, append(cfg.Options(), bandit.WithLogger(a.log))...)
	if err != nil {
		return err
	}
	s.opts = append(s.opts, client.WithBandit(bandit.NewCache(bc, cfg.CacheSize, cfg.CacheTTL), a.cfg.BanditTimeout))
	return nil
}
