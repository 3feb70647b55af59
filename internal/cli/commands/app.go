package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/projector/internal/cache"
	"github.com/conduit-lang/projector/internal/catalog"
	"github.com/conduit-lang/projector/internal/cli/config"
	"github.com/conduit-lang/projector/internal/inflect"
	"github.com/conduit-lang/projector/internal/logging"
	"github.com/conduit-lang/projector/internal/serializer"
)

// app is the runtime shared by serve, render and inspect
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	fragments   cache.Backend
	db          *sql.DB
	store       *catalog.Store
	serializers *catalog.Serializers
}

// openFragments opens the configured fragment cache. It returns nil when
// caching is disabled.
func openFragments(ctx context.Context, cfg *config.Config) (cache.Backend, error) {
	return cache.Open(ctx, cfg.Cache.Backend, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Cache:    cache.Config{DefaultTTL: cfg.Cache.TTL, Prefix: cfg.Cache.Prefix},
	})
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadFrom(flags.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newApp builds the logger, the fragment cache, the catalog store and the
// compiled serializers from cfg. The catalog comes from the database when a
// URL is configured, else from the seed file, else from the bundled demo.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	var err error
	if a.logger, err = logging.New(cfg.Log); err != nil {
		return err
	}

	transform, err := inflect.ParseTransform(cfg.Serializer.KeyTransform)
	if err != nil {
		return err
	}

	a.fragments, err = openFragments(ctx, cfg)
	if err != nil {
		return err
	}

	if a.store, err = a.loadStore(ctx); err != nil {
		return err
	}

	opts := catalog.Options{
		MaxDepth:     cfg.Serializer.MaxDepth,
		KeyTransform: transform,
		Logger:       a.logger,
		FragmentTTL:  cfg.Cache.TTL,
	}
	if a.fragments != nil {
		opts.Fragments = a.fragments
	}
	if a.serializers, err = catalog.NewSerializers(opts); err != nil {
		return err
	}

	movies, actors, users := a.store.Counts()
	a.logger.Debug("catalog loaded",
		zap.Int("movies", movies),
		zap.Int("actors", actors),
		zap.Int("users", users),
		zap.String("cache", cfg.Cache.Backend),
	)
	return nil
}

func (a *app) loadStore(ctx context.Context) (*catalog.Store, error) {
	if url := a.cfg.DatabaseURL(); url != "" {
		db, err := catalog.Open(a.cfg.Database.Driver, url)
		if err != nil {
			return nil, err
		}
		a.db = db

		sqlStore, err := catalog.NewSQLStore(db, a.cfg.Database.Driver)
		if err != nil {
			return nil, err
		}
		return catalog.LoadSQL(ctx, sqlStore)
	}
	if a.cfg.Seed != "" {
		return catalog.LoadYAMLFile(a.cfg.Seed)
	}
	return catalog.LoadDefault()
}

// defaults are the base serialization options of every render
func (a *app) defaults() serializer.Options {
	return serializer.Options{
		SystemType: a.cfg.Serializer.SystemType,
		NoLinks:    !a.cfg.Serializer.Links,
	}
}

// Close releases the database and the cache
func (a *app) Close() error {
	var errs []error
	if a.fragments != nil {
		errs = append(errs, a.fragments.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
