// Package app assembles one query.Engine and one maintenance.Scheduler
// from a config.Config, the way cmd/tempo/app.New wires a Config into a
// running Tempo instance. Every binary in cmd/ goes through here instead
// of constructing the storage/catalog/view stack by hand.
package app

import (
	"context"
	"fmt"

	"github.com/go-kit/log"

	"github.com/grafana/lakehouse/lakehouse/batch"
	"github.com/grafana/lakehouse/lakehouse/catalog"
	"github.com/grafana/lakehouse/lakehouse/config"
	"github.com/grafana/lakehouse/lakehouse/filecache"
	"github.com/grafana/lakehouse/lakehouse/jit"
	"github.com/grafana/lakehouse/lakehouse/maintenance"
	"github.com/grafana/lakehouse/lakehouse/metastore"
	"github.com/grafana/lakehouse/lakehouse/query"
	"github.com/grafana/lakehouse/lakehouse/view"
)

// App holds every long-lived handle a binary needs: the metastore
// connection, blob store, and the query engine built on top of them.
type App struct {
	Store  *metastore.Store
	Blobs  batch.Blobs
	Engine *query.Engine
	Config *config.Config
}

// New opens the metastore, selects the configured blob store, and builds
// a query.Engine with both the global view set registry
// (view.RegisterBuiltins) and the per-instance JIT view sets
// (jit.RegisterInstance) registered into one shared factory - the two
// registration calls previously only ever exercised independently in
// package tests.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	store, err := metastore.Open(ctx, cfg.SQLConnectionString)
	if err != nil {
		return nil, fmt.Errorf("app: open metastore: %w", err)
	}
	if err := metastore.CreateSchema(ctx, store); err != nil {
		return nil, fmt.Errorf("app: apply schema: %w", err)
	}

	blobs, err := cfg.Storage.New()
	if err != nil {
		return nil, fmt.Errorf("app: open blob store: %w", err)
	}

	cat := catalog.New(store)

	files, err := cfg.FileCache.New()
	if err != nil {
		return nil, fmt.Errorf("app: open file cache: %w", err)
	}

	factory := view.NewFactory()
	view.RegisterBuiltins(factory)
	jit.RegisterInstance(factory, jit.Deps{
		Store:   store,
		Blobs:   blobs,
		Catalog: cat,
		Config:  cfg.JIT,
	})

	eng := query.New(store, blobs, cat, factory, files)

	return &App{Store: store, Blobs: blobs, Engine: eng, Config: cfg}, nil
}

// Daemon builds the maintenance.Scheduler this App's config describes.
func (a *App) Daemon(logger log.Logger) *maintenance.Scheduler {
	deps := maintenance.DefaultDeps(a.Engine, a.Blobs, logger)
	deps.RetentionAge = a.Config.Maintenance.RetentionAge
	deps.TempFileExpiration = a.Config.Maintenance.TempFileExpiration
	deps.MinuteViewSets = a.Config.Maintenance.MinuteViewSets
	deps.HourViewSets = a.Config.Maintenance.HourViewSets
	deps.DayViewSets = a.Config.Maintenance.DayViewSets
	deps.Logger = logger
	return maintenance.NewDaemon(deps)
}

// Close releases the metastore connection.
func (a *App) Close() {
	a.Store.Close()
}
