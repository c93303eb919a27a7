package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ajuntament-olot/pla-usos/internal/catalog"
	"github.com/ajuntament-olot/pla-usos/internal/config"
	"github.com/ajuntament-olot/pla-usos/internal/consult"
	"github.com/ajuntament-olot/pla-usos/internal/db"
	"github.com/ajuntament-olot/pla-usos/internal/eligibility"
	"github.com/ajuntament-olot/pla-usos/internal/mapimage"
	"github.com/ajuntament-olot/pla-usos/internal/proximity"
	"github.com/ajuntament-olot/pla-usos/internal/report"
	"github.com/ajuntament-olot/pla-usos/internal/store"
)

// env bundles the wired collaborators shared by the commands.
type env struct {
	Pool    *pgxpool.Pool
	Catalog catalog.Catalog
	Store   store.Store
	Service *consult.Service
}

// initEnv builds the service graph from configuration.
func initEnv(ctx context.Context, c *config.Config) (*env, error) {
	pool, err := db.NewPool(ctx, c.Database.URL, &c.Database.Pool)
	if err != nil {
		return nil, eris.Wrap(err, "init: database")
	}

	cat := catalog.NewPostgres(pool)

	var prox proximity.Provider
	if c.Proximity.Enabled {
		prox = proximity.NewPostgres(pool, time.Duration(c.Proximity.TimeoutSecs)*time.Second)
	} else {
		zap.L().Warn("init: spatial search disabled, proximity rules run in degraded mode")
		prox = proximity.NewNull()
	}

	var st store.Store
	switch c.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(c.Store.SQLitePath)
		if err != nil {
			pool.Close()
			return nil, eris.Wrap(err, "init: sqlite store")
		}
	default:
		st = store.NewPostgres(pool)
	}

	radii := eligibility.Radii{
		ShortMeters: c.Proximity.ShortRadiusM,
		LongMeters:  c.Proximity.LongRadiusM,
	}
	svc := consult.NewService(cat, prox, mapimage.NewWMS(c.Map), st, report.NewRenderer(), consult.LogNotifier{}, radii)

	return &env{
		Pool:    pool,
		Catalog: cat,
		Store:   st,
		Service: svc,
	}, nil
}

// Close releases the environment's resources.
func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close: store", zap.Error(err))
	}
	e.Pool.Close()
}
