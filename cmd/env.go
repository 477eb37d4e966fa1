package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jejulab/landmass/internal/cache"
	"github.com/jejulab/landmass/internal/massing"
	"github.com/jejulab/landmass/internal/provider"
	"github.com/jejulab/landmass/internal/resolver"
	"github.com/jejulab/landmass/internal/store"
	"github.com/jejulab/landmass/internal/zoning"
)

// appEnv bundles the wired subsystems a command needs.
type appEnv struct {
	Store    store.Store
	Cache    cache.Cache
	Resolver *resolver.Resolver
	Solver   *massing.Solver
}

func (e *appEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "landmass.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initCache(ctx context.Context) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedis(ctx, cfg.Cache.RedisAddr, cache.WithPoolSize(cfg.Cache.PoolSize))
	case "memory":
		return cache.NewMemory(cfg.Cache.MemorySize)
	default:
		return nil, eris.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

func initRules() (*zoning.Rules, error) {
	if cfg.Zoning.TablePath == "" {
		return zoning.NewRules(), nil
	}
	return zoning.LoadTable(cfg.Zoning.TablePath)
}

// initEnv wires providers, cache, store and solver from config.
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	c, err := initCache(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	rules, err := initRules()
	if err != nil {
		st.Close()
		c.Close()
		return nil, err
	}

	timeout := time.Duration(cfg.Providers.TimeoutSecs) * time.Second
	rps := cfg.Providers.RatePerSec

	var src resolver.Sources
	if cfg.Providers.ProxyBaseURL != "" {
		proxy := provider.NewProxy(cfg.Providers.ProxyBaseURL, provider.WithProxyTransport(timeout, rps))
		src.Geocoder = proxy
		src.Cadastral = proxy
		src.LandUse = proxy
	}
	if cfg.Providers.DataGoKey != "" {
		datago := provider.NewDataGo(cfg.Providers.DataGoKey, provider.WithDataGoTransport(timeout, rps))
		src.Buildings = datago
		src.Regulations = datago
		src.Fallbacks = append(src.Fallbacks, datago)
	}
	if cfg.Providers.VWorldKey != "" {
		vworld := provider.NewVWorld(cfg.Providers.VWorldKey, cfg.Providers.VWorldDomain,
			provider.WithVWorldTransport(timeout, rps))
		src.Fallbacks = append(src.Fallbacks, vworld)
		src.Geometry = vworld
		src.Adjacency = vworld
	}
	if cfg.Providers.KakaoKey != "" {
		src.Roads = provider.NewKakao(cfg.Providers.KakaoKey, provider.WithKakaoTransport(timeout, rps))
	}

	res := resolver.New(src,
		resolver.WithCache(c),
		resolver.WithStore(st),
		resolver.WithRules(rules),
	)

	return &appEnv{
		Store:    st,
		Cache:    c,
		Resolver: res,
		Solver:   massing.NewSolver(rules),
	}, nil
}
