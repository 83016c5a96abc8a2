package nearlot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/nearlot/internal/db"
	dbRedis "github.com/kailas-cloud/nearlot/internal/db/redis"
	"github.com/kailas-cloud/nearlot/internal/db/sqlstore"
	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	domprox "github.com/kailas-cloud/nearlot/internal/domain/proximity"
	lotrepo "github.com/kailas-cloud/nearlot/internal/repository/lot"
	healthuc "github.com/kailas-cloud/nearlot/internal/usecase/health"
	lotuc "github.com/kailas-cloud/nearlot/internal/usecase/lot"
	proximityuc "github.com/kailas-cloud/nearlot/internal/usecase/proximity"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type lotUseCase interface {
	Register(ctx context.Context, d domlot.Draft) (domlot.Lot, error)
	Get(ctx context.Context, id string) (domlot.Lot, error)
	UpdateLocation(ctx context.Context, merchantID, id string, c geo.Coordinate) (domlot.Lot, error)
	UpdateStatus(ctx context.Context, merchantID, id string, st domlot.Status) (domlot.Lot, error)
	Delete(ctx context.Context, merchantID, id string) error
	ListByMerchant(ctx context.Context, merchantID string) ([]domlot.Lot, error)
}

type proximityUseCase interface {
	Search(ctx context.Context, center geo.Coordinate, radiusKm float64, status domlot.Status) ([]domprox.Result, error)
}

// Client is the nearlot SDK entry point.
type Client struct {
	store     db.Store
	lotSvc    lotUseCase
	proxSvc   proximityUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a nearlot Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("nearlot: database required (use WithRedis, WithValkey, WithSQLite or WithPostgres)")
	}
	proxCfg := proximityConfig(cfg)
	if err := proxCfg.Validate(); err != nil {
		return nil, fmt.Errorf("nearlot: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("nearlot: database not ready: %w", err)
	}

	return wireClient(store, cfg, proxCfg, obs), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis", "valkey":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, fmt.Errorf("nearlot: %s address required", cfg.driver)
		}
		s, err := dbRedis.NewStore(redisConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("nearlot: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "sqlite", "postgres":
		s, err := sqlstore.NewStore(ctx, sqlstore.Config{
			Dialect: sqlstore.Dialect(cfg.driver),
			DSN:     cfg.dsn,
		})
		if err != nil {
			return nil, fmt.Errorf("nearlot: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("nearlot: unknown driver %q", cfg.driver)
	}
}

func redisConfig(cfg *clientConfig) dbRedis.Config {
	return dbRedis.Config{
		Addrs:     cfg.addrs,
		Username:  cfg.username,
		Password:  cfg.password,
		DB:        cfg.redisDB,
		KeyPrefix: cfg.keyPrefix,
	}
}

func proximityConfig(cfg *clientConfig) domain.ProximityConfig {
	pc := domain.DefaultProximityConfig()
	if cfg.minRadiusKm != 0 {
		pc.MinRadiusKm = cfg.minRadiusKm
	}
	if cfg.maxRadiusKm != 0 {
		pc.MaxRadiusKm = cfg.maxRadiusKm
	}
	if cfg.maxConcurrentScans != 0 {
		pc.MaxConcurrentScans = cfg.maxConcurrentScans
	}
	return pc
}

func wireClient(store db.Store, cfg *clientConfig, proxCfg domain.ProximityConfig, obs *observer) *Client {
	var inner domain.Describer
	if cfg.describer != nil {
		inner = &describerAdapter{inner: cfg.describer}
	}
	describer := domain.NewFallbackDescriber(inner, func(err error) {
		if cfg.logger != nil {
			cfg.logger.Warn("describer failed, using template", "error", err)
		}
	})

	repo := lotrepo.New(store)

	return &Client{
		store:     store,
		lotSvc:    lotuc.New(repo, describer),
		proxSvc:   proximityuc.New(repo, proxCfg),
		healthSvc: healthuc.New(store, describer),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Lots returns the lot service.
func (c *Client) Lots() *LotService {
	return &LotService{lots: c.lotSvc, prox: c.proxSvc, obs: c.obs}
}
