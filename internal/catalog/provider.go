package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nurpe/bonus-agreements/internal/model"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrUnknownScale       = errors.New("unknown scale")
)

const cacheKey = "agreements:catalog:v1"

// Source fetches the reference lists from the backend.
type Source interface {
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	ListAgreementTypes(ctx context.Context) ([]model.AgreementType, error)
	ListScales(ctx context.Context) ([]model.Scale, error)
}

type Provider struct {
	source Source
	cache  *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewProvider builds a provider. cache may be nil, which disables caching.
func NewProvider(source Source, cache *redis.Client, ttl time.Duration, log zerolog.Logger) *Provider {
	return &Provider{source: source, cache: cache, ttl: ttl, log: log}
}

// Load fetches suppliers, agreement types and scales together and joins
// them. Any individual failure yields ErrCatalogUnavailable.
func (p *Provider) Load(ctx context.Context) (*Catalog, error) {
	if cached, ok := p.fromCache(ctx); ok {
		return cached, nil
	}

	var (
		suppliers      []model.Supplier
		agreementTypes []model.AgreementType
		scales         []model.Scale
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		suppliers, err = p.source.ListSuppliers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		agreementTypes, err = p.source.ListAgreementTypes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		scales, err = p.source.ListScales(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		p.log.Error().Err(err).Msg("catalog load failed")
		return nil, ErrCatalogUnavailable
	}

	c := New(suppliers, agreementTypes, scales)
	p.toCache(ctx, c)
	return c, nil
}

// Invalidate drops the cached snapshot.
func (p *Provider) Invalidate(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Del(ctx, cacheKey).Err(); err != nil {
		p.log.Warn().Err(err).Msg("catalog cache delete failed")
	}
}

func (p *Provider) fromCache(ctx context.Context) (*Catalog, bool) {
	if p.cache == nil {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.log.Warn().Err(err).Msg("catalog cache get failed")
		}
		return nil, false
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		p.log.Warn().Err(err).Msg("catalog cache entry is corrupt")
		return nil, false
	}
	return New(snap.Suppliers, snap.AgreementTypes, snap.Scales), true
}

func (p *Provider) toCache(ctx context.Context, c *Catalog) {
	if p.cache == nil || p.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(c.snapshot())
	if err != nil {
		p.log.Warn().Err(err).Msg("catalog cache encode failed")
		return
	}
	if err := p.cache.Set(ctx, cacheKey, raw, p.ttl).Err(); err != nil {
		p.log.Warn().Err(err).Msg("catalog cache set failed")
	}
}

// Pending is an in-flight catalog load.
type Pending struct {
	done    chan struct{}
	catalog *Catalog
	err     error
}

// Go starts Load in the background so callers can overlap it with other requests.
func (p *Provider) Go(ctx context.Context) *Pending {
	pending := &Pending{done: make(chan struct{})}
	go func() {
		defer close(pending.done)
		pending.catalog, pending.err = p.Load(ctx)
	}()
	return pending
}

func (p *Pending) Loading() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Pending) Wait() (*Catalog, error) {
	<-p.done
	return p.catalog, p.err
}
