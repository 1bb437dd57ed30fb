package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/storekit/internal/application/purchase"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/storefront"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Backend is a named store backend that the factory can hand out.
type Backend interface {
	purchase.StoreBackend
	Name() string
}

// Factory holds the registered store backends and a circuit breaker per
// backend. Billing endpoints fail as a whole, so the breaker guards the
// backend rather than individual products.
type Factory struct {
	backends        map[string]Backend
	circuitBreakers map[string]*gobreaker.CircuitBreaker[struct{}]
	threshold       uint32
	timeout         time.Duration
	logger          zerolog.Logger
}

func NewFactory(threshold int, timeout time.Duration, logger zerolog.Logger, backendsList ...Backend) *Factory {
	if threshold <= 0 {
		threshold = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &Factory{
		backends:        make(map[string]Backend),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
		threshold:       uint32(threshold),
		timeout:         timeout,
		logger:          logger.With().Str("component", "store_factory").Logger(),
	}

	if len(backendsList) == 0 {
		f.Register(NewFakeStore(WithLatency(100 * time.Millisecond)))
	} else {
		for _, b := range backendsList {
			f.Register(b)
		}
	}

	return f
}

func (f *Factory) Register(b Backend) {
	f.backends[b.Name()] = b
	f.circuitBreakers[b.Name()] = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        b.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     f.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= f.threshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn().
				Str("backend", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("store circuit breaker state changed")
		},
	})
}

// Get returns the backend registered for the given store, wrapped in its
// circuit breaker.
func (f *Factory) Get(store storefront.Store) (purchase.StoreBackend, error) {
	b, ok := f.backends[string(store)]
	if !ok {
		return nil, fmt.Errorf("unknown store backend %q", store)
	}
	return &guardedBackend{backend: b, breaker: f.circuitBreakers[b.Name()]}, nil
}

// guardedBackend routes the outbound store calls through the circuit
// breaker. Initialize is exempt: it runs once at startup and its failure
// modes are reported through the listener.
type guardedBackend struct {
	backend Backend
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func (g *guardedBackend) Initialize(ctx context.Context, cat *catalog.Catalog, listener purchase.StoreListener) error {
	return g.backend.Initialize(ctx, cat, listener)
}

func (g *guardedBackend) InitiatePurchase(ctx context.Context, productID, payload string) error {
	return g.execute(func() error {
		return g.backend.InitiatePurchase(ctx, productID, payload)
	})
}

func (g *guardedBackend) RestoreTransactions(ctx context.Context, onDone func(restored bool)) error {
	return g.execute(func() error {
		return g.backend.RestoreTransactions(ctx, onDone)
	})
}

func (g *guardedBackend) ConfirmPendingPurchase(ctx context.Context, productID string) error {
	return g.execute(func() error {
		return g.backend.ConfirmPendingPurchase(ctx, productID)
	})
}

func (g *guardedBackend) Login(ctx context.Context, onDone func(ok bool, err error)) error {
	return g.execute(func() error {
		return g.backend.Login(ctx, onDone)
	})
}

func (g *guardedBackend) execute(fn func() error) error {
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
