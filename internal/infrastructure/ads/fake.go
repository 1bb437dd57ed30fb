package ads

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/rs/zerolog"
)

// FakeService is an in-process ad backend for development builds. Each Show
// resolves asynchronously after the fill latency, with the outcome drawn
// from the configured rates.
type FakeService struct {
	latency  time.Duration
	skipRate float64 // 0.0 to 1.0
	failRate float64 // 0.0 to 1.0
	logger   zerolog.Logger

	mu    sync.Mutex
	ready bool
}

type FakeServiceOption func(*FakeService)

func WithFillLatency(d time.Duration) FakeServiceOption {
	return func(s *FakeService) { s.latency = d }
}

func WithSkipRate(rate float64) FakeServiceOption {
	return func(s *FakeService) { s.skipRate = rate }
}

func WithFailRate(rate float64) FakeServiceOption {
	return func(s *FakeService) { s.failRate = rate }
}

func NewFakeService(logger zerolog.Logger, opts ...FakeServiceOption) *FakeService {
	s := &FakeService{
		latency: 500 * time.Millisecond,
		ready:   true,
		logger:  logger.With().Str("component", "ads").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *FakeService) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// SetReady toggles ad availability, simulating fill starvation.
func (s *FakeService) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *FakeService) Show(onResult func(continuation.AdResult)) {
	go func() {
		time.Sleep(s.latency)
		result := s.roll()
		s.logger.Debug().Str("result", result.String()).Msg("fake ad resolved")
		onResult(result)
	}()
}

func (s *FakeService) roll() continuation.AdResult {
	r := rand.Float64()
	switch {
	case r < s.failRate:
		return continuation.AdFailed
	case r < s.failRate+s.skipRate:
		return continuation.AdSkipped
	}
	return continuation.AdFinished
}
