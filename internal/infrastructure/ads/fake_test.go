package ads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/rs/zerolog"
)

func TestFakeService_FinishesByDefault(t *testing.T) {
	svc := NewFakeService(zerolog.Nop(), WithFillLatency(time.Millisecond))
	require.True(t, svc.IsReady())

	results := make(chan continuation.AdResult, 1)
	svc.Show(func(r continuation.AdResult) { results <- r })

	select {
	case r := <-results:
		assert.Equal(t, continuation.AdFinished, r)
	case <-time.After(time.Second):
		t.Fatal("ad did not resolve")
	}
}

func TestFakeService_AlwaysFails(t *testing.T) {
	svc := NewFakeService(zerolog.Nop(), WithFillLatency(time.Millisecond), WithFailRate(1.0))

	results := make(chan continuation.AdResult, 1)
	svc.Show(func(r continuation.AdResult) { results <- r })

	select {
	case r := <-results:
		assert.Equal(t, continuation.AdFailed, r)
	case <-time.After(time.Second):
		t.Fatal("ad did not resolve")
	}
}

func TestFakeService_AlwaysSkips(t *testing.T) {
	svc := NewFakeService(zerolog.Nop(), WithFillLatency(time.Millisecond), WithSkipRate(1.0))

	results := make(chan continuation.AdResult, 1)
	svc.Show(func(r continuation.AdResult) { results <- r })

	select {
	case r := <-results:
		assert.Equal(t, continuation.AdSkipped, r)
	case <-time.After(time.Second):
		t.Fatal("ad did not resolve")
	}
}

func TestFakeService_ReadyToggle(t *testing.T) {
	svc := NewFakeService(zerolog.Nop())
	svc.SetReady(false)
	assert.False(t, svc.IsReady())
	svc.SetReady(true)
	assert.True(t, svc.IsReady())
}
