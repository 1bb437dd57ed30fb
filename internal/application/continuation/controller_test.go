package continuation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	domainErrors "github.com/cassiomorais/storekit/internal/domain/errors"
	"github.com/cassiomorais/storekit/internal/testutil"
	"github.com/cassiomorais/storekit/pkg/clock"
	"github.com/cassiomorais/storekit/pkg/pause"
	"github.com/rs/zerolog"
)

type fixture struct {
	controller *continuation.Controller
	ads        *testutil.FakeAdBackend
	pauses     *pause.Registry
	clk        *clock.Fake
	notifier   *testutil.RecordingContinuationNotifier
}

func newFixture(t *testing.T, cfg continuation.Config) *fixture {
	t.Helper()
	f := &fixture{
		ads:      testutil.NewFakeAdBackend(true),
		pauses:   pause.NewRegistry(nil),
		clk:      clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		notifier: testutil.NewRecordingContinuationNotifier(),
	}
	f.controller = continuation.NewController(cfg, f.ads, f.pauses, f.clk, f.notifier, zerolog.Nop())
	return f
}

// watchAd drives one full request/show/deliver round.
func (f *fixture) watchAd(t *testing.T, result continuation.AdResult) bool {
	t.Helper()
	continued := false
	offer := f.controller.RequestContinue(func() { continued = true })
	require.Equal(t, continuation.OfferAd, offer.Kind)
	require.NoError(t, f.controller.ShowRewardAd())
	f.ads.Deliver(result)
	return continued
}

func TestController_FreeContinueWhenAdsDisabled(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: false})

	continued := false
	offer := f.controller.RequestContinue(func() { continued = true })

	assert.Equal(t, continuation.OfferFree, offer.Kind)
	assert.True(t, continued)
	assert.Zero(t, f.ads.Shows())
}

func TestController_FinishedAdContinuesAndEntersCooldown(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: 15 * time.Second})

	continued := f.watchAd(t, continuation.AdFinished)

	assert.True(t, continued)
	assert.False(t, f.controller.Available())
	assert.Equal(t, 15*time.Second, f.controller.Remaining())
	assert.False(t, f.pauses.Paused(), "pause cause must be released after the ad")
}

func TestController_SkippedAdDoesNothing(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: 15 * time.Second})

	continued := f.watchAd(t, continuation.AdSkipped)

	assert.False(t, continued)
	// No reward, no cooldown: the option is immediately available again.
	assert.True(t, f.controller.Available())
	assert.False(t, f.pauses.Paused())
}

func TestController_FailedAdDoesNothing(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: 15 * time.Second})

	continued := f.watchAd(t, continuation.AdFailed)

	assert.False(t, continued)
	assert.True(t, f.controller.Available())
	assert.False(t, f.pauses.Paused())
}

func TestController_CooldownOfferWhileWaiting(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: 15 * time.Second})
	f.watchAd(t, continuation.AdFinished)

	f.clk.Advance(5 * time.Second)
	offer := f.controller.RequestContinue(func() { t.Fatal("must not continue during cooldown") })

	assert.Equal(t, continuation.OfferCooldown, offer.Kind)
	assert.Equal(t, 10*time.Second, offer.Remaining)
	assert.Equal(t, "00:10", offer.CountdownText())
}

func TestController_CooldownExpires(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: 15 * time.Second})
	f.watchAd(t, continuation.AdFinished)

	f.clk.Advance(15 * time.Second)

	assert.True(t, f.controller.Available())
	assert.Equal(t, continuation.OfferAd, f.controller.CurrentOffer().Kind)
}

func TestController_RemainingIsMonotonic(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: 15 * time.Second})
	f.watchAd(t, continuation.AdFinished)

	prev := f.controller.Remaining()
	for i := 0; i < 15; i++ {
		f.clk.Advance(time.Second)
		cur := f.controller.Remaining()
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Zero(t, prev)
}

func TestController_SecondShowRejectedWhileOutstanding(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true})
	f.controller.RequestContinue(nil)

	require.NoError(t, f.controller.ShowRewardAd())
	require.True(t, f.controller.Outstanding())

	assert.ErrorIs(t, f.controller.ShowRewardAd(), domainErrors.ErrAdRequestOutstanding)
	assert.Equal(t, 1, f.ads.Shows())
}

func TestController_NotReadyLeavesNoPauseBehind(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true})
	f.ads.Ready = false
	f.controller.RequestContinue(nil)

	assert.NoError(t, f.controller.ShowRewardAd())

	assert.Zero(t, f.ads.Shows())
	assert.False(t, f.controller.Outstanding())
	assert.False(t, f.pauses.Paused())
}

func TestController_StaleResultIgnored(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: 15 * time.Second})
	f.watchAd(t, continuation.AdFinished)
	require.False(t, f.controller.Available())
	remaining := f.controller.Remaining()

	// A second verdict for the already-handled request changes nothing.
	f.ads.Deliver(continuation.AdFinished)

	assert.Equal(t, remaining, f.controller.Remaining())
	assert.False(t, f.pauses.Paused())
}

func TestController_ContinueCallbackFiresOnce(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: time.Second})
	count := 0
	f.controller.RequestContinue(func() { count++ })
	f.controller.ShowRewardAd()
	f.ads.Deliver(continuation.AdFinished)
	f.ads.Deliver(continuation.AdFinished)

	assert.Equal(t, 1, count)
}

func TestController_AdDisplayPausesGame(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true})
	f.controller.RequestContinue(nil)

	f.controller.ShowRewardAd()

	assert.True(t, f.pauses.Paused())
	assert.Zero(t, f.pauses.TimeScale())
	require.NotEmpty(t, f.notifier.Pauses)
	assert.True(t, f.notifier.Pauses[len(f.notifier.Pauses)-1])

	f.ads.Deliver(continuation.AdSkipped)
	assert.False(t, f.pauses.Paused())
	assert.Equal(t, float64(1), f.pauses.TimeScale())
	assert.False(t, f.notifier.Pauses[len(f.notifier.Pauses)-1])
}

func TestController_PauseScreenAndAdCompose(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true})
	f.pauses.Acquire(pause.CausePauseScreen)
	f.controller.RequestContinue(nil)
	f.controller.ShowRewardAd()

	// The ad finishing must not unpause while the pause screen is still up.
	f.ads.Deliver(continuation.AdFinished)
	assert.True(t, f.pauses.Paused())

	f.pauses.Release(pause.CausePauseScreen)
	assert.False(t, f.pauses.Paused())
}

func TestController_TickEmitsCountdownText(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: 75 * time.Second})
	f.watchAd(t, continuation.AdFinished)

	f.controller.Tick()
	f.clk.Advance(10 * time.Second)
	f.controller.Tick()

	require.Len(t, f.notifier.Ticks, 2)
	assert.Equal(t, "01:15", f.notifier.Ticks[0])
	assert.Equal(t, "01:05", f.notifier.Ticks[1])
}

func TestController_TickAfterExpiryIsSilent(t *testing.T) {
	f := newFixture(t, continuation.Config{AdsEnabled: true, RewardWindow: time.Second})
	f.watchAd(t, continuation.AdFinished)
	f.clk.Advance(2 * time.Second)

	f.controller.Tick()

	assert.Empty(t, f.notifier.Ticks)
}

func TestOffer_CountdownText(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{9 * time.Second, "00:09"},
		{15 * time.Second, "00:15"},
		{60 * time.Second, "01:00"},
		{75 * time.Second, "01:15"},
		{10 * time.Minute, "10:00"},
	}
	for _, tt := range tests {
		offer := continuation.Offer{Kind: continuation.OfferCooldown, Remaining: tt.remaining}
		assert.Equal(t, tt.want, offer.CountdownText(), "remaining %s", tt.remaining)
	}
}

type panickyAds struct{}

func (panickyAds) IsReady() bool { return true }

func (panickyAds) Show(func(continuation.AdResult)) { panic("sdk not initialized") }

func TestController_BackendPanicReleasesPause(t *testing.T) {
	pauses := pause.NewRegistry(nil)
	clk := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	controller := continuation.NewController(
		continuation.Config{AdsEnabled: true}, panickyAds{}, pauses, clk, nil, zerolog.Nop(),
	)
	controller.RequestContinue(nil)

	controller.ShowRewardAd()

	assert.False(t, pauses.Paused())
	assert.False(t, controller.Outstanding())
	// Treated as a failed ad: no cooldown entered.
	assert.True(t, controller.Available())
}
