package continuation

import (
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/storekit/internal/domain/errors"
	"github.com/cassiomorais/storekit/pkg/clock"
	"github.com/cassiomorais/storekit/pkg/pause"
	"github.com/rs/zerolog"
)

// AdResult is the ad backend's verdict for one playback request.
type AdResult int

const (
	AdFinished AdResult = iota
	AdSkipped
	AdFailed
)

func (r AdResult) String() string {
	switch r {
	case AdFinished:
		return "finished"
	case AdSkipped:
		return "skipped"
	case AdFailed:
		return "failed"
	}
	return "unknown"
}

// AdBackend is the external advertisement provider. Show is asynchronous;
// the result callback may arrive at any later time, or never.
type AdBackend interface {
	IsReady() bool
	Show(onResult func(AdResult))
}

// OfferKind says how the continuation option should be presented.
type OfferKind string

const (
	// OfferFree continues without an ad (ads disabled globally).
	OfferFree OfferKind = "free"
	// OfferAd continues after watching a reward ad.
	OfferAd OfferKind = "ad"
	// OfferCooldown is a disabled option showing the remaining wait.
	OfferCooldown OfferKind = "cooldown"
)

// Offer is what RequestContinue presents to the player.
type Offer struct {
	Kind      OfferKind
	Remaining time.Duration
}

// CountdownText renders the remaining cooldown in the MM:SS form shown on
// the disabled continue option.
func (o Offer) CountdownText() string {
	r := o.Remaining
	if r < 0 {
		r = 0
	}
	r = r.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(r.Minutes()), int(r.Seconds())%60)
}

// Notifier pushes continuation state to the presentation layer.
type Notifier interface {
	OfferChanged(offer Offer)
	CountdownTick(remaining time.Duration, text string)
	PauseChanged(paused bool, timeScale float64)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) OfferChanged(Offer)                  {}
func (NopNotifier) CountdownTick(time.Duration, string) {}
func (NopNotifier) PauseChanged(bool, float64)          {}

// Config tunes the continuation controller.
type Config struct {
	// AdsEnabled mirrors the global "show ads" switch; when false every
	// continuation is free and the ad backend is never contacted.
	AdsEnabled bool
	// RewardWindow is the cooldown entered after a finished reward ad.
	RewardWindow time.Duration
}

// Controller coordinates the reward-ad cooldown, the global pause causes and
// the asynchronous ad-result handoff. At most one ad request is outstanding
// at a time.
type Controller struct {
	cfg      Config
	ads      AdBackend
	pauses   *pause.Registry
	clk      clock.Clock
	notifier Notifier
	logger   zerolog.Logger

	mu          sync.Mutex
	nextReward  *time.Time // nil = no active cooldown
	outstanding bool
	onContinue  func()
}

// NewController creates a continuation controller.
func NewController(cfg Config, ads AdBackend, pauses *pause.Registry, clk clock.Clock, notifier Notifier, logger zerolog.Logger) *Controller {
	if cfg.RewardWindow <= 0 {
		cfg.RewardWindow = 15 * time.Second
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Controller{
		cfg:      cfg,
		ads:      ads,
		pauses:   pauses,
		clk:      clk,
		notifier: notifier,
		logger:   logger.With().Str("component", "continuation").Logger(),
	}
}

// RequestContinue evaluates the continuation option for a player who just
// failed. A free offer is granted immediately; an ad offer arms ShowRewardAd;
// a cooldown offer is disabled with the remaining wait.
func (c *Controller) RequestContinue(onContinue func()) Offer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining := c.remainingLocked(); remaining > 0 {
		offer := Offer{Kind: OfferCooldown, Remaining: remaining}
		c.notifier.OfferChanged(offer)
		return offer
	}

	if !c.cfg.AdsEnabled {
		c.mu.Unlock()
		if onContinue != nil {
			onContinue()
		}
		c.mu.Lock()
		offer := Offer{Kind: OfferFree}
		c.notifier.OfferChanged(offer)
		return offer
	}

	c.onContinue = onContinue
	offer := Offer{Kind: OfferAd}
	c.notifier.OfferChanged(offer)
	return offer
}

// ShowRewardAd requests reward-ad playback. When the backend is not ready
// nothing is shown and no pause cause is left behind. A second request while
// one is outstanding is rejected.
func (c *Controller) ShowRewardAd() error {
	c.mu.Lock()
	if c.outstanding {
		c.mu.Unlock()
		c.logger.Warn().Msg("ad request already outstanding, rejecting")
		return domainErrors.ErrAdRequestOutstanding
	}
	if !c.ads.IsReady() {
		c.mu.Unlock()
		c.logger.Info().Msg("ad backend not ready, nothing to show")
		return nil
	}
	c.outstanding = true
	c.mu.Unlock()

	c.pauses.Acquire(pause.CauseAdDisplay)
	c.notifier.PauseChanged(c.pauses.Paused(), c.pauses.TimeScale())

	// Any panic out of the backend counts as a failed ad so the pause
	// cause is always released.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("ad backend panicked during show")
			c.handleResult(AdFailed)
		}
	}()
	c.ads.Show(c.handleResult)
	return nil
}

// handleResult is the ad backend's result callback. Stale results (no
// request outstanding) are ignored.
func (c *Controller) handleResult(result AdResult) {
	c.mu.Lock()
	if !c.outstanding {
		c.mu.Unlock()
		c.logger.Warn().Str("result", result.String()).Msg("ad result without outstanding request, ignoring")
		return
	}
	c.outstanding = false
	onContinue := c.onContinue

	var entered bool
	if result == AdFinished {
		until := c.clk.Now().Add(c.cfg.RewardWindow)
		c.nextReward = &until
		c.onContinue = nil
		entered = true
	}
	c.mu.Unlock()

	c.pauses.Release(pause.CauseAdDisplay)
	c.notifier.PauseChanged(c.pauses.Paused(), c.pauses.TimeScale())

	switch result {
	case AdFinished:
		c.logger.Info().Dur("cooldown", c.cfg.RewardWindow).Msg("reward ad finished, continuing")
		if entered && onContinue != nil {
			onContinue()
		}
	case AdSkipped:
		c.logger.Info().Msg("ad skipped, do nothing")
	case AdFailed:
		c.logger.Error().Msg("ad failed to show, do nothing")
	}
}

// Remaining returns the time left in the reward cooldown, or zero when the
// ad option is available again.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// Available reports whether the reward ad may be offered.
func (c *Controller) Available() bool {
	return c.Remaining() == 0
}

// Outstanding reports whether an ad request is in flight.
func (c *Controller) Outstanding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

// CurrentOffer computes the offer without arming a continuation callback.
func (c *Controller) CurrentOffer() Offer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remaining := c.remainingLocked(); remaining > 0 {
		return Offer{Kind: OfferCooldown, Remaining: remaining}
	}
	if !c.cfg.AdsEnabled {
		return Offer{Kind: OfferFree}
	}
	return Offer{Kind: OfferAd}
}

// Tick refreshes the countdown display. Called at least once per second
// while a cooldown is shown; this is a display refresh, not a state
// transition.
func (c *Controller) Tick() {
	c.mu.Lock()
	remaining := c.remainingLocked()
	c.mu.Unlock()
	if remaining <= 0 {
		return
	}
	offer := Offer{Kind: OfferCooldown, Remaining: remaining}
	c.notifier.CountdownTick(remaining, offer.CountdownText())
}

// remainingLocked clears an elapsed cooldown and returns the time left.
func (c *Controller) remainingLocked() time.Duration {
	if c.nextReward == nil {
		return 0
	}
	remaining := c.nextReward.Sub(c.clk.Now())
	if remaining <= 0 {
		c.nextReward = nil
		return 0
	}
	return remaining
}
