package main

import (
	"time"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/domain/transaction"
	"github.com/cassiomorais/storekit/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/storekit/internal/infrastructure/redis"
)

// metricsNotifier records controller notifications as prometheus metrics and
// forwards them to the Redis stream notifier.
type metricsNotifier struct {
	next    *infraRedis.StreamNotifier
	metrics *observability.Metrics
}

func newMetricsNotifier(next *infraRedis.StreamNotifier, metrics *observability.Metrics) *metricsNotifier {
	return &metricsNotifier{next: next, metrics: metrics}
}

func (n *metricsNotifier) PurchaseStateChanged(state transaction.State, productID string) {
	if state == transaction.StateCompleted && productID != "" {
		n.metrics.PurchasesTotal.WithLabelValues(productID, "completed").Inc()
	}
	n.next.PurchaseStateChanged(state, productID)
}

func (n *metricsNotifier) PurchaseFailed(productID string, reason transaction.FailureReason) {
	n.metrics.PurchasesTotal.WithLabelValues(productID, "failed").Inc()
	n.metrics.PurchaseFailures.WithLabelValues(productID, string(reason)).Inc()
	n.next.PurchaseFailed(productID, reason)
}

func (n *metricsNotifier) HistoryChanged(owned map[string]bool) {
	n.next.HistoryChanged(owned)
}

func (n *metricsNotifier) PendingChanged(productIDs []string) {
	n.metrics.PendingPurchases.Set(float64(len(productIDs)))
	n.next.PendingChanged(productIDs)
}

func (n *metricsNotifier) PayoutGranted(productID string, payouts []catalog.Payout) {
	for _, p := range payouts {
		n.metrics.PayoutsGranted.WithLabelValues(string(p.Type), p.Subtype).Add(float64(p.Quantity))
	}
	n.next.PayoutGranted(productID, payouts)
}

func (n *metricsNotifier) OfferChanged(offer continuation.Offer) {
	// A free offer continues the run in the same call.
	if offer.Kind == continuation.OfferFree {
		n.metrics.ContinuesGranted.WithLabelValues("free").Inc()
	}
	n.next.OfferChanged(offer)
}

func (n *metricsNotifier) CountdownTick(remaining time.Duration, text string) {
	n.next.CountdownTick(remaining, text)
}

func (n *metricsNotifier) PauseChanged(paused bool, timeScale float64) {
	n.next.PauseChanged(paused, timeScale)
}
