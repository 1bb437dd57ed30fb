package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/domain/transaction"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventStream carries every store and continuation event for downstream
// consumers (analytics, server-side entitlement sync).
const EventStream = "storekit:events"

const publishTimeout = 3 * time.Second

// StreamNotifier publishes controller notifications to a Redis stream. It
// implements both the purchase and the continuation notifier contracts.
// Publishing is best effort: a failed append is logged, never propagated,
// because notification must not block the purchase lifecycle.
type StreamNotifier struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewStreamNotifier(client *redis.Client, logger zerolog.Logger) *StreamNotifier {
	return &StreamNotifier{
		client: client,
		logger: logger.With().Str("component", "stream_notifier").Logger(),
	}
}

func (n *StreamNotifier) PurchaseStateChanged(state transaction.State, productID string) {
	n.publish("purchase_state_changed", map[string]any{
		"state":      string(state),
		"product_id": productID,
	})
}

func (n *StreamNotifier) PurchaseFailed(productID string, reason transaction.FailureReason) {
	n.publish("purchase_failed", map[string]any{
		"product_id": productID,
		"reason":     string(reason),
	})
}

func (n *StreamNotifier) HistoryChanged(owned map[string]bool) {
	n.publish("history_changed", map[string]any{"owned": owned})
}

func (n *StreamNotifier) PendingChanged(productIDs []string) {
	n.publish("pending_changed", map[string]any{"product_ids": productIDs})
}

func (n *StreamNotifier) PayoutGranted(productID string, payouts []catalog.Payout) {
	n.publish("payout_granted", map[string]any{
		"product_id": productID,
		"payouts":    payouts,
	})
}

func (n *StreamNotifier) OfferChanged(offer continuation.Offer) {
	n.publish("offer_changed", map[string]any{
		"kind":         string(offer.Kind),
		"remaining_ms": offer.Remaining.Milliseconds(),
	})
}

func (n *StreamNotifier) CountdownTick(remaining time.Duration, text string) {
	n.publish("countdown_tick", map[string]any{
		"remaining_ms": remaining.Milliseconds(),
		"text":         text,
	})
}

func (n *StreamNotifier) PauseChanged(paused bool, timeScale float64) {
	n.publish("pause_changed", map[string]any{
		"paused":     paused,
		"time_scale": timeScale,
	})
}

func (n *StreamNotifier) publish(eventType string, data map[string]any) {
	payload, err := json.Marshal(data)
	if err != nil {
		n.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: EventStream,
		Values: map[string]any{
			"event_type": eventType,
			"payload":    string(payload),
			"timestamp":  time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		n.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
