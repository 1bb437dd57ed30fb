package stores

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/storekit/internal/application/purchase"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/domain/transaction"
)

type captureListener struct {
	mu        sync.Mutex
	ready     bool
	successes []transaction.Transaction
	failures  []transaction.FailureReason
	result    purchase.ProcessResult
}

func (l *captureListener) OnStoreReady() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ready = true
}

func (l *captureListener) OnInitializeFailed(transaction.InitFailureReason) {}

func (l *captureListener) OnPurchaseSucceeded(tx transaction.Transaction) purchase.ProcessResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.successes = append(l.successes, tx)
	return l.result
}

func (l *captureListener) OnPurchaseFailed(productID string, reason transaction.FailureReason) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, reason)
}

func (l *captureListener) successCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.successes)
}

func (l *captureListener) failureCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failures)
}

func fakeCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		&catalog.Product{ID: "gold100", Type: catalog.Consumable, Enabled: true},
		&catalog.Product{ID: "sword", Type: catalog.NonConsumable, Enabled: true},
	)
	require.NoError(t, err)
	return cat
}

func TestFakeStore_PurchaseSucceeds(t *testing.T) {
	store := NewFakeStore(WithLatency(time.Millisecond))
	listener := &captureListener{result: purchase.ResultComplete}
	require.NoError(t, store.Initialize(context.Background(), fakeCatalog(t), listener))
	assert.True(t, listener.ready)

	require.NoError(t, store.InitiatePurchase(context.Background(), "gold100", "payload-1"))

	assert.Eventually(t, func() bool { return listener.successCount() == 1 }, time.Second, 5*time.Millisecond)

	tx := listener.successes[0]
	assert.Equal(t, "gold100", tx.ProductID)
	assert.NotEmpty(t, tx.ID)

	var receipt map[string]string
	require.NoError(t, json.Unmarshal([]byte(tx.Receipt), &receipt))
	assert.Equal(t, "fake", receipt["Store"])
	assert.Equal(t, "payload-1", receipt["Payload"])
	assert.Equal(t, tx.ID, receipt["TransactionID"])
}

func TestFakeStore_AlwaysFailDeclines(t *testing.T) {
	store := NewFakeStore(WithLatency(time.Millisecond), WithMode(ModeAlwaysFail))
	listener := &captureListener{}
	require.NoError(t, store.Initialize(context.Background(), fakeCatalog(t), listener))

	require.NoError(t, store.InitiatePurchase(context.Background(), "gold100", ""))

	assert.Eventually(t, func() bool { return listener.failureCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, transaction.ReasonPaymentDeclined, listener.failures[0])
	assert.Zero(t, listener.successCount())
}

func TestFakeStore_UnknownProductRejected(t *testing.T) {
	store := NewFakeStore(WithLatency(time.Millisecond))
	listener := &captureListener{}
	require.NoError(t, store.Initialize(context.Background(), fakeCatalog(t), listener))

	err := store.InitiatePurchase(context.Background(), "nope", "")
	assert.Error(t, err)
}

func TestFakeStore_UnconfirmedRedeliveredOnInitialize(t *testing.T) {
	store := NewFakeStore(WithLatency(time.Millisecond))
	listener := &captureListener{result: purchase.ResultPending}
	require.NoError(t, store.Initialize(context.Background(), fakeCatalog(t), listener))

	require.NoError(t, store.InitiatePurchase(context.Background(), "gold100", ""))
	assert.Eventually(t, func() bool { return listener.successCount() == 1 }, time.Second, 5*time.Millisecond)

	// A new session sees the unconfirmed transaction again.
	second := &captureListener{result: purchase.ResultPending}
	require.NoError(t, store.Initialize(context.Background(), fakeCatalog(t), second))
	assert.Equal(t, 1, second.successCount())
	assert.Equal(t, "gold100", second.successes[0].ProductID)

	// Once confirmed, redelivery stops.
	require.NoError(t, store.ConfirmPendingPurchase(context.Background(), "gold100"))
	third := &captureListener{result: purchase.ResultPending}
	require.NoError(t, store.Initialize(context.Background(), fakeCatalog(t), third))
	assert.Zero(t, third.successCount())
}

func TestFakeStore_RestoreRedeliversDurablesOnly(t *testing.T) {
	store := NewFakeStore(WithLatency(time.Millisecond))
	listener := &captureListener{result: purchase.ResultComplete}
	require.NoError(t, store.Initialize(context.Background(), fakeCatalog(t), listener))

	require.NoError(t, store.InitiatePurchase(context.Background(), "gold100", ""))
	require.NoError(t, store.InitiatePurchase(context.Background(), "sword", ""))
	require.Eventually(t, func() bool { return listener.successCount() == 2 }, time.Second, 5*time.Millisecond)

	restored := &captureListener{result: purchase.ResultComplete}
	require.NoError(t, store.Initialize(context.Background(), fakeCatalog(t), restored))

	done := make(chan bool, 1)
	require.NoError(t, store.RestoreTransactions(context.Background(), func(ok bool) { done <- ok }))

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("restore did not complete")
	}
	require.Equal(t, 1, restored.successCount())
	assert.Equal(t, "sword", restored.successes[0].ProductID)
}
