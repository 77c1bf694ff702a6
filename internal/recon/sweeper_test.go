package recon

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/pkg/model"
)

func pendingRec(tradeID string, createdAt time.Time) *model.ReconciliationRecord {
	return &model.ReconciliationRecord{
		TradeID:   tradeID,
		Status:    model.StatusPending,
		Details:   "Waiting for data from System B",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestSweep_PromotesStalePending(t *testing.T) {
	st := newFakeStore()
	st.recs["T1"] = pendingRec("T1", time.Now().Add(-time.Hour))
	notifier := &fakeNotifier{}
	sweeper := NewTimeoutSweeper(st, notifier, zap.NewNop(), time.Minute, 30*time.Minute)

	promoted, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	rec := st.recs["T1"]
	assert.Equal(t, model.StatusTimeout, rec.Status)
	assert.Equal(t, "Reconciliation timed out after 30 minutes", rec.Details)
	assert.False(t, rec.LastAttempt.IsZero())
	require.Len(t, notifier.events, 1)
	assert.Equal(t, model.StatusTimeout, notifier.events[0].Status)
}

func TestSweep_LeavesYoungPendingUntouched(t *testing.T) {
	st := newFakeStore()
	st.recs["T1"] = pendingRec("T1", time.Now().Add(-10*time.Minute))
	sweeper := NewTimeoutSweeper(st, nil, zap.NewNop(), time.Minute, 30*time.Minute)

	promoted, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, promoted)
	assert.Equal(t, model.StatusPending, st.recs["T1"].Status)
}

func TestSweep_IgnoresTerminalStatuses(t *testing.T) {
	st := newFakeStore()
	old := time.Now().Add(-2 * time.Hour)
	for tradeID, status := range map[string]model.Status{
		"T1": model.StatusMatched,
		"T2": model.StatusMismatched,
		"T3": model.StatusError,
		"T4": model.StatusTimeout,
	} {
		rec := pendingRec(tradeID, old)
		rec.Status = status
		st.recs[tradeID] = rec
	}
	sweeper := NewTimeoutSweeper(st, nil, zap.NewNop(), time.Minute, 30*time.Minute)

	promoted, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, promoted)
}

func TestSweep_ListFailure(t *testing.T) {
	st := newFakeStore()
	st.getErr = fmt.Errorf("db down")
	sweeper := NewTimeoutSweeper(st, nil, zap.NewNop(), time.Minute, 30*time.Minute)

	_, err := sweeper.Sweep(context.Background())
	assert.Error(t, err)
}

func TestSweep_IndividualFailureDoesNotAbortBatch(t *testing.T) {
	st := newFakeStore()
	st.recs["T1"] = pendingRec("T1", time.Now().Add(-time.Hour))
	st.recs["T2"] = pendingRec("T2", time.Now().Add(-time.Hour))

	failing := &failOnceStore{fakeStore: st, failTradeID: "T1"}
	sweeper := NewTimeoutSweeper(failing, nil, zap.NewNop(), time.Minute, 30*time.Minute)

	promoted, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)
}

// failOnceStore fails upserts for one trade identifier and delegates the rest.
type failOnceStore struct {
	*fakeStore
	failTradeID string
}

func (f *failOnceStore) UpsertReconciliation(ctx context.Context, rec *model.ReconciliationRecord) error {
	if rec.TradeID == f.failTradeID {
		return fmt.Errorf("write failed for %s", rec.TradeID)
	}
	return f.fakeStore.UpsertReconciliation(ctx, rec)
}
