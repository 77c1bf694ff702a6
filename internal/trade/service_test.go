package trade

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/pkg/model"
)

type mockStore struct {
	upsertFn func(ctx context.Context, tr *model.TradeRecord) error
	upserts  []model.TradeRecord
}

func (m *mockStore) UpsertTrade(ctx context.Context, tr *model.TradeRecord) error {
	if m.upsertFn != nil {
		if err := m.upsertFn(ctx, tr); err != nil {
			return err
		}
	}
	tr.ID = int64(len(m.upserts) + 1)
	tr.ReceivedAt = time.Now().UTC()
	m.upserts = append(m.upserts, *tr)
	return nil
}

type mockQueue struct {
	enqueueFn func(ctx context.Context, tradeID string) error
	enqueued  []string
}

func (m *mockQueue) EnqueueReconciliation(ctx context.Context, tradeID string) error {
	if m.enqueueFn != nil {
		if err := m.enqueueFn(ctx, tradeID); err != nil {
			return err
		}
	}
	m.enqueued = append(m.enqueued, tradeID)
	return nil
}

func sampleTrade() model.TradeRecord {
	return model.TradeRecord{
		TradeID:      "T123456",
		SourceSystem: model.SourceSystemA,
		Instrument:   "AAPL",
		Quantity:     decimal.NewFromInt(100),
		Price:        decimal.RequireFromString("150.75"),
		TradeDate:    time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		Counterparty: "BROKER_A",
		RawPayload:   []byte(`{"tradeId":"T123456"}`),
	}
}

func TestSubmit_StoresAndEnqueues(t *testing.T) {
	st := &mockStore{}
	q := &mockQueue{}
	svc := NewService(st, q, zap.NewNop())

	stored, err := svc.Submit(context.Background(), sampleTrade())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotZero(t, stored.ID)
	require.Len(t, st.upserts, 1)
	assert.Equal(t, []string{"T123456"}, q.enqueued)
}

func TestSubmit_StoreFailure(t *testing.T) {
	st := &mockStore{upsertFn: func(context.Context, *model.TradeRecord) error {
		return fmt.Errorf("db down")
	}}
	q := &mockQueue{}
	svc := NewService(st, q, zap.NewNop())

	_, err := svc.Submit(context.Background(), sampleTrade())
	require.Error(t, err)
	assert.Empty(t, q.enqueued, "no task should be enqueued when the store write fails")
}

func TestSubmit_EnqueueFailureStillStores(t *testing.T) {
	st := &mockStore{}
	q := &mockQueue{enqueueFn: func(context.Context, string) error {
		return fmt.Errorf("broker down")
	}}
	svc := NewService(st, q, zap.NewNop())

	stored, err := svc.Submit(context.Background(), sampleTrade())
	require.Error(t, err)
	require.NotNil(t, stored, "the stored trade is returned even when the trigger fails")
	require.Len(t, st.upserts, 1)
}

func TestTrigger(t *testing.T) {
	q := &mockQueue{}
	svc := NewService(&mockStore{}, q, zap.NewNop())

	require.NoError(t, svc.Trigger(context.Background(), "T9"))
	assert.Equal(t, []string{"T9"}, q.enqueued)
}
