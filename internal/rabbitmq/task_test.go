package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTask_JSONPayload(t *testing.T) {
	task := Task{
		TaskID:     uuid.New(),
		TradeID:    "T123456",
		EnqueuedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(task)
	require.NoError(t, err)

	got, err := parseTask(body)
	require.NoError(t, err)
	assert.Equal(t, "T123456", got.TradeID)
	assert.Equal(t, task.TaskID, got.TaskID)
}

func TestParseTask_BareTradeID(t *testing.T) {
	got, err := parseTask([]byte("T123456"))
	require.NoError(t, err)
	assert.Equal(t, "T123456", got.TradeID)
}

func TestParseTask_QuotedTradeID(t *testing.T) {
	got, err := parseTask([]byte(`"T123456"`))
	require.NoError(t, err)
	assert.Equal(t, "T123456", got.TradeID)
}

func TestParseTask_Malformed(t *testing.T) {
	for _, body := range []string{"", "   ", `{"task_id": "nope"}`, `{"trade_id": ""}`} {
		_, err := parseTask([]byte(body))
		assert.Error(t, err, "body %q should be rejected", body)
	}
}
