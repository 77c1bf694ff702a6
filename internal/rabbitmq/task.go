package rabbitmq

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is the payload carried on the reconciliation task queue.
type Task struct {
	TaskID     uuid.UUID `json:"task_id"`
	TradeID    string    `json:"trade_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// parseTask decodes a task message body. Bare trade identifier bodies are
// accepted for compatibility with manual publishes from the broker console.
func parseTask(body []byte) (Task, error) {
	var task Task
	if err := json.Unmarshal(body, &task); err == nil && task.TradeID != "" {
		return task, nil
	}

	tradeID := strings.TrimSpace(strings.Trim(string(body), `"`))
	if tradeID == "" || strings.ContainsAny(tradeID, "{}[]") {
		return Task{}, fmt.Errorf("malformed task payload: %q", string(body))
	}
	return Task{TradeID: tradeID}, nil
}
