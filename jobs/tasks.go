package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueTreasury carries balance integrity checks.
	QueueTreasury = "treasury"
	// QueueMaintenance carries housekeeping such as key cleanup.
	QueueMaintenance = "maintenance"
	// TaskTreasuryIntegrity compares account balances with the ledger.
	TaskTreasuryIntegrity = "treasury:integrity"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// Queues lists every queue the worker serves, with its weight. Integrity checks are
// served before housekeeping when both are pending.
var Queues = map[string]int{
	QueueTreasury:    3,
	QueueMaintenance: 1,
}

// QueueNames returns the queue names in priority order.
func QueueNames() []string {
	return []string{QueueTreasury, QueueMaintenance}
}

// TaskOptions returns the queue, retry and timeout settings for a task type.
func TaskOptions(taskType string) []asynq.Option {
	switch taskType {
	case TaskTreasuryIntegrity:
		return []asynq.Option{asynq.Queue(QueueTreasury), asynq.MaxRetry(3), asynq.Timeout(5 * time.Minute)}
	case TaskIdempotencyCleanup:
		return []asynq.Option{asynq.Queue(QueueMaintenance), asynq.MaxRetry(1), asynq.Timeout(2 * time.Minute)}
	default:
		return []asynq.Option{asynq.Queue(QueueMaintenance)}
	}
}

// TreasuryIntegrityPayload describes why a check was requested.
type TreasuryIntegrityPayload struct {
	Trigger string `json:"trigger"`
}

// NewTreasuryIntegrityTask constructs an integrity check task.
func NewTreasuryIntegrityTask(trigger string) (*asynq.Task, error) {
	data, err := json.Marshal(TreasuryIntegrityPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTreasuryIntegrity, data), nil
}

// IdempotencyCleanupPayload sets how long keys are retained.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
