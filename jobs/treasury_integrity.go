package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/llauna/administracionFincas-sub000/internal/jobs"
	"github.com/llauna/administracionFincas-sub000/internal/treasury"
)

// IntegrityChecker reports accounts whose balance drifted from the ledger.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context) ([]treasury.Drift, error)
}

// TreasuryIntegrityJob runs the balance integrity check.
type TreasuryIntegrityJob struct {
	Checker IntegrityChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewTreasuryIntegrityJob initialises the integrity handler.
func NewTreasuryIntegrityJob(checker IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *TreasuryIntegrityJob {
	return &TreasuryIntegrityJob{Checker: checker, Logger: logger, Metrics: metrics}
}

// Handle executes the check. Drift is reported through logs and the drift gauge;
// it does not fail the task.
func (j *TreasuryIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Checker == nil {
		return errors.New("treasury integrity: handler not configured")
	}
	var payload TreasuryIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Trigger == "" {
		payload.Trigger = "schedule"
	}

	start := time.Now()
	tracker := j.Metrics.Track("treasury_integrity")
	logger := j.logger().With(slog.String("trigger", payload.Trigger))
	logger.Info("starting treasury integrity check")

	drifts, err := j.Checker.CheckIntegrity(ctx)
	if err != nil {
		logger.Error("treasury integrity check failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.SetDriftedAccounts(len(drifts))
	logger.Info("completed treasury integrity check",
		slog.Int("drifted_accounts", len(drifts)),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *TreasuryIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
