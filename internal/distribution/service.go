package distribution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/llauna/administracionFincas-sub000/internal/invoices"
	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Recorder receives distribution metrics.
type Recorder interface {
	ObserveDistribution(lines int, residual float64)
}

// Service splits invoices across properties and rebuilds earlier splits.
type Service struct {
	repo    Repository
	audit   AuditPort
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the distribution engine. audit and metrics may be nil.
func NewService(repo Repository, audit AuditPort, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// DistributeExpense persists one Gasto line per property of the community, all in one
// transaction. A community without properties fails with ErrNoPropertiesInCommunity.
func (s *Service) DistributeExpense(ctx context.Context, actor shared.Actor, in DistributeInput) (Result, error) {
	if err := actor.RequireTreasury("distribute expense"); err != nil {
		return Result{}, err
	}
	if err := validateDistribution(in); err != nil {
		return Result{}, err
	}
	var result Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
			if err := tx.ClaimIdempotencyKey(ctx, key); err != nil {
				return err
			}
		}
		res, err := s.distribute(ctx, tx, in)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.afterDistribution(ctx, actor, "distribution.create", in.Description, result, nil)
	return result, nil
}

// RecalculateDistribution deletes the community's invoice group identified by in.Key and
// distributes in.TotalAmount again under the same description. Both steps share one
// transaction; a failure in either leaves the original lines untouched.
func (s *Service) RecalculateDistribution(ctx context.Context, actor shared.Actor, in RecalculateInput) (RecalculateResult, error) {
	if err := actor.RequireTreasury("recalculate distribution"); err != nil {
		return RecalculateResult{}, err
	}
	dist := DistributeInput{
		CommunityID:    in.CommunityID,
		TotalAmount:    in.TotalAmount,
		Description:    strings.TrimSpace(in.Key),
		CounterpartyID: in.SupplierID,
	}
	if err := validateDistribution(dist); err != nil {
		return RecalculateResult{}, err
	}
	var result RecalculateResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		removed, err := invoices.DeleteGroup(ctx, tx, invoices.DeleteInput{
			Key:         dist.Description,
			SupplierID:  in.SupplierID,
			CommunityID: &dist.CommunityID,
		})
		if err != nil {
			return fmt.Errorf("delete previous distribution: %w", err)
		}
		distributed, err := s.distribute(ctx, tx, dist)
		if err != nil {
			return err
		}
		result = RecalculateResult{Removed: removed, Distributed: distributed}
		return nil
	})
	if err != nil {
		return RecalculateResult{}, err
	}
	s.afterDistribution(ctx, actor, "distribution.recalculate", dist.Description, result.Distributed, map[string]any{
		"removed":  result.Removed.Deleted,
		"fallback": result.Removed.Fallback,
	})
	return result, nil
}

func validateDistribution(in DistributeInput) error {
	if in.CommunityID == uuid.Nil {
		return fmt.Errorf("%w: community id required", shared.ErrValidation)
	}
	if !in.TotalAmount.IsPositive() {
		return fmt.Errorf("%w: total amount must be greater than zero", shared.ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description required", shared.ErrValidation)
	}
	return nil
}

func (s *Service) distribute(ctx context.Context, tx TxRepository, in DistributeInput) (Result, error) {
	exists, err := tx.CommunityExists(ctx, in.CommunityID)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, fmt.Errorf("%w: community %s", shared.ErrNotFound, in.CommunityID)
	}
	props, err := tx.ListProperties(ctx, in.CommunityID)
	if err != nil {
		return Result{}, err
	}
	if len(props) == 0 {
		return Result{}, fmt.Errorf("%w: community %s", shared.ErrNoPropertiesInCommunity, in.CommunityID)
	}

	description := strings.TrimSpace(in.Description)
	amounts, sum := Split(in.TotalAmount, props)
	batchID := uuid.New()
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	communityID := in.CommunityID

	lines := make([]movements.Movement, len(props))
	for i, p := range props {
		propertyID := p.ID
		lines[i] = movements.Movement{
			ID:          uuid.New(),
			BatchID:     &batchID,
			Date:        today,
			Description: fmt.Sprintf("%s (%s)", description, p.Label),
			Concept:     description,
			Amount:      amounts[i],
			Kind:        movements.KindGasto,
			SupplierID:  in.CounterpartyID,
			CommunityID: &communityID,
			PropertyID:  &propertyID,
			OwnerID:     p.OwnerID,
			CreatedAt:   now,
		}
	}
	if _, err := tx.InsertLines(ctx, lines); err != nil {
		return Result{}, err
	}
	return Result{
		Count:    len(lines),
		BatchID:  batchID,
		Sum:      sum,
		Residual: in.TotalAmount.Sub(sum),
		Lines:    lines,
	}, nil
}

func (s *Service) afterDistribution(ctx context.Context, actor shared.Actor, action, description string, res Result, extra map[string]any) {
	if s.metrics != nil {
		s.metrics.ObserveDistribution(res.Count, res.Residual.InexactFloat64())
	}
	if !res.Residual.IsZero() {
		s.logger.Warn("distribution residual", slog.String("batch_id", res.BatchID.String()), slog.String("residual", res.Residual.String()))
	}
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"description": description,
		"lines":       res.Count,
		"sum":         res.Sum.String(),
		"residual":    res.Residual.String(),
	}
	for k, v := range extra {
		meta[k] = v
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "distribution",
		EntityID: res.BatchID.String(),
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Error("audit distribution", slog.Any("error", err))
	}
}
