package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo        Repository
	audit       AuditPort
	defaultRate decimal.Decimal
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo Repository, audit AuditPort, defaultRate decimal.Decimal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, defaultRate: defaultRate, logger: logger, now: time.Now}
}

// GroupByProvider lists the supplier's lines collapsed by raw concept, newest first.
func (s *Service) GroupByProvider(ctx context.Context, actor shared.Actor, supplierID uuid.UUID) ([]ProviderGroup, error) {
	if err := actor.RequireIdentified("list supplier invoices"); err != nil {
		return nil, err
	}
	if supplierID == uuid.Nil {
		return nil, fmt.Errorf("%w: supplier id required", shared.ErrValidation)
	}
	exists, err := s.repo.SupplierExists(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: supplier %s", shared.ErrNotFound, supplierID)
	}
	lines, err := s.repo.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return GroupByConcept(lines), nil
}

// GroupByCommunityAndYear rebuilds the community's expense invoices for one calendar year.
func (s *Service) GroupByCommunityAndYear(ctx context.Context, actor shared.Actor, communityID uuid.UUID, year int) ([]InvoiceGroup, error) {
	if err := actor.RequireIdentified("list community invoices"); err != nil {
		return nil, err
	}
	if communityID == uuid.Nil {
		return nil, fmt.Errorf("%w: community id required", shared.ErrValidation)
	}
	if year < 1900 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d out of range", shared.ErrValidation, year)
	}
	exists, err := s.repo.CommunityExists(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: community %s", shared.ErrNotFound, communityID)
	}
	lines, err := s.repo.ListByCommunityYear(ctx, communityID, year)
	if err != nil {
		return nil, err
	}
	return GroupByInvoice(lines, s.defaultRate), nil
}

// Export returns the flat projection of the community's invoices for year.
func (s *Service) Export(ctx context.Context, actor shared.Actor, communityID uuid.UUID, year int) ([]ExportRow, error) {
	groups, err := s.GroupByCommunityAndYear(ctx, actor, communityID, year)
	if err != nil {
		return nil, err
	}
	return ExportRows(groups), nil
}

// DeleteInvoiceGroup removes an invoice group by key, see DeleteGroup for the match rules.
func (s *Service) DeleteInvoiceGroup(ctx context.Context, actor shared.Actor, in DeleteInput) (DeleteResult, error) {
	if err := actor.RequireTreasury("delete invoice group"); err != nil {
		return DeleteResult{}, err
	}
	var result DeleteResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, d GroupDeleter) error {
		res, err := DeleteGroup(ctx, d, in)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	if s.audit != nil && result.Deleted > 0 {
		meta := map[string]any{"deleted": result.Deleted, "fallback": result.Fallback}
		if in.SupplierID != nil {
			meta["supplier_id"] = in.SupplierID.String()
		}
		if in.CommunityID != nil {
			meta["community_id"] = in.CommunityID.String()
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "invoice_group.delete",
			Entity:   "invoice_group",
			EntityID: in.Key,
			Meta:     meta,
			At:       s.now(),
		}); err != nil {
			s.logger.Error("audit invoice group delete", slog.Any("error", err), slog.String("key", in.Key))
		}
	}
	return result, nil
}
