package invoices

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/platform/db"
	"github.com/llauna/administracionFincas-sub000/internal/properties"
)

// Repository exposes the reads behind the invoice views.
type Repository interface {
	SupplierExists(ctx context.Context, supplierID uuid.UUID) (bool, error)
	CommunityExists(ctx context.Context, communityID uuid.UUID) (bool, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]movements.Movement, error)
	ListByCommunityYear(ctx context.Context, communityID uuid.UUID, year int) ([]movements.Movement, error)
	WithTx(ctx context.Context, fn func(context.Context, GroupDeleter) error) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) SupplierExists(ctx context.Context, supplierID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1)`, supplierID).Scan(&exists); err != nil {
		return false, db.Wrap("supplier exists", err)
	}
	return exists, nil
}

func (r *repository) CommunityExists(ctx context.Context, communityID uuid.UUID) (bool, error) {
	return properties.CommunityExists(ctx, r.db, communityID)
}

func (r *repository) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]movements.Movement, error) {
	return movements.ListBySupplier(ctx, r.db, supplierID)
}

func (r *repository) ListByCommunityYear(ctx context.Context, communityID uuid.UUID, year int) ([]movements.Movement, error) {
	return movements.ListByCommunityYear(ctx, r.db, communityID, year, movements.KindGasto)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, GroupDeleter) error) error {
	return db.WithTxOptions(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, TxDeleter{Q: tx})
	})
}

// TxDeleter adapts a pool or transaction to GroupDeleter.
type TxDeleter struct {
	Q db.DBTX
}

func (d TxDeleter) DeleteByConcept(ctx context.Context, concept string, scope movements.DeleteScope) (int64, error) {
	return movements.DeleteByConcept(ctx, d.Q, concept, scope)
}

func (d TxDeleter) DeleteByConceptPrefix(ctx context.Context, prefix string, scope movements.DeleteScope) (int64, error) {
	return movements.DeleteByConceptPrefix(ctx, d.Q, prefix, scope)
}
