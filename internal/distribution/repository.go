package distribution

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llauna/administracionFincas-sub000/internal/invoices"
	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/platform/db"
	"github.com/llauna/administracionFincas-sub000/internal/properties"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

const idempotencyModule = "distribution"

// Repository opens the transaction a distribution runs in.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository defines operations within a transaction.
type TxRepository interface {
	invoices.GroupDeleter
	ClaimIdempotencyKey(ctx context.Context, key string) error
	CommunityExists(ctx context.Context, communityID uuid.UUID) (bool, error)
	ListProperties(ctx context.Context, communityID uuid.UUID) ([]properties.Property, error)
	InsertLines(ctx context.Context, lines []movements.Movement) (int64, error)
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// WithTx runs fn in a read-committed transaction. New lines never conflict with
// concurrent distributions, so no stronger isolation is needed.
func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{TxDeleter: invoices.TxDeleter{Q: tx}, q: tx})
	})
}

type pgTxRepository struct {
	invoices.TxDeleter
	q pgx.Tx
}

func (r *pgTxRepository) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if err := shared.ClaimIdempotencyKey(ctx, r.q, key, idempotencyModule); err != nil {
		return db.Wrap("claim idempotency key", err)
	}
	return nil
}

func (r *pgTxRepository) CommunityExists(ctx context.Context, communityID uuid.UUID) (bool, error) {
	return properties.CommunityExists(ctx, r.q, communityID)
}

func (r *pgTxRepository) ListProperties(ctx context.Context, communityID uuid.UUID) ([]properties.Property, error) {
	return properties.ListByCommunity(ctx, r.q, communityID)
}

func (r *pgTxRepository) InsertLines(ctx context.Context, lines []movements.Movement) (int64, error) {
	return movements.InsertBatch(ctx, r.q, lines)
}
