package properties

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llauna/administracionFincas-sub000/internal/platform/db"
)

// Repository reads communities and their properties.
type Repository interface {
	CommunityExists(ctx context.Context, communityID uuid.UUID) (bool, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]Property, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) CommunityExists(ctx context.Context, communityID uuid.UUID) (bool, error) {
	return CommunityExists(ctx, r.db, communityID)
}

func (r *repository) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]Property, error) {
	return ListByCommunity(ctx, r.db, communityID)
}

// CommunityExists reports whether the community row exists. q may be a pool or a transaction.
func CommunityExists(ctx context.Context, q db.DBTX, communityID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM communities WHERE id = $1)`, communityID).Scan(&exists)
	if err != nil {
		return false, db.Wrap("community exists", err)
	}
	return exists, nil
}

// ListByCommunity loads the properties of a community ordered by label.
func ListByCommunity(ctx context.Context, q db.DBTX, communityID uuid.UUID) ([]Property, error) {
	rows, err := q.Query(ctx, `SELECT id, community_id, owner_id, label, coefficient
FROM properties WHERE community_id = $1 ORDER BY label ASC, id ASC`, communityID)
	if err != nil {
		return nil, db.Wrap("list properties", err)
	}
	defer rows.Close()
	props := []Property{}
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.ID, &p.CommunityID, &p.OwnerID, &p.Label, &p.Coefficient); err != nil {
			return nil, db.Wrap("scan property", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap("list properties", err)
	}
	return props, nil
}
