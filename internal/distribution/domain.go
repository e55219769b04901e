package distribution

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/invoices"
	"github.com/llauna/administracionFincas-sub000/internal/movements"
)

// DistributeInput describes one invoice to split across a community's properties.
type DistributeInput struct {
	CommunityID    uuid.UUID
	TotalAmount    decimal.Decimal
	Description    string
	CounterpartyID *uuid.UUID
	IdempotencyKey string
}

// Result summarises a persisted distribution.
type Result struct {
	Count    int                  `json:"count"`
	BatchID  uuid.UUID            `json:"batchId"`
	Sum      decimal.Decimal      `json:"sum"`
	Residual decimal.Decimal      `json:"residual"`
	Lines    []movements.Movement `json:"-"`
}

// RecalculateInput identifies a previous distribution and the total to split again.
type RecalculateInput struct {
	Key         string
	SupplierID  *uuid.UUID
	CommunityID uuid.UUID
	TotalAmount decimal.Decimal
}

// RecalculateResult reports both halves of a recalculation.
type RecalculateResult struct {
	Removed     invoices.DeleteResult `json:"removed"`
	Distributed Result                `json:"distributed"`
}
