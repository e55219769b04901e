package movements

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

var maxVATRate = decimal.NewFromInt(100)

// Kind is the money direction of a ledger line.
type Kind string

const (
	KindIngreso Kind = "Ingreso"
	KindGasto   Kind = "Gasto"
)

// ParseKind validates a raw movement kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindIngreso, KindGasto:
		return Kind(raw), nil
	default:
		return "", fmt.Errorf("%w: tipo must be %s or %s", shared.ErrValidation, KindIngreso, KindGasto)
	}
}

// Delta returns the signed balance change for amount.
func (k Kind) Delta(amount decimal.Decimal) decimal.Decimal {
	if k == KindIngreso {
		return amount
	}
	return amount.Neg()
}

// Movement is one persisted ledger line. Amount is always positive; direction is Kind.
// Concept holds the description exactly as the caller supplied it, while Description
// may carry a per-property suffix.
type Movement struct {
	ID            uuid.UUID       `json:"id"`
	BatchID       *uuid.UUID      `json:"batchId,omitempty"`
	Date          time.Time       `json:"fecha"`
	Description   string          `json:"descripcion"`
	Concept       string          `json:"concepto"`
	Amount        decimal.Decimal `json:"importe"`
	Kind          Kind            `json:"tipo"`
	Base          decimal.Decimal `json:"baseImponible"`
	VATRate       decimal.Decimal `json:"tipoIva"`
	VATQuota      decimal.Decimal `json:"cuotaIva"`
	PaymentMethod string          `json:"metodoPago,omitempty"`
	BankAccountID *uuid.UUID      `json:"cuentaBancariaId,omitempty"`
	CashAccountID *uuid.UUID      `json:"cajaId,omitempty"`
	SupplierID    *uuid.UUID      `json:"proveedorId,omitempty"`
	CommunityID   *uuid.UUID      `json:"comunidadId,omitempty"`
	PropertyID    *uuid.UUID      `json:"propiedadId,omitempty"`
	OwnerID       *uuid.UUID      `json:"propietarioId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Signed returns the amount with the sign implied by Kind.
func (m Movement) Signed() decimal.Decimal {
	return m.Kind.Delta(m.Amount)
}

// Validate checks the invariants every stored line must satisfy.
func (m Movement) Validate() error {
	if m.ID == uuid.Nil {
		return fmt.Errorf("%w: movement id required", shared.ErrValidation)
	}
	if _, err := ParseKind(string(m.Kind)); err != nil {
		return err
	}
	if m.Amount.IsNegative() {
		return fmt.Errorf("%w: movement amount must not be negative", shared.ErrValidation)
	}
	if m.BankAccountID != nil && m.CashAccountID != nil {
		return fmt.Errorf("%w: movement may reference a bank account or a cash account, not both", shared.ErrValidation)
	}
	if m.Date.IsZero() {
		return fmt.Errorf("%w: movement date required", shared.ErrValidation)
	}
	return ValidateVAT(m.Base, m.VATRate, m.VATQuota)
}

// ValidateVAT checks the optional tax figures of a line: the rate lies in [0, 100)
// and base and quota are not negative.
func ValidateVAT(base, rate, quota decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(maxVATRate) {
		return fmt.Errorf("%w: tipoIva must be between 0 and 100", shared.ErrValidation)
	}
	if base.IsNegative() || quota.IsNegative() {
		return fmt.Errorf("%w: baseImponible and cuotaIva must not be negative", shared.ErrValidation)
	}
	return nil
}

// UUIDPtr returns nil for uuid.Nil and a pointer otherwise.
func UUIDPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
