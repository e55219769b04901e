package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderGroup collects a supplier's lines sharing the same raw concept.
type ProviderGroup struct {
	Key   string          `json:"_id"`
	Date  time.Time       `json:"fecha"`
	Total decimal.Decimal `json:"importeTotal"`
	IDs   []uuid.UUID     `json:"ids"`
}

// InvoiceGroup reconstructs one invoice from its distributed lines.
type InvoiceGroup struct {
	Key        string          `json:"key"`
	Date       time.Time       `json:"fecha"`
	Concept    string          `json:"concepto"`
	SupplierID *uuid.UUID      `json:"proveedorId,omitempty"`
	Total      decimal.Decimal `json:"importeTotal"`
	Base       decimal.Decimal `json:"baseImponible"`
	VATRate    decimal.Decimal `json:"tipoIva"`
	VATQuota   decimal.Decimal `json:"cuotaIva"`
	VATDerived bool            `json:"ivaCalculado"`
	LineIDs    []uuid.UUID     `json:"ids"`
}

// DeleteInput identifies an invoice group to remove. SupplierID and CommunityID narrow the
// match when set.
type DeleteInput struct {
	Key         string
	SupplierID  *uuid.UUID
	CommunityID *uuid.UUID
}

// DeleteResult reports how many lines were removed and through which path.
type DeleteResult struct {
	Deleted  int64 `json:"deleted"`
	Fallback bool  `json:"fallback"`
}

// ExportRow is the flat tabular projection of an invoice group.
type ExportRow struct {
	Date     time.Time
	Concept  string
	Base     decimal.Decimal
	VATRate  decimal.Decimal
	VATQuota decimal.Decimal
	Total    decimal.Decimal
}
