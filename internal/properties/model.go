package properties

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Property is a unit within a community with its share of common expenses.
type Property struct {
	ID          uuid.UUID       `json:"id"`
	CommunityID uuid.UUID       `json:"communityId"`
	OwnerID     *uuid.UUID      `json:"ownerId,omitempty"`
	Label       string          `json:"label"`
	Coefficient decimal.Decimal `json:"coefficient"`
}

// CoefficientTotal sums the coefficients. Communities are expected to total 100
// but nothing enforces it.
func CoefficientTotal(props []Property) decimal.Decimal {
	total := decimal.Zero
	for _, p := range props {
		total = total.Add(p.Coefficient)
	}
	return total
}
