package movements

import (
	"strings"

	"github.com/google/uuid"
)

// PaymentMethodTransfer tags both legs of a treasury transfer. Those lines move money
// between accounts and never belong to an invoice.
const PaymentMethodTransfer = "traspaso"

// DeleteScope narrows a concept delete. A nil field matches every line.
type DeleteScope struct {
	SupplierID  *uuid.UUID
	CommunityID *uuid.UUID
}

// Matches reports whether m may be removed by a concept delete under s. It is the
// Go form of the WHERE clause shared by DeleteByConcept and DeleteByConceptPrefix.
func (s DeleteScope) Matches(m Movement) bool {
	if m.BankAccountID != nil || m.CashAccountID != nil {
		return false
	}
	return sameID(s.SupplierID, m.SupplierID) && sameID(s.CommunityID, m.CommunityID)
}

// MatchesConcept reports an exact concept match.
func MatchesConcept(m Movement, concept string) bool {
	return m.Concept == concept
}

// MatchesConceptPrefix reports a case-insensitive starts-with match on the concept.
func MatchesConceptPrefix(m Movement, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(m.Concept), strings.ToLower(prefix))
}

// IsTransfer reports whether m is one leg of a transfer.
func (m Movement) IsTransfer() bool {
	return m.PaymentMethod == PaymentMethodTransfer
}

func sameID(want, got *uuid.UUID) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}
