package treasury

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

// AccountKind distinguishes bank accounts from cash boxes.
type AccountKind string

const (
	KindBank AccountKind = "bank"
	KindCash AccountKind = "cash"
)

// ParseAccountKind validates a raw account kind.
func ParseAccountKind(raw string) (AccountKind, error) {
	switch AccountKind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindBank:
		return KindBank, nil
	case KindCash:
		return KindCash, nil
	default:
		return "", fmt.Errorf("%w: account kind must be %s or %s", shared.ErrValidation, KindBank, KindCash)
	}
}

// AccountRef addresses one account row.
type AccountRef struct {
	Kind AccountKind `json:"kind"`
	ID   uuid.UUID   `json:"id"`
}

func (r AccountRef) validate() error {
	if _, err := ParseAccountKind(string(r.Kind)); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: account id required", shared.ErrValidation)
	}
	return nil
}

// less orders refs by (kind, id) so concurrent transfers lock rows in the same order.
func (r AccountRef) less(o AccountRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.ID.String() < o.ID.String()
}

// Account is a bank account or cash box with its running balance.
// CurrentBalance may go negative.
type Account struct {
	ID               uuid.UUID       `json:"id"`
	Kind             AccountKind     `json:"tipo"`
	Name             string          `json:"nombre"`
	Code             string          `json:"codigo"`
	InitialBalance   decimal.Decimal `json:"saldoInicial"`
	CurrentBalance   decimal.Decimal `json:"saldoActual"`
	CommunityID      *uuid.UUID      `json:"comunidadId,omitempty"`
	IsAdministration bool            `json:"esAdministracion"`
	Active           bool            `json:"activo"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Ref returns the account's address.
func (a Account) Ref() AccountRef {
	return AccountRef{Kind: a.Kind, ID: a.ID}
}

// CreateAccountInput registers a new account. InitialBalance is only honoured for bank accounts.
type CreateAccountInput struct {
	Kind           AccountKind
	Name           string
	Code           string
	InitialBalance decimal.Decimal
	CommunityID    *uuid.UUID
}

// DeltaInput applies a signed change derived from MovementKind. Reason is stored
// with the adjustment row that keeps the change traceable.
type DeltaInput struct {
	Account      AccountRef
	Amount       decimal.Decimal
	MovementKind movements.Kind
	Reason       string
}

// MovementInput registers one ledger line against one account.
type MovementInput struct {
	Account       AccountRef
	Amount        decimal.Decimal
	MovementKind  movements.Kind
	Description   string
	Date          time.Time
	PaymentMethod string
	SupplierID    *uuid.UUID
	CommunityID   *uuid.UUID
	Base          decimal.Decimal
	VATRate       decimal.Decimal
	VATQuota      decimal.Decimal
}

// TransferInput moves Amount from Source to Dest.
type TransferInput struct {
	Source  AccountRef
	Dest    AccountRef
	Amount  decimal.Decimal
	Concept string
}

// TransferResult holds both post-transfer balances and the two ledger lines written.
type TransferResult struct {
	SourceBalance decimal.Decimal `json:"saldoOrigen"`
	DestBalance   decimal.Decimal `json:"saldoDestino"`
	LineIDs       []uuid.UUID     `json:"ids"`
}

// AdjustInput overwrites an account balance.
type AdjustInput struct {
	Account    AccountRef
	NewBalance decimal.Decimal
	Reason     string
}

// Adjustment is the audit row kept for every direct balance overwrite.
type Adjustment struct {
	ID       uuid.UUID       `json:"id"`
	Account  AccountRef      `json:"account"`
	Previous decimal.Decimal `json:"saldoAnterior"`
	New      decimal.Decimal `json:"saldoNuevo"`
	Reason   string          `json:"motivo"`
	ActorID  *uuid.UUID      `json:"actorId,omitempty"`
	At       time.Time       `json:"fecha"`
}

// Delta returns New minus Previous.
func (a Adjustment) Delta() decimal.Decimal {
	return a.New.Sub(a.Previous)
}

// ScopeKind selects which accounts a summary covers.
type ScopeKind string

const (
	ScopeGlobal         ScopeKind = "global"
	ScopeCommunity      ScopeKind = "community"
	ScopeAdministration ScopeKind = "administracion"
)

// Scope filters treasury summaries.
type Scope struct {
	Kind        ScopeKind
	CommunityID uuid.UUID
}

// ParseScope reads the comunidadId query value: empty is global, "administracion"
// selects office accounts, anything else must be a community id.
func ParseScope(raw string) (Scope, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "all", string(ScopeGlobal):
		return Scope{Kind: ScopeGlobal}, nil
	case string(ScopeAdministration), "administration":
		return Scope{Kind: ScopeAdministration}, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return Scope{}, fmt.Errorf("%w: invalid comunidadId %q", shared.ErrValidation, raw)
	}
	return Scope{Kind: ScopeCommunity, CommunityID: id}, nil
}

// CacheKey returns the key parts that identify the scope in the summary cache.
func (s Scope) CacheKey() []string {
	if s.Kind == ScopeCommunity {
		return []string{"summary", string(s.Kind), s.CommunityID.String()}
	}
	return []string{"summary", string(s.Kind)}
}

// Totals are the aggregate balances of a summary.
type Totals struct {
	Banks  decimal.Decimal `json:"bancos"`
	Cash   decimal.Decimal `json:"cajas"`
	Global decimal.Decimal `json:"global"`
}

// Summary lists the accounts in scope with their totals.
type Summary struct {
	Banks  []Account `json:"bancos"`
	Cash   []Account `json:"cajas"`
	Totals Totals    `json:"totales"`
}

// Summarise computes the totals for the given accounts.
func Summarise(banks, cash []Account) Summary {
	if banks == nil {
		banks = []Account{}
	}
	if cash == nil {
		cash = []Account{}
	}
	totals := Totals{Banks: decimal.Zero, Cash: decimal.Zero}
	for _, a := range banks {
		totals.Banks = totals.Banks.Add(a.CurrentBalance)
	}
	for _, a := range cash {
		totals.Cash = totals.Cash.Add(a.CurrentBalance)
	}
	totals.Global = totals.Banks.Add(totals.Cash)
	return Summary{Banks: banks, Cash: cash, Totals: totals}
}

// Drift reports an account whose stored balance differs from the ledger.
type Drift struct {
	Account  AccountRef      `json:"account"`
	Name     string          `json:"nombre"`
	Stored   decimal.Decimal `json:"saldoActual"`
	Expected decimal.Decimal `json:"saldoEsperado"`
}

// Difference returns Stored minus Expected.
func (d Drift) Difference() decimal.Decimal {
	return d.Stored.Sub(d.Expected)
}

// NormalizeIBAN strips spaces and upper-cases the code.
func NormalizeIBAN(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}
