package treasury

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

// SummaryCache is the versioned JSON cache behind Summary.
type SummaryCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context) error
}

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Recorder receives balance mutation metrics.
type Recorder interface {
	ObserveBalanceMutation(op string)
}

// Service owns every write to account balances. Each operation runs in a single
// transaction that also writes the matching ledger or adjustment rows.
type Service struct {
	repo    Repository
	cache   SummaryCache
	audit   AuditPort
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds the treasury ledger. cache, audit and metrics may be nil.
func NewService(repo Repository, cache SummaryCache, audit AuditPort, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// CreateAccount registers a bank account or cash box. Bank codes are IBANs and must be unique.
func (s *Service) CreateAccount(ctx context.Context, actor shared.Actor, in CreateAccountInput) (Account, error) {
	if err := actor.RequireTreasury("create account"); err != nil {
		return Account{}, err
	}
	kind, err := ParseAccountKind(string(in.Kind))
	if err != nil {
		return Account{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Account{}, fmt.Errorf("%w: account name required", shared.ErrValidation)
	}
	code := strings.TrimSpace(in.Code)
	if kind == KindBank {
		code = NormalizeIBAN(code)
	}
	if code == "" {
		return Account{}, fmt.Errorf("%w: account code required", shared.ErrValidation)
	}
	account := Account{
		ID:               uuid.New(),
		Kind:             kind,
		Name:             name,
		Code:             code,
		InitialBalance:   decimal.Zero,
		CurrentBalance:   decimal.Zero,
		CommunityID:      in.CommunityID,
		IsAdministration: in.CommunityID == nil,
		Active:           true,
		CreatedAt:        s.now().UTC(),
	}
	if kind == KindBank {
		account.InitialBalance = in.InitialBalance
		account.CurrentBalance = in.InitialBalance
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return Account{}, err
	}
	s.invalidate(ctx, "create_account")
	return account, nil
}

// ApplyBalanceDelta adds +Amount for Ingreso or -Amount for Gasto to the account
// balance with an atomic increment. The change is recorded as an adjustment row.
func (s *Service) ApplyBalanceDelta(ctx context.Context, actor shared.Actor, in DeltaInput) (decimal.Decimal, error) {
	if err := actor.RequireTreasury("apply balance delta"); err != nil {
		return decimal.Zero, err
	}
	if err := in.Account.validate(); err != nil {
		return decimal.Zero, err
	}
	if _, err := movements.ParseKind(string(in.MovementKind)); err != nil {
		return decimal.Zero, err
	}
	if err := validateAmount(in.Amount); err != nil {
		return decimal.Zero, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = fmt.Sprintf("%s %s", in.MovementKind, in.Amount.StringFixed(2))
	}
	delta := in.MovementKind.Delta(in.Amount)
	var balance decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		updated, err := tx.IncrementBalance(ctx, in.Account, delta)
		if err != nil {
			return err
		}
		balance = updated
		return tx.InsertAdjustment(ctx, Adjustment{
			ID:       uuid.New(),
			Account:  in.Account,
			Previous: updated.Sub(delta),
			New:      updated,
			Reason:   reason,
			ActorID:  movements.UUIDPtr(actor.UserID),
			At:       s.now().UTC(),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	s.invalidate(ctx, "delta")
	return balance, nil
}

// RegisterMovement writes one ledger line bound to the account and applies its
// delta in the same transaction.
func (s *Service) RegisterMovement(ctx context.Context, actor shared.Actor, in MovementInput) (movements.Movement, error) {
	if err := actor.RequireTreasury("register movement"); err != nil {
		return movements.Movement{}, err
	}
	if err := in.Account.validate(); err != nil {
		return movements.Movement{}, err
	}
	if err := validateAmount(in.Amount); err != nil {
		return movements.Movement{}, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return movements.Movement{}, fmt.Errorf("%w: description required", shared.ErrValidation)
	}
	if err := movements.ValidateVAT(in.Base, in.VATRate, in.VATQuota); err != nil {
		return movements.Movement{}, err
	}
	paymentMethod := strings.TrimSpace(in.PaymentMethod)
	if strings.EqualFold(paymentMethod, movements.PaymentMethodTransfer) {
		return movements.Movement{}, fmt.Errorf("%w: metodoPago %q is reserved for transfers", shared.ErrValidation, paymentMethod)
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	line := movements.Movement{
		ID:            uuid.New(),
		Date:          date.UTC(),
		Description:   description,
		Concept:       description,
		Amount:        in.Amount,
		Kind:          in.MovementKind,
		Base:          in.Base,
		VATRate:       in.VATRate,
		VATQuota:      in.VATQuota,
		PaymentMethod: paymentMethod,
		SupplierID:    in.SupplierID,
		CommunityID:   in.CommunityID,
		CreatedAt:     s.now().UTC(),
	}
	bindAccount(&line, in.Account)
	if err := line.Validate(); err != nil {
		return movements.Movement{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.IncrementBalance(ctx, in.Account, line.Signed()); err != nil {
			return err
		}
		return tx.InsertLine(ctx, line)
	})
	if err != nil {
		return movements.Movement{}, err
	}
	s.invalidate(ctx, "movement")
	return line, nil
}

// Transfer debits Source and credits Dest in one transaction, writing a Gasto line on
// the source and an Ingreso line on the destination. Both lines are tagged with
// PaymentMethodTransfer so invoice views leave them out. Overdrafts are allowed.
func (s *Service) Transfer(ctx context.Context, actor shared.Actor, in TransferInput) (TransferResult, error) {
	if err := actor.RequireTreasury("transfer"); err != nil {
		return TransferResult{}, err
	}
	if err := in.Source.validate(); err != nil {
		return TransferResult{}, err
	}
	if err := in.Dest.validate(); err != nil {
		return TransferResult{}, err
	}
	if in.Source == in.Dest {
		return TransferResult{}, fmt.Errorf("%w: source and destination must differ", shared.ErrValidation)
	}
	if err := validateAmount(in.Amount); err != nil {
		return TransferResult{}, err
	}
	concept := strings.TrimSpace(in.Concept)
	if concept == "" {
		concept = "Traspaso"
	}
	now := s.now().UTC()
	var result TransferResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockAccounts(ctx, in.Source, in.Dest)
		if err != nil {
			return err
		}
		src, dst := locked[in.Source], locked[in.Dest]

		if result.SourceBalance, err = tx.IncrementBalance(ctx, in.Source, in.Amount.Neg()); err != nil {
			return err
		}
		if result.DestBalance, err = tx.IncrementBalance(ctx, in.Dest, in.Amount); err != nil {
			return err
		}
		outbound := movements.Movement{
			ID:            uuid.New(),
			Date:          now,
			Description:   fmt.Sprintf("%s (a %s)", concept, dst.Name),
			Concept:       concept,
			Amount:        in.Amount,
			Kind:          movements.KindGasto,
			PaymentMethod: movements.PaymentMethodTransfer,
			CommunityID:   src.CommunityID,
			CreatedAt:     now,
		}
		bindAccount(&outbound, src.Ref())
		inbound := movements.Movement{
			ID:            uuid.New(),
			Date:          now,
			Description:   fmt.Sprintf("%s (de %s)", concept, src.Name),
			Concept:       concept,
			Amount:        in.Amount,
			Kind:          movements.KindIngreso,
			PaymentMethod: movements.PaymentMethodTransfer,
			CommunityID:   dst.CommunityID,
			CreatedAt:     now,
		}
		bindAccount(&inbound, dst.Ref())
		for _, line := range []movements.Movement{outbound, inbound} {
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
		}
		result.LineIDs = []uuid.UUID{outbound.ID, inbound.ID}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.invalidate(ctx, "transfer")
	s.record(ctx, actor, "treasury.transfer", in.Source.ID.String(), map[string]any{
		"source_kind": string(in.Source.Kind),
		"dest_kind":   string(in.Dest.Kind),
		"dest_id":     in.Dest.ID.String(),
		"amount":      in.Amount.String(),
	})
	return result, nil
}

// AdjustBalance overwrites the balance under a row lock and stores the previous value
// with the reason. No ledger line is written.
func (s *Service) AdjustBalance(ctx context.Context, actor shared.Actor, in AdjustInput) (Adjustment, error) {
	if err := actor.RequireTreasury("adjust balance"); err != nil {
		return Adjustment{}, err
	}
	if err := in.Account.validate(); err != nil {
		return Adjustment{}, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Adjustment{}, fmt.Errorf("%w: adjustment reason required", shared.ErrValidation)
	}
	adj := Adjustment{
		ID:      uuid.New(),
		Account: in.Account,
		New:     in.NewBalance,
		Reason:  reason,
		ActorID: movements.UUIDPtr(actor.UserID),
		At:      s.now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockAccounts(ctx, in.Account)
		if err != nil {
			return err
		}
		adj.Previous = locked[in.Account].CurrentBalance
		if err := tx.SetBalance(ctx, in.Account, in.NewBalance); err != nil {
			return err
		}
		return tx.InsertAdjustment(ctx, adj)
	})
	if err != nil {
		return Adjustment{}, err
	}
	s.invalidate(ctx, "adjust")
	s.record(ctx, actor, "treasury.adjust", in.Account.ID.String(), map[string]any{
		"kind":     string(in.Account.Kind),
		"previous": adj.Previous.String(),
		"new":      adj.New.String(),
		"reason":   reason,
	})
	return adj, nil
}

// Summary lists the accounts in scope with bank, cash and global totals.
func (s *Service) Summary(ctx context.Context, actor shared.Actor, scope Scope) (Summary, error) {
	if err := actor.RequireIdentified("treasury summary"); err != nil {
		return Summary{}, err
	}
	if s.cache == nil {
		return s.loadSummary(ctx, scope)
	}
	key, err := s.cache.BuildKey(ctx, scope.CacheKey()...)
	if err != nil {
		s.logger.Warn("treasury summary cache key", slog.Any("error", err))
		return s.loadSummary(ctx, scope)
	}
	var loadErr error
	loader := func(ctx context.Context) (any, error) {
		summary, err := s.loadSummary(ctx, scope)
		loadErr = err
		return summary, err
	}
	var summary Summary
	if err := s.cache.FetchJSON(ctx, key, &summary, loader); err != nil {
		if loadErr != nil {
			return Summary{}, loadErr
		}
		s.logger.Warn("treasury summary cache", slog.Any("error", err))
		return s.loadSummary(ctx, scope)
	}
	return summary, nil
}

func (s *Service) loadSummary(ctx context.Context, scope Scope) (Summary, error) {
	var banks, cash []Account
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		banks, err = s.repo.ListAccounts(gctx, KindBank, scope)
		return err
	})
	g.Go(func() error {
		var err error
		cash, err = s.repo.ListAccounts(gctx, KindCash, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Summarise(banks, cash), nil
}

// CheckIntegrity returns every account whose stored balance differs from its opening
// balance plus signed ledger lines and adjustment deltas.
func (s *Service) CheckIntegrity(ctx context.Context) ([]Drift, error) {
	drifts, err := s.repo.FindDrifts(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drifts {
		s.logger.Warn("treasury balance drift",
			slog.String("kind", string(d.Account.Kind)),
			slog.String("account_id", d.Account.ID.String()),
			slog.String("stored", d.Stored.String()),
			slog.String("expected", d.Expected.String()))
	}
	return drifts, nil
}

func (s *Service) invalidate(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.ObserveBalanceMutation(op)
	}
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("treasury cache bump", slog.Any("error", err), slog.String("op", op))
	}
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "account",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Error("audit treasury", slog.Any("error", err), slog.String("action", action))
	}
}

func bindAccount(line *movements.Movement, ref AccountRef) {
	id := ref.ID
	if ref.Kind == KindBank {
		line.BankAccountID = &id
		return
	}
	line.CashAccountID = &id
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", shared.ErrValidation)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount has more than two decimals", shared.ErrValidation)
	}
	return nil
}
