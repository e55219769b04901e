package treasury

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/platform/db"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

// Repository defines treasury data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListAccounts(ctx context.Context, kind AccountKind, scope Scope) ([]Account, error)
	CreateAccount(ctx context.Context, account Account) error
	FindDrifts(ctx context.Context) ([]Drift, error)
}

// TxRepository defines balance operations within a transaction.
type TxRepository interface {
	IncrementBalance(ctx context.Context, ref AccountRef, delta decimal.Decimal) (decimal.Decimal, error)
	LockAccounts(ctx context.Context, refs ...AccountRef) (map[AccountRef]Account, error)
	SetBalance(ctx context.Context, ref AccountRef, balance decimal.Decimal) error
	InsertAdjustment(ctx context.Context, adj Adjustment) error
	InsertLine(ctx context.Context, line movements.Movement) error
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// WithTx runs fn in a read-committed transaction. Balance writes are atomic increments
// or happen under row locks, so read committed does not lose updates.
func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{q: tx})
	})
}

func accountTable(kind AccountKind) string {
	if kind == KindBank {
		return "bank_accounts"
	}
	return "cash_accounts"
}

func accountSelect(kind AccountKind) string {
	if kind == KindBank {
		return `SELECT id, name, iban, initial_balance, current_balance, community_id, active, created_at FROM bank_accounts`
	}
	return `SELECT id, name, code, 0::numeric, current_balance, community_id, active, created_at FROM cash_accounts`
}

func scanAccount(row pgx.Row, kind AccountKind) (Account, error) {
	a := Account{Kind: kind}
	if err := row.Scan(&a.ID, &a.Name, &a.Code, &a.InitialBalance, &a.CurrentBalance, &a.CommunityID, &a.Active, &a.CreatedAt); err != nil {
		return Account{}, err
	}
	a.IsAdministration = a.CommunityID == nil
	return a, nil
}

func (r *pgRepository) ListAccounts(ctx context.Context, kind AccountKind, scope Scope) ([]Account, error) {
	query := accountSelect(kind)
	var args []any
	switch scope.Kind {
	case ScopeCommunity:
		query += ` WHERE community_id = $1`
		args = append(args, scope.CommunityID)
	case ScopeAdministration:
		query += ` WHERE community_id IS NULL`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Wrap("list accounts", err)
	}
	defer rows.Close()
	accounts := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows, kind)
		if err != nil {
			return nil, db.Wrap("scan account", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap("list accounts", err)
	}
	return accounts, nil
}

func (r *pgRepository) CreateAccount(ctx context.Context, a Account) error {
	var err error
	if a.Kind == KindBank {
		_, err = r.pool.Exec(ctx, `INSERT INTO bank_accounts (id, name, iban, initial_balance, current_balance, community_id, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, a.ID, a.Name, a.Code, a.InitialBalance, a.CurrentBalance, a.CommunityID, a.Active, a.CreatedAt)
	} else {
		_, err = r.pool.Exec(ctx, `INSERT INTO cash_accounts (id, name, code, current_balance, community_id, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, a.ID, a.Name, a.Code, a.CurrentBalance, a.CommunityID, a.Active, a.CreatedAt)
	}
	return db.Wrap("create account", err)
}

// FindDrifts compares every stored balance with its opening balance plus the signed
// ledger lines and adjustment deltas that reference it.
func (r *pgRepository) FindDrifts(ctx context.Context) ([]Drift, error) {
	var drifts []Drift
	for _, kind := range []AccountKind{KindBank, KindCash} {
		column := "bank_account_id"
		if kind == KindCash {
			column = "cash_account_id"
		}
		rows, err := r.pool.Query(ctx, fmt.Sprintf(`WITH expected AS (
  SELECT a.id, a.name, a.current_balance,
         a.opening
         + COALESCE((SELECT SUM(CASE WHEN m.tipo = 'Ingreso' THEN m.amount ELSE -m.amount END)
                     FROM movements m WHERE m.%[1]s = a.id), 0)
         + COALESCE((SELECT SUM(b.new_balance - b.previous_balance)
                     FROM balance_adjustments b WHERE b.account_kind = $1 AND b.account_id = a.id), 0) AS expected
  FROM (SELECT id, name, current_balance, %[2]s AS opening FROM %[3]s) a
)
SELECT id, name, current_balance, expected FROM expected WHERE current_balance <> expected ORDER BY name`,
			column, openingColumn(kind), accountTable(kind)), string(kind))
		if err != nil {
			return nil, db.Wrap("find drifts", err)
		}
		for rows.Next() {
			d := Drift{Account: AccountRef{Kind: kind}}
			if err := rows.Scan(&d.Account.ID, &d.Name, &d.Stored, &d.Expected); err != nil {
				rows.Close()
				return nil, db.Wrap("scan drift", err)
			}
			drifts = append(drifts, d)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, db.Wrap("find drifts", err)
		}
	}
	return drifts, nil
}

func openingColumn(kind AccountKind) string {
	if kind == KindBank {
		return "initial_balance"
	}
	return "0::numeric"
}

type pgTxRepository struct {
	q pgx.Tx
}

func (r *pgTxRepository) IncrementBalance(ctx context.Context, ref AccountRef, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, `UPDATE `+accountTable(ref.Kind)+`
SET current_balance = current_balance + $2 WHERE id = $1 RETURNING current_balance`, ref.ID, delta).Scan(&balance)
	if err != nil {
		return decimal.Zero, db.Wrap(fmt.Sprintf("increment %s account %s", ref.Kind, ref.ID), err)
	}
	return balance, nil
}

// LockAccounts takes FOR UPDATE locks in (kind, id) order.
func (r *pgTxRepository) LockAccounts(ctx context.Context, refs ...AccountRef) (map[AccountRef]Account, error) {
	ordered := append([]AccountRef(nil), refs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].less(ordered[j]) })
	locked := make(map[AccountRef]Account, len(ordered))
	for _, ref := range ordered {
		if _, ok := locked[ref]; ok {
			continue
		}
		row := r.q.QueryRow(ctx, accountSelect(ref.Kind)+` WHERE id = $1 FOR UPDATE`, ref.ID)
		a, err := scanAccount(row, ref.Kind)
		if err != nil {
			return nil, db.Wrap(fmt.Sprintf("lock %s account %s", ref.Kind, ref.ID), err)
		}
		locked[ref] = a
	}
	return locked, nil
}

func (r *pgTxRepository) SetBalance(ctx context.Context, ref AccountRef, balance decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE `+accountTable(ref.Kind)+` SET current_balance = $2 WHERE id = $1`, ref.ID, balance)
	if err != nil {
		return db.Wrap("set balance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s account %s", shared.ErrNotFound, ref.Kind, ref.ID)
	}
	return nil
}

func (r *pgTxRepository) InsertAdjustment(ctx context.Context, adj Adjustment) error {
	_, err := r.q.Exec(ctx, `INSERT INTO balance_adjustments (id, account_kind, account_id, previous_balance, new_balance, reason, actor_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		adj.ID, string(adj.Account.Kind), adj.Account.ID, adj.Previous, adj.New, adj.Reason, adj.ActorID, adj.At)
	return db.Wrap("insert adjustment", err)
}

func (r *pgTxRepository) InsertLine(ctx context.Context, line movements.Movement) error {
	return movements.Insert(ctx, r.q, line)
}
