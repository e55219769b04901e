package movements

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/platform/db"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

var copyColumns = []string{
	"id", "batch_id", "date", "description", "concept", "amount", "tipo",
	"base", "vat_rate", "vat_quota", "payment_method",
	"bank_account_id", "cash_account_id", "supplier_id", "community_id", "property_id", "owner_id",
}

const selectColumns = `id, batch_id, date, description, concept, amount, tipo, base, vat_rate, vat_quota,
COALESCE(payment_method, ''), bank_account_id, cash_account_id, supplier_id, community_id, property_id, owner_id, created_at`

// scopeClause mirrors DeleteScope.Matches; $2 is the supplier and $3 the community.
const scopeClause = `
  AND ($2::uuid IS NULL OR supplier_id = $2)
  AND ($3::uuid IS NULL OR community_id = $3)
  AND bank_account_id IS NULL AND cash_account_id IS NULL`

// InsertBatch copies all lines in one COPY statement. Callers run it inside a
// transaction; a short count is reported as ErrPersistence so the caller rolls back.
func InsertBatch(ctx context.Context, q db.DBTX, lines []Movement) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(lines))
	for _, m := range lines {
		if err := m.Validate(); err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			pgUUID(&m.ID), pgUUID(m.BatchID), pgtype.Date{Time: m.Date, Valid: true}, m.Description, m.Concept,
			numeric(m.Amount), string(m.Kind), numeric(m.Base), numeric(m.VATRate), numeric(m.VATQuota),
			pgtype.Text{String: m.PaymentMethod, Valid: m.PaymentMethod != ""},
			pgUUID(m.BankAccountID), pgUUID(m.CashAccountID), pgUUID(m.SupplierID),
			pgUUID(m.CommunityID), pgUUID(m.PropertyID), pgUUID(m.OwnerID),
		})
	}
	n, err := q.CopyFrom(ctx, pgx.Identifier{"movements"}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, db.Wrap("copy movements", err)
	}
	if n != int64(len(lines)) {
		return n, fmt.Errorf("%w: copy movements: inserted %d of %d lines", shared.ErrPersistence, n, len(lines))
	}
	return n, nil
}

// Insert stores a single line.
func Insert(ctx context.Context, q db.DBTX, m Movement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `INSERT INTO movements (`+strings.Join(copyColumns, ", ")+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		m.ID, m.BatchID, m.Date, m.Description, m.Concept, m.Amount, string(m.Kind),
		m.Base, m.VATRate, m.VATQuota, nullString(m.PaymentMethod),
		m.BankAccountID, m.CashAccountID, m.SupplierID, m.CommunityID, m.PropertyID, m.OwnerID)
	if err != nil {
		return db.Wrap("insert movement", err)
	}
	return nil
}

// DeleteByConcept removes lines whose concept equals concept exactly, restricted to the
// supplier and community in scope when given. Lines bound to a bank or cash account are
// never removed here because their amount is already reflected in the account balance.
func DeleteByConcept(ctx context.Context, q db.DBTX, concept string, scope DeleteScope) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM movements
WHERE concept = $1`+scopeClause, concept, scope.SupplierID, scope.CommunityID)
	if err != nil {
		return 0, db.Wrap("delete movements by concept", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByConceptPrefix removes lines whose concept starts with prefix, ignoring case.
// LIKE metacharacters in prefix match literally. Scope and account rules follow DeleteByConcept.
func DeleteByConceptPrefix(ctx context.Context, q db.DBTX, prefix string, scope DeleteScope) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM movements
WHERE concept ILIKE $1 ESCAPE '\'`+scopeClause, EscapeLike(prefix)+"%", scope.SupplierID, scope.CommunityID)
	if err != nil {
		return 0, db.Wrap("delete movements by prefix", err)
	}
	return tag.RowsAffected(), nil
}

// ListBySupplier returns the supplier's lines, newest first.
func ListBySupplier(ctx context.Context, q db.DBTX, supplierID uuid.UUID) ([]Movement, error) {
	return list(ctx, q, "list supplier movements",
		`SELECT `+selectColumns+` FROM movements WHERE supplier_id = $1 ORDER BY date DESC, created_at DESC, id ASC`, supplierID)
}

// ListByCommunityYear returns lines of kind for the community within the calendar year.
// Transfer legs are left out.
func ListByCommunityYear(ctx context.Context, q db.DBTX, communityID uuid.UUID, year int, kind Kind) ([]Movement, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	return list(ctx, q, "list community movements",
		`SELECT `+selectColumns+` FROM movements
WHERE community_id = $1 AND tipo = $2 AND date >= $3 AND date < $4
  AND payment_method IS DISTINCT FROM $5
ORDER BY date ASC, description ASC, id ASC`, communityID, string(kind), from, to, PaymentMethodTransfer)
}

// ListByBatch returns the lines generated by one distribution.
func ListByBatch(ctx context.Context, q db.DBTX, batchID uuid.UUID) ([]Movement, error) {
	return list(ctx, q, "list batch movements",
		`SELECT `+selectColumns+` FROM movements WHERE batch_id = $1 ORDER BY description ASC, id ASC`, batchID)
}

func list(ctx context.Context, q db.DBTX, op, query string, args ...any) ([]Movement, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Wrap(op, err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		var kind string
		if err := rows.Scan(&m.ID, &m.BatchID, &m.Date, &m.Description, &m.Concept, &m.Amount, &kind,
			&m.Base, &m.VATRate, &m.VATQuota, &m.PaymentMethod,
			&m.BankAccountID, &m.CashAccountID, &m.SupplierID, &m.CommunityID, &m.PropertyID, &m.OwnerID, &m.CreatedAt); err != nil {
			return nil, db.Wrap(op, err)
		}
		m.Kind = Kind(kind)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(op, err)
	}
	return out, nil
}

// EscapeLike escapes LIKE metacharacters using backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// COPY uses the binary protocol, so values are handed over as pgtype values.
func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func pgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
