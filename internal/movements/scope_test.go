package movements

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteScopeMatches(t *testing.T) {
	supplier, communityA, communityB := uuid.New(), uuid.New(), uuid.New()
	bank := uuid.New()
	lineA := Movement{Concept: "Limpieza", SupplierID: &supplier, CommunityID: &communityA}
	lineB := Movement{Concept: "Limpieza", SupplierID: &supplier, CommunityID: &communityB}
	paid := lineA
	paid.BankAccountID = &bank

	scoped := DeleteScope{SupplierID: &supplier, CommunityID: &communityA}
	assert.True(t, scoped.Matches(lineA))
	assert.False(t, scoped.Matches(lineB))
	assert.False(t, scoped.Matches(paid))

	bySupplier := DeleteScope{SupplierID: &supplier}
	assert.True(t, bySupplier.Matches(lineA))
	assert.True(t, bySupplier.Matches(lineB))

	other := uuid.New()
	assert.False(t, DeleteScope{SupplierID: &other}.Matches(lineA))
	assert.False(t, DeleteScope{CommunityID: &communityA}.Matches(Movement{Concept: "Limpieza"}))
	assert.True(t, DeleteScope{}.Matches(Movement{Concept: "Limpieza"}))
}

func TestMatchesConceptPrefixIgnoresCase(t *testing.T) {
	assert.True(t, MatchesConceptPrefix(Movement{Concept: "FACTURA 12"}, "factura"))
	assert.False(t, MatchesConceptPrefix(Movement{Concept: "Seguro"}, "factura"))
	assert.True(t, MatchesConcept(Movement{Concept: "Seguro"}, "Seguro"))
	assert.False(t, MatchesConcept(Movement{Concept: "seguro"}, "Seguro"))
}

func TestIsTransfer(t *testing.T) {
	assert.True(t, Movement{PaymentMethod: PaymentMethodTransfer}.IsTransfer())
	assert.False(t, Movement{PaymentMethod: "transferencia"}.IsTransfer())
}

type recordingDB struct {
	sql  string
	args []any
}

func (r *recordingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	r.args = args
	return pgconn.NewCommandTag("DELETE 2"), nil
}

func (r *recordingDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("unexpected query")
}

func (r *recordingDB) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("unexpected query row")
}

func (r *recordingDB) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("unexpected copy")
}

func TestDeleteByConceptBindsCommunity(t *testing.T) {
	supplier, community := uuid.New(), uuid.New()
	rec := &recordingDB{}

	n, err := DeleteByConcept(context.Background(), rec, "Limpieza", DeleteScope{SupplierID: &supplier, CommunityID: &community})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, rec.sql, "concept = $1")
	assert.Contains(t, rec.sql, "community_id = $3")
	assert.Contains(t, rec.sql, "bank_account_id IS NULL AND cash_account_id IS NULL")
	require.Len(t, rec.args, 3)
	assert.Equal(t, "Limpieza", rec.args[0])
	assert.Equal(t, &supplier, rec.args[1])
	assert.Equal(t, &community, rec.args[2])
}

func TestDeleteByConceptPrefixEscapesAndBindsCommunity(t *testing.T) {
	community := uuid.New()
	rec := &recordingDB{}

	_, err := DeleteByConceptPrefix(context.Background(), rec, "100%", DeleteScope{CommunityID: &community})
	require.NoError(t, err)
	assert.Contains(t, rec.sql, "ILIKE $1")
	assert.Contains(t, rec.sql, "community_id = $3")
	require.Len(t, rec.args, 3)
	assert.Equal(t, `100\%%`, rec.args[0])
	assert.Nil(t, rec.args[1])
	assert.Equal(t, &community, rec.args[2])
}
