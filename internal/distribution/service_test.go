package distribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/properties"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

// memoryRepo keeps committed state and applies a transaction's writes only when fn succeeds.
type memoryRepo struct {
	communities map[uuid.UUID][]properties.Property
	lines       []movements.Movement
	keys        map[string]bool
	failInsert  error
	shortInsert bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{communities: map[uuid.UUID][]properties.Property{}, keys: map[string]bool{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: m, lines: append([]movements.Movement(nil), m.lines...), keys: map[string]bool{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.lines = tx.lines
	for k := range tx.keys {
		m.keys[k] = true
	}
	return nil
}

type memoryTx struct {
	repo  *memoryRepo
	lines []movements.Movement
	keys  map[string]bool
}

func (t *memoryTx) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if t.repo.keys[key] || t.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	t.keys[key] = true
	return nil
}

func (t *memoryTx) CommunityExists(ctx context.Context, communityID uuid.UUID) (bool, error) {
	_, ok := t.repo.communities[communityID]
	return ok, nil
}

func (t *memoryTx) ListProperties(ctx context.Context, communityID uuid.UUID) ([]properties.Property, error) {
	return t.repo.communities[communityID], nil
}

func (t *memoryTx) InsertLines(ctx context.Context, lines []movements.Movement) (int64, error) {
	if t.repo.failInsert != nil {
		return 0, t.repo.failInsert
	}
	if t.repo.shortInsert && len(lines) > 1 {
		t.lines = append(t.lines, lines[0])
		return 1, shared.ErrPersistence
	}
	t.lines = append(t.lines, lines...)
	return int64(len(lines)), nil
}

func (t *memoryTx) DeleteByConcept(ctx context.Context, concept string, scope movements.DeleteScope) (int64, error) {
	return t.remove(func(l movements.Movement) bool {
		return movements.MatchesConcept(l, concept) && scope.Matches(l)
	}), nil
}

func (t *memoryTx) DeleteByConceptPrefix(ctx context.Context, prefix string, scope movements.DeleteScope) (int64, error) {
	return t.remove(func(l movements.Movement) bool {
		return movements.MatchesConceptPrefix(l, prefix) && scope.Matches(l)
	}), nil
}

func (t *memoryTx) remove(match func(movements.Movement) bool) int64 {
	var kept []movements.Movement
	var n int64
	for _, l := range t.lines {
		if match(l) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	t.lines = kept
	return n
}

type recordingMetrics struct {
	lines int
}

func (r *recordingMetrics) ObserveDistribution(lines int, residual float64) {
	r.lines += lines
}

func admin() shared.Actor {
	return shared.NewActor(uuid.New(), shared.RoleAdmin, "admin@fincas.test", "")
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 15, 18, 45, 0, 0, time.UTC)
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, nil, nil, nil)
	svc.now = fixedNow
	return svc
}

func sumLines(lines []movements.Movement) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

func TestDistributeExpenseSixtyForty(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	supplier := uuid.New()
	owner := uuid.New()
	p1 := properties.Property{ID: uuid.New(), CommunityID: community, OwnerID: &owner, Label: "P1", Coefficient: decimal.NewFromInt(60)}
	p2 := properties.Property{ID: uuid.New(), CommunityID: community, Label: "P2", Coefficient: decimal.NewFromInt(40)}
	repo.communities[community] = []properties.Property{p1, p2}
	metrics := &recordingMetrics{}
	svc := NewService(repo, nil, metrics, nil)
	svc.now = fixedNow

	res, err := svc.DistributeExpense(context.Background(), admin(), DistributeInput{
		CommunityID:    community,
		TotalAmount:    decimal.RequireFromString("100.00"),
		Description:    "Limpieza",
		CounterpartyID: &supplier,
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.True(t, res.Residual.IsZero())
	require.Equal(t, 2, metrics.lines)
	require.Len(t, repo.lines, 2)

	first, second := repo.lines[0], repo.lines[1]
	require.Equal(t, "60.00", first.Amount.StringFixed(2))
	require.Equal(t, "40.00", second.Amount.StringFixed(2))
	require.Equal(t, "Limpieza (P1)", first.Description)
	require.Equal(t, "Limpieza", first.Concept)
	require.Equal(t, owner, *first.OwnerID)
	require.Nil(t, second.OwnerID)
	for _, l := range repo.lines {
		require.Equal(t, movements.KindGasto, l.Kind)
		require.Equal(t, supplier, *l.SupplierID)
		require.Equal(t, community, *l.CommunityID)
		require.Equal(t, res.BatchID, *l.BatchID)
		require.Nil(t, l.BankAccountID)
		require.Nil(t, l.CashAccountID)
		require.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), l.Date)
	}
	require.True(t, sumLines(repo.lines).Equal(decimal.NewFromInt(100)))
}

func TestDistributeExpenseReportsResidual(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.communities[community] = props("33.3333", "33.3333", "33.3334")

	res, err := newTestService(repo).DistributeExpense(context.Background(), admin(), DistributeInput{
		CommunityID: community,
		TotalAmount: decimal.NewFromInt(100),
		Description: "Seguro",
	})
	require.NoError(t, err)
	require.Equal(t, "99.99", res.Sum.String())
	require.Equal(t, "0.01", res.Residual.String())
}

func TestDistributeExpenseWithoutProperties(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.communities[community] = nil

	_, err := newTestService(repo).DistributeExpense(context.Background(), admin(), DistributeInput{
		CommunityID: community,
		TotalAmount: decimal.NewFromInt(50),
		Description: "Agua",
	})
	require.ErrorIs(t, err, shared.ErrNoPropertiesInCommunity)
	require.Empty(t, repo.lines)
}

func TestDistributeExpenseUnknownCommunity(t *testing.T) {
	_, err := newTestService(newMemoryRepo()).DistributeExpense(context.Background(), admin(), DistributeInput{
		CommunityID: uuid.New(),
		TotalAmount: decimal.NewFromInt(50),
		Description: "Agua",
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDistributeExpenseValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	cases := map[string]DistributeInput{
		"missing community": {TotalAmount: decimal.NewFromInt(1), Description: "x"},
		"zero total":        {CommunityID: uuid.New(), TotalAmount: decimal.Zero, Description: "x"},
		"negative total":    {CommunityID: uuid.New(), TotalAmount: decimal.NewFromInt(-5), Description: "x"},
		"blank description": {CommunityID: uuid.New(), TotalAmount: decimal.NewFromInt(1), Description: "  "},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.DistributeExpense(context.Background(), admin(), in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestDistributeExpenseRequiresTreasuryRole(t *testing.T) {
	owner := shared.NewActor(uuid.New(), shared.RoleOwner, "", "")
	_, err := newTestService(newMemoryRepo()).DistributeExpense(context.Background(), owner, DistributeInput{})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDistributeExpensePartialInsertLeavesNoLines(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.communities[community] = props("50", "50")
	repo.shortInsert = true

	_, err := newTestService(repo).DistributeExpense(context.Background(), admin(), DistributeInput{
		CommunityID:    community,
		TotalAmount:    decimal.NewFromInt(10),
		Description:    "Luz",
		IdempotencyKey: "req-1",
	})
	require.ErrorIs(t, err, shared.ErrPersistence)
	require.Empty(t, repo.lines)
	require.False(t, repo.keys["req-1"])
}

func TestDistributeExpenseIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.communities[community] = props("100")
	svc := newTestService(repo)
	in := DistributeInput{CommunityID: community, TotalAmount: decimal.NewFromInt(10), Description: "Gas", IdempotencyKey: "req-7"}

	_, err := svc.DistributeExpense(context.Background(), admin(), in)
	require.NoError(t, err)
	_, err = svc.DistributeExpense(context.Background(), admin(), in)
	require.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	require.Len(t, repo.lines, 1)
}

func TestRecalculateDistributionIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	supplier := uuid.New()
	repo.communities[community] = props("25", "25", "25", "25")
	svc := newTestService(repo)
	ctx := context.Background()

	single, err := svc.DistributeExpense(ctx, admin(), DistributeInput{
		CommunityID: community, TotalAmount: decimal.NewFromInt(1000), Description: "Ascensor", CounterpartyID: &supplier,
	})
	require.NoError(t, err)

	in := RecalculateInput{Key: "Ascensor", SupplierID: &supplier, CommunityID: community, TotalAmount: decimal.NewFromInt(1000)}
	for i := 0; i < 2; i++ {
		res, err := svc.RecalculateDistribution(ctx, admin(), in)
		require.NoError(t, err)
		require.Equal(t, int64(4), res.Removed.Deleted)
		require.False(t, res.Removed.Fallback)
		require.Equal(t, single.Count, res.Distributed.Count)
		require.Len(t, repo.lines, single.Count)
		require.True(t, sumLines(repo.lines).Equal(single.Sum))
	}
}

func TestRecalculateDistributionLeavesOtherCommunities(t *testing.T) {
	repo := newMemoryRepo()
	communityA, communityB := uuid.New(), uuid.New()
	supplier := uuid.New()
	repo.communities[communityA] = props("60", "40")
	repo.communities[communityB] = props("50", "50")
	svc := newTestService(repo)
	ctx := context.Background()

	for _, community := range []uuid.UUID{communityA, communityB} {
		_, err := svc.DistributeExpense(ctx, admin(), DistributeInput{
			CommunityID: community, TotalAmount: decimal.NewFromInt(100), Description: "Limpieza", CounterpartyID: &supplier,
		})
		require.NoError(t, err)
	}

	res, err := svc.RecalculateDistribution(ctx, admin(), RecalculateInput{
		Key: "Limpieza", SupplierID: &supplier, CommunityID: communityA, TotalAmount: decimal.NewFromInt(120),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Removed.Deleted)

	byCommunity := map[uuid.UUID][]movements.Movement{}
	for _, l := range repo.lines {
		byCommunity[*l.CommunityID] = append(byCommunity[*l.CommunityID], l)
	}
	require.Len(t, byCommunity[communityA], 2)
	require.Len(t, byCommunity[communityB], 2)
	require.True(t, sumLines(byCommunity[communityA]).Equal(decimal.NewFromInt(120)))
	require.True(t, sumLines(byCommunity[communityB]).Equal(decimal.NewFromInt(100)))
}

func TestRecalculateDistributionWithoutSupplierStaysInCommunity(t *testing.T) {
	repo := newMemoryRepo()
	communityA, communityB := uuid.New(), uuid.New()
	repo.communities[communityA] = props("100")
	repo.communities[communityB] = props("100")
	svc := newTestService(repo)
	ctx := context.Background()

	for _, community := range []uuid.UUID{communityA, communityB} {
		_, err := svc.DistributeExpense(ctx, admin(), DistributeInput{CommunityID: community, TotalAmount: decimal.NewFromInt(30), Description: "Agua"})
		require.NoError(t, err)
	}
	res, err := svc.RecalculateDistribution(ctx, admin(), RecalculateInput{Key: "Agua", CommunityID: communityB, TotalAmount: decimal.NewFromInt(45)})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Removed.Deleted)
	require.Len(t, repo.lines, 2)
}

func TestRecalculateDistributionAbortsAndKeepsOriginalLines(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.communities[community] = props("60", "40")
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.DistributeExpense(ctx, admin(), DistributeInput{CommunityID: community, TotalAmount: decimal.NewFromInt(100), Description: "Pintura"})
	require.NoError(t, err)
	original := append([]movements.Movement(nil), repo.lines...)

	repo.failInsert = errors.New("disk full")
	_, err = svc.RecalculateDistribution(ctx, admin(), RecalculateInput{Key: "Pintura", CommunityID: community, TotalAmount: decimal.NewFromInt(200)})
	require.Error(t, err)
	require.Equal(t, original, repo.lines)
}

func TestRecalculateDistributionRequiresKey(t *testing.T) {
	_, err := newTestService(newMemoryRepo()).RecalculateDistribution(context.Background(), admin(), RecalculateInput{
		CommunityID: uuid.New(), TotalAmount: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
