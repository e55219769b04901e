package treasury

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/platform/cache"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	require.Equal(t, ScopeGlobal, s.Kind)

	s, err = ParseScope("administracion")
	require.NoError(t, err)
	require.Equal(t, ScopeAdministration, s.Kind)

	id := uuid.New()
	s, err = ParseScope(id.String())
	require.NoError(t, err)
	require.Equal(t, Scope{Kind: ScopeCommunity, CommunityID: id}, s)

	_, err = ParseScope("comunidad-7")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSummaryScopes(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.add(KindBank, "Oficina", "1000", nil)
	repo.add(KindCash, "Caja oficina", "50", nil)
	repo.add(KindBank, "Comunidad", "300.25", &community)
	svc := newTestService(repo)
	ctx := context.Background()

	global, err := svc.Summary(ctx, admin(), Scope{Kind: ScopeGlobal})
	require.NoError(t, err)
	require.Len(t, global.Banks, 2)
	require.Len(t, global.Cash, 1)
	require.Equal(t, "1300.25", global.Totals.Banks.String())
	require.Equal(t, "50", global.Totals.Cash.String())
	require.Equal(t, "1350.25", global.Totals.Global.String())

	office, err := svc.Summary(ctx, admin(), Scope{Kind: ScopeAdministration})
	require.NoError(t, err)
	require.Len(t, office.Banks, 1)
	require.True(t, office.Banks[0].IsAdministration)
	require.Equal(t, "1050", office.Totals.Global.String())

	scoped, err := svc.Summary(ctx, admin(), Scope{Kind: ScopeCommunity, CommunityID: community})
	require.NoError(t, err)
	require.Len(t, scoped.Banks, 1)
	require.NotNil(t, scoped.Cash)
	require.Empty(t, scoped.Cash)
	require.Equal(t, "300.25", scoped.Totals.Global.String())

	_, err = svc.Summary(ctx, shared.Actor{}, Scope{Kind: ScopeGlobal})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSummaryCacheInvalidatedByMutations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	bank := repo.add(KindBank, "Banco", "100", nil)
	svc := NewService(repo, cache.NewCache(client, "treasury", time.Minute), nil, nil, nil)
	ctx := context.Background()
	scope := Scope{Kind: ScopeGlobal}

	first, err := svc.Summary(ctx, admin(), scope)
	require.NoError(t, err)
	_, err = svc.Summary(ctx, admin(), scope)
	require.NoError(t, err)
	require.Equal(t, int32(2), repo.listCalls.Load())
	require.Equal(t, "100", first.Totals.Global.String())

	_, err = svc.ApplyBalanceDelta(ctx, admin(), DeltaInput{Account: bank, Amount: dec("5"), MovementKind: movements.KindIngreso})
	require.NoError(t, err)

	second, err := svc.Summary(ctx, admin(), scope)
	require.NoError(t, err)
	require.Equal(t, int32(4), repo.listCalls.Load())
	require.Equal(t, "105", second.Totals.Global.String())
}
