package treasury

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/llauna/administracionFincas-sub000/internal/shared"
	_ "github.com/llauna/administracionFincas-sub000/testing"
)

type fakeEnqueuer struct {
	calls int
}

func (f *fakeEnqueuer) EnqueueIntegrityCheck(ctx context.Context) (string, error) {
	f.calls++
	return "task-1", nil
}

func newTestRouter(repo *memoryRepo, enqueuer IntegrityEnqueuer) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newTestService(repo), enqueuer)
	r := chi.NewRouter()
	r.Route("/treasury", h.MountRoutes)
	return r
}

func serve(router http.Handler, actor shared.Actor, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSummaryHandler(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(KindBank, "Oficina", "10.50", nil)
	router := newTestRouter(repo, nil)

	rec := serve(router, admin(), http.MethodGet, "/treasury/summary?comunidadId=administracion", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Banks  []map[string]any  `json:"bancos"`
		Cash   []map[string]any  `json:"cajas"`
		Totals map[string]string `json:"totales"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Banks, 1)
	require.Empty(t, body.Cash)
	require.Equal(t, "10.5", body.Totals["global"])

	rec = serve(router, admin(), http.MethodGet, "/treasury/summary?comunidadId=nope", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferHandler(t *testing.T) {
	repo := newMemoryRepo()
	a := repo.add(KindBank, "A", "100", nil)
	b := repo.add(KindCash, "B", "0", nil)
	router := newTestRouter(repo, nil)

	body := `{"origenTipo":"bank","origenId":"` + a.ID.String() + `","destinoTipo":"cash","destinoId":"` + b.ID.String() + `","importe":"25.00"}`
	rec := serve(router, employee(), http.MethodPost, "/treasury/transfers", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, repo.balance(a).Equal(dec("75")))
	require.True(t, repo.balance(b).Equal(dec("25")))

	owner := shared.NewActor(a.ID, shared.RoleOwner, "", "")
	rec = serve(router, owner, http.MethodPost, "/treasury/transfers", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdjustHandler(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.add(KindCash, "Caja", "3", nil)
	router := newTestRouter(repo, nil)

	rec := serve(router, admin(), http.MethodPost, "/treasury/accounts/cash/"+cash.ID.String()+"/adjust", `{"saldoNuevo":"0","motivo":"Arqueo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, repo.balance(cash).IsZero())

	rec = serve(router, admin(), http.MethodPost, "/treasury/accounts/safe/"+cash.ID.String()+"/adjust", `{"saldoNuevo":"0","motivo":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegrityCheckHandler(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router := newTestRouter(newMemoryRepo(), enqueuer)

	rec := serve(router, admin(), http.MethodPost, "/treasury/integrity-check", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, enqueuer.calls)

	rec = serve(newTestRouter(newMemoryRepo(), nil), admin(), http.MethodPost, "/treasury/integrity-check", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
