package distribution

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/llauna/administracionFincas-sub000/internal/properties"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
	_ "github.com/llauna/administracionFincas-sub000/testing"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, newTestService(repo))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req = req.WithContext(shared.ContextWithActor(req.Context(), admin()))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDistributeHandler(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.communities[community] = props("60", "40")
	router := newTestRouter(repo)

	body := `{"communityId":"` + community.String() + `","totalAmount":100,"description":"Limpieza"}`
	rec := doRequest(t, router, "/expenses", body, map[string]string{"Idempotency-Key": "k-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Count   int    `json:"count"`
		BatchID string `json:"batchId"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp.Count)
	require.NotEmpty(t, resp.BatchID)

	rec = doRequest(t, router, "/expenses", body, map[string]string{"Idempotency-Key": "k-1"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestDistributeHandlerNoProperties(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.communities[community] = []properties.Property{}
	rec := doRequest(t, newTestRouter(repo), "/expenses",
		`{"communityId":"`+community.String()+`","totalAmount":"10.50","description":"Agua"}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestDistributeHandlerRejectsMalformedBody(t *testing.T) {
	rec := doRequest(t, newTestRouter(newMemoryRepo()), "/expenses", `{"totalAmount":"abc"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecalculateHandler(t *testing.T) {
	repo := newMemoryRepo()
	community := uuid.New()
	repo.communities[community] = props("50", "50")
	router := newTestRouter(repo)

	rec := doRequest(t, router, "/expenses",
		`{"communityId":"`+community.String()+`","totalAmount":80,"description":"Jardín"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, "/expenses/recalculate",
		`{"communityId":"`+community.String()+`","totalAmount":120,"description":"Jardín"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.lines, 2)
	require.Equal(t, "60", repo.lines[0].Amount.String())
}
