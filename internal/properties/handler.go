package properties

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/llauna/administracionFincas-sub000/internal/platform/httpx"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type listResponse struct {
	Properties       []Property `json:"properties"`
	CoefficientTotal string     `json:"coefficientTotal"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if err := actor.RequireIdentified("list properties"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	communityID, err := uuid.Parse(chi.URLParam(r, "communityID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid community id")
		return
	}
	props, err := h.service.ListForCommunity(r.Context(), communityID)
	if err != nil {
		h.logger.Error("list properties", slog.Any("error", err), slog.String("community_id", communityID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Properties:       props,
		CoefficientTotal: CoefficientTotal(props).StringFixed(4),
	})
}
