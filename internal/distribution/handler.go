package distribution

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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

type distributeRequest struct {
	CommunityID    uuid.UUID       `json:"communityId" validate:"required"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Description    string          `json:"description" validate:"required"`
	CounterpartyID *uuid.UUID      `json:"counterpartyId"`
}

type distributeResponse struct {
	Count    int             `json:"count"`
	BatchID  uuid.UUID       `json:"batchId"`
	Residual decimal.Decimal `json:"residual"`
}

type recalculateRequest struct {
	Key         string          `json:"description" validate:"required"`
	SupplierID  *uuid.UUID      `json:"proveedorId"`
	CommunityID uuid.UUID       `json:"communityId" validate:"required"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.DistributeExpense(r.Context(), shared.ActorFromContext(r.Context()), DistributeInput{
		CommunityID:    req.CommunityID,
		TotalAmount:    req.TotalAmount,
		Description:    req.Description,
		CounterpartyID: req.CounterpartyID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.logger.Error("distribute expense", slog.Any("error", err), slog.String("community_id", req.CommunityID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, distributeResponse{Count: res.Count, BatchID: res.BatchID, Residual: res.Residual})
}

func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req recalculateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.RecalculateDistribution(r.Context(), shared.ActorFromContext(r.Context()), RecalculateInput{
		Key:         req.Key,
		SupplierID:  req.SupplierID,
		CommunityID: req.CommunityID,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		h.logger.Error("recalculate distribution", slog.Any("error", err), slog.String("key", req.Key))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
