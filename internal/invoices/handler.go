package invoices

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

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

type deleteRequest struct {
	Description string     `json:"description" validate:"required"`
	SupplierID  *uuid.UUID `json:"proveedorId"`
	CommunityID *uuid.UUID `json:"comunidadId"`
}

type deleteOfficeRequest struct {
	Description string `json:"descripcion" validate:"required"`
}

func (h *Handler) ListBySupplier(w http.ResponseWriter, r *http.Request) {
	supplierID, err := uuid.Parse(chi.URLParam(r, "supplierID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	groups, err := h.service.GroupByProvider(r.Context(), shared.ActorFromContext(r.Context()), supplierID)
	if err != nil {
		h.fail(w, "group supplier invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) ListByCommunity(w http.ResponseWriter, r *http.Request) {
	communityID, year, ok := h.communityYear(w, r)
	if !ok {
		return
	}
	groups, err := h.service.GroupByCommunityAndYear(r.Context(), shared.ActorFromContext(r.Context()), communityID, year)
	if err != nil {
		h.fail(w, "group community invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	communityID, year, ok := h.communityYear(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Export(r.Context(), shared.ActorFromContext(r.Context()), communityID, year)
	if err != nil {
		h.fail(w, "export invoices", err)
		return
	}
	name := "libro-iva-" + strconv.Itoa(year)
	switch r.URL.Query().Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
		if err := WriteXLSX(w, rows); err != nil {
			h.logger.Error("write xlsx", slog.Any("error", err))
		}
	case "", "csv":
		locale := r.URL.Query().Get("locale")
		if _, err := newCSVFormat(locale); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		if err := WriteCSV(w, rows, locale); err != nil {
			h.logger.Error("write csv", slog.Any("error", err))
		}
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "format must be csv or xlsx")
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.delete(w, r, DeleteInput{Key: req.Description, SupplierID: req.SupplierID, CommunityID: req.CommunityID})
}

func (h *Handler) DeleteOffice(w http.ResponseWriter, r *http.Request) {
	var req deleteOfficeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.delete(w, r, DeleteInput{Key: req.Description})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, in DeleteInput) {
	result, err := h.service.DeleteInvoiceGroup(r.Context(), shared.ActorFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, "delete invoice group", err)
		return
	}
	h.logger.Info("invoice group deleted", slog.String("key", in.Key), slog.Int64("deleted", result.Deleted), slog.Bool("fallback", result.Fallback))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) communityYear(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, bool) {
	communityID, err := uuid.Parse(chi.URLParam(r, "communityID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid community id")
		return uuid.Nil, 0, false
	}
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
			return uuid.Nil, 0, false
		}
	}
	return communityID, year, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
