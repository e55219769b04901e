package treasury

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/platform/httpx"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

// IntegrityEnqueuer schedules an asynchronous balance integrity check.
type IntegrityEnqueuer interface {
	EnqueueIntegrityCheck(ctx context.Context) (string, error)
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer IntegrityEnqueuer
}

func NewHandler(logger *slog.Logger, service *Service, enqueuer IntegrityEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

type createAccountRequest struct {
	Kind           string          `json:"tipo" validate:"required,oneof=bank cash"`
	Name           string          `json:"nombre" validate:"required"`
	Code           string          `json:"codigo" validate:"required"`
	InitialBalance decimal.Decimal `json:"saldoInicial"`
	CommunityID    *uuid.UUID      `json:"comunidadId"`
}

type movementRequest struct {
	AccountKind   string          `json:"cuentaTipo" validate:"required,oneof=bank cash"`
	AccountID     uuid.UUID       `json:"cuentaId" validate:"required"`
	Kind          string          `json:"tipo" validate:"required,oneof=Ingreso Gasto"`
	Amount        decimal.Decimal `json:"importe"`
	Description   string          `json:"descripcion" validate:"required"`
	Date          *time.Time      `json:"fecha"`
	PaymentMethod string          `json:"metodoPago"`
	SupplierID    *uuid.UUID      `json:"proveedorId"`
	CommunityID   *uuid.UUID      `json:"comunidadId"`
	Base          decimal.Decimal `json:"baseImponible"`
	VATRate       decimal.Decimal `json:"tipoIva"`
	VATQuota      decimal.Decimal `json:"cuotaIva"`
}

type transferRequest struct {
	SourceKind string          `json:"origenTipo" validate:"required,oneof=bank cash"`
	SourceID   uuid.UUID       `json:"origenId" validate:"required"`
	DestKind   string          `json:"destinoTipo" validate:"required,oneof=bank cash"`
	DestID     uuid.UUID       `json:"destinoId" validate:"required"`
	Amount     decimal.Decimal `json:"importe"`
	Concept    string          `json:"concepto"`
}

type adjustRequest struct {
	NewBalance decimal.Decimal `json:"saldoNuevo"`
	Reason     string          `json:"motivo" validate:"required"`
}

type deltaRequest struct {
	Kind   string          `json:"tipo" validate:"required,oneof=Ingreso Gasto"`
	Amount decimal.Decimal `json:"importe"`
	Reason string          `json:"motivo"`
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	scope, err := ParseScope(r.URL.Query().Get("comunidadId"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), shared.ActorFromContext(r.Context()), scope)
	if err != nil {
		h.fail(w, "treasury summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), shared.ActorFromContext(r.Context()), CreateAccountInput{
		Kind:           AccountKind(req.Kind),
		Name:           req.Name,
		Code:           req.Code,
		InitialBalance: req.InitialBalance,
		CommunityID:    req.CommunityID,
	})
	if err != nil {
		h.fail(w, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) RegisterMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := MovementInput{
		Account:       AccountRef{Kind: AccountKind(req.AccountKind), ID: req.AccountID},
		Amount:        req.Amount,
		MovementKind:  movements.Kind(req.Kind),
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		SupplierID:    req.SupplierID,
		CommunityID:   req.CommunityID,
		Base:          req.Base,
		VATRate:       req.VATRate,
		VATQuota:      req.VATQuota,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	line, err := h.service.RegisterMovement(r.Context(), shared.ActorFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, "register movement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Transfer(r.Context(), shared.ActorFromContext(r.Context()), TransferInput{
		Source:  AccountRef{Kind: AccountKind(req.SourceKind), ID: req.SourceID},
		Dest:    AccountRef{Kind: AccountKind(req.DestKind), ID: req.DestID},
		Amount:  req.Amount,
		Concept: req.Concept,
	})
	if err != nil {
		h.fail(w, "transfer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.accountRef(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	adj, err := h.service.AdjustBalance(r.Context(), shared.ActorFromContext(r.Context()), AdjustInput{
		Account:    ref,
		NewBalance: req.NewBalance,
		Reason:     req.Reason,
	})
	if err != nil {
		h.fail(w, "adjust balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (h *Handler) Delta(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.accountRef(w, r)
	if !ok {
		return
	}
	var req deltaRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.service.ApplyBalanceDelta(r.Context(), shared.ActorFromContext(r.Context()), DeltaInput{
		Account:      ref,
		Amount:       req.Amount,
		MovementKind: movements.Kind(req.Kind),
		Reason:       req.Reason,
	})
	if err != nil {
		h.fail(w, "apply balance delta", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"saldoActual": balance})
}

func (h *Handler) IntegrityCheck(w http.ResponseWriter, r *http.Request) {
	if err := shared.ActorFromContext(r.Context()).RequireTreasury("integrity check"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Unavailable", "integrity check queue not configured")
		return
	}
	id, err := h.enqueuer.EnqueueIntegrityCheck(r.Context())
	if err != nil {
		h.logger.Error("enqueue integrity check", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"taskId": id})
}

func (h *Handler) accountRef(w http.ResponseWriter, r *http.Request) (AccountRef, bool) {
	kind, err := ParseAccountKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, err)
		return AccountRef{}, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return AccountRef{}, false
	}
	return AccountRef{Kind: kind, ID: id}, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
