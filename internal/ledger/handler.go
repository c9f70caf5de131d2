package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/platform/httpx"
	"github.com/atlas-ops/atlas-ops/internal/shared"
)

// Handler serves the progress-reporting API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders/{id}/progress", h.Report)
	r.Get("/orders/{id}/progress", h.List)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	var req ReportProgressRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.Report(r.Context(), ReportInput{
		OrderID:   orderID,
		Line:      orders.LineRef{Kind: orders.LineKind(req.LineKind), ID: req.LineID},
		Quantity:  req.Quantity,
		Note:      req.Note,
		RequestID: req.RequestID,
		ActorID:   req.ActorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "work order not found")
		case errors.Is(err, shared.ErrIdempotencyConflict):
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
		case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrUnknownLine), errors.Is(err, ErrOverExecution):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
		default:
			h.logger.Error("report progress failed", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	entries, err := h.service.ListForOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list progress failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
