package cuts

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/platform/httpx"
	"github.com/atlas-ops/atlas-ops/internal/shared"
)

// Handler serves the billing-cut API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	preview  singleflight.Group
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches cut routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders/{id}/cuts/preview", h.Preview)
	r.Post("/orders/{id}/cuts", h.Create)
	r.Get("/orders/{id}/cuts", h.List)
	r.Get("/cuts/{id}", h.Show)
	r.Post("/cuts/{id}/status", h.UpdateStatus)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	period, err := parsePeriod(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	// Concurrent previews for the same order and window collapse into
	// one computation; the result is advisory either way.
	key := fmt.Sprintf("%d:%s:%s", orderID, r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	v, err, _ := h.preview.Do(key, func() (interface{}, error) {
		return h.service.Preview(r.Context(), orderID, period)
	})
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "work order not found")
			return
		}
		h.logger.Error("preview cut failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suggestions": v})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	var req CreateCutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	period, err := shared.NewPeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateCutInput{
		OrderID:    orderID,
		Period:     period,
		SpawnChild: req.SpawnChild == nil || *req.SpawnChild,
		ActorID:    req.ActorID,
		RequestID:  req.RequestID,
	}
	for _, d := range req.Details {
		input.Details = append(input.Details, CutDetailInput{
			Line:     orders.LineRef{Kind: orders.LineKind(d.LineKind), ID: d.LineID},
			Quantity: d.Quantity,
		})
	}

	result, err := h.service.CreateCut(r.Context(), input)
	if err != nil {
		h.respondCutError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	cutID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid cut id")
		return
	}
	result, err := h.service.GetCut(r.Context(), cutID)
	if err != nil {
		if errors.Is(err, ErrCutNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "cut not found")
			return
		}
		h.logger.Error("get cut failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	results, err := h.service.ListCuts(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "work order not found")
			return
		}
		h.logger.Error("list cuts failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cuts": results})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	cutID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid cut id")
		return
	}

	var req UpdateCutStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.UpdateStatus(r.Context(), cutID, CutStatus(req.Status), req.ActorID)
	if err != nil {
		if errors.Is(err, ErrCutNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "cut not found")
			return
		}
		h.respondCutError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondCutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "work order not found")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case IsValidationError(err):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("cut operation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parsePeriod(start, end string) (shared.Period, error) {
	var startPtr, endPtr *time.Time
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return shared.Period{}, fmt.Errorf("invalid start date %q", start)
		}
		startPtr = &t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return shared.Period{}, fmt.Errorf("invalid end date %q", end)
		}
		// End of day so the window is inclusive.
		t = t.Add(24*time.Hour - time.Nanosecond)
		endPtr = &t
	}
	return shared.NewPeriod(startPtr, endPtr)
}
