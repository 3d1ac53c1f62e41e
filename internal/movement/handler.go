package movement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/platform/httpx"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
)

// Handler wires HTTP endpoints for stock movements and the history view.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the movement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock-in", func(r chi.Router) {
		r.Get("/", h.handleListIn)
		r.Post("/", h.handleStockIn)
	})
	r.Route("/stock-out", func(r chi.Router) {
		r.Get("/", h.handleListOut)
		r.Post("/", h.handleStockOut)
	})
	r.Get("/history", h.handleHistory)
}

type stockInPayload struct {
	ItemID      string `json:"itemId" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	Supplier    string `json:"supplier" validate:"required"`
	User        string `json:"user"`
	ClientToken string `json:"clientToken"`
}

type stockOutPayload struct {
	ItemID      string `json:"itemId" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	Destination string `json:"destination"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=Pending Approved Rejected"`
	User        string `json:"user"`
	ClientToken string `json:"clientToken"`
}

func (h *Handler) handleListIn(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListByType(r.Context(), TypeIn)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txs)
}

func (h *Handler) handleListOut(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListByType(r.Context(), TypeOut)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txs)
}

func (h *Handler) handleStockIn(w http.ResponseWriter, r *http.Request) {
	var payload stockInPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body JSON tidak valid")
		return
	}
	if fields := h.validate(payload); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	tx, err := h.service.StockIn(r.Context(), StockInInput{
		ItemID:      payload.ItemID,
		Quantity:    payload.Quantity,
		Supplier:    payload.Supplier,
		User:        userOrDefault(payload.User),
		ClientToken: payload.ClientToken,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) handleStockOut(w http.ResponseWriter, r *http.Request) {
	var payload stockOutPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body JSON tidak valid")
		return
	}
	if fields := h.validate(payload); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	tx, err := h.service.StockOut(r.Context(), StockOutInput{
		ItemID:      payload.ItemID,
		Quantity:    payload.Quantity,
		Destination: payload.Destination,
		Description: payload.Description,
		Status:      ApprovalStatus(payload.Status),
		User:        userOrDefault(payload.User),
		ClientToken: payload.ClientToken,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	txs, active, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("X-Active-Filters", strconv.Itoa(active))
	httpx.JSON(w, http.StatusOK, txs)
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		Item:     q.Get("item"),
		Location: q.Get("location"),
		Source:   q.Get("source"),
		User:     q.Get("user"),
	}
	if from := q.Get("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			return Filter{}, errors.New("tanggal mulai tidak valid")
		}
		filter.From = parsed
	}
	if to := q.Get("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			return Filter{}, errors.New("tanggal akhir tidak valid")
		}
		filter.To = parsed
	}
	return filter, nil
}

func (h *Handler) validate(payload any) map[string]string {
	err := h.validator.Struct(payload)
	if err == nil {
		return nil
	}
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return fields
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnknownItemReference):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Item", "item yang dirujuk tidak ditemukan")
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrDuplicateSubmission):
		httpx.Problem(w, http.StatusConflict, "Duplicate Submission", "formulir sudah diproses")
	case errors.Is(err, inventory.ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", "stok tidak mencukupi")
	default:
		h.logger.Error("movement request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func userOrDefault(user string) string {
	if user == "" {
		return "Admin"
	}
	return user
}
