package preorder

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumbung-erp/lumbung-erp/internal/platform/httpx"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
)

// Handler wires HTTP endpoints for pre-orders and the approval queue.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the pre-order handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers pre-order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Post("/submit", h.handleSubmit)
}

// MountApprovalRoutes registers the approval queue routes.
func (h *Handler) MountApprovalRoutes(r chi.Router) {
	r.Get("/", h.handlePendingGroups)
	r.Get("/{orderID}/history", h.handleApprovalHistory)
	r.Post("/{orderID}", h.handleDecide)
}

type createPayload struct {
	Company  string `json:"company" validate:"required"`
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Location string `json:"location" validate:"required,oneof=Jakarta Surabaya"`
	OrderID  string `json:"orderId"`
	User     string `json:"user"`
}

type submitPayload struct {
	IDs  []string `json:"ids" validate:"required,min=1"`
	User string   `json:"user"`
}

type decidePayload struct {
	Outcome Status `json:"outcome" validate:"required,oneof=Approved Rejected"`
	User    string `json:"user"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location != "" && !ValidLocation(location) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "lokasi tidak dikenal")
		return
	}
	orders, err := h.service.List(r.Context(), location)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body JSON tidak valid")
		return
	}
	if fields := h.validate(payload); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	order, err := h.service.Create(r.Context(), CreateInput{
		Company:  payload.Company,
		ItemID:   payload.ItemID,
		Quantity: payload.Quantity,
		Location: payload.Location,
		OrderID:  payload.OrderID,
		Actor:    actorOrDefault(payload.User),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body JSON tidak valid")
		return
	}
	if err := h.service.SubmitForApproval(r.Context(), payload.IDs, actorOrDefault(payload.User)); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePendingGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.PendingGroups(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) handleApprovalHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ApprovalHistory(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if logs == nil {
		logs = []shared.ApprovalLog{}
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	var payload decidePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body JSON tidak valid")
		return
	}
	if fields := h.validate(payload); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	if err := h.service.Decide(r.Context(), orderID, payload.Outcome, actorOrDefault(payload.User)); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "pre-order tidak ditemukan")
	case errors.Is(err, ErrEmptySelection):
		httpx.Problem(w, http.StatusBadRequest, "Empty Selection", "pilih minimal satu pre-order")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrGroupConflict):
		httpx.Problem(w, http.StatusConflict, "Group Conflict", "data grup pesanan tidak konsisten")
	case errors.Is(err, ErrUnknownItemReference):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Item", "item yang dirujuk tidak ditemukan")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("preorder request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func actorOrDefault(user string) string {
	if user == "" {
		return "Admin"
	}
	return user
}
