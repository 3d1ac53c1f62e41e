package inventory

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumbung-erp/lumbung-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

type itemPayload struct {
	Name     string `json:"name" validate:"required"`
	Stock    int    `json:"stock" validate:"gte=0"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
	Location string `json:"location" validate:"required"`
	User     string `json:"user"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload itemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body JSON tidak valid")
		return
	}
	if fields := h.validate(payload); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	item, err := h.service.Create(r.Context(), CreateInput{
		Name:     payload.Name,
		Stock:    payload.Stock,
		ImageURL: payload.ImageURL,
		Location: payload.Location,
		Actor:    actorOrDefault(payload.User),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload itemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body JSON tidak valid")
		return
	}
	if fields := h.validate(payload); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	item, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:     payload.Name,
		Stock:    payload.Stock,
		ImageURL: payload.ImageURL,
		Location: payload.Location,
		Actor:    actorOrDefault(payload.User),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id, actorOrDefault(r.URL.Query().Get("user"))); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validate(payload itemPayload) map[string]string {
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "item tidak ditemukan")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", "stok tidak mencukupi")
	default:
		h.logger.Error("inventory request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func actorOrDefault(user string) string {
	if user == "" {
		return "Admin"
	}
	return user
}
