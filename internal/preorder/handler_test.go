package preorder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
	"github.com/lumbung-erp/lumbung-erp/internal/store"
)

func newTestRouter(t *testing.T) (chi.Router, inventory.Item) {
	t.Helper()
	items := inventory.NewService(inventory.NewRepository(store.NewMemory()), nil, nil)
	item, err := items.Create(context.Background(), inventory.CreateInput{Name: "Wireless Mouse", Stock: 120, Location: "R1B1T1"})
	require.NoError(t, err)

	svc := NewService(NewRepository(store.NewMemory()), items, nil, nil, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc)

	r := chi.NewRouter()
	r.Route("/pre-orders", handler.MountRoutes)
	r.Route("/approvals", handler.MountApprovalRoutes)
	return r, item
}

func TestHandlerCreateAndApprovalFlow(t *testing.T) {
	r, item := newTestRouter(t)

	body := `{"company":"PT Maju Jaya","itemId":"` + item.ID + `","quantity":2,"location":"Jakarta"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/pre-orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var created PreOrder
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "PO-001", created.OrderID)
	require.Equal(t, StatusAwaitingApproval, created.Status)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/pre-orders/submit", strings.NewReader(`{"ids":["`+created.ID+`"]}`)))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/approvals", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var groups []Group
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	require.Equal(t, "PO-001", groups[0].OrderID)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/approvals/PO-001", strings.NewReader(`{"outcome":"Approved","user":"Manager"}`)))
	require.Equal(t, http.StatusNoContent, rr.Code)

	// deciding twice hits a terminal state
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/approvals/PO-001", strings.NewReader(`{"outcome":"Rejected","user":"Manager"}`)))
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	r, item := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/pre-orders", strings.NewReader(`{"company":"X","itemId":"`+item.ID+`","quantity":1,"location":"Bandung"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/pre-orders", strings.NewReader(`{"company":"X","itemId":"missing","quantity":1,"location":"Jakarta"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pre-orders?location=Bandung", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/pre-orders/submit", strings.NewReader(`{"ids":[]}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerServesApprovalHistory(t *testing.T) {
	items := inventory.NewService(inventory.NewRepository(store.NewMemory()), nil, nil)
	item, err := items.Create(context.Background(), inventory.CreateInput{Name: "Wireless Mouse", Stock: 120, Location: "R1B1T1"})
	require.NoError(t, err)

	svc := NewService(NewRepository(store.NewMemory()), items, &memoryApprovals{}, nil, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc)
	r := chi.NewRouter()
	r.Route("/pre-orders", handler.MountRoutes)
	r.Route("/approvals", handler.MountApprovalRoutes)

	body := `{"company":"PT Maju Jaya","itemId":"` + item.ID + `","quantity":2,"location":"Jakarta"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/pre-orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var created PreOrder
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/pre-orders/submit", strings.NewReader(`{"ids":["`+created.ID+`"]}`)))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/approvals/"+created.OrderID, strings.NewReader(`{"outcome":"Approved"}`)))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/approvals/"+created.OrderID+"/history", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var history []shared.ApprovalLog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history, 2)
	require.Equal(t, shared.ApprovalSubmit, history[0].Action)
	require.Equal(t, shared.ApprovalApprove, history[1].Action)

	// history of an unknown ref is an empty trail, not an error
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/approvals/PO-999/history", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())
}
