// Package http exposes the order, user and inventory workflows over a JSON
// API. Handlers decode input, call the service and write the service result
// as-is; the result's error code decides the HTTP status.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	inventoryapp "github.com/felixzhu97/orderflow/internal/inventory/application"
	orderapp "github.com/felixzhu97/orderflow/internal/order/application"
	orderdomain "github.com/felixzhu97/orderflow/internal/order/domain"
	userapp "github.com/felixzhu97/orderflow/internal/user/application"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/result"
	"github.com/felixzhu97/orderflow/pkg/session"
)

type Handler struct {
	log       *slog.Logger
	orders    *orderapp.Service
	users     *userapp.Service
	inventory *inventoryapp.Service
	sessions  *session.Store
	currency  string
	tracer    trace.Tracer
}

// NewHandler builds the API surface. sessions may be nil, in which case login
// succeeds without establishing a server-side session. currency is the single
// currency the deployment prices in; order items in any other currency are
// rejected at the edge.
func NewHandler(log *slog.Logger, orders *orderapp.Service, users *userapp.Service, inventory *inventoryapp.Service, sessions *session.Store, currency string) *Handler {
	return &Handler{
		log:       log,
		orders:    orders,
		users:     users,
		inventory: inventory,
		sessions:  sessions,
		currency:  currency,
		tracer:    otel.Tracer("orderflow-http"),
	}
}

// Routes builds the router. Extra middleware (idempotency, auth) is layered
// by the caller.
func (h *Handler) Routes(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)
		r.Patch("/orders/{id}/status", h.updateOrderStatus)

		r.Post("/users", h.register)
		r.Get("/users/{id}", h.getUser)
		r.Get("/users/{id}/orders", h.listUserOrders)
		r.Post("/users/{id}/verify-email", h.verifyEmail)
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)

		r.Get("/inventory/{productID}", h.getStock)
		r.Post("/inventory/adjustments", h.adjustInventory)
		r.Post("/inventory/stock-taking", h.stockTaking)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var in orderapp.CreateOrderInput
	if !decode(w, r, &in) {
		return
	}
	for _, item := range in.Items {
		if item.Currency != h.currency {
			writeJSON(w, http.StatusBadRequest, result.Fail[struct{}](apperr.CodeCurrencyMismatch,
				fmt.Sprintf("orders are priced in %s, got %s for product %s", h.currency, item.Currency, item.ProductID)))
			return
		}
	}
	writeResult(w, http.StatusCreated, h.orders.CreateOrder(ctx, in))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()
	writeResult(w, http.StatusOK, h.orders.GetOrder(ctx, chi.URLParam(r, "id")))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()
	writeResult(w, http.StatusOK, h.orders.CancelOrder(ctx, chi.URLParam(r, "id")))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var in struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusOK, h.orders.UpdateOrderStatus(ctx, chi.URLParam(r, "id"), orderdomain.Status(in.Status)))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RegisterUser")
	defer span.End()

	var in userapp.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusCreated, h.users.Register(ctx, in))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetUser")
	defer span.End()
	writeResult(w, http.StatusOK, h.users.GetUser(ctx, chi.URLParam(r, "id")))
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListUserOrders")
	defer span.End()
	writeResult(w, http.StatusOK, h.orders.ListUserOrders(ctx, chi.URLParam(r, "id")))
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "VerifyEmail")
	defer span.End()
	writeResult(w, http.StatusOK, h.users.VerifyEmail(ctx, chi.URLParam(r, "id")))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Authenticate")
	defer span.End()

	var in userapp.AuthenticateInput
	if !decode(w, r, &in) {
		return
	}

	res := h.users.Authenticate(ctx, in)
	if res.Success && h.sessions != nil {
		sid := uuid.NewString()
		if err := session.Set(ctx, h.sessions, sid, "user", res.Data); err != nil {
			h.log.Error("session write failed", "err", err)
		} else {
			w.Header().Set("X-Session-ID", sid)
		}
	}
	writeResult(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Logout")
	defer span.End()

	sid := r.Header.Get("X-Session-ID")
	if sid == "" {
		writeJSON(w, http.StatusBadRequest, result.Fail[struct{}](apperr.CodeValidation, "missing session id"))
		return
	}
	if h.sessions != nil {
		if err := h.sessions.ClearAll(ctx, sid); err != nil {
			h.log.Error("session clear failed", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, result.OK(struct{}{}))
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetStock")
	defer span.End()
	writeResult(w, http.StatusOK, h.inventory.GetStock(ctx, chi.URLParam(r, "productID")))
}

func (h *Handler) adjustInventory(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdjustInventory")
	defer span.End()

	var in inventoryapp.AdjustInput
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusOK, h.inventory.AdjustInventory(ctx, in))
}

func (h *Handler) stockTaking(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "StockTaking")
	defer span.End()

	var in struct {
		Entries []inventoryapp.CountEntry `json:"entries"`
	}
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusOK, h.inventory.StockTaking(ctx, in.Entries))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, result.Fail[struct{}](apperr.CodeValidation, "malformed request body"))
		return false
	}
	return true
}
