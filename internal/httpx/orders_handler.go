package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-commerce-bench/internal/checkout"
	"github.com/ariefcatur/go-commerce-bench/internal/identity"
	"github.com/ariefcatur/go-commerce-bench/internal/metrics"
	"github.com/ariefcatur/go-commerce-bench/internal/orders"
	"github.com/ariefcatur/go-commerce-bench/internal/redisx"
)

// OrderReader is the read side of the ledger consumed by the listing
// endpoints.
type OrderReader interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
	List(ctx context.Context, q orders.ListQuery) ([]orders.Order, int, error)
}

type OrdersHandler struct {
	Engine  *checkout.Engine
	Orders  OrderReader
	Redis   *redis.Client // optional status cache
	Metrics *metrics.Checkout
}

type createOrderReq struct {
	Items      []checkout.CartLine `json:"items"`
	BuyerEmail string              `json:"buyerEmail,omitempty"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := identity.FromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	receipt, err := h.Engine.CreateOrder(ctx, p.Owner(), req.Items, req.BuyerEmail)
	status := "rejected"
	if receipt != nil {
		status = string(receipt.Status)
	} else if errors.Is(err, checkout.ErrStockConflict) {
		status = string(orders.StatusFailed)
	}
	h.Metrics.Observe(status, time.Since(start).Milliseconds())

	if err != nil {
		writeErr(w, checkoutStatusCode(err), err.Error())
		return
	}
	writeData(w, http.StatusOK, receipt)
}

// checkoutStatusCode maps the engine's error taxonomy onto HTTP codes:
// 400 invalid cart, 404 unknown sku, 409 stock (pre-check or race), 500 rest.
func checkoutStatusCode(err error) int {
	var notFound *checkout.ItemNotFoundError
	var outOfStock *checkout.InsufficientStockError
	var badQty *checkout.InvalidQuantityError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart), errors.As(err, &badQty):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &outOfStock), errors.Is(err, checkout.ErrStockConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	page, pageSize := parsePage(r)
	status := orders.Status(strings.ToUpper(r.URL.Query().Get("status")))
	if status != "" && !orders.ValidStatus(status) {
		writeErr(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	q := orders.ListQuery{
		Owner:    p.Owner(),
		AllOwner: p.Admin,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, total, err := h.Orders.List(ctx, q)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	writeData(w, http.StatusOK, paginated{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if !p.Admin && o.Owner.ID != p.ID && o.Owner.LegacyName != p.Username {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	writeData(w, http.StatusOK, o)
}

// getOrderStatus is the hot read path for load tests: Redis first, DB
// fallback with a cache refill.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeData(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	body := fmt.Sprintf(`{"status":%q,"total_cents":%d}`, o.Status, o.TotalCents)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	writeData(w, http.StatusOK, json.RawMessage(body))
}
