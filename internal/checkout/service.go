package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-commerce-bench/internal/catalog"
	"github.com/ariefcatur/go-commerce-bench/internal/identity"
	kafkax "github.com/ariefcatur/go-commerce-bench/internal/kafka"
	"github.com/ariefcatur/go-commerce-bench/internal/orders"
	"github.com/ariefcatur/go-commerce-bench/internal/redisx"
)

// CatalogStore is the slice of the catalog the engine needs: a batched
// read for validation/pricing and the atomic conditional decrement.
type CatalogStore interface {
	GetBySKUs(ctx context.Context, skus []string) (map[string]catalog.Product, error)
	ReserveAll(ctx context.Context, lines []catalog.ReserveLine) ([]bool, int, error)
}

// OrderLedger is the durable order store: insert once as PENDING, finalize
// exactly once to a terminal status.
type OrderLedger interface {
	Insert(ctx context.Context, o *orders.Order) error
	Finalize(ctx context.Context, id string, to orders.Status) error
}

// EventPublisher is the fire-and-forget event sink; *kafka.Producer
// implements it.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type CartLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Receipt summarizes one checkout attempt. ProcessingTimeMs is deliberately
// part of the payload: load-test tooling reads per-order cost from responses.
type Receipt struct {
	OrderID          string        `json:"id"`
	TotalCents       int64         `json:"total"`
	Status           orders.Status `json:"status"`
	Lines            []orders.Line `json:"items"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
}

type Engine struct {
	Catalog     CatalogStore
	Ledger      OrderLedger
	Producer    EventPublisher // optional, checkout.finalized events
	Redis       *redis.Client  // optional, status cache write-through
	Log         *zap.Logger
	ServiceName string
	SpinMs      int // simulated payment/processing cost
}

// CreateOrder runs the whole checkout: validate the cart against a stock
// snapshot, snapshot prices, persist the order as PENDING, then reserve stock
// with per-line conditional decrements and finalize PAID or FAILED.
//
// The validation read and the reservation write are intentionally not one
// atomic unit: a cart can pass the pre-check and still lose the race at
// reservation time. The conditional decrement alone guarantees stock never
// goes negative.
func (e *Engine) CreateOrder(ctx context.Context, owner identity.Owner, cart []CartLine, buyerEmail string) (*Receipt, error) {
	start := time.Now()

	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}
	skus := make([]string, 0, len(cart))
	for _, ln := range cart {
		if ln.Quantity <= 0 {
			return nil, &InvalidQuantityError{SKU: ln.SKU}
		}
		skus = append(skus, ln.SKU)
	}

	products, err := e.Catalog.GetBySKUs(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	// Dry run over the snapshot, in cart order, first violation wins.
	lines := make([]orders.Line, 0, len(cart))
	var total int64
	for _, ln := range cart {
		p, ok := products[ln.SKU]
		if !ok {
			return nil, &ItemNotFoundError{SKU: ln.SKU}
		}
		if p.Stock < ln.Quantity {
			return nil, &InsufficientStockError{SKU: ln.SKU}
		}
		lines = append(lines, orders.Line{SKU: ln.SKU, Quantity: ln.Quantity, PriceCents: p.PriceCents})
		total += p.PriceCents * int64(ln.Quantity)
	}

	// PENDING goes to the ledger before any stock moves. A crash past this
	// point leaves an order row as evidence, never a silent decrement.
	order := &orders.Order{
		ID:         uuid.NewString(),
		Owner:      owner,
		BuyerEmail: buyerEmail,
		Status:     orders.StatusPending,
		TotalCents: total,
		Lines:      lines,
	}
	if err := e.Ledger.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	e.spin()

	reserve := make([]catalog.ReserveLine, 0, len(lines))
	for _, ln := range lines {
		reserve = append(reserve, catalog.ReserveLine{SKU: ln.SKU, Qty: ln.Quantity})
	}
	_, n, err := e.Catalog.ReserveAll(ctx, reserve)
	if err != nil {
		// PENDING row stays behind for reconciliation, no retry here.
		return nil, fmt.Errorf("reserve stock: %w", err)
	}

	status := orders.StatusPaid
	if n != len(lines) {
		// Lost the race on at least one line. Winning decrements stay
		// applied; the order just fails as a whole.
		status = orders.StatusFailed
	}
	if err := e.Ledger.Finalize(ctx, order.ID, status); err != nil {
		return nil, fmt.Errorf("finalize order: %w", err)
	}

	elapsed := time.Since(start).Milliseconds()
	e.cacheStatus(ctx, order.ID, status, total)
	e.publishFinalized(order, status, elapsed)

	if status == orders.StatusFailed {
		if e.Log != nil {
			e.Log.Info("checkout lost reservation race",
				zap.String("order_id", order.ID), zap.Int("reserved", n), zap.Int("lines", len(lines)))
		}
		return nil, ErrStockConflict
	}

	return &Receipt{
		OrderID:          order.ID,
		TotalCents:       total,
		Status:           status,
		Lines:            lines,
		ProcessingTimeMs: elapsed,
	}, nil
}

// spin burns a fixed slice of CPU between the pending insert and the
// reservation, standing in for payment/inventory latency so every order has a
// deterministic per-request cost under profiling.
func (e *Engine) spin() {
	if e.SpinMs <= 0 {
		return
	}
	deadline := time.Now().Add(time.Duration(e.SpinMs) * time.Millisecond)
	for time.Now().Before(deadline) {
	}
}

func (e *Engine) cacheStatus(ctx context.Context, orderID string, status orders.Status, total int64) {
	if e.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	val := fmt.Sprintf(`{"status":%q,"total_cents":%d}`, status, total)
	_ = e.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err()
}

func (e *Engine) publishFinalized(o *orders.Order, status orders.Status, elapsedMs int64) {
	if e.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventCheckoutFinalized,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.ServiceName,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(FinalizedPayload{
			OrderID:      o.ID,
			OwnerID:      o.Owner.ID,
			Status:       string(status),
			TotalCents:   o.TotalCents,
			ProcessingMs: elapsedMs,
		}),
	}
	e.Producer.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventCheckoutFinalized)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
