package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/go-commerce-bench/internal/catalog"
	"github.com/ariefcatur/go-commerce-bench/internal/identity"
	"github.com/ariefcatur/go-commerce-bench/internal/orders"
)

// fakeCatalog keeps stock in memory; ReserveAll applies the same
// decrement-if-at-least rule as the SQL store, one line at a time under a
// lock, so concurrent engine calls observe a linear sequence of stock values.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]catalog.Product
}

func newFakeCatalog(ps ...catalog.Product) *fakeCatalog {
	m := make(map[string]catalog.Product, len(ps))
	for _, p := range ps {
		m[p.SKU] = p
	}
	return &fakeCatalog{products: m}
}

func (f *fakeCatalog) GetBySKUs(_ context.Context, skus []string) (map[string]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]catalog.Product, len(skus))
	for _, sku := range skus {
		if p, ok := f.products[sku]; ok {
			out[sku] = p
		}
	}
	return out, nil
}

func (f *fakeCatalog) ReserveAll(_ context.Context, lines []catalog.ReserveLine) ([]bool, int, error) {
	reserved := make([]bool, len(lines))
	n := 0
	for i, ln := range lines {
		f.mu.Lock()
		p := f.products[ln.SKU]
		if p.Stock >= ln.Qty {
			p.Stock -= ln.Qty
			f.products[ln.SKU] = p
			reserved[i] = true
			n++
		}
		f.mu.Unlock()
	}
	return reserved, n, nil
}

func (f *fakeCatalog) stock(sku string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[sku].Stock
}

func (f *fakeCatalog) setPrice(sku string, cents int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[sku]
	p.PriceCents = cents
	f.products[sku] = p
}

type fakeLedger struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{orders: map[string]*orders.Order{}}
}

func (f *fakeLedger) Insert(_ context.Context, o *orders.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	cp.Lines = append([]orders.Line(nil), o.Lines...)
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeLedger) Finalize(_ context.Context, id string, to orders.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	if !orders.CanTransition(o.Status, to) {
		return orders.ErrNotPending
	}
	o.Status = to
	return nil
}

func (f *fakeLedger) get(id string) *orders.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func newEngine(c CatalogStore, l OrderLedger) *Engine {
	return &Engine{Catalog: c, Ledger: l, ServiceName: "test"}
}

var owner = identity.Owner{ID: "cand-1", LegacyName: "alice"}

func TestCreateOrderPaid(t *testing.T) {
	cat := newFakeCatalog(catalog.Product{SKU: "A", PriceCents: 1000, Stock: 5})
	led := newFakeLedger()
	e := newEngine(cat, led)

	r, err := e.CreateOrder(context.Background(), owner, []CartLine{{SKU: "A", Quantity: 2}}, "a@b.c")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if r.Status != orders.StatusPaid {
		t.Errorf("expected status %s, got %s", orders.StatusPaid, r.Status)
	}
	if r.TotalCents != 2000 {
		t.Errorf("expected total 2000, got %d", r.TotalCents)
	}
	if got := cat.stock("A"); got != 3 {
		t.Errorf("expected stock 3, got %d", got)
	}
	o := led.get(r.OrderID)
	if o == nil {
		t.Fatal("order not persisted")
	}
	if o.Status != orders.StatusPaid {
		t.Errorf("expected persisted status %s, got %s", orders.StatusPaid, o.Status)
	}
	if len(o.Lines) != 1 || o.Lines[0].PriceCents != 1000 {
		t.Errorf("unexpected lines: %+v", o.Lines)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	led := newFakeLedger()
	e := newEngine(newFakeCatalog(), led)

	_, err := e.CreateOrder(context.Background(), owner, nil, "")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got: %v", err)
	}
	if led.count() != 0 {
		t.Error("empty cart must not be persisted")
	}
}

func TestCreateOrderInvalidQuantity(t *testing.T) {
	cat := newFakeCatalog(catalog.Product{SKU: "A", PriceCents: 100, Stock: 5})
	led := newFakeLedger()
	e := newEngine(cat, led)

	_, err := e.CreateOrder(context.Background(), owner, []CartLine{{SKU: "A", Quantity: 0}}, "")
	var badQty *InvalidQuantityError
	if !errors.As(err, &badQty) {
		t.Fatalf("expected InvalidQuantityError, got: %v", err)
	}
	if led.count() != 0 {
		t.Error("invalid cart must not be persisted")
	}
}

func TestCreateOrderUnknownSKU(t *testing.T) {
	cat := newFakeCatalog(catalog.Product{SKU: "A", PriceCents: 100, Stock: 5})
	led := newFakeLedger()
	e := newEngine(cat, led)

	_, err := e.CreateOrder(context.Background(), owner, []CartLine{
		{SKU: "A", Quantity: 1},
		{SKU: "B", Quantity: 1},
	}, "")
	var notFound *ItemNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ItemNotFoundError, got: %v", err)
	}
	if notFound.SKU != "B" {
		t.Errorf("expected error to name B, got %s", notFound.SKU)
	}
	if led.count() != 0 {
		t.Error("no order must be persisted")
	}
	if got := cat.stock("A"); got != 5 {
		t.Errorf("A must be untouched, stock = %d", got)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	cat := newFakeCatalog(catalog.Product{SKU: "A", PriceCents: 100, Stock: 1})
	led := newFakeLedger()
	e := newEngine(cat, led)

	_, err := e.CreateOrder(context.Background(), owner, []CartLine{{SKU: "A", Quantity: 2}}, "")
	var out *InsufficientStockError
	if !errors.As(err, &out) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if out.SKU != "A" {
		t.Errorf("expected error to name A, got %s", out.SKU)
	}
	if led.count() != 0 {
		t.Error("pre-check failure must not be persisted")
	}
	if got := cat.stock("A"); got != 1 {
		t.Errorf("stock must be untouched, got %d", got)
	}
}

// staleCatalog reports more stock at validation time than ReserveAll will
// grant, simulating a competitor draining stock between the dry run and the
// conditional decrement.
type staleCatalog struct {
	*fakeCatalog
	reported int
}

func (s *staleCatalog) GetBySKUs(ctx context.Context, skus []string) (map[string]catalog.Product, error) {
	out, err := s.fakeCatalog.GetBySKUs(ctx, skus)
	for sku, p := range out {
		p.Stock = s.reported
		out[sku] = p
	}
	return out, err
}

func TestReservationConflictPersistsFailedOrder(t *testing.T) {
	cat := &staleCatalog{
		fakeCatalog: newFakeCatalog(catalog.Product{SKU: "A", PriceCents: 100, Stock: 0}),
		reported:    3,
	}
	led := newFakeLedger()
	e := newEngine(cat, led)

	_, err := e.CreateOrder(context.Background(), owner, []CartLine{{SKU: "A", Quantity: 1}}, "")
	if !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict, got: %v", err)
	}
	if led.count() != 1 {
		t.Fatalf("expected exactly one persisted order, got %d", led.count())
	}
	for _, o := range led.orders {
		if o.Status != orders.StatusFailed {
			t.Errorf("expected FAILED order, got %s", o.Status)
		}
	}
}

func TestPartialReservationKeepsWinningDecrements(t *testing.T) {
	cat := &staleCatalog{
		fakeCatalog: newFakeCatalog(
			catalog.Product{SKU: "A", PriceCents: 100, Stock: 5},
			catalog.Product{SKU: "B", PriceCents: 100, Stock: 0},
		),
		reported: 5,
	}
	led := newFakeLedger()
	e := newEngine(cat, led)

	_, err := e.CreateOrder(context.Background(), owner, []CartLine{
		{SKU: "A", Quantity: 2},
		{SKU: "B", Quantity: 1},
	}, "")
	if !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict, got: %v", err)
	}
	// A's decrement stays applied, by design: no compensation.
	if got := cat.stock("A"); got != 3 {
		t.Errorf("expected A stock 3 after partial failure, got %d", got)
	}
	for _, o := range led.orders {
		if o.Status != orders.StatusFailed {
			t.Errorf("expected FAILED order, got %s", o.Status)
		}
	}
}

func TestPriceImmutabilityAfterRepricing(t *testing.T) {
	cat := newFakeCatalog(catalog.Product{SKU: "A", PriceCents: 1000, Stock: 5})
	led := newFakeLedger()
	e := newEngine(cat, led)

	r, err := e.CreateOrder(context.Background(), owner, []CartLine{{SKU: "A", Quantity: 2}}, "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	cat.setPrice("A", 99999)

	o := led.get(r.OrderID)
	if o.TotalCents != 2000 {
		t.Errorf("stored total changed after repricing: %d", o.TotalCents)
	}
	if o.Lines[0].PriceCents != 1000 {
		t.Errorf("stored line price changed after repricing: %d", o.Lines[0].PriceCents)
	}
}

func TestConcurrentLastUnit(t *testing.T) {
	cat := newFakeCatalog(catalog.Product{SKU: "A", PriceCents: 100, Stock: 1})
	led := newFakeLedger()

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := newEngine(cat, led)
			_, err := e.CreateOrder(context.Background(), owner, []CartLine{{SKU: "A", Quantity: 1}}, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	paid := 0
	for err := range results {
		if err == nil {
			paid++
			continue
		}
		var out *InsufficientStockError
		if !errors.Is(err, ErrStockConflict) && !errors.As(err, &out) {
			t.Errorf("unexpected error kind: %v", err)
		}
	}
	if paid != 1 {
		t.Errorf("expected exactly one PAID checkout, got %d", paid)
	}
	if got := cat.stock("A"); got != 0 {
		t.Errorf("expected final stock 0, got %d", got)
	}
}

func TestConcurrentStockNeverNegative(t *testing.T) {
	cat := newFakeCatalog(catalog.Product{SKU: "A", PriceCents: 100, Stock: 5})
	led := newFakeLedger()

	const n = 20
	var wg sync.WaitGroup
	paid := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := newEngine(cat, led)
			if _, err := e.CreateOrder(context.Background(), owner, []CartLine{{SKU: "A", Quantity: 1}}, ""); err == nil {
				paid <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(paid)

	if got := len(paid); got != 5 {
		t.Errorf("expected 5 successful checkouts, got %d", got)
	}
	if got := cat.stock("A"); got != 0 {
		t.Errorf("expected final stock 0, got %d", got)
	}
}
