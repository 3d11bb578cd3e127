package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Engine executes transactions against a Store. All mutating operations are
// serialized by a single mutex whose critical section spans the whole
// load -> validate -> mutate -> save cycle, so every mutation observes the
// result of all previously committed mutations and stock can never be
// oversubscribed. Read-only operations load without the lock and may see a
// snapshot that a concurrent mutation is about to supersede.
type Engine struct {
	mu    sync.Mutex
	store Store
	log   *zap.Logger
}

// NewEngine creates an engine over the given store. A nil logger disables
// engine logging.
func NewEngine(store Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

// AddProduct registers a new product and returns it with its assigned id.
// The name must be non-empty after trimming and unique in the catalog
// (case-insensitive), the unit price positive and the stock non-negative.
func (e *Engine) AddProduct(ctx context.Context, name, description string, unitPrice float64, stock int) (Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.store.Load(ctx)
	if err != nil {
		return Product{}, fmt.Errorf("load snapshot: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, &ValidationError{Reason: "product name cannot be empty"}
	}
	if unitPrice <= 0 {
		return Product{}, &ValidationError{Reason: "unit price must be greater than zero"}
	}
	if stock < 0 {
		return Product{}, &ValidationError{Reason: "stock quantity cannot be negative"}
	}
	if snap.productNamed(name) {
		return Product{}, &ValidationError{Reason: fmt.Sprintf("product %q already exists", name)}
	}

	p := Product{
		ID:          snap.nextProductID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		UnitPrice:   unitPrice,
		Stock:       stock,
	}
	snap.Products = append(snap.Products, p)

	if err := e.save(ctx, snap); err != nil {
		return Product{}, err
	}
	e.log.Debug("product added", zap.Int("id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// PlaceOrder creates an active order for the given product and decrements
// its stock, both in one transaction. The product name and unit price are
// frozen onto the order. An empty description defaults to
// "ordered <quantity>x <name>".
func (e *Engine) PlaceOrder(ctx context.Context, productID, quantity int, description string) (Order, error) {
	// Depends on no shared state, so it can run before taking the lock.
	if quantity <= 0 {
		return Order{}, &ValidationError{Reason: "quantity must be greater than zero"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.store.Load(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("load snapshot: %w", err)
	}

	p := snap.product(productID)
	if p == nil {
		return Order{}, &NotFoundError{Kind: "product", ID: productID}
	}
	if p.Stock == 0 {
		return Order{}, &OutOfStockError{Product: p.Name}
	}
	if quantity > p.Stock {
		return Order{}, &InsufficientStockError{Product: p.Name, Requested: quantity, Available: p.Stock}
	}

	if description == "" {
		description = fmt.Sprintf("ordered %dx %s", quantity, p.Name)
	}
	o := Order{
		ID:          snap.nextOrderID(),
		ProductID:   p.ID,
		ProductName: p.Name,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   p.UnitPrice,
		Total:       float64(quantity) * p.UnitPrice,
		PlacedAt:    time.Now(),
		Status:      StatusActive,
	}
	snap.Orders = append(snap.Orders, o)
	p.Stock -= quantity

	if err := e.save(ctx, snap); err != nil {
		return Order{}, err
	}
	e.log.Debug("order placed",
		zap.Int("order", o.ID),
		zap.Int("product", p.ID),
		zap.Int("quantity", quantity),
		zap.Int("stock_left", p.Stock))
	return o, nil
}

// CancelOrder flips an active order to cancelled and restores its quantity
// onto the referenced product's stock. Cancelling an already cancelled
// order fails; the transition is one-way and happens at most once.
func (e *Engine) CancelOrder(ctx context.Context, orderID int) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.store.Load(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("load snapshot: %w", err)
	}

	o := snap.order(orderID)
	if o == nil {
		return Order{}, &NotFoundError{Kind: "order", ID: orderID}
	}
	if o.Status != StatusActive {
		return Order{}, &AlreadyCancelledError{OrderID: orderID}
	}

	o.Status = StatusCancelled
	// Restoration uses the quantity frozen on the order. Products are never
	// deleted, so the lookup only misses on a corrupted store.
	if p := snap.product(o.ProductID); p != nil {
		p.Stock += o.Quantity
	}

	if err := e.save(ctx, snap); err != nil {
		return Order{}, err
	}
	e.log.Debug("order cancelled", zap.Int("order", o.ID), zap.Int("product", o.ProductID))
	return *o, nil
}

// AdjustStock sets a product's stock to an absolute quantity.
func (e *Engine) AdjustStock(ctx context.Context, productID, quantity int) (Product, error) {
	if quantity < 0 {
		return Product{}, &ValidationError{Reason: "stock quantity cannot be negative"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.store.Load(ctx)
	if err != nil {
		return Product{}, fmt.Errorf("load snapshot: %w", err)
	}

	p := snap.product(productID)
	if p == nil {
		return Product{}, &NotFoundError{Kind: "product", ID: productID}
	}
	p.Stock = quantity

	if err := e.save(ctx, snap); err != nil {
		return Product{}, err
	}
	e.log.Debug("stock adjusted", zap.Int("product", p.ID), zap.Int("stock", quantity))
	return *p, nil
}

// ListAvailable returns the products with stock greater than zero.
func (e *Engine) ListAvailable(ctx context.Context) ([]Product, error) {
	snap, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	out := make([]Product, 0, len(snap.Products))
	for _, p := range snap.Products {
		if p.Stock > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListOrders returns the order ledger, optionally filtered to active orders.
func (e *Engine) ListOrders(ctx context.Context, activeOnly bool) ([]Order, error) {
	snap, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if !activeOnly {
		return snap.Orders, nil
	}
	out := make([]Order, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		if o.Status == StatusActive {
			out = append(out, o)
		}
	}
	return out, nil
}

// Statistics aggregates the current snapshot. It loads without the lock, so
// a concurrent mutation may commit while it computes; the result is a
// consistent view of some recently committed state.
func (e *Engine) Statistics(ctx context.Context) (Stats, error) {
	snap, err := e.store.Load(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load snapshot: %w", err)
	}
	var st Stats
	st.TotalProducts = len(snap.Products)
	for _, p := range snap.Products {
		if p.Stock > 0 {
			st.ProductsInStock++
		} else {
			st.ProductsOutOfStock++
		}
	}
	st.TotalOrders = len(snap.Orders)
	for _, o := range snap.Orders {
		st.TotalOrdersValue += o.Total
		if o.Status == StatusActive {
			st.ActiveOrders++
			st.ActiveOrdersValue += o.Total
		} else {
			st.CancelledOrders++
		}
	}
	return st, nil
}

// save persists the snapshot as the last step of a transaction. A failure
// aborts the transaction; the in-memory mutations are discarded with it.
func (e *Engine) save(ctx context.Context, snap Snapshot) error {
	if err := e.store.Save(ctx, snap); err != nil {
		e.log.Error("save snapshot", zap.Error(err))
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
