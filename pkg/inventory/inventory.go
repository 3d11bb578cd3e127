// Package inventory implements the product catalog, the order ledger and
// the transaction engine that mutates them.
package inventory

import (
	"context"
	"strings"
	"time"
)

// Product is a catalog entry. Stock is never negative.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Stock       int     `json:"stock"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusActive    OrderStatus = "active"
	StatusCancelled OrderStatus = "cancelled"
)

// Order is a ledger entry. ProductName, UnitPrice and Total are frozen at
// the moment the order is placed and never change afterwards, even if the
// referenced product does.
type Order struct {
	ID          int         `json:"id"`
	ProductID   int         `json:"product_id"`
	ProductName string      `json:"product_name"`
	Description string      `json:"description"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unit_price"`
	Total       float64     `json:"total"`
	PlacedAt    time.Time   `json:"placed_at"`
	Status      OrderStatus `json:"status"`
}

// Snapshot pairs the catalog with the ledger. The two collections are
// always loaded and saved together; placing or cancelling an order touches
// both and must never be observed half-applied.
type Snapshot struct {
	Products []Product `json:"products"`
	Orders   []Order   `json:"orders"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Products: make([]Product, len(s.Products)),
		Orders:   make([]Order, len(s.Orders)),
	}
	copy(out.Products, s.Products)
	copy(out.Orders, s.Orders)
	return out
}

// product returns a pointer into s.Products for the given id.
func (s *Snapshot) product(id int) *Product {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i]
		}
	}
	return nil
}

// productNamed reports whether a product with the given name exists,
// compared case-insensitively.
func (s *Snapshot) productNamed(name string) bool {
	for i := range s.Products {
		if strings.EqualFold(s.Products[i].Name, name) {
			return true
		}
	}
	return false
}

// order returns a pointer into s.Orders for the given id.
func (s *Snapshot) order(id int) *Order {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return &s.Orders[i]
		}
	}
	return nil
}

// nextProductID is max existing id + 1, or 1 for an empty catalog.
func (s *Snapshot) nextProductID() int {
	next := 1
	for i := range s.Products {
		if s.Products[i].ID >= next {
			next = s.Products[i].ID + 1
		}
	}
	return next
}

// nextOrderID is max existing id + 1, or 1 for an empty ledger.
func (s *Snapshot) nextOrderID() int {
	next := 1
	for i := range s.Orders {
		if s.Orders[i].ID >= next {
			next = s.Orders[i].ID + 1
		}
	}
	return next
}

// Store defines behavior for persisting snapshots. Load must reflect the
// most recently completed Save; Save persists both collections as one
// all-or-nothing unit. A store with no prior state loads an empty snapshot.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Stats aggregates the current snapshot. An empty store yields all zeros.
type Stats struct {
	TotalProducts      int     `json:"total_products"`
	ProductsInStock    int     `json:"products_in_stock"`
	ProductsOutOfStock int     `json:"products_out_of_stock"`
	TotalOrders        int     `json:"total_orders"`
	ActiveOrders       int     `json:"active_orders"`
	CancelledOrders    int     `json:"cancelled_orders"`
	ActiveOrdersValue  float64 `json:"active_orders_value"`
	TotalOrdersValue   float64 `json:"total_orders_value"`
}
