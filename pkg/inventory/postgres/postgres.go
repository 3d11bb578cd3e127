// Package postgres implements a snapshot store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"stockledger/pkg/inventory"
)

// Schema creates the tables the store needs.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id INT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	unit_price DOUBLE PRECISION NOT NULL,
	stock INT NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	id INT PRIMARY KEY,
	product_id INT NOT NULL,
	product_name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	quantity INT NOT NULL,
	unit_price DOUBLE PRECISION NOT NULL,
	total DOUBLE PRECISION NOT NULL,
	placed_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL
);`

// Store persists snapshots in the products and orders tables. Save rewrites
// both tables inside one database transaction, which keeps the pair
// all-or-nothing exactly like the file store's rename.
type Store struct {
	db *sql.DB
}

// New creates a Postgres store. The caller must ensure the schema exists,
// e.g. by executing Schema at startup.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load reads both collections.
func (s *Store) Load(ctx context.Context) (inventory.Snapshot, error) {
	var snap inventory.Snapshot

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, unit_price, stock FROM products ORDER BY id")
	if err != nil {
		return inventory.Snapshot{}, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p inventory.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.UnitPrice, &p.Stock); err != nil {
			return inventory.Snapshot{}, fmt.Errorf("scan product: %w", err)
		}
		snap.Products = append(snap.Products, p)
	}
	if err := rows.Err(); err != nil {
		return inventory.Snapshot{}, fmt.Errorf("read products: %w", err)
	}

	orows, err := s.db.QueryContext(ctx,
		"SELECT id, product_id, product_name, description, quantity, unit_price, total, placed_at, status FROM orders ORDER BY id")
	if err != nil {
		return inventory.Snapshot{}, fmt.Errorf("query orders: %w", err)
	}
	defer orows.Close()
	for orows.Next() {
		var o inventory.Order
		if err := orows.Scan(&o.ID, &o.ProductID, &o.ProductName, &o.Description,
			&o.Quantity, &o.UnitPrice, &o.Total, &o.PlacedAt, &o.Status); err != nil {
			return inventory.Snapshot{}, fmt.Errorf("scan order: %w", err)
		}
		snap.Orders = append(snap.Orders, o)
	}
	if err := orows.Err(); err != nil {
		return inventory.Snapshot{}, fmt.Errorf("read orders: %w", err)
	}
	return snap, nil
}

// Save rewrites both tables from the snapshot.
func (s *Store) Save(ctx context.Context, snap inventory.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM orders"); err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	for _, p := range snap.Products {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO products (id, name, description, unit_price, stock) VALUES ($1,$2,$3,$4,$5)",
			p.ID, p.Name, p.Description, p.UnitPrice, p.Stock); err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}
	for _, o := range snap.Orders {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO orders (id, product_id, product_name, description, quantity, unit_price, total, placed_at, status) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)",
			o.ID, o.ProductID, o.ProductName, o.Description, o.Quantity, o.UnitPrice, o.Total, o.PlacedAt, o.Status); err != nil {
			return fmt.Errorf("insert order %d: %w", o.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
