// Command demo walks through the system end to end against a throwaway
// file store: seeding products, placing and cancelling orders, racing
// concurrent orders against scarce stock, and printing statistics.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"stockledger/pkg/inventory"
	"stockledger/pkg/inventory/file"
	"stockledger/pkg/logger"
)

func main() {
	logger.InitDevelopment()
	defer logger.Log.Sync()

	dir, err := os.MkdirTemp("", "stockledger-demo-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, "temp dir:", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	store, err := file.New(filepath.Join(dir, "demo.json"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		os.Exit(1)
	}
	eng := inventory.NewEngine(store, logger.Log)
	ctx := context.Background()

	fmt.Println("== seeding catalog")
	laptop, err := eng.AddProduct(ctx, "Laptop", "15-inch developer machine", 2500, 10)
	must(err)
	mouse, err := eng.AddProduct(ctx, "Mouse", "wireless", 45.90, 25)
	must(err)
	_, err = eng.AddProduct(ctx, "Keyboard", "mechanical", 120, 0)
	must(err)
	fmt.Printf("added products %d, %d and an out-of-stock keyboard\n", laptop.ID, mouse.ID)

	fmt.Println("\n== placing and cancelling orders")
	o1, err := eng.PlaceOrder(ctx, laptop.ID, 2, "")
	must(err)
	fmt.Printf("order #%d: %s (total %.2f)\n", o1.ID, o1.Description, o1.Total)

	o2, err := eng.PlaceOrder(ctx, mouse.ID, 5, "office batch")
	must(err)
	fmt.Printf("order #%d: %s (total %.2f)\n", o2.ID, o2.Description, o2.Total)

	cancelled, err := eng.CancelOrder(ctx, o1.ID)
	must(err)
	fmt.Printf("order #%d cancelled, stock of %q restored\n", cancelled.ID, cancelled.ProductName)

	if _, err := eng.CancelOrder(ctx, o1.ID); err != nil {
		fmt.Println("second cancel rejected:", err)
	}

	fmt.Println("\n== failure cases")
	if _, err := eng.PlaceOrder(ctx, 999, 1, ""); err != nil {
		fmt.Println("unknown product:", err)
	}
	if _, err := eng.PlaceOrder(ctx, mouse.ID, 100, ""); err != nil {
		fmt.Println("too many mice:", err)
	}

	fmt.Println("\n== racing 3 concurrent orders of 3 against stock 5")
	scarce, err := eng.AddProduct(ctx, "Dock", "USB-C docking station", 199, 5)
	must(err)
	var wg sync.WaitGroup
	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.PlaceOrder(ctx, scarce.ID, 3, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			fmt.Println("rejected:", err)
		}
	}
	products, err := eng.ListAvailable(ctx)
	must(err)
	for _, p := range products {
		if p.ID == scarce.ID {
			fmt.Printf("%d order(s) won, %d dock(s) left, never negative\n", wins, p.Stock)
		}
	}

	fmt.Println("\n== statistics")
	st, err := eng.Statistics(ctx)
	must(err)
	fmt.Printf("products: %d total, %d in stock, %d out of stock\n",
		st.TotalProducts, st.ProductsInStock, st.ProductsOutOfStock)
	fmt.Printf("orders: %d total, %d active, %d cancelled\n",
		st.TotalOrders, st.ActiveOrders, st.CancelledOrders)
	fmt.Printf("value: %.2f active, %.2f overall\n", st.ActiveOrdersValue, st.TotalOrdersValue)
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "demo failed:", err)
		os.Exit(1)
	}
}
