package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/config"
	"github.com/jafarshop/storefront-checkout/internal/orderservice"
	"github.com/jafarshop/storefront-checkout/internal/repository/postgres"
	"github.com/jafarshop/storefront-checkout/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/find-order/main.go <order_id>")
		os.Exit(1)
	}
	orderID := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders := service.NewOrderQueryService(
		orderservice.NewClient(cfg.OrderService.BaseURL, cfg.OrderService.ServiceKey, cfg.OrderService.Timeout, logger),
		logger,
	)

	fmt.Printf("🔍 Looking up order %s\n\n", orderID)
	view, err := orders.GetOrder(ctx, "", orderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to get order: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Found order!\n\n")
	fmt.Printf("Order ID: %s\n", view.OrderID)
	fmt.Printf("Customer ID: %s\n", view.CustomerID)
	fmt.Printf("Payment: %s (%s)\n", view.PaymentStatusLabel, view.PaymentMethod)
	fmt.Printf("Delivery: %s\n", view.DeliveryStatusLabel)
	fmt.Printf("Items: %d  Shipping: %d  Total: %d\n", view.ItemsPrice, view.ShippingFee, view.TotalPrice)
	for i, so := range view.SubOrders {
		fmt.Printf("  Shop %s (%s): %d line(s), price %d, shipping %d, %s / %s\n",
			so.ShopName, so.ShopID, len(so.Lines), so.Price, so.ShippingFee,
			view.SubOrderLabels[i].PaymentStatusLabel, view.SubOrderLabels[i].DeliveryStatusLabel)
	}

	// Checkout audit trail
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nSkipping checkout events, database unavailable: %v\n", err)
		return
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	events, err := repos.CheckoutEvent.GetByOrderID(ctx, view.OrderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load checkout events: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nCheckout events (%d):\n", len(events))
	for _, e := range events {
		fmt.Printf("  %s  %-24s %v\n", e.CreatedAt.Format(time.RFC3339), e.EventType, e.EventData)
	}
}
