package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/config"
	"github.com/jafarshop/storefront-checkout/internal/orderservice"
	"github.com/jafarshop/storefront-checkout/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/list-orders/main.go <customer_id> [delivery_status]")
		os.Exit(1)
	}
	customerID := os.Args[1]
	status := ""
	if len(os.Args) > 2 {
		status = os.Args[2]
	}

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

	fmt.Printf("📋 Listing orders of customer %s\n\n", customerID)
	views, err := orders.ListOrders(ctx, customerID, status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list orders: %v\n", err)
		os.Exit(1)
	}

	for i, v := range views {
		fmt.Printf("Order #%d:\n", i+1)
		fmt.Printf("  Order ID: %s\n", v.OrderID)
		fmt.Printf("  Payment: %s (%s)\n", v.PaymentStatusLabel, v.PaymentMethod)
		fmt.Printf("  Delivery: %s\n", v.DeliveryStatusLabel)
		fmt.Printf("  Sellers: %d\n", len(v.SubOrders))
		fmt.Printf("  Total: %d\n", v.TotalPrice)
		fmt.Printf("  Created: %s\n", v.CreatedAt.Format(time.RFC3339))
		fmt.Println()
	}

	if len(views) == 0 {
		fmt.Println("❌ No orders found.")
	} else {
		fmt.Printf("✅ Found %d order(s)\n", len(views))
	}
}
