package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/config"
	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/internal/repository/postgres"
)

// Lists card payments that were charged but could not be recorded on the order.
func main() {
	limit := 50
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Println("Usage: go run cmd/list-reconciliation-failures/main.go [limit]")
			os.Exit(1)
		}
		limit = n
	}

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(dbCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	ctx := context.Background()

	failures, err := repos.CheckoutEvent.ListRecentByType(ctx, domain.EventReconciliationFailed, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list events: %v\n", err)
		os.Exit(1)
	}

	open := 0
	for _, f := range failures {
		// a later reconciliation closes the failure
		resolved := false
		events, err := repos.CheckoutEvent.GetByOrderID(ctx, f.OrderID)
		if err == nil {
			for _, e := range events {
				if e.EventType == domain.EventPaymentReconciled && e.CreatedAt.After(f.CreatedAt) {
					resolved = true
					break
				}
			}
		}
		if resolved {
			continue
		}
		open++
		fmt.Printf("Order %s\n", f.OrderID)
		fmt.Printf("  Failed at: %s\n", f.CreatedAt.Format(time.RFC3339))
		fmt.Printf("  Payment intent: %v\n", f.EventData["payment_intent_id"])
		fmt.Printf("  Error: %v\n", f.EventData["error"])
		fmt.Println()
	}

	if open == 0 {
		fmt.Println("✅ No unresolved reconciliation failures.")
	} else {
		fmt.Printf("⚠️  %d unresolved reconciliation failure(s)\n", open)
	}
}
