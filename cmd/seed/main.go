// Command seed populates the configured order store with the default
// regions and, optionally, a handful of demo orders. Safe to run more
// than once.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/yourorg/checkout-orchestrator/internal/config"
	"github.com/yourorg/checkout-orchestrator/internal/inflight"
	"github.com/yourorg/checkout-orchestrator/internal/order"
	"github.com/yourorg/checkout-orchestrator/internal/store"
)

func defaultRegions() []store.Region {
	return []store.Region{
		{ID: "reg_us", Name: "United States", CurrencyCode: "usd", Countries: []string{"us"}},
		{ID: "reg_eu", Name: "Europe", CurrencyCode: "eur", Countries: []string{"de", "fr", "es", "it", "nl", "se"}},
		{ID: "reg_apac", Name: "Asia Pacific", CurrencyCode: "usd", Countries: []string{"jp", "sg", "au", "nz"}},
	}
}

func demoOrders() []order.MerchantOrderRequest {
	return []order.MerchantOrderRequest{
		{
			MerchantOrderID: "DEMO-1001",
			Email:           "alice@example.com",
			CurrencyCode:    "usd",
			LineItems: []order.LineItemInput{
				{Title: "Enamel Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("19.995"), SKU: "MUG-01"},
			},
			ShippingAddress:    &order.AddressInput{FirstName: "Alice", City: "Portland", CountryCode: "us"},
			ShippingMethodName: "Standard",
			ShippingTotal:      decimal.RequireFromString("4.99"),
			Total:              decimal.RequireFromString("44.98"),
			PaymentIntentID:    "int_demo_1001",
		},
		{
			MerchantOrderID: "DEMO-1002",
			Email:           "bruno@example.com",
			CurrencyCode:    "eur",
			LineItems: []order.LineItemInput{
				{Title: "Poster", Quantity: 1, UnitPrice: decimal.RequireFromString("12.50"), SKU: "PST-03"},
				{Title: "Sticker Pack", Quantity: 3, UnitPrice: decimal.RequireFromString("2.00"), SKU: "STK-01"},
			},
			ShippingAddress:    &order.AddressInput{FirstName: "Bruno", City: "Berlin", CountryCode: "de"},
			ShippingMethodName: "Express",
			ShippingTotal:      decimal.RequireFromString("9.00"),
			Total:              decimal.RequireFromString("27.50"),
			PaymentIntentID:    "int_demo_1002",
		},
	}
}

func seedRegions(ctx context.Context, st store.Store) error {
	existing, err := st.ListRegions(ctx)
	if err != nil {
		return fmt.Errorf("list regions: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, r := range existing {
		present[r.ID] = true
	}

	for _, region := range defaultRegions() {
		if present[region.ID] {
			log.Printf("region %s already present, skipping", region.ID)
			continue
		}
		if _, err := st.CreateRegion(ctx, region); err != nil {
			return fmt.Errorf("create region %s: %w", region.ID, err)
		}
		log.Printf("created region %s (%s)", region.ID, region.Name)
	}
	return nil
}

func seedOrders(ctx context.Context, st store.Store, providerTag string) error {
	coordinator := order.NewCoordinator(st, inflight.NewRegistry(), order.Options{
		ProviderTag: providerTag,
	})
	for _, req := range demoOrders() {
		result, err := coordinator.Submit(ctx, req)
		if err != nil {
			return fmt.Errorf("submit %s: %w", req.MerchantOrderID, err)
		}
		if result.Duplicate {
			log.Printf("order %s already present as %s, skipping", req.MerchantOrderID, result.OrderID)
			continue
		}
		log.Printf("created order %s (display %s)", result.OrderID, result.DisplayID)
	}
	return nil
}

func main() {
	withDemo := flag.Bool("demo-orders", false, "also create a couple of demo orders")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.StoreBackend != config.StoreBolt {
		log.Fatalf("seed requires a durable store; set ORDER_STORE=%s", config.StoreBolt)
	}

	st, err := store.OpenBolt(cfg.BoltPath)
	if err != nil {
		log.Fatalf("Failed to open order store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := seedRegions(ctx, st); err != nil {
		log.Fatalf("Failed to seed regions: %v", err)
	}
	if *withDemo {
		if err := seedOrders(ctx, st, cfg.PaymentProviderTag); err != nil {
			log.Fatalf("Failed to seed demo orders: %v", err)
		}
	}
	log.Println("Seed complete")
}
