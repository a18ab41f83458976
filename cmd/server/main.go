package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "commission-engine/internal/adapters/web"
	"commission-engine/internal/app"
	"commission-engine/internal/core"
	"commission-engine/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	partnerService := core.NewPartnerService(pool)
	zoneService := core.NewZoneService(pool)
	ruleService := core.NewRuleService(pool)
	invoiceService := core.NewInvoiceService(pool)
	commissionService := core.NewCommissionService(pool)
	billingService := core.NewBillingService(pool)

	svc := app.NewAppService(pool, partnerService, zoneService, ruleService,
		invoiceService, commissionService, billingService)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
