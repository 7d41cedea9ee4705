package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"marketplace-orders/internal/adapters/cli"
	webAdapter "marketplace-orders/internal/adapters/web"
	"marketplace-orders/internal/app"
	"marketplace-orders/internal/config"
	"marketplace-orders/internal/core"
	"marketplace-orders/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, cli.Usage+"\n  token  <user-id> [role]                         sign a development JWT")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// token needs no database.
	if os.Args[1] == "token" {
		signToken(cfg.Auth.JWTSecret, os.Args[2:])
		return
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	tax := core.TaxConfig{ShipmentIncVAT: cfg.Tax.ShipmentIncVAT, ShippingTaxRate: cfg.Tax.ShippingTaxRate}
	recalc := core.NewRecalculator(core.NewAdjustmentLedger(), tax, logger)
	lineItems := core.NewLineItemService(core.NewOrderStore(pool), recalc, logger)
	svc := app.NewAppService(pool, lineItems, core.NewUserService(pool), nil, nil, nil, logger)

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func signToken(secret string, args []string) {
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if len(args) < 1 {
		log.Fatal("Usage: app token <user-id> [role]")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		log.Fatalf("invalid user id %q", args[0])
	}
	role := "customer"
	if len(args) > 1 {
		role = args[1]
	}
	token, err := webAdapter.SignToken(secret, userID, role, 24*time.Hour)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
