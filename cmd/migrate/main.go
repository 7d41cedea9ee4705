// migrate applies or rolls back the embedded schema migrations.
//
// Usage: go run ./cmd/migrate [up|down]
package main

import (
	"log"
	"os"

	"marketplace-orders/internal/config"
	"marketplace-orders/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	switch direction {
	case "up":
		err = db.Migrate(cfg.Database.URL)
	case "down":
		err = db.MigrateDown(cfg.Database.URL)
	default:
		log.Fatalf("Unknown direction %q. Available: up, down", direction)
	}
	if err != nil {
		log.Fatalf("[FAIL] %v", err)
	}
	log.Printf("[DONE] migrations %s", direction)
}
