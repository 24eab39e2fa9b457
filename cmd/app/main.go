package main

import (
	"context"
	"flag"
	"log"
	"os"

	"KabuFeed/internal/di"
	"KabuFeed/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	backfillFrom := flag.String("backfill-from", "", "backfill start date (YYYY-MM-DD)")
	backfillTo := flag.String("backfill-to", "", "backfill end date (YYYY-MM-DD)")
	flag.Parse()

	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s", cfg.Environment, cfg.Backend.Type)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if *backfillFrom != "" && *backfillTo != "" {
		log.Printf("backfill: %s..%s", *backfillFrom, *backfillTo)
		if err := app.Backfill(context.Background(), *backfillFrom, *backfillTo); err != nil {
			log.Fatalf("backfill failed: %v", err)
		}
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
