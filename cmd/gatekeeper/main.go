package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/grupovip/gatekeeper/internal/activation"
	"github.com/grupovip/gatekeeper/internal/api"
	"github.com/grupovip/gatekeeper/internal/directory"
	"github.com/grupovip/gatekeeper/internal/runner"
	"github.com/grupovip/gatekeeper/internal/stores/memory"
	"github.com/grupovip/gatekeeper/internal/stores/mysql"
	"github.com/grupovip/gatekeeper/internal/stores/supabase"
	"github.com/grupovip/gatekeeper/internal/sweep"
	"github.com/grupovip/gatekeeper/pkg/records"
	"github.com/grupovip/gatekeeper/pkg/telegram"
	"github.com/grupovip/gatekeeper/pkg/utils"
)

func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	// Wait for interrupt signal to gracefully shut down the bot
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Println("[GATEKEEPER]: Starting access lifecycle service...")

	// Record store backend
	store, err := newRecordStore(cfg)
	if err != nil {
		log.Fatalf("[GATEKEEPER]: failed to create record store: %v", err)
	}

	// Group directory, loaded once and immutable
	groups, err := directory.Load(cfg.GetWithDefault("GROUPS_FILE", "groups.yml"))
	if err != nil {
		log.Fatalf("[GATEKEEPER]: failed to load group directory: %v", err)
	}
	log.Printf("[GATEKEEPER]: group directory loaded: %v", groups.Names())

	// Messaging gateway
	token := cfg.Get("TELEGRAM_TOKEN")
	if token == "" {
		log.Fatal("[GATEKEEPER]: TELEGRAM_TOKEN not set in config or environment")
	}
	gateway := telegram.NewClient(token,
		telegram.WithPollTimeout(cfg.GetDuration("TELEGRAM_POLL_TIMEOUT")))

	// Lifecycle components
	handler := activation.NewHandler(store, groups, gateway)
	sweeper := sweep.NewSweeper(store, groups, gateway,
		cfg.GetWithDefault("SUPPORT_CONTACT", "o suporte"))

	r := runner.NewRunner(gateway, handler, sweeper, &runner.Options{
		PollDelay:     cfg.GetDuration("POLL_DELAY"),
		SweepSchedule: cfg.Get("SWEEP_SCHEDULE"),
	})
	if err := r.Start(ctx); err != nil {
		log.Fatalf("[GATEKEEPER]: failed to start runner: %v", err)
	}

	// Ops API (health, sweep status, manual trigger)
	go api.Start(cfg, r)

	// Wait for shutdown signal
	log.Println("[GATEKEEPER]: Service is running. Press Ctrl+C to exit.")
	<-ctx.Done()

	// Cleanly stop both loops
	r.Stop()
	log.Println("[GATEKEEPER]: Service stopped gracefully")
}

// newRecordStore creates the configured record store backend
func newRecordStore(cfg *utils.Config) (records.StoreInterface, error) {
	backend := cfg.GetWithDefault("RECORD_STORE", "supabase")

	switch backend {
	case "mysql":
		return mysql.NewStore(cfg.Get("DATABASE_URL"))
	case "memory":
		log.Println("[GATEKEEPER]: using in-memory record store, records will not persist")
		return memory.NewStore(), nil
	default:
		return supabase.NewStore(cfg.Get("SUPABASE_URL"), cfg.Get("SUPABASE_KEY"))
	}
}
