// cmd/perksyncd/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"perkengine/internal/clients"
	"perkengine/internal/config"
	"perkengine/internal/observability"
	"perkengine/internal/perks"
)

type seedMember struct {
	MemberID string `json:"member_id"`
	Tier     string `json:"tier"`
	Active   *bool  `json:"active,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "perksyncd").Logger()

	ctx := context.Background()
	tp, err := observability.NewTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer tp.Shutdown(ctx)

	directory := perks.NewService(logger)
	if err := seedDirectory(directory, cfg.SeedFile); err != nil {
		logger.Fatal().Err(err).Str("seed_file", cfg.SeedFile).Msg("failed to seed member directory")
	}
	logger.Info().Int("members", len(directory.Members())).Msg("member directory seeded")

	billing := clients.NewBillingClient(cfg.BillingURL)
	notifier := clients.NewNotifierClient(cfg.NotifierURL)

	sync := func() {
		if err := syncAndNotify(ctx, directory, billing, notifier, logger); err != nil {
			logger.Error().Err(err).Msg("billing sync pass finished with errors")
		}
	}

	// One pass at startup, then on the configured schedule.
	sync()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SyncSchedule, sync); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("invalid sync schedule")
	}
	scheduler.Start()
	logger.Info().Str("schedule", cfg.SyncSchedule).Msg("billing sync scheduled")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	<-scheduler.Stop().Done()
	logger.Info().Msg("shutting down")
}

func seedDirectory(directory perks.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var seeds []seedMember
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, seed := range seeds {
		active := true
		if seed.Active != nil {
			active = *seed.Active
		}
		directory.AddMember(perks.NewMembership(seed.MemberID, seed.Tier, active, nil, nil))
	}
	return nil
}

// syncAndNotify runs one billing sync pass and notifies every member whose
// tier changed during it.
func syncAndNotify(ctx context.Context, directory perks.Service, billing perks.BillingProvider, notifier perks.Notifier, logger zerolog.Logger) error {
	before := make(map[string]string)
	for _, id := range directory.Members() {
		membership, err := directory.Get(id)
		if err != nil {
			continue
		}
		before[id] = membership.Tier()
	}

	syncErr := directory.SyncAll(ctx, billing)

	for _, id := range directory.Members() {
		membership, err := directory.Get(id)
		if err != nil {
			continue
		}
		if membership.Tier() == before[id] {
			continue
		}
		body := fmt.Sprintf("Your membership tier is now %s with %d perks available this month.", membership.Tier(), membership.PerksAvailable())
		if err := directory.Notify(ctx, notifier, id, "Membership tier updated", body); err != nil {
			logger.Warn().Str("member_id", id).Err(err).Msg("tier change notification failed")
		}
	}

	return syncErr
}
