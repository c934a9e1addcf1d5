package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"marketlogger/internal/batch"
	"marketlogger/internal/config"
	"marketlogger/internal/ratelimit"
	"marketlogger/internal/record"
	"marketlogger/internal/schedule"
	"marketlogger/internal/sheet"
	"marketlogger/internal/tsetmc"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals: stop scheduling further cycles, let the
	// in-flight one finish and save.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received interrupt signal, shutting down")
		cancel()
	}()

	client := tsetmc.New(cfg.BaseURL, cfg.Timeout, ratelimit.New())
	store := sheet.NewStore(cfg.Output, logger)

	instruments := make([]batch.Instrument, 0, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		instruments = append(instruments, batch.Instrument{Code: inst.Code, Name: inst.Name})
	}

	orch := batch.New(
		batch.Config{
			Instruments:    instruments,
			ClosingFields:  cfg.Fields.Closing,
			FundFields:     cfg.Fields.Fund,
			OverviewFields: cfg.Fields.Overview,
			NonZero:        record.NewSet(cfg.NonZeroFields...),
			Concurrent:     cfg.Concurrent,
			IDColumn:       cfg.IDColumn,
		},
		client, client, client,
		sheetStore{store},
		logger,
	)

	sched := schedule.New(cfg.Interval, func(ctx context.Context) error {
		_, err := orch.RunTick(ctx)
		return err
	}, logger)

	logger.Info("market logger started",
		"instruments", len(instruments),
		"interval", cfg.Interval,
		"output", cfg.Output,
	)

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler failed", "err", err)
		os.Exit(1)
	}
}

// sheetStore adapts *sheet.Store to the batch.Store interface.
type sheetStore struct {
	store *sheet.Store
}

func (s sheetStore) Begin() (batch.Tx, error) {
	return s.store.Begin()
}
