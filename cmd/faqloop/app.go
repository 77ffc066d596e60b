package main

import (
	"fmt"

	"github.com/nvandessel/faqloop/internal/config"
	"github.com/nvandessel/faqloop/internal/corrlog"
	"github.com/nvandessel/faqloop/internal/detect"
	"github.com/nvandessel/faqloop/internal/export"
	"github.com/nvandessel/faqloop/internal/llm"
	"github.com/nvandessel/faqloop/internal/logging"
	"github.com/nvandessel/faqloop/internal/review"
	"github.com/nvandessel/faqloop/internal/rewrite"
	"github.com/nvandessel/faqloop/internal/roles"
	"github.com/nvandessel/faqloop/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds everything a command needs, built from flags and config.
type app struct {
	root    string
	cfg     *config.Config
	logger  *zap.Logger
	records *store.Records
	calls   *store.CallRecords
	log     *corrlog.Log
	regen   export.Regenerator
	orch    *review.Orchestrator
}

func newApp(cmd *cobra.Command) (*app, error) {
	root, _ := cmd.Flags().GetString("root")
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(root, cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	records := store.NewRecords(cfg.Paths, logger)
	calls := store.NewCallRecords(cfg.Paths.CallRecords, logger)
	corrections := corrlog.New(cfg.Paths.Corrections, logger)
	client := llm.NewClient(cfg.LLM, logger)
	if !client.Available() {
		logger.Info("text-generation collaborator unavailable, corrections will not propagate",
			zap.String("provider", cfg.LLM.Provider))
	}

	var regen export.Regenerator
	switch cfg.Export.Mode {
	case config.ExportCommand:
		regen = export.NewCommandRegenerator(cfg.Export.Command, root, cfg.Export.Timeout, logger)
	default:
		regen = export.NewExporter(calls, records, roles.NewKeywordClassifier(), root, logger)
	}

	orch := review.New(review.Options{
		Store:       records,
		Log:         corrections,
		Detector:    detect.New(client, cfg.Review.DetectionBatchSize, logger),
		Rewriter:    rewrite.New(client, logger),
		Patcher:     calls,
		Regenerator: regen,
		MaxRewrites: cfg.Review.MaxRewrites,
		Logger:      logger,
	})

	return &app{
		root:    root,
		cfg:     cfg,
		logger:  logger,
		records: records,
		calls:   calls,
		log:     corrections,
		regen:   regen,
		orch:    orch,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// withApp builds the app for a command and releases it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer a.close()
	return fn(a)
}
