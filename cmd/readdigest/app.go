package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/config"
	dbRedis "github.com/kailas-cloud/readdigest/internal/db/redis"
	"github.com/kailas-cloud/readdigest/internal/metrics"
	"github.com/kailas-cloud/readdigest/internal/parser"
	budgetrepo "github.com/kailas-cloud/readdigest/internal/repository/budget"
	"github.com/kailas-cloud/readdigest/internal/repository/catcache"
	"github.com/kailas-cloud/readdigest/internal/repository/memory"
	recordrepo "github.com/kailas-cloud/readdigest/internal/repository/record"
	sheetsrepo "github.com/kailas-cloud/readdigest/internal/repository/sheets"
	"github.com/kailas-cloud/readdigest/internal/transport/discord"
	chiTransport "github.com/kailas-cloud/readdigest/internal/transport/chi"
	openaiCat "github.com/kailas-cloud/readdigest/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/readdigest/internal/usecase/budget"
	digestuc "github.com/kailas-cloud/readdigest/internal/usecase/digest"
	"github.com/kailas-cloud/readdigest/internal/usecase/extract"
	healthuc "github.com/kailas-cloud/readdigest/internal/usecase/health"
)

// app is the composition root shared by every subcommand.
type app struct {
	records chiTransport.RecordReader
	tracker *budgetuc.Tracker
	digests *digestuc.Service
	health  *healthuc.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	// Register digest metrics explicitly (no init())
	metrics.RegisterDigestMetrics()

	a := &app{}

	estimator := budgetuc.NewEstimator(cfg.Budget.Estimator, cfg.Budget.Encoding, logger)
	a.tracker = budgetuc.NewTracker(
		cfg.Budget.Scope, cfg.Budget.MaxTokens, cfg.Budget.WarningThreshold, estimator, logger,
	)
	logger.Info("Budget tracker ready",
		zap.Int64("ceiling", cfg.Budget.MaxTokens),
		zap.String("estimator", estimator.Mode()),
	)

	var (
		store  digestuc.RecordStore
		pinger healthuc.StorePinger
		kv     *dbRedis.Store
	)
	switch cfg.Store.Driver {
	case config.DriverSheets:
		repo, err := sheetsrepo.New(ctx, sheetsrepo.Config{
			SpreadsheetID:   cfg.Store.Sheets.SpreadsheetID,
			SheetName:       cfg.Store.Sheets.SheetName,
			CredentialsFile: cfg.Store.Sheets.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("sheets store: %w", err)
		}
		store = repo
	case config.DriverRedis:
		var err error
		kv, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Store.Redis.Addrs,
			Username: cfg.Store.Redis.Username,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		a.closers = append(a.closers, kv.Close)

		readiness := time.Duration(cfg.Store.Redis.ReadinessTimeout) * time.Second
		if err := kv.WaitForReady(ctx, readiness); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Store.Redis.Addrs))

		repo := recordrepo.New(kv)
		store = repo
		a.records = repo
		pinger = kv
		ledgerTTL := time.Duration(cfg.Store.Redis.LedgerTTLHours) * time.Hour
		a.tracker.WithLedger(budgetrepo.New(kv, ledgerTTL))
	default:
		repo := memory.New()
		store = repo
		a.records = repo
	}
	logger.Info("Record store ready", zap.String("driver", cfg.Store.Driver))

	sink := discord.New(discord.Config{
		ResultsWebhook:  cfg.Notify.ResultsWebhook,
		TokenWebhook:    cfg.Notify.TokenWebhook,
		ResultsThreadID: cfg.Notify.ResultsThreadID,
		TokenThreadID:   cfg.Notify.TokenThreadID,
		Timeout:         time.Duration(cfg.Notify.TimeoutSec) * time.Second,
	}, logger)

	extractor := extract.New(extract.Config{
		ContextChars:       cfg.Extraction.ContextChars,
		SentenceSearchSpan: cfg.Extraction.SentenceSearchSpan,
		Category:           cfg.Extraction.Category,
	})

	a.digests = digestuc.New(parser.New(logger), a.tracker, extractor, store, sink, logger).
		WithStoreTimeout(time.Duration(cfg.Store.TimeoutSec) * time.Second)

	// Pass nil interface (not typed nil pointer) when the categorizer is disabled.
	var catChecker healthuc.CategorizerChecker
	if cfg.Categorizer.Enabled() {
		cat := openaiCat.NewCategorizer(&openaiCat.Config{
			APIKey:   cfg.Categorizer.APIKey,
			BaseURL:  cfg.Categorizer.BaseURL,
			Model:    cfg.Categorizer.Model,
			Provider: cfg.Categorizer.Provider,
			Logger:   logger,
		})
		var categorizer digestuc.Categorizer = cat
		if kv != nil {
			categorizer = catcache.New(cat, kv, 0, metrics.CategoryCacheTotal, logger)
		}
		a.digests.WithCategorizer(categorizer)
		catChecker = cat
		logger.Info("Categorizer enabled",
			zap.String("provider", cfg.Categorizer.Provider),
			zap.String("model", cfg.Categorizer.Model),
		)
	}

	a.health = healthuc.New(pinger, catChecker, a.tracker)
	return a, nil
}
