package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/itcaat/bazalert/internal/config"
	"github.com/itcaat/bazalert/internal/fetcher"
	"github.com/itcaat/bazalert/internal/match"
	"github.com/itcaat/bazalert/internal/notify"
	"github.com/itcaat/bazalert/internal/parser"
	"github.com/itcaat/bazalert/internal/scraper"
	"github.com/itcaat/bazalert/internal/storage"
)

// app holds the wired pipeline shared by the run and once commands.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *storage.Store
	cycle *scraper.Cycle
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := cfg.Logger.Build()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Sync()
		return nil, err
	}

	f, err := fetcher.New(fetcher.Config{
		SearchURL:      cfg.Scrape.SearchURL,
		MinInterval:    cfg.Scrape.MinRequestInterval,
		MaxRetries:     cfg.Scrape.MaxRetries,
		RetryBackoff:   cfg.Scrape.RetryBackoff,
		RequestTimeout: cfg.Scrape.RequestTimeout,
	}, log)
	if err != nil {
		store.Close()
		log.Sync()
		return nil, err
	}

	var sender notify.Sender
	if cfg.Telegram.Token != "" {
		sender = notify.NewTelegram(cfg.Telegram.Token)
	} else {
		log.Warn("telegram token not set, notifications go to the log only")
		sender = logSender{log: log}
	}
	dispatcher := notify.NewDispatcher(sender, store, cfg.Telegram.AdminChatID, log)

	policy := match.Policy{
		NewAds:         cfg.Notify.NewAds,
		PriceDrops:     cfg.Notify.PriceDrops,
		PriceIncreases: cfg.Notify.PriceIncreases,
		StatusChanges:  cfg.Notify.StatusChanges,
		Reposts:        cfg.Notify.Reposts,
		Removals:       cfg.Notify.Removals,
	}

	cycle := scraper.NewCycle(
		f,
		parser.New(cfg.Scrape.BaseURL, log),
		store,
		dispatcher,
		policy,
		scraper.Options{
			MaxPages:                cfg.Scrape.MaxPages,
			MaxConsecutiveUnchanged: cfg.Scrape.MaxConsecutiveUnchanged,
			DetailConcurrency:       cfg.Scrape.DetailConcurrency,
		},
		log,
	)

	return &app{cfg: cfg, log: log, store: store, cycle: cycle}, nil
}

func (a *app) Close() {
	a.store.Close()
	a.log.Sync()
}

// logSender stands in for Telegram when no token is configured.
type logSender struct {
	log *zap.Logger
}

func (s logSender) Send(_ context.Context, chatID int64, text string) error {
	s.log.Info("notification", zap.Int64("chat_id", chatID), zap.String("text", text))
	return nil
}

// openStore loads only what the read-only commands need.
func openStore() (*storage.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return store, cfg, nil
}
