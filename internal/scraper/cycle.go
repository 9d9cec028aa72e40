// Package scraper runs the scrape-diff-match-notify cycle and its schedule.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/itcaat/bazalert/internal/diff"
	"github.com/itcaat/bazalert/internal/match"
	"github.com/itcaat/bazalert/internal/metrics"
	"github.com/itcaat/bazalert/internal/models"
	"github.com/itcaat/bazalert/internal/notify"
	"github.com/itcaat/bazalert/internal/parser"
	"github.com/itcaat/bazalert/internal/storage"
)

// PageFetcher retrieves raw marketplace pages.
type PageFetcher interface {
	FetchIndex(ctx context.Context, page int) (string, error)
	FetchDetail(ctx context.Context, adURL string) (string, error)
}

// Extractor turns raw page bodies into records.
type Extractor interface {
	ParseListingPage(html string, page int) ([]models.AdRecord, error)
	ParseDetailPage(html string) (parser.Detail, error)
}

// Store is the slice of the storage layer a cycle needs.
type Store interface {
	GetAd(ctx context.Context, adID string) (*models.AdRecord, error)
	UpsertAd(ctx context.Context, ad models.AdRecord) error
	TouchAd(ctx context.Context, adID string, page int, seenAt time.Time) error
	ListActiveAds(ctx context.Context) ([]models.AdRecord, error)
	MarkRemoved(ctx context.Context, adID string, at time.Time) error
	ListActiveAlerts(ctx context.Context) ([]models.Alert, error)
	GetStats(ctx context.Context) (storage.Stats, error)
}

// Notifier fans change events out to matched alerts.
type Notifier interface {
	Dispatch(ctx context.Context, event models.ChangeEvent, alerts []models.Alert) (int, error)
	CycleStarted(ctx context.Context, cycleID string)
	CycleFinished(ctx context.Context, s notify.Summary)
}

// Options tune one cycle's pagination walk and detail fetching.
type Options struct {
	MaxPages int
	// MaxConsecutiveUnchanged ends the walk once this many Basic-tier ads
	// in a row were already known and unchanged. Paid-tier ads are pinned
	// to the top of every page, so they neither count nor reset the run.
	MaxConsecutiveUnchanged int
	DetailConcurrency       int
}

func (o Options) withDefaults() Options {
	if o.MaxPages < 1 {
		o.MaxPages = 10
	}
	if o.MaxConsecutiveUnchanged < 1 {
		o.MaxConsecutiveUnchanged = 20
	}
	if o.DetailConcurrency < 1 {
		o.DetailConcurrency = 2
	}
	return o
}

// Cycle executes one full scrape pass over the marketplace.
type Cycle struct {
	fetcher  PageFetcher
	parser   Extractor
	store    Store
	notifier Notifier
	policy   match.Policy
	opts     Options
	log      *zap.Logger
}

// NewCycle wires a cycle runner.
func NewCycle(f PageFetcher, p Extractor, s Store, n Notifier, policy match.Policy, opts Options, log *zap.Logger) *Cycle {
	return &Cycle{
		fetcher:  f,
		parser:   p,
		store:    s,
		notifier: n,
		policy:   policy,
		opts:     opts.withDefaults(),
		log:      log,
	}
}

// Run walks the index pages, classifies every ad against stored state,
// fetches details for new ads, detects removals and dispatches notifications.
// Fetch and parse failures degrade the cycle; persistence failures abort it.
func (c *Cycle) Run(ctx context.Context) error {
	cycleID := uuid.NewString()
	start := time.Now()
	log := c.log.With(zap.String("cycle_id", cycleID))
	log.Info("scrape cycle starting")
	c.notifier.CycleStarted(ctx, cycleID)

	alerts, err := c.store.ListActiveAlerts(ctx)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}

	st := &cycleState{
		now:          start,
		alerts:       alerts,
		seen:         make(map[string]bool),
		fetchedPages: make(map[int]bool),
	}

	if err := c.walkPages(ctx, st, log); err != nil {
		return err
	}
	if err := c.processNew(ctx, st, log); err != nil {
		return err
	}
	if err := c.processRemovals(ctx, st, log); err != nil {
		return err
	}

	st.summary.CycleID = cycleID
	st.summary.Duration = time.Since(start)
	if stats, err := c.store.GetStats(ctx); err != nil {
		log.Warn("failed to load stats for summary", zap.Error(err))
	} else {
		st.summary.TotalAds = stats.TotalAds
		st.summary.NewToday = stats.NewToday
	}
	c.notifier.CycleFinished(ctx, st.summary)

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	log.Info("scrape cycle finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("pages", st.summary.Pages),
		zap.Int("ads_seen", st.summary.AdsSeen),
		zap.Int("new", st.summary.New),
		zap.Int("price_changed", st.summary.PriceChanged),
		zap.Int("status_changed", st.summary.StatusChanged),
		zap.Int("reposted", st.summary.Reposted),
		zap.Int("removed", st.summary.Removed),
		zap.Int("notified", st.summary.Notified))
	return nil
}

type cycleState struct {
	now          time.Time
	alerts       []models.Alert
	seen         map[string]bool
	fetchedPages map[int]bool
	newAds       []models.AdRecord
	summary      notify.Summary
}

func (c *Cycle) walkPages(ctx context.Context, st *cycleState, log *zap.Logger) error {
	consecutiveUnchanged := 0

	for page := 1; page <= c.opts.MaxPages; page++ {
		html, err := c.fetcher.FetchIndex(ctx, page)
		if err != nil {
			metrics.FetchFailures.Inc()
			st.summary.FetchErrors++
			log.Warn("index page fetch failed, stopping walk",
				zap.Int("page", page), zap.Error(err))
			return nil
		}

		ads, err := c.parser.ParseListingPage(html, page)
		if err != nil {
			log.Warn("index page parse failed, stopping walk",
				zap.Int("page", page), zap.Error(err))
			return nil
		}
		// A page counts as covered only once it parsed; removal detection
		// must not trust a page whose ads could not be read.
		st.fetchedPages[page] = true
		st.summary.Pages++
		if len(ads) == 0 {
			log.Debug("empty index page, end of listings", zap.Int("page", page))
			return nil
		}

		for _, ad := range ads {
			if st.seen[ad.ID] {
				// Paid ads repeat across pages; classify once.
				continue
			}
			st.seen[ad.ID] = true
			st.summary.AdsSeen++
			metrics.AdsSeen.Inc()

			prior, err := c.store.GetAd(ctx, ad.ID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("load prior state for ad %s: %w", ad.ID, err)
			}
			if prior != nil {
				// The seller type is only visible on the detail page;
				// the listing snapshot must not overwrite it.
				ad.IsBusiness = prior.IsBusiness
			}

			event := diff.Classify(ad, prior)
			switch event.Kind {
			case models.ChangeNew:
				if ad.Tier == models.TierBasic {
					consecutiveUnchanged = 0
				}
				ad.FirstSeen = st.now
				ad.LastSeen = st.now
				st.newAds = append(st.newAds, ad)

			case models.ChangeUnchanged:
				if ad.Tier == models.TierBasic {
					consecutiveUnchanged++
				}
				if err := c.store.TouchAd(ctx, ad.ID, page, st.now); err != nil {
					return fmt.Errorf("touch ad %s: %w", ad.ID, err)
				}

			default:
				if ad.Tier == models.TierBasic {
					consecutiveUnchanged = 0
				}
				merged := carryPrior(ad, *prior, st.now)
				event.Ad = merged
				if err := c.store.UpsertAd(ctx, merged); err != nil {
					return fmt.Errorf("upsert ad %s: %w", ad.ID, err)
				}
				if err := c.recordChange(ctx, st, event); err != nil {
					return err
				}
			}
		}

		if consecutiveUnchanged >= c.opts.MaxConsecutiveUnchanged {
			log.Debug("unchanged run reached threshold, stopping walk",
				zap.Int("page", page),
				zap.Int("unchanged_run", consecutiveUnchanged))
			return nil
		}
	}
	return nil
}

// processNew fetches detail pages for newly discovered ads with bounded
// concurrency, then persists and dispatches them in index order. A failed
// detail fetch degrades to the listing-only record.
func (c *Cycle) processNew(ctx context.Context, st *cycleState, log *zap.Logger) error {
	enriched := make([]models.AdRecord, len(st.newAds))
	copy(enriched, st.newAds)

	var detailFailures atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.DetailConcurrency)
	for i := range enriched {
		g.Go(func() error {
			ad := enriched[i]
			html, err := c.fetcher.FetchDetail(gctx, ad.URL)
			if err != nil {
				metrics.FetchFailures.Inc()
				detailFailures.Add(1)
				log.Warn("detail fetch failed, keeping listing data",
					zap.String("ad_id", ad.ID), zap.Error(err))
				return nil
			}
			detail, err := c.parser.ParseDetailPage(html)
			if err != nil {
				log.Warn("detail parse failed, keeping listing data",
					zap.String("ad_id", ad.ID), zap.Error(err))
				return nil
			}
			enriched[i] = parser.Merge(ad, detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	st.summary.FetchErrors += int(detailFailures.Load())

	for _, ad := range enriched {
		if err := c.store.UpsertAd(ctx, ad); err != nil {
			return fmt.Errorf("upsert new ad %s: %w", ad.ID, err)
		}
		event := models.ChangeEvent{Kind: models.ChangeNew, Ad: ad}
		if err := c.recordChange(ctx, st, event); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cycle) processRemovals(ctx context.Context, st *cycleState, log *zap.Logger) error {
	priors, err := c.store.ListActiveAds(ctx)
	if err != nil {
		return fmt.Errorf("load active ads: %w", err)
	}

	for _, event := range diff.ClassifyRemovals(priors, st.seen, st.fetchedPages) {
		if err := c.store.MarkRemoved(ctx, event.Ad.ID, st.now); err != nil {
			return fmt.Errorf("mark ad %s removed: %w", event.Ad.ID, err)
		}
		if err := c.recordChange(ctx, st, event); err != nil {
			return err
		}
	}
	return nil
}

// recordChange counts the event and, when the policy allows it, dispatches
// to matched alerts.
func (c *Cycle) recordChange(ctx context.Context, st *cycleState, event models.ChangeEvent) error {
	metrics.Changes.WithLabelValues(string(event.Kind)).Inc()
	switch event.Kind {
	case models.ChangeNew:
		st.summary.New++
	case models.ChangePriceChanged:
		st.summary.PriceChanged++
	case models.ChangeStatusChanged:
		st.summary.StatusChanged++
	case models.ChangeReposted:
		st.summary.Reposted++
	case models.ChangeRemoved:
		st.summary.Removed++
	}

	if !c.policy.Eligible(event) {
		return nil
	}
	matched := match.Ads(event.Ad, st.alerts)
	if len(matched) == 0 {
		return nil
	}
	sent, err := c.notifier.Dispatch(ctx, event, matched)
	st.summary.Notified += sent
	if err != nil {
		return fmt.Errorf("dispatch %s for ad %s: %w", event.Kind, event.Ad.ID, err)
	}
	return nil
}

// carryPrior rebases a listing-only snapshot on the stored record so detail
// attributes and discovery time survive updates.
func carryPrior(current, prior models.AdRecord, now time.Time) models.AdRecord {
	merged := current
	merged.FirstSeen = prior.FirstSeen
	merged.LastSeen = now
	// The stored post date usually carries detail-page precision; only a
	// forward-moving card date (a repost) replaces it.
	if !merged.PostedAt.After(prior.PostedAt) {
		merged.PostedAt = prior.PostedAt
	}
	if merged.Brand == "" {
		merged.Brand = prior.Brand
	}
	if merged.Model == "" {
		merged.Model = prior.Model
	}
	if merged.Year == 0 {
		merged.Year = prior.Year
	}
	if merged.Mileage == 0 {
		merged.Mileage = prior.Mileage
	}
	if merged.EngineCC == 0 {
		merged.EngineCC = prior.EngineCC
	}
	if merged.Gearbox == "" {
		merged.Gearbox = prior.Gearbox
	}
	if merged.FuelType == "" {
		merged.FuelType = prior.FuelType
	}
	if merged.DriveType == "" {
		merged.DriveType = prior.DriveType
	}
	if merged.BodyType == "" {
		merged.BodyType = prior.BodyType
	}
	if merged.Color == "" {
		merged.Color = prior.Color
	}
	if merged.SellerName == "" {
		merged.SellerName = prior.SellerName
	}
	if merged.SellerID == "" {
		merged.SellerID = prior.SellerID
	}
	return merged
}
