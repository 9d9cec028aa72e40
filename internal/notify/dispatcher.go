package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/itcaat/bazalert/internal/metrics"
	"github.com/itcaat/bazalert/internal/models"
)

// Ledger records which notifications have already gone out. A key is
// recorded only after a successful send, so a failed delivery is retried
// on the next cycle.
type Ledger interface {
	HasNotified(ctx context.Context, alertID int64, adID, changeKey string) (bool, error)
	RecordNotification(ctx context.Context, alertID int64, adID, changeKey string, at time.Time) error
}

// Dispatcher fans one change event out to the alerts it matched.
type Dispatcher struct {
	sender    Sender
	ledger    Ledger
	adminChat int64
	log       *zap.Logger
}

// NewDispatcher wires a sender and dedup ledger. adminChat may be zero,
// which disables admin summaries.
func NewDispatcher(sender Sender, ledger Ledger, adminChat int64, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, ledger: ledger, adminChat: adminChat, log: log}
}

// Dispatch sends the event to every matched alert that has not seen this
// change yet. Send failures are logged and skipped; ledger failures abort,
// since continuing without the dedup record risks duplicate sends later.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.ChangeEvent, alerts []models.Alert) (int, error) {
	key := event.DedupKey()
	body := FormatEvent(event)
	sent := 0

	for _, alert := range alerts {
		seen, err := d.ledger.HasNotified(ctx, alert.ID, event.Ad.ID, key)
		if err != nil {
			return sent, fmt.Errorf("dedup check for alert %d: %w", alert.ID, err)
		}
		if seen {
			d.log.Debug("notification already sent",
				zap.Int64("alert_id", alert.ID),
				zap.String("ad_id", event.Ad.ID),
				zap.String("change_key", key))
			continue
		}

		if err := d.sender.Send(ctx, alert.UserID, WithAlertName(alert.Name, body)); err != nil {
			d.log.Error("failed to send notification",
				zap.Int64("alert_id", alert.ID),
				zap.Int64("user_id", alert.UserID),
				zap.String("ad_id", event.Ad.ID),
				zap.Error(err))
			metrics.NotificationsFailed.Inc()
			continue
		}

		if err := d.ledger.RecordNotification(ctx, alert.ID, event.Ad.ID, key, time.Now()); err != nil {
			return sent, fmt.Errorf("record notification for alert %d: %w", alert.ID, err)
		}
		metrics.NotificationsSent.Inc()
		sent++
	}
	return sent, nil
}

// Summary is the per-cycle report sent to the admin chat.
type Summary struct {
	CycleID       string
	Duration      time.Duration
	Pages         int
	AdsSeen       int
	New           int
	PriceChanged  int
	StatusChanged int
	Reposted      int
	Removed       int
	Notified      int
	FetchErrors   int
	TotalAds      int
	NewToday      int
}

// CycleStarted announces a cycle to the admin chat. Delivery failure is
// logged and never affects the cycle.
func (d *Dispatcher) CycleStarted(ctx context.Context, cycleID string) {
	d.notifyAdmin(ctx, fmt.Sprintf("▶️ <b>Scrape cycle started</b>\n<code>%s</code>", cycleID))
}

// CycleFinished sends the cycle summary to the admin chat.
func (d *Dispatcher) CycleFinished(ctx context.Context, s Summary) {
	text := fmt.Sprintf(
		"📊 <b>Scrape cycle finished</b>\n"+
			"<code>%s</code> in %s\n\n"+
			"📄 Pages: %d  👀 Ads seen: %d\n"+
			"🆕 New: %d  📉 Price: %d  🆙 Status: %d  🔄 Reposts: %d  🚫 Removed: %d\n"+
			"🔔 Notified: %d  ⚠️ Fetch errors: %d\n\n"+
			"🗄 Total ads: %d (%d new in 24h)",
		s.CycleID, s.Duration.Round(time.Second),
		s.Pages, s.AdsSeen,
		s.New, s.PriceChanged, s.StatusChanged, s.Reposted, s.Removed,
		s.Notified, s.FetchErrors,
		s.TotalAds, s.NewToday)
	d.notifyAdmin(ctx, text)
}

func (d *Dispatcher) notifyAdmin(ctx context.Context, text string) {
	if d.adminChat == 0 {
		return
	}
	if err := d.sender.Send(ctx, d.adminChat, text); err != nil {
		d.log.Warn("failed to notify admin", zap.Error(err))
	}
}
