package storage

import (
	"context"
	"fmt"
	"time"
)

// HasNotified reports whether a notification with this change key was already
// sent for the (alert, ad) pair.
func (s *Store) HasNotified(ctx context.Context, alertID int64, adID, changeKey string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE alert_id = ? AND ad_id = ? AND change_key = ?`,
		alertID, adID, changeKey)
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return count > 0, nil
}

// RecordNotification marks a notification as sent. Recording the same key
// twice is not an error; the first record wins.
func (s *Store) RecordNotification(ctx context.Context, alertID int64, adID, changeKey string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (alert_id, ad_id, change_key, sent_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (alert_id, ad_id, change_key) DO NOTHING`,
		alertID, adID, changeKey, at)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// PruneNotifications removes dedup records for ads no longer in the ads
// table, keeping the table from growing without bound.
func (s *Store) PruneNotifications(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE ad_id NOT IN (SELECT ad_id FROM ads)`)
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
