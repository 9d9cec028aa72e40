package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/itcaat/bazalert/internal/models"
)

type alertRow struct {
	ID        int64     `db:"alert_id"`
	UserID    int64     `db:"user_id"`
	Name      string    `db:"name"`
	Active    bool      `db:"is_active"`
	Filters   string    `db:"filters"`
	CreatedAt time.Time `db:"created_at"`
}

func (r alertRow) toAlert() (models.Alert, error) {
	alert := models.Alert{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Filters), &alert.Filter); err != nil {
		return models.Alert{}, fmt.Errorf("decode filters for alert %d: %w", r.ID, err)
	}
	return alert, nil
}

// CreateAlert persists a new alert and returns its assigned ID.
func (s *Store) CreateAlert(ctx context.Context, alert models.Alert) (int64, error) {
	filters, err := json.Marshal(alert.Filter)
	if err != nil {
		return 0, fmt.Errorf("encode filters: %w", err)
	}
	createdAt := alert.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (user_id, name, is_active, filters, created_at) VALUES (?, ?, ?, ?, ?)`,
		alert.UserID, alert.Name, alert.Active, string(filters), createdAt)
	if err != nil {
		return 0, fmt.Errorf("create alert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create alert: %w", err)
	}
	return id, nil
}

// GetAlert returns one alert by ID, or ErrNotFound.
func (s *Store) GetAlert(ctx context.Context, id int64) (*models.Alert, error) {
	var row alertRow
	query := `SELECT alert_id, user_id, name, is_active, filters, created_at FROM alerts WHERE alert_id = ?`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get alert %d: %w", id, err)
	}
	alert, err := row.toAlert()
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListActiveAlerts returns all active alerts in creation order.
func (s *Store) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	var rows []alertRow
	query := `SELECT alert_id, user_id, name, is_active, filters, created_at
		FROM alerts WHERE is_active = 1 ORDER BY alert_id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	alerts := make([]models.Alert, 0, len(rows))
	for _, row := range rows {
		alert, err := row.toAlert()
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// SetAlertActive toggles an alert without deleting its notification history,
// so reactivating does not replay old notifications.
func (s *Store) SetAlertActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_active = ? WHERE alert_id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set alert %d active=%t: %w", id, active, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
