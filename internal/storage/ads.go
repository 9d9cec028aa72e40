package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itcaat/bazalert/internal/models"
)

const adSelectColumns = `ad_id, ad_url, title, price_amount, price_currency, price_text, price_known,
	tier, brand, model, year, mileage, engine_cc, gearbox, fuel_type, drive_type, body_type, color,
	seller_name, seller_id, is_business, posted_at, first_seen, last_seen, page, removed`

// adRow flattens AdRecord for sqlx scanning; Price is stored as four columns.
type adRow struct {
	AdID          string       `db:"ad_id"`
	AdURL         string       `db:"ad_url"`
	Title         string       `db:"title"`
	PriceAmount   int          `db:"price_amount"`
	PriceCurrency string       `db:"price_currency"`
	PriceText     string       `db:"price_text"`
	PriceKnown    bool         `db:"price_known"`
	Tier          string       `db:"tier"`
	Brand         string       `db:"brand"`
	Model         string       `db:"model"`
	Year          int          `db:"year"`
	Mileage       int          `db:"mileage"`
	EngineCC      int          `db:"engine_cc"`
	Gearbox       string       `db:"gearbox"`
	FuelType      string       `db:"fuel_type"`
	DriveType     string       `db:"drive_type"`
	BodyType      string       `db:"body_type"`
	Color         string       `db:"color"`
	SellerName    string       `db:"seller_name"`
	SellerID      string       `db:"seller_id"`
	IsBusiness    bool         `db:"is_business"`
	PostedAt      sql.NullTime `db:"posted_at"`
	FirstSeen     time.Time    `db:"first_seen"`
	LastSeen      time.Time    `db:"last_seen"`
	Page          int          `db:"page"`
	Removed       bool         `db:"removed"`
}

func (r adRow) toRecord() models.AdRecord {
	ad := models.AdRecord{
		ID:    r.AdID,
		URL:   r.AdURL,
		Title: r.Title,
		Price: models.Price{
			Amount:   r.PriceAmount,
			Currency: r.PriceCurrency,
			Text:     r.PriceText,
			Known:    r.PriceKnown,
		},
		Tier:       models.Tier(r.Tier),
		Brand:      r.Brand,
		Model:      r.Model,
		Year:       r.Year,
		Mileage:    r.Mileage,
		EngineCC:   r.EngineCC,
		Gearbox:    r.Gearbox,
		FuelType:   r.FuelType,
		DriveType:  r.DriveType,
		BodyType:   r.BodyType,
		Color:      r.Color,
		SellerName: r.SellerName,
		SellerID:   r.SellerID,
		IsBusiness: r.IsBusiness,
		FirstSeen:  r.FirstSeen,
		LastSeen:   r.LastSeen,
		Page:       r.Page,
		Removed:    r.Removed,
	}
	if r.PostedAt.Valid {
		ad.PostedAt = r.PostedAt.Time
	}
	return ad
}

func fromRecord(ad models.AdRecord) adRow {
	row := adRow{
		AdID:          ad.ID,
		AdURL:         ad.URL,
		Title:         ad.Title,
		PriceAmount:   ad.Price.Amount,
		PriceCurrency: ad.Price.Currency,
		PriceText:     ad.Price.Text,
		PriceKnown:    ad.Price.Known,
		Tier:          string(ad.Tier),
		Brand:         ad.Brand,
		Model:         ad.Model,
		Year:          ad.Year,
		Mileage:       ad.Mileage,
		EngineCC:      ad.EngineCC,
		Gearbox:       ad.Gearbox,
		FuelType:      ad.FuelType,
		DriveType:     ad.DriveType,
		BodyType:      ad.BodyType,
		Color:         ad.Color,
		SellerName:    ad.SellerName,
		SellerID:      ad.SellerID,
		IsBusiness:    ad.IsBusiness,
		FirstSeen:     ad.FirstSeen,
		LastSeen:      ad.LastSeen,
		Page:          ad.Page,
		Removed:       ad.Removed,
	}
	if !ad.PostedAt.IsZero() {
		row.PostedAt = sql.NullTime{Time: ad.PostedAt, Valid: true}
	}
	return row
}

// GetAd returns the persisted record for an ad ID, or ErrNotFound.
func (s *Store) GetAd(ctx context.Context, adID string) (*models.AdRecord, error) {
	var row adRow
	query := `SELECT ` + adSelectColumns + ` FROM ads WHERE ad_id = ?`
	if err := s.db.GetContext(ctx, &row, query, adID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ad %s: %w", adID, err)
	}
	ad := row.toRecord()
	return &ad, nil
}

// UpsertAd inserts or replaces one ad record atomically. first_seen survives
// updates so the record keeps its original discovery time.
func (s *Store) UpsertAd(ctx context.Context, ad models.AdRecord) error {
	row := fromRecord(ad)
	query := `
		INSERT INTO ads (` + adSelectColumns + `)
		VALUES (:ad_id, :ad_url, :title, :price_amount, :price_currency, :price_text, :price_known,
			:tier, :brand, :model, :year, :mileage, :engine_cc, :gearbox, :fuel_type, :drive_type,
			:body_type, :color, :seller_name, :seller_id, :is_business, :posted_at, :first_seen,
			:last_seen, :page, :removed)
		ON CONFLICT (ad_id) DO UPDATE SET
			ad_url = excluded.ad_url,
			title = excluded.title,
			price_amount = excluded.price_amount,
			price_currency = excluded.price_currency,
			price_text = excluded.price_text,
			price_known = excluded.price_known,
			tier = excluded.tier,
			brand = excluded.brand,
			model = excluded.model,
			year = excluded.year,
			mileage = excluded.mileage,
			engine_cc = excluded.engine_cc,
			gearbox = excluded.gearbox,
			fuel_type = excluded.fuel_type,
			drive_type = excluded.drive_type,
			body_type = excluded.body_type,
			color = excluded.color,
			seller_name = excluded.seller_name,
			seller_id = excluded.seller_id,
			is_business = excluded.is_business,
			posted_at = excluded.posted_at,
			last_seen = excluded.last_seen,
			page = excluded.page,
			removed = excluded.removed
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert ad %s: %w", ad.ID, err)
	}
	return nil
}

// TouchAd refreshes last_seen and page for an unchanged ad. Seeing the ad
// on an index page also clears the removed flag, so a delisted ad that
// comes back at the same price returns to the active set.
func (s *Store) TouchAd(ctx context.Context, adID string, page int, seenAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ads SET last_seen = ?, page = ?, removed = 0 WHERE ad_id = ?`, seenAt, page, adID)
	if err != nil {
		return fmt.Errorf("touch ad %s: %w", adID, err)
	}
	return nil
}

// ListActiveAds returns all ads not yet marked removed, for removal detection.
func (s *Store) ListActiveAds(ctx context.Context) ([]models.AdRecord, error) {
	var rows []adRow
	query := `SELECT ` + adSelectColumns + ` FROM ads WHERE removed = 0`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active ads: %w", err)
	}
	ads := make([]models.AdRecord, 0, len(rows))
	for _, row := range rows {
		ads = append(ads, row.toRecord())
	}
	return ads, nil
}

// MarkRemoved flags an ad as gone from the marketplace.
func (s *Store) MarkRemoved(ctx context.Context, adID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE ads SET removed = 1, last_seen = ? WHERE ad_id = ?`, at, adID)
	if err != nil {
		return fmt.Errorf("mark removed %s: %w", adID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecentAds returns the most recently seen ads, newest first. Used by
// the search command to evaluate a filter against current market state.
func (s *Store) ListRecentAds(ctx context.Context, limit int) ([]models.AdRecord, error) {
	var rows []adRow
	query := `SELECT ` + adSelectColumns + ` FROM ads WHERE removed = 0 ORDER BY last_seen DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent ads: %w", err)
	}
	ads := make([]models.AdRecord, 0, len(rows))
	for _, row := range rows {
		ads = append(ads, row.toRecord())
	}
	return ads, nil
}

// Stats summarizes the ads table for the admin summary footer.
type Stats struct {
	TotalAds int `db:"total_ads"`
	NewToday int `db:"new_today"`
}

// GetStats returns ad counts: everything ever seen and first-seen in the
// last 24 hours.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	query := `
		SELECT COUNT(*) AS total_ads,
			COALESCE(SUM(CASE WHEN first_seen > ? THEN 1 ELSE 0 END), 0) AS new_today
		FROM ads
	`
	if err := s.db.GetContext(ctx, &stats, query, time.Now().Add(-24*time.Hour)); err != nil {
		return Stats{}, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}
