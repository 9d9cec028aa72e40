package models

import "time"

// Tier is the paid-promotion level of a listing on Bazaraki.
type Tier string

const (
	TierBasic Tier = "Basic"
	TierTop   Tier = "TOP"
	TierVIP   Tier = "VIP"
)

// AdRecord represents an individual car listing from Bazaraki.
// One record exists per source ad ID; the scrape cycle rebuilds it from the
// live page each pass and compares it with the persisted copy.
type AdRecord struct {
	ID         string    `json:"id" db:"ad_id"`
	URL        string    `json:"url" db:"ad_url"`
	Title      string    `json:"title" db:"title"`
	Price      Price     `json:"price" db:"-"`
	Tier       Tier      `json:"tier" db:"tier"`
	Brand      string    `json:"brand,omitempty" db:"brand"`
	Model      string    `json:"model,omitempty" db:"model"`
	Year       int       `json:"year,omitempty" db:"year"`
	Mileage    int       `json:"mileage,omitempty" db:"mileage"`
	EngineCC   int       `json:"engineCc,omitempty" db:"engine_cc"`
	Gearbox    string    `json:"gearbox,omitempty" db:"gearbox"`
	FuelType   string    `json:"fuelType,omitempty" db:"fuel_type"`
	DriveType  string    `json:"driveType,omitempty" db:"drive_type"`
	BodyType   string    `json:"bodyType,omitempty" db:"body_type"`
	Color      string    `json:"color,omitempty" db:"color"`
	SellerName string    `json:"sellerName,omitempty" db:"seller_name"`
	SellerID   string    `json:"sellerId,omitempty" db:"seller_id"`
	IsBusiness bool      `json:"isBusiness" db:"is_business"`
	PostedAt   time.Time `json:"postedAt,omitempty" db:"posted_at"`
	FirstSeen  time.Time `json:"firstSeen" db:"first_seen"`
	LastSeen   time.Time `json:"lastSeen" db:"last_seen"`
	// Page is the search-results page number the ad was last seen on.
	// Removal detection only trusts a disappearance when this page was
	// actually re-fetched in the current cycle.
	Page    int  `json:"page" db:"page"`
	Removed bool `json:"removed" db:"removed"`
}

// Price represents a price extracted from a listing. Amount is a whole euro
// value; Known is false when no numeric price could be parsed, in which case
// Amount is zero and Text preserves whatever the page showed.
type Price struct {
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Text     string `json:"text,omitempty"`
	Known    bool   `json:"known"`
}

// UnknownPrice returns the explicit "no parseable price" value.
func UnknownPrice(text string) Price {
	return Price{Currency: "EUR", Text: text, Known: false}
}

// Equal reports whether two prices are the same for change detection.
// Two unknown prices are equal regardless of their raw text.
func (p Price) Equal(other Price) bool {
	if !p.Known && !other.Known {
		return true
	}
	return p.Known == other.Known && p.Amount == other.Amount
}
