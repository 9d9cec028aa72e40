package models

import "time"

// Alert is a saved user filter. The user-facing bot creates and edits these;
// the scrape cycle only reads the active ones.
type Alert struct {
	ID        int64     `json:"id" db:"alert_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Filter    Filter    `json:"filter" db:"-"`
}

// Filter is an alert's predicate over ad attributes. A zero value on any
// field means "Any": the field places no constraint on matching ads.
// Numeric ranges are inclusive on both ends.
type Filter struct {
	Brand      string   `json:"brand,omitempty"`
	Models     []string `json:"models,omitempty"`
	YearMin    int      `json:"yearMin,omitempty"`
	YearMax    int      `json:"yearMax,omitempty"`
	PriceMin   int      `json:"priceMin,omitempty"`
	PriceMax   int      `json:"priceMax,omitempty"`
	MileageMin int      `json:"mileageMin,omitempty"`
	MileageMax int      `json:"mileageMax,omitempty"`
	EngineMin  int      `json:"engineMin,omitempty"`
	EngineMax  int      `json:"engineMax,omitempty"`
	Gearbox    string   `json:"gearbox,omitempty"`
	FuelType   string   `json:"fuelType,omitempty"`
	DriveType  string   `json:"driveType,omitempty"`
	BodyType   string   `json:"bodyType,omitempty"`
	Color      string   `json:"color,omitempty"`
	// Tier accepts a single tier name or the "VIP+TOP" combination.
	Tier string `json:"tier,omitempty"`
	// Business is nil for Any, otherwise constrains the seller type.
	Business *bool  `json:"business,omitempty"`
	SellerID string `json:"sellerId,omitempty"`
}

// ConstrainsPrice reports whether the filter places any bound on price.
// Ads with an unknown price only match alerts where this is false.
func (f Filter) ConstrainsPrice() bool {
	return f.PriceMin > 0 || f.PriceMax > 0
}
