// Package match evaluates ads against user alert filters.
package match

import (
	"strings"

	"github.com/itcaat/bazalert/internal/models"
)

// Policy decides which change events are eligible for alert matching.
// The default keeps notification noise down: only brand-new ads and price
// drops reach users, while every classification still counts in the admin
// summary.
type Policy struct {
	NewAds         bool
	PriceDrops     bool
	PriceIncreases bool
	StatusChanges  bool
	Reposts        bool
	Removals       bool
}

// DefaultPolicy matches the original bot's behaviour.
func DefaultPolicy() Policy {
	return Policy{NewAds: true, PriceDrops: true}
}

// Eligible reports whether an event should be matched against alerts at all.
func (p Policy) Eligible(event models.ChangeEvent) bool {
	switch event.Kind {
	case models.ChangeNew:
		return p.NewAds
	case models.ChangePriceChanged:
		if event.PriceDropped() {
			return p.PriceDrops
		}
		return p.PriceIncreases
	case models.ChangeStatusChanged:
		return p.StatusChanges
	case models.ChangeReposted:
		return p.Reposts
	case models.ChangeRemoved:
		return p.Removals
	default:
		return false
	}
}

// Ads returns the subset of alerts whose filter the ad satisfies. Each alert
// is evaluated independently, so the result only depends on (ad, alerts) and
// the input order of alerts is preserved without affecting membership.
func Ads(ad models.AdRecord, alerts []models.Alert) []models.Alert {
	var matched []models.Alert
	for _, alert := range alerts {
		if !alert.Active {
			continue
		}
		if Filter(ad, alert.Filter) {
			matched = append(matched, alert)
		}
	}
	return matched
}

// Filter reports whether one ad satisfies one filter. Every constrained
// field must hold; zero-valued fields constrain nothing.
func Filter(ad models.AdRecord, f models.Filter) bool {
	if f.Brand != "" && !strings.EqualFold(f.Brand, ad.Brand) {
		return false
	}

	if len(f.Models) > 0 && !containsFold(f.Models, ad.Model) {
		return false
	}

	if !rangeOK(ad.Year, f.YearMin, f.YearMax) {
		return false
	}

	// An ad with an unknown price only matches alerts that leave price
	// unconstrained.
	if f.ConstrainsPrice() {
		if !ad.Price.Known {
			return false
		}
		if !rangeOK(ad.Price.Amount, f.PriceMin, f.PriceMax) {
			return false
		}
	}

	if !rangeOK(ad.Mileage, f.MileageMin, f.MileageMax) {
		return false
	}
	if !rangeOK(ad.EngineCC, f.EngineMin, f.EngineMax) {
		return false
	}

	if f.Gearbox != "" && !strings.EqualFold(f.Gearbox, ad.Gearbox) {
		return false
	}
	if f.FuelType != "" && !strings.EqualFold(f.FuelType, ad.FuelType) {
		return false
	}
	if f.DriveType != "" && !strings.EqualFold(f.DriveType, ad.DriveType) {
		return false
	}
	if f.BodyType != "" && !strings.EqualFold(f.BodyType, ad.BodyType) {
		return false
	}
	if f.Color != "" && !strings.EqualFold(f.Color, ad.Color) {
		return false
	}

	if f.Tier != "" && !tierOK(f.Tier, ad.Tier) {
		return false
	}

	if f.Business != nil && *f.Business != ad.IsBusiness {
		return false
	}

	if f.SellerID != "" && !strings.EqualFold(strings.TrimSpace(f.SellerID), strings.TrimSpace(ad.SellerID)) {
		return false
	}

	return true
}

// rangeOK checks an inclusive numeric range where zero bounds mean "Any".
// A constrained bound requires the ad value to be present (non-zero).
func rangeOK(value, min, max int) bool {
	if min > 0 && (value == 0 || value < min) {
		return false
	}
	if max > 0 && (value == 0 || value > max) {
		return false
	}
	return true
}

// tierOK handles the "VIP+TOP" combination filter alongside single tiers.
func tierOK(want string, got models.Tier) bool {
	if strings.EqualFold(want, "VIP+TOP") {
		return got == models.TierVIP || got == models.TierTop
	}
	return strings.EqualFold(want, string(got))
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
