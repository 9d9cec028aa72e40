package models

import (
	"fmt"
	"time"
)

// ChangeKind classifies what happened to an ad between two scrape cycles.
type ChangeKind string

const (
	ChangeNew           ChangeKind = "new"
	ChangePriceChanged  ChangeKind = "price"
	ChangeStatusChanged ChangeKind = "status"
	ChangeReposted      ChangeKind = "repost"
	ChangeRemoved       ChangeKind = "removed"
	ChangeUnchanged     ChangeKind = "unchanged"
)

// ChangeEvent tags an AdRecord with its classification for the current cycle.
// Produced and consumed within one cycle; never persisted.
type ChangeEvent struct {
	Kind ChangeKind
	Ad   AdRecord

	// Price delta, set when the price differs (including known<->unknown
	// transitions). Valid for Kind == ChangePriceChanged, and also carried
	// alongside a status delta when both changed in the same cycle.
	OldPrice Price
	NewPrice Price

	// Status delta, set when tier or business flag differs.
	OldTier     Tier
	NewTier     Tier
	OldBusiness bool
	NewBusiness bool

	// Post-date delta, set when the listing card shows a post date later
	// than the stored one. The seller bumped the ad back to the top.
	OldPosted time.Time
	NewPosted time.Time

	PriceDiffers  bool
	StatusDiffers bool
	PostedForward bool
}

// PriceDropped reports whether the event is a decrease between two known prices.
func (e ChangeEvent) PriceDropped() bool {
	return e.PriceDiffers && e.OldPrice.Known && e.NewPrice.Known && e.NewPrice.Amount < e.OldPrice.Amount
}

// DedupKey is the classification component of the notification de-dup key.
// Repeatable kinds embed the salient new value so a second, distinct change
// (another price drop, another tier bump) notifies again while an identical
// replay of the same change never does.
func (e ChangeEvent) DedupKey() string {
	switch e.Kind {
	case ChangePriceChanged:
		if e.NewPrice.Known {
			return fmt.Sprintf("price:%d", e.NewPrice.Amount)
		}
		return "price:unknown"
	case ChangeStatusChanged:
		return fmt.Sprintf("status:%s:%t", e.NewTier, e.NewBusiness)
	case ChangeReposted:
		return fmt.Sprintf("repost:%d", e.NewPosted.Unix())
	default:
		return string(e.Kind)
	}
}
