// Package diff classifies freshly scraped ads against their persisted state.
package diff

import (
	"github.com/itcaat/bazalert/internal/models"
)

// Classify compares a freshly extracted record with the last persisted record
// for the same ad ID. prior is nil for ads never seen before.
//
// Priority order: New, then PriceChanged, then StatusChanged, then Reposted,
// then Unchanged. An ad whose price and status both moved yields a single
// PriceChanged event carrying both deltas, never two events in the same
// cycle.
func Classify(current models.AdRecord, prior *models.AdRecord) models.ChangeEvent {
	if prior == nil {
		return models.ChangeEvent{Kind: models.ChangeNew, Ad: current}
	}

	event := models.ChangeEvent{Kind: models.ChangeUnchanged, Ad: current}

	if !current.Price.Equal(prior.Price) {
		event.PriceDiffers = true
		event.OldPrice = prior.Price
		event.NewPrice = current.Price
	}

	if current.Tier != prior.Tier || current.IsBusiness != prior.IsBusiness {
		event.StatusDiffers = true
		event.OldTier = prior.Tier
		event.NewTier = current.Tier
		event.OldBusiness = prior.IsBusiness
		event.NewBusiness = current.IsBusiness
	}

	// A forward-moving post date means the seller bumped the ad. Only
	// comparable when both cycles saw a date on the card.
	if !current.PostedAt.IsZero() && !prior.PostedAt.IsZero() && current.PostedAt.After(prior.PostedAt) {
		event.PostedForward = true
		event.OldPosted = prior.PostedAt
		event.NewPosted = current.PostedAt
	}

	switch {
	case event.PriceDiffers:
		event.Kind = models.ChangePriceChanged
	case event.StatusDiffers:
		event.Kind = models.ChangeStatusChanged
	case event.PostedForward:
		event.Kind = models.ChangeReposted
	}
	return event
}

// ClassifyRemovals finds ads that vanished from the marketplace this cycle.
// priors is the set of previously known, not-yet-removed ads; seen holds the
// ad IDs found in this cycle's fetch; fetchedPages holds the index page
// numbers that were actually retrieved. An ad only counts as removed when
// the page it was last seen on was re-fetched, so a partial fetch cannot
// produce false removals.
func ClassifyRemovals(priors []models.AdRecord, seen map[string]bool, fetchedPages map[int]bool) []models.ChangeEvent {
	var events []models.ChangeEvent
	for _, prior := range priors {
		if seen[prior.ID] || prior.Removed {
			continue
		}
		if !fetchedPages[prior.Page] {
			continue
		}
		events = append(events, models.ChangeEvent{
			Kind: models.ChangeRemoved,
			Ad:   prior,
		})
	}
	return events
}
