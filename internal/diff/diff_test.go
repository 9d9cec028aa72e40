package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itcaat/bazalert/internal/models"
)

func knownPrice(amount int) models.Price {
	return models.Price{Amount: amount, Currency: "EUR", Known: true}
}

func TestClassify(t *testing.T) {
	base := models.AdRecord{
		ID:    "100",
		Price: knownPrice(9000),
		Tier:  models.TierBasic,
	}

	tests := []struct {
		name    string
		current models.AdRecord
		prior   *models.AdRecord
		want    models.ChangeKind
	}{
		{
			name:    "no prior record is new",
			current: base,
			prior:   nil,
			want:    models.ChangeNew,
		},
		{
			name:    "identical record is unchanged",
			current: base,
			prior:   &base,
			want:    models.ChangeUnchanged,
		},
		{
			name: "price drop",
			current: models.AdRecord{
				ID: "100", Price: knownPrice(8500), Tier: models.TierBasic,
			},
			prior: &base,
			want:  models.ChangePriceChanged,
		},
		{
			name: "known price becomes unknown",
			current: models.AdRecord{
				ID: "100", Price: models.UnknownPrice("Price on request"), Tier: models.TierBasic,
			},
			prior: &base,
			want:  models.ChangePriceChanged,
		},
		{
			name: "tier promotion",
			current: models.AdRecord{
				ID: "100", Price: knownPrice(9000), Tier: models.TierVIP,
			},
			prior: &base,
			want:  models.ChangeStatusChanged,
		},
		{
			name: "business flag flip",
			current: models.AdRecord{
				ID: "100", Price: knownPrice(9000), Tier: models.TierBasic, IsBusiness: true,
			},
			prior: &base,
			want:  models.ChangeStatusChanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := Classify(tt.current, tt.prior)
			assert.Equal(t, tt.want, event.Kind)
		})
	}
}

func TestClassifyRepost(t *testing.T) {
	posted := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	prior := models.AdRecord{ID: "100", Price: knownPrice(9000), Tier: models.TierBasic, PostedAt: posted}

	t.Run("forward date is a repost", func(t *testing.T) {
		current := prior
		current.PostedAt = posted.Add(72 * time.Hour)

		event := Classify(current, &prior)
		assert.Equal(t, models.ChangeReposted, event.Kind)
		assert.True(t, event.PostedForward)
		assert.True(t, event.OldPosted.Equal(posted))
		assert.True(t, event.NewPosted.Equal(current.PostedAt))
	})

	t.Run("same date is unchanged", func(t *testing.T) {
		event := Classify(prior, &prior)
		assert.Equal(t, models.ChangeUnchanged, event.Kind)
	})

	t.Run("earlier card date is unchanged", func(t *testing.T) {
		current := prior
		current.PostedAt = posted.Add(-72 * time.Hour)
		event := Classify(current, &prior)
		assert.Equal(t, models.ChangeUnchanged, event.Kind)
	})

	t.Run("missing card date never reposts", func(t *testing.T) {
		current := prior
		current.PostedAt = time.Time{}
		event := Classify(current, &prior)
		assert.Equal(t, models.ChangeUnchanged, event.Kind)
	})

	t.Run("price change outranks the repost", func(t *testing.T) {
		current := prior
		current.PostedAt = posted.Add(72 * time.Hour)
		current.Price = knownPrice(8500)
		event := Classify(current, &prior)
		assert.Equal(t, models.ChangePriceChanged, event.Kind)
		assert.True(t, event.PostedForward)
	})

	t.Run("successive bumps get distinct dedup keys", func(t *testing.T) {
		first := prior
		first.PostedAt = posted.Add(72 * time.Hour)
		second := prior
		second.PostedAt = posted.Add(144 * time.Hour)

		a := Classify(first, &prior)
		b := Classify(second, &prior)
		assert.NotEqual(t, a.DedupKey(), b.DedupKey())
	})
}

func TestClassifyBothDeltasYieldOneEvent(t *testing.T) {
	prior := models.AdRecord{ID: "100", Price: knownPrice(9000), Tier: models.TierBasic}
	current := models.AdRecord{ID: "100", Price: knownPrice(8000), Tier: models.TierVIP}

	event := Classify(current, &prior)
	assert.Equal(t, models.ChangePriceChanged, event.Kind)
	assert.True(t, event.PriceDiffers)
	assert.True(t, event.StatusDiffers)
	assert.Equal(t, 9000, event.OldPrice.Amount)
	assert.Equal(t, 8000, event.NewPrice.Amount)
	assert.Equal(t, models.TierBasic, event.OldTier)
	assert.Equal(t, models.TierVIP, event.NewTier)
}

func TestClassifyUnknownPricesEqual(t *testing.T) {
	prior := models.AdRecord{ID: "100", Price: models.UnknownPrice("POA")}
	current := models.AdRecord{ID: "100", Price: models.UnknownPrice("Price on request")}

	event := Classify(current, &prior)
	assert.Equal(t, models.ChangeUnchanged, event.Kind)
}

func TestClassifyRemovals(t *testing.T) {
	priors := []models.AdRecord{
		{ID: "1", Page: 1},
		{ID: "2", Page: 1},
		{ID: "3", Page: 2},
		{ID: "4", Page: 1, Removed: true},
	}
	seen := map[string]bool{"1": true}
	fetchedPages := map[int]bool{1: true}

	events := ClassifyRemovals(priors, seen, fetchedPages)
	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeRemoved, events[0].Kind)
	assert.Equal(t, "2", events[0].Ad.ID)
}

func TestClassifyRemovalsNothingFetched(t *testing.T) {
	priors := []models.AdRecord{{ID: "1", Page: 1}}

	events := ClassifyRemovals(priors, map[string]bool{}, map[int]bool{})
	assert.Empty(t, events, "an ad on a page that was not re-fetched is not removed")
}

func TestDedupKeyDistinguishesSuccessiveDrops(t *testing.T) {
	prior := models.AdRecord{ID: "100", Price: knownPrice(10000)}

	first := Classify(models.AdRecord{ID: "100", Price: knownPrice(9000)}, &prior)
	second := Classify(models.AdRecord{ID: "100", Price: knownPrice(8000)}, &prior)

	assert.NotEqual(t, first.DedupKey(), second.DedupKey())

	replay := Classify(models.AdRecord{ID: "100", Price: knownPrice(9000)}, &prior)
	assert.Equal(t, first.DedupKey(), replay.DedupKey())
}
