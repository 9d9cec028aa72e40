package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itcaat/bazalert/internal/models"
)

func TestFormatEventNew(t *testing.T) {
	event := models.ChangeEvent{
		Kind: models.ChangeNew,
		Ad: models.AdRecord{
			ID:         "100",
			URL:        "https://www.bazaraki.com/adv/100_bmw/",
			Brand:      "BMW",
			Model:      "320i",
			Year:       2018,
			Mileage:    80000,
			EngineCC:   2000,
			FuelType:   "Petrol",
			Gearbox:    "Automatic",
			SellerName: "Andreas",
			Price:      models.Price{Amount: 9000, Currency: "EUR", Known: true},
			Tier:       models.TierVIP,
		},
	}

	msg := FormatEvent(event)
	assert.Contains(t, msg, "New Ad Found")
	assert.Contains(t, msg, "🌟 VIP")
	assert.Contains(t, msg, "BMW 320i 2018")
	assert.Contains(t, msg, "9000 €")
	assert.Contains(t, msg, "80000 km")
	assert.Contains(t, msg, `href="https://www.bazaraki.com/adv/100_bmw/"`)
}

func TestFormatEventEscapesScrapedText(t *testing.T) {
	event := models.ChangeEvent{
		Kind: models.ChangeNew,
		Ad: models.AdRecord{
			ID:         "100",
			Title:      `<script>alert("x")</script> & more`,
			SellerName: "Deals <b>4u</b>",
			Price:      models.UnknownPrice(""),
		},
	}

	msg := FormatEvent(event)
	assert.NotContains(t, msg, "<script>")
	assert.Contains(t, msg, "&lt;script&gt;")
	assert.Contains(t, msg, "&amp; more")
	assert.NotContains(t, msg, "<b>4u</b>")
}

func TestFormatEventPriceDrop(t *testing.T) {
	event := models.ChangeEvent{
		Kind:         models.ChangePriceChanged,
		PriceDiffers: true,
		OldPrice:     models.Price{Amount: 10000, Known: true},
		NewPrice:     models.Price{Amount: 8500, Known: true},
		Ad:           models.AdRecord{ID: "100", Title: "BMW", URL: "https://x/adv/100/"},
	}

	msg := FormatEvent(event)
	assert.Contains(t, msg, "Price Drop")
	assert.Contains(t, msg, "<s>10000 €</s>")
	assert.Contains(t, msg, "<b>8500 €</b>")
}

func TestFormatEventPriceChangeCarriesStatusDelta(t *testing.T) {
	event := models.ChangeEvent{
		Kind:          models.ChangePriceChanged,
		PriceDiffers:  true,
		StatusDiffers: true,
		OldPrice:      models.Price{Amount: 10000, Known: true},
		NewPrice:      models.Price{Amount: 8500, Known: true},
		OldTier:       models.TierBasic,
		NewTier:       models.TierVIP,
		Ad:            models.AdRecord{ID: "100", Title: "BMW"},
	}

	msg := FormatEvent(event)
	assert.Contains(t, msg, "Basic ➜ VIP")
}

func TestFormatEventStatus(t *testing.T) {
	event := models.ChangeEvent{
		Kind:          models.ChangeStatusChanged,
		StatusDiffers: true,
		OldTier:       models.TierBasic,
		NewTier:       models.TierTop,
		Ad: models.AdRecord{
			ID:    "100",
			Title: "BMW",
			Price: models.Price{Amount: 9000, Known: true},
		},
	}

	msg := FormatEvent(event)
	assert.Contains(t, msg, "Status Update")
	assert.Contains(t, msg, "Basic ➜ TOP")
}

func TestFormatEventReposted(t *testing.T) {
	event := models.ChangeEvent{
		Kind: models.ChangeReposted,
		Ad: models.AdRecord{
			ID:    "100",
			URL:   "https://www.bazaraki.com/adv/100_car/",
			Brand: "BMW",
			Model: "320i",
		},
	}

	msg := FormatEvent(event)
	assert.Contains(t, msg, "Ad Reposted!")
	assert.Contains(t, msg, "bumped to the top")
	assert.Contains(t, msg, `<a href="https://www.bazaraki.com/adv/100_car/">BMW 320i</a>`)
}

func TestFormatEventRemoved(t *testing.T) {
	event := models.ChangeEvent{
		Kind: models.ChangeRemoved,
		Ad: models.AdRecord{
			ID:    "100",
			Title: "BMW",
			Price: models.Price{Amount: 9000, Known: true},
		},
	}

	msg := FormatEvent(event)
	assert.Contains(t, msg, "Ad Removed")
	assert.Contains(t, msg, "Last price: 9000 €")
}

func TestWithAlertName(t *testing.T) {
	msg := WithAlertName(`My <Alert> & Co`, "body")
	assert.True(t, strings.HasPrefix(msg, "🔔 <b>My &lt;Alert&gt; &amp; Co</b>"))
	assert.Contains(t, msg, "body")
}

func TestFormatPriceUnknown(t *testing.T) {
	assert.Equal(t, "Price on request", formatPrice(models.UnknownPrice("")))
	assert.Equal(t, "POA", formatPrice(models.UnknownPrice("POA")))
	assert.Equal(t, "15000 $", formatPrice(models.Price{Amount: 15000, Currency: "USD", Known: true}))
}
