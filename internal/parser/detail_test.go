package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/itcaat/bazalert/internal/models"
)

const detailPageHTML = `
<html>
<body data-breadcrumbs="Motors - Cars - Mercedes-Benz - GLA-Class">
<h1 class="page-title">Mercedes-Benz GLA 200, 2019</h1>
<span class="date-meta">12.03.2024 10:15</span>
<div class="announcement-price">€25,500</div>
<ul class="chars-column">
  <li><span class="key-chars">Year:</span><span class="value-chars">2019</span></li>
  <li><span class="key-chars">Gearbox:</span><span class="value-chars">Automatic</span></li>
  <li><span class="key-chars">Fuel type:</span><span class="value-chars">Petrol</span></li>
  <li><span class="key-chars">Engine size:</span><span class="value-chars">1.6L</span></li>
  <li><span class="key-chars">Mileage:</span><span class="value-chars">45 000 km</span></li>
  <li><span class="key-chars">Body type:</span><span class="value-chars">SUV</span></li>
  <li><span class="key-chars">Colour:</span><span class="value-chars">White</span></li>
  <li><span class="key-chars">Drive:</span><span class="value-chars">Front</span></li>
</ul>
<div class="author-name" data-user="98765">
  <a href="/user/98765/">Autohaus Nicosia</a>
</div>
<div class="author-distinctions__item">Verified dealer</div>
</body>
</html>`

func TestParseDetailPage(t *testing.T) {
	p := New("https://www.bazaraki.com", zap.NewNop())

	d, err := p.ParseDetailPage(detailPageHTML)
	require.NoError(t, err)

	assert.Equal(t, "Mercedes-Benz GLA 200, 2019", d.Title)
	// Breadcrumbs win over the spec list for brand and model.
	assert.Equal(t, "Mercedes-Benz", d.Brand)
	assert.Equal(t, "GLA-Class", d.Model)
	assert.Equal(t, 2019, d.Year)
	assert.Equal(t, "Automatic", d.Gearbox)
	assert.Equal(t, "Petrol", d.FuelType)
	assert.Equal(t, 1600, d.EngineCC)
	assert.Equal(t, 45000, d.Mileage)
	assert.Equal(t, "SUV", d.BodyType)
	assert.Equal(t, "White", d.Color)
	assert.Equal(t, "Front", d.DriveType)
	assert.Equal(t, "98765", d.SellerID)
	assert.True(t, d.IsBusiness, "distinction badge marks a business seller")
	assert.True(t, d.Price.Known)
	assert.Equal(t, 25500, d.Price.Amount)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC).Year(), d.PostedAt.Year())
}

func TestParseDetailPagePrivateSeller(t *testing.T) {
	p := New("https://www.bazaraki.com", zap.NewNop())

	html := `
	<html><body data-breadcrumbs="Motors - Cars - Toyota">
	<h1>Toyota Yaris</h1>
	<div class="author-name">Andreas</div>
	</body></html>`

	d, err := p.ParseDetailPage(html)
	require.NoError(t, err)
	assert.Equal(t, "Toyota", d.Brand)
	assert.Equal(t, "Andreas", d.SellerName)
	assert.False(t, d.IsBusiness, "no business markers defaults to private")
	assert.False(t, d.Price.Known)
	assert.True(t, d.PostedAt.IsZero())
}

func TestParseDetailPageBadYear(t *testing.T) {
	p := New("https://www.bazaraki.com", zap.NewNop())

	html := `
	<html><body>
	<ul class="chars-column">
	  <li><span class="key-chars">Year:</span><span class="value-chars">unknown</span></li>
	</ul>
	</body></html>`

	d, err := p.ParseDetailPage(html)
	require.NoError(t, err)
	assert.Zero(t, d.Year)
}

func TestParsePostDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "today with time",
			input: "Today 14:05",
			want:  time.Date(2024, 3, 15, 14, 5, 0, 0, time.UTC),
		},
		{
			name:  "yesterday with time",
			input: "Yesterday 09:30",
			want:  time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "absolute date",
			input: "02.01.2024",
			want:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "unparseable stays zero",
			input: "sometime soon",
			want:  time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePostDate(tt.input, now))
		})
	}
}

func TestMerge(t *testing.T) {
	cardDate := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	listing := models.AdRecord{
		ID:       "123",
		Title:    "BMW 320i",
		Price:    models.Price{Amount: 9000, Currency: "EUR", Known: true},
		Tier:     models.TierBasic,
		PostedAt: cardDate,
	}
	detail := Detail{
		Brand:    "BMW",
		Model:    "3 Series",
		Year:     2018,
		Mileage:  80000,
		EngineCC: 2000,
		Price:    models.Price{Amount: 9500, Currency: "EUR", Known: true},
		Tier:     models.TierVIP,
	}

	merged := Merge(listing, detail)
	assert.Equal(t, "BMW", merged.Brand)
	assert.Equal(t, 2018, merged.Year)
	// The index price reflects current market state and wins.
	assert.Equal(t, 9000, merged.Price.Amount)
	// A paid tier only visible on the detail page still upgrades Basic.
	assert.Equal(t, models.TierVIP, merged.Tier)
	// A detail page without a date keeps the card date.
	assert.Equal(t, cardDate, merged.PostedAt)
}
