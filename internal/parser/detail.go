package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/itcaat/bazalert/internal/models"
)

// Detail holds the fields only available on an ad's own page. The cycle
// merges them into the partial record parsed off the search results.
type Detail struct {
	Title      string
	Brand      string
	Model      string
	Year       int
	Mileage    int
	EngineCC   int
	Gearbox    string
	FuelType   string
	DriveType  string
	BodyType   string
	Color      string
	SellerName string
	SellerID   string
	IsBusiness bool
	PostedAt   time.Time
	Price      models.Price
	Tier       models.Tier
}

// ParseDetailPage extracts the full attribute set from an ad detail page.
// Extraction is total: missing or malformed markers default (unknown price,
// private seller, zero year) and are logged, never returned as errors.
func (p *Parser) ParseDetailPage(html string) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Detail{}, err
	}

	var d Detail

	d.Title = strings.TrimSpace(doc.Find("h1.page-title, h1").First().Text())

	if dateText := strings.TrimSpace(doc.Find("span.date-meta").First().Text()); dateText != "" {
		d.PostedAt = parsePostDate(dateText, time.Now())
	}

	p.parseBreadcrumbs(doc, &d)
	p.parseSpecs(doc, &d)
	p.parseSeller(doc, &d)

	if priceText := strings.TrimSpace(doc.Find(".announcement-price, .advert__content-price").First().Text()); priceText != "" {
		d.Price = ParsePrice(priceText)
	} else {
		d.Price = models.UnknownPrice("")
	}

	d.Tier = parseTier(doc.Selection)
	return d, nil
}

// parseBreadcrumbs pulls brand and model from the breadcrumb trail, the most
// reliable source: "Motors - Cars - Mercedes-Benz - GLA-Class".
func (p *Parser) parseBreadcrumbs(doc *goquery.Document, d *Detail) {
	tag := doc.Find("[data-breadcrumbs]").First()
	if tag.Length() == 0 {
		return
	}
	raw, _ := tag.Attr("data-breadcrumbs")

	var parts []string
	for _, part := range strings.Split(raw, " - ") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) < 3 || !strings.Contains(parts[0], "Motors") {
		return
	}
	d.Brand = parts[2]
	if len(parts) > 3 {
		d.Model = parts[3]
	}
}

// parseSpecs walks the characteristics list (key/value pairs). Breadcrumb
// values win for brand and model; the spec list only fills gaps.
func (p *Parser) parseSpecs(doc *goquery.Document, d *Detail) {
	doc.Find("ul.chars-column li").Each(func(_ int, li *goquery.Selection) {
		key := strings.ToLower(strings.TrimSpace(li.Find("span.key-chars").First().Text()))
		key = strings.TrimSuffix(key, ":")
		val := strings.TrimSpace(li.Find(".value-chars").First().Text())
		if key == "" || val == "" {
			return
		}

		switch {
		case strings.Contains(key, "brand"):
			if d.Brand == "" {
				d.Brand = val
			}
		case strings.Contains(key, "model"):
			if d.Model == "" {
				d.Model = val
			}
		case strings.Contains(key, "year"):
			year, err := strconv.Atoi(val)
			if err != nil {
				p.log.Warn("unparseable year in ad specs", zap.String("raw", val))
				return
			}
			d.Year = year
		case strings.Contains(key, "gearbox"):
			d.Gearbox = val
		case strings.Contains(key, "body type"):
			d.BodyType = val
		case strings.Contains(key, "fuel type"):
			d.FuelType = val
		case strings.Contains(key, "engine size"):
			d.EngineCC = parseEngineSize(val)
		case strings.Contains(key, "drive"):
			d.DriveType = val
		case strings.Contains(key, "colour"), strings.Contains(key, "color"):
			d.Color = val
		case strings.Contains(key, "mileage"):
			d.Mileage = parseMileage(val)
		}
	})
}

// parseSeller extracts the seller identity and classifies the account as
// business or private. Detection failure is not an error: the default is
// private, and each positive business marker is logged at debug level.
func (p *Parser) parseSeller(doc *goquery.Document, d *Detail) {
	author := doc.Find("div.author-name").First()
	if author.Length() > 0 {
		if img := author.Find("img").First(); img.Length() > 0 {
			if alt, ok := img.Attr("alt"); ok && alt != "" {
				d.SellerName = alt
			}
		}
		if d.SellerName == "" {
			d.SellerName = strings.TrimSpace(author.Text())
		}

		if userID, ok := author.Attr("data-user"); ok && userID != "" {
			d.SellerID = userID
		} else if href, ok := author.Find("a[href]").First().Attr("href"); ok {
			trimmed := strings.Trim(href, "/")
			if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
				d.SellerID = trimmed[idx+1:]
			} else if trimmed != "" {
				d.SellerID = trimmed
			}
		}
	}

	// Structural markers that only appear on business accounts. Private is
	// the default when none match.
	switch {
	case doc.Find(".author-distinctions__item, .verification-badge").Length() > 0:
		d.IsBusiness = true
		p.log.Debug("business seller via distinction badge", zap.String("seller", d.SellerName))
	case doc.Find("a[href*='/shop/']").Length() > 0:
		d.IsBusiness = true
		p.log.Debug("business seller via shop link", zap.String("seller", d.SellerName))
	case doc.Find(".js-show-popup-contact-business").Length() > 0:
		d.IsBusiness = true
		p.log.Debug("business seller via contact popup class", zap.String("seller", d.SellerName))
	default:
		p.log.Debug("no business markers, defaulting to private", zap.String("seller", d.SellerName))
	}
}

// parsePostDate handles Bazaraki's relative date display.
// "Today 14:05", "Yesterday 09:30", or "02.01.2006".
func parsePostDate(text string, now time.Time) time.Time {
	lower := strings.ToLower(strings.TrimSpace(text))

	clock := func(day time.Time) time.Time {
		fields := strings.Fields(lower)
		if len(fields) >= 2 {
			if t, err := time.Parse("15:04", fields[len(fields)-1]); err == nil {
				return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
			}
		}
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	}

	switch {
	case strings.HasPrefix(lower, "today"):
		return clock(now)
	case strings.HasPrefix(lower, "yesterday"):
		return clock(now.AddDate(0, 0, -1))
	}

	formats := []string{
		"02.01.2006 15:04",
		"02.01.2006",
		"02/01/2006",
		"2 January 2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, strings.TrimSpace(text)); err == nil {
			return t
		}
	}

	// Unparseable dates stay zero rather than faking "now", which would
	// look like a repost on the next cycle.
	return time.Time{}
}

// Merge folds detail-page fields into a partial record from the listing page.
// Listing-page price and tier win when present, since the index reflects the
// current market state the diff runs against.
func Merge(ad models.AdRecord, d Detail) models.AdRecord {
	if ad.Title == "" {
		ad.Title = d.Title
	}
	ad.Brand = d.Brand
	ad.Model = d.Model
	ad.Year = d.Year
	ad.Mileage = d.Mileage
	ad.EngineCC = d.EngineCC
	ad.Gearbox = d.Gearbox
	ad.FuelType = d.FuelType
	ad.DriveType = d.DriveType
	ad.BodyType = d.BodyType
	ad.Color = d.Color
	ad.SellerName = d.SellerName
	ad.SellerID = d.SellerID
	ad.IsBusiness = d.IsBusiness
	if !d.PostedAt.IsZero() {
		ad.PostedAt = d.PostedAt
	}

	if !ad.Price.Known && d.Price.Known {
		ad.Price = d.Price
	}
	if ad.Tier == models.TierBasic && d.Tier != models.TierBasic {
		ad.Tier = d.Tier
	}
	return ad
}
