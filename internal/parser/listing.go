// Package parser extracts normalized ad records from raw Bazaraki markup.
// It performs no I/O: the fetcher hands it page bodies, and every ad card in
// the input yields a record, possibly with unknown fields, so downstream
// counts stay accurate even when the markup is partially broken.
package parser

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/itcaat/bazalert/internal/models"
)

// adIDRegex extracts the numeric ad ID from hrefs like /adv/5551234_bmw-320i/.
var adIDRegex = regexp.MustCompile(`/adv/(\d+)`)

// Parser turns raw listing and detail pages into AdRecords.
type Parser struct {
	baseURL string
	log     *zap.Logger
}

// New creates a Parser. baseURL is prepended to relative ad links.
func New(baseURL string, log *zap.Logger) *Parser {
	return &Parser{baseURL: strings.TrimSuffix(baseURL, "/"), log: log}
}

// ParseListingPage extracts the ad cards from a search-results page.
// Cards without a recognizable ad link are skipped (banners, injected ads);
// everything else becomes a partial AdRecord even when price or tier markup
// is missing or malformed.
func (p *Parser) ParseListingPage(html string, page int) ([]models.AdRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var ads []models.AdRecord

	doc.Find("div.list-simple__output, ul.list-simple__output").Each(func(_ int, container *goquery.Selection) {
		container.ChildrenFiltered("li, div").Each(func(_ int, item *goquery.Selection) {
			if item.HasClass("banner") || item.HasClass("ads-google") {
				return
			}

			ad, ok := p.parseCard(item)
			if !ok {
				return
			}
			ad.Page = page
			ad.FirstSeen = now
			ad.LastSeen = now
			ads = append(ads, ad)
		})
	})

	return ads, nil
}

// parseCard extracts one ad card. Returns ok=false only when the card has no
// ad link at all and therefore no identity.
func (p *Parser) parseCard(item *goquery.Selection) (models.AdRecord, bool) {
	var ad models.AdRecord

	link := item.Find("a.advert__content-title").First()
	if link.Length() == 0 {
		link = item.Find("a[href*='/adv/']").First()
	}
	href, exists := link.Attr("href")
	if !exists {
		return ad, false
	}

	matches := adIDRegex.FindStringSubmatch(href)
	if len(matches) < 2 {
		return ad, false
	}
	ad.ID = matches[1]
	ad.URL = p.normalizeURL(href)
	ad.Title = strings.TrimSpace(link.Text())

	// Price. Use a separator so a struck-through old price and the current
	// one don't run together ("10 000 12 000").
	priceSel := item.Find(".advert__content-price").First()
	if priceSel.Length() == 0 {
		priceSel = item.Find("p.price").First()
	}
	if priceSel.Length() > 0 {
		text := joinedText(priceSel)
		ad.Price = ParsePrice(text)
		if !ad.Price.Known {
			p.log.Warn("unparseable price on listing card",
				zap.String("ad_id", ad.ID),
				zap.String("raw", text),
			)
		}
	} else {
		ad.Price = models.UnknownPrice("")
		p.log.Warn("no price element on listing card", zap.String("ad_id", ad.ID))
	}

	// Cards show a relative post date that moves forward when the seller
	// bumps the ad. Missing or unparseable dates stay zero.
	if dateText := strings.TrimSpace(item.Find(".list-simple__time").First().Text()); dateText != "" {
		ad.PostedAt = parsePostDate(dateText, time.Now())
	}

	ad.Tier = parseTier(item)
	return ad, true
}

// parseTier reads the promotion badges off an ad card or detail page body.
func parseTier(sel *goquery.Selection) models.Tier {
	if _, ok := sel.Attr("data-t-vip"); ok {
		return models.TierVIP
	}
	if sel.Find("[data-t-vip], .ribbon-vip, .label-vip").Length() > 0 {
		return models.TierVIP
	}
	if sel.Find(".label-top, .ribbon-top, ._top").Length() > 0 {
		return models.TierTop
	}
	return models.TierBasic
}

// joinedText renders a selection's text with the text of each child node
// separated by '|', mirroring how multiple price spans must be kept apart.
func joinedText(sel *goquery.Selection) string {
	var parts []string
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		if t := strings.TrimSpace(node.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(sel.Text())
	}
	return strings.Join(parts, "|")
}

// normalizeURL ensures the URL is absolute.
func (p *Parser) normalizeURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}

	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}

	if strings.HasPrefix(href, "/") {
		return p.baseURL + href
	}

	parsed, err := url.Parse(href)
	if err != nil || !parsed.IsAbs() {
		return p.baseURL + "/" + href
	}

	return href
}
