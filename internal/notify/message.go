package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/itcaat/bazalert/internal/models"
)

func formatPrice(p models.Price) string {
	if !p.Known {
		if p.Text != "" {
			return html.EscapeString(p.Text)
		}
		return "Price on request"
	}
	symbol := "€"
	if p.Currency == "USD" {
		symbol = "$"
	}
	return fmt.Sprintf("%d %s", p.Amount, symbol)
}

func tierEmoji(t models.Tier) string {
	switch t {
	case models.TierVIP:
		return "🌟 VIP"
	case models.TierTop:
		return "🔥 TOP"
	default:
		return "🔹"
	}
}

func adTitle(ad models.AdRecord) string {
	if ad.Brand != "" {
		parts := []string{ad.Brand}
		if ad.Model != "" {
			parts = append(parts, ad.Model)
		}
		if ad.Year > 0 {
			parts = append(parts, fmt.Sprintf("%d", ad.Year))
		}
		return strings.Join(parts, " ")
	}
	return ad.Title
}

func sellerLine(ad models.AdRecord) string {
	seller := ad.SellerName
	if seller == "" {
		seller = "Unknown"
	}
	if ad.SellerID != "" {
		seller += fmt.Sprintf(" (#id%s)", ad.SellerID)
	}
	if ad.IsBusiness {
		seller += " 🏢"
	}
	return html.EscapeString(seller)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return html.EscapeString(s)
}

// FormatEvent renders one change event as a Telegram HTML message. All
// scraped text goes through html escaping; the ad URL is emitted as-is
// inside the href attribute.
func FormatEvent(event models.ChangeEvent) string {
	ad := event.Ad
	title := html.EscapeString(adTitle(ad))

	switch event.Kind {
	case models.ChangeNew:
		mileage := "N/A"
		if ad.Mileage > 0 {
			mileage = fmt.Sprintf("%d km", ad.Mileage)
		}
		engine := "N/A"
		if ad.EngineCC > 0 {
			engine = fmt.Sprintf("%d cc", ad.EngineCC)
		}
		return fmt.Sprintf(
			"🚗 <b>New Ad Found</b> %s\n"+
				"<a href=\"%s\">%s</a>\n"+
				"💰 <b>%s</b>  ⏱️ %s\n"+
				"⛽ %s  ⚙️ %s  🧩 %s\n"+
				"👤 %s",
			tierEmoji(ad.Tier), ad.URL, title,
			formatPrice(ad.Price), mileage,
			orNA(ad.FuelType), orNA(ad.Gearbox), engine,
			sellerLine(ad))

	case models.ChangePriceChanged:
		header := "📉 <b>Price Drop</b>"
		if !event.PriceDropped() {
			header = "📈 <b>Price Change</b>"
		}
		msg := fmt.Sprintf(
			"%s\n"+
				"OLD: <s>%s</s>\n"+
				"NEW: <b>%s</b>\n"+
				"🔗 <a href=\"%s\">%s</a>",
			header, formatPrice(event.OldPrice), formatPrice(event.NewPrice), ad.URL, title)
		if event.StatusDiffers {
			msg += fmt.Sprintf("\n🆙 Status: %s ➜ %s", event.OldTier, event.NewTier)
		}
		return msg

	case models.ChangeStatusChanged:
		msg := fmt.Sprintf(
			"🆙 <b>Status Update</b> (%s ➜ %s)\n"+
				"<a href=\"%s\">%s</a>\n"+
				"💰 %s",
			event.OldTier, event.NewTier, ad.URL, title, formatPrice(ad.Price))
		if event.OldBusiness != event.NewBusiness {
			msg += "\n🏢 Seller type changed"
		}
		return msg

	case models.ChangeReposted:
		return fmt.Sprintf(
			"🔄 <b>Ad Reposted!</b>\n"+
				"The ad was bumped to the top.\n"+
				"🔗 <a href=\"%s\">%s</a>",
			ad.URL, title)

	case models.ChangeRemoved:
		return fmt.Sprintf(
			"🚫 <b>Ad Removed</b>\n"+
				"<b>%s</b>\n"+
				"Last price: %s",
			title, formatPrice(ad.Price))

	default:
		return ""
	}
}

// WithAlertName prepends the alert header the way subscription messages
// look in the client bot.
func WithAlertName(name, body string) string {
	return fmt.Sprintf("🔔 <b>%s</b>\n\n%s", html.EscapeString(name), body)
}
