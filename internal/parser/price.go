package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/itcaat/bazalert/internal/models"
)

var (
	// Regex to extract a numeric price token
	priceRegex = regexp.MustCompile(`[\d\s.,]+`)
	// Regex to strip everything but digits
	digitsRegex = regexp.MustCompile(`\d+`)
)

// ParsePrice extracts a price from raw listing text. Bazaraki renders
// discounted ads with the old price struck through next to the new one, so
// when several numbers appear the lowest is taken as the current price.
// Any text that yields no digits becomes an explicit unknown price.
func ParsePrice(priceText string) models.Price {
	price := models.Price{
		Currency: "EUR",
		Text:     strings.TrimSpace(priceText),
		Known:    false,
	}

	if strings.Contains(priceText, "$") {
		price.Currency = "USD"
	}

	best := -1
	for _, token := range strings.FieldsFunc(priceText, func(r rune) bool {
		return r == '|' || r == '\n'
	}) {
		match := priceRegex.FindString(token)
		if match == "" {
			continue
		}
		digits := strings.Join(digitsRegex.FindAllString(match, -1), "")
		if digits == "" {
			continue
		}
		value, err := strconv.Atoi(digits)
		if err != nil || value < 0 {
			continue
		}
		if best < 0 || value < best {
			best = value
		}
	}

	if best >= 0 {
		price.Amount = best
		price.Known = true
	}
	return price
}

// parseEngineSize normalizes engine size text to cubic centimetres.
// "2.0L" -> 2000, "600cc" -> 600, "Electric" -> 0.
func parseEngineSize(val string) int {
	clean := strings.ToLower(strings.TrimSpace(val))
	if strings.Contains(clean, "electric") {
		return 0
	}
	clean = strings.ReplaceAll(clean, "cc", "")
	clean = strings.ReplaceAll(clean, "l", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	clean = strings.TrimSpace(clean)

	size, err := strconv.ParseFloat(clean, 64)
	if err != nil || size < 0 {
		return 0
	}
	// Values below 10 are litres, anything else is already cc.
	if size < 10 {
		return int(size * 1000)
	}
	return int(size)
}

// parseMileage normalizes mileage text like "120 000 km" to an int.
func parseMileage(val string) int {
	digits := strings.Join(digitsRegex.FindAllString(val, -1), "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
