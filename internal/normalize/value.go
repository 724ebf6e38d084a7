package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var valuePattern = regexp.MustCompile(`(?i)\$\s*([\d,]+(?:\.\d{1,2})?)\s*(million|mil|m\b|k\b)?`)

// ExtractEstimatedValue pulls the first dollar amount out of free text and
// expands "million"/"k" style suffixes. Returns 0 when no amount is present.
func ExtractEstimatedValue(text string) float64 {
	match := valuePattern.FindStringSubmatch(text)
	if match == nil {
		return 0
	}

	digits := strings.ReplaceAll(match[1], ",", "")
	amount, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}

	switch strings.ToLower(strings.TrimSpace(match[2])) {
	case "million", "mil", "m":
		amount *= 1_000_000
	case "k":
		amount *= 1_000
	}
	return amount
}
