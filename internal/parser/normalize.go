package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

// summaryWords mark bill-level totals that must never appear as usage rows.
var summaryWords = []string{"total", "gst", "amount due", "balance"}

// CanonicalNumber strips currency symbols and thousands separators, then
// renders a finite number in its shortest decimal form ("22,491.80" becomes
// "22491.8"). Anything else is returned stripped. Applying it twice gives the
// same result as applying it once.
func CanonicalNumber(s string) string {
	s = stripAmount(s)
	if s == "" {
		return ""
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return s
}

// isSummary reports whether a description names a bill total.
func isSummary(desc string) bool {
	lower := strings.ToLower(desc)
	for _, w := range summaryWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func normalizeLine(l models.UsageLine) models.UsageLine {
	return models.UsageLine{
		Units:       CanonicalNumber(l.Units),
		Description: strings.Trim(multiSpace.ReplaceAllString(l.Description, " "), " \t,:-"),
		Rate:        CanonicalNumber(l.Rate),
		Discount:    strings.Join(strings.Fields(l.Discount), ""),
	}
}

// normalizeLines cleans each row, drops rows with no description or a summary
// description, and stops at models.MaxUsageLines.
func normalizeLines(lines []models.UsageLine) []models.UsageLine {
	out := make([]models.UsageLine, 0, len(lines))
	for _, l := range lines {
		l = normalizeLine(l)
		if l.Description == "" || isSummary(l.Description) {
			continue
		}
		out = append(out, l)
		if len(out) == models.MaxUsageLines {
			break
		}
	}
	return out
}
