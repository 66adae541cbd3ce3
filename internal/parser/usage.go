package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

var (
	usageKeywordPattern = regexp.MustCompile(
		`(?i)\b(peak|off[-\s]?peak|standing|supply|demand|solar|feed|concession|usage|kwh|fixed|daily|annual)\b`)

	totalWordPattern = regexp.MustCompile(`(?i)\btotal\b`)

	fallbackExcludePattern = regexp.MustCompile(`(?i)\b(total|gst|balance|amount\s+due)\b`)
)

// Branch names for how a line's numbers were split into units and rate.
const (
	splitRateCandidate = "rate-candidate"
	splitTwoNumbers    = "two-numbers"
	splitSingleNumber  = "single-number"
	splitNoNumbers     = "no-numbers"
)

// numberSplit is the units/rate assignment for one line.
type numberSplit struct {
	Units  string
	Rate   string
	Branch string
}

// isRateCandidate reports whether a token looks like a per-unit rate: a
// decimal with 3-4 places, or any value below 10.
func isRateCandidate(token string) bool {
	return ratePattern.MatchString(token) || tokenValue(token) < 10
}

// splitNumbers decides which of a line's numbers is the rate and which is the
// unit quantity.
//
// The first rate candidate is the rate and the largest remaining number is the
// units (first one wins on a tie). Without a rate candidate the first two
// numbers are units then rate. A lone number that is not a rate candidate is
// units.
func splitNumbers(tokens []string) numberSplit {
	if len(tokens) == 0 {
		return numberSplit{Branch: splitNoNumbers}
	}
	for _, t := range tokens {
		if isRateCandidate(t) {
			return numberSplit{Units: largestExcept(tokens, t), Rate: t, Branch: splitRateCandidate}
		}
	}
	if len(tokens) >= 2 {
		return numberSplit{Units: tokens[0], Rate: tokens[1], Branch: splitTwoNumbers}
	}
	return numberSplit{Units: tokens[0], Branch: splitSingleNumber}
}

// largestExcept returns the numerically largest token whose text differs from
// skip, or "" if there is none.
func largestExcept(tokens []string, skip string) string {
	best, bestValue := "", 0.0
	for _, t := range tokens {
		if t == skip {
			continue
		}
		v := tokenValue(t)
		if best == "" || v > bestValue {
			best, bestValue = t, v
		}
	}
	return best
}

// ParseUsageLines finds the tariff/usage rows in text. Lines carrying a usage
// keyword are tried first; if none qualify, any line with two or more numbers
// that is not a summary line is taken instead. The result is normalised and
// holds at most models.MaxUsageLines rows.
func ParseUsageLines(text string) []models.UsageLine {
	lines := splitLines(text)
	found := keywordLines(lines)
	if len(found) == 0 {
		found = numericLines(lines)
	}
	return normalizeLines(found)
}

func keywordLines(lines []string) []models.UsageLine {
	var out []models.UsageLine
	for _, line := range lines {
		if !usageKeywordPattern.MatchString(line) || !digitPattern.MatchString(line) {
			continue
		}
		if totalWordPattern.MatchString(line) {
			continue
		}
		split := splitNumbers(numericTokens(line))
		out = append(out, models.UsageLine{
			Units:       split.Units,
			Description: describe(line),
			Rate:        split.Rate,
			Discount:    discountOf(line),
		})
	}
	return out
}

func numericLines(lines []string) []models.UsageLine {
	var out []models.UsageLine
	for _, line := range lines {
		tokens := numericTokens(line)
		if len(tokens) < 2 || fallbackExcludePattern.MatchString(line) {
			continue
		}
		out = append(out, models.UsageLine{
			Units:       tokens[0],
			Description: strings.Trim(numberPattern.ReplaceAllString(line, ""), descriptionCutset),
			Rate:        fallbackRate(tokens),
			Discount:    discountOf(line),
		})
	}
	return out
}

// fallbackRate is the first number after the units that is below 10, else the
// second number.
func fallbackRate(tokens []string) string {
	for _, t := range tokens[1:] {
		if tokenValue(t) < 10 {
			return t
		}
	}
	return tokens[1]
}
