package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// numberPattern matches plain or comma-grouped numbers with an optional
	// decimal part and leading currency symbol: "98", "22,491.80", "$0.0632".
	numberPattern = regexp.MustCompile(`[$£€]?\d[\d,]*(?:\.\d+)?`)

	// percentPattern finds the conditional discount, e.g. "5.5 %".
	percentPattern = regexp.MustCompile(`\d{1,2}(?:\.\d+)?\s*%`)

	// percentStripPattern removes every percent token from a description.
	percentStripPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*%`)

	// ratePattern is a plain decimal with 3-4 decimal places (0.0632, 1.231).
	ratePattern = regexp.MustCompile(`^\d+\.\d{3,4}$`)

	digitPattern = regexp.MustCompile(`\d`)
	multiSpace   = regexp.MustCompile(`\s{2,}`)
)

var amountReplacer = strings.NewReplacer(
	"$", "",
	"£", "",
	"€", "",
	",", "",
)

// descriptionCutset is trimmed from both ends of a freshly cut description.
const descriptionCutset = " \t-:|"

// stripAmount removes currency symbols and thousands separators.
func stripAmount(s string) string {
	return amountReplacer.Replace(strings.TrimSpace(s))
}

// numericTokens returns every number on the line, left to right, with currency
// symbols and commas removed.
func numericTokens(line string) []string {
	found := numberPattern.FindAllString(line, -1)
	tokens := make([]string, 0, len(found))
	for _, f := range found {
		if t := stripAmount(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// tokenValue parses a stripped token. Tokens come from numberPattern so the
// only failure is overflow, where ParseFloat still returns ±Inf.
func tokenValue(token string) float64 {
	v, _ := strconv.ParseFloat(token, 64)
	return v
}

// discountOf returns the first percentage on the line with whitespace removed.
func discountOf(line string) string {
	m := percentPattern.FindString(line)
	if m == "" {
		return ""
	}
	return strings.Join(strings.Fields(m), "")
}

// describe cuts percent and numeric tokens out of a usage line.
func describe(line string) string {
	desc := percentStripPattern.ReplaceAllString(line, "")
	desc = numberPattern.ReplaceAllString(desc, "")
	return strings.Trim(desc, descriptionCutset)
}

// splitLines returns the trimmed, non-empty lines of text.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
