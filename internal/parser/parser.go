// Package parser turns the flat text of an electricity bill into header fields
// and usage lines. Everything here is best-effort pattern matching: nothing
// returns an error, and a field or line that cannot be found is simply empty
// or absent.
package parser

import (
	"github.com/insightdelivered/bill-to-quote/internal/models"
)

// Parse runs the header and usage-line extractors over the same text.
func Parse(text string) (models.HeaderFields, []models.UsageLine) {
	return ParseHeaders(text), ParseUsageLines(text)
}
