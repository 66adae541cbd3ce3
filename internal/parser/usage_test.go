package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

func TestParseUsageLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []models.UsageLine
	}{
		{
			name: "peak usage with comma grouped units",
			text: "Peak Usage 22,491.80 kWh @ $0.0632",
			want: []models.UsageLine{{Units: "22491.8", Description: "Peak Usage kWh @", Rate: "0.0632"}},
		},
		{
			name: "small first number becomes the rate",
			text: "Supply Charge 1 day @ 1.231",
			want: []models.UsageLine{{Units: "1.231", Description: "Supply Charge day @", Rate: "1"}},
		},
		{
			name: "single large number is units",
			text: "Daily Supply 98",
			want: []models.UsageLine{{Units: "98", Description: "Daily Supply"}},
		},
		{
			name: "total line is skipped",
			text: "Total Amount Due $542.10",
			want: []models.UsageLine{},
		},
		{
			name: "discount captured without spaces",
			text: "Off-Peak usage 1,500 kWh 0.2150 3 % discount",
			want: []models.UsageLine{{Units: "1500", Description: "Off-Peak usage kWh discount", Rate: "0.215", Discount: "3%"}},
		},
		{
			name: "two large numbers are units then rate",
			text: "Demand charge 120 kW 45",
			want: []models.UsageLine{{Units: "120", Description: "Demand charge kW", Rate: "45"}},
		},
		{
			name: "keyword without digits is ignored",
			text: "Your usage this quarter",
			want: []models.UsageLine{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseUsageLines(tt.text))
		})
	}
}

func TestParseUsageLinesFallback(t *testing.T) {
	text := strings.Join([]string{
		"Item A 500 0.25 20",
		"Item B 300 12 15",
		"Balance 10 20",
		"GST 5 6",
		"Single 7",
	}, "\n")

	got := ParseUsageLines(text)

	want := []models.UsageLine{
		{Units: "500", Description: "Item A", Rate: "0.25"},
		{Units: "300", Description: "Item B", Rate: "12"},
	}
	assert.Equal(t, want, got)
}

func TestParseUsageLinesFallbackUnusedWhenKeywordLinesExist(t *testing.T) {
	text := "Item A 500 0.25 20\nDaily Supply 98"

	got := ParseUsageLines(text)

	require.Len(t, got, 1)
	assert.Equal(t, "Daily Supply", got[0].Description)
}

func TestParseUsageLinesCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 45; i++ {
		fmt.Fprintf(&b, "Peak usage block %d 1,%03d kWh @ 0.2%03d\n", i, i, i)
	}

	got := ParseUsageLines(b.String())

	assert.Len(t, got, models.MaxUsageLines)
}

func TestParseUsageLinesNeverReturnsSummaries(t *testing.T) {
	text := strings.Join([]string{
		"Peak usage 100 kWh 0.30",
		"Usage subtotal 100 kWh 0.30",
		"Supply GST inclusive 91 days 1.10",
		"Daily supply balance carried 91 1.10",
		"Usage amount due 10 20",
		"Solar feed 40 kWh 0.05",
	}, "\n")

	got := ParseUsageLines(text)

	require.Len(t, got, 2)
	for _, l := range got {
		lower := strings.ToLower(l.Description)
		for _, w := range []string{"total", "gst", "amount due", "balance"} {
			assert.NotContains(t, lower, w)
		}
		assert.NotEmpty(t, l.Description)
	}
}

func TestParseUsageLinesIsStable(t *testing.T) {
	got := ParseUsageLines(sampleBill)
	require.NotEmpty(t, got)

	for _, l := range got {
		again := normalizeLine(l)
		assert.Equal(t, l, again)
	}
}

func TestSplitNumbers(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   numberSplit
	}{
		{"none", nil, numberSplit{Branch: splitNoNumbers}},
		{"rate candidate", []string{"22491.80", "0.0632"}, numberSplit{Units: "22491.80", Rate: "0.0632", Branch: splitRateCandidate}},
		{"lone small number", []string{"5"}, numberSplit{Rate: "5", Branch: splitRateCandidate}},
		{"first maximum wins", []string{"0.5", "300", "300.0"}, numberSplit{Units: "300", Rate: "0.5", Branch: splitRateCandidate}},
		{"equal text skipped", []string{"2", "2", "40"}, numberSplit{Units: "40", Rate: "2", Branch: splitRateCandidate}},
		{"two numbers", []string{"120", "45"}, numberSplit{Units: "120", Rate: "45", Branch: splitTwoNumbers}},
		{"single number", []string{"98"}, numberSplit{Units: "98", Branch: splitSingleNumber}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitNumbers(tt.tokens))
		})
	}
}
