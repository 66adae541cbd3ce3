package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

// fieldPatterns is one row of the header table. Patterns are tried in order and
// the first one matching anywhere in the text wins, so labelled patterns come
// before loose fallbacks.
type fieldPatterns struct {
	field    string
	patterns []*regexp.Regexp
}

// compile builds case-insensitive, multi-line patterns.
func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?im)` + e)
	}
	return out
}

const (
	knownRetailers = `AGL|Origin(?: Energy)?|EnergyAustralia|Energy Australia|Red Energy|Alinta(?: Energy)?|` +
		`Simply Energy|Momentum Energy|Powershop|Lumo Energy|Dodo(?: Power & Gas)?|Tango Energy|ActewAGL|` +
		`Aurora Energy|Synergy|ENGIE|Sumo|GloBird Energy|1st Energy|Powerdirect|Diamond Energy|Covau|Blue NRG|Amber Electric`

	knownDistributors = `Ausgrid|Endeavour Energy|Essential Energy|Energex|Ergon Energy|SA Power Networks|CitiPower|` +
		`Powercor|Jemena|United Energy|AusNet(?: Services)?|Evoenergy|TasNetworks|Western Power|Horizon Power`
)

var headerTable = []fieldPatterns{
	{models.FieldNMI, compile(
		`\bNMI\b(?:\s*(?:No\.?|Number))?[:\s]*([A-Z0-9]*\d[A-Z0-9\-]*)`,
		`\bNMI/MIRN[:\s]*([0-9\-]+)`,
		`\b(\d{10,13})\b`,
	)},
	{models.FieldAccountNumber, compile(
		`Account\s*Number[:\s]*([A-Z0-9\-]*\d[A-Z0-9\-]*)`,
		`Account\s*No\.?[:\s]*([A-Z0-9\-]*\d[A-Z0-9\-]*)`,
		`Customer\s*(?:Number|No\.?)[:\s]*([A-Z0-9\-]*\d[A-Z0-9\-]*)`,
	)},
	{models.FieldCustomerName, compile(
		`Account\s*Name[:\s]*([A-Z0-9 \t&.,\-]+)`,
		`Customer\s*Name[:\s]*([A-Z0-9 \t&.,\-]+)`,
		`Customer[:\s]*([A-Z0-9 \t&.,\-]+)`,
		`Bill\s*to[:\s]*([A-Z0-9 \t&.,\-]+)`,
	)},
	{models.FieldRetailer, compile(
		`Retailer[:\s]*([A-Z0-9 &\-]+)`,
		`Current\s*Energy\s*Retailer[:\s]*([A-Z0-9 &\-]+)`,
		`\b(`+knownRetailers+`)\b`,
	)},
	{models.FieldSiteAddress, compile(
		`Service\s*Address[:\s]*([A-Z0-9 \t,./\-]+)`,
		`Supply\s*Address[:\s]*([A-Z0-9 \t,./\-]+)`,
		`Site\s*Address[:\s]*([A-Z0-9 \t,./\-]+)`,
		`(\d+[ \t]+[A-Z0-9 \t]+[ \t]+(?:Road|Rd|Street|St|Drive|Dr|Lane|Ln|Way|Ave|Avenue)\b[^\n\r]*)`,
	)},
	{models.FieldBillingPeriod, compile(
		`Bill(?:ing)?\s*Period[:\s]*(\d{1,2}\s+[A-Z]{3,9}\s+\d{4}\s*(?:-|–|to)\s*\d{1,2}\s+[A-Z]{3,9}\s+\d{4})`,
		`Period[:\s]*([\d/\- \t]+to[\d/\- \t]+)`,
	)},
	{models.FieldTotalCharges, compile(
		`Total\s*Amount[:\s]*\$?([\d,]+\.\d{2})`,
		`Total\s*\(GST.*\)[:\s]*\$?([\d,]+\.\d{2})`,
		`Amount\s*Due[:\s]*\$?([\d,]+\.\d{2})`,
	)},
	{models.FieldMeterType, compile(
		`Meter\s*Type[:\s]*([A-Z0-9 /\-]+)`,
		`\b((?:Interval|Smart|Basic|Accumulation|Type\s*[1-6])\s+Meter)\b`,
	)},
	{models.FieldTariffClassification, compile(
		`Tariff\s*(?:Classification|Class|Type|Name)[:\s]*([A-Z0-9 &/\-]+)`,
		`Network\s*Tariff(?:\s*Code)?[:\s]*([A-Z0-9 &/\-]+)`,
		`\b(Time[\s\-]*of[\s\-]*Use|Single\s*Rate|Flat\s*Rate|Two\s*Rate|Controlled\s*Load)\b`,
	)},
	{models.FieldDistributionRegion, compile(
		`Distribut(?:ion|or)\s*(?:Region|Zone|Area|Network)?\s*:\s*([A-Z .&\-]+)`,
		`Network\s*(?:Operator|Provider)[:\s]*([A-Z .&\-]+)`,
		`\b(`+knownDistributors+`)\b`,
	)},
}

// ParseHeaders extracts every known header field from text. Fields with no
// match are present with an empty value.
func ParseHeaders(text string) models.HeaderFields {
	out := models.NewHeaderFields()
	for _, row := range headerTable {
		out[row.field] = firstMatch(text, row.patterns)
	}
	return out
}

// firstMatch returns the first capture group of the first matching pattern, or
// the whole match when the pattern has no group.
func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if p.NumSubexp() > 0 {
			return strings.TrimSpace(m[1])
		}
		return strings.TrimSpace(m[0])
	}
	return ""
}
