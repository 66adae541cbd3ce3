package models

// Header field names. The order of HeaderFieldNames is the order fields are
// reported in and the order the extractor tries them.
const (
	FieldNMI                  = "NMI"
	FieldAccountNumber        = "Account Number"
	FieldCustomerName         = "Customer Name"
	FieldRetailer             = "Retailer"
	FieldSiteAddress          = "Site Address"
	FieldBillingPeriod        = "Billing Period"
	FieldTotalCharges         = "Total Charges"
	FieldMeterType            = "Meter Type"
	FieldTariffClassification = "Tariff Classification"
	FieldDistributionRegion   = "Distribution Region"
)

// HeaderFieldNames lists every known header field.
var HeaderFieldNames = []string{
	FieldNMI,
	FieldAccountNumber,
	FieldCustomerName,
	FieldRetailer,
	FieldSiteAddress,
	FieldBillingPeriod,
	FieldTotalCharges,
	FieldMeterType,
	FieldTariffClassification,
	FieldDistributionRegion,
}

// MaxUsageLines caps the usage table, both when extracting and when writing.
const MaxUsageLines = 30

// HeaderFields maps each known field name to its extracted value. A field that
// was not found is present with an empty value.
type HeaderFields map[string]string

// NewHeaderFields returns a map with every known field set to "".
func NewHeaderFields() HeaderFields {
	h := make(HeaderFields, len(HeaderFieldNames))
	for _, name := range HeaderFieldNames {
		h[name] = ""
	}
	return h
}

// Found returns how many fields have a non-empty value.
func (h HeaderFields) Found() int {
	n := 0
	for _, name := range HeaderFieldNames {
		if h[name] != "" {
			n++
		}
	}
	return n
}

// UsageLine is one row of a bill's tariff table.
type UsageLine struct {
	Units       string `json:"Units" yaml:"units"`
	Description string `json:"Description" yaml:"description"`
	Rate        string `json:"Rate" yaml:"rate"`
	Discount    string `json:"Discount" yaml:"discount"`
}

// Text production methods.
const (
	MethodPDFText   = "pdf-text"
	MethodPdftotext = "pdftotext"
	MethodPDFOCR    = "pdf-ocr"
	MethodImageOCR  = "image-ocr"
)

// Bill holds everything extracted from one uploaded document.
type Bill struct {
	Source   string       `json:"source" yaml:"source"`
	Method   string       `json:"method" yaml:"method"`
	Text     string       `json:"-" yaml:"-"`
	Headers  HeaderFields `json:"headers" yaml:"headers"`
	Lines    []UsageLine  `json:"lines" yaml:"lines"`
	Warnings []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
