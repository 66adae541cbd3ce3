// Package review decodes the header fields and usage table after a person has
// edited them. The edited table is JSON; every record must be an object, and
// whatever values the editor produced are turned back into text.
package review

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

// ErrMalformedRecord is returned when the edited table is not a JSON array of
// objects, or the edited headers are not a JSON object.
var ErrMalformedRecord = eris.New("malformed record in edited table")

// BlankRows is how many empty rows are offered for editing when nothing was
// extracted.
const BlankRows = 5

const linesSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"Units": {"$ref": "#/definitions/cell"},
			"Description": {"$ref": "#/definitions/cell"},
			"Rate": {"$ref": "#/definitions/cell"},
			"Discount": {"$ref": "#/definitions/cell"}
		}
	},
	"definitions": {
		"cell": {"type": ["string", "number", "boolean", "null", "array", "object"]}
	}
}`

const headersSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": {"type": ["string", "number", "boolean", "null", "array", "object"]}
}`

var (
	linesSchema   = jsonschema.MustCompileString("lines.json", linesSchemaJSON)
	headersSchema = jsonschema.MustCompileString("headers.json", headersSchemaJSON)
)

// DecodeLines parses an edited usage table. Empty input is an empty table.
func DecodeLines(data []byte) ([]models.UsageLine, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.UsageLine{}, nil
	}
	doc, err := decode(data, linesSchema)
	if err != nil {
		return nil, err
	}

	items, _ := doc.([]any)
	lines := make([]models.UsageLine, 0, len(items))
	for _, item := range items {
		rec, _ := item.(map[string]any)
		lines = append(lines, models.UsageLine{
			Units:       Text(rec["Units"]),
			Description: Text(rec["Description"]),
			Rate:        Text(rec["Rate"]),
			Discount:    Text(rec["Discount"]),
		})
	}
	return lines, nil
}

// DecodeHeaders parses edited header fields. Unknown keys are dropped and
// missing ones are set to "". Empty input yields all-empty headers.
func DecodeHeaders(data []byte) (models.HeaderFields, error) {
	out := models.NewHeaderFields()
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	doc, err := decode(data, headersSchema)
	if err != nil {
		return nil, err
	}

	obj, _ := doc.(map[string]any)
	for _, name := range models.HeaderFieldNames {
		if v, ok := obj[name]; ok {
			out[name] = Text(v)
		}
	}
	return out, nil
}

// EditableLines returns lines, or BlankRows empty rows when there are none.
func EditableLines(lines []models.UsageLine) []models.UsageLine {
	if len(lines) > 0 {
		return lines
	}
	return make([]models.UsageLine, BlankRows)
}

func decode(data []byte, schema *jsonschema.Schema) (any, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedRecord, "invalid JSON: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, eris.Wrapf(ErrMalformedRecord, "%v", err)
	}
	return doc, nil
}

// Text renders an edited cell value as text: null is empty, numbers take their
// shortest decimal form, lists and maps become JSON.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		if f, err := x.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return x.String()
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
