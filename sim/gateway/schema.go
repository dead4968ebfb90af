package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const optimizeResponseSchema = `{
  "type": "object",
  "required": ["optimized_price", "status"],
  "properties": {
    "optimized_price": {"type": "number"},
    "status": {"type": "string"}
  }
}`

const feedbackResponseSchema = `{
  "type": "object",
  "required": ["ack"],
  "properties": {
    "ack": {"type": "boolean"}
  }
}`

// validator checks a response body against a schema and decodes it.
type validator struct {
	endpoint string
	schema   *gojsonschema.Schema
}

func newValidator(endpoint, schema string) (*validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compiling %s response schema: %w", endpoint, err)
	}
	return &validator{endpoint: endpoint, schema: s}, nil
}

func (v *validator) decode(body []byte, out any) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &MalformedResponseError{Endpoint: v.endpoint, Reason: err.Error()}
	}
	if !result.Valid() {
		var reasons bytes.Buffer
		for i, re := range result.Errors() {
			if i > 0 {
				reasons.WriteString("; ")
			}
			reasons.WriteString(re.String())
		}
		return &MalformedResponseError{Endpoint: v.endpoint, Reason: reasons.String()}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &MalformedResponseError{Endpoint: v.endpoint, Reason: err.Error()}
	}
	return nil
}
