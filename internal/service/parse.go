package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"room-advisor/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// recommendationSchema accepts any product payload with a name; the other
// product fields are coerced afterwards instead of being rejected.
const recommendationSchema = `{
  "type": "object",
  "required": ["rationale", "products"],
  "properties": {
    "products": {
      "type": "array",
      "minItems": 2,
      "maxItems": 4,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(recommendationSchema)

// ParseResult is the outcome of parsing one model reply. Set is nil when
// the reply was rejected; Reason then says why.
type ParseResult struct {
	Set    *models.RecommendationSet
	Raw    string
	Reason string
}

func (r ParseResult) OK() bool {
	return r.Set != nil
}

// ParseRecommendations validates a raw model reply against the
// recommendation schema and converts it into a typed set.
func ParseRecommendations(raw string) ParseResult {
	result := ParseResult{Raw: raw}

	payload := stripCodeFences(raw)
	if payload == "" {
		result.Reason = "empty response, expected a JSON object"
		return result
	}
	if !json.Valid([]byte(payload)) {
		payload = extractJSONObject(payload)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		result.Reason = fmt.Sprintf("invalid JSON: %v", err)
		return result
	}

	validation, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		result.Reason = fmt.Sprintf("schema validation failed: %v", err)
		return result
	}
	if !validation.Valid() {
		msgs := make([]string, 0, len(validation.Errors()))
		for _, e := range validation.Errors() {
			msgs = append(msgs, e.String())
		}
		result.Reason = strings.Join(msgs, "; ")
		return result
	}

	set := &models.RecommendationSet{
		Rationale: sanitizeUTF8(strings.TrimSpace(coerceString(doc["rationale"]))),
	}
	items, _ := doc["products"].([]interface{})
	for i, item := range items {
		fields, _ := item.(map[string]interface{})
		name := sanitizeUTF8(strings.TrimSpace(coerceString(fields["name"])))
		if name == "" {
			result.Reason = fmt.Sprintf("products.%d: name is blank", i)
			return result
		}
		set.Products = append(set.Products, models.ProductRecommendation{
			Name:    name,
			Summary: sanitizeUTF8(strings.TrimSpace(coerceString(fields["summary"]))),
			Price:   sanitizeUTF8(strings.TrimSpace(coerceString(fields["price"]))),
			WhyFit:  coerceBullets(fields["why_fit"]),
		})
	}

	result.Set = set
	return result
}

// coerceString maps scalars to text and everything else to "".
func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func coerceBullets(v interface{}) []string {
	var bullets []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := strings.TrimSpace(coerceString(item)); s != "" {
				bullets = append(bullets, sanitizeUTF8(s))
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			bullets = append(bullets, sanitizeUTF8(s))
		}
	}
	if bullets == nil {
		bullets = []string{}
	}
	return bullets
}
