package service

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeProducts = `{
  "rationale": "A small Teams room with two displays.\nUC-B160-T: tabletop kit.",
  "products": [
    {"name": "Crestron Flex UC-B160-T", "summary": "Tabletop video kit.", "price": "$2,499", "why_fit": ["Teams certified", "Dual display ready"]},
    {"name": "Crestron Sound Bar UC-SB1-CAM", "summary": "Camera and soundbar.", "price": "Request quote", "why_fit": ["Fits small rooms"]},
    {"name": "Crestron Ceiling Mic CM-CMIC-2", "summary": "Ceiling microphone.", "price": "", "why_fit": []}
  ]
}`

func TestParseRecommendations_Valid(t *testing.T) {
	res := ParseRecommendations(threeProducts)

	require.True(t, res.OK(), res.Reason)
	assert.Empty(t, res.Reason)
	assert.Equal(t, threeProducts, res.Raw)
	assert.Contains(t, res.Set.Rationale, "small Teams room")
	require.Len(t, res.Set.Products, 3)
	assert.Equal(t, "Crestron Flex UC-B160-T", res.Set.Products[0].Name)
	assert.Equal(t, "$2,499", res.Set.Products[0].Price)
	assert.Equal(t, []string{"Teams certified", "Dual display ready"}, res.Set.Products[0].WhyFit)
	assert.Empty(t, res.Set.Products[0].ProductURL)
	assert.Empty(t, res.Set.Products[0].ImageURL)
}

func TestParseRecommendations_CodeFencesAndProse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n" + threeProducts + "\n```"},
		{"bare fence", "```\n" + threeProducts + "\n```"},
		{"prose around object", "Here are my picks:\n" + threeProducts + "\nLet me know if you need more."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseRecommendations(tt.raw)
			require.True(t, res.OK(), res.Reason)
			assert.Len(t, res.Set.Products, 3)
		})
	}
}

func TestParseRecommendations_MissingFieldsAreFilled(t *testing.T) {
	raw := `{"rationale": "Overview", "products": [{"name": "Alpha UC-A1"}, {"name": "Beta UC-B2", "summary": "Beta"}]}`

	res := ParseRecommendations(raw)

	require.True(t, res.OK(), res.Reason)
	for _, p := range res.Set.Products {
		assert.NotNil(t, p.WhyFit)
		assert.Empty(t, p.Price)
		assert.Empty(t, p.ProductURL)
		assert.Empty(t, p.ImageURL)
	}
	assert.Empty(t, res.Set.Products[0].Summary)
	assert.Equal(t, "Beta", res.Set.Products[1].Summary)
}

func TestParseRecommendations_CoercesScalarFields(t *testing.T) {
	raw := `{
	  "rationale": "Overview",
	  "products": [
	    {"name": "Alpha", "price": 2499, "summary": true, "why_fit": "Single reason"},
	    {"name": "Beta", "price": {"amount": 1}, "summary": ["x"], "why_fit": [1, "two", null, ""]}
	  ]
	}`

	res := ParseRecommendations(raw)

	require.True(t, res.OK(), res.Reason)
	alpha, beta := res.Set.Products[0], res.Set.Products[1]
	assert.Equal(t, "2499", alpha.Price)
	assert.Equal(t, "true", alpha.Summary)
	assert.Equal(t, []string{"Single reason"}, alpha.WhyFit)
	assert.Empty(t, beta.Price)
	assert.Empty(t, beta.Summary)
	assert.Equal(t, []string{"1", "two"}, beta.WhyFit)
}

func TestParseRecommendations_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"not json", "I recommend the UC-B160-T."},
		{"truncated", `{"rationale": "x", "products": [{"name": "A"}, {"name": "B"`},
		{"missing rationale", `{"products": [{"name": "A"}, {"name": "B"}]}`},
		{"missing products", `{"rationale": "x"}`},
		{"products not array", `{"rationale": "x", "products": "A, B"}`},
		{"one product", `{"rationale": "x", "products": [{"name": "A"}]}`},
		{"five products", `{"rationale": "x", "products": [{"name": "A"}, {"name": "B"}, {"name": "C"}, {"name": "D"}, {"name": "E"}]}`},
		{"product without name", `{"rationale": "x", "products": [{"name": "A"}, {"summary": "B"}]}`},
		{"empty name", `{"rationale": "x", "products": [{"name": "A"}, {"name": ""}]}`},
		{"blank name", `{"rationale": "x", "products": [{"name": "A"}, {"name": "   "}]}`},
		{"numeric name", `{"rationale": "x", "products": [{"name": "A"}, {"name": 7}]}`},
		{"top-level array", `[{"name": "A"}, {"name": "B"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseRecommendations(tt.raw)
			assert.False(t, res.OK())
			assert.Nil(t, res.Set)
			assert.NotEmpty(t, res.Reason)
			assert.Equal(t, tt.raw, res.Raw)
		})
	}
}

func TestParseRecommendations_BoundsInclusive(t *testing.T) {
	two := `{"rationale": "x", "products": [{"name": "A"}, {"name": "B"}]}`
	four := `{"rationale": "x", "products": [{"name": "A"}, {"name": "B"}, {"name": "C"}, {"name": "D"}]}`

	assert.True(t, ParseRecommendations(two).OK())
	assert.True(t, ParseRecommendations(four).OK())
}

func TestParseRecommendations_SanitizesInvalidUTF8(t *testing.T) {
	raw := "{\"rationale\": \"ok\", \"products\": [{\"name\": \"A\", \"summary\": \"bad \xff byte\"}, {\"name\": \"B\"}]}"

	res := ParseRecommendations(raw)

	require.True(t, res.OK(), res.Reason)
	summary := res.Set.Products[0].Summary
	assert.True(t, utf8.ValidString(summary))
	assert.Contains(t, summary, "bad")
	assert.Contains(t, summary, "byte")
}

func TestParseRecommendations_SingleLineFence(t *testing.T) {
	raw := "```json{\"rationale\":\"r\",\"products\":[{\"name\":\"Crestron Flex UC-B160-T\"},{\"name\":\"Crestron Ceiling Mic CM-CMIC-2\"}]}```"

	res := ParseRecommendations(raw)

	require.True(t, res.OK(), res.Reason)
	assert.Equal(t, []string{"Crestron Flex UC-B160-T", "Crestron Ceiling Mic CM-CMIC-2"}, res.Set.ProductNames())
}
