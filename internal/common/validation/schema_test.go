// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const querySchema = `{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "minLength": 1},
		"limit": {"type": "integer", "minimum": 1}
	}
}`

func TestSchema_Validate(t *testing.T) {
	s := MustCompile("query", querySchema)

	tests := []struct {
		name      string
		doc       interface{}
		valid     bool
		badField  string
	}{
		{"valid", map[string]interface{}{"query": "apollo", "limit": 3}, true, ""},
		{"missing query", map[string]interface{}{"limit": 3}, false, "(root)"},
		{"empty query", map[string]interface{}{"query": ""}, false, "query"},
		{"bad limit", map[string]interface{}{"query": "x", "limit": 0}, false, "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.NoError(t, res.Err())
				return
			}
			assert.True(t, res.HasErrors(tt.badField), res.GetErrorMessages())
			assert.Error(t, res.Err())
		})
	}
}

func TestSchema_ValidateJSON_Malformed(t *testing.T) {
	s := MustCompile("query", querySchema)
	_, err := s.ValidateJSON([]byte(`{"query": `))
	assert.Error(t, err)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile("broken", `{"type": 12}`) })
}
