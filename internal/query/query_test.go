package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/revise/internal/value"
)

type fakeKind map[string]bool

func (fakeKind) Name() string { return "widget" }
func (k fakeKind) HasField(name string) bool { return k[name] }

var widget = fakeKind{"name": true, "stock": true, "active": true, "tags": true}

func TestParseFilters(t *testing.T) {
	and, err := ParseFilters([]string{"name=Bolt", "stock=3", "active=true", "tags=null", `name="7"`})
	require.NoError(t, err)

	assert.Equal(t, []Predicate{
		Equals{Field: "name", Value: value.String("Bolt")},
		Equals{Field: "stock", Value: value.Int(3)},
		Equals{Field: "active", Value: value.Bool(true)},
		IsNull{Field: "tags"},
		Equals{Field: "name", Value: value.String("7")},
	}, and.Predicates)
}

func TestParseFilters_TrailingTextStaysString(t *testing.T) {
	and, err := ParseFilters([]string{"stock=3abc", "name=true story"})
	require.NoError(t, err)

	assert.Equal(t, []Predicate{
		Equals{Field: "stock", Value: value.String("3abc")},
		Equals{Field: "name", Value: value.String("true story")},
	}, and.Predicates)
}

func TestParseFilters_Empty(t *testing.T) {
	and, err := ParseFilters(nil)
	require.NoError(t, err)
	assert.Empty(t, and.Predicates)
	assert.NotNil(t, and.Predicates)
}

func TestParseFilters_Invalid(t *testing.T) {
	for _, raw := range []string{"name", "=Bolt", " =x"} {
		_, err := ParseFilters([]string{raw})
		require.Error(t, err, raw)
		assert.Contains(t, err.Error(), "expected field=value")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		pred    Predicate
		wantErr string
	}{
		{"nil", nil, ""},
		{"string", Equals{Field: "name", Value: value.String("x")}, ""},
		{"null", IsNull{Field: "tags"}, ""},
		{"nested and", And{Predicates: []Predicate{And{Predicates: []Predicate{IsNull{Field: "name"}}}}}, ""},
		{"undeclared", Equals{Field: "weight", Value: value.Int(1)}, `widget has no field "weight"`},
		{"bad identifier", IsNull{Field: "name') OR 1=1 --"}, "invalid field name"},
		{"array value", Equals{Field: "tags", Value: value.Array{}}, "got array"},
		{"inner failure", And{Predicates: []Predicate{IsNull{Field: "nope"}}}, `no field "nope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pred, widget)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name       string
		filter     Predicate
		wantSQL    string
		wantParams []any
	}{
		{
			name:       "no filter",
			filter:     nil,
			wantSQL:    "SELECT id FROM records WHERE kind = ? ORDER BY id COLLATE BINARY ASC",
			wantParams: []any{"widget"},
		},
		{
			name:       "empty and",
			filter:     And{},
			wantSQL:    "SELECT id FROM records WHERE kind = ? AND 1 = 1 ORDER BY id COLLATE BINARY ASC",
			wantParams: []any{"widget"},
		},
		{
			name:       "string",
			filter:     Equals{Field: "name", Value: value.String("Bolt")},
			wantSQL:    "SELECT id FROM records WHERE kind = ? AND (json_type(fields, ?) = 'text' AND json_extract(fields, ?) = ?) ORDER BY id COLLATE BINARY ASC",
			wantParams: []any{"widget", "$.name", "$.name", "Bolt"},
		},
		{
			name: "conjunction",
			filter: And{Predicates: []Predicate{
				Equals{Field: "stock", Value: value.Int(3)},
				Equals{Field: "active", Value: value.Bool(false)},
				IsNull{Field: "tags"},
			}},
			wantSQL: "SELECT id FROM records WHERE kind = ? AND " +
				"(json_type(fields, ?) = 'integer' AND json_extract(fields, ?) = ?) AND " +
				"json_type(fields, ?) = ? AND " +
				"COALESCE(json_type(fields, ?), 'null') = 'null' " +
				"ORDER BY id COLLATE BINARY ASC",
			wantParams: []any{"widget", "$.stock", "$.stock", int64(3), "$.active", "false", "$.tags"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := Compile("widget", tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestCompile_Rejects(t *testing.T) {
	_, _, err := Compile("widget", Equals{Field: "tags", Value: value.Object{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object cannot be used as a filter value")

	_, _, err = Compile("widget", Equals{Field: "a.b", Value: value.Int(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid field name")
}
