package query

import (
	"fmt"
	"strings"

	"github.com/roach88/revise/internal/value"
)

// Compile converts a filter on kind to a parameterized SELECT of record
// IDs. A nil filter selects every record of kind.
//
// Values are never interpolated; the JSON path of each field is bound
// as a parameter too.
func Compile(kind string, filter Predicate) (string, []any, error) {
	where := "kind = ?"
	params := []any{kind}

	if filter != nil {
		filterSQL, filterParams, err := compilePredicate(filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where += " AND " + filterSQL
		params = append(params, filterParams...)
	}

	sql := "SELECT id FROM records WHERE " + where + " ORDER BY id COLLATE BINARY ASC"
	return sql, params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred)
	case IsNull:
		if !validIdentifier.MatchString(pred.Field) {
			return "", nil, fmt.Errorf("invalid field name %q", pred.Field)
		}
		return "COALESCE(json_type(fields, ?), 'null') = 'null'", []any{path(pred.Field)}, nil
	case And:
		return compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals guards on the JSON type so that "3" never matches 3.
func compileEquals(eq Equals) (string, []any, error) {
	if !validIdentifier.MatchString(eq.Field) {
		return "", nil, fmt.Errorf("invalid field name %q", eq.Field)
	}
	p := path(eq.Field)

	switch v := eq.Value.(type) {
	case value.String:
		return "(json_type(fields, ?) = 'text' AND json_extract(fields, ?) = ?)", []any{p, p, string(v)}, nil
	case value.Int:
		return "(json_type(fields, ?) = 'integer' AND json_extract(fields, ?) = ?)", []any{p, p, int64(v)}, nil
	case value.Bool:
		return "json_type(fields, ?) = ?", []any{p, fmt.Sprintf("%t", bool(v))}, nil
	default:
		return "", nil, fmt.Errorf("%s cannot be used as a filter value", value.TypeName(eq.Value))
	}
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func path(field string) string {
	return "$." + field
}
