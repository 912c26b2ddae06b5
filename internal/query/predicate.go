package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/revise/internal/value"
)

// validIdentifier matches field names that may appear in a JSON path.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Predicate is a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Equals matches records whose field holds a scalar equal to Value.
type Equals struct {
	Field string
	Value value.Value
}

func (Equals) predicateNode() {}

// IsNull matches records whose field is null.
type IsNull struct {
	Field string
}

func (IsNull) predicateNode() {}

// And matches records satisfying every predicate. An empty And matches
// everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Fields is the part of a kind a filter is checked against.
// schema.Kind implements it.
type Fields interface {
	Name() string
	HasField(name string) bool
}

// ParseFilters parses "field=literal" pairs (as given to --where) into a
// conjunction. A null literal becomes IsNull. Literals are decoded with
// value.ParseLiteral.
func ParseFilters(filters []string) (And, error) {
	and := And{Predicates: []Predicate{}}
	for _, raw := range filters {
		field, lit, ok := strings.Cut(raw, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return And{}, fmt.Errorf("invalid filter %q: expected field=value", raw)
		}
		v := value.ParseLiteral(lit)
		if value.IsNull(v) {
			and.Predicates = append(and.Predicates, IsNull{Field: field})
			continue
		}
		and.Predicates = append(and.Predicates, Equals{Field: field, Value: v})
	}
	return and, nil
}

// Validate checks that every field in p is a declared identifier of kind
// and that every compared value is a scalar.
func Validate(p Predicate, kind Fields) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		if err := checkField(pred.Field, kind); err != nil {
			return err
		}
		switch pred.Value.(type) {
		case value.String, value.Int, value.Bool:
			return nil
		default:
			return fmt.Errorf("filter on %s: only strings, integers and booleans can be compared, got %s",
				pred.Field, value.TypeName(pred.Value))
		}
	case IsNull:
		return checkField(pred.Field, kind)
	case And:
		for _, inner := range pred.Predicates {
			if err := Validate(inner, kind); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func checkField(field string, kind Fields) error {
	if !validIdentifier.MatchString(field) {
		return fmt.Errorf("invalid field name %q: must match pattern %s", field, validIdentifier.String())
	}
	if !kind.HasField(field) {
		return fmt.Errorf("%s has no field %q", kind.Name(), field)
	}
	return nil
}
