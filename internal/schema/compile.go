package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// CompileError is a kind compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile extracts every kind under the top-level "kind" struct of v.
func Compile(v cue.Value) ([]*Kind, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	kindsVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindsVal.Exists() {
		return nil, &CompileError{Field: "kind", Message: "no kinds declared", Pos: v.Pos()}
	}

	iter, err := kindsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var kinds []*Kind
	for iter.Next() {
		k, err := CompileKind(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// CompileKind parses one kind declaration.
func CompileKind(name string, v cue.Value) (*Kind, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: name + ".fields", Message: "fields is required", Pos: v.Pos()}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []Field
	for iter.Next() {
		f, err := compileField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, &CompileError{Field: name + ".fields", Message: "at least one field is required", Pos: v.Pos()}
	}

	return NewKind(name, fields...), nil
}

// compileField accepts either a declaration struct or a bare CUE type.
func compileField(name string, v cue.Value) (Field, error) {
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if v.IncompleteKind() != cue.StructKind || !typeVal.Exists() {
		typ, err := extractTypeName(v)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: name, Type: typ}, nil
	}

	f := Field{Name: name}
	typ, err := typeVal.String()
	if err != nil {
		return Field{}, formatCUEError(err)
	}
	if !ValidTypes[typ] {
		return Field{}, &CompileError{
			Field:   name + ".type",
			Message: fmt.Sprintf("unsupported type %q", typ),
			Pos:     typeVal.Pos(),
		}
	}
	f.Type = typ

	if f.Required, err = lookupBool(v, "required"); err != nil {
		return Field{}, err
	}
	if f.Unique, err = lookupBool(v, "unique"); err != nil {
		return Field{}, err
	}
	if f.Readonly, err = lookupBool(v, "readonly"); err != nil {
		return Field{}, err
	}
	if f.MaxLength, err = lookupInt(v, "max_length"); err != nil {
		return Field{}, err
	}
	if f.Min, err = lookupInt(v, "min"); err != nil {
		return Field{}, err
	}
	if f.Max, err = lookupInt(v, "max"); err != nil {
		return Field{}, err
	}

	enumVal := v.LookupPath(cue.ParsePath("enum"))
	if enumVal.Exists() {
		list, err := enumVal.List()
		if err != nil {
			return Field{}, formatCUEError(err)
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return Field{}, formatCUEError(err)
			}
			f.Enum = append(f.Enum, s)
		}
	}

	if f.Type != "int" && (f.Min != nil || f.Max != nil) {
		return Field{}, &CompileError{Field: name, Message: "min/max only apply to int fields", Pos: v.Pos()}
	}
	if len(f.Enum) > 0 && f.Type != "string" {
		return Field{}, &CompileError{Field: name, Message: "enum only applies to string fields", Pos: v.Pos()}
	}

	return f, nil
}

func lookupBool(v cue.Value, key string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(key))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func lookupInt(v cue.Value, key string) (*int64, error) {
	fv := v.LookupPath(cue.ParsePath(key))
	if !fv.Exists() {
		return nil, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return &n, nil
}

// extractTypeName maps a bare CUE type to a field type name.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.ListKind:
		return "array", nil
	case cue.StructKind:
		return "object", nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// CompileString compiles kinds from CUE source.
func CompileString(src, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	kinds, err := Compile(v)
	if err != nil {
		return nil, err
	}
	return NewRegistry(kinds...)
}

// LoadFile compiles kinds from a single .cue file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kind file: %w", err)
	}
	return CompileString(string(data), path)
}

// LoadDir compiles kinds from all .cue files in dir, unified as one
// CUE instance.
func LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("kinds directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("kinds directory: not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	kinds, err := Compile(v)
	if err != nil {
		return nil, err
	}
	return NewRegistry(kinds...)
}
