package compiler

import (
	"fmt"
	"go/types"
	"reflect"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// SchemaForSymbol compiles the exported type name into a schema. The result is fully
// inlined; a type that refers back to itself is cut off with an empty object.
func (p *Program) SchemaForSymbol(name string) (*openapi3.Schema, error) {
	tn := p.lookup(name)
	if tn == nil || !tn.Exported() {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}

	b := &schemaBuilder{prog: p, visiting: make(map[string]bool)}
	schema, err := b.schemaOf(tn.Type())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	schema.Title = name
	if doc := p.docs[tn.Pos()]; doc != "" {
		schema.Description = doc
	}
	return schema, nil
}

type schemaBuilder struct {
	prog     *Program
	visiting map[string]bool
}

func (b *schemaBuilder) schemaOf(t types.Type) (*openapi3.Schema, error) {
	switch typ := t.(type) {
	case *types.Alias:
		return b.schemaOf(types.Unalias(typ))

	case *types.Named:
		return b.namedSchema(typ)

	case *types.Basic:
		return basicSchema(typ)

	case *types.Pointer:
		elem, err := b.schemaOf(typ.Elem())
		if err != nil {
			return nil, err
		}
		elem.Nullable = true
		return elem, nil

	case *types.Slice:
		if isByte(typ.Elem()) {
			return openapi3.NewBytesSchema(), nil
		}
		items, err := b.schemaOf(typ.Elem())
		if err != nil {
			return nil, err
		}
		return openapi3.NewArraySchema().WithItems(items), nil

	case *types.Array:
		items, err := b.schemaOf(typ.Elem())
		if err != nil {
			return nil, err
		}
		n := uint64(typ.Len())
		s := openapi3.NewArraySchema().WithItems(items)
		s.MinItems = n
		s.MaxItems = &n
		return s, nil

	case *types.Map:
		if !isMapKey(typ.Key()) {
			return nil, fmt.Errorf("unsupported map key type %s", typ.Key())
		}
		// value types are not described: the mock only needs an object
		return openapi3.NewObjectSchema(), nil

	case *types.Struct:
		return b.structSchema(typ)

	case *types.Interface, *types.TypeParam:
		return &openapi3.Schema{}, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func (b *schemaBuilder) namedSchema(named *types.Named) (*openapi3.Schema, error) {
	obj := named.Obj()
	if obj.Pkg() != nil {
		switch obj.Pkg().Path() + "." + obj.Name() {
		case "time.Time":
			return openapi3.NewDateTimeSchema(), nil
		case "time.Duration":
			return openapi3.NewInt64Schema(), nil
		case "encoding/json.RawMessage", "encoding/json.Number":
			return &openapi3.Schema{}, nil
		}
	}

	key := types.TypeString(named, nil)
	if b.visiting[key] {
		return openapi3.NewObjectSchema(), nil
	}
	b.visiting[key] = true
	defer delete(b.visiting, key)

	schema, err := b.schemaOf(named.Underlying())
	if err != nil {
		return nil, err
	}
	if doc := b.prog.docs[obj.Pos()]; doc != "" && schema.Description == "" {
		schema.Description = doc
	}
	return schema, nil
}

func (b *schemaBuilder) structSchema(st *types.Struct) (*openapi3.Schema, error) {
	schema := openapi3.NewObjectSchema()
	if err := b.addFields(schema, st); err != nil {
		return nil, err
	}
	return schema, nil
}

// addFields adds the JSON-visible fields of st to schema. Untagged embedded structs are
// flattened into the parent, as encoding/json does.
func (b *schemaBuilder) addFields(schema *openapi3.Schema, st *types.Struct) error {
	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))
		name, opts := parseJSONTag(tag.Get("json"))
		if name == "-" && len(opts) == 0 {
			continue
		}

		if field.Embedded() && name == "" {
			if inner, ok := embeddedStruct(field.Type()); ok {
				if err := b.addFields(schema, inner); err != nil {
					return err
				}
				continue
			}
		}
		if !field.Exported() {
			continue
		}
		if name == "" {
			name = field.Name()
		}

		fs, err := b.schemaOf(field.Type())
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name(), err)
		}
		if doc := b.prog.docs[field.Pos()]; doc != "" {
			fs.Description = doc
		}
		rules := parseValidateTag(tag.Get("validate"))
		applyConstraints(fs, rules)

		_, isPtr := field.Type().Underlying().(*types.Pointer)
		if rules.required || (!hasOption(opts, "omitempty") && !hasOption(opts, "omitzero") && !isPtr) {
			schema.Required = append(schema.Required, name)
		}
		schema.Properties[name] = openapi3.NewSchemaRef("", fs)
	}
	return nil
}

func embeddedStruct(t types.Type) (*types.Struct, bool) {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	st, ok := types.Unalias(t).Underlying().(*types.Struct)
	return st, ok
}

func basicSchema(basic *types.Basic) (*openapi3.Schema, error) {
	switch basic.Kind() {
	case types.Bool:
		return openapi3.NewBoolSchema(), nil
	case types.String:
		return openapi3.NewStringSchema(), nil
	case types.Int, types.Int8, types.Int16:
		return openapi3.NewIntegerSchema(), nil
	case types.Int32:
		return openapi3.NewInt32Schema(), nil
	case types.Int64:
		return openapi3.NewInt64Schema(), nil
	case types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64, types.Uintptr:
		return openapi3.NewIntegerSchema().WithMin(0), nil
	case types.Float32:
		s := openapi3.NewFloat64Schema()
		s.Format = "float"
		return s, nil
	case types.Float64:
		return openapi3.NewFloat64Schema(), nil
	}
	return nil, fmt.Errorf("unsupported basic type %s", basic)
}

func isByte(t types.Type) bool {
	basic, ok := types.Unalias(t).(*types.Basic)
	return ok && basic.Kind() == types.Uint8
}

func isMapKey(t types.Type) bool {
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	info := basic.Info()
	return info&types.IsString != 0 || info&types.IsInteger != 0
}

func parseJSONTag(tag string) (string, []string) {
	if tag == "" {
		return "", nil
	}
	parts := strings.Split(tag, ",")
	return parts[0], parts[1:]
}

func hasOption(opts []string, want string) bool {
	for _, o := range opts {
		if o == want {
			return true
		}
	}
	return false
}
