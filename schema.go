package taichat

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SchemaFor generates a JSON Schema object from a struct type T.
//
// Field names come from json tags, types map to JSON Schema types, and the
// following struct tags refine the schema:
//
//	desc:"..."      property description (shown to the model)
//	required:"true" marks the field as required
//	enum:"a,b,c"    allowed string values
//	default:"x"     default value
//	min:"1" max:"10" numeric bounds
//
// Example:
//
//	type searchArgs struct {
//	    Query      string `json:"query" desc:"The search query" required:"true"`
//	    NumResults int    `json:"numResults" desc:"Number of results" min:"1" max:"10" default:"5"`
//	}
//	schema := taichat.MustSchemaFor[searchArgs]()
func SchemaFor[T any]() (json.RawMessage, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("schema: cannot reflect on nil type")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct type", t.Kind())
	}

	schema, err := schemaFromStruct(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(schema)
}

// MustSchemaFor is like SchemaFor but panics on error.
func MustSchemaFor[T any]() json.RawMessage {
	schema, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return schema
}

type schemaObject struct {
	Type       string                   `json:"type"`
	Properties map[string]*schemaObject `json:"properties,omitempty"`
	Required   []string                 `json:"required,omitempty"`

	Description string        `json:"description,omitempty"`
	Enum        []any         `json:"enum,omitempty"`
	Default     any           `json:"default,omitempty"`
	Minimum     *float64      `json:"minimum,omitempty"`
	Maximum     *float64      `json:"maximum,omitempty"`
	Items       *schemaObject `json:"items,omitempty"`
}

func schemaFromStruct(t reflect.Type) (*schemaObject, error) {
	obj := &schemaObject{
		Type:       "object",
		Properties: map[string]*schemaObject{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := strings.Split(jsonTag, ",")[0]
		if name == "" {
			name = field.Name
		}

		prop, err := schemaFromType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("schema: field %s: %w", field.Name, err)
		}

		if desc := field.Tag.Get("desc"); desc != "" {
			prop.Description = desc
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			for _, v := range strings.Split(enum, ",") {
				prop.Enum = append(prop.Enum, v)
			}
		}
		if def := field.Tag.Get("default"); def != "" {
			prop.Default = coerceTagValue(def, prop.Type)
		}
		if minTag := field.Tag.Get("min"); minTag != "" {
			if f, err := strconv.ParseFloat(minTag, 64); err == nil {
				prop.Minimum = &f
			}
		}
		if maxTag := field.Tag.Get("max"); maxTag != "" {
			if f, err := strconv.ParseFloat(maxTag, 64); err == nil {
				prop.Maximum = &f
			}
		}

		obj.Properties[name] = prop

		if field.Tag.Get("required") == "true" {
			obj.Required = append(obj.Required, name)
		}
	}

	return obj, nil
}

func schemaFromType(t reflect.Type) (*schemaObject, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &schemaObject{Type: "string"}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &schemaObject{Type: "integer"}, nil

	case reflect.Float32, reflect.Float64:
		return &schemaObject{Type: "number"}, nil

	case reflect.Bool:
		return &schemaObject{Type: "boolean"}, nil

	case reflect.Slice, reflect.Array:
		items, err := schemaFromType(t.Elem())
		if err != nil {
			return nil, err
		}
		return &schemaObject{Type: "array", Items: items}, nil

	case reflect.Struct:
		return schemaFromStruct(t)

	case reflect.Map:
		// Maps become objects with no defined properties.
		return &schemaObject{Type: "object"}, nil

	default:
		return nil, fmt.Errorf("unsupported kind %s", t.Kind())
	}
}

func coerceTagValue(raw, schemaType string) any {
	switch schemaType {
	case "integer":
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	case "number":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}
