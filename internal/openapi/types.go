package openapi

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// applyValidateTag copies the constraints of a go-playground validate tag
// onto the reflected schema so the document advertises the same limits the
// server enforces. Rules after "dive" apply to slice elements; the generator
// passes the field tag to the element schema as well, so each side only
// reads its own half.
func applyValidateTag(_ string, _ reflect.Type, tag reflect.StructTag, schema *openapi3.Schema) error {
	raw, ok := tag.Lookup("validate")
	if !ok || raw == "" || schema == nil {
		return nil
	}

	rules := strings.Split(raw, ",")
	outer, inner := rules, []string(nil)
	for i, r := range rules {
		if r == "dive" {
			outer, inner = rules[:i], rules[i+1:]
			break
		}
	}
	if schema.Type.Is("array") {
		applyRules(schema, outer)
		return nil
	}
	if inner != nil {
		applyRules(schema, inner)
		return nil
	}
	applyRules(schema, outer)
	return nil
}

func applyRules(schema *openapi3.Schema, rules []string) {
	for _, rule := range rules {
		name, arg, _ := strings.Cut(rule, "=")
		switch name {
		case "min":
			n, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				continue
			}
			switch {
			case schema.Type.Is("string"):
				schema.MinLength = n
			case schema.Type.Is("integer"), schema.Type.Is("number"):
				f := float64(n)
				schema.Min = &f
			case schema.Type.Is("array"):
				schema.MinItems = n
			}
		case "max":
			n, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				continue
			}
			switch {
			case schema.Type.Is("string"):
				schema.MaxLength = &n
			case schema.Type.Is("integer"), schema.Type.Is("number"):
				f := float64(n)
				schema.Max = &f
			case schema.Type.Is("array"):
				schema.MaxItems = &n
			}
		case "oneof":
			values := strings.Fields(arg)
			enum := make([]interface{}, len(values))
			for i, v := range values {
				enum[i] = v
			}
			schema.Enum = enum
		case "email":
			schema.Format = "email"
		case "url":
			schema.Format = "uri"
		}
	}
}
