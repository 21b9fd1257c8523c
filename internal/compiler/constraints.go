package compiler

import (
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// schema type names
const (
	typeString  = "string"
	typeInteger = "integer"
	typeNumber  = "number"
	typeArray   = "array"
)

// formats maps validator tags onto schema formats.
var formats = map[string]string{
	"email":    "email",
	"url":      "uri",
	"uri":      "uri",
	"uuid":     "uuid",
	"uuid4":    "uuid",
	"date":     "date",
	"datetime": "date-time",
	"ipv4":     "ipv4",
	"ipv6":     "ipv6",
	"hostname": "hostname",
}

type rule struct {
	key   string
	value string
}

type validateRules struct {
	required bool
	rules    []rule
}

// parseValidateTag reads a go-playground/validator tag. Rules after "dive" target the
// elements of a collection and are ignored here.
func parseValidateTag(tag string) validateRules {
	var out validateRules
	if tag == "" || tag == "-" {
		return out
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "dive" {
			break
		}
		key, value, _ := strings.Cut(part, "=")
		switch key {
		case "", "omitempty":
			continue
		case "required":
			out.required = true
			continue
		}
		out.rules = append(out.rules, rule{key: key, value: value})
	}
	return out
}

// applyConstraints maps validator rules onto s; min/max/len apply to string length,
// numeric range or item count depending on the schema type. Unknown rules are ignored.
func applyConstraints(s *openapi3.Schema, vr validateRules) {
	for _, r := range vr.rules {
		if format, ok := formats[r.key]; ok {
			s.Format = format
			continue
		}
		switch r.key {
		case "min", "gte":
			setMin(s, r.value, false)
		case "gt":
			setMin(s, r.value, true)
		case "max", "lte":
			setMax(s, r.value, false)
		case "lt":
			setMax(s, r.value, true)
		case "len":
			setMin(s, r.value, false)
			setMax(s, r.value, false)
		case "oneof":
			setEnum(s, strings.Fields(r.value))
		case "regexp":
			s.Pattern = r.value
		}
	}
}

func setMin(s *openapi3.Schema, value string, exclusive bool) {
	switch s.Type {
	case typeString:
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			s.MinLength = n
		}
	case typeArray:
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			s.MinItems = n
		}
	case typeInteger, typeNumber:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			s.Min = &f
			s.ExclusiveMin = exclusive
		}
	}
}

func setMax(s *openapi3.Schema, value string, exclusive bool) {
	switch s.Type {
	case typeString:
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			s.MaxLength = &n
		}
	case typeArray:
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			s.MaxItems = &n
		}
	case typeInteger, typeNumber:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			s.Max = &f
			s.ExclusiveMax = exclusive
		}
	}
}

func setEnum(s *openapi3.Schema, values []string) {
	if len(values) == 0 {
		return
	}
	enum := make([]any, 0, len(values))
	for _, v := range values {
		switch s.Type {
		case typeInteger:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				enum = append(enum, n)
				continue
			}
		case typeNumber:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				enum = append(enum, f)
				continue
			}
		}
		enum = append(enum, v)
	}
	s.Enum = enum
}
