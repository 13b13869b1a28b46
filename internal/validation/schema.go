package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/types"
)

// ValidateExportPayload checks a decoded JSON value (as produced by
// encoding/json into an interface{}) against the export schema. Every
// failure is recorded with its dotted path; an empty collection means the
// payload is valid. Export and import share this schema.
func ValidateExportPayload(v any) *errors.ValidationErrorCollection {
	vec := &errors.ValidationErrorCollection{}

	root, ok := v.(map[string]any)
	if !ok {
		vec.AddField("", v, expected("object", v))
		return vec
	}

	requireNonEmptyString(vec, root, "", "version")
	if s, ok := requireString(vec, root, "", "createdAt"); ok {
		if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
			vec.AddField("createdAt", s, "Invalid datetime")
		}
	}

	switch sections := root["sections"].(type) {
	case nil:
		vec.AddField("sections", nil, "Required")
	case []any:
		for i, raw := range sections {
			validateSection(vec, join("sections", strconv.Itoa(i)), raw)
		}
	default:
		vec.AddField("sections", sections, expected("array", sections))
	}

	switch md := root["metadata"].(type) {
	case nil:
		vec.AddField("metadata", nil, "Required")
	case map[string]any:
		for _, key := range []string{"title", "description", "author"} {
			optionalString(vec, md, "metadata", key)
		}
		if tags, present := md["tags"]; present && tags != nil {
			list, ok := tags.([]any)
			if !ok {
				vec.AddField("metadata.tags", tags, expected("array", tags))
				break
			}
			for i, tag := range list {
				if _, ok := tag.(string); !ok {
					vec.AddField(join("metadata.tags", strconv.Itoa(i)), tag, expected("string", tag))
				}
			}
		}
	default:
		vec.AddField("metadata", md, expected("object", md))
	}

	return vec
}

func validateSection(vec *errors.ValidationErrorCollection, path string, raw any) {
	section, ok := raw.(map[string]any)
	if !ok {
		vec.AddField(path, raw, expected("object", raw))
		return
	}

	requireString(vec, section, path, "id")
	requireNonEmptyString(vec, section, path, "type")

	switch props := section["props"].(type) {
	case nil:
		vec.AddField(join(path, "props"), nil, "Required")
	case map[string]any:
	default:
		vec.AddField(join(path, "props"), props, expected("object", props))
	}

	switch order := section["order"].(type) {
	case nil:
		vec.AddField(join(path, "order"), nil, "Required")
	case float64:
		if order != math.Trunc(order) {
			vec.AddField(join(path, "order"), order, "Expected integer, received float")
		} else if order < 0 {
			vec.AddField(join(path, "order"), order, "Number must be greater than or equal to 0")
		} else if order > math.MaxInt32 {
			vec.AddField(join(path, "order"), order, fmt.Sprintf("Number must be less than or equal to %d", math.MaxInt32))
		}
	default:
		vec.AddField(join(path, "order"), order, expected("number", order))
	}

	requireString(vec, section, path, "createdAt")
	requireString(vec, section, path, "updatedAt")
}

// ValidateTemplate checks that a catalog template can seed new sections.
func ValidateTemplate(t types.SectionTemplate) error {
	vec := &errors.ValidationErrorCollection{}
	if strings.TrimSpace(t.ID) == "" {
		vec.AddField("id", t.ID, "Required")
	}
	if strings.TrimSpace(t.Name) == "" {
		vec.AddField("name", t.Name, "Required")
	}
	if strings.TrimSpace(t.Category) == "" {
		vec.AddField("category", t.Category, "Required")
	}
	if t.DefaultProps == nil {
		vec.AddField("defaultProps", nil, "Required")
	} else if t.DefaultProps.SectionType() != t.SectionType() {
		vec.AddField("defaultProps", string(t.DefaultProps.SectionType()),
			fmt.Sprintf("Props are for %q, template is %q", t.DefaultProps.SectionType(), t.ID))
	}

	if vec.HasErrors() {
		return vec.ToBuilderError(errors.ErrCodeTemplateInvalid, "Invalid template")
	}

	return nil
}

func requireString(vec *errors.ValidationErrorCollection, obj map[string]any, path, key string) (string, bool) {
	v, present := obj[key]
	if !present || v == nil {
		vec.AddField(join(path, key), nil, "Required")
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		vec.AddField(join(path, key), v, expected("string", v))
		return "", false
	}

	return s, true
}

func requireNonEmptyString(vec *errors.ValidationErrorCollection, obj map[string]any, path, key string) {
	s, ok := requireString(vec, obj, path, key)
	if ok && s == "" {
		vec.AddField(join(path, key), s, "String must contain at least 1 character(s)")
	}
}

func optionalString(vec *errors.ValidationErrorCollection, obj map[string]any, path, key string) {
	v, present := obj[key]
	if !present || v == nil {
		return
	}
	if _, ok := v.(string); !ok {
		vec.AddField(join(path, key), v, expected("string", v))
	}
}

func expected(want string, got any) string {
	return fmt.Sprintf("Expected %s, received %s", want, kindOf(got))
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}

	return path + "." + key
}
