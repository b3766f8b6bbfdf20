package schema

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Example synthesizes a payload matching s. An empty schema yields a generic
// placeholder message.
func Example(s *Schema, now time.Time) any {
	if s.IsEmpty() {
		return map[string]any{
			"id":        "example-" + formatMillis(now),
			"message":   "Example message",
			"timestamp": now.UTC().Format(time.RFC3339Nano),
		}
	}
	if s.Kind != KindObject {
		return defaultFor(s.Kind)
	}

	out := make(map[string]any, len(s.Properties))
	for _, name := range propertyOrder(s) {
		out[name] = exampleValue(name, s.Properties[name], now)
	}
	return out
}

// propertyOrder lists property names, required ones first in declaration order.
func propertyOrder(s *Schema) []string {
	names := make([]string, 0, len(s.Properties))
	listed := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; ok && !listed[name] {
			listed[name] = true
			names = append(names, name)
		}
	}

	var rest []string
	for name := range s.Properties {
		if !listed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// exampleValue picks a value by field name first, then by kind.
func exampleValue(name string, prop *Schema, now time.Time) any {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "id"):
		return "example-" + uuid.NewString()[:8]
	case strings.Contains(lower, "timestamp"), strings.Contains(lower, "date"), strings.Contains(lower, "time"):
		return now.UTC().Format(time.RFC3339Nano)
	case strings.Contains(lower, "email"):
		return "user@example.com"
	case strings.Contains(lower, "name"):
		return "Example Name"
	}

	kind := KindString
	if prop != nil && prop.Kind != "" {
		kind = prop.Kind
	}
	return defaultFor(kind)
}

func defaultFor(kind Kind) any {
	switch kind {
	case KindString:
		return "example-value"
	case KindInteger:
		return 123
	case KindNumber:
		return 123.45
	case KindBoolean:
		return true
	case KindArray:
		return []any{"item1", "item2"}
	default:
		return map[string]any{"key": "value"}
	}
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
