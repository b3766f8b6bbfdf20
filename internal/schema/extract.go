package schema

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/nfrund/msgtopology/internal/topology"
)

var (
	carrierType   = reflect.TypeFor[Carrier]()
	describerType = reflect.TypeFor[Describer]()
	contextType   = reflect.TypeFor[context.Context]()
	errorType     = reflect.TypeFor[error]()
	timeType      = reflect.TypeFor[time.Time]()
)

// payloadType finds the message type carried by owner's member. Fields are tried
// first, then methods; incoming methods yield their first non-context parameter,
// outgoing methods their first non-error result.
func payloadType(owner reflect.Type, member string, direction topology.Direction) (reflect.Type, error) {
	if owner.Kind() == reflect.Struct {
		if f, ok := owner.FieldByName(member); ok {
			return usable(unwrap(f.Type), member)
		}
	}

	m, ok := reflect.PointerTo(owner).MethodByName(member)
	if !ok {
		return nil, fmt.Errorf("no field or method %s on %s", member, owner)
	}

	mt := m.Type
	switch direction {
	case topology.Incoming:
		// In(0) is the receiver.
		for i := 1; i < mt.NumIn(); i++ {
			if mt.In(i) == contextType {
				continue
			}
			return usable(unwrap(mt.In(i)), member)
		}
		return nil, fmt.Errorf("method %s takes no message parameter", member)
	default:
		for i := 0; i < mt.NumOut(); i++ {
			if mt.Out(i) == errorType {
				continue
			}
			return usable(unwrap(mt.Out(i)), member)
		}
		return nil, fmt.Errorf("method %s returns no message", member)
	}
}

func usable(t reflect.Type, member string) (reflect.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("member %s carries no resolvable payload type", member)
	}
	if t.Kind() == reflect.Interface {
		return nil, fmt.Errorf("member %s carries interface type %s", member, t)
	}
	return t, nil
}

// unwrap strips one level of wrapping: a Carrier's payload or a channel's element.
func unwrap(t reflect.Type) reflect.Type {
	t = deref(t)
	if p, ok := carriedBy(t); ok {
		if p == nil {
			return nil
		}
		return deref(p)
	}
	if t.Kind() == reflect.Chan {
		return deref(t.Elem())
	}
	return t
}

func carriedBy(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	if t.Implements(carrierType) {
		return reflect.Zero(t).Interface().(Carrier).PayloadType(), true
	}
	if reflect.PointerTo(t).Implements(carrierType) {
		return reflect.New(t).Interface().(Carrier).PayloadType(), true
	}
	return nil, false
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// extract builds the schema of a message type.
func extract(t reflect.Type) *Schema {
	t = deref(t)
	if s := describedBy(t); s != nil {
		return s
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return leaf(t)
	}

	s := &Schema{
		Kind:       KindObject,
		TypeName:   QualifiedName(t),
		Properties: make(map[string]*Schema),
	}
	for _, f := range fields(t, map[reflect.Type]bool{t: true}) {
		s.Properties[f.name] = f.schema
		s.Required = append(s.Required, f.name)
	}
	return s
}

func describedBy(t reflect.Type) *Schema {
	if t.Implements(describerType) {
		return reflect.Zero(t).Interface().(Describer).DescribeSchema()
	}
	if reflect.PointerTo(t).Implements(describerType) {
		return reflect.New(t).Interface().(Describer).DescribeSchema()
	}
	return nil
}

type field struct {
	name     string
	schema   *Schema
	promoted bool
}

// fields lists the serializable fields of a struct in declaration order, including
// fields promoted from embedded structs. Direct fields shadow promoted ones.
func fields(t reflect.Type, seen map[reflect.Type]bool) []field {
	var out []field
	direct := make(map[string]bool)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")

		if f.Anonymous && name == "" {
			ft := deref(f.Type)
			if ft.Kind() == reflect.Struct && ft != timeType {
				if seen[ft] {
					continue // cycle
				}
				for _, pf := range fields(ft, with(seen, ft)) {
					pf.promoted = true
					out = append(out, pf)
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		direct[name] = true
		out = append(out, field{name: name, schema: leaf(f.Type)})
	}

	kept := out[:0]
	emitted := make(map[string]bool, len(out))
	for _, f := range out {
		if emitted[f.name] || (f.promoted && direct[f.name]) {
			continue
		}
		emitted[f.name] = true
		kept = append(kept, f)
	}
	return kept
}

// with copies the types on the current embedding path and adds t, so sibling
// branches sharing an embedded struct each still expand it.
func with(seen map[reflect.Type]bool, t reflect.Type) map[reflect.Type]bool {
	next := make(map[reflect.Type]bool, len(seen)+1)
	for k := range seen {
		next[k] = true
	}
	next[t] = true
	return next
}

// leaf classifies a single field type without descending into it.
func leaf(t reflect.Type) *Schema {
	t = deref(t)
	s := &Schema{Kind: kindOf(t), TypeName: t.String()}

	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		if s.Kind == KindArray || t.Kind() == reflect.Map {
			s.ElementType = deref(t.Elem()).String()
		}
	}
	return s
}

func kindOf(t reflect.Type) Kind {
	if t == timeType {
		return KindString
	}
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return KindInteger
	case reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Bool:
		return KindBoolean
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindString // []byte marshals as base64 text
		}
		return KindArray
	case reflect.Pointer:
		return kindOf(t.Elem())
	default:
		return KindObject
	}
}
