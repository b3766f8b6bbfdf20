// Package schema derives structural descriptions of channel message types and
// synthesizes example payloads from them.
//
// Message types are found through a TypeRegistry populated once at startup with the
// owner types named in the channel manifest. Resolution walks the owner's field or
// method to the carried payload type and then extracts its exported fields:
//
//	types := schema.NewTypeRegistry()
//	schema.RegisterType[orders.Service](types)
//
//	in := schema.NewIntrospector(store, types)
//	s := in.SchemaFor("new-order", topology.Outgoing)
//	example := in.ExampleFor("new-order", topology.Outgoing)
package schema

import (
	"encoding/json"
	"reflect"
)

// Kind is the primitive category of a schema node.
type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
)

// Schema is a recursive structural description of a message type.
type Schema struct {
	Kind        Kind               `json:"type,omitempty"`
	TypeName    string             `json:"typeName,omitempty"`
	ElementType string             `json:"genericType,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// IsEmpty reports whether the schema carries no information.
func (s *Schema) IsEmpty() bool {
	return s == nil || s.Kind == ""
}

// JSON encodes the schema for embedding in a topology snapshot.
func (s *Schema) JSON() json.RawMessage {
	if s.IsEmpty() {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return data
}

// Describer lets a message type supply its own schema instead of having its fields walked.
type Describer interface {
	DescribeSchema() *Schema
}

// Carrier is implemented by typed wrappers (emitters, streams, events) to expose the
// payload type they carry, since reflection cannot see generic type arguments.
type Carrier interface {
	PayloadType() reflect.Type
}
