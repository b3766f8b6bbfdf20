package schema

import (
	"reflect"
	"sync"
)

// TypeRegistry maps owner type names from the channel manifest to Go types.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

// Register records sample's type under name. Pointer samples are stored by their element type.
func (r *TypeRegistry) Register(name string, sample any) {
	t := reflect.TypeOf(sample)
	if t == nil {
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
}

// RegisterType records T under its qualified name (import path + "." + type name)
// and returns that name.
func RegisterType[T any](r *TypeRegistry) string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := QualifiedName(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
	return name
}

// Lookup returns the type registered under name.
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// QualifiedName renders a type as "import/path.Name", or its plain string for unnamed types.
func QualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
