// Package compunit implements the compilation-unit registry collaborator
// (component C in spec.md §2): it decides whether a symbol reference
// points into a nested compiled sub-module, and if so, serializes that
// sub-module opaquely for the attribute encoder.
package compunit

import "github.com/vibeflow/befgen/ir"

// Registry answers the two questions bef's attribute encoder needs about a
// SymbolRefAttr: is it a reference into a compiled sub-module, and if
// so what opaque bytes represent that sub-module.
type Registry interface {
	// Lookup returns the opaque, already-serialized bytes for a symbol
	// reference into a nested compilation unit, and true if ref names
	// one. bef calls it only for references whose
	// SymbolRefAttr.IsCompilationUnitRef is true (the others go to the
	// function table without a lookup); a false return for such a
	// reference makes bef's attribute encoder panic.
	Lookup(ref *ir.SymbolRefAttr) (blob []byte, ok bool)
}

// unit is one compiled sub-module registered by name.
type unit struct {
	name  string
	bytes []byte
}

// StaticRegistry is a reference Registry implementation backed by a
// fixed name→bytes map, populated ahead of conversion (e.g. by an
// upstream pass that already compiled the nested sub-modules to their
// own opaque form). Production converters may swap in a Registry that
// compiles lazily on first lookup; the interface above is the only
// contract bef depends on.
type StaticRegistry struct {
	units map[string]unit
}

// NewStaticRegistry creates a registry with no compilation units
// registered. Every SymbolRefAttr lookup will report ok=false until
// Register is called.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{units: make(map[string]unit)}
}

// Register associates a root symbol name with a nested compiled
// sub-module's serialized bytes.
func (r *StaticRegistry) Register(rootRef string, blob []byte) {
	r.units[rootRef] = unit{name: rootRef, bytes: blob}
}

// Lookup implements Registry.
func (r *StaticRegistry) Lookup(ref *ir.SymbolRefAttr) ([]byte, bool) {
	if !ref.IsCompilationUnitRef() {
		return nil, false
	}
	u, ok := r.units[ref.RootRef]
	if !ok {
		return nil, false
	}
	return u.bytes, true
}

// Empty is a Registry that never recognizes a compilation-unit
// reference; useful as the default when a converter has no nested
// sub-modules to worry about.
var Empty Registry = emptyRegistry{}

type emptyRegistry struct{}

func (emptyRegistry) Lookup(*ir.SymbolRefAttr) ([]byte, bool) { return nil, false }
