package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Attribute is the tagged sum described in spec.md §3: integer, float,
// bool, string, type, shape, dense literal, aggregate, symbol reference,
// or an array of any of those. Kind() reports the tag; bef's attribute
// encoder dispatches with a type switch over the concrete types below.
// Key() drives uniquing in bef's entity table (a stand-in
// for the original's pointer-identity SetVector<mlir::Attribute>, since
// our attributes are plain values rather than uniqued MLIR storage).
type Attribute interface {
	Kind() AttrKind
	// Key returns a string that is equal for two attributes iff they
	// should be deduplicated to the same pool entry. Two attributes
	// with the same Key MUST also be byte-identical when encoded.
	Key() string
}

// AttrKind is the closed tag set the attribute encoder dispatches on.
// Never add an open-ended "other" bucket here — per spec.md §9 the
// attribute kind set is closed and dispatch is by tag match, not
// polymorphic method override.
type AttrKind int

const (
	AttrInteger AttrKind = iota
	AttrFloat
	AttrBool
	AttrString
	AttrTypeRef
	AttrShape
	AttrDense
	AttrAggregate
	AttrSymbolRef
	AttrArray
)

// IntegerAttr is a width-tagged integer constant.
type IntegerAttr struct {
	Type  *IntegerType
	Value int64
}

func (a *IntegerAttr) Kind() AttrKind { return AttrInteger }
func (a *IntegerAttr) Key() string {
	return fmt.Sprintf("int:%s:%d", a.Type.String(), a.Value)
}

// FloatAttr is a width-tagged floating point constant.
type FloatAttr struct {
	Type  *FloatType
	Value float64
}

func (a *FloatAttr) Kind() AttrKind { return AttrFloat }
func (a *FloatAttr) Key() string {
	return fmt.Sprintf("float:%s:%g", a.Type.String(), a.Value)
}

// BoolAttr is a boolean constant.
type BoolAttr struct{ Value bool }

func (a *BoolAttr) Kind() AttrKind { return AttrBool }
func (a *BoolAttr) Key() string    { return fmt.Sprintf("bool:%v", a.Value) }

// StringAttr is a string constant. It is encoded inline, length-prefixed,
// in the attribute pool; it is not an entry of the module's string pool.
type StringAttr struct{ Value string }

func (a *StringAttr) Kind() AttrKind { return AttrString }
func (a *StringAttr) Key() string    { return "str:" + a.Value }

// TypeAttr wraps a Type as an attribute value (e.g. the result type of a
// cast kernel, carried as an operand attribute rather than inferred).
type TypeAttr struct{ Value Type }

func (a *TypeAttr) Kind() AttrKind { return AttrTypeRef }
func (a *TypeAttr) Key() string    { return "type:" + a.Value.String() }

// ShapeAttr is a rank + dimensions tuple.
type ShapeAttr struct{ Dims []int64 }

func (a *ShapeAttr) Kind() AttrKind { return AttrShape }
func (a *ShapeAttr) Key() string {
	parts := make([]string, len(a.Dims))
	for i, d := range a.Dims {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "shape:" + strings.Join(parts, ",")
}

// DenseAttr is a dense literal: an element type, a shape, and a raw
// little-endian payload of Shape-product elements of ElemType's width.
type DenseAttr struct {
	ElemType Type
	Shape    []int64
	Bytes    []byte
}

func (a *DenseAttr) Kind() AttrKind { return AttrDense }
func (a *DenseAttr) Key() string {
	return fmt.Sprintf("dense:%s:%v:%x", a.ElemType.String(), a.Shape, a.Bytes)
}

// AggregateAttr is a length-prefixed list of nested attribute values,
// each emitted depth-first before the parent records their offsets.
type AggregateAttr struct{ Elements []Attribute }

func (a *AggregateAttr) Kind() AttrKind { return AttrAggregate }
func (a *AggregateAttr) Key() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.Key()
	}
	return "agg:(" + strings.Join(parts, "|") + ")"
}

// SymbolRefAttr names a function by symbol, optionally nested into a
// compilation unit (NestedRefs non-empty ⇒ reference into a sub-module,
// resolved by the compunit.Registry collaborator rather than the
// function table).
type SymbolRefAttr struct {
	RootRef    string
	NestedRefs []string
}

func (a *SymbolRefAttr) Kind() AttrKind { return AttrSymbolRef }
func (a *SymbolRefAttr) Key() string {
	return "sym:" + a.RootRef + ":" + strings.Join(a.NestedRefs, ".")
}

// IsCompilationUnitRef reports whether this symbol reference points into
// a nested compiled sub-module rather than a directly executable function.
func (a *SymbolRefAttr) IsCompilationUnitRef() bool { return len(a.NestedRefs) > 0 }

// ArrayAttr is an array of homogeneous attribute values. An array whose
// elements are all SymbolRefAttr is special-cased by the collector as a
// function-reference list and never reaches the attribute pool.
type ArrayAttr struct{ Elements []Attribute }

func (a *ArrayAttr) Kind() AttrKind { return AttrArray }
func (a *ArrayAttr) Key() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.Key()
	}
	return "arr:[" + strings.Join(parts, ",") + "]"
}

// IsSymbolRefArray reports whether this is a non-empty array whose first
// (and, by construction, every) element is a SymbolRefAttr.
func (a *ArrayAttr) IsSymbolRefArray() bool {
	if len(a.Elements) == 0 {
		return false
	}
	_, ok := a.Elements[0].(*SymbolRefAttr)
	return ok
}

// NamedAttribute pairs an attribute name with its value, preserving the
// order attributes were attached to an operation — the Go analogue of
// the "insertion order" invariant spec.md §9 calls out explicitly,
// because unlike llvm::StringMap, Go map iteration order is randomized
// and cannot be relied on for determinism.
type NamedAttribute struct {
	Name  string
	Value Attribute
}

// SortNamedAttributesByName returns a copy of attrs sorted by name.
// Nothing in this module calls it: the string pool is sorted from its own
// string set, and kernel attribute emission preserves NamedAttribute's
// original slice order, per the open question in spec.md §9.
func SortNamedAttributesByName(attrs []NamedAttribute) []NamedAttribute {
	out := make([]NamedAttribute, len(attrs))
	copy(out, attrs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
