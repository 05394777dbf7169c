// Package ir is the in-process representation the converter walks: a
// minimal, dataflow-flavoured IR standing in for the upstream parser's
// output. There is no textual syntax here — modules are built directly
// with the constructors in this package.
package ir

import "fmt"

// Type is the interface implemented by every IR type. Types are deduped
// by identity: two calls that would otherwise produce an "equal" type
// must return the same *pointer* for the converter's identity-based
// uniquing to work, so callers should route construction through the
// TypeTable interning helpers below rather than allocating types ad hoc.
type Type interface {
	String() string
	typeSealed()
}

// IntegerType is a signless integer type of the given bit width.
type IntegerType struct {
	Width uint32
}

func (t *IntegerType) String() string { return fmt.Sprintf("i%d", t.Width) }
func (*IntegerType) typeSealed()      {}

// FloatType is an IEEE floating point type of the given bit width.
type FloatType struct {
	Width uint32
}

func (t *FloatType) String() string { return fmt.Sprintf("f%d", t.Width) }
func (*FloatType) typeSealed()      {}

// BoolType is the one-bit boolean type, printed distinctly from i1 so
// that attribute width-tagging (spec.md §3) can tell them apart.
type BoolType struct{}

func (*BoolType) String() string { return "bool" }
func (*BoolType) typeSealed()    {}

// OpaqueType is any other named type the converter doesn't need to
// interpret structurally (e.g. a chain, tensor, or resource handle type).
// Its printed Name is what gets pooled into the string section.
type OpaqueType struct {
	Name string
}

func (t *OpaqueType) String() string { return t.Name }
func (*OpaqueType) typeSealed()      {}

// TypeTable interns Type values so that structurally-equal types share a
// single pointer. This is the Go rendering of the original's "check by
// pointer to reduce string conversions" comment (EntityTable::AddType):
// without interning, two &IntegerType{Width: 32} literals would produce two
// distinct identities and silently defeat type dedup.
type TypeTable struct {
	ints    map[uint32]*IntegerType
	floats  map[uint32]*FloatType
	opaques map[string]*OpaqueType
	boolTy  *BoolType
}

// NewTypeTable creates an empty interning table.
func NewTypeTable() *TypeTable {
	return &TypeTable{
		ints:    make(map[uint32]*IntegerType),
		floats:  make(map[uint32]*FloatType),
		opaques: make(map[string]*OpaqueType),
	}
}

// Int returns the canonical integer type of the given width.
func (t *TypeTable) Int(width uint32) *IntegerType {
	if ty, ok := t.ints[width]; ok {
		return ty
	}
	ty := &IntegerType{Width: width}
	t.ints[width] = ty
	return ty
}

// Float returns the canonical float type of the given width.
func (t *TypeTable) Float(width uint32) *FloatType {
	if ty, ok := t.floats[width]; ok {
		return ty
	}
	ty := &FloatType{Width: width}
	t.floats[width] = ty
	return ty
}

// Bool returns the canonical bool type.
func (t *TypeTable) Bool() *BoolType {
	if t.boolTy == nil {
		t.boolTy = &BoolType{}
	}
	return t.boolTy
}

// Opaque returns the canonical opaque type with the given printed name.
func (t *TypeTable) Opaque(name string) *OpaqueType {
	if ty, ok := t.opaques[name]; ok {
		return ty
	}
	ty := &OpaqueType{Name: name}
	t.opaques[name] = ty
	return ty
}
