package bef

import (
	"math"

	"github.com/vibeflow/befgen/compunit"
	"github.com/vibeflow/befgen/ir"
)

// Attribute pool tags. A closed set dispatched on by a type switch, per
// the design note in spec.md §9 against "open-class dispatch" — adding
// a new attribute kind means adding a case here, not a new interface
// method scattered across call sites.
const (
	tagInteger byte = iota
	tagFloat
	tagBool
	tagString
	tagTypeRef
	tagShape
	tagDense
	tagAggregate
	tagSymbolRef
	tagArray
)

// attrEncoder lays out the Attributes section (component A in spec.md
// §2/§4.4). It needs the entity table (to resolve type indices) and the
// compilation-unit registry (to resolve symbol references that turn out
// to point into a nested compiled sub-module).
type attrEncoder struct {
	pool  *Emitter
	table *entityTable
	cu    compunit.Registry
}

func newAttrEncoder(table *entityTable, cu compunit.Registry) *attrEncoder {
	return &attrEncoder{pool: NewEmitter(), table: table, cu: cu}
}

// encode writes attr into the pool (recursing into nested values
// depth-first for aggregates) and returns its pool offset.
func (e *attrEncoder) encode(attr ir.Attribute) AttrOffset {
	offset := AttrOffset(e.pool.Size())
	e.encodeInto(e.pool, attr)
	return offset
}

func (e *attrEncoder) encodeInto(buf *Emitter, attr ir.Attribute) {
	switch a := attr.(type) {
	case *ir.IntegerAttr:
		buf.EmitByte(tagInteger)
		buf.EmitVbrInt(uint64(a.Type.Width))
		writeIntPayload(buf, a.Type.Width, a.Value)

	case *ir.FloatAttr:
		buf.EmitByte(tagFloat)
		buf.EmitVbrInt(uint64(a.Type.Width))
		writeFloatPayload(buf, a.Type.Width, a.Value)

	case *ir.BoolAttr:
		buf.EmitByte(tagBool)
		if a.Value {
			buf.EmitByte(1)
		} else {
			buf.EmitByte(0)
		}

	case *ir.StringAttr:
		buf.EmitByte(tagString)
		buf.EmitVbrInt(uint64(len(a.Value)))
		buf.EmitBytes([]byte(a.Value))

	case *ir.TypeAttr:
		buf.EmitByte(tagTypeRef)
		buf.EmitVbrInt(uint64(e.table.typeIndex(a.Value)))

	case *ir.ShapeAttr:
		buf.EmitByte(tagShape)
		buf.EmitVbrInt(uint64(len(a.Dims)))
		for _, d := range a.Dims {
			buf.EmitVbrInt(uint64(d))
		}

	case *ir.DenseAttr:
		buf.EmitByte(tagDense)
		buf.EmitVbrInt(uint64(e.table.typeIndex(a.ElemType)))
		buf.EmitVbrInt(uint64(len(a.Shape)))
		for _, d := range a.Shape {
			buf.EmitVbrInt(uint64(d))
		}
		buf.EmitAlign(elementAlignment(a.ElemType))
		buf.EmitBytes(a.Bytes)

	case *ir.AggregateAttr:
		buf.EmitByte(tagAggregate)
		buf.EmitVbrInt(uint64(len(a.Elements)))
		for _, child := range a.Elements {
			childOffset := e.encode(child)
			buf.EmitVbrInt(uint64(childOffset))
		}

	case *ir.ArrayAttr:
		buf.EmitByte(tagArray)
		buf.EmitVbrInt(uint64(len(a.Elements)))
		for _, child := range a.Elements {
			e.encodeInto(buf, child)
		}

	case *ir.SymbolRefAttr:
		e.encodeSymbolRef(buf, a)

	default:
		panic("bef: unsupported attribute kind reached the encoder — EncodingError should have been raised earlier")
	}
}

// encodeSymbolRef handles a SymbolRefAttr that reached the pool — by
// construction (entityTable.collectOp defers direct function references
// instead of pooling them) this is always a reference into a nested
// compilation unit.
func (e *attrEncoder) encodeSymbolRef(buf *Emitter, a *ir.SymbolRefAttr) {
	buf.EmitByte(tagSymbolRef)
	blob, ok := e.cu.Lookup(a)
	if !ok {
		panic("bef: symbol reference attribute reached the pool without a compilation unit — InvariantError")
	}
	buf.EmitVbrInt(uint64(len(blob)))
	buf.EmitBytes(blob)
}

// IsSupportedAttribute reports whether attr's kind is one the encoder
// knows how to emit — the EncodingError gate from spec.md §4.3 step 5
// / §7. Every case in encodeInto's switch corresponds to one of these.
func IsSupportedAttribute(attr ir.Attribute) bool {
	switch attr.(type) {
	case *ir.IntegerAttr, *ir.FloatAttr, *ir.BoolAttr, *ir.StringAttr,
		*ir.TypeAttr, *ir.ShapeAttr, *ir.DenseAttr, *ir.AggregateAttr,
		*ir.ArrayAttr, *ir.SymbolRefAttr:
		return true
	default:
		return false
	}
}

func writeIntPayload(buf *Emitter, width uint32, v int64) {
	switch {
	case width <= 8:
		buf.EmitByte(byte(v))
	case width <= 16:
		buf.EmitByte(byte(v))
		buf.EmitByte(byte(v >> 8))
	case width <= 32:
		buf.EmitInt4(uint32(v))
	default:
		buf.EmitInt4(uint32(v))
		buf.EmitInt4(uint32(v >> 32))
	}
}

func writeFloatPayload(buf *Emitter, width uint32, v float64) {
	switch {
	case width <= 32:
		buf.EmitInt4(math.Float32bits(float32(v)))
	default:
		bits := math.Float64bits(v)
		buf.EmitInt4(uint32(bits))
		buf.EmitInt4(uint32(bits >> 32))
	}
}

func elementAlignment(ty ir.Type) uint32 {
	switch t := ty.(type) {
	case *ir.IntegerType:
		return widthAlignment(t.Width)
	case *ir.FloatType:
		return widthAlignment(t.Width)
	default:
		return 1
	}
}

func widthAlignment(width uint32) uint32 {
	switch {
	case width <= 8:
		return 1
	case width <= 16:
		return 2
	case width <= 32:
		return 4
	default:
		return 8
	}
}
