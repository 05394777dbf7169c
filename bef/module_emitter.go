package bef

import (
	"github.com/vibeflow/befgen/diag"
	"github.com/vibeflow/befgen/ir"
)

// Type-section tags (see moduleEmitter.emitTypes) and the function-index
// flag bit, local to this file's wire layout decisions.
const (
	typeTagInteger byte = iota
	typeTagFloat
	typeTagBool
	typeTagOpaque
)

const functionIndexHasName byte = 0x80

// noAttributeType is the AttributeTypes-section sentinel for an
// attribute kind with no single scalar width (strings, shapes,
// aggregates, ...).
const noAttributeType uint32 = 1<<32 - 1

// moduleEmitter orchestrates the three-pass conversion (component M in
// spec.md §2): it drives entityTable's collection, lays out every pool
// in the fixed section order of spec.md §4.6, and assembles the final
// framed artifact. Adapted from the original's BEFModuleEmitter /
// ConvertMLIRToBEF top-level driver, and from the teacher's
// CompilerState orchestration style (compiler_state.go) of running named
// phases in sequence over one mutable piece of state.
type moduleEmitter struct {
	table *entityTable
	index *entityIndex
	opts  Options

	filenameOffsets []FilenameOffset
}

// Convert runs the full pipeline: collect entities, lay out pools,
// emit every function body, frame the sections, and return the
// resulting artifact. A false ok return means at least one fatal
// diagnostic was reported; diags holds every diagnostic collected
// regardless of outcome, per spec.md §7's "keep walking, report
// everything" discipline.
func Convert(module *ir.Module, opts Options) (artifact []byte, diags []diag.Diagnostic, ok bool) {
	sink := diag.NewCollector(false)
	table := newEntityTable(opts, sink)
	if !table.collect(module) {
		return nil, sink.All(), false
	}

	me := &moduleEmitter{table: table, index: newEntityIndex(), opts: opts}
	return me.emit(), sink.All(), true
}

func (me *moduleEmitter) emit() []byte {
	out := NewEmitter()
	out.EmitByte(magicByte1)
	out.EmitByte(magicByte2)
	out.EmitByte(versionByte)

	out.EmitSectionFrom(SectionLocationFilenames, me.emitLocationFilenames())
	out.EmitSectionFrom(SectionLocationPositions, me.emitLocationPositions())
	out.EmitSectionFrom(SectionDebugInfo, me.emitDebugInfo())
	out.EmitSectionFrom(SectionStrings, me.emitStrings())
	out.EmitSectionFrom(SectionAttributes, me.emitAttributes())
	out.EmitSectionFrom(SectionKernels, me.emitKernelNames())
	out.EmitSectionFrom(SectionTypes, me.emitTypes())

	functionsPayload, registerTypes := me.buildFunctions()
	out.EmitSectionFrom(SectionFunctionIndex, me.emitFunctionIndexSection())
	out.EmitSectionFrom(SectionFunctions, functionsPayload)

	if !me.opts.DisableOptionalSections {
		out.EmitSectionFrom(SectionAttributeTypes, me.emitAttributeTypes())
		out.EmitSectionFrom(SectionAttributeNames, me.emitAttributeNames())
		out.EmitSectionFrom(SectionRegisterTypes, me.emitRegisterTypes(registerTypes))
	}

	out.EmitAlign(8)
	return out.TakeResult()
}

func (me *moduleEmitter) emitLocationFilenames() *Emitter {
	buf := NewEmitter()
	me.filenameOffsets = make([]FilenameOffset, len(me.table.locationFilenames))
	for i, name := range me.table.locationFilenames {
		me.filenameOffsets[i] = FilenameOffset(buf.Size())
		buf.EmitBytes([]byte(name))
		buf.EmitByte(0)
	}
	return buf
}

func (me *moduleEmitter) emitLocationPositions() *Emitter {
	buf := NewEmitter()
	for _, op := range me.table.opsOrder {
		tuple := me.table.locationPositions[op]
		offset := LocationOffset(buf.Size())
		buf.EmitInt4(uint32(me.filenameOffsets[tuple.filenameIdx]))
		buf.EmitVbrInt(uint64(tuple.line))
		buf.EmitVbrInt(uint64(tuple.col))
		me.index.addLocationOffset(op, offset)
	}
	// Every function body also gets its own location-position entry
	// (spec.md §4.5's function-level location-offset field), recorded
	// separately from the per-op entries above since a region isn't an
	// *ir.Operation in this IR.
	for _, region := range me.table.regionsWithLoc {
		tuple := me.table.regionLoc[region]
		offset := LocationOffset(buf.Size())
		buf.EmitInt4(uint32(me.filenameOffsets[tuple.filenameIdx]))
		buf.EmitVbrInt(uint64(tuple.line))
		buf.EmitVbrInt(uint64(tuple.col))
		me.index.addRegionLocationOffset(region, offset)
	}
	return buf
}

func (me *moduleEmitter) emitDebugInfo() *Emitter {
	buf := NewEmitter()
	for _, op := range me.table.opsOrder {
		name, ok := me.table.debugInfo[op]
		if !ok {
			continue
		}
		offset := DebugInfoOffset(buf.Size())
		buf.EmitBytes([]byte(name))
		buf.EmitByte(0)
		me.index.addDebugInfoOffset(op, offset)
	}
	return buf
}

func (me *moduleEmitter) emitStrings() *Emitter {
	buf := NewEmitter()
	for _, s := range me.table.sortedStrings() {
		offset := StringOffset(buf.Size())
		buf.EmitBytes([]byte(s))
		buf.EmitByte(0)
		me.index.addString(s, offset)
	}
	return buf
}

func (me *moduleEmitter) emitAttributes() *Emitter {
	enc := newAttrEncoder(me.table, me.opts.compilationUnits())
	for _, attr := range me.table.attributes {
		offset := enc.encode(attr)
		me.index.addAttrOffset(attr, offset)
	}
	return enc.pool
}

func (me *moduleEmitter) emitKernelNames() *Emitter {
	buf := NewEmitter()
	for _, name := range me.table.kernels {
		buf.EmitInt4(uint32(me.index.stringOffset(name)))
	}
	return buf
}

func (me *moduleEmitter) emitTypes() *Emitter {
	buf := NewEmitter()
	for _, ty := range me.table.types {
		switch t := ty.(type) {
		case *ir.IntegerType:
			buf.EmitByte(typeTagInteger)
			buf.EmitVbrInt(uint64(t.Width))
		case *ir.FloatType:
			buf.EmitByte(typeTagFloat)
			buf.EmitVbrInt(uint64(t.Width))
		case *ir.BoolType:
			buf.EmitByte(typeTagBool)
		case *ir.OpaqueType:
			buf.EmitByte(typeTagOpaque)
			buf.EmitInt4(uint32(me.index.stringOffset(t.Name)))
		default:
			panic("bef: unsupported type reached emission — InvariantError")
		}
	}
	return buf
}

// buildFunctions runs the function emitter over every collected
// function body, in entityTable.functions order (top-level functions
// interleaved with the anonymous region-bodies discovered while walking
// them), and returns the assembled Functions-section payload along with
// every function's register-type list concatenated for the optional
// RegisterTypes section. index.funcIndex is populated as a side effect,
// ready for emitFunctionIndexSection.
func (me *moduleEmitter) buildFunctions() (*Emitter, []TypeIndex) {
	functions := NewEmitter()
	var allRegisterTypes []TypeIndex
	for _, entry := range me.table.functions {
		if entry.Region == nil {
			me.index.addFunction(entry.Name, 0, entry.Inputs, entry.Results, entry.Kind)
			continue
		}
		functions.EmitAlign(kernelEntryAlignment)
		bodyOffset := FunctionOffset(functions.Size())
		fr := emitFunction(me.table, me.index, me.opts, entry.Region)
		functions.EmitEmbedded(fr.Bytes)
		me.index.addFunction(entry.Name, bodyOffset, entry.Inputs, entry.Results, entry.Kind)
		allRegisterTypes = append(allRegisterTypes, fr.RegisterTypes...)
	}
	return functions, allRegisterTypes
}

func (me *moduleEmitter) emitFunctionIndexSection() *Emitter {
	buf := NewEmitter()
	for _, entry := range me.index.funcIndex {
		flags := byte(entry.kind)
		if entry.hasName {
			flags |= functionIndexHasName
		}
		buf.EmitByte(flags)
		buf.EmitInt4(uint32(entry.nameOffset))
		buf.EmitInt4(uint32(entry.bodyOffset))
		buf.EmitVbrInt(uint64(len(entry.inputs)))
		for _, ty := range entry.inputs {
			buf.EmitVbrInt(uint64(me.table.typeIndex(ty)))
		}
		buf.EmitVbrInt(uint64(len(entry.results)))
		for _, ty := range entry.results {
			buf.EmitVbrInt(uint64(me.table.typeIndex(ty)))
		}
	}
	return buf
}

func (me *moduleEmitter) emitAttributeTypes() *Emitter {
	buf := NewEmitter()
	for _, attr := range me.table.attributes {
		switch a := attr.(type) {
		case *ir.IntegerAttr:
			buf.EmitInt4(uint32(me.table.typeIndex(a.Type)))
		case *ir.FloatAttr:
			buf.EmitInt4(uint32(me.table.typeIndex(a.Type)))
		default:
			buf.EmitInt4(noAttributeType)
		}
	}
	return buf
}

func (me *moduleEmitter) emitAttributeNames() *Emitter {
	buf := NewEmitter()
	for _, attr := range me.table.attributes {
		name := me.table.attributeNameOf(attr)
		buf.EmitInt4(uint32(me.index.stringOffset(name)))
	}
	return buf
}

func (me *moduleEmitter) emitRegisterTypes(regTypes []TypeIndex) *Emitter {
	buf := NewEmitter()
	for _, t := range regTypes {
		buf.EmitInt4(uint32(t))
	}
	return buf
}
