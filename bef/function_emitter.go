package bef

import (
	"github.com/vibeflow/befgen/ir"
)

// functionEmitter lays out one function body (component F in spec.md
// §2/§4.5). Adapted from the original's BEFFunctionEmitter: a dense
// register table over block arguments + op results, a synthetic
// pseudo-kernel that seeds the executor with the function's arguments,
// and one kernel entry per real operation, each 4-byte aligned.
type functionEmitter struct {
	table *entityTable
	index *entityIndex
	opts  Options

	regNumber   map[ir.Value]RegisterNumber
	regType     []TypeIndex
	regUseCount []uint32

	// triggerReg is the synthetic "no-operand trigger" register: one
	// past the last real register, never stored in regNumber. Every
	// zero-operand real kernel is wired as one of its users so the
	// executor can fire it as soon as the pseudo-kernel fires, per
	// spec.md §3.
	triggerReg RegisterNumber

	// kernelIndex is an operation's position within this function's
	// kernel list (pseudo-kernel occupies 0, real ops start at 1 in
	// program order), used to build used-by lists that the executor
	// walks when a register becomes available.
	kernelIndex map[*ir.Operation]uint32
}

// functionResult is one function body's complete wire layout: the
// location offset, register table, kernel-header array, result list,
// and 4-byte-aligned kernel list, all laid out into a single Emitter per
// spec.md §4.5.
type functionResult struct {
	Bytes         *Emitter
	RegisterTypes []TypeIndex
}

// emitFunction builds the full per-function container described in
// spec.md §4.5: a VBR location offset, the register table, a VBR kernel
// count, a header triple per kernel (start offset / operands-before-
// fireable / stream id), the result-register list for the function's
// return operands, and finally the 4-byte-aligned kernel list itself.
// Mirrors BEFFunctionEmitter::EmitFunction in the original converter.
func emitFunction(table *entityTable, index *entityIndex, opts Options, region *ir.Region) *functionResult {
	block := region.Entry()
	fe := &functionEmitter{
		table:       table,
		index:       index,
		opts:        opts,
		regNumber:   make(map[ir.Value]RegisterNumber),
		kernelIndex: make(map[*ir.Operation]uint32),
	}
	fe.buildRegisterTable(block)
	fe.triggerReg = RegisterNumber(len(fe.regNumber))

	analysis := opts.streamsFor(block)

	out := NewEmitter()
	out.EmitVbrInt(uint64(index.regionLocationOffset(region)))
	fe.emitRegisterTable(out)

	numKernels := uint64(1)
	for _, op := range block.Ops {
		if op.Name != ir.ReturnOpName {
			numKernels++
		}
	}
	out.EmitVbrInt(numKernels)

	kernelList := NewEmitter()
	kernelList.EmitAlign(kernelEntryAlignment)

	out.EmitVbrInt(uint64(kernelList.Size()))
	out.EmitVbrInt(0) // the pseudo-kernel has no operands to wait on
	out.EmitVbrInt(uint64(analysis.RootStream()))
	fe.emitPseudoKernel(kernelList, block)

	var returnOp *ir.Operation
	for _, op := range block.Ops {
		if op.Name == ir.ReturnOpName {
			returnOp = op
			continue
		}
		nonStrict := hasNonStrictAttribute(fe.opts, op)
		numOperands := len(op.Operands)
		operandsBeforeFireable := numOperands
		if nonStrict {
			operandsBeforeFireable = minInt(1, numOperands)
		}

		kernelList.EmitAlign(kernelEntryAlignment)
		out.EmitVbrInt(uint64(kernelList.Size()))
		out.EmitVbrInt(uint64(operandsBeforeFireable))
		out.EmitVbrInt(uint64(analysis.StreamOf(op)))

		fe.emitKernel(kernelList, op, nonStrict)
	}

	if returnOp != nil {
		for _, operand := range returnOp.Operands {
			out.EmitVbrInt(uint64(fe.registerOf(operand)))
		}
	}

	out.EmitAlign(kernelEntryAlignment)
	out.EmitEmbedded(kernelList)

	return &functionResult{Bytes: out, RegisterTypes: fe.regType}
}

// hasNonStrictAttribute reports whether op carries the special
// non-strict attribute, without building the full classifiedAttr list —
// emitFunction needs this before it can compute the kernel's header
// triple, which is written ahead of the kernel's own record.
func hasNonStrictAttribute(opts Options, op *ir.Operation) bool {
	for _, na := range op.Attrs {
		if opts.ignoresAttribute(na.Name) {
			continue
		}
		if ClassifySpecialAttribute(na.Name) == SpecialNonStrict {
			return true
		}
	}
	return false
}

// buildRegisterTable assigns a dense register number to every block
// argument then every op result, in program order, and assigns each
// real op a position in the kernel list (pseudo-kernel occupies 0).
func (fe *functionEmitter) buildRegisterTable(block *ir.Block) {
	for _, arg := range block.Args {
		fe.addRegister(arg)
	}
	idx := uint32(1)
	for _, op := range block.Ops {
		if op.Name == ir.ReturnOpName {
			continue
		}
		fe.kernelIndex[op] = idx
		idx++
		for _, res := range op.Results {
			fe.addRegister(res)
		}
	}
}

func (fe *functionEmitter) addRegister(v ir.Value) {
	n := RegisterNumber(len(fe.regNumber))
	fe.regNumber[v] = n
	fe.regType = append(fe.regType, fe.table.typeIndex(v.Type()))
	uses := uint32(0)
	for _, user := range v.Users() {
		if user.Name != ir.ReturnOpName {
			uses++
		}
	}
	fe.regUseCount = append(fe.regUseCount, uses)
}

// emitRegisterTable writes the per-function register table mandated by
// spec.md §3 ("Each register carries a use-count"): a VBR register
// count followed by one VBR use-count per register, in register-number
// order. Mirrors BEFFunctionEmitter::EmitRegisterTable's reg_table
// output; the type-index side channel that method also feeds is the
// separate, genuinely optional RegisterTypes section (fe.regType,
// carried out via functionResult and assembled by moduleEmitter), not
// this table.
func (fe *functionEmitter) emitRegisterTable(out *Emitter) {
	out.EmitVbrInt(uint64(len(fe.regUseCount)))
	for _, count := range fe.regUseCount {
		out.EmitVbrInt(uint64(count))
	}
}

func (fe *functionEmitter) registerOf(v ir.Value) RegisterNumber {
	n, ok := fe.regNumber[v]
	if !ok {
		panic("bef: value has no register assigned — InvariantError, caller bug")
	}
	return n
}

// userKernelIndices returns, in use-list order, the kernel-list position
// of every kernel that consumes v; the return op is not a kernel and is
// left out.
func (fe *functionEmitter) userKernelIndices(v ir.Value) []uint32 {
	users := v.Users()
	out := make([]uint32, 0, len(users))
	for _, op := range users {
		if op.Name == ir.ReturnOpName {
			continue
		}
		idx, ok := fe.kernelIndex[op]
		if !ok {
			panic("bef: user operation not in this function's kernel list — InvariantError")
		}
		out = append(out, idx)
	}
	return out
}

// emitUsedByLists writes, for each result register in order, a VBR
// count followed by that many kernel-list-position entries (also VBR) —
// the executor's fan-out table for deciding which kernels to re-check
// once a register's producer fires.
func (fe *functionEmitter) emitUsedByLists(kl *Emitter, users [][]uint32) {
	for _, list := range users {
		kl.EmitVbrInt(uint64(len(list)))
		for _, idx := range list {
			kl.EmitVbrInt(uint64(idx))
		}
	}
}

// emitPseudoKernel writes the synthetic zero-operand kernel that
// distributes block arguments into the register table and immediately
// fires, per spec.md §3: its results are the synthetic trigger register
// followed by every block argument, so its result count is always
// block.num_arguments + 1. The trigger register's own users are every
// real op in the block with zero operands (the ones that would
// otherwise never become fireable on their own), mirroring
// BEFFunctionEmitter::EmitArgumentsPseudoKernel's ready_kernels list;
// each block argument's users are its own real downstream consumers, as
// for any other register.
func (fe *functionEmitter) emitPseudoKernel(kl *Emitter, block *ir.Block) {
	results := make([]RegisterNumber, 0, len(block.Args)+1)
	users := make([][]uint32, 0, len(block.Args)+1)

	results = append(results, fe.triggerReg)
	var readyKernels []uint32
	for _, op := range block.Ops {
		if op.Name == ir.ReturnOpName {
			continue
		}
		if len(op.Operands) == 0 {
			readyKernels = append(readyKernels, fe.kernelIndex[op])
		}
	}
	users = append(users, readyKernels)

	for _, arg := range block.Args {
		results = append(results, fe.registerOf(arg))
		users = append(users, fe.userKernelIndices(arg))
	}

	kl.EmitInt4(dummyPseudoKernelCode)
	kl.EmitInt4(dummyPseudoKernelLocation)
	kl.EmitInt4(0) // num_operands
	kl.EmitInt4(0) // num_attributes
	kl.EmitInt4(0) // num_functions
	kl.EmitInt4(uint32(len(results)))
	kl.EmitInt4(0) // special_metadata

	for _, r := range results {
		kl.EmitInt4(uint32(r))
	}
	fe.emitUsedByLists(kl, users)
}

// classifiedAttr is one attribute slot's disposition once special names,
// ignored names, and function-reference redirection (mirroring
// entityTable.collectOp exactly, so a kernel's attribute/function counts
// agree with what was pooled during collection) are accounted for.
type classifiedAttr struct {
	nonStrict  bool
	attrOffset AttrOffset
	isAttr     bool
	funcID     FunctionID
	isFunc     bool
}

func (fe *functionEmitter) classifyAttrs(op *ir.Operation) []classifiedAttr {
	var out []classifiedAttr
	for _, na := range op.Attrs {
		if fe.opts.ignoresAttribute(na.Name) {
			continue
		}
		if ClassifySpecialAttribute(na.Name) == SpecialNonStrict {
			out = append(out, classifiedAttr{nonStrict: true})
			continue
		}
		if sym, ok := na.Value.(*ir.SymbolRefAttr); ok && !sym.IsCompilationUnitRef() {
			id, ok := fe.table.functionNamed(sym.RootRef)
			if !ok {
				panic("bef: unresolved function reference reached emission — InvariantError, caller bug")
			}
			out = append(out, classifiedAttr{funcID: id, isFunc: true})
			continue
		}
		if arr, ok := na.Value.(*ir.ArrayAttr); ok && arr.IsSymbolRefArray() {
			for _, elem := range arr.Elements {
				sym := elem.(*ir.SymbolRefAttr)
				id, ok := fe.table.functionNamed(sym.RootRef)
				if !ok {
					panic("bef: unresolved function reference reached emission — InvariantError, caller bug")
				}
				out = append(out, classifiedAttr{funcID: id, isFunc: true})
			}
			continue
		}
		out = append(out, classifiedAttr{attrOffset: fe.index.attrOffset(na.Value), isAttr: true})
	}
	return out
}

// emitKernel writes one real operation's kernel entry: the fixed
// 7-field header spec.md §3 defines for a "Kernel entry" (kernel-id,
// location-offset, num-operands, num-attributes, num-functions,
// num-results, special-metadata-flags — no stream-id or
// operands-before-fireable field; those belong to this function's
// per-kernel header triple in the wrapping container, written by the
// caller before this record starts), then the operand/attribute/
// function/result arrays and result used-by lists, then the debug-info
// offset if and only if this op actually has recorded debug info.
func (fe *functionEmitter) emitKernel(kl *Emitter, op *ir.Operation, nonStrict bool) {
	classified := fe.classifyAttrs(op)

	var attrOffsets []AttrOffset
	var functionIDs []FunctionID
	for _, c := range classified {
		switch {
		case c.nonStrict:
			// already reflected in the nonStrict parameter.
		case c.isAttr:
			attrOffsets = append(attrOffsets, c.attrOffset)
		case c.isFunc:
			functionIDs = append(functionIDs, c.funcID)
		}
	}
	for _, region := range op.Regions {
		functionIDs = append(functionIDs, fe.table.functionID(region))
	}

	specialMetadata := uint32(0)
	if nonStrict {
		specialMetadata |= specialMetadataNonStrict
	}
	debugOffset, hasDebugInfo := fe.index.debugInfoOffset(op)
	if hasDebugInfo {
		specialMetadata |= specialMetadataHasDebugInfo
	}

	results := make([]RegisterNumber, len(op.Results))
	users := make([][]uint32, len(op.Results))
	for i, res := range op.Results {
		results[i] = fe.registerOf(res)
		users[i] = fe.userKernelIndices(res)
	}

	kl.EmitInt4(uint32(fe.table.kernelID(op)))
	kl.EmitInt4(uint32(fe.index.locationOffset(op)))
	kl.EmitInt4(uint32(len(op.Operands)))
	kl.EmitInt4(uint32(len(attrOffsets)))
	kl.EmitInt4(uint32(len(functionIDs)))
	kl.EmitInt4(uint32(len(results)))
	kl.EmitInt4(specialMetadata)

	for _, operand := range op.Operands {
		kl.EmitInt4(uint32(fe.registerOf(operand)))
	}
	for _, a := range attrOffsets {
		kl.EmitInt4(uint32(a))
	}
	for _, f := range functionIDs {
		kl.EmitInt4(uint32(f))
	}
	for _, r := range results {
		kl.EmitInt4(uint32(r))
	}
	fe.emitUsedByLists(kl, users)
	if hasDebugInfo {
		kl.EmitInt4(uint32(debugOffset))
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
