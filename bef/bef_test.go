package bef

import (
	"testing"

	"github.com/vibeflow/befgen/compunit"
	"github.com/vibeflow/befgen/ir"
)

func mustConvert(t *testing.T, module *ir.Module, opts Options) []byte {
	t.Helper()
	artifact, diags, ok := Convert(module, opts)
	if !ok {
		t.Fatalf("Convert failed: %v", diags)
	}
	if len(artifact) < 3 || artifact[0] != magicByte1 || artifact[1] != magicByte2 {
		t.Fatalf("artifact missing magic prefix: %x", artifact[:min3len(len(artifact), 8)])
	}
	return artifact
}

func min3len(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// emptyAsyncFunction builds a function with no arguments, no results,
// and a body consisting only of the terminator.
func emptyAsyncFunction(types *ir.TypeTable) *ir.Module {
	m := ir.NewModule()
	f := ir.NewFunc("empty", nil, nil, ir.FuncAsync)
	block := f.Body.Entry()
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, nil, nil, ir.UnknownLoc{}))
	m.AddFunc(f)
	return m
}

func TestConvertEmptyAsyncFunction(t *testing.T) {
	artifact := mustConvert(t, emptyAsyncFunction(ir.NewTypeTable()), Options{})
	if len(artifact) == 0 {
		t.Fatal("expected non-empty artifact")
	}
}

// identityFunction returns its single i32 argument unchanged.
func identityFunction(types *ir.TypeTable) *ir.Module {
	m := ir.NewModule()
	i32 := types.Int(32)
	f := ir.NewFunc("identity", []ir.Type{i32}, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	arg := block.AddArgument(i32)
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{arg}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)
	return m
}

func TestConvertIdentityFunction(t *testing.T) {
	mustConvert(t, identityFunction(ir.NewTypeTable()), Options{})
}

// twoOperandAdd exercises the common case: one kernel consuming two
// block arguments and producing a result that's returned.
func twoOperandAdd(types *ir.TypeTable) *ir.Module {
	m := ir.NewModule()
	i32 := types.Int(32)
	f := ir.NewFunc("add", []ir.Type{i32, i32}, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	lhs := block.AddArgument(i32)
	rhs := block.AddArgument(i32)
	loc := ir.FileLineColLoc{Filename: "add.mlir", Line: 3, Column: 5}
	add := block.AddOperation(ir.NewOperation("test.add", []ir.Value{lhs, rhs}, []ir.Type{i32}, loc))
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{add.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)
	return m
}

func TestConvertTwoOperandAdd(t *testing.T) {
	mustConvert(t, twoOperandAdd(ir.NewTypeTable()), Options{})
}

func TestConvertTwoOperandAddDisableOptionalSections(t *testing.T) {
	mustConvert(t, twoOperandAdd(ir.NewTypeTable()), Options{DisableOptionalSections: true})
}

// nonStrictIfKernel exercises the operands-before-fireable clamp: a
// kernel marked non_strict should fire as soon as one operand is ready,
// even though it has two.
func nonStrictIfKernel(types *ir.TypeTable) *ir.Module {
	m := ir.NewModule()
	i1 := types.Bool()
	i32 := types.Int(32)
	f := ir.NewFunc("maybe", []ir.Type{i1, i32, i32}, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	cond := block.AddArgument(i1)
	a := block.AddArgument(i32)
	b := block.AddArgument(i32)
	ifOp := ir.NewOperation("test.if", []ir.Value{cond, a, b}, []ir.Type{i32}, ir.UnknownLoc{})
	ifOp.AddAttr("non_strict", &ir.BoolAttr{Value: true})
	block.AddOperation(ifOp)
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{ifOp.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)
	return m
}

func TestConvertNonStrictIfKernel(t *testing.T) {
	mustConvert(t, nonStrictIfKernel(ir.NewTypeTable()), Options{})
}

// twoAttachedRegionsKernel exercises a kernel with two attached regions
// (then/else bodies), each of which must be collected and emitted as
// its own anonymous function.
func twoAttachedRegionsKernel(types *ir.TypeTable) *ir.Module {
	m := ir.NewModule()
	i32 := types.Int(32)
	f := ir.NewFunc("branch", []ir.Type{i32}, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	arg := block.AddArgument(i32)
	ifOp := ir.NewOperation("test.if", []ir.Value{arg}, []ir.Type{i32}, ir.UnknownLoc{})
	block.AddOperation(ifOp)

	then := ifOp.AddRegion()
	thenArg := then.Entry().AddArgument(i32)
	then.Entry().AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{thenArg}, nil, ir.UnknownLoc{}))

	els := ifOp.AddRegion()
	elseArg := els.Entry().AddArgument(i32)
	els.Entry().AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{elseArg}, nil, ir.UnknownLoc{}))

	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{ifOp.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)
	return m
}

func TestConvertTwoAttachedRegionsKernel(t *testing.T) {
	mustConvert(t, twoAttachedRegionsKernel(ir.NewTypeTable()), Options{})
}

// undefinedSymbolReference exercises the ReferenceError path: a kernel
// names a function that was never declared.
func undefinedSymbolReference(types *ir.TypeTable) *ir.Module {
	m := ir.NewModule()
	i32 := types.Int(32)
	f := ir.NewFunc("caller", nil, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	call := ir.NewOperation("test.call", nil, []ir.Type{i32}, ir.UnknownLoc{})
	call.AddAttr("callee", &ir.SymbolRefAttr{RootRef: "nonexistent"})
	block.AddOperation(call)
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{call.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)
	return m
}

func TestConvertUndefinedSymbolReferenceFails(t *testing.T) {
	_, diags, ok := Convert(undefinedSymbolReference(ir.NewTypeTable()), Options{})
	if ok {
		t.Fatal("expected Convert to fail on an undefined symbol reference")
	}
	if len(diags) == 0 {
		t.Fatal("expected at least one diagnostic")
	}
	found := false
	for _, d := range diags {
		if d.Category.String() == "reference" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a reference-category diagnostic, got %v", diags)
	}
}

func TestConvertMultiBlockRegionFails(t *testing.T) {
	m := ir.NewModule()
	f := ir.NewFunc("bad", nil, nil, ir.FuncAsync)
	f.Body.AddExtraBlock()
	f.Body.Entry().AddOperation(ir.NewOperation(ir.ReturnOpName, nil, nil, ir.UnknownLoc{}))
	m.AddFunc(f)

	_, diags, ok := Convert(m, Options{})
	if ok {
		t.Fatal("expected Convert to fail on a multi-block region")
	}
	if len(diags) == 0 || diags[0].Category.String() != "structural" {
		t.Fatalf("expected a structural diagnostic, got %v", diags)
	}
}

func TestConvertSyncFunctionReturningArgumentFails(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Int(32)
	m := ir.NewModule()
	f := ir.NewFunc("sync_identity", []ir.Type{i32}, []ir.Type{i32}, ir.FuncSync)
	block := f.Body.Entry()
	arg := block.AddArgument(i32)
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{arg}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)

	_, diags, ok := Convert(m, Options{})
	if ok {
		t.Fatal("expected Convert to fail: sync function returning a block argument")
	}
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic")
	}
}

func TestConvertSyncFunctionDuplicateReturnFails(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Int(32)
	m := ir.NewModule()
	f := ir.NewFunc("sync_dup", nil, []ir.Type{i32, i32}, ir.FuncSync)
	block := f.Body.Entry()
	op := block.AddOperation(ir.NewOperation("test.const", nil, []ir.Type{i32}, ir.UnknownLoc{}))
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{op.Result(0), op.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)

	_, _, ok := Convert(m, Options{})
	if ok {
		t.Fatal("expected Convert to fail: sync function duplicating a return operand")
	}
}

func TestConvertIgnoresCostAttribute(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Int(32)
	m := ir.NewModule()
	f := ir.NewFunc("costed", nil, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	op := block.AddOperation(ir.NewOperation("test.const", nil, []ir.Type{i32}, ir.UnknownLoc{}))
	op.AddAttr("cost", &ir.IntegerAttr{Type: types.Int(32), Value: 42})
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{op.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)

	mustConvert(t, m, Options{})
}

func TestConvertNativeFunction(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Int(32)
	m := ir.NewModule()
	m.AddFunc(ir.NewFunc("host_fn", []ir.Type{i32}, []ir.Type{i32}, ir.FuncNative))
	mustConvert(t, m, Options{})
}

func TestConvertCompilationUnitSymbolRef(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Int(32)
	m := ir.NewModule()
	f := ir.NewFunc("uses_unit", nil, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	op := block.AddOperation(ir.NewOperation("test.call_unit", nil, []ir.Type{i32}, ir.UnknownLoc{}))
	op.AddAttr("unit", &ir.SymbolRefAttr{RootRef: "sub_module", NestedRefs: []string{"main"}})
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{op.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)

	registry := compunit.NewStaticRegistry()
	registry.Register("sub_module", []byte("opaque-bytes"))

	mustConvert(t, m, Options{CompilationUnits: registry})
}

func TestConvertDenseAttribute(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Int(32)
	m := ir.NewModule()
	f := ir.NewFunc("has_dense", nil, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	op := block.AddOperation(ir.NewOperation("test.const", nil, []ir.Type{i32}, ir.UnknownLoc{}))
	op.AddAttr("value", &ir.DenseAttr{ElemType: i32, Shape: []int64{2}, Bytes: []byte{1, 0, 0, 0, 2, 0, 0, 0}})
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{op.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)

	mustConvert(t, m, Options{})
}

func TestConvertAggregateAttribute(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Int(32)
	m := ir.NewModule()
	f := ir.NewFunc("has_aggregate", nil, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	op := block.AddOperation(ir.NewOperation("test.const", nil, []ir.Type{i32}, ir.UnknownLoc{}))
	op.AddAttr("value", &ir.AggregateAttr{Elements: []ir.Attribute{
		&ir.IntegerAttr{Type: types.Int(32), Value: 1},
		&ir.StringAttr{Value: "hello"},
	}})
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{op.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)

	mustConvert(t, m, Options{})
}

// --- byte-level decode helpers, used only by the test below to walk the
// artifact's own wire format rather than trusting the encoder's internal
// state. Mirrors the VBR/section-framing rules of emitter.go/section.go
// in reverse.

type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) vbr() uint64 {
	var v uint64
	for {
		b := c.buf[c.pos]
		c.pos++
		v = (v << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			break
		}
	}
	return v
}

func (c *cursor) int4() uint32 {
	v := uint32(c.buf[c.pos]) | uint32(c.buf[c.pos+1])<<8 | uint32(c.buf[c.pos+2])<<16 | uint32(c.buf[c.pos+3])<<24
	c.pos += 4
	return v
}

func (c *cursor) alignTo(n int) {
	for c.pos%n != 0 {
		c.pos++
	}
}

// readSection decodes one EmitSection-framed entry starting at pos,
// returning its payload and the position immediately after it.
func readSection(buf []byte, pos int) (payload []byte, next int) {
	pos++ // section id byte
	c := &cursor{buf: buf, pos: pos}
	lenShifted := c.vbr()
	payloadLen := int(lenShifted >> 1)
	if lenShifted&1 != 0 {
		align := int(buf[c.pos])
		c.pos++
		c.alignTo(align)
	}
	payload = buf[c.pos : c.pos+payloadLen]
	return payload, c.pos + payloadLen
}

// functionsSectionPayload walks past the eight sections emitted before
// SectionFunctions (spec.md §4.6's fixed order) and returns its payload.
func functionsSectionPayload(artifact []byte) []byte {
	pos := 3 // magic1, magic2, version
	for i := 0; i < 8; i++ {
		_, next := readSection(artifact, pos)
		pos = next
	}
	payload, _ := readSection(artifact, pos)
	return payload
}

// pseudoKernelFixture builds a function with two unused block arguments
// and one zero-operand kernel ("test.const"), whose result is returned —
// set up so the pseudo-kernel's result count and the trigger register's
// used-by list can both be checked against the raw bytes.
func pseudoKernelFixture(types *ir.TypeTable) *ir.Module {
	m := ir.NewModule()
	i32 := types.Int(32)
	f := ir.NewFunc("mix", []ir.Type{i32, i32}, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	block.AddArgument(i32)
	block.AddArgument(i32)
	constOp := block.AddOperation(ir.NewOperation("test.const", nil, []ir.Type{i32}, ir.UnknownLoc{}))
	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{constOp.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)
	return m
}

// TestPseudoKernelTriggerRegisterWiring decodes the raw Functions-section
// bytes for pseudoKernelFixture and checks the two properties spec.md §8
// calls out for the pseudo-kernel: its result count is
// block.num_arguments + 1, and the synthetic trigger register's used-by
// list names the kernel-list index of the zero-operand kernel that
// would otherwise never become fireable.
func TestPseudoKernelTriggerRegisterWiring(t *testing.T) {
	artifact := mustConvert(t, pseudoKernelFixture(ir.NewTypeTable()), Options{})
	payload := functionsSectionPayload(artifact)

	c := &cursor{buf: payload}
	c.vbr() // function location offset

	numRegisters := int(c.vbr()) // register table count
	if numRegisters != 3 {
		t.Fatalf("expected 3 registers (2 args + 1 const result), got %d", numRegisters)
	}
	for i := 0; i < numRegisters; i++ {
		c.vbr() // per-register use-count
	}

	numKernels := int(c.vbr()) // pseudo-kernel + one real kernel
	if numKernels != 2 {
		t.Fatalf("expected 2 kernel-header entries, got %d", numKernels)
	}
	for i := 0; i < numKernels; i++ {
		c.vbr() // start offset
		c.vbr() // operands-before-fireable
		c.vbr() // stream id
	}

	resultReg := c.vbr() // the function's single return operand register
	if resultReg != 2 {
		t.Fatalf("expected return operand to be register 2, got %d", resultReg)
	}

	c.alignTo(int(kernelEntryAlignment))

	c.int4() // kernel-id (dummy pseudo-kernel code)
	c.int4() // location-offset (dummy pseudo-kernel location)
	c.int4() // num-operands
	c.int4() // num-attributes
	c.int4() // num-functions
	numResults := int(c.int4())
	c.int4() // special-metadata-flags

	if numResults != 3 {
		t.Fatalf("pseudo-kernel result count = %d, want block.num_arguments+1 = 3", numResults)
	}

	var resultRegs []uint32
	for i := 0; i < numResults; i++ {
		resultRegs = append(resultRegs, c.int4())
	}
	if resultRegs[0] != 3 {
		t.Fatalf("trigger register = %d, want one past the last real register (3)", resultRegs[0])
	}

	triggerUserCount := int(c.vbr())
	if triggerUserCount != 1 {
		t.Fatalf("trigger register used-by count = %d, want 1 (the zero-operand test.const kernel)", triggerUserCount)
	}
	triggerUser := c.vbr()
	if triggerUser != 1 {
		t.Fatalf("trigger register's user kernel-index = %d, want 1 (the only real kernel)", triggerUser)
	}
}

func TestConvertCrossRegionOperandReferenceFails(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Int(32)
	m := ir.NewModule()
	f := ir.NewFunc("leak", []ir.Type{i32}, []ir.Type{i32}, ir.FuncAsync)
	block := f.Body.Entry()
	outer := block.AddArgument(i32)
	ifOp := ir.NewOperation("test.if", []ir.Value{outer}, []ir.Type{i32}, ir.UnknownLoc{})
	block.AddOperation(ifOp)

	then := ifOp.AddRegion()
	// Illegally reference the outer function's argument directly
	// inside the nested region's op instead of through a region
	// argument.
	then.Entry().AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{outer}, nil, ir.UnknownLoc{}))

	els := ifOp.AddRegion()
	elseArg := els.Entry().AddArgument(i32)
	els.Entry().AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{elseArg}, nil, ir.UnknownLoc{}))

	block.AddOperation(ir.NewOperation(ir.ReturnOpName, []ir.Value{ifOp.Result(0)}, nil, ir.UnknownLoc{}))
	m.AddFunc(f)

	// The nested region's terminator reads a value defined in the
	// enclosing region; collection rejects that with a Reference-category
	// diagnostic, the same as it does for a kernel operand.
	_, diags, ok := Convert(m, Options{})
	if ok {
		t.Fatal("expected Convert to fail on a cross-region return operand")
	}
	if len(diags) == 0 || diags[0].Category.String() != "reference" {
		t.Fatalf("expected a reference diagnostic, got %v", diags)
	}
}
