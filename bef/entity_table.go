package bef

import (
	"fmt"
	"sort"

	"github.com/vibeflow/befgen/diag"
	"github.com/vibeflow/befgen/internal/ident"
	"github.com/vibeflow/befgen/ir"
)

// entityTable is the first-pass collector (component T in spec.md §2):
// a single pre-order walk that records, with deterministic iteration
// order, every entity any later pass needs an offset or index for.
// Adapted from the original's EntityTable struct (mlir_to_bef.cc):
// llvm::SetVector<Attribute> becomes an explicit slice + seen-set (Go
// maps don't preserve insertion order, so where the original relied on
// SetVector/StringMap ordering we carry an explicit ordered slice
// alongside the lookup map — see spec.md §9's open question on this).
type entityTable struct {
	opts Options
	sink diag.Sink

	// strings is every byte-string that needs a string-pool entry.
	// Final order is lexicographic at emit time (spec.md §3), so only
	// membership is tracked here.
	strings map[string]bool

	// kernels: first-seen order, the "kernel id" is the index.
	kernels   []string
	kernelIDs map[string]KernelID

	// attributes: first-seen order; Key() dedup.
	attributes    []ir.Attribute
	attributeIdx  map[string]int
	attributeName map[string]string // Key() -> first name seen under

	// functions: walk order.
	functions      []functionEntry
	regionFuncID   map[*ir.Region]FunctionID
	namedFuncID    map[string]FunctionID

	// regionLoc/regionsWithLoc record each function body's own location
	// tuple (spec.md §4.5's function-level location-offset field),
	// keyed by the region the same way locationPositions keys per-op
	// tuples by *ir.Operation — see addRegionLoc.
	regionLoc      map[*ir.Region]locationTuple
	regionsWithLoc []*ir.Region

	// types: append order, deduped by identity.
	types   []ir.Type
	typeIdx map[ir.Type]TypeIndex

	// location filenames: first-seen order, NUL-terminated separately
	// from the main string pool.
	locationFilenames []string
	filenameIdx       map[string]int

	// per-operation side tables.
	locationPositions map[*ir.Operation]locationTuple
	debugInfo         map[*ir.Operation]string

	// opsOrder is every collected operation in collection order (program
	// order, depth-first through nested kernel regions) — module_emitter
	// walks this instead of iterating the per-operation maps above
	// directly, since Go map iteration order is randomized and the
	// LocationPositions/DebugInfo sections must come out deterministic.
	opsOrder []*ir.Operation

	deferredSymbolRefs []deferredSymbolRef

	failed bool
}

type functionEntry struct {
	Name   string
	Inputs []ir.Type
	Results []ir.Type
	Kind   ir.FuncKind
	Region *ir.Region // nil iff native
}

type locationTuple struct {
	filenameIdx int
	line, col   uint32
}

type deferredSymbolRef struct {
	ref *ir.SymbolRefAttr
	loc diag.Location
}

func newEntityTable(opts Options, sink diag.Sink) *entityTable {
	return &entityTable{
		opts:              opts,
		sink:              sink,
		strings:           make(map[string]bool),
		kernelIDs:         make(map[string]KernelID),
		attributeIdx:      make(map[string]int),
		attributeName:     make(map[string]string),
		regionFuncID:      make(map[*ir.Region]FunctionID),
		namedFuncID:       make(map[string]FunctionID),
		regionLoc:         make(map[*ir.Region]locationTuple),
		typeIdx:           make(map[ir.Type]TypeIndex),
		filenameIdx:       make(map[string]int),
		locationPositions: make(map[*ir.Operation]locationTuple),
		debugInfo:         make(map[*ir.Operation]string),
	}
}

func (t *entityTable) fail(cat diag.Category, loc diag.Location, format string, args ...interface{}) {
	t.failed = true
	if c, ok := t.sink.(*diag.Collector); ok {
		c.Reportf(cat, true, loc, format, args...)
		return
	}
	t.sink.Report(diag.Diagnostic{Category: cat, Fatal: true, Message: fmt.Sprintf(format, args...), Loc: loc})
}

func (t *entityTable) addString(s string) { t.strings[s] = true }

// addType adds an IR type, deduping by identity and recording its
// printed name in the string pool — mirrors EntityTable::AddType.
func (t *entityTable) addType(ty ir.Type) TypeIndex {
	if idx, ok := t.typeIdx[ty]; ok {
		return idx
	}
	idx := TypeIndex(len(t.types))
	t.types = append(t.types, ty)
	t.typeIdx[ty] = idx
	t.addString(ty.String())
	return idx
}

func (t *entityTable) typeIndex(ty ir.Type) TypeIndex {
	idx, ok := t.typeIdx[ty]
	if !ok {
		panic("bef: unregistered type — InvariantError, caller bug")
	}
	return idx
}

func (t *entityTable) addKernel(op *ir.Operation) {
	if _, ok := t.kernelIDs[op.Name]; ok {
		return
	}
	id := KernelID(len(t.kernels))
	t.kernelIDs[op.Name] = id
	t.kernels = append(t.kernels, op.Name)
	t.addString(op.Name)
}

func (t *entityTable) kernelID(op *ir.Operation) KernelID {
	id, ok := t.kernelIDs[op.Name]
	if !ok {
		panic("bef: unknown kernel — InvariantError, caller bug")
	}
	return id
}

func (t *entityTable) addAttribute(name string, attr ir.Attribute) AttrOffset {
	key := attr.Key()
	if idx, ok := t.attributeIdx[key]; ok {
		return AttrOffset(idx)
	}
	idx := len(t.attributes)
	t.attributeIdx[key] = idx
	t.attributes = append(t.attributes, attr)
	if _, ok := t.attributeName[key]; !ok {
		t.attributeName[key] = name
	}
	return AttrOffset(idx)
}

// attributeNameOf returns the first attribute-name string attr was seen
// under, for the optional AttributeNames section — an attribute value
// can be pooled once but attached under different names at different use
// sites that share its value, so "first name" is the only stable choice.
func (t *entityTable) attributeNameOf(attr ir.Attribute) string {
	return t.attributeName[attr.Key()]
}

// addRequiredAttributeTypes registers every ir.Type an attribute's own
// *encoding* depends on looking up by index — unlike addAttributeType
// below, this runs unconditionally: DisableOptionalSections only skips
// the AttributeTypes/AttributeNames/RegisterTypes debug sections, it
// must never starve the core Attributes section of a type index its
// encoder needs (bef.attrEncoder.encodeInto panics otherwise).
func (t *entityTable) addRequiredAttributeTypes(attr ir.Attribute) {
	switch a := attr.(type) {
	case *ir.DenseAttr:
		t.addType(a.ElemType)
	case *ir.TypeAttr:
		t.addType(a.Value)
	case *ir.ArrayAttr:
		for _, e := range a.Elements {
			t.addRequiredAttributeTypes(e)
		}
	case *ir.AggregateAttr:
		for _, e := range a.Elements {
			t.addRequiredAttributeTypes(e)
		}
	}
}

// addAttributeType recursively registers the types referenced by an
// attribute's own type tag (int/float width, or nested array elements),
// for the optional AttributeTypes debug section only. Mirrors
// EntityTable::AddAttributeType.
func (t *entityTable) addAttributeType(attr ir.Attribute) {
	switch a := attr.(type) {
	case *ir.IntegerAttr:
		t.addType(a.Type)
	case *ir.FloatAttr:
		t.addType(a.Type)
	case *ir.ArrayAttr:
		for _, e := range a.Elements {
			t.addAttributeType(e)
		}
	case *ir.AggregateAttr:
		for _, e := range a.Elements {
			t.addAttributeType(e)
		}
	}
}

func (t *entityTable) addNativeFunction(f *ir.Func) {
	for _, ty := range f.Inputs {
		t.addType(ty)
	}
	for _, ty := range f.Results {
		t.addType(ty)
	}
	t.addString(f.Name)
	t.namedFuncID[f.Name] = FunctionID(len(t.functions))
	t.functions = append(t.functions, functionEntry{Name: f.Name, Inputs: f.Inputs, Results: f.Results, Kind: ir.FuncNative})
}

// addFunction registers a non-native function body region. Returns
// false (and reports a StructuralError) if region has more than one
// block — the single Non-goal this module enforces at runtime rather
// than by construction, per spec.md §4.3 step 4.
func (t *entityTable) addFunction(region *ir.Region, name string, kind ir.FuncKind, loc diag.Location) bool {
	if len(region.Blocks) != 1 {
		t.fail(diag.Structural, loc, "multi-block regions cannot be emitted to BEF files")
		return false
	}
	block := region.Entry()
	inputs := make([]ir.Type, len(block.Args))
	for i, a := range block.Args {
		inputs[i] = a.Typ
		t.addType(a.Typ)
	}

	results, ok := regionResultTypes(region)
	if !ok {
		t.fail(diag.Structural, loc, "function body must end with a %s terminator", ir.ReturnOpName)
		return false
	}
	for _, operand := range block.Terminator().Operands {
		if operand.Region() != region {
			t.fail(diag.Reference, loc, "BEF executor only supports references to kernels within the current region")
			return false
		}
	}

	if name != "" {
		t.addString(name)
		t.namedFuncID[name] = FunctionID(len(t.functions))
	}
	t.regionFuncID[region] = FunctionID(len(t.functions))
	t.functions = append(t.functions, functionEntry{Name: name, Inputs: inputs, Results: results, Kind: kind, Region: region})
	t.addRegionLoc(region, loc)
	return true
}

// addRegionLoc records the location-tuple a function body's own
// location-offset field (spec.md §4.5) will point at. For a nested
// kernel region (an "if" kernel's then/else bodies) loc is the owning
// kernel's real location, forwarded in by collectRegionBody. Top-level
// functions have no location in this IR's simplified ir.Func (it carries
// no source position the way mlir::FuncOp does), so they get the same
// zero-value Location sentinel every other "unresolvable location" case
// in this package falls back to — see DESIGN.md.
func (t *entityTable) addRegionLoc(region *ir.Region, loc diag.Location) {
	idx, ok := t.filenameIdx[loc.File]
	if !ok {
		idx = len(t.locationFilenames)
		t.filenameIdx[loc.File] = idx
		t.locationFilenames = append(t.locationFilenames, loc.File)
	}
	t.regionLoc[region] = locationTuple{filenameIdx: idx, line: loc.Line, col: loc.Column}
	t.regionsWithLoc = append(t.regionsWithLoc, region)
}

func regionResultTypes(region *ir.Region) ([]ir.Type, bool) {
	block := region.Entry()
	term := block.Terminator()
	if term == nil || term.Name != ir.ReturnOpName {
		return nil, false
	}
	results := make([]ir.Type, len(term.Operands))
	for i, operand := range term.Operands {
		results[i] = operand.Type()
	}
	return results, true
}

func (t *entityTable) functionID(region *ir.Region) FunctionID {
	id, ok := t.regionFuncID[region]
	if !ok {
		panic("bef: region not added to entity table — InvariantError, caller bug")
	}
	return id
}

func (t *entityTable) functionNamed(name string) (FunctionID, bool) {
	id, ok := t.namedFuncID[name]
	return id, ok
}

func (t *entityTable) addLocation(op *ir.Operation) {
	filename, line, col := "", uint32(0), uint32(0)
	if flc, ok := firstFileLineCol(op.Loc); ok {
		filename, line, col = flc.Filename, flc.Line, flc.Column
	}
	idx, ok := t.filenameIdx[filename]
	if !ok {
		idx = len(t.locationFilenames)
		t.filenameIdx[filename] = idx
		t.locationFilenames = append(t.locationFilenames, filename)
	}
	t.locationPositions[op] = locationTuple{filenameIdx: idx, line: line, col: col}
}

// firstFileLineCol mirrors EntityTable::AddLocation's FusedLoc handling:
// the *first* FileLineColLoc child wins (spec.md §9 open question,
// deliberately preserved rather than "fixed").
func firstFileLineCol(loc ir.Location) (ir.FileLineColLoc, bool) {
	switch l := loc.(type) {
	case ir.FileLineColLoc:
		return l, true
	case ir.FusedLoc:
		for _, child := range l.Locations {
			if flc, ok := child.(ir.FileLineColLoc); ok {
				return flc, true
			}
		}
	}
	return ir.FileLineColLoc{}, false
}

// addDebugInfo mirrors EntityTable::AddDebugInfo's NameLoc extraction,
// including the FusedLoc "first match" and CallSiteLoc-callee cases.
func (t *entityTable) addDebugInfo(op *ir.Operation) {
	loc := op.Loc
	if fused, ok := loc.(ir.FusedLoc); ok {
		for _, child := range fused.Locations {
			if named, ok := child.(ir.NameLoc); ok {
				loc = named
				break
			}
		}
	}
	if call, ok := loc.(ir.CallSiteLoc); ok {
		if named, ok := call.Callee.(ir.NameLoc); ok {
			loc = named
		}
	}
	if named, ok := loc.(ir.NameLoc); ok {
		t.debugInfo[op] = named.Name
	}
}

// collect runs the single pre-order walk described in spec.md §4.3.
func (t *entityTable) collect(module *ir.Module) bool {
	for _, f := range module.Funcs {
		t.collectFunc(f)
	}
	t.resolveDeferredSymbolRefs(module)
	return !t.failed
}

func (t *entityTable) collectFunc(f *ir.Func) {
	if f.Kind == ir.FuncNative {
		t.addNativeFunction(f)
		return
	}

	block := f.Body.Entry()
	term := block.Terminator()
	if term == nil || term.Name != ir.ReturnOpName {
		t.fail(diag.Structural, diag.Location{}, "all functions need to have a %s", ir.ReturnOpName)
		return
	}
	if term != block.Ops[len(block.Ops)-1] {
		t.fail(diag.Structural, diag.Location{}, "return op must be at the end of its block")
		return
	}

	if f.Kind == ir.FuncSync {
		seen := make(map[ir.Value]bool)
		for i, operand := range term.Operands {
			if _, isArg := operand.(*ir.BlockArgument); isArg {
				t.fail(diag.Structural, diag.LocationOf(term.Loc), "return value %d is an argument in a sync function", i)
				return
			}
			if seen[operand] {
				t.fail(diag.Structural, diag.LocationOf(term.Loc), "return value %d is duplicated in a sync function", i)
				return
			}
			seen[operand] = true
		}
	}

	if !t.addFunction(f.Body, f.Name, f.Kind, diag.Location{}) {
		return
	}

	for _, op := range block.Ops {
		if op.Name == ir.ReturnOpName {
			continue
		}
		t.collectOp(op)
	}
}

func (t *entityTable) collectOp(op *ir.Operation) {
	t.opsOrder = append(t.opsOrder, op)
	t.addLocation(op)
	t.addDebugInfo(op)

	curRegion := op.Block.Parent
	for _, result := range op.Results {
		t.addType(result.Typ)
	}
	for _, operand := range op.Operands {
		if operand.Region() != curRegion {
			t.fail(diag.Reference, diag.LocationOf(op.Loc),
				"BEF executor only supports references to kernels within the current region")
			return
		}
	}

	t.addKernel(op)
	collectAttrs := !t.opts.DisableOptionalSections

	for _, na := range op.Attrs {
		if t.opts.ignoresAttribute(na.Name) {
			continue
		}
		if ClassifySpecialAttribute(na.Name) != SpecialNone {
			continue
		}
		if !IsSupportedAttribute(na.Value) {
			t.fail(diag.Encoding, diag.LocationOf(op.Loc), "attribute %q has a kind the BEF encoder does not support", na.Name)
			continue
		}

		if sym, ok := na.Value.(*ir.SymbolRefAttr); ok && !sym.IsCompilationUnitRef() {
			t.deferredSymbolRefs = append(t.deferredSymbolRefs, deferredSymbolRef{ref: sym, loc: diag.LocationOf(op.Loc)})
			continue
		}

		if arr, ok := na.Value.(*ir.ArrayAttr); ok && arr.IsSymbolRefArray() {
			// Function-reference array: never pooled.
			continue
		}

		t.addRequiredAttributeTypes(na.Value)
		if collectAttrs {
			t.addString(na.Name)
			t.addAttributeType(na.Value)
		}

		t.addAttribute(na.Name, na.Value)
	}

	for _, region := range op.Regions {
		t.collectRegionBody(region, diag.LocationOf(op.Loc))
	}
}

// collectRegionBody registers an attached kernel region (e.g. an
// "if" kernel's then/else bodies) as an anonymous async function and
// walks its body the same way collectFunc walks a top-level function.
// Mirrors the original's recursive handling of nested regions, which
// collectOp alone does not reach.
func (t *entityTable) collectRegionBody(region *ir.Region, loc diag.Location) {
	if len(region.Blocks) != 1 {
		t.fail(diag.Structural, loc, "multi-block regions cannot be emitted to BEF files")
		return
	}
	block := region.Entry()
	term := block.Terminator()
	if term == nil || term.Name != ir.ReturnOpName {
		t.fail(diag.Structural, loc, "all functions need to have a %s", ir.ReturnOpName)
		return
	}
	if term != block.Ops[len(block.Ops)-1] {
		t.fail(diag.Structural, loc, "return op must be at the end of its block")
		return
	}

	if !t.addFunction(region, "", ir.FuncAsync, loc) {
		return
	}

	for _, op := range block.Ops {
		if op.Name == ir.ReturnOpName {
			continue
		}
		t.collectOp(op)
	}
}

func (t *entityTable) resolveDeferredSymbolRefs(module *ir.Module) {
	if t.failed {
		return
	}
	names := make([]string, 0, len(t.namedFuncID))
	for name := range t.namedFuncID {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, d := range t.deferredSymbolRefs {
		if _, ok := t.functionNamed(d.ref.RootRef); ok {
			continue
		}
		suggestion := ident.ClosestMatch(d.ref.RootRef, names, 3)
		if suggestion != "" {
			t.fail(diag.Reference, d.loc, "function @%s not defined (did you mean @%s?)", d.ref.RootRef, suggestion)
		} else {
			t.fail(diag.Reference, d.loc, "function @%s not defined", d.ref.RootRef)
		}
	}
}

// sortedStrings returns every pooled string, sorted lexicographically
// (spec.md §3: "Ordering: lexicographic at emit time").
func (t *entityTable) sortedStrings() []string {
	out := make([]string, 0, len(t.strings))
	for s := range t.strings {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
