package ir

// Location is the source position attached to an operation. It mirrors
// the handful of MLIR location kinds the converter actually inspects
// (spec.md §4.3 step 2, §9's debug-info open question): a plain
// file/line/column, a name annotation, or a fusion/call-site wrapper
// around either.
type Location interface {
	locationSealed()
}

// FileLineColLoc is a plain source position.
type FileLineColLoc struct {
	Filename string
	Line     uint32
	Column   uint32
}

func (FileLineColLoc) locationSealed() {}

// NameLoc carries a human-readable debug name, optionally wrapping a
// child location.
type NameLoc struct {
	Name  string
	Child Location
}

func (NameLoc) locationSealed() {}

// FusedLoc fuses several locations together (e.g. inlining a callee's
// location into a caller's). The collector picks the *first* matching
// child of the kind it wants — see firstFileLineCol / addDebugInfo in
// bef/entity_table.go and the open question in spec.md §9.
type FusedLoc struct {
	Locations []Location
}

func (FusedLoc) locationSealed() {}

// CallSiteLoc pairs a call location with the callee's location; the
// collector looks at the callee side when hunting for a NameLoc.
type CallSiteLoc struct {
	Caller Location
	Callee Location
}

func (CallSiteLoc) locationSealed() {}

// UnknownLoc is the zero-information default location.
type UnknownLoc struct{}

func (UnknownLoc) locationSealed() {}

// Operation is one kernel invocation (or, for the "tfrt.return" opcode,
// the block terminator that the converter special-cases and never turns
// into a kernel entry). Operand/result wiring is filled in by
// Block.AddOperation, which also updates each operand's use-list.
type Operation struct {
	Name        string
	Attrs       []NamedAttribute
	Operands    []Value
	ResultTypes []Type
	Results     []*OpResult
	Regions     []*Region
	Loc         Location
	Block       *Block
}

// NewOperation constructs an operation with the given opcode name,
// operands, result types, and location. It is not yet attached to a
// block — call Block.AddOperation to append it and materialize its
// OpResult values.
func NewOperation(name string, operands []Value, resultTypes []Type, loc Location) *Operation {
	return &Operation{
		Name:        name,
		Operands:    operands,
		ResultTypes: resultTypes,
		Loc:         loc,
	}
}

// AddAttr appends a named attribute, preserving insertion order.
func (op *Operation) AddAttr(name string, value Attribute) *Operation {
	op.Attrs = append(op.Attrs, NamedAttribute{Name: name, Value: value})
	return op
}

// AddRegion attaches a new empty region to the operation (e.g. the
// "then"/"else" bodies of a tfrt.if kernel) and returns it for the
// caller to populate.
func (op *Operation) AddRegion() *Region {
	r := NewRegion()
	r.Owner = op
	op.Regions = append(op.Regions, r)
	return r
}

// Result returns the i'th result value, valid only after the operation
// has been appended to a block.
func (op *Operation) Result(i int) *OpResult { return op.Results[i] }

// Block is a basic block: an ordered argument list followed by an
// ordered operation list. Regions in this IR are restricted to a single
// block by construction (spec.md's Non-goal on multi-block regions is
// enforced at collection time in bef's entity table, not here, so
// that a malformed multi-block region still produces a proper
// StructuralError rather than being impossible to construct).
type Block struct {
	Args   []*BlockArgument
	Ops    []*Operation
	Parent *Region
}

// AddArgument appends a new block argument of the given type.
func (b *Block) AddArgument(typ Type) *BlockArgument {
	arg := &BlockArgument{Index: len(b.Args), Typ: typ, Block: b}
	b.Args = append(b.Args, arg)
	return arg
}

// AddOperation appends op to the block, materializes its OpResult
// values, and records op as a user of each of its operands.
func (b *Block) AddOperation(op *Operation) *Operation {
	op.Block = b
	for i, t := range op.ResultTypes {
		op.Results = append(op.Results, &OpResult{Op: op, Index: i, Typ: t})
	}
	for _, operand := range op.Operands {
		operand.addUser(op)
	}
	b.Ops = append(b.Ops, op)
	return op
}

// Terminator returns the block's last operation, or nil if empty.
func (b *Block) Terminator() *Operation {
	if len(b.Ops) == 0 {
		return nil
	}
	return b.Ops[len(b.Ops)-1]
}

// Region owns one or more blocks. A well-formed BEF-eligible region has
// exactly one block; Owner is the operation the region is attached to,
// or nil for a top-level function body.
type Region struct {
	Blocks []*Block
	Owner  *Operation
}

// NewRegion creates a region with a single empty block, which is the
// only shape spec.md supports converting.
func NewRegion() *Region {
	r := &Region{}
	b := &Block{Parent: r}
	r.Blocks = append(r.Blocks, b)
	return r
}

// AddExtraBlock appends a second block to the region. Only ever used by
// tests that need to exercise the multi-block StructuralError path.
func (r *Region) AddExtraBlock() *Block {
	b := &Block{Parent: r}
	r.Blocks = append(r.Blocks, b)
	return b
}

// Entry returns the region's first block.
func (r *Region) Entry() *Block { return r.Blocks[0] }
