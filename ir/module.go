package ir

// ReturnOpName is the opcode that terminates a function body and is
// never itself converted into a kernel entry — it gets special-case
// handling everywhere per spec.md §4.3 step 1. Matches the concrete
// scenarios in spec.md §8.
const ReturnOpName = "tfrt.return"

// FuncKind is the tagged sum spec.md §3 calls out for function entries.
type FuncKind int

const (
	// FuncAsync is a regular BEF function: its body executes on the
	// dataflow executor with implicit asynchrony between kernels.
	FuncAsync FuncKind = iota
	// FuncSync is a BEF function restricted to synchronous, in-order
	// execution; its return operands may not alias block arguments or
	// repeat (spec.md §4.3 step 4, §7 StructuralError cases).
	FuncSync
	// FuncNative is implemented outside BEF entirely (e.g. a host
	// callback) and carries no body region.
	FuncNative
)

func (k FuncKind) String() string {
	switch k {
	case FuncAsync:
		return "async"
	case FuncSync:
		return "sync"
	case FuncNative:
		return "native"
	default:
		return "unknown"
	}
}

// Func is a named, top-level function declaration. Anonymous functions
// (region operands of kernels such as tfrt.if) are not represented here
// — they exist only as *ir.Region values reachable from an Operation's
// Regions field, and the converter assigns them synthetic function-table
// entries during collection (spec.md §4.3 step 6).
type Func struct {
	Name    string
	Inputs  []Type
	Results []Type
	Kind    FuncKind
	Body    *Region // nil iff Kind == FuncNative
}

// NewFunc declares a function. For non-native kinds, callers must build
// Body (a single-block region) themselves, ending it with a
// ReturnOpName terminator whose operands match Results.
func NewFunc(name string, inputs, results []Type, kind FuncKind) *Func {
	f := &Func{Name: name, Inputs: inputs, Results: results, Kind: kind}
	if kind != FuncNative {
		f.Body = NewRegion()
	}
	return f
}

// Module is the root of the IR graph: an ordered list of top-level
// functions. There is no "module operation" of its own to walk (unlike
// mlir::ModuleOp) — the converter's collector simply iterates Funcs.
type Module struct {
	Funcs []*Func
}

// NewModule creates an empty module.
func NewModule() *Module { return &Module{} }

// AddFunc appends and returns f.
func (m *Module) AddFunc(f *Func) *Func {
	m.Funcs = append(m.Funcs, f)
	return f
}

// FuncNamed returns the module's top-level function with the given
// name, or nil.
func (m *Module) FuncNamed(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
