package bef

import (
	"github.com/vibeflow/befgen/diag"
	"github.com/vibeflow/befgen/ir"
)

// Phase is one step of the converter's three-pass pipeline, in the
// order spec.md §5 requires them to run. Grounded on the teacher's
// compilation_pipeline.go: CompilationPipeline.AdvanceTo validates that
// callers only ever move forward through a fixed stage order, panicking
// on a backward or repeated transition rather than silently re-running
// work — the same discipline Pipeline.AdvanceTo enforces here for "don't
// collect the same module twice".
type Phase int

const (
	PhaseCollect Phase = iota
	PhasePools
	PhaseFunctions
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseCollect:
		return "collect"
	case PhasePools:
		return "pools"
	case PhaseFunctions:
		return "functions"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Pipeline is an incremental, phase-validated driver over Convert's
// three passes, for callers (e.g. cmd/befc) that want to inspect
// collection diagnostics before committing to pool layout and function
// emission, without re-running the collector to do so.
type Pipeline struct {
	module *ir.Module
	opts   Options
	sink   *diag.Collector

	phase    Phase
	table    *entityTable
	artifact []byte
}

// NewPipeline creates a pipeline at PhaseCollect, ready for AdvanceTo.
func NewPipeline(module *ir.Module, opts Options) *Pipeline {
	return &Pipeline{module: module, opts: opts, sink: diag.NewCollector(false)}
}

// AdvanceTo runs every remaining phase up to and including target.
// Collection runs on the first call; pool layout and function emission
// run together, in one step, once target reaches PhaseComplete, so
// advancing to PhasePools or PhaseFunctions does no work of its own and
// Phase() goes from PhasePools straight to PhaseComplete. It
// panics if target is behind the pipeline's current phase — advancing
// backward, or calling AdvanceTo(PhaseCollect) a second time, is a
// programmer error, not a recoverable condition (spec.md §5). Returns
// false once a fatal diagnostic has been reported; Diagnostics still
// reports everything collected so far either way.
func (p *Pipeline) AdvanceTo(target Phase) bool {
	if target < p.phase {
		panic("bef: pipeline phase cannot move backward — InvariantError, caller bug")
	}

	if p.phase == PhaseCollect {
		p.table = newEntityTable(p.opts, p.sink)
		if !p.table.collect(p.module) {
			p.phase = PhaseComplete
			return false
		}
		p.phase = PhasePools
	}

	if target <= p.phase {
		return !p.sink.HasErrors()
	}

	if p.phase < PhaseComplete && target >= PhaseComplete {
		me := &moduleEmitter{table: p.table, index: newEntityIndex(), opts: p.opts}
		p.artifact = me.emit()
		p.phase = PhaseComplete
	}

	return !p.sink.HasErrors()
}

// Phase returns the pipeline's current phase.
func (p *Pipeline) Phase() Phase { return p.phase }

// Diagnostics returns every diagnostic reported so far, in report order.
func (p *Pipeline) Diagnostics() []diag.Diagnostic { return p.sink.All() }

// Artifact returns the completed BEF bytes, valid only once Phase() ==
// PhaseComplete and Diagnostics() reports no fatal error.
func (p *Pipeline) Artifact() []byte { return p.artifact }
