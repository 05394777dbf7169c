package bef

import (
	"github.com/vibeflow/befgen/compunit"
	"github.com/vibeflow/befgen/ir"
	"github.com/vibeflow/befgen/streamanalysis"
)

// Options configures one Convert call.
type Options struct {
	// DisableOptionalSections, when true, skips AttributeTypes,
	// AttributeNames, and RegisterTypes entirely, matching the
	// original's disable_optional_sections flag (spec.md §4.6, §6).
	DisableOptionalSections bool

	// IgnoredAttributeNames extends the default ignored-attribute set
	// (spec.md §4.3 step 5). A nil map means "use the default only".
	IgnoredAttributeNames map[string]bool

	// CompilationUnits resolves symbol references into nested compiled
	// sub-modules (component C in spec.md §2). compunit.Empty is used
	// when nil.
	CompilationUnits compunit.Registry

	// Streams builds the stream-analysis collaborator (component S) for
	// one function body. streamanalysis.Analyze is used when nil.
	Streams func(*ir.Block) streamanalysis.Analysis
}

func (o Options) streamsFor(block *ir.Block) streamanalysis.Analysis {
	if o.Streams == nil {
		return streamanalysis.Analyze(block)
	}
	return o.Streams(block)
}

func (o Options) ignoresAttribute(name string) bool {
	if defaultIgnoredAttributes[name] {
		return true
	}
	return o.IgnoredAttributeNames[name]
}

func (o Options) compilationUnits() compunit.Registry {
	if o.CompilationUnits == nil {
		return compunit.Empty
	}
	return o.CompilationUnits
}
