// Package diag implements the diagnostics sink (component D in spec.md
// §2 and the error taxonomy of spec.md §7). It is adapted from the
// teacher's errors.go (CompilerError/ErrorCollector/ErrorLevel), with
// Category renamed to the four BEF-specific buckets and with a Sink
// interface so bef never depends on a concrete collector — consistent
// with spec.md's framing of diagnostics as "an external sink" the
// converter merely reports to.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"tlog.app/go/errors"

	"github.com/vibeflow/befgen/ir"
)

// Category is the closed error taxonomy from spec.md §7.
type Category int

const (
	// Structural covers multi-block regions, external function bodies,
	// a misplaced/missing return, and sync-function return-value rules.
	Structural Category = iota
	// Reference covers operands defined outside the current region and
	// symbol references naming an undefined function.
	Reference
	// Encoding covers attribute kinds the encoder doesn't support.
	Encoding
	// Invariant covers internal consistency assertions (a bug in this
	// module, not bad input) — these are always fatal.
	Invariant
)

func (c Category) String() string {
	switch c {
	case Structural:
		return "structural"
	case Reference:
		return "reference"
	case Encoding:
		return "encoding"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Location pins a diagnostic to a source position, printed the same way
// regardless of which ir.Location kind it was extracted from.
type Location struct {
	File   string
	Line   uint32
	Column uint32
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// LocationOf extracts a printable Location from an ir.Location, digging
// through FusedLoc/CallSiteLoc wrappers for the first FileLineColLoc —
// the same "first match" rule the collector itself uses when it needs a
// position in the same value (see firstFileLineCol in bef/entity_table.go).
func LocationOf(loc ir.Location) Location {
	switch l := loc.(type) {
	case ir.FileLineColLoc:
		return Location{File: l.Filename, Line: l.Line, Column: l.Column}
	case ir.FusedLoc:
		for _, child := range l.Locations {
			if flc, ok := child.(ir.FileLineColLoc); ok {
				return Location{File: flc.Filename, Line: flc.Line, Column: flc.Column}
			}
		}
	case ir.NameLoc:
		return LocationOf(l.Child)
	case ir.CallSiteLoc:
		return LocationOf(l.Caller)
	}
	return Location{}
}

// Diagnostic is one reported error or warning.
type Diagnostic struct {
	Category Category
	Fatal    bool
	Message  string
	Loc      Location
	Cause    error // wrapped via tlog.app/go/errors, may be nil
}

// Error implements the error interface so a Diagnostic can be returned
// directly from a function that found exactly one problem.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Loc, d.Category, d.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As chains.
func (d Diagnostic) Unwrap() error { return d.Cause }

// Sink is what bef reports diagnostics to. It never aborts the pipeline
// itself — per spec.md §7 the walk continues after every per-operation
// error so all problems surface in one pass; only the converter's
// explicit failure return ends the conversion.
type Sink interface {
	Report(d Diagnostic)
}

// Collector is the reference Sink: it accumulates diagnostics and can
// render them for a terminal, colourized via fatih/color in place of
// the teacher's hand-rolled ANSI escape sequences in errors.go.
type Collector struct {
	diags   []Diagnostic
	UseColor bool
}

// NewCollector creates an empty collector.
func NewCollector(useColor bool) *Collector {
	return &Collector{UseColor: useColor}
}

// Report implements Sink.
func (c *Collector) Report(d Diagnostic) { c.diags = append(c.diags, d) }

// Reportf is a convenience wrapper that builds and reports a Diagnostic
// in one call, wrapping the message with tlog.app/go/errors so the
// resulting Diagnostic.Cause carries a proper stack-aware error value.
func (c *Collector) Reportf(cat Category, fatal bool, loc Location, format string, args ...interface{}) {
	cause := errors.New(format, args...)
	c.Report(Diagnostic{Category: cat, Fatal: fatal, Message: cause.Error(), Loc: loc, Cause: cause})
}

// HasErrors reports whether any fatal diagnostic was collected. bef's
// three-pass converter checks this once collection finishes; per
// spec.md §7, a single fatal diagnostic forces Convert to return the
// empty artifact.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Fatal {
			return true
		}
	}
	return false
}

// All returns every collected diagnostic, in report order.
func (c *Collector) All() []Diagnostic { return c.diags }

// Render renders every diagnostic as a single string, one per line,
// colourized when UseColor is set.
func (c *Collector) Render() string {
	var sb strings.Builder
	for i, d := range c.diags {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(c.renderOne(d))
	}
	return sb.String()
}

func (c *Collector) renderOne(d Diagnostic) string {
	level := "error"
	paint := color.New(color.FgRed, color.Bold)
	if !d.Fatal {
		level = "warning"
		paint = color.New(color.FgYellow, color.Bold)
	}
	head := level
	if c.UseColor {
		head = paint.Sprint(level)
	}
	return fmt.Sprintf("%s: %s\n  --> %s", head, d.Message, d.Loc)
}
