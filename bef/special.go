package bef

// SpecialAttribute is the classification spec.md §3/§4.3 assigns to a
// handful of attribute *names* that never reach the attribute pool:
// they're either pure metadata consumed during emission (non-strict) or
// not part of the runtime model at all (ignored).
type SpecialAttribute int

const (
	SpecialNone SpecialAttribute = iota
	// SpecialNonStrict marks a kernel as non-strict: see
	// function_emitter.go's operand-before-fireable clamping.
	SpecialNonStrict
	// SpecialHasDebugInfo is never an attribute name in practice (it is
	// derived, not author-written) but is listed for symmetry with the
	// special_metadata bit it controls; ClassifySpecialAttribute never returns
	// it for a real attribute name.
	SpecialHasDebugInfo
)

// ClassifySpecialAttribute mirrors BefAttrEmitter::ClassifyAttribute
// from the original converter: a small, closed name→meaning table,
// checked before an attribute is considered for pooling.
func ClassifySpecialAttribute(name string) SpecialAttribute {
	switch name {
	case "non_strict":
		return SpecialNonStrict
	default:
		return SpecialNone
	}
}

// defaultIgnoredAttributes is the attribute-name set dropped during
// collection without ever becoming a pooled value or a per-kernel
// attribute entry (spec.md §4.3 step 5, "ignore the cost attribute").
// Renamed from the original's literal "_tfrt_cost" to a generic name,
// since this module isn't tied to that runtime's attribute vocabulary;
// Options.IgnoredAttributeNames lets a caller add names to this set; the
// names here are always ignored.
var defaultIgnoredAttributes = map[string]bool{
	"cost": true,
}
