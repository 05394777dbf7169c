package bef

// Emitter is the append-only byte buffer primitive (component E in
// spec.md §2 / §4.1). Adapted from the teacher's SafeBuffer
// (safe_buffer.go): that type wrapped bytes.Buffer with commit/reset
// lifecycle guards to catch use-after-commit bugs in the ELF writer.
// Emitter keeps the "never silently reorder or buffer out of order"
// discipline but replaces the commit/reset lifecycle with the thing
// this format actually needs: tracking the *required alignment* a
// completed buffer demands of whatever embeds it (spec.md §4.1).
type Emitter struct {
	buf               []byte
	requiredAlignment uint32
}

// NewEmitter creates an empty Emitter with no alignment requirement yet
// (i.e. alignment 1: embeddable anywhere).
func NewEmitter() *Emitter {
	return &Emitter{requiredAlignment: 1}
}

// Size returns the number of bytes written so far.
func (e *Emitter) Size() int { return len(e.buf) }

// RequiredAlignment returns the strictest alignment this emitter's
// contents demand, lifted monotonically by EmitAlign and EmitEmbedded.
func (e *Emitter) RequiredAlignment() uint32 { return e.requiredAlignment }

// Result returns the accumulated bytes. The returned slice aliases the
// Emitter's internal buffer — callers that keep writing must not retain
// it past the next write.
func (e *Emitter) Result() []byte { return e.buf }

// TakeResult returns the accumulated bytes and leaves the Emitter
// unusable, mirroring the teacher's SafeBuffer.Commit() boundary: once
// the final artifact is taken, nothing should write to this buffer
// again.
func (e *Emitter) TakeResult() []byte {
	out := e.buf
	e.buf = nil
	return out
}

// EmitByte appends a single byte.
func (e *Emitter) EmitByte(b byte) { e.buf = append(e.buf, b) }

// EmitBytes appends a byte slice verbatim, in order.
func (e *Emitter) EmitBytes(b []byte) { e.buf = append(e.buf, b...) }

// EmitInt4 appends v as 4 fixed bytes, little-endian, at the current
// offset. Per spec.md §4.5 every kernel-entry field is written this way
// and the caller is responsible for having aligned to 4 first; EmitInt4
// itself does not pad.
func (e *Emitter) EmitInt4(v uint32) {
	e.buf = append(e.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// EmitVbrInt appends v as a variable-length unsigned integer: 7-bit
// groups with a continuation bit, most-significant group first (spec.md
// §4.1's "7-bit groups, MSB continuation, big-endian within the
// integer"). This matches the original BEF format's VBR encoding.
func (e *Emitter) EmitVbrInt(v uint64) {
	// Find the most-significant non-zero 7-bit group.
	numBits := 0
	for tmp := v; tmp != 0; tmp >>= 7 {
		numBits += 7
	}
	if numBits == 0 {
		numBits = 7
	}
	for shift := numBits - 7; shift >= 0; shift -= 7 {
		group := byte(v>>uint(shift)) & 0x7f
		if shift != 0 {
			group |= 0x80
		}
		e.buf = append(e.buf, group)
	}
}

// SizeOfVbrInt returns the number of bytes EmitVbrInt(v) would write,
// without writing them — needed by the section-framing header math in
// spec.md §4.2, which must know a VBR field's length before deciding
// whether an alignment byte is needed.
func SizeOfVbrInt(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// EmitAlign pads with zero bytes until Size() is a multiple of n, and
// raises the emitter's required alignment to max(current, n). Per
// spec.md §4.1 required_alignment is monotonically non-decreasing.
func (e *Emitter) EmitAlign(n uint32) {
	if n > e.requiredAlignment {
		e.requiredAlignment = n
	}
	if n <= 1 {
		return
	}
	for len(e.buf)%int(n) != 0 {
		e.buf = append(e.buf, 0)
	}
}

// EmitEmbedded copies other's bytes into e in order and lifts other's
// required alignment into e's, per spec.md §4.1's EmitEmbedded
// contract. The caller is responsible for aligning e to other's
// required alignment first if that alignment must actually be honored
// at the embed point (EmitEmbedded does not pad itself).
func (e *Emitter) EmitEmbedded(other *Emitter) {
	e.buf = append(e.buf, other.buf...)
	if other.requiredAlignment > e.requiredAlignment {
		e.requiredAlignment = other.requiredAlignment
	}
}
