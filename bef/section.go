package bef

// SectionID is the closed, single-byte enum from spec.md §6. Order here
// is just enum assignment; emission order is fixed separately in
// module_emitter.go per spec.md §4.6.
type SectionID byte

const (
	SectionLocationFilenames SectionID = iota
	SectionLocationPositions
	SectionDebugInfo
	SectionStrings
	SectionAttributes
	SectionKernels
	SectionTypes
	SectionFunctionIndex
	SectionFunctions
	SectionAttributeTypes
	SectionAttributeNames
	SectionRegisterTypes
)

// kBEFMagic1, kBEFMagic2, and kBEFVersion0 (spec.md §6) are fixed by the
// format and meant to be preserved bit-for-bit, but no literal byte
// values were available to ground them against; these three are a
// placeholder assignment, not verified upstream constants.
const (
	magicByte1  byte = 0x0B
	magicByte2  byte = 0xEF
	versionByte byte = 0x00
)

// specialMetadataNonStrict and specialMetadataHasDebugInfo are the two
// defined bits of a kernel header's special_metadata bitset (spec.md
// §6). All other bits are reserved and must be zero.
const (
	specialMetadataNonStrict     uint32 = 1 << 0
	specialMetadataHasDebugInfo  uint32 = 1 << 1
)

// kernelEntryAlignment is the fixed 4-byte alignment every kernel-list
// entry is emitted at (spec.md §6).
const kernelEntryAlignment uint32 = 4

// dummyPseudoKernelCode and dummyPseudoKernelLocation are the
// pseudo-kernel's synthetic opcode/location, preserved bit-for-bit per
// spec.md §3.
const (
	dummyPseudoKernelCode     uint32 = 0xABABABAB
	dummyPseudoKernelLocation uint32 = 0xCDCDCDCD
)

// EmitSection frames payload as a top-level section per spec.md §4.2:
// [id byte][header VBR][optional alignment byte + padding][payload].
// alignment is the payload's required alignment (1 ⇒ never emits the
// alignment flag/byte). This is the Go rendering of the teacher's
// BEFFileEmitter::EmitSection (elf_writer.go's EmitSection-shaped
// pattern, generalized from ELF program headers to BEF's own framing
// rule), adapted to the VBR-and-flag-bit scheme spec.md actually
// specifies rather than ELF's fixed-width section headers.
func (e *Emitter) EmitSection(id SectionID, payload []byte, alignment uint32) {
	e.EmitByte(byte(id))

	shiftedLen := uint64(len(payload)) << 1
	if alignment > 1 {
		// Header VBR occupies SizeOfVbrInt(shiftedLen|1) bytes if we
		// decide to set the flag; check whether, after that header, we
		// land on an `alignment`-aligned offset already.
		offset := e.Size() + SizeOfVbrInt(shiftedLen)
		if offset%int(alignment) != 0 {
			e.EmitVbrInt(shiftedLen | 1)
			e.EmitByte(byte(alignment))
			e.EmitAlign(alignment)
			e.EmitBytes(payload)
			return
		}
	}
	e.EmitVbrInt(shiftedLen)
	e.EmitBytes(payload)
}

// EmitSectionFrom is EmitSection for a payload that was itself built in
// an Emitter, using that emitter's own accumulated required alignment.
func (e *Emitter) EmitSectionFrom(id SectionID, payload *Emitter) {
	e.EmitSection(id, payload.Result(), payload.RequiredAlignment())
}
