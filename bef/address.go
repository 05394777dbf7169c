package bef

import "fmt"

// Typed offsets, so that a string-pool offset can never be passed where
// an attribute-pool offset was expected. Adapted from the teacher's
// address_types.go (VirtualAddr/FileOffset/TextOffset for an ELF
// writer); here the address spaces are the BEF pools instead of ELF
// segments, but the motivating bug class — "which byte-offset number is
// this, and into which section" — is identical.

// StringOffset is a byte offset into the Strings section.
type StringOffset uint32

func (o StringOffset) String() string { return fmt.Sprintf("str:0x%x", uint32(o)) }

// FilenameOffset is a byte offset into the LocationFilenames section.
type FilenameOffset uint32

func (o FilenameOffset) String() string { return fmt.Sprintf("file:0x%x", uint32(o)) }

// LocationOffset is a byte offset into the LocationPositions section.
type LocationOffset uint32

func (o LocationOffset) String() string { return fmt.Sprintf("loc:0x%x", uint32(o)) }

// DebugInfoOffset is a byte offset into the DebugInfo section.
type DebugInfoOffset uint32

// NoDebugInfo is the sentinel meaning "this operation has no debug-info
// entry" — never written to the artifact; the has-debug-info flag gates
// whether a DebugInfoOffset field is present at all.
const NoDebugInfo DebugInfoOffset = 1<<32 - 1

func (o DebugInfoOffset) String() string { return fmt.Sprintf("dbg:0x%x", uint32(o)) }

// AttrOffset is a byte offset into the Attributes section; it doubles
// as an attribute's pool-wide identifier per spec.md §3.
type AttrOffset uint32

func (o AttrOffset) String() string { return fmt.Sprintf("attr:0x%x", uint32(o)) }

// FunctionOffset is a byte offset into the Functions section.
type FunctionOffset uint32

func (o FunctionOffset) String() string { return fmt.Sprintf("fn:0x%x", uint32(o)) }

// KernelOffset is a byte offset into a function's kernel list.
type KernelOffset uint32

func (o KernelOffset) String() string { return fmt.Sprintf("kern:0x%x", uint32(o)) }

// TypeIndex is a zero-based index into the Types table (not a byte
// offset — types are referenced by dense index everywhere).
type TypeIndex uint32

// KernelID is a zero-based index into the kernel-opcode table.
type KernelID uint32

// FunctionID is a zero-based index into the function table.
type FunctionID uint32

// RegisterNumber is a zero-based index into a function's dense register
// numbering (block arguments, then op results, in program order).
type RegisterNumber uint32
