// Package streamanalysis implements the stream-analysis collaborator
// (component S in spec.md §2): given a function body, it assigns every
// operation a concurrency-partition ("stream") id, plus a designated
// root stream for the pseudo-kernel. The algorithm that produces good
// partitions is explicitly out of scope for the converter core — bef
// only depends on the Analysis interface below.
package streamanalysis

import "github.com/vibeflow/befgen/ir"

// StreamID identifies a concurrency partition. Values are opaque to the
// converter beyond being written verbatim into the kernel header.
type StreamID uint32

// Analysis answers the two questions bef's function emitter needs: which
// stream does an operation run on, and which stream hosts the
// pseudo-kernel (spec.md §4.5: "the pseudo-kernel is always in the root
// stream id returned by stream analysis").
type Analysis interface {
	RootStream() StreamID
	StreamOf(op *ir.Operation) StreamID
}

// SingleStream is the simplest valid Analysis: every operation, and the
// pseudo-kernel, run on stream 0. It is correct (every kernel still
// fires exactly when its operand-ready count says it should) but
// forfeits any parallelism the executor could otherwise exploit —
// useful as a baseline and in tests where the partitioning itself isn't
// what's under test.
type SingleStream struct{}

func (SingleStream) RootStream() StreamID                  { return 0 }
func (SingleStream) StreamOf(*ir.Operation) StreamID { return 0 }

// BlockAnalysis is a reference Analysis that partitions a block's
// operations by a simple forward data-dependency heuristic: the root
// stream carries the pseudo-kernel, every zero-operand operation, and
// block arguments; an operation whose operands all come from the same
// stream joins that stream; an operation whose operands come from
// different streams (or from a producer outside this block) gets a
// fresh stream. Non-strict kernels are treated like any other.
// This mirrors the shape of tfrt's own StreamAnalysis (assign by
// dependency chain, merge on convergence) without attempting its cost
// model.
type BlockAnalysis struct {
	root    StreamID
	streams map[*ir.Operation]StreamID
}

// Analyze runs the reference partitioning over block.
func Analyze(block *ir.Block) *BlockAnalysis {
	a := &BlockAnalysis{root: 0, streams: make(map[*ir.Operation]StreamID)}
	next := StreamID(1)

	producerStream := func(v ir.Value) (StreamID, bool) {
		if res, ok := v.(*ir.OpResult); ok {
			s, ok := a.streams[res.Op]
			return s, ok
		}
		// Block arguments originate on the root stream.
		return a.root, true
	}

	for _, op := range block.Ops {
		if op.Name == ir.ReturnOpName {
			continue
		}
		if len(op.Operands) == 0 {
			a.streams[op] = a.root
			continue
		}
		first, _ := producerStream(op.Operands[0])
		same := true
		for _, operand := range op.Operands[1:] {
			s, ok := producerStream(operand)
			if !ok || s != first {
				same = false
				break
			}
		}
		if same {
			a.streams[op] = first
		} else {
			a.streams[op] = next
			next++
		}
	}
	return a
}

func (a *BlockAnalysis) RootStream() StreamID { return a.root }

func (a *BlockAnalysis) StreamOf(op *ir.Operation) StreamID {
	if s, ok := a.streams[op]; ok {
		return s
	}
	return a.root
}
