package main

import (
	"fmt"

	"github.com/vibeflow/befgen/ir"
)

// fixtureModule is the on-disk shape cmd/befc decodes module fixtures
// from (msgpack-encoded, conventionally named *.irmsgpack under
// testdata/). It stands in for "the upstream IR parser" input surface
// the bef package itself is never responsible for: a flat, serializable
// mirror of the handful of ir constructs the demo CLI needs to build a
// real *ir.Module from.
type fixtureModule struct {
	Funcs []fixtureFunc `msgpack:"funcs"`
}

type fixtureFunc struct {
	Name    string       `msgpack:"name"`
	Inputs  []int        `msgpack:"inputs"`  // integer bit widths
	Results []int        `msgpack:"results"` // integer bit widths
	Kind    string       `msgpack:"kind"`    // "async", "sync", or "native"
	Ops     []fixtureOp  `msgpack:"ops,omitempty"`
	Return  []int        `msgpack:"return,omitempty"` // value indices (see fixtureOp.Result)
}

// fixtureOp is one non-terminator operation. Operands and the function's
// eventual return list both reference values by a dense index: 0..N-1
// name the function's block arguments in order, and N..N+k-1 name the
// results of the k result-producing ops emitted so far, in order; an op
// with ResultWidth 0 takes no index. Multi-result ops aren't
// representable in this demo schema.
type fixtureOp struct {
	Name        string `msgpack:"name"`
	Operands    []int  `msgpack:"operands,omitempty"`
	ResultWidth int    `msgpack:"result_width,omitempty"` // 0 means no result
	NonStrict   bool   `msgpack:"non_strict,omitempty"`
}

// buildModule turns a decoded fixture into a real *ir.Module, routing
// every integer width through a shared TypeTable so structurally equal
// types share one pointer (required for bef's identity-based type
// dedup; see ir.TypeTable's doc comment).
func buildModule(fx *fixtureModule) (*ir.Module, error) {
	types := ir.NewTypeTable()
	module := ir.NewModule()

	for _, ff := range fx.Funcs {
		kind, err := parseFuncKind(ff.Kind)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", ff.Name, err)
		}
		inputs := widthsToTypes(types, ff.Inputs)
		results := widthsToTypes(types, ff.Results)
		f := ir.NewFunc(ff.Name, inputs, results, kind)
		module.AddFunc(f)

		if kind == ir.FuncNative {
			continue
		}

		block := f.Body.Entry()
		for _, ty := range inputs {
			block.AddArgument(ty)
		}
		values := make([]ir.Value, len(block.Args))
		for i, arg := range block.Args {
			values[i] = arg
		}

		for _, fop := range ff.Ops {
			operands := make([]ir.Value, len(fop.Operands))
			for i, idx := range fop.Operands {
				if idx < 0 || idx >= len(values) {
					return nil, fmt.Errorf("function %q: op %q references unknown value %d", ff.Name, fop.Name, idx)
				}
				operands[i] = values[idx]
			}
			var resultTypes []ir.Type
			if fop.ResultWidth > 0 {
				resultTypes = []ir.Type{types.Int(uint32(fop.ResultWidth))}
			}
			op := ir.NewOperation(fop.Name, operands, resultTypes, ir.UnknownLoc{})
			if fop.NonStrict {
				op.AddAttr("non_strict", &ir.BoolAttr{Value: true})
			}
			block.AddOperation(op)
			if len(resultTypes) > 0 {
				values = append(values, op.Result(0))
			}
		}

		returnOperands := make([]ir.Value, len(ff.Return))
		for i, idx := range ff.Return {
			if idx < 0 || idx >= len(values) {
				return nil, fmt.Errorf("function %q: return references unknown value %d", ff.Name, idx)
			}
			returnOperands[i] = values[idx]
		}
		block.AddOperation(ir.NewOperation(ir.ReturnOpName, returnOperands, nil, ir.UnknownLoc{}))
	}

	return module, nil
}

func parseFuncKind(s string) (ir.FuncKind, error) {
	switch s {
	case "", "async":
		return ir.FuncAsync, nil
	case "sync":
		return ir.FuncSync, nil
	case "native":
		return ir.FuncNative, nil
	default:
		return 0, fmt.Errorf("unknown function kind %q", s)
	}
}

func widthsToTypes(types *ir.TypeTable, widths []int) []ir.Type {
	out := make([]ir.Type, len(widths))
	for i, w := range widths {
		out[i] = types.Int(uint32(w))
	}
	return out
}
