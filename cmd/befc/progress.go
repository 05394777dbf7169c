package main

import (
	"github.com/pterm/pterm"

	"github.com/vibeflow/befgen/bef"
)

// phaseLabels mirrors compileMsgStrings in the teacher's logging package:
// a flat lookup from an internal enum to the string shown to the user,
// kept next to the printing code rather than on the enum itself.
var phaseLabels = map[bef.Phase]string{
	bef.PhaseCollect:   "collecting entities",
	bef.PhasePools:     "laying out pools",
	bef.PhaseFunctions: "emitting functions",
	bef.PhaseComplete:  "done",
}

// runWithProgress drives p through every phase up to bef.PhaseComplete,
// printing a spinner line per phase the way the teacher's PrintInfoMessage
// /PrintErrorMessage pair reports pass/fail, and returns false on the
// first phase that leaves a fatal diagnostic behind.
func runWithProgress(p *bef.Pipeline, useColor bool) bool {
	phases := []bef.Phase{bef.PhaseCollect, bef.PhasePools, bef.PhaseFunctions, bef.PhaseComplete}

	if !useColor {
		pterm.DisableColor()
	}

	ok := true
	for _, target := range phases {
		label := phaseLabels[target]
		spinner, _ := pterm.DefaultSpinner.Start(label)
		if !p.AdvanceTo(target) {
			spinner.Fail(label + ": failed")
			ok = false
			break
		}
		spinner.Success(label)
	}
	return ok
}
