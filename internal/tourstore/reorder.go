package tourstore

import "github.com/holmsten/stepwise/internal/models"

// MoveStep returns a copy of steps with the element at from moved to
// to (clamped to the valid range) and every order field rewritten to
// its new position. The input slice is never mutated; feeding the
// result to ReconcileSteps or the store is the caller's job.
//
// An out-of-range from returns an unchanged (but re-indexed) copy.
func MoveStep(steps []models.TourStep, from, to int) []models.TourStep {
	out := make([]models.TourStep, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	if from >= 0 && from < len(out) {
		if to < 0 {
			to = 0
		}
		if to > len(out)-1 {
			to = len(out) - 1
		}
		moved := out[from]
		out = append(out[:from], out[from+1:]...)
		rest := append(out[:to:to], moved)
		out = append(rest, out[to:]...)
	}
	for i := range out {
		out[i].Order = i
	}
	return out
}
