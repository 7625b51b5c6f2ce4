package qreg

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
)

// MeasureResult carries the outcome of a register measurement.
type MeasureResult struct {
	// State is the measured outcome over the measured qubit range.
	State int
	// Prob is the probability of that outcome before collapse.
	Prob float64
	// Collapsed lists the full-register basis states consistent with the
	// outcome after collapse; empty when collapse is off or the register
	// remainder exceeds the index list limit.
	Collapsed []int
}

// subIndex extracts the measured qubit range value from a basis state.
func subIndex(st, qIdx, qLen int) int {
	return (st >> qIdx) & ((1 << qLen) - 1)
}

// Measure measures qLen qubits starting at qIdx. A negative qIdx selects
// the whole register. With doRand the outcome is sampled; otherwise the
// most probable outcome is taken. With collapse the state is projected
// onto the outcome and renormalized.
func (r *Register) Measure(qIdx, qLen int, doRand, collapse bool) (MeasureResult, error) {
	if qIdx < 0 {
		qIdx = 0
		qLen = r.totQubits
	}
	if qLen < 1 || qIdx+qLen > r.totQubits {
		return MeasureResult{}, fmt.Errorf("qreg: measurement range [%d, %d) outside register of %d qubits",
			qIdx, qIdx+qLen, r.totQubits)
	}

	r.syncIfNeeded()

	// outcome probabilities over the measured range
	probs := make([]float64, 1<<qLen)
	for st, amp := range r.host {
		p := real(amp)*real(amp) + imag(amp)*imag(amp)
		probs[subIndex(st, qIdx, qLen)] += p
	}

	var mSt int
	var mPr float64
	if doRand {
		mSt, mPr = selectRandom(probs, r.rnd())
	} else {
		mSt, mPr = selectMax(probs)
	}

	res := MeasureResult{State: mSt, Prob: mPr}
	if !collapse {
		return res, nil
	}

	// project onto the outcome and renormalize
	withIndexes := r.totQubits-qLen <= MeasureMaxIndexQubits
	if !withIndexes {
		log.Warn("qreg: collapsed index list suppressed for wide register remainder",
			"remainder", r.totQubits-qLen, "max", MeasureMaxIndexQubits)
	}
	norm := math.Sqrt(mPr)
	for st := range r.host {
		if subIndex(st, qIdx, qLen) == mSt {
			if norm > 0 {
				r.host[st] /= complex(norm, 0)
			}
			if withIndexes {
				res.Collapsed = append(res.Collapsed, st)
			}
		} else {
			r.host[st] = 0
		}
	}
	r.backend.HostToDevice(r.host, r.active())
	r.sync.Clear()
	return res, nil
}

// selectRandom picks an outcome from a probability vector and a uniform
// draw: among outcomes with probability at or above the draw, the one
// with the smallest such probability wins; outcome 0 is the fallback.
// Callers depend on this exact scan order.
func selectRandom(probs []float64, draw float64) (int, float64) {
	st := 0
	pr := probs[0]
	for i := 1; i < len(probs); i++ {
		if probs[i] >= draw && probs[i] < pr {
			st = i
			pr = probs[i]
		}
	}
	return st, pr
}

// selectMax picks the most probable outcome.
func selectMax(probs []float64) (int, float64) {
	st := 0
	pr := probs[0]
	for i := 1; i < len(probs); i++ {
		if probs[i] > pr {
			st = i
			pr = probs[i]
		}
	}
	return st, pr
}
