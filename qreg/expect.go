package qreg

import (
	"fmt"

	"github.com/quforge/qusim/qasm"
)

// obsEigen maps an observable operator to its single-qubit eigenvalue
// pair, indexed by basis bit.
func obsEigen(obsOp int) ([2]float64, error) {
	switch obsOp {
	case qasm.ObsOpComp:
		return [2]float64{0, 1}, nil
	case qasm.ObsOpPauliZ:
		return [2]float64{1, -1}, nil
	}
	return [2]float64{}, fmt.Errorf("qreg: unknown observable operator %d", obsOp)
}

// Expectation computes the expectation value of a per-qubit observable
// over qLen qubits starting at qIdx, as if the single-qubit eigenvalue
// pair were Kronecker-extended with identity fillers over the rest of
// the register. A negative qIdx selects the whole register; a
// non-negative stIdx restricts the sum to basis states whose measured
// sub-range equals stIdx.
func (r *Register) Expectation(qIdx, qLen, obsOp, stIdx int) (float64, error) {
	if qIdx < 0 {
		qIdx = 0
		qLen = r.totQubits
	}
	if qLen < 1 || qIdx+qLen > r.totQubits {
		return 0, fmt.Errorf("qreg: expectation range [%d, %d) outside register of %d qubits",
			qIdx, qIdx+qLen, r.totQubits)
	}
	if stIdx >= 1<<qLen {
		return 0, fmt.Errorf("qreg: expectation state index %d out of range for %d qubits", stIdx, qLen)
	}
	eigen, err := obsEigen(obsOp)
	if err != nil {
		return 0, err
	}

	r.syncIfNeeded()

	exp := 0.0
	for st, amp := range r.host {
		sub := subIndex(st, qIdx, qLen)
		if stIdx >= 0 && sub != stIdx {
			continue
		}
		// eigenvalue of the extended observable on this basis state
		ev := 1.0
		for q := 0; q < qLen; q++ {
			ev *= eigen[(sub>>q)&1]
		}
		p := real(amp)*real(amp) + imag(amp)*imag(amp)
		exp += ev * p
	}
	return exp, nil
}
