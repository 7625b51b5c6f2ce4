// Package engine applies tensor-structured transformations to dense
// statevectors. Gates are expanded to full register width implicitly,
// through a factor list evaluated element by element, and executed by a
// pluggable backend.
package engine

import (
	"fmt"
	"math/cmplx"

	"github.com/quforge/qusim/gate"
)

// evalEps is the early-exit threshold for tensor element accumulation.
// A zero factor element forces the whole coefficient to zero, so the
// remaining factors need not be visited.
const evalEps = 1e-21

// Transform is a gate expanded to full register width: the ordered factor
// list (most significant qubit first) plus the bounds the kernels need.
type Transform struct {
	Factors []gate.Spec
	Span    int // qubits covered by gate repetitions plus LSQ offset
	LSQ     int
}

// GapFill expands a gate into the register-wide factor list
// [identity filler | gate x frep | identity filler]. The gate occupies
// qubits [flsq, flsq + n*frep), identities pad the rest.
func GapFill(totQubits int, g gate.Spec, frep, flsq int) (Transform, error) {
	qSize := 1 << totQubits
	if g.Size > qSize {
		return Transform{}, fmt.Errorf("engine: gate size %d exceeds register size %d", g.Size, qSize)
	}
	fn := g.Qubits()
	fmsq := flsq + fn*frep - 1
	if 1<<fmsq >= qSize {
		return Transform{}, fmt.Errorf("engine: gate span [%d..%d] exceeds register of %d qubits", flsq, fmsq, totQubits)
	}

	factors := make([]gate.Spec, 0, frep+2)
	if fmsq < totQubits-1 {
		factors = append(factors, gate.Identity(1<<(totQubits-fmsq-1)))
	}
	for r := 0; r < frep; r++ {
		factors = append(factors, g)
	}
	if flsq > 0 {
		factors = append(factors, gate.Identity(1<<flsq))
	}
	return Transform{Factors: factors, Span: fn*frep + flsq, LSQ: flsq}, nil
}

// Eval computes the (i, j) element of the full transformation matrix as
// the product of per-factor elements, walking factors from the least
// significant end and peeling qubit groups off the running indexes.
func Eval(i, j int, factors []gate.Spec) complex128 {
	acc := complex128(1)
	ik, jk := i, j
	for k := len(factors) - 1; k >= 0; k-- {
		f := &factors[k]
		acc *= f.Element(ik%f.Size, jk%f.Size)
		if cmplx.Abs(acc) < evalEps {
			return 0
		}
		ik /= f.Size
		jk /= f.Size
	}
	return acc
}

// applyRange computes y[idx] for idx in [lo, hi) against input x. The
// tensor structure bounds the contributing inputs: only indexes inside
// the same outer block, congruent modulo the inner filler size, can
// couple to an output.
func applyRange(t Transform, x, y []complex128, lo, hi int) {
	n := len(x)
	maxBlock := 1 << t.Span
	kStep := 1 << t.LSQ
	for idx := lo; idx < hi; idx++ {
		kStart := (idx / maxBlock) * maxBlock
		kStop := kStart + maxBlock - 1
		if kStop > n-1 {
			kStop = n - 1
		}
		var acc complex128
		for k := kStart; k <= kStop; k++ {
			if k%kStep != idx%kStep {
				continue
			}
			if c := Eval(idx, k, t.Factors); c != 0 {
				acc += c * x[k]
			}
		}
		y[idx] = acc
	}
}
