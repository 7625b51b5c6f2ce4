// Package gate computes transformation matrix elements on demand.
// Matrices are never materialized: each gate is a function from a
// (row, column) pair to a complex coefficient, so arbitrarily wide
// tensor factors stay O(1) in memory.
package gate

import (
	"math"
	"math/bits"
	"math/cmplx"

	"github.com/charmbracelet/log"

	"github.com/quforge/qusim/qasm"
)

// Form tells on which side of the target qubits the controls sit.
type Form int

const (
	FormNull    Form = -1
	FormDirect  Form = 0 // controls above targets (higher qubit indexes)
	FormInverse Form = 1 // controls below targets
)

func (f Form) String() string {
	switch f {
	case FormDirect:
		return "direct"
	case FormInverse:
		return "inverse"
	}
	return "null"
}

// FormFromRanges derives the form from control and target qubit ranges.
func FormFromRanges(crng, trng qasm.IndexRange) Form {
	if crng.Start > trng.Stop {
		return FormDirect
	}
	return FormInverse
}

// GapFromRanges derives the number of idle qubits between the control and
// target ranges.
func GapFromRanges(form Form, crng, trng qasm.IndexRange) int {
	if form == FormDirect {
		return crng.Start - trng.Stop - 1
	}
	return trng.Start - crng.Stop - 1
}

// Spec describes one tensor factor: a concrete gate or an identity filler.
// Controlled kinds carry the base transformation in Base.
type Spec struct {
	Kind qasm.FType
	Size int // matrix dimension, 2^qubits
	Args []float64

	// controlled gate layout
	Form Form
	GapN int
	Base *Spec
}

// Identity returns an identity filler factor of the given dimension.
func Identity(size int) Spec {
	return Spec{Kind: qasm.FTypeI, Size: size}
}

// OneQubit returns a 1-qubit gate factor.
func OneQubit(kind qasm.FType, args ...float64) Spec {
	return Spec{Kind: kind, Size: 2, Args: args}
}

// Qubits returns the qubit span of the factor.
func (s *Spec) Qubits() int {
	return bits.Len(uint(s.Size)) - 1
}

// BaseQubits returns the qubit span of the controlled base gate.
func (s *Spec) BaseQubits() int {
	switch {
	case s.Kind == qasm.FTypeCCX:
		return 1
	case s.Base == nil:
		return 0
	default:
		return s.Base.Qubits()
	}
}

// Element returns the matrix element at row i, column j.
func (s *Spec) Element(i, j int) complex128 {
	switch {
	case s.Kind == qasm.FTypeI:
		if i == j {
			return 1
		}
		return 0
	case s.Kind.IsOneQubit():
		return element1Q(s.Kind, i, j, s.Args)
	case s.Kind.IsTwoQubit():
		return s.elementCU(i, j)
	case s.Kind.IsNQubit():
		return s.elementMCU(i, j)
	}
	log.Error("gate: element request for non-gate kind", "kind", s.Kind)
	return 0
}

const sqrt2Inv = 1 / math.Sqrt2

// element1Q computes a 1-qubit gate element for i, j in {0, 1}.
func element1Q(kind qasm.FType, i, j int, args []float64) complex128 {
	switch kind {
	case qasm.FTypeI:
		if i == j {
			return 1
		}
		return 0

	case qasm.FTypeH:
		if j < 1 {
			return complex(sqrt2Inv, 0)
		}
		return complex(powM1(i)*sqrt2Inv, 0)

	case qasm.FTypeX:
		if i == j {
			return 0
		}
		return 1

	case qasm.FTypeY:
		if i == j {
			return 0
		}
		return complex(0, powM1(i+1))

	case qasm.FTypeZ:
		if i != j {
			return 0
		}
		return complex(powM1(i), 0)

	case qasm.FTypeSX:
		if i == j {
			return complex(0.5, 0.5)
		}
		return complex(0.5, -0.5)

	case qasm.FTypePS:
		return phaseShift(i, j, args)

	case qasm.FTypeS:
		return phaseShift(i, j, []float64{math.Pi / 2})

	case qasm.FTypeT:
		return phaseShift(i, j, []float64{math.Pi / 4})

	case qasm.FTypeRx:
		phi := argAt(args, 0)
		if i == j {
			return complex(math.Cos(phi/2), 0)
		}
		return complex(0, -math.Sin(phi/2))

	case qasm.FTypeRy:
		phi := argAt(args, 0)
		if i == j {
			return complex(math.Cos(phi/2), 0)
		}
		return complex(powM1(i+1)*math.Sin(phi/2), 0)

	case qasm.FTypeRz:
		phi := argAt(args, 0)
		if i != j {
			return 0
		}
		return cmplx.Exp(complex(0, powM1(i+1)*phi/2))
	}
	log.Error("gate: unhandled 1-qubit kind", "kind", kind)
	return 0
}

func phaseShift(i, j int, args []float64) complex128 {
	if i != j {
		return 0
	}
	if i == 0 {
		return 1
	}
	if len(args) < 1 {
		log.Error("gate: phase shift without angle argument")
		return 0
	}
	return cmplx.Exp(complex(0, args[0]))
}

// powM1 returns (-1)^n as a float.
func powM1(n int) float64 {
	if n%2 == 0 {
		return 1
	}
	return -1
}

func argAt(args []float64, idx int) float64 {
	if idx < len(args) {
		return args[idx]
	}
	return 0
}
