package gate

import (
	"github.com/charmbracelet/log"

	"github.com/quforge/qusim/qasm"
)

// TwoQubit returns a 2-qubit controlled gate factor. For CU the base gate
// must be supplied; CX, CY and CZ carry their base implicitly.
func TwoQubit(kind qasm.FType, crng, trng qasm.IndexRange, base *Spec, args ...float64) Spec {
	form := FormFromRanges(crng, trng)
	return Spec{Kind: kind, Size: 4, Args: args, Form: form, Base: base}
}

// NQubit returns an n-qubit multi-controlled short/long-range gate factor.
// The base is a 1- or 2-qubit gate placed at the target range; gapn idle
// qubits separate it from the control block.
func NQubit(kind qasm.FType, size int, form Form, gapn int, base *Spec) Spec {
	return Spec{Kind: kind, Size: size, Form: form, GapN: gapn, Base: base}
}

// baseSpec resolves the controlled base gate for implicit-base kinds.
func (s *Spec) baseSpec() *Spec {
	switch s.Kind {
	case qasm.FTypeCX, qasm.FTypeCCX:
		return &Spec{Kind: qasm.FTypeX, Size: 2}
	case qasm.FTypeCY:
		return &Spec{Kind: qasm.FTypeY, Size: 2}
	case qasm.FTypeCZ:
		return &Spec{Kind: qasm.FTypeZ, Size: 2}
	}
	return s.Base
}

// elementCU computes a 2-qubit controlled-U element.
func (s *Spec) elementCU(i, j int) complex128 {
	base := s.baseSpec()
	if base == nil {
		log.Error("gate: controlled-U without base gate")
		return 0
	}
	if s.Form == FormInverse {
		// control on the least significant qubit
		if i%2 == 1 && j%2 == 1 && (i == j || i == j+2 || j == i+2) {
			return base.Element(i/2, j/2)
		}
		if i == j && (j == 0 || j == 2) {
			return 1
		}
		return 0
	}
	// direct form: control on the most significant qubit
	if i > 1 && j > 1 {
		return base.Element(i%2, j%2)
	}
	if i == j && j < 2 {
		return 1
	}
	return 0
}

// elementMCU computes an n-qubit multi-controlled base-U element. The
// factor is block diagonal: one block applies the base gate, the others
// are identities.
func (s *Spec) elementMCU(i, j int) complex128 {
	base := s.baseSpec()
	if base == nil {
		log.Error("gate: multi-controlled gate without base gate")
		return 0
	}
	gapn := s.GapN
	if s.Kind == qasm.FTypeCCX {
		gapn = 0
	}
	fuSize := base.Size

	if s.Form == FormInverse {
		fubSize := s.Size / fuSize
		fugbSize := fubSize >> gapn
		f1bSize := fugbSize
		fubi, fubj := i%fubSize, j%fubSize
		if fubi%fugbSize == fugbSize-1 && fubj%fugbSize == fugbSize-1 && fubi == fubj {
			return base.Element(i/fubSize, j/fubSize)
		}
		if i%f1bSize < f1bSize-1 && j%f1bSize < f1bSize-1 && i == j {
			return 1
		}
		return 0
	}

	// direct form
	fdbSize := fuSize
	totBlocks := s.Size / fdbSize
	totUBlocks := 1 << gapn
	fdbi, fdbj := i/fdbSize, j/fdbSize
	if fdbi >= totBlocks-totUBlocks && fdbj >= totBlocks-totUBlocks && fdbi == fdbj {
		return base.Element(i%fdbSize, j%fdbSize)
	}
	if fdbi < totBlocks-totUBlocks && fdbj < totBlocks-totUBlocks && i == j {
		return 1
	}
	return 0
}
