// Package qreg implements the simulated quantum register: a dense
// statevector with a host copy and two device buffers, transformed
// through an engine backend.
package qreg

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/charmbracelet/log"

	"github.com/quforge/qusim/engine"
	"github.com/quforge/qusim/gate"
)

const (
	// MaxQubits bounds register allocation; 2^30 amplitudes is already
	// 16 GiB of complex128.
	MaxQubits = 30

	// PeekMaxQubits is the soft limit above which full state readout is
	// refused.
	PeekMaxQubits = 10

	// MeasureMaxIndexQubits is the soft limit on remaining (unmeasured)
	// qubits above which the collapsed index list is suppressed.
	MeasureMaxIndexQubits = 20
)

// syncState tracks whether the host copy lags the device state.
// Transforms run device-side only; readout syncs on demand.
type syncState struct {
	dirty bool
}

func (s *syncState) Mark()           { s.dirty = true }
func (s *syncState) Clear()          { s.dirty = false }
func (s *syncState) NeedsSync() bool { return s.dirty }

// Register is a simulated qubit register.
type Register struct {
	totQubits int
	totStates int

	host []complex128
	devA []complex128
	devB []complex128
	// aActive marks which device buffer holds the current state; the
	// other one is the transform scratch target.
	aActive bool

	backend engine.Backend
	sync    syncState

	// rnd supplies measurement randomness; replaceable in tests.
	rnd func() float64
}

// New allocates a register of qn qubits in the |0...0> state.
func New(qn int, backend engine.Backend) (*Register, error) {
	if qn < 1 || qn > MaxQubits {
		return nil, fmt.Errorf("qreg: invalid qubit count %d", qn)
	}
	n := 1 << qn
	r := &Register{
		totQubits: qn,
		totStates: n,
		host:      make([]complex128, n),
		devA:      backend.Alloc(n),
		devB:      backend.Alloc(n),
		aActive:   true,
		backend:   backend,
		rnd:       rand.Float64,
	}
	r.backend.SetBasisState(r.active(), 0)
	r.forceSync()
	return r, nil
}

func (r *Register) TotQubits() int { return r.totQubits }
func (r *Register) TotStates() int { return r.totStates }

func (r *Register) active() []complex128 {
	if r.aActive {
		return r.devA
	}
	return r.devB
}

func (r *Register) scratch() []complex128 {
	if r.aActive {
		return r.devB
	}
	return r.devA
}

func (r *Register) swap() {
	r.aActive = !r.aActive
}

// forceSync pulls the device state into the host copy.
func (r *Register) forceSync() {
	r.backend.DeviceToHost(r.active(), r.host)
	r.sync.Clear()
}

func (r *Register) syncIfNeeded() {
	if r.sync.NeedsSync() {
		r.forceSync()
	}
}

// Reset returns the register to the |0...0> state.
func (r *Register) Reset() error {
	r.backend.SetBasisState(r.active(), 0)
	r.forceSync()
	return nil
}

// SetPure sets the register to the basis state |idx>.
func (r *Register) SetPure(idx int) error {
	if idx < 0 || idx >= r.totStates {
		return fmt.Errorf("qreg: state index %d out of range [0, %d)", idx, r.totStates)
	}
	r.backend.SetBasisState(r.active(), idx)
	r.forceSync()
	return nil
}

// SetStates sets the register to an arbitrary amplitude vector. The
// caller is responsible for normalization.
func (r *Register) SetStates(vals []complex128) error {
	if len(vals) != r.totStates {
		return fmt.Errorf("qreg: state vector length %d, want %d", len(vals), r.totStates)
	}
	copy(r.host, vals)
	r.backend.HostToDevice(r.host, r.active())
	r.sync.Clear()
	return nil
}

// Peek returns a copy of the current amplitudes. Registers wider than
// PeekMaxQubits return an empty vector with a logged warning.
func (r *Register) Peek() ([]complex128, error) {
	if r.totQubits > PeekMaxQubits {
		log.Warn("qreg: state readout suppressed for wide register",
			"qubits", r.totQubits, "max", PeekMaxQubits)
		return nil, nil
	}
	r.syncIfNeeded()
	out := make([]complex128, r.totStates)
	copy(out, r.host)
	return out, nil
}

// Transform applies a gate at LSQ offset flsq, repeated frep times in a
// contiguous ladder, to the device state.
func (r *Register) Transform(g gate.Spec, frep, flsq int) error {
	if frep < 1 || flsq < 0 {
		return fmt.Errorf("qreg: invalid repetition %d or LSQ offset %d", frep, flsq)
	}
	span := math.Pow(float64(g.Size), float64(frep))
	if span > float64(r.totStates) {
		return fmt.Errorf("qreg: gate span %d^%d exceeds register size %d", g.Size, frep, r.totStates)
	}
	if span+math.Pow(2, float64(flsq))-1 > float64(r.totStates) {
		return fmt.Errorf("qreg: gate span %d^%d at LSQ offset %d exceeds register size %d",
			g.Size, frep, flsq, r.totStates)
	}

	tr, err := engine.GapFill(r.totQubits, g, frep, flsq)
	if err != nil {
		return err
	}
	if err := r.backend.Apply(tr, r.active(), r.scratch()); err != nil {
		return err
	}
	r.swap()
	r.sync.Mark()
	return nil
}

// Dump logs the first few amplitudes, for diagnostics.
func (r *Register) Dump(maxStates int) {
	r.syncIfNeeded()
	if maxStates > r.totStates {
		maxStates = r.totStates
	}
	log.Debug("qreg state dump", "qubits", r.totQubits, "states", r.totStates)
	for i := 0; i < maxStates; i++ {
		log.Debug(fmt.Sprintf("  |%0*b>", r.totQubits, i), "amp", r.host[i])
	}
}
