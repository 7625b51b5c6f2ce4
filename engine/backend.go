package engine

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Backend executes transformations against device-resident statevectors.
// Device buffers are owned by the caller; both implementations must
// produce bit-identical amplitudes for the same transform.
type Backend interface {
	Name() string

	// Alloc returns a zeroed device buffer of the given length.
	Alloc(n int) []complex128

	HostToDevice(host, dev []complex128)
	DeviceToHost(dev, host []complex128)

	// SetBasisState writes the pure state |idx> into the device buffer.
	SetBasisState(dev []complex128, idx int)

	// Apply runs y = T x on device buffers.
	Apply(t Transform, x, y []complex128) error
}

// Backend names accepted by New.
const (
	BackendCPU      = "cpu"
	BackendParallel = "parallel"
)

// New returns the backend with the given name. An empty name selects the
// default: the parallel backend, falling back to CPU when only one
// processor is available.
func New(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendCPU:
		return NewCPU(), nil
	case BackendParallel:
		return NewParallel(0), nil
	case "":
		return Default(), nil
	}
	return nil, fmt.Errorf("engine: unknown backend %q", name)
}

// Default picks the best available backend.
func Default() Backend {
	b := NewParallel(0)
	if b.workers <= 1 {
		log.Debug("engine: single processor detected, using cpu backend")
		return NewCPU()
	}
	return b
}
