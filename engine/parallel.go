package engine

import (
	"runtime"
	"sync"
)

// Parallel fans the output index space out over a fixed worker count.
// Each output amplitude is computed independently with the same
// arithmetic as the CPU backend, in the same per-index order, so the
// results are bit-identical.
type Parallel struct {
	workers int
}

// NewParallel returns a parallel backend with the given worker count;
// zero selects one worker per processor.
func NewParallel(workers int) *Parallel {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Parallel{workers: workers}
}

func (p *Parallel) Name() string { return BackendParallel }

func (p *Parallel) Alloc(n int) []complex128 {
	return make([]complex128, n)
}

func (p *Parallel) HostToDevice(host, dev []complex128) {
	copy(dev, host)
}

func (p *Parallel) DeviceToHost(dev, host []complex128) {
	copy(host, dev)
}

func (p *Parallel) SetBasisState(dev []complex128, idx int) {
	for i := range dev {
		dev[i] = 0
	}
	dev[idx] = 1
}

func (p *Parallel) Apply(t Transform, x, y []complex128) error {
	n := len(y)
	workers := p.workers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= n {
			break
		}
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			applyRange(t, x, y, lo, hi)
		}(lo, hi)
	}
	wg.Wait()
	return nil
}
