package engine

// CPU is the sequential reference backend. Its output defines the
// expected result for every other backend.
type CPU struct{}

func NewCPU() *CPU {
	return &CPU{}
}

func (c *CPU) Name() string { return BackendCPU }

func (c *CPU) Alloc(n int) []complex128 {
	return make([]complex128, n)
}

func (c *CPU) HostToDevice(host, dev []complex128) {
	copy(dev, host)
}

func (c *CPU) DeviceToHost(dev, host []complex128) {
	copy(host, dev)
}

func (c *CPU) SetBasisState(dev []complex128, idx int) {
	for i := range dev {
		dev[i] = 0
	}
	dev[idx] = 1
}

func (c *CPU) Apply(t Transform, x, y []complex128) error {
	applyRange(t, x, y, 0, len(y))
	return nil
}
