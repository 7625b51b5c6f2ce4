package instr

import (
	"github.com/quforge/qusim/qasm"
)

// QML is a machine-learning circuit block: a feature map encoding a
// datapoint vector, or a parameterized network ansatz. Both decompose
// into core gate sequences.
type QML struct {
	Kind    qasm.FType
	Handle  int
	Rep     int
	Entang  int
	SubType int
	FArgs   []float64
}

// ParseQML decodes and validates a QML block message.
func ParseQML(msg *qasm.Message) (*QML, error) {
	q := &QML{}
	var err error
	if q.Handle, err = msg.ParamInt(qasm.TagQregH); err != nil {
		return nil, err
	}
	if q.Kind, err = msg.ParamFType(qasm.TagFType); err != nil {
		return nil, err
	}
	if q.Rep, err = msg.ParamInt(qasm.TagQMLRep); err != nil {
		return nil, err
	}
	if q.Entang, err = msg.ParamInt(qasm.TagQMLEntang); err != nil {
		return nil, err
	}
	subtypeTag := qasm.TagQMLSubtype
	if q.Kind == qasm.FTypeQMLQNet {
		subtypeTag = qasm.TagQMLQNetType
	}
	if q.SubType, err = msg.ParamInt(subtypeTag); err != nil {
		return nil, err
	}
	if q.FArgs, err = msg.ParamArgs(qasm.TagFArgs); err != nil {
		return nil, err
	}
	if err = q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate checks QML block field consistency.
func (q *QML) Validate() error {
	if q.Rep < 1 {
		return invalid(qasm.TagQMLRep, "repetition count %d", q.Rep)
	}
	if q.Entang != qasm.EntangLinear && q.Entang != qasm.EntangCircular {
		return invalid(qasm.TagQMLEntang, "unknown entanglement scheme %d", q.Entang)
	}
	if len(q.FArgs) == 0 {
		return invalid(qasm.TagFArgs, "empty argument vector")
	}
	switch q.Kind {
	case qasm.FTypeQMLFMap:
		if q.SubType != qasm.FMapPauliZ && q.SubType != qasm.FMapPauliZZ {
			return invalid(qasm.TagQMLSubtype, "unknown feature map subtype %d", q.SubType)
		}
	case qasm.FTypeQMLQNet:
		if q.SubType != qasm.QNetRealAmpl {
			return invalid(qasm.TagQMLQNetType, "unknown q-network layout %d", q.SubType)
		}
	default:
		return invalid(qasm.TagFType, "not a QML block: %d", int(q.Kind))
	}
	return nil
}

// Unwrap decomposes the block into core transforms. totQubits is the
// width of the target register, needed by the network ansatz layouts.
func (q *QML) Unwrap(totQubits int) ([]*Core, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	switch q.Kind {
	case qasm.FTypeQMLFMap:
		if q.SubType == qasm.FMapPauliZ {
			return q.featureMapPauliZ(), nil
		}
		return q.featureMapPauliZZ(), nil
	case qasm.FTypeQMLQNet:
		return q.qnetRealAmplitude(totQubits)
	}
	return nil, invalid(qasm.TagFType, "not a QML block: %d", int(q.Kind))
}

// oneQubitCore builds one 1-qubit transform at the given LSQ offset.
func (q *QML) oneQubitCore(ftype qasm.FType, frep, flsq int, args ...float64) *Core {
	return &Core{
		Kind:     qasm.MsgIDQregTransform,
		Handle:   q.Handle,
		FType:    ftype,
		FSize:    2,
		FRep:     frep,
		FLSQ:     flsq,
		FCRange:  qasm.NullRange,
		FTRange:  qasm.NullRange,
		FUType:   qasm.FTypeNull,
		FUCRange: qasm.NullRange,
		FUTRange: qasm.NullRange,
		FArgs:    args,
	}
}

// cxEntangler builds the controlled-X between qubits c and t, widening
// to a multi-controlled long-range gate when they are not adjacent.
func (q *QML) cxEntangler(c, t, flsq int) *Core {
	span := c - t
	if span < 0 {
		span = -span
	}
	core := &Core{
		Kind:     qasm.MsgIDQregTransform,
		Handle:   q.Handle,
		FType:    qasm.FTypeMCSLRU,
		FSize:    1 << (span + 1),
		FRep:     1,
		FLSQ:     flsq,
		FCRange:  qasm.NewRange(c, c),
		FTRange:  qasm.NewRange(t, t),
		FUType:   qasm.FTypeX,
		FUCRange: qasm.NullRange,
		FUTRange: qasm.NullRange,
	}
	return core
}

// featureMapPauliZ encodes the datapoint vector as phases: per
// repetition, an H ladder over all feature qubits followed by a phase
// shift of twice the feature value on each qubit.
func (q *QML) featureMapPauliZ() []*Core {
	n := len(q.FArgs)
	out := make([]*Core, 0, q.Rep*(n+1))
	for b := 0; b < q.Rep; b++ {
		out = append(out, q.oneQubitCore(qasm.FTypeH, n, 0))
		for i := 0; i < n; i++ {
			out = append(out, q.oneQubitCore(qasm.FTypePS, 1, i, 2*q.FArgs[i]))
		}
	}
	return out
}

// featureMapPauliZZ adds pairwise entanglement to the Pauli-Z encoding:
// a CX - PS - CX conjugation per qubit line, chained linearly or
// wrapped around circularly.
func (q *QML) featureMapPauliZZ() []*Core {
	n := len(q.FArgs)
	var out []*Core
	for b := 0; b < q.Rep; b++ {
		out = append(out, q.oneQubitCore(qasm.FTypeH, n, 0))
		for i := 0; i < n; i++ {
			out = append(out, q.oneQubitCore(qasm.FTypePS, 1, i, 2*q.FArgs[i]))
		}

		switch q.Entang {
		case qasm.EntangLinear:
			for i := 1; i < n; i++ {
				crng, trng := qasm.NewRange(i-1, i-1), qasm.NewRange(i, i)
				cx := &Core{
					Kind: qasm.MsgIDQregTransform, Handle: q.Handle,
					FType: qasm.FTypeCX, FSize: 4, FRep: 1, FLSQ: i - 1,
					FCRange: crng, FTRange: trng,
					FUType:   qasm.FTypeNull,
					FUCRange: qasm.NullRange, FUTRange: qasm.NullRange,
				}
				out = append(out, cx)
				out = append(out, q.oneQubitCore(qasm.FTypePS, 1, i, 2*q.FArgs[i]))
				cx2 := *cx
				out = append(out, &cx2)
			}

		case qasm.EntangCircular:
			for i := 0; i < n; i++ {
				wrap := func() *Core {
					if i == 0 {
						if n > 2 {
							// full-span wrap from the top qubit to qubit 0
							return q.cxEntangler(n-1, 0, 0)
						}
						return nil
					}
					cx := &Core{
						Kind: qasm.MsgIDQregTransform, Handle: q.Handle,
						FType: qasm.FTypeCX, FSize: 4, FRep: 1, FLSQ: i - 1,
						FCRange: qasm.NewRange(i-1, i-1), FTRange: qasm.NewRange(i, i),
						FUType:   qasm.FTypeNull,
						FUCRange: qasm.NullRange, FUTRange: qasm.NullRange,
					}
					return cx
				}
				if cx := wrap(); cx != nil {
					out = append(out, cx)
				}
				out = append(out, q.oneQubitCore(qasm.FTypePS, 1, i, 2*q.FArgs[i]))
				if cx := wrap(); cx != nil {
					out = append(out, cx)
				}
			}
		}
	}
	return out
}

// qnetRealAmplitude builds the real-amplitude ansatz: per repetition a
// parameterized Ry on every qubit followed by the entangler layer, plus
// a final Ry layer after the last repetition.
func (q *QML) qnetRealAmplitude(n int) ([]*Core, error) {
	if n < 2 {
		return nil, invalid(qasm.TagQregQn, "q-network needs at least 2 qubits, got %d", n)
	}
	need := (q.Rep + 1) * n
	if len(q.FArgs) < need {
		return nil, invalid(qasm.TagFArgs, "parameter vector has %d entries, layout needs %d",
			len(q.FArgs), need)
	}

	var out []*Core
	for b := 0; b < q.Rep; b++ {
		for i := 0; i < n; i++ {
			out = append(out, q.oneQubitCore(qasm.FTypeRy, 1, i, q.FArgs[i+b*n]))
		}

		for i := 0; i < n-1; i++ {
			c, t := i, i+1
			if q.Entang == qasm.EntangCircular {
				if i == 0 {
					c, t = n-1, 0
				} else {
					c, t = i-1, i
				}
			}
			out = append(out, q.cxEntangler(c, t, i))
		}

		if b == q.Rep-1 {
			for i := 0; i < n; i++ {
				out = append(out, q.oneQubitCore(qasm.FTypeRy, 1, i, q.FArgs[i+q.Rep*n]))
			}
		}
	}
	return out, nil
}
