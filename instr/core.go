// Package instr decodes protocol messages into validated register
// instructions and decomposes function blocks into core gate sequences.
package instr

import (
	"fmt"
	"math/bits"

	"github.com/quforge/qusim/gate"
	"github.com/quforge/qusim/qasm"
)

// ValidationError marks a malformed or inconsistent instruction. It is
// reported back to the client rather than failing the session.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("instr: invalid %s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Core is a directly executable register instruction.
type Core struct {
	Kind   int // message ID
	Handle int

	// allocate
	QN int

	// state set
	StIdx  int
	StVals []complex128

	// transform
	FType    qasm.FType
	FSize    int
	FRep     int
	FLSQ     int
	FCRange  qasm.IndexRange
	FTRange  qasm.IndexRange
	FUType   qasm.FType
	FUCRange qasm.IndexRange
	FUTRange qasm.IndexRange
	FArgs    []float64

	// measure
	MQIdx int
	MQLen int
	MRand bool
	MColl bool

	// expectation
	ExQIdx  int
	ExQLen  int
	ExObsOp int
	ExStIdx int
}

// IsCore reports whether the message carries a core instruction,
// including non-gate register operations.
func IsCore(msg *qasm.Message) bool {
	switch msg.ID {
	case qasm.MsgIDQregAllocate, qasm.MsgIDQregRelease, qasm.MsgIDQregReset,
		qasm.MsgIDQregSet, qasm.MsgIDQregPeek, qasm.MsgIDQregMeasure,
		qasm.MsgIDQregExpect:
		return true
	case qasm.MsgIDQregTransform:
		f, err := msg.ParamFType(qasm.TagFType)
		return err == nil && f.IsGate()
	}
	return false
}

// IsBlock reports whether the message carries a function block transform.
func IsBlock(msg *qasm.Message) bool {
	if msg.ID != qasm.MsgIDQregTransform {
		return false
	}
	f, err := msg.ParamFType(qasm.TagFType)
	return err == nil && f.IsBlock()
}

// IsQML reports whether the message carries a QML block transform.
func IsQML(msg *qasm.Message) bool {
	if msg.ID != qasm.MsgIDQregTransform {
		return false
	}
	f, err := msg.ParamFType(qasm.TagFType)
	return err == nil && f.IsQML()
}

// ParseCore decodes and validates a core instruction message.
func ParseCore(msg *qasm.Message) (*Core, error) {
	c := &Core{Kind: msg.ID, StIdx: -1, ExStIdx: -1}
	var err error

	switch msg.ID {
	case qasm.MsgIDQregAllocate:
		if c.QN, err = msg.ParamInt(qasm.TagQregQn); err != nil {
			return nil, err
		}
		if c.QN < 1 {
			return nil, invalid(qasm.TagQregQn, "qubit count %d", c.QN)
		}

	case qasm.MsgIDQregRelease, qasm.MsgIDQregReset, qasm.MsgIDQregPeek:
		if c.Handle, err = msg.ParamInt(qasm.TagQregH); err != nil {
			return nil, err
		}

	case qasm.MsgIDQregSet:
		if c.Handle, err = msg.ParamInt(qasm.TagQregH); err != nil {
			return nil, err
		}
		switch {
		case msg.HasParam(qasm.TagQregStIdx):
			if c.StIdx, err = msg.ParamInt(qasm.TagQregStIdx); err != nil {
				return nil, err
			}
			if c.StIdx < 0 {
				return nil, invalid(qasm.TagQregStIdx, "state index %d", c.StIdx)
			}
		case msg.HasParam(qasm.TagQregStVals):
			if c.StVals, err = msg.ParamStates(qasm.TagQregStVals); err != nil {
				return nil, err
			}
			if len(c.StVals) == 0 {
				return nil, invalid(qasm.TagQregStVals, "empty state vector")
			}
		default:
			return nil, invalid(qasm.TagQregStIdx, "state set without index or values")
		}

	case qasm.MsgIDQregTransform:
		if err = c.parseTransform(msg); err != nil {
			return nil, err
		}

	case qasm.MsgIDQregMeasure:
		if c.Handle, err = msg.ParamInt(qasm.TagQregH); err != nil {
			return nil, err
		}
		if c.MQIdx, err = msg.ParamInt(qasm.TagQregMQIdx); err != nil {
			return nil, err
		}
		if c.MQLen, err = msg.ParamInt(qasm.TagQregMQLen); err != nil {
			return nil, err
		}
		if c.MRand, err = msg.ParamBool(qasm.TagQregMRand); err != nil {
			return nil, err
		}
		if c.MColl, err = msg.ParamBool(qasm.TagQregMColl); err != nil {
			return nil, err
		}

	case qasm.MsgIDQregExpect:
		if c.Handle, err = msg.ParamInt(qasm.TagQregH); err != nil {
			return nil, err
		}
		if c.ExQIdx, err = msg.ParamInt(qasm.TagQregExQIdx); err != nil {
			return nil, err
		}
		if c.ExQLen, err = msg.ParamInt(qasm.TagQregExQLen); err != nil {
			return nil, err
		}
		if c.ExObsOp, err = msg.ParamInt(qasm.TagQregExObsOp); err != nil {
			return nil, err
		}
		if c.ExStIdx, err = msg.ParamIntDefault(qasm.TagQregExStIdx, -1); err != nil {
			return nil, err
		}

	default:
		return nil, invalid("id", "unsupported instruction %d", msg.ID)
	}
	return c, nil
}

func (c *Core) parseTransform(msg *qasm.Message) error {
	var err error
	if c.Handle, err = msg.ParamInt(qasm.TagQregH); err != nil {
		return err
	}
	if c.FType, err = msg.ParamFType(qasm.TagFType); err != nil {
		return err
	}
	if c.FSize, err = msg.ParamInt(qasm.TagFSize); err != nil {
		return err
	}
	if c.FRep, err = msg.ParamInt(qasm.TagFRep); err != nil {
		return err
	}
	if c.FLSQ, err = msg.ParamInt(qasm.TagFLSQ); err != nil {
		return err
	}
	c.FCRange, c.FTRange = qasm.NullRange, qasm.NullRange
	if msg.HasParam(qasm.TagFCRange) {
		if c.FCRange, err = msg.ParamRange(qasm.TagFCRange); err != nil {
			return err
		}
	}
	if msg.HasParam(qasm.TagFTRange) {
		if c.FTRange, err = msg.ParamRange(qasm.TagFTRange); err != nil {
			return err
		}
	}
	c.FUType = qasm.FTypeNull
	if msg.HasParam(qasm.TagFUType) {
		if c.FUType, err = msg.ParamFType(qasm.TagFUType); err != nil {
			return err
		}
	}
	c.FUCRange, c.FUTRange = qasm.NullRange, qasm.NullRange
	if msg.HasParam(qasm.TagFArgs) {
		if c.FArgs, err = msg.ParamArgs(qasm.TagFArgs); err != nil {
			return err
		}
	}
	return c.Validate()
}

// Validate checks transform field consistency per gate class.
func (c *Core) Validate() error {
	if c.Kind != qasm.MsgIDQregTransform {
		return nil
	}
	if c.FRep < 1 {
		return invalid(qasm.TagFRep, "repetition count %d", c.FRep)
	}
	if c.FLSQ < 0 {
		return invalid(qasm.TagFLSQ, "LSQ offset %d", c.FLSQ)
	}

	switch {
	case c.FType.IsOneQubit():
		if c.FSize != 2 {
			return invalid(qasm.TagFSize, "%d for 1-qubit gate", c.FSize)
		}

	case c.FType.IsTwoQubit():
		if c.FSize != 4 {
			return invalid(qasm.TagFSize, "%d for 2-qubit gate", c.FSize)
		}
		if c.FCRange.IsEmpty() || c.FTRange.IsEmpty() {
			return invalid(qasm.TagFCRange, "missing control or target range")
		}
		if c.FCRange.Width() != 1 || c.FTRange.Width() != 1 {
			return invalid(qasm.TagFCRange, "2-qubit gate ranges must be single qubits")
		}
		if c.FCRange.Start != c.FTRange.Start+1 && c.FTRange.Start != c.FCRange.Start+1 {
			return invalid(qasm.TagFTRange, "2-qubit gate qubits must be adjacent")
		}
		if c.FType == qasm.FTypeCU && !c.FUType.IsOneQubit() {
			return invalid(qasm.TagFUType, "controlled-U base must be a 1-qubit gate")
		}

	case c.FType.IsNQubit():
		if c.FSize < 4 || bits.OnesCount(uint(c.FSize)) != 1 {
			return invalid(qasm.TagFSize, "%d for n-qubit gate", c.FSize)
		}
		if c.FCRange.IsEmpty() || c.FTRange.IsEmpty() {
			return invalid(qasm.TagFCRange, "missing control or target range")
		}
		baseQn := 1
		if c.FType == qasm.FTypeMCSLRU {
			switch {
			case c.FUType.IsOneQubit():
				baseQn = 1
			case c.FUType.IsTwoQubit():
				baseQn = 2
			default:
				return invalid(qasm.TagFUType, "multi-controlled base must be a 1- or 2-qubit gate")
			}
		}
		if c.FTRange.Width() != baseQn {
			return invalid(qasm.TagFTRange, "target range spans %d qubits, base gate needs %d",
				c.FTRange.Width(), baseQn)
		}
		fn := bits.Len(uint(c.FSize)) - 1
		form := gate.FormFromRanges(c.FCRange, c.FTRange)
		gapn := gate.GapFromRanges(form, c.FCRange, c.FTRange)
		if gapn < 0 {
			return invalid(qasm.TagFTRange, "overlapping control and target ranges")
		}
		if fn-baseQn-gapn < 1 {
			return invalid(qasm.TagFSize, "no room for control qubits in %d-qubit gate", fn)
		}

	default:
		return invalid(qasm.TagFType, "unknown gate type %d", int(c.FType))
	}
	return nil
}

// GateSpec builds the executable gate factor for a transform instruction.
func (c *Core) GateSpec() (gate.Spec, error) {
	if err := c.Validate(); err != nil {
		return gate.Spec{}, err
	}
	switch {
	case c.FType.IsOneQubit():
		return gate.OneQubit(c.FType, c.FArgs...), nil

	case c.FType.IsTwoQubit():
		var base *gate.Spec
		if c.FType == qasm.FTypeCU {
			b := gate.OneQubit(c.FUType, c.FArgs...)
			base = &b
		}
		return gate.TwoQubit(c.FType, c.FCRange, c.FTRange, base, c.FArgs...), nil

	case c.FType.IsNQubit():
		form := gate.FormFromRanges(c.FCRange, c.FTRange)
		gapn := gate.GapFromRanges(form, c.FCRange, c.FTRange)
		if c.FType == qasm.FTypeCCX {
			return gate.NQubit(qasm.FTypeCCX, c.FSize, form, gapn, nil), nil
		}
		var base gate.Spec
		if c.FUType.IsOneQubit() {
			base = gate.OneQubit(c.FUType, c.FArgs...)
		} else {
			ucr, utr := c.FUCRange, c.FUTRange
			if ucr.IsEmpty() || utr.IsEmpty() {
				// local layout of the base gate inside the target range
				ucr, utr = qasm.NewRange(1, 1), qasm.NewRange(0, 0)
			}
			b := gate.TwoQubit(c.FUType, ucr, utr, nil, c.FArgs...)
			base = b
		}
		return gate.NQubit(qasm.FTypeMCSLRU, c.FSize, form, gapn, &base), nil
	}
	return gate.Spec{}, invalid(qasm.TagFType, "not a gate type: %d", int(c.FType))
}
