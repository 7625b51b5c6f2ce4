package instr

import (
	"math/bits"

	"github.com/quforge/qusim/gate"
	"github.com/quforge/qusim/qasm"
)

// Block is a function block transform: a swap or controlled swap that
// decomposes into a core gate sequence before execution.
type Block struct {
	Kind    qasm.FType
	Handle  int
	FSize   int
	FRep    int
	FLSQ    int
	FCRange qasm.IndexRange
	FTRange qasm.IndexRange
}

// ParseBlock decodes and validates a function block message.
func ParseBlock(msg *qasm.Message) (*Block, error) {
	b := &Block{}
	var err error
	if b.Handle, err = msg.ParamInt(qasm.TagQregH); err != nil {
		return nil, err
	}
	if b.Kind, err = msg.ParamFType(qasm.TagFType); err != nil {
		return nil, err
	}
	if b.FSize, err = msg.ParamInt(qasm.TagFSize); err != nil {
		return nil, err
	}
	if b.FRep, err = msg.ParamInt(qasm.TagFRep); err != nil {
		return nil, err
	}
	if b.FLSQ, err = msg.ParamInt(qasm.TagFLSQ); err != nil {
		return nil, err
	}
	b.FCRange, b.FTRange = qasm.NullRange, qasm.NullRange
	if msg.HasParam(qasm.TagFCRange) {
		if b.FCRange, err = msg.ParamRange(qasm.TagFCRange); err != nil {
			return nil, err
		}
	}
	if msg.HasParam(qasm.TagFTRange) {
		if b.FTRange, err = msg.ParamRange(qasm.TagFTRange); err != nil {
			return nil, err
		}
	}
	if err = b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks block field consistency per block kind.
func (b *Block) Validate() error {
	if b.FRep < 1 {
		return invalid(qasm.TagFRep, "repetition count %d", b.FRep)
	}
	if b.FLSQ < 0 {
		return invalid(qasm.TagFLSQ, "LSQ offset %d", b.FLSQ)
	}
	if b.FSize < 4 || bits.OnesCount(uint(b.FSize)) != 1 {
		return invalid(qasm.TagFSize, "%d for function block", b.FSize)
	}
	fbn := bits.Len(uint(b.FSize)) - 1

	switch b.Kind {
	case qasm.FTypeSwapQ1:
		if b.FSize != 4 {
			return invalid(qasm.TagFSize, "%d for 1-qubit swap", b.FSize)
		}
	case qasm.FTypeSwapQn:
		if fbn%2 != 0 {
			return invalid(qasm.TagFSize, "n-qubit swap needs an even qubit span, got %d", fbn)
		}
	case qasm.FTypeCSwapQ1, qasm.FTypeCSwapQn:
		if b.FCRange.IsEmpty() || b.FTRange.IsEmpty() {
			return invalid(qasm.TagFCRange, "missing control or target range")
		}
		form := gate.FormFromRanges(b.FCRange, b.FTRange)
		if gate.GapFromRanges(form, b.FCRange, b.FTRange) < 0 {
			return invalid(qasm.TagFTRange, "overlapping control and target ranges")
		}
	default:
		return invalid(qasm.TagFType, "not a function block: %d", int(b.Kind))
	}
	return nil
}

// Unwrap decomposes the block into core transform instructions.
func (b *Block) Unwrap() ([]*Core, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	switch b.Kind {
	case qasm.FTypeSwapQ1:
		return b.unwrapSwapQ1(), nil
	case qasm.FTypeSwapQn:
		return b.unwrapSwapQn(), nil
	case qasm.FTypeCSwapQ1:
		return b.unwrapCSwapQ1(), nil
	case qasm.FTypeCSwapQn:
		return b.unwrapCSwapQn(), nil
	}
	return nil, invalid(qasm.TagFType, "not a function block: %d", int(b.Kind))
}

// cxCore builds one CX transform at the block position.
func (b *Block) cxCore(crng, trng qasm.IndexRange, frep, flsq int) *Core {
	return &Core{
		Kind:     qasm.MsgIDQregTransform,
		Handle:   b.Handle,
		FType:    qasm.FTypeCX,
		FSize:    4,
		FRep:     frep,
		FLSQ:     flsq,
		FCRange:  crng,
		FTRange:  trng,
		FUType:   qasm.FTypeNull,
		FUCRange: qasm.NullRange,
		FUTRange: qasm.NullRange,
	}
}

// unwrapSwapQ1 expands a 2-qubit swap into the alternating CX triplet.
func (b *Block) unwrapSwapQ1() []*Core {
	crngD, trngD := qasm.NewRange(1, 1), qasm.NewRange(0, 0)
	crngI, trngI := qasm.NewRange(0, 0), qasm.NewRange(1, 1)
	return []*Core{
		b.cxCore(crngD, trngD, b.FRep, b.FLSQ),
		b.cxCore(crngI, trngI, b.FRep, b.FLSQ),
		b.cxCore(crngD, trngD, b.FRep, b.FLSQ),
	}
}

// unwrapSwapQn expands an n-qubit swap into a ladder of 1-qubit swaps
// walking the two halves toward each other.
func (b *Block) unwrapSwapQn() []*Core {
	qswN := (bits.Len(uint(b.FSize)) - 1) / 2
	out := make([]*Core, 0, 3*qswN*qswN)
	for i := 0; i < qswN*qswN; i++ {
		qidxS := (i % qswN) + qswN - 1 - (i / qswN) + b.FLSQ
		sub := &Block{
			Kind:   qasm.FTypeSwapQ1,
			Handle: b.Handle,
			FSize:  4,
			FRep:   1,
			FLSQ:   qidxS,
		}
		out = append(out, sub.unwrapSwapQ1()...)
	}
	return out
}

// unwrapCSwapQ1 expands a controlled 2-qubit swap: each CX of the plain
// swap is wrapped into a multi-controlled gate spanning the whole block.
func (b *Block) unwrapCSwapQ1() []*Core {
	form := gate.FormFromRanges(b.FCRange, b.FTRange)
	fbN := bits.Len(uint(b.FSize)) - 1

	var qfcCrng, qfcTrng qasm.IndexRange
	if form == gate.FormDirect {
		qfcCrng = qasm.NewRange(fbN-1, fbN-1)
		qfcTrng = qasm.NewRange(0, 1)
	} else {
		qfcCrng = qasm.NewRange(0, 0)
		qfcTrng = qasm.NewRange(fbN-2, fbN-1)
	}

	sub := &Block{Kind: qasm.FTypeSwapQ1, Handle: b.Handle, FSize: 4, FRep: 1, FLSQ: b.FLSQ}
	out := make([]*Core, 0, 3)
	for _, cx := range sub.unwrapSwapQ1() {
		out = append(out, &Core{
			Kind:     qasm.MsgIDQregTransform,
			Handle:   b.Handle,
			FType:    qasm.FTypeMCSLRU,
			FSize:    b.FSize,
			FRep:     1,
			FLSQ:     b.FLSQ,
			FCRange:  qfcCrng,
			FTRange:  qfcTrng,
			FUType:   qasm.FTypeCX,
			FUCRange: cx.FCRange,
			FUTRange: cx.FTRange,
		})
	}
	return out
}

// unwrapCSwapQn expands a controlled n-qubit swap into a ladder of
// controlled 1-qubit swaps, widening or narrowing the span so the
// control qubit stays in place.
func (b *Block) unwrapCSwapQn() []*Core {
	form := gate.FormFromRanges(b.FCRange, b.FTRange)
	gapN := gate.GapFromRanges(form, b.FCRange, b.FTRange)
	fbN := bits.Len(uint(b.FSize)) - 1
	qcswN := (fbN - gapN - 1) / 2

	out := make([]*Core, 0, 3*qcswN*qcswN)
	for i := 0; i < qcswN*qcswN; i++ {
		qidxS := (i % qcswN) + qcswN - 1 - (i / qcswN)
		sub := &Block{Kind: qasm.FTypeCSwapQ1, Handle: b.Handle, FRep: 1}
		if form == gate.FormDirect {
			sub.FCRange = qasm.NewRange(fbN-1-qidxS, fbN-1-qidxS)
			sub.FTRange = qasm.NewRange(0, 1)
			sub.FSize = 1 << (fbN - qidxS)
			sub.FLSQ = qidxS + b.FLSQ
		} else {
			qidxS++
			sub.FCRange = qasm.NewRange(0, 0)
			sub.FTRange = qasm.NewRange(qidxS, qidxS+1)
			sub.FSize = 1 << (qidxS + 2)
			sub.FLSQ = b.FLSQ
		}
		out = append(out, sub.unwrapCSwapQ1()...)
	}
	return out
}
