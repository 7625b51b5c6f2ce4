package qasm

// Message identifiers for the instruction protocol.
const (
	MsgIDRegister   = 1
	MsgIDUnregister = 2

	MsgIDQregAllocate  = 10
	MsgIDQregRelease   = 11
	MsgIDQregReset     = 12
	MsgIDQregSet       = 13
	MsgIDQregTransform = 14
	MsgIDQregPeek      = 15
	MsgIDQregMeasure   = 16
	MsgIDQregExpect    = 17

	MsgIDResponse = 20
)

// FType identifies a transformation function on the wire. Values are part of
// the protocol and must not be renumbered.
type FType int

const (
	FTypeNull FType = -1

	// 1-qubit gates
	FTypeI  FType = 0
	FTypeH  FType = 1
	FTypeX  FType = 2
	FTypeY  FType = 3
	FTypeZ  FType = 4
	FTypeSX FType = 5
	FTypePS FType = 6
	FTypeT  FType = 7
	FTypeS  FType = 8
	FTypeRx FType = 9
	FTypeRy FType = 10
	FTypeRz FType = 11

	// 2-qubit controlled gates
	FTypeCU FType = 12
	FTypeCX FType = 13
	FTypeCY FType = 14
	FTypeCZ FType = 15

	// n-qubit controlled gates
	FTypeMCSLRU FType = 16
	FTypeCCX    FType = 17

	// function blocks, decomposed before execution
	FTypeSwapQ1  FType = 100
	FTypeSwapQn  FType = 101
	FTypeCSwapQ1 FType = 102
	FTypeCSwapQn FType = 103

	// QML function blocks
	FTypeQMLFMap FType = 200
	FTypeQMLQNet FType = 201
)

func (f FType) IsOneQubit() bool {
	return f >= FTypeI && f <= FTypeRz
}

func (f FType) IsTwoQubit() bool {
	return f >= FTypeCU && f <= FTypeCZ
}

func (f FType) IsNQubit() bool {
	return f == FTypeMCSLRU || f == FTypeCCX
}

func (f FType) IsGate() bool {
	return f.IsOneQubit() || f.IsTwoQubit() || f.IsNQubit()
}

func (f FType) IsBlock() bool {
	return f >= FTypeSwapQ1 && f <= FTypeCSwapQn
}

func (f FType) IsQML() bool {
	return f == FTypeQMLFMap || f == FTypeQMLQNet
}

// String returns the gate mnemonic used in logs and dumps.
func (f FType) String() string {
	switch f {
	case FTypeI:
		return "I"
	case FTypeH:
		return "H"
	case FTypeX:
		return "X"
	case FTypeY:
		return "Y"
	case FTypeZ:
		return "Z"
	case FTypeSX:
		return "SX"
	case FTypePS:
		return "PS"
	case FTypeT:
		return "T"
	case FTypeS:
		return "S"
	case FTypeRx:
		return "Rx"
	case FTypeRy:
		return "Ry"
	case FTypeRz:
		return "Rz"
	case FTypeCU:
		return "CU"
	case FTypeCX:
		return "CX"
	case FTypeCY:
		return "CY"
	case FTypeCZ:
		return "CZ"
	case FTypeMCSLRU:
		return "MCSLRU"
	case FTypeCCX:
		return "CCX"
	case FTypeSwapQ1:
		return "SWAP-1Q"
	case FTypeSwapQn:
		return "SWAP-nQ"
	case FTypeCSwapQ1:
		return "CSWAP-1Q"
	case FTypeCSwapQn:
		return "CSWAP-nQ"
	case FTypeQMLFMap:
		return "QML-FMAP"
	case FTypeQMLQNet:
		return "QML-QNET"
	}
	return "?"
}

// Entanglement schemes for QML blocks.
const (
	EntangNull     = -1
	EntangLinear   = 0
	EntangCircular = 1
)

// Feature map subtypes.
const (
	FMapNull    = -1
	FMapPauliZ  = 0
	FMapPauliZZ = 1
)

// Q-network layout subtypes.
const (
	QNetNull     = -1
	QNetRealAmpl = 0
)

// Expectation observable operators.
const (
	ObsOpNull   = -1
	ObsOpComp   = 0
	ObsOpPauliZ = 1
)

// Parameter tags.
const (
	TagClientID    = "id"
	TagClientToken = "token"

	TagQregQn     = "qr_n"
	TagQregH      = "qr_h"
	TagQregStIdx  = "qr_stIdx"
	TagQregStVals = "qr_stVals"

	TagQregMQIdx   = "qr_mQidx"
	TagQregMQLen   = "qr_mQlen"
	TagQregMRand   = "qr_mRand"
	TagQregMColl   = "qr_mStColl"
	TagQregMStIdx  = "qr_mStIdx"
	TagQregMStPr   = "qr_mStPr"
	TagQregMStIdxs = "qr_mStIdxs"

	TagQregExQIdx  = "qr_exQidx"
	TagQregExQLen  = "qr_exQlen"
	TagQregExObsOp = "qr_exObsOp"
	TagQregExStIdx = "qr_exStIdx"
	TagQregExStVal = "qr_exStVal"

	TagFType   = "f_type"
	TagFSize   = "f_size"
	TagFRep    = "f_rep"
	TagFLSQ    = "f_lsq"
	TagFCRange = "f_cRange"
	TagFTRange = "f_tRange"
	TagFUType  = "f_uType"
	TagFArgs   = "f_args"

	TagQMLRep      = "fqml_rep"
	TagQMLEntang   = "fqml_entang_type"
	TagQMLSubtype  = "fqml_subtype"
	TagQMLQNetType = "fqml_qnet_type"

	TagResult = "result"
	TagError  = "error"
)

// Result values.
const (
	ResultOK    = "Ok"
	ResultNotOK = "Not-Ok"
)

// IndexRange is an inclusive qubit index interval.
type IndexRange struct {
	Start int
	Stop  int
}

// NullRange marks an unused control or target range.
var NullRange = IndexRange{Start: -1, Stop: -1}

func NewRange(start, stop int) IndexRange {
	return IndexRange{Start: start, Stop: stop}
}

func (r IndexRange) IsEmpty() bool {
	return r.Start < 0 || r.Stop < 0
}

// Width returns the number of qubits spanned by the range.
func (r IndexRange) Width() int {
	if r.IsEmpty() {
		return 0
	}
	return r.Stop - r.Start + 1
}
