package instr

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/quforge/qusim/engine"
	"github.com/quforge/qusim/qasm"
	"github.com/quforge/qusim/qreg"
)

const eps = 1e-12

func newReg(t *testing.T, qn int) *qreg.Register {
	t.Helper()
	r, err := qreg.New(qn, engine.NewCPU())
	if err != nil {
		t.Fatalf("register allocation failed: %v", err)
	}
	return r
}

func applyCores(t *testing.T, r *qreg.Register, cores []*Core) {
	t.Helper()
	for i, c := range cores {
		g, err := c.GateSpec()
		if err != nil {
			t.Fatalf("core %d: gate build failed: %v", i, err)
		}
		if err := r.Transform(g, c.FRep, c.FLSQ); err != nil {
			t.Fatalf("core %d: transform failed: %v", i, err)
		}
	}
}

func expectPure(t *testing.T, r *qreg.Register, idx int) {
	t.Helper()
	st, err := r.Peek()
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	for i, amp := range st {
		want := complex128(0)
		if i == idx {
			want = 1
		}
		if cmplx.Abs(amp-want) > eps {
			t.Fatalf("state %v, want pure |%d>", st, idx)
		}
	}
}

// -----------------------------------------------------------------------
// core instruction parsing

func transformMsg(params map[string]string) *qasm.Message {
	msg := qasm.NewMessage(1, qasm.MsgIDQregTransform)
	for k, v := range params {
		msg.SetParam(k, v)
	}
	return msg
}

func TestParseCoreTransform(t *testing.T) {
	msg := transformMsg(map[string]string{
		qasm.TagQregH: "1",
		qasm.TagFType: "1", // H
		qasm.TagFSize: "2",
		qasm.TagFRep:  "1",
		qasm.TagFLSQ:  "0",
	})
	c, err := ParseCore(msg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.FType != qasm.FTypeH || c.FSize != 2 || c.Handle != 1 {
		t.Errorf("unexpected core: %+v", c)
	}
}

func TestParseCoreRejectsBadTransforms(t *testing.T) {
	cases := []map[string]string{
		// wrong size for a 1-qubit gate
		{qasm.TagQregH: "1", qasm.TagFType: "1", qasm.TagFSize: "4", qasm.TagFRep: "1", qasm.TagFLSQ: "0"},
		// zero repetitions
		{qasm.TagQregH: "1", qasm.TagFType: "1", qasm.TagFSize: "2", qasm.TagFRep: "0", qasm.TagFLSQ: "0"},
		// negative LSQ offset
		{qasm.TagQregH: "1", qasm.TagFType: "1", qasm.TagFSize: "2", qasm.TagFRep: "1", qasm.TagFLSQ: "-1"},
		// 2-qubit gate without ranges
		{qasm.TagQregH: "1", qasm.TagFType: "13", qasm.TagFSize: "4", qasm.TagFRep: "1", qasm.TagFLSQ: "0"},
		// 2-qubit gate with non-adjacent qubits
		{qasm.TagQregH: "1", qasm.TagFType: "13", qasm.TagFSize: "4", qasm.TagFRep: "1", qasm.TagFLSQ: "0",
			qasm.TagFCRange: "(2,2)", qasm.TagFTRange: "(0,0)"},
		// n-qubit gate with a block base
		{qasm.TagQregH: "1", qasm.TagFType: "16", qasm.TagFSize: "8", qasm.TagFRep: "1", qasm.TagFLSQ: "0",
			qasm.TagFCRange: "(2,2)", qasm.TagFTRange: "(0,0)", qasm.TagFUType: "100"},
		// target range wider than the base gate
		{qasm.TagQregH: "1", qasm.TagFType: "16", qasm.TagFSize: "8", qasm.TagFRep: "1", qasm.TagFLSQ: "0",
			qasm.TagFCRange: "(2,2)", qasm.TagFTRange: "(0,1)", qasm.TagFUType: "2"},
		// unknown gate type
		{qasm.TagQregH: "1", qasm.TagFType: "55", qasm.TagFSize: "2", qasm.TagFRep: "1", qasm.TagFLSQ: "0"},
	}
	for i, params := range cases {
		if _, err := ParseCore(transformMsg(params)); err == nil {
			t.Errorf("case %d: invalid transform accepted: %v", i, params)
		}
	}
}

func TestParseCoreMeasure(t *testing.T) {
	msg := qasm.NewMessage(3, qasm.MsgIDQregMeasure)
	msg.SetParam(qasm.TagQregH, "2")
	msg.SetParam(qasm.TagQregMQIdx, "-1")
	msg.SetParam(qasm.TagQregMQLen, "0")
	msg.SetParam(qasm.TagQregMRand, "1")
	msg.SetParam(qasm.TagQregMColl, "0")
	c, err := ParseCore(msg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.Handle != 2 || c.MQIdx != -1 || !c.MRand || c.MColl {
		t.Errorf("unexpected core: %+v", c)
	}
}

func TestParseCoreExpectDefaultsSubState(t *testing.T) {
	msg := qasm.NewMessage(3, qasm.MsgIDQregExpect)
	msg.SetParam(qasm.TagQregH, "1")
	msg.SetParam(qasm.TagQregExQIdx, "0")
	msg.SetParam(qasm.TagQregExQLen, "1")
	msg.SetParam(qasm.TagQregExObsOp, "1")
	c, err := ParseCore(msg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.ExStIdx != -1 {
		t.Errorf("sub-state default: got %d, want -1", c.ExStIdx)
	}
}

func TestMessageClassPredicates(t *testing.T) {
	swap := transformMsg(map[string]string{qasm.TagFType: "100"})
	if !IsBlock(swap) || IsCore(swap) || IsQML(swap) {
		t.Error("swap block misclassified")
	}
	fmap := transformMsg(map[string]string{qasm.TagFType: "200"})
	if !IsQML(fmap) || IsCore(fmap) {
		t.Error("feature map misclassified")
	}
	h := transformMsg(map[string]string{qasm.TagFType: "1"})
	if !IsCore(h) || IsBlock(h) {
		t.Error("gate transform misclassified")
	}
	alloc := qasm.NewMessage(1, qasm.MsgIDQregAllocate)
	if !IsCore(alloc) {
		t.Error("allocate misclassified")
	}
}

// -----------------------------------------------------------------------
// swap blocks

func TestSwapQ1Unwrap(t *testing.T) {
	b := &Block{Kind: qasm.FTypeSwapQ1, Handle: 1, FSize: 4, FRep: 1, FLSQ: 0}
	cores, err := b.Unwrap()
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	if len(cores) != 3 {
		t.Fatalf("core count: got %d, want 3", len(cores))
	}
	for _, c := range cores {
		if c.FType != qasm.FTypeCX || c.FSize != 4 {
			t.Errorf("unexpected core: %+v", c)
		}
	}
	// alternation: direct, inverse, direct
	if cores[0].FCRange != cores[2].FCRange || cores[0].FCRange == cores[1].FCRange {
		t.Error("CX triplet does not alternate forms")
	}
}

func TestSwapQ1Semantics(t *testing.T) {
	r := newReg(t, 2)
	if err := r.SetPure(1); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	b := &Block{Kind: qasm.FTypeSwapQ1, Handle: 1, FSize: 4, FRep: 1, FLSQ: 0}
	cores, _ := b.Unwrap()
	applyCores(t, r, cores)
	expectPure(t, r, 2) // |01> -> |10>

	// swapping twice is the identity
	applyCores(t, r, cores)
	expectPure(t, r, 1)
}

func TestSwapQnSemantics(t *testing.T) {
	// swap the two 2-qubit halves of a 4-qubit register
	r := newReg(t, 4)
	if err := r.SetPure(6); err != nil { // halves (01, 10)
		t.Fatalf("set failed: %v", err)
	}
	b := &Block{Kind: qasm.FTypeSwapQn, Handle: 1, FSize: 16, FRep: 1, FLSQ: 0}
	cores, err := b.Unwrap()
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	if len(cores) != 12 { // 2^2 pair swaps, 3 CX each
		t.Fatalf("core count: got %d, want 12", len(cores))
	}
	applyCores(t, r, cores)
	expectPure(t, r, 9) // halves (10, 01)
}

func TestCSwapQ1DirectSemantics(t *testing.T) {
	// control on qubit 2, swapped pair on qubits 0 and 1
	b := &Block{
		Kind: qasm.FTypeCSwapQ1, Handle: 1, FSize: 8, FRep: 1, FLSQ: 0,
		FCRange: qasm.NewRange(2, 2), FTRange: qasm.NewRange(0, 1),
	}
	cores, err := b.Unwrap()
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	if len(cores) != 3 {
		t.Fatalf("core count: got %d, want 3", len(cores))
	}
	for _, c := range cores {
		if c.FType != qasm.FTypeMCSLRU || c.FUType != qasm.FTypeCX || c.FSize != 8 {
			t.Errorf("unexpected core: %+v", c)
		}
	}

	// control set: pair swaps
	r := newReg(t, 3)
	if err := r.SetPure(5); err != nil { // |1>|01>
		t.Fatalf("set failed: %v", err)
	}
	applyCores(t, r, cores)
	expectPure(t, r, 6) // |1>|10>

	// control clear: untouched
	if err := r.SetPure(1); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	applyCores(t, r, cores)
	expectPure(t, r, 1)
}

func TestCSwapQ1InverseSemantics(t *testing.T) {
	// control on qubit 0, swapped pair on qubits 1 and 2
	b := &Block{
		Kind: qasm.FTypeCSwapQ1, Handle: 1, FSize: 8, FRep: 1, FLSQ: 0,
		FCRange: qasm.NewRange(0, 0), FTRange: qasm.NewRange(1, 2),
	}
	cores, err := b.Unwrap()
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}

	r := newReg(t, 3)
	if err := r.SetPure(3); err != nil { // q0=1 control, pair (1, 0)
		t.Fatalf("set failed: %v", err)
	}
	applyCores(t, r, cores)
	expectPure(t, r, 5) // pair swapped to (0, 1)

	if err := r.SetPure(2); err != nil { // control clear
		t.Fatalf("set failed: %v", err)
	}
	applyCores(t, r, cores)
	expectPure(t, r, 2)
}

func TestCSwapQnSemantics(t *testing.T) {
	// control on qubit 4, two 2-qubit halves below
	b := &Block{
		Kind: qasm.FTypeCSwapQn, Handle: 1, FSize: 32, FRep: 1, FLSQ: 0,
		FCRange: qasm.NewRange(4, 4), FTRange: qasm.NewRange(0, 3),
	}
	cores, err := b.Unwrap()
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	if len(cores) != 12 { // 4 controlled pair swaps, 3 gates each
		t.Fatalf("core count: got %d, want 12", len(cores))
	}

	r := newReg(t, 5)
	// control set, halves (01, 10)
	if err := r.SetPure(16 + 6); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	applyCores(t, r, cores)
	expectPure(t, r, 16+9)

	// control clear: untouched
	if err := r.SetPure(6); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	applyCores(t, r, cores)
	expectPure(t, r, 6)
}

// -----------------------------------------------------------------------
// QML blocks

func TestFeatureMapPauliZ(t *testing.T) {
	x := []float64{0.3, 0.7}
	q := &QML{
		Kind: qasm.FTypeQMLFMap, Handle: 1, Rep: 1,
		Entang: qasm.EntangLinear, SubType: qasm.FMapPauliZ, FArgs: x,
	}
	cores, err := q.Unwrap(2)
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	if len(cores) != 3 { // H ladder + one PS per feature
		t.Fatalf("core count: got %d, want 3", len(cores))
	}

	r := newReg(t, 2)
	applyCores(t, r, cores)
	st, _ := r.Peek()
	want := []complex128{
		0.5,
		0.5 * cmplx.Exp(complex(0, 2*x[0])),
		0.5 * cmplx.Exp(complex(0, 2*x[1])),
		0.5 * cmplx.Exp(complex(0, 2*(x[0]+x[1]))),
	}
	for i := range want {
		if cmplx.Abs(st[i]-want[i]) > eps {
			t.Errorf("amplitude %d = %v, want %v", i, st[i], want[i])
		}
	}
}

func TestFeatureMapPauliZZUnwrapShape(t *testing.T) {
	x := []float64{0.1, 0.2, 0.3}
	q := &QML{
		Kind: qasm.FTypeQMLFMap, Handle: 1, Rep: 2,
		Entang: qasm.EntangLinear, SubType: qasm.FMapPauliZZ, FArgs: x,
	}
	cores, err := q.Unwrap(3)
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	// per repetition: H + 3 PS + 2 x (CX PS CX)
	if len(cores) != 2*(1+3+6) {
		t.Fatalf("core count: got %d, want 20", len(cores))
	}

	// the sequence must execute cleanly and conserve probability
	r := newReg(t, 3)
	applyCores(t, r, cores)
	st, _ := r.Peek()
	total := 0.0
	for _, amp := range st {
		total += real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	if math.Abs(total-1) > 1e-10 {
		t.Errorf("total probability %v", total)
	}
}

func TestFeatureMapPauliZZCircular(t *testing.T) {
	x := []float64{0.1, 0.2, 0.3}
	q := &QML{
		Kind: qasm.FTypeQMLFMap, Handle: 1, Rep: 1,
		Entang: qasm.EntangCircular, SubType: qasm.FMapPauliZZ, FArgs: x,
	}
	cores, err := q.Unwrap(3)
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	// the wrap-around line uses a full-span long-range gate
	sawLongRange := false
	for _, c := range cores {
		if c.FType == qasm.FTypeMCSLRU && c.FSize == 8 {
			sawLongRange = true
		}
	}
	if !sawLongRange {
		t.Error("circular entanglement missing the full-span wrap gate")
	}

	r := newReg(t, 3)
	applyCores(t, r, cores)
}

func TestQNetRealAmplitudeIdentityAtZero(t *testing.T) {
	q := &QML{
		Kind: qasm.FTypeQMLQNet, Handle: 1, Rep: 1,
		Entang: qasm.EntangLinear, SubType: qasm.QNetRealAmpl,
		FArgs: make([]float64, 4),
	}
	cores, err := q.Unwrap(2)
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	if len(cores) != 5 { // Ry layer + entangler + final Ry layer
		t.Fatalf("core count: got %d, want 5", len(cores))
	}
	// zero angles: the ansatz is the identity on |00>
	r := newReg(t, 2)
	applyCores(t, r, cores)
	expectPure(t, r, 0)
}

func TestQNetRealAmplitudeRotates(t *testing.T) {
	theta := math.Pi
	q := &QML{
		Kind: qasm.FTypeQMLQNet, Handle: 1, Rep: 1,
		Entang: qasm.EntangCircular, SubType: qasm.QNetRealAmpl,
		FArgs: []float64{theta, 0, 0, 0},
	}
	cores, err := q.Unwrap(2)
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	r := newReg(t, 2)
	applyCores(t, r, cores)
	st, _ := r.Peek()
	total := 0.0
	for _, amp := range st {
		total += real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	if math.Abs(total-1) > 1e-10 {
		t.Errorf("total probability %v", total)
	}
	if cmplx.Abs(st[0]-1) < 0.5 {
		t.Error("pi rotation left the register in the ground state")
	}
}

func TestQNetParameterCountValidation(t *testing.T) {
	q := &QML{
		Kind: qasm.FTypeQMLQNet, Handle: 1, Rep: 2,
		Entang: qasm.EntangLinear, SubType: qasm.QNetRealAmpl,
		FArgs: make([]float64, 5),
	}
	if _, err := q.Unwrap(2); err == nil {
		t.Error("short parameter vector accepted")
	}
}

func TestQMLValidation(t *testing.T) {
	bad := []*QML{
		{Kind: qasm.FTypeQMLFMap, Rep: 0, Entang: qasm.EntangLinear, SubType: qasm.FMapPauliZ, FArgs: []float64{1}},
		{Kind: qasm.FTypeQMLFMap, Rep: 1, Entang: 9, SubType: qasm.FMapPauliZ, FArgs: []float64{1}},
		{Kind: qasm.FTypeQMLFMap, Rep: 1, Entang: qasm.EntangLinear, SubType: 9, FArgs: []float64{1}},
		{Kind: qasm.FTypeQMLQNet, Rep: 1, Entang: qasm.EntangLinear, SubType: 9, FArgs: []float64{1}},
		{Kind: qasm.FTypeQMLFMap, Rep: 1, Entang: qasm.EntangLinear, SubType: qasm.FMapPauliZ, FArgs: nil},
	}
	for i, q := range bad {
		if err := q.Validate(); err == nil {
			t.Errorf("case %d: invalid block accepted", i)
		}
	}
}
