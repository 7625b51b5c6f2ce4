package gate

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/quforge/qusim/qasm"
)

const eps = 1e-12

// matrix materializes the factor for test comparisons only.
func matrix(s Spec) [][]complex128 {
	m := make([][]complex128, s.Size)
	for i := range m {
		m[i] = make([]complex128, s.Size)
		for j := range m[i] {
			m[i][j] = s.Element(i, j)
		}
	}
	return m
}

// checkUnitary verifies M * M† == identity.
func checkUnitary(t *testing.T, name string, s Spec) {
	t.Helper()
	m := matrix(s)
	n := s.Size
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var acc complex128
			for k := 0; k < n; k++ {
				acc += m[i][k] * cmplx.Conj(m[j][k])
			}
			want := complex128(0)
			if i == j {
				want = 1
			}
			if cmplx.Abs(acc-want) > eps {
				t.Errorf("%s: (M M†)[%d][%d] = %v, want %v", name, i, j, acc, want)
			}
		}
	}
}

func TestOneQubitUnitarity(t *testing.T) {
	specs := map[string]Spec{
		"I":   OneQubit(qasm.FTypeI),
		"H":   OneQubit(qasm.FTypeH),
		"X":   OneQubit(qasm.FTypeX),
		"Y":   OneQubit(qasm.FTypeY),
		"Z":   OneQubit(qasm.FTypeZ),
		"SX":  OneQubit(qasm.FTypeSX),
		"PS":  OneQubit(qasm.FTypePS, math.Pi/3),
		"S":   OneQubit(qasm.FTypeS),
		"T":   OneQubit(qasm.FTypeT),
		"Rx":  OneQubit(qasm.FTypeRx, 0.7),
		"Ry":  OneQubit(qasm.FTypeRy, 1.1),
		"Rz":  OneQubit(qasm.FTypeRz, -2.3),
		"Rx0": OneQubit(qasm.FTypeRx, 0),
	}
	for name, s := range specs {
		checkUnitary(t, name, s)
	}
}

func TestHadamardElements(t *testing.T) {
	h := OneQubit(qasm.FTypeH)
	want := [][]complex128{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	}
	got := matrix(h)
	for i := range want {
		for j := range want[i] {
			if cmplx.Abs(got[i][j]-want[i][j]) > eps {
				t.Errorf("H[%d][%d] = %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestPauliYElements(t *testing.T) {
	y := matrix(OneQubit(qasm.FTypeY))
	if cmplx.Abs(y[0][1]-complex(0, -1)) > eps || cmplx.Abs(y[1][0]-complex(0, 1)) > eps {
		t.Errorf("Y off-diagonal wrong: %v %v", y[0][1], y[1][0])
	}
	if y[0][0] != 0 || y[1][1] != 0 {
		t.Errorf("Y diagonal wrong: %v %v", y[0][0], y[1][1])
	}
}

func TestPhaseShiftFamily(t *testing.T) {
	phi := 0.42
	ps := matrix(OneQubit(qasm.FTypePS, phi))
	if cmplx.Abs(ps[0][0]-1) > eps {
		t.Errorf("PS[0][0] = %v", ps[0][0])
	}
	if cmplx.Abs(ps[1][1]-cmplx.Exp(complex(0, phi))) > eps {
		t.Errorf("PS[1][1] = %v", ps[1][1])
	}

	// S and T are fixed-angle phase shifts
	s := matrix(OneQubit(qasm.FTypeS))
	if cmplx.Abs(s[1][1]-complex(0, 1)) > eps {
		t.Errorf("S[1][1] = %v, want i", s[1][1])
	}
	tt := matrix(OneQubit(qasm.FTypeT))
	wantT := cmplx.Exp(complex(0, math.Pi/4))
	if cmplx.Abs(tt[1][1]-wantT) > eps {
		t.Errorf("T[1][1] = %v, want %v", tt[1][1], wantT)
	}
}

func TestPhaseShiftWithoutAngle(t *testing.T) {
	ps := OneQubit(qasm.FTypePS)
	if got := ps.Element(1, 1); got != 0 {
		t.Errorf("PS(1,1) without angle = %v, want 0", got)
	}
	if got := ps.Element(0, 0); got != 1 {
		t.Errorf("PS(0,0) = %v, want 1", got)
	}
}

func TestRotationElements(t *testing.T) {
	phi := 1.234
	rx := matrix(OneQubit(qasm.FTypeRx, phi))
	if cmplx.Abs(rx[0][0]-complex(math.Cos(phi/2), 0)) > eps {
		t.Errorf("Rx diag = %v", rx[0][0])
	}
	if cmplx.Abs(rx[0][1]-complex(0, -math.Sin(phi/2))) > eps {
		t.Errorf("Rx off-diag = %v", rx[0][1])
	}

	ry := matrix(OneQubit(qasm.FTypeRy, phi))
	if cmplx.Abs(ry[0][1]+complex(math.Sin(phi/2), 0)) > eps {
		t.Errorf("Ry[0][1] = %v, want %v", ry[0][1], -math.Sin(phi/2))
	}
	if cmplx.Abs(ry[1][0]-complex(math.Sin(phi/2), 0)) > eps {
		t.Errorf("Ry[1][0] = %v, want %v", ry[1][0], math.Sin(phi/2))
	}

	rz := matrix(OneQubit(qasm.FTypeRz, phi))
	if cmplx.Abs(rz[0][0]-cmplx.Exp(complex(0, -phi/2))) > eps {
		t.Errorf("Rz[0][0] = %v", rz[0][0])
	}
	if cmplx.Abs(rz[1][1]-cmplx.Exp(complex(0, phi/2))) > eps {
		t.Errorf("Rz[1][1] = %v", rz[1][1])
	}
}

func TestSqrtXSquaresToX(t *testing.T) {
	sx := matrix(OneQubit(qasm.FTypeSX))
	x := matrix(OneQubit(qasm.FTypeX))
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			var acc complex128
			for k := 0; k < 2; k++ {
				acc += sx[i][k] * sx[k][j]
			}
			if cmplx.Abs(acc-x[i][j]) > eps {
				t.Errorf("SX² differs from X at [%d][%d]: %v vs %v", i, j, acc, x[i][j])
			}
		}
	}
}

func TestControlledXForms(t *testing.T) {
	// direct form: control on the most significant qubit
	cxd := TwoQubit(qasm.FTypeCX, qasm.NewRange(1, 1), qasm.NewRange(0, 0), nil)
	if cxd.Form != FormDirect {
		t.Fatalf("expected direct form, got %v", cxd.Form)
	}
	md := matrix(cxd)
	// |10> (index 2) maps to |11> (index 3) and back
	if md[3][2] != 1 || md[2][3] != 1 || md[0][0] != 1 || md[1][1] != 1 {
		t.Errorf("CX direct matrix wrong: %v", md)
	}
	checkUnitary(t, "CX-direct", cxd)

	// inverse form: control on the least significant qubit
	cxi := TwoQubit(qasm.FTypeCX, qasm.NewRange(0, 0), qasm.NewRange(1, 1), nil)
	if cxi.Form != FormInverse {
		t.Fatalf("expected inverse form, got %v", cxi.Form)
	}
	mi := matrix(cxi)
	// |01> (index 1) maps to |11> (index 3) and back
	if mi[3][1] != 1 || mi[1][3] != 1 || mi[0][0] != 1 || mi[2][2] != 1 {
		t.Errorf("CX inverse matrix wrong: %v", mi)
	}
	checkUnitary(t, "CX-inverse", cxi)
}

func TestControlledUMatchesCX(t *testing.T) {
	base := OneQubit(qasm.FTypeX)
	cu := TwoQubit(qasm.FTypeCU, qasm.NewRange(1, 1), qasm.NewRange(0, 0), &base)
	cx := TwoQubit(qasm.FTypeCX, qasm.NewRange(1, 1), qasm.NewRange(0, 0), nil)
	mu, mx := matrix(cu), matrix(cx)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if mu[i][j] != mx[i][j] {
				t.Errorf("CU(X) differs from CX at [%d][%d]", i, j)
			}
		}
	}
}

func TestControlledZSymmetric(t *testing.T) {
	czd := matrix(TwoQubit(qasm.FTypeCZ, qasm.NewRange(1, 1), qasm.NewRange(0, 0), nil))
	czi := matrix(TwoQubit(qasm.FTypeCZ, qasm.NewRange(0, 0), qasm.NewRange(1, 1), nil))
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if czd[i][j] != czi[i][j] {
				t.Errorf("CZ forms differ at [%d][%d]: %v vs %v", i, j, czd[i][j], czi[i][j])
			}
		}
	}
	if czd[3][3] != -1 {
		t.Errorf("CZ[3][3] = %v, want -1", czd[3][3])
	}
}

func TestToffoliDirect(t *testing.T) {
	ccx := NQubit(qasm.FTypeCCX, 8, FormDirect, 0, nil)
	m := matrix(ccx)
	checkUnitary(t, "CCX-direct", ccx)
	// |110> and |111> swap, everything else is identity
	for i := 0; i < 6; i++ {
		if m[i][i] != 1 {
			t.Errorf("CCX diag[%d] = %v, want 1", i, m[i][i])
		}
	}
	if m[6][7] != 1 || m[7][6] != 1 || m[6][6] != 0 {
		t.Errorf("CCX target block wrong: %v %v", m[6][7], m[7][6])
	}
}

func TestToffoliInverse(t *testing.T) {
	ccx := NQubit(qasm.FTypeCCX, 8, FormInverse, 0, nil)
	m := matrix(ccx)
	checkUnitary(t, "CCX-inverse", ccx)
	// controls on the two least significant qubits: |011> and |111> swap
	if m[3][7] != 1 || m[7][3] != 1 || m[3][3] != 0 || m[7][7] != 0 {
		t.Errorf("CCX inverse target block wrong")
	}
	for _, i := range []int{0, 1, 2, 4, 5, 6} {
		if m[i][i] != 1 {
			t.Errorf("CCX inverse diag[%d] = %v, want 1", i, m[i][i])
		}
	}
}

func TestLongRangeCXWithGap(t *testing.T) {
	// 3 qubits: control on qubit 2, gap on qubit 1, X target on qubit 0
	base := OneQubit(qasm.FTypeX)
	mc := NQubit(qasm.FTypeMCSLRU, 8, FormDirect, 1, &base)
	m := matrix(mc)
	checkUnitary(t, "MCSLRU-gap", mc)
	// X applies whenever the most significant qubit is set,
	// regardless of the gap qubit
	swaps := [][2]int{{4, 5}, {6, 7}}
	for _, sw := range swaps {
		if m[sw[0]][sw[1]] != 1 || m[sw[1]][sw[0]] != 1 {
			t.Errorf("expected swap between %d and %d", sw[0], sw[1])
		}
	}
	for i := 0; i < 4; i++ {
		if m[i][i] != 1 {
			t.Errorf("identity block broken at %d", i)
		}
	}
}

func TestFormDerivation(t *testing.T) {
	if f := FormFromRanges(qasm.NewRange(2, 2), qasm.NewRange(0, 0)); f != FormDirect {
		t.Errorf("control above target: got %v", f)
	}
	if f := FormFromRanges(qasm.NewRange(0, 0), qasm.NewRange(1, 2)); f != FormInverse {
		t.Errorf("control below target: got %v", f)
	}
	if g := GapFromRanges(FormDirect, qasm.NewRange(3, 3), qasm.NewRange(0, 1)); g != 1 {
		t.Errorf("direct gap: got %d, want 1", g)
	}
	if g := GapFromRanges(FormInverse, qasm.NewRange(0, 0), qasm.NewRange(2, 3)); g != 1 {
		t.Errorf("inverse gap: got %d, want 1", g)
	}
}

func TestIdentityFillerAnySize(t *testing.T) {
	id := Identity(8)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			want := complex128(0)
			if i == j {
				want = 1
			}
			if id.Element(i, j) != want {
				t.Errorf("I8[%d][%d] = %v", i, j, id.Element(i, j))
			}
		}
	}
	if id.Qubits() != 3 {
		t.Errorf("Qubits() = %d, want 3", id.Qubits())
	}
}
