package math

import (
	"math"
	"testing"
)

const tolerance = 1e-12

func nearlyEqual(a, b Mat4) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(a[i][j]-b[i][j]) > tolerance {
				return false
			}
		}
	}
	return true
}

func TestVec3Mul(t *testing.T) {
	v := Vec3{X: 1, Y: -2, Z: 3}
	if got := v.Mul(-1); got != (Vec3{X: -1, Y: 2, Z: -3}) {
		t.Errorf("Mul: expected (-1,2,-3), got %v", got)
	}
}

func TestVec2FlipV(t *testing.T) {
	v := Vec2{X: 0.25, Y: 0.75}
	if got := v.FlipV(); got != (Vec2{X: 0.25, Y: 0.25}) {
		t.Errorf("FlipV: expected (0.25,0.25), got %v", got)
	}
	if got := v.FlipV().FlipV(); got != v {
		t.Errorf("FlipV: expected flipping twice to restore %v, got %v", v, got)
	}
}

func TestMat4Identity(t *testing.T) {
	m := Mat4Identity()

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			expected := 0.0
			if i == j {
				expected = 1
			}
			if m[i][j] != expected {
				t.Errorf("Identity: expected [%d][%d] = %v, got %v", i, j, expected, m[i][j])
			}
		}
	}
}

func TestMat4Multiplication(t *testing.T) {
	m := Mat4FromRows([16]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	if got := m.Mul(Mat4Identity()); got != m {
		t.Errorf("Mul: expected identity to be neutral, got %v", got)
	}
	if got := Mat4Identity().Mul(m); got != m {
		t.Errorf("Mul: expected identity to be neutral on the left, got %v", got)
	}

	// Row 0 of m·m: [1 2 3 4]·m
	got := m.Mul(m)
	expected := [4]float64{90, 100, 110, 120}
	if got[0] != expected {
		t.Errorf("Mul: expected row 0 %v, got %v", expected, got[0])
	}
}

func TestMat4RowsRoundTrip(t *testing.T) {
	rows := [16]float64{1, 0, 0, 0, 0, 0, 1, 0, 0, -1, 0, 0, 4, 5, 6, 1}
	m := Mat4FromRows(rows)
	if m[1][2] != 1 || m[2][1] != -1 || m[3][0] != 4 {
		t.Errorf("FromRows: unexpected layout %v", m)
	}
	if m.Rows() != rows {
		t.Errorf("Rows: expected %v, got %v", rows, m.Rows())
	}
}

func TestMat4Translation(t *testing.T) {
	translation := Vec3{X: 1, Y: 2, Z: 3}
	m := Mat4Translation(translation)

	if m[3][0] != 1 || m[3][1] != 2 || m[3][2] != 3 {
		t.Errorf("Translation: expected (1,2,3), got (%v,%v,%v)", m[3][0], m[3][1], m[3][2])
	}
	if got := m.MulVec3(Vec3Zero); got != translation {
		t.Errorf("Translation: expected %v, got %v", translation, got)
	}
	if m.Translation() != translation {
		t.Errorf("Translation: expected %v, got %v", translation, m.Translation())
	}
}

func TestMat4NegateRow(t *testing.T) {
	m := Mat4Identity()
	n := m.NegateRow(1).NegateRow(2)

	if n[1][1] != -1 || n[2][2] != -1 || n[0][0] != 1 || n[3][3] != 1 {
		t.Errorf("NegateRow: unexpected result %v", n)
	}
	if m[1][1] != 1 {
		t.Errorf("NegateRow: receiver was modified")
	}
}

func TestMat4SRTOrder(t *testing.T) {
	m := Mat4SRT(Vec3{X: 2, Y: 2, Z: 2}, QuaternionIdentity(), Vec3{X: 1})

	// scale is applied before translation
	p := m.MulVec3(Vec3{X: 1})
	if p != (Vec3{X: 3}) {
		t.Errorf("SRT: expected (3,0,0), got %v", p)
	}
}

func TestMat4RotationY(t *testing.T) {
	m := Mat4RotationY(Radians(90))
	p := m.MulVec3(Vec3{X: 1})
	if math.Abs(p.Z+1) > tolerance || math.Abs(p.X) > tolerance {
		t.Errorf("RotationY: expected (0,0,-1), got %v", p)
	}
}

func TestQuaternionIdentity(t *testing.T) {
	q := QuaternionIdentity()

	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("QuaternionIdentity: expected (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
	if q.ToMat4() != Mat4Identity() {
		t.Errorf("QuaternionIdentity: expected identity matrix, got %v", q.ToMat4())
	}
}

func TestQuaternionToMat4(t *testing.T) {
	// 90 degrees about Y, scaled to check normalization
	s := math.Sin(math.Pi/4) * 3
	q := Quaternion{Y: s, W: math.Cos(math.Pi/4) * 3}
	if !nearlyEqual(q.ToMat4(), Mat4RotationY(math.Pi/2)) {
		t.Errorf("ToMat4: expected the row-vector Y rotation, got %v", q.ToMat4())
	}

	// the conjugate undoes the rotation
	if !nearlyEqual(q.ToMat4().Mul(q.Conjugate().ToMat4()), Mat4Identity()) {
		t.Errorf("Conjugate: expected the inverse rotation")
	}
}

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Mat4Identity()
	m2 := Mat4RotationX(Radians(10)).Mul(Mat4RotationY(Radians(20))).Mul(Mat4RotationZ(Radians(30)))

	for i := 0; i < b.N; i++ {
		_ = m1.Mul(m2)
	}
}
