package projection

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bella-bridge/math"
	"bella-bridge/scene"
)

func sampleMatrix() math.Mat4 {
	r := math.Mat4RotationX(math.Radians(30)).
		Mul(math.Mat4RotationY(math.Radians(-45))).
		Mul(math.Mat4RotationZ(math.Radians(10)))
	return r.Mul(math.Mat4Translation(math.Vec3{X: 1.5, Y: -2.25, Z: 7}))
}

func TestBasisMatchingAxisIsUnitScale(t *testing.T) {
	b := Basis(1, "Z")
	assert.Equal(t, math.Mat4Identity(), b)

	// aside from the y/z sign flip the matrix is untouched
	m := sampleMatrix()
	p := Project(m, b)
	assert.Equal(t, m[0], p[0])
	assert.Equal(t, m[3], p[3])
	for j := 0; j < 4; j++ {
		assert.Equal(t, -m[1][j], p[1][j])
		assert.Equal(t, -m[2][j], p[2][j])
	}
}

func TestBasisYUp(t *testing.T) {
	b := Basis(0.01, "Y")
	want := math.Mat4{
		{0.01, 0, 0, 0},
		{0, 0, 0.01, 0},
		{0, -0.01, 0, 0},
		{0, 0, 0, 1},
	}
	assert.Equal(t, want, b)

	// a Y up translation of 100 units lands 1 metre up Z
	p := math.Mat4Translation(math.Vec3{Y: 100}).Mul(b)
	assert.InDelta(t, 1.0, p.Translation().Z, 1e-12)
	assert.InDelta(t, 0.0, p.Translation().Y, 1e-12)
}

func TestLightEqualsFlipComposition(t *testing.T) {
	p := Projector{Basis: Basis(0.01, "Y")}
	m := sampleMatrix()

	assert.Equal(t, LightFlip.Mul(m).Mul(p.Basis), p.Light(m))
	assert.Equal(t, p.Camera(m), p.Light(m))
}

func TestXformCancelsFlip(t *testing.T) {
	p := NewProjector(scene.Metadata{MetersPerUnit: 0.01, UpAxis: "Y"})
	m := sampleMatrix()

	assert.Equal(t, m.Mul(p.Basis), p.Xform(m))
}

func TestUnitBugPolicy(t *testing.T) {
	pol := DefaultUnitBugPolicy()

	v, fired := pol.DetectAuthoringToolUnitBug(3600)
	assert.True(t, fired)
	assert.Equal(t, 36.0, v)

	v, fired = pol.DetectAuthoringToolUnitBug(1000)
	assert.False(t, fired)
	assert.Equal(t, 1000.0, v)

	pol.Enabled = false
	v, fired = pol.DetectAuthoringToolUnitBug(3600)
	assert.False(t, fired)
	assert.Equal(t, 3600.0, v)
}

func TestReadLens(t *testing.T) {
	s := scene.NewStage("")
	cam := s.MustDefine("/Cam", scene.TypeCamera)
	units := CameraUnits{UnitBug: DefaultUnitBugPolicy()}
	assert.Equal(t, 1.0, units.Scale())

	l := ReadLens(cam, scene.DefaultTime, units)
	assert.Equal(t, Lens{
		HorizontalAperture: 36,
		VerticalAperture:   24,
		FocalLength:        50,
		FocusDistance:      0.877,
		FStop:              8,
	}, l)

	cam.SetAttribute("horizontalAperture", "float", 3600.0)
	cam.SetAttribute("focalLength", "float", 35.0)
	cam.SetAttribute("focusDistance", "float", 0.0)
	cam.SetAttribute("fStop", "float", 0.0)
	l = ReadLens(cam, scene.DefaultTime, units)
	assert.Equal(t, 36.0, l.HorizontalAperture)
	assert.Equal(t, 35.0, l.FocalLength)
	assert.Equal(t, DefaultFocusDistance, l.FocusDistance)
	assert.Equal(t, DefaultFStop, l.FStop)
}

func TestAnimatedCameraProjection(t *testing.T) {
	s := scene.NewStage("")
	cam := s.MustDefine("/Cam", scene.TypeCamera)
	cam.SetAttribute("xformOpOrder", "token[]", []string{"xformOp:translate"})
	tr := cam.CreateAttribute("xformOp:translate", "double3")
	tr.SetSample(1, math.Vec3{Z: 10})
	tr.SetSample(2, math.Vec3{Z: 20})

	p := Projector{Basis: Basis(1, "Y")}
	l2w, err := cam.LocalToWorld(2)
	require.NoError(t, err)
	out := p.Camera(l2w)

	// Y up +Z maps to target -Y
	assert.InDelta(t, -20.0, out.Translation().Y, 1e-12)
	assert.False(t, stdmath.IsNaN(out[0][0]))
}
