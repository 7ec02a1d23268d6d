package scene

import (
	stdmath "math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bella-bridge/math"
)

const animatedDoc = `
metadata:
  metersPerUnit: 0.01
  upAxis: Y
  timeCodesPerSecond: 24
  startTimeCode: 1
  endTimeCode: 3
prims:
  - name: World
    type: Xform
    kind: group
    attributes:
      xformOp:translate: {type: double3, value: [1, 2, 3]}
      xformOpOrder: {type: "token[]", value: ["xformOp:translate"]}
    children:
      - name: Box
        type: Mesh
        attributes:
          faceVertexCounts: {type: "int[]", value: [4]}
          faceVertexIndices: {type: "int[]", value: [0, 1, 2, 3]}
          points:
            type: "point3f[]"
            timeSamples:
              1: [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]
              3: [[0, 0, 1], [1, 0, 1], [1, 1, 1], [0, 1, 1]]
          xformOp:rotateXYZ: {type: float3, value: [0, 90, 0]}
          xformOp:scale: {type: float3, value: [2, 2, 2]}
          xformOpOrder: {type: "token[]", value: ["xformOp:rotateXYZ", "xformOp:scale"]}
        relationships:
          material:binding: [/World/Looks/Red]
      - name: Looks
        type: Scope
        children:
          - name: Red
            type: Material
            attributes:
              outputs:surface: {type: token, connect: [/World/Looks/Red/Surface.outputs:surface]}
            children:
              - name: Surface
                type: Shader
                attributes:
                  info:id: {type: token, value: UsdPreviewSurface}
                  inputs:roughness: {type: float, value: 0.4}
prototypes:
  - name: __Prototype_1
    type: Xform
    children:
      - name: GEO
        type: Mesh
`

func loadDoc(t *testing.T, doc string) *Stage {
	t.Helper()
	s, err := ParseStage([]byte(doc), "/scenes/shot.yaml")
	require.NoError(t, err)
	return s
}

func TestParseStageMetadata(t *testing.T) {
	s := loadDoc(t, animatedDoc)

	assert.Equal(t, 0.01, s.Metadata.MetersPerUnit)
	assert.Equal(t, "Y", s.Metadata.UpAxis)
	assert.Equal(t, 24.0, s.Metadata.TimeCodesPerSecond)
	assert.Equal(t, 1.0, s.Metadata.StartTimeCode)
	assert.Equal(t, 3.0, s.Metadata.EndTimeCode)
	assert.Equal(t, "shot", s.Stem())
	assert.Equal(t, "/scenes", s.Dir())
}

func TestStageDefaults(t *testing.T) {
	s, err := ParseStage([]byte("prims: []\n"), "empty.yaml")
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.Metadata.MetersPerUnit)
	assert.Equal(t, "Y", s.Metadata.UpAxis)
	assert.Equal(t, 30.0, s.Metadata.TimeCodesPerSecond)
}

func TestParseStageHierarchy(t *testing.T) {
	s := loadDoc(t, animatedDoc)

	box := s.PrimAtPath("/World/Box")
	require.NotNil(t, box)
	assert.Equal(t, TypeMesh, box.TypeName)
	assert.Equal(t, "Box", box.Name())
	assert.Equal(t, Path("/World"), box.Parent().Path())
	assert.Equal(t, "group", s.PrimAtPath("/World").Kind)

	mat := box.RelationshipTarget("material:binding")
	require.NotNil(t, mat)
	assert.Equal(t, Path("/World/Looks/Red"), mat.Path())

	shader, conn, ok := mat.ConnectedPrim("outputs:surface")
	require.True(t, ok)
	assert.Equal(t, Path("/World/Looks/Red/Surface"), shader.Path())
	assert.Equal(t, "outputs:surface", conn.Name)
	assert.Equal(t, "UsdPreviewSurface", GetOr(shader, "info:id", DefaultTime, ""))
}

func TestPrototypesAreOutOfLine(t *testing.T) {
	s := loadDoc(t, animatedDoc)

	require.Len(t, s.Prototypes(), 1)
	proto := s.Prototypes()[0]
	assert.Equal(t, Path("/__Prototype_1"), proto.Path())
	assert.NotNil(t, s.PrimAtPath("/__Prototype_1/GEO"))

	for _, c := range s.PseudoRoot().Children() {
		assert.NotEqual(t, proto, c)
	}
}

func TestAttributeTimeSamplesAreHeld(t *testing.T) {
	s := loadDoc(t, animatedDoc)
	box := s.PrimAtPath("/World/Box")

	at := func(tc TimeCode) math.Vec3 {
		pts, err := Get[[]math.Vec3](box, "points", tc)
		require.NoError(t, err)
		return pts[0]
	}
	assert.Equal(t, math.Vec3{}, at(0))
	assert.Equal(t, math.Vec3{}, at(1))
	assert.Equal(t, math.Vec3{}, at(2))
	assert.Equal(t, math.Vec3{Z: 1}, at(3))
	assert.Equal(t, math.Vec3{Z: 1}, at(10))
	assert.Equal(t, math.Vec3{}, at(DefaultTime))
}

func TestGetErrors(t *testing.T) {
	s := loadDoc(t, animatedDoc)
	box := s.PrimAtPath("/World/Box")

	_, err := Get[[]int](box, "missing", DefaultTime)
	assert.ErrorIs(t, err, ErrNoAttribute)

	_, err = Get[string](box, "faceVertexCounts", DefaultTime)
	assert.ErrorIs(t, err, ErrAttributeType)

	box.CreateAttribute("empty", "float")
	_, err = Get[float64](box, "empty", DefaultTime)
	assert.ErrorIs(t, err, ErrNoValue)

	box.SetAttribute("count", "int", 3)
	f, err := Get[float64](box, "count", DefaultTime)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)
}

func TestLocalToWorld(t *testing.T) {
	s := loadDoc(t, animatedDoc)
	box := s.PrimAtPath("/World/Box")

	m, err := box.LocalToWorld(DefaultTime)
	require.NoError(t, err)

	// scale 2, rotate 90 about Y, then the parent's translate
	p := m.MulVec3(math.Vec3{X: 1})
	assert.InDelta(t, 1.0, p.X, 1e-9)
	assert.InDelta(t, 2.0, p.Y, 1e-9)
	assert.InDelta(t, 1.0, p.Z, 1e-9)
}

func TestResetXformStack(t *testing.T) {
	s := NewStage("")
	parent := s.MustDefine("/A", TypeXform)
	parent.SetTransform(math.Mat4Translation(math.Vec3{X: 5}))
	child := s.MustDefine("/A/B", TypeXform)
	child.SetAttribute("xformOp:translate", "double3", math.Vec3{Y: 1})
	child.SetAttribute("xformOpOrder", "token[]", []string{"!resetXformStack!", "xformOp:translate"})

	m, err := child.LocalToWorld(DefaultTime)
	require.NoError(t, err)
	assert.Equal(t, math.Vec3{Y: 1}, m.Translation())
}

func TestInvertedPivot(t *testing.T) {
	s := NewStage("")
	p := s.MustDefine("/P", TypeXform)
	p.SetAttribute("xformOp:translate:pivot", "float3", math.Vec3{X: 1})
	p.SetAttribute("xformOp:rotateZ", "float", 180.0)
	p.SetAttribute("xformOpOrder", "token[]", []string{
		"xformOp:translate:pivot", "xformOp:rotateZ", "!invert!xformOp:translate:pivot",
	})

	m, _, err := p.LocalTransform(DefaultTime)
	require.NoError(t, err)

	// rotating about x=1 maps the origin to (2, 0, 0)
	o := m.MulVec3(math.Vec3{})
	assert.InDelta(t, 2.0, o.X, 1e-9)
	assert.InDelta(t, 0.0, o.Y, 1e-9)
}

func TestUnsupportedXformOp(t *testing.T) {
	s := NewStage("")
	p := s.MustDefine("/P", TypeXform)
	p.SetAttribute("xformOpOrder", "token[]", []string{"xformOp:shear"})

	_, _, err := p.LocalTransform(DefaultTime)
	assert.Error(t, err)
}

func TestPrimRangeOrder(t *testing.T) {
	s := loadDoc(t, animatedDoc)

	type visit struct {
		path  Path
		depth int
		post  bool
	}
	var got []visit
	r := NewPrimRange(s.PrimAtPath("/World"))
	for r.Next() {
		got = append(got, visit{r.Prim().Path(), r.Depth(), r.IsPostVisit()})
	}

	want := []visit{
		{"/World", 0, false},
		{"/World/Box", 1, false},
		{"/World/Box", 1, true},
		{"/World/Looks", 1, false},
		{"/World/Looks/Red", 2, false},
		{"/World/Looks/Red/Surface", 3, false},
		{"/World/Looks/Red/Surface", 3, true},
		{"/World/Looks/Red", 2, true},
		{"/World/Looks", 1, true},
		{"/World", 0, true},
	}
	assert.Equal(t, want, got)
}

func TestParseConnection(t *testing.T) {
	c := ParseConnection("</Looks/Mat/Tex.outputs:rgb>")
	assert.Equal(t, Path("/Looks/Mat/Tex"), c.Prim)
	assert.Equal(t, "outputs:rgb", c.Name)

	c = ParseConnection("/Looks/Mat")
	assert.Equal(t, Path("/Looks/Mat"), c.Prim)
	assert.Empty(t, c.Name)
}

func TestPathHelpers(t *testing.T) {
	p := Path("/World/Geo/body")
	assert.Equal(t, "body", p.Name())
	assert.Equal(t, Path("/World/Geo"), p.Parent())
	assert.Equal(t, RootPath, Path("/World").Parent())
	assert.Equal(t, Path("/World"), RootPath.Child("World"))
}

func TestStageRoundTrip(t *testing.T) {
	s := loadDoc(t, animatedDoc)
	out := filepath.Join(t.TempDir(), "copy.yaml")
	require.NoError(t, SaveStage(s, out))

	back, err := LoadStage(out)
	require.NoError(t, err)

	assert.Equal(t, s.Metadata.MetersPerUnit, back.Metadata.MetersPerUnit)
	box := back.PrimAtPath("/World/Box")
	require.NotNil(t, box)
	pts, err := Get[[]math.Vec3](box, "points", 3)
	require.NoError(t, err)
	assert.Equal(t, math.Vec3{X: 1, Y: 1, Z: 1}, pts[2])
	assert.Len(t, back.Prototypes(), 1)

	shader := back.PrimAtPath("/World/Looks/Red/Surface")
	require.NotNil(t, shader)
	assert.Equal(t, 0.4, GetOr(shader, "inputs:roughness", DefaultTime, 0.0))
}

func TestDecodeValueRejectsBadInput(t *testing.T) {
	_, err := DecodeValue("float3", []any{1, 2})
	assert.Error(t, err)

	_, err = DecodeValue("unknownType", 1)
	assert.Error(t, err)

	v, err := DecodeValue("quatf", []any{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, math.QuaternionIdentity(), v)
}

func TestDefaultTimeIsNaN(t *testing.T) {
	assert.True(t, stdmath.IsNaN(float64(DefaultTime)))
	assert.True(t, DefaultTime.IsDefault())
	assert.False(t, TimeCode(1).IsDefault())
}
