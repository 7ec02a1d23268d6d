package bella

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bella-bridge/core"
	"bella-bridge/materials"
	"bella-bridge/math"
	"bella-bridge/projection"
	"bella-bridge/scene"
	"bella-bridge/topology"
)

const looksDoc = `
prims:
  - name: Looks
    type: Scope
    children:
      - name: Red
        type: Material
        attributes:
          outputs:surface: {type: token, connect: [/Looks/Red/Surface.outputs:surface]}
        children:
          - name: Surface
            type: Shader
            attributes:
              info:id: {type: token, value: UsdPreviewSurface}
              inputs:diffuseColor: {type: color3f, value: [0.8, 0.1, 0.1]}
              inputs:metallic: {type: float, value: 0}
              inputs:roughness: {type: float, value: 0.5}
              inputs:normal: {type: normal3f, connect: [/Looks/Red/Bump.outputs:rgb]}
          - name: Bump
            type: Shader
            attributes:
              info:id: {type: token, value: UsdUVTexture}
              inputs:file: {type: asset, value: "@textures/red_normal.png@"}
`

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func redMaterial(t *testing.T) (*materials.Descriptor, *materials.TextureRef) {
	t.Helper()
	stage, err := scene.ParseStage([]byte(looksDoc), "/shots/look.yaml")
	require.NoError(t, err)
	d, textures := materials.Resolve(stage.PrimAtPath("/Looks/Red"), "", nil)
	require.Len(t, textures, 1)
	return d, textures[0]
}

func sampleGeometry() *topology.Mesh {
	up := math.Vec3{Z: 1}
	return &topology.Mesh{
		Polygons: []topology.Polygon{{0, 1, 2, 3}, {4, 5, 6, 6}},
		Points: []math.Vec3{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 0.5}, {X: 1, Y: 0, Z: 0.5}, {X: 0.5, Y: 1, Z: 0.5},
		},
		Normals: []math.Vec3{up, up, up, up, up, up, up},
		Texcoords: []math.Vec2{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0.5, Y: 1},
		},
		FaceCounts: []int{4, 3},
	}
}

func TestHeaderGolden(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Header()
	require.NoError(t, w.Flush())

	golden(t).Assert(t, "header", buf.Bytes())
	assert.Equal(t, 4, w.Nodes())
}

func TestFrameGolden(t *testing.T) {
	red, bump := redMaterial(t)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Header()

	var settings Settings
	var world []core.Identifier

	w.Mesh(Mesh{
		ID:          "Floor",
		Name:        "Floor",
		Local:       math.Mat4Translation(math.Vec3{Z: 2}),
		Material:    red.ID,
		Geometry:    sampleGeometry(),
		Subdivision: 1,
	})
	w.MeshInstance(MeshInstance{
		ID:     "FloorCopy",
		Name:   "Floor Copy",
		Local:  math.Mat4Translation(math.Vec3{X: 3}),
		Target: "Floor_m",
	})
	w.Primitive(Primitive{
		ID:    "Crate",
		Name:  "Crate",
		Shape: ShapeBox,
		Local: math.Mat4Identity(),
		Size:  math.Vec3{X: 2, Y: 2, Z: 2},
	})
	w.Xform(Xform{
		ID:       "Set",
		Name:     "Set",
		Children: []core.Identifier{"Floor", "FloorCopy", "Crate"},
		Local:    math.Mat4Scale(math.Vec3{X: 2, Y: 2, Z: 2}),
	})

	world = append(world, "Bulb")
	w.Light(Light{
		ID:        "Bulb",
		Name:      "Bulb",
		Type:      PointLight,
		Matrix:    math.Mat4Translation(math.Vec3{Z: 3}),
		Color:     math.Vec3{X: 1, Y: 0.5, Z: 0.25},
		Intensity: 10,
		Radius:    0.5,
	})
	world = append(world, "Sky")
	settings.UseEnvironment(w.Light(Light{
		ID:        "Sky",
		Name:      "Sky",
		Type:      ImageDome,
		Matrix:    math.Mat4Identity(),
		Color:     math.Vec3{X: 1, Y: 1, Z: 1},
		Intensity: 1,
		DomeFile:  "hdri/studio.exr",
	}))

	cam := w.Camera(Camera{
		ID:     "Shot",
		Matrix: math.Mat4Translation(math.Vec3{Y: -5}),
		Lens: projection.Lens{
			HorizontalAperture: 36,
			VerticalAperture:   24,
			FocalLength:        35,
			FocusDistance:      0.877,
			FStop:              2.8,
		},
	})
	settings.UseCamera("Shot")
	world = append(world, cam)

	w.Uber(red, UberOptions{})
	w.FileTexture(bump)
	w.NormalMap(bump)

	w.Settings(settings)
	root := RootID("look")
	w.Root(root, []core.Identifier{"Set"}, projection.Basis(0.01, "Y"))
	w.World(append(world, root))
	require.NoError(t, w.Flush())

	golden(t).Assert(t, "frame", buf.Bytes())
}

func TestDefaultCameraGolden(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	xf := w.DefaultCamera()
	require.NoError(t, w.Flush())

	assert.Equal(t, core.Identifier("oomerCamera_xform"), xf)
	golden(t).Assert(t, "default_camera", buf.Bytes())
}

func TestAttributeAlignment(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.attr("name", `"a"`)
	w.connect("base.color", "tex.outColor")
	w.attr("a.very.long.attribute.name.past", "1")
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `  .name                       = "a";`, lines[0])
	assert.Equal(t, "  .base.color                |= tex.outColor;", lines[1])
	assert.Equal(t, "  .a.very.long.attribute.name.past= 1;", lines[2])
	// values of plain and connected attributes start in the same column
	assert.Equal(t, strings.Index(lines[0], `"a"`), strings.Index(lines[1], "tex"))
}

func TestFormatScalar(t *testing.T) {
	cases := map[float64]string{
		0:         "0",
		1:         "1",
		-2.5:      "-2.5",
		0.877:     "0.877",
		100000:    "100000",
		1e16:      "1e+16",
		0.00001:   "1e-05",
		0.0001:    "0.0001",
		13.5:      "13.5",
		1234567.5: "1234567.5",
	}
	for v, want := range cases {
		assert.Equal(t, want, formatScalar(v), "%v", v)
	}
	assert.Equal(t, "13.5f", formatFloat(13.5))
	assert.Equal(t, "6u", formatUint(6))
}

func TestFormatElementLikePrintfG(t *testing.T) {
	cases := map[float64]string{
		0:           "0",
		0.5:         "0.5",
		1.0 / 3:     "0.333333",
		100:         "100",
		1234567:     "1.23457e+06",
		0.000012345: "1.2345e-05",
		-0.25:       "-0.25",
	}
	for v, want := range cases {
		assert.Equal(t, want, formatElem(v), "%v", v)
	}
	assert.Equal(t, "mat4(1 0 0 0 0 1 0 0 0 0 1 0 0 0 0 1)", formatMat4(math.Mat4Identity()))
}

func TestArrayCountsElements(t *testing.T) {
	g := sampleGeometry()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Mesh(Mesh{ID: "M", Name: "M", Local: math.Mat4Identity(), Geometry: g})
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Contains(t, out, "= vec4u[2]{0 1 2 3 4 5 6 6};")
	assert.Contains(t, out, "= pos3f[7]{")
	assert.Contains(t, out, "= vec3f[7]{")
	assert.Contains(t, out, "= vec2f[7]{")
	assert.NotContains(t, out, ".material")
	assert.NotContains(t, out, "subdivision")
}

func TestMeshWithoutOptionalData(t *testing.T) {
	g := sampleGeometry()
	g.Normals, g.Texcoords = nil, nil

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Mesh(Mesh{ID: "M", Name: "M", Local: math.Mat4Identity(), Geometry: g})
	require.NoError(t, w.Flush())

	assert.NotContains(t, buf.String(), "normals")
	assert.NotContains(t, buf.String(), "uvs")
}

func TestSettingsKeepsFirstChoice(t *testing.T) {
	var s Settings
	s.UseCamera("A")
	s.UseCamera("B")
	s.UseEnvironment("SkyA_l")
	s.UseEnvironment("SkyB_l")
	assert.Equal(t, core.Identifier("A"), s.Camera)
	assert.Equal(t, core.Identifier("SkyA_l"), s.environment())

	s.ColorDome = true
	assert.Equal(t, ColorDomeID, s.environment())

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Settings(s)
	require.NoError(t, w.Flush())
	assert.Contains(t, buf.String(), "  .environment                = colorDome;\n")
	assert.True(t, strings.HasSuffix(buf.String(), "colorDome colorDome;\n"))
}

func TestSettingsWithoutCamera(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Settings(Settings{})
	require.NoError(t, w.Flush())
	assert.NotContains(t, buf.String(), ".camera")
	assert.NotContains(t, buf.String(), ".environment")
}

func TestLightTypes(t *testing.T) {
	write := func(l Light) string {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		id := w.Light(l)
		require.NoError(t, w.Flush())
		assert.Equal(t, l.ID+LightSuffix, id)
		return buf.String()
	}

	sun := write(Light{ID: "Sun", Name: "Sun", Type: DirectionalLight, Matrix: math.Mat4Identity(), Color: math.Vec3{X: 1, Y: 1, Z: 1}, Intensity: 3})
	assert.Contains(t, sun, "directionalLight Sun_l:\n")
	assert.NotContains(t, sun, "multiplier")

	spot := write(Light{ID: "Cone", Name: "Cone", Type: SpotLight, Matrix: math.Mat4Identity(), Intensity: 1})
	assert.Contains(t, spot, "  .multiplier                 = 100000f;\n")
	assert.Contains(t, spot, "  .aperture                   = 100f;\n")
	assert.Contains(t, spot, "  .penumbra                   = 4f;\n")
	assert.Contains(t, spot, "  .radius                     = 1.9f;\n")

	disk := write(Light{ID: "Disk", Name: "Disk", Type: AreaLight, Disk: true, Radius: 0.75, Matrix: math.Mat4Identity()})
	assert.Contains(t, disk, `  .shape                      = "disk";`)
	assert.Contains(t, disk, "  .sizeX                      = 0.75f;\n")
	assert.Contains(t, disk, "  .sizeY                      = 0.75f;\n")

	rect := write(Light{ID: "Panel", Name: "Panel", Type: AreaLight, Width: 2, Height: 0.5, Matrix: math.Mat4Identity()})
	assert.NotContains(t, rect, "shape")
	assert.Contains(t, rect, "  .sizeX                      = 2f;\n")
	assert.Contains(t, rect, "  .sizeY                      = 0.5f;\n")
}

func TestUberSkipRoughness(t *testing.T) {
	red, _ := redMaterial(t)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Uber(red, UberOptions{SkipRoughness: true})
	require.NoError(t, w.Flush())
	assert.NotContains(t, buf.String(), "roughness")
	assert.Contains(t, buf.String(), "base.color")
}

func TestTextureOutputs(t *testing.T) {
	assert.Equal(t, "T.outColor", textureOutput(materials.DiffuseColor, "T"))
	assert.Equal(t, "TnormalMap.outNormal", textureOutput(materials.Normal, "T"))
	assert.Equal(t, "T.outAverage", textureOutput(materials.Roughness, "T"))
	assert.Equal(t, "T.outAverage", textureOutput(materials.Metallic, "T"))
}

func TestSplitFile(t *testing.T) {
	dir, ext, stem := splitFile("textures/wood.albedo.png")
	assert.Equal(t, "textures", dir)
	assert.Equal(t, ".png", ext)
	assert.Equal(t, "wood.albedo", stem)

	dir, ext, stem = splitFile("sky.hdr")
	assert.Equal(t, ".", dir)
	assert.Equal(t, ".hdr", ext)
	assert.Equal(t, "sky", stem)
}

func TestInstancerSkipsEmptySets(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Instancer(Instancer{
		ID:    "Crowd",
		Name:  "Crowd",
		Local: math.Mat4Identity(),
		Sets: []InstanceSet{
			{Prototype: "Chair", Matrices: []math.Mat4{math.Mat4Identity(), math.Mat4Translation(math.Vec3{X: 1})}},
			{Prototype: "Table"},
		},
	})
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Contains(t, out, "  .children[*]                = Crowd_0;\n")
	assert.NotContains(t, out, "Crowd_1")
	assert.Contains(t, out, "instancer Crowd_0:\n")
	assert.Contains(t, out, "  .steps[0].instances         = mat4f[2]{1 0 0 0 0 1 0 0 0 0 1 0 0 0 0 1 1 0 0 0 0 1 0 0 0 0 1 0 1 0 0 1};\n")
	assert.Equal(t, 2, w.Nodes())
}

type failingWriter struct{ n int }

var errDiskFull = errors.New("disk full")

func (f *failingWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, errDiskFull
}

func TestWriterKeepsFirstError(t *testing.T) {
	fw := &failingWriter{}
	w := NewWriter(fw)
	w.Header()
	for i := 0; i < 1000; i++ {
		w.DefaultCamera()
	}
	err := w.Flush()
	assert.ErrorIs(t, err, errDiskFull)
	assert.ErrorIs(t, w.Flush(), errDiskFull)
	assert.Equal(t, 1, fw.n)
}
