package io

import (
	"fmt"
	"log/slog"
	stdmath "math"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspunctual"
	"github.com/qmuntal/gltf/modeler"

	"bella-bridge/core"
	"bella-bridge/materials"
	"bella-bridge/math"
	"bella-bridge/scene"
)

// gltfFilmHeight is the vertical aperture, in millimetres, a perspective
// camera's field of view is converted against.
const gltfFilmHeight = 24.0

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

type gltfLoader struct {
	doc   *gltf.Document
	stage *scene.Stage
	opts  Options
	log   core.Logger
	names siblings

	images    []string
	materials []*scene.Prim
	lights    lightspunctual.Lights
	meshes    map[int][]*gltfPrimitive
	visited   map[int]bool
}

// gltfPrimitive is one triangle list, decoded once per glTF mesh.
type gltfPrimitive struct {
	points    []math.Vec3
	normals   []math.Vec3
	texcoords []math.Vec2
	indices   []int
	material  *int
}

// LoadGLTF reads a .gltf or .glb file into a Y-up stage in meters. Nodes
// become Xform prims, mesh primitives become Mesh children, cameras and
// KHR_lights_punctual lights become Camera and light children and materials
// become UsdPreviewSurface networks under /Looks.
func LoadGLTF(path string, opts Options) (*scene.Stage, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	s := scene.NewStage(path)
	s.Metadata.UpAxis = "Y"
	s.Metadata.MetersPerUnit = 1
	if doc.Asset.Generator != "" {
		s.Metadata.CustomLayerData = map[string]string{"generator": doc.Asset.Generator}
	}

	l := &gltfLoader{
		doc:     doc,
		stage:   s,
		opts:    opts,
		log:     core.Logger{L: core.ComponentLogger(opts.Logger, "gltf")},
		names:   make(siblings),
		meshes:  make(map[int][]*gltfPrimitive),
		visited: make(map[int]bool),
	}
	if lights, ok := doc.Extensions[lightspunctual.ExtensionName].(lightspunctual.Lights); ok {
		l.lights = lights
	}
	// reserve the materials scope before any node can take its name
	l.names.child(scene.RootPath, LooksPath.Name())

	l.loadImages()
	l.loadMaterials()
	for _, root := range l.roots() {
		if err := l.node(root, scene.RootPath); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// roots returns the nodes of the default scene, or every parentless node
// when there is none.
func (l *gltfLoader) roots() []int {
	doc := l.doc
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var out []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			out = append(out, i)
		}
	}
	return out
}

func (l *gltfLoader) loadImages() {
	l.images = make([]string, len(l.doc.Images))
	for i, img := range l.doc.Images {
		switch {
		case img.BufferView != nil || img.IsEmbeddedResource():
			l.images[i] = l.extractImage(i, img)
		case img.URI != "":
			l.images[i] = filepath.ToSlash(img.URI)
		}
	}
}

// extractImage writes an embedded image into TextureDir and returns its
// path, or "" when the image cannot be used.
func (l *gltfLoader) extractImage(i int, img *gltf.Image) string {
	if l.opts.TextureDir == "" {
		l.log.Debug("skipping embedded image", slog.Int("image", i))
		return ""
	}
	var data []byte
	var err error
	if img.BufferView != nil {
		data, err = modeler.ReadBufferView(l.doc, l.doc.BufferViews[*img.BufferView])
	} else {
		data, err = img.MarshalData()
	}
	if err != nil {
		l.log.Debug("embedded image", slog.Int("image", i), slog.Any("error", err))
		return ""
	}

	ext := ".png"
	if img.MimeType == "image/jpeg" {
		ext = ".jpg"
	}
	stem := strings.TrimSuffix(img.Name, filepath.Ext(img.Name))
	file := filepath.Join(l.opts.TextureDir, primName(stem, fmt.Sprintf("image_%d", i))+ext)
	if err := os.MkdirAll(l.opts.TextureDir, 0o755); err != nil {
		l.log.Debug("texture directory", slog.Any("error", err))
		return ""
	}
	if err := os.WriteFile(file, data, 0o644); err != nil {
		l.log.Debug("write image", slog.String("file", file), slog.Any("error", err))
		return ""
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return file
	}
	return abs
}

// texture returns the image file and wrap modes of texture index i.
func (l *gltfLoader) texture(i int) (file, wrapS, wrapT string) {
	if i < 0 || i >= len(l.doc.Textures) {
		return "", "", ""
	}
	t := l.doc.Textures[i]
	if t.Source == nil || *t.Source >= len(l.images) {
		return "", "", ""
	}
	wrapS, wrapT = wrapRepeat, wrapRepeat
	if t.Sampler != nil && *t.Sampler < len(l.doc.Samplers) {
		sampler := l.doc.Samplers[*t.Sampler]
		wrapS, wrapT = wrapToken(sampler.WrapS), wrapToken(sampler.WrapT)
	}
	return l.images[*t.Source], wrapS, wrapT
}

func wrapToken(w gltf.WrappingMode) string {
	switch w {
	case gltf.WrapClampToEdge:
		return wrapClamp
	case gltf.WrapMirroredRepeat:
		return wrapMirror
	}
	return wrapRepeat
}

func (l *gltfLoader) loadMaterials() {
	if len(l.doc.Materials) == 0 {
		return
	}
	l.stage.MustDefine(LooksPath, scene.TypeScope)
	l.materials = make([]*scene.Prim, len(l.doc.Materials))
	for i, gm := range l.doc.Materials {
		path := l.names.child(LooksPath, primName(gm.Name, fmt.Sprintf("material_%d", i)))
		m := newPreviewMaterial(l.stage, path)

		color := [4]float64{1, 1, 1, 1}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			color = pbr.BaseColorFactorOrDefault()
			m.setFloat(materials.Metallic, pbr.MetallicFactorOrDefault())
			m.setFloat(materials.Roughness, pbr.RoughnessFactorOrDefault())
		}
		m.setColor(materials.DiffuseColor, math.Vec3{X: color[0], Y: color[1], Z: color[2]})
		if color[3] < 1 {
			m.setFloat(materials.Opacity, color[3])
		}

		if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
			l.connect(m, materials.DiffuseColor, "BaseColorTexture", pbr.BaseColorTexture.Index)
		}
		if nt := gm.NormalTexture; nt != nil && nt.Index != nil {
			l.connect(m, materials.Normal, "NormalTexture", *nt.Index)
		}
		l.materials[i] = m.material
	}
}

func (l *gltfLoader) connect(m *previewMaterial, c materials.Channel, name string, index int) {
	file, wrapS, wrapT := l.texture(index)
	if file == "" {
		l.log.Debug("unresolved texture", slog.String("material", m.material.Path().String()), slog.Int("texture", index))
		return
	}
	m.connectTexture(c, name, file, wrapS, wrapT)
}

func (l *gltfLoader) node(i int, parent scene.Path) error {
	if i < 0 || i >= len(l.doc.Nodes) {
		return fmt.Errorf("gltf: node index %d out of range", i)
	}
	if l.visited[i] {
		return fmt.Errorf("gltf: node %d is reachable twice", i)
	}
	l.visited[i] = true

	n := l.doc.Nodes[i]
	path := l.names.child(parent, primName(n.Name, fmt.Sprintf("node_%d", i)))
	prim := l.stage.MustDefine(path, scene.TypeXform)
	if m := nodeMatrix(n); m != math.Mat4Identity() {
		prim.SetTransform(m)
	}

	if n.Mesh != nil {
		if err := l.mesh(prim, *n.Mesh); err != nil {
			return err
		}
	}
	if n.Camera != nil && *n.Camera < len(l.doc.Cameras) {
		l.camera(prim, l.doc.Cameras[*n.Camera])
	}
	if idx, ok := n.Extensions[lightspunctual.ExtensionName].(lightspunctual.LightIndex); ok {
		if int(idx) < len(l.lights) {
			l.light(prim, l.lights[idx])
		}
	}
	for _, c := range n.Children {
		if err := l.node(c, path); err != nil {
			return err
		}
	}
	return nil
}

// nodeMatrix converts the node transform to row vector form. glTF stores
// column vector matrices column major, which is the row major layout of the
// transposed matrix.
func nodeMatrix(n *gltf.Node) math.Mat4 {
	if m := n.MatrixOrDefault(); m != identityMatrix {
		return math.Mat4FromRows(m)
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	tr := core.Transform{
		Position: math.Vec3{X: t[0], Y: t[1], Z: t[2]},
		Rotation: math.Quaternion{X: r[0], Y: r[1], Z: r[2], W: r[3]},
		Scale:    math.Vec3{X: s[0], Y: s[1], Z: s[2]},
	}
	if tr.IsIdentity() {
		return math.Mat4Identity()
	}
	return tr.GetMatrix()
}

func (l *gltfLoader) mesh(parent *scene.Prim, index int) error {
	if index < 0 || index >= len(l.doc.Meshes) {
		return fmt.Errorf("gltf: mesh index %d out of range", index)
	}
	gm := l.doc.Meshes[index]
	prims, ok := l.meshes[index]
	if !ok {
		for pi, p := range gm.Primitives {
			decoded, err := l.readPrimitive(p)
			if err != nil {
				l.log.Debug("skipping primitive", slog.Int("mesh", index), slog.Int("primitive", pi), slog.Any("error", err))
				continue
			}
			prims = append(prims, decoded)
		}
		l.meshes[index] = prims
	}

	name := primName(gm.Name, fmt.Sprintf("mesh_%d", index))
	for _, p := range prims {
		prim := l.stage.MustDefine(l.names.child(parent.Path(), name), scene.TypeMesh)
		p.author(prim)
		if p.material != nil && *p.material < len(l.materials) {
			bindMaterial(prim, l.materials[*p.material])
		}
	}
	return nil
}

func (l *gltfLoader) readPrimitive(p *gltf.Primitive) (*gltfPrimitive, error) {
	if p.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("unsupported primitive mode %d", p.Mode)
	}
	posIdx, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(l.doc, l.doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	out := &gltfPrimitive{material: p.Material, points: make([]math.Vec3, len(positions))}
	for i, v := range positions {
		out.points[i] = math.Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
	}
	if idx, ok := p.Attributes["NORMAL"]; ok {
		normals, err := modeler.ReadNormal(l.doc, l.doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		out.normals = make([]math.Vec3, len(normals))
		for i, n := range normals {
			out.normals[i] = math.Vec3{X: float64(n[0]), Y: float64(n[1]), Z: float64(n[2])}
		}
	}
	if idx, ok := p.Attributes["TEXCOORD_0"]; ok {
		uvs, err := modeler.ReadTextureCoord(l.doc, l.doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
		// glTF puts the texture origin top left
		out.texcoords = make([]math.Vec2, len(uvs))
		for i, uv := range uvs {
			out.texcoords[i] = math.Vec2{X: float64(uv[0]), Y: float64(uv[1])}.FlipV()
		}
	}

	if p.Indices != nil {
		indices, err := modeler.ReadIndices(l.doc, l.doc.Accessors[*p.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		out.indices = make([]int, len(indices))
		for i, v := range indices {
			out.indices[i] = int(v)
		}
	} else {
		out.indices = make([]int, len(out.points))
		for i := range out.indices {
			out.indices[i] = i
		}
	}
	if len(out.indices)%3 != 0 {
		return nil, fmt.Errorf("%d indices do not form triangles", len(out.indices))
	}
	return out, nil
}

// author writes the triangle list onto a Mesh prim. Per-vertex normals and
// texcoords carry explicit indices so they are never mistaken for
// per-corner data.
func (p *gltfPrimitive) author(prim *scene.Prim) {
	counts := make([]int, len(p.indices)/3)
	for i := range counts {
		counts[i] = 3
	}
	prim.SetAttribute("faceVertexCounts", "int[]", counts)
	prim.SetAttribute("faceVertexIndices", "int[]", p.indices)
	prim.SetAttribute("points", "point3f[]", p.points)
	if len(p.normals) == len(p.points) {
		prim.SetAttribute("normals", "normal3f[]", p.normals)
		prim.SetAttribute("normals:indices", "int[]", p.indices)
	}
	if len(p.texcoords) == len(p.points) {
		prim.SetAttribute("primvars:st", "texCoord2f[]", p.texcoords)
		prim.SetAttribute("primvars:st:indices", "int[]", p.indices)
	}
}

func (l *gltfLoader) camera(parent *scene.Prim, c *gltf.Camera) {
	cam := l.stage.MustDefine(l.names.child(parent.Path(), primName(c.Name, "camera")), scene.TypeCamera)
	persp := c.Perspective
	if persp == nil {
		l.log.Debug("orthographic camera uses lens defaults", slog.String("camera", cam.Path().String()))
		cam.SetAttribute("projection", "token", "orthographic")
		return
	}
	aspect := 1.5
	if persp.AspectRatio != nil && *persp.AspectRatio > 0 {
		aspect = *persp.AspectRatio
	}
	cam.SetAttribute("projection", "token", "perspective")
	cam.SetAttribute("verticalAperture", "float", gltfFilmHeight)
	cam.SetAttribute("horizontalAperture", "float", gltfFilmHeight*aspect)
	if persp.Yfov > 0 {
		cam.SetAttribute("focalLength", "float", gltfFilmHeight/(2*stdmath.Tan(persp.Yfov/2)))
	}
}

func (l *gltfLoader) light(parent *scene.Prim, gl *lightspunctual.Light) {
	var typeName string
	switch gl.Type {
	case "directional":
		typeName = scene.TypeDistantLight
	case "point", "spot":
		typeName = scene.TypeSphereLight
	default:
		l.log.Debug("unknown light type", slog.String("type", gl.Type))
		return
	}
	light := l.stage.MustDefine(l.names.child(parent.Path(), primName(gl.Name, "light")), typeName)
	c := gl.ColorOrDefault()
	light.SetAttribute("inputs:color", "color3f", math.Vec3{X: c[0], Y: c[1], Z: c[2]})
	light.SetAttribute("inputs:intensity", "float", gl.IntensityOrDefault())
	if gl.Type == "spot" && gl.Spot != nil {
		deg := gl.Spot.OuterConeAngleOrDefault() * 180 / stdmath.Pi
		light.SetAttribute("shaping:cone:angle", "float", deg)
	}
}
