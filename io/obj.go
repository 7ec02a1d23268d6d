package io

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bella-bridge/core"
	"bella-bridge/materials"
	"bella-bridge/math"
	"bella-bridge/scene"
)

// objGroup is one o/g block, or the part of it using one material.
type objGroup struct {
	name     string
	material string

	counts  []int
	indices []int
	points  indexed[math.Vec3]

	texcoordIndices []int
	texcoords       indexed[math.Vec2]
	normalIndices   []int
	normals         indexed[math.Vec3]

	// set when some corner lacks a texcoord or normal reference
	partialTexcoords bool
	partialNormals   bool
}

// indexed collects the subset of a global OBJ array a group refers to.
type indexed[T any] struct {
	values []T
	local  map[int]int
}

func (x *indexed[T]) ref(global int, all []T) int {
	if x.local == nil {
		x.local = make(map[int]int)
	}
	if i, ok := x.local[global]; ok {
		return i
	}
	i := len(x.values)
	x.values = append(x.values, all[global])
	x.local[global] = i
	return i
}

type objReader struct {
	path string
	log  core.Logger

	positions []math.Vec3
	normals   []math.Vec3
	uvs       []math.Vec2

	groups    []*objGroup
	current   *objGroup
	material  string
	materials map[string]*mtlMaterial
	mtlOrder  []string
}

// LoadOBJ parses a Wavefront .obj file and any .mtl libraries it names.
// Each group becomes a Mesh prim under an Xform named after the file;
// faces keep their corner counts.
func LoadOBJ(path string, opts Options) (*scene.Stage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OBJ file: %w", err)
	}
	defer f.Close()

	r := &objReader{
		path:      path,
		log:       core.Logger{L: core.ComponentLogger(opts.Logger, "obj")},
		materials: make(map[string]*mtlMaterial),
	}
	r.current = &objGroup{name: "default"}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := r.line(scanner.Text()); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read OBJ file: %w", err)
	}
	r.flush()
	if len(r.groups) == 0 {
		return nil, fmt.Errorf("%s: no mesh data found in OBJ file", path)
	}
	return r.build(), nil
}

func (r *objReader) line(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	parts := strings.Fields(line)

	switch parts[0] {
	case "v":
		v, err := parseFloats(parts[1:], 3)
		if err != nil {
			return err
		}
		r.positions = append(r.positions, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
	case "vn":
		v, err := parseFloats(parts[1:], 3)
		if err != nil {
			return err
		}
		r.normals = append(r.normals, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
	case "vt":
		v, err := parseFloats(parts[1:], 2)
		if err != nil {
			return err
		}
		r.uvs = append(r.uvs, math.Vec2{X: v[0], Y: v[1]})
	case "f":
		return r.face(parts[1:])
	case "o", "g":
		r.flush()
		name := "unnamed"
		if len(parts) > 1 {
			name = parts[1]
		}
		r.current = &objGroup{name: name, material: r.material}
	case "usemtl":
		if len(parts) < 2 {
			return nil
		}
		r.material = parts[1]
		if len(r.current.counts) > 0 {
			// a material switch inside a group splits it
			name := r.current.name
			r.flush()
			r.current = &objGroup{name: name + "_" + r.material}
		}
		r.current.material = r.material
	case "mtllib":
		for _, lib := range parts[1:] {
			mtlPath := filepath.Join(filepath.Dir(r.path), lib)
			if err := r.loadMTL(mtlPath); err != nil {
				r.log.Debug("failed to load MTL file", slog.String("path", mtlPath), slog.Any("error", err))
			}
		}
	default:
		r.log.Trace("ignoring statement", slog.String("statement", parts[0]))
	}
	return nil
}

func (r *objReader) face(corners []string) error {
	if len(corners) < 3 {
		return fmt.Errorf("face with %d corners", len(corners))
	}
	g := r.current
	for _, corner := range corners {
		refs := strings.Split(corner, "/")
		v, err := resolveRef(refs[0], len(r.positions))
		if err != nil {
			return fmt.Errorf("vertex %q: %w", corner, err)
		}
		g.indices = append(g.indices, g.points.ref(v, r.positions))

		if len(refs) > 1 && refs[1] != "" {
			vt, err := resolveRef(refs[1], len(r.uvs))
			if err != nil {
				return fmt.Errorf("texcoord %q: %w", corner, err)
			}
			g.texcoordIndices = append(g.texcoordIndices, g.texcoords.ref(vt, r.uvs))
		} else {
			g.partialTexcoords = true
		}
		if len(refs) > 2 && refs[2] != "" {
			vn, err := resolveRef(refs[2], len(r.normals))
			if err != nil {
				return fmt.Errorf("normal %q: %w", corner, err)
			}
			g.normalIndices = append(g.normalIndices, g.normals.ref(vn, r.normals))
		} else {
			g.partialNormals = true
		}
	}
	g.counts = append(g.counts, len(corners))
	return nil
}

// resolveRef converts a 1-based (or negative, end-relative) OBJ reference
// into a 0-based index.
func resolveRef(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i += n
	} else {
		i--
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("reference %s out of range (%d defined)", s, n)
	}
	return i, nil
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i := range out {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (r *objReader) flush() {
	if r.current != nil && len(r.current.counts) > 0 {
		r.groups = append(r.groups, r.current)
	}
	r.current = nil
}

func (r *objReader) build() *scene.Stage {
	s := scene.NewStage(r.path)
	s.Metadata.UpAxis = "Y"
	s.Metadata.MetersPerUnit = 1

	names := make(siblings)
	names.child(scene.RootPath, LooksPath.Name())

	bound := make(map[string]*scene.Prim)
	if len(r.mtlOrder) > 0 {
		s.MustDefine(LooksPath, scene.TypeScope)
		for _, name := range r.mtlOrder {
			path := names.child(LooksPath, primName(name, "material"))
			bound[name] = r.materials[name].author(s, path)
		}
	}

	root := s.MustDefine(names.child(scene.RootPath, primName(s.Stem(), "obj")), scene.TypeXform)
	for _, g := range r.groups {
		prim := s.MustDefine(names.child(root.Path(), primName(g.name, "mesh")), scene.TypeMesh)
		prim.SetAttribute("faceVertexCounts", "int[]", g.counts)
		prim.SetAttribute("faceVertexIndices", "int[]", g.indices)
		prim.SetAttribute("points", "point3f[]", g.points.values)
		if !g.partialTexcoords && len(g.texcoordIndices) > 0 {
			prim.SetAttribute("primvars:st", "texCoord2f[]", g.texcoords.values)
			prim.SetAttribute("primvars:st:indices", "int[]", g.texcoordIndices)
		}
		if !g.partialNormals && len(g.normalIndices) > 0 {
			prim.SetAttribute("normals", "normal3f[]", g.normals.values)
			prim.SetAttribute("normals:indices", "int[]", g.normalIndices)
		}
		if g.material == "" {
			continue
		}
		if mat := bound[g.material]; mat != nil {
			bindMaterial(prim, mat)
		} else {
			r.log.Debug("undefined material", slog.String("group", g.name), slog.String("material", g.material))
		}
	}
	return s
}

// mtlMaterial holds the statements of one newmtl block.
type mtlMaterial struct {
	dir string

	diffuse   *math.Vec3
	roughness *float64
	metallic  *float64
	opacity   *float64
	ior       *float64

	diffuseMap string
	normalMap  string
}

func (r *objReader) loadMTL(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return err
	}

	var current *mtlMaterial
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		if parts[0] == "newmtl" {
			if len(parts) < 2 {
				continue
			}
			current = &mtlMaterial{dir: dir}
			if _, ok := r.materials[parts[1]]; !ok {
				r.mtlOrder = append(r.mtlOrder, parts[1])
			}
			r.materials[parts[1]] = current
			continue
		}
		if current == nil {
			continue
		}
		current.statement(parts)
	}
	return scanner.Err()
}

func (m *mtlMaterial) statement(parts []string) {
	scalar := func() *float64 {
		v, err := parseFloats(parts[1:], 1)
		if err != nil {
			return nil
		}
		return &v[0]
	}
	switch parts[0] {
	case "Kd":
		if v, err := parseFloats(parts[1:], 3); err == nil {
			m.diffuse = &math.Vec3{X: v[0], Y: v[1], Z: v[2]}
		}
	case "Ns":
		// shininess 0-1000 to roughness; Pr wins when both are present
		if ns := scalar(); ns != nil && m.roughness == nil {
			rough := min(max(1-*ns/1000, 0), 1)
			m.roughness = &rough
		}
	case "Pr":
		m.roughness = scalar()
	case "Pm":
		m.metallic = scalar()
	case "Ni":
		m.ior = scalar()
	case "d":
		m.opacity = scalar()
	case "Tr":
		if tr := scalar(); tr != nil {
			d := 1 - *tr
			m.opacity = &d
		}
	case "map_Kd":
		m.diffuseMap = m.mapFile(parts)
	case "map_Bump", "map_bump", "bump", "norm":
		m.normalMap = m.mapFile(parts)
	}
}

// mapFile takes the last field of a map statement, after any options.
func (m *mtlMaterial) mapFile(parts []string) string {
	if len(parts) < 2 {
		return ""
	}
	file := parts[len(parts)-1]
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.dir, filepath.FromSlash(file))
}

func (m *mtlMaterial) author(s *scene.Stage, path scene.Path) *scene.Prim {
	pm := newPreviewMaterial(s, path)
	if m.diffuse != nil {
		pm.setColor(materials.DiffuseColor, *m.diffuse)
	}
	for _, v := range []struct {
		c materials.Channel
		f *float64
	}{
		{materials.Roughness, m.roughness},
		{materials.Metallic, m.metallic},
		{materials.IOR, m.ior},
		{materials.Opacity, m.opacity},
	} {
		if v.f != nil {
			pm.setFloat(v.c, *v.f)
		}
	}
	if m.diffuseMap != "" {
		pm.connectTexture(materials.DiffuseColor, "DiffuseTexture", m.diffuseMap, wrapRepeat, wrapRepeat)
	}
	if m.normalMap != "" {
		pm.connectTexture(materials.Normal, "NormalTexture", m.normalMap, wrapRepeat, wrapRepeat)
	}
	return pm.material
}
