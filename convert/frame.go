package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bella-bridge/bella"
	"bella-bridge/classify"
	"bella-bridge/core"
	"bella-bridge/math"
	"bella-bridge/projection"
	"bella-bridge/scene"
	"bella-bridge/topology"
)

// frameWriter writes one frame. Everything it reads from the stage is
// evaluated at time.
type frameWriter struct {
	ctx    context.Context
	stage  *scene.Stage
	col    *classify.Collections
	opts   Options
	log    core.Logger
	time   scene.TimeCode
	proj   projection.Projector
	units  projection.CameraUnits
	report *Report

	w        *bella.Writer
	settings bella.Settings
	world    []core.Identifier
	// dropped holds hierarchy nodes that produced no output. No parent or
	// instance lists them.
	dropped map[core.Identifier]bool
	// locals and sets hold what plan evaluated for xforms, primitives and
	// instancers.
	locals map[core.Identifier]math.Mat4
	sets   map[core.Identifier][][]math.Mat4
}

func (f *frameWriter) write(w *bella.Writer) error {
	f.w = w
	f.settings = bella.Settings{ColorDome: f.opts.ColorDome}
	f.world = nil
	f.dropped = make(map[core.Identifier]bool)
	f.locals = make(map[core.Identifier]math.Mat4)
	f.sets = make(map[core.Identifier][][]math.Mat4)

	if err := f.plan(); err != nil {
		return err
	}

	w.Header()
	steps := []func() error{
		f.meshes,
		f.lights,
		f.cameras,
		f.hierarchy,
		f.primitives,
		f.instancers,
		f.materials,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	w.Settings(f.settings)
	root := bella.RootID(f.stage.Stem())
	w.Root(root, f.written(f.col.Roots), f.proj.Basis)
	w.World(append(f.world, root))
	f.report.Nodes += w.Nodes()
	return nil
}

// each calls fn for every value, stopping when the context is done.
func each[T any](ctx context.Context, values []T, fn func(T)) error {
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(v)
	}
	return nil
}

// visible drops records collected from invisible subtrees.
func visible[T interface{ Hidden() bool }](values []T) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		if !v.Hidden() {
			out = append(out, v)
		}
	}
	return out
}

// id is the node name of any prim.
func (f *frameWriter) id(p *scene.Prim) core.Identifier {
	return core.Resolve(p.Name(), p.Path().String())
}

// plan evaluates every transform the hierarchy depends on before any node
// is written, so a node that fails is never referenced.
func (f *frameWriter) plan() error {
	err := each(f.ctx, visible(f.col.Xforms.Values()), func(x *classify.Xform) { f.local(x.Node) })
	if err != nil {
		return err
	}
	err = each(f.ctx, visible(f.col.Primitives.Values()), func(pr *classify.Primitive) { f.local(pr.Node) })
	if err != nil {
		return err
	}
	return each(f.ctx, visible(f.col.Instancers.Values()), func(in *classify.Instancer) {
		if !f.local(in.Node) {
			return
		}
		sets, err := in.InstanceMatrices(f.time)
		if err != nil {
			f.skip(in.Node, "instances", err)
			return
		}
		f.sets[in.ID] = sets
	})
}

func (f *frameWriter) local(n classify.Node) bool {
	m, _, err := n.Prim.LocalTransform(f.time)
	if err != nil {
		f.skip(n, "transform", err)
		return false
	}
	f.locals[n.ID] = m
	return true
}

// skip drops a node that failed to convert.
func (f *frameWriter) skip(n classify.Node, what string, err error) {
	f.report.Skipped++
	f.dropped[n.ID] = true
	f.log.Debug("skipping prim", slog.String("prim", n.Prim.Path().String()), slog.String("query", what), slog.Any("error", err))
}

// emitted reports whether p is written as a hierarchy node.
func (f *frameWriter) emitted(p *scene.Prim) bool {
	return f.col.IsHierarchyNode(p) && !f.dropped[f.id(p)]
}

// materialID returns the node of a collected material, or "" when
// materials are not written.
func (f *frameWriter) materialID(mat *scene.Prim) core.Identifier {
	if mat == nil || f.opts.SkipMaterials {
		return ""
	}
	m, ok := f.col.Materials.ValueByKeyTry(mat)
	if !ok {
		return ""
	}
	return m.ID
}

// meshes writes plain meshes before instances, so the fate of every mesh
// an instance points at is known.
func (f *frameWriter) meshes() error {
	values := visible(f.col.Meshes.Values())
	err := each(f.ctx, values, func(m *classify.Mesh) {
		if m.InstanceOf == nil {
			f.mesh(m)
		}
	})
	if err != nil {
		return err
	}
	return each(f.ctx, values, func(m *classify.Mesh) {
		if m.InstanceOf != nil {
			f.mesh(m)
		}
	})
}

func (f *frameWriter) mesh(m *classify.Mesh) {
	local, _, err := m.Prim.LocalTransform(f.time)
	if err != nil {
		f.failMesh(m, err)
		return
	}

	material := f.materialID(m.Material)

	if target := m.InstanceOf; target != nil {
		if !f.emitted(target) {
			f.skip(m.Node, "instance", fmt.Errorf("instance target %s is not written", target.Path()))
			return
		}
		child := f.id(target)
		if target.TypeName == scene.TypeMesh {
			child = child.Suffix(bella.ShapeSuffix)
		}
		f.w.MeshInstance(bella.MeshInstance{
			ID:       m.ID,
			Name:     m.Prim.Name(),
			Local:    local,
			Material: material,
			Target:   child,
		})
		f.report.Instances++
		return
	}

	geom, err := topology.Extract(m.Prim, f.time, m.TexcoordPrimvar)
	if errors.Is(err, topology.ErrEmptyGeometry) {
		f.report.EmptyMeshes++
		f.dropped[m.ID] = true
		f.log.Trace("empty mesh", slog.String("prim", m.Prim.Path().String()))
		return
	}
	if err != nil {
		f.failMesh(m, err)
		return
	}
	f.w.Mesh(bella.Mesh{
		ID:          m.ID,
		Name:        m.Prim.Name(),
		Local:       local,
		Material:    material,
		Geometry:    geom,
		Subdivision: f.opts.Subdivision,
	})
	f.report.Meshes++
}

func (f *frameWriter) failMesh(m *classify.Mesh, err error) {
	f.report.FailedMeshes++
	f.dropped[m.ID] = true
	f.log.Debug("failed to convert mesh", slog.String("prim", m.Prim.Path().String()), slog.Any("error", err))
}

func (f *frameWriter) lights() error {
	if f.opts.SkipLights {
		return nil
	}
	return each(f.ctx, visible(f.col.Lights.Values()), f.light)
}

// lightValue reads a light input, preferring the inputs: namespaced name.
func lightValue[T any](p *scene.Prim, name string, t scene.TimeCode, fallback T) T {
	if p.HasAttribute("inputs:" + name) {
		return scene.GetOr(p, "inputs:"+name, t, fallback)
	}
	return scene.GetOr(p, name, t, fallback)
}

func (f *frameWriter) light(l *classify.Light) {
	p := l.Prim
	l2w, err := p.LocalToWorld(f.time)
	if err != nil {
		f.skip(l.Node, "transform", err)
		return
	}

	out := bella.Light{
		ID:        l.ID,
		Name:      p.Name(),
		Type:      l.Kind.String(),
		Matrix:    f.proj.Light(l2w),
		Color:     lightValue(p, "color", f.time, math.Vec3One),
		Intensity: lightValue(p, "intensity", f.time, 1.0),
		Radius:    lightValue(p, "radius", f.time, 0.5),
		Disk:      l.Kind == classify.DiskLight,
		Width:     lightValue(p, "width", f.time, 1.0),
		Height:    lightValue(p, "height", f.time, 1.0),
	}
	if l.Kind == classify.ImageDome {
		out.DomeFile = strings.Trim(lightValue(p, "texture:file", f.time, ""), "@")
	}

	id := f.w.Light(out)
	f.world = append(f.world, l.ID)
	if l.Kind == classify.ImageDome && out.DomeFile != "" {
		f.settings.UseEnvironment(id)
	}
	f.report.Lights++
}

func (f *frameWriter) cameras() error {
	cameras := visible(f.col.Cameras.Values())
	if len(cameras) == 0 {
		f.world = append(f.world, f.w.DefaultCamera())
		f.settings.UseCamera(bella.DefaultCameraID)
		return nil
	}
	return each(f.ctx, cameras, f.camera)
}

func (f *frameWriter) camera(c *classify.Camera) {
	l2w, err := c.Prim.LocalToWorld(f.time)
	if err != nil {
		f.skip(c.Node, "transform", err)
		return
	}
	xf := f.w.Camera(bella.Camera{
		ID:     c.ID,
		Matrix: f.proj.Camera(l2w),
		Lens:   projection.ReadLens(c.Prim, f.time, f.units),
	})
	f.world = append(f.world, xf)
	f.settings.UseCamera(c.ID)
	f.report.Cameras++
}

func (f *frameWriter) children(p *scene.Prim) []core.Identifier {
	var ids []core.Identifier
	for _, child := range f.col.Children(p) {
		ids = append(ids, f.id(child))
	}
	return f.written(ids)
}

func (f *frameWriter) written(ids []core.Identifier) []core.Identifier {
	out := make([]core.Identifier, 0, len(ids))
	for _, id := range ids {
		if !f.dropped[id] {
			out = append(out, id)
		}
	}
	return out
}

func (f *frameWriter) hierarchy() error {
	err := each(f.ctx, visible(f.col.Xforms.Values()), func(x *classify.Xform) {
		local, ok := f.locals[x.ID]
		if !ok {
			return
		}
		children := f.children(x.Prim)
		if x.Instance != nil {
			children = nil
			if f.emitted(x.Instance) {
				children = []core.Identifier{f.id(x.Instance)}
			}
		}
		f.w.Xform(bella.Xform{ID: x.ID, Name: x.Prim.Name(), Children: children, Local: local})
	})
	if err != nil {
		return err
	}
	return each(f.ctx, visible(f.col.Scopes.Values()), func(s *classify.Scope) {
		f.w.Scope(s.ID, s.Prim.Name(), f.children(s.Prim))
	})
}

func (f *frameWriter) primitives() error {
	return each(f.ctx, visible(f.col.Primitives.Values()), f.primitive)
}

func (f *frameWriter) primitive(pr *classify.Primitive) {
	p := pr.Prim
	local, ok := f.locals[pr.ID]
	if !ok {
		return
	}
	out := bella.Primitive{
		ID:       pr.ID,
		Name:     p.Name(),
		Shape:    string(pr.Shape),
		Local:    local,
		Material: f.materialID(pr.State.Material),
	}
	switch pr.Shape {
	case classify.ShapeBox:
		s := scene.GetOr(p, "size", f.time, 2.0)
		out.Size = math.Vec3{X: s, Y: s, Z: s}
	case classify.ShapeSphere:
		out.Radius = scene.GetOr(p, "radius", f.time, 1.0)
	case classify.ShapeCylinder:
		out.Radius = scene.GetOr(p, "radius", f.time, 1.0)
		out.Height = scene.GetOr(p, "height", f.time, 2.0)
		out.Local = cylinderAxis(scene.GetOr(p, "axis", f.time, "Z")).Mul(local)
	}
	f.w.Primitive(out)
}

// cylinderAxis turns a Z aligned cylinder onto axis.
func cylinderAxis(axis string) math.Mat4 {
	switch axis {
	case "X":
		return math.Mat4RotationY(math.Radians(90))
	case "Y":
		return math.Mat4RotationX(math.Radians(-90))
	}
	return math.Mat4Identity()
}

func (f *frameWriter) instancers() error {
	return each(f.ctx, visible(f.col.Instancers.Values()), func(in *classify.Instancer) {
		matrices, ok := f.sets[in.ID]
		if !ok {
			return
		}
		out := bella.Instancer{ID: in.ID, Name: in.Prim.Name(), Local: f.locals[in.ID]}
		for i, set := range matrices {
			proto := in.Prototypes[i]
			if !f.emitted(proto) {
				f.log.Debug("prototype not written", slog.String("instancer", in.Prim.Path().String()), slog.String("prototype", proto.Path().String()))
				continue
			}
			out.Sets = append(out.Sets, bella.InstanceSet{Prototype: f.id(proto), Matrices: set})
		}
		f.w.Instancer(out)
	})
}

func (f *frameWriter) materials() error {
	if f.opts.SkipMaterials {
		return nil
	}
	err := each(f.ctx, f.col.Materials.Values(), func(m *classify.Material) {
		f.w.Uber(m.Descriptor, bella.UberOptions{SkipRoughness: f.opts.SkipRoughness})
		f.report.Materials++
	})
	if err != nil {
		return err
	}
	return each(f.ctx, f.col.Textures.Values(), func(t *classify.Texture) {
		f.w.FileTexture(t.Ref)
		if t.NormalMap {
			f.w.NormalMap(t.Ref)
		}
		f.report.Textures++
	})
}
