// Package classify walks a stage once and sorts its prims into typed
// collections, carrying inherited state (visibility, grouping, purpose and
// material binding) from ancestors to descendants.
package classify

import (
	"log/slog"
	"slices"
	"strings"

	"bella-bridge/core"
	"bella-bridge/materials"
	"bella-bridge/scene"
)

// Options controls classification.
type Options struct {
	// FilterByPurpose drops proxy and guide meshes and ignores the materials
	// bound to them.
	FilterByPurpose bool
	// HiddenContainers names prims whose subtrees are treated as invisible.
	HiddenContainers []string
	// BaseDir is the directory texture paths are made relative to. Empty
	// means the stage directory.
	BaseDir  string
	Logger   *slog.Logger
	Registry *core.Registry
}

type stateKind int

const (
	stateInvisible stateKind = iota
	stateGroup
	statePurpose
	stateMaterial
)

// stateEntry is pushed on pre-visit of the prim that authors it and popped
// on that prim's post-visit.
type stateEntry struct {
	depth int
	kind  stateKind
	value any
}

type classifier struct {
	stage *scene.Stage
	opts  Options
	log   core.Logger
	out   *Collections

	stack []stateEntry

	// materials in traversal order, resolved once the walk is complete
	materialOrder []*scene.Prim
	materialState map[*scene.Prim]State
	ignored       map[*scene.Prim]bool
}

// Classify walks every prototype and then the main hierarchy of stage.
// The result depends only on the stage and opts.
func Classify(stage *scene.Stage, opts Options) (*Collections, error) {
	if opts.BaseDir == "" {
		opts.BaseDir = stage.Dir()
	}
	c := &classifier{
		stage:         stage,
		opts:          opts,
		log:           core.Logger{L: core.ComponentLogger(opts.Logger, "classify")},
		out:           newCollections(),
		materialState: make(map[*scene.Prim]State),
		ignored:       make(map[*scene.Prim]bool),
	}

	for _, proto := range stage.Prototypes() {
		c.walk(proto, false)
	}
	c.walk(stage.PseudoRoot(), true)
	c.resolveMaterials()

	c.log.Debug("classified", slog.Any("counts", c.out.Counts()))
	return c.out, nil
}

func (c *classifier) id(p *scene.Prim) core.Identifier {
	return c.opts.Registry.Resolve(p.Name(), p.Path().String())
}

func (c *classifier) walk(start *scene.Prim, main bool) {
	r := scene.NewPrimRange(start)
	for r.Next() {
		p := r.Prim()
		if r.IsPostVisit() {
			c.pop(r.Depth())
			continue
		}
		if p.IsPseudoRoot() {
			continue
		}
		c.push(p, r.Depth())
		c.visit(p, main)
	}
}

func (c *classifier) push(p *scene.Prim, depth int) {
	if scene.GetOr(p, "visibility", scene.DefaultTime, "") == "invisible" ||
		slices.Contains(c.opts.HiddenContainers, p.Name()) {
		c.stack = append(c.stack, stateEntry{depth, stateInvisible, true})
	}
	if p.Kind == "group" || p.Kind == "assembly" {
		c.stack = append(c.stack, stateEntry{depth, stateGroup, true})
	}
	if purpose := scene.GetOr(p, "purpose", scene.DefaultTime, ""); purpose != "" && purpose != PurposeDefault {
		c.stack = append(c.stack, stateEntry{depth, statePurpose, purpose})
	}
	if mat := p.RelationshipTarget("material:binding"); mat != nil {
		c.stack = append(c.stack, stateEntry{depth, stateMaterial, mat})
	}
}

func (c *classifier) pop(depth int) {
	for len(c.stack) > 0 && c.stack[len(c.stack)-1].depth == depth {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// state folds the stack; the innermost purpose and material win.
func (c *classifier) state() State {
	s := State{Purpose: PurposeDefault}
	for _, e := range c.stack {
		switch e.kind {
		case stateInvisible:
			s.Invisible = true
		case stateGroup:
			s.InGroup = true
		case statePurpose:
			s.Purpose = e.value.(string)
		case stateMaterial:
			s.Material = e.value.(*scene.Prim)
		}
	}
	return s
}

func (c *classifier) visit(p *scene.Prim, main bool) {
	st := c.state()
	node := Node{Prim: p, ID: c.id(p), State: st}

	excluded := c.opts.FilterByPurpose && (st.Purpose == PurposeProxy || st.Purpose == PurposeGuide)
	if excluded {
		c.ignoreBoundMaterials(p)
	}
	if st.Invisible {
		c.log.Trace("invisible", slog.String("prim", p.Path().String()))
	}

	switch p.TypeName {
	case scene.TypeXform:
		x := &Xform{Node: node}
		if p.IsInstance() {
			x.Instance = c.instance(p)
		}
		c.out.Xforms.Add(p, x)
	case scene.TypeScope, "":
		if p.IsInstance() {
			c.instance(p)
		}
		c.out.Scopes.Add(p, &Scope{Node: node})
	case scene.TypeMesh:
		if excluded {
			c.log.Trace("skip by purpose", slog.String("prim", p.Path().String()), slog.String("purpose", st.Purpose))
			return
		}
		m := &Mesh{Node: node, TexcoordPrimvar: materials.TexcoordPrimvar(st.Material)}
		if p.IsInstance() {
			m.InstanceOf = c.instance(p)
		}
		c.out.Meshes.Add(p, m)
	case scene.TypeMaterial:
		c.materialOrder = append(c.materialOrder, p)
		c.materialState[p] = st
	case scene.TypeCamera:
		c.out.Cameras.Add(p, &Camera{Node: node})
	case scene.TypeSphereLight, scene.TypeSpotLight, scene.TypeRectLight, scene.TypeDiskLight,
		scene.TypeDistantLight, scene.TypeDomeLight:
		c.out.Lights.Add(p, &Light{Node: node, Kind: lightKind(p)})
	case scene.TypeCube:
		c.out.Primitives.Add(p, &Primitive{Node: node, Shape: ShapeBox})
	case scene.TypeSphere:
		c.out.Primitives.Add(p, &Primitive{Node: node, Shape: ShapeSphere})
	case scene.TypeCylinder:
		c.out.Primitives.Add(p, &Primitive{Node: node, Shape: ShapeCylinder})
	case scene.TypePointInstancer:
		inst := &Instancer{Node: node}
		for _, target := range p.Relationship("prototypes") {
			if proto := c.stage.PrimAtPath(target); proto != nil {
				inst.Prototypes = append(inst.Prototypes, proto)
			}
		}
		c.out.Instancers.Add(p, inst)
	default:
		c.log.Trace("unhandled prim type", slog.String("prim", p.Path().String()), slog.String("type", p.TypeName))
		return
	}

	if main && p.Parent() != nil && p.Parent().IsPseudoRoot() && c.isRoot(p) {
		c.out.Roots = append(c.out.Roots, node.ID)
	}
}

// isRoot: top level prims carrying a camera are left to the camera nodes.
// Invisible prims are never hierarchy nodes.
func (c *classifier) isRoot(p *scene.Prim) bool {
	if p.HasChildOfType(scene.TypeCamera) {
		return false
	}
	return c.out.IsHierarchyNode(p)
}

// ignoreBoundMaterials marks every material bound directly on p, through
// any material:binding relationship (including purpose specific ones).
func (c *classifier) ignoreBoundMaterials(p *scene.Prim) {
	for _, name := range p.RelationshipNames() {
		if !strings.HasPrefix(name, "material:binding") {
			continue
		}
		mat := p.RelationshipTarget(name)
		if mat == nil || c.ignored[mat] {
			continue
		}
		c.log.Debug("ignoring proxy material", slog.String("material", mat.Path().String()))
		c.ignored[mat] = true
	}
}

func (c *classifier) instance(p *scene.Prim) *scene.Prim {
	target := ResolveInstance(p)
	if target == nil {
		c.log.Debug("unresolved instance", slog.String("prim", p.Path().String()))
		return nil
	}
	c.out.Instances.Add(p, target)
	return target
}

func lightKind(p *scene.Prim) LightKind {
	switch p.TypeName {
	case scene.TypeSphereLight:
		if p.HasAttribute("shaping:cone:angle") || p.HasAttribute("inputs:shaping:cone:angle") {
			return SpotLight
		}
		return PointLight
	case scene.TypeSpotLight:
		return SpotLight
	case scene.TypeRectLight:
		return RectLight
	case scene.TypeDiskLight:
		return DiskLight
	case scene.TypeDistantLight:
		return DirectionalLight
	}
	return ImageDome
}

// resolveMaterials flattens collected materials, skipping those bound to
// filtered geometry and those named as proxies.
func (c *classifier) resolveMaterials() {
	for _, p := range c.materialOrder {
		if c.ignored[p] || strings.Contains(p.Name(), "proxy") {
			continue
		}
		d, textures := materials.Resolve(p, c.opts.BaseDir, c.opts.Registry)
		c.out.Materials.Add(p, &Material{
			Node:       Node{Prim: p, ID: d.ID, State: c.materialState[p]},
			Descriptor: d,
		})
		for _, t := range append(textures, d.Textures()...) {
			if c.out.Textures.IndexByKey(t.Prim) < 0 {
				c.out.Textures.Add(t.Prim, &Texture{Ref: t})
			}
		}
		if v := d.Get(materials.Normal); v.Kind == materials.Texture {
			c.out.Textures.ValueByKey(v.Texture.Prim).NormalMap = true
		}
	}

	for _, m := range c.out.Meshes.Values() {
		if mat := m.State.Material; mat != nil && c.out.Materials.IndexByKey(mat) >= 0 {
			m.Material = mat
		}
	}
}
