package classify

import (
	"cogentcore.org/core/base/ordmap"

	"bella-bridge/core"
	"bella-bridge/materials"
	"bella-bridge/scene"
)

// Purpose tokens.
const (
	PurposeDefault = "default"
	PurposeRender  = "render"
	PurposeProxy   = "proxy"
	PurposeGuide   = "guide"
)

// State is the inherited state of a prim at the moment it was visited.
type State struct {
	Invisible bool
	InGroup   bool
	Purpose   string
	// Material is the nearest bound material, nil when nothing binds one.
	Material *scene.Prim
}

// Node is the part every record shares.
type Node struct {
	Prim  *scene.Prim
	ID    core.Identifier
	State State
}

// Hidden reports whether the prim sits in an invisible subtree. Hidden
// records are collected but never emitted.
func (n Node) Hidden() bool { return n.State.Invisible }

type Xform struct {
	Node
	// Instance is the prim an instanceable xform resolves to.
	Instance *scene.Prim
}

// Scope also covers untyped prims.
type Scope struct {
	Node
}

type Mesh struct {
	Node
	// Material is set only when the material is itself collected.
	Material *scene.Prim
	// InstanceOf is set when the mesh prim is an instance of another prim.
	InstanceOf *scene.Prim
	// TexcoordPrimvar names the primvar holding texture coordinates.
	TexcoordPrimvar string
}

// LightKind is the output light type.
type LightKind int

const (
	PointLight LightKind = iota
	SpotLight
	RectLight
	DiskLight
	DirectionalLight
	ImageDome
)

func (k LightKind) String() string {
	switch k {
	case PointLight:
		return "pointLight"
	case SpotLight:
		return "spotLight"
	case RectLight, DiskLight:
		return "areaLight"
	case DirectionalLight:
		return "directionalLight"
	case ImageDome:
		return "imageDome"
	}
	return "unknown"
}

type Light struct {
	Node
	Kind LightKind
}

type Camera struct {
	Node
}

// Shape is the output primitive type.
type Shape string

const (
	ShapeBox      Shape = "box"
	ShapeSphere   Shape = "sphere"
	ShapeCylinder Shape = "cylinder"
)

type Primitive struct {
	Node
	Shape Shape
}

type Material struct {
	Node
	Descriptor *materials.Descriptor
}

type Texture struct {
	Ref *materials.TextureRef
	// NormalMap is set when any collected material feeds the texture into
	// its normal input.
	NormalMap bool
}

type Instancer struct {
	Node
	// Prototypes are the targets of the prototypes relationship, in order.
	Prototypes []*scene.Prim
}

// Collections holds every classified prim. Each map keeps traversal order.
type Collections struct {
	Xforms     *ordmap.Map[*scene.Prim, *Xform]
	Scopes     *ordmap.Map[*scene.Prim, *Scope]
	Meshes     *ordmap.Map[*scene.Prim, *Mesh]
	Lights     *ordmap.Map[*scene.Prim, *Light]
	Cameras    *ordmap.Map[*scene.Prim, *Camera]
	Primitives *ordmap.Map[*scene.Prim, *Primitive]
	Materials  *ordmap.Map[*scene.Prim, *Material]
	Textures   *ordmap.Map[*scene.Prim, *Texture]
	Instancers *ordmap.Map[*scene.Prim, *Instancer]

	// Instances maps instance prims to the prim they resolve to.
	Instances *ordmap.Map[*scene.Prim, *scene.Prim]

	// Roots lists the identifiers attached under the stage root node.
	Roots []core.Identifier
}

func newCollections() *Collections {
	return &Collections{
		Xforms:     ordmap.New[*scene.Prim, *Xform](),
		Scopes:     ordmap.New[*scene.Prim, *Scope](),
		Meshes:     ordmap.New[*scene.Prim, *Mesh](),
		Lights:     ordmap.New[*scene.Prim, *Light](),
		Cameras:    ordmap.New[*scene.Prim, *Camera](),
		Primitives: ordmap.New[*scene.Prim, *Primitive](),
		Materials:  ordmap.New[*scene.Prim, *Material](),
		Textures:   ordmap.New[*scene.Prim, *Texture](),
		Instancers: ordmap.New[*scene.Prim, *Instancer](),
		Instances:  ordmap.New[*scene.Prim, *scene.Prim](),
	}
}

// IsHierarchyNode reports whether p is emitted as a node that can be a
// child in the transform hierarchy.
func (c *Collections) IsHierarchyNode(p *scene.Prim) bool {
	n, ok := c.hierarchyNode(p)
	return ok && !n.Hidden()
}

func (c *Collections) hierarchyNode(p *scene.Prim) (Node, bool) {
	if x, ok := c.Xforms.ValueByKeyTry(p); ok {
		return x.Node, true
	}
	if s, ok := c.Scopes.ValueByKeyTry(p); ok {
		return s.Node, true
	}
	if m, ok := c.Meshes.ValueByKeyTry(p); ok {
		return m.Node, true
	}
	if pr, ok := c.Primitives.ValueByKeyTry(p); ok {
		return pr.Node, true
	}
	if in, ok := c.Instancers.ValueByKeyTry(p); ok {
		return in.Node, true
	}
	return Node{}, false
}

// Children returns the collected hierarchy children of p, in order.
func (c *Collections) Children(p *scene.Prim) []*scene.Prim {
	var out []*scene.Prim
	for _, child := range p.Children() {
		if c.IsHierarchyNode(child) {
			out = append(out, child)
		}
	}
	return out
}

// Counts returns the size of every collection by name.
func (c *Collections) Counts() map[string]int {
	return map[string]int{
		"xforms":     c.Xforms.Len(),
		"scopes":     c.Scopes.Len(),
		"meshes":     c.Meshes.Len(),
		"lights":     c.Lights.Len(),
		"cameras":    c.Cameras.Len(),
		"primitives": c.Primitives.Len(),
		"materials":  c.Materials.Len(),
		"textures":   c.Textures.Len(),
		"instancers": c.Instancers.Len(),
		"instances":  c.Instances.Len(),
	}
}
