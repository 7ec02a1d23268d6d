package bella

import (
	"strconv"

	"bella-bridge/core"
	"bella-bridge/math"
	"bella-bridge/topology"
)

// ShapeSuffix names the node a wrapping xform places its shape in.
const ShapeSuffix = "_m"

// Xform is a transform node of the hierarchy.
type Xform struct {
	ID       core.Identifier
	Name     string
	Children []core.Identifier
	// Local is relative to the parent node.
	Local math.Mat4
}

func (w *Writer) Xform(x Xform) {
	w.node("xform", x.ID)
	w.str("name", x.Name)
	w.children(x.Children)
	w.xform(x.Local)
}

// Scope writes a grouping node. Scopes carry no transform of their own.
func (w *Writer) Scope(id core.Identifier, name string, children []core.Identifier) {
	w.Xform(Xform{ID: id, Name: name, Children: children, Local: math.Mat4Identity()})
}

// Mesh is a polygon mesh in normalized form.
type Mesh struct {
	ID   core.Identifier
	Name string
	// Local is relative to the parent node.
	Local math.Mat4
	// Material is empty when nothing is bound.
	Material    core.Identifier
	Geometry    *topology.Mesh
	Subdivision int
}

// Mesh writes an xform named after the prim holding the transform and the
// material, and the mesh node itself as its only child. The mesh node is
// named ID + ShapeSuffix.
func (w *Writer) Mesh(m Mesh) {
	shape := m.ID.Suffix(ShapeSuffix)
	w.shapeXform(m.ID, m.Name, shape, m.Local, m.Material)

	g := m.Geometry
	w.node("mesh", shape)
	w.str("name", m.Name)
	w.attr("polygons", array("vec4u", len(g.Polygons), joinInts(g.Flat())))
	w.attr("steps[0].points", array("pos3f", len(g.Points), joinFloats(vec3Floats(g.Points))))
	if len(g.Normals) > 0 {
		w.attr("steps[0].normals", array("vec3f", len(g.Normals), joinFloats(vec3Floats(g.Normals))))
	}
	if len(g.Texcoords) > 0 {
		w.attr("steps[0].uvs", array("vec2f", len(g.Texcoords), joinFloats(vec2Floats(g.Texcoords))))
	}
	if m.Subdivision > 0 {
		w.attr("subdivision.level", formatUint(m.Subdivision))
	}
}

// MeshInstance places an already written node under a new transform
// instead of repeating its geometry.
type MeshInstance struct {
	ID       core.Identifier
	Name     string
	Local    math.Mat4
	Material core.Identifier
	// Target is the node being instanced.
	Target core.Identifier
}

func (w *Writer) MeshInstance(m MeshInstance) {
	w.shapeXform(m.ID, m.Name, m.Target, m.Local, m.Material)
}

func (w *Writer) shapeXform(id core.Identifier, name string, child core.Identifier, local math.Mat4, material core.Identifier) {
	w.node("xform", id)
	w.str("name", name)
	w.ref("children[*]", child)
	w.xform(local)
	if material != "" {
		w.ref("material", material)
	}
}

// Shape types of Primitive.
const (
	ShapeBox      = "box"
	ShapeSphere   = "sphere"
	ShapeCylinder = "cylinder"
)

// Primitive is an analytic shape. Box uses Size, Sphere uses Radius and
// Cylinder uses Radius and Height.
type Primitive struct {
	ID       core.Identifier
	Name     string
	Shape    string
	Local    math.Mat4
	Material core.Identifier

	Size   math.Vec3
	Radius float64
	Height float64
}

// Primitive writes a wrapping xform like Mesh does, followed by the shape.
func (w *Writer) Primitive(p Primitive) {
	shape := p.ID.Suffix(ShapeSuffix)
	w.shapeXform(p.ID, p.Name, shape, p.Local, p.Material)

	w.node(p.Shape, shape)
	switch p.Shape {
	case ShapeBox:
		w.float("radius", 0)
		w.float("sizeX", p.Size.X)
		w.float("sizeY", p.Size.Y)
		w.float("sizeZ", p.Size.Z)
	case ShapeSphere:
		w.float("radius", p.Radius)
	case ShapeCylinder:
		w.float("radius", p.Radius)
		w.float("height", p.Height)
	}
}

// InstanceSet is the group of instances of one prototype.
type InstanceSet struct {
	Prototype core.Identifier
	// Matrices place each instance relative to the instancer.
	Matrices []math.Mat4
}

// Instancer is a point instancer with its instances grouped by prototype.
type Instancer struct {
	ID    core.Identifier
	Name  string
	Local math.Mat4
	Sets  []InstanceSet
}

// Instancer writes an xform for the instancer and one instancer node per
// prototype that has instances, named ID_<n>.
func (w *Writer) Instancer(in Instancer) {
	var ids []core.Identifier
	for i, set := range in.Sets {
		if len(set.Matrices) > 0 {
			ids = append(ids, instancerSetID(in.ID, i))
		}
	}
	w.Xform(Xform{ID: in.ID, Name: in.Name, Children: ids, Local: in.Local})

	for i, set := range in.Sets {
		if len(set.Matrices) == 0 {
			continue
		}
		w.node("instancer", instancerSetID(in.ID, i))
		w.ref("children[*]", set.Prototype)
		values := make([]float64, 0, len(set.Matrices)*16)
		for _, m := range set.Matrices {
			rows := m.Rows()
			values = append(values, rows[:]...)
		}
		w.attr("steps[0].instances", array("mat4f", len(set.Matrices), joinFloats(values)))
	}
}

func instancerSetID(id core.Identifier, i int) core.Identifier {
	return id.Suffix("_" + strconv.Itoa(i))
}
