// Package topology turns source polygon meshes into the fixed four-slot,
// fully unshared representation written to .bsa files.
package topology

import (
	"errors"

	"bella-bridge/math"
)

// ErrEmptyGeometry reports a mesh without faces. Callers skip such meshes.
var ErrEmptyGeometry = errors.New("empty geometry")

// ErrBadTopology reports inconsistent counts or out of range indices.
var ErrBadTopology = errors.New("bad topology")

// Polygon holds four corner indices. Triangles repeat their last corner.
type Polygon [4]int

func (p Polygon) IsTriangle() bool { return p[2] == p[3] }

// Mesh is a normalized mesh. Every polygon indexes its own corners, so
// len(Points) equals the corner count, as do Normals and Texcoords when
// present.
type Mesh struct {
	Polygons  []Polygon
	Points    []math.Vec3
	Normals   []math.Vec3
	Texcoords []math.Vec2

	// FaceCounts is the per-face corner count after triangulation.
	FaceCounts []int
}

// Flat returns the polygons as one index slice, four entries per polygon.
func (m *Mesh) Flat() []int {
	out := make([]int, 0, len(m.Polygons)*4)
	for _, p := range m.Polygons {
		out = append(out, p[:]...)
	}
	return out
}

// Bounds is an axis aligned box.
type Bounds struct {
	Min, Max math.Vec3
}

// Bounds returns the tight box around the mesh points. ok is false for a
// mesh without points.
func (m *Mesh) Bounds() (b Bounds, ok bool) {
	if len(m.Points) == 0 {
		return Bounds{}, false
	}
	b.Min, b.Max = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		b.Min.X, b.Max.X = min(b.Min.X, p.X), max(b.Max.X, p.X)
		b.Min.Y, b.Max.Y = min(b.Min.Y, p.Y), max(b.Max.Y, p.Y)
		b.Min.Z, b.Max.Z = min(b.Min.Z, p.Z), max(b.Max.Z, p.Z)
	}
	return b, true
}
