package topology

import (
	"fmt"

	"bella-bridge/math"
)

// Source is a mesh as authored: shared points addressed through Indices,
// optional attributes that are either per corner, per point or addressed
// through their own explicit per-corner index slice.
type Source struct {
	Counts  []int
	Indices []int
	Points  []math.Vec3

	Normals       []math.Vec3
	NormalIndices []int

	Texcoords       []math.Vec2
	TexcoordIndices []int
}

// Unshare converts triangles and quads into four-slot polygons that index
// freshly duplicated corner data. Each face gets the next block of
// sequential corner numbers; a triangle repeats its last one.
//
// Faces must already have three or four corners; see Triangulate.
func Unshare(src Source) (*Mesh, error) {
	if len(src.Counts) == 0 {
		return nil, ErrEmptyGeometry
	}
	if err := checkCorners(src.Counts, src.Indices); err != nil {
		return nil, err
	}

	m := &Mesh{
		Polygons:   make([]Polygon, len(src.Counts)),
		FaceCounts: append([]int(nil), src.Counts...),
	}
	start := 0
	for f, n := range src.Counts {
		switch n {
		case 3:
			m.Polygons[f] = Polygon{start, start + 1, start + 2, start + 2}
		case 4:
			m.Polygons[f] = Polygon{start, start + 1, start + 2, start + 3}
		default:
			return nil, fmt.Errorf("%w: face %d has %d corners, triangulate first", ErrBadTopology, f, n)
		}
		start += n
	}

	var err error
	if m.Points, err = gather(src.Points, src.Indices, "point"); err != nil {
		return nil, err
	}
	if m.Normals, err = cornerData(src.Normals, src.NormalIndices, src.Indices, "normal"); err != nil {
		return nil, err
	}
	if m.Texcoords, err = cornerData(src.Texcoords, src.TexcoordIndices, src.Indices, "texcoord"); err != nil {
		return nil, err
	}
	return m, nil
}

// cornerData resolves an optional attribute to one value per corner.
func cornerData[T any](values []T, explicit, positional []int, name string) ([]T, error) {
	switch {
	case len(values) == 0:
		return nil, nil
	case explicit != nil:
		if len(explicit) != len(positional) {
			return nil, fmt.Errorf("%w: %d %s indices for %d corners",
				ErrBadTopology, len(explicit), name, len(positional))
		}
		return gather(values, explicit, name)
	case len(values) == len(positional):
		return append([]T(nil), values...), nil
	default:
		return gather(values, positional, name)
	}
}

func gather[T any](values []T, indices []int, name string) ([]T, error) {
	out := make([]T, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(values) {
			return nil, fmt.Errorf("%w: %s index %d at corner %d out of range [0,%d)",
				ErrBadTopology, name, idx, i, len(values))
		}
		out[i] = values[idx]
	}
	return out, nil
}

// Normalize triangulates the source when needed and unshares it.
func Normalize(src Source) (*Mesh, error) {
	if len(src.Counts) == 0 {
		return nil, ErrEmptyGeometry
	}
	if NeedsTriangulation(src.Counts) {
		// per-corner data without indices has to follow the fan as well
		if src.TexcoordIndices == nil && len(src.Texcoords) == len(src.Indices) {
			src.TexcoordIndices = sequence(len(src.Indices))
		}
		if src.NormalIndices == nil && len(src.Normals) == len(src.Indices) {
			src.NormalIndices = sequence(len(src.Indices))
		}
		tri, err := Triangulate(src.Counts, src.Indices, src.TexcoordIndices, src.NormalIndices)
		if err != nil {
			return nil, err
		}
		src.Counts = tri.Counts
		src.Indices = tri.Indices
		src.TexcoordIndices = tri.TexcoordIndices
		src.NormalIndices = tri.NormalIndices
	}
	return Unshare(src)
}

func sequence(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
