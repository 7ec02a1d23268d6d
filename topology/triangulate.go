package topology

import "fmt"

// ngonLimit is the smallest corner count that gets fan triangulated.
const ngonLimit = 5

// Triangulation is the result of Triangulate. The optional index slices
// are nil when no input was given for them.
type Triangulation struct {
	Counts          []int
	Indices         []int
	TexcoordIndices []int
	NormalIndices   []int
}

// Triangulate fans every face of five or more corners from its first
// corner into k-2 triangles {v0, vi, vi+1}. Triangles and quads pass
// through. The optional per-corner texcoord and normal index slices are
// rewritten the same way so they stay aligned with Indices.
func Triangulate(counts, indices, texcoordIndices, normalIndices []int) (Triangulation, error) {
	if err := checkCorners(counts, indices); err != nil {
		return Triangulation{}, err
	}
	for name, parallel := range map[string][]int{"texcoord": texcoordIndices, "normal": normalIndices} {
		if parallel != nil && len(parallel) != len(indices) {
			return Triangulation{}, fmt.Errorf("%w: %d %s indices for %d corners",
				ErrBadTopology, len(parallel), name, len(indices))
		}
	}

	out := Triangulation{
		Counts:  make([]int, 0, len(counts)),
		Indices: make([]int, 0, len(indices)),
	}
	if texcoordIndices != nil {
		out.TexcoordIndices = make([]int, 0, len(indices))
	}
	if normalIndices != nil {
		out.NormalIndices = make([]int, 0, len(indices))
	}

	start := 0
	for _, n := range counts {
		if n < ngonLimit {
			out.Counts = append(out.Counts, n)
			out.Indices = append(out.Indices, indices[start:start+n]...)
			if texcoordIndices != nil {
				out.TexcoordIndices = append(out.TexcoordIndices, texcoordIndices[start:start+n]...)
			}
			if normalIndices != nil {
				out.NormalIndices = append(out.NormalIndices, normalIndices[start:start+n]...)
			}
			start += n
			continue
		}
		for i := 1; i < n-1; i++ {
			out.Counts = append(out.Counts, 3)
			out.Indices = appendFan(out.Indices, indices, start, i)
			if texcoordIndices != nil {
				out.TexcoordIndices = appendFan(out.TexcoordIndices, texcoordIndices, start, i)
			}
			if normalIndices != nil {
				out.NormalIndices = appendFan(out.NormalIndices, normalIndices, start, i)
			}
		}
		start += n
	}
	return out, nil
}

func appendFan(dst, src []int, start, i int) []int {
	return append(dst, src[start], src[start+i], src[start+i+1])
}

// NeedsTriangulation reports whether any face has more than four corners.
func NeedsTriangulation(counts []int) bool {
	for _, n := range counts {
		if n > 4 {
			return true
		}
	}
	return false
}

func checkCorners(counts, indices []int) error {
	total := 0
	for i, n := range counts {
		if n < 3 {
			return fmt.Errorf("%w: face %d has %d corners", ErrBadTopology, i, n)
		}
		total += n
	}
	if total != len(indices) {
		return fmt.Errorf("%w: face counts sum to %d but there are %d indices",
			ErrBadTopology, total, len(indices))
	}
	return nil
}
