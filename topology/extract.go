package topology

import (
	"errors"
	"fmt"

	"bella-bridge/math"
	"bella-bridge/scene"
)

// DefaultTexcoordPrimvar is used when no material names a texcoord primvar.
const DefaultTexcoordPrimvar = "st"

// ReadSource reads the mesh attributes of prim at time t. texcoordName is
// the primvar holding texture coordinates, without the "primvars:" prefix.
func ReadSource(prim *scene.Prim, t scene.TimeCode, texcoordName string) (Source, error) {
	var src Source
	var err error

	if src.Counts, err = optional[[]int](prim, "faceVertexCounts", t); err != nil {
		return src, err
	}
	if len(src.Counts) == 0 {
		return src, ErrEmptyGeometry
	}
	if src.Indices, err = scene.Get[[]int](prim, "faceVertexIndices", t); err != nil {
		return src, err
	}
	if src.Points, err = scene.Get[[]math.Vec3](prim, "points", t); err != nil {
		return src, err
	}

	if texcoordName == "" {
		texcoordName = DefaultTexcoordPrimvar
	}
	st := "primvars:" + texcoordName
	if src.Texcoords, err = optional[[]math.Vec2](prim, st, t); err != nil {
		return src, err
	}
	if src.TexcoordIndices, err = optional[[]int](prim, st+":indices", t); err != nil {
		return src, err
	}

	normals := "primvars:normals"
	if !prim.HasAttribute(normals) {
		normals = "normals"
	}
	if src.Normals, err = optional[[]math.Vec3](prim, normals, t); err != nil {
		return src, err
	}
	if src.NormalIndices, err = optional[[]int](prim, normals+":indices", t); err != nil {
		return src, err
	}
	return src, nil
}

// Extract reads and normalizes the mesh of prim at time t.
func Extract(prim *scene.Prim, t scene.TimeCode, texcoordName string) (*Mesh, error) {
	src, err := ReadSource(prim, t, texcoordName)
	if err != nil {
		return nil, err
	}
	m, err := Normalize(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prim.Path(), err)
	}
	return m, nil
}

// optional reads an attribute that may be missing. Missing attributes and
// attributes without a value yield the zero value.
func optional[T any](prim *scene.Prim, name string, t scene.TimeCode) (T, error) {
	v, err := scene.Get[T](prim, name, t)
	if errors.Is(err, scene.ErrNoAttribute) || errors.Is(err, scene.ErrNoValue) {
		return v, nil
	}
	return v, err
}
