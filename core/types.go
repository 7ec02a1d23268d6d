package core

import (
	"bella-bridge/math"
)

type Color struct {
	R, G, B, A float64
}

// RGB drops alpha.
func (c Color) RGB() math.Vec3 {
	return math.Vec3{X: c.R, Y: c.G, Z: c.B}
}

// Transform is a TRS decomposition, the form glTF nodes carry.
type Transform struct {
	Position math.Vec3
	Rotation math.Quaternion
	Scale    math.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: math.Vec3Zero,
		Rotation: math.QuaternionIdentity(),
		Scale:    math.Vec3One,
	}
}

// GetMatrix returns the local matrix in row-vector form (scale, rotate, translate).
func (t Transform) GetMatrix() math.Mat4 {
	return math.Mat4SRT(t.Scale, t.Rotation, t.Position)
}

// IsIdentity reports whether the transform leaves points unchanged.
func (t Transform) IsIdentity() bool {
	return t.Position == math.Vec3Zero && t.Scale == math.Vec3One && t.Rotation == math.QuaternionIdentity()
}
