// Package projection moves matrices, lights and cameras from the source
// convention (Y or Z up, metersPerUnit scale, -Z look axis) into the .bsa
// convention (Z up, meters, +Z look axis).
package projection

import (
	"bella-bridge/math"
	"bella-bridge/scene"
)

// TargetUpAxis is the up axis of the output format.
const TargetUpAxis = "Z"

// LightFlip turns a light 180 degrees about X so it aims down +Z.
var LightFlip = math.Mat4Scale(math.Vec3{X: 1, Y: -1, Z: -1})

// Basis returns the change of basis for a stage with the given unit scale
// and up axis. A Y up stage has its Y axis swapped into Z.
func Basis(metersPerUnit float64, upAxis string) math.Mat4 {
	u := metersPerUnit
	if upAxis == TargetUpAxis {
		return math.Mat4Diagonal(u)
	}
	return math.Mat4{
		{u, 0, 0, 0},
		{0, 0, u, 0},
		{0, -u, 0, 0},
		{0, 0, 0, 1},
	}
}

// Project computes m·basis and negates rows 1 and 2 to account for the
// handedness change. Every projected matrix goes through here.
func Project(m, basis math.Mat4) math.Mat4 {
	return m.Mul(basis).NegateRow(1).NegateRow(2)
}

// Projector binds a basis to one stage.
type Projector struct {
	Basis math.Mat4
}

func NewProjector(md scene.Metadata) Projector {
	return Projector{Basis: Basis(md.MetersPerUnit, md.UpAxis)}
}

// Camera places a camera given its local to world matrix.
func (p Projector) Camera(l2w math.Mat4) math.Mat4 {
	return Project(l2w, p.Basis)
}

// Light places a light. The row negation in Project equals LightFlip·l2w·basis.
func (p Projector) Light(l2w math.Mat4) math.Mat4 {
	return Project(l2w, p.Basis)
}

// Xform places an ordinary transform in world space, l2w·basis.
func (p Projector) Xform(l2w math.Mat4) math.Mat4 {
	return Project(LightFlip.Mul(l2w), p.Basis)
}
