package math

type Vec2 struct {
	X, Y float64
}

// FlipV converts between top-left and bottom-left texture origins.
func (v Vec2) FlipV() Vec2 {
	return Vec2{X: v.X, Y: 1 - v.Y}
}
