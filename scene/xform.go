package scene

import (
	"fmt"
	"strings"

	"bella-bridge/math"
)

const (
	xformOpOrder     = "xformOpOrder"
	resetXformStack  = "!resetXformStack!"
	invertPrefix     = "!invert!"
	xformOpNamespace = "xformOp:"
)

// LocalTransform composes the prim's xform ops at time t in xformOpOrder.
// The second result reports whether the prim resets the parent transform.
func (p *Prim) LocalTransform(t TimeCode) (math.Mat4, bool, error) {
	m := math.Mat4Identity()
	if !p.HasAttribute(xformOpOrder) {
		return m, false, nil
	}
	order, err := Get[[]string](p, xformOpOrder, DefaultTime)
	if err != nil {
		return m, false, err
	}

	reset := false
	for _, opName := range order {
		if opName == resetXformStack {
			reset = true
			m = math.Mat4Identity()
			continue
		}
		op, err := p.xformOpMatrix(opName, t)
		if err != nil {
			return math.Mat4Identity(), false, err
		}
		m = op.Mul(m)
	}
	return m, reset, nil
}

// LocalToWorld concatenates local transforms up to the pseudo-root.
func (p *Prim) LocalToWorld(t TimeCode) (math.Mat4, error) {
	m := math.Mat4Identity()
	for cur := p; cur != nil && !cur.IsPseudoRoot(); cur = cur.parent {
		local, reset, err := cur.LocalTransform(t)
		if err != nil {
			return math.Mat4Identity(), err
		}
		m = m.Mul(local)
		if reset {
			break
		}
	}
	return m, nil
}

func (p *Prim) xformOpMatrix(opName string, t TimeCode) (math.Mat4, error) {
	invert := strings.HasPrefix(opName, invertPrefix)
	attrName := strings.TrimPrefix(opName, invertPrefix)
	if !strings.HasPrefix(attrName, xformOpNamespace) {
		return math.Mat4{}, fmt.Errorf("%s: unsupported xform op %q", p.path, opName)
	}
	opType, _, _ := strings.Cut(strings.TrimPrefix(attrName, xformOpNamespace), ":")

	switch opType {
	case "transform":
		if invert {
			return math.Mat4{}, fmt.Errorf("%s: inverted matrix op %q is not supported", p.path, opName)
		}
		return Get[math.Mat4](p, attrName, t)
	case "translate":
		v, err := Get[math.Vec3](p, attrName, t)
		if err != nil {
			return math.Mat4{}, err
		}
		if invert {
			v = v.Mul(-1)
		}
		return math.Mat4Translation(v), nil
	case "scale":
		v, err := Get[math.Vec3](p, attrName, t)
		if err != nil {
			return math.Mat4{}, err
		}
		if invert {
			v = math.Vec3{X: 1 / v.X, Y: 1 / v.Y, Z: 1 / v.Z}
		}
		return math.Mat4Scale(v), nil
	case "orient":
		q, err := Get[math.Quaternion](p, attrName, t)
		if err != nil {
			return math.Mat4{}, err
		}
		if invert {
			q = q.Conjugate()
		}
		return q.ToMat4(), nil
	case "rotateX", "rotateY", "rotateZ":
		deg, err := Get[float64](p, attrName, t)
		if err != nil {
			return math.Mat4{}, err
		}
		if invert {
			deg = -deg
		}
		return axisRotation(opType[len(opType)-1], deg), nil
	case "rotateXYZ", "rotateXZY", "rotateYXZ", "rotateYZX", "rotateZXY", "rotateZYX":
		v, err := Get[math.Vec3](p, attrName, t)
		if err != nil {
			return math.Mat4{}, err
		}
		return eulerRotation(opType[len("rotate"):], v, invert), nil
	}
	return math.Mat4{}, fmt.Errorf("%s: unsupported xform op %q", p.path, opName)
}

func axisRotation(axis byte, deg float64) math.Mat4 {
	rad := math.Radians(deg)
	switch axis {
	case 'X':
		return math.Mat4RotationX(rad)
	case 'Y':
		return math.Mat4RotationY(rad)
	default:
		return math.Mat4RotationZ(rad)
	}
}

// eulerRotation applies the axes in the order they are named, first axis first.
func eulerRotation(order string, deg math.Vec3, invert bool) math.Mat4 {
	angle := func(axis byte) float64 {
		switch axis {
		case 'X':
			return deg.X
		case 'Y':
			return deg.Y
		default:
			return deg.Z
		}
	}
	m := math.Mat4Identity()
	if invert {
		for i := len(order) - 1; i >= 0; i-- {
			m = m.Mul(axisRotation(order[i], -angle(order[i])))
		}
		return m
	}
	for i := 0; i < len(order); i++ {
		m = m.Mul(axisRotation(order[i], angle(order[i])))
	}
	return m
}

// SetTransform authors a single matrix op, replacing any existing op order.
func (p *Prim) SetTransform(m math.Mat4) {
	p.SetAttribute("xformOp:transform", "matrix4d", m)
	p.SetAttribute(xformOpOrder, "token[]", []string{"xformOp:transform"})
}
