package classify

import (
	"fmt"

	"bella-bridge/math"
	"bella-bridge/scene"
)

// ResolveInstance returns the prim an instance stands for: the target of
// its first composition arc, or that target's direct child whose purpose
// is render when there is one. It returns nil when nothing resolves.
// Only a single hop is followed.
func ResolveInstance(p *scene.Prim) *scene.Prim {
	target := p.Prototype()
	if target == nil {
		return nil
	}
	for _, child := range target.Children() {
		if scene.GetOr(child, "purpose", scene.DefaultTime, "") == PurposeRender {
			return child
		}
	}
	return target
}

// InstanceMatrices evaluates the instancer at time t and returns one matrix
// list per prototype, indexed like Prototypes. Each matrix is
// scale·orientation·translation in row vector form.
func (in *Instancer) InstanceMatrices(t scene.TimeCode) ([][]math.Mat4, error) {
	p := in.Prim
	positions, err := scene.Get[[]math.Vec3](p, "positions", t)
	if err != nil {
		return nil, err
	}
	n := len(positions)

	orientations := scene.GetOr[[]math.Quaternion](p, "orientations", t, nil)
	scales := scene.GetOr[[]math.Vec3](p, "scales", t, nil)
	protoIndices := scene.GetOr[[]int](p, "protoIndices", t, nil)
	if orientations != nil && len(orientations) != n {
		return nil, fmt.Errorf("%s: %d orientations for %d positions", p.Path(), len(orientations), n)
	}
	if scales != nil && len(scales) != n {
		return nil, fmt.Errorf("%s: %d scales for %d positions", p.Path(), len(scales), n)
	}
	if protoIndices != nil && len(protoIndices) != n {
		return nil, fmt.Errorf("%s: %d protoIndices for %d positions", p.Path(), len(protoIndices), n)
	}

	out := make([][]math.Mat4, len(in.Prototypes))
	for i := 0; i < n; i++ {
		proto := 0
		if protoIndices != nil {
			proto = protoIndices[i]
		}
		if proto < 0 || proto >= len(in.Prototypes) {
			return nil, fmt.Errorf("%s: instance %d uses prototype %d of %d", p.Path(), i, proto, len(in.Prototypes))
		}
		scale := math.Vec3One
		if scales != nil {
			scale = scales[i]
		}
		rot := math.QuaternionIdentity()
		if orientations != nil {
			rot = orientations[i]
		}
		out[proto] = append(out[proto], math.Mat4SRT(scale, rot, positions[i]))
	}
	return out, nil
}
