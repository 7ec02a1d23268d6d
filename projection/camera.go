package projection

import (
	"bella-bridge/scene"
)

// Camera defaults used when the source leaves a value unauthored.
const (
	DefaultHorizontalAperture = 36.0
	DefaultVerticalAperture   = 24.0
	DefaultFocalLength        = 50.0
	DefaultFocusDistance      = 0.877
	DefaultFStop              = 8.0
)

// UnitBugPolicy describes the authoring tool unit fixup applied to lens
// values. Some exporters write apertures and focal lengths a hundred times
// too large; values above Threshold are divided by Divisor.
//
// The heuristic is fragile: a legitimately huge value is rescaled too.
type UnitBugPolicy struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float64 `toml:"threshold"`
	Divisor   float64 `toml:"divisor"`
}

func DefaultUnitBugPolicy() UnitBugPolicy {
	return UnitBugPolicy{Enabled: true, Threshold: 1000, Divisor: 100}
}

// DetectAuthoringToolUnitBug returns the corrected value and whether the
// fixup fired.
func (p UnitBugPolicy) DetectAuthoringToolUnitBug(v float64) (float64, bool) {
	if !p.Enabled || p.Divisor == 0 || v <= p.Threshold {
		return v, false
	}
	return v / p.Divisor, true
}

// CameraUnits converts lens values into millimetres for the sensor and
// thin lens nodes.
type CameraUnits struct {
	UnitBug UnitBugPolicy
}

// Scale is the lens unit multiplier. Centimetre and metre stages both
// author lens values in millimetres, so it is 1 for every stage.
func (c CameraUnits) Scale() float64 {
	return 1
}

// Apply runs the unit bug policy and then scales v.
func (c CameraUnits) Apply(v float64) float64 {
	v, _ = c.UnitBug.DetectAuthoringToolUnitBug(v)
	return v * c.Scale()
}

// Lens holds the camera values written to the sensor and thin lens nodes.
type Lens struct {
	HorizontalAperture float64
	VerticalAperture   float64
	FocalLength        float64
	FocusDistance      float64
	FStop              float64
}

// ReadLens reads the lens of a camera prim at time t. A zero focus
// distance or f-stop is treated as unauthored.
func ReadLens(prim *scene.Prim, t scene.TimeCode, units CameraUnits) Lens {
	l := Lens{
		HorizontalAperture: scene.GetOr(prim, "horizontalAperture", t, DefaultHorizontalAperture),
		VerticalAperture:   scene.GetOr(prim, "verticalAperture", t, DefaultVerticalAperture),
		FocalLength:        scene.GetOr(prim, "focalLength", t, DefaultFocalLength),
		FocusDistance:      scene.GetOr(prim, "focusDistance", t, DefaultFocusDistance),
		FStop:              scene.GetOr(prim, "fStop", t, DefaultFStop),
	}
	if l.FocusDistance == 0 {
		l.FocusDistance = DefaultFocusDistance
	}
	if l.FStop == 0 {
		l.FStop = DefaultFStop
	}
	l.HorizontalAperture = units.Apply(l.HorizontalAperture)
	l.VerticalAperture = units.Apply(l.VerticalAperture)
	l.FocalLength = units.Apply(l.FocalLength)
	l.FocusDistance = units.Apply(l.FocusDistance)
	return l
}
