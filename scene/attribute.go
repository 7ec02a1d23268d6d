package scene

import (
	"errors"
	"fmt"
	stdmath "math"
	"sort"

	"bella-bridge/math"
)

var (
	ErrNoAttribute   = errors.New("attribute not found")
	ErrNoValue       = errors.New("attribute has no value")
	ErrAttributeType = errors.New("attribute type mismatch")
)

// TimeCode selects a time sample. DefaultTime reads the non-animated value.
type TimeCode float64

var DefaultTime = TimeCode(stdmath.NaN())

func (t TimeCode) IsDefault() bool { return stdmath.IsNaN(float64(t)) }

type TimeSample struct {
	Time  float64
	Value any
}

// Attribute is a typed property with an optional default value, optional
// time samples and optional incoming connections.
//
// Values use these Go types: bool, int, float64, string, math.Vec2, math.Vec3,
// math.Quaternion, math.Mat4 and slices []int, []float64, []string,
// []math.Vec2, []math.Vec3, []math.Quaternion.
type Attribute struct {
	Name        string
	TypeName    string
	Default     any
	HasDefault  bool
	Samples     []TimeSample
	Connections []Connection
}

// Set assigns the default value.
func (a *Attribute) Set(v any) *Attribute {
	a.Default = v
	a.HasDefault = true
	return a
}

// SetSample adds or replaces the sample at time t, keeping samples sorted.
func (a *Attribute) SetSample(t float64, v any) *Attribute {
	i := sort.Search(len(a.Samples), func(i int) bool { return a.Samples[i].Time >= t })
	if i < len(a.Samples) && a.Samples[i].Time == t {
		a.Samples[i].Value = v
		return a
	}
	a.Samples = append(a.Samples, TimeSample{})
	copy(a.Samples[i+1:], a.Samples[i:])
	a.Samples[i] = TimeSample{Time: t, Value: v}
	return a
}

// Connect adds an incoming connection.
func (a *Attribute) Connect(c Connection) *Attribute {
	a.Connections = append(a.Connections, c)
	return a
}

func (a *Attribute) HasValue() bool {
	return a.HasDefault || len(a.Samples) > 0
}

func (a *Attribute) IsConnected() bool {
	return len(a.Connections) > 0
}

func (a *Attribute) ValueMightBeTimeVarying() bool {
	return len(a.Samples) > 1
}

// Value resolves the attribute at t. Samples are held, not interpolated:
// the last sample at or before t wins, and times before the first sample
// read the first sample.
func (a *Attribute) Value(t TimeCode) (any, bool) {
	if len(a.Samples) == 0 || (t.IsDefault() && a.HasDefault) {
		return a.Default, a.HasDefault
	}
	if t.IsDefault() {
		return a.Samples[0].Value, true
	}
	i := sort.Search(len(a.Samples), func(i int) bool { return a.Samples[i].Time > float64(t) })
	if i == 0 {
		return a.Samples[0].Value, true
	}
	return a.Samples[i-1].Value, true
}

// Get reads a typed value from a prim attribute. Integers are widened to
// float64 and float64 slices when the caller asks for floating point.
func Get[T any](p *Prim, name string, t TimeCode) (T, error) {
	var zero T
	a := p.Attribute(name)
	if a == nil {
		return zero, fmt.Errorf("%s.%s: %w", p.Path(), name, ErrNoAttribute)
	}
	v, ok := a.Value(t)
	if !ok {
		return zero, fmt.Errorf("%s.%s: %w", p.Path(), name, ErrNoValue)
	}
	out, ok := convert[T](v)
	if !ok {
		return zero, fmt.Errorf("%s.%s: %w: have %T, want %T", p.Path(), name, ErrAttributeType, v, zero)
	}
	return out, nil
}

// GetOr is Get with a fallback for missing attributes. Type mismatches still
// fall back; callers that need to see them use Get.
func GetOr[T any](p *Prim, name string, t TimeCode, fallback T) T {
	v, err := Get[T](p, name, t)
	if err != nil {
		return fallback
	}
	return v
}

func convert[T any](v any) (T, bool) {
	if out, ok := v.(T); ok {
		return out, true
	}
	var zero T
	switch any(zero).(type) {
	case float64:
		if i, ok := v.(int); ok {
			return any(float64(i)).(T), true
		}
	case []float64:
		if ints, ok := v.([]int); ok {
			fs := make([]float64, len(ints))
			for i, n := range ints {
				fs[i] = float64(n)
			}
			return any(fs).(T), true
		}
	case math.Vec3:
		// a uniform scale authored as a single float
		if f, ok := v.(float64); ok {
			return any(math.Vec3{X: f, Y: f, Z: f}).(T), true
		}
	}
	return zero, false
}
