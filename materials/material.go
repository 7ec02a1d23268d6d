// Package materials flattens UsdPreviewSurface shader networks into flat
// per-channel values and texture references.
//
// Only one hop is followed: an input is either a literal or a direct
// connection to a UsdUVTexture. Mix nodes, multi-hop graphs and procedural
// textures are outside what the resolver understands and resolve to Absent.
package materials

import (
	"bella-bridge/core"
	"bella-bridge/math"
	"bella-bridge/scene"
)

// Channel is one physically based input of a surface.
type Channel int

const (
	DiffuseColor Channel = iota
	Metallic
	Roughness
	Normal
	IOR
	Clearcoat
	ClearcoatRoughness
	Displacement
	Opacity

	numChannels
)

var channelInputs = [numChannels]string{
	DiffuseColor:       "diffuseColor",
	Metallic:           "metallic",
	Roughness:          "roughness",
	Normal:             "normal",
	IOR:                "ior",
	Clearcoat:          "clearcoat",
	ClearcoatRoughness: "clearcoatRoughness",
	Displacement:       "displacement",
	Opacity:            "opacity",
}

// String returns the shader input name without the "inputs:" namespace.
func (c Channel) String() string {
	if c < 0 || c >= numChannels {
		return "unknown"
	}
	return channelInputs[c]
}

// Input is the attribute name on the surface shader.
func (c Channel) Input() string { return "inputs:" + c.String() }

// Channels lists every channel in declaration order.
func Channels() []Channel {
	out := make([]Channel, numChannels)
	for i := range out {
		out[i] = Channel(i)
	}
	return out
}

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	Absent ValueKind = iota
	Scalar
	Color
	Texture
)

func (k ValueKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Color:
		return "color"
	case Texture:
		return "texture"
	}
	return "absent"
}

// Value is the resolved content of one channel. Only the field matching
// Kind is meaningful.
type Value struct {
	Kind    ValueKind
	Scalar  float64
	Color   core.Color
	Texture *TextureRef
}

func scalarValue(f float64) Value { return Value{Kind: Scalar, Scalar: f} }

func colorValue(v math.Vec3) Value {
	return Value{Kind: Color, Color: core.Color{R: v.X, G: v.Y, B: v.Z, A: 1}}
}

func textureValue(t *TextureRef) Value { return Value{Kind: Texture, Texture: t} }

// TextureRef is a UsdUVTexture shader reduced to what a file texture needs.
type TextureRef struct {
	Prim *scene.Prim
	ID   core.Identifier
	// File is relative to the stage directory unless it could not be made so.
	File  string
	WrapS string
	WrapT string
}

// Descriptor is the flattened form of one material. It is not modified
// after Resolve returns.
type Descriptor struct {
	Material *scene.Prim
	ID       core.Identifier
	// Surface is the UsdPreviewSurface shader, nil when there is none.
	Surface *scene.Prim

	values [numChannels]Value
}

// Get returns the value of channel c.
func (d *Descriptor) Get(c Channel) Value {
	if c < 0 || c >= numChannels {
		return Value{}
	}
	return d.values[c]
}

// Textures returns the texture references used by channels, in channel order.
func (d *Descriptor) Textures() []*TextureRef {
	var out []*TextureRef
	for _, v := range d.values {
		if v.Kind == Texture {
			out = append(out, v.Texture)
		}
	}
	return out
}
