package bella

import (
	"bella-bridge/core"
	"bella-bridge/materials"
)

// NormalMapSuffix names the normalMap node made from a file texture.
const NormalMapSuffix = "normalMap"

// uberInputs maps surface channels to uber attributes, in output order.
// Opacity has no counterpart.
var uberInputs = []struct {
	channel materials.Channel
	name    string
}{
	{materials.Clearcoat, "thinMedium.color"},
	{materials.ClearcoatRoughness, "thinMedium.scattering"},
	{materials.DiffuseColor, "base.color"},
	{materials.Metallic, "base.metallic"},
	{materials.IOR, "ior"},
	{materials.Normal, "normal"},
	{materials.Displacement, "displacement"},
	{materials.Roughness, "specular.roughness"},
}

// UberOptions adjusts how materials are written.
type UberOptions struct {
	// SkipRoughness leaves specular.roughness unset.
	SkipRoughness bool
}

// Uber writes a flattened material as an uber node.
func (w *Writer) Uber(d *materials.Descriptor, opts UberOptions) {
	w.node("uber", d.ID)
	for _, in := range uberInputs {
		if in.channel == materials.Roughness && opts.SkipRoughness {
			continue
		}
		v := d.Get(in.channel)
		switch v.Kind {
		case materials.Texture:
			w.connect(in.name, textureOutput(in.channel, v.Texture.ID))
		case materials.Color:
			w.attr(in.name, formatRGBA(v.Color.RGB(), formatScalar))
		case materials.Scalar:
			f := v.Scalar
			if in.channel == materials.Roughness {
				// percent
				f *= 100
			}
			w.float(in.name, f)
		}
	}
}

func textureOutput(c materials.Channel, tex core.Identifier) string {
	switch c {
	case materials.Normal:
		return string(tex.Suffix(NormalMapSuffix)) + ".outNormal"
	case materials.DiffuseColor:
		return string(tex) + ".outColor"
	}
	return string(tex) + ".outAverage"
}

// FileTexture writes the image a texture reads.
func (w *Writer) FileTexture(t *materials.TextureRef) {
	w.node("fileTexture", t.ID)
	w.textureFile(t.File)
}

// NormalMap writes the normalMap node the normal input of an uber
// connects to.
func (w *Writer) NormalMap(t *materials.TextureRef) {
	w.node("normalMap", t.ID.Suffix(NormalMapSuffix))
	w.textureFile(t.File)
}

func (w *Writer) textureFile(file string) {
	dir, ext, stem := splitFile(file)
	w.str("dir", dir)
	w.str("ext", ext)
	w.str("file", stem)
}
