package materials

import (
	"path/filepath"
	"strings"

	"bella-bridge/core"
	"bella-bridge/math"
	"bella-bridge/scene"
)

// Shader ids recognised by the resolver.
const (
	PreviewSurface = "UsdPreviewSurface"
	UVTexture      = "UsdUVTexture"
	PrimvarReader  = "UsdPrimvarReader_float2"
)

// DefaultWrap is the wrap mode of a texture that authors none.
const DefaultWrap = "useMetadata"

func shaderID(p *scene.Prim) string {
	return scene.GetOr(p, "info:id", scene.DefaultTime, "")
}

// Resolve flattens material into a Descriptor. Every UsdUVTexture found
// anywhere below the material is returned, connected or not. Texture file
// paths are made relative to baseDir when they are absolute.
//
// reg may be nil.
func Resolve(material *scene.Prim, baseDir string, reg *core.Registry) (*Descriptor, []*TextureRef) {
	d := &Descriptor{
		Material: material,
		ID:       reg.Resolve(material.Name(), material.Path().String()),
	}

	var textures []*TextureRef
	byPath := make(map[scene.Path]*TextureRef)
	r := scene.NewPrimRange(material)
	for r.Next() {
		p := r.Prim()
		if r.IsPostVisit() || shaderID(p) != UVTexture {
			continue
		}
		t := textureRef(p, baseDir, reg)
		byPath[p.Path()] = t
		textures = append(textures, t)
	}

	surface, _, ok := material.ConnectedPrim("outputs:surface")
	if !ok || shaderID(surface) != PreviewSurface {
		return d, textures
	}
	d.Surface = surface

	for _, c := range Channels() {
		d.values[c] = resolveInput(surface, c, baseDir, reg, byPath)
	}
	return d, textures
}

func resolveInput(surface *scene.Prim, c Channel, baseDir string, reg *core.Registry, known map[scene.Path]*TextureRef) Value {
	attr := surface.Attribute(c.Input())
	if attr == nil {
		return Value{}
	}
	if attr.IsConnected() {
		src, _, ok := surface.ConnectedPrim(c.Input())
		if !ok || shaderID(src) != UVTexture {
			return Value{}
		}
		if t, ok := known[src.Path()]; ok {
			return textureValue(t)
		}
		// texture outside the material subtree
		return textureValue(textureRef(src, baseDir, reg))
	}

	v, ok := attr.Value(scene.DefaultTime)
	if !ok {
		return Value{}
	}
	switch x := v.(type) {
	case float64:
		return scalarValue(x)
	case int:
		return scalarValue(float64(x))
	case math.Vec3:
		return colorValue(x)
	}
	return Value{}
}

func textureRef(p *scene.Prim, baseDir string, reg *core.Registry) *TextureRef {
	return &TextureRef{
		Prim:  p,
		ID:    reg.Resolve(p.Name(), p.Path().String()),
		File:  relativeAsset(scene.GetOr(p, "inputs:file", scene.DefaultTime, ""), baseDir),
		WrapS: scene.GetOr(p, "inputs:wrapS", scene.DefaultTime, DefaultWrap),
		WrapT: scene.GetOr(p, "inputs:wrapT", scene.DefaultTime, DefaultWrap),
	}
}

// relativeAsset strips asset path delimiters and expresses absolute paths
// relative to baseDir.
func relativeAsset(asset, baseDir string) string {
	asset = strings.Trim(asset, "@")
	if asset == "" || !filepath.IsAbs(asset) || baseDir == "" {
		return filepath.ToSlash(asset)
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return filepath.ToSlash(asset)
	}
	if filepath.Dir(asset) == base {
		return filepath.Base(asset)
	}
	rel, err := filepath.Rel(base, asset)
	if err != nil {
		return filepath.ToSlash(asset)
	}
	return filepath.ToSlash(rel)
}

// TexcoordPrimvar returns the primvar name read by the first
// UsdPrimvarReader_float2 below material, following one connection hop for
// its varname. It falls back to "st".
func TexcoordPrimvar(material *scene.Prim) string {
	const fallback = "st"
	if material == nil {
		return fallback
	}
	r := scene.NewPrimRange(material)
	for r.Next() {
		p := r.Prim()
		if r.IsPostVisit() || shaderID(p) != PrimvarReader {
			continue
		}
		attr := p.Attribute("inputs:varname")
		if attr == nil {
			continue
		}
		if attr.IsConnected() {
			src, conn, ok := p.ConnectedPrim("inputs:varname")
			if !ok {
				continue
			}
			if name := scene.GetOr(src, conn.Name, scene.DefaultTime, ""); name != "" {
				return name
			}
			continue
		}
		if name := scene.GetOr(p, "inputs:varname", scene.DefaultTime, ""); name != "" {
			return name
		}
	}
	return fallback
}
