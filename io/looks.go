package io

import (
	"bella-bridge/materials"
	"bella-bridge/math"
	"bella-bridge/scene"
)

// LooksPath is the scope loaders put materials under.
const LooksPath scene.Path = "/Looks"

// Texture wrap tokens.
const (
	wrapRepeat = "repeat"
	wrapClamp  = "clamp"
	wrapMirror = "mirror"
)

// previewMaterial authors a Material prim driven by one UsdPreviewSurface.
type previewMaterial struct {
	material *scene.Prim
	surface  *scene.Prim
	reader   *scene.Prim
}

func newPreviewMaterial(s *scene.Stage, path scene.Path) *previewMaterial {
	m := &previewMaterial{material: s.MustDefine(path, scene.TypeMaterial)}
	m.surface = s.MustDefine(path.Child("PreviewSurface"), scene.TypeShader)
	m.surface.SetAttribute("info:id", "token", materials.PreviewSurface)
	m.surface.CreateAttribute("outputs:surface", "token")
	m.material.CreateAttribute("outputs:surface", "token").
		Connect(scene.Connection{Prim: m.surface.Path(), Name: "outputs:surface"})
	return m
}

func (m *previewMaterial) setColor(c materials.Channel, v math.Vec3) {
	m.surface.SetAttribute(c.Input(), "color3f", v)
}

func (m *previewMaterial) setFloat(c materials.Channel, f float64) {
	m.surface.SetAttribute(c.Input(), "float", f)
}

// texcoordReader returns the primvar reader shared by every texture of the
// material, creating it on first use.
func (m *previewMaterial) texcoordReader() *scene.Prim {
	if m.reader == nil {
		s := m.material.Stage()
		m.reader = s.MustDefine(m.material.Path().Child("TexcoordReader"), scene.TypeShader)
		m.reader.SetAttribute("info:id", "token", materials.PrimvarReader)
		m.reader.SetAttribute("inputs:varname", "token", "st")
		m.reader.CreateAttribute("outputs:result", "float2")
	}
	return m.reader
}

// connectTexture adds a UsdUVTexture named name reading file and connects
// the channel to it. Color channels read the rgb output, the others r.
func (m *previewMaterial) connectTexture(c materials.Channel, name, file, wrapS, wrapT string) *scene.Prim {
	s := m.material.Stage()
	tex := s.MustDefine(m.material.Path().Child(name), scene.TypeShader)
	tex.SetAttribute("info:id", "token", materials.UVTexture)
	tex.SetAttribute("inputs:file", "asset", file)
	if wrapS != "" {
		tex.SetAttribute("inputs:wrapS", "token", wrapS)
	}
	if wrapT != "" {
		tex.SetAttribute("inputs:wrapT", "token", wrapT)
	}
	tex.CreateAttribute("inputs:st", "float2").
		Connect(scene.Connection{Prim: m.texcoordReader().Path(), Name: "outputs:result"})

	output, typeName := "outputs:r", "float"
	switch c {
	case materials.DiffuseColor:
		output, typeName = "outputs:rgb", "color3f"
	case materials.Normal:
		output, typeName = "outputs:rgb", "normal3f"
	}
	tex.CreateAttribute(output, typeName)
	m.surface.CreateAttribute(c.Input(), typeName).
		Connect(scene.Connection{Prim: tex.Path(), Name: output})
	return tex
}

func bindMaterial(p *scene.Prim, material *scene.Prim) {
	p.SetRelationship("material:binding", material.Path())
}
