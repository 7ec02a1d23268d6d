package bella

import (
	"path/filepath"
	"strings"

	"bella-bridge/core"
	"bella-bridge/math"
)

// Light node types.
const (
	PointLight       = "pointLight"
	SpotLight        = "spotLight"
	AreaLight        = "areaLight"
	DirectionalLight = "directionalLight"
	ImageDome        = "imageDome"
)

// LightSuffix names the light node below its transform.
const LightSuffix = "_l"

// Light is a light attached directly to the world.
type Light struct {
	ID   core.Identifier
	Name string
	Type string
	// Matrix is the world placement in output convention.
	Matrix    math.Mat4
	Color     math.Vec3
	Intensity float64

	// Radius of point lights and disk shaped area lights.
	Radius float64
	// Disk selects a round area light. Rectangular ones use Width and
	// Height.
	Disk          bool
	Width, Height float64

	// DomeFile is the image of an image dome.
	DomeFile string
}

// Light writes the world transform of the light and the light itself. It
// returns the identifier of the light node, which settings refer to for
// image domes.
func (w *Writer) Light(l Light) core.Identifier {
	id := l.ID.Suffix(LightSuffix)
	w.node("xform", l.ID)
	w.str("name", l.Name)
	w.ref("children[*]", id)
	w.xform(l.Matrix)

	w.node(l.Type, id)
	w.attr("color", formatRGBA(l.Color, formatElem))
	w.float("intensity", l.Intensity)
	if l.Type == PointLight {
		w.float("radius", l.Radius)
	}
	if l.Type != DirectionalLight {
		w.float("multiplier", 100000)
	}

	switch l.Type {
	case ImageDome:
		dir, ext, stem := splitFile(l.DomeFile)
		w.str("ext", strings.TrimPrefix(ext, "."))
		w.str("dir", "../"+dir)
		w.str("file", stem)
	case SpotLight:
		w.float("aperture", 100)
		w.float("penumbra", 4)
		w.float("radius", 1.9)
	case AreaLight:
		if l.Disk {
			w.str("shape", "disk")
			w.float("sizeX", l.Radius)
			w.float("sizeY", l.Radius)
		} else {
			w.float("sizeX", l.Width)
			w.float("sizeY", l.Height)
		}
	}
	return id
}

// splitFile splits a slash separated path into its directory, extension
// and stem. A bare file name has directory ".".
func splitFile(file string) (dir, ext, stem string) {
	file = filepath.ToSlash(file)
	dir = filepath.ToSlash(filepath.Dir(file))
	base := filepath.Base(file)
	ext = filepath.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	return dir, ext, stem
}
