package bella

import (
	"bella-bridge/core"
	"bella-bridge/math"
	"bella-bridge/projection"
)

// Camera node defaults.
const (
	CameraWidth  = 1280
	CameraHeight = 720
	CameraEV     = 13.5

	apertureBlades   = 6
	apertureRotation = 60
)

// DefaultCameraID names the camera written for scenes without one.
const DefaultCameraID core.Identifier = "oomerCamera"

// Camera is a perspective camera attached to the world.
type Camera struct {
	ID core.Identifier
	// Matrix is the world placement in output convention.
	Matrix math.Mat4
	Lens   projection.Lens
}

// Camera writes the camera, its sensor, thin lens and world transform and
// returns the transform's identifier.
func (w *Writer) Camera(c Camera) core.Identifier {
	lens, sensor := c.ID.Suffix("_thinLens"), c.ID.Suffix("_sensor")

	w.node("camera", c.ID)
	w.ref("lens", lens)
	w.attr("resolution", "vec2( "+formatScalar(CameraWidth)+" "+formatScalar(CameraHeight)+" )")
	w.ref("sensor", sensor)
	w.float("ev", CameraEV)

	w.node("sensor", sensor)
	w.attr("size", formatVec2(c.Lens.HorizontalAperture, c.Lens.VerticalAperture))

	w.node("thinLens", lens)
	w.float("steps[0].fStop", c.Lens.FStop)
	w.float("steps[0].focalLen", c.Lens.FocalLength)
	w.float("steps[0].focusDist", c.Lens.FocusDistance)
	w.attr("aperture.blades", formatUint(apertureBlades))
	w.float("aperture.rotation", apertureRotation)
	w.str("aperture.shape", "circular")

	xf := c.ID.Suffix("Xform")
	w.node("xform", xf)
	w.str("name", string(xf))
	w.ref("children[*]", c.ID)
	w.xform(c.Matrix)
	return xf
}

// DefaultLens is the lens of the default camera.
var DefaultLens = projection.Lens{
	HorizontalAperture: projection.DefaultHorizontalAperture,
	VerticalAperture:   projection.DefaultVerticalAperture,
	FocalLength:        20,
	FocusDistance:      projection.DefaultFocusDistance,
	FStop:              projection.DefaultFStop,
}

// DefaultCamera writes a camera at the origin for scenes that have none
// and returns its transform's identifier.
func (w *Writer) DefaultCamera() core.Identifier {
	id := DefaultCameraID
	xf := id.Suffix("_xform")
	lens, sensor := id.Suffix("_thinLens"), id.Suffix("_sensor")

	w.node("xform", xf)
	w.str("name", string(xf))
	w.ref("children[*]", id)
	w.xform(math.Mat4Identity())

	w.node("camera", id)
	w.ref("lens", lens)
	w.attr("resolution", "vec2(1920 1080)")
	w.ref("sensor", sensor)

	w.node("sensor", sensor)
	w.attr("size", formatVec2(DefaultLens.HorizontalAperture, DefaultLens.VerticalAperture))

	w.node("thinLens", lens)
	w.float("steps[0].fStop", DefaultLens.FStop)
	w.float("steps[0].focalLen", DefaultLens.FocalLength)
	w.float("steps[0].focusDist", DefaultLens.FocusDistance)
	return xf
}
