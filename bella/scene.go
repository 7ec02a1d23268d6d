package bella

import (
	"bella-bridge/core"
	"bella-bridge/math"
)

// Fixed node names every scene shares.
const (
	GlobalID      core.Identifier = "global"
	StateID       core.Identifier = "state"
	SettingsID    core.Identifier = "settings"
	WorldID       core.Identifier = "world"
	BeautyPassID  core.Identifier = "beautyPass"
	GroundPlaneID core.Identifier = "groundPlane"
	ColorDomeID   core.Identifier = "colorDome"
)

// Header writes the file header and the nodes that precede scene content:
// global, state, beautyPass and groundPlane.
func (w *Writer) Header() {
	w.write("# bella scene\n", "# version: ", Version, "\n")

	w.node("global", GlobalID)
	w.ref("states[*]", StateID)

	w.node("state", StateID)
	w.ref("settings", SettingsID)
	w.ref("world", WorldID)

	w.bare("beautyPass", BeautyPassID)

	w.node("groundPlane", GroundPlaneID)
	w.float("elevation", 0)
}

// Settings collects the choices the settings node refers to while a frame
// is written.
type Settings struct {
	// Camera is the first camera written.
	Camera core.Identifier
	// Environment is the first image dome written.
	Environment core.Identifier
	// ColorDome replaces any environment with a plain white dome.
	ColorDome bool
}

// UseCamera keeps the first camera it is given.
func (s *Settings) UseCamera(id core.Identifier) {
	if s.Camera == "" {
		s.Camera = id
	}
}

// UseEnvironment keeps the first environment it is given.
func (s *Settings) UseEnvironment(id core.Identifier) {
	if s.Environment == "" {
		s.Environment = id
	}
}

func (s Settings) environment() core.Identifier {
	if s.ColorDome {
		return ColorDomeID
	}
	return s.Environment
}

// Settings writes the render settings node, followed by the color dome
// when one is used.
func (w *Writer) Settings(s Settings) {
	w.node("settings", SettingsID)
	w.ref("beautyPass", BeautyPassID)
	if s.Camera != "" {
		w.ref("camera", s.Camera)
	}
	if env := s.environment(); env != "" {
		w.ref("environment", env)
	}
	w.float("iprScale", 100)
	w.attr("threads", "-1")
	w.attr("useGpu", "true")
	w.str("iprNavigation", "maya")
	if s.ColorDome {
		w.bare("colorDome", ColorDomeID)
	}
}

// RootID names the node holding a stage's root prims.
func RootID(stem string) core.Identifier {
	return core.Resolve(stem, "").Suffix("_usd")
}

// Root writes the node that carries the stage's root prims and converts
// them into the output basis.
func (w *Writer) Root(id core.Identifier, roots []core.Identifier, basis math.Mat4) {
	w.node("xform", id)
	w.children(roots)
	w.xform(basis)
}

// World writes the top of the hierarchy. nodes are the world attached
// nodes: camera and light transforms and the stage root.
func (w *Writer) World(nodes []core.Identifier) {
	w.node("xform", WorldID)
	w.children(nodes)
	w.xform(math.Mat4Identity())
}
