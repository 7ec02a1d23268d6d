package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Prim type names understood by the converter.
const (
	TypeXform          = "Xform"
	TypeScope          = "Scope"
	TypeMesh           = "Mesh"
	TypeMaterial       = "Material"
	TypeShader         = "Shader"
	TypeCamera         = "Camera"
	TypeSphereLight    = "SphereLight"
	TypeSpotLight      = "SpotLight"
	TypeDistantLight   = "DistantLight"
	TypeRectLight      = "RectLight"
	TypeDiskLight      = "DiskLight"
	TypeDomeLight      = "DomeLight"
	TypeCube           = "Cube"
	TypeSphere         = "Sphere"
	TypeCylinder       = "Cylinder"
	TypePointInstancer = "PointInstancer"
)

var ErrPrimExists = errors.New("prim already defined")

// Metadata holds stage level settings. Zero values are replaced by the
// defaults of NewStage.
type Metadata struct {
	MetersPerUnit      float64
	UpAxis             string
	TimeCodesPerSecond float64
	StartTimeCode      float64
	EndTimeCode        float64
	CustomLayerData    map[string]string
}

// DefaultMetadata matches what scene files imply when nothing is authored.
func DefaultMetadata() Metadata {
	return Metadata{
		MetersPerUnit:      1,
		UpAxis:             "Y",
		TimeCodesPerSecond: 30,
	}
}

// Stage is an in-memory scene graph. Prototypes are root-level subtrees that
// are reachable by path but are not children of the pseudo-root.
type Stage struct {
	Metadata Metadata
	// FilePath is the file the stage was read from. Output names and texture
	// paths are made relative to it.
	FilePath string

	root       *Prim
	prototypes []*Prim
	index      map[Path]*Prim
}

func NewStage(filePath string) *Stage {
	s := &Stage{
		Metadata: DefaultMetadata(),
		FilePath: filePath,
		index:    make(map[Path]*Prim),
	}
	s.root = newPrim(s, RootPath, "")
	s.index[RootPath] = s.root
	return s
}

func (s *Stage) PseudoRoot() *Prim { return s.root }

// Prototypes returns prototype roots in definition order.
func (s *Stage) Prototypes() []*Prim { return s.prototypes }

// Dir is the directory holding the stage file.
func (s *Stage) Dir() string {
	if s.FilePath == "" {
		return "."
	}
	return filepath.Dir(s.FilePath)
}

// Stem is the stage file name without its extension.
func (s *Stage) Stem() string {
	base := filepath.Base(s.FilePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Stage) PrimAtPath(p Path) *Prim {
	return s.index[p]
}

// DefinePrim creates a prim. Missing ancestors are created without a type.
// Defining an existing path updates its type and returns it.
func (s *Stage) DefinePrim(p Path, typeName string) (*Prim, error) {
	if p == "" || p.IsRoot() || !strings.HasPrefix(string(p), "/") {
		return nil, fmt.Errorf("define %q: invalid prim path", p)
	}
	if existing := s.index[p]; existing != nil {
		if typeName != "" {
			existing.TypeName = typeName
		}
		return existing, nil
	}
	parent := s.index[p.Parent()]
	if parent == nil {
		var err error
		parent, err = s.DefinePrim(p.Parent(), "")
		if err != nil {
			return nil, err
		}
	}
	prim := newPrim(s, p, typeName)
	parent.addChild(prim)
	s.index[p] = prim
	return prim, nil
}

// MustDefine is DefinePrim for paths known to be valid.
func (s *Stage) MustDefine(p Path, typeName string) *Prim {
	prim, err := s.DefinePrim(p, typeName)
	if err != nil {
		panic(err)
	}
	return prim
}

// DefinePrototype creates a prototype root named name. Its parent is the
// pseudo-root, but it is not listed among the pseudo-root's children.
func (s *Stage) DefinePrototype(name, typeName string) (*Prim, error) {
	p := RootPath.Child(name)
	if s.index[p] != nil {
		return nil, fmt.Errorf("prototype %s: %w", p, ErrPrimExists)
	}
	prim := newPrim(s, p, typeName)
	prim.parent = s.root
	s.prototypes = append(s.prototypes, prim)
	s.index[p] = prim
	return prim, nil
}

// Traverse visits every prim of the main hierarchy, pseudo-root excluded.
func (s *Stage) Traverse(callback func(*Prim)) {
	for _, c := range s.root.children {
		c.Traverse(callback)
	}
}
