package scene

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bella-bridge/math"
)

// ── Document structures ──────────────────────────────────────────────────────
//
// A stage document is YAML (or JSON) describing prims with USD style type
// names:
//
//	metadata:
//	  metersPerUnit: 0.01
//	  upAxis: Y
//	prims:
//	  - name: World
//	    type: Xform
//	    attributes:
//	      xformOp:translate: {type: double3, value: [0, 1, 0]}
//	      xformOpOrder: {type: "token[]", value: [xformOp:translate]}
//	    children: [...]
//
// Quaternions are written real part first: [w, x, y, z].

type Document struct {
	Metadata   MetadataDoc `yaml:"metadata,omitempty"`
	Prims      []PrimDoc   `yaml:"prims"`
	Prototypes []PrimDoc   `yaml:"prototypes,omitempty"`
}

type MetadataDoc struct {
	MetersPerUnit      *float64          `yaml:"metersPerUnit,omitempty"`
	UpAxis             string            `yaml:"upAxis,omitempty"`
	TimeCodesPerSecond *float64          `yaml:"timeCodesPerSecond,omitempty"`
	StartTimeCode      *float64          `yaml:"startTimeCode,omitempty"`
	EndTimeCode        *float64          `yaml:"endTimeCode,omitempty"`
	CustomLayerData    map[string]string `yaml:"customLayerData,omitempty"`
}

type PrimDoc struct {
	Name          string                  `yaml:"name"`
	Type          string                  `yaml:"type,omitempty"`
	Kind          string                  `yaml:"kind,omitempty"`
	Instanceable  bool                    `yaml:"instanceable,omitempty"`
	References    []string                `yaml:"references,omitempty"`
	Attributes    map[string]AttributeDoc `yaml:"attributes,omitempty"`
	Relationships map[string][]string     `yaml:"relationships,omitempty"`
	Children      []PrimDoc               `yaml:"children,omitempty"`
}

type AttributeDoc struct {
	Type        string          `yaml:"type"`
	Value       any             `yaml:"value,omitempty"`
	TimeSamples map[float64]any `yaml:"timeSamples,omitempty"`
	Connect     []string        `yaml:"connect,omitempty"`
}

// ── Loading ──────────────────────────────────────────────────────────────────

// LoadStage reads a stage document from disk.
func LoadStage(path string) (*Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage: %w", err)
	}
	stage, err := ParseStage(data, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stage, nil
}

// ParseStage decodes a stage document. filePath is recorded on the stage.
func ParseStage(data []byte, filePath string) (*Stage, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode stage document: %w", err)
	}
	return doc.Build(filePath)
}

// Build converts the document into a Stage.
func (d *Document) Build(filePath string) (*Stage, error) {
	s := NewStage(filePath)
	d.Metadata.apply(&s.Metadata)

	for i := range d.Prototypes {
		pd := &d.Prototypes[i]
		proto, err := s.DefinePrototype(pd.Name, pd.Type)
		if err != nil {
			return nil, err
		}
		if err := pd.fill(proto); err != nil {
			return nil, err
		}
	}
	for i := range d.Prims {
		if err := d.Prims[i].build(s, RootPath); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (m MetadataDoc) apply(md *Metadata) {
	if m.MetersPerUnit != nil {
		md.MetersPerUnit = *m.MetersPerUnit
	}
	if m.UpAxis != "" {
		md.UpAxis = m.UpAxis
	}
	if m.TimeCodesPerSecond != nil {
		md.TimeCodesPerSecond = *m.TimeCodesPerSecond
	}
	if m.StartTimeCode != nil {
		md.StartTimeCode = *m.StartTimeCode
	}
	if m.EndTimeCode != nil {
		md.EndTimeCode = *m.EndTimeCode
	}
	md.CustomLayerData = m.CustomLayerData
}

func (pd *PrimDoc) build(s *Stage, parent Path) error {
	if pd.Name == "" || strings.ContainsAny(pd.Name, "/.") {
		return fmt.Errorf("invalid prim name %q under %s", pd.Name, parent)
	}
	path := parent.Child(pd.Name)
	if s.PrimAtPath(path) != nil {
		return fmt.Errorf("prim %s: %w", path, ErrPrimExists)
	}
	prim, err := s.DefinePrim(path, pd.Type)
	if err != nil {
		return err
	}
	return pd.fill(prim)
}

func (pd *PrimDoc) fill(prim *Prim) error {
	prim.Kind = pd.Kind
	prim.Instanceable = pd.Instanceable
	for _, r := range pd.References {
		prim.References = append(prim.References, Path(r))
	}

	for _, name := range sortedKeys(pd.Attributes) {
		ad := pd.Attributes[name]
		if err := ad.apply(prim, name); err != nil {
			return fmt.Errorf("%s.%s: %w", prim.Path(), name, err)
		}
	}
	for _, name := range sortedKeys(pd.Relationships) {
		targets := make([]Path, 0, len(pd.Relationships[name]))
		for _, t := range pd.Relationships[name] {
			targets = append(targets, Path(strings.Trim(t, "<>")))
		}
		prim.SetRelationship(name, targets...)
	}
	for i := range pd.Children {
		if err := pd.Children[i].build(prim.Stage(), prim.Path()); err != nil {
			return err
		}
	}
	return nil
}

func (ad AttributeDoc) apply(prim *Prim, name string) error {
	attr := prim.CreateAttribute(name, ad.Type)
	if ad.Value != nil {
		v, err := DecodeValue(ad.Type, ad.Value)
		if err != nil {
			return err
		}
		attr.Set(v)
	}
	times := make([]float64, 0, len(ad.TimeSamples))
	for t := range ad.TimeSamples {
		times = append(times, t)
	}
	sort.Float64s(times)
	for _, t := range times {
		v, err := DecodeValue(ad.Type, ad.TimeSamples[t])
		if err != nil {
			return fmt.Errorf("time %g: %w", t, err)
		}
		attr.SetSample(t, v)
	}
	for _, c := range ad.Connect {
		attr.Connect(ParseConnection(c))
	}
	return nil
}

// ── Saving ───────────────────────────────────────────────────────────────────

// SaveStage writes the stage as a YAML document.
func SaveStage(s *Stage, path string) error {
	data, err := MarshalStage(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stage: %w", err)
	}
	return nil
}

func MarshalStage(s *Stage) ([]byte, error) {
	doc := NewDocument(s)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode stage: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewDocument captures a stage as a Document.
func NewDocument(s *Stage) *Document {
	md := s.Metadata
	doc := &Document{
		Metadata: MetadataDoc{
			MetersPerUnit:      &md.MetersPerUnit,
			UpAxis:             md.UpAxis,
			TimeCodesPerSecond: &md.TimeCodesPerSecond,
			CustomLayerData:    md.CustomLayerData,
		},
	}
	if md.StartTimeCode != 0 || md.EndTimeCode != 0 {
		doc.Metadata.StartTimeCode = &md.StartTimeCode
		doc.Metadata.EndTimeCode = &md.EndTimeCode
	}
	for _, p := range s.Prototypes() {
		doc.Prototypes = append(doc.Prototypes, primDoc(p))
	}
	for _, p := range s.PseudoRoot().Children() {
		doc.Prims = append(doc.Prims, primDoc(p))
	}
	return doc
}

func primDoc(p *Prim) PrimDoc {
	pd := PrimDoc{
		Name:         p.Name(),
		Type:         p.TypeName,
		Kind:         p.Kind,
		Instanceable: p.Instanceable,
	}
	for _, r := range p.References {
		pd.References = append(pd.References, string(r))
	}
	if names := p.AttributeNames(); len(names) > 0 {
		pd.Attributes = make(map[string]AttributeDoc, len(names))
		for _, name := range names {
			pd.Attributes[name] = attributeDoc(p.Attribute(name))
		}
	}
	if names := p.RelationshipNames(); len(names) > 0 {
		pd.Relationships = make(map[string][]string, len(names))
		for _, name := range names {
			targets := p.Relationship(name)
			out := make([]string, len(targets))
			for i, t := range targets {
				out[i] = string(t)
			}
			pd.Relationships[name] = out
		}
	}
	for _, c := range p.Children() {
		pd.Children = append(pd.Children, primDoc(c))
	}
	return pd
}

func attributeDoc(a *Attribute) AttributeDoc {
	ad := AttributeDoc{Type: a.TypeName}
	if a.HasDefault {
		ad.Value = EncodeValue(a.Default)
	}
	if len(a.Samples) > 0 {
		ad.TimeSamples = make(map[float64]any, len(a.Samples))
		for _, s := range a.Samples {
			ad.TimeSamples[s.Time] = EncodeValue(s.Value)
		}
	}
	for _, c := range a.Connections {
		ad.Connect = append(ad.Connect, c.String())
	}
	return ad
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ── Value codec ──────────────────────────────────────────────────────────────

type valueKind int

const (
	kindBool valueKind = iota
	kindInt
	kindFloat
	kindString
	kindVec2
	kindVec3
	kindQuat
	kindMat4
)

var baseKinds = map[string]valueKind{
	"bool":     kindBool,
	"int":      kindInt,
	"uint":     kindInt,
	"int64":    kindInt,
	"uchar":    kindInt,
	"half":     kindFloat,
	"float":    kindFloat,
	"double":   kindFloat,
	"timecode": kindFloat,
	"string":   kindString,
	"token":    kindString,
	"asset":    kindString,

	"half2": kindVec2, "float2": kindVec2, "double2": kindVec2,
	"texCoord2f": kindVec2, "texCoord2d": kindVec2, "texCoord2h": kindVec2,

	"half3": kindVec3, "float3": kindVec3, "double3": kindVec3,
	"point3f": kindVec3, "point3d": kindVec3, "point3h": kindVec3,
	"normal3f": kindVec3, "normal3d": kindVec3, "normal3h": kindVec3,
	"vector3f": kindVec3, "vector3d": kindVec3, "vector3h": kindVec3,
	"color3f": kindVec3, "color3d": kindVec3, "color3h": kindVec3,

	"quath": kindQuat, "quatf": kindQuat, "quatd": kindQuat,

	"matrix4d": kindMat4,
}

// DecodeValue converts a decoded YAML value into the Go type used for the
// given USD style type name.
func DecodeValue(typeName string, raw any) (any, error) {
	base, isArray := strings.CutSuffix(typeName, "[]")
	kind, ok := baseKinds[base]
	if !ok {
		return nil, fmt.Errorf("unsupported value type %q", typeName)
	}
	if !isArray {
		return decodeScalar(kind, raw)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a sequence, got %T", typeName, raw)
	}
	switch kind {
	case kindInt:
		return decodeSlice[int](kind, items)
	case kindFloat:
		return decodeSlice[float64](kind, items)
	case kindString:
		return decodeSlice[string](kind, items)
	case kindVec2:
		return decodeSlice[math.Vec2](kind, items)
	case kindVec3:
		return decodeSlice[math.Vec3](kind, items)
	case kindQuat:
		return decodeSlice[math.Quaternion](kind, items)
	}
	return nil, fmt.Errorf("unsupported array type %q", typeName)
}

func decodeSlice[T any](kind valueKind, items []any) ([]T, error) {
	out := make([]T, len(items))
	for i, item := range items {
		v, err := decodeScalar(kind, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v.(T)
	}
	return out, nil
}

func decodeScalar(kind valueKind, raw any) (any, error) {
	switch kind {
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return b, nil
	case kindInt:
		switch n := raw.(type) {
		case int:
			return n, nil
		case float64:
			if n == float64(int(n)) {
				return int(n), nil
			}
		}
		return nil, fmt.Errorf("expected integer, got %v", raw)
	case kindFloat:
		return toFloat(raw)
	case kindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil
	case kindVec2:
		f, err := floats(raw, 2)
		if err != nil {
			return nil, err
		}
		return math.Vec2{X: f[0], Y: f[1]}, nil
	case kindVec3:
		f, err := floats(raw, 3)
		if err != nil {
			return nil, err
		}
		return math.Vec3{X: f[0], Y: f[1], Z: f[2]}, nil
	case kindQuat:
		f, err := floats(raw, 4)
		if err != nil {
			return nil, err
		}
		return math.Quaternion{W: f[0], X: f[1], Y: f[2], Z: f[3]}, nil
	case kindMat4:
		rows, ok := raw.([]any)
		if !ok || len(rows) != 4 {
			return nil, fmt.Errorf("expected 4 matrix rows, got %v", raw)
		}
		var m math.Mat4
		for i, row := range rows {
			f, err := floats(row, 4)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			copy(m[i][:], f)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported value kind %d", kind)
}

func toFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %v", raw)
}

func floats(raw any, n int) ([]float64, error) {
	items, ok := raw.([]any)
	if !ok || len(items) != n {
		return nil, fmt.Errorf("expected %d numbers, got %v", n, raw)
	}
	out := make([]float64, n)
	for i, item := range items {
		f, err := toFloat(item)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// EncodeValue converts an attribute value into plain YAML data.
func EncodeValue(v any) any {
	switch x := v.(type) {
	case math.Vec2:
		return []float64{x.X, x.Y}
	case math.Vec3:
		return []float64{x.X, x.Y, x.Z}
	case math.Quaternion:
		return []float64{x.W, x.X, x.Y, x.Z}
	case math.Mat4:
		rows := make([][]float64, 4)
		for i := range x {
			rows[i] = []float64{x[i][0], x[i][1], x[i][2], x[i][3]}
		}
		return rows
	case []math.Vec2:
		return encodeSlice(x)
	case []math.Vec3:
		return encodeSlice(x)
	case []math.Quaternion:
		return encodeSlice(x)
	}
	return v
}

func encodeSlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = EncodeValue(item)
	}
	return out
}
