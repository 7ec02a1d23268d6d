package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bella-bridge/classify"
	"bella-bridge/config"
	"bella-bridge/core"
	"bella-bridge/materials"
	"bella-bridge/projection"
	"bella-bridge/scene"
	"bella-bridge/topology"
)

// InspectReport is the document printed by inspect.
type InspectReport struct {
	File          string  `yaml:"file"`
	MetersPerUnit float64 `yaml:"metersPerUnit"`
	UpAxis        string  `yaml:"upAxis"`
	Time          float64 `yaml:"time"`
	// PrimTypes counts every prim of the main hierarchy by type name,
	// including types no converter handles.
	PrimTypes     map[string]int    `yaml:"primTypes"`
	Counts        map[string]int    `yaml:"counts"`
	Roots         []core.Identifier `yaml:"roots"`
	Nodes         []InspectNode     `yaml:"nodes"`
	Materials     []InspectMaterial `yaml:"materials,omitempty"`
}

// InspectNode describes one classified prim. World is the prim's world
// matrix in output convention, row-major.
type InspectNode struct {
	ID       core.Identifier `yaml:"id"`
	Path     string          `yaml:"path"`
	Kind     string          `yaml:"kind"`
	Material core.Identifier `yaml:"material,omitempty"`
	Instance string          `yaml:"instance,omitempty"`
	World    []float64       `yaml:"world,flow,omitempty"`
	// Hidden nodes sit in an invisible subtree and are not converted.
	Hidden bool `yaml:"hidden,omitempty"`
	// Bounds is min then max of a mesh's points in its own space.
	Bounds []float64 `yaml:"bounds,flow,omitempty"`
	Error  string    `yaml:"error,omitempty"`
}

type InspectMaterial struct {
	ID       core.Identifier   `yaml:"id"`
	Path     string            `yaml:"path"`
	Channels map[string]string `yaml:"channels,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var frame int
	var purpose bool

	cmd := &cobra.Command{
		Use:   "inspect <scene>",
		Short: "Print how a scene is classified",
		Long: `Print the classified prims of a scene as YAML: node identifiers, kinds,
bound materials and world matrices in output convention.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := rootOpts.loadOptions(cmd, func(o *config.Options) {
				if cmd.Flags().Changed("purpose") {
					o.FilterByPurpose = purpose
				}
			})
			if err != nil {
				return err
			}
			stage, err := rootOpts.openScene(args[0], "")
			if err != nil {
				return err
			}
			report, err := Inspect(stage, opts, scene.TimeCode(frame), rootOpts.Logger)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().IntVar(&frame, "frame", 1, "time code world matrices are evaluated at")
	cmd.Flags().BoolVar(&purpose, "purpose", false, "drop proxy and guide geometry")

	return cmd
}

// Inspect classifies stage and describes the result at time t.
func Inspect(stage *scene.Stage, opts config.Options, t scene.TimeCode, logger *slog.Logger) (*InspectReport, error) {
	col, err := classify.Classify(stage, classify.Options{
		FilterByPurpose:  opts.FilterByPurpose,
		HiddenContainers: opts.HiddenContainers,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	proj := projection.NewProjector(stage.Metadata)

	r := &InspectReport{
		File:          stage.FilePath,
		MetersPerUnit: stage.Metadata.MetersPerUnit,
		UpAxis:        stage.Metadata.UpAxis,
		Time:          float64(t),
		PrimTypes:     make(map[string]int),
		Counts:        col.Counts(),
		Roots:         col.Roots,
	}
	stage.Traverse(func(p *scene.Prim) {
		typ := p.TypeName
		if typ == "" {
			typ = "untyped"
		}
		r.PrimTypes[typ]++
	})
	add := func(n classify.Node, kind string, extra func(*InspectNode)) {
		node := InspectNode{ID: n.ID, Path: n.Prim.Path().String(), Kind: kind, Hidden: n.Hidden()}
		if l2w, err := n.Prim.LocalToWorld(t); err != nil {
			node.Error = err.Error()
		} else {
			rows := proj.Xform(l2w).Rows()
			node.World = rows[:]
		}
		if extra != nil {
			extra(&node)
		}
		r.Nodes = append(r.Nodes, node)
	}

	for _, x := range col.Xforms.Values() {
		add(x.Node, "xform", func(n *InspectNode) {
			if x.Instance != nil {
				n.Instance = x.Instance.Path().String()
			}
		})
	}
	for _, s := range col.Scopes.Values() {
		add(s.Node, "scope", nil)
	}
	for _, m := range col.Meshes.Values() {
		add(m.Node, "mesh", func(n *InspectNode) {
			if m.Material != nil {
				n.Material = col.Materials.ValueByKey(m.Material).ID
			}
			if m.InstanceOf != nil {
				n.Instance = m.InstanceOf.Path().String()
				return
			}
			geom, err := topology.Extract(m.Prim, t, m.TexcoordPrimvar)
			if err != nil {
				n.Error = err.Error()
				return
			}
			if b, ok := geom.Bounds(); ok {
				n.Bounds = []float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z}
			}
		})
	}
	for _, p := range col.Primitives.Values() {
		add(p.Node, string(p.Shape), nil)
	}
	for _, in := range col.Instancers.Values() {
		add(in.Node, "instancer", nil)
	}
	for _, l := range col.Lights.Values() {
		add(l.Node, l.Kind.String(), nil)
	}
	for _, c := range col.Cameras.Values() {
		add(c.Node, "camera", nil)
	}

	for _, m := range col.Materials.Values() {
		im := InspectMaterial{ID: m.ID, Path: m.Prim.Path().String()}
		for _, ch := range materials.Channels() {
			v := m.Descriptor.Get(ch)
			if v.Kind == materials.Absent {
				continue
			}
			if im.Channels == nil {
				im.Channels = make(map[string]string)
			}
			im.Channels[ch.String()] = describe(v)
		}
		r.Materials = append(r.Materials, im)
	}
	return r, nil
}

func describe(v materials.Value) string {
	switch v.Kind {
	case materials.Scalar:
		return fmt.Sprintf("%g", v.Scalar)
	case materials.Color:
		return fmt.Sprintf("color(%g %g %g)", v.Color.R, v.Color.G, v.Color.B)
	case materials.Texture:
		return fmt.Sprintf("texture %s (%s)", v.Texture.ID, v.Texture.File)
	}
	return v.Kind.String()
}
