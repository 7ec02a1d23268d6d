package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bella-bridge/config"
	"bella-bridge/convert"
)

// convertFlags mirror config.Options. Only flags the user sets override
// the config file.
type convertFlags struct {
	start, end    int
	skipLights    bool
	skipMaterials bool
	skipRoughness bool
	subdivision   int
	colorDome     bool
	purpose       bool
	outputDir     string
	exportStage   bool
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <scene>",
		Short: "Write .bsa files for a scene",
		Long: `Convert a scene into Bella .bsa files.

A single frame is written next to the scene as <stem>.bsa. With --start the
frames start..end are written to <stem>_bsa/<stem>NNNNN.bsa.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(rootOpts, flags, cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.start, "start", 0, "first frame of a sequence (0 converts a single frame)")
	f.IntVar(&flags.end, "end", 0, "last frame of a sequence")
	f.BoolVar(&flags.skipLights, "skip-lights", false, "do not write lights")
	f.BoolVar(&flags.skipMaterials, "skip-materials", false, "do not write materials or textures")
	f.BoolVar(&flags.skipRoughness, "skip-roughness", false, "leave specular roughness unset")
	f.IntVar(&flags.subdivision, "subdivision", 0, "subdivision level for every mesh")
	f.BoolVar(&flags.colorDome, "colordome", false, "light the scene with a white color dome")
	f.BoolVar(&flags.purpose, "purpose", false, "drop proxy and guide geometry")
	f.StringVar(&flags.outputDir, "output-dir", "", "directory for output files (default: the scene's directory)")
	f.BoolVar(&flags.exportStage, "export-stage", false, "also write the loaded stage as <stem>_stage.yaml")

	return cmd
}

func (c *convertFlags) apply(cmd *cobra.Command, opts *config.Options) {
	changed := cmd.Flags().Changed
	if changed("start") {
		opts.Start = c.start
	}
	if changed("end") {
		opts.End = c.end
	}
	if changed("skip-lights") {
		opts.SkipLights = c.skipLights
	}
	if changed("skip-materials") {
		opts.SkipMaterials = c.skipMaterials
	}
	if changed("skip-roughness") {
		opts.SkipRoughness = c.skipRoughness
	}
	if changed("subdivision") {
		opts.Subdivision = c.subdivision
	}
	if changed("colordome") {
		opts.ColorDome = c.colorDome
	}
	if changed("purpose") {
		opts.FilterByPurpose = c.purpose
	}
	if changed("output-dir") {
		opts.OutputDir = c.outputDir
	}
	if changed("export-stage") {
		opts.ExportStage = c.exportStage
	}
}

func runConvert(rootOpts *RootOptions, flags *convertFlags, cmd *cobra.Command, path string) error {
	opts, err := rootOpts.loadOptions(cmd, func(o *config.Options) { flags.apply(cmd, o) })
	if err != nil {
		return err
	}

	stage, err := rootOpts.openScene(path, textureDir(path, opts.OutputDir))
	if err != nil {
		return err
	}

	report, err := convert.Run(cmd.Context(), stage, convert.Options{Options: opts, Logger: rootOpts.Logger})
	if err != nil {
		return err
	}
	for _, c := range report.Collisions {
		rootOpts.Logger.Warn("identifier collision", slog.String("error", c.Error()))
	}

	out := cmd.OutOrStdout()
	for _, file := range report.Files {
		fmt.Fprintln(out, file)
	}
	if report.Stage != "" {
		fmt.Fprintln(out, report.Stage)
	}
	rootOpts.Logger.Info("converted",
		slog.Int("files", len(report.Files)),
		slog.Int("nodes", report.Nodes),
		slog.Int("meshes", report.Meshes),
		slog.Int("instances", report.Instances),
		slog.Int("emptyMeshes", report.EmptyMeshes),
		slog.Int("failedMeshes", report.FailedMeshes),
		slog.Int("lights", report.Lights),
		slog.Int("cameras", report.Cameras),
		slog.Int("materials", report.Materials),
		slog.Int("textures", report.Textures),
		slog.Int("skipped", report.Skipped),
	)
	return nil
}
