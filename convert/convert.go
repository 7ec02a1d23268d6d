// Package convert runs the whole conversion of a stage: classification once,
// then one .bsa file per output frame.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bella-bridge/bella"
	"bella-bridge/classify"
	"bella-bridge/config"
	"bella-bridge/core"
	"bella-bridge/projection"
	"bella-bridge/scene"
)

type Options struct {
	config.Options
	Logger *slog.Logger
}

// Report summarizes a run. Counts add up over every frame.
type Report struct {
	// Files lists the written .bsa files in frame order.
	Files []string
	// Stage is the exported stage document, when one was requested.
	Stage string

	Nodes        int
	Meshes       int
	Instances    int
	EmptyMeshes  int
	FailedMeshes int
	Lights       int
	Cameras      int
	Materials    int
	Textures     int
	// Skipped counts prims other than meshes that failed to convert.
	Skipped int

	// Collisions is only filled when Debug is set.
	Collisions []core.Collision
}

// OutputPath returns the file a frame is written to. Single frames sit next
// to the scene; sequences go to a <stem>_bsa directory.
func OutputPath(dir, stem string, frame int, sequence bool) string {
	if !sequence {
		return filepath.Join(dir, stem+".bsa")
	}
	return filepath.Join(dir, stem+"_bsa", fmt.Sprintf("%s%05d.bsa", stem, frame))
}

// Run converts stage. It fails only on option, classification or output
// errors; prims that cannot be converted are skipped and counted. ctx is
// checked between prims.
func Run(ctx context.Context, stage *scene.Stage, opts Options) (Report, error) {
	var report Report
	if err := opts.Validate(); err != nil {
		return report, err
	}
	log := core.Logger{L: core.ComponentLogger(opts.Logger, "convert")}

	var reg *core.Registry
	if opts.Debug {
		reg = core.NewRegistry(core.ComponentLogger(opts.Logger, "identifier"))
	}
	col, err := classify.Classify(stage, classify.Options{
		FilterByPurpose:  opts.FilterByPurpose,
		HiddenContainers: opts.HiddenContainers,
		Logger:           opts.Logger,
		Registry:         reg,
	})
	if err != nil {
		return report, fmt.Errorf("failed to classify stage: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = stage.Dir()
	}
	if opts.ExportStage {
		path := filepath.Join(dir, stage.Stem()+"_stage.yaml")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := scene.SaveStage(stage, path); err != nil {
			return report, err
		}
		report.Stage = path
	}

	frames, sequence := opts.Frames()
	for _, frame := range frames {
		path := OutputPath(dir, stage.Stem(), frame, sequence)
		log.Debug("writing frame", slog.Int("frame", frame), slog.String("path", path))

		f := &frameWriter{
			ctx:    ctx,
			stage:  stage,
			col:    col,
			opts:   opts,
			log:    log,
			time:   scene.TimeCode(frame),
			proj:   projection.NewProjector(stage.Metadata),
			units:  projection.CameraUnits{UnitBug: opts.UnitBugFix},
			report: &report,
		}
		if err := writeFile(path, f.write); err != nil {
			return report, fmt.Errorf("frame %d: %w", frame, err)
		}
		report.Files = append(report.Files, path)
	}

	if reg != nil {
		report.Collisions = reg.Collisions()
	}
	return report, nil
}

// writeFile creates path and its directory and streams fn's output into
// it. A failed file is removed.
func writeFile(path string, fn func(*bella.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := bella.NewWriter(out)
	if err := fn(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
