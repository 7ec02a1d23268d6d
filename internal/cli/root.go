// Package cli implements the bella-bridge command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bella-bridge/config"
	"bella-bridge/core"
	sceneio "bella-bridge/io"
	"bella-bridge/scene"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitMalformed = 2
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Debug      bool
	Trace      bool
	ConfigPath string

	// Logger is set up before any subcommand runs.
	Logger *slog.Logger
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bella-bridge",
		Short: "Convert scene graphs to Bella scenes",
		Long: `bella-bridge reads a scene (stage document, glTF or OBJ) and writes
Bella .bsa scene files, one per converted frame.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			switch {
			case opts.Trace:
				level = core.LevelTrace
			case opts.Debug:
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "debug logging and identifier collision checks")
	cmd.PersistentFlags().BoolVar(&opts.Trace, "trace", false, "per prim logging (implies --debug)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "TOML file with conversion options")

	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code. Errors
// are printed to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return ExitCode(err)
}

// ExitCode maps a command error to an exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, sceneio.ErrMalformedInput):
		return ExitMalformed
	}
	return ExitFailure
}

// loadOptions reads the config file, if any, and lets flags the user set
// override its values.
func (o *RootOptions) loadOptions(cmd *cobra.Command, apply func(*config.Options)) (config.Options, error) {
	opts := config.Default()
	if o.ConfigPath != "" {
		var err error
		if opts, err = config.Load(o.ConfigPath); err != nil {
			return opts, err
		}
	}
	if o.Debug || o.Trace {
		opts.Debug = true
	}
	if apply != nil {
		apply(&opts)
	}
	return opts, opts.Validate()
}

// openScene loads a scene. Images embedded in it are extracted into
// textureDir, or skipped when textureDir is empty.
func (o *RootOptions) openScene(path, textureDir string) (*scene.Stage, error) {
	return sceneio.Open(path, sceneio.Options{Logger: o.Logger, TextureDir: textureDir})
}

// textureDir is <dir>/<stem>_textures, dir defaulting to the scene's.
func textureDir(path, outputDir string) string {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, stem+"_textures")
}
