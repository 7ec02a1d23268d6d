// Package io loads scene files into a scene.Stage.
//
// Stage documents (.yaml, .yml, .json) are read as is. glTF and OBJ files
// are translated into prims that follow the same conventions: Xform nodes
// carrying xformOp:transform, Mesh prims with faceVertexCounts and
// faceVertexIndices, UsdPreviewSurface materials under /Looks.
package io

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bella-bridge/scene"
)

var (
	// ErrMalformedInput is wrapped by every input validation failure.
	ErrMalformedInput    = errors.New("malformed input")
	ErrNotExist          = fmt.Errorf("%w: file does not exist", ErrMalformedInput)
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrMalformedInput)
)

// Format identifies a loader.
type Format int

const (
	FormatUnknown Format = iota
	FormatStage
	FormatGLTF
	FormatOBJ
	FormatUSD
)

func (f Format) String() string {
	switch f {
	case FormatStage:
		return "stage"
	case FormatGLTF:
		return "gltf"
	case FormatOBJ:
		return "obj"
	case FormatUSD:
		return "usd"
	}
	return "unknown"
}

// DetectFormat looks at the file extension only.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatStage
	case ".gltf", ".glb":
		return FormatGLTF
	case ".obj":
		return FormatOBJ
	case ".usd", ".usda", ".usdc", ".usdz":
		return FormatUSD
	}
	return FormatUnknown
}

// Validate checks that path names a regular file in a supported format.
// It does not read the file.
func Validate(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FormatUnknown, fmt.Errorf("%s: %w", path, ErrNotExist)
		}
		return FormatUnknown, fmt.Errorf("%s: %w", path, err)
	}
	if info.IsDir() {
		return FormatUnknown, fmt.Errorf("%s: is a directory: %w", path, ErrUnsupportedFormat)
	}
	switch f := DetectFormat(path); f {
	case FormatUnknown:
		return f, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	case FormatUSD:
		return f, fmt.Errorf("%s: USD layers cannot be read directly, export the stage as a .yaml stage document: %w",
			path, ErrUnsupportedFormat)
	default:
		return f, nil
	}
}

// Options configures Open.
type Options struct {
	Logger *slog.Logger
	// TextureDir receives images embedded in binary glTF files. Embedded
	// images are skipped when it is empty.
	TextureDir string
}

// Open validates path and loads it with the loader for its format.
func Open(path string, opts Options) (*scene.Stage, error) {
	format, err := Validate(path)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		opts.Logger.Debug("opening scene", slog.String("path", path), slog.String("format", format.String()))
	}

	switch format {
	case FormatGLTF:
		return LoadGLTF(path, opts)
	case FormatOBJ:
		return LoadOBJ(path, opts)
	default:
		return scene.LoadStage(path)
	}
}

// primName turns an arbitrary name into a valid prim name. Empty names use
// fallback.
func primName(name, fallback string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '_', r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// siblings hands out prim names that are unique under one parent.
type siblings map[scene.Path]map[string]bool

func (s siblings) child(parent scene.Path, name string) scene.Path {
	used := s[parent]
	if used == nil {
		used = make(map[string]bool)
		s[parent] = used
	}
	candidate := name
	for n := 1; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
	used[candidate] = true
	return parent.Child(candidate)
}
