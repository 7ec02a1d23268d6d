// Package config holds conversion options and reads them from TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"bella-bridge/projection"
)

// Options controls one conversion run. The zero value is not useful; start
// from Default.
type Options struct {
	// Start is the first frame. Zero converts a single frame.
	Start int `toml:"start"`
	// End is the last frame of a sequence. Values below Start mean Start.
	End int `toml:"end"`

	SkipLights    bool `toml:"skipLights"`
	SkipMaterials bool `toml:"skipMaterials"`
	SkipRoughness bool `toml:"skipRoughness"`

	// Subdivision forces a subdivision level on every mesh.
	Subdivision int `toml:"subdivision"`
	// ColorDome adds a white dome and uses it as the environment.
	ColorDome bool `toml:"colorDome"`

	// FilterByPurpose drops proxy and guide geometry.
	FilterByPurpose bool `toml:"filterByPurpose"`
	// HiddenContainers names prims whose subtrees are never converted.
	HiddenContainers []string `toml:"hiddenContainers"`

	UnitBugFix projection.UnitBugPolicy `toml:"unitBugFix"`

	Debug bool `toml:"debug"`
	// OutputDir defaults to the directory of the input scene.
	OutputDir string `toml:"outputDir"`
	// ExportStage also writes the loaded stage as a stage document.
	ExportStage bool `toml:"exportStage"`
}

func Default() Options {
	return Options{
		UnitBugFix: projection.DefaultUnitBugPolicy(),
	}
}

// Validate reports option values no run can use.
func (o Options) Validate() error {
	var errs []error
	if o.Start < 0 {
		errs = append(errs, fmt.Errorf("start frame %d is negative", o.Start))
	}
	if o.Subdivision < 0 {
		errs = append(errs, fmt.Errorf("subdivision level %d is negative", o.Subdivision))
	}
	if o.UnitBugFix.Enabled && o.UnitBugFix.Divisor <= 0 {
		errs = append(errs, fmt.Errorf("unit bug divisor %v must be positive", o.UnitBugFix.Divisor))
	}
	return errors.Join(errs...)
}

// Frames returns the time codes to convert and whether they form a
// sequence. A zero start converts frame 1 alone.
func (o Options) Frames() (frames []int, sequence bool) {
	if o.Start == 0 {
		return []int{1}, false
	}
	end := max(o.Start, o.End)
	for f := o.Start; f <= end; f++ {
		frames = append(frames, f)
	}
	return frames, true
}

// Load reads a TOML file over the defaults. Keys the file leaves out keep
// their default values; unknown keys are an error.
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Decode(data, &opts); err != nil {
		return opts, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// Decode reads TOML into opts, leaving fields the document omits untouched.
func Decode(data []byte, opts *Options) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(opts); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return opts.Validate()
}

// Encode writes opts as TOML.
func Encode(opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
