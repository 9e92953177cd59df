// Package config loads the slm command line tool settings from an HCL file.
package config

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
)

// Config is the decoded settings file. Absent attributes keep the values
// from Default.
//
//	log_level   = "debug"
//	sort_layers = true
//	compression = "zstd"
//	lazy        = false
//	z_unit      = 1000
//
//	limits {
//	  max_layers = 100000
//	}
type Config struct {
	LogLevel    string  `hcl:"log_level,optional"`
	SortLayers  bool    `hcl:"sort_layers,optional"`
	Compression string  `hcl:"compression,optional"`
	Lazy        bool    `hcl:"lazy,optional"`
	ZUnit       int64   `hcl:"z_unit,optional"`
	Limits      *Limits `hcl:"limits,block"`
}

// Limits mirrors slm.Limits. Zero means the library default.
type Limits struct {
	MaxModels            int   `hcl:"max_models,optional"`
	MaxBuildStyles       int   `hcl:"max_build_styles,optional"`
	MaxLayers            int   `hcl:"max_layers,optional"`
	MaxGeometryPerLayer  int   `hcl:"max_geometry_per_layer,optional"`
	MaxCoordsPerGeometry int   `hcl:"max_coords_per_geometry,optional"`
	MaxSectionLen        int64 `hcl:"max_section_len,optional"`
	MaxUncompressed      int64 `hcl:"max_uncompressed,optional"`
}

func Default() Config {
	return Config{LogLevel: "info", Lazy: true}
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	return decode(path, file)
}

// Parse is Load for in-memory source; filename only appears in messages.
func Parse(src []byte, filename string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", filename, diags)
	}
	return decode(filename, file)
}

func decode(name string, file *hcl.File) (Config, error) {
	cfg := Default()
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode config file %s: %w", name, diags)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", name, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ZUnit < 0 || c.ZUnit > math.MaxUint32 {
		return fmt.Errorf("z_unit %d out of range", c.ZUnit)
	}
	if l := c.Limits; l != nil {
		for name, v := range map[string]int64{
			"max_models":              int64(l.MaxModels),
			"max_build_styles":        int64(l.MaxBuildStyles),
			"max_layers":              int64(l.MaxLayers),
			"max_geometry_per_layer":  int64(l.MaxGeometryPerLayer),
			"max_coords_per_geometry": int64(l.MaxCoordsPerGeometry),
			"max_section_len":         l.MaxSectionLen,
			"max_uncompressed":        l.MaxUncompressed,
		} {
			if v < 0 {
				return fmt.Errorf("limits.%s must not be negative", name)
			}
		}
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Options converts the settings to reader and writer options. The logger is
// passed through unchanged.
func (c Config) Options(logger logrus.FieldLogger) []slm.Option {
	opts := []slm.Option{
		slm.WithLogger(logger),
		slm.WithSortLayers(c.SortLayers),
		slm.WithLazyLoading(c.Lazy),
		slm.WithZUnit(uint32(c.ZUnit)),
	}
	if c.Compression != "" {
		opts = append(opts, slm.WithCompression(c.Compression))
	}
	if l := c.Limits; l != nil {
		opts = append(opts, slm.WithLimits(slm.Limits{
			MaxModels:            l.MaxModels,
			MaxBuildStyles:       l.MaxBuildStyles,
			MaxLayers:            l.MaxLayers,
			MaxGeometryPerLayer:  l.MaxGeometryPerLayer,
			MaxCoordsPerGeometry: l.MaxCoordsPerGeometry,
			MaxSectionLen:        uint64(l.MaxSectionLen),
			MaxUncompressed:      uint64(l.MaxUncompressed),
		}))
	}
	return opts
}
