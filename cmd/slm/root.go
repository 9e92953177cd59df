package main

import (
	"fmt"
	"io"

	"github.com/logicossoftware/go-slm"
	"github.com/logicossoftware/go-slm/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	// Formats register themselves with slm on import.
	_ "github.com/logicossoftware/go-slm/eos"
	_ "github.com/logicossoftware/go-slm/mtt"
	_ "github.com/logicossoftware/go-slm/realizer"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	logger *logrus.Logger
	cfg    config.Config

	configPath  string
	logLevel    string
	sortLayers  bool
	compression string
	lazy        bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, logger: logrus.New(), cfg: config.Default()}
	a.logger.SetOutput(stderr)
	a.logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	root := &cobra.Command{
		Use:   "slm",
		Short: "Read, write and convert SLM layer geometry files",
		Long: `Read, write and convert the layer geometry of selective laser melting builds.

Examples:
  slm process mtt part.mtt                 # parse and rewrite to output.mtt
  slm convert part.mtt part.cli            # formats taken from the extensions
  slm info --json part.rea                 # summary as JSON
  slm plot part.mtt --layer 12 --out l12.png`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "HCL settings file")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&a.sortLayers, "sort-layers", false, "write layers by ascending z")
	flags.StringVar(&a.compression, "compression", "", "block compression for formats that support one")
	flags.BoolVar(&a.lazy, "lazy", true, "leave layer geometry on disk until it is needed")

	root.AddCommand(
		newProcessCmd(a),
		newConvertCmd(a),
		newInfoCmd(a),
		newValidateCmd(a),
		newPlotCmd(a),
		newFormatsCmd(a),
	)
	return root
}

// configure loads the settings file, if any, and lets explicitly set flags
// override it.
func (a *app) configure(cmd *cobra.Command) error {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		a.cfg.LogLevel = a.logLevel
	}
	if flags.Changed("sort-layers") {
		a.cfg.SortLayers = a.sortLayers
	}
	if flags.Changed("compression") {
		a.cfg.Compression = a.compression
	}
	if flags.Changed("lazy") {
		a.cfg.Lazy = a.lazy
	}
	lvl, err := logrus.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger.SetLevel(lvl)
	a.logger.WithField("config", a.configPath).Debug("configured")
	return nil
}

func (a *app) options() []slm.Option {
	return a.cfg.Options(a.logger)
}

// resolveFormat returns the format called name, or the one registered for
// the extension of path when name is empty.
func resolveFormat(name, path string) (slm.Format, error) {
	if name != "" {
		return slm.LookupFormat(name)
	}
	return slm.FormatForPath(path)
}

// open parses path with the given format.
func (a *app) open(f slm.Format, path string) (slm.Reader, error) {
	r, err := f.NewReader(a.options()...)
	if err != nil {
		return nil, err
	}
	r.SetFilePath(path)
	if err := r.Parse(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}

// save writes a parsed document to path with the given format.
func (a *app) save(f slm.Format, path string, header slm.Header, models []*slm.Model, layers []*slm.Layer) error {
	w, err := f.NewWriter(a.options()...)
	if err != nil {
		return err
	}
	w.SetFilePath(path)
	if err := w.Write(header, models, layers); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
