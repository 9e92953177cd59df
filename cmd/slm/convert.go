package main

import (
	"fmt"
	"strings"

	"github.com/logicossoftware/go-slm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newProcessCmd(a *app) *cobra.Command {
	var fill bool
	cmd := &cobra.Command{
		Use:   "process <mode> <input> [output]",
		Short: "Parse a file and write it back in the same format",
		Long: `Parse input with the reader of mode and write the document with the writer
of the same mode. Output defaults to "output" plus the first extension of the
mode, for example output.mtt.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := slm.LookupFormat(args[0])
			if err != nil {
				return fmt.Errorf("unknown mode %q, valid modes: %s", args[0], strings.Join(formatNames(), ", "))
			}
			out := "output" + f.Extensions[0]
			if len(args) == 3 {
				out = args[2]
			}
			return a.transcode(f, args[1], f, out, fill)
		},
	}
	cmd.Flags().BoolVar(&fill, "fill-styles", true, "add empty build styles for references the source cannot carry")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var (
		from, to string
		fill     bool
	)
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a file between formats",
		Long: `Convert input to output. Formats are taken from the file extensions unless
--from or --to name them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := resolveFormat(from, args[0])
			if err != nil {
				return err
			}
			dst, err := resolveFormat(to, args[1])
			if err != nil {
				return err
			}
			return a.transcode(src, args[0], dst, args[1], fill)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format")
	cmd.Flags().StringVar(&to, "to", "", "output format")
	cmd.Flags().BoolVar(&fill, "fill-styles", true, "add empty build styles for references the source cannot carry")
	return cmd
}

func (a *app) transcode(src slm.Format, in string, dst slm.Format, out string, fill bool) error {
	r, err := a.open(src, in)
	if err != nil {
		return err
	}
	header, models, layers := r.Header(), r.Models(), r.Layers()
	if fill {
		var added int
		models, added, err = fillStyles(models, layers)
		if err != nil {
			return err
		}
		if added > 0 {
			a.logger.WithFields(logrus.Fields{"path": in, "styles_added": added}).Warn("filled missing build styles")
		}
	}
	if err := a.save(dst, out, header, models, layers); err != nil {
		return err
	}
	a.logger.WithFields(logrus.Fields{"from": src.Name, "to": dst.Name, "output": out}).Info("converted")
	return nil
}

// fillStyles gives every geometry reference a target: missing models are
// appended and missing build styles are added with zero parameters. Formats
// without build styles, like eos, need this before any writer accepts their
// documents. Layers are hydrated on the way.
func fillStyles(models []*slm.Model, layers []*slm.Layer) ([]*slm.Model, int, error) {
	byID := make(map[uint32]*slm.Model, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	added := 0
	for _, l := range layers {
		items, err := l.Geometry(slm.ScanDefault)
		if err != nil {
			return nil, 0, err
		}
		for _, g := range items {
			m, ok := byID[g.MID]
			if !ok {
				m = slm.NewModel(g.MID, l.ID)
				byID[g.MID] = m
				models = append(models, m)
			}
			if _, err := m.BuildStyleByID(g.BID); err != nil {
				m.AppendBuildStyle(&slm.BuildStyle{ID: g.BID})
				added++
			}
		}
	}
	return models, added, nil
}

func formatNames() []string {
	var names []string
	for _, f := range slm.Formats() {
		names = append(names, f.Name)
	}
	return names
}
