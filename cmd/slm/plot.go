package main

import (
	"fmt"
	"image/color"

	"github.com/logicossoftware/go-slm"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	contourColor = color.RGBA{A: 255}
	hatchColor   = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	pointColor   = color.RGBA{R: 200, G: 40, B: 40, A: 255}
)

func newPlotCmd(a *app) *cobra.Command {
	var (
		format string
		id     uint32
		out    string
		size   float64
	)
	cmd := &cobra.Command{
		Use:   "plot <input>",
		Short: "Render one layer to an image",
		Long: `Render the geometry of one layer. Contours are drawn as closed lines, hatches
as separate segments and exposure points as dots. The image type follows the
extension of --out (png, svg, pdf, ...).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, args[0])
			if err != nil {
				return err
			}
			r, err := a.open(f, args[0])
			if err != nil {
				return err
			}
			var layer *slm.Layer
			for _, l := range r.Layers() {
				if l.ID == id {
					layer = l
					break
				}
			}
			if layer == nil {
				return &slm.NotFoundError{Kind: "layer", ID: id}
			}
			if out == "" {
				out = fmt.Sprintf("layer-%d.png", id)
			}
			p, err := plotLayer(layer, r.Header().EffectiveZUnit())
			if err != nil {
				return err
			}
			if err := p.Save(vg.Length(size)*vg.Inch, vg.Length(size)*vg.Inch, out); err != nil {
				return slm.IOError("save", out, err)
			}
			a.logger.WithField("layer_id", id).WithField("output", out).Info("plotted layer")
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "input format (default: from the extension)")
	cmd.Flags().Uint32Var(&id, "layer", 0, "layer id")
	cmd.Flags().StringVar(&out, "out", "", "output image (default layer-<id>.png)")
	cmd.Flags().Float64Var(&size, "size", 8, "image width and height in inches")
	return cmd
}

func plotLayer(l *slm.Layer, zUnit uint32) (*plot.Plot, error) {
	items, err := l.Geometry(slm.ScanDefault)
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("layer %d at %g mm", l.ID, float64(l.Z)/float64(zUnit))
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"

	var points plotter.XYs
	for _, g := range items {
		if g.Type() == slm.GeometryPoints {
			for _, c := range g.Coords {
				points = append(points, plotter.XY{X: float64(c[0]), Y: float64(c[1])})
			}
			continue
		}
		lineColor := hatchColor
		if g.Type() == slm.GeometryContour {
			lineColor = contourColor
		}
		for _, s := range g.Segments() {
			line, err := plotter.NewLine(plotter.XYs{
				{X: float64(s[0][0]), Y: float64(s[0][1])},
				{X: float64(s[1][0]), Y: float64(s[1][1])},
			})
			if err != nil {
				return nil, err
			}
			line.Color = lineColor
			line.Width = vg.Points(0.5)
			p.Add(line)
		}
	}
	if len(points) > 0 {
		scatter, err := plotter.NewScatter(points)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = pointColor
		scatter.GlyphStyle.Radius = vg.Points(1)
		p.Add(scatter)
	}
	return p, nil
}
