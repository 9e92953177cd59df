package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/logicossoftware/go-slm"
	"github.com/spf13/cobra"
)

// DocumentInfo is the summary printed by info.
type DocumentInfo struct {
	Format     string            `json:"format"`
	FileName   string            `json:"file_name,omitempty"`
	Creator    string            `json:"creator,omitempty"`
	Version    string            `json:"version"`
	ZUnit      uint32            `json:"z_unit"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Models     []ModelInfo       `json:"models"`
	Layers     int               `json:"layers"`
	MinZ       uint64            `json:"min_z"`
	MaxZ       uint64            `json:"max_z"`
	Thickness  float64           `json:"layer_thickness_mm"`
	Hatches    int               `json:"hatches"`
	Contours   int               `json:"contours"`
	Bounds     *BoundsInfo       `json:"bounds,omitempty"`
}

type ModelInfo struct {
	ID          uint32           `json:"id"`
	Name        string           `json:"name,omitempty"`
	TopLayerID  uint32           `json:"top_layer_id"`
	BuildStyles []BuildStyleInfo `json:"build_styles"`
}

type BuildStyleInfo struct {
	ID                uint32  `json:"id"`
	Name              string  `json:"name,omitempty"`
	LaserPower        float64 `json:"laser_power"`
	LaserSpeed        float64 `json:"laser_speed"`
	LaserFocus        float64 `json:"laser_focus"`
	PointDistance     uint32  `json:"point_distance"`
	PointExposureTime uint32  `json:"point_exposure_time"`
	LaserMode         string  `json:"laser_mode"`
}

// BoundsInfo is the xy extent in mm and the z extent in stored units.
type BoundsInfo struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MinZ float64 `json:"min_z"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	MaxZ float64 `json:"max_z"`
}

func newInfoCmd(a *app) *cobra.Command {
	var (
		format string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "info <input>",
		Short: "Summarize a build file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, args[0])
			if err != nil {
				return err
			}
			r, err := a.open(f, args[0])
			if err != nil {
				return err
			}
			info, err := describe(f.Name, r)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			return printInfo(a.stdout, info)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "input format (default: from the extension)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func describe(format string, r slm.Reader) (*DocumentInfo, error) {
	h := r.Header()
	layers := r.Layers()
	info := &DocumentInfo{
		Format:     format,
		FileName:   h.FileName,
		Creator:    h.Creator,
		Version:    fmt.Sprintf("%d.%d", h.Version.Major, h.Version.Minor),
		ZUnit:      h.EffectiveZUnit(),
		Attributes: h.Attributes,
		Models:     []ModelInfo{},
		Layers:     len(layers),
		Thickness:  r.LayerThickness(),
	}
	for _, m := range r.Models() {
		mi := ModelInfo{ID: m.ID, Name: m.Name, TopLayerID: m.TopLayerID, BuildStyles: []BuildStyleInfo{}}
		for _, bs := range m.BuildStyles() {
			mi.BuildStyles = append(mi.BuildStyles, BuildStyleInfo{
				ID:                bs.ID,
				Name:              bs.Name,
				LaserPower:        bs.LaserPower,
				LaserSpeed:        bs.LaserSpeed,
				LaserFocus:        bs.LaserFocus,
				PointDistance:     bs.PointDistance,
				PointExposureTime: bs.PointExposureTime,
				LaserMode:         bs.LaserMode.String(),
			})
		}
		info.Models = append(info.Models, mi)
	}
	if len(layers) == 0 {
		return info, nil
	}

	var err error
	if info.MinZ, info.MaxZ, err = slm.LayerMinMax(layers); err != nil {
		return nil, err
	}
	if info.Hatches, err = slm.TotalNumHatches(layers); err != nil {
		return nil, err
	}
	if info.Contours, err = slm.TotalNumContours(layers); err != nil {
		return nil, err
	}
	box, err := slm.BoundingBox(layers)
	switch {
	case errors.Is(err, slm.ErrNoGeometry):
	case err != nil:
		return nil, err
	default:
		info.Bounds = &BoundsInfo{
			MinX: box.Min.X, MinY: box.Min.Y, MinZ: box.Min.Z,
			MaxX: box.Max.X, MaxY: box.Max.Y, MaxZ: box.Max.Z,
		}
	}
	return info, nil
}

func printInfo(w io.Writer, info *DocumentInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "format:\t%s\n", info.Format)
	fmt.Fprintf(tw, "file name:\t%s\n", info.FileName)
	fmt.Fprintf(tw, "creator:\t%s\n", info.Creator)
	fmt.Fprintf(tw, "version:\t%s\n", info.Version)
	fmt.Fprintf(tw, "z unit:\t%d per mm\n", info.ZUnit)
	fmt.Fprintf(tw, "layers:\t%d\n", info.Layers)
	fmt.Fprintf(tw, "z range:\t%d .. %d\n", info.MinZ, info.MaxZ)
	fmt.Fprintf(tw, "layer thickness:\t%g mm\n", info.Thickness)
	fmt.Fprintf(tw, "hatches:\t%d\n", info.Hatches)
	fmt.Fprintf(tw, "contours:\t%d\n", info.Contours)
	if b := info.Bounds; b != nil {
		fmt.Fprintf(tw, "bounds:\t(%g, %g) .. (%g, %g) mm\n", b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	fmt.Fprintf(tw, "models:\t%d\n", len(info.Models))
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, m := range info.Models {
		fmt.Fprintf(w, "  model %d %q top layer %d\n", m.ID, m.Name, m.TopLayerID)
		for _, bs := range m.BuildStyles {
			fmt.Fprintf(w, "    style %d %q power %g W speed %g mm/s focus %g mm %s\n",
				bs.ID, bs.Name, bs.LaserPower, bs.LaserSpeed, bs.LaserFocus, bs.LaserMode)
		}
	}
	return nil
}
