package slm

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Validate checks the referential integrity of a document and hydrates any
// deferred layer on the way. It reports every violation it finds; the
// returned error matches ErrValidation (or ErrLimitExceeded for oversized
// documents) with errors.Is, and each violation is a *ValidationError
// reachable with errors.As.
//
// A hydration failure is returned on its own, without the violations
// collected so far.
func Validate(header Header, models []*Model, layers []*Layer, limits Limits) error {
	limits = limits.WithDefaults()
	var result *multierror.Error
	add := func(err error) { result = multierror.Append(result, err) }

	if len(layers) == 0 {
		return ErrEmptyLayerSet
	}
	if len(layers) > limits.MaxLayers {
		add(fmt.Errorf("%w: %d layers", ErrLimitExceeded, len(layers)))
	}
	if len(models) > limits.MaxModels {
		add(fmt.Errorf("%w: %d models", ErrLimitExceeded, len(models)))
	}

	byID := make(map[uint32]*Model, len(models))
	for i, m := range models {
		if m == nil {
			add(&ValidationError{Index: -1, Field: "models", Reason: fmt.Sprintf("model %d is nil", i)})
			continue
		}
		if _, ok := byID[m.ID]; ok {
			add(&ValidationError{Index: -1, ModelID: m.ID, Field: "mid", Reason: fmt.Sprintf("duplicate model id %d", m.ID)})
			continue
		}
		byID[m.ID] = m
		if m.Len() > limits.MaxBuildStyles {
			add(fmt.Errorf("%w: model %d has %d build styles", ErrLimitExceeded, m.ID, m.Len()))
		}
		seen := make(map[uint32]struct{}, m.Len())
		for _, bs := range m.buildStyles {
			if bs == nil {
				add(&ValidationError{Index: -1, ModelID: m.ID, Field: "buildStyles", Reason: "nil build style"})
				continue
			}
			if _, ok := seen[bs.ID]; ok {
				add(&ValidationError{Index: -1, ModelID: m.ID, BuildStyleID: bs.ID, Field: "bid",
					Reason: fmt.Sprintf("duplicate build style id %d in model %d", bs.ID, m.ID)})
			}
			seen[bs.ID] = struct{}{}
			if !bs.LaserMode.Valid() {
				add(&ValidationError{Index: -1, ModelID: m.ID, BuildStyleID: bs.ID, Field: "laserMode",
					Reason: fmt.Sprintf("build style %d has laser mode %d", bs.ID, bs.LaserMode)})
			}
		}
	}

	for _, l := range layers {
		if l == nil {
			add(&ValidationError{Index: -1, Field: "layers", Reason: "nil layer"})
			continue
		}
		if err := l.Load(); err != nil {
			return err
		}
		if len(l.geometry) > limits.MaxGeometryPerLayer {
			add(fmt.Errorf("%w: layer %d has %d geometry items", ErrLimitExceeded, l.ID, len(l.geometry)))
		}
		for i, g := range l.geometry {
			for _, err := range validateGeometry(l.ID, i, g, byID, limits) {
				add(err)
			}
		}
	}

	if result != nil {
		result.ErrorFormat = formatViolations
	}
	return result.ErrorOrNil()
}

func validateGeometry(layerID uint32, index int, g *LayerGeometry, models map[uint32]*Model, limits Limits) []error {
	at := func(field, reason string) *ValidationError {
		ve := &ValidationError{LayerID: layerID, HasLayer: true, Index: index, Field: field, Reason: reason}
		if g != nil {
			ve.ModelID, ve.BuildStyleID = g.MID, g.BID
		}
		return ve
	}
	if g == nil {
		return []error{at("geometry", "nil geometry item")}
	}
	var errs []error
	if !g.Type().Valid() {
		errs = append(errs, at("type", fmt.Sprintf("invalid geometry type %d", g.Type())))
	}
	m, ok := models[g.MID]
	if !ok {
		errs = append(errs, at("mid", fmt.Sprintf("model %d not found", g.MID)))
	} else if _, err := m.BuildStyleByID(g.BID); err != nil {
		errs = append(errs, at("bid", fmt.Sprintf("build style %d not found in model %d", g.BID, g.MID)))
	}
	if g.Type() == GeometryHatch && len(g.Coords)%2 != 0 {
		errs = append(errs, at("coords", fmt.Sprintf("hatch has odd row count %d", len(g.Coords))))
	}
	if row := g.firstNonFinite(); row >= 0 {
		errs = append(errs, at("coords", fmt.Sprintf("non-finite coordinate at row %d", row)))
	}
	if len(g.Coords) > limits.MaxCoordsPerGeometry {
		errs = append(errs, fmt.Errorf("%w: layer %d geometry %d has %d coordinates", ErrLimitExceeded, layerID, index, len(g.Coords)))
	}
	return errs
}

func formatViolations(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d violations: %s", len(errs), strings.Join(parts, "; "))
}
