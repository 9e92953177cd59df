package slm

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Config collects the settings shared by every format. Formats ignore the
// fields that do not apply to them.
type Config struct {
	Logger      logrus.FieldLogger
	Limits      Limits
	LazyLoading bool
	Compression string
	ZUnit       uint32
	SortLayers  bool
}

type Option func(*Config)

// NewConfig applies opts over the defaults: a discarding logger, default
// limits, lazy loading on and layer sorting off.
func NewConfig(opts ...Option) Config {
	cfg := Config{LazyLoading: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}
	cfg.Limits = cfg.Limits.WithDefaults()
	return cfg
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = l }
}

func WithLimits(l Limits) Option {
	return func(c *Config) { c.Limits = l }
}

// WithLazyLoading controls whether readers that support it leave layer
// geometry on disk until first access.
func WithLazyLoading(v bool) Option {
	return func(c *Config) { c.LazyLoading = v }
}

// WithCompression names the block compression used by writers that support
// one. The accepted names are format specific.
func WithCompression(name string) Option {
	return func(c *Config) { c.Compression = name }
}

// WithZUnit sets the z unit assumed by readers of formats that do not store
// one.
func WithZUnit(u uint32) Option {
	return func(c *Config) { c.ZUnit = u }
}

// WithSortLayers sets the initial sortLayers flag of writers.
func WithSortLayers(v bool) Option {
	return func(c *Config) { c.SortLayers = v }
}
