// Package renderer ties a device, its presentation surface and the resource and pipeline managers
// into a Context that is constructed once and passed explicitly to the frame code.
package renderer

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
)

// DefaultTile is the compute tile edge the device limits are checked against when none is configured.
const DefaultTile = 8

// optionalFeatures are reported at startup but never required.
var optionalFeatures = []string{backend.FeatureTimestampQuery, backend.FeatureShaderF16}

// Context owns every device-side object of a renderer instance.
type Context struct {
	Device    backend.Device
	Surface   backend.Surface
	Library   *shader.Library
	Resources resource.Manager
	Pipelines pipeline.Manager

	logger    log.Logger
	tile      uint32
	validator shader.Validator
}

// NewContext checks the device capabilities and builds the resource and pipeline managers on top of
// it. The surface may be nil for headless use.
//
// Parameters:
//   - device: the device all objects are created on
//   - surface: the presentation surface, or nil
//   - options: functional options to configure the context
//
// Returns:
//   - *Context: the context
//   - error: a *common.ConfigurationError if a required limit is missing, or an error loading the
//     built-in shader library
func NewContext(device backend.Device, surface backend.Surface, options ...ContextBuilderOption) (*Context, error) {
	c := &Context{
		Device:    device,
		Surface:   surface,
		logger:    log.New("renderer"),
		tile:      DefaultTile,
		validator: shader.NagaValidator{},
	}
	for _, opt := range options {
		opt(c)
	}

	caps := device.Capabilities()
	if err := caps.Require(c.tile); err != nil {
		c.logger.Errorf("device rejected: %v", err)
		return nil, err
	}
	for _, f := range optionalFeatures {
		if caps.HasFeature(f) {
			c.logger.Infof("optional feature %s: available", f)
		} else {
			c.logger.Infof("optional feature %s: unavailable", f)
		}
	}

	if c.Library == nil {
		lib, err := shader.NewLibrary()
		if err != nil {
			return nil, err
		}
		c.Library = lib
	}
	c.Resources = resource.NewManager(device, c.Library,
		resource.WithValidator(c.validator),
		resource.WithLogger(c.logger),
	)
	c.Pipelines = pipeline.NewManager(c.Resources, pipeline.WithLogger(c.logger))
	return c, nil
}

// Tile returns the compute tile edge the device was checked against.
func (c *Context) Tile() uint32 {
	return c.tile
}

// Configure sizes the presentation surface. It is a no-op for headless contexts.
//
// Parameters:
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - error: an error if the surface rejected the size
func (c *Context) Configure(width, height uint32) error {
	if c.Surface == nil {
		return nil
	}
	return c.Surface.Configure(width, height)
}

// Release destroys every managed object, then the surface and the device.
func (c *Context) Release() {
	c.Resources.DestroyAll()
	if c.Surface != nil {
		c.Surface.Release()
	}
	c.Device.Release()
}
