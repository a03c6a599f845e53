// Package vkctx owns the connection to Vulkan: the instance, the window
// surface, the selected physical device and the logical device with its
// graphics, present and transfer queues.
//
// Every other GPU component receives a *Context instead of reaching for
// shared handles of its own.
package vkctx

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/meshviewer/internal/logging"
)

// ErrNoSuitableDevice is returned when no physical device passes both the
// suitability filter and the score.
var ErrNoSuitableDevice = errors.New("failed to find a suitable GPU")

// Queue is a device queue tagged with the family it was retrieved from.
type Queue struct {
	Handle core1_0.Queue
	Family int
}

// SurfaceSource is the windowing capability the context needs: the instance
// extensions the window system requires and a way to create a surface.
type SurfaceSource interface {
	InstanceExtensions() []string
	CreateSurface(instance core1_0.Instance, surfaces khr_surface.ExtensionDriver) (khr_surface.Surface, error)
}

type Options struct {
	ApplicationName string
	Validation      bool
}

type Context struct {
	Instance   core1_0.CoreInstanceDriver
	Device     core1_0.DeviceDriver
	Surfaces   khr_surface.ExtensionDriver
	Swapchains khr_swapchain.ExtensionDriver

	Surface        khr_surface.Surface
	PhysicalDevice core1_0.PhysicalDevice
	Properties     *core1_0.PhysicalDeviceProperties
	Families       QueueFamilies

	Graphics Queue
	Present  Queue
	Transfer Queue

	debug     ext_debug_utils.ExtensionDriver
	messenger ext_debug_utils.DebugUtilsMessenger
}

// New brings up the instance, surface, physical device and logical device.
// On failure everything created so far is released.
func New(global core1_0.GlobalDriver, source SurfaceSource, opts Options) (*Context, error) {
	ctx := &Context{}

	err := ctx.createInstance(global, source.InstanceExtensions(), opts)
	if err != nil {
		return nil, err
	}

	err = ctx.init(source, opts)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}

	return ctx, nil
}

func (c *Context) init(source SurfaceSource, opts Options) error {
	if opts.Validation {
		err := c.setupDebugMessenger()
		if err != nil {
			return err
		}
	}

	c.Surfaces = khr_surface.CreateExtensionDriverFromCoreDriver(c.Instance)
	surface, err := source.CreateSurface(c.Instance.Instance(), c.Surfaces)
	if err != nil {
		return errors.Wrap(err, "failed to create window surface")
	}
	c.Surface = surface

	sel := selector{instance: c.Instance, surfaces: c.Surfaces, surface: c.Surface}
	c.PhysicalDevice, c.Families, err = sel.pick()
	if err != nil {
		return err
	}

	c.Properties, err = c.Instance.GetPhysicalDeviceProperties(c.PhysicalDevice)
	if err != nil {
		return errors.Wrap(err, "failed to read physical device properties")
	}

	err = c.createLogicalDevice()
	if err != nil {
		return err
	}

	c.Swapchains = khr_swapchain.CreateExtensionDriverFromCoreDriver(c.Device)

	info := c.Info()
	logging.Logger().Info("selected physical device",
		"name", info.Name,
		"type", info.Type,
		"api", info.APIVersion,
		"pipelineCacheUUID", info.PipelineCacheUUID,
		"graphicsFamily", c.Graphics.Family,
		"presentFamily", c.Present.Family,
		"transferFamily", c.Transfer.Family)

	return nil
}

// DeviceInfo is a printable summary of the selected device.
type DeviceInfo struct {
	Name              string
	Type              core1_0.PhysicalDeviceType
	APIVersion        common.APIVersion
	VendorID          uint32
	DeviceID          uint32
	PipelineCacheUUID uuid.UUID
}

func (c *Context) Info() DeviceInfo {
	if c.Properties == nil {
		return DeviceInfo{}
	}

	return DeviceInfo{
		Name:              c.Properties.DriverName,
		Type:              c.Properties.DriverType,
		APIVersion:        c.Properties.APIVersion,
		VendorID:          c.Properties.VendorID,
		DeviceID:          c.Properties.DeviceID,
		PipelineCacheUUID: c.Properties.PipelineCacheUUID,
	}
}

func (c *Context) MemoryProperties() *core1_0.PhysicalDeviceMemoryProperties {
	return c.Instance.GetPhysicalDeviceMemoryProperties(c.PhysicalDevice)
}

func (c *Context) FormatProperties(format core1_0.Format) *core1_0.FormatProperties {
	return c.Instance.GetPhysicalDeviceFormatProperties(c.PhysicalDevice, format)
}

// SurfaceSupport queries the current capabilities, formats and present
// modes of the window surface on the selected device.
func (c *Context) SurfaceSupport() (SwapSupport, error) {
	return querySwapSupport(c.Surfaces, c.Surface, c.PhysicalDevice)
}

// WaitIdle blocks until the device has finished all submitted work.
func (c *Context) WaitIdle() error {
	if c.Device == nil {
		return nil
	}

	_, err := c.Device.DeviceWaitIdle()
	return errors.Wrap(err, "failed to wait for device idle")
}

func (c *Context) Destroy() {
	if c.Device != nil {
		c.Device.DestroyDevice(nil)
		c.Device = nil
	}

	if c.messenger.Initialized() {
		c.debug.DestroyDebugUtilsMessenger(c.messenger, nil)
		c.messenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if c.Surface.Initialized() {
		c.Surfaces.DestroySurface(c.Surface, nil)
		c.Surface = khr_surface.Surface{}
	}

	if c.Instance != nil {
		c.Instance.DestroyInstance(nil)
		c.Instance = nil
	}
}
