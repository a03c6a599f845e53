// Package vktest holds hand-written fakes for the vkngwrapper extension
// drivers that ship without gomock mocks.
package vktest

import (
	"time"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	khr_surface_loader "github.com/vkngwrapper/extensions/v3/khr_surface/loader"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	khr_swapchain_driver "github.com/vkngwrapper/extensions/v3/khr_swapchain/loader"
)

// SurfaceDriver reports fixed surface support for every physical device.
type SurfaceDriver struct {
	Capabilities khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode

	// PresentFamilies lists queue families that can present. Nil means all.
	PresentFamilies map[int]bool

	Destroyed int
}

var _ khr_surface.ExtensionDriver = &SurfaceDriver{}

// HealthySurface describes a surface with a fixed 1280x1024 extent that
// supports the preferred format and mailbox presentation.
func HealthySurface() *SurfaceDriver {
	return &SurfaceDriver{
		Capabilities: khr_surface.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    8,
			CurrentExtent:    core1_0.Extent2D{Width: 1280, Height: 1024},
			MinImageExtent:   core1_0.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:   core1_0.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform: khr_surface.TransformIdentity,
		},
		Formats: []khr_surface.SurfaceFormat{
			{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		},
		PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox},
	}
}

func (d *SurfaceDriver) CreateSurfaceFromHandle(surfaceHandle khr_surface_loader.VkSurfaceKHR) (khr_surface.Surface, error) {
	return khr_surface.Surface{}, nil
}

func (d *SurfaceDriver) DestroySurface(surface khr_surface.Surface, callbacks *loader.AllocationCallbacks) {
	d.Destroyed++
}

func (d *SurfaceDriver) GetPhysicalDeviceSurfaceSupport(surface khr_surface.Surface, physicalDevice core1_0.PhysicalDevice, queueFamilyIndex int) (bool, common.VkResult, error) {
	if d.PresentFamilies == nil {
		return true, core1_0.VKSuccess, nil
	}
	return d.PresentFamilies[queueFamilyIndex], core1_0.VKSuccess, nil
}

func (d *SurfaceDriver) GetPhysicalDeviceSurfaceCapabilities(surface khr_surface.Surface, device core1_0.PhysicalDevice) (*khr_surface.SurfaceCapabilities, common.VkResult, error) {
	caps := d.Capabilities
	return &caps, core1_0.VKSuccess, nil
}

func (d *SurfaceDriver) GetPhysicalDeviceSurfaceFormats(surface khr_surface.Surface, device core1_0.PhysicalDevice) ([]khr_surface.SurfaceFormat, common.VkResult, error) {
	return d.Formats, core1_0.VKSuccess, nil
}

func (d *SurfaceDriver) GetPhysicalDeviceSurfacePresentModes(surface khr_surface.Surface, device core1_0.PhysicalDevice) ([]khr_surface.PresentMode, common.VkResult, error) {
	return d.PresentModes, core1_0.VKSuccess, nil
}

// SwapchainDriver hands out dummy swapchains and scripted acquire and
// present results.
type SwapchainDriver struct {
	Dev        core1_0.Device
	ImageCount int

	// AcquireResults and PresentResults are consumed one per call. When
	// exhausted every call succeeds.
	AcquireResults []common.VkResult
	PresentResults []common.VkResult

	Created   []khr_swapchain.SwapchainCreateInfo
	Live      int
	Acquired  int
	Presented []khr_swapchain.PresentInfo
	NextImage int

	images map[khr_swapchain.Swapchain][]core1_0.Image
}

var _ khr_swapchain.ExtensionDriver = &SwapchainDriver{}

func NewSwapchainDriver(device core1_0.Device) *SwapchainDriver {
	return &SwapchainDriver{Dev: device}
}

func (d *SwapchainDriver) Loader() khr_swapchain_driver.Loader { return nil }

func (d *SwapchainDriver) APIVersion() common.APIVersion { return common.Vulkan1_0 }

func (d *SwapchainDriver) Device() core1_0.Device { return d.Dev }

func (d *SwapchainDriver) CreateSwapchain(allocation *loader.AllocationCallbacks, options khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, common.VkResult, error) {
	d.Created = append(d.Created, options)
	d.Live++

	swapchain := khr_swapchain.NewDummySwapchain(d.Dev)
	if d.images == nil {
		d.images = make(map[khr_swapchain.Swapchain][]core1_0.Image)
	}

	count := options.MinImageCount
	if d.ImageCount > 0 {
		count = d.ImageCount
	}
	images := make([]core1_0.Image, 0, count)
	for i := 0; i < count; i++ {
		images = append(images, mocks.NewDummyImage(d.Dev))
	}
	d.images[swapchain] = images

	return swapchain, core1_0.VKSuccess, nil
}

func (d *SwapchainDriver) QueuePresent(queue core1_0.Queue, o khr_swapchain.PresentInfo) (common.VkResult, error) {
	d.Presented = append(d.Presented, o)
	return next(&d.PresentResults)
}

func (d *SwapchainDriver) DestroySwapchain(swapchain khr_swapchain.Swapchain, callbacks *loader.AllocationCallbacks) {
	delete(d.images, swapchain)
	d.Live--
}

func (d *SwapchainDriver) GetSwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, common.VkResult, error) {
	return d.images[swapchain], core1_0.VKSuccess, nil
}

func (d *SwapchainDriver) AcquireNextImage(swapchain khr_swapchain.Swapchain, timeout time.Duration, semaphore *core1_0.Semaphore, fence *core1_0.Fence) (int, common.VkResult, error) {
	d.Acquired++
	res, err := next(&d.AcquireResults)
	return d.NextImage, res, err
}

func next(results *[]common.VkResult) (common.VkResult, error) {
	if len(*results) == 0 {
		return core1_0.VKSuccess, nil
	}

	res := (*results)[0]
	*results = (*results)[1:]
	if res < 0 {
		return res, res.ToError()
	}
	return res, nil
}
