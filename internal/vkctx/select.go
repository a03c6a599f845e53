package vkctx

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/meshviewer/internal/logging"
)

var requiredDeviceExtensions = []string{khr_swapchain.ExtensionName}

type QueueFamilies struct {
	Graphics *int
	Present  *int
	Transfer *int
}

func (f QueueFamilies) Complete() bool {
	return f.Graphics != nil && f.Present != nil && f.Transfer != nil
}

// Unique lists the distinct families in graphics, present, transfer order.
func (f QueueFamilies) Unique() []int {
	var unique []int
	seen := make(map[int]bool)
	for _, family := range []*int{f.Graphics, f.Present, f.Transfer} {
		if family == nil || seen[*family] {
			continue
		}
		seen[*family] = true
		unique = append(unique, *family)
	}
	return unique
}

type SwapSupport struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

func (s SwapSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

func querySwapSupport(surfaces khr_surface.ExtensionDriver, surface khr_surface.Surface, device core1_0.PhysicalDevice) (SwapSupport, error) {
	var details SwapSupport
	var err error

	details.Capabilities, _, err = surfaces.GetPhysicalDeviceSurfaceCapabilities(surface, device)
	if err != nil {
		return details, errors.Wrap(err, "failed to query surface capabilities")
	}

	details.Formats, _, err = surfaces.GetPhysicalDeviceSurfaceFormats(surface, device)
	if err != nil {
		return details, errors.Wrap(err, "failed to query surface formats")
	}

	details.PresentModes, _, err = surfaces.GetPhysicalDeviceSurfacePresentModes(surface, device)
	return details, errors.Wrap(err, "failed to query surface present modes")
}

type selector struct {
	instance core1_0.CoreInstanceDriver
	surfaces khr_surface.ExtensionDriver
	surface  khr_surface.Surface
}

func (s selector) queueFamilies(device core1_0.PhysicalDevice) (QueueFamilies, error) {
	families := QueueFamilies{}
	properties := s.instance.GetPhysicalDeviceQueueFamilyProperties(device)

	for familyIdx, family := range properties {
		idx := familyIdx

		if family.QueueFlags&core1_0.QueueGraphics != 0 {
			families.Graphics = &idx
		}

		supported, _, err := s.surfaces.GetPhysicalDeviceSurfaceSupport(s.surface, device, idx)
		if err != nil {
			return families, errors.Wrapf(err, "failed to query present support for queue family %d", idx)
		}
		if supported {
			families.Present = &idx
		}

		if family.QueueFlags&core1_0.QueueTransfer != 0 {
			families.Transfer = &idx
		}

		if families.Complete() {
			break
		}
	}

	return families, nil
}

func (s selector) extensionsSupported(device core1_0.PhysicalDevice) bool {
	extensions, _, err := s.instance.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return false
	}

	for _, extension := range requiredDeviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

// suitable is the hard filter: a device failing it is never considered,
// whatever it would score.
func (s selector) suitable(device core1_0.PhysicalDevice) bool {
	properties, err := s.instance.GetPhysicalDeviceProperties(device)
	if err != nil {
		return false
	}
	features := s.instance.GetPhysicalDeviceFeatures(device)

	families, err := s.queueFamilies(device)
	if err != nil {
		return false
	}

	extensionsSupported := s.extensionsSupported(device)

	var swapAdequate bool
	if extensionsSupported {
		support, err := querySwapSupport(s.surfaces, s.surface, device)
		if err != nil {
			return false
		}
		swapAdequate = support.Adequate()
	}

	return properties.DriverType == core1_0.PhysicalDeviceTypeDiscreteGPU &&
		features.GeometryShader &&
		families.Complete() &&
		extensionsSupported &&
		swapAdequate &&
		features.SamplerAnisotropy
}

// score ranks devices that already passed the filter.
func (s selector) score(device core1_0.PhysicalDevice) int {
	properties, err := s.instance.GetPhysicalDeviceProperties(device)
	if err != nil {
		return 0
	}

	if !s.instance.GetPhysicalDeviceFeatures(device).GeometryShader {
		return 0
	}

	score := 0
	if properties.DriverType == core1_0.PhysicalDeviceTypeDiscreteGPU {
		score += 1000
	}
	if properties.Limits != nil {
		score += properties.Limits.MaxImageDimension2D
	}

	return score
}

func (s selector) pick() (core1_0.PhysicalDevice, QueueFamilies, error) {
	devices, _, err := s.instance.EnumeratePhysicalDevices()
	if err != nil {
		return core1_0.PhysicalDevice{}, QueueFamilies{}, errors.Wrap(err, "failed to enumerate physical devices")
	}
	if len(devices) == 0 {
		return core1_0.PhysicalDevice{}, QueueFamilies{}, errors.Wrap(ErrNoSuitableDevice, "no GPUs with Vulkan support")
	}

	var best core1_0.PhysicalDevice
	bestScore := 0
	for _, device := range devices {
		if !s.suitable(device) {
			continue
		}

		score := s.score(device)
		logging.Logger().Debug("candidate physical device", "score", score)
		if score > bestScore {
			best = device
			bestScore = score
		}
	}

	if bestScore <= 0 {
		return core1_0.PhysicalDevice{}, QueueFamilies{}, ErrNoSuitableDevice
	}

	families, err := s.queueFamilies(best)
	if err != nil {
		return core1_0.PhysicalDevice{}, QueueFamilies{}, err
	}

	return best, families, nil
}
