package vkctx

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
)

func (c *Context) createLogicalDevice() error {
	if !c.Families.Complete() {
		return errors.New("queue families are incomplete")
	}

	var queueOptions []core1_0.DeviceQueueCreateInfo
	for _, family := range c.Families.Unique() {
		queueOptions = append(queueOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	extensionNames := append([]string(nil), requiredDeviceExtensions...)

	// Required on MoltenVK and other portability implementations.
	extensions, _, err := c.Instance.EnumerateDeviceExtensionProperties(c.PhysicalDevice)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate device extensions")
	}
	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	device, _, err := c.Instance.CreateDevice(c.PhysicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create logical device")
	}
	c.Device = device

	c.Graphics = Queue{Handle: c.Device.GetQueue(*c.Families.Graphics, 0), Family: *c.Families.Graphics}
	c.Present = Queue{Handle: c.Device.GetQueue(*c.Families.Present, 0), Family: *c.Families.Present}
	c.Transfer = Queue{Handle: c.Device.GetQueue(*c.Families.Transfer, 0), Family: *c.Families.Transfer}

	return nil
}
