package vkctx

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	mock_surface "github.com/vkngwrapper/extensions/v3/khr_surface/mocks"
	"github.com/vkngwrapper/meshviewer/internal/vktest"
	"go.uber.org/mock/gomock"
)

type fakeGPU struct {
	deviceType core1_0.PhysicalDeviceType
	maxImage   int
	geometry   bool
	anisotropy bool
	families   []*core1_0.QueueFamilyProperties
	extensions []string
}

func discreteGPU(maxImage int) fakeGPU {
	return fakeGPU{
		deviceType: core1_0.PhysicalDeviceTypeDiscreteGPU,
		maxImage:   maxImage,
		geometry:   true,
		anisotropy: true,
		families: []*core1_0.QueueFamilyProperties{
			{QueueFlags: core1_0.QueueGraphics | core1_0.QueueTransfer, QueueCount: 1},
		},
		extensions: []string{khr_swapchain.ExtensionName},
	}
}

func expectGPU(instance *mocks1_0.MockCoreInstanceDriver, device core1_0.PhysicalDevice, gpu fakeGPU) {
	instance.EXPECT().GetPhysicalDeviceProperties(device).Return(&core1_0.PhysicalDeviceProperties{
		DriverType: gpu.deviceType,
		DriverName: "fake gpu",
		Limits:     &core1_0.PhysicalDeviceLimits{MaxImageDimension2D: gpu.maxImage},
	}, nil).AnyTimes()
	instance.EXPECT().GetPhysicalDeviceFeatures(device).Return(&core1_0.PhysicalDeviceFeatures{
		GeometryShader:    gpu.geometry,
		SamplerAnisotropy: gpu.anisotropy,
	}).AnyTimes()
	instance.EXPECT().GetPhysicalDeviceQueueFamilyProperties(device).Return(gpu.families).AnyTimes()

	extensions := make(map[string]*core1_0.ExtensionProperties)
	for _, name := range gpu.extensions {
		extensions[name] = &core1_0.ExtensionProperties{ExtensionName: name}
	}
	instance.EXPECT().EnumerateDeviceExtensionProperties(device).Return(extensions, core1_0.VKSuccess, nil).AnyTimes()
}

func newSelector(t *testing.T, ctrl *gomock.Controller, gpus ...fakeGPU) (selector, *mocks1_0.MockCoreInstanceDriver, []core1_0.PhysicalDevice) {
	t.Helper()

	instance := mocks.NewDummyInstance(common.Vulkan1_0, []string{})
	driver := mocks1_0.NewMockCoreInstanceDriver(ctrl)

	var devices []core1_0.PhysicalDevice
	for _, gpu := range gpus {
		device := mocks.NewDummyPhysicalDevice(instance, common.Vulkan1_0)
		expectGPU(driver, device, gpu)
		devices = append(devices, device)
	}
	driver.EXPECT().EnumeratePhysicalDevices().Return(devices, core1_0.VKSuccess, nil).AnyTimes()

	return selector{
		instance: driver,
		surfaces: vktest.HealthySurface(),
		surface:  mock_surface.NewDummySurface(instance),
	}, driver, devices
}

func TestPickPrefersLargestTextureDimension(t *testing.T) {
	ctrl := gomock.NewController(t)

	sel, _, devices := newSelector(t, ctrl, discreteGPU(8192), discreteGPU(16384), discreteGPU(4096))

	picked, families, err := sel.pick()
	require.NoError(t, err)
	require.Equal(t, devices[1], picked)
	require.True(t, families.Complete())
}

func TestPickRejectsIntegratedGPU(t *testing.T) {
	ctrl := gomock.NewController(t)

	integrated := discreteGPU(16384)
	integrated.deviceType = core1_0.PhysicalDeviceTypeIntegratedGPU

	sel, _, _ := newSelector(t, ctrl, integrated)

	_, _, err := sel.pick()
	require.True(t, errors.Is(err, ErrNoSuitableDevice))
}

func TestPickFiltersBeforeScoring(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Highest score, but no anisotropic sampling.
	strong := discreteGPU(32768)
	strong.anisotropy = false

	sel, _, devices := newSelector(t, ctrl, strong, discreteGPU(2048))

	picked, _, err := sel.pick()
	require.NoError(t, err)
	require.Equal(t, devices[1], picked)
}

func TestPickNoDevices(t *testing.T) {
	ctrl := gomock.NewController(t)

	sel, _, _ := newSelector(t, ctrl)

	_, _, err := sel.pick()
	require.True(t, errors.Is(err, ErrNoSuitableDevice))
}

func TestSuitableRequirements(t *testing.T) {
	testCases := map[string]func(gpu *fakeGPU){
		"missing geometry shader": func(gpu *fakeGPU) { gpu.geometry = false },
		"missing swapchain":       func(gpu *fakeGPU) { gpu.extensions = nil },
		"no transfer family": func(gpu *fakeGPU) {
			gpu.families = []*core1_0.QueueFamilyProperties{{QueueFlags: core1_0.QueueGraphics}}
		},
	}

	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			gpu := discreteGPU(16384)
			mutate(&gpu)
			sel, _, devices := newSelector(t, ctrl, gpu)

			require.False(t, sel.suitable(devices[0]))
		})
	}
}

func TestSuitableRequiresSwapFormats(t *testing.T) {
	ctrl := gomock.NewController(t)

	sel, _, devices := newSelector(t, ctrl, discreteGPU(16384))
	surfaces := vktest.HealthySurface()
	surfaces.Formats = nil
	sel.surfaces = surfaces

	require.False(t, sel.suitable(devices[0]))
}

func TestScore(t *testing.T) {
	ctrl := gomock.NewController(t)

	noGeometry := discreteGPU(16384)
	noGeometry.geometry = false

	sel, _, devices := newSelector(t, ctrl, discreteGPU(16384), noGeometry)

	require.Equal(t, 1000+16384, sel.score(devices[0]))
	require.Equal(t, 0, sel.score(devices[1]))
}

func TestQueueFamiliesStopWhenComplete(t *testing.T) {
	ctrl := gomock.NewController(t)

	gpu := discreteGPU(16384)
	gpu.families = []*core1_0.QueueFamilyProperties{
		{QueueFlags: core1_0.QueueGraphics},
		{QueueFlags: core1_0.QueueTransfer},
		{QueueFlags: core1_0.QueueGraphics | core1_0.QueueTransfer},
	}
	sel, _, devices := newSelector(t, ctrl, gpu)
	surfaces := vktest.HealthySurface()
	surfaces.PresentFamilies = map[int]bool{0: true, 2: true}
	sel.surfaces = surfaces

	families, err := sel.queueFamilies(devices[0])
	require.NoError(t, err)
	require.True(t, families.Complete())
	require.Equal(t, 0, *families.Graphics)
	require.Equal(t, 0, *families.Present)
	require.Equal(t, 1, *families.Transfer)
	require.Equal(t, []int{0, 1}, families.Unique())
}

func TestCreateLogicalDeviceSharesFamilies(t *testing.T) {
	ctrl := gomock.NewController(t)

	sel, instanceDriver, devices := newSelector(t, ctrl, discreteGPU(16384))
	families, err := sel.queueFamilies(devices[0])
	require.NoError(t, err)

	device := mocks.NewDummyDevice(common.Vulkan1_0, []string{})
	deviceDriver := mocks1_0.NewMockCoreDeviceDriver(ctrl)
	queue := mocks.NewDummyQueue(device)

	var created core1_0.DeviceCreateInfo
	instanceDriver.EXPECT().CreateDevice(devices[0], gomock.Nil(), gomock.Any()).DoAndReturn(
		func(physicalDevice core1_0.PhysicalDevice, callbacks *loader.AllocationCallbacks, options core1_0.DeviceCreateInfo) (core1_0.CoreDeviceDriver, common.VkResult, error) {
			created = options
			return deviceDriver, core1_0.VKSuccess, nil
		})
	deviceDriver.EXPECT().GetQueue(0, 0).Return(queue).Times(3)

	ctx := &Context{Instance: instanceDriver, PhysicalDevice: devices[0], Families: families}
	require.NoError(t, ctx.createLogicalDevice())

	require.Len(t, created.QueueCreateInfos, 1)
	require.Equal(t, 0, created.QueueCreateInfos[0].QueueFamilyIndex)
	require.Contains(t, created.EnabledExtensionNames, khr_swapchain.ExtensionName)
	require.True(t, created.EnabledFeatures.SamplerAnisotropy)

	require.Equal(t, queue, ctx.Graphics.Handle)
	require.Equal(t, 0, ctx.Transfer.Family)
}
