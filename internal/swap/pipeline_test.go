package swap

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	mock_surface "github.com/vkngwrapper/extensions/v3/khr_surface/mocks"
	"github.com/vkngwrapper/meshviewer/internal/resource"
	"github.com/vkngwrapper/meshviewer/internal/shader"
	"github.com/vkngwrapper/meshviewer/internal/vkctx"
	"github.com/vkngwrapper/meshviewer/internal/vktest"
	"go.uber.org/mock/gomock"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	unorm := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	rgba := khr_surface.SurfaceFormat{Format: core1_0.FormatR8G8B8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	require.Equal(t, preferred, ChooseSurfaceFormat([]khr_surface.SurfaceFormat{unorm, preferred, rgba}))
	require.Equal(t, rgba, ChooseSurfaceFormat([]khr_surface.SurfaceFormat{rgba, unorm}))
}

func TestChoosePresentMode(t *testing.T) {
	require.Equal(t, khr_surface.PresentModeMailbox, ChoosePresentMode([]khr_surface.PresentMode{
		khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox,
	}))
	require.Equal(t, khr_surface.PresentModeFIFO, ChoosePresentMode([]khr_surface.PresentMode{
		khr_surface.PresentModeImmediate, khr_surface.PresentModeFIFO,
	}))
}

func TestChooseExtent(t *testing.T) {
	capabilities := &khr_surface.SurfaceCapabilities{
		CurrentExtent:  core1_0.Extent2D{Width: 1280, Height: 1024},
		MinImageExtent: core1_0.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: core1_0.Extent2D{Width: 2048, Height: 2048},
	}
	require.Equal(t, core1_0.Extent2D{Width: 1280, Height: 1024}, ChooseExtent(capabilities, core1_0.Extent2D{Width: 640, Height: 480}))

	capabilities.CurrentExtent = core1_0.Extent2D{Width: -1, Height: -1}
	require.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, ChooseExtent(capabilities, core1_0.Extent2D{Width: 640, Height: 480}))
	require.Equal(t, core1_0.Extent2D{Width: 2048, Height: 100}, ChooseExtent(capabilities, core1_0.Extent2D{Width: 4000, Height: 50}))
}

func TestImageCount(t *testing.T) {
	require.Equal(t, 3, ImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	require.Equal(t, 3, ImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3}))
	require.Equal(t, 3, ImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}))
}

type fixture struct {
	pipeline   *Pipeline
	surfaces   *vktest.SurfaceDriver
	swapchains *vktest.SwapchainDriver
	live       *vktest.Objects
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	instanceHandle := mocks.NewDummyInstance(common.Vulkan1_0, []string{})
	device := mocks.NewDummyDevice(common.Vulkan1_0, []string{})

	instance := mocks1_0.NewMockCoreInstanceDriver(ctrl)
	vktest.StubInstance(instance)

	driver := mocks1_0.NewMockDeviceDriver(ctrl)
	live := vktest.StubSwapObjects(driver, device)
	driver.EXPECT().CreateCommandPool(gomock.Nil(), gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, _ core1_0.CommandPoolCreateInfo) (core1_0.CommandPool, common.VkResult, error) {
			return mocks.NewDummyCommandPool(device), core1_0.VKSuccess, nil
		}).Times(2)

	surfaces := vktest.HealthySurface()
	swapchains := vktest.NewSwapchainDriver(device)
	queue := mocks.NewDummyQueue(device)

	ctx := &vkctx.Context{
		Instance:       instance,
		Device:         driver,
		Surfaces:       surfaces,
		Swapchains:     swapchains,
		Surface:        mock_surface.NewDummySurface(instanceHandle),
		PhysicalDevice: mocks.NewDummyPhysicalDevice(instanceHandle, common.Vulkan1_0),
		Graphics:       vkctx.Queue{Handle: queue, Family: 0},
		Present:        vkctx.Queue{Handle: queue, Family: 0},
		Transfer:       vkctx.Queue{Handle: queue, Family: 0},
	}

	res, err := resource.NewManager(ctx)
	require.NoError(t, err)

	pipeline, err := New(ctx, res, Options{
		Shaders: &shader.Modules{
			Vertex:   mocks.NewDummyShaderModule(device),
			Fragment: mocks.NewDummyShaderModule(device),
		},
		DescriptorLayout: mocks.NewDummyDescriptorSetLayout(device),
	})
	require.NoError(t, err)

	return fixture{pipeline: pipeline, surfaces: surfaces, swapchains: swapchains, live: live}
}

type triple struct {
	images int
	format core1_0.Format
	extent core1_0.Extent2D
}

func (f fixture) triple() triple {
	return triple{images: f.pipeline.ImageCount(), format: f.pipeline.Format(), extent: f.pipeline.Extent()}
}

func TestBuild(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.pipeline.Build(core1_0.Extent2D{Width: 1280, Height: 1024}))

	require.Equal(t, triple{
		images: 3,
		format: core1_0.FormatB8G8R8A8SRGB,
		extent: core1_0.Extent2D{Width: 1280, Height: 1024},
	}, f.triple())
	require.Equal(t, khr_surface.PresentModeMailbox, f.pipeline.PresentMode())

	require.Len(t, f.swapchains.Created, 1)
	created := f.swapchains.Created[0]
	require.Equal(t, 3, created.MinImageCount)
	require.Equal(t, core1_0.SharingModeExclusive, created.ImageSharingMode)
	require.Equal(t, khr_surface.CompositeAlphaOpaque, created.CompositeAlpha)
	require.True(t, created.Clipped)

	require.Equal(t, 3, f.live.Framebuffers)
	require.Equal(t, 4, f.live.Views)
	require.Equal(t, 1, f.live.Images)
	require.Equal(t, 1, f.live.RenderPasses)
	require.Equal(t, 1, f.live.Pipelines)
	require.True(t, f.pipeline.Framebuffer(2).Initialized())
}

func TestRebuildIsIdempotent(t *testing.T) {
	f := newFixture(t)
	extent := core1_0.Extent2D{Width: 1280, Height: 1024}

	require.NoError(t, f.pipeline.Build(extent))
	first := f.triple()
	objects := *f.live

	for i := 0; i < 2; i++ {
		require.NoError(t, f.pipeline.Rebuild(extent))
		require.Equal(t, first, f.triple())
		require.Equal(t, objects.Framebuffers, f.live.Framebuffers)
		require.Equal(t, objects.Views, f.live.Views)
		require.Equal(t, objects.Images, f.live.Images)
		require.Equal(t, objects.Memory, f.live.Memory)
		require.Equal(t, objects.Pipelines, f.live.Pipelines)
		require.Equal(t, 1, f.swapchains.Live)
	}
}

func TestRebuildRejectsZeroExtent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pipeline.Build(core1_0.Extent2D{Width: 1280, Height: 1024}))

	err := f.pipeline.Rebuild(core1_0.Extent2D{Width: 0, Height: 1024})
	require.True(t, errors.Is(err, ErrZeroExtent))

	// The old chain is untouched.
	require.Equal(t, 1, f.swapchains.Live)
	require.Equal(t, 3, f.live.Framebuffers)
}

func TestRebuildFollowsSurfaceResize(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pipeline.Build(core1_0.Extent2D{Width: 1280, Height: 1024}))

	f.surfaces.Capabilities.CurrentExtent = core1_0.Extent2D{Width: -1, Height: -1}
	require.NoError(t, f.pipeline.Rebuild(core1_0.Extent2D{Width: 800, Height: 600}))

	require.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, f.pipeline.Extent())
	require.Equal(t, 1, f.live.RenderPasses)
}

func TestRebuildRecreatesPipelineOnFormatChange(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pipeline.Build(core1_0.Extent2D{Width: 1280, Height: 1024}))
	renderPass := f.pipeline.RenderPass()

	f.surfaces.Formats = []khr_surface.SurfaceFormat{
		{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
	}
	require.NoError(t, f.pipeline.Rebuild(core1_0.Extent2D{Width: 1280, Height: 1024}))

	require.Equal(t, core1_0.FormatB8G8R8A8UnsignedNormalized, f.pipeline.Format())
	require.NotEqual(t, renderPass, f.pipeline.RenderPass())
	require.Equal(t, 1, f.live.RenderPasses)
	require.Equal(t, 1, f.live.Pipelines)
	require.Equal(t, 1, f.live.Layouts)
}

func TestDestroyReleasesEverything(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pipeline.Build(core1_0.Extent2D{Width: 1280, Height: 1024}))

	f.pipeline.Destroy()

	require.Equal(t, vktest.Objects{Submits: f.live.Submits}, *f.live)
	require.Equal(t, 0, f.swapchains.Live)
}
