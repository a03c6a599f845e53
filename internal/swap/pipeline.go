// Package swap owns everything whose lifetime follows the window surface:
// the swapchain and its views, the depth target, the render pass, the
// graphics pipeline and the framebuffers.
package swap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/meshviewer/internal/logging"
	"github.com/vkngwrapper/meshviewer/internal/resource"
	"github.com/vkngwrapper/meshviewer/internal/shader"
	"github.com/vkngwrapper/meshviewer/internal/vkctx"
)

// ErrZeroExtent is returned by Rebuild when asked to build for a window with
// no drawable area.
var ErrZeroExtent = errors.New("cannot build swapchain for a zero extent")

// Options is the fixed input of the graphics pipeline.
type Options struct {
	Shaders          *shader.Modules
	Bindings         []core1_0.VertexInputBindingDescription
	Attributes       []core1_0.VertexInputAttributeDescription
	DescriptorLayout core1_0.DescriptorSetLayout

	// Cache is optional.
	Cache *core1_0.PipelineCache
}

type Pipeline struct {
	ctx     *vkctx.Context
	res     *resource.Manager
	device  core1_0.DeviceDriver
	options Options

	swapchain    khr_swapchain.Swapchain
	format       core1_0.Format
	extent       core1_0.Extent2D
	presentMode  khr_surface.PresentMode
	images       []core1_0.Image
	views        []*resource.ImageView
	depthFormat  core1_0.Format
	depthImage   *resource.Image
	depthView    *resource.ImageView
	framebuffers []core1_0.Framebuffer

	renderPass core1_0.RenderPass
	layout     core1_0.PipelineLayout
	pipeline   core1_0.Pipeline
}

func New(ctx *vkctx.Context, res *resource.Manager, options Options) (*Pipeline, error) {
	depthFormat, err := res.DepthFormat()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		ctx:         ctx,
		res:         res,
		device:      ctx.Device,
		options:     options,
		depthFormat: depthFormat,
	}, nil
}

// Build creates the swapchain and everything that depends on it. requested
// is used only when the surface leaves the extent to the application. The
// render pass and graphics pipeline survive rebuilds unless the surface
// format changes.
func (p *Pipeline) Build(requested core1_0.Extent2D) error {
	support, err := p.ctx.SurfaceSupport()
	if err != nil {
		return err
	}
	if !support.Adequate() {
		return errors.New("surface reports no formats or present modes")
	}

	surfaceFormat := ChooseSurfaceFormat(support.Formats)
	presentMode := ChoosePresentMode(support.PresentModes)
	extent := ChooseExtent(support.Capabilities, requested)
	imageCount := ImageCount(support.Capabilities)

	if extent.Width == 0 || extent.Height == 0 {
		return errors.Wrapf(ErrZeroExtent, "surface extent %dx%d", extent.Width, extent.Height)
	}

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	if p.ctx.Graphics.Family != p.ctx.Present.Family {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, p.ctx.Graphics.Family, p.ctx.Present.Family)
	}

	swapchain, _, err := p.ctx.Swapchains.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: p.ctx.Surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}
	p.swapchain = swapchain
	p.extent = extent
	p.presentMode = presentMode

	formatChanged := p.format != surfaceFormat.Format
	p.format = surfaceFormat.Format

	err = p.createImageViews()
	if err != nil {
		return err
	}

	err = p.createDepthResources()
	if err != nil {
		return err
	}

	if formatChanged && p.renderPass.Initialized() {
		p.destroyPipeline()
	}

	if !p.renderPass.Initialized() {
		err = p.createRenderPass()
		if err != nil {
			return err
		}

		err = p.createGraphicsPipeline()
		if err != nil {
			return err
		}
	}

	err = p.createFramebuffers()
	if err != nil {
		return err
	}

	logging.Logger().Info("built swapchain",
		"format", p.format,
		"presentMode", p.presentMode,
		"width", p.extent.Width,
		"height", p.extent.Height,
		"images", len(p.images))

	return nil
}

// Rebuild tears down the swapchain and builds a new one. The device must not
// be using any of the old chain's objects.
func (p *Pipeline) Rebuild(requested core1_0.Extent2D) error {
	if requested.Width == 0 || requested.Height == 0 {
		return errors.Wrapf(ErrZeroExtent, "requested extent %dx%d", requested.Width, requested.Height)
	}

	_, err := p.device.DeviceWaitIdle()
	if err != nil {
		return errors.Wrap(err, "failed to wait for device idle before rebuild")
	}

	p.destroyChain()

	return p.Build(requested)
}

func (p *Pipeline) createImageViews() error {
	images, _, err := p.ctx.Swapchains.GetSwapchainImages(p.swapchain)
	if err != nil {
		return errors.Wrap(err, "failed to get swapchain images")
	}
	p.images = images

	for _, image := range images {
		view, err := p.res.CreateImageView(image, p.format, core1_0.ImageAspectColor, 1)
		if err != nil {
			return err
		}

		p.views = append(p.views, view)
	}

	return nil
}

func (p *Pipeline) createDepthResources() error {
	var err error
	p.depthImage, err = p.res.CreateImage(resource.ImageSpec{
		Width:     p.extent.Width,
		Height:    p.extent.Height,
		MipLevels: 1,
		Format:    p.depthFormat,
		Tiling:    core1_0.ImageTilingOptimal,
		Usage:     core1_0.ImageUsageDepthStencilAttachment,
		Memory:    core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create depth image")
	}

	p.depthView, err = p.res.CreateImageView(p.depthImage.Handle, p.depthFormat, core1_0.ImageAspectDepth, 1)
	if err != nil {
		return err
	}

	return p.res.TransitionLayout(p.depthImage, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal, 1)
}

func (p *Pipeline) createFramebuffers() error {
	for _, view := range p.views {
		framebuffer, _, err := p.device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: p.renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				view.Handle,
				p.depthView.Handle,
			},
			Width:  p.extent.Width,
			Height: p.extent.Height,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create framebuffer")
		}

		p.framebuffers = append(p.framebuffers, framebuffer)
	}

	return nil
}

// destroyChain releases the framebuffers, then the depth target, then the
// swapchain image views, then the swapchain.
func (p *Pipeline) destroyChain() {
	for _, framebuffer := range p.framebuffers {
		p.device.DestroyFramebuffer(framebuffer, nil)
	}
	p.framebuffers = nil

	if p.depthView != nil {
		p.depthView.Destroy()
		p.depthView = nil
	}

	if p.depthImage != nil {
		p.depthImage.Destroy()
		p.depthImage = nil
	}

	for _, view := range p.views {
		view.Destroy()
	}
	p.views = nil
	p.images = nil

	if p.swapchain.Initialized() {
		p.ctx.Swapchains.DestroySwapchain(p.swapchain, nil)
		p.swapchain = khr_swapchain.Swapchain{}
	}
}

func (p *Pipeline) destroyPipeline() {
	if p.pipeline.Initialized() {
		p.device.DestroyPipeline(p.pipeline, nil)
		p.pipeline = core1_0.Pipeline{}
	}

	if p.layout.Initialized() {
		p.device.DestroyPipelineLayout(p.layout, nil)
		p.layout = core1_0.PipelineLayout{}
	}

	if p.renderPass.Initialized() {
		p.device.DestroyRenderPass(p.renderPass, nil)
		p.renderPass = core1_0.RenderPass{}
	}
}

func (p *Pipeline) Destroy() {
	p.destroyChain()
	p.destroyPipeline()
}

// Acquire blocks until a swapchain image is available and arranges for
// signal to be signaled when it can be rendered to.
func (p *Pipeline) Acquire(signal core1_0.Semaphore) (int, common.VkResult, error) {
	return p.ctx.Swapchains.AcquireNextImage(p.swapchain, common.NoTimeout, &signal, nil)
}

func (p *Pipeline) Present(queue core1_0.Queue, wait core1_0.Semaphore, imageIndex int) (common.VkResult, error) {
	return p.ctx.Swapchains.QueuePresent(queue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait},
		Swapchains:     []khr_swapchain.Swapchain{p.swapchain},
		ImageIndices:   []int{imageIndex},
	})
}

func (p *Pipeline) Extent() core1_0.Extent2D { return p.extent }

func (p *Pipeline) Format() core1_0.Format { return p.format }

func (p *Pipeline) PresentMode() khr_surface.PresentMode { return p.presentMode }

func (p *Pipeline) ImageCount() int { return len(p.images) }

func (p *Pipeline) Framebuffer(imageIndex int) core1_0.Framebuffer { return p.framebuffers[imageIndex] }

func (p *Pipeline) RenderPass() core1_0.RenderPass { return p.renderPass }

func (p *Pipeline) Pipeline() core1_0.Pipeline { return p.pipeline }

func (p *Pipeline) Layout() core1_0.PipelineLayout { return p.layout }
