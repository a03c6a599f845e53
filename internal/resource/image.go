package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type ImageSpec struct {
	Width, Height int
	MipLevels     int
	Format        core1_0.Format
	Tiling        core1_0.ImageTiling
	Usage         core1_0.ImageUsageFlags
	Memory        core1_0.MemoryPropertyFlags
}

// Image is a 2D image bound to memory it exclusively owns.
type Image struct {
	Handle core1_0.Image
	Memory core1_0.DeviceMemory
	Spec   ImageSpec

	device core1_0.DeviceDriver
}

func (m *Manager) CreateImage(spec ImageSpec) (*Image, error) {
	if spec.MipLevels < 1 {
		spec.MipLevels = 1
	}

	handle, _, err := m.device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  spec.Width,
			Height: spec.Height,
			Depth:  1,
		},
		MipLevels:     spec.MipLevels,
		ArrayLayers:   1,
		Format:        spec.Format,
		Tiling:        spec.Tiling,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         spec.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %dx%d image", spec.Width, spec.Height)
	}

	image := &Image{Handle: handle, Spec: spec, device: m.device}

	image.Memory, err = m.allocate(m.device.GetImageMemoryRequirements(handle), spec.Memory)
	if err != nil {
		image.Destroy()
		return nil, err
	}

	_, err = m.device.BindImageMemory(handle, image.Memory, 0)
	if err != nil {
		image.Destroy()
		return nil, errors.Wrap(err, "failed to bind image memory")
	}

	return image, nil
}

func (i *Image) Destroy() {
	if i.Handle.Initialized() {
		i.device.DestroyImage(i.Handle, nil)
		i.Handle = core1_0.Image{}
	}

	if i.Memory.Initialized() {
		i.device.FreeMemory(i.Memory, nil)
		i.Memory = core1_0.DeviceMemory{}
	}
}

type ImageView struct {
	Handle core1_0.ImageView

	device core1_0.DeviceDriver
}

// CreateImageView creates a 2D view over any image, including swapchain
// images the manager did not allocate.
func (m *Manager) CreateImageView(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags, mipLevels int) (*ImageView, error) {
	handle, _, err := m.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create image view")
	}

	return &ImageView{Handle: handle, device: m.device}, nil
}

func (v *ImageView) Destroy() {
	if v.Handle.Initialized() {
		v.device.DestroyImageView(v.Handle, nil)
		v.Handle = core1_0.ImageView{}
	}
}

type Sampler struct {
	Handle core1_0.Sampler

	device core1_0.DeviceDriver
}

// CreateSampler creates a linear, repeating sampler with anisotropy at the
// device maximum, clamped to the first mipLevels levels.
func (m *Manager) CreateSampler(mipLevels int) (*Sampler, error) {
	maxAnisotropy := float32(1)
	if m.ctx.Properties != nil && m.ctx.Properties.Limits != nil {
		maxAnisotropy = m.ctx.Properties.Limits.MaxSamplerAnisotropy
	}

	handle, _, err := m.device.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:        core1_0.FilterLinear,
		MinFilter:        core1_0.FilterLinear,
		AddressModeU:     core1_0.SamplerAddressModeRepeat,
		AddressModeV:     core1_0.SamplerAddressModeRepeat,
		AddressModeW:     core1_0.SamplerAddressModeRepeat,
		AnisotropyEnable: true,
		MaxAnisotropy:    maxAnisotropy,
		BorderColor:      core1_0.BorderColorIntOpaqueBlack,
		MipmapMode:       core1_0.SamplerMipmapModeLinear,
		MinLod:           0,
		MaxLod:           float32(mipLevels - 1),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create texture sampler")
	}

	return &Sampler{Handle: handle, device: m.device}, nil
}

func (s *Sampler) Destroy() {
	if s.Handle.Initialized() {
		s.device.DestroySampler(s.Handle, nil)
		s.Handle = core1_0.Sampler{}
	}
}

var depthCandidates = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

// DepthFormat returns the first depth format usable as an optimally tiled
// depth-stencil attachment.
func (m *Manager) DepthFormat() (core1_0.Format, error) {
	for _, format := range depthCandidates {
		props := m.ctx.FormatProperties(format)
		if props.OptimalTilingFeatures&core1_0.FormatFeatureDepthStencilAttachment != 0 {
			return format, nil
		}
	}

	return 0, errors.New("failed to find supported depth format")
}

func hasStencil(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloatS8UnsignedInt ||
		format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}
