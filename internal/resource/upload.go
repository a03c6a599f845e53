package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Target is a device-local destination for UploadViaStaging: *Buffer or
// *Image.
type Target interface {
	recordCopy(device core1_0.DeviceDriver, cb core1_0.CommandBuffer, staging core1_0.Buffer, size int) error
	onGraphicsQueue() bool
}

func (b *Buffer) recordCopy(device core1_0.DeviceDriver, cb core1_0.CommandBuffer, staging core1_0.Buffer, size int) error {
	err := device.CmdCopyBuffer(cb, staging, b.Handle, core1_0.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	})
	return errors.Wrap(err, "failed to record buffer copy")
}

func (b *Buffer) onGraphicsQueue() bool { return false }

// recordCopy expects the image to already be in TransferDstOptimal.
func (i *Image) recordCopy(device core1_0.DeviceDriver, cb core1_0.CommandBuffer, staging core1_0.Buffer, size int) error {
	err := device.CmdCopyBufferToImage(cb, staging, i.Handle, core1_0.ImageLayoutTransferDstOptimal, core1_0.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,

		ImageSubresource: core1_0.ImageSubresourceLayers{
			AspectMask:     core1_0.ImageAspectColor,
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: core1_0.Extent3D{Width: i.Spec.Width, Height: i.Spec.Height, Depth: 1},
	})
	return errors.Wrap(err, "failed to record buffer to image copy")
}

func (i *Image) onGraphicsQueue() bool { return true }

// UploadViaStaging copies data into dst through a temporary host-visible
// buffer and blocks until the copy completes. The staging buffer is
// released on every path out of this function.
func (m *Manager) UploadViaStaging(dst Target, data []byte) error {
	if len(data) == 0 {
		return errors.New("refusing to upload zero bytes")
	}

	staging, err := m.CreateBuffer(len(data), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return errors.Wrap(err, "failed to create staging buffer")
	}
	defer staging.Destroy()

	err = staging.write(data)
	if err != nil {
		return err
	}

	queue, pool := m.ctx.Transfer, m.transferPool
	if dst.onGraphicsQueue() {
		queue, pool = m.ctx.Graphics, m.graphicsPool
	}

	return m.oneShot(queue, pool, func(cb core1_0.CommandBuffer) error {
		return dst.recordCopy(m.device, cb, staging.Handle, len(data))
	})
}

// CreateDeviceBuffer creates a device-local buffer and fills it from data.
func (m *Manager) CreateDeviceBuffer(data []byte, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	buffer, err := m.CreateBuffer(len(data), usage|core1_0.BufferUsageTransferDst, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = m.UploadViaStaging(buffer, data)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	return buffer, nil
}

// CreateTexture creates a sampled RGBA image from tightly packed pixels and
// leaves it in ShaderReadOnlyOptimal.
func (m *Manager) CreateTexture(pixels []byte, width, height int, format core1_0.Format) (*Image, error) {
	image, err := m.CreateImage(ImageSpec{
		Width:     width,
		Height:    height,
		MipLevels: 1,
		Format:    format,
		Tiling:    core1_0.ImageTilingOptimal,
		Usage:     core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		Memory:    core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return nil, err
	}

	err = m.TransitionLayout(image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, 1)
	if err == nil {
		err = m.UploadViaStaging(image, pixels)
	}
	if err == nil {
		err = m.TransitionLayout(image, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal, 1)
	}
	if err != nil {
		image.Destroy()
		return nil, err
	}

	return image, nil
}

// CreateUniformBuffers creates count persistently mapped uniform buffers of
// size bytes each, one per frame slot.
func (m *Manager) CreateUniformBuffers(count, size int) ([]*Buffer, error) {
	buffers := make([]*Buffer, 0, count)
	for i := 0; i < count; i++ {
		buffer, err := m.CreateMappedBuffer(size, core1_0.BufferUsageUniformBuffer)
		if err != nil {
			for _, created := range buffers {
				created.Destroy()
			}
			return nil, errors.Wrapf(err, "failed to create uniform buffer %d", i)
		}
		buffers = append(buffers, buffer)
	}

	return buffers, nil
}

var _ Target = &Buffer{}
var _ Target = &Image{}
