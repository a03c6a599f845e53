package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

var ErrUnsupportedTransition = errors.New("unsupported layout transition")

type layoutPair struct {
	Old, New core1_0.ImageLayout
}

// Barrier is the access, stage and aspect masks for one layout change.
type Barrier struct {
	SrcAccess core1_0.AccessFlags
	DstAccess core1_0.AccessFlags
	SrcStage  core1_0.PipelineStageFlags
	DstStage  core1_0.PipelineStageFlags
	Aspect    core1_0.ImageAspectFlags
}

var transitions = map[layoutPair]Barrier{
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal}: {
		DstAccess: core1_0.AccessTransferWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageTransfer,
		Aspect:    core1_0.ImageAspectColor,
	},
	{core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal}: {
		SrcAccess: core1_0.AccessTransferWrite,
		DstAccess: core1_0.AccessShaderRead,
		SrcStage:  core1_0.PipelineStageTransfer,
		DstStage:  core1_0.PipelineStageFragmentShader,
		Aspect:    core1_0.ImageAspectColor,
	},
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal}: {
		DstAccess: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageEarlyFragmentTests,
		Aspect:    core1_0.ImageAspectDepth,
	},
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutColorAttachmentOptimal}: {
		DstAccess: core1_0.AccessColorAttachmentRead | core1_0.AccessColorAttachmentWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageColorAttachmentOutput,
		Aspect:    core1_0.ImageAspectColor,
	},
}

// LookupTransition returns the barrier for a supported layout change. The
// stencil aspect is added for depth formats that carry one.
func LookupTransition(format core1_0.Format, oldLayout, newLayout core1_0.ImageLayout) (Barrier, error) {
	barrier, ok := transitions[layoutPair{oldLayout, newLayout}]
	if !ok {
		return Barrier{}, errors.Wrapf(ErrUnsupportedTransition, "%s -> %s", oldLayout, newLayout)
	}

	if barrier.Aspect == core1_0.ImageAspectDepth && hasStencil(format) {
		barrier.Aspect |= core1_0.ImageAspectStencil
	}

	return barrier, nil
}

// TransitionLayout moves every mip level of image from oldLayout to
// newLayout with a single pipeline barrier on the graphics queue.
func (m *Manager) TransitionLayout(image *Image, oldLayout, newLayout core1_0.ImageLayout, mipLevels int) error {
	barrier, err := LookupTransition(image.Spec.Format, oldLayout, newLayout)
	if err != nil {
		return err
	}

	return m.oneShot(m.ctx.Graphics, m.graphicsPool, func(cb core1_0.CommandBuffer) error {
		err := m.device.CmdPipelineBarrier(cb, barrier.SrcStage, barrier.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
			{
				OldLayout:           oldLayout,
				NewLayout:           newLayout,
				SrcQueueFamilyIndex: -1,
				DstQueueFamilyIndex: -1,
				Image:               image.Handle,
				SubresourceRange: core1_0.ImageSubresourceRange{
					AspectMask:     barrier.Aspect,
					BaseMipLevel:   0,
					LevelCount:     mipLevels,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcAccessMask: barrier.SrcAccess,
				DstAccessMask: barrier.DstAccess,
			},
		})
		return errors.Wrap(err, "failed to record layout transition")
	})
}
