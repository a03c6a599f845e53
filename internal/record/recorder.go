// Package record fills a frame's command buffer with the one indexed draw of
// the mesh.
package record

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Target is the render target side of a recording, satisfied by
// *swap.Pipeline.
type Target interface {
	Extent() core1_0.Extent2D
	Framebuffer(imageIndex int) core1_0.Framebuffer
	RenderPass() core1_0.RenderPass
	Pipeline() core1_0.Pipeline
	Layout() core1_0.PipelineLayout
}

// Geometry is the uploaded mesh.
type Geometry struct {
	Vertices   core1_0.Buffer
	Indices    core1_0.Buffer
	IndexCount int
}

type Recorder struct {
	device   core1_0.DeviceDriver
	target   Target
	geometry Geometry
	sets     []core1_0.DescriptorSet
}

// New returns a recorder drawing geometry into target. sets holds one
// descriptor set per frame slot.
func New(device core1_0.DeviceDriver, target Target, geometry Geometry, sets []core1_0.DescriptorSet) *Recorder {
	return &Recorder{
		device:   device,
		target:   target,
		geometry: geometry,
		sets:     sets,
	}
}

// Record writes the frame's commands into cb, which must be reset. The
// extent is read at record time so a rebuilt swapchain needs no new
// recorder.
func (r *Recorder) Record(cb core1_0.CommandBuffer, imageIndex, frameIndex int) error {
	extent := r.target.Extent()

	_, err := r.device.BeginCommandBuffer(cb, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "failed to begin recording command buffer")
	}

	err = r.device.CmdBeginRenderPass(cb, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  r.target.RenderPass(),
			Framebuffer: r.target.Framebuffer(imageIndex),
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 1},
				core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
			},
		})
	if err != nil {
		return errors.Wrap(err, "failed to begin render pass")
	}

	r.device.CmdBindPipeline(cb, core1_0.PipelineBindPointGraphics, r.target.Pipeline())
	r.device.CmdSetViewport(cb, core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	r.device.CmdSetScissor(cb, core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})
	r.device.CmdBindVertexBuffers(cb, 0, []core1_0.Buffer{r.geometry.Vertices}, []int{0})
	r.device.CmdBindIndexBuffer(cb, r.geometry.Indices, 0, core1_0.IndexTypeUInt32)
	r.device.CmdBindDescriptorSets(cb, core1_0.PipelineBindPointGraphics, r.target.Layout(), 0, []core1_0.DescriptorSet{
		r.sets[frameIndex],
	}, nil)
	r.device.CmdDrawIndexed(cb, r.geometry.IndexCount, 1, 0, 0, 0)
	r.device.CmdEndRenderPass(cb)

	_, err = r.device.EndCommandBuffer(cb)
	return errors.Wrap(err, "failed to record command buffer")
}
