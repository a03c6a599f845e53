package vktest

import (
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_0"
	"go.uber.org/mock/gomock"
)

// StubInstance reports one memory type with every property and every depth
// format as an optimally tiled depth attachment.
func StubInstance(instance *mocks1_0.MockCoreInstanceDriver) {
	instance.EXPECT().GetPhysicalDeviceMemoryProperties(gomock.Any()).Return(&core1_0.PhysicalDeviceMemoryProperties{
		MemoryTypes: []core1_0.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
		},
	}).AnyTimes()
	instance.EXPECT().GetPhysicalDeviceFormatProperties(gomock.Any(), gomock.Any()).Return(&core1_0.FormatProperties{
		OptimalTilingFeatures: core1_0.FormatFeatureDepthStencilAttachment | core1_0.FormatFeatureSampledImage,
	}).AnyTimes()
}

// Objects counts live handles created through StubSwapObjects.
type Objects struct {
	Images       int
	Memory       int
	Views        int
	Framebuffers int
	RenderPasses int
	Pipelines    int
	Layouts      int

	Submits int
}

// StubSwapObjects lets every call a swap pipeline build, rebuild or teardown
// makes on driver succeed with dummy handles, and tracks what is live.
func StubSwapObjects(driver *mocks1_0.MockDeviceDriver, device core1_0.Device) *Objects {
	live := &Objects{}

	driver.EXPECT().CreateImage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, _ core1_0.ImageCreateInfo) (core1_0.Image, common.VkResult, error) {
			live.Images++
			return mocks.NewDummyImage(device), core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().DestroyImage(gomock.Any(), gomock.Any()).Do(
		func(core1_0.Image, *loader.AllocationCallbacks) { live.Images-- }).AnyTimes()
	driver.EXPECT().GetImageMemoryRequirements(gomock.Any()).Return(&core1_0.MemoryRequirements{
		Size:           4096,
		Alignment:      256,
		MemoryTypeBits: 0b1,
	}).AnyTimes()
	driver.EXPECT().AllocateMemory(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, o core1_0.MemoryAllocateInfo) (core1_0.DeviceMemory, common.VkResult, error) {
			live.Memory++
			return mocks.NewDummyDeviceMemory(device, o.AllocationSize), core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().FreeMemory(gomock.Any(), gomock.Any()).Do(
		func(core1_0.DeviceMemory, *loader.AllocationCallbacks) { live.Memory-- }).AnyTimes()
	driver.EXPECT().BindImageMemory(gomock.Any(), gomock.Any(), gomock.Any()).Return(core1_0.VKSuccess, nil).AnyTimes()

	driver.EXPECT().CreateImageView(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, _ core1_0.ImageViewCreateInfo) (core1_0.ImageView, common.VkResult, error) {
			live.Views++
			return mocks.NewDummyImageView(device), core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().DestroyImageView(gomock.Any(), gomock.Any()).Do(
		func(core1_0.ImageView, *loader.AllocationCallbacks) { live.Views-- }).AnyTimes()

	// Command buffers, for one-shot layout transitions and frame recording.
	driver.EXPECT().AllocateCommandBuffers(gomock.Any()).DoAndReturn(
		func(o core1_0.CommandBufferAllocateInfo) ([]core1_0.CommandBuffer, common.VkResult, error) {
			buffers := make([]core1_0.CommandBuffer, o.CommandBufferCount)
			for i := range buffers {
				buffers[i] = mocks.NewDummyCommandBuffer(o.CommandPool, device)
			}
			return buffers, core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().FreeCommandBuffers(gomock.Any()).AnyTimes()
	driver.EXPECT().BeginCommandBuffer(gomock.Any(), gomock.Any()).Return(core1_0.VKSuccess, nil).AnyTimes()
	driver.EXPECT().EndCommandBuffer(gomock.Any()).Return(core1_0.VKSuccess, nil).AnyTimes()
	driver.EXPECT().CmdPipelineBarrier(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	driver.EXPECT().QueueSubmit(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ core1_0.Queue, _ *core1_0.Fence, _ ...core1_0.SubmitInfo) (common.VkResult, error) {
			live.Submits++
			return core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().QueueWaitIdle(gomock.Any()).Return(core1_0.VKSuccess, nil).AnyTimes()
	driver.EXPECT().DeviceWaitIdle().Return(core1_0.VKSuccess, nil).AnyTimes()

	driver.EXPECT().CreateRenderPass(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, _ core1_0.RenderPassCreateInfo) (core1_0.RenderPass, common.VkResult, error) {
			live.RenderPasses++
			return mocks.NewDummyRenderPass(device), core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().DestroyRenderPass(gomock.Any(), gomock.Any()).Do(
		func(core1_0.RenderPass, *loader.AllocationCallbacks) { live.RenderPasses-- }).AnyTimes()
	driver.EXPECT().CreatePipelineLayout(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, _ core1_0.PipelineLayoutCreateInfo) (core1_0.PipelineLayout, common.VkResult, error) {
			live.Layouts++
			return mocks.NewDummyPipelineLayout(device), core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().DestroyPipelineLayout(gomock.Any(), gomock.Any()).Do(
		func(core1_0.PipelineLayout, *loader.AllocationCallbacks) { live.Layouts-- }).AnyTimes()
	driver.EXPECT().CreateGraphicsPipelines(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ *core1_0.PipelineCache, _ *loader.AllocationCallbacks, o ...core1_0.GraphicsPipelineCreateInfo) ([]core1_0.Pipeline, common.VkResult, error) {
			live.Pipelines += len(o)
			pipelines := make([]core1_0.Pipeline, len(o))
			for i := range pipelines {
				pipelines[i] = mocks.NewDummyPipeline(device)
			}
			return pipelines, core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().DestroyPipeline(gomock.Any(), gomock.Any()).Do(
		func(core1_0.Pipeline, *loader.AllocationCallbacks) { live.Pipelines-- }).AnyTimes()

	driver.EXPECT().CreateFramebuffer(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ *loader.AllocationCallbacks, _ core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, common.VkResult, error) {
			live.Framebuffers++
			return mocks.NewDummyFramebuffer(device), core1_0.VKSuccess, nil
		}).AnyTimes()
	driver.EXPECT().DestroyFramebuffer(gomock.Any(), gomock.Any()).Do(
		func(core1_0.Framebuffer, *loader.AllocationCallbacks) { live.Framebuffers-- }).AnyTimes()

	return live
}
