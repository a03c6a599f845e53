// Package resource allocates the GPU objects the renderer draws with and is
// the only component that releases them.
package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/meshviewer/internal/vkctx"
)

// Releaser is any scoped GPU object.
type Releaser interface {
	Destroy()
}

type Manager struct {
	ctx    *vkctx.Context
	device core1_0.DeviceDriver
	memory *core1_0.PhysicalDeviceMemoryProperties

	graphicsPool core1_0.CommandPool
	transferPool core1_0.CommandPool

	tracked []Releaser
}

// NewManager creates the graphics command pool (resettable buffers, used for
// frame recording and layout transitions) and the transient transfer pool
// used for buffer uploads.
func NewManager(ctx *vkctx.Context) (*Manager, error) {
	m := &Manager{
		ctx:    ctx,
		device: ctx.Device,
		memory: ctx.MemoryProperties(),
	}

	var err error
	m.graphicsPool, _, err = m.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: ctx.Graphics.Family,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create graphics command pool")
	}

	m.transferPool, _, err = m.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: ctx.Transfer.Family,
	})
	if err != nil {
		m.device.DestroyCommandPool(m.graphicsPool, nil)
		return nil, errors.Wrap(err, "failed to create transfer command pool")
	}

	return m, nil
}

func (m *Manager) Context() *vkctx.Context {
	return m.ctx
}

// Track hands r to the manager, which releases it during Destroy. Objects
// are released in reverse order of tracking, so anything that depends on an
// earlier object must be tracked after it.
func (m *Manager) Track(r Releaser) {
	m.tracked = append(m.tracked, r)
}

// AllocateCommandBuffers allocates primary buffers from the graphics pool.
func (m *Manager) AllocateCommandBuffers(count int) ([]core1_0.CommandBuffer, error) {
	buffers, _, err := m.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        m.graphicsPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate command buffers")
	}

	return buffers, nil
}

func (m *Manager) Destroy() {
	for i := len(m.tracked) - 1; i >= 0; i-- {
		m.tracked[i].Destroy()
	}
	m.tracked = nil

	if m.transferPool.Initialized() {
		m.device.DestroyCommandPool(m.transferPool, nil)
		m.transferPool = core1_0.CommandPool{}
	}

	if m.graphicsPool.Initialized() {
		m.device.DestroyCommandPool(m.graphicsPool, nil)
		m.graphicsPool = core1_0.CommandPool{}
	}
}

// oneShot records and submits a single command buffer and blocks until the
// queue is idle. The buffer is freed however recording or submission ends.
func (m *Manager) oneShot(queue vkctx.Queue, pool core1_0.CommandPool, record func(cb core1_0.CommandBuffer) error) error {
	buffers, _, err := m.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to allocate one-shot command buffer")
	}

	buffer := buffers[0]
	defer m.device.FreeCommandBuffers(buffer)

	_, err = m.device.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "failed to begin one-shot command buffer")
	}

	err = record(buffer)
	if err != nil {
		return err
	}

	_, err = m.device.EndCommandBuffer(buffer)
	if err != nil {
		return errors.Wrap(err, "failed to end one-shot command buffer")
	}

	_, err = m.device.QueueSubmit(queue.Handle, nil, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{buffer},
	})
	if err != nil {
		return errors.Wrap(err, "failed to submit one-shot command buffer")
	}

	_, err = m.device.QueueWaitIdle(queue.Handle)
	return errors.Wrap(err, "failed to wait for one-shot submission")
}
