// Package frame drives the per-frame loop: it keeps MaxFramesInFlight frame
// slots cycling through acquire, record, submit and present, and rebuilds
// the swapchain when the surface stops matching it.
package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/meshviewer/internal/logging"
	"github.com/vkngwrapper/meshviewer/internal/resource"
	"github.com/vkngwrapper/meshviewer/internal/vkctx"
)

const MaxFramesInFlight = 2

// Chain is the swapchain side of a frame, satisfied by *swap.Pipeline.
type Chain interface {
	Acquire(signal core1_0.Semaphore) (int, common.VkResult, error)
	Present(queue core1_0.Queue, wait core1_0.Semaphore, imageIndex int) (common.VkResult, error)
	Rebuild(requested core1_0.Extent2D) error
	Extent() core1_0.Extent2D
}

// ExtentSource reports the current drawable size of the window. A zero
// extent means the window is minimized.
type ExtentSource interface {
	DrawableExtent() core1_0.Extent2D
}

// Recorder fills a reset command buffer for one swapchain image.
type Recorder interface {
	Record(cb core1_0.CommandBuffer, imageIndex, frameIndex int) error
}

type Kind int

const (
	// OutcomePresented means the frame was submitted and handed to the
	// presentation engine.
	OutcomePresented Kind = iota
	// OutcomeStale means acquire found the swapchain out of date. Nothing
	// was submitted.
	OutcomeStale
)

func (k Kind) String() string {
	switch k {
	case OutcomePresented:
		return "presented"
	case OutcomeStale:
		return "stale"
	}
	return "unknown"
}

type Outcome struct {
	Kind Kind
	// Rebuilt reports whether the swapchain was rebuilt during the tick.
	Rebuilt bool
}

type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateRecording
	StatePresenting
)

type slot struct {
	imageAvailable core1_0.Semaphore
	renderFinished core1_0.Semaphore
	inFlight       core1_0.Fence
	commandBuffer  core1_0.CommandBuffer
	uniforms       []byte

	state State
}

type Options struct {
	Chain    Chain
	Source   ExtentSource
	Recorder Recorder

	// Uniforms holds one persistently mapped buffer per slot.
	Uniforms []*resource.Buffer
}

type Scheduler struct {
	device   core1_0.DeviceDriver
	graphics core1_0.Queue
	present  core1_0.Queue

	chain    Chain
	source   ExtentSource
	recorder Recorder

	slots   []slot
	current int
	resized bool

	clock func() float64
}

func New(ctx *vkctx.Context, res *resource.Manager, opts Options) (*Scheduler, error) {
	if len(opts.Uniforms) != MaxFramesInFlight {
		return nil, errors.Newf("need %d uniform buffers, got %d", MaxFramesInFlight, len(opts.Uniforms))
	}

	start := hrtime.Now()
	s := &Scheduler{
		device:   ctx.Device,
		graphics: ctx.Graphics.Handle,
		present:  ctx.Present.Handle,
		chain:    opts.Chain,
		source:   opts.Source,
		recorder: opts.Recorder,
		clock: func() float64 {
			return hrtime.Since(start).Seconds()
		},
	}

	commandBuffers, err := res.AllocateCommandBuffers(MaxFramesInFlight)
	if err != nil {
		return nil, err
	}

	for i := 0; i < MaxFramesInFlight; i++ {
		sl := slot{
			commandBuffer: commandBuffers[i],
			uniforms:      opts.Uniforms[i].Mapped,
		}

		sl.imageAvailable, _, err = s.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err == nil {
			sl.renderFinished, _, err = s.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		}
		if err == nil {
			sl.inFlight, _, err = s.device.CreateFence(nil, core1_0.FenceCreateInfo{
				Flags: core1_0.FenceCreateSignaled,
			})
		}

		s.slots = append(s.slots, sl)
		if err != nil {
			s.release()
			return nil, errors.Wrapf(err, "failed to create sync objects for frame %d", i)
		}
	}

	return s, nil
}

// NotifyResized asks for a rebuild at the end of the next presented frame.
func (s *Scheduler) NotifyResized() {
	s.resized = true
}

// Resized reports whether a rebuild is still pending.
func (s *Scheduler) Resized() bool { return s.resized }

// Current is the index of the slot the next Tick uses.
func (s *Scheduler) Current() int { return s.current }

func (s *Scheduler) State(frameIndex int) State { return s.slots[frameIndex].state }

// Tick renders one frame. Stale and suboptimal surfaces are handled here and
// never returned as errors; any error returned is fatal.
func (s *Scheduler) Tick() (Outcome, error) {
	frameIndex := s.current
	sl := &s.slots[frameIndex]

	sl.state = StateAcquiring
	_, err := s.device.WaitForFences(true, common.NoTimeout, sl.inFlight)
	if err != nil {
		return Outcome{}, errors.Wrapf(err, "failed to wait for frame %d", frameIndex)
	}

	imageIndex, res, err := s.chain.Acquire(sl.imageAvailable)
	if res == khr_swapchain.VKErrorOutOfDate {
		sl.state = StateIdle
		logging.Logger().Debug("swapchain out of date on acquire", "frame", frameIndex)

		rebuilt, err := s.rebuild()
		return Outcome{Kind: OutcomeStale, Rebuilt: rebuilt}, err
	} else if err != nil {
		return Outcome{}, errors.Wrap(err, "failed to acquire swapchain image")
	} else if res != core1_0.VKSuccess && res != khr_swapchain.VKSuboptimal {
		return Outcome{}, errors.Newf("unexpected acquire result %s", res)
	}

	_, err = s.device.ResetFences(sl.inFlight)
	if err != nil {
		return Outcome{}, errors.Wrapf(err, "failed to reset fence for frame %d", frameIndex)
	}

	sl.state = StateRecording
	ubo := Uniforms(s.chain.Extent(), s.clock())
	err = writeUniforms(sl.uniforms, &ubo)
	if err != nil {
		return Outcome{}, err
	}

	_, err = s.device.ResetCommandBuffer(sl.commandBuffer, 0)
	if err != nil {
		return Outcome{}, errors.Wrapf(err, "failed to reset command buffer for frame %d", frameIndex)
	}

	err = s.recorder.Record(sl.commandBuffer, imageIndex, frameIndex)
	if err != nil {
		return Outcome{}, err
	}

	_, err = s.device.QueueSubmit(s.graphics, &sl.inFlight,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{sl.imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{sl.commandBuffer},
			SignalSemaphores: []core1_0.Semaphore{sl.renderFinished},
		},
	)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "failed to submit draw command buffer")
	}

	sl.state = StatePresenting
	res, err = s.chain.Present(s.present, sl.renderFinished, imageIndex)
	if err != nil && res != khr_swapchain.VKErrorOutOfDate {
		return Outcome{}, errors.Wrap(err, "failed to present swapchain image")
	}

	outcome := Outcome{Kind: OutcomePresented}
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal || s.resized {
		logging.Logger().Debug("rebuilding swapchain after present",
			"result", res,
			"resized", s.resized)

		outcome.Rebuilt, err = s.rebuild()
		if err != nil {
			return Outcome{}, err
		}
	}

	sl.state = StateIdle
	s.current = (s.current + 1) % MaxFramesInFlight

	return outcome, nil
}

// rebuild recreates the swapchain at the window's drawable size. While the
// window is minimized it does nothing and leaves the resize flag set.
func (s *Scheduler) rebuild() (bool, error) {
	extent := s.source.DrawableExtent()
	if extent.Width == 0 || extent.Height == 0 {
		s.resized = true
		logging.Logger().Debug("deferring swapchain rebuild while minimized")
		return false, nil
	}

	err := s.chain.Rebuild(extent)
	if err != nil {
		return false, err
	}

	s.resized = false
	return true, nil
}

// Destroy waits for the device to finish every in-flight frame, then
// releases the slots' semaphores and fences. Command buffers go with their
// pool.
func (s *Scheduler) Destroy() error {
	_, err := s.device.DeviceWaitIdle()
	if err != nil {
		return errors.Wrap(err, "failed to wait for device idle")
	}

	s.release()
	return nil
}

func (s *Scheduler) release() {
	for i := range s.slots {
		sl := &s.slots[i]

		if sl.imageAvailable.Initialized() {
			s.device.DestroySemaphore(sl.imageAvailable, nil)
		}
		if sl.renderFinished.Initialized() {
			s.device.DestroySemaphore(sl.renderFinished, nil)
		}
		if sl.inFlight.Initialized() {
			s.device.DestroyFence(sl.inFlight, nil)
		}
	}
	s.slots = nil
}
