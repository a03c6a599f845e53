// Package platform owns the SDL window the renderer presents to.
package platform

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

// MinSize is the smallest width or height a window may have.
const MinSize = 100

var ErrInvalidSize = errors.New("window dimensions must be at least 100x100")

// ValidateSize reports whether a width x height window is allowed.
func ValidateSize(width, height int) error {
	if width < MinSize || height < MinSize {
		return errors.Wrapf(ErrInvalidSize, "requested %dx%d", width, height)
	}
	return nil
}

// Events summarizes everything that happened since the last Poll.
type Events struct {
	Quit      bool
	Resized   bool
	Minimized bool
	Restored  bool
}

type Window struct {
	handle *sdl.Window
}

// Open creates a resizable Vulkan-capable window. The size is checked before
// SDL is touched, so an invalid size creates nothing.
func Open(title string, width, height int) (*Window, error) {
	err := ValidateSize(width, height)
	if err != nil {
		return nil, err
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "failed to initialize SDL video")
	}

	handle, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "failed to create window")
	}

	return &Window{handle: handle}, nil
}

// Resize changes the window size, applying the same limits as Open.
func (w *Window) Resize(width, height int) error {
	err := ValidateSize(width, height)
	if err != nil {
		return err
	}

	w.handle.SetSize(int32(width), int32(height))
	return nil
}

// Poll drains the SDL event queue.
func (w *Window) Poll() Events {
	var events Events
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		events.apply(event)
	}
	return events
}

func (e *Events) apply(event sdl.Event) {
	switch ev := event.(type) {
	case *sdl.QuitEvent:
		e.Quit = true
	case *sdl.WindowEvent:
		switch ev.Event {
		case sdl.WINDOWEVENT_MINIMIZED:
			e.Minimized = true
			e.Restored = false
		case sdl.WINDOWEVENT_RESTORED:
			e.Restored = true
			e.Minimized = false
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			e.Resized = true
		case sdl.WINDOWEVENT_CLOSE:
			e.Quit = true
		}
	}
}

// DrawableExtent is the size of the window in pixels, or zero while the
// window is minimized.
func (w *Window) DrawableExtent() core1_0.Extent2D {
	if w.Minimized() {
		return core1_0.Extent2D{}
	}

	width, height := w.handle.VulkanGetDrawableSize()
	return core1_0.Extent2D{Width: int(width), Height: int(height)}
}

func (w *Window) Minimized() bool {
	return (w.handle.GetFlags() & sdl.WINDOW_MINIMIZED) != 0
}

// Idle yields briefly while there is nothing to draw.
func (w *Window) Idle() {
	sdl.Delay(10)
}

// GlobalDriver loads Vulkan through SDL's loader.
func (w *Window) GlobalDriver() (core1_0.GlobalDriver, error) {
	driver, err := core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load vulkan")
	}
	return driver, nil
}

func (w *Window) InstanceExtensions() []string {
	return w.handle.VulkanGetInstanceExtensions()
}

func (w *Window) CreateSurface(instance core1_0.Instance, surfaces khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	return vkng_sdl2.CreateSurface(instance, surfaces, w.handle)
}

func (w *Window) Close() {
	if w.handle != nil {
		_ = w.handle.Destroy()
		w.handle = nil
	}
	sdl.Quit()
}
