package platform

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/veandco/go-sdl2/sdl"
)

func TestValidateSize(t *testing.T) {
	testCases := []struct {
		width, height int
		valid         bool
	}{
		{100, 100, true},
		{1280, 1024, true},
		{99, 1024, false},
		{1280, 99, false},
		{0, 0, false},
		{-100, 200, false},
	}

	for _, tc := range testCases {
		err := ValidateSize(tc.width, tc.height)
		if tc.valid {
			require.NoError(t, err, "%dx%d", tc.width, tc.height)
		} else {
			require.True(t, errors.Is(err, ErrInvalidSize), "%dx%d", tc.width, tc.height)
		}
	}
}

func TestOpenRejectsSmallWindowWithoutSDL(t *testing.T) {
	window, err := Open("small", 99, 99)
	require.Nil(t, window)
	require.True(t, errors.Is(err, ErrInvalidSize))
	require.Zero(t, sdl.WasInit(sdl.INIT_VIDEO))
}

func TestResizeRejectsSmallWindow(t *testing.T) {
	// The handle is never touched when validation fails.
	w := &Window{}
	require.True(t, errors.Is(w.Resize(1280, 50), ErrInvalidSize))
}

func TestEventsApply(t *testing.T) {
	var events Events
	events.apply(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED})
	events.apply(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_MINIMIZED})
	require.Equal(t, Events{Resized: true, Minimized: true}, events)

	events.apply(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESTORED})
	require.Equal(t, Events{Resized: true, Restored: true}, events)

	events.apply(&sdl.QuitEvent{})
	require.True(t, events.Quit)
}
