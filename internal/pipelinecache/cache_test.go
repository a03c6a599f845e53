package pipelinecache

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_0"
	"go.uber.org/mock/gomock"
)

func deviceProperties() *core1_0.PhysicalDeviceProperties {
	return &core1_0.PhysicalDeviceProperties{
		VendorID:          0x10de,
		DeviceID:          0x2684,
		PipelineCacheUUID: uuid.MustParse("6f1c3c5a-0b7e-4d2a-9a43-51f0f3a0c2d1"),
	}
}

func cacheData(t *testing.T, header Header, body []byte) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, common.ByteOrder, header))
	buf.Write(body)
	return buf.Bytes()
}

func goodHeader(props *core1_0.PhysicalDeviceProperties) Header {
	return Header{
		Length:   uint32(HeaderSize),
		Version:  core1_0.PipelineCacheHeaderVersionOne,
		VendorID: props.VendorID,
		DeviceID: props.DeviceID,
		UUID:     props.PipelineCacheUUID,
	}
}

func TestHeaderSize(t *testing.T) {
	require.Equal(t, 32, HeaderSize)
}

func TestValidate(t *testing.T) {
	props := deviceProperties()

	testCases := []struct {
		name   string
		modify func(*Header)
		valid  bool
	}{
		{name: "matching", modify: func(*Header) {}, valid: true},
		{name: "zero length", modify: func(h *Header) { h.Length = 0 }},
		{name: "version", modify: func(h *Header) { h.Version = 2 }},
		{name: "vendor", modify: func(h *Header) { h.VendorID = 0x1002 }},
		{name: "device", modify: func(h *Header) { h.DeviceID++ }},
		{name: "uuid", modify: func(h *Header) { h.UUID = uuid.Nil }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header := goodHeader(props)
			tc.modify(&header)

			err := Validate(cacheData(t, header, []byte{1, 2, 3}), props)
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.True(t, errors.Is(err, ErrHeaderMismatch), "got %v", err)
			}
		})
	}
}

func TestValidateShortData(t *testing.T) {
	err := Validate([]byte{32, 0, 0, 0, 1}, deviceProperties())
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrHeaderMismatch))
}

func TestLoadMissingFile(t *testing.T) {
	data, err := Load(filepath.Join(t.TempDir(), "absent.bin"), deviceProperties())
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestLoadDeletesMismatchedFile(t *testing.T) {
	props := deviceProperties()
	path := filepath.Join(t.TempDir(), "pipeline.bin")

	header := goodHeader(props)
	header.DeviceID = 1
	require.NoError(t, os.WriteFile(path, cacheData(t, header, nil), 0o644))

	data, err := Load(path, props)
	require.NoError(t, err)
	require.Nil(t, data)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSaveThenLoad(t *testing.T) {
	props := deviceProperties()
	path := filepath.Join(t.TempDir(), "nested", "pipeline.bin")
	want := cacheData(t, goodHeader(props), []byte("driver blob"))

	require.NoError(t, Save(path, want))
	// Saving again replaces the file.
	require.NoError(t, Save(path, want))

	got, err := Load(path, props)
	require.NoError(t, err)
	require.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestOpenSeedsAndSaves(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewDummyDevice(common.Vulkan1_0, []string{})
	driver := mocks1_0.NewMockDeviceDriver(ctrl)

	props := deviceProperties()
	path := filepath.Join(t.TempDir(), "pipeline.bin")
	seed := cacheData(t, goodHeader(props), []byte("seed"))
	require.NoError(t, os.WriteFile(path, seed, 0o644))

	handle := mocks.NewDummyPipelineCache(device)
	updated := cacheData(t, goodHeader(props), []byte("seed and more"))

	driver.EXPECT().CreatePipelineCache(gomock.Nil(), core1_0.PipelineCacheCreateInfo{InitialData: seed}).
		Return(handle, core1_0.VKSuccess, nil)
	driver.EXPECT().GetPipelineCacheData(handle).Return(updated, core1_0.VKSuccess, nil)
	driver.EXPECT().DestroyPipelineCache(handle, gomock.Nil())

	cache, err := Open(driver, props, path)
	require.NoError(t, err)
	require.True(t, cache.Seeded)

	require.NoError(t, cache.Save())
	cache.Destroy()
	cache.Destroy()

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, updated, onDisk)
}

func TestOpenWithoutPathStaysInMemory(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewDummyDevice(common.Vulkan1_0, []string{})
	driver := mocks1_0.NewMockDeviceDriver(ctrl)

	driver.EXPECT().CreatePipelineCache(gomock.Nil(), core1_0.PipelineCacheCreateInfo{}).
		Return(mocks.NewDummyPipelineCache(device), core1_0.VKSuccess, nil)

	cache, err := Open(driver, deviceProperties(), "")
	require.NoError(t, err)
	require.False(t, cache.Seeded)

	// No GetPipelineCacheData call.
	require.NoError(t, cache.Save())
}
