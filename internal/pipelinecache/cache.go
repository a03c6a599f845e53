// Package pipelinecache persists the driver's pipeline cache between runs.
//
// A cache file is only fed back to the driver when its header names the same
// vendor, device and pipeline cache UUID as the running device. Anything else
// is deleted so the next run can repopulate it.
package pipelinecache

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/meshviewer/internal/logging"
)

// ErrHeaderMismatch is returned by Validate when cache data was written by a
// different device or driver.
var ErrHeaderMismatch = errors.New("pipeline cache header does not match device")

// Header is the fixed prefix of pipeline cache data.
type Header struct {
	Length   uint32
	Version  core1_0.PipelineCacheHeaderVersion
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

// HeaderSize is the encoded size of Header.
var HeaderSize = binary.Size(Header{})

// ParseHeader decodes the header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	var header Header
	err := binary.Read(bytes.NewReader(data), common.ByteOrder, &header)
	if err != nil {
		return Header{}, errors.Wrap(err, "failed to read pipeline cache header")
	}
	return header, nil
}

// Validate checks that data was produced by the device described by props.
func Validate(data []byte, props *core1_0.PhysicalDeviceProperties) error {
	header, err := ParseHeader(data)
	if err != nil {
		return err
	}

	if header.Length == 0 {
		return errors.Wrap(ErrHeaderMismatch, "bad header length")
	}
	if header.Version != core1_0.PipelineCacheHeaderVersionOne {
		return errors.Wrapf(ErrHeaderMismatch, "unsupported header version %d", header.Version)
	}
	if header.VendorID != props.VendorID {
		return errors.Wrapf(ErrHeaderMismatch, "vendor %#x, device expects %#x", header.VendorID, props.VendorID)
	}
	if header.DeviceID != props.DeviceID {
		return errors.Wrapf(ErrHeaderMismatch, "device %#x, device expects %#x", header.DeviceID, props.DeviceID)
	}
	if header.UUID != props.PipelineCacheUUID {
		return errors.Wrapf(ErrHeaderMismatch, "uuid %s, device expects %s", header.UUID, props.PipelineCacheUUID)
	}

	return nil
}

// Load returns the cache data stored at path, or nil when there is none. A
// file that fails validation is removed and reported as a miss.
func Load(path string, props *core1_0.PhysicalDeviceProperties) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Logger().Info("pipeline cache miss", "path", path)
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read pipeline cache %s", path)
	}

	err = Validate(data, props)
	if err != nil {
		logging.Logger().Warn("discarding pipeline cache", "path", path, "reason", err)

		// not important if this fails
		_ = os.Remove(path)
		return nil, nil
	}

	logging.Logger().Info("pipeline cache hit", "path", path, "bytes", len(data))
	return data, nil
}

// Save writes data to path, replacing any previous file.
func Save(path string, data []byte) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "failed to create pipeline cache directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create pipeline cache file")
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err != nil {
		return errors.Wrapf(err, "failed to write pipeline cache %s", path)
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to replace pipeline cache")
}

// Cache is a device pipeline cache seeded from, and saved back to, a file.
// An empty path keeps the cache in memory only.
type Cache struct {
	Handle core1_0.PipelineCache
	// Seeded reports whether valid data was read from disk.
	Seeded bool

	device core1_0.DeviceDriver
	path   string
}

func Open(device core1_0.DeviceDriver, props *core1_0.PhysicalDeviceProperties, path string) (*Cache, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = Load(path, props)
		if err != nil {
			return nil, err
		}
	}

	handle, _, err := device.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pipeline cache")
	}

	return &Cache{
		Handle: handle,
		Seeded: data != nil,
		device: device,
		path:   path,
	}, nil
}

// Save stores the driver's current cache contents.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}

	data, _, err := c.device.GetPipelineCacheData(c.Handle)
	if err != nil {
		return errors.Wrap(err, "failed to read pipeline cache data")
	}

	err = Save(c.path, data)
	if err != nil {
		return err
	}

	logging.Logger().Info("saved pipeline cache", "path", c.path, "bytes", len(data))
	return nil
}

func (c *Cache) Destroy() {
	if c.Handle.Initialized() {
		c.device.DestroyPipelineCache(c.Handle, nil)
		c.Handle = core1_0.PipelineCache{}
	}
}
