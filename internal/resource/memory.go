package resource

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// ErrNoMemoryType is returned when no memory type satisfies both the
// resource's requirements and the requested properties.
var ErrNoMemoryType = errors.New("failed to find any suitable memory type")

// FindMemoryType returns the first memory type allowed by typeFilter that has
// every flag in properties.
func FindMemoryType(memProperties *core1_0.PhysicalDeviceMemoryProperties, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Wrapf(ErrNoMemoryType, "filter %#x, properties %s", typeFilter, properties)
}

func (m *Manager) allocate(requirements *core1_0.MemoryRequirements, properties core1_0.MemoryPropertyFlags) (core1_0.DeviceMemory, error) {
	memoryIndex, err := FindMemoryType(m.memory, requirements.MemoryTypeBits, properties)
	if err != nil {
		return core1_0.DeviceMemory{}, err
	}

	memory, _, err := m.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		return core1_0.DeviceMemory{}, errors.Wrap(err, "failed to allocate device memory")
	}

	return memory, nil
}

// Buffer is a buffer handle bound to memory it exclusively owns.
type Buffer struct {
	Handle core1_0.Buffer
	Memory core1_0.DeviceMemory
	Size   int

	// Mapped aliases the buffer memory while it is persistently mapped.
	Mapped []byte

	device core1_0.DeviceDriver
}

func (m *Manager) CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*Buffer, error) {
	createInfo := core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	}

	// Uploads run on the transfer queue but the draw reads on the graphics queue.
	if m.ctx.Graphics.Family != m.ctx.Transfer.Family {
		createInfo.SharingMode = core1_0.SharingModeConcurrent
		createInfo.QueueFamilyIndices = []int{m.ctx.Graphics.Family, m.ctx.Transfer.Family}
	}

	handle, _, err := m.device.CreateBuffer(nil, createInfo)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create buffer of %d bytes", size)
	}

	buffer := &Buffer{Handle: handle, Size: size, device: m.device}

	buffer.Memory, err = m.allocate(m.device.GetBufferMemoryRequirements(handle), properties)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	_, err = m.device.BindBufferMemory(handle, buffer.Memory, 0)
	if err != nil {
		buffer.Destroy()
		return nil, errors.Wrap(err, "failed to bind buffer memory")
	}

	return buffer, nil
}

// CreateMappedBuffer creates a host-visible, coherent buffer that stays
// mapped until Destroy.
func (m *Manager) CreateMappedBuffer(size int, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	buffer, err := m.CreateBuffer(size, usage, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}

	ptr, _, err := m.device.MapMemory(buffer.Memory, 0, size, 0)
	if err != nil {
		buffer.Destroy()
		return nil, errors.Wrap(err, "failed to map buffer memory")
	}
	buffer.Mapped = unsafe.Slice((*byte)(ptr), size)

	return buffer, nil
}

// write copies data to the start of a host-visible buffer through a
// temporary mapping.
func (b *Buffer) write(data []byte) error {
	ptr, _, err := b.device.MapMemory(b.Memory, 0, len(data), 0)
	if err != nil {
		return errors.Wrap(err, "failed to map staging memory")
	}
	defer b.device.UnmapMemory(b.Memory)

	copy(unsafe.Slice((*byte)(ptr), len(data)), data)
	return nil
}

func (b *Buffer) Destroy() {
	if b.Mapped != nil {
		b.device.UnmapMemory(b.Memory)
		b.Mapped = nil
	}

	if b.Handle.Initialized() {
		b.device.DestroyBuffer(b.Handle, nil)
		b.Handle = core1_0.Buffer{}
	}

	if b.Memory.Initialized() {
		b.device.FreeMemory(b.Memory, nil)
		b.Memory = core1_0.DeviceMemory{}
	}
}
