package resource

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// DescriptorLayout is the single set layout the mesh pipeline binds:
// binding 0 is the vertex-stage uniform buffer, binding 1 the fragment-stage
// combined image sampler.
type DescriptorLayout struct {
	Handle core1_0.DescriptorSetLayout

	device core1_0.DeviceDriver
}

func (m *Manager) CreateDescriptorLayout() (*DescriptorLayout, error) {
	handle, _, err := m.device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create descriptor set layout")
	}

	return &DescriptorLayout{Handle: handle, device: m.device}, nil
}

func (l *DescriptorLayout) Destroy() {
	if l.Handle.Initialized() {
		l.device.DestroyDescriptorSetLayout(l.Handle, nil)
		l.Handle = core1_0.DescriptorSetLayout{}
	}
}

// DescriptorSets owns a pool sized for exactly one set per frame slot.
// Destroying the pool frees the sets.
type DescriptorSets struct {
	Pool core1_0.DescriptorPool
	Sets []core1_0.DescriptorSet

	device core1_0.DeviceDriver
}

// CreateDescriptorSets allocates one set per uniform buffer and points each
// at its buffer and at the shared texture.
func (m *Manager) CreateDescriptorSets(layout *DescriptorLayout, uniforms []*Buffer, view *ImageView, sampler *Sampler) (*DescriptorSets, error) {
	count := len(uniforms)

	pool, _, err := m.device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: count,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{Type: core1_0.DescriptorTypeUniformBuffer, DescriptorCount: count},
			{Type: core1_0.DescriptorTypeCombinedImageSampler, DescriptorCount: count},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create descriptor pool")
	}

	sets := &DescriptorSets{Pool: pool, device: m.device}

	layouts := make([]core1_0.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout.Handle
	}

	sets.Sets, _, err = m.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: pool,
		SetLayouts:     layouts,
	})
	if err != nil {
		sets.Destroy()
		return nil, errors.Wrap(err, "failed to allocate descriptor sets")
	}

	for i, set := range sets.Sets {
		err = m.device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          set,
				DstBinding:      0,
				DstArrayElement: 0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				BufferInfo: []core1_0.DescriptorBufferInfo{
					{Buffer: uniforms[i].Handle, Offset: 0, Range: uniforms[i].Size},
				},
			},
			{
				DstSet:          set,
				DstBinding:      1,
				DstArrayElement: 0,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				ImageInfo: []core1_0.DescriptorImageInfo{
					{
						ImageView:   view.Handle,
						Sampler:     sampler.Handle,
						ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
					},
				},
			},
		}, nil)
		if err != nil {
			sets.Destroy()
			return nil, errors.Wrapf(err, "failed to write descriptor set %d", i)
		}
	}

	return sets, nil
}

func (s *DescriptorSets) Destroy() {
	if s.Pool.Initialized() {
		s.device.DestroyDescriptorPool(s.Pool, nil)
		s.Pool = core1_0.DescriptorPool{}
		s.Sets = nil
	}
}
