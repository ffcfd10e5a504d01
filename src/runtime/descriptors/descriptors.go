package descriptors

import (
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

// Descriptor describes one binding. Its index in a slice is its binding number.
type Descriptor struct {
	Type         vulkan.DescriptorType
	Flags        vulkan.ShaderStageFlags
	Buffer       vulkan.Buffer
	ImageView    vulkan.ImageView
	ImageSampler vulkan.Sampler
}

func NewLayout(device *device.Device, descriptors []Descriptor) (vulkan.DescriptorSetLayout, error) {
	layoutBindings := make([]vulkan.DescriptorSetLayoutBinding, 0, len(descriptors))
	for i, descriptor := range descriptors {
		layoutBindings = append(layoutBindings, vulkan.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorCount: 1,
			DescriptorType:  descriptor.Type,
			StageFlags:      descriptor.Flags,
		})
	}

	var layout vulkan.DescriptorSetLayout
	if err := vulkan.Error(vulkan.CreateDescriptorSetLayout(device.LogicalDevice, &vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}, nil, &layout)); err != nil {
		return nil, errors.Wrap(err, "create descriptor set layout")
	}
	return layout, nil
}

// PoolSizes counts descriptors per type across templates, each repeated sets times.
func PoolSizes(sets uint32, templates ...[]Descriptor) []vulkan.DescriptorPoolSize {
	counts := map[vulkan.DescriptorType]uint32{}
	var order []vulkan.DescriptorType
	for _, template := range templates {
		for _, descriptor := range template {
			if _, seen := counts[descriptor.Type]; !seen {
				order = append(order, descriptor.Type)
			}
			counts[descriptor.Type] += sets
		}
	}

	sizes := make([]vulkan.DescriptorPoolSize, 0, len(order))
	for _, descType := range order {
		sizes = append(sizes, vulkan.DescriptorPoolSize{
			Type:            descType,
			DescriptorCount: counts[descType],
		})
	}
	return sizes
}

// Writes builds the update structures binding descriptors into set.
func Writes(set vulkan.DescriptorSet, descriptors []Descriptor) []vulkan.WriteDescriptorSet {
	writeDescSets := make([]vulkan.WriteDescriptorSet, 0, len(descriptors))
	for i, descriptor := range descriptors {
		write := vulkan.WriteDescriptorSet{
			SType:           vulkan.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(i),
			DstArrayElement: 0,
			DescriptorType:  descriptor.Type,
			DescriptorCount: 1,
		}
		switch descriptor.Type {
		case vulkan.DescriptorTypeUniformBuffer:
			write.PBufferInfo = []vulkan.DescriptorBufferInfo{{
				Buffer: descriptor.Buffer,
				Offset: 0,
				Range:  vulkan.DeviceSize(vulkan.WholeSize),
			}}
		case vulkan.DescriptorTypeCombinedImageSampler, vulkan.DescriptorTypeInputAttachment:
			write.PImageInfo = []vulkan.DescriptorImageInfo{{
				Sampler:     descriptor.ImageSampler,
				ImageView:   descriptor.ImageView,
				ImageLayout: vulkan.ImageLayoutShaderReadOnlyOptimal,
			}}
		default:
			continue
		}
		writeDescSets = append(writeDescSets, write)
	}
	return writeDescSets
}

// ErrPoolExhausted reports that a pool has no room left for another set.
var ErrPoolExhausted = errors.New("descriptor pool exhausted")

// Pool hands out descriptor sets. When one Vulkan pool fills up another is
// chained in, so callers never size it exactly.
type Pool struct {
	device  *device.Device
	sizes   []vulkan.DescriptorPoolSize
	maxSets uint32
	pools   []vulkan.DescriptorPool
	current int
}

func NewPool(device *device.Device, maxSets uint32, sizes []vulkan.DescriptorPoolSize) (*Pool, error) {
	p := &Pool{
		device:  device,
		sizes:   sizes,
		maxSets: maxSets,
	}
	if err := p.grow(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) grow() error {
	var pool vulkan.DescriptorPool
	if err := vulkan.Error(vulkan.CreateDescriptorPool(p.device.LogicalDevice, &vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(p.sizes)),
		PPoolSizes:    p.sizes,
		MaxSets:       p.maxSets,
	}, nil, &pool)); err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}
	p.pools = append(p.pools, pool)
	p.current = len(p.pools) - 1
	return nil
}

func (p *Pool) allocate(layout vulkan.DescriptorSetLayout) (vulkan.DescriptorSet, error) {
	var set vulkan.DescriptorSet
	result := vulkan.AllocateDescriptorSets(p.device.LogicalDevice, &vulkan.DescriptorSetAllocateInfo{
		SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.pools[p.current],
		DescriptorSetCount: 1,
		PSetLayouts:        []vulkan.DescriptorSetLayout{layout},
	}, &set)
	switch result {
	case vulkan.Success:
		return set, nil
	case vulkan.ErrorOutOfPoolMemory, vulkan.ErrorFragmentedPool:
		return nil, ErrPoolExhausted
	}
	return nil, errors.Wrap(vulkan.Error(result), "allocate descriptor set")
}

// Allocate creates a set for layout and writes descriptors into it.
func (p *Pool) Allocate(layout vulkan.DescriptorSetLayout, descriptors []Descriptor) (vulkan.DescriptorSet, error) {
	set, err := p.allocate(layout)
	if errors.Is(err, ErrPoolExhausted) {
		if p.current+1 < len(p.pools) {
			p.current++
		} else if err := p.grow(); err != nil {
			return nil, err
		}
		set, err = p.allocate(layout)
	}
	if err != nil {
		return nil, err
	}

	writes := Writes(set, descriptors)
	vulkan.UpdateDescriptorSets(p.device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return set, nil
}

// Reset returns every set of the pool. The GPU must be done with them.
func (p *Pool) Reset() error {
	for _, pool := range p.pools {
		if err := vulkan.Error(vulkan.ResetDescriptorPool(p.device.LogicalDevice, pool, 0)); err != nil {
			return errors.Wrap(err, "reset descriptor pool")
		}
	}
	p.current = 0
	return nil
}

func (p *Pool) Close() {
	for _, pool := range p.pools {
		vulkan.DestroyDescriptorPool(p.device.LogicalDevice, pool, nil)
	}
	p.pools = nil
}
