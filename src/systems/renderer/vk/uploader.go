package vk

import (
	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/buffer"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/descriptors"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

// meshGPU is the device copy of a mesh with its material set.
type meshGPU struct {
	vertices *buffer.Buffer[model.Vertex]
	indices  *buffer.Buffer[uint32]
	texture  *texture.Texture
	specular *buffer.Buffer[renderer.SpecularData]
	pool     *descriptors.Pool
	set      vulkan.DescriptorSet
}

func (m *meshGPU) Complete() bool {
	return m.vertices != nil && m.indices != nil && m.texture != nil && m.set != nil
}

func (m *meshGPU) draw(cb vulkan.CommandBuffer) {
	vulkan.CmdBindVertexBuffers(cb, 0, 1, []vulkan.Buffer{m.vertices.Buffer}, []vulkan.DeviceSize{0})
	vulkan.CmdBindIndexBuffer(cb, m.indices.Buffer, 0, vulkan.IndexTypeUint32)
	vulkan.CmdDrawIndexed(cb, uint32(m.indices.Len), 1, 0, 0, 0)
}

func (m *meshGPU) Close() {
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
	}
	if m.specular != nil {
		m.specular.Close()
		m.specular = nil
	}
	if m.texture != nil {
		m.texture.Close()
		m.texture = nil
	}
	if m.indices != nil {
		m.indices.Close()
		m.indices = nil
	}
	if m.vertices != nil {
		m.vertices.Close()
		m.vertices = nil
	}
	m.set = nil
}

// UploadMesh copies vertices, indices and the base color texture to device
// memory in one blocking transfer and sets mesh.GPU.
func (b *Backend) UploadMesh(mesh *model.Mesh) error {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return errors.Wrapf(renderer.ErrMissingBuffers, "mesh %q", mesh.Name)
	}

	batch := b.device.NewBatch()
	gpu := &meshGPU{}
	fail := func(err error) error {
		batch.Discard()
		gpu.Close()
		return errors.Wrapf(err, "upload mesh %q", mesh.Name)
	}

	var err error
	if gpu.vertices, err = buffer.NewDeviceLocal(b.device, batch, mesh.Vertices, vulkan.BufferUsageFlags(vulkan.BufferUsageVertexBufferBit)); err != nil {
		return fail(err)
	}
	if gpu.indices, err = buffer.NewDeviceLocal(b.device, batch, mesh.Indices, vulkan.BufferUsageFlags(vulkan.BufferUsageIndexBufferBit)); err != nil {
		return fail(err)
	}
	if gpu.texture, err = texture.New(b.device, batch, mesh.Material.BaseColorTexture()); err != nil {
		return fail(err)
	}
	if gpu.specular, err = buffer.NewUniform(b.device, renderer.DefaultSpecular()); err != nil {
		return fail(err)
	}
	if err := batch.Submit(); err != nil {
		gpu.Close()
		return errors.Wrapf(err, "upload mesh %q", mesh.Name)
	}

	if gpu.pool, err = descriptors.NewPool(b.device, 1, descriptors.PoolSizes(1, materialSet)); err != nil {
		gpu.Close()
		return err
	}
	if gpu.set, err = gpu.pool.Allocate(b.sets.material, fill(materialSet, uniform(gpu.specular.Buffer), sampled(gpu.texture.ImageView, b.sampler))); err != nil {
		gpu.Close()
		return err
	}

	mesh.GPU = gpu
	return nil
}

type skybox struct {
	texture *texture.Texture
}

func (s *skybox) Close() {
	s.texture.Close()
}

func (b *Backend) UploadSkybox(faces [6]*texture.TextureConfig) (renderer.Skybox, error) {
	batch := b.device.NewBatch()
	tex, err := texture.NewCube(b.device, batch, faces)
	if err != nil {
		batch.Discard()
		return nil, err
	}
	if err := batch.Submit(); err != nil {
		tex.Close()
		return nil, errors.Wrap(err, "upload skybox")
	}
	return &skybox{texture: tex}, nil
}
