// Package model holds CPU-side mesh data decoded from glTF and OBJ files, and
// the handle to its GPU copy once uploaded.
package model

import (
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

var ErrUnknownFormat = errors.New("unknown model format")

type Vertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV     [2]float32
}

var VertexBindingDescription = []vulkan.VertexInputBindingDescription{
	{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vulkan.VertexInputRateVertex,
	},
}

var VertexAttributeDescription = []vulkan.VertexInputAttributeDescription{
	{
		Binding:  0,
		Location: 0,
		Format:   vulkan.FormatR32g32b32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
	},
	{
		Binding:  0,
		Location: 1,
		Format:   vulkan.FormatR32g32b32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Normal)),
	},
	{
		Binding:  0,
		Location: 2,
		Format:   vulkan.FormatR32g32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.UV)),
	},
}

// Material is the PBR description of a mesh surface. Only the base color is
// shaded, the rest is carried for completeness.
type Material struct {
	BaseColorFactor [4]float32
	BaseColor       *texture.TextureConfig
	Metallic        float32
	Roughness       float32
	Normal          *texture.TextureConfig
	Occlusion       *texture.TextureConfig
	Emissive        *texture.TextureConfig
	EmissiveFactor  [3]float32
}

func DefaultMaterial() Material {
	return Material{
		BaseColorFactor: [4]float32{1, 1, 1, 1},
		Metallic:        1,
		Roughness:       1,
	}
}

// BaseColorTexture returns the base color image or a flat texel of the factor.
func (m *Material) BaseColorTexture() *texture.TextureConfig {
	if m.BaseColor != nil {
		return m.BaseColor
	}
	return texture.FlatColor(m.BaseColorFactor)
}

// GPUResources is the uploaded copy of a mesh. Complete reports whether every
// buffer and descriptor the geometry pass binds is present.
type GPUResources interface {
	Complete() bool
	Close()
}

type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Material Material

	// GPU is set once by the uploader.
	GPU GPUResources
}

func (m *Mesh) Uploaded() bool {
	return m.GPU != nil && m.GPU.Complete()
}

type Model struct {
	Path   string
	Meshes []*Mesh
}

// Load decodes a model file, picking the decoder by extension.
func Load(path string) (*Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return LoadGLTF(path)
	case ".obj":
		return LoadOBJ(path)
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%s", path)
}

// Close releases the GPU copies of every mesh. CPU data stays.
func (m *Model) Close() {
	for _, mesh := range m.Meshes {
		if mesh.GPU != nil {
			mesh.GPU.Close()
			mesh.GPU = nil
		}
	}
}
