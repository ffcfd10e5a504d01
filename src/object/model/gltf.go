package model

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
	"github.com/cockroachdb/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTF decodes every triangle primitive of a .gltf or .glb file into its own mesh.
func LoadGLTF(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	images := &imageCache{doc: doc, dir: filepath.Dir(path), decoded: map[int]*texture.TextureConfig{}}
	m := &Model{Path: path}
	for mi, mesh := range doc.Meshes {
		for pi, primitive := range mesh.Primitives {
			if primitive.Mode != gltf.PrimitiveTriangles {
				logger.Get().Debug("skipping non-triangle primitive", "model", path, "mesh", mesh.Name, "primitive", pi)
				continue
			}
			decoded, err := decodePrimitive(doc, primitive)
			if err != nil {
				return nil, errors.Wrapf(err, "%s mesh %d primitive %d", path, mi, pi)
			}
			decoded.Name = meshName(mesh.Name, mi, pi)
			if primitive.Material != nil {
				decoded.Material, err = images.material(doc.Materials[*primitive.Material])
				if err != nil {
					return nil, errors.Wrapf(err, "%s material %d", path, *primitive.Material)
				}
			}
			m.Meshes = append(m.Meshes, decoded)
		}
	}
	if len(m.Meshes) == 0 {
		return nil, errors.Newf("%s has no triangle meshes", path)
	}

	return m, nil
}

func meshName(name string, mesh, primitive int) string {
	if name == "" {
		name = fmt.Sprintf("mesh%d", mesh)
	}
	return fmt.Sprintf("%s/%d", name, primitive)
}

func decodePrimitive(doc *gltf.Document, primitive *gltf.Primitive) (*Mesh, error) {
	posIdx, ok := primitive.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("primitive has no positions")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, errors.Wrap(err, "read positions")
	}

	var normals [][3]float32
	if idx, ok := primitive.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, errors.Wrap(err, "read normals")
		}
	}

	var uvs [][2]float32
	if idx, ok := primitive.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return nil, errors.Wrap(err, "read texture coordinates")
		}
	}

	var indices []uint32
	if primitive.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*primitive.Indices], nil); err != nil {
			return nil, errors.Wrap(err, "read indices")
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	vertices := make([]Vertex, len(positions))
	for i, p := range positions {
		vertices[i].Pos = p
		if i < len(normals) {
			vertices[i].Normal = normals[i]
		}
		if i < len(uvs) {
			vertices[i].UV = uvs[i]
		}
	}
	if normals == nil {
		computeNormals(vertices, indices)
	}

	return &Mesh{
		Vertices: vertices,
		Indices:  indices,
		Material: DefaultMaterial(),
	}, nil
}

type imageCache struct {
	doc     *gltf.Document
	dir     string
	decoded map[int]*texture.TextureConfig
}

func (c *imageCache) texture(index int) (*texture.TextureConfig, error) {
	if index < 0 || index >= len(c.doc.Textures) {
		return nil, errors.Newf("texture %d out of range", index)
	}
	tex := c.doc.Textures[index]
	if tex.Source == nil || *tex.Source >= len(c.doc.Images) {
		return nil, errors.Newf("texture %d has no valid source image", index)
	}
	if cfg, ok := c.decoded[*tex.Source]; ok {
		return cfg, nil
	}

	raw, err := c.imageData(c.doc.Images[*tex.Source])
	if err != nil {
		return nil, errors.Wrapf(err, "image %d", *tex.Source)
	}
	cfg, err := texture.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "image %d", *tex.Source)
	}
	c.decoded[*tex.Source] = cfg
	return cfg, nil
}

func (c *imageCache) imageData(img *gltf.Image) ([]byte, error) {
	if img.URI != "" {
		if strings.HasPrefix(img.URI, "data:") {
			parts := strings.SplitN(img.URI, ",", 2)
			if len(parts) != 2 {
				return nil, errors.New("invalid data URI")
			}
			return base64.StdEncoding.DecodeString(parts[1])
		}
		return os.ReadFile(filepath.Join(c.dir, img.URI))
	}

	if img.BufferView == nil || *img.BufferView >= len(c.doc.BufferViews) {
		return nil, errors.New("no valid buffer view")
	}
	bv := c.doc.BufferViews[*img.BufferView]
	data := c.doc.Buffers[bv.Buffer].Data
	if bv.ByteOffset+bv.ByteLength > len(data) {
		return nil, errors.New("buffer view out of range")
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

func (c *imageCache) optional(index *int) (*texture.TextureConfig, error) {
	if index == nil {
		return nil, nil
	}
	return c.texture(*index)
}

func (c *imageCache) material(src *gltf.Material) (Material, error) {
	m := DefaultMaterial()
	var err error

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			for i, v := range pbr.BaseColorFactor {
				m.BaseColorFactor[i] = float32(v)
			}
		}
		if pbr.MetallicFactor != nil {
			m.Metallic = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			m.Roughness = float32(*pbr.RoughnessFactor)
		}
		if pbr.BaseColorTexture != nil {
			if m.BaseColor, err = c.texture(pbr.BaseColorTexture.Index); err != nil {
				return m, err
			}
		}
	}
	if src.NormalTexture != nil {
		if m.Normal, err = c.optional(src.NormalTexture.Index); err != nil {
			return m, err
		}
	}
	if src.OcclusionTexture != nil {
		if m.Occlusion, err = c.optional(src.OcclusionTexture.Index); err != nil {
			return m, err
		}
	}
	if src.EmissiveTexture != nil {
		if m.Emissive, err = c.texture(src.EmissiveTexture.Index); err != nil {
			return m, err
		}
	}
	for i, v := range src.EmissiveFactor {
		m.EmissiveFactor[i] = float32(v)
	}

	return m, nil
}
