package model

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
)

// LoadOBJ decodes a Wavefront file. A .mtl file next to it with the same base
// name is used for materials when present. Each object becomes one mesh.
func LoadOBJ(path string) (*Model, error) {
	objFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open obj")
	}
	defer objFile.Close()

	var mtl io.Reader = strings.NewReader("")
	mtlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if mtlFile, err := os.Open(mtlPath); err == nil {
		defer mtlFile.Close()
		mtl = mtlFile
	}

	dec, err := obj.DecodeReader(objFile, mtl)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	m := &Model{Path: path}
	for _, object := range dec.Objects {
		mesh, err := objMesh(dec, &object, filepath.Dir(path))
		if err != nil {
			return nil, errors.Wrapf(err, "%s object %q", path, object.Name)
		}
		if len(mesh.Indices) > 0 {
			m.Meshes = append(m.Meshes, mesh)
		}
	}
	if len(m.Meshes) == 0 {
		return nil, errors.Newf("%s has no faces", path)
	}

	return m, nil
}

type objCorner struct {
	vertex, uv, normal int
}

func objMesh(dec *obj.Decoder, object *obj.Object, dir string) (*Mesh, error) {
	mesh := &Mesh{Name: object.Name, Material: DefaultMaterial()}
	unique := map[objCorner]uint32{}
	hasNormals := true

	add := func(face *obj.Face, i int) {
		corner := objCorner{vertex: face.Vertices[i], uv: -1, normal: -1}
		if i < len(face.Uvs) {
			corner.uv = face.Uvs[i]
		}
		if i < len(face.Normals) {
			corner.normal = face.Normals[i]
		}

		if index, ok := unique[corner]; ok {
			mesh.Indices = append(mesh.Indices, index)
			return
		}

		var v Vertex
		v.Pos = [3]float32{
			dec.Vertices[corner.vertex*3],
			dec.Vertices[corner.vertex*3+1],
			dec.Vertices[corner.vertex*3+2],
		}
		if corner.uv >= 0 && corner.uv*2+1 < len(dec.Uvs) {
			v.UV = [2]float32{dec.Uvs[corner.uv*2], 1 - dec.Uvs[corner.uv*2+1]}
		}
		if corner.normal >= 0 && corner.normal*3+2 < len(dec.Normals) {
			v.Normal = [3]float32{
				dec.Normals[corner.normal*3],
				dec.Normals[corner.normal*3+1],
				dec.Normals[corner.normal*3+2],
			}
		} else {
			hasNormals = false
		}

		index := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, v)
		mesh.Indices = append(mesh.Indices, index)
		unique[corner] = index
	}

	material := ""
	for fi := range object.Faces {
		face := &object.Faces[fi]
		for _, vi := range face.Vertices {
			if vi < 0 || vi*3+2 >= len(dec.Vertices) {
				return nil, errors.Newf("face %d references vertex %d out of range", fi, vi)
			}
		}
		if material == "" {
			material = face.Material
		}
		for i := 2; i < len(face.Vertices); i++ {
			add(face, 0)
			add(face, i-1)
			add(face, i)
		}
	}

	if !hasNormals {
		computeNormals(mesh.Vertices, mesh.Indices)
	}

	if mat, ok := dec.Materials[material]; ok {
		mesh.Material.BaseColorFactor = [4]float32{mat.Diffuse.R, mat.Diffuse.G, mat.Diffuse.B, 1}
		if mat.MapKd != "" {
			cfg, err := decodeImageFile(filepath.Join(dir, mat.MapKd))
			if err != nil {
				return nil, err
			}
			mesh.Material.BaseColor = cfg
		}
	}

	return mesh, nil
}

func decodeImageFile(path string) (*texture.TextureConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open texture")
	}
	defer f.Close()

	cfg, err := texture.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "texture %s", path)
	}
	return cfg, nil
}

// computeNormals replaces vertex normals with the normalized sum of adjacent
// face normals.
func computeNormals(vertices []Vertex, indices []uint32) {
	sums := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(vertices) || int(b) >= len(vertices) || int(c) >= len(vertices) {
			continue
		}
		pa, pb, pc := mgl32.Vec3(vertices[a].Pos), mgl32.Vec3(vertices[b].Pos), mgl32.Vec3(vertices[c].Pos)
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		sums[a] = sums[a].Add(n)
		sums[b] = sums[b].Add(n)
		sums[c] = sums[c].Add(n)
	}
	for i, n := range sums {
		if n.Len() > 0 {
			vertices[i].Normal = n.Normalize()
		} else {
			vertices[i].Normal = [3]float32{0, 1, 0}
		}
	}
}
