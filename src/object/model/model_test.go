package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const quadOBJ = `o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOBJTriangulates(t *testing.T) {
	m, err := Load(writeFile(t, "quad.obj", quadOBJ))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(m.Meshes))
	}
	mesh := m.Meshes[0]
	if len(mesh.Vertices) != 4 {
		t.Errorf("got %d vertices, want 4 shared corners", len(mesh.Vertices))
	}
	if len(mesh.Indices) != 6 {
		t.Fatalf("got %d indices, want 6", len(mesh.Indices))
	}
	if mesh.Vertices[0].UV != [2]float32{0, 1} {
		t.Errorf("first UV %v, want flipped {0 1}", mesh.Vertices[0].UV)
	}
	for i, v := range mesh.Vertices {
		if !mgl32.Vec3(v.Normal).ApproxEqual(mgl32.Vec3{0, 0, 1}) {
			t.Errorf("vertex %d normal %v, want +Z", i, v.Normal)
		}
	}
	if mesh.Material.BaseColor != nil {
		t.Error("no mtl file, expected no base color texture")
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	_, err := Load("scene.fbx")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("got %v, want ErrUnknownFormat", err)
	}
}

func TestLoadGLB(t *testing.T) {
	doc := gltf.NewDocument()
	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	indices := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indices),
			Attributes: map[string]int{gltf.POSITION: positions},
		}},
	}}

	path := filepath.Join(t.TempDir(), "tri.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(m.Meshes))
	}
	mesh := m.Meshes[0]
	if mesh.Name != "tri/0" {
		t.Errorf("name %q, want tri/0", mesh.Name)
	}
	if len(mesh.Vertices) != 3 || len(mesh.Indices) != 3 {
		t.Fatalf("got %d vertices and %d indices", len(mesh.Vertices), len(mesh.Indices))
	}
	if mesh.Material.BaseColorFactor != [4]float32{1, 1, 1, 1} {
		t.Errorf("default base color %v", mesh.Material.BaseColorFactor)
	}
	if !mgl32.Vec3(mesh.Vertices[0].Normal).ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Errorf("computed normal %v, want +Z", mesh.Vertices[0].Normal)
	}
}

func TestBaseColorTextureFallsBackToFactor(t *testing.T) {
	m := DefaultMaterial()
	m.BaseColorFactor = [4]float32{0, 1, 0, 1}
	cfg := m.BaseColorTexture()
	if cfg.Width != 1 || cfg.Height != 1 || cfg.Data[1] != 255 || cfg.Data[0] != 0 {
		t.Fatalf("unexpected flat texture %+v", cfg)
	}
}

type fakeGPU struct {
	complete bool
	closed   int
}

func (f *fakeGPU) Complete() bool { return f.complete }
func (f *fakeGPU) Close()         { f.closed++ }

func TestModelCloseReleasesGPU(t *testing.T) {
	gpu := &fakeGPU{complete: true}
	mesh := &Mesh{GPU: gpu}
	if !mesh.Uploaded() {
		t.Fatal("mesh with complete GPU resources should report uploaded")
	}
	(&Model{Meshes: []*Mesh{mesh, {}}}).Close()
	if gpu.closed != 1 || mesh.GPU != nil {
		t.Fatalf("closed %d times, GPU %v", gpu.closed, mesh.GPU)
	}
	if mesh.Uploaded() {
		t.Error("closed mesh should not report uploaded")
	}
}
