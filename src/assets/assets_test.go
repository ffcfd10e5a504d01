package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/cockroachdb/errors"
)

func counting(calls *atomic.Int32) func(string) (*model.Model, error) {
	return func(path string) (*model.Model, error) {
		calls.Add(1)
		return &model.Model{Path: path, Meshes: []*model.Mesh{{Name: path}}}, nil
	}
}

func TestLoadIsCached(t *testing.T) {
	var calls atomic.Int32
	m := New()
	m.load = counting(&calls)

	first, err := m.Load("a.glb", "b.obj", "a.glb")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 || first[0] != first[2] {
		t.Fatalf("duplicate path should return the same model")
	}
	second, err := m.Load("b.obj")
	if err != nil {
		t.Fatal(err)
	}
	if second[0] != first[1] {
		t.Fatalf("cached model was reloaded")
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("decoded %d times, want 2", n)
	}
	if _, ok := m.Get("a.glb"); !ok {
		t.Fatalf("a.glb not cached")
	}
}

func TestLoadError(t *testing.T) {
	boom := errors.New("boom")
	m := New()
	m.load = func(string) (*model.Model, error) { return nil, boom }

	if _, err := m.Load("broken.glb"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, ok := m.Get("broken.glb"); ok {
		t.Fatalf("failed model was cached")
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	if _, err := New().Load("scene.fbx"); !errors.Is(err, model.ErrUnknownFormat) {
		t.Fatalf("err = %v", err)
	}
}

type recordingUploader struct {
	uploads []string
	err     error
}

func (u *recordingUploader) UploadModel(m *model.Model) error {
	if u.err != nil {
		return u.err
	}
	u.uploads = append(u.uploads, m.Path)
	return nil
}

func TestUploadAllOnce(t *testing.T) {
	var calls atomic.Int32
	m := New()
	m.load = counting(&calls)
	if _, err := m.Load("a.glb", "b.glb"); err != nil {
		t.Fatal(err)
	}

	u := &recordingUploader{}
	if err := m.UploadAll(u); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load("c.glb"); err != nil {
		t.Fatal(err)
	}
	if err := m.UploadAll(u); err != nil {
		t.Fatal(err)
	}

	want := []string{"a.glb", "b.glb", "c.glb"}
	if len(u.uploads) != len(want) {
		t.Fatalf("uploads = %v, want %v", u.uploads, want)
	}
	for i := range want {
		if u.uploads[i] != want[i] {
			t.Fatalf("uploads = %v, want %v", u.uploads, want)
		}
	}
}

func TestUploadAllRetriesAfterError(t *testing.T) {
	var calls atomic.Int32
	m := New()
	m.load = counting(&calls)
	if _, err := m.Load("a.glb"); err != nil {
		t.Fatal(err)
	}

	u := &recordingUploader{err: errors.New("no memory")}
	if err := m.UploadAll(u); err == nil {
		t.Fatal("expected upload error")
	}
	u.err = nil
	if err := m.UploadAll(u); err != nil {
		t.Fatal(err)
	}
	if len(u.uploads) != 1 {
		t.Fatalf("uploads = %v", u.uploads)
	}
}

func writeFace(t *testing.T, dir string, i int, size int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	img.Set(0, 0, color.NRGBA{R: uint8(i * 40), A: 255})
	path := filepath.Join(dir, filepath.Base(t.Name())+string(rune('a'+i))+".png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSkybox(t *testing.T) {
	dir := t.TempDir()
	var paths [6]string
	for i := range paths {
		paths[i] = writeFace(t, dir, i, 4)
	}

	faces, err := LoadSkybox(paths)
	if err != nil {
		t.Fatal(err)
	}
	for i, face := range faces {
		if face == nil || face.Width != 4 || face.Height != 4 {
			t.Fatalf("face %d = %+v", i, face)
		}
		if face.Data[0] != uint8(i*40) {
			t.Fatalf("face %d out of order: red %d", i, face.Data[0])
		}
	}
}

func TestLoadSkyboxMissingFace(t *testing.T) {
	dir := t.TempDir()
	var paths [6]string
	for i := range paths {
		paths[i] = writeFace(t, dir, i, 2)
	}
	paths[3] = filepath.Join(dir, "missing.png")

	if _, err := LoadSkybox(paths); err == nil {
		t.Fatal("expected error for missing face")
	}
}
