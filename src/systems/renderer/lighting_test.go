package renderer

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

func TestUniformLayoutSizes(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"ambient", unsafe.Sizeof(AmbientData{}), 16},
		{"directional", unsafe.Sizeof(DirectionalLightData{}), 32},
		{"point", unsafe.Sizeof(PointLightData{}), 48},
		{"camera", unsafe.Sizeof(CameraData{}), 16},
		{"skybox", unsafe.Sizeof(SkyboxData{}), 128},
		{"view projection", unsafe.Sizeof(ViewProjectionData{}), 128},
		{"specular", unsafe.Sizeof(SpecularData{}), 16},
		{"push constants", unsafe.Sizeof(PushConstants{}), 128},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s is %d bytes, want %d", tt.name, tt.got, tt.want)
		}
	}
	if off := unsafe.Offsetof(PointLightData{}.Intensity); off != 28 {
		t.Errorf("point light intensity at %d, want 28", off)
	}
}

func TestProjectionDepthRangeAndFlip(t *testing.T) {
	p := Projection(90, 1, 1, 10)

	project := func(v mgl32.Vec3) mgl32.Vec3 {
		h := p.Mul4x1(v.Vec4(1))
		return h.Vec3().Mul(1 / h.W())
	}

	if z := project(mgl32.Vec3{0, 0, -1}).Z(); !mgl32.FloatEqualThreshold(z, 0, 1e-5) {
		t.Errorf("near plane depth %v, want 0", z)
	}
	if z := project(mgl32.Vec3{0, 0, -10}).Z(); !mgl32.FloatEqualThreshold(z, 1, 1e-5) {
		t.Errorf("far plane depth %v, want 1", z)
	}
	if y := project(mgl32.Vec3{0, 1, -1}).Y(); y >= 0 {
		t.Errorf("point above the camera maps to y=%v, want negative", y)
	}
}

func TestNewPushConstants(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
	push := NewPushConstants(m)

	if !push.Model.ApproxEqual(m) {
		t.Errorf("model %v", push.Model)
	}
	n := push.Normals.Mat3().Mul3x1(mgl32.Vec3{0, 1, 0})
	if !n.Normalize().ApproxEqual(mgl32.Vec3{0, 1, 0}) {
		t.Errorf("uniformly scaled normal turned to %v", n)
	}
	if !push.Normals.Transpose().Mul4(m).ApproxEqualThreshold(mgl32.Ident4(), 1e-5) {
		t.Error("normal matrix is not the inverse transpose")
	}
}

func TestLightData(t *testing.T) {
	d := DirectionalLight{Position: mgl32.Vec3{1, 2, 3}, Color: [3]float32{0.5, 0.5, 0.5}}.Data()
	if d.Position != [4]float32{1, 2, 3, 1} || d.Color != [3]float32{0.5, 0.5, 0.5} {
		t.Errorf("directional %+v", d)
	}

	p := PointLight{Position: mgl32.Vec3{4, 5, 6}, Color: [3]float32{1, 0, 0}, Intensity: 2, Radius: 7}.Data()
	if p.Position != [4]float32{4, 5, 6, 1} || p.Intensity != 2 || p.Radius != 7 {
		t.Errorf("point %+v", p)
	}
}

func TestViewStateCameraPosition(t *testing.T) {
	eye := mgl32.Vec3{3, 4, 5}
	v := newViewState()
	v.setView(mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))

	if got := mgl32.Vec3(v.camera().Position); !got.ApproxEqualThreshold(eye, 1e-4) {
		t.Errorf("camera at %v, want %v", got, eye)
	}

	sky := v.skybox()
	if !sky.InvView.Mul4(v.view).ApproxEqualThreshold(mgl32.Ident4(), 1e-4) {
		t.Error("skybox inverse view does not invert the view")
	}
}

func TestDefaultSpecular(t *testing.T) {
	if s := DefaultSpecular(); s.Intensity != 0.5 || s.Shininess != 32 {
		t.Errorf("specular %+v", s)
	}
}
