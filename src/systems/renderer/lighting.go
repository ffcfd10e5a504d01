package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Uniform layouts below follow std140: vec3 members are padded to 16 bytes.

type AmbientData struct {
	Color     [3]float32
	Intensity float32
}

type DirectionalLightData struct {
	Position [4]float32
	Color    [3]float32
	_        float32
}

type PointLightData struct {
	Position  [4]float32
	Color     [3]float32
	Intensity float32
	Radius    float32
	_         [3]float32
}

type CameraData struct {
	Position [3]float32
	_        float32
}

type SkyboxData struct {
	InvProjection mgl32.Mat4
	InvView       mgl32.Mat4
}

type ViewProjectionData struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// SpecularData is the per-mesh material uniform of the geometry pass.
type SpecularData struct {
	Intensity float32
	Shininess float32
	_         [2]float32
}

func DefaultSpecular() SpecularData {
	return SpecularData{Intensity: 0.5, Shininess: 32}
}

// PushConstants carry the per-draw model matrix and its normal matrix.
type PushConstants struct {
	Model   mgl32.Mat4
	Normals mgl32.Mat4
}

func NewPushConstants(model mgl32.Mat4) PushConstants {
	return PushConstants{
		Model:   model,
		Normals: model.Inv().Transpose(),
	}
}

type DirectionalLight struct {
	Position mgl32.Vec3
	Color    [3]float32
}

func (l DirectionalLight) Data() DirectionalLightData {
	return DirectionalLightData{
		Position: l.Position.Vec4(1),
		Color:    l.Color,
	}
}

type PointLight struct {
	Position  mgl32.Vec3
	Color     [3]float32
	Intensity float32
	Radius    float32
}

func (l PointLight) Data() PointLightData {
	return PointLightData{
		Position:  l.Position.Vec4(1),
		Color:     l.Color,
		Intensity: l.Intensity,
		Radius:    l.Radius,
	}
}

// lightProxyScale shrinks the proxy mesh drawn at a light position.
const lightProxyScale = 0.2

func lightProxyModel(position mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(mgl32.Scale3D(lightProxyScale, lightProxyScale, lightProxyScale))
}

// clip maps OpenGL clip space to Vulkan: y down, depth in [0, 1].
var clip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Projection is a perspective projection for Vulkan. fov is vertical, in degrees.
func Projection(fov, aspect, near, far float32) mgl32.Mat4 {
	return clip.Mul4(mgl32.Perspective(mgl32.DegToRad(fov), aspect, near, far))
}
