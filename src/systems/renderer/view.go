package renderer

import "github.com/go-gl/mathgl/mgl32"

type viewState struct {
	view           mgl32.Mat4
	projection     mgl32.Mat4
	cameraPosition mgl32.Vec3
}

func newViewState() viewState {
	var v viewState
	v.setView(mgl32.Ident4())
	v.projection = mgl32.Ident4()
	return v
}

func (v *viewState) setView(view mgl32.Mat4) {
	v.view = view
	v.cameraPosition = view.Inv().Col(3).Vec3()
}

func (v *viewState) data() ViewProjectionData {
	return ViewProjectionData{View: v.view, Projection: v.projection}
}

func (v *viewState) camera() CameraData {
	return CameraData{Position: v.cameraPosition}
}

func (v *viewState) skybox() SkyboxData {
	return SkyboxData{
		InvProjection: v.projection.Inv(),
		InvView:       v.view.Inv(),
	}
}
