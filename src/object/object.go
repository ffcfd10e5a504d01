package object

import (
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Transform places an object: position, rotation and a uniform scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    float32
}

func Identity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    1,
	}
}

// ModelMatrix is T * R * S.
func (t Transform) ModelMatrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	scale := mgl32.Scale3D(t.Scale, t.Scale, t.Scale)
	return translate.Mul4(t.Rotation.Normalize().Mat4()).Mul4(scale)
}

func (t Transform) NormalMatrix() mgl32.Mat4 {
	return t.ModelMatrix().Inv().Transpose()
}

type GameObject struct {
	ID        uuid.UUID
	Model     *model.Model
	Transform Transform
	onFrame   func(g *GameObject, since time.Duration)
}

// Modifier changes an object's transform.
type Modifier interface {
	Apply(t Transform) Transform
}

func New(m *model.Model) *GameObject {
	return &GameObject{
		ID:        uuid.New(),
		Model:     m,
		Transform: Identity(),
	}
}

func (g *GameObject) WithInitialTransforms(modifiers ...Modifier) *GameObject {
	for _, m := range modifiers {
		g.Transform = m.Apply(g.Transform)
	}
	return g
}

func (g *GameObject) WithOnFrame(onFrame func(g *GameObject, since time.Duration)) *GameObject {
	g.onFrame = onFrame
	return g
}

// Update runs the per-frame callback, if any.
func (g *GameObject) Update(since time.Duration) {
	if g.onFrame != nil {
		g.onFrame(g, since)
	}
}

func (g *GameObject) ModelMatrix() mgl32.Mat4 {
	return g.Transform.ModelMatrix()
}

func (g *GameObject) NormalMatrix() mgl32.Mat4 {
	return g.Transform.NormalMatrix()
}

func (g *GameObject) Rotate(degrees float32, axis mgl32.Vec3) {
	g.Transform = NewRotate(degrees, axis).Apply(g.Transform)
}

func (g *GameObject) Scale(s float32) {
	g.Transform = NewScale(s).Apply(g.Transform)
}

func (g *GameObject) Translate(x, y, z float32) {
	g.Transform = NewTranslation(x, y, z).Apply(g.Transform)
}

type Rotate struct {
	rotate mgl32.Quat
}

// NewRotate rotates by degrees around axis. A zero axis is no rotation.
func NewRotate(degrees float32, axis mgl32.Vec3) Rotate {
	if axis.Len() == 0 {
		return Rotate{rotate: mgl32.QuatIdent()}
	}
	return Rotate{rotate: mgl32.QuatRotate(mgl32.DegToRad(degrees), axis.Normalize())}
}

func (r Rotate) Apply(t Transform) Transform {
	t.Rotation = r.rotate.Mul(t.Rotation).Normalize()
	return t
}

type Scale struct {
	scale float32
}

func NewScale(s float32) Scale {
	return Scale{scale: s}
}

func (s Scale) Apply(t Transform) Transform {
	t.Scale *= s.scale
	return t
}

type Translation struct {
	offset mgl32.Vec3
}

func NewTranslation(x, y, z float32) Translation {
	return Translation{offset: mgl32.Vec3{x, y, z}}
}

func (tr Translation) Apply(t Transform) Transform {
	t.Position = t.Position.Add(tr.offset)
	return t
}
