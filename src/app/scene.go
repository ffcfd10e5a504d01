package app

import (
	"math"
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/object"
	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/WowVeryLogin/deferred_engine/src/physics"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	spacing     = 2.5
	dropHeight  = 3
	floorHeight = -1
	orbitRadius = 10
	// orbitPeriod is how long the sun takes to circle the scene.
	orbitPeriod = 20 * time.Second
)

// placeObjects lines models up along X, each dropped as a ball onto a fixed floor.
func placeObjects(models []*model.Model, world *physics.World) []*object.GameObject {
	world.Add(&physics.Body{
		Type:     physics.Fixed,
		Position: r3.Vec{Y: floorHeight - 1},
		Collider: physics.Cuboid{HalfExtents: r3.Vec{X: 50, Y: 1, Z: 50}},
	})

	objects := make([]*object.GameObject, 0, len(models))
	offset := spacing * float64(len(models)-1) / 2
	for i, m := range models {
		x := spacing*float64(i) - offset
		g := object.New(m).
			WithInitialTransforms(object.NewTranslation(float32(x), dropHeight, 4)).
			WithOnFrame(func(g *object.GameObject, since time.Duration) {
				g.Rotate(float32(30*since.Seconds()), mgl32.Vec3{0, 1, 0})
			})
		world.Add(&physics.Body{
			ID:          g.ID,
			Type:        physics.Dynamic,
			Position:    r3.Vec{X: x, Y: dropHeight, Z: 4},
			Collider:    physics.Ball{Radius: 0.5},
			Restitution: 0.3,
			Target:      g,
		})
		objects = append(objects, g)
	}
	return objects
}

// sun is the directional light, circling the scene over orbitPeriod.
func sun(elapsed time.Duration) renderer.DirectionalLight {
	angle := 2 * math.Pi * elapsed.Seconds() / orbitPeriod.Seconds()
	s, c := math.Sincos(angle)
	return renderer.DirectionalLight{
		Position: mgl32.Vec3{float32(orbitRadius * c), orbitRadius, float32(orbitRadius * s)},
		Color:    [3]float32{1, 0.95, 0.85},
	}
}

func pointLights() []renderer.PointLight {
	return []renderer.PointLight{
		{Position: mgl32.Vec3{-2, 1, 2}, Color: [3]float32{1, 0.2, 0.2}, Intensity: 2, Radius: 6},
		{Position: mgl32.Vec3{2, 1, 2}, Color: [3]float32{0.2, 0.4, 1}, Intensity: 2, Radius: 6},
		{Position: mgl32.Vec3{0, 2, 6}, Color: [3]float32{0.3, 1, 0.3}, Intensity: 1.5, Radius: 5},
	}
}
