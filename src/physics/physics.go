// Package physics is a small fixed-step rigid body integrator: gravity, balls
// and axis-aligned cuboids, and sphere contacts. Positions are written back to
// the game objects the bodies drive.
package physics

import (
	"math"
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/object"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

var Gravity = r3.Vec{Y: -9.81}

// maxSteps bounds the catch-up after a long frame.
const maxSteps = 8

type BodyType int

const (
	// Dynamic bodies fall and collide.
	Dynamic BodyType = iota
	// Fixed bodies never move.
	Fixed
	// Kinematic bodies move with their velocity and ignore forces and contacts.
	Kinematic
)

type Collider interface {
	collider()
}

type Ball struct {
	Radius float64
}

// Cuboid is axis aligned.
type Cuboid struct {
	HalfExtents r3.Vec
}

func (Ball) collider()   {}
func (Cuboid) collider() {}

type Body struct {
	ID          uuid.UUID
	Type        BodyType
	Position    r3.Vec
	Velocity    r3.Vec
	Collider    Collider
	Restitution float64
	// Target receives the position after every step, if set.
	Target *object.GameObject
}

type World struct {
	Gravity     r3.Vec
	step        time.Duration
	accumulator time.Duration
	bodies      []*Body
}

func NewWorld(step time.Duration) *World {
	return &World{Gravity: Gravity, step: step}
}

// Add registers b, assigning an ID if it has none.
func (w *World) Add(b *Body) uuid.UUID {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	w.bodies = append(w.bodies, b)
	return b.ID
}

func (w *World) Remove(id uuid.UUID) bool {
	for i, b := range w.bodies {
		if b.ID == id {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return true
		}
	}
	return false
}

func (w *World) Body(id uuid.UUID) (*Body, bool) {
	for _, b := range w.bodies {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Advance runs as many fixed steps as fit into the accumulated time and
// returns how many ran.
func (w *World) Advance(since time.Duration) int {
	w.accumulator += since
	if limit := maxSteps * w.step; w.accumulator > limit {
		w.accumulator = limit
	}

	steps := 0
	for w.accumulator >= w.step {
		w.Step(w.step.Seconds())
		w.accumulator -= w.step
		steps++
	}
	return steps
}

// Step integrates dt seconds, resolves contacts and writes back transforms.
func (w *World) Step(dt float64) {
	for _, b := range w.bodies {
		switch b.Type {
		case Dynamic:
			b.Velocity = r3.Add(b.Velocity, r3.Scale(dt, w.Gravity))
			b.Position = r3.Add(b.Position, r3.Scale(dt, b.Velocity))
		case Kinematic:
			b.Position = r3.Add(b.Position, r3.Scale(dt, b.Velocity))
		}
	}

	for i, a := range w.bodies {
		for _, b := range w.bodies[i+1:] {
			resolve(a, b)
		}
	}

	for _, b := range w.bodies {
		if b.Target != nil {
			b.Target.Transform.Position = mgl32.Vec3{float32(b.Position.X), float32(b.Position.Y), float32(b.Position.Z)}
		}
	}
}

func resolve(a, b *Body) {
	if a.Type != Dynamic && b.Type != Dynamic {
		return
	}
	if b.Type == Dynamic && a.Type != Dynamic {
		a, b = b, a
	}

	switch ca := a.Collider.(type) {
	case Ball:
		switch cb := b.Collider.(type) {
		case Ball:
			ballBall(a, ca, b, cb)
		case Cuboid:
			ballBox(a, ca, b, cb)
		}
	case Cuboid:
		if cb, ok := b.Collider.(Ball); ok && b.Type == Dynamic {
			ballBox(b, cb, a, ca)
		}
	}
}

// contact separates a dynamic body from an obstacle along n, which points
// from the obstacle towards the body.
func contact(body *Body, n r3.Vec, depth, restitution float64) {
	body.Position = r3.Add(body.Position, r3.Scale(depth, n))
	if vn := r3.Dot(body.Velocity, n); vn < 0 {
		body.Velocity = r3.Sub(body.Velocity, r3.Scale((1+restitution)*vn, n))
	}
}

func ballBox(ball *Body, shape Ball, box *Body, cuboid Cuboid) {
	lo := r3.Sub(box.Position, cuboid.HalfExtents)
	hi := r3.Add(box.Position, cuboid.HalfExtents)
	closest := r3.Vec{
		X: clamp(ball.Position.X, lo.X, hi.X),
		Y: clamp(ball.Position.Y, lo.Y, hi.Y),
		Z: clamp(ball.Position.Z, lo.Z, hi.Z),
	}

	d := r3.Sub(ball.Position, closest)
	dist := r3.Norm(d)
	restitution := math.Max(ball.Restitution, box.Restitution)
	if dist > 0 {
		if dist >= shape.Radius {
			return
		}
		contact(ball, r3.Scale(1/dist, d), shape.Radius-dist, restitution)
		return
	}

	// The center is inside the box: leave through the nearest face.
	rel := r3.Sub(ball.Position, box.Position)
	depths := []float64{
		cuboid.HalfExtents.X - math.Abs(rel.X),
		cuboid.HalfExtents.Y - math.Abs(rel.Y),
		cuboid.HalfExtents.Z - math.Abs(rel.Z),
	}
	axis := floats.MinIdx(depths)
	var n r3.Vec
	switch axis {
	case 0:
		n.X = sign(rel.X)
	case 1:
		n.Y = sign(rel.Y)
	default:
		n.Z = sign(rel.Z)
	}
	contact(ball, n, depths[axis]+shape.Radius, restitution)
}

func ballBall(a *Body, ca Ball, b *Body, cb Ball) {
	d := r3.Sub(a.Position, b.Position)
	dist := r3.Norm(d)
	overlap := ca.Radius + cb.Radius - dist
	if overlap <= 0 {
		return
	}
	n := r3.Vec{Y: 1}
	if dist > 0 {
		n = r3.Scale(1/dist, d)
	}
	restitution := math.Max(a.Restitution, b.Restitution)

	if b.Type != Dynamic {
		contact(a, n, overlap, restitution)
		return
	}
	// Equal masses share the separation and exchange normal velocity.
	a.Position = r3.Add(a.Position, r3.Scale(overlap/2, n))
	b.Position = r3.Sub(b.Position, r3.Scale(overlap/2, n))
	rel := r3.Dot(r3.Sub(a.Velocity, b.Velocity), n)
	if rel >= 0 {
		return
	}
	impulse := r3.Scale(-(1+restitution)*rel/2, n)
	a.Velocity = r3.Add(a.Velocity, impulse)
	b.Velocity = r3.Sub(b.Velocity, impulse)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
