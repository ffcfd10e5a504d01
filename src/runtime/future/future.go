// Package future tracks GPU completion without blocking the frame loop.
//
// A frame's future wraps the future of the frame before it, so polling the newest
// future with CleanupFinished releases everything that already retired.
package future

import (
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/cockroachdb/errors"
)

var ErrTimeout = errors.New("timed out waiting for gpu work")

type Future interface {
	// Done reports whether this work and everything it depends on has completed.
	// It never blocks.
	Done() bool
	// Wait blocks until the work completes. A zero timeout waits forever.
	Wait(timeout time.Duration) error
	// CleanupFinished runs the release hooks of every completed link in the chain.
	CleanupFinished()
}

// Signal is a host-visible completion primitive, usually a fence.
type Signal interface {
	Signaled() (bool, error)
	Wait(timeout time.Duration) error
}

type now struct{}

func (now) Done() bool               { return true }
func (now) Wait(time.Duration) error { return nil }
func (now) CleanupFinished()         {}

// Now returns an already completed future.
func Now() Future {
	return now{}
}

type joined struct {
	a, b Future
}

// Join returns a future that completes when both a and b have completed.
func Join(a, b Future) Future {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &joined{a: a, b: b}
}

func (j *joined) Done() bool {
	return j.a.Done() && j.b.Done()
}

func (j *joined) Wait(timeout time.Duration) error {
	if err := j.a.Wait(timeout); err != nil {
		return err
	}
	return j.b.Wait(timeout)
}

func (j *joined) CleanupFinished() {
	j.a.CleanupFinished()
	j.b.CleanupFinished()
}

// Fenced is work signalled by a Signal that was submitted after previous.
type Fenced struct {
	signal   Signal
	previous Future
	release  func()
	signaled bool
	released bool
}

// After chains work guarded by signal behind previous. release runs once, from
// CleanupFinished, after the signal fires.
func After(previous Future, signal Signal, release func()) *Fenced {
	return &Fenced{
		signal:   signal,
		previous: previous,
		release:  release,
	}
}

func (f *Fenced) poll() bool {
	if f.signaled {
		return true
	}
	ok, err := f.signal.Signaled()
	if err != nil {
		logger.Get().Warn("failed to poll gpu signal", "error", err)
		return false
	}
	f.signaled = ok
	return ok
}

func (f *Fenced) Done() bool {
	if !f.poll() {
		return false
	}
	return f.previous == nil || f.previous.Done()
}

func (f *Fenced) Wait(timeout time.Duration) error {
	if !f.signaled {
		if err := f.signal.Wait(timeout); err != nil {
			return err
		}
		f.signaled = true
	}
	if f.previous != nil {
		return f.previous.Wait(timeout)
	}
	return nil
}

func (f *Fenced) CleanupFinished() {
	if f.previous != nil {
		f.previous.CleanupFinished()
		if f.previous.Done() {
			f.previous = nil
		}
	}
	if f.released || !f.poll() {
		return
	}
	f.released = true
	if f.release != nil {
		f.release()
	}
}
