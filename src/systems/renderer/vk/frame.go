package vk

import (
	"math"
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/descriptors"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/future"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

type closer interface {
	Close()
}

// frameContext is everything one in-flight frame needs: its sync objects,
// a command buffer, and the per-draw uniforms and sets it allocated.
type frameContext struct {
	imageAvailable vulkan.Semaphore
	renderFinished vulkan.Semaphore
	fence          vulkan.Fence
	cb             vulkan.CommandBuffer
	pool           *descriptors.Pool
	uniforms       []closer

	// generation changes every time the context is recycled. Signals handed
	// out for an older generation report completion.
	generation uint64
	busy       bool
}

func (c *frameContext) track(u closer) {
	c.uniforms = append(c.uniforms, u)
}

// framePool grows frame contexts on demand up to limit. Contexts return to
// the free list when the future of the frame that used them retires, or when
// their fence is seen signaled.
type framePool struct {
	device *device.Device
	limit  int
	all    []*frameContext
	free   []*frameContext
	// busy is in submission order.
	busy []*frameContext
}

func newFramePool(dev *device.Device) *framePool {
	return &framePool{device: dev, limit: 2}
}

func (p *framePool) create() (*frameContext, error) {
	c := &frameContext{}
	var err error
	if c.imageAvailable, err = p.device.NewSemaphore(); err != nil {
		return nil, err
	}
	if c.renderFinished, err = p.device.NewSemaphore(); err != nil {
		p.destroy(c)
		return nil, err
	}
	if c.fence, err = p.device.NewFence(false); err != nil {
		p.destroy(c)
		return nil, err
	}
	if c.cb, err = p.device.AllocateCommandBuffer(); err != nil {
		p.destroy(c)
		return nil, err
	}
	if c.pool, err = descriptors.NewPool(p.device, 64, descriptors.PoolSizes(64, uniformSet, lightSet, skyboxSet)); err != nil {
		p.destroy(c)
		return nil, err
	}
	p.all = append(p.all, c)
	return c, nil
}

// take returns an idle context, waiting on the oldest busy one when the pool
// is at its limit.
func (p *framePool) take() (*frameContext, error) {
	p.collect()
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		return c, nil
	}
	if len(p.all) < p.limit || len(p.busy) == 0 {
		return p.create()
	}

	oldest := p.busy[0]
	if err := vulkan.Error(vulkan.WaitForFences(p.device.LogicalDevice, 1, []vulkan.Fence{oldest.fence}, vulkan.True, math.MaxUint64)); err != nil {
		return nil, errors.Wrap(err, "wait for frame fence")
	}
	p.recycle(oldest, oldest.generation)
	p.free = p.free[:len(p.free)-1]
	return oldest, nil
}

// put returns a context that was taken but never submitted.
func (p *framePool) put(c *frameContext) {
	p.free = append(p.free, c)
}

// submitted marks c in flight. The returned func recycles it and does nothing
// once c has moved on to another frame.
func (p *framePool) submitted(c *frameContext) func() {
	c.busy = true
	p.busy = append(p.busy, c)
	generation := c.generation
	return func() { p.recycle(c, generation) }
}

// collect recycles every busy context whose fence has signaled.
func (p *framePool) collect() {
	for _, c := range append([]*frameContext(nil), p.busy...) {
		if vulkan.GetFenceStatus(p.device.LogicalDevice, c.fence) == vulkan.Success {
			p.recycle(c, c.generation)
		}
	}
}

func (p *framePool) recycle(c *frameContext, generation uint64) {
	if !c.busy || c.generation != generation {
		return
	}
	for _, u := range c.uniforms {
		u.Close()
	}
	c.uniforms = nil
	if err := c.pool.Reset(); err != nil {
		logger.Get().Warn("failed to reset frame descriptor pool", "error", err)
	}
	if err := vulkan.Error(vulkan.ResetFences(p.device.LogicalDevice, 1, []vulkan.Fence{c.fence})); err != nil {
		logger.Get().Warn("failed to reset frame fence", "error", err)
	}
	c.busy = false
	c.generation++

	for i, b := range p.busy {
		if b == c {
			p.busy = append(p.busy[:i], p.busy[i+1:]...)
			break
		}
	}
	p.free = append(p.free, c)
}

func (p *framePool) destroy(c *frameContext) {
	dev := p.device.LogicalDevice
	for _, u := range c.uniforms {
		u.Close()
	}
	c.uniforms = nil
	if c.pool != nil {
		c.pool.Close()
	}
	if c.cb != nil {
		p.device.FreeCommandBuffer(c.cb)
	}
	if c.fence != vulkan.Fence(vulkan.NullHandle) {
		vulkan.DestroyFence(dev, c.fence, nil)
	}
	if c.imageAvailable != vulkan.Semaphore(vulkan.NullHandle) {
		vulkan.DestroySemaphore(dev, c.imageAvailable, nil)
	}
	if c.renderFinished != vulkan.Semaphore(vulkan.NullHandle) {
		vulkan.DestroySemaphore(dev, c.renderFinished, nil)
	}
}

// Close destroys every context. The device must be idle.
func (p *framePool) Close() {
	for _, c := range p.all {
		p.destroy(c)
	}
	p.all, p.free, p.busy = nil, nil, nil
}

// fenceSignal observes the fence of one generation of a frame context.
type fenceSignal struct {
	device     vulkan.Device
	context    *frameContext
	generation uint64
}

func (s fenceSignal) stale() bool {
	return s.context.generation != s.generation
}

func (s fenceSignal) Signaled() (bool, error) {
	if s.stale() {
		return true, nil
	}
	switch result := vulkan.GetFenceStatus(s.device, s.context.fence); result {
	case vulkan.Success:
		return true, nil
	case vulkan.NotReady:
		return false, nil
	default:
		return false, errors.Wrap(vulkan.Error(result), "fence status")
	}
}

func (s fenceSignal) Wait(timeout time.Duration) error {
	if s.stale() {
		return nil
	}
	nanos := uint64(math.MaxUint64)
	if timeout > 0 {
		nanos = uint64(timeout.Nanoseconds())
	}
	switch result := vulkan.WaitForFences(s.device, 1, []vulkan.Fence{s.context.fence}, vulkan.True, nanos); result {
	case vulkan.Success:
		return nil
	case vulkan.Timeout:
		return future.ErrTimeout
	default:
		return errors.Wrap(vulkan.Error(result), "wait for frame fence")
	}
}

// acquired is the Ready future of an Acquisition. The semaphore wait happens on
// the GPU, so from the host side it is complete immediately.
type acquired struct {
	context *frameContext
}

func (*acquired) Done() bool               { return true }
func (*acquired) Wait(time.Duration) error { return nil }
func (*acquired) CleanupFinished()         {}
