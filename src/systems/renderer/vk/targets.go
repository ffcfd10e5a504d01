package vk

import (
	"github.com/WowVeryLogin/deferred_engine/src/runtime/descriptors"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/gbuffer"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/swapchain"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

// targets bundles a swapchain with the G-buffer built for it and the input
// attachment set the lighting subpass reads.
type targets struct {
	swapchain *swapchain.Swapchain
	gbuffer   *gbuffer.Set
	pool      *descriptors.Pool
	inputs    vulkan.DescriptorSet
}

func (t *targets) Extent() renderer.Extent {
	return renderer.Extent{Width: t.swapchain.Extent.Width, Height: t.swapchain.Extent.Height}
}

func (t *targets) ImageCount() int {
	return t.swapchain.ImageCount()
}

func (t *targets) Close() {
	if t.pool != nil {
		t.pool.Close()
		t.pool = nil
	}
	if t.gbuffer != nil {
		t.gbuffer.Close()
		t.gbuffer = nil
	}
	if t.swapchain != nil {
		t.swapchain.Close()
		t.swapchain = nil
	}
}

func (b *Backend) CreateTargets(prev renderer.Targets, extent renderer.Extent) (renderer.Targets, error) {
	// The old bundle may still be in flight and its swapchain is retired below.
	if err := b.device.WaitIdle(); err != nil {
		return nil, err
	}
	b.frames.collect()

	var old *swapchain.Swapchain
	if p, ok := prev.(*targets); ok && p != nil {
		old = p.swapchain
	}

	sc, err := swapchain.New(b.device, vulkan.Extent2D{Width: extent.Width, Height: extent.Height}, old)
	if errors.Is(err, swapchain.ErrZeroExtent) {
		return nil, errors.Mark(err, renderer.ErrInvalidExtent)
	}
	if err != nil {
		return nil, err
	}
	t := &targets{swapchain: sc}

	if err := b.ensurePass(sc.Format); err != nil {
		t.Close()
		return nil, err
	}

	if t.gbuffer, err = gbuffer.New(b.device, b.renderPass, b.formats, sc.Views, sc.Extent); err != nil {
		t.Close()
		return nil, err
	}

	if t.pool, err = descriptors.NewPool(b.device, 1, descriptors.PoolSizes(1, gbufferSet)); err != nil {
		t.Close()
		return nil, err
	}
	in := t.gbuffer.Inputs()
	if t.inputs, err = t.pool.Allocate(b.pipelines.sets.gbuffer, fill(gbufferSet, input(in[0]), input(in[1]), input(in[2]), input(in[3]))); err != nil {
		t.Close()
		return nil, err
	}

	b.frames.limit = sc.ImageCount() + 1
	return t, nil
}
