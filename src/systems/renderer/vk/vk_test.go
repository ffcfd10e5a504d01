package vk

import (
	"testing"

	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/swapchain"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

func TestFillKeepsTemplate(t *testing.T) {
	var buf vulkan.Buffer
	filled := fill(lightSet, uniform(buf))
	if len(filled) != len(lightSet) {
		t.Fatalf("filled %d descriptors, want %d", len(filled), len(lightSet))
	}
	for i := range filled {
		if filled[i].Type != lightSet[i].Type || filled[i].Flags != lightSet[i].Flags {
			t.Errorf("binding %d changed type or stages", i)
		}
	}
	if lightSet[0].Buffer != nil {
		t.Errorf("template was modified")
	}
}

func TestPresentError(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{errors.Wrap(swapchain.ErrOutOfDate, "present"), renderer.ErrOutOfDate},
		{swapchain.ErrSuboptimal, renderer.ErrSuboptimal},
		{errors.Mark(errors.New("lost"), device.ErrDeviceLost), renderer.ErrDeviceLost},
	}
	for _, c := range cases {
		if got := presentError(c.in); !errors.Is(got, c.want) {
			t.Errorf("presentError(%v) = %v, want %v", c.in, got, c.want)
		}
	}
	if err := presentError(nil); err != nil {
		t.Errorf("presentError(nil) = %v", err)
	}
	other := errors.New("other")
	if got := presentError(other); errors.Is(got, renderer.ErrDeviceLost) {
		t.Errorf("unrelated error marked as device lost")
	}
}

func TestStaleFenceSignalIsComplete(t *testing.T) {
	ctx := &frameContext{generation: 3}
	s := fenceSignal{context: ctx, generation: 2}
	ok, err := s.Signaled()
	if err != nil || !ok {
		t.Fatalf("Signaled() = %v, %v; want true, nil", ok, err)
	}
	if err := s.Wait(0); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
}

func TestAcquiredIsReady(t *testing.T) {
	a := &acquired{}
	if !a.Done() {
		t.Fatalf("acquisition future not done")
	}
	if err := a.Wait(0); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
}
