package swapchain

import (
	"math"
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

var (
	ErrOutOfDate  = errors.New("swapchain out of date")
	ErrSuboptimal = errors.New("swapchain suboptimal")
	ErrTimeout    = errors.New("swapchain acquire timed out")
	ErrZeroExtent = errors.New("swapchain extent is zero")
)

type Swapchain struct {
	device    *device.Device
	swapchain vulkan.Swapchain

	Format vulkan.Format
	Extent vulkan.Extent2D
	Images []vulkan.Image
	Views  []vulkan.ImageView
}

func chooseSwapSurfaceFormat(formats []vulkan.SurfaceFormat) vulkan.SurfaceFormat {
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vulkan.FormatB8g8r8a8Srgb && formats[i].ColorSpace == vulkan.ColorSpaceSrgbNonlinear {
			return formats[i]
		}
	}

	return formats[0]
}

func chooseSwapPresentMode(modes []vulkan.PresentMode) vulkan.PresentMode {
	for _, mode := range modes {
		if mode == vulkan.PresentModeMailbox {
			return mode
		}
	}

	return vulkan.PresentModeFifo
}

func chooseSwapExtent(windowExtent vulkan.Extent2D, caps vulkan.SurfaceCapabilities) vulkan.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}

	windowExtent.Width = max(caps.MinImageExtent.Width, min(caps.MaxImageExtent.Width, windowExtent.Width))
	windowExtent.Height = max(caps.MinImageExtent.Height, min(caps.MaxImageExtent.Height, windowExtent.Height))

	return windowExtent
}

func imageCount(caps vulkan.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// New creates a swapchain for the device surface. old, when not nil, is handed
// to the driver as the retired swapchain; the caller still owns and closes it.
func New(dev *device.Device, windowExtent vulkan.Extent2D, old *Swapchain) (*Swapchain, error) {
	sp, err := dev.SwapchainSupport()
	if err != nil {
		return nil, err
	}
	if len(sp.Formats) == 0 || len(sp.Presents) == 0 {
		return nil, errors.New("surface reports no formats or present modes")
	}

	surfaceFormat := chooseSwapSurfaceFormat(sp.Formats)
	presentMode := chooseSwapPresentMode(sp.Presents)
	extent := chooseSwapExtent(windowExtent, sp.Caps)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, ErrZeroExtent
	}

	var oldSwapchain vulkan.Swapchain
	if old != nil {
		oldSwapchain = old.swapchain
	}

	var handle vulkan.Swapchain
	if err := vulkan.Error(vulkan.CreateSwapchain(dev.LogicalDevice, &vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          dev.Surface,
		OldSwapchain:     oldSwapchain,
		MinImageCount:    imageCount(sp.Caps),
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		ImageSharingMode: vulkan.SharingModeExclusive,
		PreTransform:     sp.Caps.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vulkan.True,
	}, nil, &handle)); err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	s := &Swapchain{
		device:    dev,
		swapchain: handle,
		Format:    surfaceFormat.Format,
		Extent:    extent,
	}

	var count uint32
	if err := vulkan.Error(vulkan.GetSwapchainImages(dev.LogicalDevice, handle, &count, nil)); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "swapchain image count")
	}
	s.Images = make([]vulkan.Image, count)
	if err := vulkan.Error(vulkan.GetSwapchainImages(dev.LogicalDevice, handle, &count, s.Images)); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "swapchain images")
	}

	for i, image := range s.Images {
		view, err := dev.CreateImageView(vulkan.ImageViewCreateInfo{
			Image:    image,
			ViewType: vulkan.ImageViewType2d,
			Format:   s.Format,
			SubresourceRange: vulkan.ImageSubresourceRange{
				AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "swapchain image view %d", i)
		}
		s.Views = append(s.Views, view)
	}

	return s, nil
}

func timeoutNanos(timeout time.Duration) uint64 {
	if timeout <= 0 {
		return math.MaxUint64
	}
	return uint64(timeout.Nanoseconds())
}

// Acquire requests the next presentable image. The image index is valid when
// the error is nil or ErrSuboptimal; in the latter case the semaphore will
// still be signaled. A non-positive timeout waits forever.
func (s *Swapchain) Acquire(signal vulkan.Semaphore, timeout time.Duration) (uint32, error) {
	var imageIndex uint32
	result := vulkan.AcquireNextImage(s.device.LogicalDevice, s.swapchain, timeoutNanos(timeout), signal, vulkan.Fence(vulkan.NullHandle), &imageIndex)
	switch result {
	case vulkan.Success:
		return imageIndex, nil
	case vulkan.Suboptimal:
		return imageIndex, ErrSuboptimal
	case vulkan.ErrorOutOfDate:
		return 0, ErrOutOfDate
	case vulkan.Timeout, vulkan.NotReady:
		return 0, ErrTimeout
	}
	return 0, device.Check(result, "acquire next image")
}

// Present queues imageIndex for presentation once wait is signaled.
func (s *Swapchain) Present(wait vulkan.Semaphore, imageIndex uint32) error {
	result := vulkan.QueuePresent(s.device.Queue, &vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{s.swapchain},
		PImageIndices:      []uint32{imageIndex},
	})
	switch result {
	case vulkan.Success:
		return nil
	case vulkan.Suboptimal:
		return ErrSuboptimal
	case vulkan.ErrorOutOfDate:
		return ErrOutOfDate
	}
	return device.Check(result, "present")
}

func (s *Swapchain) ImageCount() int {
	return len(s.Images)
}

func (s *Swapchain) Close() {
	for _, view := range s.Views {
		vulkan.DestroyImageView(s.device.LogicalDevice, view, nil)
	}
	s.Views = nil
	if s.swapchain != vulkan.Swapchain(vulkan.NullHandle) {
		vulkan.DestroySwapchain(s.device.LogicalDevice, s.swapchain, nil)
		s.swapchain = vulkan.Swapchain(vulkan.NullHandle)
	}
}
