package device

import (
	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/WowVeryLogin/deferred_engine/src/window"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

func checkValidationLayers() error {
	var layerCount uint32
	if err := vulkan.Error(vulkan.EnumerateInstanceLayerProperties(&layerCount, nil)); err != nil {
		return errors.Wrap(err, "enumerate instance layers")
	}

	availableLayers := make([]vulkan.LayerProperties, layerCount)
	if err := vulkan.Error(vulkan.EnumerateInstanceLayerProperties(&layerCount, availableLayers)); err != nil {
		return errors.Wrap(err, "enumerate instance layers")
	}

	for _, layer := range availableLayers {
		layer.Deref()
		if vulkan.ToString(layer.LayerName[:]) == validationLayer {
			return nil
		}
	}

	return errors.Newf("validation layer %s not found", validationLayer)
}

func instanceExtensions() (map[string]bool, error) {
	var count uint32
	if err := vulkan.Error(vulkan.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}
	props := make([]vulkan.ExtensionProperties, count)
	if err := vulkan.Error(vulkan.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}

	names := make(map[string]bool, count)
	for _, p := range props {
		p.Deref()
		names[vulkan.ToString(p.ExtensionName[:])] = true
	}
	return names, nil
}

func newInstance(withValidation bool, w *window.Window) (vulkan.Instance, error) {
	if withValidation {
		if err := checkValidationLayers(); err != nil {
			return nil, err
		}
	}

	available, err := instanceExtensions()
	if err != nil {
		return nil, err
	}

	extensions := w.GetRequiredInstanceExtensions()
	if withValidation {
		extensions = append(extensions, vulkan.ExtDebugUtilsExtensionName+"\x00")
	}
	var flags vulkan.InstanceCreateFlags
	if available[vulkan.KhrPortabilityEnumerationExtensionName] {
		extensions = append(extensions, vulkan.KhrPortabilityEnumerationExtensionName+"\x00")
		flags = vulkan.InstanceCreateFlags(vulkan.InstanceCreateEnumeratePortabilityBit)
	}

	createInfo := vulkan.InstanceCreateInfo{
		SType: vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vulkan.ApplicationInfo{
			SType:              vulkan.StructureTypeApplicationInfo,
			PApplicationName:   "Deferred Engine\x00",
			ApplicationVersion: vulkan.MakeVersion(1, 0, 0),
			PEngineName:        "Deferred Engine\x00",
			EngineVersion:      vulkan.MakeVersion(1, 0, 0),
			ApiVersion:         vulkan.MakeVersion(1, 3, 0),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		Flags:                   flags,
	}
	if withValidation {
		createInfo.EnabledLayerCount = 1
		createInfo.PpEnabledLayerNames = []string{validationLayer + "\x00"}
	}

	var instance vulkan.Instance
	if err := vulkan.Error(vulkan.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return nil, errors.Wrap(err, "create instance")
	}

	if err := vulkan.InitInstance(instance); err != nil {
		vulkan.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "init instance")
	}

	return instance, nil
}

func deviceExtensions(device vulkan.PhysicalDevice) (map[string]bool, error) {
	var extensionCount uint32
	if err := vulkan.Error(vulkan.EnumerateDeviceExtensionProperties(device, "", &extensionCount, nil)); err != nil {
		return nil, errors.Wrap(err, "enumerate device extensions")
	}

	extensions := make([]vulkan.ExtensionProperties, extensionCount)
	if err := vulkan.Error(vulkan.EnumerateDeviceExtensionProperties(device, "", &extensionCount, extensions)); err != nil {
		return nil, errors.Wrap(err, "enumerate device extensions")
	}

	names := make(map[string]bool, extensionCount)
	for _, extension := range extensions {
		extension.Deref()
		names[vulkan.ToString(extension.ExtensionName[:])] = true
	}
	return names, nil
}

func pickPhysicalDevice(instance vulkan.Instance) (vulkan.PhysicalDevice, map[string]bool, error) {
	var devicesCount uint32
	if err := vulkan.Error(vulkan.EnumeratePhysicalDevices(instance, &devicesCount, nil)); err != nil {
		return nil, nil, errors.Wrap(err, "enumerate physical devices")
	}
	devices := make([]vulkan.PhysicalDevice, devicesCount)
	if err := vulkan.Error(vulkan.EnumeratePhysicalDevices(instance, &devicesCount, devices)); err != nil {
		return nil, nil, errors.Wrap(err, "enumerate physical devices")
	}

	for _, device := range devices {
		extensions, err := deviceExtensions(device)
		if err != nil {
			return nil, nil, err
		}
		if extensions[vulkan.KhrSwapchainExtensionName] {
			return device, extensions, nil
		}
	}

	return nil, nil, errors.New("no suitable device found")
}

func findGraphicQueueFamily(device vulkan.PhysicalDevice, surface vulkan.Surface) (int, error) {
	var queueFamilyCount uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queuesFamilies := make([]vulkan.QueueFamilyProperties, queueFamilyCount)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queuesFamilies)

	for i, family := range queuesFamilies {
		family.Deref()
		if family.QueueCount > 0 && family.QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) > 0 {
			var supported vulkan.Bool32
			vulkan.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supported)
			if supported.B() {
				return i, nil
			}
		}
	}

	return 0, errors.New("no graphics queue family can present to the surface")
}

func createLogicalDevice(device vulkan.PhysicalDevice, queueIdx int, available map[string]bool) (vulkan.Device, error) {
	extensions := []string{vulkan.KhrSwapchainExtensionName + "\x00"}
	if available[vulkan.KhrPortabilitySubsetExtensionName] {
		extensions = append(extensions, vulkan.KhrPortabilitySubsetExtensionName+"\x00")
	}

	var logicalDevice vulkan.Device
	if err := vulkan.Error(vulkan.CreateDevice(device, &vulkan.DeviceCreateInfo{
		SType:                vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vulkan.DeviceQueueCreateInfo{
			{
				SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
				QueueFamilyIndex: uint32(queueIdx),
				QueueCount:       1,
				PQueuePriorities: []float32{1.0},
			},
		},
		PEnabledFeatures: []vulkan.PhysicalDeviceFeatures{
			{
				SamplerAnisotropy: vulkan.True,
			},
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}, nil, &logicalDevice)); err != nil {
		return nil, errors.Wrap(err, "create logical device")
	}

	return logicalDevice, nil
}

func createCommandPool(device vulkan.Device, queueIdx int) (vulkan.CommandPool, error) {
	var pool vulkan.CommandPool
	if err := vulkan.Error(vulkan.CreateCommandPool(device, &vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(queueIdx),
		Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateTransientBit | vulkan.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)); err != nil {
		return nil, errors.Wrap(err, "create command pool")
	}
	return pool, nil
}

// ErrDeviceLost marks results where Vulkan reported the device as lost.
var ErrDeviceLost = errors.New("vulkan device lost")

// Check wraps a failed result with msg, marking lost devices with ErrDeviceLost.
func Check(result vulkan.Result, msg string) error {
	err := vulkan.Error(result)
	if err == nil {
		return nil
	}
	if result == vulkan.ErrorDeviceLost {
		return errors.Mark(errors.Wrap(err, msg), ErrDeviceLost)
	}
	return errors.Wrap(err, msg)
}

// Device owns the instance, surface, logical device, graphics queue and its command pool.
type Device struct {
	instance       vulkan.Instance
	Surface        vulkan.Surface
	queueIdx       int
	Queue          vulkan.Queue
	physicalDevice vulkan.PhysicalDevice
	LogicalDevice  vulkan.Device
	Pool           vulkan.CommandPool
}

func New(w *window.Window, withValidation bool) (*Device, error) {
	instance, err := newInstance(withValidation, w)
	if err != nil {
		return nil, err
	}
	d := &Device{instance: instance}

	if d.Surface, err = w.CreateSurface(instance); err != nil {
		d.Close()
		return nil, err
	}

	physical, extensions, err := pickPhysicalDevice(instance)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.physicalDevice = physical

	if d.queueIdx, err = findGraphicQueueFamily(physical, d.Surface); err != nil {
		d.Close()
		return nil, err
	}

	if d.LogicalDevice, err = createLogicalDevice(physical, d.queueIdx, extensions); err != nil {
		d.Close()
		return nil, err
	}

	var queue vulkan.Queue
	vulkan.GetDeviceQueue(d.LogicalDevice, uint32(d.queueIdx), 0, &queue)
	d.Queue = queue

	if d.Pool, err = createCommandPool(d.LogicalDevice, d.queueIdx); err != nil {
		d.Close()
		return nil, err
	}

	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(physical, &props)
	props.Deref()
	logger.Get().Info("picked physical device",
		"name", vulkan.ToString(props.DeviceName[:]),
		"queue_family", d.queueIdx,
		"validation", withValidation,
	)

	return d, nil
}

func (v *Device) findMemoryType(typeFilter uint32, properties vulkan.MemoryPropertyFlags) (uint32, error) {
	var memProperties vulkan.PhysicalDeviceMemoryProperties
	vulkan.GetPhysicalDeviceMemoryProperties(v.physicalDevice, &memProperties)
	memProperties.Deref()

	for i := uint32(0); i < memProperties.MemoryTypeCount; i++ {
		memProperties.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && (memProperties.MemoryTypes[i].PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("no memory type matches filter %b with properties %b", typeFilter, properties)
}

func (v *Device) allocate(req vulkan.MemoryRequirements, properties vulkan.MemoryPropertyFlags) (vulkan.DeviceMemory, error) {
	typeIdx, err := v.findMemoryType(req.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}

	var memory vulkan.DeviceMemory
	if err := vulkan.Error(vulkan.AllocateMemory(v.LogicalDevice, &vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &memory)); err != nil {
		return nil, errors.Wrap(err, "allocate memory")
	}
	return memory, nil
}

func (v *Device) CreateBuffer(
	size vulkan.DeviceSize,
	usage vulkan.BufferUsageFlags,
	memProperties vulkan.MemoryPropertyFlags,
) (vulkan.Buffer, vulkan.DeviceMemory, error) {
	var buffer vulkan.Buffer
	if err := vulkan.Error(vulkan.CreateBuffer(v.LogicalDevice, &vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vulkan.SharingModeExclusive,
	}, nil, &buffer)); err != nil {
		return nil, nil, errors.Wrap(err, "create buffer")
	}

	var memRequirements vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(v.LogicalDevice, buffer, &memRequirements)
	memRequirements.Deref()

	memory, err := v.allocate(memRequirements, memProperties)
	if err != nil {
		vulkan.DestroyBuffer(v.LogicalDevice, buffer, nil)
		return nil, nil, errors.Wrap(err, "buffer memory")
	}

	if err := vulkan.Error(vulkan.BindBufferMemory(v.LogicalDevice, buffer, memory, 0)); err != nil {
		vulkan.DestroyBuffer(v.LogicalDevice, buffer, nil)
		vulkan.FreeMemory(v.LogicalDevice, memory, nil)
		return nil, nil, errors.Wrap(err, "bind buffer memory")
	}

	return buffer, memory, nil
}

func (v *Device) CreateImageWithInfo(
	createInfo vulkan.ImageCreateInfo,
	properties vulkan.MemoryPropertyFlags,
) (vulkan.Image, vulkan.DeviceMemory, error) {
	var image vulkan.Image
	if err := vulkan.Error(vulkan.CreateImage(v.LogicalDevice, &createInfo, nil, &image)); err != nil {
		return nil, nil, errors.Wrap(err, "create image")
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(v.LogicalDevice, image, &memReq)
	memReq.Deref()

	imageMemory, err := v.allocate(memReq, properties)
	if err != nil {
		vulkan.DestroyImage(v.LogicalDevice, image, nil)
		return nil, nil, errors.Wrap(err, "image memory")
	}

	if err := vulkan.Error(vulkan.BindImageMemory(v.LogicalDevice, image, imageMemory, 0)); err != nil {
		vulkan.DestroyImage(v.LogicalDevice, image, nil)
		vulkan.FreeMemory(v.LogicalDevice, imageMemory, nil)
		return nil, nil, errors.Wrap(err, "bind image memory")
	}

	return image, imageMemory, nil
}

func (v *Device) CreateImageView(info vulkan.ImageViewCreateInfo) (vulkan.ImageView, error) {
	info.SType = vulkan.StructureTypeImageViewCreateInfo
	var view vulkan.ImageView
	if err := vulkan.Error(vulkan.CreateImageView(v.LogicalDevice, &info, nil, &view)); err != nil {
		return nil, errors.Wrap(err, "create image view")
	}
	return view, nil
}

func (v *Device) FindSupportedFormat(
	candidates []vulkan.Format,
	tiling vulkan.ImageTiling,
	features vulkan.FormatFeatureFlags,
) (vulkan.Format, error) {
	for _, format := range candidates {
		var properties vulkan.FormatProperties
		vulkan.GetPhysicalDeviceFormatProperties(v.physicalDevice, format, &properties)
		properties.Deref()

		if tiling == vulkan.ImageTilingLinear && (properties.LinearTilingFeatures&features) == features {
			return format, nil
		}
		if tiling == vulkan.ImageTilingOptimal && (properties.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}
	return vulkan.FormatUndefined, errors.Newf("none of %d candidate formats is supported", len(candidates))
}

type SwapchainProperties struct {
	Caps     vulkan.SurfaceCapabilities
	Formats  []vulkan.SurfaceFormat
	Presents []vulkan.PresentMode
}

func (v *Device) SwapchainSupport() (SwapchainProperties, error) {
	sp := SwapchainProperties{}

	if err := vulkan.Error(vulkan.GetPhysicalDeviceSurfaceCapabilities(v.physicalDevice, v.Surface, &sp.Caps)); err != nil {
		return sp, errors.Wrap(err, "query surface capabilities")
	}
	sp.Caps.Deref()
	sp.Caps.CurrentExtent.Deref()
	sp.Caps.MaxImageExtent.Deref()
	sp.Caps.MinImageExtent.Deref()

	var formatCount uint32
	if err := vulkan.Error(vulkan.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.Surface, &formatCount, nil)); err != nil {
		return sp, errors.Wrap(err, "query surface formats")
	}
	if formatCount != 0 {
		sp.Formats = make([]vulkan.SurfaceFormat, formatCount)
		if err := vulkan.Error(vulkan.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.Surface, &formatCount, sp.Formats)); err != nil {
			return sp, errors.Wrap(err, "query surface formats")
		}
	}

	var presentCount uint32
	if err := vulkan.Error(vulkan.GetPhysicalDeviceSurfacePresentModes(v.physicalDevice, v.Surface, &presentCount, nil)); err != nil {
		return sp, errors.Wrap(err, "query surface present modes")
	}
	if presentCount != 0 {
		sp.Presents = make([]vulkan.PresentMode, presentCount)
		if err := vulkan.Error(vulkan.GetPhysicalDeviceSurfacePresentModes(v.physicalDevice, v.Surface, &presentCount, sp.Presents)); err != nil {
			return sp, errors.Wrap(err, "query surface present modes")
		}
	}

	return sp, nil
}

func (v *Device) NewSemaphore() (vulkan.Semaphore, error) {
	var semaphore vulkan.Semaphore
	if err := vulkan.Error(vulkan.CreateSemaphore(v.LogicalDevice, &vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}, nil, &semaphore)); err != nil {
		return nil, errors.Wrap(err, "create semaphore")
	}
	return semaphore, nil
}

func (v *Device) NewFence(signaled bool) (vulkan.Fence, error) {
	info := vulkan.FenceCreateInfo{SType: vulkan.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}
	var fence vulkan.Fence
	if err := vulkan.Error(vulkan.CreateFence(v.LogicalDevice, &info, nil, &fence)); err != nil {
		return nil, errors.Wrap(err, "create fence")
	}
	return fence, nil
}

func (v *Device) AllocateCommandBuffer() (vulkan.CommandBuffer, error) {
	commandBuffers := make([]vulkan.CommandBuffer, 1)
	if err := vulkan.Error(vulkan.AllocateCommandBuffers(v.LogicalDevice, &vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandPool:        v.Pool,
		CommandBufferCount: 1,
	}, commandBuffers)); err != nil {
		return nil, errors.Wrap(err, "allocate command buffer")
	}
	return commandBuffers[0], nil
}

func (v *Device) FreeCommandBuffer(cb vulkan.CommandBuffer) {
	vulkan.FreeCommandBuffers(v.LogicalDevice, v.Pool, 1, []vulkan.CommandBuffer{cb})
}

func (v *Device) WaitIdle() error {
	return errors.Wrap(vulkan.Error(vulkan.DeviceWaitIdle(v.LogicalDevice)), "wait device idle")
}

func (v *Device) Close() {
	if v.LogicalDevice != nil {
		if v.Pool != nil {
			vulkan.DestroyCommandPool(v.LogicalDevice, v.Pool, nil)
		}
		vulkan.DestroyDevice(v.LogicalDevice, nil)
	}
	if v.Surface != vulkan.Surface(vulkan.NullHandle) {
		vulkan.DestroySurface(v.instance, v.Surface, nil)
	}
	vulkan.DestroyInstance(v.instance, nil)
}
