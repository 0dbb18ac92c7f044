package vulkan

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// gpuContext is a device with a graphics queue and pool, created for
// tests that need real driver calls.
type gpuContext struct {
	allocator *MemoryAllocator
	queue     *Queue
	pool      *CommandPool
}

// newGPUContext opens a hidden window and brings up a device on it. The
// test is skipped when no window system or Vulkan driver is available.
func newGPUContext(t *testing.T) *gpuContext {
	t.Helper()
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)

	if err := glfw.Init(); err != nil {
		t.Skipf("glfw unavailable: %v", err)
	}
	t.Cleanup(glfw.Terminate)
	if !glfw.VulkanSupported() {
		t.Skip("no Vulkan loader")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Visible, glfw.False)
	window, err := glfw.CreateWindow(64, 64, "vulkan test", nil, nil)
	if err != nil {
		t.Skipf("no window: %v", err)
	}
	t.Cleanup(window.Destroy)

	if err := InitLoader(glfw.GetVulkanGetInstanceProcAddress()); err != nil {
		t.Skipf("Vulkan loader: %v", err)
	}
	instance, err := NewInstance(InstanceConfig{ApplicationName: "vulkan test", EngineName: "test"}, window.GetRequiredInstanceExtensions())
	if err != nil {
		t.Skipf("no instance: %v", err)
	}
	t.Cleanup(instance.Destroy)

	surface, err := instance.CreateSurface(window)
	if err != nil {
		t.Skipf("no surface: %v", err)
	}
	t.Cleanup(surface.Destroy)

	device, err := NewDevice(instance, surface)
	if err != nil {
		t.Skipf("no suitable device: %v", err)
	}
	t.Cleanup(func() {
		if err := device.Destroy(); err != nil {
			t.Errorf("device destroy: %v", err)
		}
	})

	allocator := NewMemoryAllocator(device)
	t.Cleanup(func() {
		if err := allocator.Destroy(); err != nil {
			t.Errorf("allocator destroy: %v", err)
		}
	})

	queue := device.Queue(QueueGraphics)
	pool, err := NewCommandPool(device, queue.FamilyIndex)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Destroy)

	return &gpuContext{allocator: allocator, queue: queue, pool: pool}
}

func testPattern(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	return data
}

func TestBufferLoadDataRoundTrip(t *testing.T) {
	gpu := newGPUContext(t)

	buffer, err := NewBuffer(gpu.allocator, 256, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), hostVisibleCoherent, MemoryUsageCPUToGPU)
	if err != nil {
		t.Fatal(err)
	}
	defer buffer.Destroy()

	want := testPattern(256)
	if err := buffer.LoadData(want); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	got, err := buffer.ReadData()
	if err != nil {
		t.Fatalf("ReadData() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("read back bytes differ from the written ones")
	}
}

func TestBufferLoadDataStagingRoundTrip(t *testing.T) {
	gpu := newGPUContext(t)
	transfer := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) | vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)

	deviceLocal, err := NewBuffer(gpu.allocator, 1024, transfer|vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), MemoryUsageGPUOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer deviceLocal.Destroy()

	download, err := NewBuffer(gpu.allocator, 1024, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), hostVisibleCoherent, MemoryUsageGPUToCPU)
	if err != nil {
		t.Fatal(err)
	}
	defer download.Destroy()

	want := testPattern(1024)
	if err := deviceLocal.LoadDataStaging(want, gpu.queue, gpu.pool); err != nil {
		t.Fatalf("LoadDataStaging() error = %v", err)
	}
	if err := deviceLocal.CopyTo(download, gpu.queue, gpu.pool); err != nil {
		t.Fatalf("CopyTo() error = %v", err)
	}
	got, err := download.ReadData()
	if err != nil {
		t.Fatalf("ReadData() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("device local contents differ from the uploaded data")
	}
}

func TestSubmitSingleUseFreesOnRecordError(t *testing.T) {
	gpu := newGPUContext(t)
	recordErr := errors.New("record failed")

	var recorded *CommandBuffer
	err := gpu.pool.SubmitSingleUse(gpu.queue, func(cb *CommandBuffer) error {
		recorded = cb
		return recordErr
	})
	if !errors.Is(err, recordErr) {
		t.Fatalf("err = %v, want the record error", err)
	}
	if recorded == nil || recorded.State != CommandBufferStateNotAllocated || recorded.Handle != nil {
		t.Errorf("command buffer was not freed after the failed record")
	}
}
