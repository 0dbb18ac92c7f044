package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

func TestCommandBufferStateErrors(t *testing.T) {
	tests := []struct {
		name  string
		state CommandBufferState
		call  func(cb *CommandBuffer) error
	}{
		{"end before begin", CommandBufferStateReady, func(cb *CommandBuffer) error { return cb.End() }},
		{"begin while recording", CommandBufferStateRecording, func(cb *CommandBuffer) error { return cb.Begin(false, false, false) }},
		{"begin unallocated", CommandBufferStateNotAllocated, func(cb *CommandBuffer) error { return cb.Begin(true, false, false) }},
		{"draw outside render pass", CommandBufferStateRecording, func(cb *CommandBuffer) error { return cb.Draw(3, 1, 0, 0) }},
		{"indexed draw outside render pass", CommandBufferStateRecording, func(cb *CommandBuffer) error { return cb.DrawIndexed(3, 1, 0, 0, 0) }},
		{"dispatch inside render pass", CommandBufferStateInRenderPass, func(cb *CommandBuffer) error { return cb.Dispatch(1, 1, 1) }},
		{"dispatch when not recording", CommandBufferStateReady, func(cb *CommandBuffer) error { return cb.Dispatch(1, 1, 1) }},
		{"end render pass without one", CommandBufferStateRecording, func(cb *CommandBuffer) error { return cb.EndRenderPass() }},
		{"nested render pass", CommandBufferStateInRenderPass, func(cb *CommandBuffer) error { return cb.BeginRenderPass(&RenderPass{}, &Framebuffer{}, vk.Rect2D{}) }},
		{"viewport after end", CommandBufferStateRecordingEnded, func(cb *CommandBuffer) error { return cb.SetViewport(vk.Viewport{}) }},
		{"push constants when submitted", CommandBufferStateSubmitted, func(cb *CommandBuffer) error { return cb.PushConstants(&Pipeline{}, 0, 0, []byte{0, 0, 0, 0}) }},
		{"copy inside render pass", CommandBufferStateInRenderPass, func(cb *CommandBuffer) error { return cb.CopyBuffer(&Buffer{}, &Buffer{}, 4) }},
		{"barrier inside render pass", CommandBufferStateInRenderPass, func(cb *CommandBuffer) error { return cb.PipelineBarrier(0, 0) }},
		{"reset while recording", CommandBufferStateRecording, func(cb *CommandBuffer) error { return cb.Reset() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := &CommandBuffer{State: tt.state}
			err := tt.call(cb)
			if !errors.Is(err, core.ErrInvalidCommandBufferState) {
				t.Fatalf("err = %v, want ErrInvalidCommandBufferState", err)
			}
			if cb.State != tt.state {
				t.Errorf("state changed to %s", cb.State)
			}
		})
	}
}

func TestQueueSubmitValidation(t *testing.T) {
	queue := &Queue{}

	cb := &CommandBuffer{State: CommandBufferStateRecordingEnded}
	err := queue.Submit(cb, []*Semaphore{{}}, nil, nil, nil)
	if err == nil {
		t.Error("wait semaphores without stage masks accepted")
	}

	err = queue.Submit(cb, nil, nil, nil, &Fence{IsSignaled: true})
	if err == nil {
		t.Error("signaled fence accepted")
	}
	if cb.State != CommandBufferStateRecordingEnded {
		t.Errorf("rejected submit moved the buffer to %s", cb.State)
	}

	recording := &CommandBuffer{State: CommandBufferStateRecording}
	if err := queue.Submit(recording, nil, nil, nil, nil); !errors.Is(err, core.ErrInvalidCommandBufferState) {
		t.Errorf("submit while recording: err = %v", err)
	}
}

func TestBufferLoadDataSizeMismatch(t *testing.T) {
	buffer := &Buffer{Size: 16}
	tests := []struct {
		name string
		data []byte
	}{
		{"short", make([]byte, 8)},
		{"long", make([]byte, 17)},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := buffer.LoadData(tt.data); !errors.Is(err, core.ErrDataSizeMismatch) {
				t.Errorf("err = %v, want ErrDataSizeMismatch", err)
			}
		})
	}
}

func TestShaderModuleRejectsBadCode(t *testing.T) {
	tests := []struct {
		name string
		code []uint32
	}{
		{"empty", nil},
		{"wrong magic", []uint32{0xdeadbeef, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewShaderModule(nil, tt.name, tt.code); !errors.Is(err, core.ErrInvalidShaderCode) {
				t.Errorf("err = %v, want ErrInvalidShaderCode", err)
			}
		})
	}
}

func TestShaderModuleCreateInfoCodeSize(t *testing.T) {
	tests := []struct {
		name string
		code []uint32
		want uint64
	}{
		{"header only", []uint32{spirvMagic}, 4},
		{"five words", []uint32{spirvMagic, 0x00010000, 0, 1, 0}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := shaderModuleCreateInfo(tt.code)
			if info.CodeSize != tt.want {
				t.Errorf("CodeSize = %d, want %d", info.CodeSize, tt.want)
			}
			if info.SType != vk.StructureTypeShaderModuleCreateInfo || len(info.PCode) != len(tt.code) {
				t.Errorf("create info = %+v", info)
			}
		})
	}
}
