package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

func TestFormatTexelSize(t *testing.T) {
	tests := []struct {
		format vk.Format
		want   uint32
	}{
		{vk.FormatR8Unorm, 1},
		{vk.FormatR8g8b8a8Unorm, 4},
		{vk.FormatB8g8r8a8Srgb, 4},
		{vk.FormatR32Sfloat, 4},
		{vk.FormatR16g16b16a16Sfloat, 8},
		{vk.FormatR32g32b32a32Sfloat, 16},
	}
	for _, tt := range tests {
		got, err := FormatTexelSize(tt.format)
		if err != nil || got != tt.want {
			t.Errorf("FormatTexelSize(%d) = %d, %v, want %d", tt.format, got, err, tt.want)
		}
	}

	if _, err := FormatTexelSize(vk.FormatBc1RgbUnormBlock); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("compressed format: err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLayoutTransitionMasks(t *testing.T) {
	tests := []struct {
		name     string
		from, to vk.ImageLayout
		src, dst vk.PipelineStageFlagBits
		dstMask  vk.AccessFlagBits
	}{
		{"upload", vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit, vk.AccessTransferWriteBit},
		{"sample after upload", vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit, vk.AccessShaderReadBit},
		{"sample after read back", vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit, vk.AccessShaderReadBit},
		{"read back", vk.ImageLayoutUndefined, vk.ImageLayoutTransferSrcOptimal, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit, vk.AccessTransferReadBit},
		{"storage", vk.ImageLayoutUndefined, vk.ImageLayoutGeneral, vk.PipelineStageAllCommandsBit, vk.PipelineStageAllCommandsBit, vk.AccessShaderReadBit},
		{"storage after sampling", vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutGeneral, vk.PipelineStageAllCommandsBit, vk.PipelineStageAllCommandsBit, vk.AccessShaderWriteBit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masks, err := layoutTransitionMasks(tt.from, tt.to)
			if err != nil {
				t.Fatal(err)
			}
			if masks.srcStage != vk.PipelineStageFlags(tt.src) || masks.dstStage != vk.PipelineStageFlags(tt.dst) {
				t.Errorf("stages = %#x -> %#x", masks.srcStage, masks.dstStage)
			}
			if masks.dstAccess&vk.AccessFlags(tt.dstMask) == 0 {
				t.Errorf("dst access %#x lacks %#x", masks.dstAccess, tt.dstMask)
			}
		})
	}

	unsupported := [][2]vk.ImageLayout{
		{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal},
		{vk.ImageLayoutGeneral, vk.ImageLayoutUndefined},
		{vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal},
	}
	for _, pair := range unsupported {
		if _, err := layoutTransitionMasks(pair[0], pair[1]); !errors.Is(err, core.ErrUnsupportedLayoutTransition) {
			t.Errorf("%d -> %d: err = %v, want ErrUnsupportedLayoutTransition", pair[0], pair[1], err)
		}
	}
}

func TestTextureRejectsBadInput(t *testing.T) {
	texture := &Texture{Format: vk.FormatR8g8b8a8Unorm, Width: 2, Height: 2, Layout: vk.ImageLayoutShaderReadOnlyOptimal}

	if size, err := texture.ByteSize(); err != nil || size != 16 {
		t.Fatalf("ByteSize() = %d, %v, want 16", size, err)
	}
	if err := texture.WriteData(make([]byte, 15), nil, nil); !errors.Is(err, core.ErrDataSizeMismatch) {
		t.Errorf("short data: err = %v, want ErrDataSizeMismatch", err)
	}
	if err := texture.TransitionLayout(&CommandBuffer{State: CommandBufferStateRecording}, vk.ImageLayoutTransferDstOptimal, 0); !errors.Is(err, core.ErrUnsupportedLayoutTransition) {
		t.Errorf("bad transition: err = %v", err)
	}
	if texture.Layout != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Error("failed transition changed the recorded layout")
	}

	unknown := &Texture{Format: vk.FormatBc1RgbUnormBlock, Width: 4, Height: 4}
	if err := unknown.WriteData(make([]byte, 8), nil, nil); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("unknown format: err = %v, want ErrUnsupportedFormat", err)
	}
}
