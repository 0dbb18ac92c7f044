package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

func floatAt(b []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}

func TestGraphicsPushConstantsLayout(t *testing.T) {
	pc := GraphicsPushConstants{
		Model:       mgl32.Translate3D(1, 2, 3),
		ShadowIndex: 7,
		Opacity:     0.25,
	}
	b := pc.Bytes()
	if len(b) != GraphicsPushConstantsSize {
		t.Fatalf("len = %d, want %d", len(b), GraphicsPushConstantsSize)
	}
	// translation lives in the fourth column
	for i, want := range []float32{1, 2, 3, 1} {
		if got := floatAt(b, 48+i*4); got != want {
			t.Errorf("model[12+%d] = %v, want %v", i, got, want)
		}
	}
	if got := binary.LittleEndian.Uint32(b[64:]); got != 7 {
		t.Errorf("shadow index = %d, want 7", got)
	}
	if got := floatAt(b, 68); got != 0.25 {
		t.Errorf("opacity = %v, want 0.25", got)
	}
}

func TestComputePushConstantsLayout(t *testing.T) {
	b := ComputePushConstants{SunDirection: mgl32.Vec4{0.5, -1, 2, 0}}.Bytes()
	if len(b) != ComputePushConstantsSize {
		t.Fatalf("len = %d, want %d", len(b), ComputePushConstantsSize)
	}
	for i, want := range []float32{0.5, -1, 2, 0} {
		if got := floatAt(b, i*4); got != want {
			t.Errorf("sun[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestGlobalUniformsLayout(t *testing.T) {
	u := GlobalUniforms{Projection: mgl32.Ident4(), View: mgl32.Scale3D(2, 2, 2)}
	b := u.Bytes()
	if len(b) != GlobalUniformsSize {
		t.Fatalf("len = %d, want %d", len(b), GlobalUniformsSize)
	}
	if got := floatAt(b, 0); got != 1 {
		t.Errorf("projection[0] = %v, want 1", got)
	}
	if got := floatAt(b, 64); got != 2 {
		t.Errorf("view[0] = %v, want 2", got)
	}
	if got := floatAt(b, 124); got != 1 {
		t.Errorf("view[15] = %v, want 1", got)
	}
}

func TestDispatchGroups(t *testing.T) {
	tests := []struct {
		count, localSize, want uint32
	}{
		{count: 1024, localSize: 256, want: 4},
		{count: 1000, localSize: 256, want: 4},
		{count: 1025, localSize: 256, want: 5},
		{count: 1, localSize: 256, want: 1},
		{count: 0, localSize: 256, want: 0},
	}
	for _, tt := range tests {
		if got := DispatchGroups(tt.count, tt.localSize); got != tt.want {
			t.Errorf("DispatchGroups(%d, %d) = %d, want %d", tt.count, tt.localSize, got, tt.want)
		}
	}
}

func TestFlippedViewport(t *testing.T) {
	v := FlippedViewport(vk.Extent2D{Width: 800, Height: 600})
	if v.X != 0 || v.Y != 600 || v.Width != 800 || v.Height != -600 {
		t.Errorf("viewport = %+v, want origin (0,600) size 800x-600", v)
	}
	if v.MinDepth != 0 || v.MaxDepth != 1 {
		t.Errorf("depth range = [%v, %v], want [0, 1]", v.MinDepth, v.MaxDepth)
	}
}
