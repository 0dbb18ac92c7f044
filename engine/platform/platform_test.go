package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  glfw.Key
		want core.KeyCode
	}{
		{glfw.KeyEscape, core.KEY_ESCAPE},
		{glfw.KeyLeftShift, core.KEY_LSHIFT},
		{glfw.KeyR, core.KEY_R},
		{glfw.KeyF12, core.KEY_UNKNOWN},
	}
	for _, tt := range tests {
		if got := translateKey(tt.key); got != tt.want {
			t.Errorf("translateKey(%d) = %#x, want %#x", tt.key, got, tt.want)
		}
	}
}

func TestTranslateButton(t *testing.T) {
	if b, ok := translateButton(glfw.MouseButtonMiddle); !ok || b != core.BUTTON_MIDDLE {
		t.Errorf("middle button = %d, %v", b, ok)
	}
	if _, ok := translateButton(glfw.MouseButton4); ok {
		t.Errorf("button 4 should not map")
	}
}

func TestCallbacksFeedInput(t *testing.T) {
	input := core.NewInput()
	p := New(input)

	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Press, 0)
	p.mouseButtonCallback(nil, glfw.MouseButtonMiddle, glfw.Press, 0)
	p.cursorPosCallback(nil, 12, 34)
	p.scrollCallback(nil, 0, -1)

	if !input.WasKeyPressed(core.KEY_ESCAPE) || !input.IsKeyHeld(core.KEY_ESCAPE) {
		t.Errorf("escape press not recorded")
	}
	if !input.IsButtonHeld(core.BUTTON_MIDDLE) {
		t.Errorf("middle button not held")
	}
	if x, y := input.MousePosition(); x != 12 || y != 34 {
		t.Errorf("MousePosition() = (%v, %v)", x, y)
	}
	if _, wy := input.Wheel(); wy != -1 {
		t.Errorf("wheel y = %v, want -1", wy)
	}

	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Repeat, 0)
	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Release, 0)
	if input.IsKeyHeld(core.KEY_ESCAPE) || !input.WasKeyReleased(core.KEY_ESCAPE) {
		t.Errorf("escape release not recorded")
	}
}
