package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// KeyCode identifies a keyboard key independently of the windowing library.
type KeyCode uint16

const (
	KEY_UNKNOWN  KeyCode = 0x00
	KEY_ENTER    KeyCode = 0x0D
	KEY_ESCAPE   KeyCode = 0x1B
	KEY_SPACE    KeyCode = 0x20
	KEY_LEFT     KeyCode = 0x25
	KEY_UP       KeyCode = 0x26
	KEY_RIGHT    KeyCode = 0x27
	KEY_DOWN     KeyCode = 0x28
	KEY_R        KeyCode = 0x52
	KEY_LSHIFT   KeyCode = 0xA0
	KEY_RSHIFT   KeyCode = 0xA1
	KEY_LCONTROL KeyCode = 0xA2
	KEY_RCONTROL KeyCode = 0xA3
)

// Input holds the per-frame keyboard and mouse state. Pressed and released
// are edge states valid for the current loop iteration only, held persists
// until the matching release.
type Input struct {
	pressedKeys  map[KeyCode]bool
	releasedKeys map[KeyCode]bool
	heldKeys     map[KeyCode]bool

	pressedButtons  [BUTTON_MAX_BUTTONS]bool
	releasedButtons [BUTTON_MAX_BUTTONS]bool
	heldButtons     [BUTTON_MAX_BUTTONS]bool

	mouseX, mouseY float64
	wheelX, wheelY float64
}

func NewInput() *Input {
	return &Input{
		pressedKeys:  make(map[KeyCode]bool),
		releasedKeys: make(map[KeyCode]bool),
		heldKeys:     make(map[KeyCode]bool),
	}
}

// Begin resets the edge states and the wheel delta. Call once per loop
// iteration before polling platform events.
func (in *Input) Begin() {
	clear(in.pressedKeys)
	clear(in.releasedKeys)
	in.pressedButtons = [BUTTON_MAX_BUTTONS]bool{}
	in.releasedButtons = [BUTTON_MAX_BUTTONS]bool{}
	in.wheelX = 0
	in.wheelY = 0
}

// ProcessKey records a key transition. Repeated presses of a held key are
// ignored.
func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	if pressed {
		if in.heldKeys[key] {
			return
		}
		in.pressedKeys[key] = true
		in.heldKeys[key] = true
		return
	}
	in.releasedKeys[key] = true
	in.heldKeys[key] = false
}

func (in *Input) ProcessButton(button Button, pressed bool) {
	if button >= BUTTON_MAX_BUTTONS {
		return
	}
	if pressed {
		in.pressedButtons[button] = true
		in.heldButtons[button] = true
		return
	}
	in.releasedButtons[button] = true
	in.heldButtons[button] = false
}

func (in *Input) ProcessMouseMove(x, y float64) {
	in.mouseX = x
	in.mouseY = y
}

// ProcessMouseWheel accumulates scroll offsets until the next Begin.
func (in *Input) ProcessMouseWheel(x, y float64) {
	in.wheelX += x
	in.wheelY += y
}

func (in *Input) WasKeyPressed(key KeyCode) bool  { return in.pressedKeys[key] }
func (in *Input) WasKeyReleased(key KeyCode) bool { return in.releasedKeys[key] }
func (in *Input) IsKeyHeld(key KeyCode) bool      { return in.heldKeys[key] }

func (in *Input) WasButtonPressed(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && in.pressedButtons[button]
}

func (in *Input) WasButtonReleased(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && in.releasedButtons[button]
}

func (in *Input) IsButtonHeld(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && in.heldButtons[button]
}

func (in *Input) MousePosition() (float64, float64) {
	return in.mouseX, in.mouseY
}

func (in *Input) Wheel() (float64, float64) {
	return in.wheelX, in.wheelY
}
