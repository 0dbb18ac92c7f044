package renderer

import (
	"github.com/cockroachdb/errors"
)

type FrameState int

const (
	FrameIdle FrameState = iota
	FrameComputeWait
	FrameComputeRecord
	FrameComputeSubmit
	FrameGraphicsWait
	FrameAcquireImage
	FrameGraphicsRecord
	FrameGraphicsSubmit
	FramePresent
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameComputeWait:
		return "compute_wait"
	case FrameComputeRecord:
		return "compute_record"
	case FrameComputeSubmit:
		return "compute_submit"
	case FrameGraphicsWait:
		return "graphics_wait"
	case FrameAcquireImage:
		return "acquire_image"
	case FrameGraphicsRecord:
		return "graphics_record"
	case FrameGraphicsSubmit:
		return "graphics_submit"
	case FramePresent:
		return "present"
	}
	return "unknown"
}

// FrameStepper performs the GPU side of every frame loop state for one
// frame slot. Slots run from 0 to MaxFramesInFlight()-1.
type FrameStepper interface {
	MaxFramesInFlight() uint32
	// WaitIdle blocks until the device has no pending work.
	WaitIdle() error
	// WaitComputeFence waits for and resets the compute fence of the slot.
	WaitComputeFence(frame uint32) error
	RecordCompute(frame uint32) error
	// SubmitCompute signals the slot's compute semaphore and fence.
	SubmitCompute(frame uint32) error
	// WaitGraphicsFences waits for the compute and graphics fences of the
	// slot and resets the graphics fence.
	WaitGraphicsFences(frame uint32) error
	AcquireImage(frame uint32) (uint32, error)
	RecordGraphics(frame, imageIndex uint32) error
	// SubmitGraphics waits on the slot's compute and image semaphores and
	// signals its render semaphore and graphics fence.
	SubmitGraphics(frame, imageIndex uint32) error
	Present(frame, imageIndex uint32) error
}

// FrameLoop drives a FrameStepper through one compute and one graphics
// submission per frame, cycling over the frame slots.
type FrameLoop struct {
	// WaitIdleEachFrame serializes CPU and GPU at the top of every frame.
	WaitIdleEachFrame bool

	stepper   FrameStepper
	frame     uint32
	state     FrameState
	completed uint64
}

func NewFrameLoop(stepper FrameStepper) *FrameLoop {
	return &FrameLoop{
		WaitIdleEachFrame: true,
		stepper:           stepper,
		state:             FrameIdle,
	}
}

func (fl *FrameLoop) State() FrameState {
	return fl.state
}

// Frame is the slot the next Step uses.
func (fl *FrameLoop) Frame() uint32 {
	return fl.frame
}

func (fl *FrameLoop) FramesCompleted() uint64 {
	return fl.completed
}

func (fl *FrameLoop) enter(state FrameState, fn func() error) error {
	fl.state = state
	if err := fn(); err != nil {
		return errors.Wrapf(err, "frame %d: %s", fl.frame, state)
	}
	return nil
}

// Step runs one full iteration and advances to the next slot. On error the
// loop stays in the state that failed and the slot is not advanced.
func (fl *FrameLoop) Step() error {
	f := fl.frame
	s := fl.stepper

	if fl.WaitIdleEachFrame {
		if err := fl.enter(FrameIdle, s.WaitIdle); err != nil {
			return err
		}
	}
	if err := fl.enter(FrameComputeWait, func() error { return s.WaitComputeFence(f) }); err != nil {
		return err
	}
	if err := fl.enter(FrameComputeRecord, func() error { return s.RecordCompute(f) }); err != nil {
		return err
	}
	if err := fl.enter(FrameComputeSubmit, func() error { return s.SubmitCompute(f) }); err != nil {
		return err
	}
	if err := fl.enter(FrameGraphicsWait, func() error { return s.WaitGraphicsFences(f) }); err != nil {
		return err
	}

	var imageIndex uint32
	if err := fl.enter(FrameAcquireImage, func() (err error) {
		imageIndex, err = s.AcquireImage(f)
		return err
	}); err != nil {
		return err
	}
	if err := fl.enter(FrameGraphicsRecord, func() error { return s.RecordGraphics(f, imageIndex) }); err != nil {
		return err
	}
	if err := fl.enter(FrameGraphicsSubmit, func() error { return s.SubmitGraphics(f, imageIndex) }); err != nil {
		return err
	}
	if err := fl.enter(FramePresent, func() error { return s.Present(f, imageIndex) }); err != nil {
		return err
	}

	fl.frame = (f + 1) % s.MaxFramesInFlight()
	fl.state = FrameIdle
	fl.completed++
	return nil
}
