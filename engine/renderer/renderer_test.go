package renderer

import (
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
)

type fakeBackend struct {
	*fakeStepper
	prepared  *RenderPacket
	reloadErr error
	reloaded  int
	shutdown  bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fakeStepper: newFakeStepper(2)}
}

func (b *fakeBackend) Prepare(packet *RenderPacket) {
	b.prepared = packet
	b.calls = append(b.calls, "prepare")
}

func (b *fakeBackend) ReloadShaders(ShaderSet) error {
	if b.reloadErr != nil {
		return b.reloadErr
	}
	b.reloaded++
	return nil
}

func (b *fakeBackend) Shutdown() error {
	b.shutdown = true
	return nil
}

func TestRendererDrawFrame(t *testing.T) {
	backend := newFakeBackend()
	r := New(backend)

	packet := &RenderPacket{DeltaTime: 0.01}
	if err := r.DrawFrame(packet); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if backend.prepared != packet {
		t.Errorf("backend was not handed the packet")
	}
	if backend.calls[0] != "prepare" {
		t.Errorf("first call = %q, want prepare before the frame runs", backend.calls[0])
	}
	if !slices.Contains(backend.calls, "present 0 10") {
		t.Errorf("frame was not presented: %v", backend.calls)
	}
	if r.Loop().FramesCompleted() != 1 {
		t.Errorf("FramesCompleted() = %d, want 1", r.Loop().FramesCompleted())
	}
}

func TestRendererDrawFrameNilPacket(t *testing.T) {
	backend := newFakeBackend()
	r := New(backend)

	if err := r.DrawFrame(nil); err == nil {
		t.Fatalf("DrawFrame(nil) succeeded, want error")
	}
	if len(backend.calls) != 0 {
		t.Errorf("backend called without a packet: %v", backend.calls)
	}
}

func TestRendererDrawFrameFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failAt = "acquire 0"
	r := New(backend)

	if err := r.DrawFrame(&RenderPacket{}); err == nil {
		t.Fatalf("DrawFrame() succeeded, want error")
	}
	if r.Loop().State() != FrameAcquireImage {
		t.Errorf("State() = %s, want acquire_image", r.Loop().State())
	}
}

func TestRendererReloadShaders(t *testing.T) {
	backend := newFakeBackend()
	r := New(backend)

	if err := r.ReloadShaders(ShaderSet{}); err != nil {
		t.Fatalf("ReloadShaders() error = %v", err)
	}
	backend.reloadErr = errors.New("bad module")
	if err := r.ReloadShaders(ShaderSet{}); err == nil {
		t.Errorf("ReloadShaders() succeeded, want the backend error")
	}
	if backend.reloaded != 1 {
		t.Errorf("reloaded = %d, want 1", backend.reloaded)
	}

	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !backend.shutdown {
		t.Errorf("backend not shut down")
	}
}
