package renderer

import (
	"io"
	"log"
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/gx"
)

func newTestRenderer(t *testing.T, actions chan gx.Action) *Renderer {
	t.Helper()
	return New(actions, 4, 4, log.New(io.Discard, "", 0))
}

func TestSetClearColorFillsFrameBuffer(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.handleAction(gx.SetClearColor{R: 10, G: 20, B: 30, A: 255})
	for i := 0; i+3 < len(r.frameBuffer); i += 4 {
		if r.frameBuffer[i] != 10 || r.frameBuffer[i+1] != 20 || r.frameBuffer[i+2] != 30 || r.frameBuffer[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want [10 20 30 255]", i/4, r.frameBuffer[i:i+4])
		}
	}
}

func TestColorCopyRespondsExactlyOnce(t *testing.T) {
	r := newTestRenderer(t, nil)
	resp := make(chan []byte, 1)
	r.handleAction(gx.ColorCopy{Response: resp})
	select {
	case data := <-resp:
		if len(data) != len(r.frameBuffer) {
			t.Fatalf("response length = %d, want %d", len(data), len(r.frameBuffer))
		}
	default:
		t.Fatalf("ColorCopy did not send a response")
	}
}

func TestXfbCopyClearsWhenRequested(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.handleAction(gx.SetClearColor{R: 1, G: 2, B: 3, A: 4})
	for i := range r.frameBuffer {
		r.frameBuffer[i] = 0xFF
	}
	resp := make(chan []byte, 1)
	r.handleAction(gx.XfbCopy{Clear: true, Response: resp})
	data := <-resp
	if data[0] != 1 || data[1] != 2 || data[2] != 3 || data[3] != 4 {
		t.Fatalf("XfbCopy with Clear=true should clear before responding, got %v", data[:4])
	}
}

func TestDepthCopyWithNilResponseDoesNotPanic(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.handleAction(gx.DepthCopy{Response: nil})
}

func TestSetViewportStoresLatestValue(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.handleAction(gx.SetViewport{X: 1, Y: 2, W: 3, H: 4})
	if r.viewport.W != 3 || r.viewport.H != 4 {
		t.Fatalf("viewport = %+v", r.viewport)
	}
}

func TestSetTexEnvConfigStoresStateWithoutPipelineCache(t *testing.T) {
	r := newTestRenderer(t, nil)
	cfg := gx.SetTexEnvConfig{Constants: [4][4]float32{{1, 2, 3, 4}}}
	r.handleAction(cfg) // no AttachPipelineCache call: must not panic on a nil cache
	if r.texEnv.Constants != cfg.Constants {
		t.Fatalf("texEnv not stored: got %+v", r.texEnv)
	}
}

func TestDrainActionsAppliesQueuedActionsNonBlocking(t *testing.T) {
	actions := make(chan gx.Action, 2)
	actions <- gx.SetClearColor{R: 5, G: 5, B: 5, A: 5}
	actions <- gx.SetViewport{W: 9}
	r := newTestRenderer(t, actions)
	r.drainActions()
	if r.viewport.W != 9 {
		t.Fatalf("drainActions did not apply the viewport action")
	}
}

func TestDrainActionsMarksClosedWhenChannelCloses(t *testing.T) {
	actions := make(chan gx.Action)
	close(actions)
	r := newTestRenderer(t, actions)
	r.drainActions()
	if !r.closed {
		t.Fatalf("drainActions should mark the renderer closed once the action channel closes")
	}
}
