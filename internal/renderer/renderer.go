// Package renderer is a reference consumer of the gx.Action stream:
// an Ebiten window for final presentation, grounded on
// legacy/video_backend_ebiten.go's EbitenOutput, plus a Vulkan
// pipeline cache (vulkan_texenv.go) for TEV specializations and
// errgroup-bounded texture decode/upload workers. It is the out-of-
// core display path — the emulator core never blocks on it except for
// the synchronous EFB-copy actions (ColorCopy/DepthCopy/XfbCopy),
// which must always receive exactly one response.
package renderer

import (
	"image"
	"log"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hemisphere-go/hemisphere/internal/gx"
)

// maxConcurrentUploads bounds how many LoadTexture actions decode and
// upload at once, the one legitimate concurrency surface in this
// engine (internal/sched is explicitly single-threaded).
const maxConcurrentUploads = 4

// textureEntry is one guest texture's decoded mip chain, ready to hand
// to ebiten.Image.WritePixels.
type textureEntry struct {
	mips []*ebiten.Image
}

// Renderer implements ebiten.Game over a gx.Action stream. Fields
// mirror EbitenOutput's shape (window/frameBuffer/bufferMutex/
// vsyncChan/frameCount) generalized from a flat byte-blitter to a
// stateful GX consumer that also tracks clear color, viewport, and the
// active TEV specialization.
type Renderer struct {
	width, height int

	window      *ebiten.Image
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  uint64
	vsyncChan   chan struct{}

	actions <-chan gx.Action

	texturesMu sync.Mutex
	textures   map[uint32]*textureEntry
	uploads    errgroup.Group

	clearColor    [4]uint8
	viewport      gx.SetViewport
	texEnv        gx.SetTexEnvConfig
	pipelineCache *PipelineCache // nil until a Vulkan context is attached

	logger *log.Logger
	closed bool
}

// New creates a Renderer that drains actions as Update is called. Like
// EbitenOutput, the window image itself is created lazily on first
// Draw.
func New(actions <-chan gx.Action, width, height int, logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.Default()
	}
	r := &Renderer{
		width:       width,
		height:      height,
		frameBuffer: make([]byte, width*height*4),
		vsyncChan:   make(chan struct{}, 1),
		actions:     actions,
		textures:    make(map[uint32]*textureEntry),
		logger:      logger,
	}
	r.uploads.SetLimit(maxConcurrentUploads)
	return r
}

// AttachPipelineCache wires a Vulkan pipeline cache for TEV
// specializations. Without one, SetTexEnvConfig actions still update
// texEnv state but skip pipeline lookup — the renderer runs fine on
// the Ebiten presentation path alone.
func (r *Renderer) AttachPipelineCache(c *PipelineCache) {
	r.bufferMutex.Lock()
	defer r.bufferMutex.Unlock()
	r.pipelineCache = c
}

// Run blocks running the Ebiten game loop, the same shape as
// EbitenOutput.Start minus the goroutine indirection (callers that
// want Start's non-blocking behavior can call this in their own
// goroutine and wait on WaitForVSync).
func (r *Renderer) Run() error {
	ebiten.SetWindowSize(r.width, r.height)
	ebiten.SetWindowTitle("hemisphere")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	return ebiten.RunGame(r)
}

// WaitForVSync blocks until the next Draw call completes, the same
// contract as EbitenOutput.WaitForVSync.
func (r *Renderer) WaitForVSync() { <-r.vsyncChan }

// FrameCount returns the number of frames presented so far.
func (r *Renderer) FrameCount() uint64 {
	r.bufferMutex.RLock()
	defer r.bufferMutex.RUnlock()
	return r.frameCount
}

// Update drains every action currently queued (non-blocking) and
// checks for window close, matching EbitenOutput.Update's shape.
func (r *Renderer) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	r.drainActions()
	return nil
}

// drainActions applies every action currently queued without
// blocking, split out from Update so the draining logic can be
// exercised without going through Ebiten's window-close check.
func (r *Renderer) drainActions() {
	if r.closed {
		return
	}
	for {
		select {
		case a, ok := <-r.actions:
			if !ok {
				r.closed = true
				return
			}
			r.handleAction(a)
		default:
			return
		}
	}
}

// Draw blits the current framebuffer into the window image, same
// lazy-create-then-WritePixels sequence as EbitenOutput.Draw.
func (r *Renderer) Draw(screen *ebiten.Image) {
	if r.window == nil {
		r.window = ebiten.NewImage(r.width, r.height)
	}
	r.bufferMutex.Lock()
	r.window.WritePixels(r.frameBuffer)
	r.frameCount++
	r.bufferMutex.Unlock()

	screen.DrawImage(r.window, nil)

	select {
	case r.vsyncChan <- struct{}{}:
	default:
	}
}

// Layout reports the fixed presentation resolution.
func (r *Renderer) Layout(_, _ int) (int, int) { return r.width, r.height }

// handleAction dispatches one gx.Action. EFB-copy actions must send on
// Response exactly once regardless of outcome, since the core
// (package gx's Processor) blocks synchronously on it per action.go's
// contract.
func (r *Renderer) handleAction(a gx.Action) {
	switch action := a.(type) {
	case gx.SetClearColor:
		r.clearColor = [4]uint8{action.R, action.G, action.B, action.A}
		r.clearFrameBuffer()
	case gx.SetViewport:
		r.viewport = action
	case gx.SetTexEnvConfig:
		r.texEnv = action
		r.warmPipeline(action.Stages)
	case gx.LoadTexture:
		r.scheduleTextureUpload(action)
	case gx.ColorCopy:
		r.respondWithFrame(action.Response)
	case gx.DepthCopy:
		r.respondWithFrame(action.Response)
	case gx.XfbCopy:
		if action.Clear {
			r.clearFrameBuffer()
		}
		r.respondWithFrame(action.Response)
	case gx.Draw:
		// Full rasterization is out of scope for this reference
		// consumer; the action still flows through so FIFO replay
		// tests can assert it was seen.
	default:
		// SetAlphaFunction, SetDepthMode, SetBlendMode, SetConstantAlpha,
		// SetProjectionMatrix, SetFramebufferFormat, SetTexGens, LoadClut,
		// SetTextureSlot: state this renderer doesn't yet project onto
		// the Ebiten presentation path.
	}
}

func (r *Renderer) clearFrameBuffer() {
	r.bufferMutex.Lock()
	defer r.bufferMutex.Unlock()
	for i := 0; i+3 < len(r.frameBuffer); i += 4 {
		r.frameBuffer[i] = r.clearColor[0]
		r.frameBuffer[i+1] = r.clearColor[1]
		r.frameBuffer[i+2] = r.clearColor[2]
		r.frameBuffer[i+3] = r.clearColor[3]
	}
}

func (r *Renderer) respondWithFrame(response chan<- []byte) {
	if response == nil {
		return
	}
	r.bufferMutex.RLock()
	out := make([]byte, len(r.frameBuffer))
	copy(out, r.frameBuffer)
	r.bufferMutex.RUnlock()
	response <- out
}

func (r *Renderer) warmPipeline(spec gx.TevSpecialization) {
	r.bufferMutex.RLock()
	cache := r.pipelineCache
	r.bufferMutex.RUnlock()
	if cache == nil {
		return
	}
	if _, err := cache.Get(spec); err != nil {
		r.logger.Printf("renderer: pipeline build for TEV spec failed: %v", err)
	}
}

// scheduleTextureUpload decodes and uploads a, bounded by
// maxConcurrentUploads via the errgroup. Errors are logged rather than
// surfaced: a failed texture upload shouldn't stall every other
// pending upload sharing the group.
func (r *Renderer) scheduleTextureUpload(a gx.LoadTexture) {
	id, width, height, mipmaps := a.ID, a.Width, a.Height, a.Mipmaps
	r.uploads.Go(func() error {
		entry := &textureEntry{mips: make([]*ebiten.Image, 0, len(mipmaps))}
		w, h := width, height
		for _, raw := range mipmaps {
			img := decodeMip(raw, w, h)
			ebitenImg := ebiten.NewImageFromImage(img)
			entry.mips = append(entry.mips, ebitenImg)
			w, h = max(1, w/2), max(1, h/2)
		}
		r.texturesMu.Lock()
		r.textures[id] = entry
		r.texturesMu.Unlock()
		return nil
	})
}

// decodeMip treats raw as already-RGBA8 bytes (the core decodes guest
// formats through internal/gx/tex before emitting LoadTexture, per
// tex.Decode/tex.BuildMips) and copies it into a new RGBA image.
func decodeMip(raw []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, raw)
	return img
}

// Wait blocks until every in-flight texture upload has completed.
// Mostly useful in tests, which otherwise can't observe the async
// upload path deterministically.
func (r *Renderer) Wait() error { return r.uploads.Wait() }

// Texture returns a previously uploaded texture's mip chain, or nil if
// it hasn't finished uploading (or was never loaded).
func (r *Renderer) Texture(id uint32) []*ebiten.Image {
	r.texturesMu.Lock()
	defer r.texturesMu.Unlock()
	entry, ok := r.textures[id]
	if !ok {
		return nil
	}
	return entry.mips
}
