package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-multiview/engine/profiler"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/Carmen-Shannon/oxy-multiview/engine/window"
)

// DefaultPipelineKey is the pipeline drawn each frame unless WithPipelineKey says otherwise.
const DefaultPipelineKey = "multiview"

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	paused  atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window      window.Window
	renderer    renderer.Renderer
	rig         view.Rig
	pipelineKey string
	logger      *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	lastFPS          atomic.Int64 // whole frames per second, published for the window title

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)
	keyCallback    func(keyCode uint32)

	renderFrameLimit atomic.Int64 // minimum frame duration in nanoseconds; 0 = uncapped
	maxFrames        int
	frames           atomic.Int64

	err error // first error that stopped the render loop
}

// Engine drives the multiview frame loop: a fixed-rate tick that advances the view rig,
// and a render loop that writes the per-view matrices and draws both views every frame.
type Engine interface {
	// Window returns the window the engine presents into, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Rig returns the view rig the uniform is computed from.
	//
	// Returns:
	//   - view.Rig: the current rig
	Rig() view.Rig

	// SetRig swaps the view rig. The next frame uses the new rig's matrices.
	//
	// Parameters:
	//   - rig: the rig to use
	SetRig(rig view.Rig)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// TogglePause stops or resumes advancing the rig on ticks. Rendering continues.
	//
	// Returns:
	//   - bool: true if the rig is now paused
	TogglePause() bool

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick after the rig is advanced.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each presented frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetKeyCallback registers the function called for key presses the engine does not handle itself.
	// Space toggles the pause and Escape closes the window.
	//
	// Parameters:
	//   - callback: function receiving the pressed key code
	SetKeyCallback(callback func(keyCode uint32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// RenderFrame renders a single frame on the calling goroutine: the rig's matrices are
	// written to the uniform immediately before the draw is submitted.
	//
	// Returns:
	//   - error: the write or draw error, if any
	RenderFrame() error

	// Frames returns the number of frames presented so far.
	//
	// Returns:
	//   - int: the frame count
	Frames() int

	// Run starts the tick and render loops and blocks until the window closes, the frame
	// budget set by WithMaxFrames is spent, ctx is cancelled, or Quit is called.
	//
	// Parameters:
	//   - ctx: cancelling ctx shuts the engine down
	//
	// Returns:
	//   - error: the error that stopped the render loop, nil on a normal shutdown
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// A renderer is required; without a rig the engine draws the identity pair.
//
// Parameters:
//   - options: functional options for engine configuration (renderer, rig, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		pipelineKey:     DefaultPipelineKey,
		logger:          slog.Default(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.renderer == nil {
		panic("engine: a renderer is required")
	}
	if e.rig == nil {
		e.rig = view.NewRig(view.WithFixedMatrices(view.IdentityPair()))
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.renderer.Resize(width, height)
		})
		e.window.SetKeyDownCallback(e.handleKey)
		e.window.SetUpdateCallback(e.handleWindowUpdate)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Rig() view.Rig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rig
}

func (e *engine) SetRig(rig view.Rig) {
	if rig == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rig = rig
}

func (e *engine) Frames() int {
	return int(e.frames.Load())
}

func (e *engine) TogglePause() bool {
	paused := !e.paused.Load()
	e.paused.Store(paused)
	e.logger.Info("rig spin", "paused", paused)
	return paused
}

func (e *engine) RenderFrame() error {
	u := e.Rig().UniformData()
	if err := e.renderer.WriteUniform(&u); err != nil {
		return fmt.Errorf("frame %d: %w", e.frames.Load(), err)
	}
	if err := e.renderer.DrawFrame(e.pipelineKey); err != nil {
		return fmt.Errorf("frame %d: %w", e.frames.Load(), err)
	}
	e.renderer.Present()
	e.frames.Add(1)
	return nil
}

func (e *engine) Run(ctx context.Context) error {
	e.running.Store(true)
	e.handle()

	stop := context.AfterFunc(ctx, e.signalQuit)
	defer stop()

	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// fail records the first error that stopped the render loop.
func (e *engine) fail(err error) {
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
	e.logger.Error("render loop stopped", "err", err, "frames", e.frames.Load())
	e.signalQuit()
}

// handle launches the tick, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Advances the rig, fires the tick callback, and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			elapsed := now.Sub(lastTick)
			lastTick = now

			if !e.paused.Load() {
				e.Rig().Update(elapsed)
			}
			if e.tickCallback != nil {
				e.tickCallback(float32(elapsed.Seconds()))
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Stops on the first frame error, once the frame budget is spent, or on quit.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("render goroutine recovered from panic: %v", r))
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if err := e.RenderFrame(); err != nil {
				e.fail(err)
				return
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled.Load() {
				if stats, ok := e.profiler.Tick(); ok {
					e.lastFPS.Store(int64(stats.FPS))
				}
			}

			if e.maxFrames > 0 && e.Frames() >= e.maxFrames {
				e.logger.Debug("frame budget spent", "frames", e.maxFrames)
				e.signalQuit()
				return
			}

			// Frame rate limiting
			if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
				if remaining := limit - time.Since(lastRender); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// handleWindowUpdate runs on the window thread each message loop iteration.
// Closes the window once quit is signalled and mirrors the profiler's FPS into the title.
func (e *engine) handleWindowUpdate() {
	select {
	case <-e.quitChannel:
		if err := e.window.Close(); err != nil {
			e.logger.Warn("closing window", "err", err)
		}
		return
	default:
	}

	if fps := e.lastFPS.Swap(0); fps > 0 {
		e.window.SetTitle(fmt.Sprintf("oxy multiview | %d fps", fps))
	}
}

// handleKey handles Space and forwards every other key to the key callback.
func (e *engine) handleKey(keyCode uint32) {
	if keyCode == window.KeySpace {
		e.TogglePause()
		return
	}
	if e.keyCallback != nil {
		e.keyCallback(keyCode)
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetKeyCallback(callback func(keyCode uint32)) {
	e.keyCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit.Store(int64(frameDuration(fps)))
}

// frameDuration converts a rate to the duration of one frame, 0 for non-positive rates.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
