package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// ErrNoScene is returned by Run when no scene was set.
var ErrNoScene = errors.New("engine has no scene to render")

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	log *slog.Logger

	tickRateChannel chan time.Duration
	resizeChannel   chan [2]int
	taskChannel     chan func()

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window      window.Window
	ownsWindow  bool
	windowOpts  []window.WindowBuilderOption
	contextOpts []gpu.ContextBuilderOption
	ctx         gpu.Context

	rendererOpts []renderer.RendererBuilderOption
	renderer     renderer.RayTracingRenderer

	mu     *sync.Mutex
	scene  scene.Scene
	camera camera.Camera

	orbitControls bool
	dragging      [3]bool
	lastCursor    [2]float32
	keyBindings   map[uint32]func()

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration

	errMu     *sync.Mutex
	renderErr error
}

// Engine hosts a progressive ray tracer: it owns the window and the GPU context, feeds resize
// events and frame timestamps to the renderer, and renders the current scene from the current
// camera until the window is closed.
type Engine interface {
	// Window returns the underlying window.
	Window() window.Window

	// Context returns the GPU context the renderer draws with.
	Context() gpu.Context

	// Renderer returns the ray tracing renderer driven by the render loop.
	Renderer() renderer.RayTracingRenderer

	// Scene returns the scene being rendered.
	Scene() scene.Scene

	// SetScene replaces the scene being rendered. The renderer rebuilds its pipeline from the new
	// scene on the next frame.
	//
	// Parameters:
	//   - s: the scene to render
	SetScene(s scene.Scene)

	// Camera returns the camera the scene is rendered from.
	Camera() camera.Camera

	// SetCamera replaces the camera. Its aspect ratio is kept in sync with the window.
	//
	// Parameters:
	//   - cam: the camera to render from
	SetCamera(cam camera.Camera)

	// EnableProfiler enables frame rate and sample rate logging.
	EnableProfiler()

	// DisableProfiler disables frame rate and sample rate logging.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for application logic.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called on the render goroutine after each frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Post queues fn to run on the render goroutine before the next frame. Use it to change
	// renderer settings from input handlers. Blocks while the queue is full.
	//
	// Parameters:
	//   - fn: the function to run
	Post(fn func())

	// Run starts the tick and render loops and processes window messages until the window closes
	// or Quit is called. Must be called from the goroutine that created the window.
	//
	// Returns:
	//   - error: the error that stopped the render loop, or nil on a normal shutdown
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates the window (unless one is supplied), the GPU context on its surface and the
// ray tracing renderer sized to it.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the window, context or renderer cannot be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		log:             common.ComponentLogger("Engine"),
		tickRateChannel: make(chan time.Duration, 1),
		resizeChannel:   make(chan [2]int, 1),
		taskChannel:     make(chan func(), 16),
		quitChannel:     make(chan struct{}),
		mu:              &sync.Mutex{},
		errMu:           &sync.Mutex{},
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
		keyBindings:     make(map[uint32]func()),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		win, err := window.NewWindow(e.windowOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create window: %w", err)
		}
		e.window = win
		e.ownsWindow = true
	}

	ctx, err := gpu.NewContext(e.window.SurfaceDescriptor(), e.contextOpts...)
	if err != nil {
		e.closeWindow()
		return nil, fmt.Errorf("failed to create GPU context: %w", err)
	}
	e.ctx = ctx

	rendererOpts := append([]renderer.RendererBuilderOption{
		renderer.WithFocusSource(e.window),
		renderer.WithVisibilitySource(e.window),
		renderer.WithDisplay(e.window),
		renderer.WithSize(e.window.Width(), e.window.Height()),
		renderer.WithPixelRatio(e.window.ContentScale()),
	}, e.rendererOpts...)
	r, err := renderer.NewRenderer(ctx, rendererOpts...)
	if err != nil {
		ctx.Release()
		e.closeWindow()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	e.renderer = r

	if e.camera == nil {
		e.camera = camera.NewCamera(camera.WithController(camera.NewOrbitController()))
	}
	if h := e.window.Height(); h > 0 {
		e.camera.SetAspect(float32(e.window.Width()) / float32(h))
	}

	e.window.SetResizeCallback(e.queueResize)
	e.window.SetUpdateCallback(e.pollQuit)
	if e.orbitControls {
		e.bindOrbitControls()
	}
	e.window.SetKeyDownCallback(e.keyDown)

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Context() gpu.Context {
	return e.ctx
}

func (e *engine) Renderer() renderer.RayTracingRenderer {
	return e.renderer
}

func (e *engine) Scene() scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *engine) SetScene(s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene = s
}

func (e *engine) Camera() camera.Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.camera
}

func (e *engine) SetCamera(cam camera.Camera) {
	if cam == nil {
		return
	}
	if h := e.window.Height(); h > 0 {
		cam.SetAspect(float32(e.window.Width()) / float32(h))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.camera = cam
}

func (e *engine) Run() error {
	if e.Scene() == nil {
		return ErrNoScene
	}

	e.running.Store(true)
	e.handle()
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.shutdown()

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.renderErr
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// pollQuit runs on the window thread each message loop iteration. Once quit was signaled it
// waits for the render loop to finish with the surface, then closes the window.
func (e *engine) pollQuit() {
	select {
	case <-e.quitChannel:
		e.wg.Wait()
		if err := e.window.Close(); err != nil {
			e.log.Warn("failed to close window", "error", err)
		}
	default:
	}
}

// shutdown releases the renderer and the GPU context; the render loop must have exited.
func (e *engine) shutdown() {
	e.renderer.Dispose()
	e.ctx.Release()
	e.closeWindow()
}

func (e *engine) closeWindow() {
	if !e.ownsWindow || e.window == nil {
		return
	}
	if err := e.window.Close(); err != nil {
		e.log.Debug("window already closed", "error", err)
	}
}

// handle launches the tick and render goroutines, tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
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
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop in its own goroutine. Each frame applies pending resizes,
// synchronizes the renderer with the frame timestamp and renders one progressive step.
// A render error or a panic stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("render goroutine panicked: %v", r))
		}
	}()

	start := time.Now()
	lastRender := start
	var rendered scene.Scene

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		e.mu.Lock()
		s, cam := e.scene, e.camera
		e.mu.Unlock()

		e.applyResize(cam)
		e.runTasks()

		if s != rendered {
			if rendered != nil {
				e.renderer.SetNeedsRebuild()
			}
			rendered = s
		}

		if s != nil {
			e.renderer.Sync(now.Sub(start))
			if err := e.renderer.Render(s, cam); err != nil {
				e.fail(fmt.Errorf("failed to render frame: %w", err))
				return
			}
		}

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}

		if e.profilingEnabled.Load() {
			samples, _ := e.renderer.TotalSamplesRendered()
			e.profiler.Tick(samples)
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case e.taskChannel <- fn:
	case <-e.quitChannel:
	}
}

// runTasks runs the functions posted since the last frame.
func (e *engine) runTasks() {
	for {
		select {
		case fn := <-e.taskChannel:
			fn()
		default:
			return
		}
	}
}

// fail records the first error that stopped the render loop and signals quit.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.renderErr == nil {
		e.renderErr = err
	}
	e.errMu.Unlock()
	e.log.Error("render loop stopped", "error", err)
	e.signalQuit()
}

// queueResize runs on the window thread. Only the latest pending size is kept; the render loop
// applies it before its next frame. A minimized window reports 0x0 and keeps its previous size.
func (e *engine) queueResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	size := [2]int{width, height}
	select {
	case e.resizeChannel <- size:
	default:
		select {
		case <-e.resizeChannel:
		default:
		}
		e.resizeChannel <- size
	}
}

func (e *engine) applyResize(cam camera.Camera) {
	select {
	case size := <-e.resizeChannel:
		// The window already has this size, so the display is left alone.
		e.renderer.Resize(size[0], size[1], e.window.ContentScale())
		if cam != nil {
			cam.SetAspect(float32(size[0]) / float32(size[1]))
		}
	default:
	}
}

// bindOrbitControls maps mouse input onto the camera's controller: left drag rotates, right or
// middle drag pans and the scroll wheel zooms.
func (e *engine) bindOrbitControls() {
	e.window.SetMouseButtonCallback(func(button window.MouseButton, pressed bool, x, y float32) {
		e.dragging[button] = pressed
		e.lastCursor = [2]float32{x, y}
	})
	e.window.SetMouseMoveCallback(func(x, y float32) {
		dx, dy := x-e.lastCursor[0], y-e.lastCursor[1]
		e.lastCursor = [2]float32{x, y}

		ctrl := e.Camera().Controller()
		if ctrl == nil {
			return
		}
		switch {
		case e.dragging[window.MouseButtonLeft]:
			ctrl.Rotate(dx, dy)
		case e.dragging[window.MouseButtonRight], e.dragging[window.MouseButtonMiddle]:
			ctrl.Pan(-dx, dy)
		}
	})
	e.window.SetScrollCallback(func(delta float32) {
		if ctrl := e.Camera().Controller(); ctrl != nil {
			ctrl.Zoom(delta)
		}
	})
}

// keyDown runs key bindings first; unbound arrow keys orbit the camera when orbit controls are on.
func (e *engine) keyDown(keyCode uint32) {
	if fn, ok := e.keyBindings[keyCode]; ok {
		fn()
		return
	}
	if !e.orbitControls {
		return
	}
	ctrl := e.Camera().Controller()
	if ctrl == nil {
		return
	}
	switch keyCode {
	case common.KeyLeft:
		ctrl.OrbitLeft()
	case common.KeyRight:
		ctrl.OrbitRight()
	case common.KeyUp:
		ctrl.OrbitUp()
	case common.KeyDown:
		ctrl.OrbitDown()
	case common.KeyPageUp:
		ctrl.Zoom(1)
	case common.KeyPageDown:
		ctrl.Zoom(-1)
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

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Non-blocking send; a pending update is replaced.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
