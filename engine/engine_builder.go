package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create one. The engine still closes it when Run returns after a Quit.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithWindowOptions configures the window the engine creates. Ignored when WithWindow is used.
func WithWindowOptions(options ...window.WindowBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.windowOpts = append(e.windowOpts, options...)
	}
}

// WithContextOptions configures the GPU context created on the window's surface.
func WithContextOptions(options ...gpu.ContextBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.contextOpts = append(e.contextOpts, options...)
	}
}

// WithRendererOptions configures the ray tracing renderer. They are applied after the engine's
// own focus, visibility, display and size options, so they may override them.
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOpts = append(e.rendererOpts, options...)
	}
}

// WithScene sets the scene rendered by Run.
//
// Parameters:
//   - s: the Scene to render
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithCamera sets the camera the scene is rendered from. Defaults to a perspective camera with an
// orbit controller.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(cam camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = cam
	}
}

// WithOrbitControls binds mouse drag and scroll input to the camera's controller.
func WithOrbitControls(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.orbitControls = enabled
	}
}

// WithKeyBinding runs fn on the window thread whenever keyCode is pressed or repeats. A binding
// replaces the orbit controls' use of the same key.
//
// Parameters:
//   - keyCode: a common.Key* code
//   - fn: the action to run
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithKeyBinding(keyCode uint32, fn func()) EngineBuilderOption {
	return func(e *engine) {
		if fn == nil {
			delete(e.keyBindings, keyCode)
			return
		}
		e.keyBindings[keyCode] = fn
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}
