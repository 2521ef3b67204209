package renderer

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*rayTracingRenderer)

// WithBounces sets the maximum number of indirect bounces per path. Negative values are ignored.
// Defaults to DefaultBounces.
//
// Parameters:
//   - bounces: the bounce count
//
// Returns:
//   - RendererBuilderOption: a function that applies the bounces option to a renderer
func WithBounces(bounces int) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		if bounces >= 0 {
			r.bounces = bounces
		}
	}
}

// WithMaxHardwareUsage samples the full frame on every Render instead of one tile. This maximizes
// throughput at the cost of responsiveness.
//
// Parameters:
//   - enabled: true for full-frame sampling
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithMaxHardwareUsage(enabled bool) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.maxHardwareUsage = enabled
	}
}

// WithRenderWhenOffFocus controls whether Render draws while the focus source reports no focus.
// Defaults to true.
func WithRenderWhenOffFocus(enabled bool) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.renderWhenOffFocus = enabled
	}
}

// WithToneMapping selects the output tone mapping operator. Defaults to ToneMappingLinear.
func WithToneMapping(mode pipeline.ToneMapping) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.toneMapping.Mode = mode
	}
}

// WithToneMappingExposure scales radiance before tone mapping. Defaults to 1.
func WithToneMappingExposure(exposure float32) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.toneMapping.Exposure = exposure
	}
}

// WithToneMappingWhitePoint sets the radiance mapped to white. Defaults to 1.
func WithToneMappingWhitePoint(whitePoint float32) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.toneMapping.WhitePoint = whitePoint
	}
}

// WithOnSampleRendered sets the callback invoked after every completed sample.
//
// Parameters:
//   - cb: receives the running sample count
//
// Returns:
//   - RendererBuilderOption: a function that applies the callback option to a renderer
func WithOnSampleRendered(cb pipeline.SampleCallback) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.onSampleRendered.Store(&cb)
	}
}

// WithFocusSource sets where focus is read from when render-when-off-focus is disabled. Without a
// focus source the renderer always behaves as focused.
func WithFocusSource(focus FocusSource) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.focus = focus
	}
}

// WithVisibilitySource subscribes the renderer's RestartTimer to visibility changes. The
// subscription is removed by Dispose.
func WithVisibilitySource(visibility VisibilitySource) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.visibility = visibility
	}
}

// WithDisplay sets the display whose logical size SetSize updates.
func WithDisplay(display Display) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.display = display
	}
}

// WithClock replaces the clock read when Render runs without a preceding Sync.
//
// Parameters:
//   - clock: a monotonic clock
//
// Returns:
//   - RendererBuilderOption: a function that applies the clock option to a renderer
func WithClock(clock Clock) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithPipelineBuilder replaces the builder used on rebuild. Defaults to pipeline.NewWGPUBuilder().
//
// Parameters:
//   - builder: the pipeline builder
//
// Returns:
//   - RendererBuilderOption: a function that applies the builder option to a renderer
func WithPipelineBuilder(builder pipeline.Builder) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.builder = builder
	}
}

// WithPixelRatio sets the initial pixel ratio. Non-positive values are ignored.
func WithPixelRatio(ratio float64) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		if ratio > 0 {
			r.pixelRatio = ratio
		}
	}
}

// WithSize sets the initial logical output size.
func WithSize(width, height int) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.width, r.height = max(width, 0), max(height, 0)
	}
}

// WithRequiredCapabilities replaces the capability names whose absence fails NewRenderer.
// Defaults to capability.RequiredCapabilities.
func WithRequiredCapabilities(names ...string) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.required = names
	}
}

// WithOptionalCapabilities replaces the capability names whose absence is only logged.
// Defaults to capability.OptionalCapabilities.
func WithOptionalCapabilities(names ...string) RendererBuilderOption {
	return func(r *rayTracingRenderer) {
		r.optional = names
	}
}
