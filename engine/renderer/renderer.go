// Package renderer drives a progressive ray tracing pipeline from a frame loop. It decides when the
// pipeline must be rebuilt from the scene, keeps the frame timer honest across focus and visibility
// changes, and chooses between tiled and full-frame sampling.
package renderer

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/capability"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
)

// Defaults of a new renderer.
const (
	DefaultBounces = 2
)

// FocusSource reports whether the application currently has input focus.
type FocusSource interface {
	HasFocus() bool
}

// FocusFunc adapts a plain function to FocusSource.
type FocusFunc func() bool

// HasFocus calls f.
func (f FocusFunc) HasFocus() bool {
	return f()
}

// VisibilitySource notifies when the output surface is hidden or shown again. Notifications may
// arrive on any goroutine.
type VisibilitySource interface {
	// OnVisibilityChange registers fn and returns a function removing it again.
	OnVisibilityChange(fn func(visible bool)) (unsubscribe func())
}

// Display is the surface presenting the renderer's output. SetDisplaySize sets its logical size,
// the backing size is the logical size times the pixel ratio.
type Display interface {
	SetDisplaySize(width, height int)
}

// Clock returns a monotonic timestamp used when no time was synchronized for a frame.
type Clock func() time.Duration

// RayTracingRenderer renders a scene progressively: every Render call adds one tile, or with max
// hardware usage one full frame, to the running sample average of the current view.
//
// A renderer is driven from a single frame loop. RestartTimer is the only method that may be
// called from other goroutines.
type RayTracingRenderer interface {
	// Render draws the next tile of scene as seen by cam, rebuilding the pipeline first when needed.
	// With render-when-off-focus disabled nothing is drawn while the application lacks focus.
	//
	// Parameters:
	//   - s: the scene; it is flattened only when a rebuild is pending
	//   - cam: the camera
	//
	// Returns:
	//   - error: common.ErrDisposed after Dispose, or a pipeline build or draw error
	Render(s scene.Scene, cam camera.Camera) error

	// Sync supplies the timestamp of the coming frame, normally the frame loop's refresh time.
	// A zero t reads the renderer's clock instead.
	//
	// Parameters:
	//   - t: the frame timestamp
	Sync(t time.Duration)

	// RestartTimer marks the next frame time as invalid, e.g. after the surface was hidden. Safe for
	// concurrent use.
	RestartTimer()

	// SetSize sets the logical output size. The backing size is the logical size times the pixel ratio.
	//
	// Parameters:
	//   - width, height: logical size
	//   - updateStyle: whether the display's logical size is updated too
	SetSize(width, height int, updateStyle bool)

	// Size returns the logical output size.
	Size() (width, height int)

	// BackingSize returns the output size in pixels.
	BackingSize() (width, height int)

	// PixelRatio returns the ratio of backing pixels to logical pixels.
	PixelRatio() float64

	// Resize sets the logical size and the pixel ratio together so the pipeline is resized once.
	// The display is left alone. An invalid pixel ratio keeps the current one.
	//
	// Parameters:
	//   - width, height: logical size
	//   - pixelRatio: backing pixels per logical pixel
	Resize(width, height int, pixelRatio float64)

	// SetPixelRatio sets the pixel ratio and reapplies the size. Non-positive and non-finite values
	// are ignored.
	SetPixelRatio(x float64)

	// NeedsRebuild reports whether the next Render rebuilds the pipeline from the scene.
	NeedsRebuild() bool

	// SetNeedsRebuild requests a pipeline rebuild on the next Render, e.g. after the scene changed.
	SetNeedsRebuild()

	// Bounces returns the maximum number of indirect bounces per path.
	Bounces() int

	// SetBounces sets the number of indirect bounces and requests a rebuild. Negative values are ignored.
	SetBounces(bounces int)

	// MaxHardwareUsage reports whether full frames are sampled instead of tiles.
	MaxHardwareUsage() bool

	// SetMaxHardwareUsage switches between full-frame and tiled sampling.
	SetMaxHardwareUsage(enabled bool)

	// RenderWhenOffFocus reports whether rendering continues without focus.
	RenderWhenOffFocus() bool

	// SetRenderWhenOffFocus enables or disables rendering without focus.
	SetRenderWhenOffFocus(enabled bool)

	// ToneMapping returns the output tone mapping parameters.
	ToneMapping() pipeline.ToneMappingParams

	// SetToneMapping sets the tone mapping parameters and requests a rebuild.
	SetToneMapping(params pipeline.ToneMappingParams)

	// SetOnSampleRendered replaces the callback invoked after every completed sample. Nil removes it.
	SetOnSampleRendered(cb pipeline.SampleCallback)

	// TotalSamplesRendered returns the samples accumulated by the current pipeline.
	//
	// Returns:
	//   - int: the sample count
	//   - bool: false when no pipeline has been built
	TotalSamplesRendered() (int, bool)

	// Capabilities returns a copy of the probed capability set.
	Capabilities() capability.Set

	// Dispose detaches the renderer from its visibility source and drops the pipeline. The
	// renderer cannot render afterwards.
	Dispose()
}

type rayTracingRenderer struct {
	mu  *sync.Mutex
	log *slog.Logger

	ctx          pipeline.GraphicsContext
	capabilities capability.Set
	required     []string
	optional     []string
	builder      pipeline.Builder
	pipeline     pipeline.Pipeline

	bounces            int
	maxHardwareUsage   bool
	renderWhenOffFocus bool
	toneMapping        pipeline.ToneMappingParams
	onSampleRendered   atomic.Pointer[pipeline.SampleCallback]

	width, height int
	pixelRatio    float64
	needsRebuild  bool

	currentTime    time.Duration
	hasCurrentTime bool
	timerInvalid   atomic.Bool
	syncWarned     bool
	lastFocus      bool

	focus       FocusSource
	visibility  VisibilitySource
	unsubscribe func()
	display     Display
	clock       Clock

	disposed bool
}

var _ RayTracingRenderer = &rayTracingRenderer{}

// NewRenderer probes the context's capabilities and creates a renderer in the unbound state; the
// pipeline is built by the first Render.
//
// Parameters:
//   - ctx: the graphics context, a gpu.Context for the default pipeline builder
//   - options: functional options
//
// Returns:
//   - RayTracingRenderer: the renderer
//   - error: *common.CapabilityError when a required capability is missing
func NewRenderer(ctx pipeline.GraphicsContext, options ...RendererBuilderOption) (RayTracingRenderer, error) {
	start := time.Now()
	r := &rayTracingRenderer{
		mu:                 &sync.Mutex{},
		log:                common.ComponentLogger("Renderer"),
		ctx:                ctx,
		required:           capability.RequiredCapabilities,
		optional:           capability.OptionalCapabilities,
		bounces:            DefaultBounces,
		renderWhenOffFocus: true,
		toneMapping:        pipeline.DefaultToneMappingParams(),
		pixelRatio:         1,
		needsRebuild:       true,
		clock:              func() time.Duration { return time.Since(start) },
	}
	for _, option := range options {
		option(r)
	}
	if r.builder == nil {
		r.builder = pipeline.NewWGPUBuilder()
	}

	required := capability.Probe(ctx, r.required)
	if err := capability.RequireAll(required); err != nil {
		return nil, err
	}
	optional := capability.Probe(ctx, r.optional)
	for _, name := range optional.Missing() {
		r.log.Warn("optional GPU capability unavailable, running in degraded mode", "degraded", true, "capability", name)
	}
	r.capabilities = required.Merge(optional)

	if r.visibility != nil {
		r.unsubscribe = r.visibility.OnVisibilityChange(func(bool) {
			r.RestartTimer()
		})
	}
	return r, nil
}

func (r *rayTracingRenderer) Render(s scene.Scene, cam camera.Camera) error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return common.ErrDisposed
	}

	if !r.renderWhenOffFocus && r.focus != nil {
		hasFocus := r.focus.HasFocus()
		if !hasFocus {
			r.lastFocus = false
			r.mu.Unlock()
			return nil
		}
		if !r.lastFocus {
			r.lastFocus = true
			r.RestartTimer()
		}
	}

	if r.needsRebuild {
		if err := r.rebuild(s); err != nil {
			r.mu.Unlock()
			return err
		}
	}

	if !r.hasCurrentTime {
		if !r.syncWarned {
			r.log.Warn("Render called without Sync, falling back to the renderer clock; call Sync with the frame loop's refresh time before Render for accurate tile sizing")
			r.syncWarned = true
		}
		r.currentTime = r.clock()
	}
	frameTime := pipeline.ValidTime(r.currentTime)
	if r.timerInvalid.Swap(false) {
		frameTime = pipeline.InvalidTime()
	}
	p := r.pipeline
	p.Time(frameTime)
	r.hasCurrentTime = false
	full := r.maxHardwareUsage
	r.mu.Unlock()

	cam.UpdateMatrixWorld()
	if full {
		return p.DrawFull(cam)
	}
	return p.Draw(cam)
}

// rebuild replaces the pipeline with one built from the current state of s. Must hold r.mu.
func (r *rayTracingRenderer) rebuild(s scene.Scene) error {
	if r.pipeline != nil {
		r.pipeline.Release()
		r.pipeline = nil
	}

	s.UpdateMatrixWorld()
	flat := s.Flatten()

	p, err := r.builder(pipeline.BuildParams{
		Context:      r.ctx,
		Capabilities: r.capabilities,
		Scene:        flat,
		Lights:       s.Lights(),
		ToneMapping:  r.toneMapping,
		Bounces:      r.bounces,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	p.SetOnSampleRendered(r.sampleRendered)
	r.pipeline = p

	w, h := r.backingSize()
	p.SetSize(w, h)
	r.needsRebuild = false

	r.log.Debug("pipeline rebuilt",
		"vertices", flat.VertexCount(),
		"triangles", flat.TriangleCount(),
		"materials", len(flat.Materials))
	return nil
}

func (r *rayTracingRenderer) sampleRendered(samples int) {
	if cb := r.onSampleRendered.Load(); cb != nil && *cb != nil {
		(*cb)(samples)
	}
}

func (r *rayTracingRenderer) Sync(t time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t == 0 {
		t = r.clock()
	}
	r.currentTime = t
	r.hasCurrentTime = true
}

func (r *rayTracingRenderer) RestartTimer() {
	r.timerInvalid.Store(true)
}

func (r *rayTracingRenderer) SetSize(width, height int, updateStyle bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setSize(width, height, updateStyle)
}

func (r *rayTracingRenderer) setSize(width, height int, updateStyle bool) {
	r.width, r.height = max(width, 0), max(height, 0)
	if updateStyle && r.display != nil {
		r.display.SetDisplaySize(r.width, r.height)
	}
	if r.pipeline != nil {
		r.pipeline.SetSize(r.backingSize())
	}
}

func (r *rayTracingRenderer) backingSize() (int, int) {
	return int(math.Round(float64(r.width) * r.pixelRatio)), int(math.Round(float64(r.height) * r.pixelRatio))
}

func (r *rayTracingRenderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *rayTracingRenderer) BackingSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backingSize()
}

func (r *rayTracingRenderer) PixelRatio() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pixelRatio
}

func (r *rayTracingRenderer) SetPixelRatio(x float64) {
	if !validPixelRatio(x) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pixelRatio = x
	r.setSize(r.width, r.height, false)
}

func (r *rayTracingRenderer) Resize(width, height int, pixelRatio float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if validPixelRatio(pixelRatio) {
		r.pixelRatio = pixelRatio
	}
	r.setSize(width, height, false)
}

func validPixelRatio(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

func (r *rayTracingRenderer) NeedsRebuild() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.needsRebuild
}

func (r *rayTracingRenderer) SetNeedsRebuild() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.needsRebuild = true
}

func (r *rayTracingRenderer) Bounces() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bounces
}

func (r *rayTracingRenderer) SetBounces(bounces int) {
	if bounces < 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if bounces != r.bounces {
		r.bounces = bounces
		r.needsRebuild = true
	}
}

func (r *rayTracingRenderer) MaxHardwareUsage() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxHardwareUsage
}

func (r *rayTracingRenderer) SetMaxHardwareUsage(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxHardwareUsage = enabled
}

func (r *rayTracingRenderer) RenderWhenOffFocus() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderWhenOffFocus
}

func (r *rayTracingRenderer) SetRenderWhenOffFocus(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderWhenOffFocus = enabled
}

func (r *rayTracingRenderer) ToneMapping() pipeline.ToneMappingParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.toneMapping
}

func (r *rayTracingRenderer) SetToneMapping(params pipeline.ToneMappingParams) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if params != r.toneMapping {
		r.toneMapping = params
		r.needsRebuild = true
	}
}

func (r *rayTracingRenderer) SetOnSampleRendered(cb pipeline.SampleCallback) {
	r.onSampleRendered.Store(&cb)
}

func (r *rayTracingRenderer) TotalSamplesRendered() (int, bool) {
	r.mu.Lock()
	p := r.pipeline
	r.mu.Unlock()

	if p == nil {
		return 0, false
	}
	return p.TotalSamplesRendered(), true
}

func (r *rayTracingRenderer) Capabilities() capability.Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capabilities.Merge(nil)
}

func (r *rayTracingRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	r.pipeline = nil
	r.disposed = true
}
