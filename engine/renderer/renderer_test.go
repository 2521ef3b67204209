package renderer

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/capability"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
)

type fakePipeline struct {
	draws     int
	fullDraws int
	times     []pipeline.FrameTime
	sizes     [][2]int
	samples   int
	cb        pipeline.SampleCallback
	released  bool
}

func (p *fakePipeline) Draw(camera.Camera) error {
	p.draws++
	p.sample()
	return nil
}

func (p *fakePipeline) DrawFull(camera.Camera) error {
	p.fullDraws++
	p.sample()
	return nil
}

func (p *fakePipeline) sample() {
	p.samples++
	if p.cb != nil {
		p.cb(p.samples)
	}
}

func (p *fakePipeline) SetSize(w, h int) { p.sizes = append(p.sizes, [2]int{w, h}) }
func (p *fakePipeline) Time(t pipeline.FrameTime) { p.times = append(p.times, t) }
func (p *fakePipeline) TotalSamplesRendered() int { return p.samples }
func (p *fakePipeline) SetOnSampleRendered(cb pipeline.SampleCallback) { p.cb = cb }
func (p *fakePipeline) Release() { p.released = true }

type fakeBuilder struct {
	built  []*fakePipeline
	params []pipeline.BuildParams
	err    error
}

func (b *fakeBuilder) build(params pipeline.BuildParams) (pipeline.Pipeline, error) {
	if b.err != nil {
		return nil, b.err
	}
	p := &fakePipeline{}
	b.built = append(b.built, p)
	b.params = append(b.params, params)
	return p, nil
}

func (b *fakeBuilder) last() *fakePipeline {
	return b.built[len(b.built)-1]
}

type fakeVisibility struct {
	mu  sync.Mutex
	fns map[int]func(bool)
	id  int
}

func (v *fakeVisibility) OnVisibilityChange(fn func(bool)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fns == nil {
		v.fns = make(map[int]func(bool))
	}
	v.id++
	id := v.id
	v.fns[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.fns, id)
	}
}

func (v *fakeVisibility) notify(visible bool) {
	v.mu.Lock()
	fns := make([]func(bool), 0, len(v.fns))
	for _, fn := range v.fns {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn(visible)
	}
}

type fakeDisplay struct {
	sizes [][2]int
}

func (d *fakeDisplay) SetDisplaySize(w, h int) {
	d.sizes = append(d.sizes, [2]int{w, h})
}

var allCapabilities = capability.QuerierFunc(func(string) bool { return true })

func newTestRenderer(t *testing.T, b *fakeBuilder, options ...RendererBuilderOption) RayTracingRenderer {
	t.Helper()
	options = append([]RendererBuilderOption{
		WithPipelineBuilder(b.build),
		WithClock(func() time.Duration { return 42 * time.Millisecond }),
	}, options...)
	r, err := NewRenderer(allCapabilities, options...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func newTestScene(t *testing.T) scene.Scene {
	t.Helper()
	s := scene.NewScene("test", scene.WithComputeWorkers(1))
	t.Cleanup(s.Release)
	return s
}

func TestNewRendererFailsWithoutRequiredCapability(t *testing.T) {
	q := capability.QuerierFunc(func(name string) bool { return name != capability.Float32Filterable })
	r, err := NewRenderer(q, WithPipelineBuilder((&fakeBuilder{}).build))

	var capErr *common.CapabilityError
	if !errors.As(err, &capErr) || capErr.Missing != capability.Float32Filterable {
		t.Fatalf("err = %v, want CapabilityError for %q", err, capability.Float32Filterable)
	}
	if r != nil {
		t.Error("renderer returned alongside a capability error")
	}
}

func TestNewRendererToleratesMissingOptionalCapability(t *testing.T) {
	q := capability.QuerierFunc(func(name string) bool { return name != capability.TimestampQuery })
	r, err := NewRenderer(q, WithPipelineBuilder((&fakeBuilder{}).build))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	caps := r.Capabilities()
	if caps.Has(capability.TimestampQuery) || !caps.Has(capability.Float32Filterable) {
		t.Errorf("capabilities = %v", caps)
	}
}

func TestDefaults(t *testing.T) {
	r := newTestRenderer(t, &fakeBuilder{})
	if r.Bounces() != DefaultBounces || r.MaxHardwareUsage() || !r.RenderWhenOffFocus() || !r.NeedsRebuild() {
		t.Error("unexpected defaults")
	}
	if r.ToneMapping() != pipeline.DefaultToneMappingParams() || r.PixelRatio() != 1 {
		t.Errorf("tone mapping %+v, pixel ratio %v", r.ToneMapping(), r.PixelRatio())
	}
	if _, ok := r.TotalSamplesRendered(); ok {
		t.Error("TotalSamplesRendered reported a pipeline before the first render")
	}
}

func TestRenderBuildsOnceAndRebuildsOnRequest(t *testing.T) {
	b := &fakeBuilder{}
	r := newTestRenderer(t, b, WithSize(320, 200), WithBounces(5))
	s := newTestScene(t)
	cam := camera.NewCamera()

	for range 3 {
		if err := r.Render(s, cam); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	if len(b.built) != 1 {
		t.Fatalf("built %d pipelines, want 1", len(b.built))
	}
	first := b.last()
	if first.draws != 3 || first.fullDraws != 0 {
		t.Errorf("draws = %d, full = %d, want 3 tiled", first.draws, first.fullDraws)
	}
	if len(first.sizes) != 1 || first.sizes[0] != [2]int{320, 200} {
		t.Errorf("pipeline sizes = %v, want the renderer size applied after build", first.sizes)
	}
	if b.params[0].Bounces != 5 || b.params[0].Scene == nil {
		t.Errorf("build params = %+v", b.params[0])
	}
	if n, ok := r.TotalSamplesRendered(); !ok || n != 3 {
		t.Errorf("TotalSamplesRendered = %d %v, want 3", n, ok)
	}

	r.SetNeedsRebuild()
	if err := r.Render(s, cam); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(b.built) != 2 || !first.released {
		t.Errorf("rebuild built %d pipelines, old released = %v", len(b.built), first.released)
	}
	if r.NeedsRebuild() {
		t.Error("rebuild flag not cleared")
	}
}

func TestSettingsThatRequireRebuild(t *testing.T) {
	b := &fakeBuilder{}
	r := newTestRenderer(t, b)
	s := newTestScene(t)
	cam := camera.NewCamera()
	if err := r.Render(s, cam); err != nil {
		t.Fatalf("Render: %v", err)
	}

	r.SetMaxHardwareUsage(true)
	r.SetRenderWhenOffFocus(false)
	if r.NeedsRebuild() {
		t.Error("sampling mode or focus policy requested a rebuild")
	}

	r.SetBounces(DefaultBounces)
	if r.NeedsRebuild() {
		t.Error("unchanged bounce count requested a rebuild")
	}
	r.SetBounces(-1)
	if r.NeedsRebuild() || r.Bounces() != DefaultBounces {
		t.Error("negative bounce count was accepted")
	}
	r.SetBounces(4)
	if !r.NeedsRebuild() {
		t.Error("bounce change did not request a rebuild")
	}
	if err := r.Render(s, cam); err != nil {
		t.Fatalf("Render: %v", err)
	}

	tm := pipeline.ToneMappingParams{Mode: pipeline.ToneMappingACESFilmic, Exposure: 1.5, WhitePoint: 1}
	r.SetToneMapping(tm)
	if !r.NeedsRebuild() {
		t.Error("tone mapping change did not request a rebuild")
	}
	if err := r.Render(s, cam); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := b.params[len(b.params)-1]; got.ToneMapping != tm || got.Bounces != 4 {
		t.Errorf("last build params = %+v", got)
	}
}

func TestMaxHardwareUsageDrawsFullFrames(t *testing.T) {
	b := &fakeBuilder{}
	r := newTestRenderer(t, b, WithMaxHardwareUsage(true))
	s := newTestScene(t)
	cam := camera.NewCamera()

	_ = r.Render(s, cam)
	r.SetMaxHardwareUsage(false)
	_ = r.Render(s, cam)

	p := b.last()
	if p.fullDraws != 1 || p.draws != 1 {
		t.Errorf("full = %d, tiled = %d, want one of each", p.fullDraws, p.draws)
	}
}

func TestFrameTimeResolution(t *testing.T) {
	b := &fakeBuilder{}
	r := newTestRenderer(t, b)
	s := newTestScene(t)
	cam := camera.NewCamera()

	r.Sync(16 * time.Millisecond)
	_ = r.Render(s, cam) // synced time
	_ = r.Render(s, cam) // no sync: clock
	r.Sync(0)            // zero: clock
	_ = r.Render(s, cam)
	r.RestartTimer()
	r.Sync(100 * time.Millisecond)
	_ = r.Render(s, cam) // invalidated
	r.Sync(116 * time.Millisecond)
	_ = r.Render(s, cam) // valid again

	want := []struct {
		t     time.Duration
		valid bool
	}{
		{16 * time.Millisecond, true},
		{42 * time.Millisecond, true},
		{42 * time.Millisecond, true},
		{0, false},
		{116 * time.Millisecond, true},
	}
	times := b.last().times
	if len(times) != len(want) {
		t.Fatalf("got %d frame times, want %d", len(times), len(want))
	}
	for i, w := range want {
		got, ok := times[i].Value()
		if ok != w.valid || (ok && got != w.t) {
			t.Errorf("frame %d: time = %v %v, want %v %v", i, got, ok, w.t, w.valid)
		}
	}
}

func TestFocusGating(t *testing.T) {
	b := &fakeBuilder{}
	focused := false
	r := newTestRenderer(t, b,
		WithRenderWhenOffFocus(false),
		WithFocusSource(FocusFunc(func() bool { return focused })))
	s := newTestScene(t)
	cam := camera.NewCamera()

	if err := r.Render(s, cam); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(b.built) != 0 {
		t.Fatal("pipeline built while unfocused")
	}

	focused = true
	_ = r.Render(s, cam)
	_ = r.Render(s, cam)
	p := b.last()
	if p.draws != 2 {
		t.Fatalf("draws = %d, want 2", p.draws)
	}
	if p.times[0].Valid() || !p.times[1].Valid() {
		t.Errorf("frame times after regaining focus = %v, want invalid then valid", p.times)
	}

	focused = false
	_ = r.Render(s, cam)
	if p.draws != 2 {
		t.Error("drew while unfocused")
	}

	r.SetRenderWhenOffFocus(true)
	_ = r.Render(s, cam)
	if p.draws != 3 {
		t.Error("did not draw with render-when-off-focus enabled")
	}
}

func TestSizeAndPixelRatio(t *testing.T) {
	b := &fakeBuilder{}
	d := &fakeDisplay{}
	r := newTestRenderer(t, b, WithDisplay(d))
	s := newTestScene(t)
	_ = r.Render(s, camera.NewCamera())
	p := b.last()

	r.SetSize(100, 50, true)
	r.SetPixelRatio(2)
	if w, h := r.Size(); w != 100 || h != 50 {
		t.Errorf("Size = %dx%d", w, h)
	}
	if w, h := r.BackingSize(); w != 200 || h != 100 {
		t.Errorf("BackingSize = %dx%d, want 200x100", w, h)
	}
	if got := p.sizes[len(p.sizes)-1]; got != [2]int{200, 100} {
		t.Errorf("pipeline size = %v, want backing size", got)
	}
	if len(d.sizes) != 1 || d.sizes[0] != [2]int{100, 50} {
		t.Errorf("display sizes = %v, want one logical update", d.sizes)
	}

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		r.SetPixelRatio(bad)
	}
	if r.PixelRatio() != 2 {
		t.Errorf("PixelRatio = %v after invalid updates, want 2", r.PixelRatio())
	}

	r.SetSize(30, 20, false)
	if len(d.sizes) != 1 {
		t.Error("display updated without updateStyle")
	}
}

func TestResizeKeepsAccumulatedSamples(t *testing.T) {
	b := &fakeBuilder{}
	r := newTestRenderer(t, b, WithSize(320, 200))
	s := newTestScene(t)
	cam := camera.NewCamera()
	for range 4 {
		_ = r.Render(s, cam)
	}

	r.SetSize(320, 200, false)
	r.SetPixelRatio(r.PixelRatio())
	r.SetSize(640, 400, false)
	if n, ok := r.TotalSamplesRendered(); !ok || n != 4 {
		t.Errorf("TotalSamplesRendered = %d %v after resizing, want 4", n, ok)
	}
	if len(b.built) != 1 {
		t.Errorf("built %d pipelines, want a resize to keep the pipeline", len(b.built))
	}
	if p := b.last(); p.sizes[len(p.sizes)-1] != [2]int{640, 400} {
		t.Errorf("pipeline size = %v, want 640x400", p.sizes[len(p.sizes)-1])
	}
}

func TestResizeAppliesSizeAndRatioOnce(t *testing.T) {
	b := &fakeBuilder{}
	d := &fakeDisplay{}
	r := newTestRenderer(t, b, WithSize(100, 50), WithDisplay(d))
	_ = r.Render(newTestScene(t), camera.NewCamera())
	p := b.last()
	before := len(p.sizes)

	r.Resize(200, 100, 1.5)
	if got := len(p.sizes) - before; got != 1 {
		t.Fatalf("pipeline resized %d times, want 1", got)
	}
	if got := p.sizes[len(p.sizes)-1]; got != [2]int{300, 150} {
		t.Errorf("pipeline size = %v, want 300x150", got)
	}

	r.Resize(80, 40, math.NaN())
	if r.PixelRatio() != 1.5 {
		t.Errorf("PixelRatio = %v after an invalid ratio, want 1.5", r.PixelRatio())
	}
	if w, h := r.BackingSize(); w != 120 || h != 60 {
		t.Errorf("BackingSize = %dx%d, want 120x60", w, h)
	}
	if len(d.sizes) != 0 {
		t.Errorf("display sizes = %v, want Resize to leave the display alone", d.sizes)
	}
}

func TestSampleCallback(t *testing.T) {
	b := &fakeBuilder{}
	var got []int
	r := newTestRenderer(t, b, WithOnSampleRendered(func(n int) { got = append(got, n) }))
	s := newTestScene(t)
	cam := camera.NewCamera()

	_ = r.Render(s, cam)
	_ = r.Render(s, cam)
	r.SetOnSampleRendered(nil)
	_ = r.Render(s, cam)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("callback saw %v, want [1 2]", got)
	}
}

func TestBuildErrorKeepsRendererUnbound(t *testing.T) {
	boom := errors.New("boom")
	b := &fakeBuilder{err: boom}
	r := newTestRenderer(t, b)
	s := newTestScene(t)

	if err := r.Render(s, camera.NewCamera()); !errors.Is(err, boom) {
		t.Fatalf("Render err = %v, want wrapped build error", err)
	}
	if !r.NeedsRebuild() {
		t.Error("rebuild flag cleared after a failed build")
	}
	if _, ok := r.TotalSamplesRendered(); ok {
		t.Error("renderer bound after a failed build")
	}
}

func TestVisibilityAndDispose(t *testing.T) {
	b := &fakeBuilder{}
	v := &fakeVisibility{}
	r := newTestRenderer(t, b, WithVisibilitySource(v))
	s := newTestScene(t)
	cam := camera.NewCamera()

	_ = r.Render(s, cam)
	v.notify(false)
	_ = r.Render(s, cam)
	p := b.last()
	if !p.times[0].Valid() || p.times[1].Valid() {
		t.Errorf("frame times = %v, want the frame after a visibility change invalidated", p.times)
	}

	r.Dispose()
	if len(v.fns) != 0 {
		t.Error("Dispose did not unsubscribe from visibility changes")
	}
	if p.released {
		t.Error("Dispose released the pipeline")
	}
	if err := r.Render(s, cam); !errors.Is(err, common.ErrDisposed) {
		t.Errorf("Render after Dispose = %v, want ErrDisposed", err)
	}
	r.Dispose()
}

func TestRestartTimerConcurrent(t *testing.T) {
	r := newTestRenderer(t, &fakeBuilder{})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RestartTimer()
		}()
	}
	wg.Wait()
	_ = r.Render(newTestScene(t), camera.NewCamera())
}
