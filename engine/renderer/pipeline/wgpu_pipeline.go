package pipeline

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/rendertarget"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/trace.wgsl
var traceShaderSource string

//go:embed assets/tonemap.wgsl
var toneMapShaderSource string

// Accumulation target slots.
const (
	slotRadiance = 0
	slotPosition = 1
)

// Bind groups of the sample pass.
const (
	traceGroupFrame = iota
	traceGroupScene
	traceGroupEnvironment
)

var errPipelineReleased = errors.New("pipeline has been released")

// gpuProgram is a render pipeline together with the layouts it was created from.
type gpuProgram struct {
	shader   shader.Shader
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
	groups   []*wgpu.BindGroupLayout
}

func (g *gpuProgram) release() {
	if g == nil {
		return
	}
	if g.pipeline != nil {
		g.pipeline.Release()
	}
	if g.layout != nil {
		g.layout.Release()
	}
	for _, l := range g.groups {
		if l != nil {
			l.Release()
		}
	}
}

// wgpuPipeline accumulates path traced samples into a float render target one tile per Draw call
// and tone maps the running average onto the surface after each completed pass.
type wgpuPipeline struct {
	mu  *sync.Mutex
	log *slog.Logger

	label                string
	tileDuration         time.Duration
	initialPixelsPerTile int

	ctx       gpu.Context
	scheduler *TileScheduler
	clock     frameClock

	bounces       int
	toneMapping   ToneMappingParams
	triangleCount int
	width, height int

	fbDevice     *rendertarget.WGPUDevice
	accumulation rendertarget.RenderTarget

	trace   *gpuProgram
	toneMap *gpuProgram

	cameraBuf  *wgpu.Buffer
	paramsBuf  *wgpu.Buffer
	toneBuf    *wgpu.Buffer
	sceneBufs  []*wgpu.Buffer
	envTexture *wgpu.Texture
	envView    *wgpu.TextureView
	envSampler *wgpu.Sampler

	traceGroups []*wgpu.BindGroup
	toneGroup   *wgpu.BindGroup

	cameraVersion uint64
	hasCamera     bool
	clearPending  bool
	samples       int
	frameSeed     uint32
	onSample      SampleCallback
	released      bool
}

var _ Pipeline = &wgpuPipeline{}

// NewWGPUPipeline uploads a flattened scene and builds the sample and output passes.
//
// Parameters:
//   - params: the build parameters; params.Context must be a gpu.Context
//   - options: functional options
//
// Returns:
//   - Pipeline: the pipeline, sized 1x1 until SetSize is called
//   - error: *common.ConfigurationError for an unusable context or scene, otherwise a GPU error
func NewWGPUPipeline(params BuildParams, options ...PipelineBuilderOption) (Pipeline, error) {
	ctx, ok := params.Context.(gpu.Context)
	if !ok || ctx == nil {
		return nil, &common.ConfigurationError{
			Component: "Pipeline",
			Reason:    fmt.Sprintf("graphics context %T is not a WebGPU context", params.Context),
		}
	}

	p := &wgpuPipeline{
		mu:           &sync.Mutex{},
		log:          common.ComponentLogger("Pipeline"),
		label:        "oxy-rt",
		tileDuration: DesiredTileDuration,
		ctx:          ctx,
		bounces:      max(params.Bounces, 0),
		toneMapping:  params.ToneMapping.sanitized(),
		fbDevice:     rendertarget.NewWGPUDevice(),
		width:        1,
		height:       1,
		clearPending: true,
	}
	for _, option := range options {
		option(p)
	}

	p.scheduler = NewTileScheduler(ctx.MaxTextureDimension())
	p.scheduler.SetDesiredDuration(p.tileDuration)
	if p.initialPixelsPerTile > 0 {
		p.scheduler.SetPixelsPerTile(p.initialPixelsPerTile)
	}

	payload, err := packScene(params.Scene, params.Lights)
	if err != nil {
		return nil, &common.ConfigurationError{Component: "Pipeline", Reason: "invalid scene", Err: err}
	}
	p.triangleCount = payload.triangleCount

	if err := p.build(payload); err != nil {
		p.Release()
		return nil, err
	}
	p.log.Debug("pipeline built",
		"triangles", payload.triangleCount,
		"materials", len(payload.materials)/48,
		"bounces", p.bounces,
		"pixelsPerTile", p.scheduler.PixelsPerTile())
	return p, nil
}

func (p *wgpuPipeline) build(payload scenePayload) error {
	var err error
	if err = p.createAccumulation(p.width, p.height); err != nil {
		return err
	}
	if err = p.createBuffers(payload); err != nil {
		return err
	}
	if err = p.createEnvironment(payload); err != nil {
		return err
	}

	traceShader, err := shader.NewShader(p.label+" trace", traceShaderSource, shaderStructs())
	if err != nil {
		return err
	}
	p.trace, err = p.createProgram(traceShader, p.fbDevice.ColorTargets(p.accumulation.Handle()))
	if err != nil {
		return err
	}

	toneShader, err := shader.NewShader(p.label+" tone map", toneMapShaderSource,
		shaderStructs(),
		shader.WithVisibility(wgpu.ShaderStageFragment))
	if err != nil {
		return err
	}
	p.toneMap, err = p.createProgram(toneShader, []wgpu.ColorTargetState{{
		Format:    p.ctx.SurfaceFormat(),
		WriteMask: wgpu.ColorWriteMaskAll,
	}})
	if err != nil {
		return err
	}

	if err = p.createTraceGroups(); err != nil {
		return err
	}
	return p.createToneGroup()
}

// createAccumulation allocates the float targets the sample pass adds into. Radiance alpha counts
// the samples accumulated per pixel, so tiles finished in different passes still average correctly.
func (p *wgpuPipeline) createAccumulation(width, height int) error {
	w, h := uint32(width), uint32(height)

	radianceTex, radianceView, err := p.ctx.CreateRenderTexture(p.label+" radiance", w, h, wgpu.TextureFormatRGBA16Float)
	if err != nil {
		return err
	}
	positionTex, positionView, err := p.ctx.CreateRenderTexture(p.label+" position", w, h, wgpu.TextureFormatRGBA32Float)
	if err != nil {
		radianceView.Release()
		radianceTex.Release()
		return err
	}

	target, err := rendertarget.NewRenderTarget(p.fbDevice, map[int]rendertarget.Texture{
		slotRadiance: {
			Label:   p.label + " radiance",
			Format:  wgpu.TextureFormatRGBA16Float,
			View:    radianceView,
			Texture: radianceTex,
			Width:   w,
			Height:  h,
			Blend: &wgpu.BlendState{
				Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
				Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
			},
		},
		slotPosition: {
			Label:   p.label + " position",
			Format:  wgpu.TextureFormatRGBA32Float,
			View:    positionView,
			Texture: positionTex,
			Width:   w,
			Height:  h,
		},
	})
	if err != nil {
		positionView.Release()
		positionTex.Release()
		radianceView.Release()
		radianceTex.Release()
		return err
	}

	if p.accumulation != nil {
		p.accumulation.Release()
	}
	p.accumulation = target
	p.width, p.height = width, height
	return nil
}

func (p *wgpuPipeline) createBuffers(payload scenePayload) error {
	uniform := wgpu.BufferUsageUniform
	storage := wgpu.BufferUsageStorage

	var err error
	cam := camera.GPUCameraUniform{}
	if p.cameraBuf, err = p.ctx.CreateBuffer(p.label+" camera", nil, uint64(cam.Size()), uniform); err != nil {
		return err
	}
	params := GPUTraceParams{}
	if p.paramsBuf, err = p.ctx.CreateBuffer(p.label+" trace params", nil, uint64(params.Size()), uniform); err != nil {
		return err
	}
	tone := NewGPUToneMapParams(p.toneMapping, !isSRGB(p.ctx.SurfaceFormat()))
	if p.toneBuf, err = p.ctx.CreateBuffer(p.label+" tone map params", tone.Marshal(), 0, uniform); err != nil {
		return err
	}

	scene := []struct {
		name  string
		data  []byte
		usage wgpu.BufferUsage
	}{
		{"vertices", payload.vertices, storage},
		{"indices", payload.indices, storage},
		{"materials", payload.materials, storage},
		{"light header", payload.lightHeader, uniform},
		{"lights", payload.lights, storage},
	}
	for _, b := range scene {
		buf, err := p.ctx.CreateBuffer(p.label+" "+b.name, b.data, 0, b.usage)
		if err != nil {
			return err
		}
		p.sceneBufs = append(p.sceneBufs, buf)
	}
	return nil
}

// createEnvironment uploads the environment map, or a single black texel when the scene has none.
func (p *wgpuPipeline) createEnvironment(payload scenePayload) error {
	staging := common.TextureStagingData{Pixels: []byte{0, 0, 0, 255}, Width: 1, Height: 1}
	if payload.environment != nil {
		data, err := payload.environment.Environment().Load()
		if err != nil {
			p.log.Warn("environment map unavailable, rendering without it", "degraded", true, "error", err)
		} else {
			staging = data
		}
	}

	var err error
	p.envTexture, p.envView, err = p.ctx.UploadTexture(p.label+" environment", staging)
	if err != nil {
		return err
	}
	p.envSampler, err = p.ctx.CreateSampler(p.label+" environment", wgpu.FilterModeLinear)
	return err
}

// createProgram creates the layouts and render pipeline of a fullscreen pass.
func (p *wgpuPipeline) createProgram(s shader.Shader, targets []wgpu.ColorTargetState) (*gpuProgram, error) {
	device := p.ctx.Device()
	prog := &gpuProgram{shader: s}

	module, err := device.CreateShaderModule(s.Module())
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module %q: %w", s.Key(), err)
	}
	defer module.Release()

	prog.groups = make([]*wgpu.BindGroupLayout, s.GroupCount())
	for g := range prog.groups {
		desc := s.BindGroupLayoutDescriptor(g)
		desc.Label = fmt.Sprintf("%s group %d", s.Key(), g)
		layout, err := device.CreateBindGroupLayout(&desc)
		if err != nil {
			prog.release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		prog.groups[g] = layout
	}

	prog.layout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            s.Key(),
		BindGroupLayouts: prog.groups,
	})
	if err != nil {
		prog.release()
		return nil, fmt.Errorf("failed to create pipeline layout %q: %w", s.Key(), err)
	}

	prog.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  s.Key() + " Render Pipeline",
		Layout: prog.layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: s.VertexEntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: s.FragmentEntryPoint(),
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		prog.release()
		return nil, fmt.Errorf("failed to create render pipeline %q: %w", s.Key(), err)
	}
	return prog, nil
}

func (p *wgpuPipeline) createTraceGroups() error {
	device := p.ctx.Device()
	s := p.trace.shader

	bufferEntry := func(group int, name string, buf *wgpu.Buffer) (wgpu.BindGroupEntry, error) {
		binding, ok := s.BindingIndex(group, name)
		if !ok {
			return wgpu.BindGroupEntry{}, fmt.Errorf("shader %q declares no %q in group %d", s.Key(), name, group)
		}
		return wgpu.BindGroupEntry{Binding: uint32(binding), Buffer: buf, Offset: 0, Size: wgpu.WholeSize}, nil
	}

	groups := map[int][]struct {
		name string
		buf  *wgpu.Buffer
	}{
		traceGroupFrame: {{"camera", p.cameraBuf}, {"params", p.paramsBuf}},
		traceGroupScene: {
			{"vertices", p.sceneBufs[0]},
			{"indices", p.sceneBufs[1]},
			{"materials", p.sceneBufs[2]},
			{"light_header", p.sceneBufs[3]},
			{"lights", p.sceneBufs[4]},
		},
	}

	p.traceGroups = make([]*wgpu.BindGroup, len(p.trace.groups))
	for g := range p.traceGroups {
		var entries []wgpu.BindGroupEntry
		if g == traceGroupEnvironment {
			entries = []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: p.envView},
				{Binding: 1, Sampler: p.envSampler},
			}
		}
		for _, b := range groups[g] {
			entry, err := bufferEntry(g, b.name, b.buf)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", s.Key(), g),
			Layout:  p.trace.groups[g],
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("failed to create bind group %d: %w", g, err)
		}
		p.traceGroups[g] = bg
	}
	return nil
}

// createToneGroup binds the radiance target to the output pass. It is recreated on every resize.
func (p *wgpuPipeline) createToneGroup() error {
	radiance, ok := p.accumulation.Color(slotRadiance)
	if !ok {
		return fmt.Errorf("accumulation target has no radiance attachment")
	}
	bg, err := p.ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  p.toneMap.shader.Key() + " group 0",
		Layout: p.toneMap.groups[0],
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.toneBuf, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: radiance.View},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create tone map bind group: %w", err)
	}
	if p.toneGroup != nil {
		p.toneGroup.Release()
	}
	p.toneGroup = bg
	return nil
}

func (p *wgpuPipeline) Draw(cam camera.Camera) error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return errPipelineReleased
	}
	p.syncCamera(cam)
	elapsed, ok := p.clock.frame()
	tile := p.scheduler.NextTile(elapsed, ok)
	completed, err := p.sample(tile.X, tile.Y, tile.Width, tile.Height, tile.Last)
	cb, samples := p.onSample, p.samples
	p.mu.Unlock()

	if err == nil && completed && cb != nil {
		cb(samples)
	}
	return err
}

func (p *wgpuPipeline) DrawFull(cam camera.Camera) error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return errPipelineReleased
	}
	p.syncCamera(cam)
	p.scheduler.Reset()
	_, err := p.sample(0, 0, p.width, p.height, true)
	cb, samples := p.onSample, p.samples
	p.mu.Unlock()

	if err == nil && cb != nil {
		cb(samples)
	}
	return err
}

// syncCamera uploads the camera and restarts accumulation when it moved since the last draw.
func (p *wgpuPipeline) syncCamera(cam camera.Camera) {
	version := cam.Version()
	if p.hasCamera && version == p.cameraVersion {
		return
	}
	p.hasCamera = true
	p.cameraVersion = version
	p.restartAccumulation()

	uniform := camera.NewGPUCameraUniform(cam)
	p.ctx.WriteBuffer(p.cameraBuf, 0, uniform.Marshal())
}

func (p *wgpuPipeline) restartAccumulation() {
	p.samples = 0
	p.clearPending = true
	p.scheduler.Reset()
}

// sample traces one rectangle and, when last is set, completes the pass: the sample is counted and
// the running average is presented.
func (p *wgpuPipeline) sample(x, y, width, height int, last bool) (bool, error) {
	p.frameSeed++
	params := GPUTraceParams{
		FrameSize:     [2]float32{float32(p.width), float32(p.height)},
		Jitter:        sampleJitter(p.samples),
		SampleIndex:   uint32(p.samples),
		Bounces:       uint32(p.bounces),
		TriangleCount: uint32(p.triangleCount),
		FrameSeed:     p.frameSeed,
	}
	p.ctx.WriteBuffer(p.paramsBuf, 0, params.Marshal())

	encoder, err := p.ctx.Device().CreateCommandEncoder(nil)
	if err != nil {
		return false, fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	clear := p.clearPending
	err = p.accumulation.Scoped(func() error {
		pass, err := p.fbDevice.BeginPass(encoder, clear)
		if err != nil {
			return err
		}
		pass.SetPipeline(p.trace.pipeline)
		for g, bg := range p.traceGroups {
			pass.SetBindGroup(uint32(g), bg, nil)
		}
		pass.SetScissorRect(uint32(x), uint32(y), uint32(width), uint32(height))
		pass.Draw(3, 1, 0, 0)
		pass.End()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record sample pass: %w", err)
	}
	p.clearPending = false

	var frame *gpu.Frame
	if last {
		frame, err = p.ctx.AcquireFrame()
		if err != nil {
			p.log.Warn("skipping present", "error", err)
		} else {
			p.recordToneMap(encoder, frame.View)
		}
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		if frame != nil {
			p.ctx.Present()
		}
		return false, fmt.Errorf("failed to finish command encoder: %w", err)
	}
	p.ctx.Queue().Submit(commandBuffer)
	commandBuffer.Release()

	if !last {
		return false, nil
	}
	p.samples++
	if frame != nil {
		p.ctx.Present()
	}
	return true, nil
}

func (p *wgpuPipeline) recordToneMap(encoder *wgpu.CommandEncoder, view *wgpu.TextureView) {
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: p.toneMap.shader.Key(),
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{A: 1},
		}},
	})
	pass.SetPipeline(p.toneMap.pipeline)
	pass.SetBindGroup(0, p.toneGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
}

func (p *wgpuPipeline) SetSize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return
	}
	width, height = max(width, 1), max(height, 1)
	region, resized := carryRegion(p.width, p.height, width, height)
	if !resized {
		return
	}
	p.ctx.ConfigureSurface(width, height)

	previous := p.accumulation
	p.accumulation = nil
	if err := p.createAccumulation(width, height); err != nil {
		p.accumulation = previous
		p.log.Error("failed to resize accumulation target", "width", width, "height", height, "error", err)
		return
	}
	if previous != nil {
		if err := p.carryAccumulation(previous, region); err != nil {
			p.log.Warn("dropping accumulated samples after resize", "samples", p.samples, "error", err)
			p.restartAccumulation()
		}
		previous.Release()
	}
	if err := p.createToneGroup(); err != nil {
		p.log.Error("failed to rebind accumulation target", "error", err)
		return
	}
	p.scheduler.SetSize(width, height)
}

// carryRegion reports whether a resize from oldW x oldH to newW x newH reallocates the
// accumulation targets and, if so, the top-left region both targets share.
func carryRegion(oldW, oldH, newW, newH int) (wgpu.Extent3D, bool) {
	if oldW == newW && oldH == newH {
		return wgpu.Extent3D{}, false
	}
	return wgpu.Extent3D{
		Width:              uint32(max(min(oldW, newW), 0)),
		Height:             uint32(max(min(oldH, newH), 0)),
		DepthOrArrayLayers: 1,
	}, true
}

// carryAccumulation copies the shared region of every slot of previous into the current
// accumulation target. Radiance alpha holds the per-pixel sample count, so copied pixels keep
// their running average and pixels outside the region start from zero samples.
func (p *wgpuPipeline) carryAccumulation(previous rendertarget.RenderTarget, region wgpu.Extent3D) error {
	if region.Width == 0 || region.Height == 0 {
		return nil
	}
	encoder, err := p.ctx.Device().CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	for _, slot := range previous.Slots() {
		src, ok := previous.Color(slot)
		if !ok {
			continue
		}
		dst, ok := p.accumulation.Color(slot)
		if !ok {
			continue
		}
		err = encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{Texture: src.Texture, Aspect: wgpu.TextureAspectAll},
			&wgpu.ImageCopyTexture{Texture: dst.Texture, Aspect: wgpu.TextureAspectAll},
			&region,
		)
		if err != nil {
			return fmt.Errorf("failed to copy slot %d: %w", slot, err)
		}
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	p.ctx.Queue().Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (p *wgpuPipeline) Time(t FrameTime) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock.advance(t)
}

func (p *wgpuPipeline) TotalSamplesRendered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samples
}

func (p *wgpuPipeline) SetOnSampleRendered(cb SampleCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSample = cb
}

func (p *wgpuPipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return
	}
	p.released = true

	if p.toneGroup != nil {
		p.toneGroup.Release()
	}
	for _, bg := range p.traceGroups {
		if bg != nil {
			bg.Release()
		}
	}
	p.toneMap.release()
	p.trace.release()

	for _, buf := range append([]*wgpu.Buffer{p.cameraBuf, p.paramsBuf, p.toneBuf}, p.sceneBufs...) {
		if buf != nil {
			buf.Release()
		}
	}
	if p.envSampler != nil {
		p.envSampler.Release()
	}
	if p.envView != nil {
		p.envView.Release()
	}
	if p.envTexture != nil {
		p.envTexture.Release()
	}
	if p.accumulation != nil {
		p.accumulation.Release()
	}
}

// isSRGB reports whether the surface format applies the sRGB transfer function on write.
func isSRGB(format wgpu.TextureFormat) bool {
	switch format {
	case wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb:
		return true
	default:
		return false
	}
}
