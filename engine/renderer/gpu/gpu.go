// Package gpu owns the WebGPU instance, adapter, device and presentation surface shared by the
// renderer and its pipelines.
package gpu

import (
	"cmp"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/capability"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how finished frames reach the display.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank. Progressive frames never tear but are capped to the
	// refresh rate.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately.
	PresentModeUncapped
)

// Frame is one acquired swapchain image.
type Frame struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Width   uint32
	Height  uint32
}

type contextImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	width, height uint32
	presentMode   wgpu.PresentMode

	forceFallbackAdapter bool
	requiredFeatures     []string
	label                string

	frame *Frame
}

// Context is the device-level GPU state. It answers capability queries, so it can be handed to
// capability.Probe directly.
type Context interface {
	capability.Querier

	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Adapter() *wgpu.Adapter
	Instance() *wgpu.Instance
	Surface() *wgpu.Surface

	// SurfaceFormat returns the format chosen by the last ConfigureSurface call.
	SurfaceFormat() wgpu.TextureFormat

	// ConfigureSurface (re)configures the swapchain. Must be called after every resize of the
	// backing canvas.
	//
	// Parameters:
	//   - width: backing width in pixels
	//   - height: backing height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode changes the present mode. Takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the present mode
	SetPresentMode(mode PresentMode)

	// MaxTextureDimension returns the largest 2D texture edge supported by the adapter.
	MaxTextureDimension() uint32

	// AcquireFrame returns the next swapchain image.
	//
	// Returns:
	//   - *Frame: the acquired image
	//   - error: if an image is still held or the surface is lost
	AcquireFrame() (*Frame, error)

	// Present presents the image returned by AcquireFrame and releases it.
	Present()

	// CreateBuffer creates a buffer of at least len(data) bytes, rounded up to four, and uploads data.
	//
	// Parameters:
	//   - label: debug label
	//   - data: initial contents; nil creates a zeroed buffer of size minSize
	//   - minSize: lower bound on the buffer size
	//   - usage: buffer usage, CopyDst is always added
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: if creation fails
	CreateBuffer(label string, data []byte, minSize uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// WriteBuffer uploads data at offset.
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte)

	// CreateRenderTexture creates a 2D texture usable as a render attachment, a texture binding and
	// either end of a texture copy.
	//
	// Parameters:
	//   - label: debug label
	//   - width, height: size in pixels
	//   - format: texel format
	//
	// Returns:
	//   - *wgpu.Texture: the texture
	//   - *wgpu.TextureView: its default view
	//   - error: if creation fails
	CreateRenderTexture(label string, width, height uint32, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error)

	// UploadTexture creates an sRGB texture from decoded RGBA pixels.
	//
	// Parameters:
	//   - label: debug label
	//   - data: the pixels
	//
	// Returns:
	//   - *wgpu.Texture: the texture
	//   - *wgpu.TextureView: its default view
	//   - error: if creation fails
	UploadTexture(label string, data common.TextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error)

	// CreateSampler creates a clamped sampler with the given filter.
	CreateSampler(label string, filter wgpu.FilterMode) (*wgpu.Sampler, error)

	// Release releases the device, surface and instance.
	Release()
}

var _ Context = &contextImpl{}

// NewContext creates the instance, the surface for surfaceDescriptor, then picks an adapter
// compatible with that surface and opens a device. The calling goroutine is locked to its OS
// thread, which WebGPU surfaces require on some platforms.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, usually from window.Window.SurfaceDescriptor
//   - options: functional options
//
// Returns:
//   - Context: the context
//   - error: if no adapter or device is available
func NewContext(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...ContextBuilderOption) (Context, error) {
	runtime.LockOSThread()

	c := &contextImpl{
		mu:          &sync.Mutex{},
		presentMode: wgpu.PresentModeFifo,
		label:       "oxy-rt device",
	}
	for _, option := range options {
		option(c)
	}

	c.instance = wgpu.CreateInstance(nil)
	if surfaceDescriptor != nil {
		c.surface = c.instance.CreateSurface(surfaceDescriptor)
	}

	adapter, err := c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: c.forceFallbackAdapter,
		CompatibleSurface:    c.surface,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	c.adapter = adapter

	var features []wgpu.FeatureName
	for _, name := range c.requiredFeatures {
		if f, ok := featureFor(name); ok && adapter.HasFeature(f) {
			features = append(features, f)
		}
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            c.label,
		RequiredFeatures: features,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	c.device = device
	c.queue = device.GetQueue()

	return c, nil
}

func (c *contextImpl) HasCapability(name string) bool {
	f, ok := featureFor(name)
	if !ok || c.adapter == nil {
		return false
	}
	return c.adapter.HasFeature(f)
}

func (c *contextImpl) Device() *wgpu.Device {
	return c.device
}

func (c *contextImpl) Queue() *wgpu.Queue {
	return c.queue
}

func (c *contextImpl) Adapter() *wgpu.Adapter {
	return c.adapter
}

func (c *contextImpl) Instance() *wgpu.Instance {
	return c.instance
}

func (c *contextImpl) Surface() *wgpu.Surface {
	return c.surface
}

func (c *contextImpl) SurfaceFormat() wgpu.TextureFormat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surfaceFormat
}

func (c *contextImpl) ConfigureSurface(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := c.surface.GetCapabilities(c.adapter)
	c.surfaceFormat = capabilities.Formats[0]
	c.width, c.height = uint32(width), uint32(height)
	c.surface.Configure(c.adapter, c.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      c.surfaceFormat,
		Width:       c.width,
		Height:      c.height,
		PresentMode: c.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (c *contextImpl) SetPresentMode(mode PresentMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		c.presentMode = wgpu.PresentModeImmediate
	default:
		c.presentMode = wgpu.PresentModeFifo
	}
}

func (c *contextImpl) MaxTextureDimension() uint32 {
	if c.adapter == nil {
		return wgpu.DefaultLimits().MaxTextureDimension2D
	}
	return c.adapter.GetLimits().Limits.MaxTextureDimension2D
}

func (c *contextImpl) AcquireFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surface == nil {
		return nil, fmt.Errorf("context has no surface")
	}
	if c.frame != nil {
		return nil, fmt.Errorf("previous frame not yet presented")
	}

	tex, err := c.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create surface view: %w", err)
	}

	c.frame = &Frame{Texture: tex, View: view, Width: c.width, Height: c.height}
	return c.frame, nil
}

func (c *contextImpl) Present() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame == nil {
		return
	}
	c.surface.Present()
	c.frame.View.Release()
	c.frame.Texture.Release()
	c.frame = nil
}

func (c *contextImpl) CreateBuffer(label string, data []byte, minSize uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	size := max(uint64(len(data)), minSize, 4)
	if size%4 != 0 {
		size += 4 - size%4
	}

	buf, err := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	if len(data) > 0 {
		c.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

func (c *contextImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	if buf == nil || len(data) == 0 {
		return
	}
	c.queue.WriteBuffer(buf, offset, data)
}

func (c *contextImpl) CreateRenderTexture(label string, width, height uint32, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              max(width, 1),
			Height:             max(height, 1),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create view of %q: %w", label, err)
	}
	return tex, view, nil
}

func (c *contextImpl) UploadTexture(label string, data common.TextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error) {
	if data.Width == 0 || data.Height == 0 || len(data.Pixels) < int(data.Width*data.Height*4) {
		return nil, nil, fmt.Errorf("texture %q has no pixels", label)
	}

	tex, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}

	c.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create view of %q: %w", label, err)
	}
	return tex, view, nil
}

func (c *contextImpl) CreateSampler(label string, filter wgpu.FilterMode) (*wgpu.Sampler, error) {
	filter = cmp.Or(filter, wgpu.FilterModeLinear)
	samp, err := c.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler %q: %w", label, err)
	}
	return samp, nil
}

func (c *contextImpl) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame != nil {
		c.frame.View.Release()
		c.frame.Texture.Release()
		c.frame = nil
	}
	if c.queue != nil {
		c.queue.Release()
		c.queue = nil
	}
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}
