// Package rendertarget binds a set of color textures, and optionally a depth buffer, into a
// single multi-target framebuffer that one draw call can write to simultaneously.
package rendertarget

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Handle identifies a framebuffer object on a Device. The zero handle means "no framebuffer bound".
type Handle uint32

// Texture describes a color texture usable as a render target attachment.
type Texture struct {
	// Label is used in error messages and GPU debug labels.
	Label string
	// Format is the texture format; it must not be TextureFormatUndefined.
	Format wgpu.TextureFormat
	// View is the texture view written by the attachment.
	View *wgpu.TextureView
	// Texture is the owning texture, kept so the target can release it.
	Texture *wgpu.Texture
	// Width and Height are the texture dimensions in pixels.
	Width, Height uint32
	// Blend is the blend state applied when writing to this attachment. Nil disables blending.
	Blend *wgpu.BlendState
}

// Renderbuffer describes a depth attachment.
type Renderbuffer struct {
	Format  wgpu.TextureFormat
	View    *wgpu.TextureView
	Texture *wgpu.Texture
}

func (t Texture) validate() error {
	switch {
	case t.View == nil:
		return fmt.Errorf("texture %q has no view", t.Label)
	case t.Format == wgpu.TextureFormatUndefined:
		return fmt.Errorf("texture %q has an undefined format", t.Label)
	case t.Width == 0 || t.Height == 0:
		return fmt.Errorf("texture %q has zero size %dx%d", t.Label, t.Width, t.Height)
	}
	return nil
}

// Device is the minimal framebuffer API the render target needs. Implementations are not
// required to be safe for concurrent use.
type Device interface {
	// CreateFramebuffer allocates a new framebuffer and returns its handle.
	CreateFramebuffer() Handle

	// BindFramebuffer makes h the current framebuffer. Binding the zero handle unbinds.
	BindFramebuffer(h Handle)

	// AttachColor attaches tex to the bound framebuffer at the given color slot.
	AttachColor(slot int, tex Texture) error

	// DrawBuffers declares which color slots subsequent draws write to, in ascending order.
	DrawBuffers(slots []int)

	// AttachDepth attaches a depth buffer to the bound framebuffer.
	AttachDepth(depth Renderbuffer) error

	// DeleteFramebuffer frees the framebuffer identified by h.
	DeleteFramebuffer(h Handle)
}

// RenderTarget is a multi-target framebuffer mapping color slots to textures.
type RenderTarget interface {
	// Bind makes this target the destination of subsequent draws. Binding twice is harmless.
	Bind()

	// Unbind restores the default framebuffer.
	Unbind()

	// Scoped binds the target, runs fn, and unbinds on every exit path.
	//
	// Parameters:
	//   - fn: the work to perform while bound
	//
	// Returns:
	//   - error: the error returned by fn
	Scoped(fn func() error) error

	// Color returns the texture attached at slot.
	//
	// Parameters:
	//   - slot: the color slot
	//
	// Returns:
	//   - Texture: the attached texture
	//   - bool: false if nothing is attached at slot
	Color(slot int) (Texture, bool)

	// Slots returns the attached color slots in ascending order.
	Slots() []int

	// Depth returns the depth attachment, if any.
	Depth() (Renderbuffer, bool)

	// Handle returns the framebuffer handle on the device.
	Handle() Handle

	// Release deletes the framebuffer and releases every attached GPU texture.
	Release()
}

type renderTarget struct {
	mu     *sync.Mutex
	device Device
	handle Handle
	color  map[int]Texture
	slots  []int
	depth  *Renderbuffer
}

var _ RenderTarget = &renderTarget{}

// NewRenderTarget validates the attachments, creates a framebuffer, attaches every color texture
// at its slot, declares the draw buffers, attaches the optional depth buffer and unbinds again.
// An unusable texture or a negative slot fails immediately with *common.ConfigurationError.
//
// Parameters:
//   - device: the framebuffer device
//   - color: textures keyed by color slot
//   - options: optional builder options such as WithDepth
//
// Returns:
//   - RenderTarget: the bound-ready render target
//   - error: *common.ConfigurationError on invalid input or device rejection
func NewRenderTarget(device Device, color map[int]Texture, options ...RenderTargetBuilderOption) (RenderTarget, error) {
	rt := &renderTarget{
		mu:     &sync.Mutex{},
		device: device,
		color:  make(map[int]Texture, len(color)),
	}
	for _, opt := range options {
		opt(rt)
	}

	if device == nil {
		return nil, &common.ConfigurationError{Component: "RenderTarget", Reason: "device is nil"}
	}
	for slot, tex := range color {
		if slot < 0 {
			return nil, &common.ConfigurationError{Component: "RenderTarget", Reason: fmt.Sprintf("negative color slot %d", slot)}
		}
		if err := tex.validate(); err != nil {
			return nil, &common.ConfigurationError{Component: "RenderTarget", Reason: fmt.Sprintf("color slot %d", slot), Err: err}
		}
		rt.color[slot] = tex
		rt.slots = append(rt.slots, slot)
	}
	sort.Ints(rt.slots)
	if rt.depth != nil && rt.depth.View == nil {
		return nil, &common.ConfigurationError{Component: "RenderTarget", Reason: "depth buffer has no view"}
	}

	rt.handle = device.CreateFramebuffer()
	if err := rt.attach(); err != nil {
		device.DeleteFramebuffer(rt.handle)
		return nil, err
	}
	return rt, nil
}

func (rt *renderTarget) attach() error {
	rt.device.BindFramebuffer(rt.handle)
	defer rt.device.BindFramebuffer(0)

	for _, slot := range rt.slots {
		if err := rt.device.AttachColor(slot, rt.color[slot]); err != nil {
			return &common.ConfigurationError{Component: "RenderTarget", Reason: fmt.Sprintf("attach color slot %d", slot), Err: err}
		}
	}
	rt.device.DrawBuffers(append([]int(nil), rt.slots...))

	if rt.depth != nil {
		if err := rt.device.AttachDepth(*rt.depth); err != nil {
			return &common.ConfigurationError{Component: "RenderTarget", Reason: "attach depth", Err: err}
		}
	}
	return nil
}

func (rt *renderTarget) Bind() {
	rt.device.BindFramebuffer(rt.handle)
}

func (rt *renderTarget) Unbind() {
	rt.device.BindFramebuffer(0)
}

func (rt *renderTarget) Scoped(fn func() error) error {
	rt.Bind()
	defer rt.Unbind()
	return fn()
}

func (rt *renderTarget) Color(slot int) (Texture, bool) {
	tex, ok := rt.color[slot]
	return tex, ok
}

func (rt *renderTarget) Slots() []int {
	return append([]int(nil), rt.slots...)
}

func (rt *renderTarget) Depth() (Renderbuffer, bool) {
	if rt.depth == nil {
		return Renderbuffer{}, false
	}
	return *rt.depth, true
}

func (rt *renderTarget) Handle() Handle {
	return rt.handle
}

func (rt *renderTarget) Release() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.handle == 0 {
		return
	}
	rt.device.DeleteFramebuffer(rt.handle)
	rt.handle = 0

	for _, slot := range rt.slots {
		tex := rt.color[slot]
		if tex.View != nil && tex.Texture != nil {
			tex.View.Release()
			tex.Texture.Release()
		}
	}
	if rt.depth != nil && rt.depth.Texture != nil {
		rt.depth.View.Release()
		rt.depth.Texture.Release()
	}
}
