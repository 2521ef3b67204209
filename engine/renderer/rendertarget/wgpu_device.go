package rendertarget

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// framebuffer is the WebGPU stand-in for a framebuffer object: the attachments plus the
// render pass descriptor derived from them.
type framebuffer struct {
	colors     map[int]Texture
	drawSlots  []int
	depth      *Renderbuffer
	descriptor *wgpu.RenderPassDescriptor
}

// WGPUDevice implements Device on top of WebGPU. WebGPU has no framebuffer objects, so each handle
// caches a render pass descriptor whose color attachments follow the declared draw buffer order.
type WGPUDevice struct {
	mu           *sync.Mutex
	next         Handle
	bound        Handle
	framebuffers map[Handle]*framebuffer
}

var _ Device = &WGPUDevice{}

// NewWGPUDevice creates an empty framebuffer registry.
func NewWGPUDevice() *WGPUDevice {
	return &WGPUDevice{
		mu:           &sync.Mutex{},
		framebuffers: make(map[Handle]*framebuffer),
	}
}

func (d *WGPUDevice) CreateFramebuffer() Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.next++
	d.framebuffers[d.next] = &framebuffer{colors: make(map[int]Texture)}
	return d.next
}

func (d *WGPUDevice) BindFramebuffer(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.framebuffers[h]; !ok {
		h = 0
	}
	d.bound = h
}

func (d *WGPUDevice) AttachColor(slot int, tex Texture) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb, err := d.current()
	if err != nil {
		return err
	}
	fb.colors[slot] = tex
	fb.descriptor = nil
	return nil
}

func (d *WGPUDevice) DrawBuffers(slots []int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb, err := d.current()
	if err != nil {
		return
	}
	fb.drawSlots = append([]int(nil), slots...)
	sort.Ints(fb.drawSlots)
	fb.descriptor = nil
}

func (d *WGPUDevice) AttachDepth(depth Renderbuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb, err := d.current()
	if err != nil {
		return err
	}
	fb.depth = &depth
	fb.descriptor = nil
	return nil
}

func (d *WGPUDevice) DeleteFramebuffer(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.framebuffers, h)
	if d.bound == h {
		d.bound = 0
	}
}

// Bound returns the handle of the currently bound framebuffer, or zero.
func (d *WGPUDevice) Bound() Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bound
}

// ColorTargets returns the color target states of framebuffer h in draw buffer order, for use
// in a render pipeline descriptor whose fragment outputs map to the same locations.
//
// Parameters:
//   - h: the framebuffer handle
//
// Returns:
//   - []wgpu.ColorTargetState: one entry per draw buffer
func (d *WGPUDevice) ColorTargets(h Handle) []wgpu.ColorTargetState {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb, ok := d.framebuffers[h]
	if !ok {
		return nil
	}
	targets := make([]wgpu.ColorTargetState, 0, len(fb.drawSlots))
	for _, slot := range fb.drawSlots {
		tex := fb.colors[slot]
		targets = append(targets, wgpu.ColorTargetState{
			Format:    tex.Format,
			Blend:     tex.Blend,
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}
	return targets
}

// BeginPass begins a render pass on encoder targeting the bound framebuffer.
// When clear is true every attachment is cleared to transparent black, otherwise its contents are kept.
//
// Parameters:
//   - encoder: the command encoder recording this frame
//   - clear: whether to clear the attachments
//
// Returns:
//   - *wgpu.RenderPassEncoder: the started pass
//   - error: if no framebuffer is bound
func (d *WGPUDevice) BeginPass(encoder *wgpu.CommandEncoder, clear bool) (*wgpu.RenderPassEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb, err := d.current()
	if err != nil {
		return nil, err
	}
	if fb.descriptor == nil {
		fb.descriptor = fb.buildDescriptor()
	}

	loadOp := wgpu.LoadOpLoad
	if clear {
		loadOp = wgpu.LoadOpClear
	}
	for i := range fb.descriptor.ColorAttachments {
		fb.descriptor.ColorAttachments[i].LoadOp = loadOp
	}
	if fb.descriptor.DepthStencilAttachment != nil {
		fb.descriptor.DepthStencilAttachment.DepthLoadOp = loadOp
	}
	return encoder.BeginRenderPass(fb.descriptor), nil
}

func (d *WGPUDevice) current() (*framebuffer, error) {
	fb, ok := d.framebuffers[d.bound]
	if !ok {
		return nil, fmt.Errorf("no framebuffer bound")
	}
	return fb, nil
}

func (fb *framebuffer) buildDescriptor() *wgpu.RenderPassDescriptor {
	desc := &wgpu.RenderPassDescriptor{}
	for _, slot := range fb.drawSlots {
		desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:       fb.colors[slot].View,
			LoadOp:     wgpu.LoadOpLoad,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		})
	}
	if fb.depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            fb.depth.View,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}
	return desc
}
