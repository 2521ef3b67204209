package rendertarget

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// recordingDevice logs every call so tests can assert on the exact command sequence.
type recordingDevice struct {
	calls     []string
	next      Handle
	failSlot  int
	failDepth bool
}

func newRecordingDevice() *recordingDevice {
	return &recordingDevice{failSlot: -1}
}

func (d *recordingDevice) CreateFramebuffer() Handle {
	d.next++
	d.calls = append(d.calls, fmt.Sprintf("create %d", d.next))
	return d.next
}

func (d *recordingDevice) BindFramebuffer(h Handle) {
	d.calls = append(d.calls, fmt.Sprintf("bind %d", h))
}

func (d *recordingDevice) AttachColor(slot int, tex Texture) error {
	d.calls = append(d.calls, fmt.Sprintf("color %d %s", slot, tex.Label))
	if slot == d.failSlot {
		return errors.New("attachment rejected")
	}
	return nil
}

func (d *recordingDevice) DrawBuffers(slots []int) {
	d.calls = append(d.calls, fmt.Sprintf("drawbuffers %v", slots))
}

func (d *recordingDevice) AttachDepth(Renderbuffer) error {
	d.calls = append(d.calls, "depth")
	if d.failDepth {
		return errors.New("depth rejected")
	}
	return nil
}

func (d *recordingDevice) DeleteFramebuffer(h Handle) {
	d.calls = append(d.calls, fmt.Sprintf("delete %d", h))
}

func tex(label string) Texture {
	return Texture{
		Label:  label,
		Format: wgpu.TextureFormatRGBA32Float,
		View:   &wgpu.TextureView{},
		Width:  4,
		Height: 4,
	}
}

func TestNewRenderTargetCommandSequence(t *testing.T) {
	dev := newRecordingDevice()
	rt, err := NewRenderTarget(dev, map[int]Texture{2: tex("normal"), 0: tex("radiance"), 1: tex("position")},
		WithDepth(Renderbuffer{Format: wgpu.TextureFormatDepth24Plus, View: &wgpu.TextureView{}}))
	if err != nil {
		t.Fatalf("NewRenderTarget: %v", err)
	}

	want := []string{
		"create 1",
		"bind 1",
		"color 0 radiance",
		"color 1 position",
		"color 2 normal",
		"drawbuffers [0 1 2]",
		"depth",
		"bind 0",
	}
	if !reflect.DeepEqual(dev.calls, want) {
		t.Errorf("calls = %v, want %v", dev.calls, want)
	}
	if got := rt.Slots(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("Slots() = %v, want [0 1 2]", got)
	}
	if _, ok := rt.Depth(); !ok {
		t.Error("Depth() reported no depth attachment")
	}
	if c, ok := rt.Color(1); !ok || c.Label != "position" {
		t.Errorf("Color(1) = %v, %v", c, ok)
	}
}

func TestNewRenderTargetWithoutDepth(t *testing.T) {
	dev := newRecordingDevice()
	if _, err := NewRenderTarget(dev, map[int]Texture{0: tex("radiance")}); err != nil {
		t.Fatalf("NewRenderTarget: %v", err)
	}
	for _, c := range dev.calls {
		if c == "depth" {
			t.Error("depth attached without WithDepth")
		}
	}
}

func TestNewRenderTargetRejectsInvalidInput(t *testing.T) {
	noView := tex("broken")
	noView.View = nil
	noFormat := tex("broken")
	noFormat.Format = wgpu.TextureFormatUndefined

	tests := []struct {
		name  string
		color map[int]Texture
	}{
		{"negative slot", map[int]Texture{-1: tex("a")}},
		{"nil view", map[int]Texture{0: noView}},
		{"undefined format", map[int]Texture{0: noFormat}},
		{"zero size", map[int]Texture{0: {Label: "z", Format: wgpu.TextureFormatRGBA16Float, View: &wgpu.TextureView{}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev := newRecordingDevice()
			_, err := NewRenderTarget(dev, tc.color)
			var ce *common.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ConfigurationError", err)
			}
			if len(dev.calls) != 0 {
				t.Errorf("device touched before validation failed: %v", dev.calls)
			}
		})
	}
}

func TestNewRenderTargetUnbindsOnAttachFailure(t *testing.T) {
	dev := newRecordingDevice()
	dev.failSlot = 1
	_, err := NewRenderTarget(dev, map[int]Texture{0: tex("a"), 1: tex("b")})
	var ce *common.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConfigurationError", err)
	}
	if !strings.Contains(ce.Error(), "attachment rejected") {
		t.Errorf("error %q lost the cause", ce.Error())
	}
	last := dev.calls[len(dev.calls)-1]
	if last != "delete 1" || dev.calls[len(dev.calls)-2] != "bind 0" {
		t.Errorf("calls = %v, want trailing unbind then delete", dev.calls)
	}
}

func TestNewRenderTargetUnbindsOnDepthFailure(t *testing.T) {
	dev := newRecordingDevice()
	dev.failDepth = true
	_, err := NewRenderTarget(dev, map[int]Texture{0: tex("a")}, WithDepth(Renderbuffer{View: &wgpu.TextureView{}}))
	if err == nil {
		t.Fatal("expected depth failure")
	}
	if dev.calls[len(dev.calls)-2] != "bind 0" {
		t.Errorf("calls = %v, want unbind before delete", dev.calls)
	}
}

func TestScopedBindsAndUnbinds(t *testing.T) {
	dev := newRecordingDevice()
	rt, err := NewRenderTarget(dev, map[int]Texture{0: tex("a")})
	if err != nil {
		t.Fatal(err)
	}
	dev.calls = nil

	boom := errors.New("boom")
	err = rt.Scoped(func() error {
		dev.calls = append(dev.calls, "draw")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Scoped error = %v, want %v", err, boom)
	}
	want := []string{"bind 1", "draw", "bind 0"}
	if !reflect.DeepEqual(dev.calls, want) {
		t.Errorf("calls = %v, want %v", dev.calls, want)
	}
}

func TestBindIsIdempotent(t *testing.T) {
	dev := NewWGPUDevice()
	rt, err := NewRenderTarget(dev, map[int]Texture{0: tex("a")})
	if err != nil {
		t.Fatal(err)
	}
	rt.Bind()
	rt.Bind()
	if dev.Bound() != rt.Handle() {
		t.Errorf("Bound() = %d, want %d", dev.Bound(), rt.Handle())
	}
	rt.Unbind()
	if dev.Bound() != 0 {
		t.Errorf("Bound() = %d after Unbind, want 0", dev.Bound())
	}
}

func TestWGPUDeviceColorTargetsFollowSlotOrder(t *testing.T) {
	dev := NewWGPUDevice()
	additive := &wgpu.BlendState{
		Color: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne},
		Alpha: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne},
	}
	radiance := tex("radiance")
	radiance.Format = wgpu.TextureFormatRGBA16Float
	radiance.Blend = additive

	rt, err := NewRenderTarget(dev, map[int]Texture{1: tex("position"), 0: radiance})
	if err != nil {
		t.Fatal(err)
	}
	targets := dev.ColorTargets(rt.Handle())
	if len(targets) != 2 {
		t.Fatalf("len(targets) = %d, want 2", len(targets))
	}
	if targets[0].Format != wgpu.TextureFormatRGBA16Float || targets[0].Blend != additive {
		t.Errorf("targets[0] = %+v, want radiance with additive blend", targets[0])
	}
	if targets[1].Format != wgpu.TextureFormatRGBA32Float || targets[1].Blend != nil {
		t.Errorf("targets[1] = %+v, want position without blending", targets[1])
	}

	rt.Release()
	if dev.ColorTargets(rt.Handle()) != nil {
		t.Error("released target still registered")
	}
}

func TestWGPUDeviceAttachWithoutBind(t *testing.T) {
	dev := NewWGPUDevice()
	if err := dev.AttachColor(0, tex("a")); err == nil {
		t.Error("AttachColor with nothing bound should fail")
	}
	dev.BindFramebuffer(42)
	if dev.Bound() != 0 {
		t.Error("binding an unknown handle should leave nothing bound")
	}
}
