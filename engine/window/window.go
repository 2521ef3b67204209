package window

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// MouseButton identifies a mouse button in input callbacks.
type MouseButton int

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// Window provides platform windowing, input events and the focus and visibility signals the
// progressive renderer reacts to.
//
// Sizes come in two units: the logical size in screen coordinates, and the framebuffer size in
// pixels. On high-DPI displays the framebuffer is larger; ContentScale is their ratio.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the logical window size changes.
	//
	// Parameters:
	//   - callback: function receiving the new logical width and height
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMouseButtonCallback sets the callback for mouse button presses and releases.
	//
	// Parameters:
	//   - callback: function receiving the button, whether it was pressed, and the cursor position
	SetMouseButtonCallback(callback func(button MouseButton, pressed bool, x, y float32))

	// SetMouseMoveCallback sets the callback for cursor movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in screen coordinates
	SetMouseMoveCallback(callback func(x, y float32))

	// HasFocus reports whether the window has input focus.
	HasFocus() bool

	// OnVisibilityChange registers fn to be called when the window is minimized or restored.
	//
	// Parameters:
	//   - fn: receives true when the window becomes visible again
	//
	// Returns:
	//   - func(): removes fn; safe to call more than once
	OnVisibilityChange(fn func(visible bool)) (unsubscribe func())

	// SetDisplaySize resizes the window to the given logical size. Safe to call from any goroutine;
	// the window applies it on its own thread.
	SetDisplaySize(width, height int)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	// Width returns the logical window width.
	Width() int

	// Height returns the logical window height.
	Height() int

	// ContentScale returns the ratio of framebuffer pixels to logical size, at least 1.
	ContentScale() float64
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	maxWidth, maxHeight int
	minWidth, minHeight int

	// width and height are the requested initial logical size.
	width, height int

	// size is written on the window thread and read from any goroutine.
	size atomic.Pointer[windowSize]
	// pendingSize holds the latest SetDisplaySize request until the window thread applies it.
	pendingSize atomic.Pointer[[2]int]

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	focused atomic.Bool

	listenerMu     *sync.Mutex
	nextListenerID int
	listeners      map[int]func(visible bool)

	onUpdate      func()
	onResize      func(width, height int)
	onScroll      func(delta float32)
	onKeyDown     func(keyCode uint32)
	onKeyUp       func(keyCode uint32)
	onMouseButton func(button MouseButton, pressed bool, x, y float32)
	onMouseMove   func(x, y float32)
}

var _ Window = &engineWindow{}

// windowSize is the logical size in screen coordinates and the framebuffer size in pixels.
type windowSize struct {
	width, height     int
	fbWidth, fbHeight int
}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
//   - error: error if the platform window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:      "oxy-rt",
		maxWidth:   3840,
		maxHeight:  2160,
		minWidth:   320,
		minHeight:  200,
		width:      1280,
		height:     720,
		listenerMu: &sync.Mutex{},
		listeners:  make(map[int]func(bool)),
	}
	for _, opt := range options {
		opt(w)
	}
	w.size.Store(&windowSize{width: w.width, height: w.height, fbWidth: w.width, fbHeight: w.height})
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(button MouseButton, pressed bool, x, y float32)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y float32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) HasFocus() bool {
	return w.focused.Load()
}

func (w *engineWindow) OnVisibilityChange(fn func(visible bool)) func() {
	w.listenerMu.Lock()
	defer w.listenerMu.Unlock()

	id := w.nextListenerID
	w.nextListenerID++
	w.listeners[id] = fn
	return func() {
		w.listenerMu.Lock()
		defer w.listenerMu.Unlock()
		delete(w.listeners, id)
	}
}

// notifyVisibility calls every visibility listener outside the listener lock, so listeners may
// unsubscribe themselves.
func (w *engineWindow) notifyVisibility(visible bool) {
	w.listenerMu.Lock()
	fns := make([]func(bool), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.listenerMu.Unlock()

	for _, fn := range fns {
		fn(visible)
	}
}

// SetDisplaySize may be called from any goroutine. The resize is applied on the window thread by
// the next ProcessMessages iteration.
func (w *engineWindow) SetDisplaySize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.pendingSize.Store(&[2]int{width, height})
}

// applyPendingSize runs on the window thread.
func (w *engineWindow) applyPendingSize() {
	if size := w.pendingSize.Swap(nil); size != nil {
		platformSetSize(w, size[0], size[1])
	}
}

// updateSize runs on the window thread, the only writer of size.
func (w *engineWindow) updateSize(fn func(s *windowSize)) {
	next := windowSize{}
	if cur := w.size.Load(); cur != nil {
		next = *cur
	}
	fn(&next)
	w.size.Store(&next)
}

func (w *engineWindow) currentSize() windowSize {
	if cur := w.size.Load(); cur != nil {
		return *cur
	}
	return windowSize{}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		w.applyPendingSize()
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.currentSize().width
}

func (w *engineWindow) Height() int {
	return w.currentSize().height
}

func (w *engineWindow) ContentScale() float64 {
	size := w.currentSize()
	if size.width <= 0 || size.fbWidth <= size.width {
		return 1
	}
	return float64(size.fbWidth) / float64(size.width)
}
