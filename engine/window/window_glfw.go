package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	window  *glfw.Window
	running bool
}

// newPlatformWindow creates the GLFW window with input, focus and iconify callbacks and stores it
// as the internal window. GLFW must be driven from the thread that created it.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{window: win, running: true}
	w.internalWindow = gw

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.running = false
			win.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			if w.onKeyDown != nil {
				w.onKeyDown(uint32(key))
			}
		case glfw.Release:
			if w.onKeyUp != nil {
				w.onKeyUp(uint32(key))
			}
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if w.onMouseButton == nil {
			return
		}
		var b MouseButton
		switch button {
		case glfw.MouseButtonLeft:
			b = MouseButtonLeft
		case glfw.MouseButtonRight:
			b = MouseButtonRight
		case glfw.MouseButtonMiddle:
			b = MouseButtonMiddle
		default:
			return
		}
		x, y := win.GetCursorPos()
		w.onMouseButton(b, action == glfw.Press, float32(x), float32(y))
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(float32(x), float32(y))
		}
	})

	// The logical size drives the renderer; the framebuffer size is only tracked for ContentScale.
	win.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		w.updateSize(func(s *windowSize) { s.width, s.height = width, height })
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.updateSize(func(s *windowSize) { s.fbWidth, s.fbHeight = width, height })
	})

	win.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		w.focused.Store(focused)
	})
	win.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		w.notifyVisibility(!iconified)
	})

	w.updateSize(func(s *windowSize) {
		s.width, s.height = win.GetSize()
		s.fbWidth, s.fbHeight = win.GetFramebufferSize()
	})
	w.focused.Store(win.GetAttrib(glfw.Focused) == glfw.True)
	return nil
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW
// window through the wgpuglfw bridge.
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || gw.window == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func platformSetSize(w *engineWindow, width, height int) {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || gw.window == nil || width <= 0 || height <= 0 {
		return
	}
	gw.window.SetSize(width, height)
}

// platformIsRunningCheck returns false once the window is closed or GLFW reports ShouldClose.
func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return false
	}
	return gw.running && !gw.window.ShouldClose()
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
func platformCloseWindow(w *engineWindow) error {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return fmt.Errorf("window is not initialized")
	}
	if gw.window == nil {
		return nil
	}
	gw.running = false
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	gw.window = nil
	glfw.Terminate()
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
