package common

// Virtual key codes delivered by window key callbacks.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyB     = 66 // B key (ASCII)
	KeyF     = 70 // F key (ASCII)
	KeyM     = 77 // M key (ASCII)
	KeyR     = 82 // R key (ASCII)
	KeyT     = 84 // T key (ASCII)
	KeySpace = 32 // Spacebar (ASCII)

	KeyMinus = 45 // - key (ASCII)
	KeyEqual = 61 // = key (ASCII)
)

// Non-printable keys.
const (
	KeyEsc      = 256 // Escape key (GLFW)
	KeyRight    = 262 // Right arrow (GLFW)
	KeyLeft     = 263 // Left arrow (GLFW)
	KeyDown     = 264 // Down arrow (GLFW)
	KeyUp       = 265 // Up arrow (GLFW)
	KeyPageUp   = 266 // Page Up (GLFW)
	KeyPageDown = 267 // Page Down (GLFW)
)
