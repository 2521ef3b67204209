package rendertarget

// RenderTargetBuilderOption is a functional option for configuring a RenderTarget.
type RenderTargetBuilderOption func(*renderTarget)

// WithDepth attaches a depth buffer to the render target.
//
// Parameters:
//   - depth: the depth renderbuffer
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the depth attachment
func WithDepth(depth Renderbuffer) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.depth = &depth
	}
}
