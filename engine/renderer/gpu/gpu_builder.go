package gpu

// ContextBuilderOption is a functional option for configuring a Context.
type ContextBuilderOption func(c *contextImpl)

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) ContextBuilderOption {
	return func(c *contextImpl) {
		c.forceFallbackAdapter = force
	}
}

// WithPresentMode sets the initial present mode. Defaults to PresentModeVSync.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithPresentMode(mode PresentMode) ContextBuilderOption {
	return func(c *contextImpl) {
		c.SetPresentMode(mode)
	}
}

// WithRequiredFeatures enables the named capabilities on the device when the adapter supports
// them. Names the adapter lacks are skipped, so the capability probe still reports them missing.
//
// Parameters:
//   - names: capability names, see package capability
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithRequiredFeatures(names ...string) ContextBuilderOption {
	return func(c *contextImpl) {
		c.requiredFeatures = append(c.requiredFeatures, names...)
	}
}

// WithLabel sets the device label.
func WithLabel(label string) ContextBuilderOption {
	return func(c *contextImpl) {
		c.label = label
	}
}
