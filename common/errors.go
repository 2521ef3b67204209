package common

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned by renderer operations invoked after Dispose.
var ErrDisposed = errors.New("renderer has been disposed")

// CapabilityError reports a required GPU capability that the device does not expose.
// Construction of the renderer fails with this error; it is never recovered internally.
type CapabilityError struct {
	// Missing is the name of the first absent required capability.
	Missing string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("required GPU capability %q is not supported by this device", e.Missing)
}

// ConfigurationError reports an invalid GPU resource configuration, e.g. an unusable texture
// handed to the render target binder. It surfaces immediately rather than on first use.
type ConfigurationError struct {
	// Component names the subsystem that rejected the configuration.
	Component string
	// Reason is a human readable description of the problem.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid configuration: %s: %v", e.Component, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: invalid configuration: %s", e.Component, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
