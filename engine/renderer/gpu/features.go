package gpu

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/capability"
	"github.com/cogentcore/webgpu/wgpu"
)

// features maps capability names to WebGPU feature flags.
var features = map[string]wgpu.FeatureName{
	capability.Float32Filterable:       wgpu.FeatureNameFloat32Filterable,
	capability.RG11B10UfloatRenderable: wgpu.FeatureNameRG11B10UfloatRenderable,
	capability.TimestampQuery:          wgpu.FeatureNameTimestampQuery,
	capability.ShaderF16:               wgpu.FeatureNameShaderF16,
}

// featureFor returns the WebGPU feature behind a capability name.
func featureFor(name string) (wgpu.FeatureName, bool) {
	f, ok := features[name]
	return f, ok
}

// KnownCapabilities returns every capability name the context can answer.
func KnownCapabilities() []string {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	return names
}
