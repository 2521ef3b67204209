package pipeline

import "time"

// PipelineBuilderOption is a functional option for configuring the WebGPU pipeline.
type PipelineBuilderOption func(p *wgpuPipeline)

// WithTileDuration overrides the per-tile target duration.
// Defaults to DesiredTileDuration.
//
// Parameters:
//   - d: the desired duration of one tile
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithTileDuration(d time.Duration) PipelineBuilderOption {
	return func(p *wgpuPipeline) {
		p.tileDuration = d
	}
}

// WithInitialPixelsPerTile overrides the starting tile area, which is otherwise estimated from the
// device limits.
//
// Parameters:
//   - px: the tile area in pixels
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithInitialPixelsPerTile(px int) PipelineBuilderOption {
	return func(p *wgpuPipeline) {
		p.initialPixelsPerTile = px
	}
}

// WithLabel sets the prefix of every GPU debug label created by the pipeline.
func WithLabel(label string) PipelineBuilderOption {
	return func(p *wgpuPipeline) {
		p.label = label
	}
}

// NewWGPUBuilder returns a Builder creating WebGPU pipelines. The build context must be a gpu.Context.
//
// Parameters:
//   - options: functional options applied to every pipeline built
//
// Returns:
//   - Builder: the pipeline builder
func NewWGPUBuilder(options ...PipelineBuilderOption) Builder {
	return func(params BuildParams) (Pipeline, error) {
		return NewWGPUPipeline(params, options...)
	}
}
