// Package pipeline holds the progressive tracing pipeline driven by the renderer: the contract the
// renderer relies on, the adaptive tile scheduler and the WebGPU implementation.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/capability"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
)

// GraphicsContext is the device handle the renderer is created with. Pipelines that need more than
// capability queries type-assert it to their concrete context.
type GraphicsContext interface {
	capability.Querier
}

// SampleCallback is invoked each time a full-frame sample has been accumulated.
// samples is the running total since the last accumulation reset.
type SampleCallback func(samples int)

// Pipeline accumulates samples of one built scene into the output surface.
// A Pipeline is owned by a single renderer and driven from its frame loop.
type Pipeline interface {
	// Draw renders one tile of the current sample pass. Completing the last tile of a pass counts
	// one sample and refreshes the output.
	//
	// Parameters:
	//   - cam: the camera, with its world matrix already updated
	//
	// Returns:
	//   - error: if the GPU work could not be recorded
	Draw(cam camera.Camera) error

	// DrawFull renders a full-frame sample in one call and refreshes the output.
	//
	// Parameters:
	//   - cam: the camera, with its world matrix already updated
	//
	// Returns:
	//   - error: if the GPU work could not be recorded
	DrawFull(cam camera.Camera) error

	// SetSize resizes the accumulation targets to the backing size in pixels. Samples accumulated in
	// the region both sizes share are kept, and an unchanged size is a no-op.
	//
	// Parameters:
	//   - width, height: backing size in pixels
	SetSize(width, height int)

	// Time feeds the frame timestamp used to size tiles.
	//
	// Parameters:
	//   - t: the frame time, or an invalidated time after a timer restart
	Time(t FrameTime)

	// TotalSamplesRendered returns the number of samples accumulated since the last reset.
	TotalSamplesRendered() int

	// SetOnSampleRendered replaces the sample callback. Nil removes it.
	SetOnSampleRendered(cb SampleCallback)

	// Release frees every GPU resource owned by the pipeline.
	Release()
}

// BuildParams is everything a pipeline needs to be built for a scene.
type BuildParams struct {
	// Context is the renderer's graphics context.
	Context GraphicsContext

	// Capabilities is the probed capability set.
	Capabilities capability.Set

	// Scene is the flattened scene. It is not retained after the build.
	Scene *scene.FlattenedScene

	// Lights are the enabled scene lights.
	Lights []light.Light

	// ToneMapping configures the output pass.
	ToneMapping ToneMappingParams

	// Bounces is the maximum number of indirect bounces per path.
	Bounces int
}

// Builder constructs a Pipeline for a scene.
type Builder func(params BuildParams) (Pipeline, error)
