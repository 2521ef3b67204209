package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
)

// scenePayload is the CPU side of the scene storage buffers, packed in the layouts the sample
// pass declares. Every payload is at least one element long since bindings cannot be empty.
type scenePayload struct {
	vertices    []byte
	indices     []byte
	materials   []byte
	lightHeader []byte
	lights      []byte

	triangleCount int
	environment   light.Light
}

// packScene validates a flattened scene and packs it together with its lights.
//
// Parameters:
//   - flat: the flattened scene
//   - lights: the scene lights
//
// Returns:
//   - scenePayload: the packed buffers
//   - error: if the flattened scene violates its invariants
func packScene(flat *scene.FlattenedScene, lights []light.Light) (scenePayload, error) {
	if flat == nil {
		flat = &scene.FlattenedScene{}
	}
	if err := flat.Validate(); err != nil {
		return scenePayload{}, fmt.Errorf("failed to validate flattened scene: %w", err)
	}

	var header light.GPULightHeader
	headerSize := header.Size()
	lightBuf := light.MarshalLightBuffer(lights)

	p := scenePayload{
		vertices:      padTo(flat.MarshalVertices(), 48),
		indices:       padTo(flat.MarshalIndices(), 4),
		materials:     material.MarshalMaterials(flat.Materials),
		lightHeader:   lightBuf[:headerSize],
		lights:        padTo(lightBuf[headerSize:], (&light.GPULight{}).Size()),
		triangleCount: flat.TriangleCount(),
		environment:   light.EnvironmentOf(lights),
	}
	return p, nil
}

// padTo returns buf, or a zeroed buffer of minSize bytes when buf is shorter.
func padTo(buf []byte, minSize int) []byte {
	if len(buf) >= minSize {
		return buf
	}
	out := make([]byte, minSize)
	copy(out, buf)
	return out
}
