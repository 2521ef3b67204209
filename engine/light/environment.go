package light

import (
	"cmp"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// DefaultEnvironmentMaxSize bounds the longest edge of a decoded environment map.
const DefaultEnvironmentMaxSize = 2048

// EnvironmentMap is an equirectangular sky image lighting the scene from every direction.
// The image is decoded on first use and cached.
type EnvironmentMap struct {
	mu     *sync.Mutex
	source common.TextureSource
	data   *common.TextureStagingData
}

// NewEnvironmentMap wraps an image source. Images larger than DefaultEnvironmentMaxSize are
// downsampled when source.MaxSize is zero.
//
// Parameters:
//   - source: the equirectangular image
//
// Returns:
//   - *EnvironmentMap: the lazily decoded map
func NewEnvironmentMap(source common.TextureSource) *EnvironmentMap {
	source.MaxSize = cmp.Or(source.MaxSize, DefaultEnvironmentMaxSize)
	return &EnvironmentMap{mu: &sync.Mutex{}, source: source}
}

// NewEnvironmentMapFromPixels wraps already decoded RGBA pixels.
func NewEnvironmentMapFromPixels(data common.TextureStagingData) *EnvironmentMap {
	return &EnvironmentMap{mu: &sync.Mutex{}, data: &data}
}

// Load returns the decoded pixels, decoding the source on the first call.
//
// Returns:
//   - common.TextureStagingData: RGBA pixels
//   - error: if decoding fails
func (e *EnvironmentMap) Load() (common.TextureStagingData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.data != nil {
		return *e.data, nil
	}
	data, err := e.source.Decode()
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("failed to load environment map: %w", err)
	}
	e.data = &data
	return data, nil
}
