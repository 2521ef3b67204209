package pipeline

import (
	"time"

	"github.com/chewxy/math32"
)

const (
	// DesiredTileDuration is the GPU time a single tile should take.
	DesiredTileDuration = 21 * time.Millisecond

	// MinPixelsPerTile bounds how small the scheduler may shrink tiles.
	MinPixelsPerTile = 8192

	// pixelsPerTileGain converts the square root of the per-tile timing error (in ms) into pixels.
	pixelsPerTileGain = 5000
)

// Tile is one scissor rectangle of a sample pass, in pixels from the top-left corner.
type Tile struct {
	X, Y          int
	Width, Height int
	// First is set on the first tile of a pass, Last on the tile that completes it.
	First, Last bool
}

// TileScheduler splits the frame into tiles and adapts the tile area once per pass so that each
// tile takes about the desired duration.
type TileScheduler struct {
	desired time.Duration

	width, height int

	pixelsPerTile int
	tileWidth     int
	tileHeight    int
	columns       int
	rows          int
	numTiles      int

	currentTile  int
	totalElapsed time.Duration
	timed        bool
}

// NewTileScheduler creates a scheduler with an initial tile area estimated from the device's
// maximum texture dimension. Larger limits indicate faster hardware.
//
// Parameters:
//   - maxTextureDimension: the device's 2D texture size limit
//
// Returns:
//   - *TileScheduler: the scheduler, sized 1x1 until SetSize is called
func NewTileScheduler(maxTextureDimension uint32) *TileScheduler {
	s := &TileScheduler{
		desired:       DesiredTileDuration,
		pixelsPerTile: InitialPixelsPerTile(maxTextureDimension),
	}
	s.SetSize(1, 1)
	return s
}

// InitialPixelsPerTile estimates a starting tile area from the device's 2D texture limit:
// 200k px at 8192 or below, 400k px at 16384 and 600k px at 32768 or above, linear in between.
//
// Parameters:
//   - maxTextureDimension: the device's 2D texture size limit
//
// Returns:
//   - int: the starting tile area in pixels
func InitialPixelsPerTile(maxTextureDimension uint32) int {
	d := float32(maxTextureDimension)
	switch {
	case d <= 8192:
		return 200000
	case d <= 16384:
		return int(200000 + (d-8192)/8192*200000)
	case d < 32768:
		return int(400000 + (d-16384)/16384*200000)
	default:
		return 600000
	}
}

// SetDesiredDuration overrides the per-tile target duration.
func (s *TileScheduler) SetDesiredDuration(d time.Duration) {
	if d > 0 {
		s.desired = d
	}
}

// SetPixelsPerTile overrides the current tile area. Areas larger than the frame yield a single tile.
func (s *TileScheduler) SetPixelsPerTile(px int) {
	if px > 0 {
		s.pixelsPerTile = px
		s.calcTileDimensions()
	}
}

// PixelsPerTile returns the current tile area.
func (s *TileScheduler) PixelsPerTile() int {
	return s.pixelsPerTile
}

// NumTiles returns the number of tiles in one pass.
func (s *TileScheduler) NumTiles() int {
	return s.numTiles
}

// SetSize sets the frame size in pixels and restarts the pass.
//
// Parameters:
//   - width, height: the frame size; values below one are treated as one
func (s *TileScheduler) SetSize(width, height int) {
	s.width = max(width, 1)
	s.height = max(height, 1)
	s.calcTileDimensions()
	s.Reset()
}

// Reset restarts the pass so the next tile is the first one.
func (s *TileScheduler) Reset() {
	s.currentTile = -1
	s.totalElapsed = 0
	s.timed = true
}

// NextTile advances to the next tile. elapsed is the frame time spent since the previous tile;
// when ok is false the pass is left untimed and its tile area is not adjusted.
//
// Parameters:
//   - elapsed: the time since the previous call
//   - ok: whether elapsed is a valid measurement
//
// Returns:
//   - Tile: the tile to render
func (s *TileScheduler) NextTile(elapsed time.Duration, ok bool) Tile {
	s.currentTile++
	s.totalElapsed += elapsed
	s.timed = s.timed && ok

	if s.currentTile%s.numTiles == 0 {
		// Only a completed pass measures the current tile size.
		if s.currentTile > 0 && s.timed && s.totalElapsed > 0 {
			s.updatePixelsPerTile()
			s.calcTileDimensions()
		}
		s.totalElapsed = 0
		s.timed = true
		s.currentTile = 0
	}

	col := s.currentTile % s.columns
	row := (s.currentTile / s.columns) % s.rows
	x := col * s.tileWidth
	y := row * s.tileHeight
	return Tile{
		X:      x,
		Y:      y,
		Width:  min(s.tileWidth, s.width-x),
		Height: min(s.tileHeight, s.height-y),
		First:  s.currentTile == 0,
		Last:   s.currentTile == s.numTiles-1,
	}
}

func (s *TileScheduler) updatePixelsPerTile() {
	msPerTile := float32(s.totalElapsed.Seconds()*1000) / float32(s.numTiles)
	err := float32(s.desired.Seconds()*1000) - msPerTile
	s.pixelsPerTile += int(pixelsPerTileGain * math32.Copysign(math32.Sqrt(math32.Abs(err)), err))
	s.pixelsPerTile = max(MinPixelsPerTile, min(s.pixelsPerTile, s.width*s.height))
}

func (s *TileScheduler) calcTileDimensions() {
	area := min(s.pixelsPerTile, s.width*s.height)

	aspect := float32(s.width) / float32(s.height)
	across := max(1, int(math32.Round(float32(s.width)/math32.Sqrt(float32(area)*aspect))))
	s.tileWidth = ceilDiv(s.width, across)
	s.tileHeight = max(1, int(math32.Ceil(float32(s.tileWidth)/aspect)))
	s.tileHeight = min(s.tileHeight, s.height)

	s.columns = ceilDiv(s.width, s.tileWidth)
	s.rows = ceilDiv(s.height, s.tileHeight)
	s.numTiles = s.columns * s.rows
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// halton returns element index of the Halton low-discrepancy sequence in the given base.
func halton(index, base int) float32 {
	f := float32(1)
	r := float32(0)
	for i := index; i > 0; i /= base {
		f /= float32(base)
		r += f * float32(i%base)
	}
	return r
}

// sampleJitter returns the sub-pixel offset in [-0.5, 0.5) for a sample index.
func sampleJitter(sample int) [2]float32 {
	return [2]float32{halton(sample+1, 2) - 0.5, halton(sample+1, 3) - 0.5}
}
