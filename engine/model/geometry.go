package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Geometry is an indexed or non-indexed triangle mesh in local space.
//
// Positions is required. Normals, UVs and Indices are optional: a nil slice means the attribute
// is absent. When present, Normals and UVs have one entry per position. Attributes carries any
// additional per-vertex data (colors, skin weights) that the path tracer does not consume.
type Geometry struct {
	Positions  []mgl32.Vec3
	Normals    []mgl32.Vec3
	UVs        []mgl32.Vec2
	Indices    []uint32
	Attributes map[string][]float32
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	if g == nil {
		return 0
	}
	return len(g.Positions)
}

// IndexCount returns the number of indices, or the vertex count for non-indexed geometry.
func (g *Geometry) IndexCount() int {
	if g == nil {
		return 0
	}
	if g.Indices == nil {
		return len(g.Positions)
	}
	return len(g.Indices)
}

// Clone returns a deep copy of the position, normal, uv and index data.
// Extra attributes are intentionally left behind.
//
// Returns:
//   - *Geometry: the copy, never sharing memory with g
func (g *Geometry) Clone() *Geometry {
	if g == nil {
		return &Geometry{}
	}
	c := &Geometry{Positions: append([]mgl32.Vec3(nil), g.Positions...)}
	if g.Normals != nil {
		c.Normals = append([]mgl32.Vec3(nil), g.Normals...)
	}
	if g.UVs != nil {
		c.UVs = append([]mgl32.Vec2(nil), g.UVs...)
	}
	if g.Indices != nil {
		c.Indices = append([]uint32(nil), g.Indices...)
	}
	return c
}

// AttributeNames returns the names of the extra attributes in g.
func (g *Geometry) AttributeNames() []string {
	if g == nil || len(g.Attributes) == 0 {
		return nil
	}
	names := make([]string, 0, len(g.Attributes))
	for name := range g.Attributes {
		names = append(names, name)
	}
	return names
}

// BoundingRadius returns the distance from the local origin to the farthest vertex.
func (g *Geometry) BoundingRadius() float32 {
	var r float32
	for _, p := range g.Positions {
		if l := p.Len(); l > r {
			r = l
		}
	}
	return r
}
