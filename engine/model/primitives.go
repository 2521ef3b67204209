package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// NewSphereGeometry builds a UV sphere centered at the origin.
//
// Parameters:
//   - radius: sphere radius
//   - widthSegments: number of horizontal segments (minimum 3)
//   - heightSegments: number of vertical segments (minimum 2)
//
// Returns:
//   - *Geometry: indexed geometry with normals and uvs
func NewSphereGeometry(radius float32, widthSegments, heightSegments int) *Geometry {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)

	g := &Geometry{}
	grid := make([][]uint32, 0, heightSegments+1)
	var index uint32

	for iy := 0; iy <= heightSegments; iy++ {
		v := float32(iy) / float32(heightSegments)
		row := make([]uint32, 0, widthSegments+1)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float32(ix) / float32(widthSegments)
			p := mgl32.Vec3{
				-radius * math32.Cos(u*2*math32.Pi) * math32.Sin(v*math32.Pi),
				radius * math32.Cos(v*math32.Pi),
				radius * math32.Sin(u*2*math32.Pi) * math32.Sin(v*math32.Pi),
			}
			g.Positions = append(g.Positions, p)
			g.Normals = append(g.Normals, safeUnit(p))
			g.UVs = append(g.UVs, mgl32.Vec2{u, 1 - v})
			row = append(row, index)
			index++
		}
		grid = append(grid, row)
	}

	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]
			if iy != 0 {
				g.Indices = append(g.Indices, a, b, d)
			}
			if iy != heightSegments-1 {
				g.Indices = append(g.Indices, b, c, d)
			}
		}
	}
	return g
}

// NewBoxGeometry builds an axis aligned box centered at the origin with per-face normals.
//
// Parameters:
//   - width, height, depth: box extents along X, Y and Z
//
// Returns:
//   - *Geometry: indexed geometry with 24 vertices and 36 indices
func NewBoxGeometry(width, height, depth float32) *Geometry {
	hx, hy, hz := width/2, height/2, depth/2
	g := &Geometry{}
	face := func(normal, right, up mgl32.Vec3, halfN, halfR, halfU float32) {
		base := uint32(len(g.Positions))
		center := normal.Mul(halfN)
		corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, c := range corners {
			g.Positions = append(g.Positions, center.Add(right.Mul(c[0]*halfR)).Add(up.Mul(c[1]*halfU)))
			g.Normals = append(g.Normals, normal)
			g.UVs = append(g.UVs, mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2})
		}
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
	}

	face(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}, hx, hz, hy)
	face(mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}, hx, hz, hy)
	face(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, hy, hx, hz)
	face(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, hy, hx, hz)
	face(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, hz, hx, hy)
	face(mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}, hz, hx, hy)
	return g
}

// NewPlaneGeometry builds a plane in the XZ plane facing +Y, centered at the origin.
//
// Parameters:
//   - width: extent along X
//   - depth: extent along Z
//
// Returns:
//   - *Geometry: indexed geometry with 4 vertices and 6 indices
func NewPlaneGeometry(width, depth float32) *Geometry {
	hx, hz := width/2, depth/2
	up := mgl32.Vec3{0, 1, 0}
	return &Geometry{
		Positions: []mgl32.Vec3{{-hx, 0, hz}, {hx, 0, hz}, {hx, 0, -hz}, {-hx, 0, -hz}},
		Normals:   []mgl32.Vec3{up, up, up, up},
		UVs:       []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

func safeUnit(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return mgl32.Vec3{0, 1, 0}
}
