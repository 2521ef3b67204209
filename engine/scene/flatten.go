package scene

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaterialMeshIndex tags a flattened vertex with the material it is shaded with and the mesh instance
// it came from. Mesh is 1-based; 0 is reserved for "no mesh" (background hits).
type MaterialMeshIndex struct {
	Material int32
	Mesh     int32
}

// FlattenedScene holds every visible mesh instance merged into one set of world-space vertex arrays
// and one triangle index list. Positions, Normals, UVs and MaterialMeshIndex always have the same
// length and every index addresses a vertex of the merged arrays.
//
// A FlattenedScene is a build artifact: it is handed to the pipeline builder and not retained.
type FlattenedScene struct {
	Positions         []mgl32.Vec3
	Normals           []mgl32.Vec3
	UVs               []mgl32.Vec2
	MaterialMeshIndex []MaterialMeshIndex
	Indices           []uint32

	// Materials lists each distinct material object once, in first-use order.
	Materials []material.Material
}

// VertexCount returns the number of merged vertices.
func (f *FlattenedScene) VertexCount() int {
	return len(f.Positions)
}

// TriangleCount returns the number of merged triangles.
func (f *FlattenedScene) TriangleCount() int {
	return len(f.Indices) / 3
}

// Validate checks the length and index invariants of the merged buffers.
//
// Returns:
//   - error: a description of the first violated invariant, or nil
func (f *FlattenedScene) Validate() error {
	n := len(f.Positions)
	if len(f.Normals) != n || len(f.UVs) != n || len(f.MaterialMeshIndex) != n {
		return fmt.Errorf("attribute length mismatch: positions=%d normals=%d uvs=%d materialMeshIndex=%d",
			n, len(f.Normals), len(f.UVs), len(f.MaterialMeshIndex))
	}
	for i, idx := range f.Indices {
		if int(idx) >= n {
			return fmt.Errorf("index %d at position %d is out of range for %d vertices", idx, i, n)
		}
	}
	for i, mm := range f.MaterialMeshIndex {
		if mm.Material < 0 || int(mm.Material) >= len(f.Materials) {
			return fmt.Errorf("vertex %d references material %d of %d", i, mm.Material, len(f.Materials))
		}
		if mm.Mesh < 1 {
			return fmt.Errorf("vertex %d has reserved mesh index %d", i, mm.Mesh)
		}
	}
	return nil
}

// MarshalVertices packs the merged vertex arrays into the GPU vertex layout.
//
// Returns:
//   - []byte: len(Positions) * 48 bytes ready for a storage buffer upload
func (f *FlattenedScene) MarshalVertices() []byte {
	var v model.GPUVertex
	stride := v.Size()
	buf := make([]byte, len(f.Positions)*stride)
	for i := range f.Positions {
		v = model.GPUVertex{
			Position:      f.Positions[i],
			MaterialIndex: f.MaterialMeshIndex[i].Material,
			Normal:        f.Normals[i],
			MeshIndex:     f.MaterialMeshIndex[i].Mesh,
			TexCoord:      f.UVs[i],
		}
		v.MarshalTo(buf[i*stride:])
	}
	return buf
}

// MarshalIndices returns the index list as raw bytes.
func (f *FlattenedScene) MarshalIndices() []byte {
	return common.SliceToBytes(f.Indices)
}

// Flattener merges mesh instances into a FlattenedScene. Per-instance preparation (cloning,
// transforming and normal generation) runs on a worker pool; the merge itself is serial so the
// output only depends on the input order.
type Flattener struct {
	mu   *sync.Mutex
	pool worker.DynamicWorkerPool
}

// NewFlattener creates a Flattener that prepares instances on pool.
// A nil pool prepares every instance on the calling goroutine.
//
// Parameters:
//   - pool: the worker pool, or nil
//
// Returns:
//   - *Flattener: the flattener
func NewFlattener(pool worker.DynamicWorkerPool) *Flattener {
	return &Flattener{mu: &sync.Mutex{}, pool: pool}
}

// Flatten merges instances on the calling goroutine.
//
// Parameters:
//   - instances: the mesh instances, in scene traversal order
//
// Returns:
//   - *FlattenedScene: the merged buffers
func Flatten(instances []MeshInstance) *FlattenedScene {
	return NewFlattener(nil).Flatten(instances)
}

// Release stops the flattener's worker pool.
func (f *Flattener) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pool != nil {
		f.pool.Stop()
		f.pool = nil
	}
}

// Flatten merges every visible instance into one set of world-space buffers.
// Source geometries are never mutated. A visible instance without vertices still registers its
// material and takes a mesh index, so later instances keep their traversal-order mesh indices. Instances sharing a material object share one entry of the
// material list; distinct objects get distinct entries even when their values are equal.
//
// Parameters:
//   - instances: the mesh instances, in scene traversal order
//
// Returns:
//   - *FlattenedScene: the merged buffers, empty but valid when nothing is visible
func (f *Flattener) Flatten(instances []MeshInstance) *FlattenedScene {
	visible := make([]MeshInstance, 0, len(instances))
	for _, inst := range instances {
		if inst.Visible {
			visible = append(visible, inst)
		}
	}

	prepared := f.prepareAll(visible)

	totalVertices, totalIndices := 0, 0
	for _, g := range prepared {
		totalVertices += len(g.Positions)
		totalIndices += len(g.Indices)
	}

	out := &FlattenedScene{
		Positions:         make([]mgl32.Vec3, totalVertices),
		Normals:           make([]mgl32.Vec3, totalVertices),
		UVs:               make([]mgl32.Vec2, totalVertices),
		MaterialMeshIndex: make([]MaterialMeshIndex, totalVertices),
		Indices:           make([]uint32, totalIndices),
		Materials:         []material.Material{},
	}

	materialIndex := make(map[material.Material]int32)
	vertexOffset, indexOffset := 0, 0
	for i, g := range prepared {
		meshIndex := int32(i + 1)
		vertexCount := len(g.Positions)
		if len(g.Normals) != vertexCount || len(g.UVs) != vertexCount {
			panic(fmt.Sprintf("scene: flatten: mesh %d has %d positions, %d normals and %d uvs",
				meshIndex, vertexCount, len(g.Normals), len(g.UVs)))
		}

		mat := visible[i].Material
		matIndex, ok := materialIndex[mat]
		if !ok {
			matIndex = int32(len(out.Materials))
			materialIndex[mat] = matIndex
			out.Materials = append(out.Materials, mat)
		}

		copy(out.Positions[vertexOffset:], g.Positions)
		copy(out.Normals[vertexOffset:], g.Normals)
		copy(out.UVs[vertexOffset:], g.UVs)
		tag := MaterialMeshIndex{Material: matIndex, Mesh: meshIndex}
		for v := vertexOffset; v < vertexOffset+vertexCount; v++ {
			out.MaterialMeshIndex[v] = tag
		}

		for j, idx := range g.Indices {
			if int(idx) >= vertexCount {
				panic(fmt.Sprintf("scene: flatten: mesh %d index %d out of range for %d vertices", meshIndex, idx, vertexCount))
			}
			out.Indices[indexOffset+j] = idx + uint32(vertexOffset)
		}

		vertexOffset += vertexCount
		indexOffset += len(g.Indices)
	}

	return out
}

// prepareAll prepares each instance, in parallel when a pool is available, and returns the results
// in input order.
func (f *Flattener) prepareAll(instances []MeshInstance) []*model.Geometry {
	prepared := make([]*model.Geometry, len(instances))

	f.mu.Lock()
	pool := f.pool
	f.mu.Unlock()

	if pool == nil || len(instances) < 2 {
		for i, inst := range instances {
			prepared[i] = prepareInstance(inst, i+1)
		}
		return prepared
	}

	// A WaitGroup is the barrier here; pool.Wait() only returns once workers go idle.
	var wg sync.WaitGroup
	for i, inst := range instances {
		wg.Add(1)
		slot := i
		instCap := inst
		pool.SubmitTask(worker.Task{
			ID: slot,
			Do: func() (any, error) {
				defer wg.Done()
				prepared[slot] = prepareInstance(instCap, slot+1)
				return nil, nil
			},
		})
	}
	wg.Wait()

	return prepared
}

// prepareInstance returns a world-space copy of the instance geometry with indices, unit normals
// and uvs all present. Attributes other than position, normal and uv are dropped.
func prepareInstance(inst MeshInstance, meshIndex int) *model.Geometry {
	if inst.Geometry.VertexCount() == 0 {
		return &model.Geometry{}
	}
	if names := inst.Geometry.AttributeNames(); len(names) > 0 {
		slices.Sort(names)
		common.ComponentLogger("Flattener").Debug("dropping vertex attributes not used by the tracer",
			"mesh", meshIndex, "attributes", names)
	}

	g := inst.Geometry.Clone()
	vertexCount := len(g.Positions)

	if g.Indices == nil {
		g.Indices = make([]uint32, vertexCount)
		for i := range g.Indices {
			g.Indices[i] = uint32(i)
		}
	}

	world := inst.WorldTransform
	for i, p := range g.Positions {
		g.Positions[i] = mgl32.TransformCoordinate(p, world)
	}

	if len(g.Normals) == vertexCount {
		normalMatrix := common.NormalMatrix(world)
		for i, n := range g.Normals {
			g.Normals[i] = common.SafeNormalize(normalMatrix.Mul3x1(n))
		}
	} else {
		g.Normals = computeVertexNormals(g.Positions, g.Indices)
	}

	if len(g.UVs) != vertexCount {
		g.UVs = make([]mgl32.Vec2, vertexCount)
	}

	return g
}

// computeVertexNormals accumulates the unnormalized face normal of every triangle on its three
// vertices, which weights each face by its area, then normalizes. Triangles referencing missing
// vertices are ignored.
func computeVertexNormals(positions []mgl32.Vec3, indices []uint32) []mgl32.Vec3 {
	acc := make([]r3.Vec, len(positions))
	toR3 := func(v mgl32.Vec3) r3.Vec {
		return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
	}

	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		if int(a) >= len(positions) || int(b) >= len(positions) || int(c) >= len(positions) {
			continue
		}
		pa, pb, pc := toR3(positions[a]), toR3(positions[b]), toR3(positions[c])
		face := r3.Cross(r3.Sub(pc, pb), r3.Sub(pa, pb))
		acc[a] = r3.Add(acc[a], face)
		acc[b] = r3.Add(acc[b], face)
		acc[c] = r3.Add(acc[c], face)
	}

	normals := make([]mgl32.Vec3, len(positions))
	for i, n := range acc {
		if r3.Norm(n) == 0 {
			continue
		}
		u := r3.Unit(n)
		normals[i] = mgl32.Vec3{float32(u.X), float32(u.Y), float32(u.Z)}
	}
	return normals
}
