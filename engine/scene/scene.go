package scene

import (
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshInstance is one drawable occurrence of a geometry in world space.
// Only visible instances participate in flattening.
type MeshInstance struct {
	Geometry       *model.Geometry
	Material       material.Material
	WorldTransform mgl32.Mat4
	Visible        bool
}

// Scene is the root of a scene graph. It owns a set of top level GameObjects, lights that are not
// attached to any node, and the worker pool used to flatten its meshes for the tracer.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Add appends top level objects to the scene. Objects already present are ignored.
	//
	// Parameters:
	//   - objects: the objects to add
	Add(objects ...game_object.GameObject)

	// Remove detaches a top level object from the scene.
	//
	// Parameters:
	//   - obj: the object to remove
	Remove(obj game_object.GameObject)

	// Objects returns a copy of the top level object list.
	Objects() []game_object.GameObject

	// Count returns the number of nodes in the whole graph, children included.
	//
	// Returns:
	//   - int: the node count
	Count() int

	// AddLight adds a light that is not attached to any node (ambient, environment or a fixed sun).
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight removes a light previously added with AddLight.
	//
	// Parameters:
	//   - l: the light to remove
	RemoveLight(l light.Light)

	// Lights returns every enabled light in the scene: the lights added with AddLight followed by the
	// lights attached to visible nodes in traversal order.
	//
	// Returns:
	//   - []light.Light: the scene's lights
	Lights() []light.Light

	// UpdateMatrixWorld recomputes the world matrix of every node in the graph.
	UpdateMatrixWorld()

	// MeshInstances collects every mesh node in traversal order, using the world matrices computed by
	// the last UpdateMatrixWorld. Hidden nodes are returned with Visible set to false.
	//
	// Returns:
	//   - []MeshInstance: the scene's mesh instances
	MeshInstances() []MeshInstance

	// Flatten merges every visible mesh instance into one vertex and index buffer.
	//
	// Returns:
	//   - *FlattenedScene: the merged scene buffers
	Flatten() *FlattenedScene

	// Release stops the scene's worker pool. The scene must not be flattened afterwards.
	Release()
}

type scene struct {
	mu *sync.RWMutex

	name    string
	objects []game_object.GameObject
	lights  []light.Light

	// flattener owns the pool that prepares mesh instances in parallel. Workers persist across rebuilds.
	flattener      *Flattener
	computeWorkers int
}

var _ Scene = &scene{}

// NewScene creates an empty Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the flattener after options so WithComputeWorkers can override the default.
	s.flattener = NewFlattener(worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second))

	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Add(objects ...game_object.GameObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(objects...)
}

// add appends objects without locking. Callers hold s.mu.
func (s *scene) add(objects ...game_object.GameObject) {
	for _, obj := range objects {
		if obj == nil || slices.Contains(s.objects, obj) {
			continue
		}
		s.objects = append(s.objects, obj)
	}
}

func (s *scene) Remove(obj game_object.GameObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.objects, obj); i >= 0 {
		s.objects = slices.Delete(s.objects, i, i+1)
	}
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.objects)
}

func (s *scene) Count() int {
	count := 0
	for _, obj := range s.Objects() {
		obj.Traverse(func(game_object.GameObject) { count++ })
	}
	return count
}

func (s *scene) AddLight(l light.Light) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.lights, l) {
		s.lights = append(s.lights, l)
	}
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.lights, l); i >= 0 {
		s.lights = slices.Delete(s.lights, i, i+1)
	}
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	out := make([]light.Light, 0, len(s.lights))
	for _, l := range s.lights {
		if l.Enabled() {
			out = append(out, l)
		}
	}
	objects := slices.Clone(s.objects)
	s.mu.RUnlock()

	for _, obj := range objects {
		obj.Traverse(func(n game_object.GameObject) {
			if l := n.Light(); l != nil && l.Enabled() && n.Visible() && !slices.Contains(out, l) {
				out = append(out, l)
			}
		})
	}
	return out
}

func (s *scene) UpdateMatrixWorld() {
	for _, obj := range s.Objects() {
		obj.UpdateMatrixWorld()
	}
}

func (s *scene) MeshInstances() []MeshInstance {
	var instances []MeshInstance
	for _, obj := range s.Objects() {
		obj.Traverse(func(n game_object.GameObject) {
			g := n.Geometry()
			if g == nil {
				return
			}
			instances = append(instances, MeshInstance{
				Geometry:       g,
				Material:       n.Material(),
				WorldTransform: n.WorldMatrix(),
				Visible:        n.Visible(),
			})
		})
	}
	return instances
}

func (s *scene) Flatten() *FlattenedScene {
	return s.flattener.Flatten(s.MeshInstances())
}

func (s *scene) Release() {
	s.flattener.Release()
}
