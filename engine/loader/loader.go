// Package loader imports static glTF 2.0 scenes (.gltf and .glb) as game object trees ready to be
// added to a scene. Skins, animations and morph targets are ignored.
package loader

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/game_object"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu  sync.RWMutex
	log *slog.Logger

	textureMaxSize int
	baseDir        string

	cache map[string]*importedScene
}

// Loader imports model files and caches the imported data by path or name.
//
// Every Load returns a fresh game object tree, so the same model can be placed in a scene more than
// once. Trees instantiated from the same cache entry share their geometries and materials, which
// the scene flattener deduplicates.
type Loader interface {
	// Load imports a .gltf or .glb file, or reuses the cached import of the same path.
	//
	// Parameters:
	//   - path: the model file
	//
	// Returns:
	//   - game_object.GameObject: a new root object named after the file holding the model's nodes
	//   - error: error if the file cannot be read or is not a valid static glTF scene
	Load(path string) (game_object.GameObject, error)

	// LoadReader imports a model from r and caches it under name.
	// External buffer and image URIs are resolved against the directory set by WithBaseDir.
	//
	// Parameters:
	//   - name: the cache key and the name of the returned root object
	//   - r: the glTF JSON or GLB data
	//   - isGLB: true if r holds a GLB container
	//
	// Returns:
	//   - game_object.GameObject: a new root object holding the model's nodes
	//   - error: error if the data is not a valid static glTF scene
	LoadReader(name string, r io.Reader, isGLB bool) (game_object.GameObject, error)

	// Cached reports whether a model is cached under name.
	Cached(name string) bool

	// Evict drops the cached import stored under name.
	Evict(name string)

	// Clear drops every cached import.
	Clear()
}

var _ Loader = &loader{}

// NewLoader creates a Loader with the provided options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: a new loader with an empty cache
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		log:   common.ComponentLogger("Loader"),
		cache: make(map[string]*importedScene),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (game_object.GameObject, error) {
	key := filepath.Clean(path)
	if s := l.cached(key); s != nil {
		return s.instantiate(), nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("unsupported model format %q", ext)
	}

	file, err := parseGLTFFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := l.importFile(file, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(key, s).instantiate(), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (game_object.GameObject, error) {
	if s := l.cached(name); s != nil {
		return s.instantiate(), nil
	}

	file, err := parseGLTFReader(r, isGLB, l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	s, err := l.importFile(file, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, s).instantiate(), nil
}

func (l *loader) importFile(file *gltfFile, name string) (*importedScene, error) {
	s, err := newGLTFImporter(file, l.textureMaxSize, l.log).importScene(name)
	if err != nil {
		return nil, err
	}
	l.log.Debug("model imported", "name", name, "nodes", len(s.nodes), "triangles", s.triangles)
	return s, nil
}

func (l *loader) cached(key string) *importedScene {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[key]
}

// store caches s under key unless a concurrent load got there first, and returns the cached entry.
func (l *loader) store(key string, s *importedScene) *importedScene {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.cache[key]; ok {
		return existing
	}
	l.cache[key] = s
	return s
}

func (l *loader) Cached(name string) bool {
	return l.cached(name) != nil
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, name)
}

func (l *loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)
}
