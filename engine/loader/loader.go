package loader

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/lumen3d/lumen/common"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	assetCache map[string]*Asset

	backend loaderBackend

	// decodePool decodes texture images in parallel after import so the
	// render path never pays the decode cost on first use.
	decodePool    worker.DynamicWorkerPool
	decodeWorkers int
}

// Loader defines the public-facing interface for importing and caching 3D
// assets. It abstracts the file format (glTF, GLB) behind a generic backend
// and manages a cache of previously imported assets keyed by path or name.
type Loader interface {
	// Load imports an asset file and caches the result.
	// If the asset is already cached (by file path), the cached version is
	// returned. The backend is selected based on the file extension
	// (.gltf/.glb selects the glTF backend). All referenced texture images
	// are decoded in parallel before Load returns.
	//
	// Parameters:
	//   - path: the file path to the asset file
	//
	// Returns:
	//   - *Asset: the imported and cached asset
	//   - error: error if import fails
	Load(path string) (*Asset, error)

	// LoadReader imports an asset from a reader stream and caches it by the
	// given name. GLB binary and glTF JSON streams are detected
	// automatically. External file references cannot be resolved when
	// loading from a reader; embedded resources work as usual.
	//
	// Parameters:
	//   - name: the cache key for the imported asset
	//   - r: the reader providing asset data
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if import fails
	LoadReader(name string, r io.Reader) (*Asset, error)

	// Get retrieves a cached asset by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Asset: the cached asset or nil
	Get(name string) *Asset

	// Assets returns a copy of the full asset cache.
	//
	// Returns:
	//   - map[string]*Asset: all cached assets keyed by name
	Assets() map[string]*Asset

	// Clear empties the asset cache.
	Clear()
}

var _ Loader = &loader{}

// BackendType identifies the asset file format backend to use.
type BackendType int

const (
	// BackendGLTF selects the glTF/GLB backend.
	BackendGLTF BackendType = iota
)

// NewLoader creates a new Loader instance with the specified backend type and
// options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType BackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:            sync.RWMutex{},
		assetCache:    make(map[string]*Asset),
		decodeWorkers: runtime.NumCPU(),
	}

	switch backendType {
	case BackendGLTF:
		l.backend = newGLTFBackend()
	}

	for _, option := range options {
		option(l)
	}

	// Queue size of 64 covers the texture counts of typical PBR assets.
	l.decodePool = worker.NewDynamicWorkerPool(l.decodeWorkers, 64, 1*time.Second)

	return l
}

func (l *loader) Load(path string) (*Asset, error) {
	l.mu.RLock()
	if cached, ok := l.assetCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	asset, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.decodeTextures(asset)

	l.mu.Lock()
	l.assetCache[path] = asset
	l.mu.Unlock()

	return asset, nil
}

func (l *loader) LoadReader(name string, r io.Reader) (*Asset, error) {
	l.mu.RLock()
	if cached, ok := l.assetCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	asset, err := l.backend.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	if asset.Name == "" {
		asset.Name = name
	}

	l.decodeTextures(asset)

	l.mu.Lock()
	l.assetCache[name] = asset
	l.mu.Unlock()

	return asset, nil
}

func (l *loader) Get(name string) *Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assetCache[name]
}

func (l *loader) Assets() map[string]*Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Asset, len(l.assetCache))
	for k, v := range l.assetCache {
		result[k] = v
	}
	return result
}

func (l *loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assetCache = make(map[string]*Asset)
}

// resolveBackend selects an appropriate loader backend based on the file
// extension. Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported asset format: %s", ext)
	}
}

// decodeTextures decodes every distinct texture referenced by the asset's
// materials on the worker pool and waits for completion. Decoded pixels are
// cached on the textures themselves, so later GPU uploads reuse them without
// re-decoding. Decode failures are logged, not fatal: the render path
// degrades those materials to their untextured factors.
func (l *loader) decodeTextures(asset *Asset) {
	textures := make(map[*common.ImportedTexture]struct{})
	for _, mat := range asset.Materials {
		for _, tex := range []*common.ImportedTexture{
			mat.BaseColorTexture(),
			mat.NormalTexture(),
			mat.MetallicRoughnessTexture(),
			mat.EmissiveTexture(),
			mat.OcclusionTexture(),
		} {
			if tex != nil {
				textures[tex] = struct{}{}
			}
		}
	}

	if len(textures) == 0 {
		return
	}

	var wg sync.WaitGroup
	taskID := 0
	for tex := range textures {
		wg.Add(1)
		t := tex
		id := taskID
		taskID++
		l.decodePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				if _, _, _, err := t.Decode(); err != nil {
					log.Printf("loader: failed to decode texture %q: %v", t.Name, err)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}
