package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/lumen3d/lumen/engine/camera"
)

// gltfBackend is a loaderBackend implementation for glTF/GLB files built on
// github.com/qmuntal/gltf. The library handles JSON/GLB framing, buffer
// resolution (external files and data URIs), and accessor decoding; this
// backend converts the parsed document into engine types.
type gltfBackend struct{}

var _ loaderBackend = &gltfBackend{}

// newGLTFBackend creates a new glTF loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for glTF/GLB files
func newGLTFBackend() loaderBackend {
	return &gltfBackend{}
}

func (b *gltfBackend) Load(path string) (*Asset, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return buildAsset(doc, filepath.Dir(path), name)
}

func (b *gltfBackend) LoadReader(r io.Reader) (*Asset, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to parse stream: %w", err)
	}

	// No base directory: external file references cannot be resolved,
	// embedded buffers and data URIs still work.
	return buildAsset(doc, "", "")
}

// buildAsset converts a parsed glTF document into an Asset: materials first
// (meshes reference them), then meshes, cameras, and the node hierarchy of
// the document's default scene.
func buildAsset(doc *gltf.Document, baseDir, fallbackName string) (*Asset, error) {
	materials, err := extractGLTFMaterials(doc, baseDir)
	if err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}

	meshes, err := extractGLTFMeshes(doc, materials)
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	cameras := extractGLTFCameras(doc)
	nodes := extractGLTFNodes(doc)

	asset := &Asset{
		Name:      gltfAssetName(doc, fallbackName),
		Meshes:    meshes,
		Materials: materials,
		Cameras:   cameras,
		Nodes:     nodes,
		Roots:     gltfSceneRoots(doc),
	}
	return asset, nil
}

// extractGLTFNodes flattens the document's node array into AssetNodes,
// preserving indices so children and scene roots carry over unchanged.
func extractGLTFNodes(doc *gltf.Document) []AssetNode {
	identity := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}

	nodes := make([]AssetNode, len(doc.Nodes))
	for i, src := range doc.Nodes {
		n := AssetNode{
			Name:   src.Name,
			Mesh:   -1,
			Camera: -1,
		}

		var m [16]float32
		for k, v := range src.MatrixOrDefault() {
			m[k] = float32(v)
		}
		if m != identity {
			matrix := m
			n.Matrix = &matrix
		} else {
			t := src.TranslationOrDefault()
			r := src.RotationOrDefault()
			s := src.ScaleOrDefault()
			n.Translation = [3]float32{float32(t[0]), float32(t[1]), float32(t[2])}
			n.Rotation = [4]float32{float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])}
			n.Scale = [3]float32{float32(s[0]), float32(s[1]), float32(s[2])}
		}

		if src.Mesh != nil {
			n.Mesh = *src.Mesh
		}
		if src.Camera != nil {
			n.Camera = *src.Camera
		}
		n.Children = append(n.Children, src.Children...)

		nodes[i] = n
	}
	return nodes
}

// extractGLTFCameras converts document cameras into engine cameras. Cameras
// without a finite far plane get a far of 1000.
func extractGLTFCameras(doc *gltf.Document) []camera.Camera {
	cameras := make([]camera.Camera, len(doc.Cameras))
	for i, src := range doc.Cameras {
		switch {
		case src.Perspective != nil:
			p := src.Perspective
			far := float32(1000)
			if p.Zfar != nil {
				far = float32(*p.Zfar)
			}
			options := []camera.CameraBuilderOption{
				camera.WithProjection(camera.ProjectionPerspective),
				camera.WithFov(float32(p.Yfov)),
				camera.WithClipRange(float32(p.Znear), far),
			}
			if p.AspectRatio != nil {
				options = append(options, camera.WithAspect(float32(*p.AspectRatio)))
			}
			cameras[i] = camera.NewCamera(options...)
		case src.Orthographic != nil:
			o := src.Orthographic
			cameras[i] = camera.NewCamera(
				camera.WithProjection(camera.ProjectionOrthographic),
				camera.WithOrthoSize(float32(o.Ymag)),
				camera.WithClipRange(float32(o.Znear), float32(o.Zfar)),
			)
		default:
			cameras[i] = camera.NewCamera()
		}
	}
	return cameras
}

// gltfSceneRoots returns the root node indices of the document's default
// scene, falling back to the first scene, then to every unparented node when
// the document declares no scenes at all.
func gltfSceneRoots(doc *gltf.Document) []int {
	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = *doc.Scene
	}
	if sceneIdx >= 0 && sceneIdx < len(doc.Scenes) {
		return append([]int(nil), doc.Scenes[sceneIdx].Nodes...)
	}

	parented := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, child := range n.Children {
			parented[child] = true
		}
	}

	var roots []int
	for i := range doc.Nodes {
		if !parented[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// gltfAssetName derives the asset name from the default scene, falling back
// to the caller-provided name.
func gltfAssetName(doc *gltf.Document, fallback string) string {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	if fallback != "" {
		return fallback
	}
	return "unnamed_asset"
}
