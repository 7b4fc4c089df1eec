package loader

import (
	"fmt"
	"log"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
)

// extractGLTFMeshes converts every mesh in the document into an engine mesh.
// Primitives keep their per-primitive materials; primitives with topologies
// the renderer cannot draw (fans, loops, strips of lines) are skipped with a
// log entry rather than failing the whole import.
func extractGLTFMeshes(doc *gltf.Document, materials []material.Material) ([]model.Mesh, error) {
	meshes := make([]model.Mesh, len(doc.Meshes))
	for i, src := range doc.Meshes {
		name := src.Name
		if name == "" {
			name = fmt.Sprintf("mesh_%d", i)
		}

		var prims []model.Primitive
		for j, prim := range src.Primitives {
			p, err := extractGLTFPrimitive(doc, prim, materials, fmt.Sprintf("%s/%d", name, j))
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", name, j, err)
			}
			if p != nil {
				prims = append(prims, p)
			}
		}

		meshes[i] = model.NewMesh(name, prims...)
	}
	return meshes, nil
}

// extractGLTFPrimitive reads one primitive's vertex streams through the
// modeler package, which handles component-type conversion and buffer-view
// strides. Returns (nil, nil) for skipped topologies.
func extractGLTFPrimitive(doc *gltf.Document, prim *gltf.Primitive, materials []material.Material, name string) (model.Primitive, error) {
	drawMode, ok := gltfDrawMode(prim.Mode)
	if !ok {
		log.Printf("loader: skipping primitive %q with unsupported topology %d", name, prim.Mode)
		return nil, nil
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	options := []model.PrimitiveBuilderOption{
		model.WithName(name),
		model.WithPositions(positions),
		model.WithDrawMode(drawMode),
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
		options = append(options, model.WithNormals(normals))
	}

	if idx, ok := prim.Attributes[gltf.TANGENT]; ok {
		tangents, err := modeler.ReadTangent(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read tangents: %w", err)
		}
		options = append(options, model.WithTangents(tangents))
	}

	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read texture coords: %w", err)
		}
		options = append(options, model.WithTexCoords(uvs))
	}

	if idx, ok := prim.Attributes[gltf.COLOR_0]; ok {
		raw, err := modeler.ReadColor(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read colors: %w", err)
		}
		colors := make([][4]float32, len(raw))
		for k, c := range raw {
			colors[k] = [4]float32{
				float32(c[0]) / 255,
				float32(c[1]) / 255,
				float32(c[2]) / 255,
				float32(c[3]) / 255,
			}
		}
		options = append(options, model.WithColors(colors))
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
		options = append(options, model.WithIndices(indices))
	}

	if prim.Material != nil && *prim.Material >= 0 && *prim.Material < len(materials) {
		options = append(options, model.WithMaterial(materials[*prim.Material]))
	}

	return model.NewPrimitive(options...), nil
}

// gltfDrawMode maps a glTF primitive mode onto a renderer draw mode. Fans,
// line loops, and line strips have no direct equivalent and report false.
func gltfDrawMode(mode gltf.PrimitiveMode) (model.DrawMode, bool) {
	switch mode {
	case gltf.PrimitiveTriangles:
		return model.DrawTriangles, true
	case gltf.PrimitiveTriangleStrip:
		return model.DrawTriangleStrip, true
	case gltf.PrimitiveLines:
		return model.DrawLines, true
	case gltf.PrimitivePoints:
		return model.DrawPoints, true
	default:
		return model.DrawTriangles, false
	}
}
