package main

import (
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
	"github.com/lumen3d/lumen/engine/scene"
)

// buildDemoScene populates the scene with a ground plane and a few cubes so
// the viewer shows something when no model file is configured.
func buildDemoScene(s scene.Scene) error {
	ground := material.NewMaterial(
		material.WithName("ground"),
		material.WithBaseColor(0.55, 0.55, 0.58, 1),
		material.WithMetallicRoughness(0, 0.9),
	)
	groundNode := scene.NewNode(
		scene.WithName("ground"),
		scene.WithMesh(planeMesh("ground", 20, ground)),
		scene.WithTranslation(0, -0.5, 0),
	)
	if err := s.Add(groundNode, nil); err != nil {
		return err
	}

	cubes := []struct {
		name      string
		pos       [3]float32
		color     [4]float32
		metallic  float32
		roughness float32
	}{
		{"cube_red", [3]float32{-1.5, 0, 0}, [4]float32{0.8, 0.15, 0.1, 1}, 0, 0.4},
		{"cube_steel", [3]float32{0, 0, 0}, [4]float32{0.9, 0.9, 0.92, 1}, 1, 0.2},
		{"cube_glass", [3]float32{1.5, 0, 0}, [4]float32{0.2, 0.5, 0.9, 0.45}, 0, 0.1},
	}
	for _, c := range cubes {
		options := []material.MaterialBuilderOption{
			material.WithName(c.name),
			material.WithBaseColor(c.color[0], c.color[1], c.color[2], c.color[3]),
			material.WithMetallicRoughness(c.metallic, c.roughness),
		}
		if c.color[3] < 1 {
			options = append(options, material.WithAlphaMode(material.AlphaBlend, 0))
		}
		mat := material.NewMaterial(options...)
		n := scene.NewNode(
			scene.WithName(c.name),
			scene.WithMesh(cubeMesh(c.name, 1, mat)),
			scene.WithTranslation(c.pos[0], c.pos[1], c.pos[2]),
		)
		if err := s.Add(n, nil); err != nil {
			return err
		}
	}

	return nil
}

// cubeMesh builds an axis-aligned cube with per-face normals.
func cubeMesh(name string, size float32, mat material.Material) model.Mesh {
	h := size / 2

	faces := []struct {
		normal [3]float32
		verts  [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}

	var positions [][3]float32
	var normals [][3]float32
	var indices []uint32
	for _, f := range faces {
		base := uint32(len(positions))
		for _, v := range f.verts {
			positions = append(positions, v)
			normals = append(normals, f.normal)
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	prim := model.NewPrimitive(
		model.WithName(name),
		model.WithPositions(positions),
		model.WithNormals(normals),
		model.WithIndices(indices),
		model.WithMaterial(mat),
	)
	return model.NewMesh(name, prim)
}

// planeMesh builds a flat XZ quad centered at the origin.
func planeMesh(name string, size float32, mat material.Material) model.Mesh {
	h := size / 2
	prim := model.NewPrimitive(
		model.WithName(name),
		model.WithPositions([][3]float32{{-h, 0, h}, {h, 0, h}, {h, 0, -h}, {-h, 0, -h}}),
		model.WithNormals([][3]float32{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0}}),
		model.WithIndices([]uint32{0, 1, 2, 0, 2, 3}),
		model.WithMaterial(mat),
	)
	return model.NewMesh(name, prim)
}
