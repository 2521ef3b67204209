package loader

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// importedPrimitive is one triangle list of a glTF mesh.
type importedPrimitive struct {
	geometry *model.Geometry
	material material.Material
}

// importedNode is a glTF node with its transform already split into position, rotation and scale.
type importedNode struct {
	name       string
	position   mgl32.Vec3
	rotation   mgl32.Vec3
	scale      mgl32.Vec3
	primitives []importedPrimitive
	children   []int
}

// importedScene is the immutable result of importing a glTF file. Every instantiation shares its
// geometries and materials.
type importedScene struct {
	name      string
	nodes     []importedNode
	roots     []int
	triangles int
}

// instantiate builds a new game object tree for the scene. The returned root is an empty group
// holding the scene's root nodes.
func (s *importedScene) instantiate() game_object.GameObject {
	root := game_object.NewGameObject(game_object.WithName(s.name))
	for _, i := range s.roots {
		root.Add(s.instantiateNode(i))
	}
	return root
}

func (s *importedScene) instantiateNode(i int) game_object.GameObject {
	n := &s.nodes[i]
	obj := game_object.NewGameObject(
		game_object.WithName(n.name),
		game_object.WithPosition(n.position.X(), n.position.Y(), n.position.Z()),
		game_object.WithRotation(n.rotation.X(), n.rotation.Y(), n.rotation.Z()),
		game_object.WithScale(n.scale.X(), n.scale.Y(), n.scale.Z()),
	)

	switch len(n.primitives) {
	case 0:
	case 1:
		obj.SetMesh(n.primitives[0].geometry, n.primitives[0].material)
	default:
		for p, prim := range n.primitives {
			obj.Add(game_object.NewMesh(prim.geometry, prim.material,
				game_object.WithName(fmt.Sprintf("%s/%d", n.name, p))))
		}
	}

	for _, c := range n.children {
		obj.Add(s.instantiateNode(c))
	}
	return obj
}

// gltfImporter converts a parsed document into an importedScene.
type gltfImporter struct {
	file           *gltfFile
	log            *slog.Logger
	textureMaxSize int

	materials       map[int]material.Material
	defaultMaterial material.Material
	meshes          map[int][]importedPrimitive
}

func newGLTFImporter(file *gltfFile, textureMaxSize int, log *slog.Logger) *gltfImporter {
	return &gltfImporter{
		file:           file,
		log:            log,
		textureMaxSize: textureMaxSize,
		materials:      make(map[int]material.Material),
		meshes:         make(map[int][]importedPrimitive),
	}
}

// importScene imports the document's default scene, or its first scene, or when the document has
// no scenes every node that is nobody's child.
func (im *gltfImporter) importScene(name string) (*importedScene, error) {
	doc := im.file.doc
	scene := &importedScene{name: name, nodes: make([]importedNode, len(doc.Nodes))}

	switch {
	case doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes):
		scene.roots = doc.Scenes[*doc.Scene].Nodes
	case len(doc.Scenes) > 0:
		scene.roots = doc.Scenes[0].Nodes
	default:
		scene.roots = orphanNodes(doc.Nodes)
	}

	for i := range doc.Nodes {
		node, err := im.importNode(i)
		if err != nil {
			return nil, err
		}
		scene.nodes[i] = node
	}
	if err := checkForest(scene); err != nil {
		return nil, err
	}

	for _, prims := range im.meshes {
		for _, p := range prims {
			scene.triangles += p.geometry.IndexCount() / 3
		}
	}
	return scene, nil
}

func orphanNodes(nodes []gltfNode) []int {
	isChild := make([]bool, len(nodes))
	for _, n := range nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(nodes) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// checkForest rejects out of range node references and nodes reachable twice, which would
// instantiate the same subtree under two parents or recurse forever on a cycle.
func checkForest(s *importedScene) error {
	seen := make([]bool, len(s.nodes))
	var visit func(i int) error
	visit = func(i int) error {
		if i < 0 || i >= len(s.nodes) {
			return fmt.Errorf("node %d out of range", i)
		}
		if seen[i] {
			return fmt.Errorf("node %d is referenced more than once", i)
		}
		seen[i] = true
		for _, c := range s.nodes[i].children {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range s.roots {
		if err := visit(r); err != nil {
			return err
		}
	}
	return nil
}

func (im *gltfImporter) importNode(i int) (importedNode, error) {
	n := &im.file.doc.Nodes[i]
	node := importedNode{
		name:     n.Name,
		scale:    mgl32.Vec3{1, 1, 1},
		children: n.Children,
	}
	if node.name == "" {
		node.name = fmt.Sprintf("node_%d", i)
	}

	if n.Matrix != nil {
		node.position, node.rotation, node.scale = common.DecomposeMatrix(mgl32.Mat4(*n.Matrix))
	} else {
		if n.Translation != nil {
			node.position = mgl32.Vec3(*n.Translation)
		}
		if n.Rotation != nil {
			r := *n.Rotation
			q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
			node.rotation = common.EulerFromRotation(q.Mat4().Mat3())
		}
		if n.Scale != nil {
			node.scale = mgl32.Vec3(*n.Scale)
		}
	}

	if n.Mesh != nil {
		prims, err := im.importMesh(*n.Mesh)
		if err != nil {
			return importedNode{}, fmt.Errorf("node %q: %w", node.name, err)
		}
		node.primitives = prims
	}
	return node, nil
}

// importMesh converts every triangle-list primitive of mesh i. Results are memoized so nodes
// sharing a mesh share its geometry.
func (im *gltfImporter) importMesh(i int) ([]importedPrimitive, error) {
	if prims, ok := im.meshes[i]; ok {
		return prims, nil
	}
	if i < 0 || i >= len(im.file.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", i)
	}

	mesh := &im.file.doc.Meshes[i]
	prims := make([]importedPrimitive, 0, len(mesh.Primitives))
	for p := range mesh.Primitives {
		prim := &mesh.Primitives[p]
		if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
			im.log.Warn("skipping non-triangle primitive", "mesh", mesh.Name, "primitive", p, "mode", *prim.Mode)
			continue
		}
		geo, err := im.importGeometry(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, p, err)
		}
		mat, err := im.material(prim.Material)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, p, err)
		}
		prims = append(prims, importedPrimitive{geometry: geo, material: mat})
	}
	im.meshes[i] = prims
	return prims, nil
}

func (im *gltfImporter) importGeometry(prim *gltfPrimitive) (*model.Geometry, error) {
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := im.file.readFloats(posIndex, "VEC3")
	if err != nil {
		return nil, fmt.Errorf("POSITION: %w", err)
	}
	geo := &model.Geometry{Positions: toVec3s(positions)}

	for semantic, index := range prim.Attributes {
		switch semantic {
		case "POSITION":
		case "NORMAL":
			normals, err := im.file.readFloats(index, "VEC3")
			if err != nil {
				return nil, fmt.Errorf("NORMAL: %w", err)
			}
			geo.Normals = toVec3s(normals)
		case "TEXCOORD_0":
			uvs, err := im.file.readFloats(index, "VEC2")
			if err != nil {
				return nil, fmt.Errorf("TEXCOORD_0: %w", err)
			}
			geo.UVs = toVec2s(uvs)
		default:
			_, values, err := im.file.readComponents(index)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", semantic, err)
			}
			if geo.Attributes == nil {
				geo.Attributes = make(map[string][]float32)
			}
			geo.Attributes[strings.ToLower(semantic)] = values
		}
	}

	if len(geo.Normals) != 0 && len(geo.Normals) != len(geo.Positions) {
		return nil, fmt.Errorf("NORMAL has %d entries for %d positions", len(geo.Normals), len(geo.Positions))
	}
	if len(geo.UVs) != 0 && len(geo.UVs) != len(geo.Positions) {
		return nil, fmt.Errorf("TEXCOORD_0 has %d entries for %d positions", len(geo.UVs), len(geo.Positions))
	}

	if prim.Indices != nil {
		indices, err := im.file.readIndices(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range indices {
			if int(idx) >= len(geo.Positions) {
				return nil, fmt.Errorf("index %d out of range for %d positions", idx, len(geo.Positions))
			}
		}
		geo.Indices = indices
	}
	return geo, nil
}

func toVec3s(f []float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(f)/3)
	for i := range out {
		out[i] = mgl32.Vec3{f[3*i], f[3*i+1], f[3*i+2]}
	}
	return out
}

func toVec2s(f []float32) []mgl32.Vec2 {
	out := make([]mgl32.Vec2, len(f)/2)
	for i := range out {
		out[i] = mgl32.Vec2{f[2*i], f[2*i+1]}
	}
	return out
}

// material returns the shared material for a glTF material index; nil selects the default
// material glTF prescribes for primitives without one.
func (im *gltfImporter) material(index *int) (material.Material, error) {
	if index == nil {
		if im.defaultMaterial == nil {
			im.defaultMaterial = material.NewMaterial(material.WithName("default"), material.WithMetallic(1), material.WithRoughness(1))
		}
		return im.defaultMaterial, nil
	}
	if m, ok := im.materials[*index]; ok {
		return m, nil
	}
	if *index < 0 || *index >= len(im.file.doc.Materials) {
		return nil, fmt.Errorf("material %d out of range", *index)
	}

	src := &im.file.doc.Materials[*index]
	opts := []material.MaterialBuilderOption{
		material.WithName(src.Name),
		material.WithMetallic(1),
		material.WithRoughness(1),
		material.WithTransparent(src.AlphaMode == "BLEND"),
	}
	if src.EmissiveFactor != nil {
		opts = append(opts, material.WithEmissive(*src.EmissiveFactor))
	}
	if pbr := src.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			opts = append(opts, material.WithBaseColor(*pbr.BaseColorFactor))
		}
		if pbr.MetallicFactor != nil {
			opts = append(opts, material.WithMetallic(*pbr.MetallicFactor))
		}
		if pbr.RoughnessFactor != nil {
			opts = append(opts, material.WithRoughness(*pbr.RoughnessFactor))
		}
		if tex, err := im.texture(pbr.BaseColorTexture, "diffuse"); err != nil {
			return nil, fmt.Errorf("material %q: %w", src.Name, err)
		} else if tex != nil {
			opts = append(opts, material.WithDiffuseTexture(tex))
		}
		if tex, err := im.texture(pbr.MetallicRoughnessTexture, "metallic_roughness"); err != nil {
			return nil, fmt.Errorf("material %q: %w", src.Name, err)
		} else if tex != nil {
			opts = append(opts, material.WithMetallicRoughnessTexture(tex))
		}
	}
	if tex, err := im.texture(src.NormalTexture, "normal"); err != nil {
		return nil, fmt.Errorf("material %q: %w", src.Name, err)
	} else if tex != nil {
		opts = append(opts, material.WithNormalTexture(tex))
	}

	m := material.NewMaterial(opts...)
	im.materials[*index] = m
	return m, nil
}

// texture resolves a texture reference to encoded image bytes or a file path. Decoding is left
// to the pipeline.
func (im *gltfImporter) texture(info *gltfTextureInfo, name string) (*common.TextureSource, error) {
	if info == nil {
		return nil, nil
	}
	doc := im.file.doc
	if info.Index < 0 || info.Index >= len(doc.Textures) {
		return nil, fmt.Errorf("%s texture %d out of range", name, info.Index)
	}
	src := doc.Textures[info.Index].Source
	if src == nil {
		return nil, nil
	}
	if *src < 0 || *src >= len(doc.Images) {
		return nil, fmt.Errorf("%s texture image %d out of range", name, *src)
	}

	img := &doc.Images[*src]
	tex := &common.TextureSource{Name: name, MaxSize: im.textureMaxSize}
	switch {
	case img.BufferView != nil:
		data, err := im.file.bufferView(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("%s texture: %w", name, err)
		}
		tex.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, _, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("%s texture: %w", name, err)
		}
		tex.Data = data
	case img.URI != "":
		tex.Path = filepath.Join(im.file.baseDir, filepath.FromSlash(img.URI))
	default:
		return nil, fmt.Errorf("%s texture image %d has neither uri nor bufferView", name, *src)
	}
	return tex, nil
}
