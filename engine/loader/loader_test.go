package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
)

func intPtr(i int) *int { return &i }

// docBuilder assembles a glTF document whose accessors all live in a single binary buffer.
type docBuilder struct {
	doc gltfDocument
	bin []byte
}

func newDocBuilder() *docBuilder {
	return &docBuilder{doc: gltfDocument{Asset: gltfAsset{Version: "2.0"}}}
}

func (b *docBuilder) accessor(data []byte, componentType int, accessorType string, count int, normalized bool) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	b.doc.BufferViews = append(b.doc.BufferViews, gltfBufferView{ByteOffset: len(b.bin), ByteLength: len(data)})
	b.bin = append(b.bin, data...)
	b.doc.Accessors = append(b.doc.Accessors, gltfAccessor{
		BufferView:    intPtr(len(b.doc.BufferViews) - 1),
		ComponentType: componentType,
		Type:          accessorType,
		Count:         count,
		Normalized:    normalized,
	})
	return len(b.doc.Accessors) - 1
}

func (b *docBuilder) floats(accessorType string, v ...float32) int {
	data := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(f))
	}
	return b.accessor(data, gltfComponentFloat, accessorType, len(v)/componentCount(accessorType), false)
}

func (b *docBuilder) indices16(v ...uint16) int {
	data := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(data[2*i:], x)
	}
	return b.accessor(data, gltfComponentUnsignedShort, "SCALAR", len(v), false)
}

func (b *docBuilder) gltfJSON(t *testing.T) []byte {
	t.Helper()
	doc := b.doc
	doc.Buffers = []gltfBuffer{{
		URI:        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.bin),
		ByteLength: len(b.bin),
	}}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	return data
}

func (b *docBuilder) glb(t *testing.T) []byte {
	t.Helper()
	doc := b.doc
	doc.Buffers = []gltfBuffer{{ByteLength: len(b.bin)}}
	js, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := append([]byte(nil), b.bin...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var out bytes.Buffer
	put := func(v uint32) { _ = binary.Write(&out, binary.LittleEndian, v) }
	put(gltfGLBMagic)
	put(gltfGLBVersion)
	put(uint32(gltfGLBHeaderSize + 8 + len(js) + 8 + len(bin)))
	put(uint32(len(js)))
	put(gltfGLBChunkJSON)
	out.Write(js)
	put(uint32(len(bin)))
	put(gltfGLBChunkBIN)
	out.Write(bin)
	return out.Bytes()
}

// triangle adds a red, indexed triangle mesh instanced by one node rotated 90 degrees around Y.
func (b *docBuilder) triangle() *docBuilder {
	pos := b.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)
	nrm := b.floats("VEC3", 0, 0, 1, 0, 0, 1, 0, 0, 1)
	uv := b.floats("VEC2", 0, 0, 1, 0, 0, 1)
	col := b.floats("VEC4", 1, 0, 0, 1, 0, 1, 0, 1, 0, 0, 1, 1)
	idx := b.indices16(0, 1, 2)

	metallic := float32(0)
	b.doc.Materials = []gltfMaterial{{
		Name: "red",
		PbrMetallicRoughness: &gltfPbrMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 0, 0, 1},
			MetallicFactor:  &metallic,
		},
	}}
	b.doc.Meshes = []gltfMesh{{Name: "tri", Primitives: []gltfPrimitive{{
		Attributes: map[string]int{"POSITION": pos, "NORMAL": nrm, "TEXCOORD_0": uv, "COLOR_0": col},
		Indices:    &idx,
		Material:   intPtr(0),
	}}}}
	s := float32(math.Sqrt2 / 2)
	b.doc.Nodes = []gltfNode{{
		Name:        "triangle",
		Mesh:        intPtr(0),
		Translation: &[3]float32{1, 2, 3},
		Rotation:    &[4]float32{0, s, 0, s},
	}}
	b.doc.Scenes = []gltfScene{{Nodes: []int{0}}}
	b.doc.Scene = intPtr(0)
	return b
}

func checkTriangle(t *testing.T, root game_object.GameObject, rootName string) {
	t.Helper()
	if root.Name() != rootName {
		t.Errorf("root name = %q, want %q", root.Name(), rootName)
	}
	children := root.Children()
	if len(children) != 1 {
		t.Fatalf("root has %d children, want 1", len(children))
	}
	node := children[0]
	if node.Name() != "triangle" || node.Position() != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("node %q at %v", node.Name(), node.Position())
	}
	if rot := node.Rotation(); !rot.ApproxEqualThreshold(mgl32.Vec3{0, math.Pi / 2, 0}, 1e-5) {
		t.Errorf("rotation = %v, want 90 degrees around Y", rot)
	}

	geo := node.Geometry()
	if geo == nil {
		t.Fatal("node has no geometry")
	}
	if len(geo.Positions) != 3 || geo.Positions[1] != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("positions = %v", geo.Positions)
	}
	if len(geo.Normals) != 3 || len(geo.UVs) != 3 || geo.UVs[2] != (mgl32.Vec2{0, 1}) {
		t.Errorf("normals = %v, uvs = %v", geo.Normals, geo.UVs)
	}
	if len(geo.Indices) != 3 || geo.Indices[2] != 2 {
		t.Errorf("indices = %v", geo.Indices)
	}
	if got := geo.Attributes["color_0"]; len(got) != 12 || got[5] != 1 {
		t.Errorf("color_0 attribute = %v", got)
	}

	mat := node.Material()
	if mat == nil || mat.Name() != "red" || mat.BaseColor() != [4]float32{1, 0, 0, 1} || mat.Metallic() != 0 || mat.Roughness() != 1 {
		t.Errorf("material = %+v", mat)
	}
}

func TestLoadReaderGLTF(t *testing.T) {
	data := newDocBuilder().triangle().gltfJSON(t)
	root, err := NewLoader().LoadReader("model", bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	checkTriangle(t, root, "model")
}

func TestLoadReaderGLB(t *testing.T) {
	data := newDocBuilder().triangle().glb(t)
	root, err := NewLoader().LoadReader("binary", bytes.NewReader(data), true)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	checkTriangle(t, root, "binary")
}

func TestLoadFileWithExternalBuffer(t *testing.T) {
	b := newDocBuilder().triangle()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tri.bin"), b.bin, 0o644); err != nil {
		t.Fatal(err)
	}
	doc := b.doc
	doc.Buffers = []gltfBuffer{{URI: "tri.bin", ByteLength: len(b.bin)}}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "tri.gltf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	root, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkTriangle(t, root, "tri")
	if !l.Cached(filepath.Clean(path)) {
		t.Error("loaded file not cached")
	}

	if _, err := l.Load(filepath.Join(dir, "tri.obj")); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}

func TestCachedLoadsShareGeometryAndMaterials(t *testing.T) {
	data := newDocBuilder().triangle().gltfJSON(t)
	l := NewLoader()

	first, err := l.LoadReader("m", bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	// The reader is ignored for a cached name.
	second, err := l.LoadReader("m", bytes.NewReader(nil), false)
	if err != nil {
		t.Fatalf("cached LoadReader: %v", err)
	}

	a, b := first.Children()[0], second.Children()[0]
	if a.ID() == b.ID() {
		t.Error("cached load returned the same game object")
	}
	if a.Geometry() != b.Geometry() || a.Material() != b.Material() {
		t.Error("cached loads do not share geometry and material")
	}

	l.Evict("m")
	if l.Cached("m") {
		t.Error("Evict kept the entry")
	}
	if _, err := l.LoadReader("m", bytes.NewReader(nil), false); err == nil {
		t.Error("expected a parse error after eviction")
	}
}

func TestMultiPrimitiveAndSharedMeshes(t *testing.T) {
	b := newDocBuilder()
	pos := b.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)
	lines := 1
	b.doc.Meshes = []gltfMesh{{Name: "pair", Primitives: []gltfPrimitive{
		{Attributes: map[string]int{"POSITION": pos}},
		{Attributes: map[string]int{"POSITION": pos}},
		{Attributes: map[string]int{"POSITION": pos}, Mode: &lines},
	}}}
	b.doc.Nodes = []gltfNode{
		{Name: "group", Children: []int{1, 2}},
		{Name: "a", Mesh: intPtr(0)},
		{Name: "b", Mesh: intPtr(0), Scale: &[3]float32{2, 2, 2}},
	}

	root, err := NewLoader().LoadReader("pair", bytes.NewReader(b.gltfJSON(t)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}

	// Without scenes every unparented node is a root.
	groups := root.Children()
	if len(groups) != 1 || groups[0].Name() != "group" {
		t.Fatalf("roots = %d", len(groups))
	}
	nodes := groups[0].Children()
	if len(nodes) != 2 || nodes[1].Scale() != (mgl32.Vec3{2, 2, 2}) {
		t.Fatalf("group children = %d", len(nodes))
	}
	for _, n := range nodes {
		prims := n.Children()
		if n.Geometry() != nil || len(prims) != 2 {
			t.Fatalf("node %q: geometry %v, %d primitive children", n.Name(), n.Geometry(), len(prims))
		}
	}

	a, c := nodes[0].Children(), nodes[1].Children()
	if a[0].Geometry() != c[0].Geometry() {
		t.Error("nodes instancing the same mesh do not share geometry")
	}
	if a[0].Material() == nil || a[0].Material() != a[1].Material() {
		t.Error("primitives without a material do not share the default material")
	}
	if a[0].Name() != "a/0" {
		t.Errorf("primitive name = %q", a[0].Name())
	}
}

func TestMatrixNodeTransform(t *testing.T) {
	b := newDocBuilder()
	want := mgl32.Translate3D(4, 5, 6).Mul4(mgl32.HomogRotate3DX(0.5)).Mul4(mgl32.Scale3D(1, 3, 1))
	m := [16]float32(want)
	b.doc.Nodes = []gltfNode{{Name: "m", Matrix: &m}}

	root, err := NewLoader().LoadReader("matrix", bytes.NewReader(b.gltfJSON(t)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if got := root.Children()[0].LocalMatrix(); !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("local matrix = %v, want %v", got, want)
	}
}

func TestNormalizedTexCoords(t *testing.T) {
	b := newDocBuilder()
	pos := b.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)
	uv := b.accessor([]byte{0, 0, 255, 0, 0, 255}, gltfComponentUnsignedByte, "VEC2", 3, true)
	b.doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{{Attributes: map[string]int{"POSITION": pos, "TEXCOORD_0": uv}}}}}
	b.doc.Nodes = []gltfNode{{Mesh: intPtr(0)}}

	root, err := NewLoader().LoadReader("uv", bytes.NewReader(b.gltfJSON(t)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	uvs := root.Children()[0].Geometry().UVs
	if len(uvs) != 3 || uvs[1] != (mgl32.Vec2{1, 0}) || uvs[2] != (mgl32.Vec2{0, 1}) {
		t.Errorf("uvs = %v", uvs)
	}
	if root.Children()[0].Name() != "node_0" {
		t.Errorf("unnamed node got name %q", root.Children()[0].Name())
	}
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name  string
		data  func(t *testing.T) []byte
		isGLB bool
		want  error
	}{
		{
			name: "version 1",
			data: func(t *testing.T) []byte {
				b := newDocBuilder()
				b.doc.Asset.Version = "1.0"
				return b.gltfJSON(t)
			},
			want: errInvalidGLTFVersion,
		},
		{
			name:  "bad magic",
			data:  func(*testing.T) []byte { return make([]byte, 20) },
			isGLB: true,
			want:  errInvalidGLBMagic,
		},
		{
			name: "index out of range",
			data: func(t *testing.T) []byte {
				b := newDocBuilder()
				pos := b.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)
				idx := b.indices16(0, 1, 7)
				b.doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{{Attributes: map[string]int{"POSITION": pos}, Indices: &idx}}}}
				b.doc.Nodes = []gltfNode{{Mesh: intPtr(0)}}
				return b.gltfJSON(t)
			},
		},
		{
			name: "shared child",
			data: func(t *testing.T) []byte {
				b := newDocBuilder()
				b.doc.Nodes = []gltfNode{{Children: []int{2}}, {Children: []int{2}}, {}}
				b.doc.Scenes = []gltfScene{{Nodes: []int{0, 1}}}
				return b.gltfJSON(t)
			},
		},
		{
			name: "missing position",
			data: func(t *testing.T) []byte {
				b := newDocBuilder()
				b.doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{{Attributes: map[string]int{}}}}}
				b.doc.Nodes = []gltfNode{{Mesh: intPtr(0)}}
				return b.gltfJSON(t)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLoader()
			_, err := l.LoadReader(tc.name, bytes.NewReader(tc.data(t)), tc.isGLB)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if l.Cached(tc.name) {
				t.Error("failed load was cached")
			}
		})
	}
}
