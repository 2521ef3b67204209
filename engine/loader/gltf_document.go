package loader

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errBufferSizeMismatch = errors.New("buffer shorter than its declared byteLength")
)

// gltfFile is a parsed glTF document with every buffer resolved to bytes.
type gltfFile struct {
	doc     *gltfDocument
	baseDir string
}

// parseGLTFFile reads a .gltf or .glb file. External buffers are resolved relative to the file.
func parseGLTFFile(path string) (*gltfFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") || isGLBData(data)
	return parseGLTFData(data, isGLB, filepath.Dir(path))
}

// parseGLTFReader reads a document from r. External buffer URIs are resolved relative to baseDir.
func parseGLTFReader(r io.Reader, isGLB bool, baseDir string) (*gltfFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return parseGLTFData(data, isGLB, baseDir)
}

func isGLBData(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltfGLBMagic
}

func parseGLTFData(data []byte, isGLB bool, baseDir string) (*gltfFile, error) {
	jsonData := data
	var binChunk []byte
	if isGLB {
		var err error
		if jsonData, binChunk, err = splitGLB(data); err != nil {
			return nil, err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, errInvalidGLTFVersion
	}

	f := &gltfFile{doc: &doc, baseDir: baseDir}
	if err := f.loadBuffers(binChunk); err != nil {
		return nil, fmt.Errorf("failed to load buffers: %w", err)
	}
	return f, nil
}

// splitGLB returns the JSON and optional BIN chunk of a GLB container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < gltfGLBHeaderSize {
		return nil, nil, errors.New("GLB file too small")
	}
	if binary.LittleEndian.Uint32(data[0:]) != gltfGLBMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if binary.LittleEndian.Uint32(data[4:]) != gltfGLBVersion {
		return nil, nil, errInvalidGLBVersion
	}
	total := min(int(binary.LittleEndian.Uint32(data[8:])), len(data))

	for off := gltfGLBHeaderSize; off+8 <= total; {
		length := int(binary.LittleEndian.Uint32(data[off:]))
		kind := binary.LittleEndian.Uint32(data[off+4:])
		off += 8
		if length < 0 || off+length > total {
			return nil, nil, fmt.Errorf("GLB chunk at offset %d overruns the file", off-8)
		}
		switch kind {
		case gltfGLBChunkJSON:
			jsonChunk = data[off : off+length]
		case gltfGLBChunkBIN:
			binChunk = data[off : off+length]
		}
		off += length
	}
	if jsonChunk == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonChunk, binChunk, nil
}

func (f *gltfFile) loadBuffers(binChunk []byte) error {
	for i := range f.doc.Buffers {
		buf := &f.doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && binChunk != nil:
			buf.data = binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			data, err := f.loadURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = data
		}
		if len(buf.data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// loadURI resolves a base64 data URI or a file path relative to the document.
func (f *gltfFile) loadURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		data, _, err := decodeDataURI(uri)
		return data, err
	}
	data, err := os.ReadFile(filepath.Join(f.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", uri, err)
	}
	return data, nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data> and returns the bytes and media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", errors.New("invalid data URI")
	}
	mediaType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return nil, "", fmt.Errorf("unsupported data URI encoding %q", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mediaType, nil
}

// bufferView returns the bytes covered by buffer view i.
func (f *gltfFile) bufferView(i int) ([]byte, error) {
	if i < 0 || i >= len(f.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", i)
	}
	bv := f.doc.BufferViews[i]
	if bv.Buffer < 0 || bv.Buffer >= len(f.doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d references missing buffer %d", i, bv.Buffer)
	}
	data := f.doc.Buffers[bv.Buffer].data
	if bv.ByteOffset < 0 || bv.ByteOffset+bv.ByteLength > len(data) {
		return nil, fmt.Errorf("buffer view %d overruns buffer %d", i, bv.Buffer)
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

// accessorElements returns the accessor and one byte slice per element, honoring byteStride.
func (f *gltfFile) accessorElements(index int) (*gltfAccessor, [][]byte, error) {
	if index < 0 || index >= len(f.doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor %d out of range", index)
	}
	acc := &f.doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	if acc.BufferView == nil {
		return nil, nil, fmt.Errorf("accessor %d has no buffer view", index)
	}

	elemSize := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if elemSize == 0 {
		return nil, nil, fmt.Errorf("accessor %d: unsupported layout %s/%d", index, acc.Type, acc.ComponentType)
	}
	view, err := f.bufferView(*acc.BufferView)
	if err != nil {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, err)
	}
	stride := elemSize
	if bv := f.doc.BufferViews[*acc.BufferView]; bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	elems := make([][]byte, acc.Count)
	for i := range elems {
		start := acc.ByteOffset + i*stride
		if start < 0 || start+elemSize > len(view) {
			return nil, nil, fmt.Errorf("accessor %d element %d overruns its buffer view", index, i)
		}
		elems[i] = view[start : start+elemSize]
	}
	return acc, elems, nil
}

// readComponents reads every component of an accessor as float32. Normalized integers are mapped
// to [0, 1] or [-1, 1] as glTF defines, other integers keep their value.
func (f *gltfFile) readComponents(index int) (*gltfAccessor, []float32, error) {
	acc, elems, err := f.accessorElements(index)
	if err != nil {
		return nil, nil, err
	}
	n := componentCount(acc.Type)
	size := componentSize(acc.ComponentType)
	out := make([]float32, 0, len(elems)*n)
	for _, e := range elems {
		for c := range n {
			out = append(out, decodeComponent(e[c*size:], acc.ComponentType, acc.Normalized))
		}
	}
	return acc, out, nil
}

// readFloats reads a float or normalized integer accessor of the given type.
func (f *gltfFile) readFloats(index int, accessorType string) ([]float32, error) {
	acc, out, err := f.readComponents(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType {
		return nil, fmt.Errorf("accessor %d is %s, want %s", index, acc.Type, accessorType)
	}
	if acc.ComponentType != gltfComponentFloat && !acc.Normalized {
		return nil, fmt.Errorf("accessor %d: component type %d is neither float nor normalized", index, acc.ComponentType)
	}
	return out, nil
}

func decodeComponent(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case gltfComponentFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentUnsignedByte:
		if normalized {
			return float32(b[0]) / 255
		}
		return float32(b[0])
	case gltfComponentUnsignedShort:
		v := binary.LittleEndian.Uint16(b)
		if normalized {
			return float32(v) / 65535
		}
		return float32(v)
	case gltfComponentUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	case gltfComponentByte:
		if normalized {
			return max(float32(int8(b[0]))/127, -1)
		}
		return float32(int8(b[0]))
	case gltfComponentShort:
		v := int16(binary.LittleEndian.Uint16(b))
		if normalized {
			return max(float32(v)/32767, -1)
		}
		return float32(v)
	default:
		return 0
	}
}

// readIndices reads a SCALAR unsigned integer accessor.
func (f *gltfFile) readIndices(index int) ([]uint32, error) {
	acc, elems, err := f.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != "SCALAR" {
		return nil, fmt.Errorf("index accessor %d is %s, want SCALAR", index, acc.Type)
	}

	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch acc.ComponentType {
		case gltfComponentUnsignedByte:
			out[i] = uint32(e[0])
		case gltfComponentUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltfComponentUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, fmt.Errorf("index accessor %d: unsupported component type %d", index, acc.ComponentType)
		}
	}
	return out, nil
}
