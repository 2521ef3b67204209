package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// BuildModelMatrix constructs a local transform from position, Euler rotation, and scale.
// The rotation order is Y * X * Z (yaw-pitch-roll), so the final matrix is T * Ry * Rx * Rz * S.
//
// Parameters:
//   - position: translation
//   - rotation: rotation angles in radians around each axis
//   - scale: scale factors along each axis
//
// Returns:
//   - mgl32.Mat4: the composed column-major model matrix
func BuildModelMatrix(position, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	r := mgl32.HomogRotate3DY(rotation.Y()).
		Mul4(mgl32.HomogRotate3DX(rotation.X())).
		Mul4(mgl32.HomogRotate3DZ(rotation.Z()))
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(r).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 of m.
// A singular matrix yields the plain upper 3x3 so degenerate scales do not produce NaNs.
func NormalMatrix(m mgl32.Mat4) mgl32.Mat3 {
	upper := m.Mat3()
	if upper.Det() == 0 {
		return upper
	}
	return upper.Inv().Transpose()
}

// SafeNormalize returns v scaled to unit length, or the zero vector when v has no length.
func SafeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 || math32.IsNaN(l) || math32.IsInf(l, 0) {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}

// Sign returns -1, 0 or 1 depending on the sign of x.
func Sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// EulerFromRotation returns the angles that BuildModelMatrix turns back into the pure rotation r,
// in the same Y * X * Z order. Near gimbal lock the Z angle is folded into Y.
//
// Parameters:
//   - r: an orthonormal rotation matrix
//
// Returns:
//   - mgl32.Vec3: rotation angles in radians around X, Y and Z
func EulerFromRotation(r mgl32.Mat3) mgl32.Vec3 {
	m23 := mgl32.Clamp(r.At(1, 2), -1, 1)
	x := math32.Asin(-m23)
	if math32.Abs(m23) < 0.9999999 {
		return mgl32.Vec3{x, math32.Atan2(r.At(0, 2), r.At(2, 2)), math32.Atan2(r.At(1, 0), r.At(1, 1))}
	}
	return mgl32.Vec3{x, math32.Atan2(-r.At(2, 0), r.At(0, 0)), 0}
}

// DecomposeMatrix splits an affine transform into the position, Euler rotation and scale accepted
// by BuildModelMatrix. Shear is discarded. A negative determinant is folded into the X scale.
//
// Parameters:
//   - m: the transform to split
//
// Returns:
//   - position, rotation, scale: the components of m
func DecomposeMatrix(m mgl32.Mat4) (position, rotation, scale mgl32.Vec3) {
	position = m.Col(3).Vec3()
	cols := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	scale = mgl32.Vec3{cols[0].Len(), cols[1].Len(), cols[2].Len()}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}
	if scale[0] == 0 || scale[1] == 0 || scale[2] == 0 {
		return position, mgl32.Vec3{}, scale
	}
	r := mgl32.Mat3FromCols(cols[0].Mul(1/scale[0]), cols[1].Mul(1/scale[1]), cols[2].Mul(1/scale[2]))
	return position, EulerFromRotation(r), scale
}
