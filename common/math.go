package common

import (
	"encoding/binary"
	"math"
	"unsafe"

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
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// AlignUp rounds size up to the next multiple of alignment. An alignment of 0 returns size unchanged.
//
// Parameters:
//   - size: the value to round
//   - alignment: the required multiple
//
// Returns:
//   - uint64: the aligned size
func AlignUp(size, alignment uint64) uint64 {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}

// CeilDiv returns ceil(n / d) for unsigned integers. d must be non-zero.
func CeilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}

// PutFloat32s writes values into dst as little-endian f32 starting at offset and returns the offset after the last write.
//
// Parameters:
//   - dst: destination byte slice (must be large enough)
//   - offset: the byte offset to start writing at
//   - values: the floats to write
//
// Returns:
//   - int: the byte offset immediately after the written values
func PutFloat32s(dst []byte, offset int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(dst[offset:], math.Float32bits(v))
		offset += 4
	}
	return offset
}

// PutUint32s writes values into dst as little-endian u32 starting at offset and returns the offset after the last write.
func PutUint32s(dst []byte, offset int, values ...uint32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(dst[offset:], v)
		offset += 4
	}
	return offset
}

// PutMat4 writes a column-major matrix into dst at offset and returns the offset after it.
func PutMat4(dst []byte, offset int, m mgl32.Mat4) int {
	return PutFloat32s(dst, offset, m[:]...)
}
