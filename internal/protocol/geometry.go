package protocol

import "fmt"

// Validate checks that the planes match the geometry. The luma plane must be
// exactly YStride*Height bytes. A chroma plane must hold whole rows of its
// stride and no more rows than Height; the row count is whatever the producer
// subsampled to (4:4:4, 4:2:0, 4:1:0, floor or ceil on odd heights).
func (f YuvFrame) Validate() error {
	i := f.Info
	if i.YStride < i.Width {
		return fmt.Errorf("%w: y_stride %d < width %d", ErrInconsistentGeometry, i.YStride, i.Width)
	}
	if !planeMatches(len(f.Y), i.YStride, i.Height) {
		return fmt.Errorf("%w: y plane %d bytes, want %d*%d", ErrInconsistentGeometry, len(f.Y), i.YStride, i.Height)
	}
	if !chromaMatches(len(f.U), i.UStride, i.Height) {
		return fmt.Errorf("%w: u plane %d bytes is not whole rows of stride %d within height %d", ErrInconsistentGeometry, len(f.U), i.UStride, i.Height)
	}
	if !chromaMatches(len(f.V), i.VStride, i.Height) {
		return fmt.Errorf("%w: v plane %d bytes is not whole rows of stride %d within height %d", ErrInconsistentGeometry, len(f.V), i.VStride, i.Height)
	}
	return nil
}

// Validate checks that Pixels is exactly Stride*Height bytes and that Stride is
// not below Width. Bytes per pixel are not on the wire, so a stride too narrow
// for the producer's pixel format is not detected here.
func (f RgbFrame) Validate() error {
	i := f.Info
	if i.Stride < i.Width {
		return fmt.Errorf("%w: stride %d < width %d", ErrInconsistentGeometry, i.Stride, i.Width)
	}
	if !planeMatches(len(f.Pixels), i.Stride, i.Height) {
		return fmt.Errorf("%w: pixels %d bytes, want %d*%d", ErrInconsistentGeometry, len(f.Pixels), i.Stride, i.Height)
	}
	return nil
}

// PlaneSize is stride*rows as an int, or -1 when it does not fit.
func PlaneSize(stride, rows uint32) int {
	n := uint64(stride) * uint64(rows)
	if n > uint64(maxInt) {
		return -1
	}
	return int(n)
}

// ChromaRows420 is the chroma row count for 4:2:0 subsampling.
func ChromaRows420(height uint32) uint32 {
	return height/2 + height%2
}

const maxInt = int(^uint(0) >> 1)

func planeMatches(n int, stride, rows uint32) bool {
	return uint64(n) == uint64(stride)*uint64(rows)
}

func chromaMatches(n int, stride, height uint32) bool {
	if stride == 0 {
		return n == 0
	}
	rows := uint64(n) / uint64(stride)
	return uint64(n)%uint64(stride) == 0 && rows <= uint64(height)
}
