package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/framewire/internal/protocol"
)

// frameSpec describes the synthetic frames framectl produces.
type frameSpec struct {
	Format string
	Width  uint32
	Height uint32
	// BytesPerPixel applies to rgb only.
	BytesPerPixel uint32
}

func (s frameSpec) validate() error {
	switch strings.ToLower(s.Format) {
	case "yuv", "rgb":
	default:
		return fmt.Errorf("unknown format %q (supported: yuv, rgb)", s.Format)
	}
	if s.Width == 0 || s.Height == 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if strings.EqualFold(s.Format, "rgb") && (s.BytesPerPixel == 0 || s.BytesPerPixel > 16) {
		return fmt.Errorf("bpp must be between 1 and 16")
	}
	return nil
}

// frameBuffers owns the pixel storage reused for every synthetic frame.
type frameBuffers struct {
	spec  frameSpec
	yuv   protocol.YuvFrame
	rgb   protocol.RgbFrame
	isYuv bool
}

func newFrameBuffers(spec frameSpec) (*frameBuffers, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	b := &frameBuffers{spec: spec, isYuv: strings.EqualFold(spec.Format, "yuv")}
	if b.isYuv {
		chroma := (spec.Width + 1) / 2
		info := protocol.YuvFrameInfo{
			Width:   spec.Width,
			Height:  spec.Height,
			YStride: spec.Width,
			UStride: chroma,
			VStride: chroma,
		}
		ySize := protocol.PlaneSize(info.YStride, info.Height)
		cSize := protocol.PlaneSize(chroma, protocol.ChromaRows420(info.Height))
		if ySize < 0 || cSize < 0 {
			return nil, fmt.Errorf("frame %dx%d too large", spec.Width, spec.Height)
		}
		b.yuv = protocol.YuvFrame{
			Info: info,
			Y:    make([]byte, ySize),
			U:    make([]byte, cSize),
			V:    make([]byte, cSize),
		}
		return b, nil
	}
	stride := spec.Width * spec.BytesPerPixel
	if stride/spec.BytesPerPixel != spec.Width {
		return nil, fmt.Errorf("frame %dx%d too large", spec.Width, spec.Height)
	}
	size := protocol.PlaneSize(stride, spec.Height)
	if size < 0 {
		return nil, fmt.Errorf("frame %dx%d too large", spec.Width, spec.Height)
	}
	b.rgb = protocol.RgbFrame{
		Info:   protocol.RgbFrameInfo{Width: spec.Width, Height: spec.Height, Stride: stride},
		Pixels: make([]byte, size),
	}
	return b, nil
}

// next paints a diagonal gradient shifted by seq and returns a frame that
// views the shared buffers.
func (b *frameBuffers) next(seq int) protocol.Frame {
	shift := byte(seq)
	if b.isYuv {
		paint(b.yuv.Y, b.yuv.Info.YStride, shift)
		paint(b.yuv.U, b.yuv.Info.UStride, 0x80+shift)
		paint(b.yuv.V, b.yuv.Info.VStride, 0x80-shift)
		return b.yuv
	}
	paint(b.rgb.Pixels, b.rgb.Info.Stride, shift)
	return b.rgb
}

func paint(plane []byte, stride uint32, shift byte) {
	if stride == 0 {
		return
	}
	s := int(stride)
	for i := range plane {
		row, col := i/s, i%s
		plane[i] = byte(row+col) + shift
	}
}
