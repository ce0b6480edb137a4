package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

var testConn = uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")

func yuvMessage(width, height uint32) FrameMessage {
	chromaStride := (width + 1) / 2
	chromaRows := ChromaRows420(height)
	y := make([]byte, int(width*height))
	u := make([]byte, int(chromaStride*chromaRows))
	v := make([]byte, int(chromaStride*chromaRows))
	for i := range y {
		y[i] = byte(i)
	}
	for i := range u {
		u[i] = byte(0x80 + i)
		v[i] = byte(0x40 + i)
	}
	return FrameMessage{
		Connection: testConn,
		Frame: YuvFrame{
			Info: YuvFrameInfo{
				Width:   width,
				Height:  height,
				YStride: width,
				UStride: chromaStride,
				VStride: chromaStride,
			},
			Y: y,
			U: u,
			V: v,
		},
	}
}

func rgbMessage() FrameMessage {
	return FrameMessage{
		Connection: testConn,
		Frame: RgbFrame{
			Info:   RgbFrameInfo{Width: 2, Height: 2, Stride: 2},
			Pixels: []byte{1, 2, 3, 4},
		},
	}
}

func sampleMessages() []Message {
	return []Message{
		CreateConnection{Connection: testConn},
		DestroyConnection{Connection: testConn},
		rgbMessage(),
		yuvMessage(6, 4),
		yuvMessage(5, 3),
		FrameMessage{Connection: testConn, Frame: RgbFrame{}},
	}
}

func messagesEqual(t *testing.T, got, want Message) {
	t.Helper()
	if got.Kind() != want.Kind() {
		t.Fatalf("kind mismatch: got=%s want=%s", got.Kind(), want.Kind())
	}
	if ConnectionOf(got) != ConnectionOf(want) {
		t.Fatalf("connection mismatch: got=%s want=%s", ConnectionOf(got), ConnectionOf(want))
	}
	wantFrame, ok := want.(FrameMessage)
	if !ok {
		return
	}
	gotFrame := got.(FrameMessage)
	switch w := wantFrame.Frame.(type) {
	case YuvFrame:
		g, ok := gotFrame.Frame.(YuvFrame)
		if !ok {
			t.Fatalf("expected YuvFrame, got %T", gotFrame.Frame)
		}
		if g.Info != w.Info {
			t.Fatalf("yuv info mismatch: got=%+v want=%+v", g.Info, w.Info)
		}
		if !bytes.Equal(g.Y, w.Y) || !bytes.Equal(g.U, w.U) || !bytes.Equal(g.V, w.V) {
			t.Fatalf("yuv plane mismatch")
		}
	case RgbFrame:
		g, ok := gotFrame.Frame.(RgbFrame)
		if !ok {
			t.Fatalf("expected RgbFrame, got %T", gotFrame.Frame)
		}
		if g.Info != w.Info {
			t.Fatalf("rgb info mismatch: got=%+v want=%+v", g.Info, w.Info)
		}
		if !bytes.Equal(g.Pixels, w.Pixels) {
			t.Fatalf("rgb pixels mismatch")
		}
	default:
		t.Fatalf("unexpected frame %T", w)
	}
}

func TestRoundTripEncodeDecode(t *testing.T) {
	for _, msg := range sampleMessages() {
		buf, err := Marshal(msg)
		if err != nil {
			t.Fatalf("marshal %s: %v", msg.Kind(), err)
		}
		out, err := Decode(buf)
		if err != nil {
			t.Fatalf("decode %s: %v", msg.Kind(), err)
		}
		messagesEqual(t, out, msg)

		again, err := Marshal(out)
		if err != nil {
			t.Fatalf("re-marshal %s: %v", msg.Kind(), err)
		}
		if !bytes.Equal(buf, again) {
			t.Fatalf("re-encode mismatch for %s", msg.Kind())
		}
	}
}

func TestEncodedSizeMatchesEncode(t *testing.T) {
	for _, msg := range sampleMessages() {
		size := EncodedSize(msg)
		buf := make([]byte, size)
		n, err := Encode(buf, msg)
		if err != nil {
			t.Fatalf("encode %s into exact buffer: %v", msg.Kind(), err)
		}
		if n != size {
			t.Fatalf("encode wrote %d bytes, EncodedSize=%d", n, size)
		}
	}
}

func TestEncodeIntoLargerBufferWritesPrefixOnly(t *testing.T) {
	msg := CreateConnection{Connection: testConn}
	buf := bytes.Repeat([]byte{0xEE}, 32)
	n, err := Encode(buf, msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n != 20 {
		t.Fatalf("expected 20 bytes, got %d", n)
	}
	for i, b := range buf[n:] {
		if b != 0xEE {
			t.Fatalf("byte %d past message was overwritten", n+i)
		}
	}
}

func TestCreateConnectionLayout(t *testing.T) {
	buf, err := Marshal(CreateConnection{Connection: testConn})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(buf) != 20 {
		t.Fatalf("expected 20 bytes, got %d", len(buf))
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != 0 {
		t.Fatalf("expected ordinal 0, got %v", buf[0:4])
	}
	if !bytes.Equal(buf[4:20], testConn[:]) {
		t.Fatalf("identifier bytes mismatch: %x", buf[4:20])
	}
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	create, ok := out.(CreateConnection)
	if !ok || create.Connection != testConn {
		t.Fatalf("unexpected decode result: %#v", out)
	}
}

func TestDestroyConnectionOrdinal(t *testing.T) {
	buf, err := Marshal(DestroyConnection{Connection: testConn})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(buf) != 20 || binary.LittleEndian.Uint32(buf[0:4]) != 1 {
		t.Fatalf("unexpected destroy encoding: %x", buf)
	}
}

func TestRgbFrameLayout(t *testing.T) {
	buf, err := Marshal(rgbMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := []byte{2, 0, 0, 0}
	want = append(want, testConn[:]...)
	want = append(want,
		1, 0, 0, 0, // frame ordinal
		2, 0, 0, 0, // width
		2, 0, 0, 0, // height
		2, 0, 0, 0, // stride
		4, 0, 0, 0, 0, 0, 0, 0, // plane length
		1, 2, 3, 4,
	)
	if len(buf) != 48 {
		t.Fatalf("expected 48 bytes, got %d", len(buf))
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("layout mismatch:\n got=%v\nwant=%v", buf, want)
	}
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	messagesEqual(t, out, rgbMessage())
}

func TestYuvFrameLayoutOrder(t *testing.T) {
	msg := yuvMessage(4, 2)
	buf, err := Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	off := 4 + 16
	if binary.LittleEndian.Uint32(buf[off:]) != uint32(FrameKindYuv) {
		t.Fatalf("expected yuv ordinal at %d", off)
	}
	off += 4
	info := msg.Frame.(YuvFrame).Info
	for _, want := range []uint32{info.Width, info.Height, info.YStride, info.UStride, info.VStride} {
		if got := binary.LittleEndian.Uint32(buf[off:]); got != want {
			t.Fatalf("geometry field at %d: got=%d want=%d", off, got, want)
		}
		off += 4
	}
	if got := binary.LittleEndian.Uint64(buf[off:]); got != 8 {
		t.Fatalf("y plane length: got=%d want=8", got)
	}
}

func TestEncodeBufferTooSmallWritesNothing(t *testing.T) {
	msg := rgbMessage()
	size := EncodedSize(msg)
	buf := bytes.Repeat([]byte{0xAA}, size-1)
	n, err := Encode(buf, msg)
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes written, got %d", n)
	}
	if !bytes.Equal(buf, bytes.Repeat([]byte{0xAA}, size-1)) {
		t.Fatalf("buffer modified on failed encode")
	}
}

func TestEncodeNilFrameAndMessage(t *testing.T) {
	if _, err := Marshal(FrameMessage{Connection: testConn}); !errors.Is(err, ErrNilFrame) {
		t.Fatalf("expected ErrNilFrame, got %v", err)
	}
	var nilYuv *YuvFrame
	if _, err := Marshal(FrameMessage{Connection: testConn, Frame: nilYuv}); !errors.Is(err, ErrNilFrame) {
		t.Fatalf("expected ErrNilFrame for typed nil, got %v", err)
	}
	if _, err := Marshal(nil); !errors.Is(err, ErrNilMessage) {
		t.Fatalf("expected ErrNilMessage, got %v", err)
	}
	if EncodedSize(nil) != 0 {
		t.Fatalf("expected size 0 for nil message")
	}
}

func TestPointerVariantsEncodeLikeValues(t *testing.T) {
	msg := rgbMessage()
	rgb := msg.Frame.(RgbFrame)
	ptr := &FrameMessage{Connection: testConn, Frame: &rgb}
	a, err := Marshal(msg)
	if err != nil {
		t.Fatalf("marshal value: %v", err)
	}
	b, err := Marshal(ptr)
	if err != nil {
		t.Fatalf("marshal pointer: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("pointer and value encodings differ")
	}
}

func TestDecodeTruncatedPrefixes(t *testing.T) {
	for _, msg := range sampleMessages() {
		buf, err := Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		for k := 0; k < len(buf); k++ {
			prefix := buf[:k:k]
			_, err := Decode(prefix)
			if !errors.Is(err, ErrUnexpectedEOF) {
				t.Fatalf("%s prefix %d/%d: expected ErrUnexpectedEOF, got %v", msg.Kind(), k, len(buf), err)
			}
		}
	}
}

func TestDecodeHugePlaneLengthIsTruncation(t *testing.T) {
	buf, err := Marshal(rgbMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	binary.LittleEndian.PutUint64(buf[36:44], ^uint64(0))
	_, err = Decode(buf)
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestDecodeUnknownMessageDiscriminant(t *testing.T) {
	buf, err := Marshal(CreateConnection{Connection: testConn})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, bad := range []uint32{3, 7, ^uint32(0)} {
		binary.LittleEndian.PutUint32(buf[0:4], bad)
		_, err := Decode(buf)
		if !errors.Is(err, ErrUnknownDiscriminant) {
			t.Fatalf("ordinal %d: expected ErrUnknownDiscriminant, got %v", bad, err)
		}
	}
}

func TestDecodeUnknownFrameDiscriminant(t *testing.T) {
	buf, err := Marshal(rgbMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	binary.LittleEndian.PutUint32(buf[20:24], 2)
	_, err = Decode(buf)
	if !errors.Is(err, ErrUnknownDiscriminant) {
		t.Fatalf("expected ErrUnknownDiscriminant, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if de.Offset != 20 || de.Field != "frame.kind" {
		t.Fatalf("unexpected error position: %+v", de)
	}
}

func TestDecodeBorrowsSourceBuffer(t *testing.T) {
	msg := yuvMessage(4, 2)
	buf, err := Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	yuv := out.(FrameMessage).Frame.(YuvFrame)

	// header(4+16) + frame ordinal(4) + geometry(20) + y length(8)
	yOff := 4 + 16 + 4 + 20 + 8
	if &yuv.Y[0] != &buf[yOff] {
		t.Fatalf("y plane was copied instead of borrowed")
	}
	buf[yOff] = 0xFF
	if yuv.Y[0] != 0xFF {
		t.Fatalf("y plane does not alias source buffer")
	}

	uBefore := bytes.Clone(yuv.U)
	vBefore := bytes.Clone(yuv.V)
	for i := yOff; i < yOff+len(yuv.Y); i++ {
		buf[i] ^= 0x5A
	}
	if !bytes.Equal(yuv.U, uBefore) || !bytes.Equal(yuv.V, vBefore) {
		t.Fatalf("mutating y region changed other planes")
	}

	for i := 4; i < 20; i++ {
		buf[i] = 0
	}
	if out.(FrameMessage).Connection != testConn {
		t.Fatalf("connection id should not alias the source buffer")
	}
	if yuv.Info != msg.Frame.(YuvFrame).Info {
		t.Fatalf("geometry changed after buffer mutation")
	}
}

func TestDecodedPlaneCapacityIsBounded(t *testing.T) {
	buf, err := Marshal(yuvMessage(4, 2))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	yuv := out.(FrameMessage).Frame.(YuvFrame)
	if cap(yuv.Y) != len(yuv.Y) {
		t.Fatalf("y plane capacity %d exceeds length %d", cap(yuv.Y), len(yuv.Y))
	}
	before := bytes.Clone(buf)
	_ = append(yuv.Y, 0x01, 0x02)
	if !bytes.Equal(before, buf) {
		t.Fatalf("append to decoded plane overwrote source buffer")
	}
}

func TestDecodeInconsistentGeometry(t *testing.T) {
	msg := FrameMessage{
		Connection: testConn,
		Frame: RgbFrame{
			Info:   RgbFrameInfo{Width: 2, Height: 2, Stride: 3},
			Pixels: []byte{1, 2, 3, 4},
		},
	}
	buf, err := Marshal(msg)
	if err != nil {
		t.Fatalf("marshal should not validate geometry: %v", err)
	}
	if _, err := Decode(buf); !errors.Is(err, ErrInconsistentGeometry) {
		t.Fatalf("expected ErrInconsistentGeometry, got %v", err)
	}

	out, n, err := Decoder{SkipGeometryCheck: true}.Decode(buf)
	if err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("expected %d bytes consumed, got %d", len(buf), n)
	}
	messagesEqual(t, out, msg)
}

func TestDecodeYuvStrideBelowWidth(t *testing.T) {
	msg := yuvMessage(4, 2)
	yuv := msg.Frame.(YuvFrame)
	yuv.Info.Width = 5
	msg.Frame = yuv
	buf, err := Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := Decode(buf); !errors.Is(err, ErrInconsistentGeometry) {
		t.Fatalf("expected ErrInconsistentGeometry, got %v", err)
	}
}

func TestYuvValidateAcceptsFullChroma(t *testing.T) {
	f := YuvFrame{
		Info: YuvFrameInfo{Width: 2, Height: 2, YStride: 2, UStride: 2, VStride: 2},
		Y:    make([]byte, 4),
		U:    make([]byte, 4),
		V:    make([]byte, 4),
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("4:4:4 frame rejected: %v", err)
	}
	f.V = make([]byte, 3)
	if err := f.Validate(); !errors.Is(err, ErrInconsistentGeometry) {
		t.Fatalf("expected ErrInconsistentGeometry, got %v", err)
	}
}

func TestEncodeSizedMatchesEncode(t *testing.T) {
	msg := yuvMessage(6, 4)
	size := EncodedSize(msg)
	want, err := Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := make([]byte, size)
	n, err := EncodeSized(got, msg, size)
	if err != nil {
		t.Fatalf("encode sized: %v", err)
	}
	if n != size || !bytes.Equal(got, want) {
		t.Fatalf("EncodeSized output differs from Encode")
	}

	big := make([]byte, size+8)
	if _, err := EncodeSized(big, msg, size-1); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall for short size hint, got %v", err)
	}
	if _, err := EncodeSized(big, msg, size+8); err == nil || errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected size mismatch error for long size hint, got %v", err)
	}
	if _, err := EncodeSized(got[:size-1], msg, size); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall for short dst, got %v", err)
	}
	if _, err := EncodeSized(big, nil, size); !errors.Is(err, ErrNilMessage) {
		t.Fatalf("expected ErrNilMessage, got %v", err)
	}
}

func TestRoundTripAnyChromaSubsampling(t *testing.T) {
	cases := []struct {
		name string
		info YuvFrameInfo
		rows int
	}{
		{"420_odd_height_floor", YuvFrameInfo{Width: 4, Height: 3, YStride: 4, UStride: 2, VStride: 2}, 1},
		{"420_odd_height_ceil", YuvFrameInfo{Width: 4, Height: 3, YStride: 4, UStride: 2, VStride: 2}, 2},
		{"410", YuvFrameInfo{Width: 4, Height: 4, YStride: 4, UStride: 1, VStride: 1}, 1},
		{"422", YuvFrameInfo{Width: 4, Height: 2, YStride: 4, UStride: 2, VStride: 2}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chroma := int(tc.info.UStride) * tc.rows
			msg := FrameMessage{
				Connection: testConn,
				Frame: YuvFrame{
					Info: tc.info,
					Y:    bytes.Repeat([]byte{0x10}, int(tc.info.YStride*tc.info.Height)),
					U:    bytes.Repeat([]byte{0x80}, chroma),
					V:    bytes.Repeat([]byte{0x90}, chroma),
				},
			}
			buf, err := Marshal(msg)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			out, err := Decode(buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			messagesEqual(t, out, msg)
		})
	}
}

func TestYuvValidateRejectsChromaBeyondHeight(t *testing.T) {
	f := YuvFrame{
		Info: YuvFrameInfo{Width: 2, Height: 2, YStride: 2, UStride: 2, VStride: 0},
		Y:    make([]byte, 4),
		U:    make([]byte, 6),
	}
	if err := f.Validate(); !errors.Is(err, ErrInconsistentGeometry) {
		t.Fatalf("expected ErrInconsistentGeometry for 3 chroma rows at height 2, got %v", err)
	}
	f.U = make([]byte, 2)
	if err := f.Validate(); err != nil {
		t.Fatalf("empty plane with zero stride rejected: %v", err)
	}
	f.V = make([]byte, 1)
	if err := f.Validate(); !errors.Is(err, ErrInconsistentGeometry) {
		t.Fatalf("expected ErrInconsistentGeometry for bytes under a zero stride, got %v", err)
	}
}

func TestDecoderReportsConsumedAndIgnoresTrailing(t *testing.T) {
	first, err := Marshal(CreateConnection{Connection: testConn})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := Marshal(rgbMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	stream := append(bytes.Clone(first), second...)

	var d Decoder
	m1, n1, err := d.Decode(stream)
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if n1 != len(first) || m1.Kind() != KindCreateConnection {
		t.Fatalf("unexpected first message: kind=%s n=%d", m1.Kind(), n1)
	}
	m2, n2, err := d.Decode(stream[n1:])
	if err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if n2 != len(second) {
		t.Fatalf("expected %d bytes consumed, got %d", len(second), n2)
	}
	messagesEqual(t, m2, rgbMessage())
}

func TestCloneMessageDetachesPlanes(t *testing.T) {
	buf, err := Marshal(rgbMessage())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	kept := CloneMessage(out)
	for i := range buf {
		buf[i] = 0
	}
	messagesEqual(t, kept, rgbMessage())
}

func TestConcurrentEncodeDecode(t *testing.T) {
	msgs := sampleMessages()
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 8; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				msg := msgs[(g+i)%len(msgs)]
				buf := make([]byte, EncodedSize(msg))
				if _, err := Encode(buf, msg); err != nil {
					errs <- err
					return
				}
				out, err := Decode(buf)
				if err != nil {
					errs <- err
					return
				}
				if out.Kind() != msg.Kind() {
					errs <- errors.New("kind mismatch")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent codec: %v", err)
	}
}

const (
	benchWidth  = 3840
	benchHeight = 2160
)

func benchMessage() FrameMessage {
	return FrameMessage{
		Connection: uuid.New(),
		Frame: YuvFrame{
			Info: YuvFrameInfo{
				Width:   benchWidth,
				Height:  benchHeight,
				YStride: benchWidth,
				UStride: benchWidth / 2,
				VStride: benchWidth / 2,
			},
			Y: make([]byte, benchWidth*benchHeight),
			U: make([]byte, benchWidth/2*benchHeight/2),
			V: make([]byte, benchWidth/2*benchHeight/2),
		},
	}
}

func BenchmarkEncode4KYuv(b *testing.B) {
	msg := benchMessage()
	buf := make([]byte, EncodedSize(msg))
	b.SetBytes(int64(len(buf)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(buf, msg); err != nil {
			b.Fatalf("encode: %v", err)
		}
	}
}

func BenchmarkDecode4KYuv(b *testing.B) {
	buf, err := Marshal(benchMessage())
	if err != nil {
		b.Fatalf("marshal: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(buf); err != nil {
			b.Fatalf("decode: %v", err)
		}
	}
}

func BenchmarkCopy4KYuv(b *testing.B) {
	buf, err := Marshal(benchMessage())
	if err != nil {
		b.Fatalf("marshal: %v", err)
	}
	dst := make([]byte, len(buf))
	b.SetBytes(int64(len(buf)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(dst, buf)
	}
}

func TestRgbValidateChecksStrideAgainstWidthOnly(t *testing.T) {
	f := RgbFrame{
		Info:   RgbFrameInfo{Width: 4, Height: 1, Stride: 4},
		Pixels: make([]byte, 4),
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("stride equal to width rejected: %v", err)
	}
	f.Info.Stride = 3
	f.Pixels = make([]byte, 3)
	if err := f.Validate(); !errors.Is(err, ErrInconsistentGeometry) {
		t.Fatalf("expected ErrInconsistentGeometry for stride below width, got %v", err)
	}
}
