package main

import (
	"fmt"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSizeCommand() *cobra.Command {
	spec := frameSpec{}
	cmd := &cobra.Command{
		Use:   "size",
		Short: "Print the encoded size of a frame message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := newFrameBuffers(spec)
			if err != nil {
				return err
			}
			f := frames.next(0)
			msg := protocol.FrameMessage{Connection: uuid.Nil, Frame: f}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format=%s width=%d height=%d\n", f.Kind(), spec.Width, spec.Height)
			fmt.Fprintf(out, "pixel_bytes=%d\n", protocol.PlaneBytes(f))
			fmt.Fprintf(out, "encoded_bytes=%d\n", protocol.EncodedSize(msg))
			fmt.Fprintf(out, "lifecycle_bytes=%d\n", protocol.EncodedSize(protocol.CreateConnection{}))
			return nil
		},
	}
	cmd.Flags().StringVar(&spec.Format, "format", "yuv", "frame layout: yuv (4:2:0) or rgb")
	cmd.Flags().Uint32Var(&spec.Width, "width", 1920, "frame width in pixels")
	cmd.Flags().Uint32Var(&spec.Height, "height", 1080, "frame height in pixels")
	cmd.Flags().Uint32Var(&spec.BytesPerPixel, "bpp", 4, "bytes per pixel for rgb frames")
	return cmd
}
