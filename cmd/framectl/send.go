package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/session"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	Addr       string
	Connection string
	Frame      frameSpec
	Count      int
	Interval   time.Duration
}

func newSendCommand(root *rootOptions) *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Stream synthetic frames to a receiver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "receiver address (defaults to node.dial_addr)")
	cmd.Flags().StringVar(&opts.Connection, "connection", "", "connection id to announce (random when empty)")
	cmd.Flags().StringVar(&opts.Frame.Format, "format", "yuv", "frame layout: yuv (4:2:0) or rgb")
	cmd.Flags().Uint32Var(&opts.Frame.Width, "width", 1280, "frame width in pixels")
	cmd.Flags().Uint32Var(&opts.Frame.Height, "height", 720, "frame height in pixels")
	cmd.Flags().Uint32Var(&opts.Frame.BytesPerPixel, "bpp", 4, "bytes per pixel for rgb frames")
	cmd.Flags().IntVar(&opts.Count, "count", 30, "number of frames to send")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 33*time.Millisecond, "delay between frames")
	return cmd
}

func runSend(cmd *cobra.Command, root *rootOptions, opts *sendOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	logger := logging.For("framectl.send")

	id := uuid.New()
	if raw := strings.TrimSpace(opts.Connection); raw != "" {
		if id, err = uuid.Parse(raw); err != nil {
			return fmt.Errorf("parse --connection: %w", err)
		}
	}
	frames, err := newFrameBuffers(opts.Frame)
	if err != nil {
		return err
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = cfg.Node.DialAddr
	}

	ctx := cmd.Context()
	conn, err := session.Dial(ctx, addr, cfg.Session)
	if err != nil {
		return err
	}
	defer conn.Close()

	sender := session.NewSender(conn, cfg.Session)
	if err := sender.Open(id); err != nil {
		return err
	}
	logger.Info().Str("connection", id.String()).Str("addr", addr).Msg("connection created")

	ticker := time.NewTicker(max(opts.Interval, time.Millisecond))
	defer ticker.Stop()
	sent := 0
	for sent < opts.Count {
		f := frames.next(sent)
		if err := sender.SendFrame(id, f); err != nil {
			return err
		}
		sent++
		logger.Debug().
			Int("seq", sent).
			Int("encoded_bytes", protocol.EncodedSize(protocol.FrameMessage{Connection: id, Frame: f})).
			Msg("frame sent")
		if sent == opts.Count {
			break
		}
		select {
		case <-ctx.Done():
			logger.Warn().Int("sent", sent).Msg("interrupted")
			return sender.Close(id)
		case <-ticker.C:
		}
	}

	if err := sender.Close(id); err != nil {
		return err
	}
	logger.Info().Str("connection", id.String()).Int("frames", sent).Msg("connection destroyed")
	return nil
}
