package main

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/session"
	"github.com/danmuck/framewire/internal/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type recvOptions struct {
	Addr      string
	AdminAddr string
}

func newRecvCommand(root *rootOptions) *cobra.Command {
	opts := &recvOptions{}
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Accept frame streams and log every message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecv(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (defaults to node.listen_addr)")
	cmd.Flags().StringVar(&opts.AdminAddr, "admin-addr", "", "serve health, metrics and streams here (defaults to node.admin_addr)")
	return cmd
}

func runRecv(cmd *cobra.Command, root *rootOptions, opts *recvOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	logger := logging.For("framectl.recv")
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	addr := firstNonEmpty(opts.Addr, cfg.Node.ListenAddr)
	ln, err := session.Listen(addr, cfg.Session)
	if err != nil {
		return err
	}
	logger.Info().Str("addr", ln.Addr().String()).Str("node", cfg.Node.ID).Msg("receiver listening")

	streams := session.NewStreams()
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	if adminAddr := firstNonEmpty(opts.AdminAddr, cfg.Node.AdminAddr); adminAddr != "" {
		adminLn, err := net.Listen("tcp", adminAddr)
		if err != nil {
			_ = ln.Close()
			return err
		}
		admin := server.New(cfg.Node.ID, streams, cfg.Node.AdminOrigins)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := admin.Serve(ctx, adminLn); err != nil {
				logger.Error().Err(err).Str("addr", adminAddr).Msg("admin server stopped")
			}
		}()
	}

	return session.ServeStreams(ctx, ln, cfg.Session, streams, func(conn net.Conn) session.Handler {
		return &logHandler{log: logger.With().Str("peer", conn.RemoteAddr().String()).Logger()}
	})
}

// logHandler logs each message. It never retains a message, so it does not
// need to clone frame planes.
type logHandler struct {
	log zerolog.Logger
}

func (h *logHandler) HandleMessage(_ context.Context, m protocol.Message) error {
	fm, ok := m.(protocol.FrameMessage)
	if !ok {
		h.log.Info().
			Str("kind", m.Kind().String()).
			Str("connection", protocol.ConnectionOf(m).String()).
			Msg("lifecycle")
		return nil
	}
	ev := h.log.Debug().Str("connection", fm.Connection.String())
	switch f := fm.Frame.(type) {
	case protocol.YuvFrame:
		ev = ev.Str("format", "yuv").
			Uint32("width", f.Info.Width).
			Uint32("height", f.Info.Height).
			Uint32("y_stride", f.Info.YStride)
	case protocol.RgbFrame:
		ev = ev.Str("format", "rgb").
			Uint32("width", f.Info.Width).
			Uint32("height", f.Info.Height).
			Uint32("stride", f.Info.Stride)
	}
	ev.Int("pixel_bytes", protocol.PlaneBytes(fm.Frame)).Msg("frame")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
