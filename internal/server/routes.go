package server

import (
	"net/http"
	"time"

	"github.com/danmuck/framewire/internal/observability"
	"github.com/gin-gonic/gin"
)

type connectionView struct {
	ID          string    `json:"id"`
	OpenedAt    time.Time `json:"opened_at"`
	LastFrameAt time.Time `json:"last_frame_at,omitzero"`
	Frames      uint64    `json:"frames"`
	PixelBytes  uint64    `json:"pixel_bytes"`
}

type streamView struct {
	Peer        string           `json:"peer"`
	AcceptedAt  time.Time        `json:"accepted_at"`
	Connections []connectionView `json:"connections"`
}

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.Appeared).String(),
			"service": a.ID,
			"version": version,
		})
	})

	a.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   a.streams != nil,
			"streams": a.streamCount(),
			"service": a.ID,
		})
	})

	a.router.GET("/metrics", gin.WrapH(observability.Handler()))

	a.router.GET("/streams", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"streams": a.streamViews()})
	})
}

func (a *Admin) streamCount() int {
	if a.streams == nil {
		return 0
	}
	return a.streams.Len()
}

func (a *Admin) streamViews() []streamView {
	if a.streams == nil {
		return []streamView{}
	}
	snap := a.streams.Snapshot()
	out := make([]streamView, 0, len(snap))
	for _, s := range snap {
		view := streamView{
			Peer:        s.Peer,
			AcceptedAt:  s.AcceptedAt,
			Connections: make([]connectionView, 0, len(s.Connections)),
		}
		for _, conn := range s.Connections {
			view.Connections = append(view.Connections, connectionView{
				ID:          conn.ID.String(),
				OpenedAt:    conn.OpenedAt,
				LastFrameAt: conn.LastFrameAt,
				Frames:      conn.Frames,
				PixelBytes:  conn.PixelBytes,
			})
		}
		out = append(out, view)
	}
	return out
}
