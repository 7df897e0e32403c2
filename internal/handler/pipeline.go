package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/pipeline"
)

type PipelineControl interface {
	Start(parent context.Context) bool
	Stop(ctx context.Context) error
	Status() pipeline.Status
}

type PendingCounter interface {
	CountPendingTokens(ctx context.Context) (int64, error)
}

// Breaker is a provider circuit breaker.
type Breaker interface {
	Name() string
	State() gobreaker.State
}

type PipelineHandler struct {
	Pipeline PipelineControl
	Pending  PendingCounter
	Breakers []Breaker
	// BaseCtx parents workers started over HTTP; the request context ends with the request.
	BaseCtx     context.Context
	StopTimeout time.Duration
	Logger      *zap.Logger
}

type breakerView struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

type pipelineStatusView struct {
	pipeline.Status
	PendingTokens *int64        `json:"pending_tokens,omitempty"`
	Breakers      []breakerView `json:"breakers,omitempty"`
}

func (h *PipelineHandler) Register(r *gin.Engine) {
	g := r.Group("/api/pipeline")
	g.GET("/status", h.status)
	g.POST("/start", h.start)
	g.POST("/stop", h.stop)
}

// @Summary Pipeline state, per-worker counters, pending tokens and provider breakers
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Router /api/pipeline/status [get]
func (h *PipelineHandler) status(c *gin.Context) {
	if h.Pipeline == nil {
		Error(c, http.StatusInternalServerError, "pipeline unavailable", nil)
		return
	}
	Ok(c, h.statusView(c.Request.Context()), nil)
}

// @Summary Start the workers; no-op unless stopped
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Router /api/pipeline/start [post]
func (h *PipelineHandler) start(c *gin.Context) {
	if h.Pipeline == nil {
		Error(c, http.StatusInternalServerError, "pipeline unavailable", nil)
		return
	}
	base := h.BaseCtx
	if base == nil {
		base = context.Background()
	}
	started := h.Pipeline.Start(base)
	Ok(c, gin.H{"started": started, "status": h.statusView(c.Request.Context())}, nil)
}

// @Summary Stop the workers and wait for them to exit
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Failure 504 {object} apiResponse
// @Router /api/pipeline/stop [post]
func (h *PipelineHandler) stop(c *gin.Context) {
	if h.Pipeline == nil {
		Error(c, http.StatusInternalServerError, "pipeline unavailable", nil)
		return
	}
	timeout := h.StopTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()
	if err := h.Pipeline.Stop(ctx); err != nil {
		Error(c, http.StatusGatewayTimeout, "workers did not stop in time", nil)
		return
	}
	Ok(c, gin.H{"status": h.statusView(c.Request.Context())}, nil)
}

// statusView leaves pending_tokens out when the count fails.
func (h *PipelineHandler) statusView(ctx context.Context) pipelineStatusView {
	out := pipelineStatusView{Status: h.Pipeline.Status()}
	if h.Pending != nil {
		n, err := h.Pending.CountPendingTokens(ctx)
		if err == nil {
			out.PendingTokens = &n
		} else if h.Logger != nil {
			h.Logger.Warn("count pending tokens failed", zap.Error(err))
		}
	}
	for _, b := range h.Breakers {
		out.Breakers = append(out.Breakers, breakerView{Provider: b.Name(), State: b.State().String()})
	}
	return out
}
