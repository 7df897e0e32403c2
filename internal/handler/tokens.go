package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/repository"
)

type TopCache interface {
	Top(ctx context.Context) ([]models.Token, bool, error)
}

type TokensHandler struct {
	Repo   repository.TokenRepository
	Cache  TopCache
	TopK   int
	Logger *zap.Logger
}

func (h *TokensHandler) Register(r *gin.Engine) {
	g := r.Group("/api/tokens")
	g.GET("/top", h.top)
	g.GET("", h.list)
	g.GET("/:address", h.get)
	g.GET("/:address/history", h.history)
	g.POST("/:address/reanalyze", h.reanalyze)
}

// @Summary Current top ranked tokens
// @Tags tokens
// @Success 200 {object} apiResponse
// @Router /api/tokens/top [get]
func (h *TokensHandler) top(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	ctx := c.Request.Context()
	if h.Cache != nil {
		items, ok, err := h.Cache.Top(ctx)
		if err != nil && h.Logger != nil {
			h.Logger.Warn("ranked cache read failed", zap.Error(err))
		}
		if ok {
			Ok(c, toTokenViews(items), map[string]any{"source": "cache"})
			return
		}
	}
	items, err := h.Repo.ListRankedTokens(ctx, h.topK())
	if err != nil {
		storeError(c, err)
		return
	}
	Ok(c, toTokenViews(items), map[string]any{"source": "store"})
}

// @Summary List tokens
// @Tags tokens
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Param order_by query string false "score|rank|market_cap|volume_24h|liquidity|holder_count|price_change_24h|created_at|last_analysis_at"
// @Param ascending query bool false "sort ascending"
// @Param needs_analysis query bool false "pending filter"
// @Param ranked query bool false "ranked filter"
// @Param q query string false "symbol, name or address search"
// @Success 200 {object} apiResponse
// @Router /api/tokens [get]
func (h *TokensHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	orderBy := strings.TrimSpace(c.DefaultQuery("order_by", "score"))
	if _, ok := repository.TokenOrderColumns[orderBy]; !ok {
		Error(c, http.StatusBadRequest, "invalid order_by", nil)
		return
	}
	limit := limitQuery(c, 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListTokensParams{
		Limit:         limit,
		Offset:        offset,
		NeedsAnalysis: boolQueryPtr(c, "needs_analysis"),
		Ranked:        boolQueryPtr(c, "ranked"),
		Search:        strQueryPtr(c, "q"),
		OrderBy:       orderBy,
		Asc:           boolQueryPtr(c, "ascending"),
	}
	ctx := c.Request.Context()
	items, err := h.Repo.ListTokens(ctx, params)
	if err != nil {
		storeError(c, err)
		return
	}
	total, err := h.Repo.CountTokens(ctx, params)
	if err != nil {
		storeError(c, err)
		return
	}
	Ok(c, toTokenViews(items), paginationMeta(limit, offset, total))
}

// @Summary Token detail
// @Tags tokens
// @Param address path string true "mint address"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/tokens/{address} [get]
func (h *TokensHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetToken(c.Request.Context(), c.Param("address"))
	if err != nil {
		storeError(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "token not found", nil)
		return
	}
	Ok(c, toTokenView(*item), nil)
}

// @Summary Analysis history, newest first
// @Tags tokens
// @Param address path string true "mint address"
// @Param limit query int false "max rows"
// @Success 200 {object} apiResponse
// @Router /api/tokens/{address}/history [get]
func (h *TokensHandler) history(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	ctx := c.Request.Context()
	address := strings.TrimSpace(c.Param("address"))
	item, err := h.Repo.GetToken(ctx, address)
	if err != nil {
		storeError(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "token not found", nil)
		return
	}
	rows, err := h.Repo.ListTokenHistory(ctx, address, limitQuery(c, 100))
	if err != nil {
		storeError(c, err)
		return
	}
	Ok(c, toHistoryViews(rows), nil)
}

// @Summary Flag a token for another analysis pass
// @Tags tokens
// @Param address path string true "mint address"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/tokens/{address}/reanalyze [post]
func (h *TokensHandler) reanalyze(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	n, err := h.Repo.RequeueTokens(c.Request.Context(), []string{address})
	if err != nil {
		storeError(c, err)
		return
	}
	if n == 0 {
		Error(c, http.StatusNotFound, "token not found", nil)
		return
	}
	Ok(c, gin.H{"address": address, "needs_analysis": true}, nil)
}

func (h *TokensHandler) topK() int {
	if h.TopK > 0 {
		return h.TopK
	}
	return 20
}
