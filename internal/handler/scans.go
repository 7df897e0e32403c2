package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/repository"
	"github.com/carter2099/best-bets/internal/service"
)

type ScansHandler struct {
	Scans     *service.ScanService
	TestLimit int
}

func (h *ScansHandler) Register(r *gin.Engine) {
	g := r.Group("/api/scans")
	g.POST("/test-scan", h.testScan)
	g.GET("", h.list)
	g.GET("/latest", h.latest)
	g.GET("/:id/tokens", h.tokens)
	g.DELETE("/test", h.clearTest)
}

// @Summary Run a test scan synchronously
// @Tags scans
// @Param limit query int false "tokens to analyse"
// @Success 200 {object} apiResponse
// @Router /api/scans/test-scan [post]
func (h *ScansHandler) testScan(c *gin.Context) {
	if h.Scans == nil {
		Error(c, http.StatusInternalServerError, "scan service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", h.TestLimit)
	if limit <= 0 || limit > maxPageSize {
		Error(c, http.StatusBadRequest, "invalid limit", nil)
		return
	}
	res, err := h.Scans.RunScan(c.Request.Context(), models.ScanTypeTest, limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{
		"scan":   toScanView(res.Scan),
		"tokens": toScanTokenViews(res.Tokens),
	}, nil)
}

// @Summary List scans, newest first
// @Tags scans
// @Param type query string false "daily|test"
// @Success 200 {object} apiResponse
// @Router /api/scans [get]
func (h *ScansHandler) list(c *gin.Context) {
	if h.Scans == nil {
		Error(c, http.StatusInternalServerError, "scan service unavailable", nil)
		return
	}
	limit := limitQuery(c, 30)
	items, err := h.Scans.ListScans(c.Request.Context(), repository.ListScansParams{
		Limit:    limit,
		Offset:   intQuery(c, "offset", 0),
		ScanType: strQueryPtr(c, "type"),
	})
	if err != nil {
		storeError(c, err)
		return
	}
	out := make([]scanView, 0, len(items))
	for _, s := range items {
		out = append(out, toScanView(s))
	}
	Ok(c, out, nil)
}

// @Summary Most recent scan with its ranked tokens
// @Tags scans
// @Param type query string false "daily|test"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/scans/latest [get]
func (h *ScansHandler) latest(c *gin.Context) {
	if h.Scans == nil {
		Error(c, http.StatusInternalServerError, "scan service unavailable", nil)
		return
	}
	scanType := strings.TrimSpace(c.Query("type"))
	if scanType != "" && scanType != models.ScanTypeDaily && scanType != models.ScanTypeTest {
		Error(c, http.StatusBadRequest, "invalid scan type", nil)
		return
	}
	ctx := c.Request.Context()
	scan, err := h.Scans.LatestScan(ctx, scanType)
	if err != nil {
		storeError(c, err)
		return
	}
	if scan == nil {
		Error(c, http.StatusNotFound, "no scan yet", nil)
		return
	}
	items, err := h.Scans.ScanTokens(ctx, scan.ID)
	if err != nil {
		storeError(c, err)
		return
	}
	Ok(c, gin.H{
		"scan":   toScanView(*scan),
		"tokens": toScanTokenViews(items),
	}, nil)
}

// @Summary Ranked tokens of one scan
// @Tags scans
// @Param id path int true "scan id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/scans/{id}/tokens [get]
func (h *ScansHandler) tokens(c *gin.Context) {
	if h.Scans == nil {
		Error(c, http.StatusInternalServerError, "scan service unavailable", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid scan id", nil)
		return
	}
	items, err := h.Scans.ScanTokens(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(c, http.StatusNotFound, "scan not found", nil)
			return
		}
		storeError(c, err)
		return
	}
	Ok(c, toScanTokenViews(items), nil)
}

// @Summary Delete every test scan
// @Tags scans
// @Success 200 {object} apiResponse
// @Router /api/scans/test [delete]
func (h *ScansHandler) clearTest(c *gin.Context) {
	if h.Scans == nil {
		Error(c, http.StatusInternalServerError, "scan service unavailable", nil)
		return
	}
	n, err := h.Scans.ClearTestScans(c.Request.Context())
	if err != nil {
		storeError(c, err)
		return
	}
	Ok(c, gin.H{"deleted": n}, nil)
}
