package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carter2099/best-bets/internal/repository"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// storeError maps a repository error onto the envelope.
func storeError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		Error(c, http.StatusNotFound, "not found", nil)
		return
	}
	Error(c, http.StatusBadGateway, err.Error(), nil)
}
