package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echodraft/echodraft-backend/internal/observability"
)

// GET /metrics
func Metrics(c *gin.Context) {
	var buf bytes.Buffer
	if err := observability.WriteAll(&buf); err != nil {
		c.String(http.StatusInternalServerError, "metrics unavailable")
		return
	}
	c.Data(http.StatusOK, "text/plain; version=0.0.4", buf.Bytes())
}
