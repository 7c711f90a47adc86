package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"warehouse-sync-agent/internal/gateway"
	"warehouse-sync-agent/internal/remote"

	"github.com/gin-gonic/gin"
)

/*
*
ProxyRead handles GET /api/remote/*path
Reads the remote API through the gateway: fresh cache first, then the network,
then stale cache if the network is unreachable.
Query param fresh=1 skips the cache lookup; every other query param is forwarded.
*/
func (h *Handler) ProxyRead(c *gin.Context) {
	params := c.Request.URL.Query()
	fresh, _ := strconv.ParseBool(params.Get("fresh"))
	params.Del("fresh")
	params.Del("token")

	resp, err := h.Gateway.Read(c.Request.Context(), gateway.ReadRequest{
		Endpoint: c.Param("path"),
		Params:   params,
		UseCache: gateway.Bool(!fresh),
	})
	if err != nil {
		var httpErr *remote.HTTPError
		if errors.As(err, &httpErr) {
			c.JSON(httpErr.StatusCode, gin.H{"error": httpErr.Message, "code": httpErr.Code})
			return
		}
		h.logger().Warn("remote read failed", "path", c.Param("path"), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Remote API is unreachable and no cached copy exists"})
		return
	}

	c.Header("X-From-Cache", strconv.FormatBool(resp.FromCache))
	c.Header("X-Cache-Stale", strconv.FormatBool(resp.Stale))
	if !resp.StoredAt.IsZero() {
		c.Header("X-Cached-At", resp.StoredAt.UTC().Format(time.RFC3339))
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Body)
}
