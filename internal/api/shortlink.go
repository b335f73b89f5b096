package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aJLaxzzz/foodgram-st/internal/service"
	"github.com/aJLaxzzz/foodgram-st/internal/telemetry"
)

// ShortLinkHandler redirects /s/{code} to the recipe page.
type ShortLinkHandler struct {
	links service.IShortLinkService
}

func NewShortLinkHandler(links service.IShortLinkService) *ShortLinkHandler {
	return &ShortLinkHandler{links: links}
}

func (h *ShortLinkHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/s/:code", h.Redirect)
}

func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	id, err := h.links.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			telemetry.ShortLinkResolutions.WithLabelValues("miss").Inc()
		}
		respondError(c, err)
		return
	}
	telemetry.ShortLinkResolutions.WithLabelValues("hit").Inc()
	c.Redirect(http.StatusFound, fmt.Sprintf("/recipes/%d", id))
}
