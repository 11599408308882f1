package handlers

import (
	"net/http"
	"socialwall/internal/apperr"
	"socialwall/internal/services"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feed *services.FeedService
}

func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

func (h *FeedHandler) Feed(c *gin.Context) {
	posts, count, err := h.feed.Feed(c.Request.Context(), currentUser(c).ID, pagination(c))
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	resp := listResponse(posts, count)
	resp["feed"] = resp["results"]
	c.JSON(http.StatusOK, resp)
}

func (h *FeedHandler) Wall(c *gin.Context) {
	wallID, err := paramID(c, "wallId")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	posts, count, err := h.feed.Wall(c.Request.Context(), currentUser(c).ID, wallID, pagination(c))
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(posts, count))
}
