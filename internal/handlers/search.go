package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AmitJPatil13/ESahayak-Task/internal/search"
)

// SearchHandler serves full-text buyer search via Meilisearch.
type SearchHandler struct {
	search *search.SearchClient
}

func NewSearchHandler(sc *search.SearchClient) *SearchHandler {
	return &SearchHandler{search: sc}
}

// Search runs a full-text query over indexed buyers.
func (h *SearchHandler) Search(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not configured"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	buyers, err := h.search.Search(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":  query,
		"buyers": buyers,
		"count":  len(buyers),
	})
}
