package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/filevault-backend/internal/http/response"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
)

type SearchHandler struct {
	log    *logger.Logger
	search services.SearchService
}

func NewSearchHandler(log *logger.Logger, search services.SearchService) *SearchHandler {
	return &SearchHandler{
		log:    log.With("handler", "SearchHandler"),
		search: search,
	}
}

func (h *SearchHandler) Search(c *gin.Context) {
	filters := services.SearchFilters{
		Tags:       splitParam(c.Query("tags")),
		Types:      splitParam(c.Query("types")),
		Categories: splitParam(c.Query("categories")),
	}

	if v := strings.TrimSpace(c.Query("after")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_after", err)
			return
		}
		filters.After = &t
	}
	if v := strings.TrimSpace(c.Query("before")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_before", err)
			return
		}
		filters.Before = &t
	}
	if v := strings.TrimSpace(c.Query("minSize")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_min_size", err)
			return
		}
		filters.MinSize = &n
	}
	if v := strings.TrimSpace(c.Query("maxSize")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_max_size", err)
			return
		}
		filters.MaxSize = &n
	}

	results, err := h.search.Search(c.Request.Context(), c.Query("q"), filters)
	if err != nil {
		h.log.Error("Search failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"results": results, "count": len(results)})
}

func splitParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
