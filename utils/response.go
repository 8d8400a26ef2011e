package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func RespondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// Pagination reads page/limit query params. limit is capped at 100.
func Pagination(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return page, limit, (page - 1) * limit
}

func PageMeta(page, limit int, total int64) gin.H {
	return gin.H{
		"currentPage": page,
		"limit":       limit,
		"total":       total,
		"totalPages":  (int(total) + limit - 1) / limit,
	}
}

// ContextUUID parses a uuid stored in the gin context by AuthMiddleware.
func ContextUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	raw := c.GetString(key)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
