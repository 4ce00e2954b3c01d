package ginutil

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamID extracts a positive integer id from path parameters
func ParamID(c *gin.Context, key string) (int, bool) {
	id, err := strconv.Atoi(c.Param(key))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Paginate clamps page/limit and returns the [start, end) slice bounds for total items
func Paginate(page, limit, total, maxLimit int) (p, l, start, end int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	start = (page - 1) * limit
	if start > total {
		start = total
	}
	end = start + limit
	if end > total {
		end = total
	}
	return page, limit, start, end
}
