package pagination

import (
	"strconv"

	"taxdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a page request after clamping
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads ?page= and ?limit=. Garbage falls back to the defaults, limit is capped at MaxLimit.
func Parse(c *gin.Context) Params {
	return New(queryInt(c, "page", DefaultPage), queryInt(c, "limit", DefaultLimit))
}

func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// Meta builds the response metadata for a listing of total rows
func (p Params) Meta(total int64) response.Meta {
	pages := 0
	if total > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return response.Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
