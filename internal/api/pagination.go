package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

// Pagination holds the page size defaults.
type Pagination struct {
	DefaultLimit int
	MaxLimit     int
}

// parsePage reads ?page and ?limit. A malformed page writes a 404 and
// returns false.
func (p Pagination) parsePage(c *gin.Context) (types.PageRequest, bool) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
			return types.PageRequest{}, false
		}
		page = n
	}

	limit := p.DefaultLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	return types.PageRequest{Page: page, Limit: limit}, true
}

// writePage writes the paginated envelope. A page past the end is a 404.
func writePage[T any](c *gin.Context, page types.PageRequest, results []T, count int64) {
	if page.Page > 1 && len(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
		return
	}
	if results == nil {
		results = []T{}
	}

	out := types.Page[T]{Count: count, Results: results}
	if int64(page.Page*page.Limit) < count {
		next := pageURL(c, page.Page+1)
		out.Next = &next
	}
	if page.Page > 1 {
		prev := pageURL(c, page.Page-1)
		out.Previous = &prev
	}
	c.JSON(http.StatusOK, out)
}

func pageURL(c *gin.Context, page int) string {
	u := *c.Request.URL
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return absoluteURL(c, u.RequestURI())
}

// absoluteURL prefixes path with the scheme and host the client used.
func absoluteURL(c *gin.Context, path string) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	} else if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + path
}

// parseID reads a positive integer path parameter; anything else is a 404.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return uint(id), true
}

// parseFlag reads a 0/1 (or false/true) query parameter; absent or
// malformed values mean "no filter".
func parseFlag(c *gin.Context, name string) *bool {
	v, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return nil
	}
	return &v
}

// recipesLimit reads ?recipes_limit; absent or invalid means no limit.
func recipesLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
