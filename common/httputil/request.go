package httputil

import (
	"net/http"
	"strconv"
	"strings"
)

// GetClientIP returns the originating client address, preferring proxy
// headers over the socket address. X-Forwarded-For may carry a chain of
// addresses; the first entry is the client.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// ParseIntParam parses an integer query parameter, falling back to
// defaultVal when the parameter is empty or malformed.
func ParseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return defaultVal
}

// Pagination carries page/limit parameters for list endpoints.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total,omitempty"`
}

// ParsePagination reads page and limit from the query string, clamping
// limit to maxLimit and page to a minimum of 1.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	page := ParseIntParam(r.URL.Query().Get("page"), 1)
	limit := ParseIntParam(r.URL.Query().Get("limit"), defaultLimit)

	if limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if page < 1 {
		page = 1
	}

	return Pagination{Page: page, Limit: limit}
}

// Offset converts the pagination to a SQL OFFSET value.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
