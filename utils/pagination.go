package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pagination is the page window read from ?page= and ?limit=
type Pagination struct {
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

// NewPagination reads the window from the query, clamping bad or oversized values
func NewPagination(c *gin.Context) *Pagination {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = DefaultPaginationLimit
	}
	if limit > MaxPaginationLimit {
		limit = MaxPaginationLimit
	}
	return &Pagination{Page: page, Limit: limit}
}

// SetTotal records the row count and derives the last page
func (p *Pagination) SetTotal(total int64) {
	p.Total = total
	p.LastPage = int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// Apply limits a gorm query to the current page
func (p *Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

// SendPaginatedResponse sends one page of items with its window
func SendPaginatedResponse(c *gin.Context, message string, items interface{}, p *Pagination) {
	Success(c, message, gin.H{
		"items":      items,
		"pagination": p,
	})
}
