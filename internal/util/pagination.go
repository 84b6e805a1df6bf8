package util

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Pagination page/limit 转换为 offset/limit
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p Pagination) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

func NewPagination(page, limit int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Pagination{Page: page, Limit: limit}
}

func GetPagination(c *gin.Context) Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	return NewPagination(page, limit)
}

// Sort 排序参数，字段名只允许白名单内的列
type Sort struct {
	Column string
	Desc   bool
}

func (s Sort) String() string {
	if s.Desc {
		return s.Column + " DESC"
	}
	return s.Column + " ASC"
}

// ParseSort 解析 "field" 或 "-field" 形式的排序参数
func ParseSort(raw string, allowed map[string]string, fallback Sort) Sort {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	desc := false
	if strings.HasPrefix(raw, "-") {
		desc = true
		raw = raw[1:]
	}
	if order := strings.ToLower(raw); strings.HasSuffix(order, ":desc") {
		desc = true
		raw = raw[:len(raw)-5]
	} else if strings.HasSuffix(order, ":asc") {
		raw = raw[:len(raw)-4]
	}
	column, ok := allowed[raw]
	if !ok {
		return fallback
	}
	return Sort{Column: column, Desc: desc}
}
