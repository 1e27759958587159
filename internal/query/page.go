// Package query turns the admin table's page/limit/sort query parameters into gorm scopes.
package query

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const MaxLimit = 100

type Page struct {
	Page  int
	Limit int
	Sort  string
	Desc  bool
}

func PageFromCtx(c *fiber.Ctx, defaultLimit int) Page {
	p := Page{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", defaultLimit),
		Sort:  strings.TrimSpace(c.Query("sort")),
		Desc:  strings.EqualFold(c.Query("order"), "desc"),
	}
	return p.normalize(defaultLimit)
}

func (p Page) normalize(defaultLimit int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

func (p Page) Apply(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.Limit)
}

// OrderBy sorts by p.Sort when it is whitelisted in allowed (json key -> column), else by fallback.
func (p Page) OrderBy(db *gorm.DB, allowed map[string]string, fallback string, fallbackDesc bool) *gorm.DB {
	col, desc := fallback, fallbackDesc
	if c, ok := allowed[p.Sort]; ok {
		col, desc = c, p.Desc
	}
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc})
}

type PageResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func NewPageResponse[T any](data []T, total int64, p Page) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	return PageResponse[T]{Data: data, Total: total, Page: p.Page, Limit: p.Limit}
}
