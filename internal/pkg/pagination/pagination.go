// Package pagination reads page/size query parameters and applies them to
// gorm queries.
package pagination

import (
	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query is a 1-based page request.
type Query struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

// FromContext binds ?page=&size= and clamps the result. Malformed values fall
// back to the defaults instead of failing the request.
func FromContext(c *gin.Context) Query {
	var q Query
	if err := c.ShouldBindQuery(&q); err != nil {
		q = Query{}
	}
	return q.Normalize()
}

// Normalize clamps page and size into their valid ranges.
func (q Query) Normalize() Query {
	switch {
	case q.Size == 0:
		q.Size = DefaultSize
	case q.Size < 0:
		q.Size = DefaultSize
	case q.Size > MaxSize:
		q.Size = MaxSize
	}
	if q.Page < DefaultPage {
		q.Page = DefaultPage
	}
	return q
}

// Offset is the number of rows skipped before this page.
func (q Query) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.Size
}

// Paginate counts the rows matched by db and loads the requested page into
// dest. A page past the end yields an empty slice.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	q = q.Normalize()

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}
	meta := response.NewPagination(total, q.Page, q.Size)
	if int64(q.Offset()) >= total {
		*dest = []T{}
		return meta, nil
	}
	if err := db.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}
	return meta, nil
}
