// Package response writes the JSON envelopes shared by every handler.
package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

// Pagination describes one page of a list response.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// NewPagination derives page counts from total rows and the page size.
func NewPagination(total int64, page, size int) Pagination {
	size = max(size, 1)
	pages := int(total / int64(size))
	if total%int64(size) != 0 {
		pages++
	}
	return Pagination{
		Total:       total,
		CurrentPage: page,
		TotalPage:   pages,
		Size:        size,
		HasNextPage: page < pages,
	}
}

type listBody struct {
	Data interface{} `json:"data"`
}

type pagedBody struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type errorBody struct {
	OK      int    `json:"ok"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// OK writes 200. Slices are wrapped as {"data": [...]} so list endpoints
// always return an object.
func OK(c *gin.Context, data interface{}) {
	if data != nil && reflect.TypeOf(data).Kind() == reflect.Slice {
		c.JSON(http.StatusOK, listBody{Data: data})
		return
	}
	c.JSON(http.StatusOK, data)
}

// Paged writes 200 with data and its page metadata.
func Paged(c *gin.Context, data interface{}, p Pagination) {
	c.JSON(http.StatusOK, pagedBody{Data: data, Pagination: p})
}

func Created(c *gin.Context, data interface{})  { c.JSON(http.StatusCreated, data) }
func Accepted(c *gin.Context, data interface{}) { c.JSON(http.StatusAccepted, data) }
func NoContent(c *gin.Context)                  { c.Status(http.StatusNoContent) }

// Error aborts the chain with {"ok":0,"code":status,"message":...}.
func Error(c *gin.Context, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, errorBody{OK: 0, Code: status, Message: message})
}

func BadRequest(c *gin.Context, message string)  { Error(c, http.StatusBadRequest, message) }
func NotFoundMsg(c *gin.Context, message string) { Error(c, http.StatusNotFound, message) }
func Conflict(c *gin.Context, message string)    { Error(c, http.StatusConflict, message) }
func UnprocessableEntity(c *gin.Context, message string) {
	Error(c, http.StatusUnprocessableEntity, message)
}

func Unauthorized(c *gin.Context) { Error(c, http.StatusUnauthorized, "missing or invalid token") }

func TooManyRequests(c *gin.Context) {
	Error(c, http.StatusTooManyRequests, "too many requests, slow down")
}

// InternalError reports err as a 500.
func InternalError(c *gin.Context, err error) {
	Error(c, http.StatusInternalServerError, err.Error())
}

// BadGateway reports a failed upstream call such as the model provider or
// the scraping service.
func BadGateway(c *gin.Context, err error) {
	Error(c, http.StatusBadGateway, err.Error())
}
