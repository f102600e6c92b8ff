package httpresp

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Collection writes {"data": {key: items}} plus any top-level extras.
// A nil slice is written as [].
func Collection[T any](c *gin.Context, key string, items []T, extra gin.H) {
	if items == nil {
		items = []T{}
	}
	body := gin.H{"data": gin.H{key: items}}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// List writes a bare JSON array, never null.
func List[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}
