// api/names.go
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tabula/internal/registry"
)

// resolveEntity находит сущность по :entity (регистронезависимо).
// При неудаче пишет 404 и возвращает false.
func (s *Server) resolveEntity(c *gin.Context) (*registry.EntityDescriptor, bool) {
	d, ok := s.reg.Resolve(c.Param("entity"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
		return nil, false
	}
	return d, true
}

// parseID читает :id; идентификатор — положительное целое.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": []FieldError{ferr(ErrTypeMismatch, "id", "id must be a positive integer")},
		})
		return 0, false
	}
	return id, true
}
