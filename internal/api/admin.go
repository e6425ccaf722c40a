package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type foreignKeysReq struct {
	Enabled *bool `json:"enabled"`
}

// POST /api/admin/recreate — удалить все таблицы и создать заново.
// Доступно только при Server.AllowRecreate.
func AdminRecreateHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.AllowRecreate {
			c.JSON(http.StatusForbidden, gin.H{"error": "recreate is disabled"})
			return
		}
		if err := s.facade.Recreate(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		log.Printf("admin: schema recreated (%d entities)", s.reg.Len())
		c.JSON(http.StatusOK, gin.H{"ok": true, "entities": s.reg.Len()})
	}
}

// POST /api/admin/foreign_keys {"enabled": false}
func AdminForeignKeysHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req foreignKeysReq
		if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `expected {"enabled": true|false}`})
			return
		}
		if err := s.facade.SetForeignKeys(c.Request.Context(), *req.Enabled); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "foreignKeys": *req.Enabled})
	}
}
