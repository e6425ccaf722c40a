// api/router.go
package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter собирает маршруты API.
func NewRouter(s *Server) *gin.Engine {
	r := gin.Default()

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/meta", MetaListHandler(s))
		apiGroup.GET("/meta/:entity", MetaEntityHandler(s))
		apiGroup.GET("/meta/_enums/:name", MetaCatalogHandler(s))
		apiGroup.GET("/schema", SchemaHandler(s))
		apiGroup.POST("/admin/recreate", AdminRecreateHandler(s))
		apiGroup.POST("/admin/foreign_keys", AdminForeignKeysHandler(s))

		// статические "служебные" маршруты — СНАЧАЛА
		apiGroup.GET("/:entity/_count", CountHandler(s))
		apiGroup.POST("/:entity/_bulk", BulkCreateHandler(s))
		apiGroup.POST("/:entity/:id/_blob/:column", UploadBlobHandler(s))
		apiGroup.GET("/:entity/:id/_blob/:column", DownloadBlobHandler(s))

		// обычные CRUD
		apiGroup.POST("/:entity", CreateHandler(s))
		apiGroup.GET("/:entity", ListHandler(s))
		apiGroup.GET("/:entity/:id", GetOneHandler(s))
		apiGroup.PUT("/:entity/:id", UpdateHandler(s, false))
		apiGroup.PATCH("/:entity/:id", UpdateHandler(s, true))
		apiGroup.DELETE("/:entity/:id", DeleteHandler(s))
	}
	return r
}

func RunServer(addr string, s *Server) error {
	return NewRouter(s).Run(addr)
}
