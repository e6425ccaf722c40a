package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"tabula/internal/marshal"
	"tabula/internal/meta"
	"tabula/internal/registry"
)

// MaxBlobSize — предел размера загружаемого файла.
const MaxBlobSize = 32 << 20

// blobColumn проверяет, что :column — blob-колонка сущности.
func blobColumn(c *gin.Context, d *registry.EntityDescriptor) (registry.ColumnDescriptor, bool) {
	name := c.Param("column")
	col, ok := d.Column(name)
	if !ok {
		col, ok = d.ColumnByField(name)
	}
	if !ok || col.Kind != meta.KindBlob {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field is not a blob column"})
		return col, false
	}
	return col, true
}

// POST /api/:entity/:id/_blob/:column (multipart, поле "file")
func UploadBlobHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, inst, ok := s.load(c)
		if !ok {
			return
		}
		col, ok := blobColumn(c, d)
		if !ok {
			return
		}

		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart file not found (field name 'file')"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, MaxBlobSize+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read error", "details": err.Error()})
			return
		}
		if len(data) > MaxBlobSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", MaxBlobSize)})
			return
		}

		if err := s.m.Apply(inst, marshal.Row{col.Name: data}, true); err != nil {
			respondError(c, err)
			return
		}
		if err := s.facade.Update(c.Request.Context(), inst); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"column": col.Name,
			"size":   len(data),
			"mime":   mimetype.Detect(data).String(),
		})
	}
}

// GET /api/:entity/:id/_blob/:column
func DownloadBlobHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, inst, ok := s.load(c)
		if !ok {
			return
		}
		col, ok := blobColumn(c, d)
		if !ok {
			return
		}

		row, err := s.m.ToRow(inst)
		if err != nil {
			respondError(c, err)
			return
		}
		data, _ := row[col.Name].([]byte)
		if data == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blob is empty"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s"`, d.Name, col.Name))
		c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
	}
}
