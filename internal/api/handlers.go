package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tabula/internal/meta"
	"tabula/internal/persist"
	"tabula/internal/registry"
)

// respondError пишет ошибку фасада в формате {"errors": [...]}.
func respondError(c *gin.Context, err error) {
	status, errs := errorResponse(err)
	c.JSON(status, gin.H{"errors": errs})
}

// document — представление записи для ответа. Blob-поля заменяются
// размером и ссылкой на скачивание.
func (s *Server) document(d *registry.EntityDescriptor, inst meta.Instance) (map[string]any, error) {
	doc, err := s.m.Document(inst)
	if err != nil {
		return nil, err
	}
	id := doc[d.PrimaryKey.Field]
	for _, col := range d.Columns {
		if col.Kind != meta.KindBlob {
			continue
		}
		b, _ := doc[col.Field].([]byte)
		if b == nil {
			continue
		}
		doc[col.Field] = gin.H{
			"size": len(b),
			"href": fmt.Sprintf("/api/%s/%v/_blob/%s", d.Name, id, col.Name),
		}
	}
	return doc, nil
}

// POST /api/:entity
func CreateHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := s.resolveEntity(c)
		if !ok {
			return
		}

		var obj map[string]any
		if err := c.ShouldBindJSON(&obj); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		row, ers := bodyToRow(d, obj)
		if len(ers) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"errors": ers})
			return
		}

		inst, err := s.m.FromRow(row, d.Name)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := s.facade.Insert(c.Request.Context(), inst)
		if err != nil {
			respondError(c, err)
			return
		}
		doc, err := s.document(d, inst)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Location", fmt.Sprintf("/api/%s/%d", d.Name, id))
		c.JSON(http.StatusCreated, doc)
	}
}

// POST /api/:entity/_bulk — все записи в одной транзакции.
func BulkCreateHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := s.resolveEntity(c)
		if !ok {
			return
		}

		var objs []map[string]any
		if err := c.ShouldBindJSON(&objs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON array"})
			return
		}
		if len(objs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Empty batch"})
			return
		}

		insts := make([]meta.Instance, 0, len(objs))
		var all []FieldError
		for i, obj := range objs {
			row, ers := bodyToRow(d, obj)
			for _, e := range ers {
				e.Field = strconv.Itoa(i) + "." + e.Field
				all = append(all, e)
			}
			if len(ers) > 0 {
				continue
			}
			inst, err := s.m.FromRow(row, d.Name)
			if err != nil {
				_, fe := errorResponse(err)
				for _, e := range fe {
					e.Field = strconv.Itoa(i) + "." + e.Field
					all = append(all, e)
				}
				continue
			}
			insts = append(insts, inst)
		}
		if len(all) > 0 {
			c.JSON(statusForErrors(all), gin.H{"errors": all})
			return
		}

		if err := s.facade.InsertBatch(c.Request.Context(), insts); err != nil {
			respondError(c, err)
			return
		}
		out := make([]map[string]any, 0, len(insts))
		for _, inst := range insts {
			doc, err := s.document(d, inst)
			if err != nil {
				respondError(c, err)
				return
			}
			out = append(out, doc)
		}
		c.JSON(http.StatusCreated, out)
	}
}

// GET /api/:entity
func ListHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := s.resolveEntity(c)
		if !ok {
			return
		}
		page := parseListParams(c.Request.URL.Query())

		items, total, err := s.facade.List(c.Request.Context(), d.Name, page)
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]map[string]any, 0, len(items))
		for _, inst := range items {
			doc, err := s.document(d, inst)
			if err != nil {
				respondError(c, err)
				return
			}
			out = append(out, doc)
		}
		c.Header("X-Total-Count", strconv.Itoa(total))
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/:entity/_count
func CountHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := s.resolveEntity(c)
		if !ok {
			return
		}
		_, total, err := s.facade.List(c.Request.Context(), d.Name, persist.Page{Limit: 1})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": total})
	}
}

// load читает запись по :entity/:id; при ошибке ответ уже записан.
func (s *Server) load(c *gin.Context) (*registry.EntityDescriptor, meta.Instance, bool) {
	d, ok := s.resolveEntity(c)
	if !ok {
		return nil, nil, false
	}
	id, ok := parseID(c)
	if !ok {
		return nil, nil, false
	}
	inst, err := s.facade.Get(c.Request.Context(), d.Name, id)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	return d, inst, true
}

// GET /api/:entity/:id
func GetOneHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, inst, ok := s.load(c)
		if !ok {
			return
		}
		doc, err := s.document(d, inst)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// PUT /api/:entity/:id — полная замена; отсутствующие поля становятся пустыми.
// PATCH /api/:entity/:id — меняются только переданные поля.
func UpdateHandler(s *Server, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, inst, ok := s.load(c)
		if !ok {
			return
		}

		var obj map[string]any
		if err := c.ShouldBindJSON(&obj); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		row, ers := bodyToRow(d, obj)
		if len(ers) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"errors": ers})
			return
		}
		if !partial {
			// blob через тело не приходит: сохраняем текущее значение
			current, err := s.m.ToRow(inst)
			if err != nil {
				respondError(c, err)
				return
			}
			for _, col := range d.Columns {
				if col.Kind == meta.KindBlob {
					row[col.Name] = current[col.Name]
				}
			}
		}

		if err := s.m.Apply(inst, row, partial); err != nil {
			respondError(c, err)
			return
		}
		if err := s.facade.Update(c.Request.Context(), inst); err != nil {
			respondError(c, err)
			return
		}
		doc, err := s.document(d, inst)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// DELETE /api/:entity/:id
func DeleteHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, inst, ok := s.load(c)
		if !ok {
			return
		}
		if err := s.facade.Delete(c.Request.Context(), inst); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
