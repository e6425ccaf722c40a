package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tabula/internal/ddl"
)

// ===== META HANDLERS =====

type metaEntityListItem struct {
	Entity string `json:"entity"`
	Table  string `json:"table"`
}

func MetaListHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := make([]metaEntityListItem, 0, s.reg.Len())
		for _, d := range s.reg.Entities() {
			out = append(out, metaEntityListItem{Entity: d.Name, Table: d.Table})
		}
		c.JSON(http.StatusOK, out)
	}
}

type metaColumn struct {
	Name     string   `json:"name"`
	Field    string   `json:"field"`
	Kind     string   `json:"kind"`
	Nullable bool     `json:"nullable"`
	Length   int      `json:"length,omitempty"`
	Enum     []string `json:"enum,omitempty"`
	Ref      string   `json:"ref,omitempty"`
	RefField string   `json:"refField,omitempty"`
}

type metaRelation struct {
	Field  string `json:"field"`
	Role   string `json:"role"`
	Target string `json:"target"`
}

type metaEntity struct {
	Entity     string         `json:"entity"`
	Table      string         `json:"table"`
	PrimaryKey string         `json:"primaryKey"`
	Order      string         `json:"order"`
	Columns    []metaColumn   `json:"columns"`
	Relations  []metaRelation `json:"relations,omitempty"`
}

func MetaEntityHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := s.resolveEntity(c)
		if !ok {
			return
		}

		cols := make([]metaColumn, 0, len(d.Columns))
		for _, col := range d.Columns {
			mc := metaColumn{
				Name:     col.Name,
				Field:    col.Field,
				Kind:     col.Kind.String(),
				Nullable: col.Nullable,
				Length:   col.Length,
				Enum:     append([]string(nil), col.EnumValues...),
				Ref:      col.Target,
			}
			if fk, ok := d.ForeignKey(col.Name); ok {
				mc.RefField = fk.ReferencedField
			}
			cols = append(cols, mc)
		}
		var rels []metaRelation
		for _, r := range d.Relations {
			rels = append(rels, metaRelation{Field: r.Field, Role: r.Role.String(), Target: r.Target})
		}

		c.JSON(http.StatusOK, metaEntity{
			Entity:     d.Name,
			Table:      d.Table,
			PrimaryKey: d.PrimaryKey.Field,
			Order:      string(d.PrimaryKey.Order),
			Columns:    cols,
			Relations:  rels,
		})
	}
}

func MetaCatalogHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		dir, ok := s.catalog[name]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Catalog not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"name":  name,
			"items": dir.Items,
		})
	}
}

// GET /api/schema?dialect=sqlite|postgres — DDL-скрипт текстом.
// Без параметра берётся диалект хранилища.
func SchemaHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		dialect := s.facade.Dialect()
		if name := c.Query("dialect"); name != "" {
			d, err := ddl.ByName(name)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			dialect = d
		}
		script, err := ddl.Create(s.reg, dialect)
		if err != nil {
			respondError(c, err)
			return
		}
		c.String(http.StatusOK, script.String())
	}
}
