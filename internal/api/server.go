package api

import (
	"tabula/internal/marshal"
	"tabula/internal/persist"
	"tabula/internal/reference"
	"tabula/internal/registry"
)

// Server — состояние HTTP-слоя: фасад хранения и справочники enum.
type Server struct {
	facade  *persist.Facade
	reg     *registry.Registry
	m       *marshal.Marshaler
	catalog reference.Catalog

	// AllowRecreate открывает POST /api/admin/recreate.
	AllowRecreate bool
}

func NewServer(f *persist.Facade, catalog reference.Catalog) *Server {
	if catalog == nil {
		catalog = reference.Catalog{}
	}
	return &Server{facade: f, reg: f.Registry(), m: f.Marshaler(), catalog: catalog}
}
