package ports

import (
	"context"

	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// CatalogClient puerto de salida hacia el catálogo público de productos.
// Devuelve domain.ErrNotFound si el catálogo no tiene el código y domain.ErrTransport
// si la consulta no pudo completarse; el resolver trata ambos igual ante el usuario.
type CatalogClient interface {
	Lookup(ctx context.Context, barcode string) (*entity.CatalogProduct, error)
}
