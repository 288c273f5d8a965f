package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// InventoryClient puerto de salida hacia el backend de inventario (Grocy).
// Cada operación es una única llamada HTTP síncrona, sin reintentos.
type InventoryClient interface {
	// LookupByBarcode devuelve domain.ErrNotFound si el backend no conoce el código.
	// Los fallos de red o estados inesperados vienen envueltos en domain.ErrTransport
	// o domain.ErrUnexpectedStatus.
	LookupByBarcode(ctx context.Context, barcode string) (*entity.ProductRecord, error)
	AddStock(ctx context.Context, productID string, amount decimal.Decimal) ([]entity.StockLogEntry, error)
	ConsumeStock(ctx context.Context, productID string, amount decimal.Decimal, spoiled bool) ([]entity.StockLogEntry, error)
	// CreateProduct devuelve el id del objeto creado.
	CreateProduct(ctx context.Context, draft entity.ProductDraft) (string, error)
	AttachBarcode(ctx context.Context, barcode, productID string) error
}
