package entity

import "github.com/shopspring/decimal"

// Tipos de transacción de stock que entiende el backend de inventario.
const (
	TransactionTypePurchase = "purchase" // entrada por compra (modo añadir)
	TransactionTypeConsume  = "consume"  // salida por consumo (modo consumo)
)

// StockLogEntry entrada del log de stock devuelta por el backend tras sumar o consumir.
// El backend puede devolver varias (una por lote afectado).
type StockLogEntry struct {
	ID              string
	ProductID       string
	Amount          decimal.Decimal
	TransactionType string
	TransactionID   string
}
