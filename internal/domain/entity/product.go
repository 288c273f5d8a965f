package entity

import (
	"github.com/shopspring/decimal"
)

// ProductRecord es el resultado de una búsqueda por código de barras en el backend de inventario.
// No se cachea: se vuelve a consultar en cada escaneo que lo necesite.
type ProductRecord struct {
	ID                       string
	Name                     string
	StockAmount              decimal.Decimal // cantidad actual en unidades de stock
	PurchaseConversionFactor decimal.Decimal // unidades de stock por unidad de compra
}

// AvailableStock devuelve el stock nunca negativo; las decisiones de consumo usan este valor.
func (p *ProductRecord) AvailableStock() decimal.Decimal {
	if p.StockAmount.IsNegative() {
		return decimal.Zero
	}
	return p.StockAmount
}

// PurchaseAmount cantidad a sumar al registrar una compra (factor de conversión, mínimo 1 si viene vacío).
func (p *ProductRecord) PurchaseAmount() decimal.Decimal {
	if !p.PurchaseConversionFactor.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return p.PurchaseConversionFactor
}

// ProductDraft campos para dar de alta un producto nuevo en el backend.
type ProductDraft struct {
	Name                    string
	Description             string
	LocationID              int
	QuantityUnitPurchaseID  int
	QuantityUnitStockID     int
	DefaultBestBeforeDays   int // -1 = sin caducidad
	MinStockAmount          decimal.Decimal
	TreatOpenedAsOutOfStock bool
}

// CatalogProduct producto devuelto por el catálogo externo (Open Food Facts).
type CatalogProduct struct {
	Code string
	Name string
}
