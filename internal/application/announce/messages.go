// Package announce reúne los textos que se leen en voz alta al operador.
package announce

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Avisos de cambio de modo.
const (
	EnteringAdd     = "Modo compra"
	EnteringConsume = "Modo consumo"
	EnteringInfo    = "Modo consulta de existencias, escanea el producto."
	IdleTimeout     = "Tiempo de espera agotado, vuelvo al modo consumo."
)

// NotFoundAnywhere mismo texto para catálogo caído, ficha rota o producto inexistente.
const NotFoundAnywhere = "Producto no encontrado en ningún sitio, añádelo manualmente"

func StockInfo(name string, stock decimal.Decimal) string {
	return fmt.Sprintf("%s, tienes %s en existencias", name, stock.String())
}

func NotInInventory(barcode string) string {
	return fmt.Sprintf("El producto con código %s no está en el inventario, añádelo manualmente", barcode)
}

func Added(name string, amount decimal.Decimal) string {
	return fmt.Sprintf("%s aumentado en %s", name, amount.String())
}

func AddFailed(name string) string {
	return fmt.Sprintf("No se pudo aumentar %s", name)
}

func Consumed(name string, remaining decimal.Decimal) string {
	return fmt.Sprintf("Consumido %s. Quedan %s", name, remaining.String())
}

func ConsumeFailed(name string) string {
	return fmt.Sprintf("No se pudo descontar %s", name)
}

func NothingToConsume(name string) string {
	return fmt.Sprintf("No tienes %s, no se puede descontar", name)
}

func CatalogFound(name string) string {
	return fmt.Sprintf("Encontrado en Open Food Facts como %s", name)
}

func Registered(name string) string {
	return fmt.Sprintf("%s añadido al inventario", name)
}

func RegistrationFailed(name string) string {
	return fmt.Sprintf("No se pudo dar de alta %s, añádelo manualmente", name)
}
