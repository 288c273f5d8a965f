package entity

import "fmt"

// Mode contexto de interpretación de los escaneos elegido por el operador.
// El valor cero es ModeConsume, que también es el modo inicial.
type Mode int

const (
	ModeConsume Mode = iota // cada escaneo descuenta una unidad
	ModeAdd                 // cada escaneo suma una unidad de compra
	ModeInfo                // el siguiente escaneo solo consulta stock
)

// String devuelve el nombre estable del modo (usado en logs y en la API de control).
func (m Mode) String() string {
	switch m {
	case ModeConsume:
		return "consume"
	case ModeAdd:
		return "add"
	case ModeInfo:
		return "info"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
