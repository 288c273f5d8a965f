package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrTransport          = errors.New("fallo de transporte en llamada externa")
	ErrUnexpectedStatus   = errors.New("respuesta HTTP inesperada")
	ErrRegistrationFailed = errors.New("registro de producto fallido")
	ErrInvalidInput       = errors.New("entrada inválida")
)
