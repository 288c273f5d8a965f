package ports

import (
	"context"

	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// ScanHandler recibe cada código leído, en orden de llegada.
type ScanHandler func(entity.ScanEvent)

// ScanSource origen externo de escaneos (lector USB/serie, MQTT...).
// OnScan se registra una sola vez antes de Run; Run bloquea hasta que ctx se cancela
// o el origen se agota.
type ScanSource interface {
	Name() string
	OnScan(handler ScanHandler)
	Run(ctx context.Context) error
}
