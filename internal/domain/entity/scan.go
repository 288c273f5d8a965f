package entity

import "time"

// Orígenes conocidos de un escaneo.
const (
	ScanSourceDevice = "device" // lector por teclado/serie o stdin
	ScanSourceMQTT   = "mqtt"
	ScanSourceHTTP   = "http" // inyectado por la API de control
)

// ScanEvent un código leído por un escáner. Efímero: se consume una única vez.
type ScanEvent struct {
	ID          string
	ScannerGUID string
	Barcode     string
	Source      string
	Timestamp   time.Time
}
