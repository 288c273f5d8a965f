package dto

import "time"

// SubmitScanRequest body para POST /api/scans.
type SubmitScanRequest struct {
	Barcode string `json:"barcode"`
	GUID    string `json:"guid,omitempty"` // identificador del lector; vacío = operador del token
}

// SubmitScanResponse escaneo aceptado y encolado (aún no procesado).
type SubmitScanResponse struct {
	ScanID     string    `json:"scan_id"`
	Barcode    string    `json:"barcode"`
	ReceivedAt time.Time `json:"received_at"`
}

// StatusResponse estado actual del controlador de modos.
type StatusResponse struct {
	Mode               string      `json:"mode"`
	LastActivity       time.Time   `json:"last_activity"`
	IdleSeconds        int64       `json:"idle_seconds"`
	IdleTimeoutSeconds int64       `json:"idle_timeout_seconds"`
	LastBarcode        string      `json:"last_barcode,omitempty"`
	ScansHandled       uint64      `json:"scans_handled"`
	MQTT               *MQTTStatus `json:"mqtt,omitempty"` // nil si no hay broker configurado
}

// MQTTStatus estado de la fuente MQTT.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Received  uint64 `json:"received"`
	Rejected  uint64 `json:"rejected"`
}
