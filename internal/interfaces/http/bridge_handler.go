package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-bridge/internal/application/bridge"
	"github.com/jhoicas/scanner-bridge/internal/application/dto"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// submitTimeout espera máxima por hueco en la cola de escaneos.
const submitTimeout = 2 * time.Second

// StatusProvider lo implementa *bridge.Controller.
type StatusProvider interface {
	Snapshot() bridge.Status
}

// ScanSubmitter lo implementa *scanner.Hub.
type ScanSubmitter interface {
	Submit(ctx context.Context, ev entity.ScanEvent) (entity.ScanEvent, error)
}

// BrokerStatus lo implementa *scanner.MQTTSource.
type BrokerStatus interface {
	Connected() bool
	Stats() (received, rejected uint64)
}

// BridgeHandler expone el estado del puente y la inyección de escaneos.
type BridgeHandler struct {
	status StatusProvider
	scans  ScanSubmitter
	broker BrokerStatus
	now    func() time.Time
	log    zerolog.Logger
}

// NewBridgeHandler construye el handler. broker puede ser nil.
func NewBridgeHandler(status StatusProvider, scans ScanSubmitter, broker BrokerStatus, log zerolog.Logger) *BridgeHandler {
	return &BridgeHandler{
		status: status,
		scans:  scans,
		broker: broker,
		now:    time.Now,
		log:    log.With().Str("component", "http").Logger(),
	}
}

// Status godoc
// @Summary      Estado del controlador de modos
// @Tags         bridge
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.StatusResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/status [get]
func (h *BridgeHandler) Status(c *fiber.Ctx) error {
	s := h.status.Snapshot()
	idle := h.now().Sub(s.LastActivity)
	if idle < 0 {
		idle = 0
	}
	out := dto.StatusResponse{
		Mode:               s.Mode.String(),
		LastActivity:       s.LastActivity,
		IdleSeconds:        int64(idle / time.Second),
		IdleTimeoutSeconds: int64(s.IdleTimeout / time.Second),
		LastBarcode:        s.LastBarcode,
		ScansHandled:       s.ScansHandled,
	}
	if h.broker != nil {
		received, rejected := h.broker.Stats()
		out.MQTT = &dto.MQTTStatus{
			Connected: h.broker.Connected(),
			Received:  received,
			Rejected:  rejected,
		}
	}
	return c.JSON(out)
}

// SubmitScan godoc
// @Summary      Inyectar un escaneo
// @Description  Encola el código en el mismo canal ordenado que los lectores físicos.
//
//	Los códigos centinela cambian el modo igual que si se escanearan.
//
// @Tags         bridge
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SubmitScanRequest  true  "barcode y, opcionalmente, guid del lector"
// @Success      202   {object}  dto.SubmitScanResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/scans [post]
func (h *BridgeHandler) SubmitScan(c *fiber.Ctx) error {
	var in dto.SubmitScanRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	barcode := strings.TrimSpace(in.Barcode)
	if barcode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "barcode es requerido"})
	}
	guid := strings.TrimSpace(in.GUID)
	if guid == "" {
		guid = GetOperatorID(c)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), submitTimeout)
	defer cancel()
	ev, err := h.scans.Submit(ctx, entity.ScanEvent{
		ScannerGUID: guid,
		Barcode:     barcode,
		Source:      entity.ScanSourceHTTP,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "barcode inválido"})
		}
		h.log.Warn().Err(err).Str("barcode", barcode).Msg("escaneo HTTP no encolado")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "UNAVAILABLE", Message: "cola de escaneos no disponible"})
	}

	h.log.Info().
		Str("scan_id", ev.ID).
		Str("operator", GetOperatorID(c)).
		Str("barcode", barcode).
		Msg("escaneo HTTP encolado")
	return c.Status(fiber.StatusAccepted).JSON(dto.SubmitScanResponse{
		ScanID:     ev.ID,
		Barcode:    ev.Barcode,
		ReceivedAt: ev.Timestamp,
	})
}
