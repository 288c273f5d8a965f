// Package scanner orígenes de escaneos y su unión en un único canal ordenado.
package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// DefaultBuffer tamaño por defecto del canal de escaneos.
const DefaultBuffer = 32

// ErrClosed el hub ya no acepta escaneos.
var ErrClosed = errors.New("scanner: hub cerrado")

// Hub reúne todos los orígenes en un canal: el orden del canal es el orden de llegada.
// Asigna id y marca de tiempo a cada escaneo.
type Hub struct {
	events  chan entity.ScanEvent
	sources []ports.ScanSource
	now     func() time.Time
	log     zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHub crea el hub con un canal de capacidad buffer (DefaultBuffer si es <= 0).
func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		events: make(chan entity.ScanEvent, buffer),
		now:    time.Now,
		log:    log.With().Str("component", "scanner_hub").Logger(),
		stop:   make(chan struct{}),
	}
}

// Events canal que consume el controlador.
func (h *Hub) Events() <-chan entity.ScanEvent {
	return h.events
}

// Attach registra un origen. Debe llamarse antes de Run.
func (h *Hub) Attach(src ports.ScanSource) {
	name := src.Name()
	src.OnScan(func(ev entity.ScanEvent) {
		if _, err := h.publish(context.Background(), ev); err != nil {
			h.log.Warn().Err(err).Str("source", name).Str("barcode", ev.Barcode).Msg("escaneo descartado")
		}
	})
	h.sources = append(h.sources, src)
}

// Submit inyecta un escaneo (API HTTP). Bloquea hasta que hay hueco en el canal,
// se cancela ctx o se cierra el hub. Devuelve el evento con id y hora asignados.
func (h *Hub) Submit(ctx context.Context, ev entity.ScanEvent) (entity.ScanEvent, error) {
	if strings.TrimSpace(ev.Barcode) == "" {
		return ev, domain.ErrInvalidInput
	}
	if ev.Source == "" {
		ev.Source = entity.ScanSourceHTTP
	}
	return h.publish(ctx, ev)
}

func (h *Hub) publish(ctx context.Context, ev entity.ScanEvent) (entity.ScanEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = h.now()
	}

	// Cerrado tiene prioridad sobre un canal con hueco.
	select {
	case <-h.stop:
		return ev, ErrClosed
	default:
	}

	select {
	case h.events <- ev:
		h.log.Debug().Str("scan_id", ev.ID).Str("source", ev.Source).Str("barcode", ev.Barcode).Msg("escaneo encolado")
		return ev, nil
	case <-h.stop:
		return ev, ErrClosed
	case <-ctx.Done():
		return ev, ctx.Err()
	}
}

// Run arranca todos los orígenes y espera a que ctx se cancele. Un origen que termina sin
// error (fin de entrada) no detiene a los demás; el primer error sí. Al salir cierra el hub.
func (h *Hub) Run(ctx context.Context) error {
	defer h.Close()

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range h.sources {
		g.Go(func() error {
			h.log.Info().Str("source", src.Name()).Msg("origen de escaneos iniciado")
			err := src.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				h.log.Error().Err(err).Str("source", src.Name()).Msg("origen de escaneos finalizado con error")
				return err
			}
			h.log.Info().Str("source", src.Name()).Msg("origen de escaneos finalizado")
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

// Close deja de aceptar escaneos. Es idempotente.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}
