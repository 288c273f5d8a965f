package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-bridge/internal/application/announce"
	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// Valores por defecto del controlador.
const (
	DefaultAddToggle    = "11"
	DefaultInfoTrigger  = "22"
	DefaultIdleTimeout  = 300 * time.Second
	DefaultTickInterval = 100 * time.Millisecond
)

// UnknownOnConsume qué hacer al escanear en modo consumo un código que el inventario no conoce.
type UnknownOnConsume string

const (
	// UnknownOnConsumeRegister busca en el catálogo y da de alta el producto (comportamiento histórico).
	UnknownOnConsumeRegister UnknownOnConsume = "register"
	// UnknownOnConsumeIgnore solo avisa de que el producto no está en el inventario.
	UnknownOnConsumeIgnore UnknownOnConsume = "ignore"
)

// ParseUnknownOnConsume valida el nombre de la política.
func ParseUnknownOnConsume(s string) (UnknownOnConsume, error) {
	switch p := UnknownOnConsume(strings.ToLower(strings.TrimSpace(s))); p {
	case UnknownOnConsumeRegister, UnknownOnConsumeIgnore:
		return p, nil
	case "":
		return UnknownOnConsumeRegister, nil
	}
	return "", fmt.Errorf("política desconocida %q: %w", s, domain.ErrInvalidInput)
}

// Config parámetros del controlador de modos.
type Config struct {
	AddToggle        string // código centinela que alterna compra/consumo
	InfoTrigger      string // código centinela que activa la consulta de existencias
	IdleTimeout      time.Duration
	TickInterval     time.Duration
	UnknownOnConsume UnknownOnConsume
}

func (c Config) withDefaults() Config {
	if c.AddToggle == "" {
		c.AddToggle = DefaultAddToggle
	}
	if c.InfoTrigger == "" {
		c.InfoTrigger = DefaultInfoTrigger
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.UnknownOnConsume == "" {
		c.UnknownOnConsume = UnknownOnConsumeRegister
	}
	return c
}

// Resolver lo que el controlador necesita del resolver de productos.
type Resolver interface {
	Lookup(ctx context.Context, barcode string) entity.ResolutionOutcome
	DiscoverAndRegister(ctx context.Context, barcode string) entity.ResolutionOutcome
}

// Action lo que hizo el controlador con un escaneo.
type Action string

const (
	ActionModeChange     Action = "mode_change"
	ActionInventoryCheck Action = "inventory_check"
	ActionIncrease       Action = "increase"
	ActionDecrease       Action = "decrease"
	ActionIgnored        Action = "ignored"
)

// ScanResult resumen de un escaneo procesado (logs, tests).
type ScanResult struct {
	ScanID     string
	Barcode    string
	ModeBefore entity.Mode
	ModeAfter  entity.Mode
	Action     Action
	Outcome    entity.ResolutionOutcome
	Err        error
}

// Status instantánea del estado para la API de control.
type Status struct {
	Mode         entity.Mode
	LastActivity time.Time
	LastBarcode  string
	ScansHandled uint64
	IdleTimeout  time.Duration
}

// Option configura el controlador.
type Option func(*Controller)

// WithClock sustituye time.Now (tests del watchdog).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller máquina de estados de modos. Es dueño del modo actual y del reloj de actividad.
// HandleScan y CheckIdle se ejecutan siempre desde la misma goroutine (Run); el mutex solo
// protege las lecturas concurrentes de Snapshot.
type Controller struct {
	cfg       Config
	resolver  Resolver
	inventory ports.InventoryClient
	notifier  ports.Notifier
	now       func() time.Time
	log       zerolog.Logger

	mu           sync.Mutex
	mode         entity.Mode
	lastActivity time.Time
	lastBarcode  string
	scansHandled uint64
}

// NewController construye el controlador en modo consumo.
func NewController(cfg Config, resolver Resolver, inventory ports.InventoryClient, notifier ports.Notifier, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg.withDefaults(),
		resolver:  resolver,
		inventory: inventory,
		notifier:  notifier,
		now:       time.Now,
		log:       log.With().Str("component", "controller").Logger(),
		mode:      entity.ModeConsume,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastActivity = c.now()
	return c
}

// Mode modo actual.
func (c *Controller) Mode() entity.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Snapshot copia del estado para consultas externas.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:         c.mode,
		LastActivity: c.lastActivity,
		LastBarcode:  c.lastBarcode,
		ScansHandled: c.scansHandled,
		IdleTimeout:  c.cfg.IdleTimeout,
	}
}

// Run bucle cooperativo: en cada iteración procesa un escaneo o evalúa el watchdog, nunca ambos
// a la vez. Termina al cancelar ctx (devuelve ctx.Err()) o al cerrarse scans (devuelve nil).
func (c *Controller) Run(ctx context.Context, scans <-chan entity.ScanEvent) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	c.log.Info().
		Str("mode", c.Mode().String()).
		Dur("idle_timeout", c.cfg.IdleTimeout).
		Str("unknown_on_consume", string(c.cfg.UnknownOnConsume)).
		Msg("controlador de modos iniciado")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-scans:
			if !ok {
				c.log.Info().Msg("origen de escaneos cerrado")
				return nil
			}
			c.HandleScan(ctx, ev)
		case <-ticker.C:
			c.CheckIdle(ctx)
		}
	}
}

// CheckIdle vuelve a modo consumo si lleva más de IdleTimeout sin actividad en otro modo.
// Devuelve true si hubo reversión (y por tanto un único aviso).
func (c *Controller) CheckIdle(ctx context.Context) bool {
	now := c.now()

	c.mu.Lock()
	idle := now.Sub(c.lastActivity)
	if idle <= c.cfg.IdleTimeout || c.mode == entity.ModeConsume {
		c.mu.Unlock()
		return false
	}
	prev := c.mode
	c.mode = entity.ModeConsume
	c.lastActivity = now
	c.mu.Unlock()

	c.log.Info().
		Str("from", prev.String()).
		Dur("idle", idle).
		Msg("tiempo de inactividad agotado, vuelta a modo consumo")
	c.announce(ctx, announce.IdleTimeout)
	return true
}

// HandleScan interpreta un código según el modo actual y aplica la tabla de transiciones.
func (c *Controller) HandleScan(ctx context.Context, ev entity.ScanEvent) ScanResult {
	barcode := strings.TrimSpace(ev.Barcode)

	c.mu.Lock()
	before := c.mode
	// Un código en blanco no cuenta como actividad.
	if barcode != "" {
		c.lastActivity = c.now()
		c.lastBarcode = barcode
		c.scansHandled++
	}
	c.mu.Unlock()

	res := ScanResult{ScanID: ev.ID, Barcode: barcode, ModeBefore: before, ModeAfter: before}
	log := c.log.With().
		Str("scan_id", ev.ID).
		Str("scanner", ev.ScannerGUID).
		Str("source", ev.Source).
		Str("barcode", barcode).
		Str("mode", before.String()).
		Logger()

	if barcode == "" {
		log.Warn().Msg("escaneo vacío ignorado")
		res.Action = ActionIgnored
		return res
	}
	log.Info().Msg("código escaneado")

	after := before
	switch {
	case barcode == c.cfg.AddToggle && before == entity.ModeConsume:
		after = entity.ModeAdd
		res.Action = ActionModeChange
		c.setMode(after)
		c.announce(ctx, announce.EnteringAdd)

	case barcode == c.cfg.AddToggle:
		after = entity.ModeConsume
		res.Action = ActionModeChange
		c.setMode(after)
		c.announce(ctx, announce.EnteringConsume)

	case barcode == c.cfg.InfoTrigger:
		after = entity.ModeInfo
		res.Action = ActionModeChange
		c.setMode(after)
		c.announce(ctx, announce.EnteringInfo)

	case before == entity.ModeInfo:
		res.Action = ActionInventoryCheck
		res.Outcome = c.checkInventory(ctx, log, barcode)
		// La consulta es de un solo uso, pase lo que pase.
		after = entity.ModeConsume
		c.setMode(after)

	case before == entity.ModeAdd:
		res.Action = ActionIncrease
		res.Outcome, res.Err = c.increaseInventory(ctx, log, barcode)

	default:
		res.Action = ActionDecrease
		res.Outcome, res.Err = c.decreaseInventory(ctx, log, barcode)
	}

	res.ModeAfter = after
	done := log.Info()
	if res.Err != nil {
		done = log.Warn().Err(res.Err)
	}
	if res.Action != ActionModeChange {
		done = done.Str("outcome", res.Outcome.Status.String())
	}
	done.Str("action", string(res.Action)).
		Str("mode_after", after.String()).
		Msg("escaneo procesado")
	return res
}

func (c *Controller) setMode(m entity.Mode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}

func (c *Controller) announce(ctx context.Context, text string) {
	if err := c.notifier.Announce(ctx, text); err != nil {
		c.log.Debug().Err(err).Str("message", text).Msg("aviso no entregado")
	}
}
