package bridge_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-bridge/internal/application/announce"
	"github.com/jhoicas/scanner-bridge/internal/application/bridge"
	"github.com/jhoicas/scanner-bridge/internal/application/resolver"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
	"github.com/jhoicas/scanner-bridge/internal/testutil"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	addToggle   = "11"
	infoTrigger = "22"
	milkBarcode = "8594001021"
	milkID      = "42"
)

// fakeClock reloj manual para el watchdog.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	inv      *testutil.FakeInventory
	catalog  *testutil.FakeCatalog
	notifier *testutil.RecordingNotifier
	clock    *fakeClock
	ctrl     *bridge.Controller
}

func newHarness(t *testing.T, cfg bridge.Config) *harness {
	t.Helper()
	h := &harness{
		inv:      testutil.NewFakeInventory(),
		catalog:  testutil.NewFakeCatalog(),
		notifier: &testutil.RecordingNotifier{},
		clock:    &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	if cfg.AddToggle == "" {
		cfg.AddToggle = addToggle
	}
	if cfg.InfoTrigger == "" {
		cfg.InfoTrigger = infoTrigger
	}
	res := resolver.New(h.inv, h.catalog, h.notifier, resolver.Options{}, zerolog.Nop())
	h.ctrl = bridge.NewController(cfg, res, h.inv, h.notifier, zerolog.Nop(), bridge.WithClock(h.clock.Now))
	return h
}

func (h *harness) seedMilk(stock int64) {
	h.inv.Seed(milkBarcode, entity.ProductRecord{
		ID:                       milkID,
		Name:                     "Leche",
		StockAmount:              decimal.NewFromInt(stock),
		PurchaseConversionFactor: decimal.NewFromInt(6),
	})
}

func (h *harness) scan(t *testing.T, barcode string) bridge.ScanResult {
	t.Helper()
	return h.ctrl.HandleScan(context.Background(), entity.ScanEvent{ID: "scan-" + barcode, Barcode: barcode, Source: entity.ScanSourceDevice})
}

// ──────────────────────────────────────────────────────────────────────────────
// Tabla de transiciones
// ──────────────────────────────────────────────────────────────────────────────

func TestController_ModoInicialConsumo(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	assert.Equal(t, entity.ModeConsume, h.ctrl.Mode())
}

// Consumo → Compra → Consumo con dos escaneos de ADD_TOGGLE.
func TestController_AddToggleIdaYVuelta(t *testing.T) {
	h := newHarness(t, bridge.Config{})

	r1 := h.scan(t, addToggle)
	assert.Equal(t, bridge.ActionModeChange, r1.Action)
	assert.Equal(t, entity.ModeAdd, h.ctrl.Mode())

	r2 := h.scan(t, addToggle)
	assert.Equal(t, entity.ModeAdd, r2.ModeBefore)
	assert.Equal(t, entity.ModeConsume, h.ctrl.Mode())

	assert.Equal(t, []string{announce.EnteringAdd, announce.EnteringConsume}, h.notifier.Messages())
}

func TestController_AddToggleDesdeInfoVuelveAConsumo(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.scan(t, infoTrigger)
	require.Equal(t, entity.ModeInfo, h.ctrl.Mode())

	h.scan(t, addToggle)
	assert.Equal(t, entity.ModeConsume, h.ctrl.Mode())
	assert.Equal(t, announce.EnteringConsume, h.notifier.Messages()[1])
}

func TestController_InfoTriggerDesdeCualquierModo(t *testing.T) {
	for _, start := range []string{"", addToggle, infoTrigger} {
		h := newHarness(t, bridge.Config{})
		if start != "" {
			h.scan(t, start)
		}
		h.scan(t, infoTrigger)
		assert.Equal(t, entity.ModeInfo, h.ctrl.Mode(), "desde escaneo previo %q", start)
	}
}

// INFO_TRIGGER + producto deja el modo en consumo, se encuentre o no el producto.
func TestController_InfoSeReseteaTrasUnaConsulta(t *testing.T) {
	cases := []struct {
		name    string
		seed    bool
		lookErr error
		want    string
	}{
		{name: "encontrado", seed: true, want: announce.StockInfo("Leche", decimal.NewFromInt(3))},
		{name: "no encontrado", want: announce.NotInInventory(milkBarcode)},
		{name: "inventario caído", lookErr: fmt.Errorf("x: %w", domain.ErrTransport), want: announce.NotInInventory(milkBarcode)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, bridge.Config{})
			if tc.seed {
				h.seedMilk(3)
			}
			h.inv.LookupErr = tc.lookErr

			h.scan(t, infoTrigger)
			h.notifier.Reset()
			res := h.scan(t, milkBarcode)

			assert.Equal(t, bridge.ActionInventoryCheck, res.Action)
			assert.Equal(t, entity.ModeConsume, h.ctrl.Mode())
			assert.Equal(t, []string{tc.want}, h.notifier.Messages())
			assert.Empty(t, h.inv.AddCalls)
			assert.Empty(t, h.inv.ConsumeCalls)
			assert.Empty(t, h.catalog.Calls, "la consulta nunca usa el catálogo")
		})
	}
}

// Los códigos de producto nunca cambian el modo salvo el reseteo de Info.
func TestController_ProductoNoCambiaModo(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.seedMilk(10)

	h.scan(t, addToggle)
	for i := 0; i < 3; i++ {
		h.scan(t, milkBarcode)
		assert.Equal(t, entity.ModeAdd, h.ctrl.Mode(), "compra es residente")
	}

	h.scan(t, addToggle)
	for i := 0; i < 3; i++ {
		h.scan(t, milkBarcode)
		assert.Equal(t, entity.ModeConsume, h.ctrl.Mode())
	}
}

func TestController_EscaneoVacioIgnorado(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	before := h.ctrl.Snapshot().LastActivity
	res := h.scan(t, "  \r")
	assert.Equal(t, bridge.ActionIgnored, res.Action)
	assert.Empty(t, h.inv.LookupCalls)
	assert.Zero(t, h.ctrl.Snapshot().ScansHandled)
	assert.Equal(t, before, h.ctrl.Snapshot().LastActivity, "un código en blanco no reinicia la inactividad")
}

// ──────────────────────────────────────────────────────────────────────────────
// Consumo
// ──────────────────────────────────────────────────────────────────────────────

func TestDecrease_StockCeroNoConsume(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.seedMilk(0)

	res := h.scan(t, milkBarcode)
	assert.Equal(t, bridge.ActionDecrease, res.Action)
	assert.NoError(t, res.Err)
	assert.Empty(t, h.inv.ConsumeCalls)
	assert.Equal(t, []string{announce.NothingToConsume("Leche")}, h.notifier.Messages())
}

// Un stock negativo del backend se trata como cero.
func TestDecrease_StockNegativoNoConsume(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.seedMilk(-2)

	h.scan(t, milkBarcode)
	assert.Empty(t, h.inv.ConsumeCalls)
}

func TestDecrease_StockTresQuedanDos(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.seedMilk(3)

	res := h.scan(t, milkBarcode)
	require.NoError(t, res.Err)
	require.Len(t, h.inv.ConsumeCalls, 1)
	call := h.inv.ConsumeCalls[0]
	assert.Equal(t, milkID, call.ProductID)
	assert.True(t, call.Amount.Equal(decimal.NewFromInt(1)))
	assert.False(t, call.Spoiled)
	assert.Equal(t, []string{announce.Consumed("Leche", decimal.NewFromInt(2))}, h.notifier.Messages())
	assert.True(t, h.inv.Stock(milkID).Equal(decimal.NewFromInt(2)))
}

func TestDecrease_FalloDelBackendSeAnuncia(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.seedMilk(3)
	h.inv.ConsumeErr = fmt.Errorf("HTTP 400: %w", domain.ErrUnexpectedStatus)

	res := h.scan(t, milkBarcode)
	assert.ErrorIs(t, res.Err, domain.ErrUnexpectedStatus)
	assert.Equal(t, []string{announce.ConsumeFailed("Leche")}, h.notifier.Messages())
	assert.Equal(t, entity.ModeConsume, h.ctrl.Mode())
}

// Política por defecto: un desconocido en consumo pasa por el catálogo y se da de alta.
func TestDecrease_DesconocidoSeRegistraPorDefecto(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.catalog.Names[milkBarcode] = "Oat Milk"

	res := h.scan(t, milkBarcode)
	assert.Equal(t, entity.ResolutionRegistered, res.Outcome.Status)
	assert.Len(t, h.inv.CreateCalls, 1)
	assert.Empty(t, h.inv.ConsumeCalls, "el alta no consume automáticamente")
}

func TestDecrease_DesconocidoIgnoradoPorPolitica(t *testing.T) {
	h := newHarness(t, bridge.Config{UnknownOnConsume: bridge.UnknownOnConsumeIgnore})
	h.catalog.Names[milkBarcode] = "Oat Milk"

	res := h.scan(t, milkBarcode)
	assert.Equal(t, entity.ResolutionNotFoundInInventory, res.Outcome.Status)
	assert.Empty(t, h.catalog.Calls)
	assert.Empty(t, h.inv.CreateCalls)
	assert.Equal(t, []string{announce.NotInInventory(milkBarcode)}, h.notifier.Messages())
}

// ──────────────────────────────────────────────────────────────────────────────
// Compra
// ──────────────────────────────────────────────────────────────────────────────

func TestIncrease_SumaFactorDeConversion(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.seedMilk(1)
	h.scan(t, addToggle)
	h.notifier.Reset()

	res := h.scan(t, milkBarcode)
	require.NoError(t, res.Err)
	require.Len(t, h.inv.AddCalls, 1)
	assert.True(t, h.inv.AddCalls[0].Amount.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, []string{announce.Added("Leche", decimal.NewFromInt(6))}, h.notifier.Messages())
	assert.True(t, h.inv.Stock(milkID).Equal(decimal.NewFromInt(7)))
}

func TestIncrease_FalloNoCambiaModo(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.seedMilk(1)
	h.inv.AddErr = fmt.Errorf("HTTP 500: %w", domain.ErrUnexpectedStatus)
	h.scan(t, addToggle)
	h.notifier.Reset()

	res := h.scan(t, milkBarcode)
	assert.Error(t, res.Err)
	assert.Equal(t, entity.ModeAdd, h.ctrl.Mode())
	assert.Equal(t, []string{announce.AddFailed("Leche")}, h.notifier.Messages())
}

// Alta desde el catálogo en modo compra: no se suma stock en el mismo escaneo,
// pero el siguiente escaneo ya encuentra el producto.
func TestIncrease_DesconocidoSeRegistraYElSiguienteSuma(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.catalog.Names[milkBarcode] = "Oat Milk"
	h.scan(t, addToggle)

	first := h.scan(t, milkBarcode)
	require.Equal(t, entity.ResolutionRegistered, first.Outcome.Status)
	assert.Empty(t, h.inv.AddCalls)

	second := h.scan(t, milkBarcode)
	require.NoError(t, second.Err)
	assert.True(t, second.Outcome.Found())
	assert.Len(t, h.inv.AddCalls, 1)
}

func TestIncrease_AltaFallidaDevuelveError(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.catalog.Names[milkBarcode] = "Oat Milk"
	h.inv.AttachErr = fmt.Errorf("HTTP 400: %w", domain.ErrUnexpectedStatus)
	h.scan(t, addToggle)

	res := h.scan(t, milkBarcode)
	assert.ErrorIs(t, res.Err, domain.ErrRegistrationFailed)

	again := h.scan(t, milkBarcode)
	assert.False(t, again.Outcome.Found(), "sin vínculo el código sigue sin resolverse")
}

// ──────────────────────────────────────────────────────────────────────────────
// Watchdog
// ──────────────────────────────────────────────────────────────────────────────

func TestWatchdog_RevierteCompraTrasInactividad(t *testing.T) {
	h := newHarness(t, bridge.Config{IdleTimeout: 300 * time.Second})
	h.scan(t, addToggle)
	h.notifier.Reset()

	h.clock.Advance(300 * time.Second)
	assert.False(t, h.ctrl.CheckIdle(context.Background()), "exactamente en el umbral no revierte")

	h.clock.Advance(time.Second)
	assert.True(t, h.ctrl.CheckIdle(context.Background()))
	assert.Equal(t, entity.ModeConsume, h.ctrl.Mode())

	// Más ticks no generan más avisos.
	for i := 0; i < 5; i++ {
		h.clock.Advance(10 * time.Minute)
		assert.False(t, h.ctrl.CheckIdle(context.Background()))
	}
	assert.Equal(t, []string{announce.IdleTimeout}, h.notifier.Messages())
}

func TestWatchdog_EnConsumoNoAvisa(t *testing.T) {
	h := newHarness(t, bridge.Config{})
	h.clock.Advance(time.Hour)

	assert.False(t, h.ctrl.CheckIdle(context.Background()))
	assert.Empty(t, h.notifier.Messages())
}

// Cada escaneo reinicia el reloj de actividad.
func TestWatchdog_EscaneoReiniciaReloj(t *testing.T) {
	h := newHarness(t, bridge.Config{IdleTimeout: 300 * time.Second})
	h.seedMilk(5)
	h.scan(t, addToggle)

	h.clock.Advance(200 * time.Second)
	h.scan(t, milkBarcode)
	h.clock.Advance(200 * time.Second)

	assert.False(t, h.ctrl.CheckIdle(context.Background()))
	assert.Equal(t, entity.ModeAdd, h.ctrl.Mode())
}

// ──────────────────────────────────────────────────────────────────────────────
// Run
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_ProcesaEnOrdenYTerminaAlCerrarCanal(t *testing.T) {
	h := newHarness(t, bridge.Config{TickInterval: time.Millisecond})
	h.seedMilk(5)

	scans := make(chan entity.ScanEvent, 4)
	scans <- entity.ScanEvent{ID: "1", Barcode: addToggle}
	scans <- entity.ScanEvent{ID: "2", Barcode: milkBarcode}
	scans <- entity.ScanEvent{ID: "3", Barcode: addToggle}
	scans <- entity.ScanEvent{ID: "4", Barcode: milkBarcode}
	close(scans)

	require.NoError(t, h.ctrl.Run(context.Background(), scans))

	assert.Equal(t, entity.ModeConsume, h.ctrl.Mode())
	assert.Len(t, h.inv.AddCalls, 1)
	assert.Len(t, h.inv.ConsumeCalls, 1)
	assert.EqualValues(t, 4, h.ctrl.Snapshot().ScansHandled)
	assert.Equal(t, milkBarcode, h.ctrl.Snapshot().LastBarcode)
}

func TestRun_CancelacionDevuelveErrorDeContexto(t *testing.T) {
	h := newHarness(t, bridge.Config{TickInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- h.ctrl.Run(ctx, make(chan entity.ScanEvent)) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}

// El tick del bucle dispara el watchdog.
func TestRun_TickRevierteModo(t *testing.T) {
	h := newHarness(t, bridge.Config{TickInterval: time.Millisecond, IdleTimeout: time.Minute})
	h.scan(t, infoTrigger)
	h.clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.ctrl.Run(ctx, make(chan entity.ScanEvent)) }()

	assert.Eventually(t, func() bool {
		return h.ctrl.Mode() == entity.ModeConsume
	}, 2*time.Second, 5*time.Millisecond)
}

func TestParseUnknownOnConsume(t *testing.T) {
	p, err := bridge.ParseUnknownOnConsume("IGNORE")
	require.NoError(t, err)
	assert.Equal(t, bridge.UnknownOnConsumeIgnore, p)

	p, err = bridge.ParseUnknownOnConsume("")
	require.NoError(t, err)
	assert.Equal(t, bridge.UnknownOnConsumeRegister, p)

	_, err = bridge.ParseUnknownOnConsume("borrar")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
