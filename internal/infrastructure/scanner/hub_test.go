package scanner_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
	"github.com/jhoicas/scanner-bridge/internal/infrastructure/scanner"
)

// scriptedSource emite una lista fija de códigos al arrancar.
type scriptedSource struct {
	name     string
	barcodes []string
	handler  ports.ScanHandler
	err      error
}

func (s *scriptedSource) Name() string                     { return s.name }
func (s *scriptedSource) OnScan(handler ports.ScanHandler) { s.handler = handler }
func (s *scriptedSource) Run(ctx context.Context) error {
	for _, b := range s.barcodes {
		s.handler(entity.ScanEvent{Barcode: b, Source: entity.ScanSourceDevice, ScannerGUID: s.name})
	}
	return s.err
}

func TestHub_SubmitAsignaIDYHora(t *testing.T) {
	hub := scanner.NewHub(4, zerolog.Nop())

	ev, err := hub.Submit(context.Background(), entity.ScanEvent{Barcode: "123"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, entity.ScanSourceHTTP, ev.Source)

	got := <-hub.Events()
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "123", got.Barcode)
}

func TestHub_SubmitVacioEsInvalido(t *testing.T) {
	hub := scanner.NewHub(1, zerolog.Nop())
	_, err := hub.Submit(context.Background(), entity.ScanEvent{Barcode: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHub_MantieneOrdenDeLlegada(t *testing.T) {
	hub := scanner.NewHub(8, zerolog.Nop())
	for _, b := range []string{"11", "a", "b", "11"} {
		_, err := hub.Submit(context.Background(), entity.ScanEvent{Barcode: b})
		require.NoError(t, err)
	}
	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, (<-hub.Events()).Barcode)
	}
	assert.Equal(t, []string{"11", "a", "b", "11"}, got)
}

// Canal lleno: Submit respeta la cancelación del contexto.
func TestHub_SubmitCanalLlenoRespetaContexto(t *testing.T) {
	hub := scanner.NewHub(1, zerolog.Nop())
	_, err := hub.Submit(context.Background(), entity.ScanEvent{Barcode: "1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = hub.Submit(ctx, entity.ScanEvent{Barcode: "2"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHub_CerradoRechazaEscaneos(t *testing.T) {
	hub := scanner.NewHub(4, zerolog.Nop())
	hub.Close()
	hub.Close()

	_, err := hub.Submit(context.Background(), entity.ScanEvent{Barcode: "1"})
	assert.ErrorIs(t, err, scanner.ErrClosed)
}

func TestHub_RunUneOrigenesYEsperaCancelacion(t *testing.T) {
	hub := scanner.NewHub(8, zerolog.Nop())
	hub.Attach(&scriptedSource{name: "usb", barcodes: []string{"1", "2"}})
	hub.Attach(scanner.NewLineSource("pipe", strings.NewReader("3\n"), "guid-3", zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx) }()

	seen := map[string]string{}
	for i := 0; i < 3; i++ {
		select {
		case ev := <-hub.Events():
			assert.NotEmpty(t, ev.ID)
			seen[ev.Barcode] = ev.ScannerGUID
		case <-time.After(2 * time.Second):
			t.Fatal("no llegaron todos los escaneos")
		}
	}
	assert.Equal(t, map[string]string{"1": "usb", "2": "usb", "3": "guid-3"}, seen)

	// Los orígenes agotados no paran el hub.
	select {
	case <-errCh:
		t.Fatal("Run terminó antes de cancelar")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run no terminó tras cancelar")
	}

	_, err := hub.Submit(context.Background(), entity.ScanEvent{Barcode: "4"})
	assert.ErrorIs(t, err, scanner.ErrClosed)
}

func TestHub_RunDevuelveErrorDeOrigen(t *testing.T) {
	hub := scanner.NewHub(8, zerolog.Nop())
	hub.Attach(&scriptedSource{name: "roto", err: domain.ErrTransport})

	err := hub.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
}
