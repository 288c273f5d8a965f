package homeassistant

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
)

var _ ports.Notifier = (*AsyncNotifier)(nil)

// DefaultQueueSize avisos pendientes antes de empezar a descartar.
const DefaultQueueSize = 16

// AsyncNotifier encola los avisos y los entrega en orden desde una única goroutine,
// de modo que un Home Assistant lento nunca frena el bucle de escaneos.
// Si la cola está llena el aviso se descarta con un warning.
type AsyncNotifier struct {
	next    ports.Notifier
	queue   chan string
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewAsyncNotifier arranca el worker. Llamar a Close para vaciar la cola al apagar.
func NewAsyncNotifier(next ports.Notifier, queueSize int, log zerolog.Logger) *AsyncNotifier {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	a := &AsyncNotifier{
		next:    next,
		queue:   make(chan string, queueSize),
		timeout: 15 * time.Second,
		log:     log.With().Str("component", "announce-queue").Logger(),
		done:    make(chan struct{}),
	}
	go a.worker()
	return a
}

// Announce encola el texto y vuelve inmediatamente.
func (a *AsyncNotifier) Announce(_ context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.log.Warn().Str("message", text).Msg("aviso descartado: notificador cerrado")
		return nil
	}
	select {
	case a.queue <- text:
	default:
		a.log.Warn().Str("message", text).Int("queue_size", cap(a.queue)).Msg("aviso descartado: cola llena")
	}
	return nil
}

func (a *AsyncNotifier) worker() {
	defer close(a.done)
	for text := range a.queue {
		// Contexto propio: el aviso debe salir aunque el scan que lo originó ya haya terminado.
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Announce(ctx, text); err != nil {
			a.log.Debug().Err(err).Str("message", text).Msg("aviso no entregado")
		}
		cancel()
	}
}

// Close deja de aceptar avisos y espera a que se entreguen los pendientes o a que ctx expire.
func (a *AsyncNotifier) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
