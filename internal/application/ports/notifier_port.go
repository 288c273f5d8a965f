package ports

import "context"

// Notifier sumidero de avisos por voz. Fire-and-forget: el error solo sirve para logging,
// nunca altera el flujo del controlador.
type Notifier interface {
	Announce(ctx context.Context, text string) error
}
