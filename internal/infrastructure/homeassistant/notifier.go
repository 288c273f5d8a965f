package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain"
)

var (
	_ ports.Notifier = (*Notifier)(nil)
	_ ports.Notifier = (*LogNotifier)(nil)
)

// Config parámetros del servicio TTS de Home Assistant.
type Config struct {
	ServiceURL string // ej. http://ha.lan:8123/api/services/tts/google_cloud_say
	Token      string // long-lived access token
	EntityID   string // media_player que reproduce el aviso
	Timeout    time.Duration
}

// Notifier llama al servicio TTS de Home Assistant de forma síncrona.
// Normalmente se envuelve en AsyncNotifier para no bloquear el procesamiento de escaneos.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

// NewNotifier construye el adaptador.
func NewNotifier(cfg Config, log zerolog.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "homeassistant").Logger(),
	}
}

type ttsRequest struct {
	EntityID string `json:"entity_id"`
	Message  string `json:"message"`
}

// Announce envía el texto al media_player. Un estado distinto de 200 se registra en el log
// y se devuelve como error informativo; no se reintenta.
func (n *Notifier) Announce(ctx context.Context, text string) error {
	body, err := json.Marshal(ttsRequest{EntityID: n.cfg.EntityID, Message: text})
	if err != nil {
		return fmt.Errorf("ha: serializar request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ha: crear HTTP request: %v: %w", err, domain.ErrTransport)
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.Error().Err(err).Str("message", text).Msg("aviso TTS fallido")
		return fmt.Errorf("ha: llamada HTTP fallida: %v: %w", err, domain.ErrTransport)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode != http.StatusOK {
		n.log.Warn().Int("status", resp.StatusCode).Str("message", text).Msg("aviso TTS rechazado")
		return fmt.Errorf("ha: HTTP %d: %w", resp.StatusCode, domain.ErrUnexpectedStatus)
	}
	n.log.Info().Str("message", text).Msg("aviso TTS")
	return nil
}

// LogNotifier solo escribe el aviso en el log. Se usa cuando no hay token de Home Assistant.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier construye el notificador de solo-log.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "announce").Logger()}
}

// Announce nunca falla.
func (n *LogNotifier) Announce(_ context.Context, text string) error {
	n.log.Info().Str("message", text).Msg("aviso (sin TTS configurado)")
	return nil
}
