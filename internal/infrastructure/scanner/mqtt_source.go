package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

var _ ports.ScanSource = (*MQTTSource)(nil)

// Valores por defecto del origen MQTT.
const (
	DefaultMQTTTopic    = "scanner/barcodes"
	DefaultMQTTClientID = "scanner-bridge"
	connectTimeout      = 5 * time.Second
)

// MQTTConfig conexión al broker.
type MQTTConfig struct {
	Broker   string // host:puerto o URL completa (tcp://, ssl://, ws://)
	Topic    string // admite comodines, p. ej. scanner/+/barcode
	ClientID string
	Username string
	Password string
	QoS      byte
}

// MQTTSource recibe códigos publicados por lectores en red.
// El payload es el código en bruto o JSON {"guid": "...", "barcode": "..."}.
type MQTTSource struct {
	cfg     MQTTConfig
	handler ports.ScanHandler
	log     zerolog.Logger

	// newClient permite sustituir el cliente paho en tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu        sync.RWMutex
	connected bool
	received  uint64
	rejected  uint64
}

// NewMQTTSource crea el origen; no conecta hasta Run.
func NewMQTTSource(cfg MQTTConfig, log zerolog.Logger) *MQTTSource {
	if cfg.Topic == "" {
		cfg.Topic = DefaultMQTTTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultMQTTClientID
	}
	return &MQTTSource{
		cfg:       cfg,
		log:       log.With().Str("component", "mqtt_source").Str("broker", cfg.Broker).Logger(),
		newClient: mqtt.NewClient,
	}
}

func (s *MQTTSource) Name() string { return "mqtt:" + s.cfg.Topic }

func (s *MQTTSource) OnScan(handler ports.ScanHandler) { s.handler = handler }

// Connected indica si hay conexión con el broker.
func (s *MQTTSource) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Stats mensajes aceptados y rechazados.
func (s *MQTTSource) Stats() (received, rejected uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.received, s.rejected
}

// subscribe se suscribe al topic y espera la confirmación del broker.
func (s *MQTTSource) subscribe(c mqtt.Client) error {
	token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage)
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt: suscripción a %s sin confirmar tras %s", s.cfg.Topic, connectTimeout)
	}
	return token.Error()
}

// Run conecta, se suscribe y espera a la cancelación de ctx. La reconexión la gestiona paho.
func (s *MQTTSource) Run(ctx context.Context) error {
	if s.handler == nil {
		return fmt.Errorf("mqtt: %s sin manejador registrado", s.Name())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(s.cfg.Broker))
	opts.SetClientID(s.cfg.ClientID)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetCleanSession(true)

	// Al reconectar con sesión limpia hay que volver a suscribirse.
	opts.OnConnect = func(c mqtt.Client) {
		s.setConnected(true)
		s.log.Info().Str("client_id", s.cfg.ClientID).Msg("conexión mqtt establecida")
		if err := s.subscribe(c); err != nil {
			s.log.Error().Err(err).Str("topic", s.cfg.Topic).Msg("suscripción mqtt fallida")
			return
		}
		s.log.Info().Str("topic", s.cfg.Topic).Msg("suscrito a escaneos")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.log.Warn().Err(err).Msg("conexión mqtt perdida, reconexión automática")
	}

	client := s.newClient(opts)
	s.log.Info().Msg("conectando al broker mqtt")
	token := client.Connect()
	// Con ConnectRetry el token solo se completa al conectar; se espera con ctx.
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt: conexión fallida: %w", err)
		}
	case <-ctx.Done():
		client.Disconnect(250)
		return ctx.Err()
	}

	<-ctx.Done()
	if t := client.Unsubscribe(s.cfg.Topic); !t.WaitTimeout(time.Second) {
		s.log.Warn().Msg("baja de la suscripción sin confirmar")
	}
	client.Disconnect(250)
	s.setConnected(false)
	s.log.Info().Msg("desconectado del broker mqtt")
	return ctx.Err()
}

// scanPayload forma JSON de un escaneo publicado.
type scanPayload struct {
	GUID    string `json:"guid"`
	Barcode string `json:"barcode"`
	Code    string `json:"code"`
}

func (s *MQTTSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	guid, barcode, err := parsePayload(msg.Payload())
	if err != nil {
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("topic", msg.Topic()).Msg("mensaje mqtt ignorado")
		return
	}
	if guid == "" {
		guid = msg.Topic()
	}
	s.mu.Lock()
	s.received++
	s.mu.Unlock()
	s.handler(entity.ScanEvent{
		ScannerGUID: guid,
		Barcode:     barcode,
		Source:      entity.ScanSourceMQTT,
	})
}

func parsePayload(p []byte) (guid, barcode string, err error) {
	raw := strings.TrimSpace(string(p))
	if raw == "" {
		return "", "", fmt.Errorf("mqtt: payload vacío")
	}
	if !strings.HasPrefix(raw, "{") {
		return "", raw, nil
	}
	var in scanPayload
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return "", "", fmt.Errorf("mqtt: payload JSON inválido: %w", err)
	}
	barcode = strings.TrimSpace(in.Barcode)
	if barcode == "" {
		barcode = strings.TrimSpace(in.Code)
	}
	if barcode == "" {
		return "", "", fmt.Errorf("mqtt: payload sin código")
	}
	return strings.TrimSpace(in.GUID), barcode, nil
}

func (s *MQTTSource) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}
