package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del puente (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App           AppConfig
	Grocy         GrocyConfig
	Catalog       CatalogConfig
	HomeAssistant HomeAssistantConfig
	Scanner       ScannerConfig
	MQTT          MQTTConfig
	HTTP          HTTPConfig
	JWT           JWTConfig
	// ClientTimeout timeout de las peticiones salientes (Grocy, Open Food Facts, Home Assistant).
	ClientTimeout time.Duration
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// GrocyConfig backend de inventario.
type GrocyConfig struct {
	BaseURL                string // ej. http://grocy.lan:9192/api
	APIKey                 string
	APIKeyHeader           string
	LocationID             int
	QuantityUnitPurchaseID int
	QuantityUnitStockID    int
	ShoppingLocationID     int
}

// CatalogConfig catálogo público de productos (Open Food Facts).
type CatalogConfig struct {
	BaseURL          string
	UserAgent        string
	PlaceholderNames []string // se suman a los nombres de relleno conocidos
}

// HomeAssistantConfig avisos por voz. Sin Token los avisos solo van al log.
type HomeAssistantConfig struct {
	ServiceURL  string // ej. http://ha.lan:8123/api/services/tts/google_cloud_say
	Token       string
	MediaPlayer string
	QueueSize   int
}

// Enabled indica si hay que llamar a Home Assistant.
func (c HomeAssistantConfig) Enabled() bool {
	return c.Token != ""
}

// ScannerConfig lector y máquina de modos.
type ScannerConfig struct {
	AddBarcode       string
	InfoBarcode      string
	Device           string // ruta del lector; "-" = stdin; vacío = sin lector local
	GUID             string
	IdleTimeout      time.Duration
	TickInterval     time.Duration
	UnknownOnConsume string // register | ignore
}

// MQTTConfig lectores en red. Sin Broker no se usa MQTT.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Enabled indica si hay que conectar al broker.
func (c MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// JWTConfig configuración de JWT de la API de control.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP de control.
type HTTPConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: GROCY_BASE_URL, GROCY_API_KEY, HA_TOKEN, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return FromViper(v), nil
}

// FromViper construye la configuración a partir de una instancia ya preparada (tests).
func FromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "scanner-bridge"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		Grocy: GrocyConfig{
			BaseURL:                getString(v, "GROCY_BASE_URL", ""),
			APIKey:                 getString(v, "GROCY_API_KEY", ""),
			APIKeyHeader:           getString(v, "GROCY_API_KEY_HEADER", "GROCY-API-KEY"),
			LocationID:             getInt(v, "GROCY_LOCATION_ID", 1),
			QuantityUnitPurchaseID: getInt(v, "GROCY_QU_ID_PURCHASE", 2),
			QuantityUnitStockID:    getInt(v, "GROCY_QU_ID_STOCK", 2),
			ShoppingLocationID:     getInt(v, "GROCY_SHOPPING_LOCATION_ID", 1),
		},
		Catalog: CatalogConfig{
			BaseURL:          getString(v, "OFF_BASE_URL", "https://world.openfoodfacts.org"),
			UserAgent:        getString(v, "OFF_USER_AGENT", "ScannerBridge/1.0"),
			PlaceholderNames: getList(v, "CATALOG_PLACEHOLDER_NAMES"),
		},
		HomeAssistant: HomeAssistantConfig{
			ServiceURL:  getString(v, "HA_URL", ""),
			Token:       getString(v, "HA_TOKEN", ""),
			MediaPlayer: getString(v, "HA_MEDIA_PLAYER", ""),
			QueueSize:   getInt(v, "HA_QUEUE_SIZE", 16),
		},
		Scanner: ScannerConfig{
			AddBarcode:       getString(v, "SCANNER_ADD_BARCODE", "11"),
			InfoBarcode:      getString(v, "SCANNER_INFO_BARCODE", "22"),
			Device:           getString(v, "SCANNER_DEVICE", "-"),
			GUID:             getString(v, "SCANNER_GUID", ""),
			IdleTimeout:      time.Duration(getInt(v, "MODE_IDLE_TIMEOUT_SECONDS", 300)) * time.Second,
			TickInterval:     time.Duration(getInt(v, "WATCHDOG_TICK_MS", 100)) * time.Millisecond,
			UnknownOnConsume: getString(v, "CONSUME_UNKNOWN_POLICY", "register"),
		},
		MQTT: MQTTConfig{
			Broker:   getString(v, "MQTT_BROKER", ""),
			Topic:    getString(v, "MQTT_TOPIC", "scanner/barcodes"),
			ClientID: getString(v, "MQTT_CLIENT_ID", "scanner-bridge"),
			Username: getString(v, "MQTT_USERNAME", ""),
			Password: getString(v, "MQTT_PASSWORD", ""),
		},
		HTTP: HTTPConfig{
			Enabled: getBool(v, "HTTP_ENABLED", false),
			Host:    getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:    getInt(v, "HTTP_PORT", 8080),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "scanner-bridge"),
		},
		ClientTimeout: time.Duration(getInt(v, "HTTP_CLIENT_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		if b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key))); err == nil {
			return b
		}
	}
	return def
}

// getList lee una lista separada por comas.
func getList(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v.GetString(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
