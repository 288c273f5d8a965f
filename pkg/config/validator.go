package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate comprueba la configuración antes de arrancar el puente.
func Validate(cfg *Config) error {
	if err := validateURL("GROCY_BASE_URL", cfg.Grocy.BaseURL); err != nil {
		return err
	}
	if cfg.Grocy.APIKey == "" {
		return fmt.Errorf("GROCY_API_KEY es obligatorio")
	}
	if err := validateURL("OFF_BASE_URL", cfg.Catalog.BaseURL); err != nil {
		return err
	}
	if cfg.HomeAssistant.Enabled() {
		if err := validateURL("HA_URL", cfg.HomeAssistant.ServiceURL); err != nil {
			return err
		}
		if cfg.HomeAssistant.MediaPlayer == "" {
			return fmt.Errorf("HA_MEDIA_PLAYER es obligatorio si HA_TOKEN está definido")
		}
	}

	add := strings.TrimSpace(cfg.Scanner.AddBarcode)
	info := strings.TrimSpace(cfg.Scanner.InfoBarcode)
	if add == "" || info == "" {
		return fmt.Errorf("SCANNER_ADD_BARCODE y SCANNER_INFO_BARCODE no pueden estar vacíos")
	}
	if add == info {
		return fmt.Errorf("SCANNER_ADD_BARCODE y SCANNER_INFO_BARCODE deben ser distintos")
	}
	if cfg.Scanner.IdleTimeout <= 0 {
		return fmt.Errorf("MODE_IDLE_TIMEOUT_SECONDS debe ser > 0")
	}
	if cfg.Scanner.TickInterval <= 0 {
		return fmt.Errorf("WATCHDOG_TICK_MS debe ser > 0")
	}
	switch strings.ToLower(cfg.Scanner.UnknownOnConsume) {
	case "register", "ignore":
	default:
		return fmt.Errorf("CONSUME_UNKNOWN_POLICY debe ser register o ignore, no %q", cfg.Scanner.UnknownOnConsume)
	}
	if cfg.ClientTimeout <= 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT_SECONDS debe ser > 0")
	}

	if cfg.Scanner.Device == "" && !cfg.MQTT.Enabled() && !cfg.HTTP.Enabled {
		return fmt.Errorf("no hay ningún origen de escaneos: define SCANNER_DEVICE, MQTT_BROKER o HTTP_ENABLED")
	}
	if cfg.HTTP.Enabled {
		if cfg.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET es obligatorio con la API HTTP activa")
		}
		if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
			return fmt.Errorf("HTTP_PORT fuera de rango: %d", cfg.HTTP.Port)
		}
	}
	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s es obligatorio", key)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s no es una URL http(s) válida: %q", key, raw)
	}
	return nil
}
