package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// Verificar en tiempo de compilación que Client implementa CatalogClient.
var _ ports.CatalogClient = (*Client)(nil)

const (
	DefaultBaseURL   = "https://world.openfoodfacts.org"
	DefaultUserAgent = "ScannerBridge/1.0"

	// Solo pedimos los campos que usamos; la ficha completa pesa cientos de KB.
	lookupFields = "code,product_name"
)

// Config parámetros del cliente.
type Config struct {
	BaseURL   string
	UserAgent string // Open Food Facts exige un User-Agent identificable
	Timeout   time.Duration
}

// Client adaptador del API v2 de Open Food Facts.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient construye el adaptador con valores por defecto para los campos vacíos.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		userAgent:  ua,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "openfoodfacts").Logger(),
	}
}

type productResponse struct {
	Code          string `json:"code"`
	Status        int    `json:"status"`
	StatusVerbose string `json:"status_verbose"`
	Product       *struct {
		Code        string `json:"code"`
		ProductName string `json:"product_name"`
	} `json:"product"`
}

// Lookup consulta el producto. domain.ErrNotFound si el catálogo no lo tiene;
// cualquier otro fallo (red, HTTP, JSON) viene envuelto en domain.ErrTransport.
func (c *Client) Lookup(ctx context.Context, barcode string) (*entity.CatalogProduct, error) {
	endpoint := fmt.Sprintf("%s/api/v2/product/%s?fields=%s",
		c.baseURL, url.PathEscape(barcode), url.QueryEscape(lookupFields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("off: crear HTTP request: %v: %w", err, domain.ErrTransport)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("off: llamada HTTP fallida: %v: %w", err, domain.ErrTransport)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 128*1024))
	if err != nil {
		return nil, fmt.Errorf("off: leer respuesta: %v: %w", err, domain.ErrTransport)
	}

	// v2 responde 404 con status=0 cuando el código no existe.
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("off: HTTP %d: %w", resp.StatusCode, domain.ErrTransport)
	}

	var pr productResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("off: deserializar respuesta: %v: %w", err, domain.ErrTransport)
	}
	if pr.Status != 1 || pr.Product == nil {
		c.log.Debug().Str("barcode", barcode).Str("status", pr.StatusVerbose).Msg("producto no encontrado en catálogo")
		return nil, domain.ErrNotFound
	}

	code := pr.Product.Code
	if code == "" {
		code = pr.Code
	}
	return &entity.CatalogProduct{Code: code, Name: pr.Product.ProductName}, nil
}
