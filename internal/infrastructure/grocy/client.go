package grocy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// Verificar en tiempo de compilación que Client implementa InventoryClient.
var _ ports.InventoryClient = (*Client)(nil)

// DefaultAPIKeyHeader cabecera de autenticación que espera Grocy.
const DefaultAPIKeyHeader = "GROCY-API-KEY"

// maxBodyBytes límite de lectura de respuestas; las de Grocy son pequeñas.
const maxBodyBytes = 256 * 1024

// Config parámetros del cliente.
type Config struct {
	BaseURL            string // ej. http://grocy.lan:9192/api
	APIKey             string
	APIKeyHeader       string // vacío = DefaultAPIKeyHeader
	ShoppingLocationID int    // tienda por defecto al vincular códigos nuevos
	Timeout            time.Duration
}

// Client adaptador HTTP del backend de inventario Grocy.
// Usa net/http de la librería estándar: cada operación es una petición JSON simple.
type Client struct {
	baseURL            string
	apiKey             string
	apiKeyHeader       string
	shoppingLocationID int
	httpClient         *http.Client
	log                zerolog.Logger
}

// NewClient construye el adaptador. Si cfg.Timeout es 0 se usa 10 s.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	header := cfg.APIKeyHeader
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:             cfg.APIKey,
		apiKeyHeader:       header,
		shoppingLocationID: cfg.ShoppingLocationID,
		httpClient:         &http.Client{Timeout: timeout},
		log:                log.With().Str("component", "grocy").Logger(),
	}
}

// ── Estructuras del protocolo Grocy ───────────────────────────────────────────

type productDetailsResponse struct {
	Product struct {
		ID   objectID `json:"id"`
		Name string   `json:"name"`
	} `json:"product"`
	StockAmount                       decimal.Decimal `json:"stock_amount"`
	QuConversionFactorPurchaseToStock decimal.Decimal `json:"qu_conversion_factor_purchase_to_stock"`
}

type stockChangeRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Spoiled         string          `json:"spoiled,omitempty"`
}

type stockLogResponse struct {
	ID              objectID        `json:"id"`
	ProductID       objectID        `json:"product_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	TransactionID   string          `json:"transaction_id"`
}

type createProductRequest struct {
	Name                    string          `json:"name"`
	Description             string          `json:"description"`
	LocationID              int             `json:"location_id"`
	QuIDPurchase            int             `json:"qu_id_purchase"`
	QuIDStock               int             `json:"qu_id_stock"`
	DefaultBestBeforeDays   int             `json:"default_best_before_days"`
	MinStockAmount          decimal.Decimal `json:"min_stock_amount"`
	TreatOpenedAsOutOfStock int             `json:"treat_opened_as_out_of_stock"`
}

type attachBarcodeRequest struct {
	Barcode            string `json:"barcode"`
	ProductID          string `json:"product_id"`
	Amount             string `json:"amount"`
	ShoppingLocationID int    `json:"shopping_location_id"`
}

type createdObjectResponse struct {
	CreatedObjectID objectID `json:"created_object_id"`
}

type errorResponse struct {
	ErrorMessage string `json:"error_message"`
}

// objectID acepta ids numéricos o en string (Grocy devuelve ambos según versión).
type objectID string

func (o *objectID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*o = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*o = objectID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*o = objectID(n.String())
	return nil
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// LookupByBarcode GET /stock/products/by-barcode/{barcode}. HTTP 400 = producto desconocido.
func (c *Client) LookupByBarcode(ctx context.Context, barcode string) (*entity.ProductRecord, error) {
	path := "/stock/products/by-barcode/" + url.PathEscape(barcode)
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusBadRequest:
		return nil, domain.ErrNotFound
	case status < 200 || status > 299:
		return nil, fmt.Errorf("grocy: lookup %s: HTTP %d: %s: %w", barcode, status, errorMessage(body), domain.ErrUnexpectedStatus)
	}

	var details productDetailsResponse
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("grocy: deserializar producto %s: %v: %w", barcode, err, domain.ErrTransport)
	}
	if details.Product.ID == "" {
		return nil, fmt.Errorf("grocy: respuesta sin product.id para %s: %w", barcode, domain.ErrTransport)
	}
	return &entity.ProductRecord{
		ID:                       string(details.Product.ID),
		Name:                     details.Product.Name,
		StockAmount:              details.StockAmount,
		PurchaseConversionFactor: details.QuConversionFactorPurchaseToStock,
	}, nil
}

// AddStock POST /stock/products/{id}/add con transaction_type=purchase.
func (c *Client) AddStock(ctx context.Context, productID string, amount decimal.Decimal) ([]entity.StockLogEntry, error) {
	req := stockChangeRequest{Amount: amount, TransactionType: entity.TransactionTypePurchase}
	return c.changeStock(ctx, productID, "add", req)
}

// ConsumeStock POST /stock/products/{id}/consume con transaction_type=consume.
// Grocy espera spoiled como string ("true"/"false").
func (c *Client) ConsumeStock(ctx context.Context, productID string, amount decimal.Decimal, spoiled bool) ([]entity.StockLogEntry, error) {
	req := stockChangeRequest{
		Amount:          amount,
		TransactionType: entity.TransactionTypeConsume,
		Spoiled:         fmt.Sprintf("%t", spoiled),
	}
	return c.changeStock(ctx, productID, "consume", req)
}

func (c *Client) changeStock(ctx context.Context, productID, action string, payload stockChangeRequest) ([]entity.StockLogEntry, error) {
	path := fmt.Sprintf("/stock/products/%s/%s", url.PathEscape(productID), action)
	status, body, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return nil, fmt.Errorf("grocy: %s producto %s: HTTP %d: %s: %w", action, productID, status, errorMessage(body), domain.ErrUnexpectedStatus)
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var raw []stockLogResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		// Algunas versiones devuelven un único objeto en lugar de un array.
		// La operación ya se aplicó; un cuerpo ilegible no la convierte en fallo.
		var single stockLogResponse
		if errSingle := json.Unmarshal(body, &single); errSingle != nil {
			c.log.Warn().Err(err).Str("product_id", productID).Str("action", action).Msg("respuesta de stock no interpretable")
			return nil, nil
		}
		raw = []stockLogResponse{single}
	}
	entries := make([]entity.StockLogEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, entity.StockLogEntry{
			ID:              string(r.ID),
			ProductID:       string(r.ProductID),
			Amount:          r.Amount,
			TransactionType: r.TransactionType,
			TransactionID:   r.TransactionID,
		})
	}
	return entries, nil
}

// CreateProduct POST /objects/products. El alta solo es válida si viene created_object_id.
func (c *Client) CreateProduct(ctx context.Context, draft entity.ProductDraft) (string, error) {
	payload := createProductRequest{
		Name:                  draft.Name,
		Description:           draft.Description,
		LocationID:            draft.LocationID,
		QuIDPurchase:          draft.QuantityUnitPurchaseID,
		QuIDStock:             draft.QuantityUnitStockID,
		DefaultBestBeforeDays: draft.DefaultBestBeforeDays,
		MinStockAmount:        draft.MinStockAmount,
	}
	if draft.TreatOpenedAsOutOfStock {
		payload.TreatOpenedAsOutOfStock = 1
	}
	return c.createObject(ctx, "products", payload)
}

// AttachBarcode POST /objects/product_barcodes con cantidad 1 y la tienda por defecto.
func (c *Client) AttachBarcode(ctx context.Context, barcode, productID string) error {
	payload := attachBarcodeRequest{
		Barcode:            barcode,
		ProductID:          productID,
		Amount:             "1.0",
		ShoppingLocationID: c.shoppingLocationID,
	}
	_, err := c.createObject(ctx, "product_barcodes", payload)
	return err
}

func (c *Client) createObject(ctx context.Context, entityName string, payload any) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/objects/"+entityName, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return "", fmt.Errorf("grocy: crear %s: HTTP %d: %s: %w", entityName, status, errorMessage(body), domain.ErrUnexpectedStatus)
	}
	var created createdObjectResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("grocy: deserializar alta de %s: %v: %w", entityName, err, domain.ErrTransport)
	}
	if created.CreatedObjectID == "" {
		return "", fmt.Errorf("grocy: alta de %s sin created_object_id: %w", entityName, domain.ErrUnexpectedStatus)
	}
	return string(created.CreatedObjectID), nil
}

// do ejecuta la petición y devuelve estado y cuerpo. Solo devuelve error en fallos de transporte.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("grocy: serializar request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("grocy: crear HTTP request: %v: %w", err, domain.ErrTransport)
	}
	req.Header.Set(c.apiKeyHeader, c.apiKey)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, fmt.Errorf("grocy: timeout o cancelación: %v: %w", ctx.Err(), domain.ErrTransport)
		}
		return 0, nil, fmt.Errorf("grocy: llamada HTTP fallida: %v: %w", err, domain.ErrTransport)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("grocy: leer respuesta: %v: %w", err, domain.ErrTransport)
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("grocy request")
	return resp.StatusCode, body, nil
}

// errorMessage extrae error_message de Grocy o devuelve el cuerpo recortado.
func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
