package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/scanner-bridge/internal/application/announce"
	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

// DefaultPlaceholderNames nombres que el catálogo usa para fichas sin nombre real.
var DefaultPlaceholderNames = []string{"unknown product", "unknown", "n/a"}

// DefaultDescription descripción de los productos dados de alta desde el catálogo.
const DefaultDescription = "Añadido automáticamente desde Open Food Facts"

// RegistrationDefaults configuración fija con la que se crean productos nuevos.
type RegistrationDefaults struct {
	LocationID             int
	QuantityUnitPurchaseID int
	QuantityUnitStockID    int
	Description            string
}

// Options parámetros opcionales del resolver.
type Options struct {
	Defaults RegistrationDefaults
	// ExtraPlaceholders se suman a DefaultPlaceholderNames.
	ExtraPlaceholders []string
}

// Resolver responde "¿qué es este código?" consultando el inventario y, si no lo conoce,
// el catálogo externo; en ese caso también da de alta el producto.
type Resolver struct {
	inventory    ports.InventoryClient
	catalog      ports.CatalogClient
	notifier     ports.Notifier
	defaults     RegistrationDefaults
	placeholders map[string]struct{}
	log          zerolog.Logger
}

// New construye el resolver inyectando los puertos.
func New(inventory ports.InventoryClient, catalog ports.CatalogClient, notifier ports.Notifier, opts Options, log zerolog.Logger) *Resolver {
	d := opts.Defaults
	if d.LocationID == 0 {
		d.LocationID = 1
	}
	if d.QuantityUnitPurchaseID == 0 {
		d.QuantityUnitPurchaseID = 2
	}
	if d.QuantityUnitStockID == 0 {
		d.QuantityUnitStockID = 2
	}
	if d.Description == "" {
		d.Description = DefaultDescription
	}

	placeholders := make(map[string]struct{}, len(DefaultPlaceholderNames)+len(opts.ExtraPlaceholders))
	for _, p := range append(append([]string{}, DefaultPlaceholderNames...), opts.ExtraPlaceholders...) {
		if k := normalizeName(p); k != "" {
			placeholders[k] = struct{}{}
		}
	}

	return &Resolver{
		inventory:    inventory,
		catalog:      catalog,
		notifier:     notifier,
		defaults:     d,
		placeholders: placeholders,
		log:          log.With().Str("component", "resolver").Logger(),
	}
}

// Lookup consulta solo el inventario. Cualquier fallo se presenta como NotFoundInInventory,
// pero los fallos de transporte o estados inesperados quedan registrados aparte.
func (r *Resolver) Lookup(ctx context.Context, barcode string) entity.ResolutionOutcome {
	product, err := r.inventory.LookupByBarcode(ctx, barcode)
	if err == nil {
		r.log.Debug().Str("barcode", barcode).Str("product_id", product.ID).Msg("producto encontrado en inventario")
		return entity.ResolutionOutcome{Status: entity.ResolutionFound, Product: product}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		r.log.Info().Str("barcode", barcode).Msg("producto no encontrado en inventario")
	case errors.Is(err, domain.ErrUnexpectedStatus):
		r.log.Error().Err(err).Str("barcode", barcode).Msg("respuesta inesperada del inventario, se trata como no encontrado")
	default:
		r.log.Error().Err(err).Str("barcode", barcode).Msg("inventario inaccesible, se trata como no encontrado")
	}
	return entity.ResolutionOutcome{Status: entity.ResolutionNotFoundInInventory}
}

// DiscoverAndRegister busca en el catálogo un código desconocido para el inventario y, si
// hay un nombre utilizable, crea el producto y le vincula el código. No reintenta nada:
// el código queda resoluble para el siguiente escaneo.
func (r *Resolver) DiscoverAndRegister(ctx context.Context, barcode string) entity.ResolutionOutcome {
	item, err := r.catalog.Lookup(ctx, barcode)
	if err != nil {
		reason := "not_found"
		if !errors.Is(err, domain.ErrNotFound) {
			reason = "transport"
		}
		ev := r.log.Warn()
		if reason == "transport" {
			ev = r.log.Error().Err(err)
		}
		ev.Str("barcode", barcode).Str("reason", reason).Msg("catálogo sin resultado utilizable")
		r.announce(ctx, announce.NotFoundAnywhere)
		return entity.ResolutionOutcome{Status: entity.ResolutionNotFoundAnywhere}
	}

	name := strings.TrimSpace(item.Name)
	if name == "" || r.IsPlaceholder(name) {
		reason := "placeholder"
		if name == "" {
			reason = "empty"
		}
		r.log.Warn().Str("barcode", barcode).Str("reason", reason).Str("catalog_name", item.Name).Msg("ficha de catálogo sin nombre utilizable")
		r.announce(ctx, announce.NotFoundAnywhere)
		return entity.ResolutionOutcome{Status: entity.ResolutionNotFoundAnywhere}
	}

	r.log.Info().Str("barcode", barcode).Str("catalog_name", name).Msg("producto encontrado en catálogo")
	r.announce(ctx, announce.CatalogFound(name))

	return r.register(ctx, barcode, name)
}

// register crea el producto y vincula el código. Cada paso se comprueba por separado.
func (r *Resolver) register(ctx context.Context, barcode, name string) entity.ResolutionOutcome {
	draft := entity.ProductDraft{
		Name:                    name,
		Description:             r.defaults.Description,
		LocationID:              r.defaults.LocationID,
		QuantityUnitPurchaseID:  r.defaults.QuantityUnitPurchaseID,
		QuantityUnitStockID:     r.defaults.QuantityUnitStockID,
		DefaultBestBeforeDays:   -1,
		MinStockAmount:          decimal.Zero,
		TreatOpenedAsOutOfStock: false,
	}

	productID, err := r.inventory.CreateProduct(ctx, draft)
	if err != nil {
		r.log.Error().Err(err).Str("barcode", barcode).Str("name", name).Msg("alta de producto fallida")
		r.announce(ctx, announce.RegistrationFailed(name))
		return entity.ResolutionOutcome{Status: entity.ResolutionRegistrationFailed, CatalogName: name}
	}
	r.log.Info().Str("barcode", barcode).Str("product_id", productID).Str("name", name).Msg("producto dado de alta")

	if err := r.inventory.AttachBarcode(ctx, barcode, productID); err != nil {
		r.log.Error().Err(err).Str("barcode", barcode).Str("product_id", productID).Msg("vinculación de código fallida")
		r.announce(ctx, announce.RegistrationFailed(name))
		return entity.ResolutionOutcome{
			Status:           entity.ResolutionRegistrationFailed,
			CatalogName:      name,
			CreatedProductID: productID,
		}
	}
	r.log.Info().Str("barcode", barcode).Str("product_id", productID).Msg("código vinculado al producto")
	r.announce(ctx, announce.Registered(name))

	return entity.ResolutionOutcome{
		Status:           entity.ResolutionRegistered,
		CatalogName:      name,
		CreatedProductID: productID,
	}
}

// IsPlaceholder indica si name es uno de los nombres de relleno conocidos del catálogo.
func (r *Resolver) IsPlaceholder(name string) bool {
	_, ok := r.placeholders[normalizeName(name)]
	return ok
}

func (r *Resolver) announce(ctx context.Context, text string) {
	if err := r.notifier.Announce(ctx, text); err != nil {
		r.log.Debug().Err(err).Msg("aviso no entregado")
	}
}

// normalizeName compara nombres sin importar mayúsculas, espacios ni la forma Unicode.
func normalizeName(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
