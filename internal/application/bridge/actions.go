package bridge

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/scanner-bridge/internal/application/announce"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

var consumeUnit = decimal.NewFromInt(1)

// checkInventory modo consulta: solo lectura, sin catálogo ni altas.
func (c *Controller) checkInventory(ctx context.Context, log zerolog.Logger, barcode string) entity.ResolutionOutcome {
	out := c.resolver.Lookup(ctx, barcode)
	if !out.Found() {
		log.Info().Msg("consulta: producto no encontrado en inventario")
		c.announce(ctx, announce.NotInInventory(barcode))
		return out
	}
	p := out.Product
	log.Info().
		Str("product_id", p.ID).
		Str("name", p.Name).
		Str("stock", p.StockAmount.String()).
		Msg("consulta de existencias")
	c.announce(ctx, announce.StockInfo(p.Name, p.StockAmount))
	return out
}

// increaseInventory modo compra: suma una unidad de compra (factor de conversión en unidades de stock).
func (c *Controller) increaseInventory(ctx context.Context, log zerolog.Logger, barcode string) (entity.ResolutionOutcome, error) {
	out := c.resolver.Lookup(ctx, barcode)
	if !out.Found() {
		log.Info().Msg("producto desconocido, se intenta el catálogo")
		return c.discover(ctx, barcode)
	}

	p := out.Product
	amount := p.PurchaseAmount()
	if _, err := c.inventory.AddStock(ctx, p.ID, amount); err != nil {
		log.Error().Err(err).Str("product_id", p.ID).Str("name", p.Name).Msg("no se pudo aumentar el stock")
		c.announce(ctx, announce.AddFailed(p.Name))
		return out, err
	}
	log.Info().
		Str("product_id", p.ID).
		Str("name", p.Name).
		Str("amount", amount.String()).
		Msg("stock aumentado")
	c.announce(ctx, announce.Added(p.Name, amount))
	return out, nil
}

// decreaseInventory modo consumo: descuenta una unidad si hay existencias.
func (c *Controller) decreaseInventory(ctx context.Context, log zerolog.Logger, barcode string) (entity.ResolutionOutcome, error) {
	out := c.resolver.Lookup(ctx, barcode)
	if !out.Found() {
		if c.cfg.UnknownOnConsume == UnknownOnConsumeIgnore {
			log.Info().Msg("producto desconocido en modo consumo, ignorado por política")
			c.announce(ctx, announce.NotInInventory(barcode))
			return out, nil
		}
		log.Info().Msg("producto desconocido, se intenta el catálogo")
		return c.discover(ctx, barcode)
	}

	p := out.Product
	stock := p.AvailableStock()
	if !stock.IsPositive() {
		log.Info().Str("product_id", p.ID).Str("name", p.Name).Msg("stock a cero, nada que descontar")
		c.announce(ctx, announce.NothingToConsume(p.Name))
		return out, nil
	}

	if _, err := c.inventory.ConsumeStock(ctx, p.ID, consumeUnit, false); err != nil {
		log.Error().Err(err).Str("product_id", p.ID).Str("name", p.Name).Msg("no se pudo descontar el stock")
		c.announce(ctx, announce.ConsumeFailed(p.Name))
		return out, err
	}
	remaining := stock.Sub(consumeUnit)
	log.Info().
		Str("product_id", p.ID).
		Str("name", p.Name).
		Str("remaining", remaining.String()).
		Msg("stock descontado")
	c.announce(ctx, announce.Consumed(p.Name, remaining))
	return out, nil
}

// discover delega en el resolver la búsqueda en catálogo y el alta.
func (c *Controller) discover(ctx context.Context, barcode string) (entity.ResolutionOutcome, error) {
	out := c.resolver.DiscoverAndRegister(ctx, barcode)
	if out.Status == entity.ResolutionRegistrationFailed {
		return out, domain.ErrRegistrationFailed
	}
	return out, nil
}
