package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

func TestProductRecord_AvailableStockNuncaNegativo(t *testing.T) {
	p := entity.ProductRecord{StockAmount: decimal.NewFromInt(-3)}
	assert.True(t, p.AvailableStock().IsZero())

	p.StockAmount = decimal.RequireFromString("2.5")
	assert.Equal(t, "2.5", p.AvailableStock().String())
}

func TestProductRecord_PurchaseAmount(t *testing.T) {
	p := entity.ProductRecord{PurchaseConversionFactor: decimal.NewFromInt(6)}
	assert.True(t, p.PurchaseAmount().Equal(decimal.NewFromInt(6)))

	// Factor ausente o no positivo: una unidad.
	for _, f := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		p.PurchaseConversionFactor = f
		assert.True(t, p.PurchaseAmount().Equal(decimal.NewFromInt(1)))
	}
}

func TestMode_String(t *testing.T) {
	var zero entity.Mode
	assert.Equal(t, entity.ModeConsume, zero, "el modo inicial es el valor cero")
	assert.Equal(t, "consume", entity.ModeConsume.String())
	assert.Equal(t, "add", entity.ModeAdd.String())
	assert.Equal(t, "info", entity.ModeInfo.String())
	assert.Equal(t, "mode(9)", entity.Mode(9).String())
}

func TestResolutionOutcome_Found(t *testing.T) {
	assert.False(t, entity.ResolutionOutcome{Status: entity.ResolutionFound}.Found(), "sin producto no hay registro")
	assert.True(t, entity.ResolutionOutcome{Status: entity.ResolutionFound, Product: &entity.ProductRecord{}}.Found())
	assert.Equal(t, "not_found_anywhere", entity.ResolutionNotFoundAnywhere.String())
}
