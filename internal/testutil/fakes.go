// Package testutil dobles en memoria de los puertos externos, compartidos por los tests.
package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/domain/entity"
)

var (
	_ ports.InventoryClient = (*FakeInventory)(nil)
	_ ports.CatalogClient   = (*FakeCatalog)(nil)
	_ ports.Notifier        = (*RecordingNotifier)(nil)
)

// StockCall una llamada registrada a AddStock o ConsumeStock.
type StockCall struct {
	ProductID string
	Amount    decimal.Decimal
	Spoiled   bool
}

// FakeInventory backend de inventario en memoria. CreateProduct y AttachBarcode lo mutan,
// de forma que un código registrado pasa a ser resoluble en la siguiente búsqueda.
type FakeInventory struct {
	mu       sync.Mutex
	products map[string]*entity.ProductRecord // por id
	barcodes map[string]string                // código -> id
	nextID   int

	// Inyección de fallos.
	LookupErr  error
	AddErr     error
	ConsumeErr error
	CreateErr  error
	AttachErr  error

	LookupCalls  []string
	AddCalls     []StockCall
	ConsumeCalls []StockCall
	CreateCalls  []entity.ProductDraft
	AttachCalls  [][2]string
}

// NewFakeInventory backend vacío.
func NewFakeInventory() *FakeInventory {
	return &FakeInventory{
		products: make(map[string]*entity.ProductRecord),
		barcodes: make(map[string]string),
		nextID:   100,
	}
}

// Seed añade un producto con su código.
func (f *FakeInventory) Seed(barcode string, p entity.ProductRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.products[p.ID] = &cp
	f.barcodes[barcode] = p.ID
}

// Stock devuelve el stock actual del producto (cero si no existe).
func (f *FakeInventory) Stock(productID string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[productID]; ok {
		return p.StockAmount
	}
	return decimal.Zero
}

func (f *FakeInventory) LookupByBarcode(_ context.Context, barcode string) (*entity.ProductRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LookupCalls = append(f.LookupCalls, barcode)
	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	id, ok := f.barcodes[barcode]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f.products[id]
	return &cp, nil
}

func (f *FakeInventory) AddStock(_ context.Context, productID string, amount decimal.Decimal) ([]entity.StockLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AddCalls = append(f.AddCalls, StockCall{ProductID: productID, Amount: amount})
	if f.AddErr != nil {
		return nil, f.AddErr
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, fmt.Errorf("fake: producto %s: %w", productID, domain.ErrUnexpectedStatus)
	}
	p.StockAmount = p.StockAmount.Add(amount)
	return []entity.StockLogEntry{{ProductID: productID, Amount: amount, TransactionType: entity.TransactionTypePurchase}}, nil
}

func (f *FakeInventory) ConsumeStock(_ context.Context, productID string, amount decimal.Decimal, spoiled bool) ([]entity.StockLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConsumeCalls = append(f.ConsumeCalls, StockCall{ProductID: productID, Amount: amount, Spoiled: spoiled})
	if f.ConsumeErr != nil {
		return nil, f.ConsumeErr
	}
	p, ok := f.products[productID]
	if !ok || p.StockAmount.LessThan(amount) {
		return nil, fmt.Errorf("fake: consumo de %s: %w", productID, domain.ErrUnexpectedStatus)
	}
	p.StockAmount = p.StockAmount.Sub(amount)
	return []entity.StockLogEntry{{ProductID: productID, Amount: amount.Neg(), TransactionType: entity.TransactionTypeConsume}}, nil
}

func (f *FakeInventory) CreateProduct(_ context.Context, draft entity.ProductDraft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls = append(f.CreateCalls, draft)
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.products[id] = &entity.ProductRecord{
		ID:                       id,
		Name:                     draft.Name,
		StockAmount:              decimal.Zero,
		PurchaseConversionFactor: decimal.NewFromInt(1),
	}
	return id, nil
}

func (f *FakeInventory) AttachBarcode(_ context.Context, barcode, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AttachCalls = append(f.AttachCalls, [2]string{barcode, productID})
	if f.AttachErr != nil {
		return f.AttachErr
	}
	if _, ok := f.products[productID]; !ok {
		return fmt.Errorf("fake: producto %s: %w", productID, domain.ErrUnexpectedStatus)
	}
	f.barcodes[barcode] = productID
	return nil
}

// FakeCatalog catálogo en memoria.
type FakeCatalog struct {
	mu    sync.Mutex
	Names map[string]string // código -> nombre (puede ser vacío)
	Err   error             // si no es nil, todas las búsquedas fallan con él
	Calls []string
}

// NewFakeCatalog catálogo vacío.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{Names: make(map[string]string)}
}

func (f *FakeCatalog) Lookup(_ context.Context, barcode string) (*entity.CatalogProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, barcode)
	if f.Err != nil {
		return nil, f.Err
	}
	name, ok := f.Names[barcode]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entity.CatalogProduct{Code: barcode, Name: name}, nil
}

// RecordingNotifier guarda los avisos en orden.
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *RecordingNotifier) Announce(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

// Messages copia de los avisos recibidos.
func (r *RecordingNotifier) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Reset olvida los avisos anteriores.
func (r *RecordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
