package openfoodfacts_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-bridge/internal/domain"
	"github.com/jhoicas/scanner-bridge/internal/infrastructure/openfoodfacts"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openfoodfacts.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openfoodfacts.NewClient(openfoodfacts.Config{BaseURL: srv.URL, UserAgent: "ScannerBridgeTest/1.0"}, zerolog.Nop())
}

func TestLookup_Encontrado(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/product/3017620422003", r.URL.Path)
		assert.Equal(t, "code,product_name", r.URL.Query().Get("fields"))
		assert.Equal(t, "ScannerBridgeTest/1.0", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `{"code":"3017620422003","status":1,"status_verbose":"product found","product":{"code":"3017620422003","product_name":"Nutella"}}`)
	})

	p, err := c.Lookup(context.Background(), "3017620422003")
	require.NoError(t, err)
	assert.Equal(t, "Nutella", p.Name)
	assert.Equal(t, "3017620422003", p.Code)
}

// Un producto con nombre vacío se devuelve tal cual; decidir si es utilizable es cosa del resolver.
func TestLookup_NombreVacioNoEsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"1","status":1,"product":{"product_name":""}}`)
	})

	p, err := c.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, p.Name)
	assert.Equal(t, "1", p.Code)
}

func TestLookup_Status0EsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"1","status":0,"status_verbose":"product not found"}`)
	})

	_, err := c.Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLookup_404EsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status":0}`)
	})

	_, err := c.Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLookup_ErrorServidorEsTransporte(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestLookup_JSONRotoEsTransporte(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":`)
	})

	_, err := c.Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrTransport)
}
