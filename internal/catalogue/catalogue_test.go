package catalogue_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/orderflow/internal/catalogue"
	"github.com/dejobratic/orderflow/internal/orders/domain"
)

func TestDefault(t *testing.T) {
	c := catalogue.Default()

	item, ok := c.Get("coffee")
	require.True(t, ok)
	assert.Equal(t, domain.CatalogueItem{SKU: "COFFEE", Name: "Coffee", UnitPricePence: 150}, item)
	for _, sku := range []string{"COFFEE", "MUFFIN", "SANDWICH", "TEA", "WATER"} {
		_, ok := c.Get(sku)
		assert.True(t, ok, sku)
	}
	_, ok = c.Get("PIZZA")
	assert.False(t, ok)
}

func TestParseJSONAndYAML(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"json", `{"items":[{"sku":"latte","name":"Latte","unit_price_pence":300}]}`},
		{"yaml", "items:\n  - sku: latte\n    name: Latte\n    unit_price_pence: 300\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := catalogue.Parse([]byte(tt.data))
			require.NoError(t, err)

			item, ok := c.Get("LATTE")
			require.True(t, ok)
			assert.Equal(t, "LATTE", item.SKU)
			assert.Equal(t, int64(300), item.UnitPricePence)
		})
	}
}

func TestParseNormalizesNames(t *testing.T) {
	// Decomposed "e" + combining acute is stored precomposed.
	c, err := catalogue.Parse([]byte(`{"items":[{"sku":"CAFE","name":"Cafe\u0301","unit_price_pence":10}]}`))
	require.NoError(t, err)

	item, _ := c.Get("CAFE")
	assert.Equal(t, "Caf\u00e9", item.Name)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative price", `{"items":[{"sku":"TEA","name":"Tea","unit_price_pence":-1}]}`},
		{"missing sku", `{"items":[{"name":"Tea","unit_price_pence":1}]}`},
		{"duplicate sku", `{"items":[{"sku":"tea","name":"a","unit_price_pence":1},{"sku":"TEA","name":"b","unit_price_pence":2}]}`},
		{"missing price", `{"items":[{"sku":"TEA","price":1}]}`},
		{"malformed", `{"items":[`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalogue.Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseIgnoresExtraKeys(t *testing.T) {
	c, err := catalogue.Parse([]byte(`{"currency":"GBP","items":[{"sku":"tea","name":"Tea","unit_price_pence":120,"description":"hot"}]}`))
	require.NoError(t, err)

	item, ok := c.Get("TEA")
	require.True(t, ok)
	assert.Equal(t, domain.CatalogueItem{SKU: "TEA", Name: "Tea", UnitPricePence: 120}, item)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - {sku: bun, name: Bun, unit_price_pence: 80}\n"), 0o644))

	c, err := catalogue.Load(path)
	require.NoError(t, err)
	_, ok := c.Get("BUN")
	assert.True(t, ok)

	c, err = catalogue.Load("")
	require.NoError(t, err)
	_, ok = c.Get("COFFEE")
	assert.True(t, ok)

	_, err = catalogue.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
