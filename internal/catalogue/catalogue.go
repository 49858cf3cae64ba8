// Package catalogue loads the read-only product catalogue from JSON or YAML.
package catalogue

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

//go:embed default_catalogue.json
var defaultCatalogue []byte

// Catalogue maps uppercase SKUs to priced items.
type Catalogue struct {
	items map[string]domain.CatalogueItem
}

type catalogueFile struct {
	Items []catalogueEntry `yaml:"items"`
}

type catalogueEntry struct {
	SKU            string `yaml:"sku"`
	Name           string `yaml:"name"`
	UnitPricePence *int64 `yaml:"unit_price_pence"`
}

// Default returns the catalogue shipped with the binary.
func Default() *Catalogue {
	c, err := Parse(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("embedded catalogue is invalid: %v", err))
	}
	return c
}

// Load reads a catalogue file. An empty path selects the embedded default.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalogue %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes {items: [{sku, name, unit_price_pence}]}. JSON input is
// accepted because it is valid YAML. Keys other than those are ignored.
func Parse(data []byte) (*Catalogue, error) {
	var file catalogueFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}

	items := make(map[string]domain.CatalogueItem, len(file.Items))
	for i, item := range file.Items {
		sku := strings.ToUpper(strings.TrimSpace(item.SKU))
		if sku == "" {
			return nil, fmt.Errorf("item %d: sku is required", i)
		}
		if item.UnitPricePence == nil {
			return nil, fmt.Errorf("item %s: unit_price_pence is required", sku)
		}
		if *item.UnitPricePence < 0 {
			return nil, fmt.Errorf("item %s: unit_price_pence must not be negative", sku)
		}
		if _, dup := items[sku]; dup {
			return nil, fmt.Errorf("item %s: duplicate sku", sku)
		}
		items[sku] = domain.CatalogueItem{
			SKU:            sku,
			Name:           norm.NFC.String(strings.TrimSpace(item.Name)),
			UnitPricePence: *item.UnitPricePence,
		}
	}

	return &Catalogue{items: items}, nil
}

// Get looks up sku case-insensitively.
func (c *Catalogue) Get(sku string) (domain.CatalogueItem, bool) {
	item, ok := c.items[strings.ToUpper(sku)]
	return item, ok
}
