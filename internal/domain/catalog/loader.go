package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cassiomorais/storekit/internal/domain/errors"
)

type productDefinition struct {
	ID       string             `json:"id"`
	Type     ProductType        `json:"type"`
	Enabled  *bool              `json:"enabled"`
	StoreIDs map[string]string  `json:"store_ids"`
	Payouts  []payoutDefinition `json:"payouts"`
}

type payoutDefinition struct {
	Type     PayoutType `json:"type"`
	Subtype  string     `json:"subtype"`
	Quantity int64      `json:"quantity"`
	Data     string     `json:"data"`
}

// Parse builds a catalog from a JSON product list. Products default to
// enabled unless the definition says otherwise.
func Parse(data []byte) (*Catalog, error) {
	var defs []productDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	products := make([]*Product, 0, len(defs))
	for _, d := range defs {
		switch d.Type {
		case Consumable, NonConsumable, Subscription:
		default:
			return nil, fmt.Errorf("product %q: unknown type %q: %w", d.ID, d.Type, errors.ErrInvalidInput)
		}
		p := &Product{
			ID:       d.ID,
			Type:     d.Type,
			StoreIDs: d.StoreIDs,
			Enabled:  d.Enabled == nil || *d.Enabled,
		}
		for _, pd := range d.Payouts {
			p.Payouts = append(p.Payouts, Payout{
				Type:     pd.Type,
				Subtype:  pd.Subtype,
				Quantity: pd.Quantity,
				Data:     pd.Data,
			})
		}
		products = append(products, p)
	}
	return New(products...)
}

// LoadFile reads a catalog definition file from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}
