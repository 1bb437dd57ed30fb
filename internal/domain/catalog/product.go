package catalog

import (
	"github.com/cassiomorais/storekit/internal/domain/errors"
)

// ProductType classifies how a purchase of the product behaves.
type ProductType string

const (
	Consumable    ProductType = "consumable"
	NonConsumable ProductType = "non_consumable"
	Subscription  ProductType = "subscription"
)

// Durable reports whether an entitlement for the product survives restore and
// duplicate-transaction recovery. Consumables are delivered once and never
// restored.
func (t ProductType) Durable() bool {
	return t == NonConsumable || t == Subscription
}

// PayoutType classifies what a payout grants.
type PayoutType string

const (
	PayoutCurrency PayoutType = "currency"
	PayoutItem     PayoutType = "item"
)

// Payout describes an in-game grant attached to a product.
type Payout struct {
	Type     PayoutType
	Subtype  string
	Quantity int64
	Data     string
}

// Product is a purchasable catalog entry. Immutable after catalog load.
type Product struct {
	ID       string
	Type     ProductType
	StoreIDs map[string]string // store name -> store-specific product id
	Payouts  []Payout
	Enabled  bool
}

// StoreSpecificID returns the product id to use with the given store,
// falling back to the catalog id when no override is mapped.
func (p *Product) StoreSpecificID(store string) string {
	if id, ok := p.StoreIDs[store]; ok {
		return id
	}
	return p.ID
}

// Catalog is the set of products configured for the application.
type Catalog struct {
	products map[string]*Product
	order    []string
}

// New builds a catalog from the given products. Product IDs must be unique;
// a duplicate replaces the earlier definition, matching store console behavior
// where the last uploaded definition wins.
func New(products ...*Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, errors.ErrEmptyCatalog
	}
	c := &Catalog{products: make(map[string]*Product, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, errors.NewValidationError("id", "product id cannot be empty")
		}
		if _, exists := c.products[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.products[p.ID] = p
	}
	return c, nil
}

// Product looks up a product by catalog id.
func (c *Catalog) Product(id string) (*Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// Products returns all products in definition order.
func (c *Catalog) Products() []*Product {
	out := make([]*Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

// Len returns the number of products in the catalog.
func (c *Catalog) Len() int {
	return len(c.products)
}
