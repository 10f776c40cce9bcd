package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is an entry of either catalog (general or sim).
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	ImageURL      string           `json:"image_url"`
	GSTPercentage *decimal.Decimal `json:"gst_percentage,omitempty"`
	Inventory     *int             `json:"inventory,omitempty"` // nil when stock is not tracked
}

// CartLine is one cart entry. A cart holds at most one line per ProductID.
type CartLine struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	Quantity      int              `json:"quantity"`
	Name          string           `json:"name"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	ImageURL      string           `json:"image_url"`
	GSTPercentage *decimal.Decimal `json:"gst_percentage,omitempty"`
	Inventory     *int             `json:"inventory,omitempty"`
}

// Subtotal is UnitPrice × Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Address struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
	IsDefault  bool   `json:"is_default"`
	OwnerID    string `json:"owner_id,omitempty"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderShipped, OrderDelivered, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID                string          `json:"id"`
	Total             decimal.Decimal `json:"total"`
	Status            OrderStatus     `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	ShippingAddressID string          `json:"shipping_address_id,omitempty"`
	Items             []OrderItem     `json:"items,omitempty"`
	ShippingAddress   *Address        `json:"shipping_address,omitempty"`
}

// Catalog names the product catalog an order item refers to.
type Catalog string

const (
	CatalogShop Catalog = "shop"
	CatalogSim  Catalog = "sim"
)

// OrderItem references exactly one of ProductID or SimProductID.
type OrderItem struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id,omitempty"`
	SimProductID  string          `json:"sim_product_id,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	ResolvedName  string          `json:"resolved_name,omitempty"`
	ResolvedImage string          `json:"resolved_image,omitempty"`
}

// Ref reports the catalog and product id the item points at. A set
// SimProductID wins; the shop catalog is the fallback.
func (i OrderItem) Ref() (Catalog, string) {
	if i.SimProductID != "" {
		return CatalogSim, i.SimProductID
	}
	return CatalogShop, i.ProductID
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"` // bcrypt hash
}
