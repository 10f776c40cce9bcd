// Package orders assembles order views: line items with resolved product
// display fields and the resolved shipping address.
package orders

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/session"
)

// UnavailableName is shown for items whose product no longer exists.
const UnavailableName = "Product no longer available"

// Source reads orders for one session.
type Source interface {
	FetchOrders(ctx context.Context) ([]models.Order, error)
	FetchOrder(ctx context.Context, id string) (models.Order, error)
	FetchOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	FetchAddress(ctx context.Context, id string) (models.Address, error)
}

// Catalog resolves products in the general and sim catalogs.
type Catalog interface {
	Product(ctx context.Context, id string) (models.Product, error)
	SimProduct(ctx context.Context, id string) (models.Product, error)
}

type SourceFactory func(auth session.AuthState) Source

// GatewaySource binds the gateway client to each session's token.
func GatewaySource(client *gateway.Client) SourceFactory {
	return func(auth session.AuthState) Source {
		return client.WithToken(auth.Token)
	}
}

type Aggregator struct {
	source  SourceFactory
	catalog Catalog
	logger  *slog.Logger

	mu       sync.Mutex
	orders   []models.Order
	epoch    uint64
	inFlight int
}

func NewAggregator(source SourceFactory, catalog Catalog, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, catalog: catalog, logger: logger, orders: []models.Order{}}
}

// FetchOrders replaces the in-memory list with freshly assembled orders.
// Anonymous visitors have no orders.
func (a *Aggregator) FetchOrders(ctx context.Context, auth session.AuthState) ([]models.Order, error) {
	if !auth.Authenticated() {
		return []models.Order{}, nil
	}
	a.begin()
	defer a.end()
	epoch := a.currentEpoch()
	src := a.source(auth)

	list, err := src.FetchOrders(ctx)
	if err != nil {
		return a.List(), err
	}
	assembled := make([]models.Order, 0, len(list))
	for _, o := range list {
		full, err := a.assemble(ctx, src, o)
		if err != nil {
			return a.List(), err
		}
		assembled = append(assembled, full)
	}

	a.mu.Lock()
	if epoch == a.epoch {
		a.orders = assembled
	}
	a.mu.Unlock()
	return append([]models.Order{}, assembled...), nil
}

// GetOrderByID serves from the in-memory list when the order is already
// there.
func (a *Aggregator) GetOrderByID(ctx context.Context, auth session.AuthState, id string) (models.Order, error) {
	a.mu.Lock()
	for _, o := range a.orders {
		if o.ID == id {
			a.mu.Unlock()
			return o, nil
		}
	}
	a.mu.Unlock()

	if !auth.Authenticated() {
		return models.Order{}, gateway.ErrUnauthenticated
	}
	a.begin()
	defer a.end()
	src := a.source(auth)
	o, err := src.FetchOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	return a.assemble(ctx, src, o)
}

func (a *Aggregator) assemble(ctx context.Context, src Source, o models.Order) (models.Order, error) {
	items, err := src.FetchOrderItems(ctx, o.ID)
	if err != nil {
		return models.Order{}, err
	}
	for i := range items {
		a.resolve(ctx, &items[i])
	}
	o.Items = items
	o.ShippingAddress = nil

	if o.ShippingAddressID != "" {
		addr, err := src.FetchAddress(ctx, o.ShippingAddressID)
		if err != nil {
			a.logger.Warn("Shipping address unavailable", "order_id", o.ID, "address_id", o.ShippingAddressID, "error", err)
		} else {
			o.ShippingAddress = &addr
		}
	}
	return o, nil
}

func (a *Aggregator) resolve(ctx context.Context, item *models.OrderItem) {
	catalog, id := item.Ref()

	var (
		p   models.Product
		err error
	)
	switch {
	case id == "":
		err = errors.New("order item has no product reference")
	case catalog == models.CatalogSim:
		p, err = a.catalog.SimProduct(ctx, id)
	default:
		p, err = a.catalog.Product(ctx, id)
	}
	if err != nil {
		a.logger.Warn("Product unavailable for order item", "item_id", item.ID, "catalog", catalog, "product_id", id, "error", err)
		item.ResolvedName = UnavailableName
		item.ResolvedImage = ""
		return
	}
	item.ResolvedName = p.Name
	item.ResolvedImage = p.ImageURL
}

// Reset drops the in-memory list, for example on logout.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.epoch++
	a.orders = []models.Order{}
}

func (a *Aggregator) List() []models.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Order{}, a.orders...)
}

// Loading reports whether an order fetch is in flight.
func (a *Aggregator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight > 0
}

func (a *Aggregator) begin() {
	a.mu.Lock()
	a.inFlight++
	a.mu.Unlock()
}

func (a *Aggregator) end() {
	a.mu.Lock()
	a.inFlight--
	a.mu.Unlock()
}

func (a *Aggregator) currentEpoch() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch
}
