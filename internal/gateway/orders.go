package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alextreichler/vendormarket/internal/models"
)

const (
	ordersPath     = "orders"
	orderItemsPath = "order-items"
)

func (c *Client) FetchOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, http.MethodGet, ordersPath, nil, nil, &orders)
	if soft, err := c.softRead(ordersPath, err); soft || err != nil {
		return []models.Order{}, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (c *Client) FetchOrder(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	err := c.do(ctx, http.MethodGet, ordersPath+"/"+escapeID(id), nil, nil, &o)
	return o, err
}

func (c *Client) FetchOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := c.do(ctx, http.MethodGet, orderItemsPath, url.Values{"order_id": {orderID}}, nil, &items)
	if soft, err := c.softRead(orderItemsPath, err); soft || err != nil {
		return []models.OrderItem{}, err
	}
	return items, nil
}

// PlaceOrder checks out the authenticated cart. Only the CLI uses it; the
// storefront engines never create orders.
func (c *Client) PlaceOrder(ctx context.Context, shippingAddressID string) (models.Order, error) {
	var o models.Order
	in := map[string]string{"shipping_address_id": shippingAddressID}
	err := c.do(ctx, http.MethodPost, ordersPath, nil, in, &o)
	return o, err
}
