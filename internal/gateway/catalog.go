package gateway

import (
	"context"
	"net/http"

	"github.com/alextreichler/vendormarket/internal/models"
)

// Product looks up the general catalog.
func (c *Client) Product(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := c.do(ctx, http.MethodGet, "products/"+escapeID(id), nil, nil, &p)
	return p, err
}

// SimProduct looks up the sim catalog.
func (c *Client) SimProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := c.do(ctx, http.MethodGet, "sim-products/"+escapeID(id), nil, nil, &p)
	return p, err
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var ps []models.Product
	err := c.do(ctx, http.MethodGet, "products", nil, nil, &ps)
	return ps, err
}
