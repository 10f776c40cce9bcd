package gateway

import (
	"context"
	"net/http"

	"github.com/alextreichler/vendormarket/internal/models"
)

const addressesPath = "addresses"

func addressPath(id string) string {
	return addressesPath + "/" + escapeID(id)
}

func (c *Client) FetchAddresses(ctx context.Context) ([]models.Address, error) {
	var addrs []models.Address
	err := c.do(ctx, http.MethodGet, addressesPath, nil, nil, &addrs)
	if soft, err := c.softRead(addressesPath, err); soft || err != nil {
		return []models.Address{}, err
	}
	if addrs == nil {
		addrs = []models.Address{}
	}
	return addrs, nil
}

func (c *Client) FetchAddress(ctx context.Context, id string) (models.Address, error) {
	var a models.Address
	err := c.do(ctx, http.MethodGet, addressPath(id), nil, nil, &a)
	return a, err
}

func (c *Client) CreateAddress(ctx context.Context, a models.Address) (models.Address, error) {
	var out models.Address
	err := c.do(ctx, http.MethodPost, addressesPath, nil, a, &out)
	return out, err
}

func (c *Client) UpdateAddress(ctx context.Context, a models.Address) (models.Address, error) {
	var out models.Address
	err := c.do(ctx, http.MethodPatch, addressPath(a.ID), nil, a, &out)
	return out, err
}

func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, addressPath(id), nil, nil, nil)
}
