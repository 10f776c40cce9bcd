package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alextreichler/vendormarket/internal/models"
)

const cartPath = "cart"

// FetchCart returns the authenticated cart, or an empty cart if the session
// is not (or no longer) valid.
func (c *Client) FetchCart(ctx context.Context) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := c.do(ctx, http.MethodGet, cartPath, nil, nil, &lines)
	if soft, err := c.softRead(cartPath, err); soft || err != nil {
		return []models.CartLine{}, err
	}
	return nonNil(lines), nil
}

// AddItem returns the whole cart as recomputed by the server.
func (c *Client) AddItem(ctx context.Context, productID string, quantity int) ([]models.CartLine, error) {
	in := map[string]any{"product_id": productID, "quantity": quantity}
	var lines []models.CartLine
	if err := c.do(ctx, http.MethodPost, cartPath, nil, in, &lines); err != nil {
		return nil, err
	}
	return nonNil(lines), nil
}

// UpdateItem sets a line's quantity. Non-positive quantities remove the line.
func (c *Client) UpdateItem(ctx context.Context, itemID string, quantity int) ([]models.CartLine, error) {
	if quantity <= 0 {
		return c.RemoveItem(ctx, itemID)
	}
	in := map[string]any{"id": itemID, "quantity": quantity}
	var lines []models.CartLine
	if err := c.do(ctx, http.MethodPatch, cartPath, nil, in, &lines); err != nil {
		return nil, err
	}
	return nonNil(lines), nil
}

func (c *Client) RemoveItem(ctx context.Context, itemID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := c.do(ctx, http.MethodDelete, cartPath, url.Values{"id": {itemID}}, nil, &lines); err != nil {
		return nil, err
	}
	return nonNil(lines), nil
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, cartPath, url.Values{"clear": {"true"}}, nil, nil)
}

func nonNil(lines []models.CartLine) []models.CartLine {
	if lines == nil {
		return []models.CartLine{}
	}
	return lines
}
