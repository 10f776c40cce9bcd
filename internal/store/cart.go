package store

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alextreichler/vendormarket/internal/inventory"
	"github.com/alextreichler/vendormarket/internal/models"
)

const cartQuery = `
	SELECT c.id, c.product_id, c.quantity, p.name, p.price, p.image_url, p.gst_percentage, p.inventory
	FROM cart_items c
	JOIN catalog_products p ON p.id = c.product_id AND p.catalog = c.catalog
	WHERE c.user_id = ?
	ORDER BY c.created_at, c.rowid
`

// GetCart returns the user's cart joined with current catalog data. Lines
// whose product has been deleted drop out.
func (s *Store) GetCart(userID string) ([]models.CartLine, error) {
	return getCart(s.DB, userID)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func getCart(q querier, userID string) ([]models.CartLine, error) {
	rows, err := q.Query(cartQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		var gst decimal.NullDecimal
		var inv sql.NullInt64
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity, &l.Name, &l.UnitPrice, &l.ImageURL, &gst, &inv); err != nil {
			return nil, err
		}
		l.GSTPercentage = nullDecimal(gst)
		l.Inventory = nullInt(inv)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// AddCartItem merges quantity into the user's line for productID, creating
// the line if needed. The combined quantity must fit the product's stock.
func (s *Store) AddCartItem(userID, productID string, quantity int) error {
	var catalog string
	var inv sql.NullInt64
	err := s.DB.QueryRow(`SELECT catalog, inventory FROM catalog_products WHERE id = ? LIMIT 1`, productID).Scan(&catalog, &inv)
	if err != nil {
		return notFound(err)
	}

	var existing int
	err = s.DB.QueryRow(`SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err := inventory.Check(existing+quantity, nullInt(inv)); err != nil {
		return err
	}

	_, err = s.DB.Exec(`
		INSERT INTO cart_items (id, user_id, product_id, catalog, quantity) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = quantity + excluded.quantity
	`, uuid.NewString(), userID, productID, catalog, quantity)
	return err
}

// UpdateCartItem sets a line's quantity. Non-positive quantities remove it.
func (s *Store) UpdateCartItem(userID, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveCartItem(userID, itemID)
	}
	var inv sql.NullInt64
	err := s.DB.QueryRow(`
		SELECT p.inventory FROM cart_items c
		JOIN catalog_products p ON p.id = c.product_id AND p.catalog = c.catalog
		WHERE c.id = ? AND c.user_id = ?
	`, itemID, userID).Scan(&inv)
	if err != nil {
		return notFound(err)
	}
	if err := inventory.Check(quantity, nullInt(inv)); err != nil {
		return err
	}
	res, err := s.DB.Exec(`UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?`, quantity, itemID, userID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) RemoveCartItem(userID, itemID string) error {
	res, err := s.DB.Exec(`DELETE FROM cart_items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) ClearCart(userID string) error {
	_, err := s.DB.Exec(`DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}
