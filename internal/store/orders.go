package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alextreichler/vendormarket/internal/cart"
	"github.com/alextreichler/vendormarket/internal/inventory"
	"github.com/alextreichler/vendormarket/internal/models"
)

var ErrEmptyCart = errors.New("store: cart is empty")

// CreateOrderFromCart turns the user's cart into a pending order shipped to
// addressID, decrements tracked stock and empties the cart, all in one
// transaction.
func (s *Store) CreateOrderFromCart(userID, addressID string) (*models.Order, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var owner string
	if err := tx.QueryRow(`SELECT owner_id FROM addresses WHERE id = ? AND owner_id = ?`, addressID, userID).Scan(&owner); err != nil {
		return nil, notFound(err)
	}

	lines, err := getCart(tx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		ID:                uuid.NewString(),
		Total:             cart.Totals(lines).Total.Round(2),
		Status:            models.OrderPending,
		CreatedAt:         time.Now().UTC(),
		ShippingAddressID: addressID,
	}
	_, err = tx.Exec(`INSERT INTO orders (id, user_id, total, status, shipping_address_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, userID, order.Total, order.Status, order.ShippingAddressID, order.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		if err := inventory.Check(l.Quantity, l.Inventory); err != nil {
			return nil, err
		}
		var catalog string
		if err := tx.QueryRow(`SELECT catalog FROM cart_items WHERE id = ?`, l.ID).Scan(&catalog); err != nil {
			return nil, err
		}
		item := models.OrderItem{ID: uuid.NewString(), OrderID: order.ID, Quantity: l.Quantity, Price: l.UnitPrice}
		var productID, simID sql.NullString
		if models.Catalog(catalog) == models.CatalogSim {
			item.SimProductID = l.ProductID
			simID = sql.NullString{String: l.ProductID, Valid: true}
		} else {
			item.ProductID = l.ProductID
			productID = sql.NullString{String: l.ProductID, Valid: true}
		}
		_, err := tx.Exec(`INSERT INTO order_items (id, order_id, product_id, sim_product_id, quantity, price) VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, item.OrderID, productID, simID, item.Quantity, item.Price)
		if err != nil {
			return nil, err
		}
		if l.Inventory != nil {
			table, _ := catalogTable(models.Catalog(catalog))
			if _, err := tx.Exec(`UPDATE `+table+` SET inventory = inventory - ? WHERE id = ?`, l.Quantity, l.ProductID); err != nil {
				return nil, err
			}
		}
		order.Items = append(order.Items, item)
	}

	if _, err := tx.Exec(`DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

const orderColumns = `id, total, status, COALESCE(shipping_address_id, ''), created_at`

func scanOrder(row scanner, o *models.Order) error {
	return row.Scan(&o.ID, &o.Total, &o.Status, &o.ShippingAddressID, &o.CreatedAt)
}

// ListOrders returns the user's orders, newest first, without items.
func (s *Store) ListOrders(userID string) ([]models.Order, error) {
	rows, err := s.DB.Query(`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) GetOrder(userID, id string) (*models.Order, error) {
	var o models.Order
	row := s.DB.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id = ? AND user_id = ?`, id, userID)
	if err := scanOrder(row, &o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// GetOrderItems returns the raw item rows of one of the user's orders.
// Product names are not joined; clients resolve them against the catalogs.
func (s *Store) GetOrderItems(userID, orderID string) ([]models.OrderItem, error) {
	rows, err := s.DB.Query(`
		SELECT i.id, i.order_id, COALESCE(i.product_id, ''), COALESCE(i.sim_product_id, ''), i.quantity, i.price
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE i.order_id = ? AND o.user_id = ?
		ORDER BY i.rowid
	`, orderID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var i models.OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.SimProductID, &i.Quantity, &i.Price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *Store) UpdateOrderStatus(id string, status models.OrderStatus) error {
	if !status.Valid() {
		return errors.New("store: invalid order status")
	}
	res, err := s.DB.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return affected(res)
}
