package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alextreichler/vendormarket/internal/models"
)

func catalogTable(c models.Catalog) (string, error) {
	switch c {
	case models.CatalogShop:
		return "products", nil
	case models.CatalogSim:
		return "sim_products", nil
	}
	return "", fmt.Errorf("unknown catalog %q", c)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner, p *models.Product) error {
	var gst decimal.NullDecimal
	var inventory sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.ImageURL, &gst, &inventory); err != nil {
		return err
	}
	p.GSTPercentage = nullDecimal(gst)
	p.Inventory = nullInt(inventory)
	return nil
}

func nullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func (s *Store) CreateProduct(c models.Catalog, p *models.Product) error {
	table, err := catalogTable(c)
	if err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var gst decimal.NullDecimal
	if p.GSTPercentage != nil {
		gst = decimal.NewNullDecimal(*p.GSTPercentage)
	}
	var inventory sql.NullInt64
	if p.Inventory != nil {
		inventory = sql.NullInt64{Int64: int64(*p.Inventory), Valid: true}
	}
	query := `INSERT INTO ` + table + ` (id, name, price, image_url, gst_percentage, inventory) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.DB.Exec(query, p.ID, p.Name, p.Price, p.ImageURL, gst, inventory)
	return err
}

func (s *Store) GetProduct(c models.Catalog, id string) (*models.Product, error) {
	table, err := catalogTable(c)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, name, price, image_url, gst_percentage, inventory FROM ` + table + ` WHERE id = ?`
	var p models.Product
	if err := scanProduct(s.DB.QueryRow(query, id), &p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) ListProducts(c models.Catalog) ([]models.Product, error) {
	table, err := catalogTable(c)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.Query(`SELECT id, name, price, image_url, gst_percentage, inventory FROM ` + table + ` ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeleteProduct removes a catalog entry. Past orders keep their item rows.
func (s *Store) DeleteProduct(c models.Catalog, id string) error {
	table, err := catalogTable(c)
	if err != nil {
		return err
	}
	res, err := s.DB.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
