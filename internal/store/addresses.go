package store

import (
	"github.com/google/uuid"

	"github.com/alextreichler/vendormarket/internal/models"
)

const addressColumns = `id, owner_id, label, line1, line2, city, state, postal_code, country, phone, is_default`

func scanAddress(row scanner, a *models.Address) error {
	return row.Scan(&a.ID, &a.OwnerID, &a.Label, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country, &a.Phone, &a.IsDefault)
}

func (s *Store) ListAddresses(ownerID string) ([]models.Address, error) {
	rows, err := s.DB.Query(`SELECT `+addressColumns+` FROM addresses WHERE owner_id = ? ORDER BY created_at, rowid`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addrs := []models.Address{}
	for rows.Next() {
		var a models.Address
		if err := scanAddress(rows, &a); err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

func (s *Store) GetAddress(ownerID, id string) (*models.Address, error) {
	var a models.Address
	row := s.DB.QueryRow(`SELECT `+addressColumns+` FROM addresses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err := scanAddress(row, &a); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// CreateAddress stores a verbatim; default bookkeeping belongs to the caller.
func (s *Store) CreateAddress(ownerID string, a *models.Address) error {
	a.ID = uuid.NewString()
	a.OwnerID = ownerID
	_, err := s.DB.Exec(`INSERT INTO addresses (`+addressColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Label, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country, a.Phone, a.IsDefault)
	return err
}

func (s *Store) UpdateAddress(ownerID string, a *models.Address) error {
	res, err := s.DB.Exec(`
		UPDATE addresses SET label = ?, line1 = ?, line2 = ?, city = ?, state = ?, postal_code = ?, country = ?, phone = ?, is_default = ?
		WHERE id = ? AND owner_id = ?
	`, a.Label, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country, a.Phone, a.IsDefault, a.ID, ownerID)
	if err != nil {
		return err
	}
	a.OwnerID = ownerID
	return affected(res)
}

func (s *Store) DeleteAddress(ownerID, id string) error {
	res, err := s.DB.Exec(`DELETE FROM addresses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	return affected(res)
}
