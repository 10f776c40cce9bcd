package store

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/alextreichler/vendormarket/internal/models"
)

// GetUserByUsername returns nil, nil when no such user exists.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT id, username, password FROM users WHERE username = ?`
	row := s.DB.QueryRow(query, username)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser stores a shopper account. hashedPassword must already be a bcrypt hash.
func (s *Store) CreateUser(username, hashedPassword string) (*models.User, error) {
	user := &models.User{ID: uuid.NewString(), Username: username, Password: hashedPassword}
	query := `INSERT INTO users (id, username, password) VALUES (?, ?, ?)`
	if _, err := s.DB.Exec(query, user.ID, user.Username, user.Password); err != nil {
		return nil, err
	}
	return user, nil
}
