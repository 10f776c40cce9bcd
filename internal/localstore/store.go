// Package localstore persists an anonymous visitor's cart, address list and
// remembered session on the local machine.
package localstore

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/session"
)

const (
	CartKey      = "guest_cart"
	AddressesKey = "guest_addresses"
	SessionKey   = "session"
)

type Store struct {
	kv     KV
	logger *slog.Logger
}

func New(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// LoadCart never fails: missing, unreadable or corrupt entries read as an
// empty cart, and corrupt entries are purged.
func (s *Store) LoadCart() []models.CartLine {
	var lines []models.CartLine
	if !s.load(CartKey, &lines) || lines == nil {
		lines = []models.CartLine{}
	}
	return lines
}

func (s *Store) SaveCart(lines []models.CartLine) error {
	return s.save(CartKey, lines)
}

func (s *Store) ClearCart() error {
	return s.kv.Delete(CartKey)
}

func (s *Store) LoadAddresses() []models.Address {
	var addrs []models.Address
	if !s.load(AddressesKey, &addrs) || addrs == nil {
		addrs = []models.Address{}
	}
	return addrs
}

func (s *Store) SaveAddresses(addrs []models.Address) error {
	return s.save(AddressesKey, addrs)
}

// LoadSession returns the remembered credential, or an anonymous state.
func (s *Store) LoadSession() session.AuthState {
	var st session.AuthState
	if !s.load(SessionKey, &st) {
		return session.Anonymous()
	}
	return st
}

func (s *Store) SaveSession(st session.AuthState) error {
	return s.save(SessionKey, st)
}

func (s *Store) ClearSession() error {
	return s.kv.Delete(SessionKey)
}

// load reports whether dst holds a fully decoded entry.
func (s *Store) load(key string, dst any) bool {
	raw, err := s.kv.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn("Failed to read local entry", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("Discarding corrupt local entry", "key", key, "error", err)
		if derr := s.kv.Delete(key); derr != nil {
			s.logger.Error("Failed to purge corrupt local entry", "key", key, "error", derr)
		}
		return false
	}
	return true
}

func (s *Store) save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(key, raw)
}
