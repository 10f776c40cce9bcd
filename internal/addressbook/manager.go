// Package addressbook maintains a shopper's addresses with exactly one
// default address whenever the collection is non-empty.
package addressbook

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/session"
)

var ErrAddressNotFound = errors.New("addressbook: address not found")

type Manager struct {
	local  Store
	remote RemoteFactory
	logger *slog.Logger

	mu          sync.Mutex
	addrs       []models.Address
	epoch       uint64
	inFlight    int
	localLoaded bool
}

func NewManager(local Store, remote RemoteFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{local: local, remote: remote, logger: logger, addrs: []models.Address{}}
}

func (m *Manager) store(auth session.AuthState) Store {
	if auth.Authenticated() {
		return m.remote(auth)
	}
	return m.local
}

// Start loads the collection for auth. Guest addresses load once per process.
func (m *Manager) Start(ctx context.Context, auth session.AuthState) error {
	if !auth.Authenticated() {
		m.mu.Lock()
		if m.localLoaded {
			m.mu.Unlock()
			return nil
		}
		m.localLoaded = true
		m.mu.Unlock()
	}
	return m.Load(ctx, auth)
}

// Load replaces the snapshot with the backing collection.
func (m *Manager) Load(ctx context.Context, auth session.AuthState) error {
	m.begin()
	defer m.end()
	epoch := m.currentEpoch()
	addrs, err := m.store(auth).List(ctx)
	if err != nil {
		return m.soft(err)
	}
	m.replace(epoch, addrs)
	return nil
}

// HandleLogin switches the snapshot to the account's collection.
func (m *Manager) HandleLogin(ctx context.Context, auth session.AuthState) error {
	m.bump()
	return m.Load(ctx, auth)
}

// HandleLogout forgets account addresses and reseeds from the local store.
func (m *Manager) HandleLogout(ctx context.Context) error {
	m.Reset()
	return m.Start(ctx, session.Anonymous())
}

// Reset empties the snapshot, drops in-flight responses and re-arms the
// one-time guest load.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.addrs = []models.Address{}
	m.localLoaded = false
}

// Add inserts a. The first address of a book without a default always
// becomes default.
func (m *Manager) Add(ctx context.Context, auth session.AuthState, a models.Address) (models.Address, error) {
	m.begin()
	defer m.end()
	epoch := m.currentEpoch()
	s := m.store(auth)
	current, err := s.List(ctx)
	if err != nil {
		return models.Address{}, m.soft(err)
	}

	if countDefaults(current) == 0 {
		a.IsDefault = true
	}
	var cleared []models.Address
	if a.IsDefault {
		if cleared, err = m.clearDefaults(ctx, s, current, ""); err != nil {
			m.restoreDefaults(ctx, s, cleared)
			m.reload(ctx, epoch, s)
			return models.Address{}, m.soft(err)
		}
	}

	created, err := s.Create(ctx, a)
	if err != nil {
		m.restoreDefaults(ctx, s, cleared)
	}
	m.reload(ctx, epoch, s)
	if err != nil {
		return models.Address{}, m.soft(err)
	}
	return created, nil
}

// Update replaces every mutable field of the address with a.ID. Clearing the
// flag on the default hands it to the first other address; the only address,
// or any address of a book without a default, becomes default.
func (m *Manager) Update(ctx context.Context, auth session.AuthState, a models.Address) (models.Address, error) {
	m.begin()
	defer m.end()
	epoch := m.currentEpoch()
	s := m.store(auth)
	current, err := s.List(ctx)
	if err != nil {
		return models.Address{}, m.soft(err)
	}
	i := indexOf(current, a.ID)
	if i < 0 {
		return models.Address{}, ErrAddressNotFound
	}
	a.OwnerID = current[i].OwnerID

	wasDefault := current[i].IsDefault
	if len(current) == 1 || countDefaults(current) == 0 {
		a.IsDefault = true
	}
	var cleared []models.Address
	if a.IsDefault && !wasDefault {
		if cleared, err = m.clearDefaults(ctx, s, current, a.ID); err != nil {
			m.restoreDefaults(ctx, s, cleared)
			m.reload(ctx, epoch, s)
			return models.Address{}, m.soft(err)
		}
	}

	updated, err := s.Update(ctx, a)
	if err != nil {
		m.restoreDefaults(ctx, s, cleared)
	} else if wasDefault && !a.IsDefault {
		if err = m.promoteFirst(ctx, s, current, a.ID); err != nil {
			m.restoreDefaults(ctx, s, []models.Address{updated})
		}
	}
	m.reload(ctx, epoch, s)
	if err != nil {
		return models.Address{}, m.soft(err)
	}
	return updated, nil
}

// Remove deletes the address and, if it was the default, promotes the first
// remaining address in the same call.
func (m *Manager) Remove(ctx context.Context, auth session.AuthState, id string) error {
	m.begin()
	defer m.end()
	epoch := m.currentEpoch()
	s := m.store(auth)
	current, err := s.List(ctx)
	if err != nil {
		return m.soft(err)
	}
	i := indexOf(current, id)
	if i < 0 {
		return ErrAddressNotFound
	}

	err = s.Delete(ctx, id)
	if err == nil && (current[i].IsDefault || countDefaults(current) == 0) {
		err = m.promoteFirst(ctx, s, current, id)
	}
	m.reload(ctx, epoch, s)
	return m.soft(err)
}

func (m *Manager) SetDefault(ctx context.Context, auth session.AuthState, id string) error {
	m.begin()
	defer m.end()
	epoch := m.currentEpoch()
	s := m.store(auth)
	current, err := s.List(ctx)
	if err != nil {
		return m.soft(err)
	}
	i := indexOf(current, id)
	if i < 0 {
		return ErrAddressNotFound
	}
	if current[i].IsDefault {
		m.replace(epoch, current)
		return nil
	}

	cleared, err := m.clearDefaults(ctx, s, current, id)
	if err == nil {
		target := current[i]
		target.IsDefault = true
		_, err = s.Update(ctx, target)
	}
	if err != nil {
		m.restoreDefaults(ctx, s, cleared)
	}
	m.reload(ctx, epoch, s)
	return m.soft(err)
}

// clearDefaults persists is_default=false on every default other than keep
// and returns the addresses it changed, including on failure.
func (m *Manager) clearDefaults(ctx context.Context, s Store, current []models.Address, keep string) ([]models.Address, error) {
	var cleared []models.Address
	for _, a := range current {
		if !a.IsDefault || a.ID == keep {
			continue
		}
		a.IsDefault = false
		if _, err := s.Update(ctx, a); err != nil {
			return cleared, err
		}
		cleared = append(cleared, a)
	}
	return cleared, nil
}

// restoreDefaults puts back the defaults cleared for a write that then failed.
func (m *Manager) restoreDefaults(ctx context.Context, s Store, cleared []models.Address) {
	for _, a := range cleared {
		a.IsDefault = true
		if _, err := s.Update(ctx, a); err != nil {
			m.logger.Error("Failed to restore default address", "address_id", a.ID, "error", err)
		}
	}
}

func (m *Manager) promoteFirst(ctx context.Context, s Store, current []models.Address, except string) error {
	for _, a := range current {
		if a.ID == except {
			continue
		}
		a.IsDefault = true
		_, err := s.Update(ctx, a)
		return err
	}
	return nil
}

func (m *Manager) reload(ctx context.Context, epoch uint64, s Store) {
	addrs, err := s.List(ctx)
	if err != nil {
		m.logger.Warn("Failed to reload addresses, keeping previous list", "error", err)
		return
	}
	m.replace(epoch, addrs)
}

// soft hides unauthenticated failures from callers.
func (m *Manager) soft(err error) error {
	if errors.Is(err, gateway.ErrUnauthenticated) {
		m.logger.Warn("Address request was not authenticated, ignoring", "error", err)
		return nil
	}
	return err
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

func (m *Manager) bump() {
	m.mu.Lock()
	m.epoch++
	m.mu.Unlock()
}

func (m *Manager) replace(epoch uint64, addrs []models.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return
	}
	if addrs == nil {
		addrs = []models.Address{}
	}
	m.addrs = addrs
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.inFlight++
	m.mu.Unlock()
}

func (m *Manager) end() {
	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
}

// Loading reports whether an address request is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight > 0
}

func countDefaults(addrs []models.Address) int {
	n := 0
	for _, a := range addrs {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func (m *Manager) List() []models.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Address{}, m.addrs...)
}

func (m *Manager) Default() (models.Address, bool) {
	for _, a := range m.List() {
		if a.IsDefault {
			return a, true
		}
	}
	return models.Address{}, false
}
